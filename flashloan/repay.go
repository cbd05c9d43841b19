package flashloan

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/0dotxyz/marginfi-go/core"
	"github.com/0dotxyz/marginfi-go/ix"
	"github.com/0dotxyz/marginfi-go/jupiter"
)

type RepayWithCollateralArgs struct {
	CollateralBank solana.PublicKey
	LiabilityBank  solana.PublicKey

	// WithdrawAmount is in native units of the collateral mint. Ignored when
	// WithdrawAll is set, in which case the full position is withdrawn.
	WithdrawAmount uint64
	WithdrawAll    bool

	RepayAll bool

	Options ComposeOptions
}

// RepayWithCollateral retires debt using deposited collateral: withdraw the
// collateral inside the envelope, swap it into the liability mint, repay.
// Same-mint legs repay exactly what was withdrawn.
func (c *Composer) RepayWithCollateral(ctx context.Context, args RepayWithCollateralArgs) (*ComposeResult, error) {
	collateralBank, err := c.Banks.Get(args.CollateralBank)
	if err != nil {
		return nil, err
	}
	liabilityBank, err := c.Banks.Get(args.LiabilityBank)
	if err != nil {
		return nil, err
	}

	withdrawAmount := args.WithdrawAmount
	if args.WithdrawAll {
		withdrawAmount, err = c.fullAssetAmount(collateralBank)
		if err != nil {
			return nil, err
		}
	}
	if withdrawAmount == 0 {
		return nil, core.ErrInvalidAmount
	}

	builder := c.builder()
	return c.compose(ctx, args.Options, plan{
		reason:     ix.ReasonSwapSizeExceededRepay,
		bank:       liabilityBank.Address,
		inputMint:  collateralBank.Mint,
		outputMint: liabilityBank.Mint,
		amount:     withdrawAmount,
		swapMode:   jupiter.SwapModeExactIn,
		sameMint:   collateralBank.Mint.Equals(liabilityBank.Mint),
		banks:      []*core.Bank{collateralBank, liabilityBank},
		buildBody: func(route *jupiter.SwapRoute) (*envelopeBody, error) {
			received := withdrawAmount
			var swapIxs []solana.Instruction
			if route != nil {
				received = route.OutAmount
				swapIxs = route.Instructions
			}

			withdraw, err := builder.Withdraw(ix.WithdrawArgs{
				Bank:        collateralBank.Address,
				Amount:      withdrawAmount,
				WithdrawAll: args.WithdrawAll,
			})
			if err != nil {
				return nil, err
			}
			repay, err := builder.Repay(ix.RepayArgs{
				Bank:     liabilityBank.Address,
				Amount:   received,
				RepayAll: args.RepayAll,
			})
			if err != nil {
				return nil, err
			}

			body := &envelopeBody{
				signers: append(withdraw.Signers, repay.Signers...),
				projected: []core.ProjectedAction{
					{
						BankPk:     collateralBank.Address,
						AssetDelta: core.NativeToUi(withdrawAmount, collateralBank.MintDecimals).Neg(),
					},
					{
						BankPk:         liabilityBank.Address,
						LiabilityDelta: core.NativeToUi(received, liabilityBank.MintDecimals).Neg(),
					},
				},
			}
			body.instructions = append(body.instructions, withdraw.Instructions...)
			body.instructions = append(body.instructions, swapIxs...)
			body.instructions = append(body.instructions, repay.Instructions...)
			return body, nil
		},
	})
}

// fullAssetAmount is the account's entire deposit in a bank as a native
// amount, rounded down so the withdrawal never overdraws the shares.
func (c *Composer) fullAssetAmount(bank *core.Bank) (uint64, error) {
	balance, ok := c.Account.GetBalance(bank.Address)
	if !ok {
		return 0, errors.Errorf("no active balance in bank %s", bank.Address)
	}
	quantity := bank.GetAssetQuantityRounded(balance.AssetShares)
	return core.UiToNative(quantity, bank.MintDecimals), nil
}

// fullLiabilityAmount mirrors fullAssetAmount for the debt side, rounded up
// so a full repayment always covers the shares.
func (c *Composer) fullLiabilityAmount(bank *core.Bank) (uint64, error) {
	balance, ok := c.Account.GetBalance(bank.Address)
	if !ok {
		return 0, errors.Errorf("no active balance in bank %s", bank.Address)
	}
	quantity := bank.GetLiabilityQuantityRounded(balance.LiabilityShares)
	return core.UiToNative(quantity, bank.MintDecimals), nil
}
