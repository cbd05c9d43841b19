package flashloan

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/0dotxyz/marginfi-go/core"
	"github.com/0dotxyz/marginfi-go/ix"
	"github.com/0dotxyz/marginfi-go/jupiter"
)

type SwapCollateralArgs struct {
	SourceBank      solana.PublicKey
	DestinationBank solana.PublicKey

	// Amount is in native units of the source mint. Ignored when
	// WithdrawAll is set.
	Amount      uint64
	WithdrawAll bool

	Options ComposeOptions
}

// SwapCollateral moves a deposit from one bank to another without touching
// debt: withdraw from the source inside the envelope, swap into the
// destination mint, deposit.
func (c *Composer) SwapCollateral(ctx context.Context, args SwapCollateralArgs) (*ComposeResult, error) {
	sourceBank, err := c.Banks.Get(args.SourceBank)
	if err != nil {
		return nil, err
	}
	destinationBank, err := c.Banks.Get(args.DestinationBank)
	if err != nil {
		return nil, err
	}

	withdrawAmount := args.Amount
	if args.WithdrawAll {
		withdrawAmount, err = c.fullAssetAmount(sourceBank)
		if err != nil {
			return nil, err
		}
	}
	if withdrawAmount == 0 {
		return nil, core.ErrInvalidAmount
	}

	builder := c.builder()
	return c.compose(ctx, args.Options, plan{
		reason:     ix.ReasonSwapSizeExceededSwap,
		bank:       sourceBank.Address,
		inputMint:  sourceBank.Mint,
		outputMint: destinationBank.Mint,
		amount:     withdrawAmount,
		swapMode:   jupiter.SwapModeExactIn,
		sameMint:   sourceBank.Mint.Equals(destinationBank.Mint),
		banks:      []*core.Bank{sourceBank, destinationBank},
		buildBody: func(route *jupiter.SwapRoute) (*envelopeBody, error) {
			received := withdrawAmount
			var swapIxs []solana.Instruction
			if route != nil {
				received = route.OutAmount
				swapIxs = route.Instructions
			}

			withdraw, err := builder.Withdraw(ix.WithdrawArgs{
				Bank:        sourceBank.Address,
				Amount:      withdrawAmount,
				WithdrawAll: args.WithdrawAll,
			})
			if err != nil {
				return nil, err
			}
			deposit, err := builder.Deposit(ix.DepositArgs{
				Bank:   destinationBank.Address,
				Amount: received,
			})
			if err != nil {
				return nil, err
			}

			body := &envelopeBody{
				signers: append(withdraw.Signers, deposit.Signers...),
				projected: []core.ProjectedAction{
					{
						BankPk:     sourceBank.Address,
						AssetDelta: core.NativeToUi(withdrawAmount, sourceBank.MintDecimals).Neg(),
					},
					{
						BankPk:     destinationBank.Address,
						AssetDelta: core.NativeToUi(received, destinationBank.MintDecimals),
					},
				},
			}
			body.instructions = append(body.instructions, withdraw.Instructions...)
			body.instructions = append(body.instructions, swapIxs...)
			body.instructions = append(body.instructions, deposit.Instructions...)
			return body, nil
		},
	})
}

type SwapDebtArgs struct {
	// OldLiabilityBank is the debt being retired; NewLiabilityBank the debt
	// taken on in its place.
	OldLiabilityBank solana.PublicKey
	NewLiabilityBank solana.PublicKey

	// RepayAmount is in native units of the old liability mint. Ignored when
	// RepayAll is set.
	RepayAmount uint64
	RepayAll    bool

	Options ComposeOptions
}

// SwapDebt replaces one liability with another: borrow the new mint inside
// the envelope, swap it into the old mint under an exact-out quote sized to
// the repayment, repay the old debt. The borrow amount follows the quoted
// input amount.
func (c *Composer) SwapDebt(ctx context.Context, args SwapDebtArgs) (*ComposeResult, error) {
	oldBank, err := c.Banks.Get(args.OldLiabilityBank)
	if err != nil {
		return nil, err
	}
	newBank, err := c.Banks.Get(args.NewLiabilityBank)
	if err != nil {
		return nil, err
	}

	repayAmount := args.RepayAmount
	if args.RepayAll {
		repayAmount, err = c.fullLiabilityAmount(oldBank)
		if err != nil {
			return nil, err
		}
	}
	if repayAmount == 0 {
		return nil, core.ErrInvalidAmount
	}

	builder := c.builder()
	return c.compose(ctx, args.Options, plan{
		reason:     ix.ReasonSwapSizeExceededSwap,
		bank:       newBank.Address,
		inputMint:  newBank.Mint,
		outputMint: oldBank.Mint,
		amount:     repayAmount,
		swapMode:   jupiter.SwapModeExactOut,
		sameMint:   newBank.Mint.Equals(oldBank.Mint),
		banks:      []*core.Bank{oldBank, newBank},
		buildBody: func(route *jupiter.SwapRoute) (*envelopeBody, error) {
			borrowAmount := repayAmount
			var swapIxs []solana.Instruction
			if route != nil {
				borrowAmount = route.InAmount
				swapIxs = route.Instructions
			}
			if borrowAmount == 0 {
				return nil, core.ErrInvalidAmount
			}

			borrow, err := builder.Borrow(ix.BorrowArgs{
				Bank:   newBank.Address,
				Amount: borrowAmount,
			})
			if err != nil {
				return nil, err
			}
			repay, err := builder.Repay(ix.RepayArgs{
				Bank:     oldBank.Address,
				Amount:   repayAmount,
				RepayAll: args.RepayAll,
			})
			if err != nil {
				return nil, err
			}

			body := &envelopeBody{
				signers: append(borrow.Signers, repay.Signers...),
				projected: []core.ProjectedAction{
					{
						BankPk:         newBank.Address,
						LiabilityDelta: core.NativeToUi(borrowAmount, newBank.MintDecimals),
					},
					{
						BankPk:         oldBank.Address,
						LiabilityDelta: core.NativeToUi(repayAmount, oldBank.MintDecimals).Neg(),
					},
				},
			}
			body.instructions = append(body.instructions, borrow.Instructions...)
			body.instructions = append(body.instructions, swapIxs...)
			body.instructions = append(body.instructions, repay.Instructions...)
			return body, nil
		},
	})
}
