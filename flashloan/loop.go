package flashloan

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/0dotxyz/marginfi-go/core"
	"github.com/0dotxyz/marginfi-go/ix"
	"github.com/0dotxyz/marginfi-go/jupiter"
)

type LoopArgs struct {
	DepositBank solana.PublicKey
	BorrowBank  solana.PublicKey

	// BorrowAmount is in native units of the borrow bank's mint.
	BorrowAmount uint64

	// AdditionalDepositAmount tops up the deposit leg from the caller's own
	// token account, in native units of the deposit bank's mint.
	AdditionalDepositAmount uint64

	Options ComposeOptions
}

// Loop leverages a position: borrow inside the envelope, swap the proceeds
// into the deposit mint, deposit everything. When both banks share a mint
// the swap is skipped and the deposit equals the borrow plus the additional
// amount.
func (c *Composer) Loop(ctx context.Context, args LoopArgs) (*ComposeResult, error) {
	if args.BorrowAmount == 0 {
		return nil, core.ErrInvalidAmount
	}
	depositBank, err := c.Banks.Get(args.DepositBank)
	if err != nil {
		return nil, err
	}
	borrowBank, err := c.Banks.Get(args.BorrowBank)
	if err != nil {
		return nil, err
	}

	builder := c.builder()
	return c.compose(ctx, args.Options, plan{
		reason:     ix.ReasonSwapSizeExceededLoop,
		bank:       borrowBank.Address,
		inputMint:  borrowBank.Mint,
		outputMint: depositBank.Mint,
		amount:     args.BorrowAmount,
		swapMode:   jupiter.SwapModeExactIn,
		sameMint:   borrowBank.Mint.Equals(depositBank.Mint),
		banks:      []*core.Bank{depositBank, borrowBank},
		buildBody: func(route *jupiter.SwapRoute) (*envelopeBody, error) {
			received := args.BorrowAmount
			var swapIxs []solana.Instruction
			if route != nil {
				received = route.OutAmount
				swapIxs = route.Instructions
			}
			depositAmount := received + args.AdditionalDepositAmount

			borrow, err := builder.Borrow(ix.BorrowArgs{
				Bank:   borrowBank.Address,
				Amount: args.BorrowAmount,
			})
			if err != nil {
				return nil, err
			}
			deposit, err := builder.Deposit(ix.DepositArgs{
				Bank:   depositBank.Address,
				Amount: depositAmount,
			})
			if err != nil {
				return nil, err
			}

			body := &envelopeBody{
				signers: append(borrow.Signers, deposit.Signers...),
				projected: []core.ProjectedAction{
					{
						BankPk:         borrowBank.Address,
						LiabilityDelta: core.NativeToUi(args.BorrowAmount, borrowBank.MintDecimals),
					},
					{
						BankPk:     depositBank.Address,
						AssetDelta: core.NativeToUi(depositAmount, depositBank.MintDecimals),
					},
				},
			}
			body.instructions = append(body.instructions, borrow.Instructions...)
			body.instructions = append(body.instructions, swapIxs...)
			body.instructions = append(body.instructions, deposit.Instructions...)
			return body, nil
		},
	})
}
