// Package flashloan composes multi-step atomic actions inside a begin/end
// flash-loan envelope: loop (leverage), repay-with-collateral, collateral
// swap and debt swap. Each action borrows or withdraws, routes the proceeds
// through the swap aggregator when the legs differ in mint, and deposits or
// repays, all in one transaction. Candidate routes are tried under
// descending account bounds until one fits the protocol's size ceilings.
package flashloan

import (
	"context"
	"slices"

	"github.com/facebookgo/clock"
	"github.com/gagliardetto/solana-go"
	addresslookuptable "github.com/gagliardetto/solana-go/programs/address-lookup-table"
	jupiterapi "github.com/ilkamo/jupiter-go/jupiter"
	"github.com/pkg/errors"

	"github.com/0dotxyz/marginfi-go/core"
	"github.com/0dotxyz/marginfi-go/crank"
	"github.com/0dotxyz/marginfi-go/ix"
	"github.com/0dotxyz/marginfi-go/jupiter"
	"github.com/0dotxyz/marginfi-go/tx"
)

const defaultComputeUnitLimit = 1_400_000

// Account bounds for swap route candidates, tried in order. Tighter bounds
// buy smaller transactions at worse prices; the first fitting candidate
// wins.
var swapAccountCandidates = []int{40, 30, 20}

// Composer assembles composite flash-loan transactions from an immutable
// snapshot. Crank and Clock are optional; without a crank client no oracle
// update transaction is hoisted.
type Composer struct {
	ProgramID solana.PublicKey
	Group     solana.PublicKey

	Account *core.MarginfiAccount
	Banks   core.BankMap
	Prices  core.PriceMap
	Mints   core.MintMap

	LookupTables []addresslookuptable.KeyedAddressLookupTable

	Swap  jupiter.SwapProvider
	Crank *crank.Client
	Clock clock.Clock

	Log core.Log
}

// ComposeOptions carries the per-call knobs shared by every composite
// action.
type ComposeOptions struct {
	Blockhash solana.Hash
	// Payer defaults to the account authority.
	Payer solana.PublicKey

	ComputeUnitLimit         uint32
	PriorityFeeMicroLamports uint64
	SlippageBps              int

	// CreateAtaMints lists mints whose associated token accounts must be
	// created before the action runs. Creation is hoisted into a setup
	// transaction so the flash-loan transaction stays minimal.
	CreateAtaMints []solana.PublicKey
}

// ComposeResult is the ordered transaction list. Transactions before
// ActionTxIndex are setup and cranks; the one at ActionTxIndex performs the
// economic action.
type ComposeResult struct {
	Transactions  []*solana.Transaction
	ActionTxIndex int
	Signers       []solana.PrivateKey
}

// envelopeBody is the instruction sequence between begin and end flash-loan
// for one candidate route, plus the balance changes it implies.
type envelopeBody struct {
	instructions []solana.Instruction
	signers      []solana.PrivateKey
	projected    []core.ProjectedAction
}

// plan is one composite action lowered to what the candidate search needs:
// the quote parameters and a callback realizing the envelope body for a
// given route. A nil route means the legs share a mint and no swap runs.
type plan struct {
	reason     ix.BuildErrorReason
	bank       solana.PublicKey
	inputMint  solana.PublicKey
	outputMint solana.PublicKey
	amount     uint64
	swapMode   jupiterapi.GetQuoteParamsSwapMode
	sameMint   bool
	banks      []*core.Bank
	buildBody  func(route *jupiter.SwapRoute) (*envelopeBody, error)
}

func (c *Composer) logger() core.Log {
	if c.Log != nil {
		return c.Log
	}
	return core.NopLog()
}

func (c *Composer) builder() *ix.Builder {
	return &ix.Builder{
		ProgramID: c.ProgramID,
		Group:     c.Group,
		Account:   c.Account,
		Banks:     c.Banks,
		Mints:     c.Mints,
	}
}

func (c *Composer) compose(ctx context.Context, opts ComposeOptions, p plan) (*ComposeResult, error) {
	payer := opts.Payer
	if payer.IsZero() {
		payer = c.Account.Authority
	}

	routes, err := c.candidateRoutes(ctx, opts, p)
	if err != nil {
		return nil, err
	}
	setupTxs, err := c.setupTransactions(ctx, opts, payer, p.banks)
	if err != nil {
		return nil, err
	}

	var attemptedSizes, attemptedCounts []int
	for _, route := range routes {
		body, err := p.buildBody(route)
		if err != nil {
			return nil, err
		}
		instructions, err := c.wrapEnvelope(opts, body)
		if err != nil {
			return nil, err
		}

		lookupTables := c.LookupTables
		if route != nil && len(route.LookupTables) > 0 {
			lookupTables = append(slices.Clone(c.LookupTables), route.LookupTables...)
		}
		transaction, err := tx.Compile(instructions, payer, opts.Blockhash, lookupTables)
		if err != nil {
			return nil, err
		}
		fits, size, accountKeys, err := tx.FitsLimits(transaction)
		if err != nil {
			return nil, err
		}
		if !fits {
			c.logger().Debug().
				Str("reason", string(p.reason)).
				Int("size", size).
				Int("accountKeys", accountKeys).
				Msg("flash loan candidate exceeds transaction limits")
			attemptedSizes = append(attemptedSizes, size)
			attemptedCounts = append(attemptedCounts, accountKeys)
			continue
		}

		return &ComposeResult{
			Transactions:  append(setupTxs, transaction),
			ActionTxIndex: len(setupTxs),
			Signers:       body.signers,
		}, nil
	}

	return nil, &ix.TransactionBuildingError{
		Reason:                 p.reason,
		Bank:                   p.bank,
		AttemptedSizes:         attemptedSizes,
		AttemptedAccountCounts: attemptedCounts,
	}
}

// candidateRoutes quotes the pair once per account bound. A failed quote
// drops that candidate; only a fully dry aggregator is an error.
func (c *Composer) candidateRoutes(ctx context.Context, opts ComposeOptions, p plan) ([]*jupiter.SwapRoute, error) {
	if p.sameMint {
		return []*jupiter.SwapRoute{nil}, nil
	}
	var routes []*jupiter.SwapRoute
	for _, maxAccounts := range swapAccountCandidates {
		route, err := c.Swap.GetSwapRoute(ctx, jupiter.QuoteRequest{
			InputMint:   p.inputMint,
			OutputMint:  p.outputMint,
			Amount:      p.amount,
			SlippageBps: opts.SlippageBps,
			SwapMode:    p.swapMode,
			MaxAccounts: maxAccounts,
		}, c.Account.Authority)
		if err != nil {
			c.logger().Warn().
				Err(err).
				Int("maxAccounts", maxAccounts).
				Msg("swap route candidate failed")
			continue
		}
		routes = append(routes, route)
	}
	if len(routes) == 0 {
		return nil, errors.Errorf("no swap route from %s to %s", p.inputMint, p.outputMint)
	}
	return routes, nil
}

// wrapEnvelope brackets the body with begin/end flash-loan. The end
// instruction's remaining accounts come from the projected post-action
// balance set, and its position in the final list is what the program
// verifies against the instructions sysvar.
func (c *Composer) wrapEnvelope(opts ComposeOptions, body *envelopeBody) ([]solana.Instruction, error) {
	projectedAccount, err := c.Account.ProjectBalances(c.Banks, body.projected)
	if err != nil {
		return nil, err
	}
	projectedBanks, err := ix.HealthCheckBanks(projectedAccount, c.Banks, nil, nil)
	if err != nil {
		return nil, err
	}

	unitLimit := opts.ComputeUnitLimit
	if unitLimit == 0 {
		unitLimit = defaultComputeUnitLimit
	}
	prelude := tx.ComputeBudgetInstructions(unitLimit, opts.PriorityFeeMicroLamports)

	builder := c.builder()
	endIndex := uint64(len(prelude) + 1 + len(body.instructions))
	begin, err := builder.BeginFlashloan(endIndex, ix.AccountOverrides{})
	if err != nil {
		return nil, err
	}
	end, err := builder.EndFlashloan(projectedBanks, ix.AccountOverrides{})
	if err != nil {
		return nil, err
	}

	instructions := make([]solana.Instruction, 0, len(prelude)+len(body.instructions)+2)
	instructions = append(instructions, prelude...)
	instructions = append(instructions, begin.Instructions...)
	instructions = append(instructions, body.instructions...)
	instructions = append(instructions, end.Instructions...)
	return instructions, nil
}

// setupTransactions hoists auxiliary work out of the flash-loan
// transaction: pull-oracle cranks when a crank client is wired, associated
// token account creation, and integration reserve/market refreshes.
func (c *Composer) setupTransactions(ctx context.Context, opts ComposeOptions, payer solana.PublicKey, banks []*core.Bank) ([]*solana.Transaction, error) {
	var transactions []*solana.Transaction

	if c.Crank != nil {
		clk := c.Clock
		if clk == nil {
			clk = clock.New()
		}
		feeds := crank.StaleFeeds(banks, c.Prices, clk)
		if len(feeds) > 0 {
			crankIxs, err := c.Crank.FetchUpdateInstructions(ctx, feeds, payer)
			if err != nil {
				return nil, errors.Wrap(err, "fetch oracle update instructions")
			}
			if len(crankIxs) > 0 {
				transaction, err := tx.Compile(crankIxs, payer, opts.Blockhash, c.LookupTables)
				if err != nil {
					return nil, err
				}
				transactions = append(transactions, transaction)
			}
		}
	}

	var setup []solana.Instruction
	for _, mint := range opts.CreateAtaMints {
		tokenProgram := solana.TokenProgramID
		if info, err := c.Mints.Get(mint); err == nil {
			tokenProgram = info.TokenProgram
		}
		setup = append(setup, ix.MakeCreateAtaInstruction(payer, c.Account.Authority, mint, tokenProgram))
	}
	refresh, err := crank.IntegrationRefreshInstructions(banks)
	if err != nil {
		return nil, err
	}
	setup = append(setup, refresh...)
	if len(setup) > 0 {
		transaction, err := tx.Compile(setup, payer, opts.Blockhash, c.LookupTables)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, transaction)
	}
	return transactions, nil
}
