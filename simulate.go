package marginfi

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/pkg/errors"

	"github.com/0dotxyz/marginfi-go/core"
	"github.com/0dotxyz/marginfi-go/crank"
	"github.com/0dotxyz/marginfi-go/ix"
	"github.com/0dotxyz/marginfi-go/tx"
)

// ToleratedInternalErrorCode is the engine's stale-oracle code. A simulated
// cache carrying this code is still accepted when every regime value is
// populated: the engine computed a full picture from prices it merely
// considers old. No other code gets this treatment.
const ToleratedInternalErrorCode uint32 = 6049

const simComputeUnitLimit = 1_400_000

type SimOutcome int

const (
	// SimOutcomeSimulated: the cache came from an on-chain simulation.
	SimOutcomeSimulated SimOutcome = iota
	// SimOutcomeFallback: simulation failed; the cache was computed
	// locally and FallbackErr holds the reason.
	SimOutcomeFallback
)

// SimResult is the two-branch outcome of a health-cache refresh. Callers
// must branch on Outcome: a fallback cache is best-effort, not a verified
// on-chain result.
type SimResult struct {
	Account     *core.MarginfiAccount
	Outcome     SimOutcome
	FallbackErr *HealthCacheSimulationError
}

// Simulator is the simulate-bundle boundary: run the transactions against
// one prior state without committing, and return the post-execution bytes
// of the requested account from the final transaction.
type Simulator interface {
	SimulatePostAccount(ctx context.Context, transactions []*solana.Transaction, readAccount solana.PublicKey) ([]byte, error)
}

type rpcSimulator struct {
	connection *rpc.Client
}

func NewRPCSimulator(connection *rpc.Client) Simulator {
	return &rpcSimulator{connection: connection}
}

// SimulatePostAccount simulates only the final transaction; the plain RPC
// simulate endpoint cannot chain state across a bundle, and the setup
// transactions are cranks whose absence degrades freshness, not validity.
func (s *rpcSimulator) SimulatePostAccount(ctx context.Context, transactions []*solana.Transaction, readAccount solana.PublicKey) ([]byte, error) {
	if len(transactions) == 0 {
		return nil, errors.New("empty simulation bundle")
	}
	last := transactions[len(transactions)-1]
	out, err := s.connection.SimulateTransactionWithOpts(ctx, last, &rpc.SimulateTransactionOpts{
		ReplaceRecentBlockhash: true,
		Accounts: &rpc.SimulateTransactionAccountsOpts{
			Encoding:  solana.EncodingBase64,
			Addresses: []solana.PublicKey{readAccount},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "simulate transaction")
	}
	if out.Value == nil {
		return nil, errors.New("simulation returned no result")
	}
	if out.Value.Err != nil {
		return nil, errors.Errorf("simulated transaction failed: %v", out.Value.Err)
	}
	if len(out.Value.Accounts) == 0 || out.Value.Accounts[0] == nil {
		return nil, errors.New("simulation returned no account snapshot")
	}
	return out.Value.Accounts[0].Data.GetBinary(), nil
}

// SimulateParams configures one health-cache refresh.
type SimulateParams struct {
	Account *core.MarginfiAccount
	Payer   solana.PublicKey

	Blockhash solana.Hash

	MandatoryBanks []solana.PublicKey
	ExcludedBanks  []solana.PublicKey

	// Crank, when set, contributes an oracle-update transaction for stale
	// pull feeds among the account's banks.
	Crank *crank.Client
}

// SimulateHealthCache refreshes the account's health cache via a
// simulate-only transaction bundle: integration refreshes, an oracle crank
// for stale pull feeds, then the health-pulse instruction. On any failure
// it falls back to the local legacy computation, tags the cache as locally
// computed, and reports the failure alongside the fallback account. The
// chain is never written to.
func (c *Client) SimulateHealthCache(ctx context.Context, sim Simulator, params SimulateParams) (*SimResult, error) {
	builder := c.Builder(params.Account)

	healthBanks, err := ix.HealthCheckBanks(params.Account, c.Banks, params.MandatoryBanks, params.ExcludedBanks)
	if err != nil {
		return nil, err
	}

	transactions, err := c.buildSimulationBundle(ctx, builder, healthBanks, params)
	if err != nil {
		return nil, err
	}

	raw, simErr := sim.SimulatePostAccount(ctx, transactions, params.Account.Address)
	if simErr == nil {
		simulated, decodeErr := core.DecodeMarginfiAccount(params.Account.Address, raw)
		if decodeErr != nil {
			simErr = decodeErr
		} else if acceptErr := evaluateSimulatedCache(&simulated.HealthCache); acceptErr == nil {
			return &SimResult{Account: simulated, Outcome: SimOutcomeSimulated}, nil
		} else {
			simErr = acceptErr
		}
	}

	fallbackAccount, err := c.fallbackHealthCache(params.Account)
	if err != nil {
		return nil, err
	}
	c.log.Warn().Err(simErr).Msg("health cache simulation failed, using local computation")
	return &SimResult{
		Account:     fallbackAccount,
		Outcome:     SimOutcomeFallback,
		FallbackErr: asSimulationError(simErr),
	}, nil
}

func (c *Client) buildSimulationBundle(
	ctx context.Context,
	builder *ix.Builder,
	healthBanks []*core.Bank,
	params SimulateParams,
) ([]*solana.Transaction, error) {
	var transactions []*solana.Transaction

	setupIxs := tx.ComputeBudgetInstructions(simComputeUnitLimit, 0)
	refreshIxs, err := crank.IntegrationRefreshInstructions(healthBanks)
	if err != nil {
		return nil, err
	}
	setupIxs = append(setupIxs, refreshIxs...)
	setupTx, err := tx.Compile(setupIxs, params.Payer, params.Blockhash, c.LookupTables)
	if err != nil {
		return nil, err
	}
	transactions = append(transactions, setupTx)

	if params.Crank != nil {
		staleFeeds := crank.StaleFeeds(healthBanks, c.Prices, c.clk)
		if len(staleFeeds) > 0 {
			crankIxs, err := params.Crank.FetchUpdateInstructions(ctx, staleFeeds, params.Payer)
			if err != nil {
				return nil, err
			}
			if len(crankIxs) > 0 {
				crankTx, err := tx.Compile(crankIxs, params.Payer, params.Blockhash, c.LookupTables)
				if err != nil {
					return nil, err
				}
				transactions = append(transactions, crankTx)
			}
		}
	}

	pulse, err := builder.PulseHealth(params.MandatoryBanks, params.ExcludedBanks, ix.AccountOverrides{})
	if err != nil {
		return nil, err
	}
	pulseTx, err := tx.Compile(pulse.Instructions, params.Payer, params.Blockhash, c.LookupTables)
	if err != nil {
		return nil, err
	}
	transactions = append(transactions, pulseTx)

	return transactions, nil
}

// fallbackHealthCache recomputes the cache locally: biased legacy values for
// Initial and Maintenance, unbiased for Equity.
func (c *Client) fallbackHealthCache(account *core.MarginfiAccount) (*core.MarginfiAccount, error) {
	engine := core.NewRiskEngineNoFlashloanCheck(account, c.Banks, c.Prices)

	assetsInit, liabsInit, err := engine.ComputeHealthComponentsLegacy(core.Initial, nil)
	if err != nil {
		return nil, err
	}
	assetsMaint, liabsMaint, err := engine.ComputeHealthComponentsLegacy(core.Maintenance, nil)
	if err != nil {
		return nil, err
	}
	assetsEquity, liabsEquity, err := engine.ComputeHealthComponentsLegacyWithoutBias(core.Equity, nil)
	if err != nil {
		return nil, err
	}

	flags := core.HealthCacheEngineOk | core.HealthCacheLocallyComputed
	if assetsMaint.GreaterThanOrEqual(liabsMaint) {
		flags |= core.HealthCacheHealthy
	}
	return account.SetHealthCache(core.HealthCache{
		AssetValue:           assetsInit,
		LiabilityValue:       liabsInit,
		AssetValueMaint:      assetsMaint,
		LiabilityValueMaint:  liabsMaint,
		AssetValueEquity:     assetsEquity,
		LiabilityValueEquity: liabsEquity,
		Timestamp:            c.clk.Now().Unix(),
		Flags:                flags,
	}), nil
}

// evaluateSimulatedCache decides whether a simulated cache is acceptable.
// A clean cache always is. The stale-oracle code with every regime value
// populated is a benign partial failure and is also accepted; this
// tolerance is intentionally not generalized to other codes.
func evaluateSimulatedCache(cache *core.HealthCache) *HealthCacheSimulationError {
	if cache.InternalErrorCode == 0 && cache.ProgramErrorCode == 0 {
		return nil
	}
	if cache.InternalErrorCode == ToleratedInternalErrorCode && cache.AllComponentsPopulated() {
		return nil
	}
	return &HealthCacheSimulationError{
		ProgramErrorCode:  cache.ProgramErrorCode,
		InternalErrorCode: cache.InternalErrorCode,
		ErrorIndex:        cache.ErrorIndex,
	}
}

func asSimulationError(err error) *HealthCacheSimulationError {
	if err == nil {
		return nil
	}
	if simErr, ok := err.(*HealthCacheSimulationError); ok {
		return simErr
	}
	return &HealthCacheSimulationError{Message: err.Error()}
}
