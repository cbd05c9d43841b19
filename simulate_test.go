package marginfi

import (
	"context"
	"testing"

	"github.com/facebookgo/clock"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0dotxyz/marginfi-go/core"
)

type fakeSimulator struct {
	raw []byte
	err error

	calls int
}

func (f *fakeSimulator) SimulatePostAccount(_ context.Context, _ []*solana.Transaction, _ solana.PublicKey) ([]byte, error) {
	f.calls++
	return f.raw, f.err
}

func testClient(t *testing.T) (*Client, *core.MarginfiAccount) {
	t.Helper()

	bank := &core.Bank{
		Address:             solana.NewWallet().PublicKey(),
		Mint:                solana.NewWallet().PublicKey(),
		MintDecimals:        6,
		AssetShareValue:     decimal.NewFromInt(1),
		LiabilityShareValue: decimal.NewFromInt(1),
		BankConfig: core.BankConfig{
			AssetWeightInit:      decimal.NewFromFloat(0.8),
			AssetWeightMaint:     decimal.NewFromFloat(0.9),
			LiabilityWeightInit:  decimal.NewFromFloat(1.2),
			LiabilityWeightMaint: decimal.NewFromFloat(1.1),
			OracleKeys:           []solana.PublicKey{solana.NewWallet().PublicKey()},
		},
	}

	account := &core.MarginfiAccount{
		Address:   solana.NewWallet().PublicKey(),
		Authority: solana.NewWallet().PublicKey(),
	}
	account.Balances[0] = core.Balance{
		Active:      true,
		BankPk:      bank.Address,
		AssetShares: decimal.NewFromInt(1000),
	}

	client := NewClient(nil, GetConfig(Staging), WithClock(clock.NewMock()))
	client.Banks = core.BankMap{bank.Address: bank}
	client.Prices = core.PriceMap{
		bank.Address: {
			Setup:      core.OracleSetupNone,
			Price:      decimal.NewFromInt(1),
			Confidence: decimal.NewFromFloat(0.01),
		},
	}
	client.Mints = core.MintMap{
		bank.Mint: {Mint: bank.Mint, TokenProgram: solana.TokenProgramID, Decimals: 6},
	}
	return client, account
}

func TestEvaluateSimulatedCache(t *testing.T) {
	populated := core.HealthCache{
		AssetValue:           decimal.NewFromInt(792),
		LiabilityValue:       decimal.NewFromInt(10),
		AssetValueMaint:      decimal.NewFromInt(891),
		LiabilityValueMaint:  decimal.NewFromInt(10),
		AssetValueEquity:     decimal.NewFromInt(1000),
		LiabilityValueEquity: decimal.NewFromInt(10),
	}

	tests := []struct {
		name     string
		mutate   func(*core.HealthCache)
		accepted bool
	}{
		{
			name:     "clean cache accepted",
			mutate:   func(hc *core.HealthCache) {},
			accepted: true,
		},
		{
			name: "tolerated stale code with all fields populated accepted",
			mutate: func(hc *core.HealthCache) {
				hc.InternalErrorCode = ToleratedInternalErrorCode
			},
			accepted: true,
		},
		{
			name: "tolerated stale code with a zero field rejected",
			mutate: func(hc *core.HealthCache) {
				hc.InternalErrorCode = ToleratedInternalErrorCode
				hc.AssetValueEquity = decimal.Zero
			},
			accepted: false,
		},
		{
			name: "other internal codes rejected even when populated",
			mutate: func(hc *core.HealthCache) {
				hc.InternalErrorCode = ToleratedInternalErrorCode + 1
			},
			accepted: false,
		},
		{
			name: "program error rejected",
			mutate: func(hc *core.HealthCache) {
				hc.ProgramErrorCode = 3009
			},
			accepted: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := populated
			tt.mutate(&cache)
			err := evaluateSimulatedCache(&cache)
			if tt.accepted {
				assert.Nil(t, err)
			} else {
				require.NotNil(t, err)
				assert.Equal(t, cache.InternalErrorCode, err.InternalErrorCode)
			}
		})
	}
}

func TestSimulateHealthCacheFallback(t *testing.T) {
	client, account := testClient(t)
	sim := &fakeSimulator{err: errors.New("rpc unavailable")}

	result, err := client.SimulateHealthCache(context.Background(), sim, SimulateParams{
		Account: account,
		Payer:   account.Authority,
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 1, sim.calls)

	assert.Equal(t, SimOutcomeFallback, result.Outcome)
	require.NotNil(t, result.FallbackErr)
	assert.Contains(t, result.FallbackErr.Error(), "rpc unavailable")

	cache := result.Account.HealthCache
	assert.True(t, cache.GetFlag(core.HealthCacheLocallyComputed))
	assert.True(t, cache.GetFlag(core.HealthCacheEngineOk))
	assert.True(t, cache.GetFlag(core.HealthCacheHealthy))

	// biased legacy values for Initial and Maintenance, unbiased for Equity
	assert.True(t, cache.AssetValue.Equal(decimal.NewFromInt(792)), "got %s", cache.AssetValue)
	assert.True(t, cache.AssetValueMaint.Equal(decimal.NewFromInt(891)), "got %s", cache.AssetValueMaint)
	assert.True(t, cache.AssetValueEquity.Equal(decimal.NewFromInt(1000)), "got %s", cache.AssetValueEquity)
	assert.True(t, cache.LiabilityValue.IsZero())

	// the source snapshot is not touched
	assert.False(t, account.HealthCache.GetFlag(core.HealthCacheLocallyComputed))
}

func TestSimulateHealthCacheUndecodableFallsBack(t *testing.T) {
	client, account := testClient(t)
	sim := &fakeSimulator{raw: []byte{1, 2, 3}}

	result, err := client.SimulateHealthCache(context.Background(), sim, SimulateParams{
		Account: account,
		Payer:   account.Authority,
	})
	require.NoError(t, err)
	assert.Equal(t, SimOutcomeFallback, result.Outcome)
	require.NotNil(t, result.FallbackErr)
}

func TestGetConfig(t *testing.T) {
	production := GetConfig(Production)
	staging := GetConfig(Staging)
	assert.NotEqual(t, production.ProgramID, staging.ProgramID)
	assert.Equal(t, production, GetConfig(Environment("unknown")))
}
