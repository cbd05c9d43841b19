package crank

import (
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0dotxyz/marginfi-go/core"
)

func pullBank(maxAge int64) *core.Bank {
	return &core.Bank{
		Address: solana.NewWallet().PublicKey(),
		BankConfig: core.BankConfig{
			OracleSetup:  core.OracleSetupSwitchboardPull,
			OracleKeys:   []solana.PublicKey{solana.NewWallet().PublicKey()},
			OracleMaxAge: maxAge,
		},
	}
}

func TestStaleFeeds(t *testing.T) {
	clk := clock.NewMock()
	clk.Add(1_000_000 * time.Second)

	staleBank := pullBank(60)
	freshBank := pullBank(60)
	pushBank := &core.Bank{
		Address: solana.NewWallet().PublicKey(),
		BankConfig: core.BankConfig{
			OracleSetup:  core.OracleSetupPythPush,
			OracleKeys:   []solana.PublicKey{solana.NewWallet().PublicKey()},
			OracleMaxAge: 60,
		},
	}

	prices := core.PriceMap{
		staleBank.Address: {
			Price:     decimal.NewFromInt(1),
			Timestamp: clk.Now().Unix() - 120,
		},
		freshBank.Address: {
			Price:     decimal.NewFromInt(1),
			Timestamp: clk.Now().Unix() - 10,
		},
		pushBank.Address: {
			Price:     decimal.NewFromInt(1),
			Timestamp: clk.Now().Unix() - 120,
		},
	}

	feeds := StaleFeeds([]*core.Bank{staleBank, freshBank, pushBank}, prices, clk)
	require.Len(t, feeds, 1)
	assert.Equal(t, staleBank.OracleKeys[0], feeds[0])
}

func TestStaleFeedsMissingPriceCounts(t *testing.T) {
	clk := clock.NewMock()
	bank := pullBank(60)

	feeds := StaleFeeds([]*core.Bank{bank}, core.PriceMap{}, clk)
	require.Len(t, feeds, 1)
	assert.Equal(t, bank.OracleKeys[0], feeds[0])
}

func TestIntegrationRefreshInstructions(t *testing.T) {
	kaminoBank := &core.Bank{
		Address: solana.NewWallet().PublicKey(),
		BankConfig: core.BankConfig{
			AssetTag:   core.AssetTagKamino,
			OracleKeys: []solana.PublicKey{solana.NewWallet().PublicKey()},
		},
		Integration: &core.IntegrationAccounts{
			KaminoReserve:       solana.NewWallet().PublicKey(),
			KaminoLendingMarket: solana.NewWallet().PublicKey(),
		},
	}
	defaultBank := &core.Bank{
		Address:    solana.NewWallet().PublicKey(),
		BankConfig: core.BankConfig{AssetTag: core.AssetTagDefault},
	}

	instructions, err := IntegrationRefreshInstructions([]*core.Bank{kaminoBank, defaultBank})
	require.NoError(t, err)
	require.Len(t, instructions, 1)
	accounts := instructions[0].Accounts()
	assert.Equal(t, kaminoBank.Integration.KaminoReserve, accounts[0].PublicKey)
}

func TestIntegrationRefreshMissingStateFails(t *testing.T) {
	driftBank := &core.Bank{
		Address:    solana.NewWallet().PublicKey(),
		BankConfig: core.BankConfig{AssetTag: core.AssetTagDrift},
	}
	_, err := IntegrationRefreshInstructions([]*core.Bank{driftBank})
	require.Error(t, err)
}
