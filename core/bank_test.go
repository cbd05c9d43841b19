package core

import (
	"math"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBank(assetWeightInit, liabilityWeightInit float64) *Bank {
	return &Bank{
		Address:              solana.NewWallet().PublicKey(),
		Mint:                 solana.NewWallet().PublicKey(),
		MintDecimals:         6,
		AssetShareValue:      ONE,
		LiabilityShareValue:  ONE,
		TotalAssetShares:     decimal.Zero,
		TotalLiabilityShares: decimal.Zero,
		BankConfig: BankConfig{
			AssetWeightInit:      decimal.NewFromFloat(assetWeightInit),
			AssetWeightMaint:     decimal.NewFromFloat(assetWeightInit + 0.1),
			LiabilityWeightInit:  decimal.NewFromFloat(liabilityWeightInit),
			LiabilityWeightMaint: decimal.Max(ONE, decimal.NewFromFloat(liabilityWeightInit-0.1)),
			DepositLimit:         decimal.NewFromInt(1_000_000),
			BorrowLimit:          decimal.NewFromInt(500_000),
			InterestRateConfig: InterestRateConfig{
				OptimalUtilizationRate: decimal.NewFromFloat(0.8),
				PlateauInterestRate:    decimal.NewFromFloat(0.1),
				MaxInterestRate:        decimal.NewFromFloat(3),
			},
			OperationalState: BankOperationalStateOperational,
		},
	}
}

func TestShareQuantityRoundTrip(t *testing.T) {
	bank := testBank(0.8, 1.2)
	bank.AssetShareValue = decimal.NewFromFloat(1.0461)
	bank.LiabilityShareValue = decimal.NewFromFloat(1.1397)

	quantity := decimal.NewFromFloat(123.456789)

	shares, err := bank.GetAssetShares(quantity)
	require.NoError(t, err)
	back := bank.GetAssetQuantity(shares)
	diff := back.Sub(quantity).Abs()
	assert.True(t, diff.LessThan(EMPTY_BALANCE_THRESHOLD), "round trip drift %s", diff)

	liabShares, err := bank.GetLiabilityShares(quantity)
	require.NoError(t, err)
	liabBack := bank.GetLiabilityQuantityRounded(liabShares)
	// owed amounts never round in the borrower's favor
	assert.True(t, liabBack.GreaterThanOrEqual(quantity.Sub(EMPTY_BALANCE_THRESHOLD)))
}

func TestInterestRateCurve(t *testing.T) {
	irc := InterestRateConfig{
		OptimalUtilizationRate: decimal.NewFromFloat(0.8),
		PlateauInterestRate:    decimal.NewFromFloat(0.1),
		MaxInterestRate:        decimal.NewFromFloat(3),
	}

	tests := []struct {
		name     string
		ur       float64
		expected float64
	}{
		{name: "zero utilization", ur: 0, expected: 0},
		{name: "below knee", ur: 0.4, expected: 0.05},
		{name: "at knee", ur: 0.8, expected: 0.1},
		{name: "above knee midpoint", ur: 0.9, expected: 1.55},
		{name: "full utilization", ur: 1, expected: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := irc.InterestRateCurve(decimal.NewFromFloat(tt.ur))
			assert.True(t, got.Equal(decimal.NewFromFloat(tt.expected)), "expected %v, got %s", tt.expected, got)
		})
	}
}

func TestCalcInterestRateRejectsNegative(t *testing.T) {
	irc := InterestRateConfig{
		OptimalUtilizationRate: decimal.NewFromFloat(0.8),
		PlateauInterestRate:    decimal.NewFromFloat(0.1),
		MaxInterestRate:        decimal.NewFromFloat(3),
		ProtocolFixedFeeApr:    decimal.NewFromFloat(-1),
	}
	_, _, _, _, err := irc.CalcInterestRate(decimal.NewFromFloat(0.5))
	assert.ErrorIs(t, err, ErrNegativeInterestRate)
}

func TestComputeRemainingCapacity(t *testing.T) {
	clk := clock.NewMock()
	clk.Add(1_000_000 * time.Second)

	bank := testBank(0.8, 1.2)
	bank.TotalAssetShares = decimal.NewFromInt(400_000)
	bank.TotalLiabilityShares = decimal.NewFromInt(100_000)
	bank.LastUpdate = clk.Now().Unix()

	depositCapacity, borrowCapacity := bank.ComputeRemainingCapacity(clk)
	assert.True(t, depositCapacity.Equal(decimal.NewFromInt(600_000)), "got %s", depositCapacity)
	assert.True(t, borrowCapacity.Equal(decimal.NewFromInt(400_000)), "got %s", borrowCapacity)

	// capacity never goes negative even when totals exceed limits
	bank.TotalAssetShares = decimal.NewFromInt(2_000_000)
	depositCapacity, _ = bank.ComputeRemainingCapacity(clk)
	assert.True(t, depositCapacity.Equal(decimal.Zero))
}

func TestGetAssetWeightSoftLimitDiscount(t *testing.T) {
	bank := testBank(0.8, 1.2)
	bank.TotalAssetShares = decimal.NewFromInt(1000)
	bank.BankConfig.TotalAssetValueInitLimit = decimal.NewFromInt(500)

	price := NewFixedOraclePrice(decimal.NewFromInt(1))

	// bank holds $1000 against a $500 soft limit: weight scales by 0.5
	weight := bank.GetAssetWeight(Initial, price, false)
	assert.True(t, weight.Equal(decimal.NewFromFloat(0.4)), "got %s", weight)

	// ignoring soft limits restores the configured weight
	weight = bank.GetAssetWeight(Initial, price, true)
	assert.True(t, weight.Equal(decimal.NewFromFloat(0.8)))
}

func TestWithEmodeWeightsNeverLowers(t *testing.T) {
	bank := testBank(0.8, 1.2)

	lifted := bank.WithEmodeWeights(EmodeWeights{
		AssetWeightInit:  decimal.NewFromFloat(0.9),
		AssetWeightMaint: decimal.NewFromFloat(0.95),
	})
	assert.True(t, lifted.AssetWeightInit.Equal(decimal.NewFromFloat(0.9)))

	// an override below the base weight is ignored
	kept := bank.WithEmodeWeights(EmodeWeights{
		AssetWeightInit:  decimal.NewFromFloat(0.5),
		AssetWeightMaint: decimal.NewFromFloat(0.5),
	})
	assert.True(t, kept.AssetWeightInit.Equal(bank.AssetWeightInit))
	assert.True(t, kept.AssetWeightMaint.Equal(bank.AssetWeightMaint))

	// source bank untouched
	assert.True(t, bank.AssetWeightInit.Equal(decimal.NewFromFloat(0.8)))
}

func TestBankConfigValidate(t *testing.T) {
	bank := testBank(0.8, 1.2)
	assert.NoError(t, bank.BankConfig.Validate())

	bad := bank.BankConfig
	bad.LiabilityWeightInit = decimal.NewFromFloat(0.9)
	assert.ErrorIs(t, bad.Validate(), InvalidConfig)

	bad = bank.BankConfig
	bad.AssetWeightMaint = decimal.NewFromFloat(0.1)
	assert.ErrorIs(t, bad.Validate(), InvalidConfig)
}

func TestAssertOperationalMode(t *testing.T) {
	bank := testBank(0.8, 1.2)

	bank.OperationalState = BankOperationalStatePaused
	assert.ErrorIs(t, bank.AssertOperationalMode(true), BankPaused)

	bank.OperationalState = BankOperationalStateReduceOnly
	assert.ErrorIs(t, bank.AssertOperationalMode(true), BankReduceOnly)
	assert.NoError(t, bank.AssertOperationalMode(false))
}

func TestBankMapGet(t *testing.T) {
	bank := testBank(0.8, 1.2)
	bm := BankMap{bank.Address: bank}

	got, err := bm.Get(bank.Address)
	assert.NoError(t, err)
	assert.Equal(t, bank, got)

	_, err = bm.Get(solana.NewWallet().PublicKey())
	var notFound *DataNotFoundError
	assert.ErrorAs(t, err, &notFound)
	assert.ErrorIs(t, err, BankNotFound)
}

func TestInactiveLimitsSkipInterestProjection(t *testing.T) {
	clk := clock.NewMock()
	clk.Add(1_000_000 * time.Second)

	bank := testBank(0.8, 1.2)
	bank.TotalAssetShares = decimal.NewFromInt(400_000)
	bank.TotalLiabilityShares = decimal.NewFromInt(100_000)
	bank.LastUpdate = clk.Now().Unix() - 3600

	assert.True(t, bank.IsDepositLimitActive())
	assert.True(t, bank.IsBorrowLimitActive())

	// u64::MAX is the program's no-limit sentinel, held ui-scaled
	sentinel := NativeToUi(math.MaxUint64, bank.MintDecimals)
	bank.BankConfig.DepositLimit = sentinel
	bank.BankConfig.BorrowLimit = sentinel
	assert.False(t, bank.IsDepositLimitActive())
	assert.False(t, bank.IsBorrowLimitActive())

	depositCapacity, borrowCapacity := bank.ComputeRemainingCapacity(clk)
	assert.True(t, depositCapacity.Equal(sentinel.Sub(decimal.NewFromInt(400_000))), "got %s", depositCapacity)
	assert.True(t, borrowCapacity.Equal(sentinel.Sub(decimal.NewFromInt(100_000))), "got %s", borrowCapacity)
}
