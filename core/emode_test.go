package core

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	emodeTagStable uint16 = 10
	emodeTagLst    uint16 = 20
)

// emodeFixture: collateral bank carries tag "lst"; liability bank grants an
// override for that tag.
func emodeFixture() (BankMap, *Bank, *Bank, *Bank) {
	collateral := testBank(0.65, 1.2)
	collateral.EmodeSettings = EmodeSettings{EmodeTag: emodeTagLst}

	liability := testBank(0.8, 1.2)
	liability.EmodeSettings = EmodeSettings{
		EmodeTag: emodeTagStable,
		Entries: []EmodeEntry{
			{
				CollateralBankEmodeTag: emodeTagLst,
				AssetWeightInit:        decimal.NewFromFloat(0.9),
				AssetWeightMaint:       decimal.NewFromFloat(0.95),
			},
		},
	}

	plain := testBank(0.7, 1.3)

	bm := BankMap{
		collateral.Address: collateral,
		liability.Address:  liability,
		plain.Address:      plain,
	}
	return bm, collateral, liability, plain
}

func TestComputeActiveEmodePairs(t *testing.T) {
	bm, collateral, liability, plain := emodeFixture()

	pairs, err := ComputeActiveEmodePairs(bm,
		[]solana.PublicKey{collateral.Address},
		[]solana.PublicKey{liability.Address},
	)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.True(t, pairs[0].CollateralBank.Equals(collateral.Address))
	assert.True(t, pairs[0].LiabilityBank.Equals(liability.Address))
	assert.True(t, pairs[0].Weights.AssetWeightInit.Equal(decimal.NewFromFloat(0.9)))

	// no pair when only one side is held
	pairs, err = ComputeActiveEmodePairs(bm, []solana.PublicKey{collateral.Address}, nil)
	require.NoError(t, err)
	assert.Empty(t, pairs)

	// no pair for a liability without entries
	pairs, err = ComputeActiveEmodePairs(bm,
		[]solana.PublicKey{collateral.Address},
		[]solana.PublicKey{plain.Address},
	)
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestEmodeWeightsForCollateralMostConservative(t *testing.T) {
	coll := solana.NewWallet().PublicKey()
	liabA := solana.NewWallet().PublicKey()
	liabB := solana.NewWallet().PublicKey()

	pairs := []EmodePair{
		{CollateralBank: coll, LiabilityBank: liabA, Weights: EmodeWeights{
			AssetWeightInit: decimal.NewFromFloat(0.9), AssetWeightMaint: decimal.NewFromFloat(0.95)}},
		{CollateralBank: coll, LiabilityBank: liabB, Weights: EmodeWeights{
			AssetWeightInit: decimal.NewFromFloat(0.85), AssetWeightMaint: decimal.NewFromFloat(0.92)}},
	}

	weights, ok := EmodeWeightsForCollateral(pairs, coll)
	require.True(t, ok)
	assert.True(t, weights.AssetWeightInit.Equal(decimal.NewFromFloat(0.85)))
	assert.True(t, weights.AssetWeightMaint.Equal(decimal.NewFromFloat(0.92)))

	_, ok = EmodeWeightsForCollateral(pairs, solana.NewWallet().PublicKey())
	assert.False(t, ok)
}

func TestEmodeOverrideMonotonic(t *testing.T) {
	bm, collateral, liability, _ := emodeFixture()

	pairs, err := ComputeActiveEmodePairs(bm,
		[]solana.PublicKey{collateral.Address},
		[]solana.PublicKey{liability.Address},
	)
	require.NoError(t, err)

	weights, ok := EmodeWeightsForCollateral(pairs, collateral.Address)
	require.True(t, ok)
	effective := collateral.WithEmodeWeights(weights)
	assert.True(t, effective.AssetWeightInit.GreaterThanOrEqual(collateral.AssetWeightInit))
	assert.True(t, effective.AssetWeightMaint.GreaterThanOrEqual(collateral.AssetWeightMaint))
}

func TestComputeEmodeImpacts(t *testing.T) {
	bm, collateral, liability, plain := emodeFixture()

	// nothing borrowed yet: borrowing the granting bank activates, a plain
	// bank changes nothing
	impacts, err := ComputeEmodeImpacts(bm,
		[]solana.PublicKey{collateral.Address},
		nil,
		[]solana.PublicKey{liability.Address, plain.Address},
	)
	require.NoError(t, err)
	assert.Equal(t, EmodeImpactActivate, impacts[liability.Address])
	assert.Equal(t, EmodeImpactUnchanged, impacts[plain.Address])

	// e-mode already active: adding a non-granting liability deactivates it
	impacts, err = ComputeEmodeImpacts(bm,
		[]solana.PublicKey{collateral.Address},
		[]solana.PublicKey{liability.Address},
		[]solana.PublicKey{plain.Address, liability.Address},
	)
	require.NoError(t, err)
	assert.Equal(t, EmodeImpactDeactivate, impacts[plain.Address])
	assert.Equal(t, EmodeImpactUnchanged, impacts[liability.Address])
}
