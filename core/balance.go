package core

import (
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// Balance is one slot of a lending account: a position in a single bank.
// Slots are fixed-capacity; an inactive slot is all-zero with Active false.
type Balance struct {
	Active   bool             `json:"active"`
	BankPk   solana.PublicKey `json:"bankPk"`
	BankTag  AssetTag         `json:"bankTag"`

	AssetShares     decimal.Decimal `json:"assetShares"`
	LiabilityShares decimal.Decimal `json:"liabilityShares"`

	EmissionsOutstanding decimal.Decimal `json:"emissionsOutstanding"`
	LastUpdate           int64           `json:"lastUpdate"`
}

func NewEmptyBalance() Balance {
	return Balance{
		Active:               false,
		AssetShares:          decimal.Zero,
		LiabilityShares:      decimal.Zero,
		EmissionsOutstanding: decimal.Zero,
	}
}

func (b *Balance) IsEmpty(side BalanceSide) bool {
	switch side {
	case BalanceSideAssets:
		return b.AssetShares.LessThan(EMPTY_BALANCE_THRESHOLD)
	case BalanceSideLiabilities:
		return b.LiabilityShares.LessThan(EMPTY_BALANCE_THRESHOLD)
	default:
		return true
	}
}

// GetSide classifies the slot. A slot carrying both assets and liabilities is
// a data-integrity violation and surfaces IllegalBalanceState.
func (b *Balance) GetSide() (BalanceSide, error) {
	if b.AssetShares.GreaterThan(ZERO_AMOUNT_THRESHOLD) && b.LiabilityShares.GreaterThan(ZERO_AMOUNT_THRESHOLD) {
		return BalanceSideEmpty, IllegalBalanceState
	}

	if b.AssetShares.GreaterThanOrEqual(EMPTY_BALANCE_THRESHOLD) {
		return BalanceSideAssets, nil
	}
	if b.LiabilityShares.GreaterThanOrEqual(EMPTY_BALANCE_THRESHOLD) {
		return BalanceSideLiabilities, nil
	}
	return BalanceSideEmpty, nil
}

func (b *Balance) ComputeQuantity(bank *Bank) (assets decimal.Decimal, liabilities decimal.Decimal) {
	return bank.GetAssetQuantity(b.AssetShares), bank.GetLiabilityQuantity(b.LiabilityShares)
}

// ComputeUsdValue values the slot with no bias, used for Equity accounting.
func (b *Balance) ComputeUsdValue(bank *Bank, oraclePrice *OraclePrice, requirementType RequirementType) (decimal.Decimal, decimal.Decimal) {
	assetsValue := bank.ComputeAssetUsdValue(oraclePrice, b.AssetShares, requirementType, None)
	liabilitiesValue := bank.ComputeLiabilityUsdValue(oraclePrice, b.LiabilityShares, requirementType, None)
	return assetsValue, liabilitiesValue
}

// GetUsdValueWithPriceBias values the slot with the conservative double-sided
// bias: assets at the low price, liabilities at the high price.
func (b *Balance) GetUsdValueWithPriceBias(bank *Bank, oraclePrice *OraclePrice, requirementType RequirementType) (decimal.Decimal, decimal.Decimal) {
	assetsValue := bank.ComputeAssetUsdValue(oraclePrice, b.AssetShares, requirementType, Low)
	liabilitiesValue := bank.ComputeLiabilityUsdValue(oraclePrice, b.LiabilityShares, requirementType, High)
	return assetsValue, liabilitiesValue
}

// WithAssetShares and WithLiabilityShares produce adjusted copies for
// projections; a balance is never mutated in place.
func (b Balance) WithAssetShares(shares decimal.Decimal) Balance {
	b.AssetShares = shares
	b.Active = shares.GreaterThanOrEqual(EMPTY_BALANCE_THRESHOLD) || b.LiabilityShares.GreaterThanOrEqual(EMPTY_BALANCE_THRESHOLD)
	return b
}

func (b Balance) WithLiabilityShares(shares decimal.Decimal) Balance {
	b.LiabilityShares = shares
	b.Active = shares.GreaterThanOrEqual(EMPTY_BALANCE_THRESHOLD) || b.AssetShares.GreaterThanOrEqual(EMPTY_BALANCE_THRESHOLD)
	return b
}
