package core

import (
	"github.com/shopspring/decimal"
)

type HealthCacheFlags uint32

const (
	HealthCacheHealthy HealthCacheFlags = 1 << 0
	HealthCacheEngineOk HealthCacheFlags = 1 << 1
	HealthCacheOracleOk HealthCacheFlags = 1 << 2

	// Set by the client when the cache was produced by the local legacy
	// computation rather than an on-chain simulation. Never set on-chain.
	HealthCacheLocallyComputed HealthCacheFlags = 1 << 16
)

// HealthCache is the cached risk snapshot for an account: weighted USD asset
// and liability values under each requirement type, plus the prices used and
// error state from the engine that produced it.
type HealthCache struct {
	AssetValue     decimal.Decimal `json:"assetValue"`
	LiabilityValue decimal.Decimal `json:"liabilityValue"`

	AssetValueMaint     decimal.Decimal `json:"assetValueMaint"`
	LiabilityValueMaint decimal.Decimal `json:"liabilityValueMaint"`

	AssetValueEquity     decimal.Decimal `json:"assetValueEquity"`
	LiabilityValueEquity decimal.Decimal `json:"liabilityValueEquity"`

	Timestamp int64            `json:"timestamp"`
	Flags     HealthCacheFlags `json:"flags"`

	Prices []decimal.Decimal `json:"prices,omitempty"`

	ProgramErrorCode  uint32 `json:"programErrorCode"`
	InternalErrorCode uint32 `json:"internalErrorCode"`
	ErrorIndex        uint8  `json:"errorIndex"`
}

func (hc *HealthCache) GetFlag(flag HealthCacheFlags) bool {
	return hc.Flags&flag == flag
}

// Usable reports whether risk-gating logic may rely on the cached values.
// A cache carrying an internal error must not be treated as authoritative.
func (hc *HealthCache) Usable() bool {
	return hc.GetFlag(HealthCacheEngineOk) && hc.InternalErrorCode == 0
}

// ComponentsFor returns the cached asset/liability USD totals for a
// requirement type.
func (hc *HealthCache) ComponentsFor(requirementType RequirementType) (decimal.Decimal, decimal.Decimal) {
	switch requirementType {
	case Initial:
		return hc.AssetValue, hc.LiabilityValue
	case Maintenance:
		return hc.AssetValueMaint, hc.LiabilityValueMaint
	case Equity:
		return hc.AssetValueEquity, hc.LiabilityValueEquity
	default:
		return decimal.Zero, decimal.Zero
	}
}

// AllComponentsPopulated reports whether all six regime values are nonzero.
// Used by the simulation orchestrator's narrow stale-price tolerance.
func (hc *HealthCache) AllComponentsPopulated() bool {
	return !hc.AssetValue.IsZero() && !hc.LiabilityValue.IsZero() &&
		!hc.AssetValueMaint.IsZero() && !hc.LiabilityValueMaint.IsZero() &&
		!hc.AssetValueEquity.IsZero() && !hc.LiabilityValueEquity.IsZero()
}
