package core

import (
	"time"

	"github.com/facebookgo/clock"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// OraclePrice is one asset's realtime price with its confidence interval, as
// read from the feed identified by the bank's oracle setup.
type OraclePrice struct {
	OracleKey  solana.PublicKey `json:"oracleKey"`
	Setup      OracleSetup      `json:"setup"`
	Price      decimal.Decimal  `json:"price"`
	Confidence decimal.Decimal  `json:"confidence"`
	Timestamp  int64            `json:"timestamp"`
}

func NewFixedOraclePrice(price decimal.Decimal) *OraclePrice {
	return &OraclePrice{
		Setup:      OracleSetupFixed,
		Price:      price,
		Confidence: decimal.Zero,
	}
}

// GetPrice returns the biased price. In weighted mode the confidence is first
// widened by the oracle family's deviation constant, then capped at
// MAX_CONF_INTERVAL of price.
func (op *OraclePrice) GetPrice(bias PriceBias, weighted bool) decimal.Decimal {
	conf := op.EffectiveConfidence(weighted)
	switch bias {
	case Low:
		return op.Price.Sub(conf)
	case High:
		return op.Price.Add(conf)
	default:
		return op.Price
	}
}

func (op *OraclePrice) EffectiveConfidence(weighted bool) decimal.Decimal {
	conf := op.Confidence.Abs()
	if !weighted {
		return conf
	}
	conf = conf.Mul(op.deviationFactor())
	maxConf := op.Price.Mul(MAX_CONF_INTERVAL)
	if conf.GreaterThan(maxConf) {
		return maxConf
	}
	return conf
}

func (op *OraclePrice) deviationFactor() decimal.Decimal {
	switch op.Setup {
	case OracleSetupPythPush, OracleSetupPythPull:
		return PYTH_PRICE_CONF_INTERVALS
	case OracleSetupSwitchboardV2, OracleSetupSwitchboardPull:
		return SWB_PRICE_CONF_INTERVALS
	default:
		return ONE
	}
}

// IsStale reports whether the price is older than maxAge seconds. Fixed
// prices never go stale.
func (op *OraclePrice) IsStale(clk clock.Clock, maxAge int64) bool {
	if op.Setup == OracleSetupFixed || maxAge <= 0 {
		return false
	}
	return clk.Now().Sub(time.Unix(op.Timestamp, 0)) > time.Duration(maxAge)*time.Second
}

// PriceMap is a caller-supplied snapshot of oracle prices keyed by bank
// address. The core never fetches; a missing entry is surfaced as
// DataNotFoundError.
type PriceMap map[solana.PublicKey]*OraclePrice

func (pm PriceMap) Get(bank solana.PublicKey) (*OraclePrice, error) {
	op, ok := pm[bank]
	if !ok {
		return nil, NewOraclePriceNotFound(bank.String())
	}
	return op, nil
}
