package core

import (
	"github.com/shopspring/decimal"
)

const (
	SECONDS_PER_YEAR = 31_536_000
	HOURS_PER_YEAR   = 365.25 * 24

	// Fixed number of balance slots on a lending account. Slot order is
	// protocol-visible: health-check account lists walk slots in order.
	MAX_BALANCE_SLOTS = 16
)

var (
	ONE = decimal.NewFromInt(1)

	ZERO_AMOUNT_THRESHOLD   = decimal.Zero
	EMPTY_BALANCE_THRESHOLD = decimal.NewFromFloat(0.00000001)

	// Confidence-band widening per oracle family in weighted mode.
	PYTH_PRICE_CONF_INTERVALS = decimal.NewFromFloat(2.12)
	SWB_PRICE_CONF_INTERVALS  = decimal.NewFromFloat(1.96)

	// Cap on confidence as a fraction of price, so a single wild
	// attestation cannot zero out a position's value.
	MAX_CONF_INTERVAL = decimal.NewFromFloat(0.05)
)
