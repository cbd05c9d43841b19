package core

import "github.com/pkg/errors"

var (
	ErrDivisionByZero   = errors.New("division by zero")
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrValueOutOfRange  = errors.New("value outside representable fixed-point range")
	ErrInvalidByteWidth = errors.New("fixed-point value must be 16 bytes")

	InvalidConfig            = errors.New("invalid bank config")
	ErrOptimalUr             = errors.New("optimal utilization rate out of (0, 1)")
	ErrPlateauIr             = errors.New("plateau interest rate must be positive")
	ErrMaxIr                 = errors.New("max interest rate must be positive")
	ErrPlateauGreaterThanMax = errors.New("plateau interest rate above max interest rate")
	ErrNegativeInterestRate  = errors.New("computed interest rate is negative")

	BankNotFound                  = errors.New("bank not found")
	MintNotFound                  = errors.New("mint not found")
	OraclePriceNotFound           = errors.New("oracle price not found")
	LendingAccountBalanceNotFound = errors.New("lending account balance not found")
	IllegalBalanceState           = errors.New("balance holds both assets and liabilities")
	NoFreeBalanceSlot             = errors.New("no free balance slot")
	BankAssetCapacityExceeded     = errors.New("bank deposit capacity exceeded")
	BankLiabilityCapacityExceeded = errors.New("bank borrow capacity exceeded")
	BankPaused                    = errors.New("bank is paused")
	BankReduceOnly                = errors.New("bank is reduce only")
	AccountDisabled               = errors.New("account is disabled")
	AccountInFlashloan            = errors.New("account is in a flashloan")
	IsolatedAccountIllegalState   = errors.New("isolated-tier liability must be the only liability")
	StaleOracle                   = errors.New("oracle price is stale")
)

// DataNotFoundError reports a missing entry in a caller-supplied snapshot map.
// It wraps one of the *NotFound sentinels so callers can match either way.
type DataNotFoundError struct {
	Kind string // "bank", "mint", "oracle", "balance"
	Key  string
	Err  error
}

func (e *DataNotFoundError) Error() string {
	return e.Kind + " " + e.Key + " not found in snapshot"
}

func (e *DataNotFoundError) Unwrap() error { return e.Err }

func NewBankNotFound(key string) *DataNotFoundError {
	return &DataNotFoundError{Kind: "bank", Key: key, Err: BankNotFound}
}

func NewMintNotFound(key string) *DataNotFoundError {
	return &DataNotFoundError{Kind: "mint", Key: key, Err: MintNotFound}
}

func NewOraclePriceNotFound(key string) *DataNotFoundError {
	return &DataNotFoundError{Kind: "oracle", Key: key, Err: OraclePriceNotFound}
}
