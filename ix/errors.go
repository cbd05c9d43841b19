package ix

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

type BuildErrorReason string

const (
	ReasonKaminoReserveNotFound BuildErrorReason = "kamino-reserve-not-found"
	ReasonDriftStateNotFound    BuildErrorReason = "drift-state-not-found"
	ReasonSolendReserveNotFound BuildErrorReason = "solend-reserve-not-found"
	ReasonSwapSizeExceededLoop  BuildErrorReason = "swap-size-exceeded-for-loop"
	ReasonSwapSizeExceededRepay BuildErrorReason = "swap-size-exceeded-for-repay"
	ReasonSwapSizeExceededSwap  BuildErrorReason = "swap-size-exceeded-for-swap"
	ReasonNoFreeBalanceSlot     BuildErrorReason = "no-free-balance-slot"
)

// TransactionBuildingError reports why an instruction or composite
// transaction could not be assembled. Reason is machine-checkable;
// AttemptedSizes/AttemptedAccountCounts carry the measurements of every
// candidate that was tried so the failure can be diagnosed without
// re-deriving.
type TransactionBuildingError struct {
	Reason BuildErrorReason
	Bank   solana.PublicKey

	AttemptedSizes         []int
	AttemptedAccountCounts []int
}

func (e *TransactionBuildingError) Error() string {
	if len(e.AttemptedSizes) > 0 {
		return fmt.Sprintf("transaction building failed: %s (bank %s, sizes %v, account counts %v)",
			e.Reason, e.Bank, e.AttemptedSizes, e.AttemptedAccountCounts)
	}
	return fmt.Sprintf("transaction building failed: %s (bank %s)", e.Reason, e.Bank)
}

func NewBuildError(reason BuildErrorReason, bank solana.PublicKey) *TransactionBuildingError {
	return &TransactionBuildingError{Reason: reason, Bank: bank}
}
