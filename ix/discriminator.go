package ix

import (
	"crypto/sha256"
	"fmt"
)

const DISCRIMINATOR_SIZE = 8

// Instruction names as they appear in the program IDL. The sighash of
// "global:<name>" must match the program byte-for-byte or the instruction
// is rejected.
const (
	IxLendingAccountDeposit           = "lending_account_deposit"
	IxLendingAccountWithdraw          = "lending_account_withdraw"
	IxLendingAccountBorrow            = "lending_account_borrow"
	IxLendingAccountRepay             = "lending_account_repay"
	IxLendingAccountStartFlashloan    = "lending_account_start_flashloan"
	IxLendingAccountEndFlashloan      = "lending_account_end_flashloan"
	IxLendingAccountWithdrawEmissions = "lending_account_withdraw_emissions"
	IxLendingAccountPulseHealth       = "lending_account_pulse_health"
	IxMarginfiAccountInitialize       = "marginfi_account_initialize"
	IxMarginfiAccountClose            = "marginfi_account_close"
)

// InstructionDiscriminator returns the 8-byte anchor sighash for a global
// instruction name.
func InstructionDiscriminator(name string) []byte {
	hash := sha256.Sum256([]byte(fmt.Sprintf("global:%s", name)))
	return hash[:DISCRIMINATOR_SIZE]
}
