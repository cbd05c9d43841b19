// Package tx compiles instruction lists into versioned transactions and
// measures them against the protocol's hard ceilings.
package tx

import (
	"github.com/gagliardetto/solana-go"
	addresslookuptable "github.com/gagliardetto/solana-go/programs/address-lookup-table"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/pkg/errors"
)

const (
	// Serialized transaction byte ceiling (packet size minus header).
	MaxTransactionSize = 1232

	// Total account keys per transaction, static and lookup-resolved.
	MaxAccountKeys = 64
)

// Compile assembles a versioned transaction from instructions, a payer, a
// blockhash, and the lookup tables the message may compress addresses
// through. It does not sign.
func Compile(
	instructions []solana.Instruction,
	payer solana.PublicKey,
	blockhash solana.Hash,
	lookupTables []addresslookuptable.KeyedAddressLookupTable,
) (*solana.Transaction, error) {
	addressTables := make(map[solana.PublicKey]solana.PublicKeySlice)
	for _, table := range lookupTables {
		addressTables[table.Key] = table.State.Addresses
	}
	transaction, err := solana.NewTransaction(
		instructions,
		blockhash,
		solana.TransactionPayer(payer),
		solana.TransactionAddressTables(addressTables),
	)
	if err != nil {
		return nil, errors.Wrap(err, "compile transaction")
	}
	return transaction, nil
}

// Measure reports a compiled transaction's serialized byte size and total
// unique account-key count (static keys plus lookup-table references).
func Measure(transaction *solana.Transaction) (size int, accountKeys int, err error) {
	raw, err := transaction.MarshalBinary()
	if err != nil {
		return 0, 0, errors.Wrap(err, "serialize transaction")
	}
	accountKeys = len(transaction.Message.AccountKeys)
	for _, lookup := range transaction.Message.AddressTableLookups {
		accountKeys += len(lookup.WritableIndexes) + len(lookup.ReadonlyIndexes)
	}
	return len(raw), accountKeys, nil
}

// FitsLimits reports whether a compiled transaction respects both protocol
// ceilings.
func FitsLimits(transaction *solana.Transaction) (bool, int, int, error) {
	size, accountKeys, err := Measure(transaction)
	if err != nil {
		return false, 0, 0, err
	}
	return size <= MaxTransactionSize && accountKeys <= MaxAccountKeys, size, accountKeys, nil
}

// ComputeBudgetInstructions builds the compute-budget prelude: a unit limit
// and, when priceMicroLamports is nonzero, a priority-fee price.
func ComputeBudgetInstructions(unitLimit uint32, priceMicroLamports uint64) []solana.Instruction {
	instructions := []solana.Instruction{
		computebudget.NewSetComputeUnitLimitInstruction(unitLimit).Build(),
	}
	if priceMicroLamports > 0 {
		instructions = append(instructions,
			computebudget.NewSetComputeUnitPriceInstruction(priceMicroLamports).Build())
	}
	return instructions
}
