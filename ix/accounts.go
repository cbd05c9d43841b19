package ix

import (
	"slices"

	"github.com/gagliardetto/solana-go"

	"github.com/0dotxyz/marginfi-go/core"
)

// AccountOverrides lets an outer composer supply accounts the builder would
// otherwise derive. Zero-valued fields fall back to derivation. This is
// load-bearing for the flash-loan composer, which builds interior
// instructions with accounts already resolved in the outer context.
type AccountOverrides struct {
	Group           solana.PublicKey
	MarginfiAccount solana.PublicKey
	Authority       solana.PublicKey
	FeePayer        solana.PublicKey

	TokenAccount            solana.PublicKey
	LiquidityVault          solana.PublicKey
	LiquidityVaultAuthority solana.PublicKey
}

func pick(override, derived solana.PublicKey) solana.PublicKey {
	if !override.IsZero() {
		return override
	}
	return derived
}

// HealthCheckBanks resolves the bank set an on-chain health check must
// observe: the account's active balances in slot order, minus excluded
// banks, plus mandatory banks not already present. Mandatory additions are
// bounded by the account's free balance slots since the program would have
// nowhere to put them otherwise.
func HealthCheckBanks(
	account *core.MarginfiAccount,
	bankMap core.BankMap,
	mandatoryBanks []solana.PublicKey,
	excludedBanks []solana.PublicKey,
) ([]*core.Bank, error) {
	var banks []*core.Bank
	seen := make(map[solana.PublicKey]bool)

	for _, balance := range account.ActiveBalances() {
		if slices.Contains(excludedBanks, balance.BankPk) {
			continue
		}
		bank, err := bankMap.Get(balance.BankPk)
		if err != nil {
			return nil, err
		}
		banks = append(banks, bank)
		seen[balance.BankPk] = true
	}

	freeSlots := account.FreeBalanceSlots()
	for _, bankPk := range mandatoryBanks {
		if seen[bankPk] || slices.Contains(excludedBanks, bankPk) {
			continue
		}
		if freeSlots == 0 {
			return nil, NewBuildError(ReasonNoFreeBalanceSlot, bankPk)
		}
		bank, err := bankMap.Get(bankPk)
		if err != nil {
			return nil, err
		}
		banks = append(banks, bank)
		seen[bankPk] = true
		freeSlots--
	}

	return banks, nil
}

// HealthCheckMetas flattens a health-check bank list into the remaining
// accounts of a health-checked instruction: for each bank, the bank account
// followed by its oracle keys. Ordering matches the bank list exactly.
func HealthCheckMetas(banks []*core.Bank) solana.AccountMetaSlice {
	var metas solana.AccountMetaSlice
	for _, bank := range banks {
		metas = append(metas, solana.Meta(bank.Address))
		for _, oracle := range bank.OracleKeys {
			if oracle.IsZero() {
				continue
			}
			metas = append(metas, solana.Meta(oracle))
		}
	}
	return metas
}
