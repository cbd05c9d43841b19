package core

import (
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// MarginfiAccount is an immutable snapshot of a user's lending account.
// Projections for hypothetical instruction sequences are produced as new
// values; the only sanctioned mutation entry point is SetHealthCache, which
// also returns a new snapshot.
type MarginfiAccount struct {
	Address   solana.PublicKey `json:"address"`
	Group     solana.PublicKey `json:"group"`
	Authority solana.PublicKey `json:"authority"`

	Balances [MAX_BALANCE_SLOTS]Balance `json:"balances"`

	AccountFlags AccountFlags `json:"accountFlags"`

	EmissionsDestination solana.PublicKey `json:"emissionsDestination"`

	HealthCache HealthCache `json:"healthCache"`
}

func (a *MarginfiAccount) GetFlag(flag AccountFlags) bool {
	return a.AccountFlags&flag != 0
}

// ActiveBalances returns the active slots in slot order. Slot order is
// protocol-visible and must be preserved.
func (a *MarginfiAccount) ActiveBalances() []Balance {
	var active []Balance
	for _, balance := range a.Balances {
		if balance.Active {
			active = append(active, balance)
		}
	}
	return active
}

func (a *MarginfiAccount) GetBalance(bankPk solana.PublicKey) (Balance, bool) {
	for _, balance := range a.Balances {
		if balance.Active && balance.BankPk.Equals(bankPk) {
			return balance, true
		}
	}
	return NewEmptyBalance(), false
}

func (a *MarginfiAccount) FreeBalanceSlots() int {
	free := 0
	for _, balance := range a.Balances {
		if !balance.Active {
			free++
		}
	}
	return free
}

// CollateralAndLiabilityBanks partitions the active balances by side, in
// slot order. A slot violating the single-side invariant surfaces the error.
func (a *MarginfiAccount) CollateralAndLiabilityBanks() (collateral, liabilities []solana.PublicKey, err error) {
	for i := range a.Balances {
		balance := &a.Balances[i]
		if !balance.Active {
			continue
		}
		side, err := balance.GetSide()
		if err != nil {
			return nil, nil, err
		}
		switch side {
		case BalanceSideAssets:
			collateral = append(collateral, balance.BankPk)
		case BalanceSideLiabilities:
			liabilities = append(liabilities, balance.BankPk)
		}
	}
	return collateral, liabilities, nil
}

// SetHealthCache returns a copy of the account carrying the given cache.
func (a MarginfiAccount) SetHealthCache(cache HealthCache) *MarginfiAccount {
	a.HealthCache = cache
	return &a
}

// ProjectedAction describes a hypothetical balance change for ProjectBalances.
type ProjectedAction struct {
	BankPk solana.PublicKey
	// Positive AssetDelta deposits, negative withdraws; positive
	// LiabilityDelta borrows, negative repays. Quantities, not shares.
	AssetDelta     decimal.Decimal
	LiabilityDelta decimal.Decimal
}

// ProjectBalances returns a copy of the account with the given actions
// applied to its balance slots. New banks take the first free slot; slots
// whose shares drain below the empty threshold are deactivated. The source
// account is untouched.
func (a MarginfiAccount) ProjectBalances(bankMap BankMap, actions []ProjectedAction) (*MarginfiAccount, error) {
	for _, action := range actions {
		bank, err := bankMap.Get(action.BankPk)
		if err != nil {
			return nil, err
		}

		slot := -1
		for i := range a.Balances {
			if a.Balances[i].Active && a.Balances[i].BankPk.Equals(action.BankPk) {
				slot = i
				break
			}
		}
		if slot == -1 {
			for i := range a.Balances {
				if !a.Balances[i].Active {
					slot = i
					break
				}
			}
			if slot == -1 {
				return nil, NoFreeBalanceSlot
			}
			a.Balances[slot] = Balance{Active: true, BankPk: action.BankPk, BankTag: bank.AssetTag}
		}

		balance := a.Balances[slot]

		if !action.AssetDelta.IsZero() {
			deltaShares, err := bank.GetAssetShares(action.AssetDelta)
			if err != nil {
				return nil, err
			}
			shares := decimal.Max(decimal.Zero, balance.AssetShares.Add(deltaShares))
			balance = balance.WithAssetShares(shares)
		}
		if !action.LiabilityDelta.IsZero() {
			deltaShares, err := bank.GetLiabilityShares(action.LiabilityDelta)
			if err != nil {
				return nil, err
			}
			shares := decimal.Max(decimal.Zero, balance.LiabilityShares.Add(deltaShares))
			balance = balance.WithLiabilityShares(shares)
		}

		if !balance.Active {
			balance = NewEmptyBalance()
		}
		a.Balances[slot] = balance
	}
	return &a, nil
}
