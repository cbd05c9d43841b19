package core

import (
	"slices"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// BankAccountWithPriceFeed pairs one active balance with its bank snapshot
// and oracle price — the unit the legacy health path iterates over.
type BankAccountWithPriceFeed struct {
	Balance Balance
	Bank    *Bank
	Price   *OraclePrice
}

// LoadBankAccountsWithPriceFeeds resolves every active balance of an account
// against the caller-supplied snapshots, applying active e-mode overrides to
// collateral banks and dropping balances whose bank is excluded. Missing
// banks or prices surface as DataNotFoundError.
func LoadBankAccountsWithPriceFeeds(
	account *MarginfiAccount,
	bankMap BankMap,
	priceMap PriceMap,
	excludedBanks []solana.PublicKey,
) ([]*BankAccountWithPriceFeed, error) {
	collateral, liabilities, err := account.CollateralAndLiabilityBanks()
	if err != nil {
		return nil, err
	}
	emodePairs, err := ComputeActiveEmodePairs(bankMap, collateral, liabilities)
	if err != nil {
		return nil, err
	}

	var result []*BankAccountWithPriceFeed
	for _, balance := range account.ActiveBalances() {
		if slices.ContainsFunc(excludedBanks, balance.BankPk.Equals) {
			continue
		}
		bank, err := bankMap.Get(balance.BankPk)
		if err != nil {
			return nil, err
		}
		price, err := priceMap.Get(balance.BankPk)
		if err != nil {
			return nil, err
		}
		if weights, ok := EmodeWeightsForCollateral(emodePairs, balance.BankPk); ok {
			bank = bank.WithEmodeWeights(weights)
		}
		result = append(result, &BankAccountWithPriceFeed{
			Balance: balance,
			Bank:    bank,
			Price:   price,
		})
	}
	return result, nil
}

// CalcWeightedAssetsAndLiabsValues values the position conservatively:
// low-biased weighted assets, high-biased weighted liabilities.
func (ba *BankAccountWithPriceFeed) CalcWeightedAssetsAndLiabsValues(requirementType RequirementType) (decimal.Decimal, decimal.Decimal, error) {
	if _, err := ba.Balance.GetSide(); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	assets, liabilities := ba.Balance.GetUsdValueWithPriceBias(ba.Bank, ba.Price, requirementType)
	return assets, liabilities, nil
}

// CalcUnbiasedValues values the position at the raw oracle price with no
// weights beyond the requirement type's own, for Equity-style accounting.
func (ba *BankAccountWithPriceFeed) CalcUnbiasedValues(requirementType RequirementType) (decimal.Decimal, decimal.Decimal, error) {
	if _, err := ba.Balance.GetSide(); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	assets, liabilities := ba.Balance.ComputeUsdValue(ba.Bank, ba.Price, requirementType)
	return assets, liabilities, nil
}

func (ba *BankAccountWithPriceFeed) IsEmpty(side BalanceSide) bool {
	return ba.Balance.IsEmpty(side)
}
