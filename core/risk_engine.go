package core

import (
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// RiskEngine computes account health metrics from explicit snapshots. It
// holds no mutable state: construct one per (account, banks, prices) triple
// and discard it with the snapshots.
type RiskEngine struct {
	Account  *MarginfiAccount
	BankMap  BankMap
	PriceMap PriceMap
}

func NewRiskEngine(account *MarginfiAccount, bankMap BankMap, priceMap PriceMap) (*RiskEngine, error) {
	if account.GetFlag(InFlashloanFlag) {
		return nil, AccountInFlashloan
	}
	return NewRiskEngineNoFlashloanCheck(account, bankMap, priceMap), nil
}

func NewRiskEngineNoFlashloanCheck(account *MarginfiAccount, bankMap BankMap, priceMap PriceMap) *RiskEngine {
	return &RiskEngine{
		Account:  account,
		BankMap:  bankMap,
		PriceMap: priceMap,
	}
}

// ComputeHealthComponents returns the asset/liability USD totals for a
// requirement type from the account's health cache. The cache must be usable;
// callers without a fresh cache use the legacy path.
func (r *RiskEngine) ComputeHealthComponents(requirementType RequirementType) (decimal.Decimal, decimal.Decimal, error) {
	if !r.Account.HealthCache.Usable() {
		return r.ComputeHealthComponentsLegacy(requirementType, nil)
	}
	assets, liabilities := r.Account.HealthCache.ComponentsFor(requirementType)
	return assets, liabilities, nil
}

// ComputeHealthComponentsLegacy recomputes the totals directly from balances,
// banks and oracle prices with the conservative double-sided price bias.
// Banks in excludedBanks are valued as if the position did not exist.
func (r *RiskEngine) ComputeHealthComponentsLegacy(requirementType RequirementType, excludedBanks []solana.PublicKey) (decimal.Decimal, decimal.Decimal, error) {
	bankAccounts, err := LoadBankAccountsWithPriceFeeds(r.Account, r.BankMap, r.PriceMap, excludedBanks)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	totalAssets := decimal.Zero
	totalLiabilities := decimal.Zero
	for _, ba := range bankAccounts {
		assets, liabilities, err := ba.CalcWeightedAssetsAndLiabsValues(requirementType)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		totalAssets = totalAssets.Add(assets)
		totalLiabilities = totalLiabilities.Add(liabilities)
	}
	return totalAssets, totalLiabilities, nil
}

// ComputeHealthComponentsLegacyWithoutBias is the unbiased variant used for
// Equity-style accounting where no conservative skew is wanted.
func (r *RiskEngine) ComputeHealthComponentsLegacyWithoutBias(requirementType RequirementType, excludedBanks []solana.PublicKey) (decimal.Decimal, decimal.Decimal, error) {
	bankAccounts, err := LoadBankAccountsWithPriceFeeds(r.Account, r.BankMap, r.PriceMap, excludedBanks)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	totalAssets := decimal.Zero
	totalLiabilities := decimal.Zero
	for _, ba := range bankAccounts {
		assets, liabilities, err := ba.CalcUnbiasedValues(requirementType)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		totalAssets = totalAssets.Add(assets)
		totalLiabilities = totalLiabilities.Add(liabilities)
	}
	return totalAssets, totalLiabilities, nil
}

// FreeCollateralOpts controls ComputeFreeCollateral. Clamped floors the
// result at zero ("spendable" capacity); unclamped lets callers detect an
// unhealthy account.
type FreeCollateralOpts struct {
	Requirement RequirementType
	Clamped     bool
}

func (r *RiskEngine) ComputeFreeCollateral(opts FreeCollateralOpts) (decimal.Decimal, error) {
	assets, liabilities, err := r.ComputeHealthComponentsLegacy(opts.Requirement, nil)
	if err != nil {
		return decimal.Zero, err
	}
	freeCollateral := assets.Sub(liabilities)
	if opts.Clamped && freeCollateral.IsNegative() {
		return decimal.Zero, nil
	}
	return freeCollateral, nil
}

// ComputeHealthFactor returns (assets - liabilities) / assets for the
// requirement type. With zero liabilities health is unbounded and the second
// return is true; no division happens.
func (r *RiskEngine) ComputeHealthFactor(requirementType RequirementType) (decimal.Decimal, bool, error) {
	assets, liabilities, err := r.ComputeHealthComponents(requirementType)
	if err != nil {
		return decimal.Zero, false, err
	}
	if liabilities.LessThanOrEqual(ZERO_AMOUNT_THRESHOLD) {
		return ONE, true, nil
	}
	if assets.IsZero() {
		return decimal.Zero, false, nil
	}
	return assets.Sub(liabilities).Div(assets), false, nil
}

func (r *RiskEngine) CheckAccountHealth(requirementType RequirementType) error {
	totalAssets, totalLiabilities, err := r.ComputeHealthComponentsLegacy(requirementType, nil)
	if err != nil {
		return err
	}
	if !totalAssets.GreaterThanOrEqual(totalLiabilities) {
		return BankLiabilityCapacityExceeded
	}
	return r.CheckAccountRiskTiers()
}

// CheckAccountRiskTiers enforces that an isolated-tier liability is the
// account's only liability.
func (r *RiskEngine) CheckAccountRiskTiers() error {
	bankAccounts, err := LoadBankAccountsWithPriceFeeds(r.Account, r.BankMap, r.PriceMap, nil)
	if err != nil {
		return err
	}

	var balancesWithLiabilities []*BankAccountWithPriceFeed
	for _, ba := range bankAccounts {
		if !ba.IsEmpty(BalanceSideLiabilities) {
			balancesWithLiabilities = append(balancesWithLiabilities, ba)
		}
	}

	isInIsolatedRiskTier := false
	for _, ba := range balancesWithLiabilities {
		if ba.Bank.BankConfig.RiskTier == Isolated {
			isInIsolatedRiskTier = true
		}
	}
	if isInIsolatedRiskTier && len(balancesWithLiabilities) != 1 {
		return IsolatedAccountIllegalState
	}
	return nil
}

// MaxBorrowOpts tunes ComputeMaxBorrowForBank. VolatilityFactor dampens free
// collateral before the formula runs (1 = no dampening); EmodeWeights, when
// set, overrides the target bank's asset weights first.
type MaxBorrowOpts struct {
	VolatilityFactor decimal.Decimal
	EmodeWeights     *EmodeWeights
}

// ComputeMaxBorrowForBank solves for the largest quantity of the target
// bank's asset that can be borrowed without breaching the Initial-regime
// free-collateral constraint. Collateral already deposited in the target bank
// is released at the bank's own low-bias deposit-weighted price; the rest of
// the free collateral funds the borrow at the worst-case high-bias
// liability-weighted price.
//
// Known limitation carried over intentionally: the formula does not account
// for collateral a liquidator would receive mid-liquidation.
func (r *RiskEngine) ComputeMaxBorrowForBank(bankPk solana.PublicKey, opts MaxBorrowOpts) (decimal.Decimal, error) {
	bank, err := r.BankMap.Get(bankPk)
	if err != nil {
		return decimal.Zero, err
	}
	price, err := r.PriceMap.Get(bankPk)
	if err != nil {
		return decimal.Zero, err
	}
	if opts.EmodeWeights != nil {
		bank = bank.WithEmodeWeights(*opts.EmodeWeights)
	}

	freeCollateral, err := r.ComputeFreeCollateral(FreeCollateralOpts{Requirement: Initial, Clamped: true})
	if err != nil {
		return decimal.Zero, err
	}
	if !opts.VolatilityFactor.IsZero() {
		freeCollateral = freeCollateral.Mul(opts.VolatilityFactor)
	}

	priceLowBiased := price.GetPrice(Low, true)
	priceHighBiased := price.GetPrice(High, true)
	assetWeight := bank.GetAssetWeight(Initial, price, false)
	liabilityWeight := bank.GetLiabilityWeight(Initial)

	// collateral value currently tied to this bank, valued the way the
	// free-collateral computation sees it
	balance, _ := r.Account.GetBalance(bankPk)
	collateralForBank := bank.ComputeUsdValue(price, bank.GetAssetQuantity(balance.AssetShares), Low, true, assetWeight)
	untiedCollateralForBank := decimal.Min(collateralForBank, freeCollateral)

	maxBorrow := decimal.Zero
	releaseDenom := priceLowBiased.Mul(assetWeight)
	if releaseDenom.IsPositive() {
		maxBorrow = maxBorrow.Add(untiedCollateralForBank.Div(releaseDenom))
	}
	borrowDenom := priceHighBiased.Mul(liabilityWeight)
	if borrowDenom.IsPositive() {
		maxBorrow = maxBorrow.Add(freeCollateral.Sub(untiedCollateralForBank).Div(borrowDenom))
	}
	return maxBorrow, nil
}

// ComputeMaxWithdrawForBank is the inverse problem: the largest withdrawable
// quantity keeping post-withdrawal health non-negative under the Maintenance
// requirement.
func (r *RiskEngine) ComputeMaxWithdrawForBank(bankPk solana.PublicKey, opts MaxBorrowOpts) (decimal.Decimal, error) {
	bank, err := r.BankMap.Get(bankPk)
	if err != nil {
		return decimal.Zero, err
	}
	price, err := r.PriceMap.Get(bankPk)
	if err != nil {
		return decimal.Zero, err
	}
	if opts.EmodeWeights != nil {
		bank = bank.WithEmodeWeights(*opts.EmodeWeights)
	}

	balance, ok := r.Account.GetBalance(bankPk)
	if !ok {
		return decimal.Zero, nil
	}
	entireBalance := bank.GetAssetQuantityRounded(balance.AssetShares)

	_, totalLiabilities, err := r.ComputeHealthComponentsLegacy(Maintenance, nil)
	if err != nil {
		return decimal.Zero, err
	}
	if totalLiabilities.LessThanOrEqual(ZERO_AMOUNT_THRESHOLD) {
		// nothing owed, everything is withdrawable
		return entireBalance, nil
	}

	freeCollateral, err := r.ComputeFreeCollateral(FreeCollateralOpts{Requirement: Maintenance, Clamped: true})
	if err != nil {
		return decimal.Zero, err
	}
	if !opts.VolatilityFactor.IsZero() {
		freeCollateral = freeCollateral.Mul(opts.VolatilityFactor)
	}

	assetWeight := bank.GetAssetWeight(Maintenance, price, false)
	priceLowBiased := price.GetPrice(Low, true)
	weightedPrice := priceLowBiased.Mul(assetWeight)
	if !weightedPrice.IsPositive() {
		// zero-weight collateral does not back anything
		return entireBalance, nil
	}

	collateralForBank := bank.ComputeUsdValue(price, bank.GetAssetQuantity(balance.AssetShares), Low, true, assetWeight)
	withdrawableValue := decimal.Min(collateralForBank, freeCollateral)
	maxWithdraw := withdrawableValue.Div(weightedPrice)
	return decimal.Min(maxWithdraw, entireBalance), nil
}

// ComputeNetApy sums each active balance's effective yield (lend rate on
// deposits minus borrow rate on liabilities, in USD terms) over total equity,
// annualized with hourly compounding.
func (r *RiskEngine) ComputeNetApy() (decimal.Decimal, error) {
	totalAssets, totalLiabilities, err := r.ComputeHealthComponentsLegacyWithoutBias(Equity, nil)
	if err != nil {
		return decimal.Zero, err
	}
	totalEquity := totalAssets.Sub(totalLiabilities)
	if totalEquity.IsZero() {
		totalEquity = ONE
	}

	bankAccounts, err := LoadBankAccountsWithPriceFeeds(r.Account, r.BankMap, r.PriceMap, nil)
	if err != nil {
		return decimal.Zero, err
	}

	weightedApr := decimal.Zero
	for _, ba := range bankAccounts {
		lendingApr, borrowingApr, err := ba.Bank.ComputeInterestRates()
		if err != nil {
			return decimal.Zero, err
		}
		assetsValue, liabilitiesValue, err := ba.CalcUnbiasedValues(Equity)
		if err != nil {
			return decimal.Zero, err
		}
		weightedApr = weightedApr.
			Add(lendingApr.Mul(assetsValue).Div(totalEquity)).
			Sub(borrowingApr.Mul(liabilitiesValue).Div(totalEquity))
	}

	return AprToApy(weightedApr), nil
}

// ComputeLiquidationPriceForBank estimates the oracle price at which the
// position in a bank crosses the Maintenance liquidation threshold.
func (r *RiskEngine) ComputeLiquidationPriceForBank(bankPk solana.PublicKey) (decimal.Decimal, error) {
	bank, err := r.BankMap.Get(bankPk)
	if err != nil {
		return decimal.Zero, err
	}
	price, err := r.PriceMap.Get(bankPk)
	if err != nil {
		return decimal.Zero, err
	}
	balance, ok := r.Account.GetBalance(bankPk)
	if !ok {
		return decimal.Zero, nil
	}

	isLending := balance.LiabilityShares.IsZero()
	assets, liabilities, err := r.ComputeHealthComponentsLegacy(Maintenance, []solana.PublicKey{bankPk})
	if err != nil {
		return decimal.Zero, err
	}

	assetsQuantity, liabilitiesQuantity := balance.ComputeQuantity(bank)
	var liquidationPrice decimal.Decimal
	if isLending {
		if liabilities.IsZero() || assetsQuantity.IsZero() {
			return decimal.Zero, nil
		}
		assetWeight := bank.GetAssetWeight(Maintenance, price, false)
		priceConfidence := price.GetPrice(None, false).Sub(price.GetPrice(Low, false))
		denominator := assetsQuantity.Mul(assetWeight)
		if denominator.IsZero() {
			return decimal.Zero, nil
		}
		liquidationPrice = liabilities.Sub(assets).Div(denominator).Add(priceConfidence)
	} else {
		if liabilitiesQuantity.IsZero() {
			return decimal.Zero, nil
		}
		liabWeight := bank.GetLiabilityWeight(Maintenance)
		priceConfidence := price.GetPrice(High, false).Sub(price.GetPrice(None, false))
		denominator := liabilitiesQuantity.Mul(liabWeight)
		if denominator.IsZero() {
			return decimal.Zero, nil
		}
		liquidationPrice = assets.Sub(liabilities).Div(denominator).Sub(priceConfidence)
	}
	if !liquidationPrice.IsPositive() {
		return decimal.Zero, nil
	}
	return liquidationPrice, nil
}

/*
const aprToApy = (apr: number, compoundingFrequency = HOURS_PER_YEAR) =>

	(1 + apr / compoundingFrequency) ** compoundingFrequency - 1;
*/
func AprToApy(apr decimal.Decimal) decimal.Decimal {
	hoursPerYear := decimal.NewFromInt(HOURS_PER_YEAR)
	return (ONE.Add(apr.Div(hoursPerYear))).Pow(hoursPerYear).Sub(ONE).Round(8)
}
