package core

import (
	"math"

	"github.com/facebookgo/clock"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

type (
	// Bank is an immutable snapshot of one lending pool. It is decoded from
	// chain once per fetch; e-mode adjustments produce a new instance via
	// WithEmodeWeights, never an in-place edit.
	Bank struct {
		Address solana.PublicKey `json:"address"`
		Group   solana.PublicKey `json:"group"`

		Mint         solana.PublicKey `json:"mint"`
		MintDecimals uint8            `json:"mintDecimals"`

		AssetShareValue     decimal.Decimal `json:"assetShareValue"`
		LiabilityShareValue decimal.Decimal `json:"liabilityShareValue"`

		TotalAssetShares     decimal.Decimal `json:"totalAssetShares"`
		TotalLiabilityShares decimal.Decimal `json:"totalLiabilityShares"`

		Flags BankFlags `json:"flags"`

		BankConfig `json:"bankConfig"`

		Emissions EmissionsConfig `json:"emissions"`

		EmodeSettings EmodeSettings `json:"emodeSettings"`

		Integration *IntegrationAccounts `json:"integration,omitempty"`

		LastUpdate int64 `json:"lastUpdate"`
	}

	BankConfig struct {
		AssetWeightInit  decimal.Decimal `json:"assetWeightInit"`
		AssetWeightMaint decimal.Decimal `json:"assetWeightMaint"`

		LiabilityWeightInit  decimal.Decimal `json:"liabilityWeightInit"`
		LiabilityWeightMaint decimal.Decimal `json:"liabilityWeightMaint"`

		DepositLimit decimal.Decimal `json:"depositLimit"`
		BorrowLimit  decimal.Decimal `json:"borrowLimit"`

		InterestRateConfig `json:"interestRateConfig"`

		OperationalState BankOperationalState `json:"operationalState"`

		RiskTier                 RiskTier        `json:"riskTier"`
		AssetTag                 AssetTag        `json:"assetTag"`
		TotalAssetValueInitLimit decimal.Decimal `json:"totalAssetValueInitLimit"`

		OracleSetup   OracleSetup        `json:"oracleSetup"`
		OracleKeys    []solana.PublicKey `json:"oracleKeys"`
		OracleMaxAge  int64              `json:"oracleMaxAge"`
		MaxConfidence decimal.Decimal    `json:"maxConfidence"`
		FixedPrice    *decimal.Decimal   `json:"fixedPrice,omitempty"`
	}

	InterestRateConfig struct {
		OptimalUtilizationRate decimal.Decimal `json:"optimalUtilizationRate"`
		PlateauInterestRate    decimal.Decimal `json:"plateauInterestRate"`
		MaxInterestRate        decimal.Decimal `json:"maxInterestRate"`

		InsuranceFeeFixedApr decimal.Decimal `json:"insuranceFeeFixedApr"`
		InsuranceIrFee       decimal.Decimal `json:"insuranceIrFee"`
		ProtocolFixedFeeApr  decimal.Decimal `json:"protocolFixedFeeApr"`
		ProtocolIrFee        decimal.Decimal `json:"protocolIrFee"`
	}

	EmissionsConfig struct {
		Mint      solana.PublicKey `json:"mint"`
		Rate      decimal.Decimal  `json:"rate"`
		Remaining decimal.Decimal  `json:"remaining"`
	}

	// IntegrationAccounts carries the extra account set an integration-tagged
	// bank needs in its instruction account lists. Only the fields relevant
	// to the bank's asset tag are populated.
	IntegrationAccounts struct {
		KaminoReserve       solana.PublicKey `json:"kaminoReserve"`
		KaminoObligation    solana.PublicKey `json:"kaminoObligation"`
		KaminoLendingMarket solana.PublicKey `json:"kaminoLendingMarket"`
		KaminoFarmState     solana.PublicKey `json:"kaminoFarmState"`

		DriftMarketIndex uint16             `json:"driftMarketIndex"`
		DriftSpotMarket  solana.PublicKey   `json:"driftSpotMarket"`
		DriftUser        solana.PublicKey   `json:"driftUser"`
		DriftUserStats   solana.PublicKey   `json:"driftUserStats"`
		DriftRewardMints []solana.PublicKey `json:"driftRewardMints,omitempty"`

		SolendReserve    solana.PublicKey `json:"solendReserve"`
		SolendObligation solana.PublicKey `json:"solendObligation"`
	}
)

func (i *InterestRateConfig) CalcInterestRate(utilizationRatio decimal.Decimal) (decimal.Decimal, decimal.Decimal, decimal.Decimal, decimal.Decimal, error) {
	rateFee := i.ProtocolIrFee.Add(i.InsuranceIrFee)
	totalFixedFeeApr := i.ProtocolFixedFeeApr.Add(i.InsuranceFeeFixedApr)

	baseRate := i.InterestRateCurve(utilizationRatio)

	lendingRate := baseRate.Mul(utilizationRatio)
	borrowingRate := baseRate.Mul(ONE.Add(rateFee)).Add(totalFixedFeeApr)

	groupFeesApr := i.CalcFeeRate(baseRate, i.ProtocolIrFee, i.ProtocolFixedFeeApr)
	insuranceFeesApr := i.CalcFeeRate(baseRate, i.InsuranceIrFee, i.InsuranceFeeFixedApr)

	if lendingRate.LessThan(decimal.Zero) ||
		borrowingRate.LessThan(decimal.Zero) ||
		groupFeesApr.LessThan(decimal.Zero) ||
		insuranceFeesApr.LessThan(decimal.Zero) {
		return decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, ErrNegativeInterestRate
	}

	return lendingRate, borrowingRate, groupFeesApr, insuranceFeesApr, nil
}

// InterestRateCurve evaluates the double-knot utilization ramp.
func (i *InterestRateConfig) InterestRateCurve(utilizationRatio decimal.Decimal) decimal.Decimal {
	optimalUr := i.OptimalUtilizationRate
	plateauIr := i.PlateauInterestRate
	maxIr := i.MaxInterestRate

	if utilizationRatio.LessThanOrEqual(optimalUr) {
		// ur / optimal_ur * plateau_ir
		return utilizationRatio.Mul(plateauIr).Div(optimalUr)
	}
	// (ur - optimal_ur) / (1 - optimal_ur) * (max_ir - plateau_ir) + plateau_ir
	oneMinusOptimalUr := ONE.Sub(optimalUr)
	maxIrMinusPlateau := maxIr.Sub(plateauIr)
	utilizationRatioMinusOptimalUr := utilizationRatio.Sub(optimalUr)

	return utilizationRatioMinusOptimalUr.Div(oneMinusOptimalUr).Mul(maxIrMinusPlateau).Add(plateauIr)
}

func (i *InterestRateConfig) CalcFeeRate(baseRate, irFee, fixedFeeApr decimal.Decimal) decimal.Decimal {
	return baseRate.Mul(irFee).Add(fixedFeeApr)
}

func (i *InterestRateConfig) Validate() error {
	if i.OptimalUtilizationRate.LessThanOrEqual(decimal.Zero) || i.OptimalUtilizationRate.GreaterThanOrEqual(ONE) {
		return ErrOptimalUr
	}
	if i.PlateauInterestRate.LessThanOrEqual(decimal.Zero) {
		return ErrPlateauIr
	}
	if i.MaxInterestRate.LessThanOrEqual(decimal.Zero) {
		return ErrMaxIr
	}
	if i.PlateauInterestRate.GreaterThanOrEqual(i.MaxInterestRate) {
		return ErrPlateauGreaterThanMax
	}
	return nil
}

func (bc *BankConfig) Validate() error {
	assetInitW := bc.AssetWeightInit
	assetMaintW := bc.AssetWeightMaint

	if !(assetInitW.GreaterThanOrEqual(decimal.Zero) && assetInitW.LessThanOrEqual(ONE)) {
		return InvalidConfig
	}
	if !assetMaintW.GreaterThanOrEqual(assetInitW) {
		return InvalidConfig
	}

	liabInitW := bc.LiabilityWeightInit
	liabMaintW := bc.LiabilityWeightMaint
	if liabInitW.LessThan(ONE) {
		return InvalidConfig
	}
	if liabMaintW.GreaterThan(liabInitW) || liabMaintW.LessThan(ONE) {
		return InvalidConfig
	}

	if err := bc.InterestRateConfig.Validate(); err != nil {
		return err
	}

	if bc.RiskTier == Isolated {
		if !assetInitW.Equal(decimal.Zero) || !assetMaintW.Equal(decimal.Zero) {
			return InvalidConfig
		}
	}

	return nil
}

func (bc *BankConfig) GetWeights(requirementType RequirementType) (decimal.Decimal, decimal.Decimal) {
	switch requirementType {
	case Initial:
		return bc.AssetWeightInit, bc.LiabilityWeightInit
	case Maintenance:
		return bc.AssetWeightMaint, bc.LiabilityWeightMaint
	case Equity:
		return ONE, ONE
	default:
		return decimal.Zero, decimal.Zero
	}
}

// IsDepositLimitActive reports whether the deposit limit constrains the
// bank. The program stores u64::MAX as the no-limit sentinel; limits are
// held ui-scaled after decoding, so the sentinel is compared at the same
// scale.
func (b *Bank) IsDepositLimitActive() bool {
	return !b.DepositLimit.Equal(NativeToUi(math.MaxUint64, b.MintDecimals))
}

func (b *Bank) IsBorrowLimitActive() bool {
	return !b.BorrowLimit.Equal(NativeToUi(math.MaxUint64, b.MintDecimals))
}

func (bc *BankConfig) UsdInitLimitActive() bool {
	return !bc.TotalAssetValueInitLimit.IsZero() &&
		!bc.TotalAssetValueInitLimit.Equal(decimal.NewFromUint64(math.MaxUint64))
}

func (b *Bank) GetFlag(flag BankFlags) bool {
	return b.Flags&flag == flag
}

// WithEmodeWeights returns a copy of the bank with its initial and
// maintenance asset weights lifted to the e-mode override where the override
// is higher. An e-mode entry never lowers a weight.
func (b *Bank) WithEmodeWeights(w EmodeWeights) *Bank {
	nb := *b
	nb.AssetWeightInit = decimal.Max(b.AssetWeightInit, w.AssetWeightInit)
	nb.AssetWeightMaint = decimal.Max(b.AssetWeightMaint, w.AssetWeightMaint)
	return &nb
}

// ------------ share <-> quantity

func (b *Bank) GetAssetQuantity(assetShares decimal.Decimal) decimal.Decimal {
	return assetShares.Mul(b.AssetShareValue)
}

func (b *Bank) GetLiabilityQuantity(liabilityShares decimal.Decimal) decimal.Decimal {
	return liabilityShares.Mul(b.LiabilityShareValue)
}

func (b *Bank) GetAssetShares(quantity decimal.Decimal) (decimal.Decimal, error) {
	return SafeDiv(quantity, b.AssetShareValue)
}

func (b *Bank) GetLiabilityShares(quantity decimal.Decimal) (decimal.Decimal, error) {
	return SafeDiv(quantity, b.LiabilityShareValue)
}

// GetAssetQuantityRounded rounds down at mint precision: withdrawable amounts
// never exceed what the shares are worth.
func (b *Bank) GetAssetQuantityRounded(assetShares decimal.Decimal) decimal.Decimal {
	return b.GetAssetQuantity(assetShares).RoundFloor(int32(b.MintDecimals))
}

// GetLiabilityQuantityRounded rounds up at mint precision: owed amounts never
// round in the borrower's favor.
func (b *Bank) GetLiabilityQuantityRounded(liabilityShares decimal.Decimal) decimal.Decimal {
	return b.GetLiabilityQuantity(liabilityShares).RoundCeil(int32(b.MintDecimals))
}

func (b *Bank) GetTotalAssetQuantity() decimal.Decimal {
	return b.TotalAssetShares.Mul(b.AssetShareValue)
}

func (b *Bank) GetTotalLiabilityQuantity() decimal.Decimal {
	return b.TotalLiabilityShares.Mul(b.LiabilityShareValue)
}

// ------------ valuation

func (b *Bank) ComputeAssetUsdValue(oraclePrice *OraclePrice, assetShares decimal.Decimal, requirementType RequirementType, priceBias PriceBias) decimal.Decimal {
	assetQuantity := b.GetAssetQuantity(assetShares)
	assetWeight := b.GetAssetWeight(requirementType, oraclePrice, false)
	return b.ComputeUsdValue(oraclePrice, assetQuantity, priceBias, requirementType.IsWeighted(), assetWeight)
}

func (b *Bank) ComputeLiabilityUsdValue(oraclePrice *OraclePrice, liabilityShares decimal.Decimal, requirementType RequirementType, priceBias PriceBias) decimal.Decimal {
	liabilityQuantity := b.GetLiabilityQuantity(liabilityShares)
	liabilityWeight := b.GetLiabilityWeight(requirementType)
	return b.ComputeUsdValue(oraclePrice, liabilityQuantity, priceBias, requirementType.IsWeighted(), liabilityWeight)
}

func (b *Bank) ComputeUsdValue(oraclePrice *OraclePrice, quantity decimal.Decimal, priceBias PriceBias, weightedPrice bool, weight decimal.Decimal) decimal.Decimal {
	price := oraclePrice.GetPrice(priceBias, weightedPrice)
	value := quantity.Mul(price).Mul(weight)
	if value.IsNegative() {
		// price-bias clamping: a confidence wider than price must not
		// produce a negative valuation
		return decimal.Zero
	}
	return value
}

// GetAssetWeight resolves the effective asset weight for a requirement type,
// applying the total-asset-value soft-limit discount for Initial.
func (b *Bank) GetAssetWeight(requirementType RequirementType, oraclePrice *OraclePrice, ignoreSoftLimits bool) decimal.Decimal {
	switch requirementType {
	case Initial:
		if ignoreSoftLimits || !b.BankConfig.UsdInitLimitActive() {
			return b.BankConfig.AssetWeightInit
		}
		totalBankCollateralValue := b.ComputeUsdValue(oraclePrice, b.GetTotalAssetQuantity(), Low, false, ONE)
		if totalBankCollateralValue.GreaterThan(b.BankConfig.TotalAssetValueInitLimit) {
			return b.BankConfig.TotalAssetValueInitLimit.
				Div(totalBankCollateralValue).
				Mul(b.BankConfig.AssetWeightInit)
		}
		return b.BankConfig.AssetWeightInit
	case Maintenance:
		return b.BankConfig.AssetWeightMaint
	case Equity:
		return ONE
	}
	return decimal.Zero
}

func (b *Bank) GetLiabilityWeight(requirementType RequirementType) decimal.Decimal {
	switch requirementType {
	case Initial:
		return b.BankConfig.LiabilityWeightInit
	case Maintenance:
		return b.BankConfig.LiabilityWeightMaint
	case Equity:
		return ONE
	}
	return decimal.Zero
}

func (b *Bank) ComputeTvl(oraclePrice *OraclePrice) decimal.Decimal {
	return b.ComputeAssetUsdValue(oraclePrice, b.TotalAssetShares, Equity, None).
		Sub(b.ComputeLiabilityUsdValue(oraclePrice, b.TotalLiabilityShares, Equity, None))
}

// ------------ utilization and capacity

func (b *Bank) ComputeUtilizationRate() decimal.Decimal {
	totalDeposits := b.GetTotalAssetQuantity()
	if totalDeposits.IsZero() {
		return decimal.Zero
	}
	return b.GetTotalLiabilityQuantity().Div(totalDeposits)
}

// ComputeInterestRates returns the current lending and borrowing APRs from
// the bank's utilization curve.
func (b *Bank) ComputeInterestRates() (decimal.Decimal, decimal.Decimal, error) {
	lendingRate, borrowingRate, _, _, err := b.BankConfig.InterestRateConfig.CalcInterestRate(b.ComputeUtilizationRate())
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return lendingRate, borrowingRate, nil
}

// ComputeRemainingCapacity projects deposit and borrow headroom against the
// configured limits, net of interest accrued since the bank's last update.
func (b *Bank) ComputeRemainingCapacity(clk clock.Clock) (depositCapacity decimal.Decimal, borrowCapacity decimal.Decimal) {
	totalDeposits := b.GetTotalAssetQuantity()
	remainingCapacity := decimal.Max(decimal.Zero, b.BankConfig.DepositLimit.Sub(totalDeposits))

	totalBorrows := b.GetTotalLiabilityQuantity()
	remainingBorrowCapacity := decimal.Max(decimal.Zero, b.BankConfig.BorrowLimit.Sub(totalBorrows))

	durationSinceLastAccrual := clk.Now().Unix() - b.LastUpdate

	lendingRate, borrowingRate, err := b.ComputeInterestRates()
	if err != nil {
		return decimal.Zero, decimal.Zero
	}

	depositCapacity = remainingCapacity
	if b.IsDepositLimitActive() {
		outstandingLendingInterest := lendingRate.
			Mul(decimal.NewFromInt(durationSinceLastAccrual)).
			Div(decimal.NewFromInt(SECONDS_PER_YEAR)).
			Mul(totalDeposits)
		depositCapacity = decimal.Max(decimal.Zero, remainingCapacity.Sub(outstandingLendingInterest))
	}

	borrowCapacity = remainingBorrowCapacity
	if b.IsBorrowLimitActive() {
		outstandingBorrowInterest := borrowingRate.
			Mul(decimal.NewFromInt(durationSinceLastAccrual)).
			Div(decimal.NewFromInt(SECONDS_PER_YEAR)).
			Mul(totalBorrows)
		borrowCapacity = decimal.Max(decimal.Zero, remainingBorrowCapacity.Sub(outstandingBorrowInterest))
	}
	return
}

func (b *Bank) AssertOperationalMode(isAssetOrLiabilityAmountIncreasing bool) error {
	switch b.BankConfig.OperationalState {
	case BankOperationalStatePaused:
		return BankPaused
	case BankOperationalStateReduceOnly:
		if isAssetOrLiabilityAmountIncreasing {
			return BankReduceOnly
		}
	}
	return nil
}

// BankMap is a caller-supplied snapshot of banks keyed by bank address.
type BankMap map[solana.PublicKey]*Bank

func (bm BankMap) Get(address solana.PublicKey) (*Bank, error) {
	bank, ok := bm[address]
	if !ok {
		return nil, NewBankNotFound(address.String())
	}
	return bank, nil
}

// ByMint returns the first bank for a mint, in unspecified order.
func (bm BankMap) ByMint(mint solana.PublicKey) (*Bank, error) {
	for _, bank := range bm {
		if bank.Mint.Equals(mint) {
			return bank, nil
		}
	}
	return nil, NewBankNotFound(mint.String())
}
