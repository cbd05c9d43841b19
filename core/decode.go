package core

import (
	"bytes"
	"crypto/sha256"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// AccountDiscriminator returns the 8-byte discriminator prefixed to every
// program-owned account of the given type.
func AccountDiscriminator(accountName string) []byte {
	hash := sha256.Sum256([]byte("account:" + accountName))
	return hash[:8]
}

type (
	balanceRaw struct {
		Active               uint8
		BankPk               solana.PublicKey
		BankAssetTag         uint8
		Pad0                 [6]uint8
		AssetShares          WrappedI80F48
		LiabilityShares      WrappedI80F48
		EmissionsOutstanding WrappedI80F48
		LastUpdate           uint64
		Pad1                 [1]uint64
	}

	healthCacheRaw struct {
		AssetValue           WrappedI80F48
		LiabilityValue       WrappedI80F48
		AssetValueMaint      WrappedI80F48
		LiabilityValueMaint  WrappedI80F48
		AssetValueEquity     WrappedI80F48
		LiabilityValueEquity WrappedI80F48
		Timestamp            uint64
		Flags                uint32
		ProgramErrorCode     uint32
		InternalErrorCode    uint32
		ErrorIndex           uint8
		Pad0                 [3]uint8
		Prices               [MAX_BALANCE_SLOTS]float64
	}

	marginfiAccountRaw struct {
		Group                solana.PublicKey
		Authority            solana.PublicKey
		Balances             [MAX_BALANCE_SLOTS]balanceRaw
		AccountFlags         uint64
		EmissionsDestination solana.PublicKey
		HealthCache          healthCacheRaw
	}

	interestRateConfigRaw struct {
		OptimalUtilizationRate WrappedI80F48
		PlateauInterestRate    WrappedI80F48
		MaxInterestRate        WrappedI80F48
		InsuranceFeeFixedApr   WrappedI80F48
		InsuranceIrFee         WrappedI80F48
		ProtocolFixedFeeApr    WrappedI80F48
		ProtocolIrFee          WrappedI80F48
	}

	bankConfigRaw struct {
		AssetWeightInit          WrappedI80F48
		AssetWeightMaint         WrappedI80F48
		LiabilityWeightInit      WrappedI80F48
		LiabilityWeightMaint     WrappedI80F48
		DepositLimit             uint64
		BorrowLimit              uint64
		InterestRateConfig       interestRateConfigRaw
		OperationalState         uint8
		RiskTier                 uint8
		AssetTag                 uint8
		Pad0                     [5]uint8
		TotalAssetValueInitLimit uint64
		OracleSetup              uint8
		OracleKeys               [5]solana.PublicKey
		OracleMaxAge             uint16
		MaxConfidence            WrappedI80F48
	}

	bankRaw struct {
		Mint            solana.PublicKey
		MintDecimals    uint8
		Group           solana.PublicKey
		Pad0            [7]uint8
		AssetShareValue WrappedI80F48
		LiabShareValue  WrappedI80F48

		LiquidityVault          solana.PublicKey
		LiquidityVaultBump      uint8
		LiquidityVaultAuthBump  uint8
		InsuranceVault          solana.PublicKey
		InsuranceVaultBump      uint8
		InsuranceVaultAuthBump  uint8
		FeeVault                solana.PublicKey
		FeeVaultBump            uint8
		FeeVaultAuthorityBump   uint8
		Pad1                    [2]uint8
		CollectedInsuranceFees  WrappedI80F48
		CollectedGroupFees      WrappedI80F48
		TotalLiabilityShares    WrappedI80F48
		TotalAssetShares        WrappedI80F48
		LastUpdate              uint64
		Config                  bankConfigRaw
		Flags                   uint64
		EmissionsRate           uint64
		EmissionsRemaining      WrappedI80F48
		EmissionsMint           solana.PublicKey
		EmodeSettings           emodeSettingsRaw
	}

	emodeEntryRaw struct {
		CollateralBankEmodeTag uint16
		Flags                  uint8
		Pad0                   [5]uint8
		AssetWeightInit        WrappedI80F48
		AssetWeightMaint       WrappedI80F48
	}

	emodeSettingsRaw struct {
		EmodeTag  uint16
		Pad0      [6]uint8
		Timestamp uint64
		Flags     uint64
		Entries   [10]emodeEntryRaw
	}
)

// DecodeMarginfiAccount decodes raw on-chain account bytes, discriminator
// included, into the client model.
func DecodeMarginfiAccount(address solana.PublicKey, data []byte) (*MarginfiAccount, error) {
	if len(data) < 8 || !bytes.Equal(data[:8], AccountDiscriminator("MarginfiAccount")) {
		return nil, errors.New("not a marginfi account")
	}

	var raw marginfiAccountRaw
	if err := bin.NewBorshDecoder(data[8:]).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "decode marginfi account")
	}

	account := &MarginfiAccount{
		Address:              address,
		Group:                raw.Group,
		Authority:            raw.Authority,
		AccountFlags:         AccountFlags(raw.AccountFlags),
		EmissionsDestination: raw.EmissionsDestination,
		HealthCache:          raw.HealthCache.toHealthCache(),
	}
	for i, b := range raw.Balances {
		account.Balances[i] = Balance{
			Active:               b.Active != 0,
			BankPk:               b.BankPk,
			BankTag:              AssetTag(b.BankAssetTag),
			AssetShares:          b.AssetShares.Decimal(),
			LiabilityShares:      b.LiabilityShares.Decimal(),
			EmissionsOutstanding: b.EmissionsOutstanding.Decimal(),
			LastUpdate:           int64(b.LastUpdate),
		}
	}
	return account, nil
}

func (raw *healthCacheRaw) toHealthCache() HealthCache {
	cache := HealthCache{
		AssetValue:           raw.AssetValue.Decimal(),
		LiabilityValue:       raw.LiabilityValue.Decimal(),
		AssetValueMaint:      raw.AssetValueMaint.Decimal(),
		LiabilityValueMaint:  raw.LiabilityValueMaint.Decimal(),
		AssetValueEquity:     raw.AssetValueEquity.Decimal(),
		LiabilityValueEquity: raw.LiabilityValueEquity.Decimal(),
		Timestamp:            int64(raw.Timestamp),
		Flags:                HealthCacheFlags(raw.Flags),
		ProgramErrorCode:     raw.ProgramErrorCode,
		InternalErrorCode:    raw.InternalErrorCode,
		ErrorIndex:           raw.ErrorIndex,
	}
	for _, p := range raw.Prices {
		cache.Prices = append(cache.Prices, decimal.NewFromFloat(p))
	}
	return cache
}

// DecodeBank decodes raw on-chain bank bytes, discriminator included.
func DecodeBank(address solana.PublicKey, data []byte) (*Bank, error) {
	if len(data) < 8 || !bytes.Equal(data[:8], AccountDiscriminator("Bank")) {
		return nil, errors.New("not a bank account")
	}

	var raw bankRaw
	if err := bin.NewBorshDecoder(data[8:]).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "decode bank")
	}

	cfg := raw.Config
	var oracleKeys []solana.PublicKey
	for _, k := range cfg.OracleKeys {
		if !k.IsZero() {
			oracleKeys = append(oracleKeys, k)
		}
	}

	bank := &Bank{
		Address:              address,
		Group:                raw.Group,
		Mint:                 raw.Mint,
		MintDecimals:         raw.MintDecimals,
		AssetShareValue:      raw.AssetShareValue.Decimal(),
		LiabilityShareValue:  raw.LiabShareValue.Decimal(),
		TotalAssetShares:     raw.TotalAssetShares.Decimal(),
		TotalLiabilityShares: raw.TotalLiabilityShares.Decimal(),
		Flags:                BankFlags(raw.Flags),
		BankConfig: BankConfig{
			AssetWeightInit:      cfg.AssetWeightInit.Decimal(),
			AssetWeightMaint:     cfg.AssetWeightMaint.Decimal(),
			LiabilityWeightInit:  cfg.LiabilityWeightInit.Decimal(),
			LiabilityWeightMaint: cfg.LiabilityWeightMaint.Decimal(),
			DepositLimit:         NativeToUi(cfg.DepositLimit, raw.MintDecimals),
			BorrowLimit:          NativeToUi(cfg.BorrowLimit, raw.MintDecimals),
			InterestRateConfig: InterestRateConfig{
				OptimalUtilizationRate: cfg.InterestRateConfig.OptimalUtilizationRate.Decimal(),
				PlateauInterestRate:    cfg.InterestRateConfig.PlateauInterestRate.Decimal(),
				MaxInterestRate:        cfg.InterestRateConfig.MaxInterestRate.Decimal(),
				InsuranceFeeFixedApr:   cfg.InterestRateConfig.InsuranceFeeFixedApr.Decimal(),
				InsuranceIrFee:         cfg.InterestRateConfig.InsuranceIrFee.Decimal(),
				ProtocolFixedFeeApr:    cfg.InterestRateConfig.ProtocolFixedFeeApr.Decimal(),
				ProtocolIrFee:          cfg.InterestRateConfig.ProtocolIrFee.Decimal(),
			},
			OperationalState:         BankOperationalState(cfg.OperationalState),
			RiskTier:                 RiskTier(cfg.RiskTier),
			AssetTag:                 AssetTag(cfg.AssetTag),
			TotalAssetValueInitLimit: decimal.NewFromUint64(cfg.TotalAssetValueInitLimit),
			OracleSetup:              OracleSetup(cfg.OracleSetup),
			OracleKeys:               oracleKeys,
			OracleMaxAge:             int64(cfg.OracleMaxAge),
			MaxConfidence:            cfg.MaxConfidence.Decimal(),
		},
		Emissions: EmissionsConfig{
			Mint:      raw.EmissionsMint,
			Rate:      decimal.NewFromUint64(raw.EmissionsRate),
			Remaining: raw.EmissionsRemaining.Decimal(),
		},
		EmodeSettings: raw.EmodeSettings.toEmodeSettings(),
		LastUpdate:    int64(raw.LastUpdate),
	}
	return bank, nil
}

func (raw *emodeSettingsRaw) toEmodeSettings() EmodeSettings {
	settings := EmodeSettings{
		EmodeTag:  raw.EmodeTag,
		Timestamp: int64(raw.Timestamp),
		Flags:     raw.Flags,
	}
	for _, entry := range raw.Entries {
		if entry.CollateralBankEmodeTag == 0 {
			continue
		}
		settings.Entries = append(settings.Entries, EmodeEntry{
			CollateralBankEmodeTag: entry.CollateralBankEmodeTag,
			Flags:                  entry.Flags,
			AssetWeightInit:        entry.AssetWeightInit.Decimal(),
			AssetWeightMaint:       entry.AssetWeightMaint.Decimal(),
		})
	}
	return settings
}
