package core

type RequirementType uint8

const (
	Initial RequirementType = iota
	Maintenance
	Equity
)

func (rt RequirementType) String() string {
	switch rt {
	case Initial:
		return "Initial"
	case Maintenance:
		return "Maintenance"
	case Equity:
		return "Equity"
	default:
		return "Unknown"
	}
}

// IsWeighted reports whether valuations under this requirement type apply
// the widened (weighted) confidence interval.
func (rt RequirementType) IsWeighted() bool {
	return rt == Initial
}

type PriceBias uint8

const (
	Low PriceBias = iota
	High
	None
)

func (pb PriceBias) String() string {
	switch pb {
	case Low:
		return "Low"
	case High:
		return "High"
	case None:
		return "None"
	default:
		return "Unknown"
	}
}

type BalanceSide uint8

const (
	BalanceSideAssets BalanceSide = iota
	BalanceSideLiabilities
	BalanceSideEmpty
)

func (bs BalanceSide) String() string {
	switch bs {
	case BalanceSideAssets:
		return "Assets"
	case BalanceSideLiabilities:
		return "Liabilities"
	case BalanceSideEmpty:
		return "Empty"
	default:
		return "Unknown"
	}
}

// AssetTag identifies the integration backing a bank. It is a closed set:
// builders dispatch on it exhaustively and reject unknown values.
type AssetTag uint8

const (
	AssetTagDefault AssetTag = iota
	AssetTagSol
	AssetTagStaked
	AssetTagKamino
	AssetTagDrift
	AssetTagSolend
)

func (at AssetTag) String() string {
	switch at {
	case AssetTagDefault:
		return "Default"
	case AssetTagSol:
		return "SOL"
	case AssetTagStaked:
		return "Staked"
	case AssetTagKamino:
		return "Kamino"
	case AssetTagDrift:
		return "Drift"
	case AssetTagSolend:
		return "Solend"
	default:
		return "Unknown"
	}
}

type OracleSetup uint8

const (
	OracleSetupNone OracleSetup = iota
	OracleSetupPythPush
	OracleSetupPythPull
	OracleSetupSwitchboardV2
	OracleSetupSwitchboardPull
	OracleSetupFixed
)

func (os OracleSetup) String() string {
	switch os {
	case OracleSetupNone:
		return "None"
	case OracleSetupPythPush:
		return "PythPush"
	case OracleSetupPythPull:
		return "PythPull"
	case OracleSetupSwitchboardV2:
		return "SwitchboardV2"
	case OracleSetupSwitchboardPull:
		return "SwitchboardPull"
	case OracleSetupFixed:
		return "Fixed"
	default:
		return "Unknown"
	}
}

// IsPull reports whether the feed is crank-driven and may need an update
// instruction before a health check can read a fresh price.
func (os OracleSetup) IsPull() bool {
	return os == OracleSetupPythPull || os == OracleSetupSwitchboardPull
}

type RiskTier uint8

const (
	Collateral RiskTier = iota
	Isolated
)

type BankOperationalState uint8

const (
	BankOperationalStatePaused BankOperationalState = iota
	BankOperationalStateOperational
	BankOperationalStateReduceOnly
)

func (bos BankOperationalState) String() string {
	switch bos {
	case BankOperationalStatePaused:
		return "Paused"
	case BankOperationalStateOperational:
		return "Operational"
	case BankOperationalStateReduceOnly:
		return "Reduce Only"
	default:
		return "Unknown"
	}
}

type AccountFlags uint64

const (
	DisabledFlag                 AccountFlags = 1 << 0
	InFlashloanFlag              AccountFlags = 1 << 1
	FlashloanEnabledFlag         AccountFlags = 1 << 2
	TransferAuthorityAllowedFlag AccountFlags = 1 << 3
)

type BankFlags uint64

const (
	BankFlagsEmissionsBorrowActive  BankFlags = 1 << 0
	BankFlagsEmissionsLendingActive BankFlags = 1 << 1
	BankFlagsPermissionlessBadDebt  BankFlags = 1 << 2

	BankFlagsEmissionsActive BankFlags = BankFlagsEmissionsBorrowActive | BankFlagsEmissionsLendingActive
)
