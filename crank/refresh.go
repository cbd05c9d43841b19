package crank

import (
	"github.com/gagliardetto/solana-go"

	"github.com/0dotxyz/marginfi-go/core"
	"github.com/0dotxyz/marginfi-go/ix"
)

const (
	ixKaminoRefreshReserve = "refresh_reserve"
	ixDriftUpdateInterest  = "update_spot_market_cumulative_interest"
)

// IntegrationRefreshInstructions produces the reserve/market refresh
// instructions integration-tagged banks need before a health check.
// Banks missing their integration accounts fail loudly rather than being
// skipped, since an unrefreshed reserve makes the health check lie.
func IntegrationRefreshInstructions(banks []*core.Bank) ([]solana.Instruction, error) {
	var instructions []solana.Instruction
	for _, bank := range banks {
		switch bank.AssetTag {
		case core.AssetTagKamino:
			instruction, err := kaminoRefreshReserve(bank)
			if err != nil {
				return nil, err
			}
			instructions = append(instructions, instruction)
		case core.AssetTagDrift:
			instruction, err := driftRefreshSpotMarket(bank)
			if err != nil {
				return nil, err
			}
			instructions = append(instructions, instruction)
		}
	}
	return instructions, nil
}

func kaminoRefreshReserve(bank *core.Bank) (solana.Instruction, error) {
	integration := bank.Integration
	if integration == nil || integration.KaminoReserve.IsZero() {
		return nil, ix.NewBuildError(ix.ReasonKaminoReserveNotFound, bank.Address)
	}
	metas := solana.AccountMetaSlice{
		solana.Meta(integration.KaminoReserve).WRITE(),
		solana.Meta(integration.KaminoLendingMarket),
	}
	for _, oracle := range bank.OracleKeys {
		if oracle.IsZero() {
			continue
		}
		metas = append(metas, solana.Meta(oracle))
	}
	data := ix.InstructionDiscriminator(ixKaminoRefreshReserve)
	return solana.NewInstruction(ix.KaminoLendProgramID, metas, data), nil
}

func driftRefreshSpotMarket(bank *core.Bank) (solana.Instruction, error) {
	integration := bank.Integration
	if integration == nil || integration.DriftSpotMarket.IsZero() {
		return nil, ix.NewBuildError(ix.ReasonDriftStateNotFound, bank.Address)
	}
	metas := solana.AccountMetaSlice{
		solana.Meta(integration.DriftSpotMarket).WRITE(),
	}
	for _, oracle := range bank.OracleKeys {
		if oracle.IsZero() {
			continue
		}
		metas = append(metas, solana.Meta(oracle))
	}
	data := ix.InstructionDiscriminator(ixDriftUpdateInterest)
	return solana.NewInstruction(ix.DriftProgramID, metas, data), nil
}
