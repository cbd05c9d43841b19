package ix

import (
	"github.com/gagliardetto/solana-go"

	"github.com/0dotxyz/marginfi-go/core"
)

const (
	IxDriftDeposit  = "drift_deposit"
	IxDriftWithdraw = "drift_withdraw"
)

var DriftProgramID = solana.MustPublicKeyFromBase58("dRiftyHA39MWEi3m9aunc5MzRF1JYuBsbn6VPcn33UH")

// driftMetas resolves the extra accounts a Drift-tagged bank's
// deposit/withdraw needs: the spot market and its vault, the bank's user
// and user-stats accounts, and up to two reward spot markets.
func driftMetas(bank *core.Bank) (solana.AccountMetaSlice, error) {
	integration := bank.Integration
	if integration == nil || integration.DriftSpotMarket.IsZero() {
		return nil, NewBuildError(ReasonDriftStateNotFound, bank.Address)
	}

	metas := solana.AccountMetaSlice{
		solana.Meta(integration.DriftSpotMarket).WRITE(),
		solana.Meta(GetDriftSpotMarketVaultPublicKey(DriftProgramID, integration.DriftMarketIndex)).WRITE(),
		solana.Meta(integration.DriftUser).WRITE(),
		solana.Meta(integration.DriftUserStats).WRITE(),
		solana.Meta(DriftProgramID),
	}
	for i, rewardMint := range integration.DriftRewardMints {
		if i == 2 {
			break
		}
		metas = append(metas, solana.Meta(rewardMint))
	}
	return metas, nil
}
