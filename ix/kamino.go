package ix

import (
	"github.com/gagliardetto/solana-go"

	"github.com/0dotxyz/marginfi-go/core"
)

const (
	IxKaminoDeposit  = "kamino_deposit"
	IxKaminoWithdraw = "kamino_withdraw"
)

// KaminoLendProgramID is the Kamino Lending program the integration banks
// route liquidity through.
var KaminoLendProgramID = solana.MustPublicKeyFromBase58("KLend2g3cP87fffoy8q1mQqGKjrxjC8boSyAYavgmjD")

// kaminoMetas resolves the extra accounts a Kamino-tagged bank's
// deposit/withdraw needs: the reserve, the bank's obligation, the lending
// market and its authority, and the farm state when the reserve has one.
func kaminoMetas(bank *core.Bank) (solana.AccountMetaSlice, error) {
	integration := bank.Integration
	if integration == nil || integration.KaminoReserve.IsZero() {
		return nil, NewBuildError(ReasonKaminoReserveNotFound, bank.Address)
	}

	metas := solana.AccountMetaSlice{
		solana.Meta(integration.KaminoReserve).WRITE(),
		solana.Meta(integration.KaminoObligation).WRITE(),
		solana.Meta(integration.KaminoLendingMarket),
		solana.Meta(GetKaminoLendingMarketAuthorityPublicKey(KaminoLendProgramID, integration.KaminoLendingMarket)),
		solana.Meta(KaminoLendProgramID),
	}
	if !integration.KaminoFarmState.IsZero() {
		metas = append(metas, solana.Meta(integration.KaminoFarmState).WRITE())
	}
	return metas, nil
}
