package ix

import (
	"github.com/gagliardetto/solana-go"

	"github.com/0dotxyz/marginfi-go/core"
)

const (
	IxSolendDeposit  = "solend_deposit"
	IxSolendWithdraw = "solend_withdraw"
)

var SolendProgramID = solana.MustPublicKeyFromBase58("So1endDq2YkqhipRh3WViPa8hdiSpxWy6z3Z6tMCpAo")

func solendMetas(bank *core.Bank) (solana.AccountMetaSlice, error) {
	integration := bank.Integration
	if integration == nil || integration.SolendReserve.IsZero() {
		return nil, NewBuildError(ReasonSolendReserveNotFound, bank.Address)
	}

	return solana.AccountMetaSlice{
		solana.Meta(integration.SolendReserve).WRITE(),
		solana.Meta(integration.SolendObligation).WRITE(),
		solana.Meta(SolendProgramID),
	}, nil
}
