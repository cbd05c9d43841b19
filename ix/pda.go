package ix

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

func GetLiquidityVaultAuthorityPublicKey(
	programId solana.PublicKey,
	bank solana.PublicKey,
) solana.PublicKey {
	address, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("liquidity_vault_auth"), bank.Bytes()},
		programId,
	)
	if err != nil {
		return solana.PublicKey{}
	}
	return address
}

func GetLiquidityVaultPublicKey(
	programId solana.PublicKey,
	bank solana.PublicKey,
) solana.PublicKey {
	address, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("liquidity_vault"), bank.Bytes()},
		programId,
	)
	if err != nil {
		return solana.PublicKey{}
	}
	return address
}

func GetInsuranceVaultPublicKey(
	programId solana.PublicKey,
	bank solana.PublicKey,
) solana.PublicKey {
	address, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("insurance_vault"), bank.Bytes()},
		programId,
	)
	if err != nil {
		return solana.PublicKey{}
	}
	return address
}

func GetFeeVaultPublicKey(
	programId solana.PublicKey,
	bank solana.PublicKey,
) solana.PublicKey {
	address, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("fee_vault"), bank.Bytes()},
		programId,
	)
	if err != nil {
		return solana.PublicKey{}
	}
	return address
}

func GetEmissionsAuthorityPublicKey(
	programId solana.PublicKey,
	bank solana.PublicKey,
	emissionsMint solana.PublicKey,
) solana.PublicKey {
	address, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("emissions_auth_seed"), bank.Bytes(), emissionsMint.Bytes()},
		programId,
	)
	if err != nil {
		return solana.PublicKey{}
	}
	return address
}

func GetEmissionsVaultPublicKey(
	programId solana.PublicKey,
	bank solana.PublicKey,
	emissionsMint solana.PublicKey,
) solana.PublicKey {
	address, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("emissions_token_account_seed"), bank.Bytes(), emissionsMint.Bytes()},
		programId,
	)
	if err != nil {
		return solana.PublicKey{}
	}
	return address
}

func GetDriftUserPublicKey(
	driftProgramId solana.PublicKey,
	authority solana.PublicKey,
	subAccountId uint16,
) solana.PublicKey {
	seed := make([]byte, 2)
	binary.LittleEndian.PutUint16(seed, subAccountId)
	address, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("user"), authority.Bytes(), seed},
		driftProgramId,
	)
	if err != nil {
		return solana.PublicKey{}
	}
	return address
}

func GetDriftUserStatsPublicKey(
	driftProgramId solana.PublicKey,
	authority solana.PublicKey,
) solana.PublicKey {
	address, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("user_stats"), authority.Bytes()},
		driftProgramId,
	)
	if err != nil {
		return solana.PublicKey{}
	}
	return address
}

func GetDriftSpotMarketVaultPublicKey(
	driftProgramId solana.PublicKey,
	marketIndex uint16,
) solana.PublicKey {
	index := make([]byte, 2)
	binary.LittleEndian.PutUint16(index, marketIndex)
	address, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("spot_market_vault"), index},
		driftProgramId,
	)
	if err != nil {
		return solana.PublicKey{}
	}
	return address
}

func GetKaminoLendingMarketAuthorityPublicKey(
	kaminoProgramId solana.PublicKey,
	lendingMarket solana.PublicKey,
) solana.PublicKey {
	address, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("lma"), lendingMarket.Bytes()},
		kaminoProgramId,
	)
	if err != nil {
		return solana.PublicKey{}
	}
	return address
}

// GetAssociatedTokenAddress derives the ATA for any token program,
// including token-2022 mints which the stock helper does not cover.
func GetAssociatedTokenAddress(
	wallet solana.PublicKey,
	tokenProgram solana.PublicKey,
	mint solana.PublicKey,
) solana.PublicKey {
	address, _, err := solana.FindProgramAddress(
		[][]byte{wallet.Bytes(), tokenProgram.Bytes(), mint.Bytes()},
		solana.SPLAssociatedTokenAccountProgramID,
	)
	if err != nil {
		return solana.PublicKey{}
	}
	return address
}
