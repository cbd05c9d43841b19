package ix

import (
	"bytes"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0dotxyz/marginfi-go/core"
)

func fixtureBank(tag core.AssetTag) *core.Bank {
	return &core.Bank{
		Address:             solana.NewWallet().PublicKey(),
		Group:               solana.NewWallet().PublicKey(),
		Mint:                solana.NewWallet().PublicKey(),
		MintDecimals:        6,
		AssetShareValue:     decimal.NewFromInt(1),
		LiabilityShareValue: decimal.NewFromInt(1),
		BankConfig: core.BankConfig{
			AssetTag:   tag,
			OracleKeys: []solana.PublicKey{solana.NewWallet().PublicKey()},
		},
	}
}

func fixtureBuilder(t *testing.T) (*Builder, *core.Bank, *core.Bank) {
	t.Helper()

	depositBank := fixtureBank(core.AssetTagDefault)
	borrowBank := fixtureBank(core.AssetTagDefault)

	account := &core.MarginfiAccount{
		Address:   solana.NewWallet().PublicKey(),
		Group:     depositBank.Group,
		Authority: solana.NewWallet().PublicKey(),
	}
	account.Balances[0] = core.Balance{
		Active:      true,
		BankPk:      depositBank.Address,
		AssetShares: decimal.NewFromInt(1000),
	}

	builder := &Builder{
		ProgramID: solana.NewWallet().PublicKey(),
		Group:     depositBank.Group,
		Account:   account,
		Banks: core.BankMap{
			depositBank.Address: depositBank,
			borrowBank.Address:  borrowBank,
		},
		Mints: core.MintMap{
			depositBank.Mint: {Mint: depositBank.Mint, TokenProgram: solana.TokenProgramID, Decimals: 6},
			borrowBank.Mint:  {Mint: borrowBank.Mint, TokenProgram: solana.TokenProgramID, Decimals: 6},
		},
	}
	return builder, depositBank, borrowBank
}

func TestInstructionDiscriminator(t *testing.T) {
	deposit := InstructionDiscriminator(IxLendingAccountDeposit)
	assert.Len(t, deposit, DISCRIMINATOR_SIZE)
	assert.Equal(t, deposit, InstructionDiscriminator(IxLendingAccountDeposit))
	assert.NotEqual(t, deposit, InstructionDiscriminator(IxLendingAccountWithdraw))
}

func TestHealthCheckBanksOrderAndExclusion(t *testing.T) {
	builder, depositBank, borrowBank := fixtureBuilder(t)
	account := builder.Account
	account.Balances[3] = core.Balance{
		Active:           true,
		BankPk:           borrowBank.Address,
		LiabilityShares:  decimal.NewFromInt(10),
	}

	banks, err := HealthCheckBanks(account, builder.Banks, nil, nil)
	require.NoError(t, err)
	require.Len(t, banks, 2)
	// slot order, not insertion or key order
	assert.Equal(t, depositBank.Address, banks[0].Address)
	assert.Equal(t, borrowBank.Address, banks[1].Address)

	banks, err = HealthCheckBanks(account, builder.Banks, nil, []solana.PublicKey{depositBank.Address})
	require.NoError(t, err)
	require.Len(t, banks, 1)
	assert.Equal(t, borrowBank.Address, banks[0].Address)
}

func TestHealthCheckBanksMandatoryAppended(t *testing.T) {
	builder, depositBank, borrowBank := fixtureBuilder(t)

	banks, err := HealthCheckBanks(builder.Account, builder.Banks, []solana.PublicKey{borrowBank.Address}, nil)
	require.NoError(t, err)
	require.Len(t, banks, 2)
	assert.Equal(t, depositBank.Address, banks[0].Address)
	assert.Equal(t, borrowBank.Address, banks[1].Address)

	// a mandatory bank that is already active is not duplicated
	banks, err = HealthCheckBanks(builder.Account, builder.Banks, []solana.PublicKey{depositBank.Address}, nil)
	require.NoError(t, err)
	assert.Len(t, banks, 1)
}

func TestHealthCheckBanksFreeSlotBound(t *testing.T) {
	builder, _, borrowBank := fixtureBuilder(t)
	account := builder.Account
	for i := range account.Balances {
		account.Balances[i] = core.Balance{
			Active:      true,
			BankPk:      solana.NewWallet().PublicKey(),
			AssetShares: decimal.NewFromInt(1),
		}
		builder.Banks[account.Balances[i].BankPk] = fixtureBank(core.AssetTagDefault)
	}

	_, err := HealthCheckBanks(account, builder.Banks, []solana.PublicKey{borrowBank.Address}, nil)
	var buildErr *TransactionBuildingError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, ReasonNoFreeBalanceSlot, buildErr.Reason)
}

func TestDepositInstructionShape(t *testing.T) {
	builder, depositBank, _ := fixtureBuilder(t)

	built, err := builder.Deposit(DepositArgs{Bank: depositBank.Address, Amount: 1_000_000})
	require.NoError(t, err)
	require.Len(t, built.Instructions, 1)
	assert.Empty(t, built.Signers)

	instruction := built.Instructions[0]
	assert.Equal(t, builder.ProgramID, instruction.ProgramID())

	data, err := instruction.Data()
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, InstructionDiscriminator(IxLendingAccountDeposit)))

	accounts := instruction.Accounts()
	require.GreaterOrEqual(t, len(accounts), 7)
	assert.Equal(t, builder.Group, accounts[0].PublicKey)
	assert.Equal(t, builder.Account.Address, accounts[1].PublicKey)
	assert.Equal(t, builder.Account.Authority, accounts[2].PublicKey)
	assert.True(t, accounts[2].IsSigner)
	assert.Equal(t, depositBank.Address, accounts[3].PublicKey)
	assert.Equal(t, solana.TokenProgramID, accounts[6].PublicKey)
}

func TestDepositRejectsZeroAmount(t *testing.T) {
	builder, depositBank, _ := fixtureBuilder(t)
	_, err := builder.Deposit(DepositArgs{Bank: depositBank.Address, Amount: 0})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}

func TestBorrowIncludesTargetBankInRemainingAccounts(t *testing.T) {
	builder, depositBank, borrowBank := fixtureBuilder(t)

	built, err := builder.Borrow(BorrowArgs{Bank: borrowBank.Address, Amount: 500})
	require.NoError(t, err)
	require.Len(t, built.Instructions, 1)

	accounts := built.Instructions[0].Accounts()
	var keys []solana.PublicKey
	for _, meta := range accounts {
		keys = append(keys, meta.PublicKey)
	}
	assert.Contains(t, keys, depositBank.Address)
	assert.Contains(t, keys, borrowBank.Address)
	assert.Contains(t, keys, depositBank.OracleKeys[0])
	assert.Contains(t, keys, borrowBank.OracleKeys[0])
}

func TestWithdrawAllExcludesOwnBank(t *testing.T) {
	builder, depositBank, _ := fixtureBuilder(t)

	built, err := builder.Withdraw(WithdrawArgs{Bank: depositBank.Address, Amount: 1000, WithdrawAll: true})
	require.NoError(t, err)

	accounts := built.Instructions[0].Accounts()
	// the bank appears once as the instruction's own account; a second
	// occurrence would mean it leaked into the health-check remaining list
	occurrences := 0
	for _, meta := range accounts {
		if meta.PublicKey.Equals(depositBank.Address) {
			occurrences++
		}
	}
	assert.Equal(t, 1, occurrences)
}

func TestKaminoBankWithoutReserveFails(t *testing.T) {
	builder, _, _ := fixtureBuilder(t)
	kaminoBank := fixtureBank(core.AssetTagKamino)
	builder.Banks[kaminoBank.Address] = kaminoBank
	builder.Mints[kaminoBank.Mint] = core.MintInfo{Mint: kaminoBank.Mint, TokenProgram: solana.TokenProgramID, Decimals: 6}

	_, err := builder.Deposit(DepositArgs{Bank: kaminoBank.Address, Amount: 100})
	var buildErr *TransactionBuildingError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, ReasonKaminoReserveNotFound, buildErr.Reason)
}

func TestKaminoBankDispatchesDedicatedInstruction(t *testing.T) {
	builder, _, _ := fixtureBuilder(t)
	kaminoBank := fixtureBank(core.AssetTagKamino)
	kaminoBank.Integration = &core.IntegrationAccounts{
		KaminoReserve:       solana.NewWallet().PublicKey(),
		KaminoObligation:    solana.NewWallet().PublicKey(),
		KaminoLendingMarket: solana.NewWallet().PublicKey(),
	}
	builder.Banks[kaminoBank.Address] = kaminoBank
	builder.Mints[kaminoBank.Mint] = core.MintInfo{Mint: kaminoBank.Mint, TokenProgram: solana.TokenProgramID, Decimals: 6}

	built, err := builder.Deposit(DepositArgs{Bank: kaminoBank.Address, Amount: 100})
	require.NoError(t, err)

	data, err := built.Instructions[0].Data()
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, InstructionDiscriminator(IxKaminoDeposit)))

	accounts := built.Instructions[0].Accounts()
	var keys []solana.PublicKey
	for _, meta := range accounts {
		keys = append(keys, meta.PublicKey)
	}
	assert.Contains(t, keys, kaminoBank.Integration.KaminoReserve)
	assert.Contains(t, keys, KaminoLendProgramID)
}

func TestDepositWrapNative(t *testing.T) {
	builder, _, _ := fixtureBuilder(t)
	solBank := fixtureBank(core.AssetTagSol)
	solBank.Mint = solana.WrappedSol
	builder.Banks[solBank.Address] = solBank
	builder.Mints[solana.WrappedSol] = core.MintInfo{Mint: solana.WrappedSol, TokenProgram: solana.TokenProgramID, Decimals: 9}

	built, err := builder.Deposit(DepositArgs{Bank: solBank.Address, Amount: 1_000_000_000, WrapNative: true})
	require.NoError(t, err)
	// create + initialize, deposit, close
	assert.Len(t, built.Instructions, 4)
	assert.Equal(t, solana.SystemProgramID, built.Instructions[0].ProgramID())
	assert.Equal(t, solana.TokenProgramID, built.Instructions[1].ProgramID())
	assert.Equal(t, builder.ProgramID, built.Instructions[2].ProgramID())
	assert.Equal(t, solana.TokenProgramID, built.Instructions[3].ProgramID())
}

func TestBeginEndFlashloan(t *testing.T) {
	builder, depositBank, _ := fixtureBuilder(t)

	begin, err := builder.BeginFlashloan(5, AccountOverrides{})
	require.NoError(t, err)
	accounts := begin.Instructions[0].Accounts()
	require.Len(t, accounts, 3)
	assert.Equal(t, solana.SysVarInstructionsPubkey, accounts[2].PublicKey)

	end, err := builder.EndFlashloan([]*core.Bank{depositBank}, AccountOverrides{})
	require.NoError(t, err)
	endAccounts := end.Instructions[0].Accounts()
	require.Len(t, endAccounts, 4)
	assert.Equal(t, depositBank.Address, endAccounts[2].PublicKey)
	assert.Equal(t, depositBank.OracleKeys[0], endAccounts[3].PublicKey)
}

func TestInitAccountReturnsEphemeralSigner(t *testing.T) {
	builder, _, _ := fixtureBuilder(t)

	built, accountPk, err := builder.InitAccount(AccountOverrides{})
	require.NoError(t, err)
	require.Len(t, built.Signers, 1)
	assert.Equal(t, accountPk, built.Signers[0].PublicKey())
	assert.False(t, accountPk.IsZero())
}

func TestCreateAtaInstructionToken2022(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	wallet := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	instruction := MakeCreateAtaInstruction(payer, wallet, mint, solana.Token2022ProgramID)

	assert.Equal(t, solana.SPLAssociatedTokenAccountProgramID, instruction.ProgramID())
	accounts := instruction.Accounts()
	require.Len(t, accounts, 6)
	// the created account must match the one the builders reference, which
	// is derived with the mint's own token program
	assert.Equal(t, GetAssociatedTokenAddress(wallet, solana.Token2022ProgramID, mint), accounts[1].PublicKey)
	assert.True(t, accounts[0].IsSigner)
	assert.True(t, accounts[0].IsWritable)
	assert.True(t, accounts[1].IsWritable)
	assert.Equal(t, wallet, accounts[2].PublicKey)
	assert.Equal(t, mint, accounts[3].PublicKey)
	assert.Equal(t, solana.SystemProgramID, accounts[4].PublicKey)
	assert.Equal(t, solana.Token2022ProgramID, accounts[5].PublicKey)
}
