package ix

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/0dotxyz/marginfi-go/core"
)

// Builder assembles program instructions from an immutable snapshot. It
// holds no connection and performs no fetches; every account it cannot
// derive must be present in the snapshot or supplied via overrides.
type Builder struct {
	ProgramID solana.PublicKey
	Group     solana.PublicKey

	Account *core.MarginfiAccount
	Banks   core.BankMap
	Mints   core.MintMap
}

// Built is the result of one builder call: the ordered instruction list
// plus any ephemeral signers the caller must co-sign with.
type Built struct {
	Instructions []solana.Instruction
	Signers      []solana.PrivateKey
}

type DepositArgs struct {
	Bank             solana.PublicKey
	Amount           uint64
	DepositUpToLimit bool
	WrapNative       bool
	Overrides        AccountOverrides
}

type WithdrawArgs struct {
	Bank         solana.PublicKey
	Amount       uint64
	WithdrawAll  bool
	UnwrapNative bool
	CreateAta    bool
	Overrides    AccountOverrides
}

type BorrowArgs struct {
	Bank         solana.PublicKey
	Amount       uint64
	UnwrapNative bool
	CreateAta    bool
	Overrides    AccountOverrides
}

type RepayArgs struct {
	Bank       solana.PublicKey
	Amount     uint64
	RepayAll   bool
	WrapNative bool
	Overrides  AccountOverrides
}

type depositIxArgs struct {
	Amount           bin.Uint64
	DepositUpToLimit *bool
}

type withdrawIxArgs struct {
	Amount      bin.Uint64
	WithdrawAll *bool
}

type borrowIxArgs struct {
	Amount bin.Uint64
}

type repayIxArgs struct {
	Amount   bin.Uint64
	RepayAll *bool
}

type startFlashloanIxArgs struct {
	EndIndex bin.Uint64
}

func encodeInstructionData(name string, args interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(InstructionDiscriminator(name))
	if args != nil {
		if err := bin.NewBorshEncoder(buf).Encode(args); err != nil {
			return nil, errors.Wrapf(err, "encode %s args", name)
		}
	}
	return buf.Bytes(), nil
}

func optBool(set bool) *bool {
	if !set {
		return nil
	}
	v := true
	return &v
}

func (b *Builder) authority(ov AccountOverrides) solana.PublicKey {
	return pick(ov.Authority, b.Account.Authority)
}

func (b *Builder) marginfiAccount(ov AccountOverrides) solana.PublicKey {
	return pick(ov.MarginfiAccount, b.Account.Address)
}

func (b *Builder) group(ov AccountOverrides) solana.PublicKey {
	return pick(ov.Group, b.Group)
}

// tokenAccountFor resolves the caller-side token account for a bank's mint:
// the override if given, else the authority's ATA under the mint's token
// program.
func (b *Builder) tokenAccountFor(bank *core.Bank, ov AccountOverrides) (solana.PublicKey, solana.PublicKey, error) {
	mintInfo, err := b.Mints.Get(bank.Mint)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, err
	}
	tokenProgram := mintInfo.TokenProgram
	if !ov.TokenAccount.IsZero() {
		return ov.TokenAccount, tokenProgram, nil
	}
	ata := GetAssociatedTokenAddress(b.authority(ov), tokenProgram, bank.Mint)
	return ata, tokenProgram, nil
}

// Deposit moves tokens from the caller's token account into the bank's
// liquidity vault. For the wrapped-native mint, WrapNative prepends a seeded
// ephemeral token account funded with the deposit amount and appends its
// close.
func (b *Builder) Deposit(args DepositArgs) (*Built, error) {
	if args.Amount == 0 {
		return nil, core.ErrInvalidAmount
	}
	bank, err := b.Banks.Get(args.Bank)
	if err != nil {
		return nil, err
	}

	built := &Built{}
	authority := b.authority(args.Overrides)

	tokenAccount, tokenProgram, err := b.tokenAccountFor(bank, args.Overrides)
	if err != nil {
		return nil, err
	}
	if args.WrapNative && bank.Mint.Equals(solana.WrappedSol) {
		wrapIxs, wsolAccount, err := MakeWrapSolInstructions(authority, args.Amount)
		if err != nil {
			return nil, err
		}
		built.Instructions = append(built.Instructions, wrapIxs...)
		tokenAccount = wsolAccount
		tokenProgram = solana.TokenProgramID
	}

	data, err := encodeInstructionData(depositIxName(bank), depositIxArgs{
		Amount:           bin.Uint64(args.Amount),
		DepositUpToLimit: optBool(args.DepositUpToLimit),
	})
	if err != nil {
		return nil, err
	}

	metas := solana.AccountMetaSlice{
		solana.Meta(b.group(args.Overrides)),
		solana.Meta(b.marginfiAccount(args.Overrides)).WRITE(),
		solana.Meta(authority).SIGNER(),
		solana.Meta(bank.Address).WRITE(),
		solana.Meta(tokenAccount).WRITE(),
		solana.Meta(pick(args.Overrides.LiquidityVault, GetLiquidityVaultPublicKey(b.ProgramID, bank.Address))).WRITE(),
		solana.Meta(tokenProgram),
	}
	if tokenProgram.Equals(solana.Token2022ProgramID) {
		metas = append(metas, solana.Meta(bank.Mint))
	}
	integrationMetas, err := integrationMetasFor(bank)
	if err != nil {
		return nil, err
	}
	metas = append(metas, integrationMetas...)

	built.Instructions = append(built.Instructions, solana.NewInstruction(b.ProgramID, metas, data))

	if args.WrapNative && bank.Mint.Equals(solana.WrappedSol) {
		built.Instructions = append(built.Instructions, MakeUnwrapSolInstruction(tokenAccount, authority))
	}
	return built, nil
}

// Withdraw pulls tokens out of the bank's liquidity vault. The instruction
// triggers an on-chain health check, so the remaining accounts must cover
// every bank relevant to the account's risk; a full withdrawal excludes the
// bank itself since the position ceases to exist.
func (b *Builder) Withdraw(args WithdrawArgs) (*Built, error) {
	if args.Amount == 0 && !args.WithdrawAll {
		return nil, core.ErrInvalidAmount
	}
	bank, err := b.Banks.Get(args.Bank)
	if err != nil {
		return nil, err
	}

	data, err := encodeInstructionData(withdrawIxName(bank), withdrawIxArgs{
		Amount:      bin.Uint64(args.Amount),
		WithdrawAll: optBool(args.WithdrawAll),
	})
	if err != nil {
		return nil, err
	}

	var excluded []solana.PublicKey
	if args.WithdrawAll {
		excluded = append(excluded, bank.Address)
	}
	healthBanks, err := HealthCheckBanks(b.Account, b.Banks, nil, excluded)
	if err != nil {
		return nil, err
	}

	return b.vaultOutflow(bank, data, healthBanks, args.CreateAta, args.UnwrapNative, args.Overrides)
}

// Borrow creates debt against the account. The target bank is mandatory in
// the health-check list even when the account holds no position in it yet.
func (b *Builder) Borrow(args BorrowArgs) (*Built, error) {
	if args.Amount == 0 {
		return nil, core.ErrInvalidAmount
	}
	bank, err := b.Banks.Get(args.Bank)
	if err != nil {
		return nil, err
	}

	data, err := encodeInstructionData(IxLendingAccountBorrow, borrowIxArgs{
		Amount: bin.Uint64(args.Amount),
	})
	if err != nil {
		return nil, err
	}

	healthBanks, err := HealthCheckBanks(b.Account, b.Banks, []solana.PublicKey{bank.Address}, nil)
	if err != nil {
		return nil, err
	}

	return b.vaultOutflow(bank, data, healthBanks, args.CreateAta, args.UnwrapNative, args.Overrides)
}

// vaultOutflow is the shared account shape of withdraw and borrow: tokens
// leave the liquidity vault under the vault authority's signature.
func (b *Builder) vaultOutflow(
	bank *core.Bank,
	data []byte,
	healthBanks []*core.Bank,
	createAta bool,
	unwrapNative bool,
	ov AccountOverrides,
) (*Built, error) {
	built := &Built{}
	authority := b.authority(ov)

	tokenAccount, tokenProgram, err := b.tokenAccountFor(bank, ov)
	if err != nil {
		return nil, err
	}
	if createAta && ov.TokenAccount.IsZero() {
		built.Instructions = append(built.Instructions,
			MakeCreateAtaInstruction(pick(ov.FeePayer, authority), authority, bank.Mint, tokenProgram))
	}

	metas := solana.AccountMetaSlice{
		solana.Meta(b.group(ov)),
		solana.Meta(b.marginfiAccount(ov)).WRITE(),
		solana.Meta(authority).SIGNER(),
		solana.Meta(bank.Address).WRITE(),
		solana.Meta(tokenAccount).WRITE(),
		solana.Meta(pick(ov.LiquidityVaultAuthority, GetLiquidityVaultAuthorityPublicKey(b.ProgramID, bank.Address))),
		solana.Meta(pick(ov.LiquidityVault, GetLiquidityVaultPublicKey(b.ProgramID, bank.Address))).WRITE(),
		solana.Meta(tokenProgram),
	}
	if tokenProgram.Equals(solana.Token2022ProgramID) {
		metas = append(metas, solana.Meta(bank.Mint))
	}
	integrationMetas, err := integrationMetasFor(bank)
	if err != nil {
		return nil, err
	}
	metas = append(metas, integrationMetas...)
	metas = append(metas, HealthCheckMetas(healthBanks)...)

	built.Instructions = append(built.Instructions, solana.NewInstruction(b.ProgramID, metas, data))

	if unwrapNative && bank.Mint.Equals(solana.WrappedSol) {
		built.Instructions = append(built.Instructions, MakeUnwrapSolInstruction(tokenAccount, authority))
	}
	return built, nil
}

// Repay returns borrowed tokens to the liquidity vault.
func (b *Builder) Repay(args RepayArgs) (*Built, error) {
	if args.Amount == 0 && !args.RepayAll {
		return nil, core.ErrInvalidAmount
	}
	bank, err := b.Banks.Get(args.Bank)
	if err != nil {
		return nil, err
	}

	built := &Built{}
	authority := b.authority(args.Overrides)

	tokenAccount, tokenProgram, err := b.tokenAccountFor(bank, args.Overrides)
	if err != nil {
		return nil, err
	}
	if args.WrapNative && bank.Mint.Equals(solana.WrappedSol) {
		wrapIxs, wsolAccount, err := MakeWrapSolInstructions(authority, args.Amount)
		if err != nil {
			return nil, err
		}
		built.Instructions = append(built.Instructions, wrapIxs...)
		tokenAccount = wsolAccount
		tokenProgram = solana.TokenProgramID
	}

	data, err := encodeInstructionData(IxLendingAccountRepay, repayIxArgs{
		Amount:   bin.Uint64(args.Amount),
		RepayAll: optBool(args.RepayAll),
	})
	if err != nil {
		return nil, err
	}

	metas := solana.AccountMetaSlice{
		solana.Meta(b.group(args.Overrides)),
		solana.Meta(b.marginfiAccount(args.Overrides)).WRITE(),
		solana.Meta(authority).SIGNER(),
		solana.Meta(bank.Address).WRITE(),
		solana.Meta(tokenAccount).WRITE(),
		solana.Meta(pick(args.Overrides.LiquidityVault, GetLiquidityVaultPublicKey(b.ProgramID, bank.Address))).WRITE(),
		solana.Meta(tokenProgram),
	}
	if tokenProgram.Equals(solana.Token2022ProgramID) {
		metas = append(metas, solana.Meta(bank.Mint))
	}

	built.Instructions = append(built.Instructions, solana.NewInstruction(b.ProgramID, metas, data))

	if args.WrapNative && bank.Mint.Equals(solana.WrappedSol) {
		built.Instructions = append(built.Instructions, MakeUnwrapSolInstruction(tokenAccount, authority))
	}
	return built, nil
}

// BeginFlashloan opens the flash-loan envelope. EndIndex is the position of
// the matching end-flash-loan instruction in the final transaction, which
// the program verifies against the instructions sysvar.
func (b *Builder) BeginFlashloan(endIndex uint64, ov AccountOverrides) (*Built, error) {
	data, err := encodeInstructionData(IxLendingAccountStartFlashloan, startFlashloanIxArgs{
		EndIndex: bin.Uint64(endIndex),
	})
	if err != nil {
		return nil, err
	}
	metas := solana.AccountMetaSlice{
		solana.Meta(b.marginfiAccount(ov)).WRITE(),
		solana.Meta(b.authority(ov)).SIGNER(),
		solana.Meta(solana.SysVarInstructionsPubkey),
	}
	return &Built{Instructions: []solana.Instruction{
		solana.NewInstruction(b.ProgramID, metas, data),
	}}, nil
}

// EndFlashloan closes the envelope. The health check runs against the
// post-action balance set, so callers pass the projected banks, not the
// pre-action ones.
func (b *Builder) EndFlashloan(projectedBanks []*core.Bank, ov AccountOverrides) (*Built, error) {
	data, err := encodeInstructionData(IxLendingAccountEndFlashloan, nil)
	if err != nil {
		return nil, err
	}
	metas := solana.AccountMetaSlice{
		solana.Meta(b.marginfiAccount(ov)).WRITE(),
		solana.Meta(b.authority(ov)).SIGNER(),
	}
	metas = append(metas, HealthCheckMetas(projectedBanks)...)
	return &Built{Instructions: []solana.Instruction{
		solana.NewInstruction(b.ProgramID, metas, data),
	}}, nil
}

// WithdrawEmissions claims outstanding emissions for one bank into the
// authority's ATA for the emissions mint.
func (b *Builder) WithdrawEmissions(bankPk solana.PublicKey, ov AccountOverrides) (*Built, error) {
	bank, err := b.Banks.Get(bankPk)
	if err != nil {
		return nil, err
	}
	emissionsMint := bank.Emissions.Mint
	if emissionsMint.IsZero() {
		return nil, errors.Errorf("bank %s has no emissions configured", bankPk)
	}
	tokenProgram := solana.TokenProgramID
	if info, err := b.Mints.Get(emissionsMint); err == nil {
		tokenProgram = info.TokenProgram
	}
	authority := b.authority(ov)
	destination := pick(ov.TokenAccount, GetAssociatedTokenAddress(authority, tokenProgram, emissionsMint))

	data, err := encodeInstructionData(IxLendingAccountWithdrawEmissions, nil)
	if err != nil {
		return nil, err
	}
	metas := solana.AccountMetaSlice{
		solana.Meta(b.group(ov)),
		solana.Meta(b.marginfiAccount(ov)).WRITE(),
		solana.Meta(authority).SIGNER(),
		solana.Meta(bank.Address).WRITE(),
		solana.Meta(emissionsMint),
		solana.Meta(GetEmissionsAuthorityPublicKey(b.ProgramID, bank.Address, emissionsMint)),
		solana.Meta(GetEmissionsVaultPublicKey(b.ProgramID, bank.Address, emissionsMint)).WRITE(),
		solana.Meta(destination).WRITE(),
		solana.Meta(tokenProgram),
	}
	return &Built{Instructions: []solana.Instruction{
		solana.NewInstruction(b.ProgramID, metas, data),
	}}, nil
}

// PulseHealth refreshes the account's on-chain health cache. The remaining
// accounts must cover the active banks plus any mandatory additions the
// caller wants observed.
func (b *Builder) PulseHealth(mandatoryBanks, excludedBanks []solana.PublicKey, ov AccountOverrides) (*Built, error) {
	data, err := encodeInstructionData(IxLendingAccountPulseHealth, nil)
	if err != nil {
		return nil, err
	}
	healthBanks, err := HealthCheckBanks(b.Account, b.Banks, mandatoryBanks, excludedBanks)
	if err != nil {
		return nil, err
	}
	metas := solana.AccountMetaSlice{
		solana.Meta(b.marginfiAccount(ov)).WRITE(),
	}
	metas = append(metas, HealthCheckMetas(healthBanks)...)
	return &Built{Instructions: []solana.Instruction{
		solana.NewInstruction(b.ProgramID, metas, data),
	}}, nil
}

// InitAccount creates a fresh marginfi account owned by the authority. The
// generated account keypair is returned as an ephemeral signer.
func (b *Builder) InitAccount(ov AccountOverrides) (*Built, solana.PublicKey, error) {
	accountKeypair := solana.NewWallet()
	authority := b.authority(ov)
	feePayer := pick(ov.FeePayer, authority)

	data, err := encodeInstructionData(IxMarginfiAccountInitialize, nil)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	metas := solana.AccountMetaSlice{
		solana.Meta(b.group(ov)),
		solana.Meta(accountKeypair.PublicKey()).WRITE().SIGNER(),
		solana.Meta(authority).SIGNER(),
		solana.Meta(feePayer).WRITE().SIGNER(),
		solana.Meta(solana.SystemProgramID),
	}
	built := &Built{
		Instructions: []solana.Instruction{solana.NewInstruction(b.ProgramID, metas, data)},
		Signers:      []solana.PrivateKey{accountKeypair.PrivateKey},
	}
	return built, accountKeypair.PublicKey(), nil
}

// CloseAccount closes an empty marginfi account, refunding rent to the fee
// payer.
func (b *Builder) CloseAccount(ov AccountOverrides) (*Built, error) {
	data, err := encodeInstructionData(IxMarginfiAccountClose, nil)
	if err != nil {
		return nil, err
	}
	metas := solana.AccountMetaSlice{
		solana.Meta(b.marginfiAccount(ov)).WRITE(),
		solana.Meta(b.authority(ov)).SIGNER(),
		solana.Meta(pick(ov.FeePayer, b.authority(ov))).WRITE(),
	}
	return &Built{Instructions: []solana.Instruction{
		solana.NewInstruction(b.ProgramID, metas, data),
	}}, nil
}

// depositIxName dispatches the deposit instruction by asset tag: integration
// banks route liquidity through their upstream protocol and use a dedicated
// instruction.
func depositIxName(bank *core.Bank) string {
	switch bank.AssetTag {
	case core.AssetTagKamino:
		return IxKaminoDeposit
	case core.AssetTagDrift:
		return IxDriftDeposit
	case core.AssetTagSolend:
		return IxSolendDeposit
	default:
		return IxLendingAccountDeposit
	}
}

func withdrawIxName(bank *core.Bank) string {
	switch bank.AssetTag {
	case core.AssetTagKamino:
		return IxKaminoWithdraw
	case core.AssetTagDrift:
		return IxDriftWithdraw
	case core.AssetTagSolend:
		return IxSolendWithdraw
	default:
		return IxLendingAccountWithdraw
	}
}

// integrationMetasFor dispatches to the per-integration account resolver.
// Default and SOL-tagged banks need nothing extra.
func integrationMetasFor(bank *core.Bank) (solana.AccountMetaSlice, error) {
	switch bank.AssetTag {
	case core.AssetTagKamino:
		return kaminoMetas(bank)
	case core.AssetTagDrift:
		return driftMetas(bank)
	case core.AssetTagSolend:
		return solendMetas(bank)
	default:
		return nil, nil
	}
}
