package ix

import (
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
)

// Rent-exempt minimum for a 165-byte token account. A client without an RPC
// handle cannot query it; the value has been stable since genesis.
const tokenAccountRentExemptLamports = 2_039_280

const tokenAccountSpace = 165

// newWsolSeed derives a fresh 32-char seed for an ephemeral wrapped-SOL
// account. Seeded accounts beat ATAs here: two concurrent actions by the
// same authority never collide, and the account needs no lookup to close.
func newWsolSeed() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", errors.Wrap(err, "generate wsol seed")
	}
	return strings.ReplaceAll(id.String(), "-", ""), nil
}

// MakeWrapSolInstructions creates and funds an ephemeral wrapped-SOL token
// account holding exactly amount lamports of wrapped SOL. The account is
// derived with a random seed from the authority, so the authority's own
// signature covers it and no extra keypair is needed.
func MakeWrapSolInstructions(authority solana.PublicKey, amount uint64) ([]solana.Instruction, solana.PublicKey, error) {
	seed, err := newWsolSeed()
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	wsolAccount, err := solana.CreateWithSeed(authority, seed, solana.TokenProgramID)
	if err != nil {
		return nil, solana.PublicKey{}, errors.Wrap(err, "derive wsol account")
	}

	createIx, err := system.NewCreateAccountWithSeedInstructionBuilder().
		SetBase(authority).
		SetSeed(seed).
		SetLamports(amount + tokenAccountRentExemptLamports).
		SetSpace(tokenAccountSpace).
		SetOwner(solana.TokenProgramID).
		SetFundingAccount(authority).
		SetCreatedAccount(wsolAccount).
		SetBaseAccount(authority).
		ValidateAndBuild()
	if err != nil {
		return nil, solana.PublicKey{}, errors.Wrap(err, "build create wsol account")
	}

	initIx, err := token.NewInitializeAccount3InstructionBuilder().
		SetOwner(authority).
		SetAccount(wsolAccount).
		SetMintAccount(solana.WrappedSol).
		ValidateAndBuild()
	if err != nil {
		return nil, solana.PublicKey{}, errors.Wrap(err, "build initialize wsol account")
	}

	return []solana.Instruction{createIx, initIx}, wsolAccount, nil
}

// MakeUnwrapSolInstruction closes a wrapped-SOL token account, returning its
// lamports (wrapped balance plus rent) to the authority.
func MakeUnwrapSolInstruction(wsolAccount, authority solana.PublicKey) solana.Instruction {
	return token.NewCloseAccountInstructionBuilder().
		SetAccount(wsolAccount).
		SetDestinationAccount(authority).
		SetOwnerAccount(authority).
		Build()
}

// MakeCreateAtaInstruction creates the wallet's associated token account for
// a mint under the given token program. Assembled by hand: the address must
// be derived with the mint's own token program, token-2022 included, so the
// created account matches the one the builders reference. Callers are
// expected to know the account does not exist yet.
func MakeCreateAtaInstruction(payer, wallet, mint, tokenProgram solana.PublicKey) solana.Instruction {
	ata := GetAssociatedTokenAddress(wallet, tokenProgram, mint)
	metas := solana.AccountMetaSlice{
		solana.Meta(payer).WRITE().SIGNER(),
		solana.Meta(ata).WRITE(),
		solana.Meta(wallet),
		solana.Meta(mint),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(tokenProgram),
	}
	return solana.NewInstruction(solana.SPLAssociatedTokenAccountProgramID, metas, []byte{})
}
