package marginfi

import (
	"github.com/gagliardetto/solana-go"
)

type Environment string

const (
	Production Environment = "production"
	Staging    Environment = "staging"
)

// Config selects which on-chain deployment the client targets: the program,
// the lending group, and the deployment's well-known address lookup tables.
type Config struct {
	Environment Environment

	ProgramID    solana.PublicKey
	GroupAddress solana.PublicKey

	LookupTables []solana.PublicKey

	JupiterURL  string
	CrossbarURL string
}

var productionConfig = Config{
	Environment:  Production,
	ProgramID:    solana.MustPublicKeyFromBase58("MFv2hWf31Z9kbCa1snEPYctwafyhdvnV7FZnsebVacA"),
	GroupAddress: solana.MustPublicKeyFromBase58("4qp6Fx6tnZkChTwxCtPCChdwbSjAtMuyzmnLcgeSsPG8"),
	LookupTables: []solana.PublicKey{
		solana.MustPublicKeyFromBase58("2FyGQ8UZ6PegCSN2Lu8QcizXJ874MUn1k5jZFSvFw5aD"),
		solana.MustPublicKeyFromBase58("5FuKF7C1tJji2mXZuJ14U9oDb37is5mmvYLf4KwojoF1"),
	},
}

var stagingConfig = Config{
	Environment:  Staging,
	ProgramID:    solana.MustPublicKeyFromBase58("stag8sTKds2h4KzjUw3zKTsxbqvT4XKHdaR9X9E6Rct"),
	GroupAddress: solana.MustPublicKeyFromBase58("FCPfpHA69EbS8f9KKSreTRkXbzFpunsKuYf5qNmnJjpo"),
}

// GetConfig resolves the deployment config for an environment. Unknown
// environments fall back to production.
func GetConfig(env Environment) Config {
	switch env {
	case Staging:
		return stagingConfig
	default:
		return productionConfig
	}
}
