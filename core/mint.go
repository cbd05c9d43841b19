package core

import (
	"github.com/gagliardetto/solana-go"
)

// MintInfo is the token-program metadata a builder needs about a mint:
// which token program owns it and its decimal count.
type MintInfo struct {
	Mint         solana.PublicKey `json:"mint"`
	TokenProgram solana.PublicKey `json:"tokenProgram"`
	Decimals     uint8            `json:"decimals"`
}

// MintMap is a caller-supplied snapshot of mint metadata keyed by mint.
type MintMap map[solana.PublicKey]MintInfo

func (mm MintMap) Get(mint solana.PublicKey) (MintInfo, error) {
	info, ok := mm[mint]
	if !ok {
		return MintInfo{}, NewMintNotFound(mint.String())
	}
	return info, nil
}
