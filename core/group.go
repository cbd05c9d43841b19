package core

import (
	"github.com/gagliardetto/solana-go"
)

// MarginfiGroup is the top-level protocol group an account and its banks
// belong to. The client only reads the identity fields.
type MarginfiGroup struct {
	Address solana.PublicKey `json:"address"`
	Admin   solana.PublicKey `json:"admin"`
	Flags   uint64           `json:"flags"`
}

const GroupFlagProgramFeesEnabled uint64 = 1 << 0

func (g *MarginfiGroup) GetFlag(flag uint64) bool {
	return g.Flags&flag != 0
}
