package crank

import (
	"github.com/facebookgo/clock"
	"github.com/gagliardetto/solana-go"

	"github.com/0dotxyz/marginfi-go/core"
)

// StaleFeeds returns the pull-oracle feed keys among the given banks whose
// prices are stale against the bank's max oracle age. Push-style and fixed
// oracles are never cranked from the client side.
func StaleFeeds(banks []*core.Bank, prices core.PriceMap, clk clock.Clock) []solana.PublicKey {
	var feeds []solana.PublicKey
	seen := make(map[solana.PublicKey]bool)
	for _, bank := range banks {
		if !bank.OracleSetup.IsPull() {
			continue
		}
		price, err := prices.Get(bank.Address)
		if err != nil || price.IsStale(clk, bank.OracleMaxAge) {
			for _, feed := range bank.OracleKeys {
				if feed.IsZero() || seen[feed] {
					continue
				}
				feeds = append(feeds, feed)
				seen[feed] = true
			}
		}
	}
	return feeds
}
