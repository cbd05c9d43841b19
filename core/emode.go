package core

import (
	"sort"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

type (
	// EmodeSettings is a bank's efficiency-mode configuration. The tag
	// identifies the bank's e-mode group; entries on a liability bank map
	// collateral-bank tags to weight overrides that apply while the pair is
	// held together.
	EmodeSettings struct {
		EmodeTag  uint16       `json:"emodeTag"`
		Timestamp int64        `json:"timestamp"`
		Flags     uint64       `json:"flags"`
		Entries   []EmodeEntry `json:"entries"`
	}

	EmodeEntry struct {
		CollateralBankEmodeTag uint16          `json:"collateralBankEmodeTag"`
		Flags                  uint8           `json:"flags"`
		AssetWeightInit        decimal.Decimal `json:"assetWeightInit"`
		AssetWeightMaint       decimal.Decimal `json:"assetWeightMaint"`
	}

	EmodeWeights struct {
		AssetWeightInit  decimal.Decimal `json:"assetWeightInit"`
		AssetWeightMaint decimal.Decimal `json:"assetWeightMaint"`
	}

	// EmodePair is one collateral/liability bank relationship currently in
	// effect, with the weights the liability bank grants the collateral.
	EmodePair struct {
		CollateralBank solana.PublicKey `json:"collateralBank"`
		LiabilityBank  solana.PublicKey `json:"liabilityBank"`
		Weights        EmodeWeights     `json:"weights"`
	}
)

const EmodeEntryFlagApplyToIsolated uint8 = 1 << 0

func (es *EmodeSettings) HasEntries() bool {
	return len(es.Entries) > 0
}

// EntryForTag returns the override a liability bank grants collateral with
// the given e-mode tag, if any.
func (es *EmodeSettings) EntryForTag(collateralTag uint16) (EmodeEntry, bool) {
	if collateralTag == 0 {
		return EmodeEntry{}, false
	}
	for _, entry := range es.Entries {
		if entry.CollateralBankEmodeTag == collateralTag {
			return entry, true
		}
	}
	return EmodeEntry{}, false
}

// ComputeActiveEmodePairs determines which e-mode relationships are in effect
// given the banks currently held as collateral and as liabilities. A pair is
// active only when both sides are held.
func ComputeActiveEmodePairs(bankMap BankMap, collateralBanks, liabilityBanks []solana.PublicKey) ([]EmodePair, error) {
	var pairs []EmodePair
	for _, liabPk := range liabilityBanks {
		liabBank, err := bankMap.Get(liabPk)
		if err != nil {
			return nil, err
		}
		if !liabBank.EmodeSettings.HasEntries() {
			continue
		}
		for _, collPk := range collateralBanks {
			collBank, err := bankMap.Get(collPk)
			if err != nil {
				return nil, err
			}
			entry, ok := liabBank.EmodeSettings.EntryForTag(collBank.EmodeSettings.EmodeTag)
			if !ok {
				continue
			}
			pairs = append(pairs, EmodePair{
				CollateralBank: collPk,
				LiabilityBank:  liabPk,
				Weights: EmodeWeights{
					AssetWeightInit:  entry.AssetWeightInit,
					AssetWeightMaint: entry.AssetWeightMaint,
				},
			})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].CollateralBank.Equals(pairs[j].CollateralBank) {
			return pairs[i].LiabilityBank.String() < pairs[j].LiabilityBank.String()
		}
		return pairs[i].CollateralBank.String() < pairs[j].CollateralBank.String()
	})
	return pairs, nil
}

// EmodeWeightsForCollateral resolves the effective override for one
// collateral bank across all active pairs. When several liabilities grant
// different overrides the most conservative (lowest) one wins; the caller
// then takes the max against the bank's base weights, so an override can
// only ever raise the effective weight.
func EmodeWeightsForCollateral(pairs []EmodePair, collateralBank solana.PublicKey) (EmodeWeights, bool) {
	found := false
	var weights EmodeWeights
	for _, pair := range pairs {
		if !pair.CollateralBank.Equals(collateralBank) {
			continue
		}
		if !found {
			weights = pair.Weights
			found = true
			continue
		}
		weights.AssetWeightInit = decimal.Min(weights.AssetWeightInit, pair.Weights.AssetWeightInit)
		weights.AssetWeightMaint = decimal.Min(weights.AssetWeightMaint, pair.Weights.AssetWeightMaint)
	}
	return weights, found
}

// EmodeImpact classifies how a hypothetical action against a bank changes
// the account's e-mode relationships.
type EmodeImpact uint8

const (
	EmodeImpactUnchanged EmodeImpact = iota
	EmodeImpactActivate
	EmodeImpactDeactivate
)

func (ei EmodeImpact) String() string {
	switch ei {
	case EmodeImpactUnchanged:
		return "Unchanged"
	case EmodeImpactActivate:
		return "Activate"
	case EmodeImpactDeactivate:
		return "Deactivate"
	default:
		return "Unknown"
	}
}

// ComputeEmodeImpacts evaluates, for each candidate bank, what borrowing from
// it would do to the account's active e-mode set: activate a relationship not
// currently in effect, deactivate existing relationships (because the new
// liability grants no override to held collateral), or leave things as they
// are.
func ComputeEmodeImpacts(bankMap BankMap, collateralBanks, liabilityBanks []solana.PublicKey, candidateBanks []solana.PublicKey) (map[solana.PublicKey]EmodeImpact, error) {
	current, err := ComputeActiveEmodePairs(bankMap, collateralBanks, liabilityBanks)
	if err != nil {
		return nil, err
	}

	currentActive := emodeInEffect(current, collateralBanks, liabilityBanks)

	impacts := make(map[solana.PublicKey]EmodeImpact, len(candidateBanks))
	for _, candidate := range candidateBanks {
		projectedLiabilities := appendUnique(liabilityBanks, candidate)
		projected, err := ComputeActiveEmodePairs(bankMap, collateralBanks, projectedLiabilities)
		if err != nil {
			return nil, err
		}
		projectedActive := emodeInEffect(projected, collateralBanks, projectedLiabilities)

		switch {
		case projectedActive && !currentActive:
			impacts[candidate] = EmodeImpactActivate
		case currentActive && !projectedActive:
			impacts[candidate] = EmodeImpactDeactivate
		default:
			impacts[candidate] = EmodeImpactUnchanged
		}
	}
	return impacts, nil
}

// emodeInEffect reports whether e-mode weights apply account-wide: every held
// liability must grant an override to every held collateral bank.
func emodeInEffect(pairs []EmodePair, collateralBanks, liabilityBanks []solana.PublicKey) bool {
	if len(collateralBanks) == 0 || len(liabilityBanks) == 0 {
		return false
	}
	for _, coll := range collateralBanks {
		for _, liab := range liabilityBanks {
			found := false
			for _, pair := range pairs {
				if pair.CollateralBank.Equals(coll) && pair.LiabilityBank.Equals(liab) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

func appendUnique(keys []solana.PublicKey, key solana.PublicKey) []solana.PublicKey {
	for _, k := range keys {
		if k.Equals(key) {
			return keys
		}
	}
	out := make([]solana.PublicKey, 0, len(keys)+1)
	out = append(out, keys...)
	return append(out, key)
}
