package battle

import (
	"fmt"
	"strings"
)

// Verification is the outcome of a determinism audit.
type Verification struct {
	Consistent bool   `json:"consistent"`
	Baseline   string `json:"baseline"`
	Mismatches int    `json:"mismatches"`
}

// VerifyDeterminism checks that every state hashes to the first one's checksum.
// An empty input is trivially consistent.
func VerifyDeterminism(states []*State) Verification {
	if len(states) == 0 {
		return Verification{Consistent: true}
	}
	baseline := Checksum(states[0])
	v := Verification{Baseline: baseline}
	for _, s := range states {
		if Checksum(s) != baseline {
			v.Mismatches++
		}
	}
	v.Consistent = v.Mismatches == 0
	return v
}

// ReplayFunc runs one battle for seed and returns its snapshot ledger.
type ReplayFunc func(seed string) ([]Snapshot, error)

// VerifyReplays runs simulate twice with the same seed and compares the two
// ledgers entry by entry. The baseline is the first run's checksums joined by
// commas. Ledgers of different lengths are never consistent; entries present
// in only one run count as mismatches.
func VerifyReplays(seed string, simulate ReplayFunc) (Verification, error) {
	first, err := simulate(seed)
	if err != nil {
		return Verification{}, fmt.Errorf("first replay of %q: %w", seed, err)
	}
	second, err := simulate(seed)
	if err != nil {
		return Verification{}, fmt.Errorf("second replay of %q: %w", seed, err)
	}
	return CompareLedgers(first, second), nil
}

// CompareLedgers compares a replay ledger against a baseline ledger.
func CompareLedgers(baseline, replay []Snapshot) Verification {
	sums := make([]string, len(baseline))
	for i, s := range baseline {
		sums[i] = s.Checksum
	}
	v := Verification{Baseline: strings.Join(sums, ",")}
	for i := range max(len(baseline), len(replay)) {
		if i >= len(baseline) || i >= len(replay) || baseline[i] != replay[i] {
			v.Mismatches++
		}
	}
	v.Consistent = v.Mismatches == 0
	return v
}
