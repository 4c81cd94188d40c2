// Package dice provides the deterministic randomness used by the battle engine.
//
// Every battle owns exactly one Source. No draw ever consults ambient entropy, so a
// battle replayed from the same seed observes the same sequence of values.
package dice

// Source is the randomness provider for a single battle.
//
// Implementations are NOT safe for concurrent use; a Source belongs to one battle.
type Source interface {
	// Float64 returns the next draw in [0, 1].
	Float64() float64
	// Intn returns a draw in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}
