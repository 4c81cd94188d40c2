package dice

import "unicode/utf16"

const (
	lcgMultiplier uint32 = 1664525
	lcgIncrement  uint32 = 1013904223
	lcgDivisor           = float64(0xFFFFFFFF)
)

// Sequence is a seeded linear-congruential generator.
//
// Invariant: the full draw sequence is a pure function of the seed string.
type Sequence struct {
	state uint32
}

// NewSequence folds seed into a 32-bit state with a rolling multiply-by-31 hash.
// The seed is folded as UTF-16 code units so that identical seed strings produce
// identical states regardless of which service derived them.
//
// Postcondition: two Sequences built from equal seeds yield equal draws forever.
func NewSequence(seed string) *Sequence {
	var state uint32
	for _, unit := range utf16.Encode([]rune(seed)) {
		state = state*31 + uint32(unit)
	}
	return &Sequence{state: state}
}

// State returns the current 32-bit generator state.
func (s *Sequence) State() uint32 { return s.state }

// Float64 advances the generator one step and returns state / 0xFFFFFFFF.
//
// Postcondition: 0 <= result <= 1. The result equals 1 only when the state is
// exactly 0xFFFFFFFF.
func (s *Sequence) Float64() float64 {
	s.state = lcgMultiplier*s.state + lcgIncrement
	return float64(s.state) / lcgDivisor
}

// Intn returns floor(Float64() * n), clamped into [0, n).
//
// Precondition: n > 0. Panics with "dice: Intn called with n <= 0" if n <= 0.
func (s *Sequence) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	i := int(s.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}
