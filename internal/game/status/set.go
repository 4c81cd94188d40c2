package status

// Effect is one applied status on a fighter.
type Effect struct {
	Kind     Kind
	Stacks   int
	Duration int // rounds remaining
}

// Expired reports whether the effect should be pruned.
func (e Effect) Expired() bool { return e.Stacks <= 0 || e.Duration <= 0 }

// Set holds at most one Effect per Kind.
//
// Storage is a fixed array indexed by Kind, so the one-instance-per-kind
// invariant is structural. It is not safe for concurrent use.
type Set struct {
	effects [kindCount]Effect
	present [kindCount]bool
}

// Apply merges an effect into the set. A new kind is inserted as given; an
// existing kind has its stacks summed and keeps the longer duration.
//
// Precondition: k.Valid().
// Postcondition: Has(k) is true.
func (s *Set) Apply(k Kind, stacks, duration int) {
	if s.present[k] {
		e := &s.effects[k]
		e.Stacks += stacks
		if duration > e.Duration {
			e.Duration = duration
		}
		return
	}
	s.effects[k] = Effect{Kind: k, Stacks: stacks, Duration: duration}
	s.present[k] = true
}

// Remove deletes the effect of kind k. Removing an absent kind is a no-op.
//
// Postcondition: Has(k) is false.
func (s *Set) Remove(k Kind) {
	s.effects[k] = Effect{}
	s.present[k] = false
}

// Has reports whether an effect of kind k is held, regardless of its stacks.
func (s *Set) Has(k Kind) bool { return s.present[k] }

// Get returns a mutable pointer to the effect of kind k.
//
// Postcondition: Returns (nil, false) when k is absent.
func (s *Set) Get(k Kind) (*Effect, bool) {
	if !s.present[k] {
		return nil, false
	}
	return &s.effects[k], true
}

// Stacks returns the stack count for k, or 0 when absent.
func (s *Set) Stacks(k Kind) int {
	if !s.present[k] {
		return 0
	}
	return s.effects[k].Stacks
}

// Len returns the number of held effects.
func (s *Set) Len() int {
	n := 0
	for _, p := range s.present {
		if p {
			n++
		}
	}
	return n
}

// Active returns a copy of every held effect in name order.
func (s *Set) Active() []Effect {
	out := make([]Effect, 0, kindCount)
	for k := range s.effects {
		if s.present[k] {
			out = append(out, s.effects[k])
		}
	}
	return out
}

// Tick calls fn for every held effect in name order, decrements each effect's
// duration by one, and then prunes expired effects.
//
// fn may mutate the effect it is given but must not apply or remove kinds.
// Postcondition: no held effect has Stacks <= 0 or Duration <= 0.
func (s *Set) Tick(fn func(e *Effect)) {
	for k := range s.effects {
		if !s.present[k] {
			continue
		}
		if fn != nil {
			fn(&s.effects[k])
		}
		s.effects[k].Duration--
	}
	s.Prune()
}

// Prune removes every effect whose stacks or duration has run out.
func (s *Set) Prune() {
	for k := range s.effects {
		if s.present[k] && s.effects[k].Expired() {
			s.Remove(Kind(k))
		}
	}
}

// Clone returns an independent copy of the set.
func (s *Set) Clone() Set { return *s }
