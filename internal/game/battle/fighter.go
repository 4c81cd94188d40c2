package battle

import (
	"errors"
	"fmt"
	"math"

	"github.com/cory-johannsen/ascension/internal/game/catalog"
	"github.com/cory-johannsen/ascension/internal/game/status"
)

const (
	// MaxEnergy is the combo energy ceiling.
	MaxEnergy = 100.0
	// DebtCap bounds outstanding combo energy debt.
	DebtCap = 30.0

	volatileAbove      = 85.0
	volatilityGrowth   = 0.05
	volatilityDecay    = 0.02
	afterglowGainBonus = 0.15
	ascendedGainFactor = 1.75
)

// ErrDebtCapExceeded is returned when a spend would leave a fighter owing more
// than DebtCap. Skill selection only offers affordable skills, so seeing this
// means the engine has a logic defect; the battle is aborted.
var ErrDebtCapExceeded = errors.New("combo energy debt cap exceeded")

// Fighter is one character placed on a team for a single battle.
type Fighter struct {
	ID        string
	UserID    string // empty for unowned fighters
	Character *catalog.Character
	Team      int

	Health     int
	Energy     float64
	Omni       int // overflow accumulator, ascended characters only
	Debt       float64
	Lock       float64 // combo energy floor
	Volatility float64

	Statuses  status.Set
	Cooldowns map[string]int
}

func newFighter(c *catalog.Character, team int, id string) *Fighter {
	return &Fighter{
		ID:        id,
		Character: c,
		Team:      team,
		Health:    c.MaxHealth,
		Cooldowns: make(map[string]int),
	}
}

// Name is the character's display name.
func (f *Fighter) Name() string { return f.Character.Name }

// Alive reports whether the fighter has health left.
func (f *Fighter) Alive() bool { return f.Health > 0 }

// GrantEnergy adds combo energy.
//
// The amount is scaled by afterglow, repays debt first, and for an ascended
// character is multiplied by 1.75 with any excess over MaxEnergy moved into the
// omni gauge. Volatility grows while energy sits above 85 and decays otherwise.
//
// Postcondition: Lock <= Energy <= MaxEnergy for ordinary characters;
// 0 <= Energy <= MaxEnergy for ascended ones; 0 <= Volatility <= 1.
func (f *Fighter) GrantEnergy(amount float64) {
	total := amount * (1 + afterglowGainBonus*float64(f.Statuses.Stacks(status.Afterglow)))
	if f.Debt > 0 {
		repaid := math.Min(f.Debt, total)
		f.Debt -= repaid
		total -= repaid
	}
	if f.Character.Ascended {
		total *= ascendedGainFactor
		overflow := f.Energy + total - MaxEnergy
		f.Energy = clamp(f.Energy+total, 0, MaxEnergy)
		if overflow > 0 {
			f.Omni += int(roundHalfUp(overflow))
		}
	} else {
		f.Energy = clamp(f.Energy+total, f.Lock, MaxEnergy)
	}
	if f.Energy > volatileAbove {
		f.Volatility = math.Min(1, f.Volatility+volatilityGrowth)
	} else {
		f.Volatility = math.Max(0, f.Volatility-volatilityDecay)
	}
}

// SpendEnergy pays cost from combo energy, borrowing the shortfall as debt.
//
// Postcondition: Returns ErrDebtCapExceeded, leaving f unchanged, when the
// resulting debt would exceed DebtCap. Otherwise Debt <= DebtCap.
func (f *Fighter) SpendEnergy(cost float64) error {
	if cost <= f.Energy {
		f.Energy = clamp(f.Energy-cost, f.Lock, MaxEnergy)
		return nil
	}
	shortfall := cost - f.Energy
	if f.Debt+shortfall > DebtCap {
		return fmt.Errorf("%w: %s owes %.2f and needs %.2f more", ErrDebtCapExceeded, f.ID, f.Debt, shortfall)
	}
	f.Debt += shortfall
	f.Energy = f.Lock
	return nil
}

// drainEnergy removes combo energy without touching debt.
func (f *Fighter) drainEnergy(amount float64) {
	f.Energy = clamp(f.Energy-amount, f.Lock, MaxEnergy)
}

// RaiseLock lifts the combo energy floor to at least floor. Energy below the
// new floor is pulled up to it.
func (f *Fighter) RaiseLock(floor float64) {
	f.Lock = math.Max(f.Lock, floor)
	f.Energy = math.Max(f.Energy, f.Lock)
}

// ApplyStatus merges a status into the fighter's set.
func (f *Fighter) ApplyStatus(k status.Kind, stacks, duration int) {
	f.Statuses.Apply(k, stacks, duration)
}

// TickStatuses runs one round of status upkeep in kind-name order: burn deals
// 4 per stack, regen heals 5 per stack, afterglow grants 3 energy per stack and
// ce_burn drains 8 energy per stack. Every duration then drops by one and
// expired statuses are pruned.
func (f *Fighter) TickStatuses(sink Sink) {
	f.Statuses.Tick(func(e *status.Effect) {
		switch e.Kind {
		case status.Burn:
			f.setHealth(f.Health - 4*e.Stacks)
			sink(Event{Kind: EventStatus, Detail: fmt.Sprintf("%s suffers burn", f.Name()),
				Data: map[string]any{"status": e.Kind.String(), "stacks": e.Stacks}})
		case status.Regen:
			f.setHealth(f.Health + 5*e.Stacks)
			sink(Event{Kind: EventStatus, Detail: fmt.Sprintf("%s regenerates", f.Name()),
				Data: map[string]any{"status": e.Kind.String(), "stacks": e.Stacks}})
		case status.Afterglow:
			f.GrantEnergy(float64(3 * e.Stacks))
		case status.CEBurn:
			f.drainEnergy(float64(8 * e.Stacks))
			sink(Event{Kind: EventStatus, Detail: fmt.Sprintf("%s loses combo energy to CE Burn", f.Name()),
				Data: map[string]any{"status": e.Kind.String(), "stacks": e.Stacks}})
		}
	})
}

// HasteBonus is the cooldown reduction fraction; negative under slow.
func (f *Fighter) HasteBonus() float64 {
	return 0.1*float64(f.Statuses.Stacks(status.Haste)) - 0.1*float64(f.Statuses.Stacks(status.Slow))
}

// Initiative is the fighter's acting-order score; higher acts first.
func (f *Fighter) Initiative() float64 {
	return 1 +
		0.2*float64(f.Statuses.Stacks(status.Haste)) -
		0.15*float64(f.Statuses.Stacks(status.Slow)) +
		0.5*float64(f.Statuses.Stacks(status.TimelineDisplace)) +
		0.1*f.Volatility
}

func (f *Fighter) setHealth(h int) {
	f.Health = max(0, min(h, f.Character.MaxHealth))
}

func (f *Fighter) decrementCooldowns() {
	for id, cd := range f.Cooldowns {
		if cd > 0 {
			f.Cooldowns[id] = cd - 1
		}
	}
}

// putOnCooldown sets round(base × (1 − haste bonus)) with a floor of one round.
func (f *Fighter) putOnCooldown(skill catalog.Skill) {
	cd := int(roundHalfUp(float64(skill.Cooldown) * (1 - f.HasteBonus())))
	f.Cooldowns[skill.ID] = max(1, cd)
}

// chooseSkill picks the most expensive ready, affordable skill, falling back
// to the tap skill. Ties in cost keep declaration order.
func (f *Fighter) chooseSkill() catalog.Skill {
	var best *catalog.Skill
	for _, s := range f.Character.AllSkills() {
		if f.Cooldowns[s.ID] != 0 || f.Energy < float64(s.Cost) {
			continue
		}
		if best == nil || s.Cost > best.Cost {
			best = &s
		}
	}
	if best == nil {
		return f.Character.Tap()
	}
	return *best
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// roundHalfUp rounds to the nearest integer with halves going up.
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}
