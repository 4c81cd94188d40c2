package battle

import (
	"fmt"

	"github.com/cory-johannsen/ascension/internal/game/status"
)

const shieldPerStack = 6

// Damage scales a raw amount by the attacker's weaken and the defender's
// vulnerable stacks, rounded to the nearest integer and floored at zero.
func Damage(raw int, attacker, defender *Fighter) int {
	d := float64(raw)
	if w := attacker.Statuses.Stacks(status.Weaken); w > 0 {
		d *= 1 - 0.1*float64(w)
	}
	if v := defender.Statuses.Stacks(status.Vulnerable); v > 0 {
		d *= 1 + 0.15*float64(v)
	}
	return max(0, int(roundHalfUp(d)))
}

// Hit resolves one attack and returns the damage applied to health.
//
// Shield absorbs up to 6 points per stack, consuming one stack per 6 points
// absorbed (rounded up). Any dodge stacks then negate the hit entirely and the
// whole dodge status is removed. A defender holding ce_burn loses 5 energy per
// stack. Both sides gain energy from the exchange even when the hit kills.
func Hit(attacker, defender *Fighter, raw int, sink Sink) int {
	dmg := Damage(raw, attacker, defender)
	if sh, ok := defender.Statuses.Get(status.Shield); ok {
		absorbed := min(dmg, sh.Stacks*shieldPerStack)
		dmg -= absorbed
		sh.Stacks = max(0, sh.Stacks-(absorbed+shieldPerStack-1)/shieldPerStack)
	}
	if defender.Statuses.Stacks(status.Dodge) > 0 {
		defender.Statuses.Remove(status.Dodge)
		sink(Event{Kind: EventDodge, Detail: fmt.Sprintf("%s dodges an attack", defender.Name())})
		dmg = 0
	}
	defender.setHealth(defender.Health - dmg)
	if burn := defender.Statuses.Stacks(status.CEBurn); burn > 0 {
		defender.drainEnergy(float64(5 * burn))
	}
	attacker.GrantEnergy(float64(max(3, dmg/5)))
	defender.GrantEnergy(float64(max(2, dmg/10)))
	sink(Event{
		Kind:   EventDamage,
		Detail: fmt.Sprintf("%s hits %s for %d", attacker.Name(), defender.Name(), dmg),
		Data:   map[string]any{"damage": dmg, "source": attacker.ID, "target": defender.ID},
	})
	return dmg
}

// Heal restores up to amount missing health on target and grants the healer
// energy for what was actually restored. It returns the amount healed. A fallen
// target is left untouched.
func Heal(source, target *Fighter, amount int, sink Sink) int {
	if !target.Alive() {
		return 0
	}
	before := target.Health
	target.setHealth(before + amount)
	healed := target.Health - before
	source.GrantEnergy(float64(max(2, healed/6)))
	sink(Event{
		Kind:   EventHeal,
		Detail: fmt.Sprintf("%s heals %s for %d", source.Name(), target.Name(), healed),
		Data:   map[string]any{"healed": healed, "source": source.ID, "target": target.ID},
	})
	return healed
}
