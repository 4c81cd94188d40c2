package battle

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cory-johannsen/ascension/internal/game/catalog"
	"github.com/cory-johannsen/ascension/internal/game/status"
)

// ErrUnboundSkill is returned when a catalog skill has no effect in the engine.
var ErrUnboundSkill = errors.New("skill has no bound effect")

// effectContext is what a skill effect may touch while it resolves.
type effectContext struct {
	state  *State
	actor  *Fighter
	target *Fighter // nil for untargeted skills or when no enemy is alive
	sink   Sink
}

type effectFunc func(*effectContext)

func (c *effectContext) damage(bonus int) int { return c.actor.Character.BaseDamage + bonus }

func (c *effectContext) hit(defender *Fighter, raw int) {
	if defender == nil {
		return
	}
	Hit(c.actor, defender, raw, c.sink)
}

func (c *effectContext) afflict(f *Fighter, k status.Kind, stacks, duration int) {
	if f == nil {
		return
	}
	f.ApplyStatus(k, stacks, duration)
}

func (c *effectContext) self(k status.Kind, stacks, duration int) {
	c.actor.ApplyStatus(k, stacks, duration)
}

func (c *effectContext) allies() []*Fighter  { return c.state.Members(c.actor.Team) }
func (c *effectContext) enemies() []*Fighter { return c.state.Rivals(c.actor.Team) }

func (c *effectContext) each(fs []*Fighter, k status.Kind, stacks, duration int) {
	for _, f := range fs {
		f.ApplyStatus(k, stacks, duration)
	}
}

func (c *effectContext) narrate(kind EventKind, format string) {
	c.sink(Event{Kind: kind, Detail: fmt.Sprintf(format, c.actor.Name())})
}

// effects binds every roster skill id to its behaviour. Team-wide effects reach
// fallen fighters too, but nothing raises a fallen fighter's health.
var effects = map[string]effectFunc{
	// sophia
	"radiant-strike": func(c *effectContext) {
		c.hit(c.target, c.damage(0))
		c.self(status.Shield, 1, 2)
		c.narrate(EventSkill, "%s taps Radiant Strike")
	},
	"bastion-charge": func(c *effectContext) {
		c.hit(c.target, c.damage(18))
		c.each(c.allies(), status.Shield, 2, 3)
		c.narrate(EventSkill, "%s charges forward")
	},
	"sanctuary-aegis": func(c *effectContext) {
		c.each(c.allies(), status.Shield, 4, 4)
		c.each(c.enemies(), status.Vulnerable, 2, 3)
		c.narrate(EventSkill, "%s projects Sanctuary Aegis")
	},
	"aegis-dawn": func(c *effectContext) {
		for _, ally := range c.allies() {
			ally.ApplyStatus(status.Shield, 4, 4)
			ally.ApplyStatus(status.Haste, 2, 3)
			ally.RaiseLock(5)
			Heal(c.actor, ally, 25, c.sink)
		}
		c.narrate(EventBurst, "%s unleashes Aegis Dawn")
	},

	// endrit
	"calculating-swing": func(c *effectContext) {
		c.hit(c.target, c.damage(6))
		if c.target != nil && c.target.Statuses.Has(status.Burn) {
			c.target.ApplyStatus(status.Weaken, 1, 2)
		}
		c.narrate(EventSkill, "%s swings with calculation")
	},
	"logic-net": func(c *effectContext) {
		c.afflict(c.target, status.Bind, 1, 1)
		c.state.Chain.Value++
		c.actor.GrantEnergy(10)
		c.narrate(EventSkill, "%s deploys Logic Net")
	},
	"steel-theorem": func(c *effectContext) {
		c.hit(c.target, c.damage(32))
		c.afflict(c.target, status.Vulnerable, 2, 2)
		c.narrate(EventSkill, "%s proves the Steel Theorem")
	},
	"axiom-overdrive": func(c *effectContext) {
		c.self(status.Haste, 2, 3)
		c.each(c.enemies(), status.Weaken, 2, 3)
		c.self(status.Echo, 1, 2)
		c.narrate(EventBurst, "%s enters Axiom Overdrive")
	},

	// grace
	"sonic-feint": func(c *effectContext) {
		c.hit(c.target, c.damage(0))
		c.self(status.Dodge, 1, 2)
		c.narrate(EventSkill, "%s performs Sonic Feint")
	},
	"resonant-veil": func(c *effectContext) {
		c.afflict(c.target, status.Slow, 2, 2)
		c.self(status.Haste, 2, 2)
		c.narrate(EventSkill, "%s weaves a Resonant Veil")
	},
	"phantom-encore": func(c *effectContext) {
		c.each(c.allies(), status.Echo, 1, 2)
		c.self(status.Dodge, 2, 3)
		c.narrate(EventSkill, "%s triggers Phantom Encore")
	},
	"crescendo-mirage": func(c *effectContext) {
		for _, enemy := range c.enemies() {
			enemy.ApplyStatus(status.Bind, 1, 2)
			enemy.ApplyStatus(status.Burn, 2, 2)
			enemy.ApplyStatus(status.TimelineFreeze, 1, 1)
		}
		c.self(status.Dodge, 2, 3)
		c.narrate(EventBurst, "%s reveals a Crescendo Mirage")
	},

	// nona
	"thorn-whisper": func(c *effectContext) {
		c.hit(c.target, c.damage(4))
		c.afflict(c.target, status.Burn, 1, 2)
		c.narrate(EventSkill, "%s casts Thorn Whisper")
	},
	"grove-mending": func(c *effectContext) {
		for _, ally := range c.allies() {
			Heal(c.actor, ally, 18, c.sink)
			ally.ApplyStatus(status.Afterglow, 1, 3)
		}
		c.narrate(EventSkill, "%s performs Grove Mending")
	},
	"crown-of-roots": func(c *effectContext) {
		for _, enemy := range c.enemies() {
			enemy.ApplyStatus(status.Bind, 1, 2)
			enemy.ApplyStatus(status.TimelineFreeze, 1, 1)
		}
		c.each(c.allies(), status.Regen, 2, 3)
		c.narrate(EventSkill, "%s crowns the battlefield with roots")
	},
	"verdant-oracle": func(c *effectContext) {
		for _, ally := range c.allies() {
			Heal(c.actor, ally, 30, c.sink)
			ally.ApplyStatus(status.Regen, 3, 4)
			ally.GrantEnergy(20)
		}
		c.narrate(EventBurst, "%s invokes the Verdant Oracle")
	},

	// grandma
	"comforting-tap": func(c *effectContext) {
		ally := c.actor
		for _, f := range c.allies() {
			if f.Alive() && f.Health < f.Character.MaxHealth {
				ally = f
				break
			}
		}
		Heal(c.actor, ally, 12, c.sink)
		ally.GrantEnergy(5)
		c.narrate(EventSkill, "%s shares a comforting tap")
	},
	"lullaby-shield": func(c *effectContext) {
		for _, ally := range c.allies() {
			ally.ApplyStatus(status.Shield, 2, 3)
			ally.ApplyStatus(status.Regen, 1, 2)
		}
		c.narrate(EventSkill, "%s hums Lullaby Shield")
	},
	"radiant-embrace": func(c *effectContext) {
		for _, ally := range c.allies() {
			Heal(c.actor, ally, 28, c.sink)
			ally.ApplyStatus(status.Haste, 2, 3)
		}
		c.narrate(EventSkill, "%s offers Radiant Embrace")
	},
	"ancestral-light": func(c *effectContext) {
		for _, ally := range c.allies() {
			if ally.Alive() {
				ally.Health = ally.Character.MaxHealth
			}
			ally.Statuses.Remove(status.Bind)
			ally.ApplyStatus(status.Afterglow, 2, 3)
		}
		c.narrate(EventBurst, "%s shines Ancestral Light")
	},

	// liya
	"whispered-blades": func(c *effectContext) {
		c.hit(c.target, c.damage(0))
		c.hit(c.target, c.damage(0))
		c.narrate(EventSkill, "%s unleashes Whispered Blades")
	},
	"tempest-step": func(c *effectContext) {
		c.self(status.Haste, 2, 2)
		c.self(status.Dodge, 1, 2)
		c.actor.GrantEnergy(12)
		c.narrate(EventSkill, "%s dances a Tempest Step")
	},
	"cyclone-veil": func(c *effectContext) {
		c.each(c.enemies(), status.Slow, 2, 2)
		c.each(c.allies(), status.Dodge, 1, 2)
		c.narrate(EventSkill, "%s spins Cyclone Veil")
	},
	"storm-of-mirrors": func(c *effectContext) {
		c.each(c.allies(), status.Echo, 1, 3)
		c.each(c.enemies(), status.Slow, 3, 3)
		c.narrate(EventBurst, "%s conjures a Storm of Mirrors")
	},

	// yohanna
	"ember-dash": func(c *effectContext) {
		c.hit(c.target, c.damage(4))
		c.afflict(c.target, status.Burn, 2, 2)
		c.narrate(EventSkill, "%s darts with Ember Dash")
	},
	"phoenix-rise": func(c *effectContext) {
		c.self(status.Regen, 2, 2)
		c.afflict(c.target, status.Burn, 1, 3)
		c.narrate(EventSkill, "%s ascends with Phoenix Rise")
	},
	"inferno-barrier": func(c *effectContext) {
		c.self(status.Shield, 3, 3)
		c.each(c.enemies(), status.Burn, 3, 3)
		c.narrate(EventSkill, "%s conjures Inferno Barrier")
	},
	"spirit-conflagration": func(c *effectContext) {
		for _, enemy := range c.enemies() {
			enemy.ApplyStatus(status.Burn, 4, 4)
			enemy.ApplyStatus(status.CEBurn, 1, 2)
		}
		c.each(c.allies(), status.Haste, 2, 2)
		c.narrate(EventBurst, "%s ignites a Spirit Conflagration")
	},

	// oliver
	"storm-lance": func(c *effectContext) {
		c.hit(c.target, c.damage(10))
		c.narrate(EventSkill, "%s pierces with Storm Lance")
	},
	"psyshock-barrier": func(c *effectContext) {
		c.self(status.Shield, 3, 3)
		c.self(status.Haste, 2, 3)
		c.actor.GrantEnergy(20)
		c.narrate(EventSkill, "%s erects Psyshock Barrier and surges")
	},
	"omni-overdrive": func(c *effectContext) {
		bonus := c.actor.Omni
		c.actor.Omni = 0
		c.hit(c.target, c.damage(25+bonus/2))
		c.each(c.allies(), status.Shield, 3+bonus/50, 3)
		c.narrate(EventSkill, "%s triggers Omni Overdrive")
	},
	"omniversal-break": func(c *effectContext) {
		for _, enemy := range c.enemies() {
			Hit(c.actor, enemy, c.damage(40), c.sink)
		}
		for _, ally := range c.allies() {
			clear(ally.Cooldowns)
			ally.ApplyStatus(status.Afterglow, 2, 3)
			ally.ApplyStatus(status.Haste, 2, 3)
			ally.ApplyStatus(status.Shield, 3, 3)
		}
		c.narrate(EventBurst, "%s unleashes Omniversal Break")
	},
}

// ValidateCatalog checks that every skill in cat has a bound effect.
//
// Postcondition: Returns nil, or an error wrapping ErrUnboundSkill that lists
// every unbound skill id in sorted order.
func ValidateCatalog(cat *catalog.Catalog) error {
	var missing []string
	for _, c := range cat.Roster() {
		for _, s := range c.AllSkills() {
			if _, ok := effects[s.ID]; !ok {
				missing = append(missing, c.ID+"/"+s.ID)
			}
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%w: %v", ErrUnboundSkill, missing)
}
