// Package catalog holds the static fighter roster: characters, their skills, and
// the deterministic enemy compositions derived from it.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed roster.yaml
var defaultRoster []byte

// ErrUnknownCharacter is returned when an id is not in the roster.
var ErrUnknownCharacter = errors.New("unknown character")

// ChargeLevel classifies a skill's cost tier.
type ChargeLevel string

const (
	Tap         ChargeLevel = "tap"
	Charged     ChargeLevel = "charged"
	Overcharged ChargeLevel = "overcharged"
	Burst       ChargeLevel = "burst"
)

func (c ChargeLevel) valid() bool {
	switch c {
	case Tap, Charged, Overcharged, Burst:
		return true
	}
	return false
}

// Targeting says whether resolving a skill draws a random living enemy.
type Targeting string

const (
	SingleEnemy Targeting = "single_enemy"
	NoTarget    Targeting = "none"
)

// Skill is the immutable definition of one skill. Its effect is bound by ID
// in the battle engine.
type Skill struct {
	ID          string      `yaml:"id"`
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	ChargeLevel ChargeLevel `yaml:"charge_level"`
	Cost        int         `yaml:"cost"`
	Cooldown    int         `yaml:"cooldown"`
	Targeting   Targeting   `yaml:"targeting"`
}

// Character is the immutable definition of a rostered fighter.
type Character struct {
	ID         string  `yaml:"id"`
	Name       string  `yaml:"name"`
	Element    string  `yaml:"element"`
	Role       string  `yaml:"role"`
	Ascended   bool    `yaml:"ascended"` // omni gauge owner
	MaxHealth  int     `yaml:"max_health"`
	BaseDamage int     `yaml:"base_damage"`
	Passive    string  `yaml:"passive"`
	Skills     []Skill `yaml:"skills"`
	Burst      Skill   `yaml:"burst"`
}

// Tap returns the character's first skill, the unconditional fallback.
func (c *Character) Tap() Skill { return c.Skills[0] }

// Skill resolves id against the three regular skills and the burst.
//
// Postcondition: Returns (Skill{}, false) when id belongs to neither.
func (c *Character) Skill(id string) (Skill, bool) {
	for _, s := range c.Skills {
		if s.ID == id {
			return s, true
		}
	}
	if c.Burst.ID == id {
		return c.Burst, true
	}
	return Skill{}, false
}

// AllSkills returns the regular skills followed by the burst.
func (c *Character) AllSkills() []Skill {
	out := make([]Skill, 0, len(c.Skills)+1)
	out = append(out, c.Skills...)
	return append(out, c.Burst)
}

// Scaled returns a copy of c with replaced health and damage.
func (c *Character) Scaled(maxHealth, baseDamage int) *Character {
	cp := *c
	cp.Skills = append([]Skill(nil), c.Skills...)
	cp.MaxHealth = maxHealth
	cp.BaseDamage = baseDamage
	return &cp
}

// Validate checks the structural invariants of a character definition.
//
// Postcondition: Returns nil iff the character has an id and name, positive
// health and damage, exactly three skills of which the first is a cost-0 tap,
// and a burst of charge level burst.
func (c *Character) Validate() error {
	if c.ID == "" {
		return errors.New("character: id must not be empty")
	}
	if c.Name == "" {
		return fmt.Errorf("character %q: name must not be empty", c.ID)
	}
	if c.MaxHealth < 1 {
		return fmt.Errorf("character %q: max_health must be >= 1", c.ID)
	}
	if c.BaseDamage < 0 {
		return fmt.Errorf("character %q: base_damage must be >= 0", c.ID)
	}
	if len(c.Skills) != 3 {
		return fmt.Errorf("character %q: expected 3 skills, got %d", c.ID, len(c.Skills))
	}
	if tap := c.Skills[0]; tap.ChargeLevel != Tap || tap.Cost != 0 {
		return fmt.Errorf("character %q: first skill %q must be a cost-0 tap", c.ID, tap.ID)
	}
	if c.Burst.ChargeLevel != Burst {
		return fmt.Errorf("character %q: burst %q must have charge_level burst", c.ID, c.Burst.ID)
	}
	for _, s := range c.AllSkills() {
		if err := s.validate(); err != nil {
			return fmt.Errorf("character %q: %w", c.ID, err)
		}
	}
	return nil
}

func (s Skill) validate() error {
	if s.ID == "" {
		return errors.New("skill id must not be empty")
	}
	if !s.ChargeLevel.valid() {
		return fmt.Errorf("skill %q: unknown charge_level %q", s.ID, s.ChargeLevel)
	}
	if s.Cost < 0 {
		return fmt.Errorf("skill %q: cost must be >= 0", s.ID)
	}
	if s.Cooldown < 1 {
		return fmt.Errorf("skill %q: cooldown must be >= 1", s.ID)
	}
	switch s.Targeting {
	case SingleEnemy, NoTarget:
	default:
		return fmt.Errorf("skill %q: unknown targeting %q", s.ID, s.Targeting)
	}
	return nil
}

// Catalog is the ordered roster. Roster order is significant: it fixes story
// world composition and initiative tie-breaking.
type Catalog struct {
	characters []*Character
	byID       map[string]*Character
}

type rosterFile struct {
	Characters []*Character `yaml:"characters"`
}

// Load parses and validates a roster document.
//
// Postcondition: Returns a non-empty Catalog whose character and skill ids are
// unique across the roster, or an error.
func Load(data []byte) (*Catalog, error) {
	var doc rosterFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing roster: %w", err)
	}
	return New(doc.Characters)
}

// LoadFile reads a roster document from path.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading roster %q: %w", path, err)
	}
	cat, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("roster %q: %w", path, err)
	}
	return cat, nil
}

// Default returns the built-in roster.
func Default() (*Catalog, error) {
	return Load(defaultRoster)
}

// MustDefault is Default for tests and package initialisation; it panics on error.
func MustDefault() *Catalog {
	cat, err := Default()
	if err != nil {
		panic(err)
	}
	return cat
}

// New builds a Catalog from characters in roster order.
func New(chars []*Character) (*Catalog, error) {
	if len(chars) == 0 {
		return nil, errors.New("roster: no characters")
	}
	cat := &Catalog{byID: make(map[string]*Character, len(chars))}
	skillOwner := make(map[string]string)
	for _, c := range chars {
		if c == nil {
			return nil, errors.New("roster: nil character")
		}
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if _, dup := cat.byID[c.ID]; dup {
			return nil, fmt.Errorf("roster: duplicate character id %q", c.ID)
		}
		for _, s := range c.AllSkills() {
			if owner, dup := skillOwner[s.ID]; dup {
				return nil, fmt.Errorf("roster: skill id %q used by both %q and %q", s.ID, owner, c.ID)
			}
			skillOwner[s.ID] = c.ID
		}
		cat.byID[c.ID] = c
		cat.characters = append(cat.characters, c)
	}
	return cat, nil
}

// Roster returns every character in roster order. The slice is a copy; the
// definitions are shared and must not be mutated.
func (c *Catalog) Roster() []*Character {
	return append([]*Character(nil), c.characters...)
}

// Len returns the roster size.
func (c *Catalog) Len() int { return len(c.characters) }

// Character looks up a definition by id.
func (c *Catalog) Character(id string) (*Character, bool) {
	ch, ok := c.byID[id]
	return ch, ok
}

// Resolve maps ids to definitions, failing on the first unknown id.
func (c *Catalog) Resolve(ids []string) ([]*Character, error) {
	out := make([]*Character, 0, len(ids))
	for _, id := range ids {
		ch, ok := c.byID[id]
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownCharacter, id)
		}
		out = append(out, ch)
	}
	return out, nil
}

// StoryWorld returns the enemy team for a world: the boss three places ahead in
// roster order, then the world's own character and its successor.
//
// Negative worlds wrap modulo the roster size.
func (c *Catalog) StoryWorld(world int) []*Character {
	n := len(c.characters)
	i := ((world % n) + n) % n
	return []*Character{
		c.characters[(i+3)%n],
		c.characters[i],
		c.characters[(i+1)%n],
	}
}
