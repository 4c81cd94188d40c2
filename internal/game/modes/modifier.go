package modes

import (
	"fmt"
	"math"

	"github.com/cory-johannsen/ascension/internal/game/catalog"
)

// BossModifier reshapes a story boss team.
type BossModifier string

const (
	Enraged   BossModifier = "enraged"
	Mirror    BossModifier = "mirror"
	Corrupted BossModifier = "corrupted"
	Adaptive  BossModifier = "adaptive"
)

// bossModifiers is the rotation used by story worlds.
var bossModifiers = []BossModifier{Enraged, Mirror, Corrupted, Adaptive}

// BossModifiers returns the story rotation in order.
func BossModifiers() []BossModifier {
	return append([]BossModifier(nil), bossModifiers...)
}

// ParseBossModifier converts a name into a BossModifier. The empty string is
// accepted and means no modifier.
func ParseBossModifier(s string) (BossModifier, error) {
	if s == "" {
		return "", nil
	}
	for _, m := range bossModifiers {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown boss modifier %q", s)
}

// ModifierForWorld picks the rotation entry for world; negative worlds wrap.
func ModifierForWorld(world int) BossModifier {
	n := len(bossModifiers)
	return bossModifiers[((world%n)+n)%n]
}

// ApplyBossModifier returns scaled copies of defs. The originals are never
// modified; an empty modifier returns plain copies.
//
//	enraged    health and damage ×(1.15 + 0.05d)
//	mirror     damage +6+round(3d), health +20
//	corrupted  health and damage ×(1.1 + 0.03d)
//	adaptive   damage +round(4 + 2d)
func ApplyBossModifier(defs []*catalog.Character, m BossModifier, difficulty float64) []*catalog.Character {
	out := make([]*catalog.Character, len(defs))
	for i, d := range defs {
		hp, dmg := d.MaxHealth, d.BaseDamage
		switch m {
		case Enraged:
			hp, dmg = scale(hp, 1.15+difficulty*0.05), scale(dmg, 1.15+difficulty*0.05)
		case Mirror:
			dmg += 6 + round(difficulty*3)
			hp += 20
		case Corrupted:
			hp, dmg = scale(hp, 1.1+difficulty*0.03), scale(dmg, 1.1+difficulty*0.03)
		case Adaptive:
			dmg += round(4 + difficulty*2)
		}
		out[i] = d.Scaled(hp, dmg)
	}
	return out
}

func scale(v int, by float64) int { return round(float64(v) * by) }

func round(x float64) int { return int(math.Floor(x + 0.5)) }
