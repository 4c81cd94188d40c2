package battle

import (
	"math"
	"sort"
	"strconv"

	"github.com/cory-johannsen/ascension/internal/game/catalog"
	"github.com/cory-johannsen/ascension/internal/game/dice"
)

const comboDecayRounds = 3

// ComboChain is the battle-wide chain counter and its rolling decay timer.
type ComboChain struct {
	Value      int
	DecayTimer int
}

// advance ticks the decay timer; each time it runs out the chain loses one
// link and the timer restarts.
func (c *ComboChain) advance() {
	c.DecayTimer--
	if c.DecayTimer <= 0 {
		c.Value = max(0, c.Value-1)
		c.DecayTimer = comboDecayRounds
	}
}

// State is the aggregate root of one battle. It owns its fighters, the combo
// chain and the sequence generator, and is never shared between battles.
type State struct {
	Fighters []*Fighter
	Chain    ComboChain
	Round    int

	rng dice.Source
}

// NewState places teamA on team 0 and teamB on team 1. Each fighter's id
// suffix consumes one draw from rng, team A first in roster order.
func NewState(rng dice.Source, teamA, teamB []*catalog.Character) *State {
	s := &State{
		Fighters: make([]*Fighter, 0, len(teamA)+len(teamB)),
		Chain:    ComboChain{DecayTimer: comboDecayRounds},
		rng:      rng,
	}
	for team, defs := range [][]*catalog.Character{teamA, teamB} {
		for _, c := range defs {
			s.Fighters = append(s.Fighters, newFighter(c, team, fighterID(c, team, rng)))
		}
	}
	return s
}

func fighterID(c *catalog.Character, team int, rng dice.Source) string {
	suffix := int64(math.Floor(rng.Float64() * 1e9))
	return c.ID + "-" + strconv.Itoa(team) + "-" + strconv.FormatInt(suffix, 36)
}

// Fighter looks up a fighter by id.
func (s *State) Fighter(id string) (*Fighter, bool) {
	for _, f := range s.Fighters {
		if f.ID == id {
			return f, true
		}
	}
	return nil, false
}

// Members returns every fighter of team, fallen or not, in creation order.
func (s *State) Members(team int) []*Fighter {
	var out []*Fighter
	for _, f := range s.Fighters {
		if f.Team == team {
			out = append(out, f)
		}
	}
	return out
}

// Rivals returns every fighter not on team, fallen or not, in creation order.
func (s *State) Rivals(team int) []*Fighter {
	var out []*Fighter
	for _, f := range s.Fighters {
		if f.Team != team {
			out = append(out, f)
		}
	}
	return out
}

// Opponents returns the living fighters not on team, in creation order.
func (s *State) Opponents(team int) []*Fighter {
	var out []*Fighter
	for _, f := range s.Fighters {
		if f.Team != team && f.Alive() {
			out = append(out, f)
		}
	}
	return out
}

// pickEnemy draws one living opponent uniformly; nil when none is alive, in
// which case no draw is consumed.
func (s *State) pickEnemy(actor *Fighter) *Fighter {
	opp := s.Opponents(actor.Team)
	if len(opp) == 0 {
		return nil
	}
	return opp[s.rng.Intn(len(opp))]
}

// actingOrder returns the living fighters by descending initiative. The sort
// is stable, so ties keep creation order.
func (s *State) actingOrder() []*Fighter {
	var order []*Fighter
	for _, f := range s.Fighters {
		if f.Alive() {
			order = append(order, f)
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].Initiative() > order[j].Initiative()
	})
	return order
}

// livingTeams returns the distinct teams with a living fighter, ascending.
func (s *State) livingTeams() []int {
	seen := map[int]bool{}
	var teams []int
	for _, f := range s.Fighters {
		if f.Alive() && !seen[f.Team] {
			seen[f.Team] = true
			teams = append(teams, f.Team)
		}
	}
	sort.Ints(teams)
	return teams
}
