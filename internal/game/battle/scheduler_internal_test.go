package battle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/ascension/internal/game/catalog"
	"github.com/cory-johannsen/ascension/internal/game/dice"
	"github.com/cory-johannsen/ascension/internal/game/status"
)

func testState(t *testing.T, teamA, teamB []string) *State {
	t.Helper()
	return seededState(t, "scheduler", teamA, teamB)
}

func seededState(t *testing.T, seed string, teamA, teamB []string) *State {
	t.Helper()
	cat := catalog.MustDefault()
	a, err := cat.Resolve(teamA)
	require.NoError(t, err)
	b, err := cat.Resolve(teamB)
	require.NoError(t, err)
	return NewState(dice.NewSequence(seed), a, b)
}

func rngState(s *State) uint32 { return s.rng.(*dice.Sequence).State() }

func eventDetails(events []Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Detail
	}
	return out
}

func TestActingOrder_TiesKeepCreationOrder(t *testing.T) {
	s := testState(t, []string{"sophia", "nona"}, []string{"liya", "grace"})
	order := s.actingOrder()
	require.Len(t, order, 4)
	for i, f := range order {
		assert.Same(t, s.Fighters[i], f)
	}
}

func TestActingOrder_HasteFirstDeadSkipped(t *testing.T) {
	s := testState(t, []string{"sophia", "nona"}, []string{"liya", "grace"})
	s.Fighters[3].ApplyStatus(status.Haste, 1, 2)
	s.Fighters[0].ApplyStatus(status.Slow, 1, 2)
	s.Fighters[1].Health = 0
	order := s.actingOrder()
	require.Len(t, order, 3)
	assert.Same(t, s.Fighters[3], order[0])
	assert.Same(t, s.Fighters[2], order[1])
	assert.Same(t, s.Fighters[0], order[2])
}

func TestComboChain_Advance(t *testing.T) {
	c := ComboChain{Value: 2, DecayTimer: comboDecayRounds}
	c.advance()
	c.advance()
	assert.Equal(t, ComboChain{Value: 2, DecayTimer: 1}, c)
	c.advance()
	assert.Equal(t, ComboChain{Value: 1, DecayTimer: comboDecayRounds}, c)

	empty := ComboChain{DecayTimer: 1}
	empty.advance()
	assert.Equal(t, 0, empty.Value)
}

func TestChooseSkill(t *testing.T) {
	s := testState(t, []string{"oliver"}, []string{"endrit"})
	f := s.Fighters[0]

	assert.Equal(t, "storm-lance", f.chooseSkill().ID)

	f.Energy = 100
	assert.Equal(t, "omniversal-break", f.chooseSkill().ID)

	f.Cooldowns["omniversal-break"] = 2
	assert.Equal(t, f.Character.Skills[2].ID, f.chooseSkill().ID)

	for _, sk := range f.Character.AllSkills() {
		f.Cooldowns[sk.ID] = 1
	}
	assert.Equal(t, "storm-lance", f.chooseSkill().ID, "falls back to the tap skill even on cooldown")
}

func TestPickEnemy_NoDrawWithoutTargets(t *testing.T) {
	s := testState(t, []string{"sophia"}, []string{"endrit"})
	s.Fighters[1].Health = 0
	before := *s.rng.(*dice.Sequence)
	assert.Nil(t, s.pickEnemy(s.Fighters[0]))
	assert.Equal(t, before, *s.rng.(*dice.Sequence))
}

func TestLivingTeams(t *testing.T) {
	s := testState(t, []string{"sophia"}, []string{"endrit", "liya"})
	assert.Equal(t, []int{0, 1}, s.livingTeams())
	s.Fighters[0].Health = 0
	assert.Equal(t, []int{1}, s.livingTeams())
	s.Fighters[1].Health = 0
	s.Fighters[2].Health = 0
	assert.Empty(t, s.livingTeams())
}

func TestPlayRound_SkipsFighterKilledMidRound(t *testing.T) {
	s := testState(t, []string{"sophia"}, []string{"endrit"})
	s.Fighters[1].Health = 1
	var events []Event
	require.NoError(t, playRound(s, Collect(&events)))
	assert.False(t, s.Fighters[1].Alive())
	for _, e := range events {
		assert.NotContains(t, e.Detail, "Endrit swings")
	}
	_, acted := s.Fighters[1].Cooldowns["calculating-swing"]
	assert.False(t, acted)
}

func TestTakeTurn_BoundFighterSkips(t *testing.T) {
	s := testState(t, []string{"sophia"}, []string{"endrit"})
	sophia := s.Fighters[0]
	sophia.ApplyStatus(status.Bind, 1, 2)
	before := rngState(s)
	var events []Event
	require.NoError(t, takeTurn(s, sophia, Collect(&events)))
	require.Len(t, events, 1)
	assert.Equal(t, "Sophia is bound and misses a turn", events[0].Detail)
	assert.True(t, sophia.Statuses.Has(status.Bind))
	assert.Empty(t, sophia.Cooldowns)
	assert.Equal(t, 120, s.Fighters[1].Health)
	assert.Equal(t, before, rngState(s))
}

func TestTakeTurn_FrozenFighterThaws(t *testing.T) {
	s := testState(t, []string{"sophia"}, []string{"endrit"})
	sophia := s.Fighters[0]
	sophia.ApplyStatus(status.TimelineFreeze, 1, 2)
	var events []Event
	require.NoError(t, takeTurn(s, sophia, Collect(&events)))
	require.Len(t, events, 1)
	assert.Equal(t, "Sophia is frozen in time and skips this turn", events[0].Detail)
	assert.False(t, sophia.Statuses.Has(status.TimelineFreeze))
	assert.Empty(t, sophia.Cooldowns)

	events = nil
	require.NoError(t, takeTurn(s, sophia, Collect(&events)))
	assert.Contains(t, eventDetails(events), "Sophia taps Radiant Strike")
}

// Seed "abc" spends its first two draws on fighter ids; the third is
// 0.20040678679952556.
func TestTakeTurn_VolatilityRoll(t *testing.T) {
	tests := []struct {
		name       string
		volatility float64
		draws      int
		burned     bool
	}{
		{name: "stable", volatility: 0, draws: 1},
		{name: "roll above volatility", volatility: 0.15, draws: 2},
		{name: "roll below volatility", volatility: 0.25, draws: 2, burned: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := seededState(t, "abc", []string{"sophia"}, []string{"endrit"})
			sophia := s.Fighters[0]
			sophia.Volatility = tc.volatility
			ref := *s.rng.(*dice.Sequence)
			var events []Event
			require.NoError(t, takeTurn(s, sophia, Collect(&events)))

			for range tc.draws {
				ref.Float64()
			}
			assert.Equal(t, ref.State(), rngState(s), "one targeting draw plus one roll when volatile")

			burn, ok := sophia.Statuses.Get(status.CEBurn)
			assert.Equal(t, tc.burned, ok)
			if tc.burned {
				assert.Equal(t, 1, burn.Stacks)
				assert.Equal(t, 1, burn.Duration)
				assert.Contains(t, eventDetails(events), "Sophia's unstable CE crackles")
			}
			assert.Equal(t, 120-14, s.Fighters[1].Health)
		})
	}
}
