package battle_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/ascension/internal/game/battle"
	"github.com/cory-johannsen/ascension/internal/game/catalog"
	"github.com/cory-johannsen/ascension/internal/game/dice"
	"github.com/cory-johannsen/ascension/internal/game/status"
)

var roster = catalog.MustDefault()

// fataler is satisfied by both *testing.T and *rapid.T.
type fataler interface {
	Fatalf(format string, args ...any)
}

func character(t fataler, id string) *catalog.Character {
	c, ok := roster.Character(id)
	if !ok {
		t.Fatalf("unknown character %q", id)
	}
	return c
}

// duel builds a one-on-one state: a on team 0, b on team 1.
func duel(t fataler, a, b string) (*battle.State, *battle.Fighter, *battle.Fighter) {
	s := battle.NewState(dice.NewSequence("duel"), []*catalog.Character{character(t, a)}, []*catalog.Character{character(t, b)})
	return s, s.Fighters[0], s.Fighters[1]
}

func TestGrantEnergy_Plain(t *testing.T) {
	_, f, _ := duel(t, "sophia", "endrit")
	f.GrantEnergy(10)
	assert.Equal(t, 10.0, f.Energy)
	assert.Equal(t, 0.0, f.Volatility)
}

func TestGrantEnergy_AfterglowScales(t *testing.T) {
	_, f, _ := duel(t, "sophia", "endrit")
	f.ApplyStatus(status.Afterglow, 2, 3)
	f.GrantEnergy(10)
	assert.InDelta(t, 13.0, f.Energy, 1e-9)
}

func TestGrantEnergy_RepaysDebtFirst(t *testing.T) {
	_, f, _ := duel(t, "sophia", "endrit")
	f.Debt = 10
	f.GrantEnergy(15)
	assert.Equal(t, 0.0, f.Debt)
	assert.Equal(t, 5.0, f.Energy)
}

func TestGrantEnergy_AscendedOverflowFeedsOmni(t *testing.T) {
	_, f, _ := duel(t, "oliver", "endrit")
	f.Energy = 90
	f.GrantEnergy(20) // 35 after the ascended multiplier
	assert.Equal(t, 100.0, f.Energy)
	assert.Equal(t, 25, f.Omni)
	assert.InDelta(t, 0.05, f.Volatility, 1e-12)
}

func TestGrantEnergy_ClampsAtCap(t *testing.T) {
	_, f, _ := duel(t, "sophia", "endrit")
	f.Energy = 95
	f.GrantEnergy(50)
	assert.Equal(t, battle.MaxEnergy, f.Energy)
	assert.Equal(t, 0, f.Omni)
}

func TestVolatility_GrowsAboveThresholdAndDecaysBelow(t *testing.T) {
	_, f, _ := duel(t, "sophia", "endrit")
	f.Energy = 90
	for i := 0; i < 30; i++ {
		prev := f.Volatility
		f.GrantEnergy(1)
		if prev < 1 {
			assert.Greater(t, f.Volatility, prev, "grant %d", i)
		} else {
			assert.Equal(t, 1.0, f.Volatility)
		}
	}
	assert.Equal(t, 1.0, f.Volatility)

	f.Energy = 0
	for i := 0; i < 60; i++ {
		prev := f.Volatility
		f.GrantEnergy(1)
		require.LessOrEqual(t, f.Energy, 85.0)
		if prev > 0 {
			assert.Less(t, f.Volatility, prev, "grant %d", i)
		} else {
			assert.Equal(t, 0.0, f.Volatility)
		}
	}
	assert.Equal(t, 0.0, f.Volatility)
}

func TestSpendEnergy_Affordable(t *testing.T) {
	_, f, _ := duel(t, "sophia", "endrit")
	f.Energy = 50
	require.NoError(t, f.SpendEnergy(25))
	assert.Equal(t, 25.0, f.Energy)
	assert.Equal(t, 0.0, f.Debt)
}

func TestSpendEnergy_BorrowsShortfall(t *testing.T) {
	_, f, _ := duel(t, "sophia", "endrit")
	f.Energy = 10
	f.Lock = 0
	require.NoError(t, f.SpendEnergy(30))
	assert.Equal(t, 20.0, f.Debt)
	assert.Equal(t, 0.0, f.Energy)
}

func TestSpendEnergy_DebtCapIsFatal(t *testing.T) {
	_, f, _ := duel(t, "sophia", "endrit")
	f.Debt = 20
	err := f.SpendEnergy(15)
	require.Error(t, err)
	assert.True(t, errors.Is(err, battle.ErrDebtCapExceeded))
	assert.Equal(t, 20.0, f.Debt, "failed spend must not mutate")
	assert.Equal(t, 0.0, f.Energy)
}

func TestRaiseLock_LiftsEnergy(t *testing.T) {
	_, f, _ := duel(t, "sophia", "endrit")
	f.Energy = 2
	f.RaiseLock(5)
	assert.Equal(t, 5.0, f.Lock)
	assert.Equal(t, 5.0, f.Energy)
	f.RaiseLock(3)
	assert.Equal(t, 5.0, f.Lock, "lock never drops")
}

func TestTickStatuses_BurnAndExpiry(t *testing.T) {
	_, f, _ := duel(t, "sophia", "endrit")
	f.ApplyStatus(status.Burn, 2, 1)
	var events []battle.Event
	f.TickStatuses(battle.Collect(&events))
	assert.Equal(t, 140-8, f.Health)
	assert.False(t, f.Statuses.Has(status.Burn))
	require.Len(t, events, 1)
	assert.Equal(t, battle.EventStatus, events[0].Kind)
}

func TestTickStatuses_RegenClampsToMax(t *testing.T) {
	_, f, _ := duel(t, "sophia", "endrit")
	f.Health = 135
	f.ApplyStatus(status.Regen, 2, 3)
	f.TickStatuses(func(battle.Event) {})
	assert.Equal(t, 140, f.Health)
	e, ok := f.Statuses.Get(status.Regen)
	require.True(t, ok)
	assert.Equal(t, 2, e.Duration)
}

func TestTickStatuses_CEBurnRespectsLock(t *testing.T) {
	_, f, _ := duel(t, "sophia", "endrit")
	f.Energy = 10
	f.Lock = 5
	f.ApplyStatus(status.CEBurn, 1, 1)
	f.TickStatuses(func(battle.Event) {})
	assert.Equal(t, 5.0, f.Energy)
}

func TestTickStatuses_AfterglowGrantsEnergy(t *testing.T) {
	_, f, _ := duel(t, "sophia", "endrit")
	f.ApplyStatus(status.Afterglow, 1, 2)
	f.TickStatuses(func(battle.Event) {})
	assert.InDelta(t, 3*1.15, f.Energy, 1e-9)
}

func TestHasteBonusAndInitiative(t *testing.T) {
	_, f, _ := duel(t, "sophia", "endrit")
	assert.Equal(t, 1.0, f.Initiative())
	f.ApplyStatus(status.Haste, 3, 2)
	f.ApplyStatus(status.Slow, 1, 2)
	assert.InDelta(t, 0.2, f.HasteBonus(), 1e-12)
	assert.InDelta(t, 1+0.6-0.15, f.Initiative(), 1e-12)
	f.ApplyStatus(status.TimelineDisplace, 1, 1)
	f.Volatility = 0.5
	assert.InDelta(t, 1+0.6-0.15+0.5+0.05, f.Initiative(), 1e-12)
}

func TestProperty_GrantEnergy_StaysInBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		id := rapid.SampledFrom([]string{"sophia", "oliver", "liya"}).Draw(rt, "character")
		_, f, _ := duel(rt, id, "endrit")
		f.Lock = float64(rapid.IntRange(0, 10).Draw(rt, "lock"))
		f.Energy = f.Lock
		f.Debt = float64(rapid.IntRange(0, 30).Draw(rt, "debt"))
		f.ApplyStatus(status.Afterglow, rapid.IntRange(1, 4).Draw(rt, "afterglow"), 2)
		grants := rapid.SliceOfN(rapid.IntRange(0, 60), 1, 40).Draw(rt, "grants")
		for _, g := range grants {
			f.GrantEnergy(float64(g))
			if f.Energy < f.Lock || f.Energy > battle.MaxEnergy {
				rt.Fatalf("energy %v outside [%v, %v]", f.Energy, f.Lock, battle.MaxEnergy)
			}
			if f.Debt < 0 || f.Debt > battle.DebtCap {
				rt.Fatalf("debt %v out of range", f.Debt)
			}
			if f.Volatility < 0 || f.Volatility > 1 {
				rt.Fatalf("volatility %v out of range", f.Volatility)
			}
		}
	})
}
