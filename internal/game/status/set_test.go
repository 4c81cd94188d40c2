package status_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/ascension/internal/game/status"
)

func TestSet_Apply_Insert(t *testing.T) {
	var s status.Set
	s.Apply(status.Shield, 2, 3)
	assert.True(t, s.Has(status.Shield))
	assert.Equal(t, 2, s.Stacks(status.Shield))
	assert.Equal(t, 1, s.Len())
}

func TestSet_Apply_MergesStacksAndKeepsLongestDuration(t *testing.T) {
	var s status.Set
	s.Apply(status.Burn, 2, 4)
	s.Apply(status.Burn, 1, 2)
	e, ok := s.Get(status.Burn)
	require.True(t, ok)
	assert.Equal(t, 3, e.Stacks)
	assert.Equal(t, 4, e.Duration)

	s.Apply(status.Burn, 1, 6)
	e, _ = s.Get(status.Burn)
	assert.Equal(t, 4, e.Stacks)
	assert.Equal(t, 6, e.Duration)
	assert.Equal(t, 1, s.Len(), "one effect per kind")
}

func TestSet_Remove(t *testing.T) {
	var s status.Set
	s.Apply(status.Dodge, 3, 2)
	s.Remove(status.Dodge)
	assert.False(t, s.Has(status.Dodge))
	assert.Equal(t, 0, s.Stacks(status.Dodge))
	s.Remove(status.Dodge) // no-op
	assert.Equal(t, 0, s.Len())
}

func TestSet_Get_Absent(t *testing.T) {
	var s status.Set
	e, ok := s.Get(status.Echo)
	assert.Nil(t, e)
	assert.False(t, ok)
}

func TestSet_Tick_DecrementsAndPrunes(t *testing.T) {
	var s status.Set
	s.Apply(status.Haste, 2, 1)
	s.Apply(status.Regen, 1, 3)

	var seen []status.Kind
	s.Tick(func(e *status.Effect) { seen = append(seen, e.Kind) })

	assert.Equal(t, []status.Kind{status.Haste, status.Regen}, seen)
	assert.False(t, s.Has(status.Haste), "duration 1 expires after one tick")
	e, ok := s.Get(status.Regen)
	require.True(t, ok)
	assert.Equal(t, 2, e.Duration)
}

func TestSet_Tick_PrunesEmptyStacks(t *testing.T) {
	var s status.Set
	s.Apply(status.Shield, 2, 5)
	s.Tick(func(e *status.Effect) {
		if e.Kind == status.Shield {
			e.Stacks = 0
		}
	})
	assert.False(t, s.Has(status.Shield))
}

func TestSet_Active_NameOrder(t *testing.T) {
	var s status.Set
	s.Apply(status.Weaken, 1, 1)
	s.Apply(status.Afterglow, 1, 1)
	s.Apply(status.CEBurn, 1, 1)
	s.Apply(status.Burn, 1, 1)

	var names []string
	for _, e := range s.Active() {
		names = append(names, e.Kind.String())
	}
	assert.True(t, sort.StringsAreSorted(names), "got %v", names)
	assert.Equal(t, []string{"afterglow", "burn", "ce_burn", "weaken"}, names)
}

func TestKind_DeclaredInNameOrder(t *testing.T) {
	var names []string
	for _, k := range status.Kinds() {
		names = append(names, k.String())
	}
	assert.Len(t, names, 14)
	assert.True(t, sort.StringsAreSorted(names))
}

func TestParseKind(t *testing.T) {
	for _, k := range status.Kinds() {
		got, err := status.ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := status.ParseKind("timeline_rewind")
	assert.Error(t, err)
}

func TestSet_Property_MergeSumsStacks(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		k := status.Kind(rapid.IntRange(0, len(status.Kinds())-1).Draw(rt, "kind"))
		applies := rapid.SliceOfN(rapid.IntRange(1, 5), 1, 8).Draw(rt, "stacks")
		durations := rapid.SliceOfN(rapid.IntRange(1, 6), len(applies), len(applies)).Draw(rt, "durations")

		var s status.Set
		sum, longest := 0, 0
		for i, st := range applies {
			s.Apply(k, st, durations[i])
			sum += st
			if durations[i] > longest {
				longest = durations[i]
			}
		}
		e, ok := s.Get(k)
		require.True(rt, ok)
		assert.Equal(rt, sum, e.Stacks)
		assert.Equal(rt, longest, e.Duration)
		assert.Equal(rt, 1, s.Len())
	})
}

func TestSet_Property_TickNeverLeavesExpired(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		var s status.Set
		for _, k := range status.Kinds() {
			if rapid.Bool().Draw(rt, "apply_"+k.String()) {
				s.Apply(k, rapid.IntRange(0, 3).Draw(rt, "stacks_"+k.String()), rapid.IntRange(0, 3).Draw(rt, "dur_"+k.String()))
			}
		}
		s.Tick(nil)
		for _, e := range s.Active() {
			assert.False(rt, e.Expired(), "kind %s", e.Kind)
		}
	})
}
