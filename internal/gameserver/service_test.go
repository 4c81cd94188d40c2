package gameserver_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/ascension/internal/game/battle"
	"github.com/cory-johannsen/ascension/internal/game/catalog"
	"github.com/cory-johannsen/ascension/internal/game/modes"
	"github.com/cory-johannsen/ascension/internal/gameserver"
	"github.com/cory-johannsen/ascension/internal/storage/postgres"
)

// memRecorder is an in-memory Recorder.
type memRecorder struct {
	mu        sync.Mutex
	records   map[uuid.UUID]*postgres.MatchRecord
	saveErr   error
	gets      atomic.Int32
	getGate   chan struct{} // when set, Get blocks until it is closed
	lastLimit int
}

func newMemRecorder() *memRecorder {
	return &memRecorder{records: map[uuid.UUID]*postgres.MatchRecord{}}
}

func (m *memRecorder) Save(_ context.Context, rec *postgres.MatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.records[rec.ID]; ok {
		return postgres.ErrMatchExists
	}
	rec.CreatedAt = time.Now()
	m.records[rec.ID] = rec
	return nil
}

func (m *memRecorder) Get(_ context.Context, id uuid.UUID) (*postgres.MatchRecord, error) {
	m.gets.Add(1)
	if m.getGate != nil {
		<-m.getGate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, postgres.ErrMatchNotFound
	}
	return rec, nil
}

func (m *memRecorder) ListByUser(_ context.Context, userID string, limit int) ([]postgres.MatchSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	var out []postgres.MatchSummary
	for _, r := range m.records {
		if r.UserID == userID && len(out) < limit {
			out = append(out, postgres.MatchSummary{ID: r.ID, Mode: r.Mode, Success: r.Success, Cleared: r.Cleared, CreatedAt: r.CreatedAt})
		}
	}
	return out, nil
}

func (m *memRecorder) only(t *testing.T) *postgres.MatchRecord {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.Len(t, m.records, 1)
	for _, r := range m.records {
		return r
	}
	return nil
}

func newService(t *testing.T, opts ...gameserver.ServiceOption) *gameserver.Service {
	t.Helper()
	logger := zaptest.NewLogger(t)
	e, err := battle.NewEngine(catalog.MustDefault(), logger)
	require.NoError(t, err)
	return gameserver.NewService(modes.NewRunner(e, logger), logger, opts...)
}

func TestService_Character(t *testing.T) {
	svc := newService(t)
	assert.Len(t, svc.Roster(), 8)

	c, err := svc.Character("oliver")
	require.NoError(t, err)
	assert.True(t, c.Ascended)

	_, err = svc.Character("ghost")
	assert.ErrorIs(t, err, gameserver.ErrUnknownCharacter)
	assert.Len(t, svc.StoryWorld(2), 3)
}

func TestService_Simulate(t *testing.T) {
	svc := newService(t)

	a, err := svc.Simulate([]string{"sophia", "grace"}, []string{"endrit"}, "seed")
	require.NoError(t, err)
	b, err := svc.Simulate([]string{"sophia", "grace"}, []string{"endrit"}, "seed")
	require.NoError(t, err)
	assert.Equal(t, a.Checksums(), b.Checksums())

	_, err = svc.Simulate([]string{"sophia"}, []string{"ghost"}, "seed")
	assert.ErrorIs(t, err, gameserver.ErrUnknownCharacter)
	_, err = svc.Simulate(nil, []string{"endrit"}, "seed")
	assert.ErrorIs(t, err, modes.ErrEmptyTeam)
}

func TestService_SimulateBatch(t *testing.T) {
	svc := newService(t, gameserver.WithBatchConcurrency(2))
	cat := catalog.MustDefault()
	a, _ := cat.Resolve([]string{"liya", "nona"})
	b, _ := cat.Resolve([]string{"yohanna"})

	reqs := []battle.Request{
		{TeamA: a, TeamB: b, Seed: "one"},
		{TeamA: b, TeamB: a, Seed: "two"},
		{TeamA: a, TeamB: a, Seed: "three"},
	}
	results, err := svc.SimulateBatch(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, res := range results {
		assert.Equal(t, reqs[i].Seed, res.Seed)
	}
}

func TestService_RecordsRuns(t *testing.T) {
	rec := newMemRecorder()
	svc := newService(t, gameserver.WithRecorder(rec))

	run, err := svc.BossRush(context.Background(), "user-1", []string{"oliver", "sophia"})
	require.NoError(t, err)

	stored := rec.only(t)
	assert.Equal(t, run.MatchID, stored.ID)
	assert.Equal(t, "boss_rush", stored.Mode)
	assert.Equal(t, "user-1", stored.UserID)
	assert.Equal(t, run.Cleared, stored.Cleared)
	require.Len(t, stored.Waves, len(run.Waves))
	for i, w := range run.Waves {
		assert.Equal(t, w.Spec.Seed, stored.Waves[i].Seed)
		assert.Equal(t, w.Result.Checksums(), stored.Waves[i].Checksums)
	}
	assert.Len(t, stored.Events, len(run.Events))
}

func TestService_RecordFailureDropsRun(t *testing.T) {
	rec := newMemRecorder()
	rec.saveErr = errors.New("disk full")
	svc := newService(t, gameserver.WithRecorder(rec))

	run, err := svc.Private(context.Background(), "user-1", []string{"grace"})
	assert.Nil(t, run)
	assert.ErrorContains(t, err, "disk full")
}

func TestService_ModesValidateInput(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.BossRush(ctx, "u", []string{"ghost"})
	assert.ErrorIs(t, err, gameserver.ErrUnknownCharacter)
	_, err = svc.InfiniteWaves(ctx, "u", []string{"grace"}, 101)
	assert.ErrorIs(t, err, modes.ErrInvalidWaves)
	_, err = svc.Story(ctx, "u", -1, 0)
	assert.ErrorIs(t, err, modes.ErrInvalidWorld)
	_, err = svc.Match(ctx, "a", []string{"grace"}, "b", nil)
	assert.ErrorIs(t, err, modes.ErrEmptyTeam)
}

func TestService_WithoutRecorder(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	run, err := svc.Story(ctx, "user-1", 0, 0)
	require.NoError(t, err)
	assert.NotNil(t, run.Final())

	_, err = svc.Audit(ctx, run.MatchID)
	assert.ErrorIs(t, err, gameserver.ErrNoRecorder)
	_, err = svc.History(ctx, "user-1", 5)
	assert.ErrorIs(t, err, gameserver.ErrNoRecorder)
}

func TestService_Checkmate(t *testing.T) {
	_, err := newService(t).Checkmate()
	assert.ErrorIs(t, err, gameserver.ErrCheckmateLocked)

	res, err := newService(t, gameserver.WithCheckmateUnlocked(true)).Checkmate()
	require.NoError(t, err)
	assert.True(t, res.Won(0))
}

func TestService_AuditConsistent(t *testing.T) {
	rec := newMemRecorder()
	svc := newService(t, gameserver.WithRecorder(rec))
	ctx := context.Background()

	run, err := svc.InfiniteWaves(ctx, "user-1", []string{"oliver", "grace"}, 3)
	require.NoError(t, err)

	audit, err := svc.Audit(ctx, run.MatchID)
	require.NoError(t, err)
	assert.True(t, audit.Consistent())
	require.Len(t, audit.Waves, len(run.Waves))
	for i, w := range audit.Waves {
		assert.Equal(t, run.Waves[i].Number, w.Number)
		assert.Zero(t, w.Verification.Mismatches)
		assert.Equal(t, strings.Join(run.Waves[i].Result.Checksums(), ","), w.Verification.Baseline)
	}
}

func TestService_AuditDetectsTampering(t *testing.T) {
	rec := newMemRecorder()
	svc := newService(t, gameserver.WithRecorder(rec))
	ctx := context.Background()

	run, err := svc.Match(ctx, "a", []string{"sophia", "liya"}, "b", []string{"endrit", "nona"})
	require.NoError(t, err)

	stored := rec.only(t)
	require.NotEmpty(t, stored.Waves[0].Checksums)
	stored.Waves[0].Checksums[0] = strings.Repeat("0", 64)

	audit, err := svc.Audit(ctx, run.MatchID)
	require.NoError(t, err)
	assert.False(t, audit.Consistent())
	assert.Equal(t, 1, audit.Waves[0].Verification.Mismatches)
}

func TestService_AuditMissingMatch(t *testing.T) {
	svc := newService(t, gameserver.WithRecorder(newMemRecorder()))
	_, err := svc.Audit(context.Background(), uuid.New())
	assert.ErrorIs(t, err, postgres.ErrMatchNotFound)
}

func TestService_AuditSharesConcurrentReplays(t *testing.T) {
	rec := newMemRecorder()
	svc := newService(t, gameserver.WithRecorder(rec))
	ctx := context.Background()

	run, err := svc.Private(ctx, "user-1", []string{"nona"})
	require.NoError(t, err)

	rec.getGate = make(chan struct{})
	var wg sync.WaitGroup
	audits := make([]*gameserver.Audit, 2)
	for i := range audits {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := svc.Audit(ctx, run.MatchID)
			assert.NoError(t, err)
			audits[i] = a
		}()
	}
	require.Eventually(t, func() bool { return rec.gets.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(rec.getGate)
	wg.Wait()

	assert.EqualValues(t, 1, rec.gets.Load())
	assert.Same(t, audits[0], audits[1])
}

func TestService_History(t *testing.T) {
	rec := newMemRecorder()
	svc := newService(t, gameserver.WithRecorder(rec))
	ctx := context.Background()

	for range 2 {
		_, err := svc.Private(ctx, "user-1", []string{"grace"})
		require.NoError(t, err)
	}
	_, err := svc.Private(ctx, "user-2", []string{"grace"})
	require.NoError(t, err)

	list, err := svc.History(ctx, "user-1", 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, 20, rec.lastLimit)

	_, err = svc.History(ctx, "user-1", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, rec.lastLimit)
}

func TestNewService_NilLogger(t *testing.T) {
	e, err := battle.NewEngine(catalog.MustDefault(), zap.NewNop())
	require.NoError(t, err)
	svc := gameserver.NewService(modes.NewRunner(e, nil), nil)
	_, err = svc.Simulate([]string{"grace"}, []string{"nona"}, "")
	assert.NoError(t, err)
}
