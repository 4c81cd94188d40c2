// Package gameserver exposes the battle engine and its modes as a service and
// serves it over gRPC.
package gameserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/cory-johannsen/ascension/internal/game/battle"
	"github.com/cory-johannsen/ascension/internal/game/catalog"
	"github.com/cory-johannsen/ascension/internal/game/modes"
	"github.com/cory-johannsen/ascension/internal/storage/postgres"
)

var (
	// ErrUnknownCharacter is returned for a character id not in the roster.
	ErrUnknownCharacter = catalog.ErrUnknownCharacter
	// ErrCheckmateLocked is returned when Checkmate has not been unlocked.
	ErrCheckmateLocked = errors.New("checkmate unavailable")
	// ErrNoRecorder is returned by operations that need stored matches when
	// persistence is disabled.
	ErrNoRecorder = errors.New("match persistence is disabled")
)

// Recorder persists finished runs and loads them back for audits.
//
// A nil Recorder means runs are not persisted.
type Recorder interface {
	Save(ctx context.Context, rec *postgres.MatchRecord) error
	Get(ctx context.Context, id uuid.UUID) (*postgres.MatchRecord, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]postgres.MatchSummary, error)
}

// Audit is the result of replaying a stored match.
type Audit struct {
	MatchID uuid.UUID
	Waves   []WaveAudit
}

// Consistent reports whether every wave replayed to its stored ledger.
func (a *Audit) Consistent() bool {
	for _, w := range a.Waves {
		if !w.Verification.Consistent {
			return false
		}
	}
	return true
}

// WaveAudit is one wave's replay verdict.
type WaveAudit struct {
	Number       int
	Seed         string
	Verification battle.Verification
}

// Service is the transport-independent battle service.
type Service struct {
	engine           *battle.Engine
	runner           *modes.Runner
	recorder         Recorder
	logger           *zap.Logger
	checkmateOK      bool
	batchConcurrency int
	audits           singleflight.Group
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithRecorder persists every run through rec.
func WithRecorder(rec Recorder) ServiceOption {
	return func(s *Service) { s.recorder = rec }
}

// WithCheckmateUnlocked opens the Checkmate operation.
func WithCheckmateUnlocked(ok bool) ServiceOption {
	return func(s *Service) { s.checkmateOK = ok }
}

// WithBatchConcurrency bounds SimulateBatch workers.
func WithBatchConcurrency(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.batchConcurrency = n
		}
	}
}

// NewService creates a Service.
//
// Precondition: runner must be non-nil.
// Postcondition: Returns a ready Service; recorder is nil unless WithRecorder is given.
func NewService(runner *modes.Runner, logger *zap.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		engine:           runner.Engine(),
		runner:           runner,
		logger:           logger,
		batchConcurrency: 4,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Roster returns every character in catalog order.
func (s *Service) Roster() []*catalog.Character {
	return s.engine.Catalog().Roster()
}

// Character looks up one character.
func (s *Service) Character(id string) (*catalog.Character, error) {
	c, ok := s.engine.Catalog().Character(id)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownCharacter, id)
	}
	return c, nil
}

// StoryWorld returns the boss team for world.
func (s *Service) StoryWorld(world int) []*catalog.Character {
	return s.engine.Catalog().StoryWorld(world)
}

// Simulate runs an unrecorded battle between two rosters.
func (s *Service) Simulate(teamA, teamB []string, seed string) (*battle.Result, error) {
	if err := s.checkIDs(teamA, teamB); err != nil {
		return nil, err
	}
	res, err := s.engine.SimulateIDs(teamA, teamB, seed)
	if err != nil {
		return nil, err
	}
	s.logger.Info("simulated battle",
		zap.String("seed", res.Seed),
		zap.String("outcome", string(res.Outcome)),
		zap.Int("rounds", res.Rounds),
	)
	return res, nil
}

// SimulateBatch runs unrecorded battles in parallel; results keep request
// order.
func (s *Service) SimulateBatch(ctx context.Context, reqs []battle.Request) ([]*battle.Result, error) {
	return s.engine.SimulateBatch(ctx, reqs, s.batchConcurrency)
}

// Story plays one story world for userID and records it.
func (s *Service) Story(ctx context.Context, userID string, world, ngPlus int) (*modes.Run, error) {
	run, err := s.runner.Story(userID, world, ngPlus)
	return s.finish(ctx, run, err)
}

// BossRush plays a boss rush with team and records it.
func (s *Service) BossRush(ctx context.Context, userID string, team []string) (*modes.Run, error) {
	if err := s.checkIDs(team); err != nil {
		return nil, err
	}
	run, err := s.runner.BossRush(userID, team)
	return s.finish(ctx, run, err)
}

// InfiniteWaves plays up to waves waves with team and records the run.
func (s *Service) InfiniteWaves(ctx context.Context, userID string, team []string, waves int) (*modes.Run, error) {
	if err := s.checkIDs(team); err != nil {
		return nil, err
	}
	run, err := s.runner.InfiniteWaves(userID, team, waves)
	return s.finish(ctx, run, err)
}

// Match plays two players' teams against each other and records the match.
func (s *Service) Match(ctx context.Context, userA string, teamA []string, userB string, teamB []string) (*modes.Run, error) {
	if err := s.checkIDs(teamA, teamB); err != nil {
		return nil, err
	}
	run, err := s.runner.Match(uuid.Nil, userA, teamA, userB, teamB)
	return s.finish(ctx, run, err)
}

// Private plays team against its mirror and records the match.
func (s *Service) Private(ctx context.Context, userID string, team []string) (*modes.Run, error) {
	if err := s.checkIDs(team); err != nil {
		return nil, err
	}
	run, err := s.runner.Private(userID, team)
	return s.finish(ctx, run, err)
}

// Checkmate runs the scripted ascended finisher when unlocked.
func (s *Service) Checkmate() (*battle.Result, error) {
	if !s.checkmateOK {
		return nil, ErrCheckmateLocked
	}
	return s.engine.Checkmate()
}

// History lists a user's recent matches.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]postgres.MatchSummary, error) {
	if s.recorder == nil {
		return nil, ErrNoRecorder
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.recorder.ListByUser(ctx, userID, limit)
}

// Audit replays a stored match wave by wave and compares each replay with the
// stored checksum ledger. Concurrent audits of the same match share one
// replay.
func (s *Service) Audit(ctx context.Context, matchID uuid.UUID) (*Audit, error) {
	if s.recorder == nil {
		return nil, ErrNoRecorder
	}
	v, err, shared := s.audits.Do(matchID.String(), func() (any, error) {
		return s.audit(ctx, matchID)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("audit shared", zap.String("match_id", matchID.String()))
	}
	return v.(*Audit), nil
}

func (s *Service) audit(ctx context.Context, matchID uuid.UUID) (*Audit, error) {
	rec, err := s.recorder.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	out := &Audit{MatchID: matchID}
	for _, w := range rec.Waves {
		res, err := s.runner.Fight(specFromWave(w))
		if err != nil {
			return nil, fmt.Errorf("replaying wave %d: %w", w.Number, err)
		}
		out.Waves = append(out.Waves, WaveAudit{
			Number:       w.Number,
			Seed:         w.Seed,
			Verification: battle.CompareLedgers(storedLedger(w), res.Snapshots),
		})
	}
	fields := []zap.Field{
		zap.String("match_id", matchID.String()),
		zap.Int("waves", len(out.Waves)),
		zap.Bool("consistent", out.Consistent()),
	}
	if out.Consistent() {
		s.logger.Info("match audited", fields...)
	} else {
		s.logger.Warn("match audit mismatch", fields...)
	}
	return out, nil
}

// finish records a successful run; a run that fails to record is not returned.
func (s *Service) finish(ctx context.Context, run *modes.Run, err error) (*modes.Run, error) {
	if err != nil {
		return nil, err
	}
	if err := s.record(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *Service) record(ctx context.Context, run *modes.Run) error {
	fields := []zap.Field{
		zap.String("mode", string(run.Mode)),
		zap.String("match_id", run.MatchID.String()),
		zap.Int("waves", len(run.Waves)),
		zap.Bool("success", run.Success),
	}
	if s.recorder == nil {
		s.logger.Info("run finished", fields...)
		return nil
	}
	if err := s.recorder.Save(ctx, recordFromRun(run)); err != nil {
		s.logger.Error("recording run", append(fields, zap.Error(err))...)
		return fmt.Errorf("recording %s run: %w", run.Mode, err)
	}
	s.logger.Info("run recorded", fields...)
	return nil
}

func (s *Service) checkIDs(teams ...[]string) error {
	for _, team := range teams {
		if len(team) == 0 {
			return modes.ErrEmptyTeam
		}
		for _, id := range team {
			if _, err := s.Character(id); err != nil {
				return err
			}
		}
	}
	return nil
}
