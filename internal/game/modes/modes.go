// Package modes drives the engine for each way a player can start a battle:
// story worlds, boss rush, infinite waves and head-to-head matches.
package modes

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/ascension/internal/game/battle"
	"github.com/cory-johannsen/ascension/internal/game/catalog"
)

// Mode names the kind of run.
type Mode string

const (
	ModeStory         Mode = "story"
	ModeBossRush      Mode = "boss_rush"
	ModeInfiniteWaves Mode = "infinite_waves"
	ModeMatch         Mode = "match"
	ModePrivate       Mode = "private"
)

const (
	// BossRushWaves is the default length of a boss rush.
	BossRushWaves = 5
	// DefaultInfiniteWaves is used when a caller asks for zero waves.
	DefaultInfiniteWaves = 10
	// MaxInfiniteWaves bounds a single infinite run.
	MaxInfiniteWaves = 100

	maxStoryRoster = 6
)

var (
	// ErrInvalidWorld is returned for a story world below zero.
	ErrInvalidWorld = errors.New("story world must not be negative")
	// ErrInvalidWaves is returned for a wave count outside [0, MaxInfiniteWaves].
	ErrInvalidWaves = errors.New("wave count out of range")
	// ErrEmptyTeam is returned when a mode is started without a team.
	ErrEmptyTeam = errors.New("team must not be empty")
)

// Spec is everything needed to re-run one battle of a run bit for bit.
type Spec struct {
	TeamA      []string
	TeamB      []string
	Modifier   BossModifier // applied to TeamB
	Difficulty float64
	Seed       string
	OwnerA     string
	OwnerB     string
}

// Wave is one battle of a run.
type Wave struct {
	Number int // 1-based; single-battle runs have one wave numbered 1
	Spec   Spec
	Result *battle.Result
}

// Run is the outcome of a mode invocation.
type Run struct {
	MatchID    uuid.UUID
	Mode       Mode
	UserID     string
	Modifier   BossModifier
	Difficulty float64
	Waves      []Wave
	Events     []battle.Event
	// Success is set when team 0 won every wave it played.
	Success bool
	// Cleared counts consecutive wins from the first wave.
	Cleared int
}

// Final returns the last battle played.
func (r *Run) Final() *battle.Result {
	if len(r.Waves) == 0 {
		return nil
	}
	return r.Waves[len(r.Waves)-1].Result
}

// Runner starts runs against an engine. It holds no per-run state.
type Runner struct {
	engine        *battle.Engine
	logger        *zap.Logger
	newID         func() uuid.UUID
	bossRushWaves int
	defaultWaves  int
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithIDGenerator replaces uuid.New as the match id source.
func WithIDGenerator(fn func() uuid.UUID) RunnerOption {
	return func(r *Runner) { r.newID = fn }
}

// WithBossRushWaves overrides BossRushWaves. Non-positive values are ignored.
func WithBossRushWaves(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.bossRushWaves = n
		}
	}
}

// WithDefaultInfiniteWaves overrides DefaultInfiniteWaves. Values outside
// [1, MaxInfiniteWaves] are ignored.
func WithDefaultInfiniteWaves(n int) RunnerOption {
	return func(r *Runner) {
		if n >= 1 && n <= MaxInfiniteWaves {
			r.defaultWaves = n
		}
	}
}

// NewRunner creates a Runner.
//
// Precondition: engine must not be nil.
func NewRunner(engine *battle.Engine, logger *zap.Logger, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		engine:        engine,
		logger:        logger,
		newID:         uuid.New,
		bossRushWaves: BossRushWaves,
		defaultWaves:  DefaultInfiniteWaves,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Engine returns the underlying engine.
func (r *Runner) Engine() *battle.Engine { return r.engine }

// Fight resolves a Spec into a battle. Replaying a stored Spec yields the
// same checksum ledger.
func (r *Runner) Fight(spec Spec) (*battle.Result, error) {
	cat := r.engine.Catalog()
	a, err := cat.Resolve(spec.TeamA)
	if err != nil {
		return nil, fmt.Errorf("team A: %w", err)
	}
	b, err := cat.Resolve(spec.TeamB)
	if err != nil {
		return nil, fmt.Errorf("team B: %w", err)
	}
	if spec.Modifier != "" {
		b = ApplyBossModifier(b, spec.Modifier, spec.Difficulty)
	}
	var opts []battle.Option
	if spec.OwnerA != "" {
		opts = append(opts, battle.WithOwner(0, spec.OwnerA))
	}
	if spec.OwnerB != "" {
		opts = append(opts, battle.WithOwner(1, spec.OwnerB))
	}
	return r.engine.Simulate(a, b, spec.Seed, opts...)
}

// Story fights world's boss team with the first min(3+world/5, 6) roster
// characters. The boss modifier rotates with the world and the difficulty
// grows by 0.1 per world on top of the new-game-plus level.
func (r *Runner) Story(userID string, world, ngPlus int) (*Run, error) {
	if world < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWorld, world)
	}
	cat := r.engine.Catalog()
	size := min(3+world/5, maxStoryRoster, cat.Len())
	var team []string
	for _, c := range cat.Roster()[:size] {
		team = append(team, c.ID)
	}
	run := &Run{
		MatchID:    r.newID(),
		Mode:       ModeStory,
		UserID:     userID,
		Modifier:   ModifierForWorld(world),
		Difficulty: float64(ngPlus) + float64(world)/10,
	}
	spec := Spec{
		TeamA:      team,
		TeamB:      ids(cat.StoryWorld(world)),
		Modifier:   run.Modifier,
		Difficulty: run.Difficulty,
		Seed:       "story-" + userID + "-" + strconv.Itoa(world) + "-" + run.MatchID.String(),
		OwnerA:     userID,
	}
	run.Events = append(run.Events, battle.Event{
		Kind:   battle.EventModifier,
		Detail: "Boss modifier: " + string(run.Modifier),
		Data:   map[string]any{"modifier": string(run.Modifier), "difficulty": run.Difficulty},
	})
	if err := r.play(run, 1, spec, false); err != nil {
		return nil, err
	}
	return run, nil
}

// BossRush fights StoryWorld(wave+5) for each wave of the rush, stopping at
// the first wave team 0 does not win.
func (r *Runner) BossRush(userID string, team []string) (*Run, error) {
	if len(team) == 0 {
		return nil, ErrEmptyTeam
	}
	run := &Run{MatchID: r.newID(), Mode: ModeBossRush, UserID: userID}
	cat := r.engine.Catalog()
	for wave := 1; wave <= r.bossRushWaves; wave++ {
		spec := Spec{
			TeamA:  team,
			TeamB:  ids(cat.StoryWorld(wave + 5)),
			Seed:   "bossrush-" + userID + "-" + strconv.Itoa(wave),
			OwnerA: userID,
		}
		if err := r.play(run, wave, spec, true); err != nil {
			return nil, err
		}
		if !run.Final().Won(0) {
			break
		}
	}
	return run, nil
}

// InfiniteWaves fights StoryWorld(wave+8) for up to waves waves, stopping at
// the first loss. Zero waves means the runner's default.
func (r *Runner) InfiniteWaves(userID string, team []string, waves int) (*Run, error) {
	if len(team) == 0 {
		return nil, ErrEmptyTeam
	}
	if waves == 0 {
		waves = r.defaultWaves
	}
	if waves < 0 || waves > MaxInfiniteWaves {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWaves, waves)
	}
	run := &Run{MatchID: r.newID(), Mode: ModeInfiniteWaves, UserID: userID}
	cat := r.engine.Catalog()
	for wave := 1; wave <= waves; wave++ {
		spec := Spec{
			TeamA:  team,
			TeamB:  ids(cat.StoryWorld(wave + 8)),
			Seed:   "infinite-" + userID + "-" + strconv.Itoa(wave) + "-" + strconv.Itoa(waves),
			OwnerA: userID,
		}
		if err := r.play(run, wave, spec, true); err != nil {
			return nil, err
		}
		if !run.Final().Won(0) {
			break
		}
	}
	run.Success = run.Cleared == waves
	return run, nil
}

// Match pits two players' teams against each other under matchID.
func (r *Runner) Match(matchID uuid.UUID, userA string, teamA []string, userB string, teamB []string) (*Run, error) {
	if len(teamA) == 0 || len(teamB) == 0 {
		return nil, ErrEmptyTeam
	}
	if matchID == uuid.Nil {
		matchID = r.newID()
	}
	run := &Run{MatchID: matchID, Mode: ModeMatch, UserID: userA}
	spec := Spec{
		TeamA:  teamA,
		TeamB:  teamB,
		Seed:   "match-" + matchID.String(),
		OwnerA: userA,
		OwnerB: userB,
	}
	if err := r.play(run, 1, spec, false); err != nil {
		return nil, err
	}
	return run, nil
}

// Private fights team against a copy of itself.
func (r *Runner) Private(userID string, team []string) (*Run, error) {
	if len(team) == 0 {
		return nil, ErrEmptyTeam
	}
	run := &Run{MatchID: r.newID(), Mode: ModePrivate, UserID: userID}
	spec := Spec{
		TeamA:  team,
		TeamB:  team,
		Seed:   "private-" + run.MatchID.String(),
		OwnerA: userID,
		OwnerB: userID,
	}
	if err := r.play(run, 1, spec, false); err != nil {
		return nil, err
	}
	return run, nil
}

// play fights one wave and folds it into run.
func (r *Runner) play(run *Run, wave int, spec Spec, prefix bool) error {
	res, err := r.Fight(spec)
	if err != nil {
		r.logger.Error("wave failed",
			zap.String("mode", string(run.Mode)),
			zap.String("match_id", run.MatchID.String()),
			zap.Int("wave", wave),
			zap.Error(err))
		return fmt.Errorf("%s wave %d: %w", run.Mode, wave, err)
	}
	run.Waves = append(run.Waves, Wave{Number: wave, Spec: spec, Result: res})
	for _, e := range res.Events {
		if prefix {
			e.Detail = "[Wave " + strconv.Itoa(wave) + "] " + e.Detail
		}
		run.Events = append(run.Events, e)
	}
	if res.Won(0) && run.Cleared == wave-1 {
		run.Cleared = wave
	}
	run.Success = run.Cleared == len(run.Waves)
	r.logger.Debug("wave finished",
		zap.String("mode", string(run.Mode)),
		zap.String("match_id", run.MatchID.String()),
		zap.Int("wave", wave),
		zap.String("outcome", string(res.Outcome)),
		zap.Int("rounds", res.Rounds))
	return nil
}

func ids(cs []*catalog.Character) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}
