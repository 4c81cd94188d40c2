// Package battle implements the deterministic, server-authoritative battle
// engine: the fighter resource model, skill resolution, the round scheduler
// and the checksum ledger used to audit replays.
package battle

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/ascension/internal/game/catalog"
	"github.com/cory-johannsen/ascension/internal/game/dice"
	"github.com/cory-johannsen/ascension/internal/game/status"
)

const (
	// MaxRounds is the hard round cap; reaching it ends the battle as a timeout.
	MaxRounds = 200
	// DefaultSeed is used when a caller supplies no seed.
	DefaultSeed = "ascension-online"
)

// ErrEmptyTeam is returned when either side has no fighters.
var ErrEmptyTeam = errors.New("team must have at least one fighter")

// Outcome classifies how a battle ended.
type Outcome string

const (
	OutcomeWin     Outcome = "win"
	OutcomeDraw    Outcome = "draw"    // every team wiped in the same round
	OutcomeTimeout Outcome = "timeout" // round cap reached
)

// Result is everything a finished battle hands back to its caller.
type Result struct {
	Seed      string
	Events    []Event
	Winner    *int // nil on draw or timeout
	Outcome   Outcome
	Rounds    int
	Final     *State
	Snapshots []Snapshot
}

// Won reports whether team won the battle.
func (r *Result) Won(team int) bool { return r.Winner != nil && *r.Winner == team }

// Checksums returns the snapshot ledger's checksums in round order.
func (r *Result) Checksums() []string {
	out := make([]string, len(r.Snapshots))
	for i, s := range r.Snapshots {
		out[i] = s.Checksum
	}
	return out
}

// Engine runs battles against a validated catalog. It holds no per-battle
// state and is safe for concurrent use.
type Engine struct {
	catalog     *catalog.Catalog
	logger      *zap.Logger
	defaultSeed string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithDefaultSeed overrides DefaultSeed.
func WithDefaultSeed(seed string) EngineOption {
	return func(e *Engine) {
		if seed != "" {
			e.defaultSeed = seed
		}
	}
}

// NewEngine validates that every catalog skill has a bound effect.
//
// Precondition: cat must not be nil.
// Postcondition: Returns a usable Engine, or an error wrapping ErrUnboundSkill.
func NewEngine(cat *catalog.Catalog, logger *zap.Logger, opts ...EngineOption) (*Engine, error) {
	if err := ValidateCatalog(cat); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{catalog: cat, logger: logger, defaultSeed: DefaultSeed}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Catalog returns the engine's roster.
func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// DefaultSeed returns the seed used when none is supplied.
func (e *Engine) DefaultSeed() string { return e.defaultSeed }

// Option tunes a single Simulate call.
type Option func(*simConfig)

type simConfig struct {
	maxRounds int
	owners    map[int]string
	logDraws  bool
}

// WithMaxRounds lowers the round cap for one battle. Values outside
// [1, MaxRounds] are ignored.
func WithMaxRounds(n int) Option {
	return func(c *simConfig) {
		if n >= 1 && n <= MaxRounds {
			c.maxRounds = n
		}
	}
}

// WithOwner tags every fighter on team with an owning account id.
func WithOwner(team int, userID string) Option {
	return func(c *simConfig) { c.owners[team] = userID }
}

// WithDrawLogging logs every sequence draw at debug level.
func WithDrawLogging() Option {
	return func(c *simConfig) { c.logDraws = true }
}

// SimulateIDs resolves both rosters by character id and runs Simulate.
func (e *Engine) SimulateIDs(teamA, teamB []string, seed string, opts ...Option) (*Result, error) {
	a, err := e.catalog.Resolve(teamA)
	if err != nil {
		return nil, fmt.Errorf("team A: %w", err)
	}
	b, err := e.catalog.Resolve(teamB)
	if err != nil {
		return nil, fmt.Errorf("team B: %w", err)
	}
	return e.Simulate(a, b, seed, opts...)
}

// Simulate runs one battle to completion. teamA fights as team 0 and teamB as
// team 1; an empty seed means the engine's default seed.
//
// The run is a pure function of the rosters and the seed.
//
// Postcondition: On success Rounds <= MaxRounds, len(Snapshots) == Rounds and
// Winner is set iff Outcome is OutcomeWin. Returns an error wrapping
// ErrDebtCapExceeded if the engine breaks its energy invariant.
func (e *Engine) Simulate(teamA, teamB []*catalog.Character, seed string, opts ...Option) (*Result, error) {
	if len(teamA) == 0 || len(teamB) == 0 {
		return nil, ErrEmptyTeam
	}
	cfg := simConfig{maxRounds: MaxRounds, owners: map[int]string{}}
	for _, o := range opts {
		o(&cfg)
	}
	if seed == "" {
		seed = e.defaultSeed
	}
	log := e.logger.With(zap.String("seed", seed))

	var src dice.Source = dice.NewSequence(seed)
	if cfg.logDraws {
		src = dice.NewLoggedSource(src, log)
	}
	state := NewState(src, teamA, teamB)
	for _, f := range state.Fighters {
		f.UserID = cfg.owners[f.Team]
	}

	res := &Result{Seed: seed, Outcome: OutcomeTimeout, Final: state}
	sink := Collect(&res.Events)
	log.Debug("battle started", zap.Int("team_a", len(teamA)), zap.Int("team_b", len(teamB)))

	for state.Round < cfg.maxRounds {
		if err := playRound(state, sink); err != nil {
			log.Error("battle aborted", zap.Int("round", state.Round), zap.Error(err))
			return nil, fmt.Errorf("round %d: %w", state.Round, err)
		}
		res.Snapshots = append(res.Snapshots, TakeSnapshot(state))
		if teams := state.livingTeams(); len(teams) <= 1 {
			if len(teams) == 1 {
				winner := teams[0]
				res.Winner = &winner
				res.Outcome = OutcomeWin
			} else {
				res.Outcome = OutcomeDraw
			}
			break
		}
	}
	res.Rounds = state.Round

	fields := []zap.Field{zap.String("outcome", string(res.Outcome)), zap.Int("rounds", res.Rounds)}
	if res.Winner != nil {
		fields = append(fields, zap.Int("winner", *res.Winner))
	}
	log.Debug("battle finished", fields...)
	return res, nil
}

// playRound advances state by one round.
func playRound(state *State, sink Sink) error {
	state.Round++
	for _, f := range state.actingOrder() {
		if !f.Alive() {
			continue
		}
		if err := takeTurn(state, f, sink); err != nil {
			return err
		}
	}
	return nil
}

func takeTurn(state *State, f *Fighter, sink Sink) error {
	f.decrementCooldowns()
	f.TickStatuses(sink)
	if !f.Alive() {
		return nil
	}
	if f.Statuses.Has(status.Bind) {
		sink(Event{Kind: EventStatus, Detail: fmt.Sprintf("%s is bound and misses a turn", f.Name())})
		return nil
	}
	if f.Statuses.Has(status.TimelineFreeze) {
		f.Statuses.Remove(status.TimelineFreeze)
		sink(Event{Kind: EventStatus, Detail: fmt.Sprintf("%s is frozen in time and skips this turn", f.Name())})
		return nil
	}
	if f.Volatility > 0 && state.rng.Float64() < f.Volatility {
		f.ApplyStatus(status.CEBurn, 1, 1)
		sink(Event{Kind: EventStatus, Detail: fmt.Sprintf("%s's unstable CE crackles", f.Name()),
			Data: map[string]any{"volatility": f.Volatility}})
	}
	skill := f.chooseSkill()
	if err := Execute(state, f, skill.ID, sink); err != nil {
		return err
	}
	if err := ResolveEcho(state, f, skill.ID, sink); err != nil {
		return err
	}
	state.Chain.advance()
	return nil
}
