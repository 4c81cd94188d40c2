package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrMatchNotFound is returned when a match lookup yields no results.
	ErrMatchNotFound = errors.New("match not found")
	// ErrMatchExists is returned when saving a match id twice.
	ErrMatchExists = errors.New("match already recorded")
)

// MatchRecord is a persisted run: one or more waves, the narrative and each
// wave's checksum ledger.
type MatchRecord struct {
	ID         uuid.UUID
	Mode       string
	UserID     string
	Success    bool
	Cleared    int
	Modifier   string
	Difficulty float64
	CreatedAt  time.Time
	Waves      []WaveRecord
	Events     []EventRecord
}

// WaveRecord holds what is needed to replay one battle and the ledger it
// produced.
type WaveRecord struct {
	Number     int
	Seed       string
	TeamA      []string
	TeamB      []string
	Modifier   string
	Difficulty float64
	OwnerA     string
	OwnerB     string
	Outcome    string
	Winner     *int
	Rounds     int
	// Checksums holds one entry per completed round, in round order.
	Checksums []string
}

// EventRecord is one narrative entry.
type EventRecord struct {
	Type   string
	Detail string
	Data   map[string]any
}

// MatchSummary is a row of a player's match history.
type MatchSummary struct {
	ID        uuid.UUID
	Mode      string
	Success   bool
	Cleared   int
	CreatedAt time.Time
}

// MatchRepository stores and loads match records.
type MatchRepository struct {
	db *pgxpool.Pool
}

// NewMatchRepository creates a MatchRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewMatchRepository(db *pgxpool.Pool) *MatchRepository {
	return &MatchRepository{db: db}
}

// Save writes the match, its waves, snapshot ledgers and events in one
// transaction.
//
// Precondition: rec.ID must not be uuid.Nil; wave numbers must be unique.
// Postcondition: Returns ErrMatchExists on a duplicate id; on any error
// nothing is written. On success rec.CreatedAt is set.
func (r *MatchRepository) Save(ctx context.Context, rec *MatchRecord) error {
	if rec.ID == uuid.Nil {
		return errors.New("match id must be set")
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO matches (id, mode, user_id, success, cleared, modifier, difficulty)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at`,
		rec.ID, rec.Mode, rec.UserID, rec.Success, rec.Cleared, rec.Modifier, rec.Difficulty,
	).Scan(&rec.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrMatchExists
		}
		return fmt.Errorf("inserting match: %w", err)
	}

	batch := &pgx.Batch{}
	for _, w := range rec.Waves {
		batch.Queue(`
			INSERT INTO match_waves
				(match_id, wave, seed, team_a, team_b, modifier, difficulty,
				 owner_a, owner_b, outcome, winner, rounds)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			rec.ID, w.Number, w.Seed, w.TeamA, w.TeamB, w.Modifier, w.Difficulty,
			w.OwnerA, w.OwnerB, w.Outcome, w.Winner, w.Rounds,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting waves: %w", err)
	}

	var snapshots [][]any
	for _, w := range rec.Waves {
		for i, sum := range w.Checksums {
			snapshots = append(snapshots, []any{rec.ID, w.Number, i + 1, sum})
		}
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"match_snapshots"},
		[]string{"match_id", "wave", "round", "checksum"},
		pgx.CopyFromRows(snapshots),
	); err != nil {
		return fmt.Errorf("copying snapshots: %w", err)
	}

	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"match_events"},
		[]string{"match_id", "sequence", "event_type", "detail", "data"},
		pgx.CopyFromSlice(len(rec.Events), func(i int) ([]any, error) {
			e := rec.Events[i]
			return []any{rec.ID, i, e.Type, e.Detail, e.Data}, nil
		}),
	); err != nil {
		return fmt.Errorf("copying events: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing match: %w", err)
	}
	return nil
}

// Get loads a match with its waves, ledgers and events.
//
// Postcondition: Returns the record or ErrMatchNotFound.
func (r *MatchRepository) Get(ctx context.Context, id uuid.UUID) (*MatchRecord, error) {
	rec := MatchRecord{ID: id}
	err := r.db.QueryRow(ctx, `
		SELECT mode, user_id, success, cleared, modifier, difficulty, created_at
		FROM matches WHERE id = $1`,
		id,
	).Scan(&rec.Mode, &rec.UserID, &rec.Success, &rec.Cleared, &rec.Modifier, &rec.Difficulty, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("querying match: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT wave, seed, team_a, team_b, modifier, difficulty, owner_a, owner_b,
		       outcome, winner, rounds
		FROM match_waves WHERE match_id = $1 ORDER BY wave ASC`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("querying waves: %w", err)
	}
	byWave := map[int]int{}
	for rows.Next() {
		var w WaveRecord
		if err := rows.Scan(&w.Number, &w.Seed, &w.TeamA, &w.TeamB, &w.Modifier, &w.Difficulty,
			&w.OwnerA, &w.OwnerB, &w.Outcome, &w.Winner, &w.Rounds); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning wave row: %w", err)
		}
		byWave[w.Number] = len(rec.Waves)
		rec.Waves = append(rec.Waves, w)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading waves: %w", err)
	}

	rows, err = r.db.Query(ctx, `
		SELECT wave, checksum FROM match_snapshots
		WHERE match_id = $1 ORDER BY wave ASC, round ASC`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	for rows.Next() {
		var wave int
		var sum string
		if err := rows.Scan(&wave, &sum); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		if i, ok := byWave[wave]; ok {
			rec.Waves[i].Checksums = append(rec.Waves[i].Checksums, sum)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading snapshots: %w", err)
	}

	rows, err = r.db.Query(ctx, `
		SELECT event_type, detail, data FROM match_events
		WHERE match_id = $1 ORDER BY sequence ASC`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	rec.Events, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (EventRecord, error) {
		var e EventRecord
		err := row.Scan(&e.Type, &e.Detail, &e.Data)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("reading events: %w", err)
	}
	return &rec, nil
}

// ListByUser returns a user's most recent matches, newest first.
//
// Precondition: limit must be > 0.
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *MatchRepository) ListByUser(ctx context.Context, userID string, limit int) ([]MatchSummary, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, mode, success, cleared, created_at FROM matches
		WHERE user_id = $1 ORDER BY created_at DESC, id ASC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing matches: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (MatchSummary, error) {
		var s MatchSummary
		err := row.Scan(&s.ID, &s.Mode, &s.Success, &s.Cleared, &s.CreatedAt)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning match rows: %w", err)
	}
	return out, nil
}
