// Package history keeps a SQLite log of finished simulation runs. It records
// outcomes for later comparison; bandits are never restored from it.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/adalundhe/coinbandit/core/report"
)

// ErrRunNotFound is returned by Get for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// timeLayout is fixed width so started_at sorts chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ArmRecord is one coin's final counters and posterior in a recorded run.
type ArmRecord struct {
	Arm         int
	Probability float64
	Trials      int
	Successes   int
	Alpha       float64
	Beta        float64
}

// RunRecord is one finished simulation run.
type RunRecord struct {
	ID                  string
	StartedAt           time.Time
	Probabilities       []float64
	Rounds              int
	MovingAverageWindow int
	Seed                *uint64
	TotalReward         int
	FinalMovingAverage  *float64
	Arms                []ArmRecord
}

// NewRunID returns a fresh random run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// FromSummary builds the record for a run summarised by s.
func FromSummary(s report.Summary, startedAt time.Time, seed *uint64) RunRecord {
	rec := RunRecord{
		ID:                  s.RunID,
		StartedAt:           startedAt,
		Rounds:              s.Rounds,
		MovingAverageWindow: s.MovingAverageWindow,
		Seed:                seed,
		TotalReward:         s.TotalReward,
		FinalMovingAverage:  s.FinalMovingAverage,
		Probabilities:       make([]float64, len(s.Coins)),
		Arms:                make([]ArmRecord, len(s.Coins)),
	}
	if rec.ID == "" {
		rec.ID = NewRunID()
	}
	for i, c := range s.Coins {
		rec.Probabilities[i] = c.Probability
		rec.Arms[i] = ArmRecord{
			Arm:         c.Index,
			Probability: c.Probability,
			Trials:      c.Trials,
			Successes:   c.Heads,
			Alpha:       c.Alpha,
			Beta:        c.Beta,
		}
	}
	return rec
}

// Store is a SQLite-backed run history.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts rec and its arms in a single transaction.
func (s *Store) Record(ctx context.Context, rec RunRecord) error {
	probs, err := json.Marshal(rec.Probabilities)
	if err != nil {
		return fmt.Errorf("encode probabilities: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, num_arms, probabilities, rounds,
			moving_average_window, seed, total_reward, final_moving_average)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.StartedAt.UTC().Format(timeLayout), len(rec.Arms), string(probs),
		rec.Rounds, rec.MovingAverageWindow, encodeSeed(rec.Seed), rec.TotalReward, nullFloat(rec.FinalMovingAverage))
	if err != nil {
		return fmt.Errorf("insert run %s: %w", rec.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_arms (run_id, arm, probability, trials, successes, alpha, beta)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, arm := range rec.Arms {
		_, err := stmt.ExecContext(ctx, rec.ID, arm.Arm, arm.Probability, arm.Trials, arm.Successes, arm.Alpha, arm.Beta)
		if err != nil {
			return fmt.Errorf("insert arm %d of run %s: %w", arm.Arm, rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

const selectRuns = `
	SELECT id, started_at, probabilities, rounds, moving_average_window,
		seed, total_reward, final_moving_average
	FROM runs`

// List returns up to limit runs, newest first. A non-positive limit returns all.
func (s *Store) List(ctx context.Context, limit int) ([]RunRecord, error) {
	query := selectRuns + ` ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		arms, err := s.loadArms(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Arms = arms
	}
	return runs, nil
}

// Get returns the run with the given ID, or ErrRunNotFound.
func (s *Store) Get(ctx context.Context, id string) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, selectRuns+` WHERE id = ?`, id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return RunRecord{}, err
	}

	rec.Arms, err = s.loadArms(ctx, id)
	return rec, err
}

func (s *Store) loadArms(ctx context.Context, runID string) ([]ArmRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT arm, probability, trials, successes, alpha, beta
		FROM run_arms WHERE run_id = ? ORDER BY arm
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var arms []ArmRecord
	for rows.Next() {
		var a ArmRecord
		if err := rows.Scan(&a.Arm, &a.Probability, &a.Trials, &a.Successes, &a.Alpha, &a.Beta); err != nil {
			return nil, err
		}
		arms = append(arms, a)
	}
	return arms, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (RunRecord, error) {
	var (
		rec       RunRecord
		startedAt string
		probs     string
		seed      sql.NullString
		finalAvg  sql.NullFloat64
	)
	err := sc.Scan(&rec.ID, &startedAt, &probs, &rec.Rounds, &rec.MovingAverageWindow,
		&seed, &rec.TotalReward, &finalAvg)
	if err != nil {
		return RunRecord{}, err
	}

	rec.StartedAt, err = time.Parse(timeLayout, startedAt)
	if err != nil {
		return RunRecord{}, fmt.Errorf("run %s: parse started_at: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(probs), &rec.Probabilities); err != nil {
		return RunRecord{}, fmt.Errorf("run %s: decode probabilities: %w", rec.ID, err)
	}
	if seed.Valid {
		n, err := strconv.ParseUint(seed.String, 10, 64)
		if err != nil {
			return RunRecord{}, fmt.Errorf("run %s: parse seed: %w", rec.ID, err)
		}
		rec.Seed = &n
	}
	if finalAvg.Valid {
		v := finalAvg.Float64
		rec.FinalMovingAverage = &v
	}
	return rec, nil
}

func encodeSeed(seed *uint64) any {
	if seed == nil {
		return nil
	}
	return strconv.FormatUint(*seed, 10)
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
