// Package store persists experiment summaries in a local libSQL database.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	_ "github.com/tursodatabase/go-libsql"

	"github.com/ZanzyTHEbar/vfogsim/internal/engine"
	"github.com/ZanzyTHEbar/vfogsim/internal/experiment"
	"github.com/ZanzyTHEbar/vfogsim/internal/utils"
)

//go:embed migrations/*.sql
var migrations embed.FS

const driverName = "libsql"

// ErrRunExists is returned when saving a report whose run id is already stored.
var ErrRunExists = errors.New("run already stored")

// RunSummary is one row of the runs table.
type RunSummary struct {
	RunID           string
	StartedAt       time.Time
	Seed            uint64
	Trials          int
	Nodes           int
	Tasks           int
	CriticalPath    float64
	ElapsedSeconds  float64
	DMITSSuccess    float64
	ProposedSuccess float64
	DMITSDelay      float64
	ProposedDelay   float64
}

// TrialRow is one policy's result for one trial.
type TrialRow struct {
	Trial         int
	Policy        string
	Seed          uint64
	Total         int
	Completed     int
	Failed        int
	Blocked       int
	Attempts      int
	Retries       int
	ExecutionTime float64
	AttemptTime   float64
}

// Store is a result database.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open opens (creating if needed) the database at path and applies pending migrations.
func Open(ctx context.Context, path string, logger zerolog.Logger) (*Store, error) {
	if err := utils.EnsureParentDir(path); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	db, err := sql.Open(driverName, "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, logger: logger.With().Str("component", "store").Logger()}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, fsys)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, r := range results {
		s.logger.Debug().Int64("version", r.Source.Version).Dur("took", r.Duration).Msg("migration applied")
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveReport stores the run summary and every trial result in one transaction.
func (s *Store) SaveReport(ctx context.Context, r *experiment.Report) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE run_id = ?`, r.RunID).Scan(&exists); err != nil {
		return fmt.Errorf("check run: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("%w: %s", ErrRunExists, r.RunID)
	}

	sum := r.Summary
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, started_at, seed, trials, nodes, tasks, critical_path, elapsed_seconds,
			dmits_success, proposed_success, dmits_delay, proposed_delay)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.StartedAt.UTC().Format(time.RFC3339Nano), strconv.FormatUint(r.Seed, 10),
		r.Trials, r.Nodes, r.Tasks, r.CriticalPath, r.ElapsedSeconds,
		sum.DMITS.SuccessRate.Mean, sum.Proposed.SuccessRate.Mean,
		sum.DMITS.AverageDelay.Mean, sum.Proposed.AverageDelay.Mean,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, pair := range r.Results {
		if pair == nil {
			continue
		}
		for _, res := range []*engine.TrialResult{pair.DMITS, pair.Proposed, pair.Baseline} {
			if err = insertTrial(ctx, tx, r.RunID, res); err != nil {
				return err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug().Str("run_id", r.RunID).Int("trials", len(r.Results)).Msg("report saved")
	return nil
}

func insertTrial(ctx context.Context, tx *sql.Tx, runID string, res *engine.TrialResult) error {
	if res == nil {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO trial_results (run_id, trial, policy, seed, total, completed, failed, blocked,
			attempts, retries, execution_time, attempt_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, res.Trial, res.Policy, strconv.FormatUint(res.Seed, 10),
		res.Total, res.Completed, res.Failed, res.Blocked,
		res.Attempts, res.Retries, res.ExecutionTime, res.AttemptTime,
	)
	if err != nil {
		return fmt.Errorf("insert trial %d/%s: %w", res.Trial, res.Policy, err)
	}
	return nil
}

// ListRuns returns the most recent runs first. A non-positive limit returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `
		SELECT run_id, started_at, seed, trials, nodes, tasks, critical_path, elapsed_seconds,
			dmits_success, proposed_success, dmits_delay, proposed_delay
		FROM runs ORDER BY started_at DESC, run_id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			rs        RunSummary
			startedAt string
			seed      string
		)
		if err := rows.Scan(&rs.RunID, &startedAt, &seed, &rs.Trials, &rs.Nodes, &rs.Tasks,
			&rs.CriticalPath, &rs.ElapsedSeconds, &rs.DMITSSuccess, &rs.ProposedSuccess,
			&rs.DMITSDelay, &rs.ProposedDelay); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if rs.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("run %s: bad timestamp: %w", rs.RunID, err)
		}
		if rs.Seed, err = strconv.ParseUint(seed, 10, 64); err != nil {
			return nil, fmt.Errorf("run %s: bad seed: %w", rs.RunID, err)
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}

// TrialResults returns the stored trial rows of a run, ordered by trial then policy.
func (s *Store) TrialResults(ctx context.Context, runID string) ([]TrialRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT trial, policy, seed, total, completed, failed, blocked, attempts, retries,
			execution_time, attempt_time
		FROM trial_results WHERE run_id = ? ORDER BY trial, policy`, runID)
	if err != nil {
		return nil, fmt.Errorf("query trials: %w", err)
	}
	defer rows.Close()

	var out []TrialRow
	for rows.Next() {
		var (
			tr   TrialRow
			seed string
		)
		if err := rows.Scan(&tr.Trial, &tr.Policy, &seed, &tr.Total, &tr.Completed, &tr.Failed,
			&tr.Blocked, &tr.Attempts, &tr.Retries, &tr.ExecutionTime, &tr.AttemptTime); err != nil {
			return nil, fmt.Errorf("scan trial: %w", err)
		}
		if tr.Seed, err = strconv.ParseUint(seed, 10, 64); err != nil {
			return nil, fmt.Errorf("trial %d: bad seed: %w", tr.Trial, err)
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}
