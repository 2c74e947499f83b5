package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DBPool abstracts pgxpool.Pool so the journal can be tested with pgxmock.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

const (
	sqlInsertRun = `
        INSERT INTO journal_runs (id, project_root, task, started_at)
        VALUES ($1, $2, $3, $4);
    `
	sqlInsertStep = `
        INSERT INTO journal_steps (run_id, iteration, thought, action, input, observation, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7);
    `
	sqlInsertError = `
        INSERT INTO journal_errors (run_id, error_type, file_path, message, context, created_at)
        VALUES ($1, $2, $3, $4, $5, $6);
    `
	sqlFinishRun = `
        UPDATE journal_runs SET finished_at = $2, outcome = $3 WHERE id = $1;
    `
)

// PostgresJournal records runs in PostgreSQL.
type PostgresJournal struct {
	pool  DBPool
	runID string
	log   *zap.Logger
}

var _ Journal = (*PostgresJournal)(nil)

// Connect opens a pool for dsn and verifies it.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create journal pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// NewPostgresJournal registers a new run row and returns its journal.
func NewPostgresJournal(ctx context.Context, pool DBPool, runID, projectRoot, task string, logger *zap.Logger) (*PostgresJournal, error) {
	if _, err := pool.Exec(ctx, sqlInsertRun, runID, projectRoot, task, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to register run %s: %w", runID, err)
	}
	return &PostgresJournal{
		pool:  pool,
		runID: runID,
		log:   logger.Named("journal.postgres"),
	}, nil
}

func (p *PostgresJournal) RunID() string { return p.runID }

// RecordStep inserts one loop iteration.
func (p *PostgresJournal) RecordStep(ctx context.Context, step Step) error {
	input, err := json.Marshal(step.Input)
	if err != nil || step.Input == nil {
		input = []byte("{}")
	}
	at := step.At
	if at.IsZero() {
		at = time.Now()
	}
	if _, err := p.pool.Exec(ctx, sqlInsertStep,
		p.runID, step.Iteration, step.Thought, step.Action, input, step.Observation, at.UTC(),
	); err != nil {
		return fmt.Errorf("failed to record step %d: %w", step.Iteration, err)
	}
	return nil
}

// RecordError inserts one error entry.
func (p *PostgresJournal) RecordError(ctx context.Context, entry Entry) error {
	payload, err := json.Marshal(entry.Context)
	if err != nil || entry.Context == nil {
		payload = []byte("{}")
	}
	if _, err := p.pool.Exec(ctx, sqlInsertError,
		p.runID, string(entry.ErrorType), entry.FilePath, entry.Message, payload, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to record error: %w", err)
	}
	return nil
}

// Close stamps the run as finished and releases the pool.
func (p *PostgresJournal) Close(ctx context.Context, outcome string) error {
	defer p.pool.Close()

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			p.log.Error("Failed to rollback transaction", zap.Error(rbErr))
		}
	}()

	if _, err := tx.Exec(ctx, sqlFinishRun, p.runID, time.Now().UTC(), outcome); err != nil {
		return fmt.Errorf("failed to finish run %s: %w", p.runID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
