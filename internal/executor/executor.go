// Package executor applies migration parts to PostgreSQL one at a time,
// stopping at the first failure.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aqasim81/ddlguard/internal/database"
	"github.com/aqasim81/ddlguard/internal/migration"
	"github.com/aqasim81/ddlguard/internal/tracker"
)

// Progress status constants reported via ProgressEvent.
const (
	StatusStarting  = "starting"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
	StatusPending   = "pending" // dry run: would be applied
)

// ProgressEvent is emitted by the executor for each part processed.
type ProgressEvent struct {
	Part     *migration.Migration
	Index    int // 1-based position in the run
	Total    int
	Status   string
	Duration time.Duration
	Error    error
}

// PartTracker abstracts the tracking table for testability.
type PartTracker interface {
	EnsureTable(ctx context.Context) error
	IsApplied(ctx context.Context, part string) (bool, error)
	GetChecksum(ctx context.Context, part string) (string, error)
	RecordApplied(ctx context.Context, p tracker.RecordParams) error
}

// lockReleaser is returned by lockFn and must be released when done.
type lockReleaser interface {
	Release(ctx context.Context) error
}

// lockFunc acquires an advisory lock and returns a releaser.
type lockFunc func(ctx context.Context) (lockReleaser, error)

// sqlExecFunc executes a single part's SQL.
type sqlExecFunc func(ctx context.Context, m *migration.Migration) error

// waitFunc blocks for d or until ctx is done.
type waitFunc func(ctx context.Context, d time.Duration) error

// Executor applies parts with transaction safety, timeouts, a pause between
// parts and an advisory lock against concurrent runs.
type Executor struct {
	pool             *pgxpool.Pool
	tracker          PartTracker
	lockTimeout      time.Duration
	statementTimeout time.Duration
	pause            time.Duration
	dryRun           bool
	onProgress       func(ProgressEvent)
	acquireLock      lockFunc
	execSQL          sqlExecFunc
	wait             waitFunc
}

// Option configures an Executor.
type Option func(*Executor)

// WithLockTimeout sets the per-transaction lock_timeout.
func WithLockTimeout(d time.Duration) Option {
	return func(e *Executor) { e.lockTimeout = d }
}

// WithStatementTimeout sets the per-transaction statement_timeout.
func WithStatementTimeout(d time.Duration) Option {
	return func(e *Executor) { e.statementTimeout = d }
}

// WithPause sets the wait between two executed parts.
func WithPause(d time.Duration) Option {
	return func(e *Executor) { e.pause = d }
}

// WithDryRun enables dry-run mode where no SQL is executed.
func WithDryRun(b bool) Option {
	return func(e *Executor) { e.dryRun = b }
}

// WithProgressCallback sets a function called for each part processed.
func WithProgressCallback(fn func(ProgressEvent)) Option {
	return func(e *Executor) { e.onProgress = fn }
}

// New creates an Executor with the given pool, tracker, and options.
func New(pool *pgxpool.Pool, t PartTracker, opts ...Option) *Executor {
	e := &Executor{
		pool:    pool,
		tracker: t,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.acquireLock == nil {
		e.acquireLock = func(ctx context.Context) (lockReleaser, error) {
			return database.TryAcquireLock(ctx, e.pool)
		}
	}

	if e.execSQL == nil {
		e.execSQL = e.executePart
	}

	if e.wait == nil {
		e.wait = sleep
	}

	return e
}

// Apply executes pending parts in order. Applied parts are skipped after
// their checksum is verified. The first failure stops the run.
func (e *Executor) Apply(ctx context.Context, parts []migration.Migration) error {
	lock, err := e.acquireLock(ctx)
	if err != nil {
		return fmt.Errorf("acquiring apply lock: %w", err)
	}
	defer lock.Release(ctx) //nolint:errcheck // best-effort release on return

	if err := e.tracker.EnsureTable(ctx); err != nil {
		return err
	}

	executed := false

	for i := range parts {
		ran, err := e.applyOne(ctx, &parts[i], i+1, len(parts), executed)
		if err != nil {
			return err
		}

		executed = executed || ran
	}

	return nil
}

// applyOne handles a single part: skip if applied, dry-run check, pause
// after an earlier executed part, execute, record, and fire progress. It
// reports whether the part was executed.
func (e *Executor) applyOne(ctx context.Context, m *migration.Migration, index, total int, pauseFirst bool) (bool, error) {
	event := ProgressEvent{Part: m, Index: index, Total: total}

	skip, err := e.shouldSkip(ctx, m)
	if err != nil {
		return false, err
	}

	if skip {
		event.Status = StatusSkipped
		e.fireProgress(event)

		return false, nil
	}

	if e.dryRun {
		event.Status = StatusPending
		e.fireProgress(event)

		return false, nil
	}

	if pauseFirst && e.pause > 0 {
		if err := e.wait(ctx, e.pause); err != nil {
			return false, fmt.Errorf("waiting before part %s: %w", m.Version, err)
		}
	}

	event.Status = StatusStarting
	e.fireProgress(event)

	start := time.Now()
	execErr := e.execSQL(ctx, m)
	event.Duration = time.Since(start)

	if execErr != nil {
		event.Status = StatusFailed
		event.Error = execErr
		e.fireProgress(event)

		return false, fmt.Errorf("executing part %s (%s): %w", m.Version, m.Filename(), execErr)
	}

	if err := e.tracker.RecordApplied(ctx, tracker.RecordParams{
		Part:       m.Version,
		Filename:   m.Filename(),
		Checksum:   m.Checksum,
		DurationMs: int(event.Duration.Milliseconds()),
	}); err != nil {
		return false, fmt.Errorf("recording part %s: %w", m.Version, err)
	}

	event.Status = StatusCompleted
	e.fireProgress(event)

	return true, nil
}

// shouldSkip returns true if the part is already applied. A changed
// checksum is an error.
func (e *Executor) shouldSkip(ctx context.Context, m *migration.Migration) (bool, error) {
	applied, err := e.tracker.IsApplied(ctx, m.Version)
	if err != nil {
		return false, fmt.Errorf("checking part %s: %w", m.Version, err)
	}

	if !applied {
		return false, nil
	}

	storedChecksum, err := e.tracker.GetChecksum(ctx, m.Version)
	if err != nil {
		return false, fmt.Errorf("getting checksum for %s: %w", m.Version, err)
	}

	if storedChecksum != m.Checksum {
		return false, fmt.Errorf(
			"part %s: %w: stored=%s computed=%s",
			m.Version, tracker.ErrChecksumMismatch, storedChecksum, m.Checksum,
		)
	}

	return true, nil
}

// executePart runs a part in one transaction, or statement by statement
// outside a transaction when it creates an index concurrently.
func (e *Executor) executePart(ctx context.Context, m *migration.Migration) error {
	stmts, err := concurrentStatements(m.SQL)
	if err != nil {
		return err
	}

	if stmts != nil {
		return ExecWithoutTransaction(ctx, e.pool, stmts...)
	}

	return ExecInTransaction(ctx, e.pool, func(tx pgx.Tx) error {
		if e.lockTimeout > 0 {
			if err := SetLockTimeout(ctx, tx, e.lockTimeout); err != nil {
				return err
			}
		}

		if e.statementTimeout > 0 {
			if err := SetStatementTimeout(ctx, tx, e.statementTimeout); err != nil {
				return err
			}
		}

		if _, err := tx.Exec(ctx, m.SQL); err != nil {
			return fmt.Errorf("executing SQL: %w", err)
		}

		return nil
	})
}

func (e *Executor) fireProgress(event ProgressEvent) {
	if e.onProgress != nil {
		e.onProgress(event)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
