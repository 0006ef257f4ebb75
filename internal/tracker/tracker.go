// Package tracker records which migration parts have been applied.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AppliedPart is one row of the tracking table.
type AppliedPart struct {
	Part       string // zero-padded part number, e.g. "0003"
	Filename   string
	Checksum   string
	AppliedAt  time.Time
	DurationMs int
}

// RecordParams contains the fields needed to record a part as applied.
type RecordParams struct {
	Part       string
	Filename   string
	Checksum   string
	DurationMs int
}

// Tracker manages the tracking table.
type Tracker struct {
	pool *pgxpool.Pool
}

// New creates a Tracker backed by the given connection pool.
func New(pool *pgxpool.Pool) *Tracker {
	return &Tracker{pool: pool}
}

// EnsureTable creates the tracking table if it does not exist.
func (t *Tracker) EnsureTable(ctx context.Context) error {
	if _, err := t.pool.Exec(ctx, createSchemaSQL); err != nil {
		return fmt.Errorf("%w: %w", ErrTableCreation, err)
	}

	return nil
}

// IsApplied reports whether a part has been applied.
func (t *Tracker) IsApplied(ctx context.Context, part string) (bool, error) {
	var exists bool

	err := t.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM `+TableName+` WHERE part = $1)`,
		part,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking if part %s is applied: %w", part, err)
	}

	return exists, nil
}

// GetApplied returns all applied parts ordered by part number.
func (t *Tracker) GetApplied(ctx context.Context) ([]AppliedPart, error) {
	rows, err := t.pool.Query(ctx,
		`SELECT part, filename, checksum, applied_at, duration_ms
		 FROM `+TableName+`
		 ORDER BY part`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying applied parts: %w", err)
	}
	defer rows.Close()

	applied, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (AppliedPart, error) {
		var p AppliedPart
		if scanErr := row.Scan(&p.Part, &p.Filename, &p.Checksum, &p.AppliedAt, &p.DurationMs); scanErr != nil {
			return AppliedPart{}, fmt.Errorf("scanning part row: %w", scanErr)
		}

		return p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning applied parts: %w", err)
	}

	return applied, nil
}

// RecordApplied inserts a part record, replacing any earlier one.
func (t *Tracker) RecordApplied(ctx context.Context, p RecordParams) error {
	_, err := t.pool.Exec(ctx,
		`INSERT INTO `+TableName+` (part, filename, checksum, duration_ms)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (part) DO UPDATE SET
		     filename = EXCLUDED.filename,
		     checksum = EXCLUDED.checksum,
		     applied_at = NOW(),
		     duration_ms = EXCLUDED.duration_ms`,
		p.Part, p.Filename, p.Checksum, p.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("recording part %s as applied: %w", p.Part, err)
	}

	return nil
}

// GetChecksum returns the recorded checksum for a part.
func (t *Tracker) GetChecksum(ctx context.Context, part string) (string, error) {
	var checksum string

	err := t.pool.QueryRow(ctx,
		`SELECT checksum FROM `+TableName+` WHERE part = $1`,
		part,
	).Scan(&checksum)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("part %s: %w", part, ErrPartNotFound)
		}

		return "", fmt.Errorf("getting checksum for part %s: %w", part, err)
	}

	return checksum, nil
}
