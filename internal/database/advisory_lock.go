package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ApplyLockID is the advisory lock key held for the length of an apply run.
// Its bytes spell "ddlguard".
const ApplyLockID int64 = 0x6464_6c67_7561_7264

// LockHandle owns the pooled connection holding the session advisory lock.
type LockHandle struct {
	conn *pgxpool.Conn
}

// TryAcquireLock takes the apply lock without waiting. It returns
// ErrLockNotAcquired when another run holds it. The caller must Release the
// handle.
func TryAcquireLock(ctx context.Context, pool *pgxpool.Pool) (*LockHandle, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection for advisory lock: %w", err)
	}

	var acquired bool

	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", ApplyLockID).Scan(&acquired); err != nil {
		conn.Release()

		return nil, fmt.Errorf("executing pg_try_advisory_lock: %w", err)
	}

	if !acquired {
		conn.Release()

		return nil, ErrLockNotAcquired
	}

	return &LockHandle{conn: conn}, nil
}

// Release unlocks and returns the connection to the pool. Calling it again
// is a no-op.
func (h *LockHandle) Release(ctx context.Context) error {
	if h == nil || h.conn == nil {
		return nil
	}

	_, err := h.conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", ApplyLockID)
	h.conn.Release()
	h.conn = nil

	if err != nil {
		return fmt.Errorf("releasing advisory lock: %w", err)
	}

	return nil
}
