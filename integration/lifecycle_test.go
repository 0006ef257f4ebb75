//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/ddlguard/internal/database"
	"github.com/aqasim81/ddlguard/internal/executor"
	"github.com/aqasim81/ddlguard/internal/migration"
	"github.com/aqasim81/ddlguard/internal/partition"
	"github.com/aqasim81/ddlguard/internal/rewriter"
	"github.com/aqasim81/ddlguard/internal/tracker"
)

// rawSchema is a migration history as written by hand: every CREATE below
// except the table fails when the file is applied a second time.
const rawSchema = `CREATE TABLE IF NOT EXISTS accounts (id SERIAL PRIMARY KEY, owner TEXT, updated_at TIMESTAMPTZ);

CREATE OR REPLACE FUNCTION touch() RETURNS trigger AS $$
BEGIN
  NEW.updated_at := now();
  CREATE INDEX never_runs ON accounts (id);
  RETURN NEW;
END;
$$ LANGUAGE plpgsql;

ALTER TABLE accounts ENABLE ROW LEVEL SECURITY;

CREATE POLICY "Owners read" ON public.accounts FOR SELECT USING (owner = current_user);

CREATE TRIGGER accounts_touch
  BEFORE UPDATE
  ON public.accounts
  FOR EACH ROW EXECUTE FUNCTION touch();

CREATE INDEX idx_accounts_owner ON accounts (owner);
CREATE UNIQUE INDEX uq_accounts_id ON accounts (id);
`

func part(n int, sql string) migration.Migration {
	return migration.Migration{
		Version:  fmt.Sprintf("%04d", n),
		Name:     fmt.Sprintf("migration_part_%d", n),
		SQL:      sql,
		Checksum: migration.ComputeChecksum(sql),
		FilePath: fmt.Sprintf("parts/migration_part_%d.sql", n),
	}
}

func threeParts() []migration.Migration {
	return []migration.Migration{
		part(1, "CREATE TABLE IF NOT EXISTS users (id SERIAL PRIMARY KEY, name TEXT NOT NULL);"),
		part(2, "CREATE TABLE IF NOT EXISTS posts (id SERIAL PRIMARY KEY, user_id INTEGER REFERENCES users(id));"),
		part(3, "DROP INDEX IF EXISTS idx_posts_user;\nCREATE INDEX idx_posts_user ON posts (user_id);"),
	}
}

func recordEvents(events *[]executor.ProgressEvent) executor.Option {
	return executor.WithProgressCallback(func(e executor.ProgressEvent) {
		*events = append(*events, e)
	})
}

func TestRewrite_guardedDocumentReRuns(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()

	res := rewriter.New().Rewrite(rawSchema)
	require.Equal(t, 4, res.Inserted())

	_, err := pool.Exec(ctx, rawSchema)
	require.NoError(t, err, "first run of the raw document")

	_, err = pool.Exec(ctx, rawSchema)
	require.Error(t, err, "raw document is not re-runnable")

	for run := 1; run <= 2; run++ {
		_, err = pool.Exec(ctx, res.Output)
		require.NoError(t, err, "guarded run %d", run)
	}

	var policies int
	require.NoError(t, pool.QueryRow(ctx,
		"SELECT count(*) FROM pg_policies WHERE policyname = 'Owners read'").Scan(&policies))
	assert.Equal(t, 1, policies)

	var blockIndex bool
	require.NoError(t, pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM pg_indexes WHERE indexname = 'never_runs')").Scan(&blockIndex))
	assert.False(t, blockIndex, "statements inside the function body are not executed")
}

func TestApply_partsAppliedInOrderAndTracked(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()
	tr := tracker.New(pool)

	var events []executor.ProgressEvent

	require.NoError(t, executor.New(pool, tr, recordEvents(&events)).Apply(ctx, threeParts()))

	applied, err := tr.GetApplied(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 3)

	for i, a := range applied {
		assert.Equal(t, fmt.Sprintf("%04d", i+1), a.Part)
		assert.Equal(t, fmt.Sprintf("migration_part_%d.sql", i+1), a.Filename)
		assert.GreaterOrEqual(t, a.DurationMs, 0)
	}

	require.Len(t, events, 6)

	for i := range 3 {
		assert.Equal(t, executor.StatusStarting, events[i*2].Status)
		assert.Equal(t, executor.StatusCompleted, events[i*2+1].Status)
		assert.Equal(t, 3, events[i*2].Total)
	}
}

func TestApply_rerunSkipsAppliedParts(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()
	tr := tracker.New(pool)

	require.NoError(t, executor.New(pool, tr).Apply(ctx, threeParts()))

	var events []executor.ProgressEvent

	require.NoError(t, executor.New(pool, tr, recordEvents(&events)).Apply(ctx, threeParts()))
	require.Len(t, events, 3)

	for _, e := range events {
		assert.Equal(t, executor.StatusSkipped, e.Status)
	}
}

func TestApply_guardedPartReRunsAfterTrackingLoss(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()

	parts := []migration.Migration{part(1, rewriter.New().Rewrite(rawSchema).Output)}

	require.NoError(t, executor.New(pool, tracker.New(pool)).Apply(ctx, parts))

	_, err := pool.Exec(ctx, "TRUNCATE "+tracker.TableName)
	require.NoError(t, err)

	require.NoError(t, executor.New(pool, tracker.New(pool)).Apply(ctx, parts))
}

func TestApply_checksumMismatch_returnsError(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()
	tr := tracker.New(pool)

	require.NoError(t, executor.New(pool, tr).Apply(ctx, threeParts()[:1]))

	changed := []migration.Migration{part(1, "CREATE TABLE IF NOT EXISTS users (id SERIAL PRIMARY KEY);")}

	err := executor.New(pool, tr).Apply(ctx, changed)
	require.ErrorIs(t, err, tracker.ErrChecksumMismatch)
}

func TestApply_concurrentIndex_executesOutsideTransaction(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()
	tr := tracker.New(pool)

	parts := []migration.Migration{
		part(1, "CREATE TABLE IF NOT EXISTS items (id SERIAL PRIMARY KEY, name TEXT);"),
		part(2, "DROP INDEX IF EXISTS idx_items_name;\nCREATE INDEX CONCURRENTLY idx_items_name ON items (name);"),
	}

	require.NoError(t, executor.New(pool, tr).Apply(ctx, parts))

	var exists bool
	require.NoError(t, pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM pg_indexes WHERE indexname = 'idx_items_name')").Scan(&exists))
	assert.True(t, exists)
}

func TestApply_dryRun_noChanges(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()
	tr := tracker.New(pool)

	var events []executor.ProgressEvent

	require.NoError(t, executor.New(pool, tr, executor.WithDryRun(true), recordEvents(&events)).
		Apply(ctx, threeParts()))

	require.Len(t, events, 3)

	for _, e := range events {
		assert.Equal(t, executor.StatusPending, e.Status)
	}

	applied, err := tr.GetApplied(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestApply_stopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()
	tr := tracker.New(pool)

	parts := []migration.Migration{
		part(1, "CREATE TABLE IF NOT EXISTS widgets (id SERIAL PRIMARY KEY);"),
		part(2, "CREATE TABLE bad (fk INTEGER REFERENCES nonexistent(id));"),
		part(3, "CREATE TABLE IF NOT EXISTS never (id INT);"),
	}

	var events []executor.ProgressEvent

	err := executor.New(pool, tr, recordEvents(&events)).Apply(ctx, parts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "executing part 0002 (migration_part_2.sql)")

	applied, err := tr.GetApplied(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, "0001", applied[0].Part)

	last := events[len(events)-1]
	assert.Equal(t, executor.StatusFailed, last.Status)
	assert.Equal(t, 2, last.Index)

	var neverExists bool
	require.NoError(t, pool.QueryRow(ctx, "SELECT to_regclass('never') IS NOT NULL").Scan(&neverExists))
	assert.False(t, neverExists, "parts after the failure are not run")
}

func TestApply_lockTimeoutAbortsBlockedPart(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()

	_, err := pool.Exec(ctx, "CREATE TABLE locked (id INT)")
	require.NoError(t, err)

	holder, err := pool.Begin(ctx)
	require.NoError(t, err)

	t.Cleanup(func() { _ = holder.Rollback(context.Background()) })

	_, err = holder.Exec(ctx, "LOCK TABLE locked IN ACCESS EXCLUSIVE MODE")
	require.NoError(t, err)

	exec := executor.New(pool, tracker.New(pool), executor.WithLockTimeout(200*time.Millisecond))

	err = exec.Apply(ctx, []migration.Migration{part(1, "ALTER TABLE locked ADD COLUMN IF NOT EXISTS name TEXT;")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lock timeout")

	// SET LOCAL ends with the transaction.
	var timeout string
	require.NoError(t, pool.QueryRow(ctx, "SHOW lock_timeout").Scan(&timeout))
	assert.Equal(t, "0", timeout)
}

func TestApply_advisoryLockHeld_refuses(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()

	lock, err := database.TryAcquireLock(ctx, pool)
	require.NoError(t, err)

	t.Cleanup(func() { _ = lock.Release(context.Background()) })

	err = executor.New(pool, tracker.New(pool)).Apply(ctx, threeParts())
	require.ErrorIs(t, err, database.ErrLockNotAcquired)
}

func TestApply_concurrentRuns_oneApplies(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()

	var wg sync.WaitGroup

	errs := make([]error, 2)

	for i := range 2 {
		wg.Add(1)

		go func(idx int) {
			defer wg.Done()

			errs[idx] = executor.New(pool, tracker.New(pool)).Apply(ctx, threeParts())
		}(i)
	}

	wg.Wait()

	succeeded := 0

	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, database.ErrLockNotAcquired)
		}
	}

	assert.GreaterOrEqual(t, succeeded, 1)

	applied, err := tracker.New(pool).GetApplied(ctx)
	require.NoError(t, err)
	assert.Len(t, applied, 3)
}

func TestSplitAndApply_endToEnd(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()

	sources := map[string]string{
		"20240101000001_users.sql":   "CREATE TABLE IF NOT EXISTS users (id SERIAL PRIMARY KEY, email TEXT);",
		"20240101000002_index.sql":   "CREATE UNIQUE INDEX users_email_key ON users (email);",
		"20240101000003_posts.sql":   "CREATE TABLE IF NOT EXISTS posts (id SERIAL PRIMARY KEY, user_id INT REFERENCES users (id));",
		"20240101000004_rls.sql":     "ALTER TABLE posts ENABLE ROW LEVEL SECURITY;",
		"20240101000005_policy.sql":  `CREATE POLICY "Authors read" ON posts FOR SELECT USING (true);`,
		"20240101000006_post_ix.sql": "CREATE INDEX posts_user_idx ON posts (user_id);",
	}

	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}

	slices.Sort(names)

	parts, err := partition.Plan(names, 4)
	require.NoError(t, err)
	require.Len(t, parts, 3)

	dir := t.TempDir()
	load := func(name string) (string, error) { return sources[name], nil }
	rw := rewriter.New()

	for _, p := range parts {
		var b strings.Builder
		require.NoError(t, partition.Render(&b, p, len(parts), load))

		path := filepath.Join(dir, partition.FileName(partition.DefaultPrefix, p.Number))
		require.NoError(t, os.WriteFile(path, []byte(rw.Rewrite(b.String()).Output), 0o600))
	}

	loaded, err := migration.LoadParts(dir, partition.DefaultPrefix)
	require.NoError(t, err)
	require.Len(t, loaded, 3)

	tr := tracker.New(pool)
	require.NoError(t, executor.New(pool, tr, executor.WithPause(time.Millisecond)).Apply(ctx, loaded))

	// Lose the tracking rows and apply again: every part is re-runnable.
	_, err = pool.Exec(ctx, "TRUNCATE "+tracker.TableName)
	require.NoError(t, err)
	require.NoError(t, executor.New(pool, tr).Apply(ctx, loaded))

	applied, err := tr.GetApplied(ctx)
	require.NoError(t, err)
	assert.Len(t, applied, 3)
}
