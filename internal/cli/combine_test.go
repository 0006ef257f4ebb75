package cli

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func combineFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("rewrite", false, "")
	addRewriteFlags(cmd)
}

func TestRunCombine_concatenatesInOrder(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	src := writeFiles(t, numberedMigrations(3))
	out := filepath.Join(t.TempDir(), "combined.sql")
	setupTestConfig(t, nil)

	cmd, buf := newTestCmd(t, runCombine, combineFlags)
	require.NoError(t, runCombine(cmd, []string{src, out}))

	got := readFile(t, out)
	assert.True(t, strings.HasPrefix(got,
		"-- ============================================\n-- COMBINED - Migrations 1 to 3\n"))
	assert.Less(t, strings.Index(got, "idx_1"), strings.Index(got, "idx_2"))
	assert.Less(t, strings.Index(got, "idx_2"), strings.Index(got, "idx_3"))
	assert.NotContains(t, got, "DROP INDEX", "no guards without --rewrite")
	assert.Contains(t, buf.String(), "Combined 3 migration(s)")
}

func TestRunCombine_rewrite(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	src := writeFiles(t, numberedMigrations(2))
	out := filepath.Join(t.TempDir(), "combined.sql")
	setupTestConfig(t, nil)

	cmd, buf := newTestCmd(t, runCombine, combineFlags)
	require.NoError(t, cmd.Flags().Set("rewrite", "true"))
	require.NoError(t, runCombine(cmd, []string{src, out}))

	got := readFile(t, out)
	assert.Contains(t, got, "DROP INDEX IF EXISTS idx_1;\nCREATE INDEX idx_1")
	assert.Contains(t, got, "DROP INDEX IF EXISTS idx_2;\nCREATE INDEX idx_2")
	assert.Contains(t, buf.String(), "Total: 2 guard(s) inserted")
}

func TestRunCombine_emptyDir(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	out := filepath.Join(t.TempDir(), "combined.sql")
	setupTestConfig(t, nil)

	cmd, buf := newTestCmd(t, runCombine, combineFlags)
	require.NoError(t, runCombine(cmd, []string{t.TempDir(), out}))

	assert.Contains(t, buf.String(), "No migration files found.")
	assert.NoFileExists(t, out)
}

func TestRunCombine_missingDir(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	setupTestConfig(t, nil)

	cmd, _ := newTestCmd(t, runCombine, combineFlags)

	err := runCombine(cmd, []string{filepath.Join(t.TempDir(), "nope"), "out.sql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading migrations")
}
