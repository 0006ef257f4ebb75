package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/ddlguard/internal/config"
	"github.com/aqasim81/ddlguard/internal/migration"
	"github.com/aqasim81/ddlguard/internal/partition"
)

func TestRunSplit_23FilesInto10Parts(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	src := writeFiles(t, numberedMigrations(23))
	outDir := t.TempDir()
	setupTestConfig(t, func(cfg *config.Config) { cfg.PartsDir = outDir })

	cmd, buf := newTestCmd(t, runSplit, splitFlags)
	require.NoError(t, runSplit(cmd, []string{src}))

	for n := 1; n <= 8; n++ {
		assert.FileExists(t, filepath.Join(outDir, partition.FileName(config.DefaultPartPrefix, n)))
	}

	assert.NoFileExists(t, filepath.Join(outDir, partition.FileName(config.DefaultPartPrefix, 9)))

	first := readFile(t, filepath.Join(outDir, "migration_part_1.sql"))
	assert.Contains(t, first, "-- PART 1/8 - Migrations 1 to 3\n")
	assert.Contains(t, first, "idx_3 ")
	assert.NotContains(t, first, "idx_4 ")

	last := readFile(t, filepath.Join(outDir, "migration_part_8.sql"))
	assert.Contains(t, last, "-- PART 8/8 - Migrations 22 to 23\n")

	assert.Contains(t, buf.String(), "Split 23 migration(s) into 8 part(s)")
}

func TestRunSplit_flagsOverrideConfig(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	src := writeFiles(t, numberedMigrations(4))
	outDir := filepath.Join(t.TempDir(), "nested", "parts")
	setupTestConfig(t, nil)

	cmd, _ := newTestCmd(t, runSplit, splitFlags)
	require.NoError(t, cmd.Flags().Set("parts", "2"))
	require.NoError(t, cmd.Flags().Set("out-dir", outDir))
	require.NoError(t, cmd.Flags().Set("rewrite", "true"))
	require.NoError(t, runSplit(cmd, []string{src}))

	for n := 1; n <= 2; n++ {
		got := readFile(t, filepath.Join(outDir, fmt.Sprintf("migration_part_%d.sql", n)))
		assert.Equal(t, 2, strings.Count(got, "DROP INDEX IF EXISTS"), "part %d", n)
	}

	assert.NoFileExists(t, filepath.Join(outDir, "migration_part_3.sql"))
}

func TestRunSplit_fewerPartsRemovesStaleFiles(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	src := writeFiles(t, numberedMigrations(23))
	outDir := writeFiles(t, map[string]string{"notes.sql": "-- keep me"})
	setupTestConfig(t, func(cfg *config.Config) { cfg.PartsDir = outDir })

	cmd, _ := newTestCmd(t, runSplit, splitFlags)
	require.NoError(t, cmd.Flags().Set("parts", "10"))
	require.NoError(t, runSplit(cmd, []string{src}))

	parts, err := migration.LoadParts(outDir, config.DefaultPartPrefix)
	require.NoError(t, err)
	require.Len(t, parts, 8)

	cmd, buf := newTestCmd(t, runSplit, splitFlags)
	require.NoError(t, cmd.Flags().Set("parts", "4"))
	require.NoError(t, runSplit(cmd, []string{src}))

	parts, err = migration.LoadParts(outDir, config.DefaultPartPrefix)
	require.NoError(t, err)
	require.Len(t, parts, 4)
	assert.Contains(t, parts[3].SQL, "-- PART 4/4 - Migrations 19 to 23\n")

	for n := 5; n <= 8; n++ {
		path := filepath.Join(outDir, partition.FileName(config.DefaultPartPrefix, n))
		assert.NoFileExists(t, path)
		assert.Contains(t, buf.String(), path+"  removed")
	}

	assert.Equal(t, "-- keep me", readFile(t, filepath.Join(outDir, "notes.sql")))
}

func TestRunSplit_invalidPartCount(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	src := writeFiles(t, numberedMigrations(2))
	setupTestConfig(t, func(cfg *config.Config) { cfg.PartsDir = t.TempDir() })

	cmd, _ := newTestCmd(t, runSplit, splitFlags)
	require.NoError(t, cmd.Flags().Set("parts", "0"))

	err := runSplit(cmd, []string{src})
	require.ErrorIs(t, err, partition.ErrInvalidPartCount)
}

func TestRunPlan(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	src := writeFiles(t, numberedMigrations(5))
	setupTestConfig(t, func(cfg *config.Config) { cfg.Parts = 2 })

	cmd, buf := newTestCmd(t, runPlan)
	cmd.Flags().Int("parts", 0, "")
	require.NoError(t, runPlan(cmd, []string{src}))

	out := buf.String()
	assert.Contains(t, out, "PART 1/2 - Migrations 1 to 3")
	assert.Contains(t, out, "PART 2/2 - Migrations 4 to 5")
	assert.Contains(t, out, "-> migration_part_2.sql")
	assert.Contains(t, out, "20240101000005_step.sql")
	assert.Contains(t, out, "5 migration(s) in 2 part(s).")
}
