package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/ddlguard/internal/config"
	"github.com/aqasim81/ddlguard/internal/logging"
)

// setupTestConfig sets AppConfig to defaults adjusted by mutate for the
// duration of the test and restores it on cleanup.
func setupTestConfig(t *testing.T, mutate func(cfg *config.Config)) *config.Config {
	t.Helper()

	oldCfg, oldLogger := AppConfig, Logger

	cfg := config.New()
	cfg.PartPause = 0

	if mutate != nil {
		mutate(cfg)
	}

	AppConfig = cfg
	Logger = logging.Discard()

	t.Cleanup(func() { AppConfig, Logger = oldCfg, oldLogger })

	return cfg
}

// newTestCmd creates a fresh command wired to run with a captured output buffer.
func newTestCmd(t *testing.T, run func(*cobra.Command, []string) error, flags ...func(*cobra.Command)) (*cobra.Command, *bytes.Buffer) {
	t.Helper()

	buf := new(bytes.Buffer)
	cmd := &cobra.Command{RunE: run}

	for _, f := range flags {
		f(cmd)
	}

	cmd.SetOut(buf)
	cmd.SetErr(buf)

	return cmd, buf
}

// writeFiles creates files in a fresh temp dir and returns the dir.
func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}

	return dir
}

// numberedMigrations returns n Supabase-style files, each creating one index.
func numberedMigrations(n int) map[string]string {
	files := make(map[string]string, n)
	for i := 1; i <= n; i++ {
		files[fmt.Sprintf("202401010000%02d_step.sql", i)] = fmt.Sprintf("CREATE INDEX idx_%d ON t%d (id);", i, i)
	}

	return files
}

func readFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	return string(data)
}

func splitFlags(cmd *cobra.Command) {
	cmd.Flags().Int("parts", 0, "")
	cmd.Flags().String("out-dir", "", "")
	cmd.Flags().Bool("rewrite", false, "")
	addRewriteFlags(cmd)
}
