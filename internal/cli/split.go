package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aqasim81/ddlguard/internal/migration"
	"github.com/aqasim81/ddlguard/internal/partition"
)

const dirMode = 0o755

var splitCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "split [migrations-dir]",
	Short: "Split migration files into numbered part files",
	Long: `Split the migration files into at most --parts contiguous groups of
equal size (the last may be smaller) and write each group as
migration_part_<N>.sql with a banner naming its number, the part count and
the range of source files it covers. With --rewrite each part is guarded.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSplit,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	splitCmd.Flags().Int("parts", 0, "number of parts (default from config)")
	splitCmd.Flags().String("out-dir", "", "directory for part files (default from config)")
	splitCmd.Flags().Bool("rewrite", false, "insert DROP ... IF EXISTS guards into every part")
	addRewriteFlags(splitCmd)
	rootCmd.AddCommand(splitCmd)
}

func runSplit(cmd *cobra.Command, args []string) error {
	dir := AppConfig.MigrationsDir
	if len(args) > 0 {
		dir = args[0]
	}

	outDir := AppConfig.PartsDir
	if cmd.Flags().Changed("out-dir") {
		outDir, _ = cmd.Flags().GetString("out-dir")
	}

	sources, err := loadSources(dir, cmd.OutOrStdout())
	if err != nil || sources == nil {
		return err
	}

	parts, err := partition.Plan(migration.Filenames(sources), partCount(cmd))
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, dirMode); err != nil {
		return fmt.Errorf("creating %s: %w", outDir, err)
	}

	load := sourceLoader(sources)

	for _, p := range parts {
		var b strings.Builder
		if err := partition.Render(&b, p, len(parts), load); err != nil {
			return err
		}

		path := filepath.Join(outDir, partition.FileName(AppConfig.PartPrefix, p.Number))

		doc, err := maybeRewrite(cmd, path, b.String())
		if err != nil {
			return err
		}

		if err := os.WriteFile(path, []byte(doc), outputFileMode); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}

		Logger.Debug("part written", slog.String("file", path), slog.Int("files", len(p.Files)))
		fmt.Fprintf(cmd.OutOrStdout(), "  %s  migrations %d to %d (%d file(s))\n",
			path, p.First, p.Last, len(p.Files))
	}

	if err := removeStaleParts(cmd, outDir, len(parts)); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(
		fmt.Sprintf("Split %d migration(s) into %d part(s)", len(sources), len(parts))))

	return nil
}

// removeStaleParts deletes part files numbered above count left by an earlier
// split into more parts, so apply never picks them up.
func removeStaleParts(cmd *cobra.Command, outDir string, count int) error {
	existing, err := migration.ListParts(outDir, AppConfig.PartPrefix)
	if err != nil {
		return err
	}

	for _, f := range existing {
		if f.Number <= count {
			continue
		}

		if err := os.Remove(f.Path); err != nil {
			return fmt.Errorf("removing stale part %s: %w", f.Path, err)
		}

		Logger.Info("stale part removed", slog.String("file", f.Path))
		fmt.Fprintf(cmd.OutOrStdout(), "  %s  removed (left over from an earlier split)\n", f.Path)
	}

	return nil
}

func partCount(cmd *cobra.Command) int {
	if cmd.Flags().Changed("parts") {
		n, _ := cmd.Flags().GetInt("parts")

		return n
	}

	return AppConfig.Parts
}
