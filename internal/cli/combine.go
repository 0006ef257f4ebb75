package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aqasim81/ddlguard/internal/logging"
	"github.com/aqasim81/ddlguard/internal/migration"
	"github.com/aqasim81/ddlguard/internal/partition"
)

var combineCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "combine [migrations-dir] [output]",
	Short: "Concatenate all migration files into one SQL file",
	Long: `Concatenate every *.sql file of the migrations directory, in file name
order, into one document with a banner before each file. With --rewrite the
combined document is also guarded. Defaults to supabase/migrations ->
combined_migration.sql.`,
	Args: cobra.MaximumNArgs(2), //nolint:mnd // dir and output
	RunE: runCombine,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	combineCmd.Flags().Bool("rewrite", false, "insert DROP ... IF EXISTS guards into the output")
	addRewriteFlags(combineCmd)
	rootCmd.AddCommand(combineCmd)
}

func runCombine(cmd *cobra.Command, args []string) error {
	dir := AppConfig.MigrationsDir
	out := AppConfig.CombinedFile

	if len(args) > 0 {
		dir = args[0]
	}

	if len(args) > 1 {
		out = args[1]
	}

	sources, err := loadSources(dir, cmd.OutOrStdout())
	if err != nil || sources == nil {
		return err
	}

	var b strings.Builder
	if err := partition.RenderCombined(&b, migration.Filenames(sources), sourceLoader(sources)); err != nil {
		return err
	}

	doc, err := maybeRewrite(cmd, out, b.String())
	if err != nil {
		return err
	}

	if err := os.WriteFile(out, []byte(doc), outputFileMode); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}

	fmt.Fprintln(cmd.OutOrStdout(),
		successStyle.Render(fmt.Sprintf("Combined %d migration(s) into %s", len(sources), out)))

	return nil
}

// maybeRewrite guards doc when --rewrite is set and prints the summary.
func maybeRewrite(cmd *cobra.Command, name, doc string) (string, error) {
	if enabled, _ := cmd.Flags().GetBool("rewrite"); !enabled {
		return doc, nil
	}

	rw, err := newRewriter(cmd)
	if err != nil {
		return "", err
	}

	res := rw.Rewrite(doc)
	logging.Diagnostics(Logger, name, res.Diagnostics)
	printRewriteSummary(cmd.OutOrStdout(), name, res)

	return res.Output, nil
}
