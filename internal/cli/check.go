package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aqasim81/ddlguard/internal/checker"
	"github.com/aqasim81/ddlguard/internal/checker/rules"
	"github.com/aqasim81/ddlguard/internal/migration"
)

var checkCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "check [file-or-dir]",
	Short: "Report statements that fail when re-run",
	Long: `Parse SQL with the PostgreSQL parser and report every CREATE POLICY,
CREATE TRIGGER, CREATE INDEX and CREATE TABLE that is not made re-runnable by
IF NOT EXISTS, OR REPLACE or a preceding DROP ... IF EXISTS (MEDIUM, except
tables). DROP without IF EXISTS, ADD COLUMN, ADD CONSTRAINT and RENAME that
fail on a second run are reported as LOW. Accepts a file or a directory of
*.sql files. Defaults to combined_migration_safe.sql.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	checkCmd.Flags().Bool("fail-on-unguarded", false, "exit with non-zero code on MEDIUM or higher findings")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	target := AppConfig.SafeFile
	if len(args) > 0 {
		target = args[0]
	}

	migrations, err := loadCheckTargets(target)
	if err != nil {
		return err
	}

	c := checker.New(checker.WithRegistry(rules.NewDefaultRegistry()))

	results, err := c.CheckAll(migrations)
	if err != nil {
		return fmt.Errorf("checking migrations: %w", err)
	}

	unguarded := printCheckResults(cmd.OutOrStdout(), results)

	failOn, _ := cmd.Flags().GetBool("fail-on-unguarded")
	if failOn && unguarded {
		return errUnguardedFindings
	}

	return nil
}

func loadCheckTargets(target string) ([]migration.Migration, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", target, err)
	}

	if !info.IsDir() {
		m, err := migration.ReadFile(target)
		if err != nil {
			return nil, err
		}

		return []migration.Migration{m}, nil
	}

	migrations, err := migration.LoadFromDir(target)
	if err != nil {
		return nil, fmt.Errorf("loading migrations: %w", err)
	}

	return migration.Sort(migrations), nil
}

// printCheckResults prints findings per file and reports whether any is
// MEDIUM or higher.
func printCheckResults(out io.Writer, results []checker.Result) bool {
	total := 0
	unguarded := false

	for _, r := range results {
		if len(r.Findings) == 0 {
			continue
		}

		fmt.Fprintln(out, headingStyle.Render("=== "+r.Migration.Filename()+" ==="))

		for _, f := range r.Findings {
			fmt.Fprintf(out, "  %s %s\n", severityLabel(f.Severity), f.Message)
			fmt.Fprintf(out, "    Line:  %d\n", f.Line)
			fmt.Fprintf(out, "    Table: %s\n", f.Table)
			fmt.Fprintf(out, "    Rule:  %s\n", f.Rule)

			if f.Statement != "" {
				fmt.Fprintf(out, "    SQL:   %s\n", f.Statement)
			}

			fmt.Fprintf(out, "    Fix:   %s\n\n", f.Suggestion)
		}

		total += len(r.Findings)

		if r.HasAtLeast(checker.Medium) {
			unguarded = true
		}
	}

	if total == 0 {
		fmt.Fprintln(out, successStyle.Render("Every statement is re-runnable."))
	} else {
		fmt.Fprintf(out, "Found %d finding(s) across %d file(s).\n", total, countFilesWithFindings(results))
	}

	return unguarded
}

func countFilesWithFindings(results []checker.Result) int {
	count := 0

	for _, r := range results {
		if len(r.Findings) > 0 {
			count++
		}
	}

	return count
}
