package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aqasim81/ddlguard/internal/migration"
	"github.com/aqasim81/ddlguard/internal/partition"
)

var planCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "plan [migrations-dir]",
	Short: "Show how migration files would be split into parts",
	Long: `Display the partition plan for the migration files: each part's
number, source range and file names. Nothing is written.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlan,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	planCmd.Flags().Int("parts", 0, "number of parts (default from config)")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	dir := AppConfig.MigrationsDir
	if len(args) > 0 {
		dir = args[0]
	}

	sources, err := loadSources(dir, cmd.OutOrStdout())
	if err != nil || sources == nil {
		return err
	}

	parts, err := partition.Plan(migration.Filenames(sources), partCount(cmd))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	for _, p := range parts {
		fmt.Fprintln(out, headingStyle.Render(fmt.Sprintf("PART %d/%d - Migrations %d to %d",
			p.Number, len(parts), p.First, p.Last)))
		fmt.Fprintln(out, dimStyle.Render("  -> "+partition.FileName(AppConfig.PartPrefix, p.Number)))

		for _, f := range p.Files {
			fmt.Fprintf(out, "  %s\n", f)
		}
	}

	fmt.Fprintf(out, "\n%d migration(s) in %d part(s).\n", len(sources), len(parts))

	return nil
}
