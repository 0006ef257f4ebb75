package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/aqasim81/ddlguard/internal/migration"
	"github.com/aqasim81/ddlguard/internal/tracker"
)

var statusCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "status [parts-dir]",
	Short: "Show which parts are applied",
	Long: `Compare the part files on disk with the parts recorded in the
database and show each as applied, pending or changed since it was applied.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	addConnectionFlags(statusCmd)
	rootCmd.AddCommand(statusCmd)
}

// Part states shown by status.
const (
	stateApplied = "applied"
	statePending = "pending"
	stateChanged = "changed"
	stateMissing = "missing" // recorded but no file on disk
)

type partStatus struct {
	part      string
	filename  string
	state     string
	appliedAt time.Time
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := AppConfig

	if cfg.DatabaseURL == "" {
		return errDatabaseURLRequired
	}

	dir := cfg.PartsDir
	if len(args) > 0 {
		dir = args[0]
	}

	parts, err := migration.LoadParts(dir, cfg.PartPrefix)
	if err != nil {
		return fmt.Errorf("loading parts: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	pool, err := connectDB(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	t := tracker.New(pool)
	if err := t.EnsureTable(ctx); err != nil {
		return err
	}

	applied, err := t.GetApplied(ctx)
	if err != nil {
		return err
	}

	printStatus(cmd.OutOrStdout(), mergeStatus(parts, applied))

	return nil
}

// mergeStatus joins part files with tracking rows, ordered by part number.
func mergeStatus(parts []migration.Migration, applied []tracker.AppliedPart) []partStatus {
	byPart := make(map[string]tracker.AppliedPart, len(applied))
	for _, a := range applied {
		byPart[a.Part] = a
	}

	out := make([]partStatus, 0, len(parts))

	for i := range parts {
		p := &parts[i]
		s := partStatus{part: p.Version, filename: p.Filename(), state: statePending}

		if a, ok := byPart[p.Version]; ok {
			s.appliedAt = a.AppliedAt
			s.state = stateApplied

			if a.Checksum != p.Checksum {
				s.state = stateChanged
			}

			delete(byPart, p.Version)
		}

		out = append(out, s)
	}

	for _, a := range applied {
		if _, ok := byPart[a.Part]; ok {
			out = append(out, partStatus{part: a.Part, filename: a.Filename, state: stateMissing, appliedAt: a.AppliedAt})
		}
	}

	return out
}

func printStatus(out io.Writer, rows []partStatus) {
	if len(rows) == 0 {
		fmt.Fprintln(out, "No parts found.")

		return
	}

	fmt.Fprintln(out, headingStyle.Render(fmt.Sprintf("%-6s %-28s %-8s %s", "PART", "FILE", "STATE", "APPLIED AT")))

	counts := map[string]int{}

	for _, r := range rows {
		appliedAt := "-"
		if !r.appliedAt.IsZero() {
			appliedAt = r.appliedAt.Local().Format(time.DateTime)
		}

		line := fmt.Sprintf("%-6s %-28s %-8s %s", r.part, r.filename, r.state, appliedAt)

		switch r.state {
		case stateApplied:
			line = successStyle.Render(line)
		case stateChanged, stateMissing:
			line = warnStyle.Render(line)
		}

		fmt.Fprintln(out, line)
		counts[r.state]++
	}

	fmt.Fprintf(out, "\n%d applied, %d pending, %d changed, %d missing.\n",
		counts[stateApplied], counts[statePending], counts[stateChanged], counts[stateMissing])
}
