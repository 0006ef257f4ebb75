package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/aqasim81/ddlguard/internal/checker"
	"github.com/aqasim81/ddlguard/internal/checker/rules"
	"github.com/aqasim81/ddlguard/internal/config"
	"github.com/aqasim81/ddlguard/internal/database"
	"github.com/aqasim81/ddlguard/internal/executor"
	"github.com/aqasim81/ddlguard/internal/migration"
	"github.com/aqasim81/ddlguard/internal/tracker"
)

var applyCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "apply [parts-dir]",
	Short: "Apply migration part files in order",
	Long: `Apply migration_part_<N>.sql files to the database in numeric order,
one transaction per part, pausing between parts and stopping at the first
failure. Applied parts are recorded and skipped on the next run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runApply,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	applyCmd.Flags().Bool("dry-run", false, "show what would be applied without executing")
	applyCmd.Flags().Bool("force", false, "apply even when parts contain unguarded CREATE statements")
	applyCmd.Flags().Duration("lock-timeout", 0, "override lock timeout (e.g., 10s, 1m)")
	applyCmd.Flags().Duration("statement-timeout", 0, "override statement timeout (e.g., 30s, 5m)")
	applyCmd.Flags().Duration("pause", 0, "override the pause between parts (e.g., 1s)")
	addConnectionFlags(applyCmd)
	rootCmd.AddCommand(applyCmd)
}

// addConnectionFlags registers flags shared by commands that connect.
func addConnectionFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("simple-protocol", false, "disable prepared statements (for transaction-mode poolers)")
}

type applyOpts struct {
	lockTimeout time.Duration
	stmtTimeout time.Duration
	pause       time.Duration
	dryRun      bool
}

func runApply(cmd *cobra.Command, args []string) error {
	cfg := AppConfig

	if cfg.DatabaseURL == "" {
		return errDatabaseURLRequired
	}

	dir := cfg.PartsDir
	if len(args) > 0 {
		dir = args[0]
	}

	opts := applyOpts{
		lockTimeout: durationFlag(cmd, "lock-timeout", cfg.LockTimeout),
		stmtTimeout: durationFlag(cmd, "statement-timeout", cfg.StatementTimeout),
		pause:       durationFlag(cmd, "pause", cfg.PartPause),
	}
	opts.dryRun, _ = cmd.Flags().GetBool("dry-run")
	force, _ := cmd.Flags().GetBool("force")

	parts, err := loadParts(dir, cfg.PartPrefix)
	if err != nil {
		return err
	}

	if !force && !opts.dryRun {
		blocked, err := checkParts(cmd.OutOrStdout(), parts)
		if err != nil {
			return err
		}

		if blocked {
			return errUnguardedParts
		}
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

	return executeParts(ctx, cmd.OutOrStdout(), pool, parts, opts)
}

func durationFlag(cmd *cobra.Command, name string, fallback time.Duration) time.Duration {
	if !cmd.Flags().Changed(name) {
		return fallback
	}

	d, _ := cmd.Flags().GetDuration(name)

	return d
}

func loadParts(dir, prefix string) ([]migration.Migration, error) {
	parts, err := migration.LoadParts(dir, prefix)
	if err != nil {
		return nil, fmt.Errorf("loading parts: %w", err)
	}

	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: %s", executor.ErrNoParts, filepath.Join(dir, prefix+"<N>.sql"))
	}

	return parts, nil
}

// checkParts runs the checker over the parts and reports whether any
// MEDIUM or higher finding should block the run.
func checkParts(out io.Writer, parts []migration.Migration) (bool, error) {
	c := checker.New(checker.WithRegistry(rules.NewDefaultRegistry()))

	results, err := c.CheckAll(parts)
	if err != nil {
		return false, fmt.Errorf("checking parts: %w", err)
	}

	blocked := false

	for _, r := range results {
		if r.HasAtLeast(checker.Medium) {
			blocked = true
		}
	}

	if blocked {
		printCheckResults(out, results)
	}

	return blocked, nil
}

func connectDB(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (*pgxpool.Pool, error) {
	fmt.Fprintf(cmd.OutOrStdout(), "Connecting to %s\n", config.RedactURL(cfg.DatabaseURL))

	var opts []database.PoolOption
	if simple, _ := cmd.Flags().GetBool("simple-protocol"); simple {
		opts = append(opts, database.WithSimpleProtocol())
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return pool, nil
}

func executeParts(
	ctx context.Context,
	out io.Writer,
	pool *pgxpool.Pool,
	parts []migration.Migration,
	opts applyOpts,
) error {
	exec := executor.New(pool, tracker.New(pool),
		executor.WithLockTimeout(opts.lockTimeout),
		executor.WithStatementTimeout(opts.stmtTimeout),
		executor.WithPause(opts.pause),
		executor.WithDryRun(opts.dryRun),
		executor.WithProgressCallback(progressPrinter(out)),
	)

	if opts.dryRun {
		fmt.Fprintln(out, warnStyle.Render("\n--- DRY RUN (no changes will be made) ---"))
	}

	return exec.Apply(ctx, parts)
}

// progressPrinter renders executor progress and the final tally.
func progressPrinter(out io.Writer) func(executor.ProgressEvent) {
	applied := 0
	skipped := 0
	pending := 0

	return func(ev executor.ProgressEvent) {
		switch ev.Status {
		case executor.StatusStarting:
			fmt.Fprintf(out, "  Part %d/%d %s ... ", ev.Index, ev.Total, ev.Part.Filename())
		case executor.StatusCompleted:
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("done (%s)", ev.Duration.Truncate(time.Millisecond))))
			applied++
		case executor.StatusSkipped:
			fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("  Part %d/%d %s already applied", ev.Index, ev.Total, ev.Part.Filename())))
			skipped++
		case executor.StatusPending:
			fmt.Fprintf(out, "  Part %d/%d %s would be applied\n", ev.Index, ev.Total, ev.Part.Filename())
			pending++
		case executor.StatusFailed:
			fmt.Fprintln(out, errorStyle.Render("FAILED"))
			fmt.Fprintf(out, "    Error: %v\n", ev.Error)
			fmt.Fprintln(out, errorStyle.Render(fmt.Sprintf("Stopped at part %d/%d.", ev.Index, ev.Total)))
			Logger.Error("part failed", slog.String("file", ev.Part.Filename()), slog.Any("error", ev.Error))

			return
		}

		if ev.Index == ev.Total && ev.Status != executor.StatusStarting {
			if pending > 0 {
				fmt.Fprintf(out, "\nDry run complete: %d part(s) would be applied, %d already applied.\n", pending, skipped)
			} else {
				fmt.Fprintf(out, "\nApply complete: %d applied, %d skipped.\n", applied, skipped)
			}
		}
	}
}
