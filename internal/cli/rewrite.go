package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aqasim81/ddlguard/internal/config"
	"github.com/aqasim81/ddlguard/internal/logging"
	"github.com/aqasim81/ddlguard/internal/rewriter"
)

const outputFileMode = 0o644

var rewriteCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "rewrite [input] [output]",
	Short: "Insert DROP ... IF EXISTS guards into a SQL file",
	Long: `Rewrite a SQL file so every CREATE POLICY, CREATE TRIGGER and
CREATE [UNIQUE] INDEX is preceded by the matching DROP ... IF EXISTS.
Statements inside dollar-quoted blocks are left alone. Defaults to
combined_migration.sql -> combined_migration_safe.sql.`,
	Args: cobra.MaximumNArgs(2), //nolint:mnd // input and output
	RunE: runRewrite,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	addRewriteFlags(rewriteCmd)
	rootCmd.AddCommand(rewriteCmd)
}

// addRewriteFlags registers the flags shared by every command that rewrites.
func addRewriteFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("kinds", nil, "statement kinds to guard (policy, trigger, index, unique-index); default all")
	cmd.Flags().Int("trigger-lookahead", 0, "lines searched for a trigger's ON clause (default from config)")
}

func runRewrite(cmd *cobra.Command, args []string) error {
	in := AppConfig.CombinedFile
	out := AppConfig.SafeFile

	if len(args) > 0 {
		in = args[0]
	}

	if len(args) > 1 {
		out = args[1]
	}

	rw, err := newRewriter(cmd)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("reading %s: %w", in, err)
	}

	res := rw.Rewrite(string(data))
	logging.Diagnostics(Logger, in, res.Diagnostics)

	if err := os.WriteFile(out, []byte(res.Output), outputFileMode); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}

	printRewriteSummary(cmd.OutOrStdout(), fmt.Sprintf("%s -> %s", in, out), res)

	return nil
}

// newRewriter builds a Rewriter from config and the command's rewrite flags.
func newRewriter(cmd *cobra.Command) (*rewriter.Rewriter, error) {
	lookahead := AppConfig.TriggerLookahead
	if cmd.Flags().Changed("trigger-lookahead") {
		lookahead, _ = cmd.Flags().GetInt("trigger-lookahead")
		if lookahead < 1 {
			return nil, fmt.Errorf("%w: --trigger-lookahead must be at least 1, got %d", config.ErrInvalid, lookahead)
		}
	}

	names, _ := cmd.Flags().GetStringSlice("kinds")

	kinds := make([]rewriter.Kind, 0, len(names))

	for _, name := range names {
		k, err := rewriter.ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("--kinds: %w", err)
		}

		kinds = append(kinds, k)
	}

	return rewriter.New(
		rewriter.WithTriggerLookahead(lookahead),
		rewriter.WithKinds(kinds...),
	), nil
}
