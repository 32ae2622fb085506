package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/prospect-cli/internal/scoring"
	"github.com/sells-group/prospect-cli/internal/store"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "View and edit scoring rules",
	Long:  "Scoring rules adjust each business's base potential. Edits are saved to the store and apply to later searches.",
}

// withRules opens the store, loads the saved rules, runs fn, and saves the
// rules again when fn reports a change.
func withRules(ctx context.Context, fn func(e *scoring.Engine) (changed bool, err error)) error {
	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	e := scoring.New()
	if _, err := e.LoadSettings(ctx, st, cfg.Scoring.SettingsKey); err != nil {
		return err
	}
	changed, err := fn(e)
	if err != nil || !changed {
		return err
	}
	return saveRules(ctx, e, st)
}

func saveRules(ctx context.Context, e *scoring.Engine, st store.Store) error {
	return e.SaveSettings(ctx, st, cfg.Scoring.SettingsKey)
}

// -- rules list --

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scoring rules",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRules(cmd.Context(), func(e *scoring.Engine) (bool, error) {
			formatRules(os.Stdout, e.Rules())
			return false, nil
		})
	},
}

// -- rules set --

var rulesSetCmd = &cobra.Command{
	Use:   "set <rule-id> <points>",
	Short: "Set a rule's points",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		points, err := strconv.Atoi(args[1])
		if err != nil {
			return eris.Wrapf(err, "rules set: points %q", args[1])
		}
		return withRules(cmd.Context(), func(e *scoring.Engine) (bool, error) {
			stored, err := e.SetPoints(args[0], points)
			if err != nil {
				return false, err
			}
			fmt.Fprintf(os.Stderr, "%s points set to %d\n", args[0], stored)
			return true, nil
		})
	},
}

// -- rules enable / disable --

func toggleCmd(use, short string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <rule-id>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRules(cmd.Context(), func(e *scoring.Engine) (bool, error) {
				for _, id := range args {
					if err := e.SetEnabled(id, enabled); err != nil {
						return false, err
					}
				}
				return true, nil
			})
		},
	}
}

var (
	rulesEnableCmd  = toggleCmd("enable", "Enable scoring rules", true)
	rulesDisableCmd = toggleCmd("disable", "Disable scoring rules", false)
)

// -- rules reset --

var rulesResetCmd = &cobra.Command{
	Use:   "reset [rule-id...]",
	Short: "Restore rules to their defaults (all rules when none are named)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRules(cmd.Context(), func(e *scoring.Engine) (bool, error) {
			if len(args) == 0 {
				e.ResetAll()
				return true, nil
			}
			for _, id := range args {
				if err := e.ResetRule(id); err != nil {
					return false, err
				}
			}
			return true, nil
		})
	},
}

// -- rules export / import --

var rulesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the rules in settings format",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRules(cmd.Context(), func(e *scoring.Engine) (bool, error) {
			_, err := io.WriteString(os.Stdout, e.MarshalSettings())
			return false, err
		})
	},
}

var rulesImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Apply rules from a settings file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrap(err, "rules import: read file")
		}
		return withRules(cmd.Context(), func(e *scoring.Engine) (bool, error) {
			if err := e.UnmarshalSettings(string(data)); err != nil {
				return false, err
			}
			return true, nil
		})
	},
}

func formatRules(w io.Writer, rules []scoring.Rule) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tKIND\tPOINTS\tDEFAULT\tRANGE\tENABLED")
	for _, r := range rules {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%+d\t%+d\t%d..%d\t%t\n",
			r.ID, r.Name, r.Kind, r.Points, r.Default, r.Min, r.Max, r.Enabled)
	}
	_ = tw.Flush()
}

func init() {
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesSetCmd)
	rulesCmd.AddCommand(rulesEnableCmd)
	rulesCmd.AddCommand(rulesDisableCmd)
	rulesCmd.AddCommand(rulesResetCmd)
	rulesCmd.AddCommand(rulesExportCmd)
	rulesCmd.AddCommand(rulesImportCmd)
	rootCmd.AddCommand(rulesCmd)
}
