package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/store"
)

var prospectsCmd = &cobra.Command{
	Use:   "prospects",
	Short: "Manage saved prospects",
	Long:  "Commands for listing and deleting prospects saved with search --save.",
}

// -- prospects list --

var prospectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved prospects, best score first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		kind, _ := cmd.Flags().GetString("kind")
		minScore, _ := cmd.Flags().GetInt("min-score")
		limit, _ := cmd.Flags().GetInt("limit")
		format, _ := cmd.Flags().GetString("format")

		list, err := st.ListProspects(ctx, store.ProspectFilter{
			Kind:     model.ItemKind(kind),
			MinScore: minScore,
			Limit:    limit,
		})
		if err != nil {
			return eris.Wrap(err, "prospects list")
		}

		if format == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(list)
		}
		if len(list) == 0 {
			fmt.Fprintln(os.Stderr, "No saved prospects.")
			return nil
		}
		formatProspects(os.Stdout, list)
		return nil
	},
}

// -- prospects delete --

var prospectsDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete saved prospects",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		for _, id := range args {
			if err := st.DeleteProspect(ctx, id); err != nil {
				return eris.Wrap(err, "prospects delete")
			}
		}
		fmt.Fprintf(os.Stderr, "Deleted %d prospects\n", len(args))
		return nil
	},
}

func formatProspects(w io.Writer, list []store.Prospect) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tKIND\tSCORE\tMILES\tNEAR\tSAVED\tNOTES")
	for _, p := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.1f\t%s\t%s\t%s\n",
			p.ID, truncate(p.Name, 40), p.Kind, p.Score, p.DistanceMiles,
			truncate(p.Location, 30), p.SavedAt.Local().Format("2006-01-02 15:04"), truncate(p.Notes, 40))
	}
	_ = tw.Flush()
}

func init() {
	prospectsListCmd.Flags().String("kind", "", "filter by kind (business, area)")
	prospectsListCmd.Flags().Int("min-score", 0, "minimum score")
	prospectsListCmd.Flags().Int("limit", 50, "max number of prospects to display")
	prospectsListCmd.Flags().String("format", "table", "output format: table or json")

	prospectsCmd.AddCommand(prospectsListCmd)
	prospectsCmd.AddCommand(prospectsDeleteCmd)
	rootCmd.AddCommand(prospectsCmd)
}
