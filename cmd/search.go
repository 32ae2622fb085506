package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/export"
	"github.com/sells-group/prospect-cli/internal/insight"
	"github.com/sells-group/prospect-cli/internal/model"
)

// searchFlags holds the search command's flag values.
type searchFlags struct {
	location  string
	lat, lon  float64
	radius    float64
	keyword   string
	types     []string
	minScore  int
	sources   []string
	sortBy    string
	reverse   bool
	page      int
	pageSize  int
	format    string
	exportTo  string
	insights  int
	save      int
	saveNotes string
}

var searchOpts searchFlags

var searchCmd = &cobra.Command{
	Use:   "search [location...]",
	Short: "Search for catering prospects near a location",
	Long:  "Geocodes the location, queries every enabled source in parallel, merges and scores the results, and prints them ranked.",
	Example: `  prospect-cli search "Denver, CO" --radius 10 --type corporate_office --min-score 50
  prospect-cli search --lat 39.74 --lon -104.99 --keyword law --format json
  prospect-cli search 80202 --insights 5 --export prospects.xlsx --save 10`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if searchOpts.location == "" {
			searchOpts.location = strings.Join(args, " ")
		}
		q, err := searchOpts.query(cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon"), cfg.Search.DefaultRadiusMiles)
		if err != nil {
			return err
		}
		if searchOpts.format != "table" && searchOpts.format != "json" {
			return eris.Errorf("search: unknown format %q (table or json)", searchOpts.format)
		}

		env, err := initEnv(ctx, "search")
		if err != nil {
			return err
		}
		defer env.Close()

		agg := env.NewAggregator()
		defer agg.Close()

		rs, err := agg.Run(ctx, q, func(p model.SearchProgress) {
			zap.L().Debug("search progress",
				zap.String("state", string(p.State)),
				zap.String("source", string(p.Source)),
				zap.Int("results", p.ResultCount),
				zap.Int("percent", p.Percent),
			)
		})
		if err != nil {
			return eris.Wrap(err, "search")
		}

		if searchOpts.insights > 0 {
			if err := enrichInsights(ctx, env.Insight, rs, searchOpts.insights); err != nil {
				return err
			}
		}

		if searchOpts.exportTo != "" {
			if err := export.WriteXLSX(searchOpts.exportTo, rs); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Exported %d results to %s\n", len(rs.Items), searchOpts.exportTo)
		}

		if searchOpts.save > 0 {
			saved := 0
			for i, it := range rs.Items {
				if i == searchOpts.save {
					break
				}
				if _, err := env.Store.SaveProspect(ctx, rs.Anchor.Label, searchOpts.saveNotes, it); err != nil {
					return eris.Wrap(err, "search: save prospect")
				}
				saved++
			}
			fmt.Fprintf(os.Stderr, "Saved %d prospects\n", saved)
		}

		if searchOpts.format == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rs)
		}
		formatResults(os.Stdout, rs)
		return nil
	},
}

// query builds a validated SearchQuery from the flags. hasCoords is set when
// --lat or --lon was given.
func (f searchFlags) query(hasCoords bool, defaultRadius float64) (model.SearchQuery, error) {
	q := model.DefaultQuery(strings.TrimSpace(f.location))
	if defaultRadius > 0 {
		q.RadiusMiles = defaultRadius
	}
	if f.radius > 0 {
		q.RadiusMiles = f.radius
	}
	if hasCoords {
		lat, lon := f.lat, f.lon
		q.Latitude, q.Longitude = &lat, &lon
	}
	q.Keyword = strings.TrimSpace(f.keyword)
	q.MinScore = f.minScore
	q.Reverse = f.reverse
	q.Page = f.page
	if f.pageSize > 0 {
		q.PageSize = f.pageSize
	}
	if f.sortBy != "" {
		q.SortBy = model.SortKey(f.sortBy)
	}

	for _, s := range f.types {
		t, err := model.ParseBusinessType(s)
		if err != nil {
			return q, err
		}
		q.BusinessTypes = append(q.BusinessTypes, t)
	}

	if len(f.sources) > 0 {
		q.Sources = model.SourceSet{}
		for _, s := range f.sources {
			src, err := model.ParseSource(s)
			if err != nil {
				return q, err
			}
			q.Sources.Set(src, true)
		}
	}

	return q, q.Validate()
}

// enrichInsights analyzes the top n businesses and replaces the summary with
// the engine's narrative.
func enrichInsights(ctx context.Context, engine insight.Engine, rs *model.ResultSet, n int) error {
	analyzed, err := insight.AnalyzeTop(ctx, engine, rs, n, cfg.Insight.Concurrency)
	if err != nil {
		return err
	}
	zap.L().Info("insights generated", zap.String("engine", engine.Name()), zap.Int("analyzed", analyzed))

	summary, err := engine.GenerateSearchSummary(ctx, rs)
	if err != nil {
		zap.L().Warn("search summary failed", zap.Error(err))
		return nil
	}
	rs.Summary = summary
	return nil
}

// formatResults writes the requested page of rs as a table followed by the summary.
func formatResults(w io.Writer, rs *model.ResultSet) {
	fmt.Fprintf(w, "Search near %s (%.4f, %.4f) in %s\n\n",
		rs.Anchor.Label, rs.Anchor.Latitude, rs.Anchor.Longitude, rs.Duration.Round(time.Millisecond))

	items := rs.PageItems()
	if len(items) == 0 {
		fmt.Fprintln(w, "No results.")
	} else {
		offset, _ := rs.PageOffset()
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tNAME\tKIND\tSCORE\tMILES\tSOURCES\tREASON")
		for i, it := range items {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%.1f\t%s\t%s\n",
				offset+i+1, truncate(it.Name(), 40), itemKind(it), it.OverallScore, it.DistanceMiles,
				sourceList(it.Sources), truncate(it.MatchReason, 60))
		}
		_ = tw.Flush()
	}

	fmt.Fprintf(w, "\n%d results", rs.TotalFound)
	if rs.Query.PageSize > 0 && rs.TotalFound > rs.Query.PageSize {
		fmt.Fprintf(w, ", page %d", rs.Query.Page+1)
	}
	fmt.Fprintln(w)
	if rs.Error != "" {
		fmt.Fprintf(w, "Warning: %s\n", rs.Error)
	}
	if rs.Summary != "" {
		fmt.Fprintf(w, "\n%s\n", rs.Summary)
	}
}

func itemKind(it *model.ResultItem) string {
	if it.Business != nil {
		return it.Business.Type.Label()
	}
	return "Market area"
}

func sourceList(srcs []model.Source) string {
	parts := make([]string, len(srcs))
	for i, s := range srcs {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	f := searchCmd.Flags()
	f.StringVar(&searchOpts.location, "location", "", "address, city, or zip to search around (or pass as arguments)")
	f.Float64Var(&searchOpts.lat, "lat", 0, "anchor latitude (skips geocoding, requires --lon)")
	f.Float64Var(&searchOpts.lon, "lon", 0, "anchor longitude (requires --lat)")
	f.Float64Var(&searchOpts.radius, "radius", 0, "search radius in miles (default from config)")
	f.StringVar(&searchOpts.keyword, "keyword", "", "keyword to match against names, types, and tags")
	f.StringSliceVar(&searchOpts.types, "type", nil, "business types to include (repeatable)")
	f.IntVar(&searchOpts.minScore, "min-score", 0, "minimum overall score (0-100)")
	f.StringSliceVar(&searchOpts.sources, "sources", nil, "sources to query: places, bureau, demographics, openmap (default all)")
	f.StringVar(&searchOpts.sortBy, "sort", string(model.SortScore), "sort key: score, distance, name, rating, employees")
	f.BoolVar(&searchOpts.reverse, "reverse", false, "reverse the sort order")
	f.IntVar(&searchOpts.page, "page", 0, "zero-based page to print")
	f.IntVar(&searchOpts.pageSize, "page-size", model.DefaultPageSize, "results per page (0 prints all)")
	f.StringVar(&searchOpts.format, "format", "table", "output format: table or json")
	f.StringVar(&searchOpts.exportTo, "export", "", "write the results to an .xlsx file")
	f.IntVar(&searchOpts.insights, "insights", 0, "generate insights for the top N businesses")
	f.IntVar(&searchOpts.save, "save", 0, "save the top N results as prospects")
	f.StringVar(&searchOpts.saveNotes, "notes", "", "notes attached to saved prospects")
	rootCmd.AddCommand(searchCmd)
}
