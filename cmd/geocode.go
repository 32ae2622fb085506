package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/prospect-cli/internal/workerpool"
	"github.com/sells-group/prospect-cli/pkg/geocode"
)

var (
	geocodeReverse bool
	geocodeFormat  string
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode <address>...",
	Short: "Resolve addresses to coordinates",
	Long:  "Geocodes each argument in parallel on the worker pool. With --reverse each argument is a \"lat,lon\" pair resolved to a place.",
	Example: `  prospect-cli geocode "Denver, CO" 80202 "1600 Pennsylvania Ave, Washington DC"
  prospect-cli geocode --reverse 39.7392,-104.9903`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool := workerpool.New(cfg.Pool.Workers, cfg.Pool.MaxQueue)
		defer pool.Shutdown(true)
		svc, err := initGeocoder(pool)
		if err != nil {
			return err
		}

		var locs []*geocode.Location
		if geocodeReverse {
			for _, arg := range args {
				lat, lon, err := parseLatLon(arg)
				if err != nil {
					return err
				}
				loc, err := svc.ReverseGeocode(ctx, lat, lon)
				if err != nil {
					return eris.Wrap(err, "reverse geocode")
				}
				locs = append(locs, loc)
			}
		} else {
			res, err := svc.BatchGeocode(ctx, args, func(p geocode.BatchProgress) {
				fmt.Fprintf(os.Stderr, "\r[%d/%d] %s", p.Completed, p.Total, truncate(p.Address, 50))
				if p.Completed == p.Total {
					fmt.Fprintln(os.Stderr)
				}
			})
			if err != nil {
				return eris.Wrap(err, "geocode")
			}
			locs = res.Locations
			fmt.Fprintf(os.Stderr, "%d resolved, %d failed in %s\n", res.Succeeded, res.Failed, res.Duration.Round(time.Millisecond))
		}

		if geocodeFormat == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(locs)
		}
		formatLocations(os.Stdout, args, locs)
		return nil
	},
}

func parseLatLon(s string) (float64, float64, error) {
	a, b, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, eris.Errorf("geocode: %q is not a lat,lon pair", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
	if err != nil || lat < -90 || lat > 90 {
		return 0, 0, eris.Errorf("geocode: invalid latitude in %q", s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if err != nil || lon < -180 || lon > 180 {
		return 0, 0, eris.Errorf("geocode: invalid longitude in %q", s)
	}
	return lat, lon, nil
}

func formatLocations(w io.Writer, inputs []string, locs []*geocode.Location) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INPUT\tRESULT\tLAT\tLON\tSOURCE\tQUALITY")
	for i, loc := range locs {
		in := ""
		if i < len(inputs) {
			in = inputs[i]
		}
		if loc == nil || !loc.Valid {
			fmt.Fprintf(tw, "%s\t(not found)\t\t\t\t\n", in)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%.5f\t%.5f\t%s\t%s\n",
			in, loc.Label(), loc.Latitude, loc.Longitude, loc.Source, loc.Quality)
	}
	_ = tw.Flush()
}

func init() {
	geocodeCmd.Flags().BoolVar(&geocodeReverse, "reverse", false, "treat arguments as lat,lon pairs and reverse geocode them")
	geocodeCmd.Flags().StringVar(&geocodeFormat, "format", "table", "output format: table or json")
	rootCmd.AddCommand(geocodeCmd)
}
