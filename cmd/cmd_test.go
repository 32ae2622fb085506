package main

import (
	"bytes"
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/insight"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/provider"
	"github.com/sells-group/prospect-cli/internal/scoring"
	"github.com/sells-group/prospect-cli/internal/workerpool"
	"github.com/sells-group/prospect-cli/pkg/geocode"
)

// newTestEnv builds an environment on a temp SQLite store and the built-in
// synthetic sources, and points the package config at it.
func newTestEnv(t *testing.T) *appEnv {
	t.Helper()
	cfg = &config.Config{
		Store:   config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "test.db")},
		Search:  config.SearchConfig{MaxResults: 50, DefaultRadiusMiles: 10},
		Scoring: config.ScoringConfig{SettingsKey: "scoring.rules"},
		Insight: config.InsightConfig{Provider: insight.NameLocal, Concurrency: 2},
		Pool:    config.PoolConfig{Workers: 4, MaxQueue: 64},
	}

	st, err := initStore(context.Background())
	require.NoError(t, err)
	reg, err := provider.NewRegistry(provider.Deps{})
	require.NoError(t, err)
	pool := workerpool.New(cfg.Pool.Workers, cfg.Pool.MaxQueue)

	env := &appEnv{
		Store:    st,
		Pool:     pool,
		Geocoder: geocode.NewService(geocode.WithPool(pool)),
		Registry: reg,
		Scoring:  scoring.New(),
		Insight:  insight.NewLocal(),
	}
	t.Cleanup(env.Close)
	return env
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"search", "rules", "geocode", "prospects", "serve"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}

	rules := make(map[string]bool)
	for _, c := range rulesCmd.Commands() {
		rules[c.Name()] = true
	}
	for _, name := range []string{"list", "set", "enable", "disable", "reset", "export", "import"} {
		assert.True(t, rules[name], "expected rules subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "prospect-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestSearchCommand_Flags(t *testing.T) {
	for _, name := range []string{"location", "lat", "lon", "radius", "keyword", "type", "min-score", "sources",
		"sort", "reverse", "page", "page-size", "format", "export", "insights", "save"} {
		assert.NotNil(t, searchCmd.Flags().Lookup(name), "search command should have --%s", name)
	}
	assert.Equal(t, "table", searchCmd.Flags().Lookup("format").DefValue)
	assert.Equal(t, "0", serveCmd.Flags().Lookup("port").DefValue)
}

func TestSearchFlags_Query(t *testing.T) {
	f := searchFlags{
		location: " Denver, CO ",
		radius:   5,
		keyword:  "law",
		types:    []string{"law_firm", "Corporate Office"},
		minScore: 40,
		sources:  []string{"places", "census"},
		sortBy:   "distance",
		reverse:  true,
		page:     1,
		pageSize: 10,
	}
	q, err := f.query(false, 25)
	require.NoError(t, err)

	assert.Equal(t, "Denver, CO", q.Location)
	assert.InDelta(t, 5, q.RadiusMiles, 1e-9)
	assert.Equal(t, []model.BusinessType{model.TypeLawFirm, model.TypeCorporateOffice}, q.BusinessTypes)
	assert.Equal(t, model.SourceSet{Places: true, Demographics: true}, q.Sources)
	assert.Equal(t, model.SortDistance, q.SortBy)
	assert.True(t, q.Reverse)
	assert.Equal(t, 10, q.PageSize)
	assert.False(t, q.HasCoordinates())
}

func TestSearchFlags_QueryDefaultsAndCoordinates(t *testing.T) {
	q, err := searchFlags{lat: 40.015, lon: -105.2705}.query(true, 12)
	require.NoError(t, err)
	assert.True(t, q.HasCoordinates())
	assert.InDelta(t, 12, q.RadiusMiles, 1e-9)
	assert.Equal(t, model.AllSourcesEnabled(), q.Sources)
	assert.Equal(t, model.SortScore, q.SortBy)
}

func TestSearchFlags_QueryErrors(t *testing.T) {
	tests := []struct {
		name  string
		flags searchFlags
	}{
		{"no location", searchFlags{}},
		{"unknown type", searchFlags{location: "Denver", types: []string{"spaceport"}}},
		{"unknown source", searchFlags{location: "Denver", sources: []string{"yelp"}}},
		{"bad sort", searchFlags{location: "Denver", sortBy: "vibes"}},
		{"score out of range", searchFlags{location: "Denver", minScore: 101}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.flags.query(false, 25)
			assert.Error(t, err)
		})
	}
}

func TestFormatResults(t *testing.T) {
	rs := model.NewResultSet(model.DefaultQuery("Denver, CO"))
	rs.Anchor = model.Anchor{Latitude: 39.7392, Longitude: -104.9903, Label: "Denver, CO"}
	acme := model.NewBusinessItem(&model.BusinessRecord{Name: "Acme Corp", Type: model.TypeCorporateOffice,
		Sources: []model.Source{model.SourcePlaces, model.SourceBureau}})
	acme.OverallScore = 82
	acme.DistanceMiles = 1.26
	acme.MatchReason = "Corporate Office, 1.3 mi away"
	area := model.NewAreaItem(&model.AreaRecord{Name: "Denver 80202", MarketPotential: 70, Source: model.SourceDemographics})
	rs.Items = []*model.ResultItem{acme, area}
	rs.TotalFound = 2
	rs.Summary = "Found 1 prospect and 1 market area within 25 miles of Denver, CO."

	var buf bytes.Buffer
	formatResults(&buf, rs)
	out := buf.String()

	assert.Contains(t, out, "Search near Denver, CO (39.7392, -104.9903)")
	assert.Contains(t, out, "Acme Corp")
	assert.Contains(t, out, "places,bureau")
	assert.Contains(t, out, "1.3")
	assert.Contains(t, out, "Market area")
	assert.Contains(t, out, "2 results")
	assert.Contains(t, out, rs.Summary)
}

func TestFormatResults_Empty(t *testing.T) {
	var buf bytes.Buffer
	formatResults(&buf, model.NewResultSet(model.DefaultQuery("Nowhere")))
	assert.Contains(t, buf.String(), "No results.")
}

func TestFormatResults_PagePastEnd(t *testing.T) {
	q := model.DefaultQuery("Denver")
	q.PageSize = 4
	q.Page = math.MaxInt64/4 + 1
	rs := model.NewResultSet(q)
	rs.Items = append(rs.Items, model.NewBusinessItem(&model.BusinessRecord{Name: "Acme Corp"}))
	rs.TotalFound = 1

	var buf bytes.Buffer
	require.NotPanics(t, func() { formatResults(&buf, rs) })
	assert.Contains(t, buf.String(), "No results.")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ééé...", truncate("éééééééé", 6))
}

func TestParseLatLon(t *testing.T) {
	lat, lon, err := parseLatLon("39.7392, -104.9903")
	require.NoError(t, err)
	assert.InDelta(t, 39.7392, lat, 1e-9)
	assert.InDelta(t, -104.9903, lon, 1e-9)

	for _, bad := range []string{"39.7", "abc,1", "91,0", "0,181"} {
		_, _, err := parseLatLon(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatLocations(t *testing.T) {
	var buf bytes.Buffer
	formatLocations(&buf, []string{"Denver", "Atlantis"}, []*geocode.Location{
		geocode.DefaultLocation(), geocode.InvalidLocation("Atlantis"),
	})
	assert.Contains(t, buf.String(), "39.73920")
	assert.Contains(t, buf.String(), "(not found)")
}

func TestEnrichInsights(t *testing.T) {
	env := newTestEnv(t)
	agg := env.NewAggregator()
	defer agg.Close()

	rs, err := agg.Run(context.Background(), model.DefaultQuery("Denver, CO"), nil)
	require.NoError(t, err)
	require.NotEmpty(t, rs.Businesses())

	require.NoError(t, enrichInsights(context.Background(), env.Insight, rs, 3))
	assert.NotEmpty(t, rs.Businesses()[0].Business.Summary)
	assert.NotEmpty(t, rs.Summary)
}

func TestWithRules_PersistsChanges(t *testing.T) {
	newTestEnv(t)
	ctx := context.Background()

	err := withRules(ctx, func(e *scoring.Engine) (bool, error) {
		_, err := e.SetPoints(scoring.RuleEventSpace, 15)
		if err != nil {
			return false, err
		}
		return true, e.SetEnabled(scoring.RuleHighRating, false)
	})
	require.NoError(t, err)

	err = withRules(ctx, func(e *scoring.Engine) (bool, error) {
		r, err := e.Rule(scoring.RuleEventSpace)
		require.NoError(t, err)
		assert.Equal(t, 15, r.Points)
		r, err = e.Rule(scoring.RuleHighRating)
		require.NoError(t, err)
		assert.False(t, r.Enabled)
		return false, nil
	})
	require.NoError(t, err)

	err = withRules(ctx, func(e *scoring.Engine) (bool, error) {
		return false, e.SetEnabled("no_such_rule", true)
	})
	assert.ErrorIs(t, err, scoring.ErrUnknownRule)
}

func TestFormatRules(t *testing.T) {
	var buf bytes.Buffer
	formatRules(&buf, scoring.DefaultRules())
	out := buf.String()
	assert.Contains(t, out, scoring.RuleEventSpace)
	assert.Contains(t, out, "+7")
	assert.Contains(t, out, "-10")
}

func TestInitStore_UnsupportedDriver(t *testing.T) {
	cfg = &config.Config{Store: config.StoreConfig{Driver: "mysql"}}
	_, err := initStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}

func TestProviderTTLsAndFallback(t *testing.T) {
	c := &config.Config{
		Places:    config.PlacesConfig{CacheTTLMinutes: 30},
		Providers: config.ProvidersConfig{BureauTTLMinutes: 120},
	}
	ttls := providerTTLs(c)
	assert.Len(t, ttls, 2)
	assert.Equal(t, "30m0s", ttls[model.SourcePlaces].String())
	assert.Equal(t, "2h0m0s", ttls[model.SourceBureau].String())

	assert.Equal(t, geocode.DefaultLocation(), fallbackLocation(config.DefaultLocationConfig{}))
	loc := fallbackLocation(config.DefaultLocationConfig{Name: "Boulder, CO", Latitude: 40.015, Longitude: -105.2705})
	assert.Equal(t, "Boulder, CO", loc.Label())
	assert.True(t, loc.Valid)
}
