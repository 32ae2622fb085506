package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func TestDefaultQuery(t *testing.T) {
	t.Parallel()

	q := DefaultQuery("Denver")
	assert.Equal(t, "Denver", q.Location)
	assert.Equal(t, DefaultRadiusMiles, q.RadiusMiles)
	assert.Equal(t, AllSources(), q.Sources.Enabled())
	assert.Equal(t, SortScore, q.EffectiveSort())
	assert.False(t, q.Reverse)
	assert.True(t, q.EffectiveSort().Descending())
	assert.False(t, SortDistance.Descending())
	assert.False(t, SortName.Descending())
	assert.True(t, SortEmployees.Descending())
	require.NoError(t, q.Validate())
}

func TestSearchQuery_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(q *SearchQuery)
		wantErr string
	}{
		{name: "valid default", mutate: func(*SearchQuery) {}},
		{name: "coordinates without location", mutate: func(q *SearchQuery) {
			q.Location = ""
			q.Latitude, q.Longitude = ptr(39.7), ptr(-104.9)
		}},
		{name: "radius too large", mutate: func(q *SearchQuery) { q.RadiusMiles = 900 }, wantErr: "invalid search query"},
		{name: "negative radius", mutate: func(q *SearchQuery) { q.RadiusMiles = -1 }, wantErr: "invalid search query"},
		{name: "min score above 100", mutate: func(q *SearchQuery) { q.MinScore = 101 }, wantErr: "invalid search query"},
		{name: "negative page", mutate: func(q *SearchQuery) { q.Page = -1 }, wantErr: "invalid search query"},
		{name: "bad sort key", mutate: func(q *SearchQuery) { q.SortBy = "popularity" }, wantErr: "invalid search query"},
		{name: "latitude out of range", mutate: func(q *SearchQuery) {
			q.Latitude, q.Longitude = ptr(120), ptr(0)
		}, wantErr: "invalid search query"},
		{name: "latitude only", mutate: func(q *SearchQuery) { q.Latitude = ptr(39.7) }, wantErr: "set together"},
		{name: "no anchor", mutate: func(q *SearchQuery) { q.Location = "  " }, wantErr: "location or coordinates"},
		{name: "no sources", mutate: func(q *SearchQuery) { q.Sources = SourceSet{} }, wantErr: "no enabled sources"},
		{name: "unknown type", mutate: func(q *SearchQuery) {
			q.BusinessTypes = []BusinessType{"bakery"}
		}, wantErr: "unknown business type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			q := DefaultQuery("Denver")
			tt.mutate(&q)
			err := q.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSearchQuery_MatchesType(t *testing.T) {
	t.Parallel()

	q := DefaultQuery("Denver")
	assert.True(t, q.MatchesType(TypeLawFirm))

	q.BusinessTypes = []BusinessType{TypeTechCompany, TypeLawFirm}
	assert.True(t, q.MatchesType(TypeLawFirm))
	assert.False(t, q.MatchesType(TypeGovernment))
}

func TestSourceSet(t *testing.T) {
	t.Parallel()

	var s SourceSet
	assert.Empty(t, s.Enabled())

	s.Set(SourceOpenMap, true)
	s.Set(SourcePlaces, true)
	assert.Equal(t, []Source{SourcePlaces, SourceOpenMap}, s.Enabled())
	assert.True(t, s.Has(SourceOpenMap))
	assert.False(t, s.Has(SourceBureau))

	s.Set(SourcePlaces, false)
	assert.Equal(t, []Source{SourceOpenMap}, s.Enabled())
}

func TestParseSource(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Source{
		"places": SourcePlaces, "Google": SourcePlaces, " bbb ": SourceBureau,
		"census": SourceDemographics, "OSM": SourceOpenMap, "openmap": SourceOpenMap,
	} {
		got, err := ParseSource(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseSource("yelp")
	assert.Error(t, err)
}
