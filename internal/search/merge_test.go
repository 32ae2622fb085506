package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/provider"
)

func TestMergeBusiness_FillsGapsOnly(t *testing.T) {
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	dst := &model.BusinessRecord{
		ID: "p1", Name: "Acme", Type: model.TypeUnknown,
		Phone: "303-555-0101", Rating: 4.2, HasEventSpace: true,
		Tags: []string{"office"}, Sources: []model.Source{model.SourcePlaces}, Updated: older,
	}
	src := &model.BusinessRecord{
		ID: "b1", Name: "Acme Inc", Type: model.TypeLawFirm,
		Phone: "720-555-0199", Email: "hi@acme.example", Address: "1 Main St",
		Latitude: 39.7, Longitude: -104.9, Rating: 3.1, EmployeeCount: 12,
		BureauAccredited: true, BureauRating: "A+",
		Tags: []string{"office", "legal"}, Sources: []model.Source{model.SourceBureau, model.SourcePlaces}, Updated: newer,
	}

	MergeBusiness(dst, src)

	assert.Equal(t, "p1", dst.ID)
	assert.Equal(t, "Acme", dst.Name)
	assert.Equal(t, model.TypeLawFirm, dst.Type)
	assert.Equal(t, "303-555-0101", dst.Phone)
	assert.Equal(t, "hi@acme.example", dst.Email)
	assert.Equal(t, "1 Main St", dst.Address)
	assert.InDelta(t, 39.7, dst.Latitude, 1e-9)
	assert.InDelta(t, 4.2, dst.Rating, 1e-9)
	assert.Equal(t, 12, dst.EmployeeCount)
	assert.True(t, dst.BureauAccredited)
	assert.True(t, dst.HasEventSpace)
	assert.Equal(t, "A+", dst.BureauRating)
	assert.Equal(t, []string{"office", "legal"}, dst.Tags)
	assert.Equal(t, []model.Source{model.SourcePlaces, model.SourceBureau}, dst.Sources)
	assert.Equal(t, newer, dst.Updated)

	// src is untouched
	assert.Equal(t, "720-555-0199", src.Phone)
	assert.Equal(t, []model.Source{model.SourceBureau, model.SourcePlaces}, src.Sources)
}

func TestMerge_KeepsPrimaryRecordIdentity(t *testing.T) {
	primary := &model.BusinessRecord{ID: "p1", Name: "Acme", Sources: []model.Source{model.SourcePlaces}}
	dupInPrimary := &model.BusinessRecord{ID: "p2", Name: "Acme", Sources: []model.Source{model.SourcePlaces}}
	later := &model.BusinessRecord{ID: "o1", Name: "  Acme  ", Phone: "1", Sources: []model.Source{model.SourceOpenMap}}
	other := &model.BusinessRecord{ID: "o2", Name: "acme", Sources: []model.Source{model.SourceOpenMap}}
	area := &model.AreaRecord{ID: "z1", Name: "Acme", MarketPotential: 40, Source: model.SourceDemographics}

	items := merge([]*provider.Response{
		{Source: model.SourcePlaces, Businesses: []*model.BusinessRecord{primary, dupInPrimary, nil}},
		{Source: model.SourceOpenMap, Businesses: []*model.BusinessRecord{later, other}},
		{Source: model.SourceDemographics, Areas: []*model.AreaRecord{area}},
	})

	require.Len(t, items, 4)
	assert.Same(t, primary, items[0].Business)
	assert.Equal(t, "1", primary.Phone)
	assert.Equal(t, []model.Source{model.SourcePlaces, model.SourceOpenMap}, items[0].Sources)
	assert.Same(t, dupInPrimary, items[1].Business)
	assert.Equal(t, "o2", items[2].Business.ID, "names match exactly, not case-insensitively")
	assert.Equal(t, model.KindArea, items[3].Kind)
}

func TestMerge_AreasOnlyResponseIsNotPrimary(t *testing.T) {
	area := &model.AreaRecord{ID: "z1", Name: "Denver 80202", Source: model.SourceDemographics}
	first := &model.BusinessRecord{ID: "p1", Name: "Acme", Sources: []model.Source{model.SourcePlaces}}
	second := &model.BusinessRecord{ID: "p2", Name: "Acme", Sources: []model.Source{model.SourcePlaces}}
	later := &model.BusinessRecord{ID: "b1", Name: "Acme", Phone: "1", Sources: []model.Source{model.SourceBureau}}

	items := merge([]*provider.Response{
		{Source: model.SourceDemographics, Areas: []*model.AreaRecord{area}},
		{Source: model.SourcePlaces, Businesses: []*model.BusinessRecord{first, second}},
		{Source: model.SourceBureau, Businesses: []*model.BusinessRecord{later}},
	})

	require.Len(t, items, 3)
	assert.Equal(t, model.KindArea, items[0].Kind)
	assert.Same(t, first, items[1].Business)
	assert.Same(t, second, items[2].Business, "same-name records within the first business source stay separate")
	assert.Equal(t, "1", first.Phone)
	assert.Empty(t, second.Phone)
}

func TestMerge_Empty(t *testing.T) {
	assert.Empty(t, merge(nil))
	assert.Empty(t, merge([]*provider.Response{{Source: model.SourceBureau, Err: "down"}}))
}

func TestRank_StableForTies(t *testing.T) {
	items := []*model.ResultItem{
		{Kind: model.KindBusiness, Business: &model.BusinessRecord{Name: "first"}, OverallScore: 50},
		{Kind: model.KindBusiness, Business: &model.BusinessRecord{Name: "top"}, OverallScore: 70},
		{Kind: model.KindBusiness, Business: &model.BusinessRecord{Name: "second"}, OverallScore: 50},
	}
	rank(model.SearchQuery{}, items)
	assert.Equal(t, "top", items[0].Name())
	assert.Equal(t, "first", items[1].Name())
	assert.Equal(t, "second", items[2].Name())
}

func TestRank_Employees(t *testing.T) {
	items := []*model.ResultItem{
		{Kind: model.KindBusiness, Business: &model.BusinessRecord{Name: "small", EmployeeCount: 5}},
		{Kind: model.KindArea, Area: &model.AreaRecord{Name: "area", Workforce: 300}},
		{Kind: model.KindBusiness, Business: &model.BusinessRecord{Name: "big", EmployeeCount: 40, OnSiteEstimate: 120}},
	}
	rank(model.SearchQuery{SortBy: model.SortEmployees}, items)
	assert.Equal(t, []string{"area", "big", "small"}, []string{items[0].Name(), items[1].Name(), items[2].Name()})
}

func TestRelevance(t *testing.T) {
	it := &model.ResultItem{Kind: model.KindBusiness, Business: &model.BusinessRecord{Name: "Catering Hall"}, OverallScore: 100}
	assert.InDelta(t, 1.0, relevance(it, 25, ""), 1e-9)

	it.OverallScore = 50
	it.DistanceMiles = 12.5
	assert.InDelta(t, 0.35+0.15, relevance(it, 25, ""), 1e-9)
	assert.InDelta(t, 0.35+0.15+0.1, relevance(it, 25, "catering"), 1e-9)

	it.DistanceMiles = 40
	assert.InDelta(t, 0.35, relevance(it, 25, ""), 1e-9)
}

func TestMatchesKeyword(t *testing.T) {
	b := &model.BusinessRecord{Name: "Front Range Labs", Type: model.TypeTechCompany, City: "Boulder", Tags: []string{"software"}}
	assert.True(t, matchesKeyword(b, ""))
	assert.True(t, matchesKeyword(b, "labs"))
	assert.True(t, matchesKeyword(b, "technology"))
	assert.True(t, matchesKeyword(b, "boulder"))
	assert.True(t, matchesKeyword(b, "hardware software"))
	assert.False(t, matchesKeyword(b, "hotel"))
}
