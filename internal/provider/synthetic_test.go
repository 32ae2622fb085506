package provider

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/geo"
	"github.com/sells-group/prospect-cli/internal/model"
)

func TestRoster_Deterministic(t *testing.T) {
	a := roster(denver)
	b := roster(denver)
	require.NotEmpty(t, a)
	assert.Equal(t, a, b)

	other := denver
	other.Latitude = 40.015
	assert.NotEqual(t, a, roster(other))
}

func TestRoster_WithinRadius(t *testing.T) {
	for _, e := range roster(denver) {
		d := geo.DistanceMiles(denver.Latitude, denver.Longitude, e.lat, e.lon)
		assert.LessOrEqual(t, d, denver.RadiusMiles+0.01, e.name)
		assert.NotEmpty(t, e.address)
		assert.Positive(t, e.employees)
	}
}

func TestRoster_KeywordNames(t *testing.T) {
	req := denver
	req.Keyword = "aurora tech"
	var hits int
	for _, e := range roster(req) {
		if strings.HasPrefix(e.name, "Aurora Tech ") {
			hits++
		}
	}
	assert.Positive(t, hits)
}

func TestSyntheticSources_Overlap(t *testing.T) {
	places := syntheticPlaces(denver)
	bureau := syntheticBureau(denver)
	require.NotEmpty(t, places.Businesses)
	require.NotEmpty(t, bureau.Businesses)

	names := make(map[string]bool)
	for _, b := range places.Businesses {
		names[b.Name] = true
	}
	var shared int
	for _, b := range bureau.Businesses {
		if names[b.Name] {
			shared++
		}
	}
	assert.Positive(t, shared)
}

func TestSyntheticSources_Shape(t *testing.T) {
	for _, b := range syntheticPlaces(denver).Businesses {
		assert.Zero(t, b.EmployeeCount)
		assert.NotEmpty(t, b.Phone)
		assert.GreaterOrEqual(t, b.Rating, 3.0)
		assert.LessOrEqual(t, b.Rating, 5.0)
		assert.Equal(t, BasePotential(b), b.BaseScore)
	}
	for _, b := range syntheticBureau(denver).Businesses {
		assert.Positive(t, b.EmployeeCount)
		assert.NotEmpty(t, b.BureauRating)
		assert.True(t, strings.HasPrefix(b.Email, "info@"))
		assert.NotEqual(t, model.TypeUnknown, b.Type)
	}
	for _, b := range syntheticOpenMap(denver).Businesses {
		assert.True(t, strings.HasPrefix(b.ID, "openmap-node-"))
		assert.Empty(t, b.Email)
	}

	areas := syntheticDemographics(denver).Areas
	require.GreaterOrEqual(t, len(areas), 5)
	for _, a := range areas {
		assert.True(t, strings.HasPrefix(a.Name, "Denver "))
		assert.Equal(t, MarketPotential(a), a.MarketPotential)
		assert.Positive(t, a.Population)
	}
}

func TestNew_SyntheticProviders(t *testing.T) {
	for _, src := range model.AllSources() {
		t.Run(string(src), func(t *testing.T) {
			p, err := New(src, Deps{})
			require.NoError(t, err)
			assert.Equal(t, src, p.Source())

			resp := p.Search(context.Background(), denver)
			require.False(t, resp.Failed(), resp.Err)
			assert.Positive(t, resp.Count())
			if src == model.SourceDemographics {
				assert.Empty(t, resp.Businesses)
			} else {
				assert.Empty(t, resp.Areas)
				for _, b := range resp.Businesses {
					assert.Equal(t, []model.Source{src}, b.Sources)
				}
			}
		})
	}
}

func TestNew_UnknownSource(t *testing.T) {
	_, err := New("yelp", Deps{})
	require.Error(t, err)
}
