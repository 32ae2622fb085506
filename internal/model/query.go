package model

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
)

// SortKey orders a result set.
type SortKey string

const (
	SortScore     SortKey = "score"
	SortDistance  SortKey = "distance"
	SortName      SortKey = "name"
	SortRating    SortKey = "rating"
	SortEmployees SortKey = "employees"
)

// Default query values.
const (
	DefaultRadiusMiles = 25.0
	DefaultPageSize    = 20
)

var validate = validator.New()

// SearchQuery is the immutable input to one search.
type SearchQuery struct {
	Location      string         `json:"location"`
	Latitude      *float64       `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude     *float64       `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
	RadiusMiles   float64        `json:"radius_miles" validate:"gte=0,lte=500"`
	Keyword       string         `json:"keyword,omitempty" validate:"max=200"`
	BusinessTypes []BusinessType `json:"business_types,omitempty"`
	MinScore      int            `json:"min_score" validate:"gte=0,lte=100"`
	Sources       SourceSet      `json:"sources"`
	SortBy        SortKey        `json:"sort_by,omitempty" validate:"omitempty,oneof=score distance name rating employees"`
	Reverse       bool           `json:"reverse"` // flips the sort key's natural order
	PageSize      int            `json:"page_size" validate:"gte=0,lte=500"`
	Page          int            `json:"page" validate:"gte=0"`
}

// DefaultQuery returns a query for location with every source enabled, sorted by score.
func DefaultQuery(location string) SearchQuery {
	return SearchQuery{
		Location:    location,
		RadiusMiles: DefaultRadiusMiles,
		Sources:     AllSourcesEnabled(),
		SortBy:      SortScore,
		PageSize:    DefaultPageSize,
	}
}

// Validate checks field bounds and that the query has an anchor to search around.
func (q *SearchQuery) Validate() error {
	if err := validate.Struct(q); err != nil {
		return eris.Wrap(err, "model: invalid search query")
	}
	if (q.Latitude == nil) != (q.Longitude == nil) {
		return eris.New("model: latitude and longitude must be set together")
	}
	if !q.HasCoordinates() && strings.TrimSpace(q.Location) == "" {
		return eris.New("model: query needs a location or coordinates")
	}
	if len(q.Sources.Enabled()) == 0 {
		return eris.New("model: query has no enabled sources")
	}
	for _, t := range q.BusinessTypes {
		if _, ok := businessTypeLabels[t]; !ok {
			return eris.Errorf("model: unknown business type %q", t)
		}
	}
	return nil
}

// HasCoordinates reports whether the query carries an explicit anchor.
func (q *SearchQuery) HasCoordinates() bool {
	return q.Latitude != nil && q.Longitude != nil
}

// MatchesType reports whether t passes the query's business-type filter.
// An empty filter accepts every type.
func (q *SearchQuery) MatchesType(t BusinessType) bool {
	if len(q.BusinessTypes) == 0 {
		return true
	}
	for _, want := range q.BusinessTypes {
		if want == t {
			return true
		}
	}
	return false
}

// Descending reports the key's natural order: highest first for score, rating and employees;
// lowest first for distance and name.
func (k SortKey) Descending() bool {
	switch k {
	case SortDistance, SortName:
		return false
	}
	return true
}

// EffectiveSort returns the sort key, defaulting to score.
func (q *SearchQuery) EffectiveSort() SortKey {
	if q.SortBy == "" {
		return SortScore
	}
	return q.SortBy
}
