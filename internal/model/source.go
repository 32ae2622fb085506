// Package model defines the search query, prospect records and result types shared by the
// providers, scoring engine and search aggregator.
package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Source identifies the data provider that produced a record.
type Source string

const (
	SourcePlaces       Source = "places"       // maps/places API
	SourceBureau       Source = "bureau"       // business-bureau directory
	SourceDemographics Source = "demographics" // census-like area aggregates
	SourceOpenMap      Source = "openmap"      // open map data
)

// AllSources returns every known source in canonical order.
func AllSources() []Source {
	return []Source{SourcePlaces, SourceBureau, SourceDemographics, SourceOpenMap}
}

// Label returns a human-readable provider name.
func (s Source) Label() string {
	switch s {
	case SourcePlaces:
		return "Google Places"
	case SourceBureau:
		return "Business Bureau"
	case SourceDemographics:
		return "Demographics"
	case SourceOpenMap:
		return "OpenStreetMap"
	default:
		return string(s)
	}
}

// ParseSource parses a source name, case-insensitively.
func ParseSource(s string) (Source, error) {
	switch Source(strings.ToLower(strings.TrimSpace(s))) {
	case SourcePlaces, "google":
		return SourcePlaces, nil
	case SourceBureau, "bbb":
		return SourceBureau, nil
	case SourceDemographics, "census":
		return SourceDemographics, nil
	case SourceOpenMap, "osm":
		return SourceOpenMap, nil
	}
	return "", eris.Errorf("model: unknown source %q", s)
}

// SourceSet holds the per-source enable flags of a query.
type SourceSet struct {
	Places       bool `json:"places"`
	Bureau       bool `json:"bureau"`
	Demographics bool `json:"demographics"`
	OpenMap      bool `json:"openmap"`
}

// AllSourcesEnabled returns a SourceSet with every source enabled.
func AllSourcesEnabled() SourceSet {
	return SourceSet{Places: true, Bureau: true, Demographics: true, OpenMap: true}
}

// Enabled returns the enabled sources in canonical order.
func (s SourceSet) Enabled() []Source {
	var out []Source
	for _, src := range AllSources() {
		if s.Has(src) {
			out = append(out, src)
		}
	}
	return out
}

// Has reports whether src is enabled.
func (s SourceSet) Has(src Source) bool {
	switch src {
	case SourcePlaces:
		return s.Places
	case SourceBureau:
		return s.Bureau
	case SourceDemographics:
		return s.Demographics
	case SourceOpenMap:
		return s.OpenMap
	}
	return false
}

// Set enables or disables src.
func (s *SourceSet) Set(src Source, on bool) {
	switch src {
	case SourcePlaces:
		s.Places = on
	case SourceBureau:
		s.Bureau = on
	case SourceDemographics:
		s.Demographics = on
	case SourceOpenMap:
		s.OpenMap = on
	}
}
