// Package geocode resolves free-text locations to coordinates through a built-in gazetteer,
// a TTL cache and a network geocoding provider.
package geocode

import (
	"fmt"
	"strings"
)

// Location sources.
const (
	SourceGazetteer = "gazetteer"
	SourceGoogle    = "google"
	SourceDefault   = "default"
	SourceNone      = "none"
)

// Location is a geocoding result. Valid is false when the input could not be resolved.
type Location struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	FormattedAddress string  `json:"formatted_address"`
	City             string  `json:"city,omitempty"`
	State            string  `json:"state,omitempty"`
	ZipCode          string  `json:"zip_code,omitempty"`
	Country          string  `json:"country,omitempty"`
	Source           string  `json:"source"`
	Quality          string  `json:"quality,omitempty"` // rooftop, range, centroid, approximate
	Valid            bool    `json:"valid"`
}

// InvalidLocation is the explicit result for an input that could not be resolved.
func InvalidLocation(input string) *Location {
	return &Location{FormattedAddress: strings.TrimSpace(input), Source: SourceNone}
}

// DefaultLocation is the anchor used when a search location cannot be resolved: Denver, CO.
func DefaultLocation() *Location {
	return &Location{
		Latitude:         39.7392,
		Longitude:        -104.9903,
		FormattedAddress: "Denver, CO",
		City:             "Denver",
		State:            "CO",
		Country:          "US",
		Source:           SourceDefault,
		Quality:          "centroid",
		Valid:            true,
	}
}

// Label returns a short display name for the location.
func (l *Location) Label() string {
	switch {
	case l.FormattedAddress != "":
		return l.FormattedAddress
	case l.City != "" && l.State != "":
		return l.City + ", " + l.State
	default:
		return fmt.Sprintf("%.4f,%.4f", l.Latitude, l.Longitude)
	}
}

// googleLocationTypeToQuality maps Google's location_type to our quality taxonomy.
func googleLocationTypeToQuality(locType string) string {
	switch strings.ToUpper(locType) {
	case "ROOFTOP":
		return "rooftop"
	case "RANGE_INTERPOLATED":
		return "range"
	case "GEOMETRIC_CENTER":
		return "centroid"
	default:
		return "approximate"
	}
}
