package model

import "time"

// AreaRecord aggregates population and business data for a geographic area.
// It is immutable once a provider has produced it.
type AreaRecord struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	ZipCode       string  `json:"zip_code,omitempty"`
	Latitude      float64 `json:"latitude,omitempty"`
	Longitude     float64 `json:"longitude,omitempty"`
	Population    int     `json:"population"`
	BusinessCount int     `json:"business_count"`
	Workforce     int     `json:"workforce"`
	MedianIncome  int     `json:"median_income"`

	// MarketPotential is the 0-100 attractiveness of the area.
	MarketPotential int       `json:"market_potential"`
	Source          Source    `json:"source"`
	Created         time.Time `json:"created_at"`
}

// HasCoordinates reports whether the area carries a usable centroid.
func (a *AreaRecord) HasCoordinates() bool {
	return a.Latitude != 0 || a.Longitude != 0
}
