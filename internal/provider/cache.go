package provider

import (
	"time"

	"github.com/sells-group/prospect-cli/internal/model"
)

// Default response TTLs. Places data carries ratings and reviews that change often; the rest is
// close to static.
const (
	PlacesTTL = time.Hour
	StaticTTL = 24 * time.Hour
)

// DefaultTTL returns the response TTL for src.
func DefaultTTL(src model.Source) time.Duration {
	if src == model.SourcePlaces {
		return PlacesTTL
	}
	return StaticTTL
}
