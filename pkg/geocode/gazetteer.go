package geocode

import (
	"math"
	"os"
	"strings"
	"sync"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/prospect-cli/internal/geo"
)

// Normalize lowercases s, folds diacritics, replaces punctuation with spaces and collapses
// runs of whitespace. "  Saint-Louis, MO " and "saint louis mo" normalize identically.
func Normalize(s string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, s)
	if err != nil {
		folded = s
	}
	folded = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, folded)
	return strings.Join(strings.Fields(folded), " ")
}

// GazetteerEntry is one known place.
type GazetteerEntry struct {
	Name    string   `yaml:"name"`
	State   string   `yaml:"state"`
	ZipCode string   `yaml:"zip"`
	Lat     float64  `yaml:"lat"`
	Lon     float64  `yaml:"lon"`
	Aliases []string `yaml:"aliases"`
}

func (e GazetteerEntry) location() *Location {
	formatted := e.Name
	if e.State != "" {
		formatted += ", " + e.State
	}
	return &Location{
		Latitude:         e.Lat,
		Longitude:        e.Lon,
		FormattedAddress: formatted,
		City:             e.Name,
		State:            e.State,
		ZipCode:          e.ZipCode,
		Country:          "US",
		Source:           SourceGazetteer,
		Quality:          "centroid",
		Valid:            true,
	}
}

// Gazetteer is an in-memory table of place names, matched on normalized keys.
type Gazetteer struct {
	mu      sync.RWMutex
	byKey   map[string]int
	entries []GazetteerEntry
}

// NewGazetteer returns a gazetteer holding entries.
func NewGazetteer(entries ...GazetteerEntry) *Gazetteer {
	g := &Gazetteer{byKey: make(map[string]int)}
	for _, e := range entries {
		g.Add(e)
	}
	return g
}

// DefaultGazetteer returns a gazetteer of major US metros.
func DefaultGazetteer() *Gazetteer {
	return NewGazetteer(builtinPlaces...)
}

// Add registers e under "name", "name state" and each alias. A later entry with the same key
// replaces the earlier one.
func (g *Gazetteer) Add(e GazetteerEntry) {
	g.mu.Lock()
	defer g.mu.Unlock()

	idx := len(g.entries)
	g.entries = append(g.entries, e)

	keys := append([]string{e.Name, e.Name + " " + e.State}, e.Aliases...)
	for _, k := range keys {
		if k = Normalize(k); k != "" {
			g.byKey[k] = idx
		}
	}
}

// Lookup returns a fresh Location for an exact normalized match of input.
func (g *Gazetteer) Lookup(input string) (*Location, bool) {
	key := Normalize(input)
	g.mu.RLock()
	defer g.mu.RUnlock()
	idx, ok := g.byKey[key]
	if !ok {
		return nil, false
	}
	return g.entries[idx].location(), true
}

// Nearest returns the closest entry within maxMiles of (lat, lon) and its distance.
func (g *Gazetteer) Nearest(lat, lon, maxMiles float64) (*Location, float64, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	best, bestDist := -1, math.Inf(1)
	for i, e := range g.entries {
		if d := geo.DistanceMiles(lat, lon, e.Lat, e.Lon); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 || bestDist > maxMiles {
		return nil, 0, false
	}
	return g.entries[best].location(), bestDist, true
}

// Len returns the number of entries.
func (g *Gazetteer) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.entries)
}

type gazetteerFile struct {
	Places []GazetteerEntry `yaml:"places"`
}

// LoadGazetteerFile reads extra entries from a YAML file with a top-level "places" list.
func LoadGazetteerFile(path string) ([]GazetteerEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: read gazetteer %s", path)
	}
	var f gazetteerFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "geocode: parse gazetteer %s", path)
	}
	for i, e := range f.Places {
		if strings.TrimSpace(e.Name) == "" {
			return nil, eris.Errorf("geocode: gazetteer %s: entry %d has no name", path, i)
		}
		if e.Lat < -90 || e.Lat > 90 || e.Lon < -180 || e.Lon > 180 {
			return nil, eris.Errorf("geocode: gazetteer %s: %q has invalid coordinates", path, e.Name)
		}
	}
	return f.Places, nil
}

var builtinPlaces = []GazetteerEntry{
	{Name: "Denver", State: "CO", ZipCode: "80202", Lat: 39.7392, Lon: -104.9903},
	{Name: "Boulder", State: "CO", ZipCode: "80302", Lat: 40.0150, Lon: -105.2705},
	{Name: "Aurora", State: "CO", ZipCode: "80012", Lat: 39.7294, Lon: -104.8319},
	{Name: "Colorado Springs", State: "CO", ZipCode: "80903", Lat: 38.8339, Lon: -104.8214},
	{Name: "Fort Collins", State: "CO", ZipCode: "80524", Lat: 40.5853, Lon: -105.0844},
	{Name: "Albuquerque", State: "NM", ZipCode: "87102", Lat: 35.0844, Lon: -106.6504},
	{Name: "Salt Lake City", State: "UT", ZipCode: "84101", Lat: 40.7608, Lon: -111.8910, Aliases: []string{"slc"}},
	{Name: "Phoenix", State: "AZ", ZipCode: "85004", Lat: 33.4484, Lon: -112.0740},
	{Name: "Las Vegas", State: "NV", ZipCode: "89101", Lat: 36.1699, Lon: -115.1398},
	{Name: "Los Angeles", State: "CA", ZipCode: "90012", Lat: 34.0522, Lon: -118.2437, Aliases: []string{"la"}},
	{Name: "San Diego", State: "CA", ZipCode: "92101", Lat: 32.7157, Lon: -117.1611},
	{Name: "San Francisco", State: "CA", ZipCode: "94102", Lat: 37.7749, Lon: -122.4194, Aliases: []string{"sf"}},
	{Name: "San Jose", State: "CA", ZipCode: "95113", Lat: 37.3382, Lon: -121.8863},
	{Name: "Seattle", State: "WA", ZipCode: "98101", Lat: 47.6062, Lon: -122.3321},
	{Name: "Portland", State: "OR", ZipCode: "97204", Lat: 45.5152, Lon: -122.6784},
	{Name: "Dallas", State: "TX", ZipCode: "75201", Lat: 32.7767, Lon: -96.7970},
	{Name: "Houston", State: "TX", ZipCode: "77002", Lat: 29.7604, Lon: -95.3698},
	{Name: "Austin", State: "TX", ZipCode: "78701", Lat: 30.2672, Lon: -97.7431},
	{Name: "San Antonio", State: "TX", ZipCode: "78205", Lat: 29.4241, Lon: -98.4936},
	{Name: "Kansas City", State: "MO", ZipCode: "64106", Lat: 39.0997, Lon: -94.5786},
	{Name: "Minneapolis", State: "MN", ZipCode: "55401", Lat: 44.9778, Lon: -93.2650},
	{Name: "Chicago", State: "IL", ZipCode: "60602", Lat: 41.8781, Lon: -87.6298},
	{Name: "Nashville", State: "TN", ZipCode: "37203", Lat: 36.1627, Lon: -86.7816},
	{Name: "Atlanta", State: "GA", ZipCode: "30303", Lat: 33.7490, Lon: -84.3880},
	{Name: "Miami", State: "FL", ZipCode: "33130", Lat: 25.7617, Lon: -80.1918},
	{Name: "Charlotte", State: "NC", ZipCode: "28202", Lat: 35.2271, Lon: -80.8431},
	{Name: "Washington", State: "DC", ZipCode: "20001", Lat: 38.9072, Lon: -77.0369, Aliases: []string{"dc", "washington dc"}},
	{Name: "Philadelphia", State: "PA", ZipCode: "19107", Lat: 39.9526, Lon: -75.1652, Aliases: []string{"philly"}},
	{Name: "New York", State: "NY", ZipCode: "10007", Lat: 40.7128, Lon: -74.0060, Aliases: []string{"nyc", "new york city"}},
	{Name: "Boston", State: "MA", ZipCode: "02108", Lat: 42.3601, Lon: -71.0589},
}
