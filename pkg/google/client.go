// Package google is a small client for the Google Places API (v1) text and nearby search.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/prospect-cli/internal/resilience"
)

const defaultBaseURL = "https://places.googleapis.com/v1"

// MaxResultCount is the per-request result cap enforced by the API.
const MaxResultCount = 20

// placeFields is the field mask requested for every search.
var placeFields = []string{
	"places.id",
	"places.displayName",
	"places.formattedAddress",
	"places.addressComponents",
	"places.location",
	"places.types",
	"places.primaryType",
	"places.rating",
	"places.userRatingCount",
	"places.nationalPhoneNumber",
	"places.websiteUri",
	"places.businessStatus",
	"nextPageToken",
}

// Client performs Google Places API operations.
type Client interface {
	TextSearch(ctx context.Context, req TextSearchRequest) (*SearchResponse, error)
	SearchNearby(ctx context.Context, req NearbySearchRequest) (*SearchResponse, error)
}

// SearchResponse is the response of both search endpoints.
type SearchResponse struct {
	Places        []Place `json:"places"`
	NextPageToken string  `json:"nextPageToken,omitempty"`
}

// Place is a place returned by the API, limited to the requested field mask.
type Place struct {
	ID                  string             `json:"id"`
	DisplayName         DisplayName        `json:"displayName"`
	FormattedAddress    string             `json:"formattedAddress,omitempty"`
	AddressComponents   []AddressComponent `json:"addressComponents,omitempty"`
	Location            *LatLng            `json:"location,omitempty"`
	Types               []string           `json:"types,omitempty"`
	PrimaryType         string             `json:"primaryType,omitempty"`
	Rating              float64            `json:"rating,omitempty"`
	UserRatingCount     int                `json:"userRatingCount,omitempty"`
	NationalPhoneNumber string             `json:"nationalPhoneNumber,omitempty"`
	WebsiteURI          string             `json:"websiteUri,omitempty"`
	BusinessStatus      string             `json:"businessStatus,omitempty"`
}

// Component returns the short text of the first address component of the given type.
func (p Place) Component(typ string) string {
	for _, c := range p.AddressComponents {
		for _, t := range c.Types {
			if t == typ {
				return c.ShortText
			}
		}
	}
	return ""
}

// DisplayName holds the place's display name.
type DisplayName struct {
	Text string `json:"text"`
}

// AddressComponent is one structured part of a place's address.
type AddressComponent struct {
	LongText  string   `json:"longText"`
	ShortText string   `json:"shortText"`
	Types     []string `json:"types"`
}

// LatLng is a WGS84 coordinate.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Circle is a search area.
type Circle struct {
	Center LatLng  `json:"center"`
	Radius float64 `json:"radius"` // meters, at most 50000
}

// Area wraps a Circle as the API expects for location bias and restriction.
type Area struct {
	Circle Circle `json:"circle"`
}

// NewArea builds a circular area from a center and a radius in miles, capped at the API limit.
func NewArea(lat, lon, radiusMiles float64) *Area {
	meters := radiusMiles * 1609.344
	if meters > 50000 {
		meters = 50000
	}
	return &Area{Circle: Circle{Center: LatLng{Latitude: lat, Longitude: lon}, Radius: meters}}
}

// TextSearchRequest is the body of places:searchText.
type TextSearchRequest struct {
	TextQuery      string `json:"textQuery"`
	IncludedType   string `json:"includedType,omitempty"`
	LocationBias   *Area  `json:"locationBias,omitempty"`
	MaxResultCount int    `json:"maxResultCount,omitempty"`
	PageToken      string `json:"pageToken,omitempty"`
}

// NearbySearchRequest is the body of places:searchNearby.
type NearbySearchRequest struct {
	IncludedTypes       []string `json:"includedTypes,omitempty"`
	ExcludedTypes       []string `json:"excludedTypes,omitempty"`
	LocationRestriction Area     `json:"locationRestriction"`
	MaxResultCount      int      `json:"maxResultCount,omitempty"`
	RankPreference      string   `json:"rankPreference,omitempty"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Google Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) TextSearch(ctx context.Context, req TextSearchRequest) (*SearchResponse, error) {
	if strings.TrimSpace(req.TextQuery) == "" {
		return nil, eris.New("google: text query is required")
	}
	req.MaxResultCount = clampResults(req.MaxResultCount)
	return c.post(ctx, "/places:searchText", req)
}

func (c *httpClient) SearchNearby(ctx context.Context, req NearbySearchRequest) (*SearchResponse, error) {
	if req.LocationRestriction.Circle.Radius <= 0 {
		return nil, eris.New("google: nearby search needs a positive radius")
	}
	req.MaxResultCount = clampResults(req.MaxResultCount)
	return c.post(ctx, "/places:searchNearby", req)
}

func clampResults(n int) int {
	if n <= 0 || n > MaxResultCount {
		return MaxResultCount
	}
	return n
}

func (c *httpClient) post(ctx context.Context, path string, payload any) (*SearchResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "google: rate limit")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "google: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "google: create request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", strings.Join(placeFields, ","))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "google: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "google: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, resilience.HTTPStatusError("google", resp.StatusCode, respBody)
	}

	var result SearchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "google: unmarshal response")
	}

	return &result, nil
}
