// Package provider adapts each prospect data source (places, bureau, demographics, open map)
// to a single "search near a point" capability.
package provider

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/workerpool"
)

// DefaultLimit caps records per response when a request sets no limit.
const DefaultLimit = 25

// Request describes one provider search around a point.
type Request struct {
	Latitude    float64
	Longitude   float64
	RadiusMiles float64
	Keyword     string
	Label       string // human-readable anchor, e.g. "Denver, CO"
	Limit       int
}

// EffectiveLimit returns Limit or DefaultLimit.
func (r Request) EffectiveLimit() int {
	if r.Limit <= 0 {
		return DefaultLimit
	}
	return r.Limit
}

// CacheKey normalizes the request for src. Coordinates are rounded to ~100m and the keyword is
// lowercased so trivially different queries share an entry.
func (r Request) CacheKey(src model.Source) string {
	return fmt.Sprintf("%s|%.3f|%.3f|%.1f|%s|%d",
		src,
		round(r.Latitude, 3),
		round(r.Longitude, 3),
		r.RadiusMiles,
		strings.ToLower(strings.Join(strings.Fields(r.Keyword), " ")),
		r.EffectiveLimit(),
	)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Response is what a provider contributed to a search. A failed provider returns an empty
// Response with Err set; it never returns a Go error.
type Response struct {
	Source     model.Source
	Businesses []*model.BusinessRecord
	Areas      []*model.AreaRecord
	Err        string
	FromCache  bool
	Duration   time.Duration
}

// Count returns the number of records in the response.
func (r *Response) Count() int {
	return len(r.Businesses) + len(r.Areas)
}

// Failed reports whether the provider could not produce results.
func (r *Response) Failed() bool {
	return r.Err != ""
}

// Provider is a data source searched by the aggregator.
type Provider interface {
	Source() model.Source
	Search(ctx context.Context, req Request) *Response
}

// SearchAsync runs p.Search on pool. Without a pool the search runs inline.
// The only errors are pool admission errors (workerpool.ErrQueueFull, ErrPoolClosed).
func SearchAsync(ctx context.Context, pool *workerpool.Pool, p Provider, req Request) (*workerpool.Future[*Response], error) {
	if pool == nil {
		return workerpool.Resolved(p.Search(ctx, req), nil), nil
	}
	return workerpool.Submit(pool, func() (*Response, error) {
		return p.Search(ctx, req), nil
	})
}
