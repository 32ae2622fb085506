package provider

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/cache"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/resilience"
)

// payload is the cached form of a backend result.
type payload struct {
	Businesses []*model.BusinessRecord `json:"businesses,omitempty"`
	Areas      []*model.AreaRecord     `json:"areas,omitempty"`
}

// fetchFunc queries one backend. It may return an error; adapter turns it into Response.Err.
type fetchFunc func(ctx context.Context, req Request) (*payload, error)

// adapter gives every backend the same cache, breaker, timeout and accounting.
type adapter struct {
	source  model.Source
	cache   cache.Cache
	ttl     time.Duration
	timeout time.Duration
	breaker *resilience.CircuitBreaker
	fetch   fetchFunc
	now     func() time.Time
	log     *zap.Logger
}

func (a *adapter) Source() model.Source { return a.source }

// Search implements Provider. Cached payloads are decoded per call, so callers own the records.
func (a *adapter) Search(ctx context.Context, req Request) *Response {
	start := time.Now()
	resp := &Response{Source: a.source}
	defer func() {
		resp.Duration = time.Since(start)
		RequestDuration.WithLabelValues(string(a.source)).Observe(resp.Duration.Seconds())
		RecordsReturned.WithLabelValues(string(a.source)).Add(float64(resp.Count()))
	}()

	if err := ctx.Err(); err != nil {
		resp.Err = err.Error()
		RequestsTotal.WithLabelValues(string(a.source), outcomeError).Inc()
		return resp
	}

	key := req.CacheKey(a.source)
	if data, ok := a.cache.Get(ctx, key); ok {
		var p payload
		if err := json.Unmarshal(data, &p); err == nil {
			resp.Businesses, resp.Areas, resp.FromCache = p.Businesses, p.Areas, true
			RequestsTotal.WithLabelValues(string(a.source), outcomeCacheHit).Inc()
			a.log.Debug("cache hit", zap.Int("records", resp.Count()))
			return resp
		}
		a.log.Warn("discarding undecodable cache entry", zap.String("key", key))
	}

	p, err := resilience.ExecuteVal(ctx, a.breaker, func(ctx context.Context) (*payload, error) {
		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()
		return a.fetch(callCtx, req)
	})
	if err == nil && p == nil {
		err = eris.New("empty response")
	}
	if err != nil {
		resp.Err = a.source.Label() + ": " + err.Error()
		RequestsTotal.WithLabelValues(string(a.source), outcomeError).Inc()
		a.log.Warn("provider search failed",
			zap.String("label", req.Label),
			zap.String("class", resilience.Classify(err)),
			zap.Error(err),
		)
		return resp
	}

	a.stamp(p, req.EffectiveLimit())
	resp.Businesses, resp.Areas = p.Businesses, p.Areas
	RequestsTotal.WithLabelValues(string(a.source), outcomeOK).Inc()

	data, err := json.Marshal(p)
	if err != nil {
		a.log.Warn("encode response for cache", zap.Error(err))
	} else {
		a.cache.Set(ctx, key, data, a.ttl)
	}

	a.log.Info("provider search complete",
		zap.String("label", req.Label),
		zap.Int("businesses", len(resp.Businesses)),
		zap.Int("areas", len(resp.Areas)),
	)
	return resp
}

// stamp truncates to limit and fills provenance and timestamps the backend left empty.
func (a *adapter) stamp(p *payload, limit int) {
	if len(p.Businesses) > limit {
		p.Businesses = p.Businesses[:limit]
	}
	if len(p.Areas) > limit {
		p.Areas = p.Areas[:limit]
	}
	now := a.now().UTC()
	for _, b := range p.Businesses {
		if !b.HasSource(a.source) {
			b.Sources = append(b.Sources, a.source)
		}
		if b.Created.IsZero() {
			b.Created = now
		}
		b.Updated = now
	}
	for _, ar := range p.Areas {
		ar.Source = a.source
		if ar.Created.IsZero() {
			ar.Created = now
		}
	}
}
