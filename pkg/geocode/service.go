package geocode

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/internal/workerpool"
)

// Service defaults.
const (
	DefaultCacheTTL     = 24 * time.Hour
	DefaultCallTimeout  = 10 * time.Second
	ReverseSearchRadius = 5.0 // miles
)

// Option configures a Service.
type Option func(*Service)

// WithProvider sets the network provider used after gazetteer and cache misses.
func WithProvider(p Provider) Option {
	return func(s *Service) { s.provider = p }
}

// WithCacheTTL sets how long provider results are cached.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) { s.cache.ttl = ttl }
}

// WithRetry sets the retry policy for provider calls.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(s *Service) { s.retry = cfg }
}

// WithPool sets the worker pool used by GeocodeAsync and BatchGeocode.
func WithPool(p *workerpool.Pool) Option {
	return func(s *Service) { s.pool = p }
}

// WithGazetteer replaces the built-in gazetteer.
func WithGazetteer(g *Gazetteer) Option {
	return func(s *Service) { s.gazetteer = g }
}

// WithCallTimeout bounds each provider attempt.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithNow sets the clock used for cache expiry.
func WithNow(now func() time.Time) Option {
	return func(s *Service) { s.cache.now = now }
}

// Service resolves addresses: gazetteer first, then the TTL cache, then the provider with
// bounded retries. Resolution failures produce an invalid Location rather than an error.
type Service struct {
	provider  Provider
	gazetteer *Gazetteer
	cache     *Cache
	retry     resilience.RetryConfig
	timeout   time.Duration
	pool      *workerpool.Pool
	flight    singleflight.Group
	log       *zap.Logger
}

// NewService creates a Service with the built-in gazetteer and no network provider.
func NewService(opts ...Option) *Service {
	s := &Service{
		gazetteer: DefaultGazetteer(),
		cache:     NewCache(DefaultCacheTTL),
		retry:     resilience.FixedBackoff(3, 250*time.Millisecond),
		timeout:   DefaultCallTimeout,
		log:       zap.L().With(zap.String("component", "geocode")),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.retry.OnRetry == nil {
		s.retry.OnRetry = resilience.RetryLogger("geocode", "geocode")
	}
	return s
}

// Cache returns the service's result cache.
func (s *Service) Cache() *Cache { return s.cache }

// Gazetteer returns the service's gazetteer.
func (s *Service) Gazetteer() *Gazetteer { return s.gazetteer }

// Geocode resolves address. The returned Location is never nil; it is invalid when nothing
// matched or the provider failed. The error is non-nil only when ctx is done.
// Within the cache TTL, repeated lookups of the same normalized address return the same pointer.
func (s *Service) Geocode(ctx context.Context, address string) (*Location, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := Normalize(address)
	if key == "" {
		return InvalidLocation(address), nil
	}

	if loc, ok := s.gazetteer.Lookup(key); ok {
		s.log.Debug("gazetteer hit", zap.String("address", address))
		return loc, nil
	}
	if loc, ok := s.cache.Get(key); ok {
		s.log.Debug("cache hit", zap.String("address", address))
		return loc, nil
	}
	if s.provider == nil || !s.provider.Available() {
		return InvalidLocation(address), nil
	}

	// The shared call outlives any one caller; each caller stops waiting on its own ctx.
	shared := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(key, func() (any, error) {
		if loc, ok := s.cache.Get(key); ok {
			return loc, nil
		}
		loc, err := resilience.DoVal(shared, s.retry, func(ctx context.Context) (*Location, error) {
			callCtx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			return s.provider.Geocode(callCtx, address)
		})
		if err != nil {
			return nil, err
		}
		if loc != nil && loc.Valid {
			s.cache.Set(key, loc)
		}
		return loc, nil
	})

	var v any
	var err error
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		v, err = res.Val, res.Err
	}
	if err != nil {
		s.log.Warn("geocode failed",
			zap.String("address", address),
			zap.String("provider", s.provider.Name()),
			zap.String("class", resilience.Classify(err)),
			zap.Error(err),
		)
		return InvalidLocation(address), nil
	}

	loc, _ := v.(*Location)
	if loc == nil || !loc.Valid {
		s.log.Info("geocode no match", zap.String("address", address))
		return InvalidLocation(address), nil
	}
	return loc, nil
}

// GeocodeAsync runs Geocode on the worker pool. Without a pool the lookup runs inline and
// the returned future is already resolved.
func (s *Service) GeocodeAsync(ctx context.Context, address string) (*workerpool.Future[*Location], error) {
	if s.pool == nil {
		loc, err := s.Geocode(ctx, address)
		return workerpool.Resolved(loc, err), nil
	}
	return workerpool.Submit(s.pool, func() (*Location, error) {
		return s.Geocode(ctx, address)
	})
}

// ReverseGeocode resolves coordinates to the nearest gazetteer place within 5 miles, else
// asks the provider. The result is invalid when neither knows the point.
func (s *Service) ReverseGeocode(ctx context.Context, lat, lon float64) (*Location, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	label := fmt.Sprintf("%.5f,%.5f", lat, lon)

	if loc, _, ok := s.gazetteer.Nearest(lat, lon, ReverseSearchRadius); ok {
		return loc, nil
	}
	if s.provider == nil || !s.provider.Available() {
		return InvalidLocation(label), nil
	}

	loc, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) (*Location, error) {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return s.provider.Reverse(callCtx, lat, lon)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.log.Warn("reverse geocode failed", zap.String("point", label), zap.Error(err))
		return InvalidLocation(label), nil
	}
	if loc == nil || !loc.Valid {
		return InvalidLocation(label), nil
	}
	return loc, nil
}
