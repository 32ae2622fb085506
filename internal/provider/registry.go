package provider

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/cache"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/pkg/google"
)

// DefaultTimeout bounds a single backend call.
const DefaultTimeout = 15 * time.Second

// Deps are the shared dependencies used to construct providers.
type Deps struct {
	// Places enables the live Google Places backend. Nil uses the synthetic directory.
	Places google.Client
	// Redis, when set, backs every provider's response cache. Nil uses in-process caches.
	Redis *redis.Client
	// Breakers supplies one circuit breaker per source. Nil creates a private set.
	Breakers *resilience.Breakers
	// Timeout bounds each backend call. Zero uses DefaultTimeout.
	Timeout time.Duration
	// TTL overrides DefaultTTL per source.
	TTL map[model.Source]time.Duration
	// Now is the clock used for record timestamps.
	Now func() time.Time
}

// DefaultBreakerConfig does not count cancelled searches as backend failures.
func DefaultBreakerConfig() resilience.CircuitBreakerConfig {
	cfg := resilience.DefaultCircuitBreakerConfig()
	cfg.ShouldTrip = func(err error) bool {
		return err != nil && !errors.Is(err, context.Canceled)
	}
	return cfg
}

func (d *Deps) defaults() {
	if d.Breakers == nil {
		d.Breakers = resilience.NewBreakers(DefaultBreakerConfig())
	}
	if d.Timeout <= 0 {
		d.Timeout = DefaultTimeout
	}
	if d.Now == nil {
		d.Now = time.Now
	}
}

func (d *Deps) ttl(src model.Source) time.Duration {
	if t, ok := d.TTL[src]; ok && t > 0 {
		return t
	}
	return DefaultTTL(src)
}

func (d *Deps) cacheFor(src model.Source) cache.Cache {
	if d.Redis != nil {
		return cache.NewRedis(d.Redis, "prospect:"+string(src)+":")
	}
	return cache.NewMemory()
}

// New constructs the provider for src.
func New(src model.Source, deps Deps) (Provider, error) {
	deps.defaults()

	var fetch fetchFunc
	switch src {
	case model.SourcePlaces:
		if deps.Places != nil {
			fetch = placesFetch(deps.Places)
		} else {
			fetch = synthetic(syntheticPlaces)
		}
	case model.SourceBureau:
		fetch = synthetic(syntheticBureau)
	case model.SourceDemographics:
		fetch = synthetic(syntheticDemographics)
	case model.SourceOpenMap:
		fetch = synthetic(syntheticOpenMap)
	default:
		return nil, eris.Errorf("provider: unknown source %q", src)
	}

	return &adapter{
		source:  src,
		cache:   deps.cacheFor(src),
		ttl:     deps.ttl(src),
		timeout: deps.Timeout,
		breaker: deps.Breakers.Get(string(src)),
		fetch:   fetch,
		now:     deps.Now,
		log:     zap.L().With(zap.String("component", "provider"), zap.String("source", string(src))),
	}, nil
}

func synthetic(gen func(Request) *payload) fetchFunc {
	return func(ctx context.Context, req Request) (*payload, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return gen(req), nil
	}
}

// Registry holds the provider for each source.
type Registry struct {
	mu        sync.RWMutex
	providers map[model.Source]Provider
}

// NewRegistry builds providers for sources (all sources when none are given).
func NewRegistry(deps Deps, sources ...model.Source) (*Registry, error) {
	if len(sources) == 0 {
		sources = model.AllSources()
	}
	deps.defaults()
	r := &Registry{providers: make(map[model.Source]Provider, len(sources))}
	for _, src := range sources {
		p, err := New(src, deps)
		if err != nil {
			return nil, err
		}
		r.Register(p)
	}
	return r, nil
}

// NewEmptyRegistry creates a registry with no providers.
func NewEmptyRegistry() *Registry {
	return &Registry{providers: make(map[model.Source]Provider)}
}

// Register adds p, replacing any provider for the same source.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Source()] = p
}

// Get returns the provider for src.
func (r *Registry) Get(src model.Source) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[src]
	return p, ok
}

// Sources returns the registered sources in canonical order.
func (r *Registry) Sources() []model.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.Source
	for _, src := range model.AllSources() {
		if _, ok := r.providers[src]; ok {
			out = append(out, src)
		}
	}
	return out
}
