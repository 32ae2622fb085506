package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/cache"
	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/insight"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/provider"
	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/internal/scoring"
	"github.com/sells-group/prospect-cli/internal/search"
	"github.com/sells-group/prospect-cli/internal/store"
	"github.com/sells-group/prospect-cli/internal/workerpool"
	"github.com/sells-group/prospect-cli/pkg/geocode"
	"github.com/sells-group/prospect-cli/pkg/google"
)

// appEnv holds the initialized services shared by the search, rules, geocode
// and serve commands.
type appEnv struct {
	Store    store.Store // nil when the command does not persist anything
	Pool     *workerpool.Pool
	Geocoder *geocode.Service
	Registry *provider.Registry
	Scoring  *scoring.Engine
	Insight  insight.Engine
	Redis    *redis.Client
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Pool != nil {
		e.Pool.Shutdown(true)
	}
	if e.Redis != nil {
		_ = e.Redis.Close()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// NewAggregator returns an idle aggregator over the shared pool, providers,
// geocoder and scoring rules. Each concurrent search needs its own.
func (e *appEnv) NewAggregator() *search.Aggregator {
	return search.New(e.Registry,
		search.WithPool(e.Pool),
		search.WithGeocoder(e.Geocoder),
		search.WithScorer(e.Scoring),
		search.WithMaxResults(cfg.Search.MaxResults),
		search.WithFallbackLocation(fallbackLocation(cfg.Geocode.DefaultLocation)),
	)
}

// initEnv validates cfg for mode and wires the store, pool, geocoder,
// providers, scoring rules and insight engine. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	env := &appEnv{}
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	env.Store = st

	env.Scoring = scoring.New()
	if found, err := env.Scoring.LoadSettings(ctx, st, cfg.Scoring.SettingsKey); err != nil {
		zap.L().Warn("saved scoring rules not loaded, using defaults", zap.Error(err))
	} else if found {
		zap.L().Debug("scoring rules loaded", zap.String("key", cfg.Scoring.SettingsKey))
	}

	env.Pool = workerpool.New(cfg.Pool.Workers, cfg.Pool.MaxQueue)

	env.Geocoder, err = initGeocoder(env.Pool)
	if err != nil {
		env.Close()
		return nil, err
	}

	deps := provider.Deps{
		Breakers: resilience.NewBreakers(breakerConfig(cfg.Providers)),
		Timeout:  time.Duration(cfg.Providers.TimeoutSecs) * time.Second,
		TTL:      providerTTLs(cfg),
	}
	if cfg.Places.APIKey != "" {
		opts := []google.Option{google.WithRateLimit(cfg.Places.RateLimit)}
		if cfg.Places.BaseURL != "" {
			opts = append(opts, google.WithBaseURL(cfg.Places.BaseURL))
		}
		deps.Places = google.NewClient(cfg.Places.APIKey, opts...)
		zap.L().Info("google places api enabled")
	} else {
		zap.L().Debug("PROSPECT_PLACES_API_KEY not set, using the built-in places directory")
	}
	if cfg.Cache.Backend == "redis" {
		env.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err := env.Redis.Ping(ctx).Err(); err != nil {
			env.Close()
			return nil, eris.Wrapf(err, "redis: ping %s", cfg.Cache.RedisAddr)
		}
		deps.Redis = env.Redis
	}

	env.Registry, err = provider.NewRegistry(deps)
	if err != nil {
		env.Close()
		return nil, eris.Wrap(err, "build provider registry")
	}

	var insightOpts []insight.ClaudeOption
	if env.Redis != nil {
		insightOpts = append(insightOpts, insight.WithCache(cache.NewRedis(env.Redis, "prospect:insight:")))
	}
	env.Insight = insight.New(cfg.Insight, nil, insightOpts...)
	return env, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	return st, nil
}

func initGeocoder(pool *workerpool.Pool) (*geocode.Service, error) {
	gc := cfg.Geocode
	gaz := geocode.DefaultGazetteer()
	if gc.GazetteerFile != "" {
		entries, err := geocode.LoadGazetteerFile(gc.GazetteerFile)
		if err != nil {
			return nil, eris.Wrap(err, "load gazetteer")
		}
		for _, e := range entries {
			gaz.Add(e)
		}
	}

	opts := []geocode.Option{
		geocode.WithPool(pool),
		geocode.WithGazetteer(gaz),
		geocode.WithCacheTTL(gc.CacheTTL()),
		geocode.WithRetry(resilience.FromRetryConfig(gc.MaxAttempts, gc.RetryBackoffMs)),
		geocode.WithCallTimeout(time.Duration(gc.TimeoutSecs) * time.Second),
	}
	if gc.GoogleAPIKey != "" {
		gopts := []geocode.GoogleOption{geocode.WithGoogleRateLimit(gc.RateLimit)}
		if gc.BaseURL != "" {
			gopts = append(gopts, geocode.WithGoogleBaseURL(gc.BaseURL))
		}
		opts = append(opts, geocode.WithProvider(geocode.NewGoogleProvider(gc.GoogleAPIKey, gopts...)))
	}
	return geocode.NewService(opts...), nil
}

func breakerConfig(pc config.ProvidersConfig) resilience.CircuitBreakerConfig {
	bc := resilience.FromCircuitConfig(pc.BreakerFailures, pc.BreakerResetSecs)
	bc.ShouldTrip = provider.DefaultBreakerConfig().ShouldTrip
	return bc
}

func providerTTLs(c *config.Config) map[model.Source]time.Duration {
	ttls := make(map[model.Source]time.Duration)
	set := func(src model.Source, minutes int) {
		if minutes > 0 {
			ttls[src] = time.Duration(minutes) * time.Minute
		}
	}
	set(model.SourcePlaces, c.Places.CacheTTLMinutes)
	set(model.SourceBureau, c.Providers.BureauTTLMinutes)
	set(model.SourceDemographics, c.Providers.DemographicsTTLMinutes)
	set(model.SourceOpenMap, c.Providers.OpenMapTTLMinutes)
	return ttls
}

func fallbackLocation(d config.DefaultLocationConfig) *geocode.Location {
	if d.Latitude == 0 && d.Longitude == 0 {
		return geocode.DefaultLocation()
	}
	return &geocode.Location{
		Latitude:         d.Latitude,
		Longitude:        d.Longitude,
		FormattedAddress: d.Name,
		Source:           geocode.SourceDefault,
		Quality:          "centroid",
		Valid:            true,
	}
}
