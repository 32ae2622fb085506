package geocode

import (
	"context"

	"go.uber.org/zap"
)

// Provider is a network geocoding backend. A lookup with no match returns (nil, nil);
// errors are reserved for failed calls.
type Provider interface {
	Name() string
	Available() bool
	Geocode(ctx context.Context, address string) (*Location, error)
	Reverse(ctx context.Context, lat, lon float64) (*Location, error)
}

// CascadeProvider tries providers in order until one returns a match.
type CascadeProvider struct {
	providers []Provider
}

// NewCascadeProvider returns a cascade over providers, in priority order.
func NewCascadeProvider(providers ...Provider) *CascadeProvider {
	return &CascadeProvider{providers: providers}
}

// Name implements Provider.
func (c *CascadeProvider) Name() string { return "cascade" }

// Available reports whether any provider is available.
func (c *CascadeProvider) Available() bool {
	for _, p := range c.providers {
		if p.Available() {
			return true
		}
	}
	return false
}

// Geocode implements Provider. When every provider fails, the last error is returned.
func (c *CascadeProvider) Geocode(ctx context.Context, address string) (*Location, error) {
	return c.first(ctx, func(p Provider) (*Location, error) { return p.Geocode(ctx, address) })
}

// Reverse implements Provider.
func (c *CascadeProvider) Reverse(ctx context.Context, lat, lon float64) (*Location, error) {
	return c.first(ctx, func(p Provider) (*Location, error) { return p.Reverse(ctx, lat, lon) })
}

func (c *CascadeProvider) first(ctx context.Context, call func(Provider) (*Location, error)) (*Location, error) {
	var lastErr error
	for _, p := range c.providers {
		if !p.Available() {
			continue
		}
		loc, err := call(p)
		if err != nil {
			zap.L().Debug("geocode: cascade provider failed", zap.String("provider", p.Name()), zap.Error(err))
			lastErr = err
			if ctx.Err() != nil {
				return nil, err
			}
			continue
		}
		if loc != nil && loc.Valid {
			return loc, nil
		}
	}
	return nil, lastErr
}
