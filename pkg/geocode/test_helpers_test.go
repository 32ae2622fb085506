package geocode

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sells-group/prospect-cli/internal/resilience"
)

// newRewriteClient returns an HTTP client that sends requests for targetPrefix to the test server.
func newRewriteClient(testServerURL, targetPrefix string) *http.Client {
	return &http.Client{Transport: &rewriteTransport{
		base:         http.DefaultTransport,
		testServer:   testServerURL,
		targetPrefix: targetPrefix,
	}}
}

type rewriteTransport struct {
	base         http.RoundTripper
	testServer   string
	targetPrefix string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	orig := req.URL.String()
	if !strings.HasPrefix(orig, t.targetPrefix) {
		return t.base.RoundTrip(req)
	}
	parsed, err := req.URL.Parse(t.testServer + orig[len(t.targetPrefix):])
	if err != nil {
		return nil, err
	}
	out := req.Clone(req.Context())
	out.URL = parsed
	out.Host = parsed.Host
	return t.base.RoundTrip(out)
}

// fakeProvider is a scripted Provider that counts calls.
type fakeProvider struct {
	mu        sync.Mutex
	available bool
	results   map[string]*Location
	errs      []error // returned in order before results are consulted
	delay     time.Duration
	calls     atomic.Int32
}

func newFakeProvider(results map[string]*Location) *fakeProvider {
	return &fakeProvider{available: true, results: results}
}

func (f *fakeProvider) Name() string    { return "fake" }
func (f *fakeProvider) Available() bool { return f.available }

func (f *fakeProvider) Geocode(ctx context.Context, address string) (*Location, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return f.results[Normalize(address)], nil
}

func (f *fakeProvider) Reverse(ctx context.Context, lat, lon float64) (*Location, error) {
	return f.Geocode(ctx, "reverse")
}

func fastRetry() resilience.RetryConfig {
	return resilience.FixedBackoff(3, time.Millisecond)
}

func googleLoc(lat, lon float64, formatted string) *Location {
	return &Location{Latitude: lat, Longitude: lon, FormattedAddress: formatted, Source: SourceGoogle, Valid: true}
}
