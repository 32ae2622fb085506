// Package search runs one prospect search end to end: resolve the anchor, fan out to the
// enabled providers, merge, score, rank and summarize.
package search

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/provider"
	"github.com/sells-group/prospect-cli/internal/scoring"
	"github.com/sells-group/prospect-cli/internal/workerpool"
	"github.com/sells-group/prospect-cli/pkg/geocode"
)

// DefaultMaxResults caps the ranked result list.
const DefaultMaxResults = 100

var (
	// ErrSearchInProgress is returned when a search is requested while another is running.
	ErrSearchInProgress = eris.New("search: a search is already in progress")
	// ErrCancelled is returned by Run when the search was cancelled.
	ErrCancelled = eris.New("search: cancelled")
)

// Geocoder resolves a query's free-text location.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*geocode.Location, error)
}

// Scorer adjusts a business's base score.
type Scorer interface {
	CalculateScore(b *model.BusinessRecord, base int) (*scoring.Result, error)
}

// Providers looks up the provider for a source.
type Providers interface {
	Get(src model.Source) (provider.Provider, bool)
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithPool runs provider searches on p. Without it the aggregator owns a small pool.
func WithPool(p *workerpool.Pool) Option {
	return func(a *Aggregator) { a.pool = p }
}

// WithGeocoder sets the geocoder used for text locations.
func WithGeocoder(g Geocoder) Option {
	return func(a *Aggregator) { a.geocoder = g }
}

// WithScorer replaces the default scoring engine.
func WithScorer(s Scorer) Option {
	return func(a *Aggregator) { a.scorer = s }
}

// WithMaxResults caps the ranked list. Values below 1 are ignored.
func WithMaxResults(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.maxResults = n
		}
	}
}

// WithFallbackLocation sets the anchor used when a location cannot be resolved.
func WithFallbackLocation(loc *geocode.Location) Option {
	return func(a *Aggregator) {
		if loc != nil {
			a.fallback = loc
		}
	}
}

// invocation is one call to Search.
type invocation struct {
	cancel    context.CancelFunc
	cancelled atomic.Bool
	done      chan struct{}
	result    *model.ResultSet
	err       error
}

// Aggregator runs at most one search at a time.
type Aggregator struct {
	providers  Providers
	geocoder   Geocoder
	scorer     Scorer
	pool       *workerpool.Pool
	ownsPool   bool
	maxResults int
	fallback   *geocode.Location

	mu      sync.Mutex
	state   model.SearchState
	current *invocation
	last    *invocation

	log *zap.Logger
}

// New creates an idle aggregator over providers.
func New(providers Providers, opts ...Option) *Aggregator {
	a := &Aggregator{
		providers:  providers,
		maxResults: DefaultMaxResults,
		fallback:   geocode.DefaultLocation(),
		state:      model.StateIdle,
		log:        zap.L().With(zap.String("component", "search")),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.scorer == nil {
		a.scorer = scoring.New()
	}
	if a.pool == nil {
		a.pool = workerpool.New(len(model.AllSources()), workerpool.DefaultMaxQueue)
		a.ownsPool = true
	}
	return a
}

// Close releases the pool the aggregator created for itself.
func (a *Aggregator) Close() {
	if a.ownsPool {
		a.pool.Shutdown(true)
	}
}

// Search validates q and starts it on a new goroutine. onComplete receives the finished result
// set and is never called for a cancelled search; onProgress (optional) is called from the
// search goroutine. A search already in flight makes this a no-op returning ErrSearchInProgress.
func (a *Aggregator) Search(ctx context.Context, q model.SearchQuery, onComplete func(*model.ResultSet), onProgress func(model.SearchProgress)) error {
	_, err := a.start(ctx, q, onComplete, onProgress)
	return err
}

// Run is the blocking form of Search. It returns ErrCancelled when the search was cancelled.
func (a *Aggregator) Run(ctx context.Context, q model.SearchQuery, onProgress func(model.SearchProgress)) (*model.ResultSet, error) {
	inv, err := a.start(ctx, q, nil, onProgress)
	if err != nil {
		return nil, err
	}
	<-inv.done
	return inv.result, inv.err
}

func (a *Aggregator) start(ctx context.Context, q model.SearchQuery, onComplete func(*model.ResultSet), onProgress func(model.SearchProgress)) (*invocation, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	if a.current != nil {
		a.mu.Unlock()
		a.log.Info("search rejected, another is in progress")
		return nil, ErrSearchInProgress
	}
	runCtx, cancel := context.WithCancel(ctx)
	inv := &invocation{cancel: cancel, done: make(chan struct{})}
	a.current, a.last = inv, inv
	a.state = model.StateIdle
	a.mu.Unlock()

	go func() {
		defer cancel()
		rs, err := a.execute(runCtx, inv, q, onProgress)
		deliver := a.finish(inv, rs, err)
		if deliver && onComplete != nil {
			onComplete(rs)
		}
		close(inv.done)
	}()
	return inv, nil
}

// finish records the terminal state and reports whether the result should be delivered.
func (a *Aggregator) finish(inv *invocation, rs *model.ResultSet, err error) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if inv.cancelled.Load() {
		err = ErrCancelled
	}
	if err != nil {
		inv.err = err
		a.state = model.StateCancelled
		if !eris.Is(err, ErrCancelled) {
			a.log.Error("search failed", zap.Error(err))
		}
	} else {
		inv.result = rs
		a.state = model.StateComplete
	}
	a.current = nil
	return err == nil
}

// Cancel stops the running search. Provider calls already dispatched run to completion and
// their results are discarded. It reports whether a search was running.
func (a *Aggregator) Cancel() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil || a.current.cancelled.Load() {
		return false
	}
	a.current.cancelled.Store(true)
	a.current.cancel()
	a.state = model.StateCancelled
	a.log.Info("search cancelled")
	return true
}

// IsSearching reports whether a search invocation is still running.
func (a *Aggregator) IsSearching() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current != nil
}

// State returns the current pipeline state.
func (a *Aggregator) State() model.SearchState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Wait blocks until the most recent search has exited and its callback has returned.
func (a *Aggregator) Wait() {
	a.mu.Lock()
	inv := a.last
	a.mu.Unlock()
	if inv != nil {
		<-inv.done
	}
}

// Reset returns a finished aggregator to Idle.
func (a *Aggregator) Reset() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current != nil {
		return ErrSearchInProgress
	}
	a.state = model.StateIdle
	return nil
}

// enter moves to state unless the invocation was cancelled.
func (a *Aggregator) enter(ctx context.Context, inv *invocation, state model.SearchState) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if inv.cancelled.Load() || ctx.Err() != nil {
		return ErrCancelled
	}
	a.state = state
	a.log.Debug("search state", zap.String("state", string(state)))
	return nil
}

// progress wraps an optional callback.
type progress func(model.SearchProgress)

func (p progress) emit(ev model.SearchProgress) {
	if p != nil {
		p(ev)
	}
}

func elapsed(start time.Time) time.Duration {
	return time.Since(start).Round(time.Millisecond)
}
