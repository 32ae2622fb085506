package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/geo"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/provider"
)

// Progress checkpoints, in percent.
const (
	pctGeocoded  = 10
	pctFetchEnd  = 80
	pctMerged    = 85
	pctScored    = 90
	pctSummary   = 95
	pctCompleted = 100
)

// execute runs the pipeline for one invocation on the calling goroutine.
func (a *Aggregator) execute(ctx context.Context, inv *invocation, q model.SearchQuery, onProgress func(model.SearchProgress)) (*model.ResultSet, error) {
	start := time.Now()
	emit := progress(onProgress).emit
	rs := model.NewResultSet(q)
	log := a.log.With(zap.String("search_id", rs.ID.String()))

	// 1. anchor
	if err := a.enter(ctx, inv, model.StateGeocoding); err != nil {
		return nil, err
	}
	emit(model.SearchProgress{State: model.StateGeocoding, Message: "Resolving location"})
	rs.Anchor = a.resolveAnchor(ctx, q)
	emit(model.SearchProgress{State: model.StateGeocoding, Percent: pctGeocoded, Message: "Searching near " + rs.Anchor.Label})

	// 2. fan out
	if err := a.enter(ctx, inv, model.StateFetching); err != nil {
		return nil, err
	}
	responses, err := a.fanOut(ctx, q, rs, emit)
	if err != nil {
		return nil, err
	}
	rs.Error = coverageNote(rs.SourceErrors, len(q.Sources.Enabled()))

	// 3. merge
	if err := a.enter(ctx, inv, model.StateMerging); err != nil {
		return nil, err
	}
	items := merge(responses)
	emit(model.SearchProgress{State: model.StateMerging, ResultCount: len(items), Percent: pctMerged})

	// 4. filter and score, then rank
	if err := a.enter(ctx, inv, model.StateScoring); err != nil {
		return nil, err
	}
	items, err = a.scoreAndFilter(q, rs.Anchor, items)
	if err != nil {
		return nil, err
	}
	rank(q, items)
	rs.TotalFound = len(items)
	if len(items) > a.maxResults {
		items = items[:a.maxResults]
	}
	rs.Items = items
	emit(model.SearchProgress{State: model.StateScoring, ResultCount: len(items), Percent: pctScored})

	// 5. narrative
	if err := a.enter(ctx, inv, model.StateAnalyzingSummary); err != nil {
		return nil, err
	}
	rs.Summary = Narrative(rs)
	emit(model.SearchProgress{State: model.StateAnalyzingSummary, ResultCount: len(items), Percent: pctSummary})

	if inv.cancelled.Load() || ctx.Err() != nil {
		return nil, ErrCancelled
	}
	rs.Complete = true
	rs.Duration = elapsed(start)
	emit(model.SearchProgress{State: model.StateComplete, ResultCount: len(items), Percent: pctCompleted, Message: rs.Summary})

	log.Info("search complete",
		zap.String("anchor", rs.Anchor.Label),
		zap.Bool("fallback_anchor", rs.Anchor.Fallback),
		zap.Int("total_found", rs.TotalFound),
		zap.Int("returned", len(rs.Items)),
		zap.Int("failed_sources", len(rs.SourceErrors)),
		zap.Duration("duration", rs.Duration),
	)
	return rs, nil
}

// coverageNote describes failed sources, e.g. "partial coverage: 1 of 4 sources failed (bureau)".
// It is empty when every source answered.
func coverageNote(failed map[model.Source]string, queried int) string {
	if len(failed) == 0 {
		return ""
	}
	names := make([]string, 0, len(failed))
	for src := range failed {
		names = append(names, string(src))
	}
	sort.Strings(names)
	return fmt.Sprintf("partial coverage: %d of %d sources failed (%s)", len(failed), queried, strings.Join(names, ", "))
}

// resolveAnchor prefers explicit coordinates, then the geocoder, then the fallback location.
func (a *Aggregator) resolveAnchor(ctx context.Context, q model.SearchQuery) model.Anchor {
	if q.HasCoordinates() {
		label := strings.TrimSpace(q.Location)
		if label == "" {
			label = fmt.Sprintf("%.4f, %.4f", *q.Latitude, *q.Longitude)
		}
		return model.Anchor{Latitude: *q.Latitude, Longitude: *q.Longitude, Label: label}
	}

	if a.geocoder != nil {
		loc, err := a.geocoder.Geocode(ctx, q.Location)
		if err == nil && loc != nil && loc.Valid {
			return model.Anchor{Latitude: loc.Latitude, Longitude: loc.Longitude, Label: loc.Label()}
		}
		a.log.Warn("location not resolved, using fallback",
			zap.String("location", q.Location),
			zap.String("fallback", a.fallback.Label()),
			zap.Error(err),
		)
	}
	return model.Anchor{
		Latitude:  a.fallback.Latitude,
		Longitude: a.fallback.Longitude,
		Label:     a.fallback.Label(),
		Fallback:  true,
	}
}

// fanOut searches every enabled source on the pool through provider.SearchAsync and collects
// the futures in completion order.
// Provider calls run on a context that ignores cancellation so shared caches stay consistent;
// a cancelled search stops waiting and drops whatever arrives later.
func (a *Aggregator) fanOut(ctx context.Context, q model.SearchQuery, rs *model.ResultSet, emit func(model.SearchProgress)) ([]*provider.Response, error) {
	radius := q.RadiusMiles
	if radius <= 0 {
		radius = model.DefaultRadiusMiles
	}
	req := provider.Request{
		Latitude:    rs.Anchor.Latitude,
		Longitude:   rs.Anchor.Longitude,
		RadiusMiles: radius,
		Keyword:     strings.TrimSpace(q.Keyword),
		Label:       rs.Anchor.Label,
		Limit:       a.maxResults,
	}
	taskCtx := context.WithoutCancel(ctx)

	sources := q.Sources.Enabled()
	results := make(chan *provider.Response, len(sources))
	finished := 0
	record := func(resp *provider.Response) {
		finished++
		rs.SourceCounts[resp.Source] = resp.Count()
		if resp.Failed() {
			rs.SourceErrors[resp.Source] = resp.Err
		}
		emit(model.SearchProgress{
			State:       model.StateFetching,
			Source:      resp.Source,
			ResultCount: resp.Count(),
			Percent:     pctGeocoded + (pctFetchEnd-pctGeocoded)*finished/len(sources),
			Error:       resp.Err,
		})
	}

	pending := 0
	for _, src := range sources {
		p, ok := a.providers.Get(src)
		if !ok {
			record(&provider.Response{Source: src, Err: src.Label() + ": no provider configured"})
			continue
		}
		f, err := provider.SearchAsync(taskCtx, a.pool, p, req)
		if err != nil {
			a.log.Warn("provider task rejected", zap.String("source", string(src)), zap.Error(err))
			record(&provider.Response{Source: src, Err: src.Label() + ": " + err.Error()})
			continue
		}
		pending++
		go func() {
			resp, err := f.Wait()
			if err != nil || resp == nil {
				msg := "no response"
				if err != nil {
					msg = err.Error()
				}
				resp = &provider.Response{Source: src, Err: src.Label() + ": " + msg}
			}
			results <- resp
		}()
	}

	responses := make([]*provider.Response, 0, pending)
	for ; pending > 0; pending-- {
		select {
		case <-ctx.Done():
			return nil, ErrCancelled
		case resp := <-results:
			responses = append(responses, resp)
			record(resp)
		}
	}
	return responses, nil
}

// scoreAndFilter drops items outside the query's filters, scores the rest and sets distance,
// relevance and match reason.
func (a *Aggregator) scoreAndFilter(q model.SearchQuery, anchor model.Anchor, items []*model.ResultItem) ([]*model.ResultItem, error) {
	radius := q.RadiusMiles
	if radius <= 0 {
		radius = model.DefaultRadiusMiles
	}
	keyword := strings.ToLower(strings.TrimSpace(q.Keyword))

	out := items[:0]
	for _, it := range items {
		var lat, lon float64
		var located bool
		switch it.Kind {
		case model.KindBusiness:
			b := it.Business
			if !q.MatchesType(b.Type) || !matchesKeyword(b, keyword) {
				continue
			}
			res, err := a.scorer.CalculateScore(b, b.BaseScore)
			if err != nil {
				return nil, err
			}
			it.OverallScore = res.Final
			it.Breakdown = res.Breakdown
			lat, lon, located = b.Latitude, b.Longitude, b.HasCoordinates()
		case model.KindArea:
			it.OverallScore = clampInt(it.Area.MarketPotential, 0, 100)
			lat, lon, located = it.Area.Latitude, it.Area.Longitude, it.Area.HasCoordinates()
		}
		if it.OverallScore < q.MinScore {
			continue
		}
		if located {
			it.DistanceMiles = geo.DistanceMiles(anchor.Latitude, anchor.Longitude, lat, lon)
			if geo.Classify(it.DistanceMiles, radius) == geo.BandOutside {
				continue
			}
		}
		it.Relevance = relevance(it, radius, keyword)
		it.MatchReason = matchReason(it)
		out = append(out, it)
	}
	return out, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
