package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// ItemKind tags the record held by a ResultItem.
type ItemKind string

const (
	KindBusiness ItemKind = "business"
	KindArea     ItemKind = "area"
)

// RuleContribution is one matched scoring rule and the points it added.
type RuleContribution struct {
	RuleID string `json:"rule_id"`
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// ResultItem is one ranked entity: exactly one of Business or Area is set.
type ResultItem struct {
	Kind          ItemKind           `json:"kind"`
	Business      *BusinessRecord    `json:"business,omitempty"`
	Area          *AreaRecord        `json:"area,omitempty"`
	Relevance     float64            `json:"relevance"`
	OverallScore  int                `json:"overall_score"`
	DistanceMiles float64            `json:"distance_miles"`
	Sources       []Source           `json:"sources"`
	MatchReason   string             `json:"match_reason,omitempty"`
	Breakdown     []RuleContribution `json:"breakdown,omitempty"`
}

// NewBusinessItem wraps b in a ResultItem with the record's provenance.
func NewBusinessItem(b *BusinessRecord) *ResultItem {
	return &ResultItem{
		Kind:         KindBusiness,
		Business:     b,
		OverallScore: b.BaseScore,
		Sources:      append([]Source(nil), b.Sources...),
	}
}

// NewAreaItem wraps a in a ResultItem.
func NewAreaItem(a *AreaRecord) *ResultItem {
	return &ResultItem{
		Kind:         KindArea,
		Area:         a,
		OverallScore: a.MarketPotential,
		Sources:      []Source{a.Source},
	}
}

// Validate checks the union and score bounds.
func (r *ResultItem) Validate() error {
	switch {
	case r.Business != nil && r.Area != nil:
		return eris.New("model: result item holds both business and area")
	case r.Business == nil && r.Area == nil:
		return eris.New("model: result item holds no record")
	case r.Kind == KindBusiness && r.Business == nil, r.Kind == KindArea && r.Area == nil:
		return eris.Errorf("model: result item kind %q does not match record", r.Kind)
	}
	if r.OverallScore < 0 || r.OverallScore > 100 {
		return eris.Errorf("model: overall score %d out of range", r.OverallScore)
	}
	if r.Relevance < 0 || r.Relevance > 1 {
		return eris.Errorf("model: relevance %.3f out of range", r.Relevance)
	}
	return nil
}

// Name returns the display name of the wrapped record.
func (r *ResultItem) Name() string {
	if r.Business != nil {
		return r.Business.Name
	}
	if r.Area != nil {
		return r.Area.Name
	}
	return ""
}

// Anchor is the resolved geographic center of a search.
type Anchor struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Label     string  `json:"label"`
	// Fallback is set when the query location could not be resolved and the default was used.
	Fallback bool `json:"fallback"`
}

// ResultSet is the output of one search invocation. Consumers treat it as read-only.
type ResultSet struct {
	ID           uuid.UUID      `json:"id"`
	Query        SearchQuery    `json:"query"`
	Anchor       Anchor         `json:"anchor"`
	Items        []*ResultItem  `json:"items"`
	TotalFound   int            `json:"total_found"`
	SourceCounts map[Source]int `json:"source_counts"`
	// SourceErrors holds the failure message of each source that contributed nothing.
	SourceErrors map[Source]string `json:"source_errors,omitempty"`
	Duration     time.Duration     `json:"duration"`
	Complete     bool              `json:"complete"`
	// Error summarizes SourceErrors for display; empty when every source answered.
	Error        string            `json:"error,omitempty"`
	Summary      string            `json:"summary"`
	StartedAt    time.Time         `json:"started_at"`
}

// NewResultSet returns an empty result set for q.
func NewResultSet(q SearchQuery) *ResultSet {
	return &ResultSet{
		ID:           uuid.New(),
		Query:        q,
		SourceCounts: make(map[Source]int),
		SourceErrors: make(map[Source]string),
		StartedAt:    time.Now(),
	}
}

// Businesses returns the business items in rank order.
func (rs *ResultSet) Businesses() []*ResultItem {
	var out []*ResultItem
	for _, it := range rs.Items {
		if it.Kind == KindBusiness {
			out = append(out, it)
		}
	}
	return out
}

// Areas returns the area items in rank order.
func (rs *ResultSet) Areas() []*ResultItem {
	var out []*ResultItem
	for _, it := range rs.Items {
		if it.Kind == KindArea {
			out = append(out, it)
		}
	}
	return out
}

// PageOffset returns the index of the first item on the query's page. ok is false when the
// page lies past the last item.
func (rs *ResultSet) PageOffset() (start int, ok bool) {
	size, page := rs.Query.PageSize, rs.Query.Page
	if size <= 0 || page <= 0 {
		return 0, true
	}
	// Compare pages, not offsets, so a huge page number cannot overflow.
	if page >= (len(rs.Items)+size-1)/size {
		return 0, false
	}
	return page * size, true
}

// PageItems returns the query's requested page of Items. A zero page size returns everything.
func (rs *ResultSet) PageItems() []*ResultItem {
	size := rs.Query.PageSize
	if size <= 0 {
		return rs.Items
	}
	start, ok := rs.PageOffset()
	if !ok || start >= len(rs.Items) {
		return nil
	}
	end := start + size
	if end > len(rs.Items) {
		end = len(rs.Items)
	}
	return rs.Items[start:end]
}

// SearchState is a stage of the search state machine.
type SearchState string

const (
	StateIdle             SearchState = "idle"
	StateGeocoding        SearchState = "geocoding"
	StateFetching         SearchState = "fetching"
	StateMerging          SearchState = "merging"
	StateScoring          SearchState = "scoring"
	StateAnalyzingSummary SearchState = "analyzing_summary"
	StateComplete         SearchState = "complete"
	StateCancelled        SearchState = "cancelled"
)

// Terminal reports whether no further transitions follow s.
func (s SearchState) Terminal() bool {
	return s == StateComplete || s == StateCancelled
}

// SearchProgress is one progress update emitted while a search runs.
type SearchProgress struct {
	State       SearchState `json:"state"`
	Source      Source      `json:"source,omitempty"`
	ResultCount int         `json:"result_count"`
	Percent     int         `json:"percent"`
	Error       string      `json:"error,omitempty"`
	Message     string      `json:"message,omitempty"`
}
