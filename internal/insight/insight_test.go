package insight

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/cache"
	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/pkg/anthropic"
	"github.com/sells-group/prospect-cli/pkg/anthropic/mocks"
)

func acme() *model.BusinessRecord {
	return &model.BusinessRecord{
		ID: "places-1", Name: "Acme Corp", Type: model.TypeCorporateOffice,
		Address: "1 Main St", City: "Denver", State: "CO", Phone: "303-555-0101",
		EmployeeCount: 150, HasConferenceRoom: true, BureauAccredited: true, BureauRating: "A+",
		BaseScore: 72,
	}
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, OutputTokens: 50},
	}
}

func TestLocal_AnalyzeBusiness(t *testing.T) {
	in, err := NewLocal().AnalyzeBusiness(context.Background(), acme())
	require.NoError(t, err)

	assert.Equal(t, NameLocal, in.Engine)
	assert.Equal(t, "Acme Corp is a large corporate office in Denver with a base potential of 72.", in.Summary)
	assert.Contains(t, in.Highlights, "About 150 people on site")
	assert.Contains(t, in.Highlights, "Bureau accredited (A+)")
	assert.Equal(t, "Offer a recurring meeting lunch program", in.RecommendedActions[0])
	assert.Contains(t, in.RecommendedActions, "Reach the office manager at 303-555-0101")
	assert.Equal(t, "Conference room suggests catered meetings", in.MatchReason)
	assert.InDelta(t, 0.6, in.Confidence, 1e-9)
}

func TestLocal_AnalyzeBusiness_Sparse(t *testing.T) {
	in, err := NewLocal().AnalyzeBusiness(context.Background(), &model.BusinessRecord{Name: "Mystery", Type: model.TypeUnknown})
	require.NoError(t, err)
	assert.Contains(t, in.Summary, "unsized unknown in the search area")
	assert.Empty(t, in.Highlights)
	assert.Contains(t, in.RecommendedActions, "Find a contact before outreach")
	assert.Contains(t, in.RecommendedActions, "Confirm the street address")
	assert.InDelta(t, 0.4, in.Confidence, 1e-9)

	_, err = NewLocal().AnalyzeBusiness(context.Background(), nil)
	assert.Error(t, err)
}

func TestLocal_Deterministic(t *testing.T) {
	a, _ := NewLocal().AnalyzeBusiness(context.Background(), acme())
	b, _ := NewLocal().AnalyzeBusiness(context.Background(), acme())
	assert.Equal(t, a, b)
}

func TestLocal_AnalyzeMarket(t *testing.T) {
	areas := []*model.AreaRecord{
		{Name: "Denver 80202", Population: 12000, Workforce: 30000, BusinessCount: 800, MedianIncome: 90000, MarketPotential: 70},
		{Name: "Denver 80205", Population: 8000, Workforce: 5000, BusinessCount: 200, MedianIncome: 70000, MarketPotential: 50},
	}
	hotel := &model.BusinessRecord{Name: "Grand", Type: model.TypeHotelHospitality, HasEventSpace: true, BaseScore: 40}
	m, err := NewLocal().AnalyzeMarket(context.Background(), areas, []*model.BusinessRecord{acme(), hotel})
	require.NoError(t, err)

	assert.Equal(t, "2 areas with 20000 residents, a workforce of 35000 and 1000 businesses; average market potential 60. "+
		"2 prospects, 1 high potential, 2 with meeting or event space.", m.OverallAnalysis)
	assert.Equal(t, "Focus outreach on corporate office and hotel & hospitality", m.Recommendations[0])
	assert.Contains(t, m.Opportunities, "Dense business market supports recurring delivery routes")
	assert.Contains(t, m.Opportunities, "Affluent area supports premium menus")
	assert.Empty(t, m.Risks)
}

func TestLocal_AnalyzeMarket_Empty(t *testing.T) {
	m, err := NewLocal().AnalyzeMarket(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "No market data available for this search.", m.OverallAnalysis)
	assert.Contains(t, m.Risks, "No businesses found to validate demand")
}

func TestLocal_GenerateSearchSummary(t *testing.T) {
	rs := model.NewResultSet(model.DefaultQuery("Denver, CO"))
	rs.Items = []*model.ResultItem{model.NewBusinessItem(acme())}
	s, err := NewLocal().GenerateSearchSummary(context.Background(), rs)
	require.NoError(t, err)
	assert.Equal(t, "1 prospects, 1 high potential, 1 with meeting or event space. Focus outreach on corporate office.", s)

	_, err = NewLocal().GenerateSearchSummary(context.Background(), nil)
	assert.Error(t, err)
}

func TestClaude_AnalyzeBusiness(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "claude-test" && req.MaxTokens == 300 &&
			len(req.System) == 1 && req.System[0].CacheControl != nil &&
			len(req.Messages) == 1 && req.Messages[0].Role == "user"
	})).Return(textResponse("Here you go:\n```json\n"+
		`{"summary":"Strong lunch prospect","highlights":["150 staff"],"recommended_actions":["Call"],"match_reason":"Big office","confidence":1.4}`+
		"\n```"), nil).Once()

	mem := cache.NewMemory()
	e := NewClaude(client, WithModel("claude-test"), WithMaxTokens(300), WithCache(mem))
	before := testutil.ToFloat64(RequestsTotal.WithLabelValues("analyze_business", "cache_hit"))

	in, err := e.AnalyzeBusiness(context.Background(), acme())
	require.NoError(t, err)
	assert.Equal(t, "Strong lunch prospect", in.Summary)
	assert.Equal(t, []string{"150 staff"}, in.Highlights)
	assert.Equal(t, "Big office", in.MatchReason)
	assert.InDelta(t, 1.0, in.Confidence, 1e-9)
	assert.Equal(t, NameClaude, in.Engine)

	// identical prompt is served from the cache; Once() fails the mock on a second call
	again, err := e.AnalyzeBusiness(context.Background(), acme())
	require.NoError(t, err)
	assert.Equal(t, in.Summary, again.Summary)
	assert.Equal(t, 1, mem.Len())
	assert.InDelta(t, before+1, testutil.ToFloat64(RequestsTotal.WithLabelValues("analyze_business", "cache_hit")), 1e-9)
}

func TestClaude_CacheExpires(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(`{"summary":"ok"}`), nil).Twice()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mem := cache.NewMemory(cache.WithClock(func() time.Time { return now }))
	e := NewClaude(client, WithCacheTTL(time.Minute), WithCache(mem))

	_, err := e.GenerateSearchSummary(context.Background(), model.NewResultSet(model.DefaultQuery("Denver")))
	require.NoError(t, err)
	now = now.Add(2 * time.Minute)
	s, err := e.GenerateSearchSummary(context.Background(), model.NewResultSet(model.DefaultQuery("Denver")))
	require.NoError(t, err)
	assert.Equal(t, "ok", s)
}

func TestClaude_RedisCacheSharedAcrossEngines(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	client := mocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(`{"summary":"Shared answer"}`), nil).Once()

	rs := model.NewResultSet(model.DefaultQuery("Denver"))
	first := NewClaude(client, WithCache(cache.NewRedis(rdb, "prospect:insight:")))
	s, err := first.GenerateSearchSummary(context.Background(), rs)
	require.NoError(t, err)
	assert.Equal(t, "Shared answer", s)
	assert.Len(t, mr.Keys(), 1)

	// a second process with the same Redis answers without calling Claude
	second := NewClaude(client, WithCache(cache.NewRedis(rdb, "prospect:insight:")))
	s, err = second.GenerateSearchSummary(context.Background(), rs)
	require.NoError(t, err)
	assert.Equal(t, "Shared answer", s)
}

func TestClaude_Errors(t *testing.T) {
	tests := []struct {
		name string
		resp *anthropic.MessageResponse
		err  error
		want string
	}{
		{"api error", nil, errors.New("529 overloaded"), "insight: analyze_business"},
		{"no json", textResponse("I cannot help with that."), nil, "no JSON"},
		{"bad json", textResponse(`{"summary": }`), nil, "parse analyze_business response"},
		{"empty summary", textResponse(`{"highlights":[]}`), nil, "no summary"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := mocks.NewMockClient(t)
			client.On("CreateMessage", mock.Anything, mock.Anything).Return(tt.resp, tt.err).Once()

			mem := cache.NewMemory()
			e := NewClaude(client, WithCache(mem))
			_, err := e.AnalyzeBusiness(context.Background(), acme())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, 0, mem.Len())
		})
	}
}

func TestClaude_AnalyzeMarket(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return len(req.Messages) == 1 && len(req.Messages[0].Content) > 0
	})).Return(textResponse(`{"overall_analysis":"Busy downtown","recommendations":["Target law firms"],"opportunities":[],"risks":["Competition"]}`), nil).Once()

	m, err := NewClaude(client).AnalyzeMarket(context.Background(),
		[]*model.AreaRecord{{Name: "Denver 80202", Population: 1000}}, []*model.BusinessRecord{acme()})
	require.NoError(t, err)
	assert.Equal(t, "Busy downtown", m.OverallAnalysis)
	assert.Equal(t, []string{"Competition"}, m.Risks)
	assert.Equal(t, NameClaude, m.Engine)
}

func TestFallback_UsesLocalOnFailure(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("unauthorized"))

	e := NewFallback(NewClaude(client), NewLocal())
	assert.Equal(t, NameClaude, e.Name())

	in, err := e.AnalyzeBusiness(context.Background(), acme())
	require.NoError(t, err)
	assert.Equal(t, NameLocal, in.Engine)

	m, err := e.AnalyzeMarket(context.Background(), nil, []*model.BusinessRecord{acme()})
	require.NoError(t, err)
	assert.Equal(t, NameLocal, m.Engine)

	s, err := e.GenerateSearchSummary(context.Background(), model.NewResultSet(model.DefaultQuery("Denver")))
	require.NoError(t, err)
	assert.NotEmpty(t, s)
}

func TestFallback_DoesNotMaskCancellation(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, context.Canceled)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFallback(NewClaude(client), NewLocal()).AnalyzeBusiness(ctx, acme())
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	assert.IsType(t, &LocalEngine{}, New(config.InsightConfig{Provider: "local"}, nil))
	assert.IsType(t, &LocalEngine{}, New(config.InsightConfig{Provider: "claude"}, nil))

	e := New(config.InsightConfig{Provider: "claude", Model: "m", MaxTokens: 10, CacheTTLMinutes: 5}, mocks.NewMockClient(t))
	fb, ok := e.(*FallbackEngine)
	require.True(t, ok)
	claude, ok := fb.primary.(*ClaudeEngine)
	require.True(t, ok)
	assert.Equal(t, "m", claude.model)
	assert.Equal(t, int64(10), claude.maxTokens)
	assert.Equal(t, 5*time.Minute, claude.ttl)

	withKey := New(config.InsightConfig{Provider: "claude", AnthropicKey: "sk-test"}, nil)
	assert.Equal(t, NameClaude, withKey.Name())
}

type countingEngine struct {
	*LocalEngine
	inflight atomic.Int32
	peak     atomic.Int32
	failFor  string
}

func (c *countingEngine) AnalyzeBusiness(ctx context.Context, b *model.BusinessRecord) (*BusinessInsight, error) {
	n := c.inflight.Add(1)
	defer c.inflight.Add(-1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	if b.Name == c.failFor {
		return nil, errors.New("boom")
	}
	return c.LocalEngine.AnalyzeBusiness(ctx, b)
}

func TestAnalyzeTop(t *testing.T) {
	rs := model.NewResultSet(model.DefaultQuery("Denver"))
	rs.Items = append(rs.Items, model.NewAreaItem(&model.AreaRecord{Name: "Denver 80202"}))
	for _, name := range []string{"A", "B", "C", "D", "E", "F"} {
		rs.Items = append(rs.Items, model.NewBusinessItem(&model.BusinessRecord{Name: name, Type: model.TypeLawFirm}))
	}
	eng := &countingEngine{LocalEngine: NewLocal(), failFor: "B"}

	n, err := AnalyzeTop(context.Background(), eng, rs, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.LessOrEqual(t, eng.peak.Load(), int32(2))

	assert.NotEmpty(t, rs.Items[1].Business.Summary)
	assert.Empty(t, rs.Items[2].Business.Summary, "failed analysis leaves the record untouched")
	assert.NotEmpty(t, rs.Items[4].Business.Summary)
	assert.Empty(t, rs.Items[5].Business.Summary, "only the top n businesses are analyzed")
	assert.Equal(t, "Nearby law firm", rs.Items[1].MatchReason)
}

func TestAnalyzeTop_Cancelled(t *testing.T) {
	rs := model.NewResultSet(model.DefaultQuery("Denver"))
	rs.Items = []*model.ResultItem{model.NewBusinessItem(acme())}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := AnalyzeTop(ctx, NewLocal(), rs, 5, 2)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rs.Items[0].Business.Summary)

	n, err := AnalyzeTop(context.Background(), NewLocal(), nil, 5, 2)
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestExtractJSON(t *testing.T) {
	got, err := extractJSON("sure! {\"a\": {\"b\": 1}} thanks")
	require.NoError(t, err)
	assert.Equal(t, `{"a": {"b": 1}}`, got)

	_, err = extractJSON("} backwards {")
	assert.Error(t, err)
}
