package insight

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/cache"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/pkg/anthropic"
)

// DefaultCacheTTL is how long a prompt's response is reused.
const DefaultCacheTTL = time.Hour

const defaultMaxTokens = 1024

// RequestsTotal counts Claude insight calls by operation and outcome (ok, cache_hit, error).
var RequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "prospect_insight_requests_total",
		Help: "Claude insight requests by operation and outcome",
	},
	[]string{"operation", "outcome"},
)

const systemPrompt = `You are a sales analyst for a corporate catering business. You evaluate ` +
	`nearby businesses and markets as catering prospects. Answer with a single JSON object and no ` +
	`other text. Be concrete and brief.`

// ClaudeOption configures a ClaudeEngine.
type ClaudeOption func(*ClaudeEngine)

// WithModel sets the model id.
func WithModel(m string) ClaudeOption { return func(e *ClaudeEngine) { e.model = m } }

// WithMaxTokens sets the response token limit.
func WithMaxTokens(n int64) ClaudeOption { return func(e *ClaudeEngine) { e.maxTokens = n } }

// WithCacheTTL sets the response cache TTL. Non-positive values keep the default.
func WithCacheTTL(d time.Duration) ClaudeOption {
	return func(e *ClaudeEngine) {
		if d > 0 {
			e.ttl = d
		}
	}
}

// WithCache sets where responses are kept, e.g. a Redis cache shared across processes.
// The default is an in-process cache.
func WithCache(c cache.Cache) ClaudeOption {
	return func(e *ClaudeEngine) {
		if c != nil {
			e.cache = c
		}
	}
}

// ClaudeEngine asks Claude for insights and caches responses by prompt.
type ClaudeEngine struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	cache     cache.Cache
	ttl       time.Duration
	log       *zap.Logger
}

// NewClaude creates a Claude-backed engine.
func NewClaude(client anthropic.Client, opts ...ClaudeOption) *ClaudeEngine {
	e := &ClaudeEngine{
		client:    client,
		model:     anthropic.DefaultModel,
		maxTokens: defaultMaxTokens,
		cache:     cache.NewMemory(),
		ttl:       DefaultCacheTTL,
		log:       zap.L().With(zap.String("component", "insight.claude")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements Engine.
func (*ClaudeEngine) Name() string { return NameClaude }

// AnalyzeBusiness implements Engine.
func (e *ClaudeEngine) AnalyzeBusiness(ctx context.Context, b *model.BusinessRecord) (*BusinessInsight, error) {
	if b == nil {
		return nil, eris.New("insight: nil business")
	}
	var out BusinessInsight
	if err := e.complete(ctx, "analyze_business", businessPrompt(b), &out); err != nil {
		return nil, err
	}
	out.Confidence = clampUnit(out.Confidence)
	out.Engine = NameClaude
	return &out, nil
}

// AnalyzeMarket implements Engine.
func (e *ClaudeEngine) AnalyzeMarket(ctx context.Context, areas []*model.AreaRecord, businesses []*model.BusinessRecord) (*MarketInsight, error) {
	var out MarketInsight
	if err := e.complete(ctx, "analyze_market", marketPrompt(areas, businesses), &out); err != nil {
		return nil, err
	}
	out.Engine = NameClaude
	return &out, nil
}

// GenerateSearchSummary implements Engine.
func (e *ClaudeEngine) GenerateSearchSummary(ctx context.Context, rs *model.ResultSet) (string, error) {
	if rs == nil {
		return "", eris.New("insight: nil result set")
	}
	var out summaryReply
	if err := e.complete(ctx, "search_summary", summaryPrompt(rs), &out); err != nil {
		return "", err
	}
	return out.Summary, nil
}

// reply is a decoded Claude answer that can reject itself before it is cached.
type reply interface {
	check() error
}

type summaryReply struct {
	Summary string `json:"summary"`
}

func (r *summaryReply) check() error {
	if strings.TrimSpace(r.Summary) == "" {
		return eris.New("insight: claude returned no summary")
	}
	return nil
}

func (b *BusinessInsight) check() error {
	if strings.TrimSpace(b.Summary) == "" {
		return eris.New("insight: claude returned no summary")
	}
	return nil
}

func (m *MarketInsight) check() error {
	if strings.TrimSpace(m.OverallAnalysis) == "" {
		return eris.New("insight: claude returned no analysis")
	}
	return nil
}

// complete sends prompt (or reuses a cached answer) and decodes the JSON object in the reply.
func (e *ClaudeEngine) complete(ctx context.Context, op, prompt string, dst reply) error {
	key := cacheKey(e.model, prompt)
	var text string
	cached, ok := e.cache.Get(ctx, key)
	if ok {
		text = string(cached)
		RequestsTotal.WithLabelValues(op, "cache_hit").Inc()
	} else {
		resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     e.model,
			MaxTokens: e.maxTokens,
			System:    anthropic.CachedSystem(systemPrompt, "1h"),
			Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
		})
		if err != nil {
			RequestsTotal.WithLabelValues(op, "error").Inc()
			return eris.Wrapf(err, "insight: %s", op)
		}
		resp.Usage.LogCost(e.model, op)
		text = resp.Text()
	}

	raw, err := extractJSON(text)
	if err != nil {
		RequestsTotal.WithLabelValues(op, "error").Inc()
		e.log.Debug("unparseable claude response", zap.String("operation", op), zap.String("text", text))
		return err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		RequestsTotal.WithLabelValues(op, "error").Inc()
		return eris.Wrapf(err, "insight: parse %s response", op)
	}
	if err := dst.check(); err != nil {
		RequestsTotal.WithLabelValues(op, "error").Inc()
		return err
	}
	if !ok {
		e.cache.Set(ctx, key, []byte(text), e.ttl)
		RequestsTotal.WithLabelValues(op, "ok").Inc()
	}
	return nil
}

func cacheKey(modelID, prompt string) string {
	sum := sha256.Sum256([]byte(modelID + "\x00" + prompt))
	return hex.EncodeToString(sum[:])
}

// extractJSON returns the outermost {...} in text. Replies may wrap it in prose or fences.
func extractJSON(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", eris.Errorf("insight: no JSON in response: %.80q", text)
	}
	return text[start : end+1], nil
}

func clampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func businessPrompt(b *model.BusinessRecord) string {
	var sb strings.Builder
	sb.WriteString("Assess this business as a catering prospect.\n\n")
	fmt.Fprintf(&sb, "Name: %s\nType: %s\n", b.Name, b.Type.Label())
	if addr := b.FullAddress(); addr != "" {
		fmt.Fprintf(&sb, "Address: %s\n", addr)
	}
	if emp := b.EffectiveEmployees(); emp > 0 {
		fmt.Fprintf(&sb, "Employees on site: %d\n", emp)
	}
	if b.Rating > 0 {
		fmt.Fprintf(&sb, "Rating: %.1f (%d reviews)\n", b.Rating, b.ReviewCount)
	}
	if b.BureauRating != "" {
		fmt.Fprintf(&sb, "Bureau rating: %s, accredited: %t\n", b.BureauRating, b.BureauAccredited)
	}
	fmt.Fprintf(&sb, "Conference room: %t\nEvent space: %t\nRegular meetings: %t\n",
		b.HasConferenceRoom, b.HasEventSpace, b.RegularMeetings)
	fmt.Fprintf(&sb, "Base potential: %d/100\n\n", b.BaseScore)
	sb.WriteString(`Respond with {"summary": string, "highlights": [string], "recommended_actions": [string], ` +
		`"match_reason": string, "confidence": number between 0 and 1}.`)
	return sb.String()
}

func marketPrompt(areas []*model.AreaRecord, businesses []*model.BusinessRecord) string {
	var sb strings.Builder
	sb.WriteString("Assess this market for corporate catering.\n\nAreas:\n")
	for _, a := range areas {
		fmt.Fprintf(&sb, "- %s: population %d, workforce %d, businesses %d, median income %d, potential %d\n",
			a.Name, a.Population, a.Workforce, a.BusinessCount, a.MedianIncome, a.MarketPotential)
	}
	sb.WriteString("\nProspects:\n")
	for _, b := range businesses {
		fmt.Fprintf(&sb, "- %s (%s), %d employees, potential %d\n", b.Name, b.Type.Label(), b.EffectiveEmployees(), b.BaseScore)
	}
	sb.WriteString(`
Respond with {"overall_analysis": string, "recommendations": [string], "opportunities": [string], "risks": [string]}.`)
	return sb.String()
}

func summaryPrompt(rs *model.ResultSet) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Summarize this catering prospect search near %s in two or three sentences.\n\n", rs.Anchor.Label)
	for i, it := range rs.Items {
		if i == 20 {
			break
		}
		fmt.Fprintf(&sb, "%d. %s, score %d, %.1f mi, %s\n", i+1, it.Name(), it.OverallScore, it.DistanceMiles, it.MatchReason)
	}
	if len(rs.SourceErrors) > 0 {
		fmt.Fprintf(&sb, "\n%d data sources failed; mention partial coverage.\n", len(rs.SourceErrors))
	}
	sb.WriteString(`
Respond with {"summary": string}.`)
	return sb.String()
}
