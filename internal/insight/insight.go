// Package insight produces plain-language analysis of prospects and markets, either through
// Claude or from local templates.
package insight

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/pkg/anthropic"
)

// Engine names.
const (
	NameLocal  = "local"
	NameClaude = "claude"
)

// BusinessInsight is the analysis of one business.
type BusinessInsight struct {
	Summary            string   `json:"summary"`
	Highlights         []string `json:"highlights"`
	RecommendedActions []string `json:"recommended_actions"`
	MatchReason        string   `json:"match_reason"`
	Confidence         float64  `json:"confidence"`
	Engine             string   `json:"engine"`
}

// MarketInsight is the analysis of a search area.
type MarketInsight struct {
	OverallAnalysis string   `json:"overall_analysis"`
	Recommendations []string `json:"recommendations"`
	Opportunities   []string `json:"opportunities"`
	Risks           []string `json:"risks"`
	Engine          string   `json:"engine"`
}

// Engine generates insights.
type Engine interface {
	Name() string
	AnalyzeBusiness(ctx context.Context, b *model.BusinessRecord) (*BusinessInsight, error)
	AnalyzeMarket(ctx context.Context, areas []*model.AreaRecord, businesses []*model.BusinessRecord) (*MarketInsight, error)
	GenerateSearchSummary(ctx context.Context, rs *model.ResultSet) (string, error)
}

// New builds the engine cfg asks for. Claude without an API key or client falls back to the
// local engine; a configured Claude engine is always wrapped so failures fall back to local.
// opts are applied to the Claude engine after the ones derived from cfg.
func New(cfg config.InsightConfig, client anthropic.Client, opts ...ClaudeOption) Engine {
	local := NewLocal()
	if cfg.Provider != NameClaude {
		return local
	}
	if client == nil {
		if cfg.AnthropicKey == "" {
			zap.L().Warn("insight: claude selected without an API key, using local engine")
			return local
		}
		client = anthropic.NewClient(cfg.AnthropicKey)
	}

	base := []ClaudeOption{WithCacheTTL(time.Duration(cfg.CacheTTLMinutes) * time.Minute)}
	if cfg.Model != "" {
		base = append(base, WithModel(cfg.Model))
	}
	if cfg.MaxTokens > 0 {
		base = append(base, WithMaxTokens(int64(cfg.MaxTokens)))
	}
	return NewFallback(NewClaude(client, append(base, opts...)...), local)
}

// Apply copies a business insight onto the record and its result item.
func Apply(it *model.ResultItem, in *BusinessInsight) {
	if it == nil || it.Business == nil || in == nil {
		return
	}
	it.Business.Summary = in.Summary
	it.Business.Highlights = append([]string(nil), in.Highlights...)
	it.Business.RecommendedActions = append([]string(nil), in.RecommendedActions...)
	if in.MatchReason != "" {
		it.MatchReason = in.MatchReason
	}
}
