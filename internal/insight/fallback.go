package insight

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/model"
)

// FallbackEngine tries primary and answers from secondary when it fails.
type FallbackEngine struct {
	primary   Engine
	secondary Engine
	log       *zap.Logger
}

// NewFallback wraps primary with secondary.
func NewFallback(primary, secondary Engine) *FallbackEngine {
	return &FallbackEngine{
		primary:   primary,
		secondary: secondary,
		log:       zap.L().With(zap.String("component", "insight")),
	}
}

// Name reports the primary engine.
func (f *FallbackEngine) Name() string { return f.primary.Name() }

// AnalyzeBusiness implements Engine.
func (f *FallbackEngine) AnalyzeBusiness(ctx context.Context, b *model.BusinessRecord) (*BusinessInsight, error) {
	out, err := f.primary.AnalyzeBusiness(ctx, b)
	if err == nil {
		return out, nil
	}
	if b == nil || ctx.Err() != nil {
		return nil, err
	}
	f.warn("analyze_business", err)
	return f.secondary.AnalyzeBusiness(ctx, b)
}

// AnalyzeMarket implements Engine.
func (f *FallbackEngine) AnalyzeMarket(ctx context.Context, areas []*model.AreaRecord, businesses []*model.BusinessRecord) (*MarketInsight, error) {
	out, err := f.primary.AnalyzeMarket(ctx, areas, businesses)
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	f.warn("analyze_market", err)
	return f.secondary.AnalyzeMarket(ctx, areas, businesses)
}

// GenerateSearchSummary implements Engine.
func (f *FallbackEngine) GenerateSearchSummary(ctx context.Context, rs *model.ResultSet) (string, error) {
	out, err := f.primary.GenerateSearchSummary(ctx, rs)
	if err == nil {
		return out, nil
	}
	if rs == nil || ctx.Err() != nil {
		return "", err
	}
	f.warn("search_summary", err)
	return f.secondary.GenerateSearchSummary(ctx, rs)
}

func (f *FallbackEngine) warn(op string, err error) {
	f.log.Warn("insight failed, using fallback",
		zap.String("engine", f.primary.Name()),
		zap.String("fallback", f.secondary.Name()),
		zap.String("operation", op),
		zap.Error(err),
	)
}
