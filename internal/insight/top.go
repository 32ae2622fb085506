package insight

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/prospect-cli/internal/model"
)

// AnalyzeTop analyzes the first n business items of rs (already ranked) with at most
// concurrency calls in flight, and applies the results to the items. An item whose analysis
// fails keeps its fields and is logged; only cancellation aborts the batch. It returns the
// number of items analyzed.
func AnalyzeTop(ctx context.Context, engine Engine, rs *model.ResultSet, n, concurrency int) (int, error) {
	if rs == nil || n <= 0 {
		return 0, nil
	}
	if concurrency < 1 {
		concurrency = 1
	}

	var targets []*model.ResultItem
	for _, it := range rs.Items {
		if len(targets) == n {
			break
		}
		if it.Kind == model.KindBusiness && it.Business != nil {
			targets = append(targets, it)
		}
	}

	results := make([]*BusinessInsight, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, it := range targets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			in, err := engine.AnalyzeBusiness(gctx, it.Business)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				zap.L().Warn("insight: business analysis failed",
					zap.String("business", it.Business.Name), zap.Error(err))
				return nil
			}
			results[i] = in
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, eris.Wrap(err, "insight: analyze top")
	}

	analyzed := 0
	for i, in := range results {
		if in != nil {
			Apply(targets[i], in)
			analyzed++
		}
	}
	return analyzed, nil
}
