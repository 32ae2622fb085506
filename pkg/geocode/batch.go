package geocode

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// BatchProgress is reported after each address in a batch finishes.
type BatchProgress struct {
	Completed int
	Total     int
	Address   string
	Location  *Location
}

// BatchResult aggregates a batch. Locations is in input order.
type BatchResult struct {
	Locations []*Location
	Succeeded int
	Failed    int
	Duration  time.Duration
}

type batchItem struct {
	index int
	loc   *Location
	err   error
}

// BatchGeocode resolves every address, one pool task per address, and returns when all have
// finished. onProgress (optional) is called from the calling goroutine in completion order.
// An address the pool rejects counts as failed. The error is non-nil only when ctx is done.
func (s *Service) BatchGeocode(ctx context.Context, addrs []string, onProgress func(BatchProgress)) (*BatchResult, error) {
	start := time.Now()
	res := &BatchResult{Locations: make([]*Location, len(addrs))}
	if len(addrs) == 0 {
		return res, nil
	}

	done := make(chan batchItem, len(addrs))
	for i, addr := range addrs {
		item := batchItem{index: i, loc: InvalidLocation(addr)}
		job := func() {
			defer func() { done <- item }()
			loc, err := s.Geocode(ctx, addr)
			if loc != nil {
				item.loc = loc
			}
			item.err = err
		}

		if s.pool == nil {
			job()
			continue
		}
		if err := s.pool.Execute(job); err != nil {
			s.log.Warn("batch geocode task rejected", zap.String("address", addr), zap.Error(err))
			item.err = err
			done <- item
		}
	}

	for n := 1; n <= len(addrs); n++ {
		item := <-done
		res.Locations[item.index] = item.loc
		if item.loc.Valid {
			res.Succeeded++
		} else {
			res.Failed++
		}
		if onProgress != nil {
			onProgress(BatchProgress{
				Completed: n,
				Total:     len(addrs),
				Address:   addrs[item.index],
				Location:  item.loc,
			})
		}
	}

	res.Duration = time.Since(start)
	s.log.Info("batch geocode complete",
		zap.Int("total", len(addrs)),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed),
		zap.Duration("duration", res.Duration),
	)
	return res, ctx.Err()
}
