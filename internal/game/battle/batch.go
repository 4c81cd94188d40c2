package battle

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/ascension/internal/game/catalog"
)

// Request describes one battle of a batch.
type Request struct {
	TeamA []*catalog.Character
	TeamB []*catalog.Character
	Seed  string
	Opts  []Option
}

// SimulateBatch runs independent battles on up to concurrency goroutines.
// Every battle owns its own State and sequence, so results match running the
// requests one by one. Results are returned in request order.
//
// Postcondition: Returns the first error encountered, or ctx.Err() if ctx is
// cancelled before all battles have started.
func (e *Engine) SimulateBatch(ctx context.Context, reqs []Request, concurrency int) ([]*Result, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	results := make([]*Result, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, req := range reqs {
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := e.Simulate(req.TeamA, req.TeamB, req.Seed, req.Opts...)
			if err != nil {
				return fmt.Errorf("batch[%d] seed %q: %w", i, req.Seed, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
