package compute

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/daviszhen/groupby/pkg/chunk"
	"github.com/daviszhen/groupby/pkg/util"
)

// AggregateParallel feeds every stream into one shared state. The
// first failure cancels the others and the state is discarded.
func (agg *Aggregator[K]) AggregateParallel(
	ctx context.Context,
	groupCols []string,
	streams []chunk.BlockStream,
) (*GroupState[K], error) {
	state := agg.NewGroupState()
	wg, wctx := errgroup.WithContext(ctx)
	for i, stream := range streams {
		i, stream := i, stream
		wg.Go(func() error {
			err := agg.AggregateInto(wctx, state, groupCols, stream)
			if err != nil && !errors.Is(err, ErrDiscarded) && !errors.Is(err, context.Canceled) {
				util.Warn("aggregate worker failed",
					zap.Int("worker", i),
					zap.Error(err))
			}
			return err
		})
	}
	if err := wg.Wait(); err != nil {
		state.Discard(err)
		return nil, err
	}
	return state, nil
}
