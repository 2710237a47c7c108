package runner

import (
	"context"
	"io"

	"github.com/daviszhen/groupby/pkg/chunk"
)

// Fanout spreads the blocks of stream over n streams round robin. The
// blocks are pulled by one goroutine, an upstream error goes to the
// stream the next block would have gone to. wait returns after the
// goroutine stopped reading stream.
func Fanout(ctx context.Context, stream chunk.BlockStream, n int) (streams []chunk.BlockStream, wait func()) {
	if n <= 1 {
		return []chunk.BlockStream{stream}, func() {}
	}
	chans := make([]chan chunk.Block, n)
	ret := make([]chunk.BlockStream, n)
	for i := range chans {
		chans[i] = make(chan chunk.Block, 1)
		ret[i] = chunk.NewChanStream(chans[i])
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			for _, ch := range chans {
				close(ch)
			}
		}()
		for i := 0; ; i = (i + 1) % n {
			blk, err := stream.Next(ctx)
			if err == io.EOF {
				return
			}
			select {
			case chans[i] <- chunk.Block{Chunk: blk, Err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return ret, func() { <-done }
}
