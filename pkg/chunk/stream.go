package chunk

import (
	"context"
	"io"
)

// BlockStream is an ordered finite sequence of batches that is
// consumed once. Next returns io.EOF after the last batch.
type BlockStream interface {
	Next(ctx context.Context) (*Chunk, error)
}

type StreamFunc func(ctx context.Context) (*Chunk, error)

func (fn StreamFunc) Next(ctx context.Context) (*Chunk, error) {
	return fn(ctx)
}

type sliceStream struct {
	chunks []*Chunk
	idx    int
}

func NewSliceStream(chunks ...*Chunk) BlockStream {
	return &sliceStream{chunks: chunks}
}

func (s *sliceStream) Next(ctx context.Context) (*Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.idx >= len(s.chunks) {
		return nil, io.EOF
	}
	c := s.chunks[s.idx]
	s.chunks[s.idx] = nil
	s.idx++
	return c, nil
}

type Block struct {
	Chunk *Chunk
	Err   error
}

type chanStream struct {
	ch <-chan Block
}

// NewChanStream reads batches from ch until it is closed. A Block
// carrying an error ends the stream with that error.
func NewChanStream(ch <-chan Block) BlockStream {
	return &chanStream{ch: ch}
}

func (s *chanStream) Next(ctx context.Context) (*Chunk, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case blk, ok := <-s.ch:
		if !ok {
			return nil, io.EOF
		}
		if blk.Err != nil {
			return nil, blk.Err
		}
		return blk.Chunk, nil
	}
}

// Collect drains stream.
func Collect(ctx context.Context, stream BlockStream) ([]*Chunk, error) {
	var ret []*Chunk
	for {
		c, err := stream.Next(ctx)
		if err == io.EOF {
			return ret, nil
		}
		if err != nil {
			return nil, err
		}
		ret = append(ret, c)
	}
}
