// Copyright 2023-2024 daviszhen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package compute

import (
	"context"
	"io"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/petermattis/goid"
	"go.uber.org/zap"

	"github.com/daviszhen/groupby/pkg/arena"
	"github.com/daviszhen/groupby/pkg/chunk"
	"github.com/daviszhen/groupby/pkg/function"
	"github.com/daviszhen/groupby/pkg/hashtable"
	"github.com/daviszhen/groupby/pkg/util"
)

// GroupState is the table of one aggregation stage and the arena
// holding its states. Several callers may feed it, one block at a
// time each.
type GroupState[K any] struct {
	_lock      sync.RWMutex
	_table     hashtable.GroupHashTable[K]
	_arena     *arena.Arena
	_discarded bool
	_cause     error
	_blocks    int
	_rows      int
}

func (gs *GroupState[K]) Len() int {
	gs._lock.RLock()
	defer gs._lock.RUnlock()
	if gs._discarded {
		return 0
	}
	return gs._table.Len()
}

func (gs *GroupState[K]) Blocks() int {
	gs._lock.RLock()
	defer gs._lock.RUnlock()
	return gs._blocks
}

func (gs *GroupState[K]) Rows() int {
	gs._lock.RLock()
	defer gs._lock.RUnlock()
	return gs._rows
}

func (gs *GroupState[K]) Arena() *arena.Arena {
	return gs._arena
}

// Discard drops the table and the arena together. The first cause is
// kept and reported by later calls.
func (gs *GroupState[K]) Discard(cause error) {
	gs._lock.Lock()
	defer gs._lock.Unlock()
	gs.discardLocked(cause)
}

func (gs *GroupState[K]) discardLocked(cause error) {
	if gs._discarded {
		return
	}
	gs._discarded = true
	gs._cause = cause
	gs._table = nil
	gs._arena.Release()
}

func (gs *GroupState[K]) Discarded() bool {
	gs._lock.RLock()
	defer gs._lock.RUnlock()
	return gs._discarded
}

// Release frees the state after finalize.
func (gs *GroupState[K]) Release() {
	gs.Discard(nil)
}

func (gs *GroupState[K]) discardedError() error {
	if gs._cause == nil {
		return ErrDiscarded
	}
	return errors.Mark(errors.Wrap(gs._cause, "group state discarded"), ErrDiscarded)
}

// Aggregator groups blocks by the keys of HashMethod K and keeps one
// block of function states per group.
type Aggregator[K any] struct {
	_method  HashMethod[K]
	_params  *AggregatorParams
	_layout  arena.Layout
	_offsets []int
	_opts    util.AggregatorOptions
}

// NewAggregator binds exprs to schema and computes the state layout.
func NewAggregator[K any](
	method HashMethod[K],
	exprs []function.AggrExpr,
	schema *chunk.Schema,
	opts *util.AggregatorOptions,
) (*Aggregator[K], error) {
	if method == nil {
		return nil, configError("aggregator needs a hash method")
	}
	params, err := NewAggregatorParams(schema, exprs)
	if err != nil {
		return nil, err
	}
	cfg := util.DefaultConfig()
	if opts != nil {
		cfg.Aggregator = *opts
		cfg.Fill()
	}
	layouts := make([]arena.Layout, len(params.Funcs))
	for i, fun := range params.Funcs {
		layouts[i] = fun.StateLayout()
	}
	layout, offsets := arena.GetLayoutOffsets(layouts)
	agg := &Aggregator[K]{
		_method:  method,
		_params:  params,
		_layout:  layout,
		_offsets: offsets,
		_opts:    cfg.Aggregator,
	}
	util.Debug("create aggregator",
		zap.String("method", method.Name()),
		zap.Int("functions", len(params.Funcs)),
		zap.Int("stateSize", layout.Size),
		zap.Int("stateAlign", layout.Align))
	return agg, nil
}

func (agg *Aggregator[K]) Params() *AggregatorParams {
	return agg._params
}

func (agg *Aggregator[K]) Layout() arena.Layout {
	return agg._layout
}

func (agg *Aggregator[K]) Offsets() []int {
	return util.CopyTo(agg._offsets)
}

func (agg *Aggregator[K]) Method() HashMethod[K] {
	return agg._method
}

func (agg *Aggregator[K]) NewGroupState() *GroupState[K] {
	return &GroupState[K]{
		_table: agg._method.NewTable(agg._opts.InitialCapacity),
		_arena: arena.NewArena(agg._opts.ArenaChunkSize, agg._opts.VerifyStates),
	}
}

// Aggregate consumes stream into a new group state. On failure the
// state is discarded and only the error is returned.
func (agg *Aggregator[K]) Aggregate(ctx context.Context, groupCols []string, stream chunk.BlockStream) (*GroupState[K], error) {
	state := agg.NewGroupState()
	if err := agg.AggregateInto(ctx, state, groupCols, stream); err != nil {
		return nil, err
	}
	return state, nil
}

// AggregateInto consumes stream into a shared state. Any error
// discards the state for every caller.
func (agg *Aggregator[K]) AggregateInto(
	ctx context.Context,
	state *GroupState[K],
	groupCols []string,
	stream chunk.BlockStream,
) error {
	for {
		if err := ctx.Err(); err != nil {
			state.Discard(err)
			return err
		}
		blk, err := stream.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			state.Discard(err)
			return err
		}
		if err = agg.aggregateBlock(state, groupCols, blk); err != nil {
			if !errors.Is(err, ErrDiscarded) {
				state.Discard(err)
			}
			return err
		}
	}
}

// resolveColumns finds the group columns and the function arguments
// of a block by name.
func (agg *Aggregator[K]) resolveColumns(groupCols []string, blk *chunk.Chunk) ([]*chunk.Vector, [][]*chunk.Vector, error) {
	groups := make([]*chunk.Vector, len(groupCols))
	for i, name := range groupCols {
		vec, has := blk.Column(name)
		if !has {
			return nil, nil, schemaError("group column %q not in block", name)
		}
		groups[i] = vec
	}
	args := make([][]*chunk.Vector, len(agg._params.Funcs))
	for i, names := range agg._params.Args {
		args[i] = make([]*chunk.Vector, len(names))
		for j, name := range names {
			vec, has := blk.Column(name)
			if !has {
				return nil, nil, schemaError("argument column %q of %s not in block",
					name, agg._params.Exprs[i])
			}
			args[i][j] = vec
		}
	}
	return groups, args, nil
}

func (agg *Aggregator[K]) aggregateBlock(state *GroupState[K], groupCols []string, blk *chunk.Chunk) error {
	groups, args, err := agg.resolveColumns(groupCols, blk)
	if err != nil {
		return err
	}
	rows := blk.Card()
	keys, err := agg._method.BuildKeys(groups, rows)
	if err != nil {
		return err
	}

	state._lock.Lock()
	defer state._lock.Unlock()
	if state._discarded {
		return state.discardedError()
	}

	funcs := agg._params.Funcs
	addrs := make([]arena.StateAddr, rows)
	newGroups := 0
	for i, key := range keys {
		ent, isNew := state._table.InsertOrGet(key)
		if isNew {
			newGroups++
			if len(funcs) == 0 {
				ent.SetValue(arena.NullAddr)
			} else {
				addr := state._arena.Alloc(agg._layout)
				for idx, fun := range funcs {
					fun.InitState(state._arena.Place(addr.Next(agg._offsets[idx])))
				}
				state._arena.MarkInitialized(addr)
				ent.SetValue(addr)
			}
		}
		addrs[i] = ent.Value()
	}

	if len(funcs) > 0 && agg._opts.VerifyStates {
		for _, addr := range addrs {
			if err = state._arena.CheckInitialized(addr); err != nil {
				panic(err)
			}
		}
	}

	for idx, fun := range funcs {
		err = fun.Accumulate(state._arena, addrs, agg._offsets[idx], args[idx], rows)
		if err != nil {
			state.discardLocked(err)
			return err
		}
	}
	state._blocks++
	state._rows += rows

	if util.DebugEnabled() {
		util.Debug("aggregate block",
			zap.Int64("goid", goid.Get()),
			zap.Int("rows", rows),
			zap.Int("newGroups", newGroups),
			zap.Int("groups", state._table.Len()),
			zap.Int("arenaBytes", state._arena.Allocated()))
	}
	return nil
}
