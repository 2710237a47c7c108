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

package runner

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/daviszhen/groupby/pkg/chunk"
	"github.com/daviszhen/groupby/pkg/common"
	"github.com/daviszhen/groupby/pkg/compute"
	"github.com/daviszhen/groupby/pkg/function"
	"github.com/daviszhen/groupby/pkg/parser"
	"github.com/daviszhen/groupby/pkg/source"
	"github.com/daviszhen/groupby/pkg/util"
)

type Result struct {
	Method string
	Groups int
	//partial states and keys
	Partial *chunk.Chunk
	//final values in select list order. nil if not asked
	Final   *chunk.Chunk
	Explain string
}

type Job struct {
	Query  *parser.Query
	Schema *chunk.Schema
	//one stream per ingestion caller
	Streams []chunk.BlockStream
	Final   bool
}

// Run parses sql and aggregates the table it names.
func Run(ctx context.Context, cfg *util.Config, sql string, final bool) (*Result, error) {
	start := time.Now()
	q, err := parser.ParseQuery(sql)
	if err != nil {
		return nil, err
	}
	tabOpts, err := cfg.Table(q.Table)
	if err != nil {
		return nil, err
	}
	reader, err := source.Open(tabOpts, cfg.Aggregator.BatchSize)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	ctx, cancel := context.WithCancel(ctx)
	streams, wait := Fanout(ctx, reader, cfg.Aggregator.Parallelism)
	defer wait()
	defer cancel()
	job := &Job{
		Query:   q,
		Schema:  reader.Schema(),
		Streams: streams,
		Final:   final,
	}
	res, err := Execute(ctx, cfg, job)
	if err != nil {
		return nil, err
	}
	util.Info("query done",
		zap.String("table", q.Table),
		zap.String("method", res.Method),
		zap.Int("groups", res.Groups),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

// Explain describes the aggregation of sql without reading the table.
func Explain(cfg *util.Config, sql string) (string, error) {
	q, err := parser.ParseQuery(sql)
	if err != nil {
		return "", err
	}
	tabOpts, err := cfg.Table(q.Table)
	if err != nil {
		return "", err
	}
	schema, err := chunk.ParseSchema(tabOpts.Columns)
	if err != nil {
		return "", err
	}
	res, err := Execute(context.Background(), cfg, &Job{
		Query:  q,
		Schema: schema,
	})
	if err != nil {
		return "", err
	}
	return res.Explain, nil
}

// Execute aggregates the job streams with the hash method chosen for
// the group columns. A job without streams only builds the aggregator.
func Execute(ctx context.Context, cfg *util.Config, job *Job) (*Result, error) {
	types := make([]common.LType, len(job.Query.GroupBy))
	for i, name := range job.Query.GroupBy {
		field, has := job.Schema.Field(name)
		if !has {
			return nil, errors.Mark(errors.Newf("unknown group column %q", name), compute.ErrConfiguration)
		}
		types[i] = field.Typ
	}
	method, err := ChooseHashMethod(cfg.Aggregator.HashMethod, types)
	if err != nil {
		return nil, err
	}
	switch method {
	case MethodU8:
		return execute(ctx, cfg, job, compute.NewKeysU8())
	case MethodU16:
		return execute(ctx, cfg, job, compute.NewKeysU16())
	case MethodU32:
		return execute(ctx, cfg, job, compute.NewKeysU32())
	case MethodU64:
		return execute(ctx, cfg, job, compute.NewKeysU64())
	case MethodU128:
		return execute(ctx, cfg, job, compute.NewKeysU128())
	case MethodU256:
		return execute(ctx, cfg, job, compute.NewKeysU256())
	default:
		return execute(ctx, cfg, job, compute.NewSerializer())
	}
}

func execute[K any](
	ctx context.Context,
	cfg *util.Config,
	job *Job,
	method compute.HashMethod[K],
) (*Result, error) {
	agg, err := compute.NewAggregator(method, job.Query.Aggs, job.Schema, &cfg.Aggregator)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Method:  method.Name(),
		Explain: agg.Explain(),
	}
	if cfg.Debug.PrintLayout {
		util.Info("aggregator layout", zap.String("tree", res.Explain))
	}
	if len(job.Streams) == 0 {
		return res, nil
	}

	var state *compute.GroupState[K]
	if len(job.Streams) == 1 {
		state, err = agg.Aggregate(ctx, job.Query.GroupBy, job.Streams[0])
	} else {
		state, err = agg.AggregateParallel(ctx, job.Query.GroupBy, job.Streams)
	}
	if err != nil {
		return nil, err
	}
	defer state.Release()
	res.Groups = state.Len()

	out, err := agg.Finalize(state, agg.OutputSchema(keyName(job.Query)))
	if err != nil {
		return nil, err
	}
	blocks, err := chunk.Collect(ctx, out)
	if err != nil {
		return nil, err
	}
	res.Partial = blocks[0]

	if job.Final {
		final, err := agg.Results(state, job.Query.GroupBy)
		if err != nil {
			return nil, err
		}
		res.Final = project(job.Query, final)
	}
	return res, nil
}

func keyName(q *parser.Query) string {
	if len(q.GroupBy) == 1 {
		return q.GroupBy[0]
	}
	return "key"
}

// project reorders the group columns and aggregates of res into the
// select list.
func project(q *parser.Query, res *chunk.Chunk) *chunk.Chunk {
	names := make([]string, len(q.Outputs))
	vecs := make([]*chunk.Vector, len(q.Outputs))
	for i, out := range q.Outputs {
		names[i] = out.Name
		if out.IsAgg {
			vecs[i] = res.Data[len(q.GroupBy)+out.Index]
		} else {
			vecs[i] = res.Data[out.Index]
		}
	}
	ret := chunk.NewChunkFromVectors(names, vecs)
	ret.SetCard(res.Card())
	return ret
}

// Functions lists the registered aggregate functions.
func Functions() []function.FuncInfo {
	return function.Infos()
}
