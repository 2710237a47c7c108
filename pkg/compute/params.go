package compute

import (
	"github.com/cockroachdb/errors"
	"github.com/huandu/go-clone"

	"github.com/daviszhen/groupby/pkg/chunk"
	"github.com/daviszhen/groupby/pkg/common"
	"github.com/daviszhen/groupby/pkg/function"
)

// AggregatorParams is the bound, read only description of one
// aggregation stage.
type AggregatorParams struct {
	Schema *chunk.Schema
	Exprs  []function.AggrExpr
	Funcs  []function.AggregateFunction
	//argument column names of each function
	Args [][]string
}

// NewAggregatorParams binds each expression against the input schema.
func NewAggregatorParams(schema *chunk.Schema, exprs []function.AggrExpr) (*AggregatorParams, error) {
	if schema == nil {
		return nil, configError("aggregator needs an input schema")
	}
	params := &AggregatorParams{
		Schema: clone.Clone(schema).(*chunk.Schema),
	}
	if len(exprs) > 0 {
		params.Exprs = clone.Clone(exprs).([]function.AggrExpr)
	}
	for i, expr := range params.Exprs {
		types := make([]common.LType, 0, len(expr.Args))
		for _, arg := range expr.Args {
			field, has := params.Schema.Field(arg)
			if !has {
				return nil, configError("%s: unknown column %q", expr, arg)
			}
			types = append(types, field.Typ)
		}
		fun, err := function.Get(expr.Func, types)
		if err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "aggregate %d", i), ErrConfiguration)
		}
		params.Funcs = append(params.Funcs, fun)
		params.Args = append(params.Args, expr.Args)
	}
	return params, nil
}
