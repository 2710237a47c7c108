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

package function

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/daviszhen/groupby/pkg/arena"
	"github.com/daviszhen/groupby/pkg/chunk"
	"github.com/daviszhen/groupby/pkg/common"
)

var (
	ErrUnknownFunction = errors.New("unknown aggregate function")
	ErrUnsupportedArgs = errors.New("unsupported aggregate arguments")
	ErrOverflow        = errors.New("aggregate overflow")
)

// AggregateFunction is the capability the aggregator drives. Each
// group owns one state region laid out by StateLayout.
type AggregateFunction interface {
	Name() string
	ArgTypes() []common.LType
	ReturnType() common.LType
	StateLayout() arena.Layout
	// InitState prepares the zeroed state at place.
	InitState(place arena.Place)
	// Accumulate folds rows of args into the states at
	// addrs[i].Next(offset), one address per row.
	Accumulate(ar *arena.Arena, addrs []arena.StateAddr, offset int, args []*chunk.Vector, rows int) error
	// Serialize appends the partial state to buf.
	Serialize(place arena.Place, buf []byte) ([]byte, error)
	// Result is the final value of the state.
	Result(place arena.Place) (*chunk.Value, error)
}

type aggrInit func(place arena.Place)
type aggrAccumulate func(ar *arena.Arena, addrs []arena.StateAddr, offset int, args []*chunk.Vector, rows int) error
type aggrSerialize func(place arena.Place, buf []byte) ([]byte, error)
type aggrResult func(place arena.Place) (*chunk.Value, error)

// AggrFunction is an AggregateFunction assembled from callbacks.
type AggrFunction struct {
	_name       string
	_args       []common.LType
	_retType    common.LType
	_layout     arena.Layout
	_init       aggrInit
	_accumulate aggrAccumulate
	_serialize  aggrSerialize
	_result     aggrResult
}

func (fun *AggrFunction) Name() string {
	return fun._name
}

func (fun *AggrFunction) ArgTypes() []common.LType {
	return fun._args
}

func (fun *AggrFunction) ReturnType() common.LType {
	return fun._retType
}

func (fun *AggrFunction) StateLayout() arena.Layout {
	return fun._layout
}

func (fun *AggrFunction) InitState(place arena.Place) {
	if fun._init != nil {
		fun._init(place)
	}
}

func (fun *AggrFunction) Accumulate(ar *arena.Arena, addrs []arena.StateAddr, offset int, args []*chunk.Vector, rows int) error {
	if len(args) != len(fun._args) {
		return errors.Newf("%s expects %d arguments, got %d", fun._name, len(fun._args), len(args))
	}
	for i, arg := range args {
		if !arg.Typ().Equal(fun._args[i]) {
			return errors.Newf("%s argument %d is %s, expect %s",
				fun._name, i, arg.Typ(), fun._args[i])
		}
		if arg.Count() < rows {
			return errors.Newf("%s argument %d has %d rows, expect %d",
				fun._name, i, arg.Count(), rows)
		}
	}
	if len(addrs) < rows {
		return errors.Newf("%s got %d state addresses for %d rows", fun._name, len(addrs), rows)
	}
	return fun._accumulate(ar, addrs, offset, args, rows)
}

func (fun *AggrFunction) Serialize(place arena.Place, buf []byte) ([]byte, error) {
	return fun._serialize(place, buf)
}

func (fun *AggrFunction) Result(place arena.Place) (*chunk.Value, error) {
	return fun._result(place)
}

func (fun *AggrFunction) String() string {
	sb := strings.Builder{}
	sb.WriteString(fun._name)
	sb.WriteByte('(')
	for i, arg := range fun._args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(arg.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// AggrExpr names an aggregate function and its argument columns.
// count(*) has no arguments.
type AggrExpr struct {
	Func string
	Args []string
}

func (expr AggrExpr) String() string {
	if len(expr.Args) == 0 && strings.EqualFold(expr.Func, "count") {
		return "count(*)"
	}
	return strings.ToLower(expr.Func) + "(" + strings.Join(expr.Args, ", ") + ")"
}
