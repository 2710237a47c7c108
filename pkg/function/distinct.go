package function

import (
	"github.com/axiomhq/hyperloglog"

	"github.com/daviszhen/groupby/pkg/arena"
	"github.com/daviszhen/groupby/pkg/chunk"
	"github.com/daviszhen/groupby/pkg/common"
)

// State: object id at 0, holding a *hyperloglog.Sketch.
func newApproxCountDistinct(args []common.LType) (AggregateFunction, error) {
	if len(args) != 1 || kindOf(args[0]) == kindInvalid {
		return nil, unsupported("approx_count_distinct", args)
	}
	sketchOf := func(place arena.Place) *hyperloglog.Sketch {
		obj, has := place.Object()
		if !has {
			return nil
		}
		return obj.(*hyperloglog.Sketch)
	}
	return &AggrFunction{
		_name:    "approx_count_distinct",
		_args:    args,
		_retType: common.BigintType(),
		_layout:  arena.NewLayout(4, 4),
		_init: func(place arena.Place) {
			place.SetObject(hyperloglog.New())
		},
		_accumulate: func(ar *arena.Arena, addrs []arena.StateAddr, offset int, inputs []*chunk.Vector, rows int) error {
			return forEncoded(inputs[0], rows, func(row int, v []byte) error {
				sketchOf(ar.Place(addrs[row].Next(offset))).Insert(v)
				return nil
			})
		},
		_serialize: func(place arena.Place, buf []byte) ([]byte, error) {
			data, err := sketchOf(place).MarshalBinary()
			if err != nil {
				return nil, err
			}
			return append(buf, data...), nil
		},
		_result: func(place arena.Place) (*chunk.Value, error) {
			return &chunk.Value{
				Typ: common.BigintType(),
				I64: int64(sketchOf(place).Estimate()),
			}, nil
		},
	}, nil
}
