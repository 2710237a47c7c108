package function

import (
	"github.com/daviszhen/groupby/pkg/arena"
	"github.com/daviszhen/groupby/pkg/chunk"
	"github.com/daviszhen/groupby/pkg/common"
)

// count(*) counts rows, count(x) counts non NULL x.
// State: u64 counter.
func newCount(args []common.LType) (AggregateFunction, error) {
	if len(args) > 1 {
		return nil, unsupported("count", args)
	}
	var accumulate aggrAccumulate
	if len(args) == 0 {
		accumulate = func(ar *arena.Arena, addrs []arena.StateAddr, offset int, _ []*chunk.Vector, rows int) error {
			for i := 0; i < rows; i++ {
				place := ar.Place(addrs[i].Next(offset))
				place.PutUint64(place.Uint64() + 1)
			}
			return nil
		}
	} else {
		accumulate = func(ar *arena.Arena, addrs []arena.StateAddr, offset int, inputs []*chunk.Vector, rows int) error {
			vec := inputs[0]
			for i := 0; i < rows; i++ {
				if vec.IsNull(i) {
					continue
				}
				place := ar.Place(addrs[i].Next(offset))
				place.PutUint64(place.Uint64() + 1)
			}
			return nil
		}
	}
	return &AggrFunction{
		_name:    "count",
		_args:    args,
		_retType: common.BigintType(),
		_layout:  arena.NewLayout(8, 8),
		_init: func(place arena.Place) {
			place.PutUint64(0)
		},
		_accumulate: accumulate,
		_serialize: func(place arena.Place, buf []byte) ([]byte, error) {
			return appendUint64(buf, place.Uint64()), nil
		},
		_result: func(place arena.Place) (*chunk.Value, error) {
			return &chunk.Value{
				Typ: common.BigintType(),
				I64: int64(place.Uint64()),
			}, nil
		},
	}, nil
}
