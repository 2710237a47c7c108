package function

import (
	"bytes"
	"cmp"

	"github.com/govalues/decimal"

	"github.com/daviszhen/groupby/pkg/arena"
	"github.com/daviszhen/groupby/pkg/chunk"
	"github.com/daviszhen/groupby/pkg/common"
)

// replaceOp decides from the comparison of the new value against the
// current one whether the new value wins.
type replaceOp func(c int) bool

func newMin(args []common.LType) (AggregateFunction, error) {
	return newExtreme("min", args, func(c int) bool { return c < 0 })
}

func newMax(args []common.LType) (AggregateFunction, error) {
	return newExtreme("max", args, func(c int) bool { return c > 0 })
}

func newAnyValue(args []common.LType) (AggregateFunction, error) {
	return newExtreme("any_value", args, func(int) bool { return false })
}

// fixed state: isset byte at 0, value at 8.
// decimal, varchar and blob: object id at 0.
func newExtreme(name string, args []common.LType, replace replaceOp) (AggregateFunction, error) {
	if len(args) != 1 {
		return nil, unsupported(name, args)
	}
	typ := args[0]
	fun := &AggrFunction{
		_name:    name,
		_args:    args,
		_retType: typ,
	}
	nullResult := func() *chunk.Value {
		return &chunk.Value{Typ: typ, IsNull: true}
	}
	switch kindOf(typ) {
	case kindSigned:
		fun._layout = arena.NewLayout(16, 8)
		fun._accumulate = func(ar *arena.Arena, addrs []arena.StateAddr, offset int, inputs []*chunk.Vector, rows int) error {
			return forInt64(inputs[0], rows, func(row int, v int64) error {
				place := ar.Place(addrs[row].Next(offset))
				val := place.Next(8)
				if !place.Bool() || replace(cmp.Compare(v, val.Int64())) {
					place.PutBool(true)
					val.PutInt64(v)
				}
				return nil
			})
		}
		fun._serialize = serializeFixed
		fun._result = func(place arena.Place) (*chunk.Value, error) {
			if !place.Bool() {
				return nullResult(), nil
			}
			return &chunk.Value{Typ: typ, I64: place.Next(8).Int64()}, nil
		}
	case kindUnsigned:
		fun._layout = arena.NewLayout(16, 8)
		fun._accumulate = func(ar *arena.Arena, addrs []arena.StateAddr, offset int, inputs []*chunk.Vector, rows int) error {
			return forUint64(inputs[0], rows, func(row int, v uint64) error {
				place := ar.Place(addrs[row].Next(offset))
				val := place.Next(8)
				if !place.Bool() || replace(cmp.Compare(v, val.Uint64())) {
					place.PutBool(true)
					val.PutUint64(v)
				}
				return nil
			})
		}
		fun._serialize = serializeFixed
		fun._result = func(place arena.Place) (*chunk.Value, error) {
			if !place.Bool() {
				return nullResult(), nil
			}
			v := place.Next(8).Uint64()
			return &chunk.Value{Typ: typ, U64: v, Bool: v != 0}, nil
		}
	case kindFloat:
		fun._layout = arena.NewLayout(16, 8)
		fun._accumulate = func(ar *arena.Arena, addrs []arena.StateAddr, offset int, inputs []*chunk.Vector, rows int) error {
			return forFloat64(inputs[0], rows, func(row int, v float64) error {
				place := ar.Place(addrs[row].Next(offset))
				val := place.Next(8)
				if !place.Bool() || replace(cmp.Compare(v, val.Float64())) {
					place.PutBool(true)
					val.PutFloat64(v)
				}
				return nil
			})
		}
		fun._serialize = serializeFixed
		fun._result = func(place arena.Place) (*chunk.Value, error) {
			if !place.Bool() {
				return nullResult(), nil
			}
			return &chunk.Value{Typ: typ, F64: place.Next(8).Float64()}, nil
		}
	case kindDecimal:
		fun._layout = arena.NewLayout(4, 4)
		fun._accumulate = func(ar *arena.Arena, addrs []arena.StateAddr, offset int, inputs []*chunk.Vector, rows int) error {
			return forDecimal(inputs[0], rows, func(row int, v decimal.Decimal) error {
				place := ar.Place(addrs[row].Next(offset))
				obj, has := place.Object()
				if !has || replace(v.Cmp(obj.(decimal.Decimal))) {
					place.SetObject(v)
				}
				return nil
			})
		}
		fun._serialize = func(place arena.Place, buf []byte) ([]byte, error) {
			obj, has := place.Object()
			buf = appendIsset(buf, has)
			if !has {
				return buf, nil
			}
			return appendBytes(buf, []byte(obj.(decimal.Decimal).String())), nil
		}
		fun._result = func(place arena.Place) (*chunk.Value, error) {
			obj, has := place.Object()
			if !has {
				return nullResult(), nil
			}
			return &chunk.Value{Typ: typ, Dec: obj.(decimal.Decimal)}, nil
		}
	case kindVarlen:
		fun._layout = arena.NewLayout(4, 4)
		fun._accumulate = func(ar *arena.Arena, addrs []arena.StateAddr, offset int, inputs []*chunk.Vector, rows int) error {
			return forBytes(inputs[0], rows, func(row int, v []byte) error {
				place := ar.Place(addrs[row].Next(offset))
				obj, has := place.Object()
				if !has || replace(bytes.Compare(v, obj.([]byte))) {
					place.SetObject(bytes.Clone(v))
				}
				return nil
			})
		}
		fun._serialize = func(place arena.Place, buf []byte) ([]byte, error) {
			obj, has := place.Object()
			buf = appendIsset(buf, has)
			if !has {
				return buf, nil
			}
			return appendBytes(buf, obj.([]byte)), nil
		}
		fun._result = func(place arena.Place) (*chunk.Value, error) {
			obj, has := place.Object()
			if !has {
				return nullResult(), nil
			}
			ret := &chunk.Value{Typ: typ}
			if typ.GetInternalType() == common.VARCHAR {
				ret.Str = string(obj.([]byte))
			} else {
				ret.Bytes = obj.([]byte)
			}
			return ret, nil
		}
	default:
		return nil, unsupported(name, args)
	}
	return fun, nil
}
