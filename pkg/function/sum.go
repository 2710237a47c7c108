package function

import (
	"math"
	"math/bits"

	"github.com/cockroachdb/errors"
	"github.com/govalues/decimal"

	"github.com/daviszhen/groupby/pkg/arena"
	"github.com/daviszhen/groupby/pkg/chunk"
	"github.com/daviszhen/groupby/pkg/common"
)

const decimalMaxWidth = 19

// fixed sum state: isset byte at 0, value at 8.
// decimal sum state: object id at 0, holding a decimal.Decimal.
func newSum(args []common.LType) (AggregateFunction, error) {
	if len(args) != 1 {
		return nil, unsupported("sum", args)
	}
	fun := &AggrFunction{
		_name: "sum",
		_args: args,
	}
	switch kindOf(args[0]) {
	case kindSigned:
		fun._retType = common.BigintType()
		fun._layout = arena.NewLayout(16, 8)
		fun._accumulate = func(ar *arena.Arena, addrs []arena.StateAddr, offset int, inputs []*chunk.Vector, rows int) error {
			return forInt64(inputs[0], rows, func(row int, v int64) error {
				place := ar.Place(addrs[row].Next(offset))
				val := place.Next(8)
				old := val.Int64()
				res := old + v
				if (v > 0 && res < old) || (v < 0 && res > old) {
					return errors.Wrapf(ErrOverflow, "sum %d + %d", old, v)
				}
				place.PutBool(true)
				val.PutInt64(res)
				return nil
			})
		}
		fun._serialize = serializeFixed
		fun._result = func(place arena.Place) (*chunk.Value, error) {
			if !place.Bool() {
				return &chunk.Value{Typ: fun._retType, IsNull: true}, nil
			}
			return &chunk.Value{Typ: fun._retType, I64: place.Next(8).Int64()}, nil
		}
	case kindUnsigned:
		fun._retType = common.UbigintType()
		fun._layout = arena.NewLayout(16, 8)
		fun._accumulate = func(ar *arena.Arena, addrs []arena.StateAddr, offset int, inputs []*chunk.Vector, rows int) error {
			return forUint64(inputs[0], rows, func(row int, v uint64) error {
				place := ar.Place(addrs[row].Next(offset))
				val := place.Next(8)
				res, carry := bits.Add64(val.Uint64(), v, 0)
				if carry != 0 {
					return errors.Wrapf(ErrOverflow, "sum %d + %d", val.Uint64(), v)
				}
				place.PutBool(true)
				val.PutUint64(res)
				return nil
			})
		}
		fun._serialize = serializeFixed
		fun._result = func(place arena.Place) (*chunk.Value, error) {
			if !place.Bool() {
				return &chunk.Value{Typ: fun._retType, IsNull: true}, nil
			}
			return &chunk.Value{Typ: fun._retType, U64: place.Next(8).Uint64()}, nil
		}
	case kindFloat:
		fun._retType = common.DoubleType()
		fun._layout = arena.NewLayout(16, 8)
		fun._accumulate = func(ar *arena.Arena, addrs []arena.StateAddr, offset int, inputs []*chunk.Vector, rows int) error {
			return forFloat64(inputs[0], rows, func(row int, v float64) error {
				place := ar.Place(addrs[row].Next(offset))
				val := place.Next(8)
				place.PutBool(true)
				val.PutFloat64(val.Float64() + v)
				return nil
			})
		}
		fun._serialize = serializeFixed
		fun._result = func(place arena.Place) (*chunk.Value, error) {
			if !place.Bool() {
				return &chunk.Value{Typ: fun._retType, IsNull: true}, nil
			}
			return &chunk.Value{Typ: fun._retType, F64: place.Next(8).Float64()}, nil
		}
	case kindDecimal:
		fun._retType = common.DecimalType(decimalMaxWidth, args[0].Scale)
		fun._layout = arena.NewLayout(4, 4)
		fun._accumulate = func(ar *arena.Arena, addrs []arena.StateAddr, offset int, inputs []*chunk.Vector, rows int) error {
			return forDecimal(inputs[0], rows, func(row int, v decimal.Decimal) error {
				place := ar.Place(addrs[row].Next(offset))
				return addDecimal(place, v)
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
				return &chunk.Value{Typ: fun._retType, IsNull: true}, nil
			}
			return &chunk.Value{Typ: fun._retType, Dec: obj.(decimal.Decimal)}, nil
		}
	default:
		return nil, unsupported("sum", args)
	}
	return fun, nil
}

func addDecimal(place arena.Place, v decimal.Decimal) error {
	obj, has := place.Object()
	if !has {
		place.SetObject(v)
		return nil
	}
	res, err := obj.(decimal.Decimal).Add(v)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "sum %s + %s", obj.(decimal.Decimal), v), ErrOverflow)
	}
	place.SetObject(res)
	return nil
}

// serializeFixed writes the isset byte and the 8 byte value.
func serializeFixed(place arena.Place, buf []byte) ([]byte, error) {
	buf = appendIsset(buf, place.Bool())
	return appendUint64(buf, place.Next(8).Uint64()), nil
}

// numeric avg state: f64 sum at 0, u64 count at 8.
// decimal avg state: object id at 0, u64 count at 8.
func newAvg(args []common.LType) (AggregateFunction, error) {
	if len(args) != 1 {
		return nil, unsupported("avg", args)
	}
	fun := &AggrFunction{
		_name:   "avg",
		_args:   args,
		_layout: arena.NewLayout(16, 8),
	}
	addCount := func(place arena.Place) {
		cnt := place.Next(8)
		cnt.PutUint64(cnt.Uint64() + 1)
	}
	switch kind := kindOf(args[0]); kind {
	case kindSigned, kindUnsigned, kindFloat:
		fun._retType = common.DoubleType()
		add := func(ar *arena.Arena, addr arena.StateAddr, v float64) {
			place := ar.Place(addr)
			place.PutFloat64(place.Float64() + v)
			addCount(place)
		}
		fun._accumulate = func(ar *arena.Arena, addrs []arena.StateAddr, offset int, inputs []*chunk.Vector, rows int) error {
			switch kind {
			case kindSigned:
				return forInt64(inputs[0], rows, func(row int, v int64) error {
					add(ar, addrs[row].Next(offset), float64(v))
					return nil
				})
			case kindUnsigned:
				return forUint64(inputs[0], rows, func(row int, v uint64) error {
					add(ar, addrs[row].Next(offset), float64(v))
					return nil
				})
			default:
				return forFloat64(inputs[0], rows, func(row int, v float64) error {
					add(ar, addrs[row].Next(offset), v)
					return nil
				})
			}
		}
		fun._serialize = func(place arena.Place, buf []byte) ([]byte, error) {
			buf = appendUint64(buf, math.Float64bits(place.Float64()))
			return appendUint64(buf, place.Next(8).Uint64()), nil
		}
		fun._result = func(place arena.Place) (*chunk.Value, error) {
			cnt := place.Next(8).Uint64()
			if cnt == 0 {
				return &chunk.Value{Typ: fun._retType, IsNull: true}, nil
			}
			return &chunk.Value{Typ: fun._retType, F64: place.Float64() / float64(cnt)}, nil
		}
	case kindDecimal:
		fun._retType = common.DecimalType(decimalMaxWidth, min(args[0].Scale+4, decimalMaxWidth-1))
		fun._accumulate = func(ar *arena.Arena, addrs []arena.StateAddr, offset int, inputs []*chunk.Vector, rows int) error {
			return forDecimal(inputs[0], rows, func(row int, v decimal.Decimal) error {
				place := ar.Place(addrs[row].Next(offset))
				if err := addDecimal(place, v); err != nil {
					return err
				}
				addCount(place)
				return nil
			})
		}
		fun._serialize = func(place arena.Place, buf []byte) ([]byte, error) {
			sum := decimal.Decimal{}
			if obj, has := place.Object(); has {
				sum = obj.(decimal.Decimal)
			}
			buf = appendBytes(buf, []byte(sum.String()))
			return appendUint64(buf, place.Next(8).Uint64()), nil
		}
		fun._result = func(place arena.Place) (*chunk.Value, error) {
			cnt := place.Next(8).Uint64()
			obj, has := place.Object()
			if cnt == 0 || !has {
				return &chunk.Value{Typ: fun._retType, IsNull: true}, nil
			}
			div, err := decimal.New(int64(cnt), 0)
			if err != nil {
				return nil, err
			}
			res, err := obj.(decimal.Decimal).Quo(div)
			if err != nil {
				return nil, err
			}
			return &chunk.Value{Typ: fun._retType, Dec: res.Round(fun._retType.Scale)}, nil
		}
	default:
		return nil, unsupported("avg", args)
	}
	return fun, nil
}
