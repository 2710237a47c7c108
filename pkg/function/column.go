package function

import (
	"encoding/binary"
	"math"

	"github.com/govalues/decimal"

	"github.com/daviszhen/groupby/pkg/chunk"
	"github.com/daviszhen/groupby/pkg/common"
)

type numKind int

const (
	kindSigned numKind = iota
	kindUnsigned
	kindFloat
	kindDecimal
	kindVarlen
	kindInvalid
)

func kindOf(typ common.LType) numKind {
	switch typ.GetInternalType() {
	case common.INT8, common.INT16, common.INT32, common.INT64:
		return kindSigned
	case common.BOOL, common.UINT8, common.UINT16, common.UINT32, common.UINT64:
		return kindUnsigned
	case common.FLOAT, common.DOUBLE:
		return kindFloat
	case common.DECIMAL:
		return kindDecimal
	case common.VARCHAR, common.BLOB:
		return kindVarlen
	default:
		return kindInvalid
	}
}

func eachSigned[T int8 | int16 | int32 | int64](vec *chunk.Vector, rows int, fn func(row int, v int64) error) error {
	data := chunk.GetSlice[T](vec)
	for i := 0; i < rows; i++ {
		if vec.IsNull(i) {
			continue
		}
		if err := fn(i, int64(data[i])); err != nil {
			return err
		}
	}
	return nil
}

func eachUnsigned[T uint8 | uint16 | uint32 | uint64](vec *chunk.Vector, rows int, fn func(row int, v uint64) error) error {
	data := chunk.GetSlice[T](vec)
	for i := 0; i < rows; i++ {
		if vec.IsNull(i) {
			continue
		}
		if err := fn(i, uint64(data[i])); err != nil {
			return err
		}
	}
	return nil
}

func eachFloat[T float32 | float64](vec *chunk.Vector, rows int, fn func(row int, v float64) error) error {
	data := chunk.GetSlice[T](vec)
	for i := 0; i < rows; i++ {
		if vec.IsNull(i) {
			continue
		}
		if err := fn(i, float64(data[i])); err != nil {
			return err
		}
	}
	return nil
}

// forInt64 visits the non NULL rows of a signed integer column.
func forInt64(vec *chunk.Vector, rows int, fn func(row int, v int64) error) error {
	switch vec.Typ().GetInternalType() {
	case common.INT8:
		return eachSigned[int8](vec, rows, fn)
	case common.INT16:
		return eachSigned[int16](vec, rows, fn)
	case common.INT32:
		return eachSigned[int32](vec, rows, fn)
	case common.INT64:
		return eachSigned[int64](vec, rows, fn)
	default:
		panic("usp")
	}
}

func forUint64(vec *chunk.Vector, rows int, fn func(row int, v uint64) error) error {
	switch vec.Typ().GetInternalType() {
	case common.BOOL:
		data := chunk.GetSlice[bool](vec)
		for i := 0; i < rows; i++ {
			if vec.IsNull(i) {
				continue
			}
			v := uint64(0)
			if data[i] {
				v = 1
			}
			if err := fn(i, v); err != nil {
				return err
			}
		}
		return nil
	case common.UINT8:
		return eachUnsigned[uint8](vec, rows, fn)
	case common.UINT16:
		return eachUnsigned[uint16](vec, rows, fn)
	case common.UINT32:
		return eachUnsigned[uint32](vec, rows, fn)
	case common.UINT64:
		return eachUnsigned[uint64](vec, rows, fn)
	default:
		panic("usp")
	}
}

func forFloat64(vec *chunk.Vector, rows int, fn func(row int, v float64) error) error {
	switch vec.Typ().GetInternalType() {
	case common.FLOAT:
		return eachFloat[float32](vec, rows, fn)
	case common.DOUBLE:
		return eachFloat[float64](vec, rows, fn)
	default:
		panic("usp")
	}
}

func forDecimal(vec *chunk.Vector, rows int, fn func(row int, v decimal.Decimal) error) error {
	data := chunk.GetSlice[decimal.Decimal](vec)
	for i := 0; i < rows; i++ {
		if vec.IsNull(i) {
			continue
		}
		if err := fn(i, data[i]); err != nil {
			return err
		}
	}
	return nil
}

// forBytes visits the non NULL rows of a VARCHAR or BLOB column. The
// slice passed to fn must not be retained.
func forBytes(vec *chunk.Vector, rows int, fn func(row int, v []byte) error) error {
	switch vec.Typ().GetInternalType() {
	case common.VARCHAR:
		data := chunk.GetSlice[string](vec)
		for i := 0; i < rows; i++ {
			if vec.IsNull(i) {
				continue
			}
			if err := fn(i, []byte(data[i])); err != nil {
				return err
			}
		}
		return nil
	case common.BLOB:
		data := chunk.GetSlice[[]byte](vec)
		for i := 0; i < rows; i++ {
			if vec.IsNull(i) {
				continue
			}
			if err := fn(i, data[i]); err != nil {
				return err
			}
		}
		return nil
	default:
		panic("usp")
	}
}

// forEncoded visits every non NULL row as bytes: the little endian
// value for fixed width types, the text for decimals, the raw bytes
// for VARCHAR and BLOB.
func forEncoded(vec *chunk.Vector, rows int, fn func(row int, v []byte) error) error {
	var buf [8]byte
	switch kindOf(vec.Typ()) {
	case kindSigned:
		return forInt64(vec, rows, func(row int, v int64) error {
			binary.LittleEndian.PutUint64(buf[:], uint64(v))
			return fn(row, buf[:])
		})
	case kindUnsigned:
		return forUint64(vec, rows, func(row int, v uint64) error {
			binary.LittleEndian.PutUint64(buf[:], v)
			return fn(row, buf[:])
		})
	case kindFloat:
		return forFloat64(vec, rows, func(row int, v float64) error {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			return fn(row, buf[:])
		})
	case kindDecimal:
		return forDecimal(vec, rows, func(row int, v decimal.Decimal) error {
			return fn(row, []byte(v.Trim(0).String()))
		})
	case kindVarlen:
		return forBytes(vec, rows, fn)
	default:
		panic("usp")
	}
}

func appendIsset(buf []byte, isset bool) []byte {
	if isset {
		return append(buf, 1)
	}
	return append(buf, 0)
}

func appendUint64(buf []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(buf, v)
}

func appendBytes(buf []byte, v []byte) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(v)))
	return append(buf, v...)
}
