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

package chunk

import (
	"fmt"

	"github.com/govalues/decimal"

	"github.com/daviszhen/groupby/pkg/common"
	"github.com/daviszhen/groupby/pkg/util"
)

// Vector is one column of a batch. Data is a typed slice chosen by
// the physical type of the column; Mask marks NULL rows.
type Vector struct {
	_Typ   common.LType
	_count int
	Data   any
	Mask   *util.Bitmap
}

func NewVector(typ common.LType, cap int) *Vector {
	vec := &Vector{
		_Typ: typ,
		Mask: &util.Bitmap{},
	}
	switch typ.GetInternalType() {
	case common.BOOL:
		vec.Data = make([]bool, 0, cap)
	case common.INT8:
		vec.Data = make([]int8, 0, cap)
	case common.INT16:
		vec.Data = make([]int16, 0, cap)
	case common.INT32:
		vec.Data = make([]int32, 0, cap)
	case common.INT64:
		vec.Data = make([]int64, 0, cap)
	case common.UINT8:
		vec.Data = make([]uint8, 0, cap)
	case common.UINT16:
		vec.Data = make([]uint16, 0, cap)
	case common.UINT32:
		vec.Data = make([]uint32, 0, cap)
	case common.UINT64:
		vec.Data = make([]uint64, 0, cap)
	case common.FLOAT:
		vec.Data = make([]float32, 0, cap)
	case common.DOUBLE:
		vec.Data = make([]float64, 0, cap)
	case common.DECIMAL:
		vec.Data = make([]decimal.Decimal, 0, cap)
	case common.VARCHAR:
		vec.Data = make([]string, 0, cap)
	case common.BLOB:
		vec.Data = make([][]byte, 0, cap)
	default:
		panic(fmt.Sprintf("usp vector type %s", typ))
	}
	return vec
}

// NewFlatVector wraps data without copying it. All rows are valid.
func NewFlatVector[T any](typ common.LType, data []T) *Vector {
	vec := NewVector(typ, 0)
	_, ok := vec.Data.([]T)
	util.AssertFunc(ok)
	vec.Data = data
	vec._count = len(data)
	return vec
}

func GetSlice[T any](vec *Vector) []T {
	return vec.Data.([]T)
}

func Append[T any](vec *Vector, v T) {
	vec.Data = append(vec.Data.([]T), v)
	vec._count++
}

func (vec *Vector) Typ() common.LType {
	return vec._Typ
}

func (vec *Vector) Count() int {
	return vec._count
}

func (vec *Vector) IsNull(idx int) bool {
	return !vec.Mask.RowIsValid(uint64(idx))
}

func (vec *Vector) SetNull(idx int) {
	vec.Mask.SetInvalid(uint64(idx))
}

func (vec *Vector) HasNull() bool {
	for i := 0; i < vec._count; i++ {
		if vec.IsNull(i) {
			return true
		}
	}
	return false
}

func (vec *Vector) AppendNull() {
	idx := vec._count
	switch vec.Typ().GetInternalType() {
	case common.BOOL:
		Append(vec, false)
	case common.INT8:
		Append(vec, int8(0))
	case common.INT16:
		Append(vec, int16(0))
	case common.INT32:
		Append(vec, int32(0))
	case common.INT64:
		Append(vec, int64(0))
	case common.UINT8:
		Append(vec, uint8(0))
	case common.UINT16:
		Append(vec, uint16(0))
	case common.UINT32:
		Append(vec, uint32(0))
	case common.UINT64:
		Append(vec, uint64(0))
	case common.FLOAT:
		Append(vec, float32(0))
	case common.DOUBLE:
		Append(vec, float64(0))
	case common.DECIMAL:
		Append(vec, decimal.Decimal{})
	case common.VARCHAR:
		Append(vec, "")
	case common.BLOB:
		Append(vec, []byte(nil))
	default:
		panic("usp")
	}
	vec.SetNull(idx)
}

func (vec *Vector) AppendValue(val *Value) {
	if val.IsNull {
		vec.AppendNull()
		return
	}
	switch vec.Typ().GetInternalType() {
	case common.BOOL:
		Append(vec, val.Bool)
	case common.INT8:
		Append(vec, int8(val.I64))
	case common.INT16:
		Append(vec, int16(val.I64))
	case common.INT32:
		Append(vec, int32(val.I64))
	case common.INT64:
		Append(vec, val.I64)
	case common.UINT8:
		Append(vec, uint8(val.U64))
	case common.UINT16:
		Append(vec, uint16(val.U64))
	case common.UINT32:
		Append(vec, uint32(val.U64))
	case common.UINT64:
		Append(vec, val.U64)
	case common.FLOAT:
		Append(vec, float32(val.F64))
	case common.DOUBLE:
		Append(vec, val.F64)
	case common.DECIMAL:
		Append(vec, val.Dec)
	case common.VARCHAR:
		Append(vec, val.Str)
	case common.BLOB:
		Append(vec, val.Bytes)
	default:
		panic("usp")
	}
}

func (vec *Vector) GetValue(idx int) *Value {
	util.AssertFunc(idx >= 0 && idx < vec._count)
	if vec.IsNull(idx) {
		return &Value{
			Typ:    vec.Typ(),
			IsNull: true,
		}
	}
	ret := &Value{Typ: vec.Typ()}
	switch vec.Typ().GetInternalType() {
	case common.BOOL:
		ret.Bool = GetSlice[bool](vec)[idx]
	case common.INT8:
		ret.I64 = int64(GetSlice[int8](vec)[idx])
	case common.INT16:
		ret.I64 = int64(GetSlice[int16](vec)[idx])
	case common.INT32:
		ret.I64 = int64(GetSlice[int32](vec)[idx])
	case common.INT64:
		ret.I64 = GetSlice[int64](vec)[idx]
	case common.UINT8:
		ret.U64 = uint64(GetSlice[uint8](vec)[idx])
	case common.UINT16:
		ret.U64 = uint64(GetSlice[uint16](vec)[idx])
	case common.UINT32:
		ret.U64 = uint64(GetSlice[uint32](vec)[idx])
	case common.UINT64:
		ret.U64 = GetSlice[uint64](vec)[idx]
	case common.FLOAT:
		ret.F64 = float64(GetSlice[float32](vec)[idx])
	case common.DOUBLE:
		ret.F64 = GetSlice[float64](vec)[idx]
	case common.DECIMAL:
		ret.Dec = GetSlice[decimal.Decimal](vec)[idx]
	case common.VARCHAR:
		ret.Str = GetSlice[string](vec)[idx]
	case common.BLOB:
		ret.Bytes = GetSlice[[]byte](vec)[idx]
	default:
		panic("usp")
	}
	return ret
}
