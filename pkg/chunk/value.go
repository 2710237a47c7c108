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
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/govalues/decimal"

	"github.com/daviszhen/groupby/pkg/common"
)

type Value struct {
	Typ    common.LType
	IsNull bool
	//value
	Bool  bool
	I64   int64
	U64   uint64
	F64   float64
	Dec   decimal.Decimal
	Str   string
	Bytes []byte
}

func (val Value) String() string {
	if val.IsNull {
		return "NULL"
	}
	switch val.Typ.GetInternalType() {
	case common.BOOL:
		return fmt.Sprintf("%v", val.Bool)
	case common.INT8, common.INT16, common.INT32, common.INT64:
		return fmt.Sprintf("%d", val.I64)
	case common.UINT8, common.UINT16, common.UINT32, common.UINT64:
		return fmt.Sprintf("%d", val.U64)
	case common.FLOAT, common.DOUBLE:
		return fmt.Sprintf("%v", val.F64)
	case common.DECIMAL:
		return val.Dec.String()
	case common.VARCHAR:
		return val.Str
	case common.BLOB:
		return "\\x" + hex.EncodeToString(val.Bytes)
	default:
		panic("usp")
	}
}

// ParseValue converts the text form of a column value. An empty
// string is NULL for every type but VARCHAR.
func ParseValue(typ common.LType, s string) (*Value, error) {
	val := &Value{Typ: typ}
	pTyp := typ.GetInternalType()
	if pTyp != common.VARCHAR && (s == "" || strings.EqualFold(s, "null")) {
		val.IsNull = true
		return val, nil
	}
	var err error
	switch pTyp {
	case common.BOOL:
		val.Bool, err = strconv.ParseBool(s)
	case common.INT8:
		val.I64, err = strconv.ParseInt(s, 10, 8)
	case common.INT16:
		val.I64, err = strconv.ParseInt(s, 10, 16)
	case common.INT32:
		val.I64, err = strconv.ParseInt(s, 10, 32)
	case common.INT64:
		val.I64, err = strconv.ParseInt(s, 10, 64)
	case common.UINT8:
		val.U64, err = strconv.ParseUint(s, 10, 8)
	case common.UINT16:
		val.U64, err = strconv.ParseUint(s, 10, 16)
	case common.UINT32:
		val.U64, err = strconv.ParseUint(s, 10, 32)
	case common.UINT64:
		val.U64, err = strconv.ParseUint(s, 10, 64)
	case common.FLOAT:
		val.F64, err = strconv.ParseFloat(s, 32)
	case common.DOUBLE:
		val.F64, err = strconv.ParseFloat(s, 64)
	case common.DECIMAL:
		val.Dec, err = decimal.Parse(s)
	case common.VARCHAR:
		val.Str = s
	case common.BLOB:
		val.Bytes = []byte(s)
	default:
		panic("usp")
	}
	if err != nil {
		return nil, fmt.Errorf("parse %q as %s: %w", s, typ, err)
	}
	return val, nil
}
