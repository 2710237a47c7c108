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

package common

import (
	"fmt"
	"strconv"
	"strings"
)

type LType struct {
	Id    LTypeId
	PTyp  PhyType
	Width int
	Scale int
}

func MakeLType(id LTypeId) LType {
	ret := LType{Id: id}
	ret.PTyp = ret.GetInternalType()
	return ret
}

func Null() LType {
	return MakeLType(LTID_NULL)
}

func DecimalType(width, scale int) LType {
	ret := MakeLType(LTID_DECIMAL)
	ret.Width = width
	ret.Scale = scale
	return ret
}

func BooleanType() LType {
	return MakeLType(LTID_BOOLEAN)
}

func TinyintType() LType {
	return MakeLType(LTID_TINYINT)
}

func SmallintType() LType {
	return MakeLType(LTID_SMALLINT)
}

func IntegerType() LType {
	return MakeLType(LTID_INTEGER)
}

func BigintType() LType {
	return MakeLType(LTID_BIGINT)
}

func UTinyintType() LType {
	return MakeLType(LTID_UTINYINT)
}

func USmallintType() LType {
	return MakeLType(LTID_USMALLINT)
}

func UIntegerType() LType {
	return MakeLType(LTID_UINTEGER)
}

func UbigintType() LType {
	return MakeLType(LTID_UBIGINT)
}

func FloatType() LType {
	return MakeLType(LTID_FLOAT)
}

func DoubleType() LType {
	return MakeLType(LTID_DOUBLE)
}

func VarcharType() LType {
	return MakeLType(LTID_VARCHAR)
}

func BlobType() LType {
	return MakeLType(LTID_BLOB)
}

// FixedKeyType is the unsigned type that holds a packed key of size bytes.
// Widths above 8 bytes are carried as BLOB.
func FixedKeyType(size int) LType {
	switch {
	case size <= 1:
		return UTinyintType()
	case size <= 2:
		return USmallintType()
	case size <= 4:
		return UIntegerType()
	case size <= 8:
		return UbigintType()
	default:
		return BlobType()
	}
}

func (lt LType) IsNumeric() bool {
	switch lt.Id {
	case LTID_TINYINT, LTID_SMALLINT, LTID_INTEGER, LTID_BIGINT,
		LTID_UTINYINT, LTID_USMALLINT, LTID_UINTEGER, LTID_UBIGINT,
		LTID_FLOAT, LTID_DOUBLE, LTID_DECIMAL:
		return true
	default:
		return false
	}
}

func (lt LType) IsIntegral() bool {
	switch lt.Id {
	case LTID_TINYINT, LTID_SMALLINT, LTID_INTEGER, LTID_BIGINT:
		return true
	default:
		return false
	}
}

func (lt LType) IsUnsigned() bool {
	switch lt.Id {
	case LTID_UTINYINT, LTID_USMALLINT, LTID_UINTEGER, LTID_UBIGINT:
		return true
	default:
		return false
	}
}

func (lt LType) IsFloat() bool {
	return lt.Id == LTID_FLOAT || lt.Id == LTID_DOUBLE
}

func (lt LType) Equal(o LType) bool {
	if lt.Id != o.Id {
		return false
	}
	if lt.Id == LTID_DECIMAL {
		return lt.Width == o.Width && lt.Scale == o.Scale
	}
	return true
}

func (lt LType) GetInternalType() PhyType {
	switch lt.Id {
	case LTID_BOOLEAN:
		return BOOL
	case LTID_TINYINT:
		return INT8
	case LTID_SMALLINT:
		return INT16
	case LTID_INTEGER:
		return INT32
	case LTID_BIGINT:
		return INT64
	case LTID_UTINYINT:
		return UINT8
	case LTID_USMALLINT:
		return UINT16
	case LTID_UINTEGER:
		return UINT32
	case LTID_UBIGINT:
		return UINT64
	case LTID_FLOAT:
		return FLOAT
	case LTID_DOUBLE:
		return DOUBLE
	case LTID_DECIMAL:
		return DECIMAL
	case LTID_VARCHAR:
		return VARCHAR
	case LTID_BLOB:
		return BLOB
	case LTID_NULL:
		return NA
	default:
		panic(fmt.Sprintf("usp %s", lt.Id))
	}
}

var lTypeNames = map[string]LTypeId{
	"bool":      LTID_BOOLEAN,
	"boolean":   LTID_BOOLEAN,
	"tinyint":   LTID_TINYINT,
	"int8":      LTID_TINYINT,
	"smallint":  LTID_SMALLINT,
	"int16":     LTID_SMALLINT,
	"int":       LTID_INTEGER,
	"integer":   LTID_INTEGER,
	"int32":     LTID_INTEGER,
	"bigint":    LTID_BIGINT,
	"int64":     LTID_BIGINT,
	"utinyint":  LTID_UTINYINT,
	"uint8":     LTID_UTINYINT,
	"usmallint": LTID_USMALLINT,
	"uint16":    LTID_USMALLINT,
	"uinteger":  LTID_UINTEGER,
	"uint32":    LTID_UINTEGER,
	"ubigint":   LTID_UBIGINT,
	"uint64":    LTID_UBIGINT,
	"float":     LTID_FLOAT,
	"real":      LTID_FLOAT,
	"double":    LTID_DOUBLE,
	"varchar":   LTID_VARCHAR,
	"text":      LTID_VARCHAR,
	"string":    LTID_VARCHAR,
	"blob":      LTID_BLOB,
	"bytea":     LTID_BLOB,
}

// ParseLType parses the type names used in table configs,
// e.g. "bigint", "varchar", "decimal(15,2)".
func ParseLType(s string) (LType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if strings.HasPrefix(name, "decimal") {
		rest := strings.TrimSpace(strings.TrimPrefix(name, "decimal"))
		if rest == "" {
			return DecimalType(18, 0), nil
		}
		if !strings.HasPrefix(rest, "(") || !strings.HasSuffix(rest, ")") {
			return LType{}, fmt.Errorf("invalid decimal type %q", s)
		}
		parts := strings.Split(rest[1:len(rest)-1], ",")
		if len(parts) != 2 {
			return LType{}, fmt.Errorf("invalid decimal type %q", s)
		}
		width, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return LType{}, fmt.Errorf("invalid decimal width %q", s)
		}
		scale, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || scale > width || width > 19 {
			return LType{}, fmt.Errorf("invalid decimal scale %q", s)
		}
		return DecimalType(width, scale), nil
	}
	if id, has := lTypeNames[name]; has {
		return MakeLType(id), nil
	}
	return LType{}, fmt.Errorf("unknown type %q", s)
}

func (lt LType) String() string {
	if lt.Id == LTID_DECIMAL {
		return fmt.Sprintf("DECIMAL(%d,%d)", lt.Width, lt.Scale)
	}
	return strings.TrimPrefix(lt.Id.String(), "LTID_")
}
