package compute

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/daviszhen/groupby/pkg/chunk"
	"github.com/daviszhen/groupby/pkg/common"
	"github.com/daviszhen/groupby/pkg/hashtable"
)

// HashMethod encodes the group columns of a block into one key per
// row. The aggregator only relies on this interface.
type HashMethod[K any] interface {
	Name() string
	// BuildKeys returns keys index aligned with the rows.
	BuildKeys(cols []*chunk.Vector, rows int) ([]K, error)
	// NewTable makes an empty table for the keys.
	NewTable(initCap int) hashtable.GroupHashTable[K]
	// KeyType is the type of the key column emitted by finalize.
	KeyType() common.LType
	// KeyColumn turns raw keys into the key column.
	KeyColumn(keys []K) *chunk.Vector
	// DecodeKeys splits a key column back into group columns.
	DecodeKeys(keys *chunk.Vector, types []common.LType) ([]*chunk.Vector, error)
}

// FixedKeys packs fixed width group columns into a key of _width
// bytes. Column i starts right after column i-1, little endian, and
// unused high bytes stay zero.
type FixedKeys[K comparable] struct {
	_name      string
	_width     int
	_keyType   common.LType
	_fromBytes func(b []byte) K
	_toBytes   func(k K, b []byte)
	_newTable  func(initCap int) hashtable.GroupHashTable[K]
	_column    func(keys []K) *chunk.Vector
}

func NewKeysU8() *FixedKeys[uint8] {
	return &FixedKeys[uint8]{
		_name:    "KeysU8",
		_width:   1,
		_keyType: common.UTinyintType(),
		_fromBytes: func(b []byte) uint8 {
			return b[0]
		},
		_toBytes: func(k uint8, b []byte) {
			b[0] = k
		},
		_newTable: func(int) hashtable.GroupHashTable[uint8] {
			return hashtable.NewShortFixedTable[uint8]()
		},
		_column: func(keys []uint8) *chunk.Vector {
			return chunk.NewFlatVector(common.UTinyintType(), keys)
		},
	}
}

func NewKeysU16() *FixedKeys[uint16] {
	return &FixedKeys[uint16]{
		_name:      "KeysU16",
		_width:     2,
		_keyType:   common.USmallintType(),
		_fromBytes: binary.LittleEndian.Uint16,
		_toBytes: func(k uint16, b []byte) {
			binary.LittleEndian.PutUint16(b, k)
		},
		_newTable: func(int) hashtable.GroupHashTable[uint16] {
			return hashtable.NewShortFixedTable[uint16]()
		},
		_column: func(keys []uint16) *chunk.Vector {
			return chunk.NewFlatVector(common.USmallintType(), keys)
		},
	}
}

func NewKeysU32() *FixedKeys[uint32] {
	return &FixedKeys[uint32]{
		_name:      "KeysU32",
		_width:     4,
		_keyType:   common.UIntegerType(),
		_fromBytes: binary.LittleEndian.Uint32,
		_toBytes: func(k uint32, b []byte) {
			binary.LittleEndian.PutUint32(b, k)
		},
		_newTable: func(initCap int) hashtable.GroupHashTable[uint32] {
			return hashtable.NewFixedTable[uint32](initCap, hashtable.HashUint32)
		},
		_column: func(keys []uint32) *chunk.Vector {
			return chunk.NewFlatVector(common.UIntegerType(), keys)
		},
	}
}

func NewKeysU64() *FixedKeys[uint64] {
	return &FixedKeys[uint64]{
		_name:      "KeysU64",
		_width:     8,
		_keyType:   common.UbigintType(),
		_fromBytes: binary.LittleEndian.Uint64,
		_toBytes: func(k uint64, b []byte) {
			binary.LittleEndian.PutUint64(b, k)
		},
		_newTable: func(initCap int) hashtable.GroupHashTable[uint64] {
			return hashtable.NewFixedTable[uint64](initCap, hashtable.HashUint64)
		},
		_column: func(keys []uint64) *chunk.Vector {
			return chunk.NewFlatVector(common.UbigintType(), keys)
		},
	}
}

func NewKeysU128() *FixedKeys[hashtable.Key128] {
	return &FixedKeys[hashtable.Key128]{
		_name:    "KeysU128",
		_width:   16,
		_keyType: common.BlobType(),
		_fromBytes: func(b []byte) (k hashtable.Key128) {
			copy(k[:], b)
			return
		},
		_toBytes: func(k hashtable.Key128, b []byte) {
			copy(b, k[:])
		},
		_newTable: func(initCap int) hashtable.GroupHashTable[hashtable.Key128] {
			return hashtable.NewFixedTable[hashtable.Key128](initCap, hashtable.HashKey128)
		},
		_column: func(keys []hashtable.Key128) *chunk.Vector {
			vals := make([][]byte, len(keys))
			for i := range keys {
				vals[i] = keys[i][:]
			}
			return chunk.NewFlatVector(common.BlobType(), vals)
		},
	}
}

func NewKeysU256() *FixedKeys[hashtable.Key256] {
	return &FixedKeys[hashtable.Key256]{
		_name:    "KeysU256",
		_width:   32,
		_keyType: common.BlobType(),
		_fromBytes: func(b []byte) (k hashtable.Key256) {
			copy(k[:], b)
			return
		},
		_toBytes: func(k hashtable.Key256, b []byte) {
			copy(b, k[:])
		},
		_newTable: func(initCap int) hashtable.GroupHashTable[hashtable.Key256] {
			return hashtable.NewFixedTable[hashtable.Key256](initCap, hashtable.HashKey256)
		},
		_column: func(keys []hashtable.Key256) *chunk.Vector {
			vals := make([][]byte, len(keys))
			for i := range keys {
				vals[i] = keys[i][:]
			}
			return chunk.NewFlatVector(common.BlobType(), vals)
		},
	}
}

func (fk *FixedKeys[K]) Name() string {
	return fk._name
}

func (fk *FixedKeys[K]) Width() int {
	return fk._width
}

func (fk *FixedKeys[K]) KeyType() common.LType {
	return fk._keyType
}

func (fk *FixedKeys[K]) NewTable(initCap int) hashtable.GroupHashTable[K] {
	return fk._newTable(initCap)
}

func (fk *FixedKeys[K]) KeyColumn(keys []K) *chunk.Vector {
	return fk._column(keys)
}

// checkTypes verifies that the columns fit in the key width.
func (fk *FixedKeys[K]) checkTypes(types []common.LType) error {
	total := 0
	for i, typ := range types {
		if !typ.GetInternalType().IsFixedWidth() {
			return schemaError("%s can not pack group column %d of type %s", fk._name, i, typ)
		}
		total += typ.GetInternalType().Size()
	}
	if total > fk._width {
		return schemaError("%s can not pack %d bytes of group columns", fk._name, total)
	}
	return nil
}

func (fk *FixedKeys[K]) BuildKeys(cols []*chunk.Vector, rows int) ([]K, error) {
	types := make([]common.LType, len(cols))
	for i, col := range cols {
		types[i] = col.Typ()
	}
	if err := fk.checkTypes(types); err != nil {
		return nil, err
	}
	packed := make([]byte, rows*fk._width)
	offset := 0
	for i, col := range cols {
		if col.Count() < rows {
			return nil, schemaError("group column %d has %d rows, expect %d", i, col.Count(), rows)
		}
		for r := 0; r < rows; r++ {
			if col.IsNull(r) {
				return nil, schemaError("%s does not support NULL in group column %d", fk._name, i)
			}
		}
		packColumn(col, rows, fk._width, offset, packed)
		offset += col.Typ().GetInternalType().Size()
	}
	keys := make([]K, rows)
	for r := range keys {
		keys[r] = fk._fromBytes(packed[r*fk._width : (r+1)*fk._width])
	}
	return keys, nil
}

func (fk *FixedKeys[K]) DecodeKeys(keys *chunk.Vector, types []common.LType) ([]*chunk.Vector, error) {
	if err := fk.checkTypes(types); err != nil {
		return nil, err
	}
	if !keys.Typ().Equal(fk._keyType) {
		return nil, schemaError("%s key column is %s, expect %s", fk._name, keys.Typ(), fk._keyType)
	}
	rows := keys.Count()
	raw := make([]byte, fk._width)
	ret := make([]*chunk.Vector, len(types))
	for i, typ := range types {
		ret[i] = chunk.NewVector(typ, rows)
	}
	for r := 0; r < rows; r++ {
		switch fk._keyType.GetInternalType() {
		case common.BLOB:
			b := chunk.GetSlice[[]byte](keys)[r]
			if len(b) != fk._width {
				return nil, schemaError("%s key of %d bytes, expect %d", fk._name, len(b), fk._width)
			}
			copy(raw, b)
		default:
			fk._toBytes(chunk.GetSlice[K](keys)[r], raw)
		}
		offset := 0
		for i, typ := range types {
			size := typ.GetInternalType().Size()
			ret[i].AppendValue(fixedValue(typ, raw[offset:offset+size]))
			offset += size
		}
	}
	return ret, nil
}

func packInts[T int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64](
	data []T, rows, stride, offset, size int, out []byte) {
	for r := 0; r < rows; r++ {
		v := uint64(data[r])
		base := r*stride + offset
		for b := 0; b < size; b++ {
			out[base+b] = byte(v >> (8 * b))
		}
	}
}

// packColumn writes the little endian value of every row of col at
// out[row*stride+offset].
func packColumn(col *chunk.Vector, rows, stride, offset int, out []byte) {
	switch col.Typ().GetInternalType() {
	case common.BOOL:
		data := chunk.GetSlice[bool](col)
		for r := 0; r < rows; r++ {
			if data[r] {
				out[r*stride+offset] = 1
			}
		}
	case common.INT8:
		packInts(chunk.GetSlice[int8](col), rows, stride, offset, 1, out)
	case common.INT16:
		packInts(chunk.GetSlice[int16](col), rows, stride, offset, 2, out)
	case common.INT32:
		packInts(chunk.GetSlice[int32](col), rows, stride, offset, 4, out)
	case common.INT64:
		packInts(chunk.GetSlice[int64](col), rows, stride, offset, 8, out)
	case common.UINT8:
		packInts(chunk.GetSlice[uint8](col), rows, stride, offset, 1, out)
	case common.UINT16:
		packInts(chunk.GetSlice[uint16](col), rows, stride, offset, 2, out)
	case common.UINT32:
		packInts(chunk.GetSlice[uint32](col), rows, stride, offset, 4, out)
	case common.UINT64:
		packInts(chunk.GetSlice[uint64](col), rows, stride, offset, 8, out)
	case common.FLOAT:
		data := chunk.GetSlice[float32](col)
		for r := 0; r < rows; r++ {
			binary.LittleEndian.PutUint32(out[r*stride+offset:], float32Bits(data[r]))
		}
	case common.DOUBLE:
		data := chunk.GetSlice[float64](col)
		for r := 0; r < rows; r++ {
			binary.LittleEndian.PutUint64(out[r*stride+offset:], float64Bits(data[r]))
		}
	default:
		panic(fmt.Sprintf("usp pack type %s", col.Typ()))
	}
}

// float32Bits maps -0 to 0 and every NaN to one NaN, so equal keys
// pack to equal bytes.
func float32Bits(f float32) uint32 {
	switch {
	case f == 0:
		return 0
	case math.IsNaN(float64(f)):
		return 0x7fc00000
	}
	return math.Float32bits(f)
}

func float64Bits(f float64) uint64 {
	switch {
	case f == 0:
		return 0
	case math.IsNaN(f):
		return 0x7ff8000000000000
	}
	return math.Float64bits(f)
}

// fixedValue reads a little endian value of typ.
func fixedValue(typ common.LType, b []byte) *chunk.Value {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	ret := &chunk.Value{Typ: typ}
	switch typ.GetInternalType() {
	case common.BOOL:
		ret.Bool = v != 0
	case common.INT8:
		ret.I64 = int64(int8(v))
	case common.INT16:
		ret.I64 = int64(int16(v))
	case common.INT32:
		ret.I64 = int64(int32(v))
	case common.INT64:
		ret.I64 = int64(v)
	case common.UINT8, common.UINT16, common.UINT32, common.UINT64:
		ret.U64 = v
	case common.FLOAT:
		ret.F64 = float64(math.Float32frombits(uint32(v)))
	case common.DOUBLE:
		ret.F64 = math.Float64frombits(v)
	default:
		panic(fmt.Sprintf("usp fixed type %s", typ))
	}
	return ret
}
