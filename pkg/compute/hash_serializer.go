package compute

import (
	"encoding/binary"
	"fmt"

	"github.com/govalues/decimal"

	"github.com/daviszhen/groupby/pkg/chunk"
	"github.com/daviszhen/groupby/pkg/common"
	"github.com/daviszhen/groupby/pkg/hashtable"
)

const (
	serNull  byte = 0
	serValid byte = 1
)

// Serializer concatenates the group column values of a row into a
// byte string key. Each column is a flag byte, then the little endian
// value for fixed width types or a uvarint length and the bytes for
// VARCHAR, BLOB and DECIMAL text. NULL has the flag only.
type Serializer struct{}

func NewSerializer() *Serializer {
	return &Serializer{}
}

func (*Serializer) Name() string {
	return "Serializer"
}

func (*Serializer) KeyType() common.LType {
	return common.BlobType()
}

func (*Serializer) NewTable(initCap int) hashtable.GroupHashTable[[]byte] {
	return hashtable.NewBytesTable(initCap)
}

func (*Serializer) KeyColumn(keys [][]byte) *chunk.Vector {
	return chunk.NewFlatVector(common.BlobType(), keys)
}

type colEncoder func(buf []byte, row int) []byte

func newEncoder(col *chunk.Vector) (colEncoder, error) {
	typ := col.Typ()
	pTyp := typ.GetInternalType()
	var enc colEncoder
	switch {
	case pTyp.IsFixedWidth():
		size := pTyp.Size()
		var scratch [8]byte
		enc = func(buf []byte, row int) []byte {
			putFixed(col, row, scratch[:size])
			return append(buf, scratch[:size]...)
		}
	case pTyp == common.DECIMAL:
		data := chunk.GetSlice[decimal.Decimal](col)
		enc = func(buf []byte, row int) []byte {
			return appendLenBytes(buf, []byte(data[row].Trim(0).String()))
		}
	case pTyp == common.VARCHAR:
		data := chunk.GetSlice[string](col)
		enc = func(buf []byte, row int) []byte {
			buf = binary.AppendUvarint(buf, uint64(len(data[row])))
			return append(buf, data[row]...)
		}
	case pTyp == common.BLOB:
		data := chunk.GetSlice[[]byte](col)
		enc = func(buf []byte, row int) []byte {
			return appendLenBytes(buf, data[row])
		}
	default:
		return nil, schemaError("Serializer can not encode type %s", typ)
	}
	return func(buf []byte, row int) []byte {
		if col.IsNull(row) {
			return append(buf, serNull)
		}
		return enc(append(buf, serValid), row)
	}, nil
}

func appendLenBytes(buf []byte, v []byte) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(v)))
	return append(buf, v...)
}

// putFixed writes the little endian value of one row to out.
func putFixed(col *chunk.Vector, row int, out []byte) {
	var v uint64
	switch col.Typ().GetInternalType() {
	case common.BOOL:
		if chunk.GetSlice[bool](col)[row] {
			v = 1
		}
	case common.INT8:
		v = uint64(chunk.GetSlice[int8](col)[row])
	case common.INT16:
		v = uint64(chunk.GetSlice[int16](col)[row])
	case common.INT32:
		v = uint64(chunk.GetSlice[int32](col)[row])
	case common.INT64:
		v = uint64(chunk.GetSlice[int64](col)[row])
	case common.UINT8:
		v = uint64(chunk.GetSlice[uint8](col)[row])
	case common.UINT16:
		v = uint64(chunk.GetSlice[uint16](col)[row])
	case common.UINT32:
		v = uint64(chunk.GetSlice[uint32](col)[row])
	case common.UINT64:
		v = chunk.GetSlice[uint64](col)[row]
	case common.FLOAT:
		v = uint64(float32Bits(chunk.GetSlice[float32](col)[row]))
	case common.DOUBLE:
		v = float64Bits(chunk.GetSlice[float64](col)[row])
	default:
		panic(fmt.Sprintf("usp fixed type %s", col.Typ()))
	}
	for i := range out {
		out[i] = byte(v >> (8 * i))
	}
}

func (s *Serializer) BuildKeys(cols []*chunk.Vector, rows int) ([][]byte, error) {
	encs := make([]colEncoder, len(cols))
	for i, col := range cols {
		if col.Count() < rows {
			return nil, schemaError("group column %d has %d rows, expect %d", i, col.Count(), rows)
		}
		enc, err := newEncoder(col)
		if err != nil {
			return nil, err
		}
		encs[i] = enc
	}
	buf := make([]byte, 0, rows*8*max(len(cols), 1))
	ends := make([]int, rows)
	for r := 0; r < rows; r++ {
		for _, enc := range encs {
			buf = enc(buf, r)
		}
		ends[r] = len(buf)
	}
	keys := make([][]byte, rows)
	start := 0
	for r := range keys {
		keys[r] = buf[start:ends[r]:ends[r]]
		start = ends[r]
	}
	return keys, nil
}

func (s *Serializer) DecodeKeys(keys *chunk.Vector, types []common.LType) ([]*chunk.Vector, error) {
	if !keys.Typ().Equal(common.BlobType()) {
		return nil, schemaError("Serializer key column is %s, expect BLOB", keys.Typ())
	}
	rows := keys.Count()
	ret := make([]*chunk.Vector, len(types))
	for i, typ := range types {
		ret[i] = chunk.NewVector(typ, rows)
	}
	data := chunk.GetSlice[[]byte](keys)
	for r := 0; r < rows; r++ {
		b := data[r]
		for i, typ := range types {
			if len(b) == 0 {
				return nil, schemaError("Serializer key %d is truncated", r)
			}
			flag := b[0]
			b = b[1:]
			if flag == serNull {
				ret[i].AppendNull()
				continue
			}
			val, rest, err := decodeValue(typ, b)
			if err != nil {
				return nil, err
			}
			b = rest
			ret[i].AppendValue(val)
		}
		if len(b) != 0 {
			return nil, schemaError("Serializer key %d has %d trailing bytes", r, len(b))
		}
	}
	return ret, nil
}

func decodeValue(typ common.LType, b []byte) (*chunk.Value, []byte, error) {
	pTyp := typ.GetInternalType()
	if pTyp.IsFixedWidth() {
		size := pTyp.Size()
		if len(b) < size {
			return nil, nil, schemaError("Serializer value of %s is truncated", typ)
		}
		return fixedValue(typ, b[:size]), b[size:], nil
	}
	n, used := binary.Uvarint(b)
	if used <= 0 || uint64(len(b)-used) < n {
		return nil, nil, schemaError("Serializer value of %s is truncated", typ)
	}
	raw := b[used : used+int(n)]
	rest := b[used+int(n):]
	val := &chunk.Value{Typ: typ}
	switch pTyp {
	case common.VARCHAR:
		val.Str = string(raw)
	case common.BLOB:
		val.Bytes = raw
	case common.DECIMAL:
		dec, err := decimal.Parse(string(raw))
		if err != nil {
			return nil, nil, schemaError("Serializer decimal %q: %v", raw, err)
		}
		val.Dec = dec
	default:
		return nil, nil, schemaError("Serializer can not decode type %s", typ)
	}
	return val, rest, nil
}
