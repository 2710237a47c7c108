package chunk

import (
	"github.com/daviszhen/groupby/pkg/common"
)

// BinaryBuilder is a growable binary column. Values are stored back
// to back in one buffer and split by offsets at Finish.
type BinaryBuilder struct {
	_data    []byte
	_offsets []int
}

func NewBinaryBuilder(rows, bytes int) *BinaryBuilder {
	b := &BinaryBuilder{
		_data:    make([]byte, 0, bytes),
		_offsets: make([]int, 1, rows+1),
	}
	return b
}

func (b *BinaryBuilder) Len() int {
	return len(b._offsets) - 1
}

func (b *BinaryBuilder) Append(v []byte) {
	b._data = append(b._data, v...)
	b._offsets = append(b._offsets, len(b._data))
}

// AppendFunc lets fn append one value directly to the builder buffer.
func (b *BinaryBuilder) AppendFunc(fn func(buf []byte) ([]byte, error)) error {
	data, err := fn(b._data)
	if err != nil {
		b._data = b._data[:b._offsets[len(b._offsets)-1]]
		return err
	}
	b._data = data
	b._offsets = append(b._offsets, len(b._data))
	return nil
}

// Finish returns a BLOB vector. The vector shares the builder buffer,
// so the builder must not be used afterwards.
func (b *BinaryBuilder) Finish() *Vector {
	vals := make([][]byte, b.Len())
	for i := range vals {
		vals[i] = b._data[b._offsets[i]:b._offsets[i+1]:b._offsets[i+1]]
	}
	return NewFlatVector(common.BlobType(), vals)
}
