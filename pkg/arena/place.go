package arena

import (
	"encoding/binary"
	"math"
)

// Place is a view of the state bytes at one address. Every accessor
// checks bounds against the arena before touching memory.
type Place struct {
	_arena *Arena
	_addr  StateAddr
}

func (p Place) Addr() StateAddr {
	return p._addr
}

func (p Place) Arena() *Arena {
	return p._arena
}

// Next returns the place offset bytes further.
func (p Place) Next(offset int) Place {
	return Place{_arena: p._arena, _addr: p._addr.Next(offset)}
}

func (p Place) Bytes(n int) []byte {
	return p._arena.bytes(p._addr, n)
}

func (p Place) Byte() byte {
	return p.Bytes(1)[0]
}

func (p Place) PutByte(v byte) {
	p.Bytes(1)[0] = v
}

func (p Place) Bool() bool {
	return p.Byte() != 0
}

func (p Place) PutBool(v bool) {
	if v {
		p.PutByte(1)
	} else {
		p.PutByte(0)
	}
}

func (p Place) Uint32() uint32 {
	return binary.LittleEndian.Uint32(p.Bytes(4))
}

func (p Place) PutUint32(v uint32) {
	binary.LittleEndian.PutUint32(p.Bytes(4), v)
}

func (p Place) Uint64() uint64 {
	return binary.LittleEndian.Uint64(p.Bytes(8))
}

func (p Place) PutUint64(v uint64) {
	binary.LittleEndian.PutUint64(p.Bytes(8), v)
}

func (p Place) Int64() int64 {
	return int64(p.Uint64())
}

func (p Place) PutInt64(v int64) {
	p.PutUint64(uint64(v))
}

func (p Place) Float64() float64 {
	return math.Float64frombits(p.Uint64())
}

func (p Place) PutFloat64(v float64) {
	p.PutUint64(math.Float64bits(v))
}

// Object returns the arena object whose id is stored at the place.
// The zero id means no object.
func (p Place) Object() (any, bool) {
	id := p.Uint32()
	if id == 0 {
		return nil, false
	}
	return p._arena.Object(id), true
}

// SetObject stores v, reusing the object slot if the place has one.
func (p Place) SetObject(v any) {
	id := p.Uint32()
	if id == 0 {
		p.PutUint32(p._arena.NewObject(v))
		return
	}
	p._arena.SetObject(id, v)
}
