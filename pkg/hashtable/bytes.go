package hashtable

import (
	"bytes"

	"go.uber.org/zap"

	"github.com/daviszhen/groupby/pkg/arena"
	"github.com/daviszhen/groupby/pkg/util"
)

const keyChunkSize = 64 * 1024

// keyArena owns the bytes of stored keys. Chunks are never grown in
// place, so a key slice stays valid for the table lifetime.
type keyArena struct {
	_chunks [][]byte
}

func (ka *keyArena) copy(key []byte) []byte {
	n := len(key)
	if n == 0 {
		return []byte{}
	}
	if len(ka._chunks) == 0 || cap(ka.tail())-len(ka.tail()) < n {
		ka._chunks = append(ka._chunks, make([]byte, 0, max(keyChunkSize, n)))
	}
	tail := ka.tail()
	start := len(tail)
	tail = append(tail, key...)
	ka._chunks[len(ka._chunks)-1] = tail
	return tail[start : start+n : start+n]
}

func (ka *keyArena) tail() []byte {
	return ka._chunks[len(ka._chunks)-1]
}

func (ka *keyArena) reserved() int {
	ret := 0
	for _, c := range ka._chunks {
		ret += cap(c)
	}
	return ret
}

// bytesEntry is a slot for a variable length key. The key slice
// refers to the table key arena, never to the caller input.
type bytesEntry struct {
	hash  uint64
	key   []byte
	value arena.StateAddr
	fill  bool
}

func (ent *bytesEntry) Key() []byte {
	return ent.key
}

func (ent *bytesEntry) SetValue(addr arena.StateAddr) {
	ent.value = addr
}

func (ent *bytesEntry) Value() arena.StateAddr {
	return ent.value
}

// BytesTable is an open addressing table over byte string keys. The
// empty key is a legal key, fill marks used slots.
type BytesTable struct {
	_slots    []bytesEntry
	_capacity int
	_bitmask  uint64
	_count    int
	_keys     keyArena
	_resizes  int
}

func NewBytesTable(initCap int) *BytesTable {
	initCap = int(util.NextPowerOfTwo(uint64(max(initCap, 4))))
	bt := &BytesTable{}
	bt.Resize(initCap)
	return bt
}

func (bt *BytesTable) InsertOrGet(key []byte) (StateEntity[[]byte], bool) {
	if bt._count+1 > bt.ResizeThreshold() {
		bt.Resize(bt._capacity * 2)
	}
	hash := util.HashBytes(key)
	entIdx := hash & bt._bitmask
	for {
		ent := &bt._slots[entIdx]
		if !ent.fill {
			ent.fill = true
			ent.hash = hash
			ent.key = bt._keys.copy(key)
			bt._count++
			return ent, true
		}
		if ent.hash == hash && bytes.Equal(ent.key, key) {
			return ent, false
		}
		entIdx = (entIdx + 1) & bt._bitmask
	}
}

func (bt *BytesTable) Resize(size int) {
	util.AssertFunc(util.IsPowerOfTwo(uint64(size)))
	util.AssertFunc(size >= bt._capacity)
	old := bt._slots
	bt._capacity = size
	bt._bitmask = uint64(size - 1)
	bt._slots = make([]bytesEntry, size)
	if old == nil {
		return
	}
	bt._resizes++
	util.Debug("bytes table resize",
		zap.Int("from", len(old)),
		zap.Int("to", size),
		zap.Int("count", bt._count),
		zap.Int("keyBytes", bt._keys.reserved()))
	for i := range old {
		if !old[i].fill {
			continue
		}
		entIdx := old[i].hash & bt._bitmask
		for bt._slots[entIdx].fill {
			entIdx = (entIdx + 1) & bt._bitmask
		}
		bt._slots[entIdx] = old[i]
	}
}

func (bt *BytesTable) ResizeThreshold() int {
	return int(float32(bt._capacity) / LOAD_FACTOR)
}

func (bt *BytesTable) Len() int {
	return bt._count
}

func (bt *BytesTable) Capacity() int {
	return bt._capacity
}

func (bt *BytesTable) Resizes() int {
	return bt._resizes
}

func (bt *BytesTable) KeyBytes() int {
	return bt._keys.reserved()
}

func (bt *BytesTable) ForEach(fn func(ent StateEntity[[]byte]) error) error {
	for i := range bt._slots {
		ent := &bt._slots[i]
		if !ent.fill {
			continue
		}
		if err := fn(ent); err != nil {
			return err
		}
	}
	return nil
}
