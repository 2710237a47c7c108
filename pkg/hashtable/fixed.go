package hashtable

import (
	"go.uber.org/zap"

	"github.com/daviszhen/groupby/pkg/arena"
	"github.com/daviszhen/groupby/pkg/util"
)

// Key128 and Key256 hold composite keys packed by column.
type Key128 [16]byte

type Key256 [32]byte

func HashUint32(k uint32) uint64 {
	return util.HashU64(uint64(k))
}

func HashUint64(k uint64) uint64 {
	return util.HashU64(k)
}

func HashKey128(k Key128) uint64 {
	return util.HashBytes(k[:])
}

func HashKey256(k Key256) uint64 {
	return util.HashBytes(k[:])
}

type fixedEntry[K comparable] struct {
	key   K
	value arena.StateAddr
}

func (ent *fixedEntry[K]) Key() K {
	return ent.key
}

func (ent *fixedEntry[K]) SetValue(addr arena.StateAddr) {
	ent.value = addr
}

func (ent *fixedEntry[K]) Value() arena.StateAddr {
	return ent.value
}

// FixedTable is an open addressing table with linear probing. A slot
// holding the zero key is empty. The zero key itself lives in a cell
// outside the slots.
type FixedTable[K comparable] struct {
	_hasher   func(K) uint64
	_slots    []fixedEntry[K]
	_capacity int
	_bitmask  uint64
	_count    int
	_zeroCell fixedEntry[K]
	_hasZero  bool
	_resizes  int
}

func NewFixedTable[K comparable](initCap int, hasher func(K) uint64) *FixedTable[K] {
	initCap = int(util.NextPowerOfTwo(uint64(max(initCap, 4))))
	ft := &FixedTable[K]{
		_hasher: hasher,
	}
	ft.Resize(initCap)
	return ft
}

func (ft *FixedTable[K]) InsertOrGet(key K) (StateEntity[K], bool) {
	var zero K
	if key == zero {
		if ft._hasZero {
			return &ft._zeroCell, false
		}
		ft._hasZero = true
		ft._zeroCell = fixedEntry[K]{key: key}
		return &ft._zeroCell, true
	}
	if ft._count+1 > ft.ResizeThreshold() {
		ft.Resize(ft._capacity * 2)
	}
	hash := ft._hasher(key)
	entIdx := hash & ft._bitmask
	for {
		ent := &ft._slots[entIdx]
		if ent.key == zero {
			ent.key = key
			ft._count++
			return ent, true
		}
		if ent.key == key {
			return ent, false
		}
		entIdx = (entIdx + 1) & ft._bitmask
	}
}

// Resize rehashes the slots into a table of size slots. Stored state
// addresses move with their keys.
func (ft *FixedTable[K]) Resize(size int) {
	util.AssertFunc(util.IsPowerOfTwo(uint64(size)))
	util.AssertFunc(size >= ft._capacity)
	old := ft._slots
	ft._capacity = size
	ft._bitmask = uint64(size - 1)
	ft._slots = make([]fixedEntry[K], size)
	if old == nil {
		return
	}
	ft._resizes++
	util.Debug("fixed table resize",
		zap.Int("from", len(old)),
		zap.Int("to", size),
		zap.Int("count", ft._count))
	var zero K
	for i := range old {
		if old[i].key == zero {
			continue
		}
		entIdx := ft._hasher(old[i].key) & ft._bitmask
		for ft._slots[entIdx].key != zero {
			entIdx = (entIdx + 1) & ft._bitmask
		}
		ft._slots[entIdx] = old[i]
	}
}

func (ft *FixedTable[K]) ResizeThreshold() int {
	return int(float32(ft._capacity) / LOAD_FACTOR)
}

func (ft *FixedTable[K]) Len() int {
	if ft._hasZero {
		return ft._count + 1
	}
	return ft._count
}

func (ft *FixedTable[K]) Capacity() int {
	return ft._capacity
}

func (ft *FixedTable[K]) Resizes() int {
	return ft._resizes
}

// ForEach visits the zero key first, then the slots in table order.
func (ft *FixedTable[K]) ForEach(fn func(ent StateEntity[K]) error) error {
	if ft._hasZero {
		if err := fn(&ft._zeroCell); err != nil {
			return err
		}
	}
	var zero K
	for i := range ft._slots {
		ent := &ft._slots[i]
		if ent.key == zero {
			continue
		}
		if err := fn(ent); err != nil {
			return err
		}
	}
	return nil
}
