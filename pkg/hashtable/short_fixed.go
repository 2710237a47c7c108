package hashtable

import (
	"github.com/daviszhen/groupby/pkg/arena"
)

// shortFixedEntry is a slot of a direct lookup table. The key value is
// the slot index, so key 0 and an empty slot look the same. fill tells
// them apart.
type shortFixedEntry[K uint8 | uint16] struct {
	key   K
	value arena.StateAddr
	fill  bool
}

func (ent *shortFixedEntry[K]) Key() K {
	return ent.key
}

func (ent *shortFixedEntry[K]) SetValue(addr arena.StateAddr) {
	ent.value = addr
}

func (ent *shortFixedEntry[K]) Value() arena.StateAddr {
	return ent.value
}

// ShortFixedTable has one slot per possible key value. It never grows.
type ShortFixedTable[K uint8 | uint16] struct {
	_slots []shortFixedEntry[K]
	_count int
}

func NewShortFixedTable[K uint8 | uint16]() *ShortFixedTable[K] {
	var maxKey K = ^K(0)
	return &ShortFixedTable[K]{
		_slots: make([]shortFixedEntry[K], int(maxKey)+1),
	}
}

func (sft *ShortFixedTable[K]) InsertOrGet(key K) (StateEntity[K], bool) {
	ent := &sft._slots[int(key)]
	if ent.fill {
		return ent, false
	}
	ent.fill = true
	ent.key = key
	sft._count++
	return ent, true
}

func (sft *ShortFixedTable[K]) Len() int {
	return sft._count
}

func (sft *ShortFixedTable[K]) Capacity() int {
	return len(sft._slots)
}

// ForEach visits keys in ascending order.
func (sft *ShortFixedTable[K]) ForEach(fn func(ent StateEntity[K]) error) error {
	for i := range sft._slots {
		ent := &sft._slots[i]
		if !ent.fill {
			continue
		}
		if err := fn(ent); err != nil {
			return err
		}
	}
	return nil
}
