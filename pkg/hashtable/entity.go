package hashtable

import (
	"github.com/daviszhen/groupby/pkg/arena"
)

// StateEntity is a filled slot of a group table. It exposes the key
// and the address of the group states.
//
// An entity points into table memory. It stays valid until the next
// insert into the same table.
type StateEntity[K any] interface {
	Key() K
	SetValue(addr arena.StateAddr)
	Value() arena.StateAddr
}

// GroupHashTable maps a group key to its state address. Each distinct
// key is stored once. Growing the table may move slots, never the
// arena memory the stored addresses point to.
type GroupHashTable[K any] interface {
	// InsertOrGet returns the slot of key and whether it was created.
	InsertOrGet(key K) (StateEntity[K], bool)
	// Len is the number of filled slots.
	Len() int
	// ForEach visits the filled slots only. It stops at the first error.
	ForEach(fn func(ent StateEntity[K]) error) error
	// Capacity is the number of slots.
	Capacity() int
}

const (
	LOAD_FACTOR = 1.5
)
