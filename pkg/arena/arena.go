package arena

import (
	"fmt"

	"github.com/tidwall/btree"
	"go.uber.org/zap"

	"github.com/daviszhen/groupby/pkg/util"
)

const DefaultChunkSize = 64 * 1024

type allocation struct {
	addr   StateAddr
	size   int
	inited bool
}

func allocationLess(a, b *allocation) bool {
	return a.addr < b.addr
}

// Arena is a bump allocator for state blocks. Memory handed out is
// never moved or reused. It is released as a whole by Release.
//
// With verify on, every allocation is indexed so that Place accessors
// can check they stay inside one allocation and that the allocation
// has been initialized.
type Arena struct {
	_chunkSize int
	_chunks    [][]byte
	//chunk that the next small allocation bumps into
	_cur       int
	_used      int
	_allocated int
	_count     int

	_verify bool
	_allocs *btree.BTreeG[*allocation]

	//states that are not plain bytes. id = index + 1
	_objects []any
}

func NewArena(chunkSize int, verify bool) *Arena {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	a := &Arena{
		_chunkSize: chunkSize,
		_cur:       -1,
		_verify:    verify,
	}
	if verify {
		a._allocs = btree.NewBTreeG[*allocation](allocationLess)
	}
	return a
}

// Alloc reserves zeroed memory for one block of the layout.
func (a *Arena) Alloc(layout Layout) StateAddr {
	size := max(layout.Size, 1)
	align := max(layout.Align, 1)
	var addr StateAddr
	if size > a._chunkSize/2 {
		//oversized blocks get a chunk of their own and leave the
		//current chunk for small ones
		a._chunks = append(a._chunks, make([]byte, size))
		addr = makeAddr(len(a._chunks)-1, 0)
	} else {
		offset := 0
		if a._cur >= 0 {
			offset = util.AlignValue(a._used, align)
		}
		if a._cur < 0 || offset+size > len(a._chunks[a._cur]) {
			a._chunks = append(a._chunks, make([]byte, a._chunkSize))
			a._cur = len(a._chunks) - 1
			offset = 0
			util.Debug("arena grow",
				zap.Int("chunks", len(a._chunks)),
				zap.Int("chunkSize", a._chunkSize))
		}
		a._used = offset + size
		addr = makeAddr(a._cur, offset)
	}
	a._allocated += size
	a._count++
	if a._verify {
		a._allocs.Set(&allocation{addr: addr, size: size})
	}
	return addr
}

// MarkInitialized records that every state in the block at addr has
// been initialized.
func (a *Arena) MarkInitialized(addr StateAddr) {
	if !a._verify {
		return
	}
	alloc, has := a._allocs.Get(&allocation{addr: addr})
	if !has {
		panic(fmt.Sprintf("mark unknown state address %s", addr))
	}
	alloc.inited = true
}

// CheckInitialized reports an error if addr is not the start of an
// initialized block. Without verify it only checks the chunk bounds.
func (a *Arena) CheckInitialized(addr StateAddr) error {
	if err := a.checkChunk(addr, 0); err != nil {
		return err
	}
	if !a._verify {
		return nil
	}
	alloc, has := a._allocs.Get(&allocation{addr: addr})
	if !has {
		return fmt.Errorf("state address %s is not an allocation", addr)
	}
	if !alloc.inited {
		return fmt.Errorf("state at %s is not initialized", addr)
	}
	return nil
}

func (a *Arena) checkChunk(addr StateAddr, n int) error {
	if addr.IsNull() {
		return fmt.Errorf("null state address")
	}
	idx := addr.chunk()
	if idx < 0 || idx >= len(a._chunks) {
		return fmt.Errorf("state address %s out of arena", addr)
	}
	off := addr.offset()
	if off+n > len(a._chunks[idx]) {
		return fmt.Errorf("state address %s with %d bytes out of chunk", addr, n)
	}
	return nil
}

// checkAlloc finds the allocation holding addr and checks that n bytes
// from addr stay inside it.
func (a *Arena) checkAlloc(addr StateAddr, n int) error {
	var found *allocation
	a._allocs.Descend(&allocation{addr: addr}, func(item *allocation) bool {
		found = item
		return false
	})
	if found == nil || found.addr.chunk() != addr.chunk() {
		return fmt.Errorf("state address %s is not in any allocation", addr)
	}
	end := found.addr.offset() + found.size
	if addr.offset()+n > end {
		return fmt.Errorf("state address %s with %d bytes overruns allocation %s size %d",
			addr, n, found.addr, found.size)
	}
	return nil
}

func (a *Arena) bytes(addr StateAddr, n int) []byte {
	if err := a.checkChunk(addr, n); err != nil {
		panic(err)
	}
	if a._verify {
		if err := a.checkAlloc(addr, n); err != nil {
			panic(err)
		}
	}
	off := addr.offset()
	return a._chunks[addr.chunk()][off : off+n : off+n]
}

// Place returns an accessor for the state bytes at addr.
func (a *Arena) Place(addr StateAddr) Place {
	return Place{_arena: a, _addr: addr}
}

// NewObject stores v in the arena and returns its id. Ids start at 1,
// so a zeroed state never refers to an object.
func (a *Arena) NewObject(v any) uint32 {
	a._objects = append(a._objects, v)
	return uint32(len(a._objects))
}

func (a *Arena) Object(id uint32) any {
	util.AssertFunc(id > 0 && int(id) <= len(a._objects))
	return a._objects[id-1]
}

func (a *Arena) SetObject(id uint32, v any) {
	util.AssertFunc(id > 0 && int(id) <= len(a._objects))
	a._objects[id-1] = v
}

// Allocated is the number of bytes handed out.
func (a *Arena) Allocated() int {
	return a._allocated
}

// Reserved is the number of bytes held by the chunks.
func (a *Arena) Reserved() int {
	ret := 0
	for _, c := range a._chunks {
		ret += len(c)
	}
	return ret
}

func (a *Arena) Count() int {
	return a._count
}

func (a *Arena) Objects() int {
	return len(a._objects)
}

func (a *Arena) Verify() bool {
	return a._verify
}

// Release drops all memory. Addresses issued before are invalid.
func (a *Arena) Release() {
	a._chunks = nil
	a._objects = nil
	a._cur = -1
	a._used = 0
	a._allocated = 0
	a._count = 0
	if a._verify {
		a._allocs = btree.NewBTreeG[*allocation](allocationLess)
	}
}
