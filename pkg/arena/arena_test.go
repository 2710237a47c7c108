package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLayoutOffsets(t *testing.T) {
	tests := []struct {
		name    string
		in      []Layout
		want    Layout
		offsets []int
	}{
		{
			name:    "empty",
			in:      nil,
			want:    Layout{Size: 0, Align: 1},
			offsets: []int{},
		},
		{
			name:    "count sum",
			in:      []Layout{NewLayout(8, 8), NewLayout(9, 8)},
			want:    Layout{Size: 24, Align: 8},
			offsets: []int{0, 8},
		},
		{
			name:    "byte then u64",
			in:      []Layout{NewLayout(1, 1), NewLayout(8, 8), NewLayout(4, 4)},
			want:    Layout{Size: 24, Align: 8},
			offsets: []int{0, 8, 16},
		},
		{
			name:    "small aligns",
			in:      []Layout{NewLayout(2, 2), NewLayout(1, 1), NewLayout(4, 4)},
			want:    Layout{Size: 8, Align: 4},
			offsets: []int{0, 2, 4},
		},
		{
			name:    "zero sized state",
			in:      []Layout{NewLayout(0, 1), NewLayout(8, 8)},
			want:    Layout{Size: 8, Align: 8},
			offsets: []int{0, 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, offsets := GetLayoutOffsets(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.offsets, offsets)
			for i, off := range offsets {
				assert.Zero(t, off%tt.in[i].Align)
				if i > 0 {
					assert.GreaterOrEqual(t, off, offsets[i-1]+tt.in[i-1].Size)
				}
			}
		})
	}
}

func TestNewLayoutBadAlign(t *testing.T) {
	assert.Panics(t, func() {
		NewLayout(8, 3)
	})
}

func TestStateAddr(t *testing.T) {
	addr := makeAddr(2, 40)
	assert.False(t, addr.IsNull())
	assert.Equal(t, 2, addr.chunk())
	assert.Equal(t, 40, addr.offset())
	next := addr.Next(8)
	assert.Equal(t, 2, next.chunk())
	assert.Equal(t, 48, next.offset())
	assert.Equal(t, "2:48", next.String())
	assert.True(t, NullAddr.IsNull())
	assert.Panics(t, func() {
		NullAddr.Next(1)
	})
}

func TestArenaAlloc(t *testing.T) {
	a := NewArena(64, false)
	l := NewLayout(12, 8)
	seen := make(map[StateAddr]bool)
	for i := 0; i < 20; i++ {
		addr := a.Alloc(l)
		require.False(t, seen[addr])
		seen[addr] = true
		assert.Zero(t, addr.offset()%8)
	}
	assert.Equal(t, 20, a.Count())
	assert.Equal(t, 240, a.Allocated())
	//4 blocks of 16 fit one chunk
	assert.Equal(t, 5*64, a.Reserved())

	big := a.Alloc(NewLayout(100, 8))
	assert.Equal(t, 0, big.offset())
	small := a.Alloc(l)
	assert.NotEqual(t, big.chunk(), small.chunk())

	zero := a.Alloc(NewLayout(0, 1))
	assert.False(t, zero.IsNull())
}

func TestArenaAddressStability(t *testing.T) {
	a := NewArena(128, true)
	l := NewLayout(16, 8)
	addrs := make([]StateAddr, 0, 1000)
	for i := 0; i < 1000; i++ {
		addr := a.Alloc(l)
		a.Place(addr).PutUint64(uint64(i))
		a.Place(addr).Next(8).PutInt64(-int64(i))
		a.MarkInitialized(addr)
		addrs = append(addrs, addr)
	}
	for i, addr := range addrs {
		require.NoError(t, a.CheckInitialized(addr))
		assert.Equal(t, uint64(i), a.Place(addr).Uint64())
		assert.Equal(t, -int64(i), a.Place(addr).Next(8).Int64())
	}
}

func TestArenaVerify(t *testing.T) {
	a := NewArena(128, true)
	addr := a.Alloc(NewLayout(8, 8))
	assert.Error(t, a.CheckInitialized(addr))
	a.MarkInitialized(addr)
	assert.NoError(t, a.CheckInitialized(addr))

	//reading past the allocation must fail even inside the chunk
	assert.Panics(t, func() {
		a.Place(addr).Next(4).Uint64()
	})
	assert.Error(t, a.CheckInitialized(addr.Next(4)))
	assert.Error(t, a.CheckInitialized(makeAddr(7, 0)))
	assert.Error(t, a.CheckInitialized(NullAddr))
}

func TestArenaBoundsWithoutVerify(t *testing.T) {
	a := NewArena(32, false)
	addr := a.Alloc(NewLayout(8, 8))
	assert.NotPanics(t, func() {
		a.Place(addr).PutUint64(1)
	})
	assert.Panics(t, func() {
		a.Place(addr).Next(30).Uint64()
	})
	assert.Panics(t, func() {
		a.Place(makeAddr(3, 0)).Byte()
	})
}

func TestPlaceAccessors(t *testing.T) {
	a := NewArena(0, false)
	p := a.Place(a.Alloc(NewLayout(32, 8)))
	p.PutBool(true)
	p.Next(4).PutUint32(7)
	p.Next(8).PutFloat64(2.5)
	p.Next(16).PutInt64(-3)
	assert.True(t, p.Bool())
	assert.Equal(t, uint32(7), p.Next(4).Uint32())
	assert.Equal(t, 2.5, p.Next(8).Float64())
	assert.Equal(t, int64(-3), p.Next(16).Int64())

	obj := p.Next(24)
	_, has := obj.Object()
	assert.False(t, has)
	obj.SetObject("a")
	obj.SetObject("b")
	v, has := obj.Object()
	assert.True(t, has)
	assert.Equal(t, "b", v)
	assert.Equal(t, 1, a.Objects())

	a.Release()
	assert.Zero(t, a.Reserved())
	assert.Zero(t, a.Objects())
}
