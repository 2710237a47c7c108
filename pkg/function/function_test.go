package function

import (
	"encoding/binary"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/govalues/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daviszhen/groupby/pkg/arena"
	"github.com/daviszhen/groupby/pkg/chunk"
	"github.com/daviszhen/groupby/pkg/common"
)

// runGroups folds rows into len(groups) states, where groups[i] is
// the group of row i, and returns the places of the states.
func runGroups(t *testing.T, fun AggregateFunction, ngroups int, groups []int, args ...*chunk.Vector) []arena.Place {
	ar := arena.NewArena(256, true)
	layout := fun.StateLayout()
	states := make([]arena.StateAddr, ngroups)
	for i := range states {
		states[i] = ar.Alloc(layout)
		fun.InitState(ar.Place(states[i]))
		ar.MarkInitialized(states[i])
	}
	addrs := make([]arena.StateAddr, len(groups))
	for i, g := range groups {
		addrs[i] = states[g]
	}
	require.NoError(t, fun.Accumulate(ar, addrs, 0, args, len(groups)))
	ret := make([]arena.Place, ngroups)
	for i, addr := range states {
		ret[i] = ar.Place(addr)
	}
	return ret
}

func result(t *testing.T, fun AggregateFunction, place arena.Place) *chunk.Value {
	val, err := fun.Result(place)
	require.NoError(t, err)
	return val
}

func int64Vec(vals []int64, nulls ...int) *chunk.Vector {
	vec := chunk.NewFlatVector(common.BigintType(), vals)
	for _, n := range nulls {
		vec.SetNull(n)
	}
	return vec
}

func TestRegistry(t *testing.T) {
	names := Names()
	assert.Equal(t, []string{"any_value", "approx_count_distinct", "avg", "count", "max", "min", "sum"}, names)
	assert.Len(t, Infos(), len(names))

	fun, err := Get("COUNT", nil)
	require.NoError(t, err)
	assert.Equal(t, "count", fun.Name())

	_, err = Get("median", []common.LType{common.BigintType()})
	assert.True(t, errors.Is(err, ErrUnknownFunction))

	_, err = Get("sum", []common.LType{common.BooleanType(), common.BigintType()})
	assert.True(t, errors.Is(err, ErrUnsupportedArgs))
	_, err = Get("sum", []common.LType{common.VarcharType()})
	assert.True(t, errors.Is(err, ErrUnsupportedArgs))
	_, err = Get("avg", []common.LType{common.BlobType()})
	assert.True(t, errors.Is(err, ErrUnsupportedArgs))
}

func TestCount(t *testing.T) {
	star, err := Get("count", nil)
	require.NoError(t, err)
	places := runGroups(t, star, 3, []int{0, 0, 1, 2, 1})
	assert.Equal(t, int64(2), result(t, star, places[0]).I64)
	assert.Equal(t, int64(2), result(t, star, places[1]).I64)
	assert.Equal(t, int64(1), result(t, star, places[2]).I64)

	buf, err := star.Serialize(places[0], nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), binary.LittleEndian.Uint64(buf))

	col, err := Get("count", []common.LType{common.BigintType()})
	require.NoError(t, err)
	places = runGroups(t, col, 2, []int{0, 0, 1}, int64Vec([]int64{1, 2, 3}, 1, 2))
	assert.Equal(t, int64(1), result(t, col, places[0]).I64)
	assert.Equal(t, int64(0), result(t, col, places[1]).I64)
}

func TestSum(t *testing.T) {
	fun, err := Get("sum", []common.LType{common.BigintType()})
	require.NoError(t, err)
	assert.Equal(t, arena.NewLayout(16, 8), fun.StateLayout())
	places := runGroups(t, fun, 2, []int{0, 1, 0}, int64Vec([]int64{5, 7, -2}))
	assert.Equal(t, int64(3), result(t, fun, places[0]).I64)
	assert.Equal(t, int64(7), result(t, fun, places[1]).I64)

	buf, err := fun.Serialize(places[0], nil)
	require.NoError(t, err)
	require.Len(t, buf, 9)
	assert.Equal(t, byte(1), buf[0])
	assert.Equal(t, uint64(3), binary.LittleEndian.Uint64(buf[1:]))

	//all NULL group
	places = runGroups(t, fun, 1, []int{0}, int64Vec([]int64{1}, 0))
	assert.True(t, result(t, fun, places[0]).IsNull)

	u8, err := Get("sum", []common.LType{common.UTinyintType()})
	require.NoError(t, err)
	places = runGroups(t, u8, 1, []int{0, 0},
		chunk.NewFlatVector(common.UTinyintType(), []uint8{200, 100}))
	assert.Equal(t, uint64(300), result(t, u8, places[0]).U64)

	f, err := Get("sum", []common.LType{common.DoubleType()})
	require.NoError(t, err)
	places = runGroups(t, f, 1, []int{0, 0},
		chunk.NewFlatVector(common.DoubleType(), []float64{1.25, 2.5}))
	assert.Equal(t, 3.75, result(t, f, places[0]).F64)
}

func TestSumOverflow(t *testing.T) {
	fun, err := Get("sum", []common.LType{common.BigintType()})
	require.NoError(t, err)
	ar := arena.NewArena(0, false)
	addr := ar.Alloc(fun.StateLayout())
	fun.InitState(ar.Place(addr))
	err = fun.Accumulate(ar, []arena.StateAddr{addr, addr}, 0,
		[]*chunk.Vector{int64Vec([]int64{1 << 62, 1 << 62})}, 2)
	assert.True(t, errors.Is(err, ErrOverflow))
}

func TestSumDecimal(t *testing.T) {
	typ := common.DecimalType(10, 2)
	fun, err := Get("sum", []common.LType{typ})
	require.NoError(t, err)
	assert.Equal(t, 2, fun.ReturnType().Scale)
	vec := chunk.NewFlatVector(typ, []decimal.Decimal{
		decimal.MustParse("1.25"),
		decimal.MustParse("2.50"),
		decimal.MustParse("9.99"),
	})
	places := runGroups(t, fun, 2, []int{0, 0, 1}, vec)
	assert.Equal(t, "3.75", result(t, fun, places[0]).Dec.String())
	assert.Equal(t, "9.99", result(t, fun, places[1]).Dec.String())

	buf, err := fun.Serialize(places[0], nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 4, '3', '.', '7', '5'}, buf)
}

func TestAvg(t *testing.T) {
	fun, err := Get("avg", []common.LType{common.IntegerType()})
	require.NoError(t, err)
	vec := chunk.NewFlatVector(common.IntegerType(), []int32{1, 2, 4, 0})
	vec.SetNull(3)
	places := runGroups(t, fun, 2, []int{0, 0, 0, 1}, vec)
	assert.InDelta(t, 7.0/3, result(t, fun, places[0]).F64, 1e-9)
	assert.True(t, result(t, fun, places[1]).IsNull)

	buf, err := fun.Serialize(places[0], nil)
	require.NoError(t, err)
	assert.Len(t, buf, 16)
	assert.Equal(t, uint64(3), binary.LittleEndian.Uint64(buf[8:]))

	typ := common.DecimalType(10, 2)
	dec, err := Get("avg", []common.LType{typ})
	require.NoError(t, err)
	dvec := chunk.NewFlatVector(typ, []decimal.Decimal{
		decimal.MustParse("1.00"),
		decimal.MustParse("2.00"),
	})
	places = runGroups(t, dec, 1, []int{0, 0}, dvec)
	val := result(t, dec, places[0])
	assert.Zero(t, val.Dec.Cmp(decimal.MustParse("1.5")))
}

func TestMinMax(t *testing.T) {
	vals := int64Vec([]int64{4, -1, 9, 3}, 3)
	groups := []int{0, 0, 0, 1}

	mn, err := Get("min", []common.LType{common.BigintType()})
	require.NoError(t, err)
	places := runGroups(t, mn, 2, groups, vals)
	assert.Equal(t, int64(-1), result(t, mn, places[0]).I64)
	assert.True(t, result(t, mn, places[1]).IsNull)

	mx, err := Get("max", []common.LType{common.BigintType()})
	require.NoError(t, err)
	places = runGroups(t, mx, 2, groups, vals)
	assert.Equal(t, int64(9), result(t, mx, places[0]).I64)

	anyv, err := Get("any_value", []common.LType{common.BigintType()})
	require.NoError(t, err)
	places = runGroups(t, anyv, 2, groups, vals)
	assert.Equal(t, int64(4), result(t, anyv, places[0]).I64)

	strs := chunk.NewFlatVector(common.VarcharType(), []string{"pear", "apple", "zoo"})
	smax, err := Get("max", []common.LType{common.VarcharType()})
	require.NoError(t, err)
	places = runGroups(t, smax, 1, []int{0, 0, 0}, strs)
	assert.Equal(t, "zoo", result(t, smax, places[0]).Str)
	buf, err := smax.Serialize(places[0], nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 3, 'z', 'o', 'o'}, buf)

	smin, err := Get("min", []common.LType{common.VarcharType()})
	require.NoError(t, err)
	places = runGroups(t, smin, 1, []int{0, 0, 0}, strs)
	assert.Equal(t, "apple", result(t, smin, places[0]).Str)

	typ := common.DecimalType(10, 2)
	dmin, err := Get("min", []common.LType{typ})
	require.NoError(t, err)
	places = runGroups(t, dmin, 1, []int{0, 0}, chunk.NewFlatVector(typ, []decimal.Decimal{
		decimal.MustParse("3.10"),
		decimal.MustParse("-0.50"),
	}))
	assert.Equal(t, "-0.50", result(t, dmin, places[0]).Dec.String())

	bmax, err := Get("max", []common.LType{common.BooleanType()})
	require.NoError(t, err)
	places = runGroups(t, bmax, 1, []int{0, 0},
		chunk.NewFlatVector(common.BooleanType(), []bool{false, true}))
	assert.True(t, result(t, bmax, places[0]).Bool)
}

func TestApproxCountDistinct(t *testing.T) {
	fun, err := Get("approx_count_distinct", []common.LType{common.VarcharType()})
	require.NoError(t, err)
	vals := make([]string, 0, 3000)
	groups := make([]int, 0, 3000)
	for i := 0; i < 3000; i++ {
		vals = append(vals, []string{"a", "b", "c", "d"}[i%4])
		groups = append(groups, 0)
	}
	places := runGroups(t, fun, 1, groups, chunk.NewFlatVector(common.VarcharType(), vals))
	assert.Equal(t, int64(4), result(t, fun, places[0]).I64)
	buf, err := fun.Serialize(places[0], nil)
	require.NoError(t, err)
	assert.NotEmpty(t, buf)
}

func TestAccumulateArgCheck(t *testing.T) {
	fun, err := Get("sum", []common.LType{common.BigintType()})
	require.NoError(t, err)
	ar := arena.NewArena(0, false)
	addr := ar.Alloc(fun.StateLayout())
	err = fun.Accumulate(ar, []arena.StateAddr{addr}, 0,
		[]*chunk.Vector{chunk.NewFlatVector(common.IntegerType(), []int32{1})}, 1)
	assert.Error(t, err)
	err = fun.Accumulate(ar, []arena.StateAddr{addr}, 0, nil, 1)
	assert.Error(t, err)
}

func TestAggrExprString(t *testing.T) {
	assert.Equal(t, "count(*)", AggrExpr{Func: "COUNT"}.String())
	assert.Equal(t, "sum(v)", AggrExpr{Func: "sum", Args: []string{"v"}}.String())
}
