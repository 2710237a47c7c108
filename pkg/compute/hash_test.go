package compute

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/govalues/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daviszhen/groupby/pkg/chunk"
	"github.com/daviszhen/groupby/pkg/common"
	"github.com/daviszhen/groupby/pkg/hashtable"
)

func decodeRows(t *testing.T, vecs []*chunk.Vector) [][]string {
	require.NotEmpty(t, vecs)
	ret := make([][]string, vecs[0].Count())
	for r := range ret {
		for _, vec := range vecs {
			ret[r] = append(ret[r], vec.GetValue(r).String())
		}
	}
	return ret
}

func TestFixedKeysPacking(t *testing.T) {
	a := chunk.NewFlatVector(common.SmallintType(), []int16{1, -1, 1})
	b := chunk.NewFlatVector(common.UTinyintType(), []uint8{2, 0, 2})
	c := chunk.NewFlatVector(common.BooleanType(), []bool{true, false, false})

	method := NewKeysU32()
	keys, err := method.BuildKeys([]*chunk.Vector{a, b, c}, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0x01_02_0001, 0x00_00_ffff, 0x00_02_0001}, keys)

	dec, err := method.DecodeKeys(method.KeyColumn(keys), []common.LType{a.Typ(), b.Typ(), c.Typ()})
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"1", "2", "true"},
		{"-1", "0", "false"},
		{"1", "2", "false"},
	}, decodeRows(t, dec))
}

func TestFixedKeysWide(t *testing.T) {
	a := chunk.NewFlatVector(common.BigintType(), []int64{-5, 1 << 40})
	b := chunk.NewFlatVector(common.IntegerType(), []int32{7, -7})
	d := chunk.NewFlatVector(common.DoubleType(), []float64{0.5, -2})
	types := []common.LType{a.Typ(), b.Typ(), d.Typ()}

	u128 := NewKeysU128()
	_, err := u128.BuildKeys([]*chunk.Vector{a, b, d}, 2)
	assert.True(t, errors.Is(err, ErrSchema))

	keys, err := u128.BuildKeys([]*chunk.Vector{a, b}, 2)
	require.NoError(t, err)
	assert.Equal(t, hashtable.Key128{0xfb, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 7}, keys[0])
	dec, err := u128.DecodeKeys(u128.KeyColumn(keys), types[:2])
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"-5", "7"}, {"1099511627776", "-7"}}, decodeRows(t, dec))

	u256 := NewKeysU256()
	keys2, err := u256.BuildKeys([]*chunk.Vector{a, b, d}, 2)
	require.NoError(t, err)
	dec, err = u256.DecodeKeys(u256.KeyColumn(keys2), types)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"-5", "7", "0.5"}, {"1099511627776", "-7", "-2"}}, decodeRows(t, dec))

	short := chunk.NewFlatVector(common.BlobType(), [][]byte{{1, 2}})
	_, err = u128.DecodeKeys(short, types[:2])
	assert.True(t, errors.Is(err, ErrSchema))
}

func TestFixedKeysErrors(t *testing.T) {
	str := chunk.NewFlatVector(common.VarcharType(), []string{"a"})
	_, err := NewKeysU64().BuildKeys([]*chunk.Vector{str}, 1)
	assert.True(t, errors.Is(err, ErrSchema))

	wide := chunk.NewFlatVector(common.IntegerType(), []int32{1})
	_, err = NewKeysU16().BuildKeys([]*chunk.Vector{wide}, 1)
	assert.True(t, errors.Is(err, ErrSchema))

	nulls := chunk.NewFlatVector(common.IntegerType(), []int32{1, 2})
	nulls.SetNull(1)
	_, err = NewKeysU32().BuildKeys([]*chunk.Vector{nulls}, 2)
	assert.True(t, errors.Is(err, ErrSchema))

	_, err = NewKeysU32().BuildKeys([]*chunk.Vector{wide}, 2)
	assert.True(t, errors.Is(err, ErrSchema))

	_, err = NewKeysU32().DecodeKeys(NewKeysU64().KeyColumn([]uint64{1}), []common.LType{common.IntegerType()})
	assert.True(t, errors.Is(err, ErrSchema))
}

func TestSerializerKeys(t *testing.T) {
	s := chunk.NewFlatVector(common.VarcharType(), []string{"a", "ab", "", "a"})
	v := chunk.NewFlatVector(common.BigintType(), []int64{1, 1, 0, 1})
	v.SetNull(2)
	tail := chunk.NewFlatVector(common.VarcharType(), []string{"bc", "c", "x", "bc"})

	method := NewSerializer()
	keys, err := method.BuildKeys([]*chunk.Vector{s, v, tail}, 4)
	require.NoError(t, err)
	assert.NotEqual(t, keys[0], keys[1])
	assert.Equal(t, keys[0], keys[3])
	assert.Equal(t, byte(serValid), keys[2][0])
	assert.Equal(t, byte(serNull), keys[2][2])

	dec, err := method.DecodeKeys(method.KeyColumn(keys), []common.LType{s.Typ(), v.Typ(), tail.Typ()})
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"a", "1", "bc"},
		{"ab", "1", "c"},
		{"", "NULL", "x"},
		{"a", "1", "bc"},
	}, decodeRows(t, dec))

	//keys of one block do not alias each other
	keys[0] = append(keys[0], 0xff)
	assert.Equal(t, byte(serValid), keys[1][0])
}

func TestFloatKeysNormalized(t *testing.T) {
	negZero := math.Copysign(0, -1)
	f64 := chunk.NewFlatVector(common.DoubleType(), []float64{0, negZero, math.NaN(), math.Float64frombits(0x7ff8000000000001), 1.5})
	f32 := chunk.NewFlatVector(common.FloatType(), []float32{0, float32(negZero), float32(math.NaN()), float32(math.NaN()), 1.5})

	k64, err := NewKeysU64().BuildKeys([]*chunk.Vector{f64}, 5)
	require.NoError(t, err)
	assert.Equal(t, k64[0], k64[1])
	assert.Equal(t, k64[2], k64[3])
	assert.NotEqual(t, k64[0], k64[2])
	assert.NotEqual(t, k64[0], k64[4])

	k32, err := NewKeysU32().BuildKeys([]*chunk.Vector{f32}, 5)
	require.NoError(t, err)
	assert.Equal(t, k32[0], k32[1])
	assert.Equal(t, k32[2], k32[3])
	assert.NotEqual(t, k32[0], k32[4])

	ks, err := NewSerializer().BuildKeys([]*chunk.Vector{f64}, 5)
	require.NoError(t, err)
	assert.Equal(t, ks[0], ks[1])
	assert.Equal(t, ks[2], ks[3])
	assert.NotEqual(t, ks[0], ks[4])
}

func TestSerializerDecimalAndBlob(t *testing.T) {
	d := chunk.NewFlatVector(common.DecimalType(10, 2), []decimal.Decimal{
		decimal.MustParse("1.50"),
		decimal.MustParse("1.5"),
		decimal.MustParse("-0.25"),
	})
	b := chunk.NewFlatVector(common.BlobType(), [][]byte{{0}, {0}, nil})
	method := NewSerializer()
	keys, err := method.BuildKeys([]*chunk.Vector{d, b}, 3)
	require.NoError(t, err)
	assert.Equal(t, keys[0], keys[1])
	assert.NotEqual(t, keys[0], keys[2])

	dec, err := method.DecodeKeys(method.KeyColumn(keys), []common.LType{d.Typ(), b.Typ()})
	require.NoError(t, err)
	assert.Equal(t, "1.5", dec[0].GetValue(0).Dec.String())
	assert.Equal(t, "-0.25", dec[0].GetValue(2).Dec.String())
	assert.Equal(t, []byte{0}, dec[1].GetValue(1).Bytes)

	_, err = method.DecodeKeys(method.KeyColumn([][]byte{{serValid, 5, 'a'}}), []common.LType{common.VarcharType()})
	assert.True(t, errors.Is(err, ErrSchema))
	_, err = method.DecodeKeys(method.KeyColumn([][]byte{{serNull, serNull}}), []common.LType{common.VarcharType()})
	assert.True(t, errors.Is(err, ErrSchema))
	_, err = method.DecodeKeys(method.KeyColumn(nil), nil)
	assert.NoError(t, err)
}
