package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLType(t *testing.T) {
	tests := []struct {
		in   string
		want LType
	}{
		{"bigint", BigintType()},
		{" VARCHAR ", VarcharType()},
		{"uint16", USmallintType()},
		{"decimal(15,2)", DecimalType(15, 2)},
		{"decimal", DecimalType(18, 0)},
		{"double", DoubleType()},
	}
	for _, tt := range tests {
		got, err := ParseLType(tt.in)
		require.NoError(t, err, tt.in)
		assert.True(t, got.Equal(tt.want), tt.in)
		assert.Equal(t, tt.want.PTyp, got.PTyp)
	}

	for _, bad := range []string{"", "list", "decimal(2,5)", "decimal(x,1)"} {
		_, err := ParseLType(bad)
		assert.Error(t, err, bad)
	}
}

func TestFixedKeyType(t *testing.T) {
	assert.Equal(t, LTID_UTINYINT, FixedKeyType(1).Id)
	assert.Equal(t, LTID_USMALLINT, FixedKeyType(2).Id)
	assert.Equal(t, LTID_UINTEGER, FixedKeyType(3).Id)
	assert.Equal(t, LTID_UBIGINT, FixedKeyType(8).Id)
	assert.Equal(t, LTID_BLOB, FixedKeyType(16).Id)
}

func TestPhyTypeSize(t *testing.T) {
	assert.Equal(t, 4, IntegerType().PTyp.Size())
	assert.Equal(t, 8, DoubleType().PTyp.Size())
	assert.Equal(t, 0, VarcharType().PTyp.Size())
	assert.True(t, BooleanType().PTyp.IsFixedWidth())
	assert.False(t, DecimalType(10, 2).PTyp.IsFixedWidth())
	assert.Equal(t, "DECIMAL(10,2)", DecimalType(10, 2).String())
}
