package source

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daviszhen/groupby/pkg/chunk"
	"github.com/daviszhen/groupby/pkg/common"
	"github.com/daviszhen/groupby/pkg/util"
)

func testSchema(t *testing.T) *chunk.Schema {
	schema, err := chunk.ParseSchema([]string{"g:varchar", "v:bigint", "d:decimal(10,2)"})
	require.NoError(t, err)
	return schema
}

func TestCSVReader(t *testing.T) {
	data := "g|v|d\na|1|1.50\nb||2\na|3|0.25\nc|4|\n"
	reader := NewCSVReader(strings.NewReader(data), testSchema(t), '|', true, 3)
	defer reader.Close()

	ctx := context.Background()
	blocks, err := chunk.Collect(ctx, reader)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, 3, blocks[0].Card())
	assert.Equal(t, 1, blocks[1].Card())

	g, _ := blocks[0].Column("g")
	assert.Equal(t, []string{"a", "b", "a"}, chunk.GetSlice[string](g))
	v, _ := blocks[0].Column("v")
	assert.True(t, v.IsNull(1))
	assert.Equal(t, int64(3), v.GetValue(2).I64)
	d, _ := blocks[1].Column("d")
	assert.True(t, d.IsNull(0))

	_, err = reader.Next(ctx)
	assert.Equal(t, io.EOF, err)
}

func TestCSVReaderErrors(t *testing.T) {
	ctx := context.Background()
	reader := NewCSVReader(strings.NewReader("a,x,1\n"), testSchema(t), ',', false, 16)
	_, err := reader.Next(ctx)
	assert.ErrorContains(t, err, "line 1 column v")

	reader = NewCSVReader(strings.NewReader("a,1\n"), testSchema(t), ',', false, 16)
	_, err = reader.Next(ctx)
	assert.Error(t, err)

	reader = NewCSVReader(strings.NewReader(""), testSchema(t), ',', true, 16)
	_, err = reader.Next(ctx)
	assert.Equal(t, io.EOF, err)
}

func TestOpenCSVTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.csv")
	require.NoError(t, os.WriteFile(path, []byte("x,1\ny,2\n"), 0644))
	opts := &util.TableOptions{
		Name:    "t",
		Path:    path,
		Format:  "csv",
		Columns: []string{"g:varchar", "v:integer"},
	}
	reader, err := Open(opts, 0)
	require.NoError(t, err)
	defer reader.Close()
	assert.Equal(t, "g VARCHAR, v INTEGER", reader.Schema().String())
	blocks, err := chunk.Collect(context.Background(), reader)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, 2, blocks[0].Card())

	opts.Format = "orc"
	_, err = Open(opts, 0)
	assert.Error(t, err)
	opts.Format = "csv"
	opts.Columns = nil
	_, err = Open(opts, 0)
	assert.Error(t, err)
}

func TestParquetRoundTrip(t *testing.T) {
	schema := chunk.NewSchema(
		chunk.Field{Name: "state", Typ: common.BlobType()},
		chunk.Field{Name: "key", Typ: common.UbigintType()},
		chunk.Field{Name: "name", Typ: common.VarcharType()},
	)
	blk := chunk.NewChunk(schema, 4)
	for i := 0; i < 5; i++ {
		name := &chunk.Value{Typ: common.VarcharType(), Str: string(rune('a' + i))}
		if i == 3 {
			name.IsNull = true
		}
		blk.AppendRow([]*chunk.Value{
			{Typ: common.BlobType(), Bytes: []byte{byte(i), 0, 1}},
			{Typ: common.UbigintType(), U64: uint64(i) << 40},
			name,
		})
	}
	path := filepath.Join(t.TempDir(), "states.parquet")
	require.NoError(t, WriteParquet(path, blk))

	reader, err := OpenParquet(path, schema, 2)
	require.NoError(t, err)
	defer reader.Close()
	blocks, err := chunk.Collect(context.Background(), reader)
	require.NoError(t, err)
	require.Len(t, blocks, 3)

	var rows [][]*chunk.Value
	for _, b := range blocks {
		rows = append(rows, b.Rows()...)
	}
	require.Len(t, rows, 5)
	for i, row := range rows {
		assert.Equal(t, []byte{byte(i), 0, 1}, row[0].Bytes)
		assert.Equal(t, uint64(i)<<40, row[1].U64)
		if i == 3 {
			assert.True(t, row[2].IsNull)
		} else {
			assert.Equal(t, string(rune('a'+i)), row[2].Str)
		}
	}
}

func TestWriteParquetKeepsEveryRow(t *testing.T) {
	schema := chunk.NewSchema(chunk.Field{Name: "key", Typ: common.UbigintType()})
	first := chunk.NewChunkFromVectors([]string{"key"},
		[]*chunk.Vector{chunk.NewFlatVector(common.UbigintType(), []uint64{1, 2, 3})})
	second := chunk.NewChunkFromVectors([]string{"key"},
		[]*chunk.Vector{chunk.NewFlatVector(common.UbigintType(), []uint64{4})})
	path := filepath.Join(t.TempDir(), "keys.parquet")
	require.NoError(t, WriteParquet(path, first, second))

	reader, err := OpenParquet(path, schema, 16)
	require.NoError(t, err)
	defer reader.Close()
	blocks, err := chunk.Collect(context.Background(), reader)
	require.NoError(t, err)
	var got []uint64
	for _, b := range blocks {
		for _, row := range b.Rows() {
			got = append(got, row[0].U64)
		}
	}
	assert.Equal(t, []uint64{1, 2, 3, 4}, got)
}

func TestWriteParquetErrors(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, WriteParquet(filepath.Join(dir, "empty.parquet")))

	schema := chunk.NewSchema(chunk.Field{Name: "d", Typ: common.DecimalType(10, 2)})
	assert.Error(t, WriteParquet(filepath.Join(dir, "dec.parquet"), chunk.NewChunk(schema, 1)))
}
