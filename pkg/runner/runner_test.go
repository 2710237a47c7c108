package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daviszhen/groupby/pkg/chunk"
	"github.com/daviszhen/groupby/pkg/common"
	"github.com/daviszhen/groupby/pkg/compute"
	"github.com/daviszhen/groupby/pkg/parser"
	"github.com/daviszhen/groupby/pkg/util"
)

func TestChooseHashMethod(t *testing.T) {
	i8 := common.TinyintType()
	i32 := common.IntegerType()
	i64 := common.BigintType()
	str := common.VarcharType()
	kases := []struct {
		name  string
		types []common.LType
		want  string
	}{
		{"auto", []common.LType{common.UTinyintType()}, MethodU8},
		{"", []common.LType{i8, i8}, MethodU16},
		{"auto", []common.LType{i32}, MethodU32},
		{"auto", []common.LType{i32, common.SmallintType()}, MethodU64},
		{"auto", []common.LType{i64}, MethodU64},
		{"auto", []common.LType{i64, i32}, MethodU128},
		{"auto", []common.LType{i64, i64, i64}, MethodU256},
		{"auto", []common.LType{i64, i64, i64, i64, i8}, MethodSerializer},
		{"auto", []common.LType{i32, str}, MethodSerializer},
		{"auto", []common.LType{common.DecimalType(10, 2)}, MethodSerializer},
		{"u128", []common.LType{i32}, MethodU128},
		{"serializer", []common.LType{i32}, MethodSerializer},
	}
	for _, kase := range kases {
		got, err := ChooseHashMethod(kase.name, kase.types)
		require.NoError(t, err)
		assert.Equal(t, kase.want, got, "%v", kase.types)
	}

	bad := []struct {
		name  string
		types []common.LType
	}{
		{"u8", []common.LType{i32}},
		{"u64", []common.LType{str}},
		{"u512", []common.LType{i32}},
		{"auto", nil},
	}
	for _, kase := range bad {
		_, err := ChooseHashMethod(kase.name, kase.types)
		assert.True(t, errors.Is(err, compute.ErrConfiguration), kase.name)
	}
}

func writeTable(t *testing.T) *util.Config {
	dir := t.TempDir()
	path := filepath.Join(dir, "sales.csv")
	data := "region,item,qty\n" +
		"east,apple,3\n" +
		"west,apple,1\n" +
		"east,pear,2\n" +
		"east,apple,4\n" +
		"north,fig,\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
	cfg, err := util.ParseConfig(`
[aggregator]
batchSize = 2

[[tables]]
name = "sales"
path = "` + path + `"
columns = ["region:varchar", "item:varchar", "qty:bigint"]
header = true
`)
	require.NoError(t, err)
	return cfg
}

func finalRows(t *testing.T, res *Result) map[string][]string {
	ret := make(map[string][]string)
	for _, row := range res.Final.Rows() {
		vals := make([]string, len(row))
		for i, v := range row {
			vals[i] = v.String()
		}
		ret[vals[0]] = vals[1:]
	}
	return ret
}

func TestRun(t *testing.T) {
	cfg := writeTable(t)
	sql := "select region, count(*), sum(qty) as total, count(qty) from sales group by region"
	for _, parallelism := range []int{1, 3} {
		cfg.Aggregator.Parallelism = parallelism
		res, err := Run(context.Background(), cfg, sql, true)
		require.NoError(t, err)
		assert.Equal(t, "Serializer", res.Method)
		assert.Equal(t, 3, res.Groups)
		assert.Equal(t, []string{"region", "count(*)", "total", "count(qty)"}, res.Final.Names)
		assert.Equal(t, map[string][]string{
			"east":  {"3", "9", "3"},
			"west":  {"1", "1", "1"},
			"north": {"1", "NULL", "0"},
		}, finalRows(t, res))

		require.NotNil(t, res.Partial)
		assert.Equal(t, []string{"count_state_0", "sum_state_1", "count_state_2", "region"}, res.Partial.Names)
		assert.Equal(t, 3, res.Partial.Card())
	}
}

func TestRunTwoKeys(t *testing.T) {
	cfg := writeTable(t)
	res, err := Run(context.Background(), cfg, "select item, region, max(qty) from sales group by region, item", true)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Groups)
	assert.Equal(t, "key", res.Partial.Names[len(res.Partial.Names)-1])
	got := make(map[string]string)
	for _, row := range res.Final.Rows() {
		got[row[1].Str+"/"+row[0].Str] = row[2].String()
	}
	assert.Equal(t, map[string]string{
		"east/apple": "4",
		"west/apple": "1",
		"east/pear":  "2",
		"north/fig":  "NULL",
	}, got)
}

func TestRunErrors(t *testing.T) {
	cfg := writeTable(t)
	ctx := context.Background()
	_, err := Run(ctx, cfg, "select region, count(*) from nothing group by region", false)
	assert.Error(t, err)

	_, err = Run(ctx, cfg, "select region, sum(region) from sales group by region", false)
	assert.True(t, errors.Is(err, compute.ErrConfiguration))

	_, err = Run(ctx, cfg, "select missing, count(*) from sales group by missing", false)
	assert.True(t, errors.Is(err, compute.ErrConfiguration))

	cfg.Aggregator.HashMethod = "u8"
	_, err = Run(ctx, cfg, "select qty, count(*) from sales group by qty", false)
	assert.True(t, errors.Is(err, compute.ErrConfiguration))
}

func TestExplain(t *testing.T) {
	cfg := writeTable(t)
	out, err := Explain(cfg, "select qty, avg(qty), count(*) from sales group by qty")
	require.NoError(t, err)
	assert.Contains(t, out, "KeysU64")
	assert.Contains(t, out, "avg(qty)")
}

func TestExecuteDistinct(t *testing.T) {
	schema := chunk.NewSchema(chunk.Field{Name: "g", Typ: common.IntegerType()})
	blk := chunk.NewChunkFromVectors([]string{"g"}, []*chunk.Vector{
		chunk.NewFlatVector(common.IntegerType(), []int32{-1, 7, -1, 0}),
	})
	cfg := util.DefaultConfig()
	cfg.Fill()
	q, err := parser.ParseQuery("select distinct g from t")
	require.NoError(t, err)
	res, err := Execute(context.Background(), cfg, &Job{
		Query:   q,
		Schema:  schema,
		Streams: []chunk.BlockStream{chunk.NewSliceStream(blk)},
		Final:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, "KeysU32", res.Method)
	assert.Equal(t, 3, res.Groups)
	var got []int64
	for _, row := range res.Final.Rows() {
		got = append(got, row[0].I64)
	}
	assert.ElementsMatch(t, []int64{-1, 0, 7}, got)
}

func TestFanout(t *testing.T) {
	var blocks []*chunk.Chunk
	for i := 0; i < 7; i++ {
		blocks = append(blocks, chunk.NewChunkFromVectors([]string{"g"}, []*chunk.Vector{
			chunk.NewFlatVector(common.BigintType(), []int64{int64(i)}),
		}))
	}
	ctx := context.Background()
	streams, wait := Fanout(ctx, chunk.NewSliceStream(blocks...), 3)
	require.Len(t, streams, 3)
	total := make(chan int, 3)
	for _, s := range streams {
		go func(s chunk.BlockStream) {
			got, err := chunk.Collect(ctx, s)
			assert.NoError(t, err)
			total <- len(got)
		}(s)
	}
	sum := 0
	for i := 0; i < 3; i++ {
		sum += <-total
	}
	wait()
	assert.Equal(t, 7, sum)

	errBoom := errors.New("boom")
	streams, wait = Fanout(ctx, chunk.StreamFunc(func(ctx context.Context) (*chunk.Chunk, error) {
		return nil, errBoom
	}), 2)
	_, err := streams[0].Next(ctx)
	assert.Equal(t, errBoom, err)
	wait()
}
