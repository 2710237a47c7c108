package source

import (
	"context"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/govalues/decimal"
	pqLocal "github.com/xitongsys/parquet-go-source/local"
	pqReader "github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/source"

	"github.com/daviszhen/groupby/pkg/chunk"
	"github.com/daviszhen/groupby/pkg/common"
)

// ParquetReader reads the leaf columns of a flat parquet file in
// schema order.
type ParquetReader struct {
	_schema    *chunk.Schema
	_pqFile    source.ParquetFile
	_pqReader  *pqReader.ParquetReader
	_batchSize int
	_rows      int64
	_read      int64
}

func OpenParquet(path string, schema *chunk.Schema, batchSize int) (*ParquetReader, error) {
	pqFile, err := pqLocal.NewLocalFileReader(path)
	if err != nil {
		return nil, err
	}
	reader, err := pqReader.NewParquetColumnReader(pqFile, 1)
	if err != nil {
		_ = pqFile.Close()
		return nil, err
	}
	if cnt := len(reader.SchemaHandler.ValueColumns); cnt < schema.Len() {
		reader.ReadStop()
		_ = pqFile.Close()
		return nil, errors.Newf("%s has %d columns, expect %d", path, cnt, schema.Len())
	}
	return &ParquetReader{
		_schema:    schema,
		_pqFile:    pqFile,
		_pqReader:  reader,
		_batchSize: batchSize,
		_rows:      reader.GetNumRows(),
	}, nil
}

func (r *ParquetReader) Schema() *chunk.Schema {
	return r._schema
}

func (r *ParquetReader) Next(ctx context.Context) (*chunk.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r._read >= r._rows {
		return nil, io.EOF
	}
	cnt := min(int64(r._batchSize), r._rows-r._read)
	output := chunk.NewChunk(r._schema, int(cnt))
	rowCount := -1
	for j, field := range r._schema.Fields {
		values, _, _, err := r._pqReader.ReadColumnByIndex(int64(j), cnt)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, err
		}
		if rowCount < 0 {
			rowCount = len(values)
		} else if len(values) != rowCount {
			return nil, errors.Newf("column %s has %d values, previous columns have %d",
				field.Name, len(values), rowCount)
		}
		vec := output.Data[j]
		for _, v := range values {
			val, err := parquetColToValue(v, field.Typ)
			if err != nil {
				return nil, errors.Wrapf(err, "column %s", field.Name)
			}
			vec.AppendValue(val)
		}
	}
	if rowCount <= 0 {
		r._read = r._rows
		return nil, io.EOF
	}
	r._read += int64(rowCount)
	output.SetCard(rowCount)
	return output, nil
}

func (r *ParquetReader) Close() error {
	r._pqReader.ReadStop()
	return r._pqFile.Close()
}

func parquetColToValue(field any, lTyp common.LType) (*chunk.Value, error) {
	val := &chunk.Value{
		Typ: lTyp,
	}
	if field == nil {
		val.IsNull = true
		return val, nil
	}
	mismatch := func() error {
		return errors.Newf("parquet value %v of %T can not be %s", field, field, lTyp)
	}
	switch pTyp := lTyp.GetInternalType(); pTyp {
	case common.BOOL:
		v, ok := field.(bool)
		if !ok {
			return nil, mismatch()
		}
		val.Bool = v
	case common.INT8, common.INT16, common.INT32, common.INT64:
		switch v := field.(type) {
		case int32:
			val.I64 = int64(v)
		case int64:
			val.I64 = v
		default:
			return nil, mismatch()
		}
	case common.UINT8, common.UINT16, common.UINT32, common.UINT64:
		switch v := field.(type) {
		case int32:
			val.U64 = uint64(uint32(v))
		case int64:
			val.U64 = uint64(v)
		default:
			return nil, mismatch()
		}
	case common.FLOAT, common.DOUBLE:
		switch v := field.(type) {
		case float32:
			val.F64 = float64(v)
		case float64:
			val.F64 = v
		default:
			return nil, mismatch()
		}
	case common.DECIMAL:
		var err error
		switch v := field.(type) {
		case int32:
			val.Dec, err = decimal.New(int64(v), lTyp.Scale)
		case int64:
			val.Dec, err = decimal.New(v, lTyp.Scale)
		case string:
			val.Dec, err = decimal.Parse(v)
		default:
			return nil, mismatch()
		}
		if err != nil {
			return nil, err
		}
	case common.VARCHAR:
		v, ok := field.(string)
		if !ok {
			return nil, mismatch()
		}
		val.Str = v
	case common.BLOB:
		v, ok := field.(string)
		if !ok {
			return nil, mismatch()
		}
		val.Bytes = []byte(v)
	default:
		panic(fmt.Sprintf("usp parquet type %s", lTyp))
	}
	return val, nil
}
