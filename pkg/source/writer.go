package source

import (
	"fmt"

	"github.com/cockroachdb/errors"
	pqLocal "github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/daviszhen/groupby/pkg/chunk"
	"github.com/daviszhen/groupby/pkg/common"
)

// parquetField is the csv writer schema of one column.
func parquetField(field chunk.Field) (string, error) {
	var typ string
	switch field.Typ.GetInternalType() {
	case common.BOOL:
		typ = "type=BOOLEAN"
	case common.INT8, common.INT16, common.INT32:
		typ = "type=INT32"
	case common.INT64:
		typ = "type=INT64"
	case common.UINT8:
		typ = "type=INT32, convertedtype=UINT_8"
	case common.UINT16:
		typ = "type=INT32, convertedtype=UINT_16"
	case common.UINT32:
		typ = "type=INT32, convertedtype=UINT_32"
	case common.UINT64:
		typ = "type=INT64, convertedtype=UINT_64"
	case common.FLOAT:
		typ = "type=FLOAT"
	case common.DOUBLE:
		typ = "type=DOUBLE"
	case common.VARCHAR:
		typ = "type=BYTE_ARRAY, convertedtype=UTF8"
	case common.BLOB:
		typ = "type=BYTE_ARRAY"
	default:
		return "", errors.Newf("column %s: %s can not be written to parquet", field.Name, field.Typ)
	}
	return fmt.Sprintf("name=%s, %s, repetitiontype=OPTIONAL", field.Name, typ), nil
}

func parquetValue(val *chunk.Value) any {
	if val.IsNull {
		return nil
	}
	switch val.Typ.GetInternalType() {
	case common.BOOL:
		return val.Bool
	case common.INT8, common.INT16, common.INT32:
		return int32(val.I64)
	case common.INT64:
		return val.I64
	case common.UINT8, common.UINT16, common.UINT32:
		return int32(uint32(val.U64))
	case common.UINT64:
		return int64(val.U64)
	case common.FLOAT:
		return float32(val.F64)
	case common.DOUBLE:
		return val.F64
	case common.VARCHAR:
		return val.Str
	case common.BLOB:
		return string(val.Bytes)
	default:
		panic("usp")
	}
}

// WriteParquet writes the chunks into a snappy compressed parquet
// file. Names and types come from the first chunk.
func WriteParquet(path string, chunks ...*chunk.Chunk) error {
	if len(chunks) == 0 {
		return errors.New("nothing to write")
	}
	schema := chunks[0].Schema()
	md := make([]string, 0, schema.Len())
	for _, field := range schema.Fields {
		s, err := parquetField(field)
		if err != nil {
			return err
		}
		md = append(md, s)
	}
	pqFile, err := pqLocal.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	pw, err := writer.NewCSVWriter(md, pqFile, 1)
	if err != nil {
		_ = pqFile.Close()
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, c := range chunks {
		if !c.Schema().Equal(schema) {
			_ = pqFile.Close()
			return errors.Newf("chunk schema %s differs from %s", c.Schema(), schema)
		}
		for r := 0; r < c.Card(); r++ {
			//the writer keeps rec until WriteStop
			rec := make([]any, schema.Len())
			for j, vec := range c.Data {
				rec[j] = parquetValue(vec.GetValue(r))
			}
			if err = pw.Write(rec); err != nil {
				_ = pqFile.Close()
				return err
			}
		}
	}
	if err = pw.WriteStop(); err != nil {
		_ = pqFile.Close()
		return err
	}
	return pqFile.Close()
}
