package source

import (
	"context"
	"encoding/csv"
	"io"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/daviszhen/groupby/pkg/chunk"
)

type CSVReader struct {
	_schema    *chunk.Schema
	_file      *os.File
	_reader    *csv.Reader
	_batchSize int
	_header    bool
	_line      int
	_done      bool
}

func OpenCSV(path string, schema *chunk.Schema, delimiter rune, header bool, batchSize int) (*CSVReader, error) {
	file, err := os.OpenFile(path, os.O_RDONLY, 0755)
	if err != nil {
		return nil, err
	}
	ret := NewCSVReader(file, schema, delimiter, header, batchSize)
	ret._file = file
	return ret, nil
}

func NewCSVReader(r io.Reader, schema *chunk.Schema, delimiter rune, header bool, batchSize int) *CSVReader {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.FieldsPerRecord = schema.Len()
	reader.ReuseRecord = true
	return &CSVReader{
		_schema:    schema,
		_reader:    reader,
		_batchSize: batchSize,
		_header:    header,
	}
}

func (r *CSVReader) Schema() *chunk.Schema {
	return r._schema
}

func (r *CSVReader) Next(ctx context.Context) (*chunk.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r._done {
		return nil, io.EOF
	}
	if r._header {
		r._header = false
		r._line++
		if _, err := r._reader.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				r._done = true
			}
			return nil, err
		}
	}
	output := chunk.NewChunk(r._schema, r._batchSize)
	row := make([]*chunk.Value, r._schema.Len())
	for output.Card() < r._batchSize {
		line, err := r._reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				r._done = true
				break
			}
			return nil, err
		}
		r._line++
		for j, field := range r._schema.Fields {
			row[j], err = chunk.ParseValue(field.Typ, line[j])
			if err != nil {
				return nil, errors.Wrapf(err, "line %d column %s", r._line, field.Name)
			}
		}
		output.AppendRow(row)
	}
	if output.Card() == 0 {
		return nil, io.EOF
	}
	return output, nil
}

func (r *CSVReader) Close() error {
	r._reader = nil
	if r._file != nil {
		return r._file.Close()
	}
	return nil
}
