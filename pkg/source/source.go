package source

import (
	"github.com/cockroachdb/errors"

	"github.com/daviszhen/groupby/pkg/chunk"
	"github.com/daviszhen/groupby/pkg/util"
)

// Reader is a table read block by block.
type Reader interface {
	chunk.BlockStream
	Schema() *chunk.Schema
	Close() error
}

// Open opens the table described by opts.
func Open(opts *util.TableOptions, batchSize int) (Reader, error) {
	schema, err := chunk.ParseSchema(opts.Columns)
	if err != nil {
		return nil, errors.Wrapf(err, "table %s", opts.Name)
	}
	if schema.Len() == 0 {
		return nil, errors.Newf("table %s has no columns", opts.Name)
	}
	if batchSize <= 0 {
		batchSize = util.DefaultVectorSize
	}
	switch opts.Format {
	case "", "csv":
		delimiter := ','
		if opts.Delimiter != "" {
			delimiter = []rune(opts.Delimiter)[0]
		}
		return OpenCSV(opts.Path, schema, delimiter, opts.Header, batchSize)
	case "parquet":
		return OpenParquet(opts.Path, schema, batchSize)
	default:
		return nil, errors.Newf("table %s: unknown format %q", opts.Name, opts.Format)
	}
}
