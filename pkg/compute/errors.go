package compute

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrConfiguration marks errors found while building an aggregator:
	// unknown columns, functions or argument types.
	ErrConfiguration = errors.New("aggregator configuration error")
	// ErrSchema marks errors found in an input block or output schema.
	ErrSchema = errors.New("aggregator schema error")
	// ErrDiscarded is returned on a group state dropped after a failure.
	ErrDiscarded = errors.New("group state discarded")
)

func configError(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrConfiguration)
}

func schemaError(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrSchema)
}
