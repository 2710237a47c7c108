package compute

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/daviszhen/groupby/pkg/chunk"
	"github.com/daviszhen/groupby/pkg/common"
	"github.com/daviszhen/groupby/pkg/hashtable"
	"github.com/daviszhen/groupby/pkg/util"
)

// StateColumnName names the partial state column of function idx.
func StateColumnName(fun string, idx int) string {
	return fmt.Sprintf("%s_state_%d", fun, idx)
}

// OutputSchema is one BLOB column per function followed by the key
// column.
func (agg *Aggregator[K]) OutputSchema(keyName string) *chunk.Schema {
	ret := &chunk.Schema{}
	for i, fun := range agg._params.Funcs {
		ret.Fields = append(ret.Fields, chunk.Field{
			Name: StateColumnName(fun.Name(), i),
			Typ:  common.BlobType(),
		})
	}
	ret.Fields = append(ret.Fields, chunk.Field{
		Name: keyName,
		Typ:  agg._method.KeyType(),
	})
	return ret
}

func (agg *Aggregator[K]) checkOutputSchema(schema *chunk.Schema) error {
	want := len(agg._params.Funcs) + 1
	if schema.Len() != want {
		return schemaError("output schema has %d columns, expect %d", schema.Len(), want)
	}
	for i := 0; i < want-1; i++ {
		if !schema.Fields[i].Typ.Equal(common.BlobType()) {
			return schemaError("state column %q is %s, expect BLOB",
				schema.Fields[i].Name, schema.Fields[i].Typ)
		}
	}
	key := schema.Fields[want-1]
	if !key.Typ.Equal(agg._method.KeyType()) {
		return schemaError("key column %q is %s, expect %s", key.Name, key.Typ, agg._method.KeyType())
	}
	return nil
}

// Finalize serializes every group into one batch: the partial state of
// each function, then the raw key. An empty state gives one batch with
// no rows. A nil schema means OutputSchema("key").
func (agg *Aggregator[K]) Finalize(state *GroupState[K], schema *chunk.Schema) (chunk.BlockStream, error) {
	if schema == nil {
		schema = agg.OutputSchema("key")
	}
	if err := agg.checkOutputSchema(schema); err != nil {
		return nil, err
	}

	state._lock.RLock()
	defer state._lock.RUnlock()
	if state._discarded {
		return nil, state.discardedError()
	}

	funcs := agg._params.Funcs
	groups := state._table.Len()
	builders := make([]*chunk.BinaryBuilder, len(funcs))
	for i := range builders {
		builders[i] = chunk.NewBinaryBuilder(groups, groups*16)
	}
	keys := make([]K, 0, groups)
	err := state._table.ForEach(func(ent hashtable.StateEntity[K]) error {
		addr := ent.Value()
		for idx, fun := range funcs {
			place := state._arena.Place(addr.Next(agg._offsets[idx]))
			err := builders[idx].AppendFunc(func(buf []byte) ([]byte, error) {
				return fun.Serialize(place, buf)
			})
			if err != nil {
				return err
			}
		}
		keys = append(keys, ent.Key())
		return nil
	})
	if err != nil {
		return nil, err
	}

	vecs := make([]*chunk.Vector, 0, len(funcs)+1)
	for _, b := range builders {
		vecs = append(vecs, b.Finish())
	}
	vecs = append(vecs, agg._method.KeyColumn(keys))
	util.Debug("finalize",
		zap.String("method", agg._method.Name()),
		zap.Int("groups", groups))
	return chunk.NewSliceStream(chunk.NewChunkFromVectors(schema.Names(), vecs)), nil
}

// Results computes the final value of every function per group. The
// group columns are decoded from the keys and come first.
func (agg *Aggregator[K]) Results(state *GroupState[K], groupCols []string) (*chunk.Chunk, error) {
	groupTypes := make([]common.LType, len(groupCols))
	for i, name := range groupCols {
		field, has := agg._params.Schema.Field(name)
		if !has {
			return nil, schemaError("group column %q not in schema", name)
		}
		groupTypes[i] = field.Typ
	}

	state._lock.RLock()
	defer state._lock.RUnlock()
	if state._discarded {
		return nil, state.discardedError()
	}

	funcs := agg._params.Funcs
	groups := state._table.Len()
	results := make([]*chunk.Vector, len(funcs))
	for i, fun := range funcs {
		results[i] = chunk.NewVector(fun.ReturnType(), groups)
	}
	keys := make([]K, 0, groups)
	err := state._table.ForEach(func(ent hashtable.StateEntity[K]) error {
		addr := ent.Value()
		for idx, fun := range funcs {
			val, err := fun.Result(state._arena.Place(addr.Next(agg._offsets[idx])))
			if err != nil {
				return err
			}
			results[idx].AppendValue(val)
		}
		keys = append(keys, ent.Key())
		return nil
	})
	if err != nil {
		return nil, err
	}
	groupVecs, err := agg._method.DecodeKeys(agg._method.KeyColumn(keys), groupTypes)
	if err != nil {
		return nil, err
	}
	names := append(util.CopyTo(groupCols), resultNames(agg._params)...)
	return chunk.NewChunkFromVectors(names, append(groupVecs, results...)), nil
}

func resultNames(params *AggregatorParams) []string {
	ret := make([]string, len(params.Exprs))
	for i, expr := range params.Exprs {
		ret[i] = expr.String()
	}
	return ret
}

