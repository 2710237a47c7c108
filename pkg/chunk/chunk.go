// Copyright 2023-2024 daviszhen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package chunk

import (
	"fmt"
	"io"
	"strings"

	"github.com/daviszhen/groupby/pkg/common"
	"github.com/daviszhen/groupby/pkg/util"
)

// Chunk is a batch of rows stored column by column. Columns are
// addressed by name.
type Chunk struct {
	Names []string
	Data  []*Vector
	Count int
}

func NewChunk(schema *Schema, cap int) *Chunk {
	c := &Chunk{}
	for _, f := range schema.Fields {
		c.Names = append(c.Names, f.Name)
		c.Data = append(c.Data, NewVector(f.Typ, cap))
	}
	return c
}

// NewChunkFromVectors builds a chunk over existing columns. Every
// column must have the same row count.
func NewChunkFromVectors(names []string, vecs []*Vector) *Chunk {
	util.AssertFunc(len(names) == len(vecs))
	c := &Chunk{
		Names: names,
		Data:  vecs,
	}
	if len(vecs) > 0 {
		c.Count = vecs[0].Count()
	}
	for _, vec := range vecs {
		util.AssertFunc(vec.Count() == c.Count)
	}
	return c
}

func (c *Chunk) Card() int {
	return c.Count
}

func (c *Chunk) SetCard(count int) {
	c.Count = count
}

func (c *Chunk) ColumnCount() int {
	if c == nil {
		return 0
	}
	return len(c.Data)
}

func (c *Chunk) Column(name string) (*Vector, bool) {
	for i, n := range c.Names {
		if n == name {
			return c.Data[i], true
		}
	}
	return nil, false
}

func (c *Chunk) Schema() *Schema {
	ret := &Schema{}
	for i, vec := range c.Data {
		ret.Fields = append(ret.Fields, Field{Name: c.Names[i], Typ: vec.Typ()})
	}
	return ret
}

// AppendRow appends one value per column.
func (c *Chunk) AppendRow(vals []*Value) {
	util.AssertFunc(len(vals) == len(c.Data))
	for i, val := range vals {
		c.Data[i].AppendValue(val)
	}
	c.Count++
}

func (c *Chunk) Print(w io.Writer) {
	fmt.Fprintln(w, strings.Join(c.Names, "\t"))
	for i := 0; i < c.Card(); i++ {
		for j := 0; j < c.ColumnCount(); j++ {
			if j > 0 {
				fmt.Fprint(w, "\t")
			}
			fmt.Fprint(w, c.Data[j].GetValue(i).String())
		}
		fmt.Fprintln(w)
	}
}

// Rows returns the chunk as rows of values, used by tests and the
// result writers.
func (c *Chunk) Rows() [][]*Value {
	ret := make([][]*Value, c.Card())
	for i := range ret {
		row := make([]*Value, c.ColumnCount())
		for j := range row {
			row[j] = c.Data[j].GetValue(i)
		}
		ret[i] = row
	}
	return ret
}

func (c *Chunk) Types() []common.LType {
	ret := make([]common.LType, c.ColumnCount())
	for i, vec := range c.Data {
		ret[i] = vec.Typ()
	}
	return ret
}
