package chunk

import (
	"fmt"
	"strings"

	"github.com/daviszhen/groupby/pkg/common"
)

type Field struct {
	Name string
	Typ  common.LType
}

type Schema struct {
	Fields []Field
}

func NewSchema(fields ...Field) *Schema {
	return &Schema{Fields: fields}
}

// ParseSchema parses "name:type" column declarations.
func ParseSchema(columns []string) (*Schema, error) {
	ret := &Schema{}
	for _, col := range columns {
		name, typName, ok := strings.Cut(col, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid column declaration %q", col)
		}
		typ, err := common.ParseLType(typName)
		if err != nil {
			return nil, err
		}
		name = strings.TrimSpace(name)
		if ret.IndexOf(name) >= 0 {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		ret.Fields = append(ret.Fields, Field{Name: name, Typ: typ})
	}
	return ret, nil
}

func (s *Schema) Len() int {
	return len(s.Fields)
}

func (s *Schema) IndexOf(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

func (s *Schema) Field(name string) (Field, bool) {
	idx := s.IndexOf(name)
	if idx < 0 {
		return Field{}, false
	}
	return s.Fields[idx], true
}

func (s *Schema) Types() []common.LType {
	ret := make([]common.LType, len(s.Fields))
	for i, f := range s.Fields {
		ret[i] = f.Typ
	}
	return ret
}

func (s *Schema) Names() []string {
	ret := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		ret[i] = f.Name
	}
	return ret
}

func (s *Schema) Equal(o *Schema) bool {
	if s.Len() != o.Len() {
		return false
	}
	for i := range s.Fields {
		if s.Fields[i].Name != o.Fields[i].Name ||
			!s.Fields[i].Typ.Equal(o.Fields[i].Typ) {
			return false
		}
	}
	return true
}

func (s *Schema) String() string {
	sb := strings.Builder{}
	for i, f := range s.Fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.Name)
		sb.WriteByte(' ')
		sb.WriteString(f.Typ.String())
	}
	return sb.String()
}
