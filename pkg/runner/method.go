package runner

import (
	"github.com/cockroachdb/errors"

	"github.com/daviszhen/groupby/pkg/common"
	"github.com/daviszhen/groupby/pkg/compute"
)

const (
	MethodAuto       = "auto"
	MethodU8         = "u8"
	MethodU16        = "u16"
	MethodU32        = "u32"
	MethodU64        = "u64"
	MethodU128       = "u128"
	MethodU256       = "u256"
	MethodSerializer = "serializer"
)

var fixedWidths = []struct {
	name  string
	width int
}{
	{MethodU8, 1},
	{MethodU16, 2},
	{MethodU32, 4},
	{MethodU64, 8},
	{MethodU128, 16},
	{MethodU256, 32},
}

// keyWidth is the packed width of the group columns, or -1 if one of
// them is not fixed width.
func keyWidth(types []common.LType) int {
	total := 0
	for _, typ := range types {
		pTyp := typ.GetInternalType()
		if !pTyp.IsFixedWidth() {
			return -1
		}
		total += pTyp.Size()
	}
	return total
}

// ChooseHashMethod picks the key encoding of the group columns. auto
// takes the narrowest fixed method the columns fit in, otherwise the
// serializer. An explicit fixed method must fit.
func ChooseHashMethod(name string, types []common.LType) (string, error) {
	if len(types) == 0 {
		return "", errors.Mark(errors.New("no group columns"), compute.ErrConfiguration)
	}
	width := keyWidth(types)
	switch name {
	case "", MethodAuto:
		if width < 0 {
			return MethodSerializer, nil
		}
		for _, m := range fixedWidths {
			if width <= m.width {
				return m.name, nil
			}
		}
		return MethodSerializer, nil
	case MethodSerializer:
		return MethodSerializer, nil
	}
	for _, m := range fixedWidths {
		if m.name != name {
			continue
		}
		if width < 0 || width > m.width {
			return "", errors.Mark(
				errors.Newf("hash method %s can not pack the group columns", name),
				compute.ErrConfiguration)
		}
		return name, nil
	}
	return "", errors.Mark(errors.Newf("unknown hash method %q", name), compute.ErrConfiguration)
}
