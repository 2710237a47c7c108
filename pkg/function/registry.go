package function

import (
	"strings"

	"github.com/cockroachdb/errors"
	treemap "github.com/liyue201/gostl/ds/map"

	"github.com/daviszhen/groupby/pkg/common"
)

type Builder func(args []common.LType) (AggregateFunction, error)

type FuncInfo struct {
	Name    string
	Desc    string
	builder Builder
}

var gRegistry = treemap.New[string, *FuncInfo](strings.Compare)

// Register adds a function. Names are case insensitive.
func Register(name, desc string, builder Builder) {
	name = strings.ToLower(name)
	if _, err := gRegistry.Get(name); err == nil {
		panic("duplicate aggregate function " + name)
	}
	gRegistry.Insert(name, &FuncInfo{
		Name:    name,
		Desc:    desc,
		builder: builder,
	})
}

// Get binds the function name to the argument types.
func Get(name string, args []common.LType) (AggregateFunction, error) {
	info, err := gRegistry.Get(strings.ToLower(name))
	if err != nil {
		return nil, errors.Wrapf(ErrUnknownFunction, "%s", name)
	}
	return info.builder(args)
}

// Infos lists the functions ordered by name.
func Infos() []FuncInfo {
	ret := make([]FuncInfo, 0, gRegistry.Size())
	for iter := gRegistry.Begin(); iter.IsValid(); iter.Next() {
		ret = append(ret, *iter.Value())
	}
	return ret
}

func Names() []string {
	ret := make([]string, 0, gRegistry.Size())
	for iter := gRegistry.Begin(); iter.IsValid(); iter.Next() {
		ret = append(ret, iter.Key())
	}
	return ret
}

func unsupported(name string, args []common.LType) error {
	tnames := make([]string, len(args))
	for i, arg := range args {
		tnames[i] = arg.String()
	}
	return errors.Wrapf(ErrUnsupportedArgs, "%s(%s)", name, strings.Join(tnames, ", "))
}

func init() {
	Register("count", "number of rows, or of non NULL values", newCount)
	Register("sum", "sum of non NULL values", newSum)
	Register("avg", "average of non NULL values", newAvg)
	Register("min", "smallest non NULL value", newMin)
	Register("max", "largest non NULL value", newMax)
	Register("any_value", "first non NULL value seen", newAnyValue)
	Register("approx_count_distinct", "estimated number of distinct non NULL values", newApproxCountDistinct)
}
