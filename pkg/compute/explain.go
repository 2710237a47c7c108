package compute

import (
	"fmt"
	"strings"

	"github.com/xlab/treeprint"
)

func (agg *Aggregator[K]) Print(tree treeprint.Tree) {
	tree = tree.AddMetaBranch(agg._method.Name(), "Aggregator")
	tree.AddMetaNode("key", agg._method.KeyType().String())
	tree.AddMetaNode("layout", agg._layout.String())
	if len(agg._params.Funcs) == 0 {
		tree.AddNode("no functions")
		return
	}
	funcs := tree.AddBranch("functions")
	for i, fun := range agg._params.Funcs {
		sub := funcs.AddMetaBranch(fmt.Sprintf("%d", i), agg._params.Exprs[i].String())
		sub.AddMetaNode("offset", fmt.Sprintf("%d", agg._offsets[i]))
		sub.AddMetaNode("state", fun.StateLayout().String())
		sub.AddMetaNode("return", fun.ReturnType().String())
		if len(agg._params.Args[i]) > 0 {
			sub.AddMetaNode("args", strings.Join(agg._params.Args[i], ", "))
		}
	}
}

// Explain renders the state layout of the stage.
func (agg *Aggregator[K]) Explain() string {
	tree := treeprint.NewWithRoot("GroupBy:")
	agg.Print(tree)
	return tree.String()
}
