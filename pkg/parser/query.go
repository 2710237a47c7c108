package parser

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v5"

	"github.com/daviszhen/groupby/pkg/function"
)

// Output is one item of the select list. It refers either to a group
// column or to an aggregate.
type Output struct {
	Name string
	//index into Query.GroupBy or Query.Aggs
	Index int
	IsAgg bool
}

// Query is a single table aggregation:
//
//	SELECT g1, agg(c) FROM t GROUP BY g1
//	SELECT DISTINCT g1, g2 FROM t
type Query struct {
	Table   string
	GroupBy []string
	Aggs    []function.AggrExpr
	Outputs []Output
}

// OutputNames are the select list names in order.
func (q *Query) OutputNames() []string {
	ret := make([]string, len(q.Outputs))
	for i, out := range q.Outputs {
		ret[i] = out.Name
	}
	return ret
}

// ParseQuery turns sql text into a Query.
func ParseQuery(sql string) (*Query, error) {
	stmts, err := Parse(sql)
	if err != nil {
		return nil, err
	}
	if len(stmts) != 1 {
		return nil, unsupported("expect one statement, got %d", len(stmts))
	}
	sel := stmts[0].GetStmt().GetSelectStmt()
	if sel == nil {
		return nil, unsupported("only SELECT is supported")
	}
	return buildQuery(sel)
}

func buildQuery(sel *pg_query.SelectStmt) (*Query, error) {
	switch {
	case sel.GetOp() != pg_query.SetOperation_SETOP_NONE:
		return nil, unsupported("set operations are not supported")
	case sel.GetWithClause() != nil:
		return nil, unsupported("WITH is not supported")
	case sel.GetWhereClause() != nil:
		return nil, unsupported("WHERE is not supported")
	case sel.GetHavingClause() != nil:
		return nil, unsupported("HAVING is not supported")
	case len(sel.GetSortClause()) != 0:
		return nil, unsupported("ORDER BY is not supported")
	case sel.GetLimitCount() != nil || sel.GetLimitOffset() != nil:
		return nil, unsupported("LIMIT is not supported")
	case len(sel.GetWindowClause()) != 0:
		return nil, unsupported("WINDOW is not supported")
	}

	q := &Query{}
	from := sel.GetFromClause()
	if len(from) != 1 || from[0].GetRangeVar() == nil {
		return nil, unsupported("expect one table in FROM")
	}
	q.Table = from[0].GetRangeVar().GetRelname()

	for _, node := range sel.GetGroupClause() {
		name, err := columnName(node)
		if err != nil {
			return nil, err
		}
		if indexOf(q.GroupBy, name) >= 0 {
			continue
		}
		q.GroupBy = append(q.GroupBy, name)
	}
	distinct := len(sel.GetDistinctClause()) != 0
	if distinct && len(q.GroupBy) != 0 {
		return nil, unsupported("DISTINCT with GROUP BY is not supported")
	}

	for _, node := range sel.GetTargetList() {
		target := node.GetResTarget()
		if target == nil {
			return nil, unsupported("unexpected select item %s", node.String())
		}
		if err := q.addTarget(target, distinct); err != nil {
			return nil, err
		}
	}
	if distinct && len(q.Aggs) != 0 {
		return nil, unsupported("DISTINCT with aggregates is not supported")
	}
	if len(q.GroupBy) == 0 {
		return nil, unsupported("expect GROUP BY or DISTINCT")
	}
	return q, nil
}

func (q *Query) addTarget(target *pg_query.ResTarget, distinct bool) error {
	val := target.GetVal()
	if call := val.GetFuncCall(); call != nil {
		expr, err := aggrExpr(call)
		if err != nil {
			return err
		}
		name := target.GetName()
		if name == "" {
			name = expr.String()
		}
		q.Outputs = append(q.Outputs, Output{Name: name, Index: len(q.Aggs), IsAgg: true})
		q.Aggs = append(q.Aggs, expr)
		return nil
	}
	if val.GetColumnRef() == nil {
		return unsupported("select item must be a column or an aggregate")
	}
	col, err := columnName(val)
	if err != nil {
		return err
	}
	idx := indexOf(q.GroupBy, col)
	if idx < 0 {
		if !distinct {
			return unsupported("column %q must appear in GROUP BY", col)
		}
		idx = len(q.GroupBy)
		q.GroupBy = append(q.GroupBy, col)
	}
	name := target.GetName()
	if name == "" {
		name = col
	}
	q.Outputs = append(q.Outputs, Output{Name: name, Index: idx})
	return nil
}

func aggrExpr(call *pg_query.FuncCall) (function.AggrExpr, error) {
	name := getFuncName(call)
	switch {
	case call.GetAggDistinct():
		return function.AggrExpr{}, unsupported("%s(DISTINCT ...) is not supported", name)
	case call.GetAggFilter() != nil:
		return function.AggrExpr{}, unsupported("%s with FILTER is not supported", name)
	case call.GetOver() != nil:
		return function.AggrExpr{}, unsupported("window function %s is not supported", name)
	case len(call.GetAggOrder()) != 0:
		return function.AggrExpr{}, unsupported("ordered aggregate %s is not supported", name)
	}
	expr := function.AggrExpr{Func: name}
	if call.GetAggStar() {
		return expr, nil
	}
	for _, arg := range call.GetArgs() {
		col, err := columnName(arg)
		if err != nil {
			return function.AggrExpr{}, err
		}
		expr.Args = append(expr.Args, col)
	}
	return expr, nil
}

func getFuncName(call *pg_query.FuncCall) string {
	for _, node := range call.GetFuncname() {
		sval := node.GetString_().GetSval()
		if sval == "pg_catalog" {
			continue
		}
		return strings.ToLower(sval)
	}
	panic("no function name")
}

// columnName accepts col or t.col.
func columnName(node *pg_query.Node) (string, error) {
	ref := node.GetColumnRef()
	if ref == nil {
		return "", unsupported("expect a column, got %s", node.String())
	}
	fields := ref.GetFields()
	switch len(fields) {
	case 1, 2:
		last := fields[len(fields)-1]
		if last.GetAStar() != nil {
			return "", unsupported("* is not supported here")
		}
		return last.GetString_().GetSval(), nil
	default:
		return "", unsupported("unexpected column reference %s", ref.String())
	}
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
