// Package filter parses operator filter text into a predicate AST and lowers
// that AST into a parameterized SQL fragment over the store's derived views.
//
// Compilation is purely structural: no data is evaluated at compile time,
// and every parsed AST is well-typed, so there are no compile-time errors
// beyond what parsing already excludes. Compiling the same AST always yields
// the same (fragment, params) pair, and placeholder order in the fragment
// equals the left-to-right appearance of atoms in the source text.
package filter

import "strings"

// Node is one immutable predicate AST node.
// The marker method keeps the variant set closed to this package.
type Node interface {
	node()
	// Compile lowers the node into a query fragment and its bound
	// parameters, in placeholder order.
	Compile() (fragment string, params []any)
}

// Unary tests a boolean-like extracted field. No parameters.
type Unary struct {
	Code   string
	clause string
}

func (Unary) node() {}

// Compile implements Node.
func (u Unary) Compile() (string, []any) {
	return u.clause, nil
}

// RegexMatch invokes the registered search() function against a flow_view
// column or the flattened header view, binding the pattern as one parameter.
type RegexMatch struct {
	Code    string
	Pattern string
	clause  string
}

func (RegexMatch) node() {}

// Compile implements Node.
func (r RegexMatch) Compile() (string, []any) {
	return r.clause, []any{r.Pattern}
}

// IntCompare compares an extracted numeric field against one bound integer.
type IntCompare struct {
	Code   string
	Value  int
	clause string
}

func (IntCompare) node() {}

// Compile implements Node.
func (i IntCompare) Compile() (string, []any) {
	return i.clause, []any{i.Value}
}

// And is the conjunction of two or more children.
type And struct {
	Children []Node
}

func (And) node() {}

// Compile implements Node. Children's parameters are concatenated
// left-to-right.
func (a And) Compile() (string, []any) {
	return compileJoin(a.Children, "AND")
}

// Or is the disjunction of two or more children.
type Or struct {
	Children []Node
}

func (Or) node() {}

// Compile implements Node.
func (o Or) Compile() (string, []any) {
	return compileJoin(o.Children, "OR")
}

// Not negates its child. Parameters pass through unchanged.
type Not struct {
	Child Node
}

func (Not) node() {}

// Compile implements Node.
func (n Not) Compile() (string, []any) {
	frag, params := n.Child.Compile()
	return "NOT ( " + frag + " )", params
}

func compileJoin(children []Node, op string) (string, []any) {
	frags := make([]string, len(children))
	var params []any
	for i, c := range children {
		frag, p := c.Compile()
		frags[i] = frag
		params = append(params, p...)
	}
	return "( " + strings.Join(frags, " ) "+op+" ( ") + " )", params
}

// Predicate is a compiled, immutable (fragment, params) pair ready to bind
// and execute. Placeholder order in Fragment matches Params order.
type Predicate struct {
	Fragment string
	Params   []any
}

// Compile lowers one AST root.
func Compile(n Node) Predicate {
	frag, params := n.Compile()
	return Predicate{Fragment: frag, Params: params}
}

// MatchAll is the predicate selecting every flow, used for empty filter
// text.
var MatchAll = Predicate{Fragment: "1 = 1"}
