package expr

import (
	"github.com/lemonberrylabs/exprtk/pkg/token"
	"github.com/lemonberrylabs/exprtk/pkg/types"
)

// Node is the interface for all expression AST nodes.
type Node interface {
	nodeType() string
	// Span is the source range the node was parsed from.
	Span() token.Span
}

// at is embedded by every node to carry its source range.
type at struct {
	span token.Span
}

func (a at) Span() token.Span { return a.span }

// Program is a sequence of statements separated by ';'. Its value is the
// value of the last statement.
type Program struct {
	at
	Statements []Node
}

func (n *Program) nodeType() string { return "Program" }

// LiteralNode represents a number, 'string', true, false or null.
type LiteralNode struct {
	at
	Value types.Value
}

func (n *LiteralNode) nodeType() string { return "Literal" }

// ColumnNode references a dataset column: "Sales".
type ColumnNode struct {
	at
	Name string
}

func (n *ColumnNode) nodeType() string { return "Column" }

// IdentNode references a variable declared with var.
type IdentNode struct {
	at
	Name string
}

func (n *IdentNode) nodeType() string { return "Ident" }

// BinaryNode represents a binary operation (e.g., a + b, x == y, a and b).
type BinaryNode struct {
	at
	Op    string
	Left  Node
	Right Node
}

func (n *BinaryNode) nodeType() string { return "Binary" }

// UnaryNode represents a unary operation (-x, +x, not x).
type UnaryNode struct {
	at
	Op      string
	Operand Node
}

func (n *UnaryNode) nodeType() string { return "Unary" }

// IndexNode represents index access (e.g., list[0], 'abc'[1]).
type IndexNode struct {
	at
	Object Node
	Index  Node
}

func (n *IndexNode) nodeType() string { return "Index" }

// CallNode represents a function call (e.g., abs(x), concat(a, b)).
type CallNode struct {
	at
	Name string
	Args []Node
}

func (n *CallNode) nodeType() string { return "Call" }

// ListNode represents a list literal (e.g., [1, 2, 3]).
type ListNode struct {
	at
	Elements []Node
}

func (n *ListNode) nodeType() string { return "List" }

// InNode represents a membership test (e.g., x in [1, 2], 'a' in "Name").
type InNode struct {
	at
	Value     Node
	Container Node
	Negated   bool // true for "not in"
}

func (n *InNode) nodeType() string { return "In" }

// ConditionalNode is c ? a : b, if (c) a else b, or if(c, a, b). A missing
// else branch evaluates to null.
type ConditionalNode struct {
	at
	Cond Node
	Then Node
	Else Node // may be nil
}

func (n *ConditionalNode) nodeType() string { return "Conditional" }

// AssignNode is var x := e, x := e or a compound assignment such as x += e.
type AssignNode struct {
	at
	Name    string
	Op      string // ":=", "+=", "-=", "*=", "/=", "%="
	Value   Node   // nil for a bare "var x"
	Declare bool
}

func (n *AssignNode) nodeType() string { return "Assign" }

// Columns returns the distinct column names node references, in order of
// first use.
func Columns(node Node) []string {
	var names []string
	seen := make(map[string]bool)
	Walk(node, func(n Node) {
		if c, ok := n.(*ColumnNode); ok && !seen[c.Name] {
			seen[c.Name] = true
			names = append(names, c.Name)
		}
	})
	return names
}

// Functions returns the distinct function names node calls, in order of
// first use.
func Functions(node Node) []string {
	var names []string
	seen := make(map[string]bool)
	Walk(node, func(n Node) {
		if c, ok := n.(*CallNode); ok && !seen[c.Name] {
			seen[c.Name] = true
			names = append(names, c.Name)
		}
	})
	return names
}

// Walk calls fn for node and every descendant, parents first.
func Walk(node Node, fn func(Node)) {
	if node == nil {
		return
	}
	fn(node)
	switch n := node.(type) {
	case *Program:
		for _, s := range n.Statements {
			Walk(s, fn)
		}
	case *BinaryNode:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *UnaryNode:
		Walk(n.Operand, fn)
	case *IndexNode:
		Walk(n.Object, fn)
		Walk(n.Index, fn)
	case *CallNode:
		for _, a := range n.Args {
			Walk(a, fn)
		}
	case *ListNode:
		for _, e := range n.Elements {
			Walk(e, fn)
		}
	case *InNode:
		Walk(n.Value, fn)
		Walk(n.Container, fn)
	case *ConditionalNode:
		Walk(n.Cond, fn)
		Walk(n.Then, fn)
		Walk(n.Else, fn)
	case *AssignNode:
		Walk(n.Value, fn)
	}
}
