// Package ast defines the language-agnostic tagged-union AST exposed to the
// emitter (spec §3, §6). Every node knows its own byte-offset span (derived
// from the instruction offsets that produced it) and accepts a Visitor,
// mirroring the shape of lang/ast in the teacher repo (Span()/Walk()
// methods, a Visitor double-dispatch, a debug Format helper) with Python
// statement/expression/pattern kinds substituted for the teacher's own
// language.
package ast

import "fmt"

// Pos is a source location derived from the line-number table (spec §6).
// Line and Col are zero when unavailable (e.g. inside a synthesized node
// that has no single originating instruction).
type Pos struct {
	Offset uint32
	Line   uint32
	Col    uint16
}

// Node is implemented by every Expr, Stmt and Pattern.
type Node interface {
	Span() (start, end Pos)
	Walk(v Visitor)
	fmt.Stringer
}

// Expr is implemented by every expression node (spec §3 "Expr").
type Expr interface {
	Node
	expr()
}

// Stmt is implemented by every statement node (spec §3 "Stmt").
type Stmt interface {
	Node
	stmt()
}

// Pattern is implemented by every match-case pattern node (spec §3 "match").
type Pattern interface {
	Node
	pattern()
}

// Module is the root of a decompiled code object's output (spec §3's
// Non-goals imply a Chunk-equivalent root; modeled here directly as a
// statement list since Python has no separate top-level "chunk" wrapper
// beyond its module body).
type Module struct {
	Name  string
	Body  []Stmt
	Start Pos
}

func (n *Module) Span() (start, end Pos) {
	start = n.Start
	if len(n.Body) == 0 {
		return start, start
	}
	_, end = n.Body[len(n.Body)-1].Span()
	return start, end
}
func (n *Module) Walk(v Visitor) {
	for _, s := range n.Body {
		Walk(v, s)
	}
}
func (n *Module) String() string { return fmt.Sprintf("module %s (%d stmts)", n.Name, len(n.Body)) }
