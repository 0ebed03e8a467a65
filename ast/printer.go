package ast

import (
	"fmt"
	"io"
	"strings"
)

// PosMode controls whether Printer annotates each node with its source span,
// mirroring the teacher's token.PosMode toggle in lang/ast/printer.go.
type PosMode int

const (
	PosNone PosMode = iota
	PosLine
	PosFull
)

// Printer dumps a tree of Node for debugging and tests (spec §6: the
// decompiler's intermediate structured AST must be inspectable independent
// of source emission, which is out of scope).
type Printer struct {
	Output io.Writer
	Pos    PosMode
}

// Print walks n, writing one indented line per node.
func (p *Printer) Print(n Node) error {
	pp := &printer{w: p.Output, pos: p.Pos}
	Walk(pp, n)
	return pp.err
}

type printer struct {
	w     io.Writer
	pos   PosMode
	depth int
	err   error
}

func (p *printer) Visit(n Node, dir VisitDirection) Visitor {
	if dir == VisitExit || p.err != nil {
		p.depth--
		return nil
	}
	p.depth++
	p.printNode(n, p.depth-1)
	return p
}

func (p *printer) printNode(n Node, indent int) {
	if p.err != nil {
		return
	}
	prefix := strings.Repeat(". ", indent)
	if p.pos == PosNone {
		_, p.err = fmt.Fprintf(p.w, "%s%v\n", prefix, n)
		return
	}
	start, end := n.Span()
	if p.pos == PosLine {
		_, p.err = fmt.Fprintf(p.w, "%s[%d:%d] %v\n", prefix, start.Line, end.Line, n)
		return
	}
	_, p.err = fmt.Fprintf(p.w, "%s[%d-%d] %v\n", prefix, start.Offset, end.Offset, n)
}

// Dump renders n as a string using the default (no-position) format; handy
// in test failure messages and in trace sinks (spec component H).
func Dump(n Node) string {
	var b strings.Builder
	p := &Printer{Output: &b, Pos: PosNone}
	_ = p.Print(n)
	return b.String()
}
