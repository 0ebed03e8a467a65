// Patterns implement Python's structural pattern matching (`match`/`case`,
// spec §4.I supplement), built by the decompile package (match.go) from
// the case blocks of a match statement; the simulator pushes only
// placeholder results for the MATCH_*-family opcodes (spec §4.D).
package ast

import "strings"

type (
	// LiteralPattern is `case 1:` / `case "x":` / `case None:`.
	LiteralPattern struct {
		Value Expr
		Start Pos
	}

	// CapturePattern is `case name:`, binding the subject to Name.
	CapturePattern struct {
		Name  string
		Start Pos
	}

	// WildcardPattern is the bare `case _:`.
	WildcardPattern struct {
		Start Pos
	}

	// ValuePattern is `case mod.CONST:`, a dotted attribute compared by
	// value rather than bound.
	ValuePattern struct {
		Value Expr // AttributeExpr
		Start Pos
	}

	// SequencePattern is `case [a, b, *rest]:` / `case (a, b):`.
	SequencePattern struct {
		Elems []Pattern
		Start Pos
		End   Pos
	}

	// StarPattern is the `*rest` / `*_` element inside a SequencePattern.
	StarPattern struct {
		Name  string // "" for `*_`
		Start Pos
	}

	// MappingKey is one `key: Pattern` entry in a MappingPattern.
	MappingKey struct {
		Key     Expr
		Pattern Pattern
	}

	// MappingPattern is `case {"k": v, **rest}:`.
	MappingPattern struct {
		Keys     []MappingKey
		RestName string // "" if no **rest
		Start    Pos
		End      Pos
	}

	// ClassKeyword is one `name=Pattern` keyword entry in a ClassPattern.
	ClassKeyword struct {
		Name    string
		Pattern Pattern
	}

	// ClassPattern is `case Point(x=0, y=0):` / `case Point(0, 0):`.
	ClassPattern struct {
		Class     Expr // NameExpr or AttributeExpr
		Positions []Pattern
		Keywords  []ClassKeyword
		Start     Pos
		End       Pos
	}

	// OrPattern is `case 1 | 2 | 3:`.
	OrPattern struct {
		Alternatives []Pattern
	}

	// AsPattern is `case [a, b] as pair:`.
	AsPattern struct {
		Inner Pattern
		Name  string
	}
)

func (p *LiteralPattern) Span() (Pos, Pos) { _, e := p.Value.Span(); return p.Start, e }
func (p *LiteralPattern) Walk(v Visitor)   { Walk(v, p.Value) }
func (p *LiteralPattern) pattern()         {}
func (p *LiteralPattern) String() string   { return p.Value.String() }

func (p *CapturePattern) Span() (Pos, Pos) { return p.Start, p.Start }
func (p *CapturePattern) Walk(v Visitor)   {}
func (p *CapturePattern) pattern()         {}
func (p *CapturePattern) String() string   { return p.Name }

func (p *WildcardPattern) Span() (Pos, Pos) { return p.Start, p.Start }
func (p *WildcardPattern) Walk(v Visitor)   {}
func (p *WildcardPattern) pattern()         {}
func (p *WildcardPattern) String() string   { return "_" }

func (p *ValuePattern) Span() (Pos, Pos) { _, e := p.Value.Span(); return p.Start, e }
func (p *ValuePattern) Walk(v Visitor)   { Walk(v, p.Value) }
func (p *ValuePattern) pattern()         {}
func (p *ValuePattern) String() string   { return p.Value.String() }

func (p *SequencePattern) Span() (Pos, Pos) { return p.Start, p.End }
func (p *SequencePattern) Walk(v Visitor) {
	for _, e := range p.Elems {
		Walk(v, e)
	}
}
func (p *SequencePattern) pattern() {}
func (p *SequencePattern) String() string {
	parts := make([]string, len(p.Elems))
	for i, e := range p.Elems {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (p *StarPattern) Span() (Pos, Pos) { return p.Start, p.Start }
func (p *StarPattern) Walk(v Visitor)   {}
func (p *StarPattern) pattern()         {}
func (p *StarPattern) String() string {
	if p.Name == "" {
		return "*_"
	}
	return "*" + p.Name
}

func (p *MappingPattern) Span() (Pos, Pos) { return p.Start, p.End }
func (p *MappingPattern) Walk(v Visitor) {
	for _, k := range p.Keys {
		Walk(v, k.Key)
		Walk(v, k.Pattern)
	}
}
func (p *MappingPattern) pattern()       {}
func (p *MappingPattern) String() string { return "{...}" }

func (p *ClassPattern) Span() (Pos, Pos) { return p.Start, p.End }
func (p *ClassPattern) Walk(v Visitor) {
	Walk(v, p.Class)
	for _, e := range p.Positions {
		Walk(v, e)
	}
	for _, k := range p.Keywords {
		Walk(v, k.Pattern)
	}
}
func (p *ClassPattern) pattern()       {}
func (p *ClassPattern) String() string { return p.Class.String() + "(...)" }

func (p *OrPattern) Span() (Pos, Pos) {
	s, _ := p.Alternatives[0].Span()
	_, e := p.Alternatives[len(p.Alternatives)-1].Span()
	return s, e
}
func (p *OrPattern) Walk(v Visitor) {
	for _, a := range p.Alternatives {
		Walk(v, a)
	}
}
func (p *OrPattern) pattern() {}
func (p *OrPattern) String() string {
	parts := make([]string, len(p.Alternatives))
	for i, a := range p.Alternatives {
		parts[i] = a.String()
	}
	return strings.Join(parts, " | ")
}

func (p *AsPattern) Span() (Pos, Pos) { return p.Inner.Span() }
func (p *AsPattern) Walk(v Visitor)   { Walk(v, p.Inner) }
func (p *AsPattern) pattern()         {}
func (p *AsPattern) String() string   { return p.Inner.String() + " as " + p.Name }
