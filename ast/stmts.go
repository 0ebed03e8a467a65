package ast

import "fmt"

type (
	// AssignStmt is `Left0 = Left1 = ... = Right` (spec §3 "chained
	// assignment"), folded from repeated single-target stores by the
	// rewrite pipeline's chain-assignment pass (spec §4.G.5).
	AssignStmt struct {
		Targets []Expr // len >= 1
		Value   Expr
		Start   Pos
	}

	// AugAssignStmt is `Target Op= Value`.
	AugAssignStmt struct {
		Target Expr
		Op     string // "+", "-", ...
		Value  Expr
		Start  Pos
	}

	// AnnAssignStmt is `Target: Annotation = Value` (Value may be nil for a
	// bare annotation with no assignment).
	AnnAssignStmt struct {
		Target     Expr
		Annotation Expr
		Value      Expr // nil if no value
		Start      Pos
	}

	// ExprStmt is an expression used as a statement (e.g. a bare call).
	ExprStmt struct {
		Value Expr
	}

	// ReturnStmt is `return Value` or bare `return` (Value nil). The
	// rewrite pipeline's implicit-return-elision pass (spec §4.G.1) removes
	// a trailing bare `return` or `return None` from function and module
	// bodies; a Return with any other Value is kept.
	ReturnStmt struct {
		Value      Expr // nil for bare return
		Start, End Pos
	}

	// RaiseStmt is `raise`, `raise Exc`, or `raise Exc from Cause`.
	RaiseStmt struct {
		Exc, Cause Expr // both nil for bare re-raise
		Start      Pos
	}

	// AssertStmt is `assert Test, Msg` (Msg may be nil), reconstructed by
	// the rewrite pipeline's assert-reconstruction pass (spec §4.G.6) from
	// `if not Test: raise AssertionError(Msg)`.
	AssertStmt struct {
		Test, Msg Expr
		Start     Pos
	}

	// DeleteStmt is `del Targets...`.
	DeleteStmt struct {
		Targets []Expr
		Start   Pos
	}

	// PassStmt is an explicit `pass` (emitted only where a body would
	// otherwise be empty, spec §8 boundary behavior 13).
	PassStmt struct {
		Start Pos
	}

	// BreakStmt and ContinueStmt resolve to a specific enclosing loop via
	// the dominator-derived enclosing-loop map (spec §4.F "Break/continue"),
	// never by block-id heuristics; neither struct carries a reference to
	// its loop (Python has no labeled break/continue).
	BreakStmt struct {
		Start Pos
	}
	ContinueStmt struct {
		Start Pos
	}

	// ImportAlias is one `name as asname` import clause (asname == name
	// when there was no `as`).
	ImportAlias struct {
		Name, AsName string
	}

	// ImportStmt is `import a.b.c as d, e.f`.
	ImportStmt struct {
		Names []ImportAlias
		Start Pos
	}

	// ImportFromStmt is `from Module import a, b as c`, merged from
	// individual IMPORT_FROM+STORE pairs by the rewrite pipeline's
	// import-grouping pass (spec §4.G.3).
	ImportFromStmt struct {
		Module string
		Level  int // number of leading dots for relative imports
		Names  []ImportAlias
		Start  Pos
	}

	// GlobalStmt and NonlocalStmt declare names without assigning them;
	// STORE_GLOBAL alone (no corresponding read) triggers a GlobalStmt,
	// never a bare Name read (spec §4.D "local/global/cell... store").
	GlobalStmt struct {
		Names []string
		Start Pos
	}
	NonlocalStmt struct {
		Names []string
		Start Pos
	}

	// ElifBranch is one `elif Test: Body` clause folded into the parent
	// IfStmt's chain (spec §4.F "If": "fold into elif only when the
	// else-range is a single if with no statement prelude").
	ElifBranch struct {
		Test Expr
		Body []Stmt
	}

	// IfStmt is `if Test: Body elif ...: ... else: Orelse`.
	IfStmt struct {
		Test       Expr
		Body       []Stmt
		Elifs      []ElifBranch
		Orelse     []Stmt // nil if no else clause
		Start, End Pos
	}

	// WhileStmt is `while Test: Body else: Orelse`.
	WhileStmt struct {
		Test       Expr
		Body       []Stmt
		Orelse     []Stmt
		Start, End Pos
	}

	// ForStmt is `for Target in Iter: Body else: Orelse`, possibly async
	// (spec §4.I supplement).
	ForStmt struct {
		Target     Expr
		Iter       Expr
		Body       []Stmt
		Orelse     []Stmt
		IsAsync    bool
		Start, End Pos
	}

	// ExceptHandler is one `except Type as Name: Body` clause; IsStar marks
	// `except*` (spec §8 property 9: `except*` decoded iff the handler used
	// BUILD_LIST+COPY+CHECK_EG_MATCH, never conflated with plain `except`).
	ExceptHandler struct {
		Type   Expr // nil for bare `except:`
		Name   string
		Body   []Stmt
		IsStar bool
		Start  Pos
	}

	// TryStmt is `try: Body except ...: ... else: Orelse finally: Finally`.
	TryStmt struct {
		Body       []Stmt
		Handlers   []ExceptHandler
		Orelse     []Stmt
		Finally    []Stmt
		Start, End Pos
	}

	// WithItem is one `Context as Optional` clause.
	WithItem struct {
		Context Expr
		As      Expr // nil if no `as` target
	}

	// WithStmt is `with Items...: Body`, possibly async.
	WithStmt struct {
		Items      []WithItem
		Body       []Stmt
		IsAsync    bool
		Start, End Pos
	}

	// MatchCase is one `case Pattern if Guard: Body` clause.
	MatchCase struct {
		Pattern Pattern
		Guard   Expr // nil if no guard
		Body    []Stmt
	}

	// MatchStmt is `match Subject: case ...`. A wildcard (`case _:`) case,
	// if present, is always last (spec §8 S6).
	MatchStmt struct {
		Subject    Expr
		Cases      []MatchCase
		Start, End Pos
	}

	// Param is one function parameter, possibly with a default and/or an
	// annotation.
	Param struct {
		Name       string
		Annotation Expr // nil if unannotated
		Default    Expr // nil if no default
	}

	// Arguments is a function's full parameter list, split the way the
	// simulator recovers it from MAKEFUNC-equivalent defaults/kwdefaults
	// tuples (spec §4.D "function/class creation"), with a positional-only
	// marker (spec §4.I supplement, container field added in 3.8).
	Arguments struct {
		PosOnlyParams []Param
		Params        []Param
		VarArg        *Param // nil if no *args
		KwOnlyParams  []Param
		KwArg         *Param // nil if no **kwargs
	}

	// TypeParam is one PEP 695 type-parameter (spec §4.I supplement,
	// StackValue variant "TypeParamWrapper").
	TypeParam struct {
		Name  string
		Bound Expr // nil if unbounded
	}

	// Decorator is one `@expr` line; Expr is the whole decorator expression,
	// a call when the decorator takes arguments (spec §4.I supplement:
	// "decorators with arguments").
	Decorator struct {
		Expr Expr
	}

	// FunctionDefStmt is `def Name(Args) -> Returns: Body`, possibly
	// async/generator, possibly with decorators and type params.
	FunctionDefStmt struct {
		Name        string
		Args        *Arguments
		Returns     Expr // nil if no return annotation
		Body        []Stmt
		Decorators  []Decorator
		TypeParams  []TypeParam
		IsAsync     bool
		IsGenerator bool
		Docstring   string // "" if none
		Start, End  Pos
	}

	// ClassDefStmt is `class Name(Bases, kw=v): Body`.
	ClassDefStmt struct {
		Name       string
		Bases      []Expr
		Keywords   []Keyword
		Body       []Stmt
		Decorators []Decorator
		TypeParams []TypeParam
		Docstring  string
		Start, End Pos
	}

	// TypeAliasStmt is the PEP 695 `type Name = Value` statement (spec §4.I
	// supplement).
	TypeAliasStmt struct {
		Name       string
		TypeParams []TypeParam
		Value      Expr
		Start      Pos
	}

	// BadStmt represents an unrecoverable region the decompiler could not
	// classify into any structured pattern; it carries the raw offsets so
	// the caller can still locate the problem (never produced for
	// well-formed input, spec §7 "no silent recovery" — this exists as an
	// escape hatch for diagnostics only and is never a silent success).
	BadStmt struct {
		Start, End Pos
		Reason     string
	}
)

func (s *AssignStmt) Span() (start, end Pos) { _, end = s.Value.Span(); return s.Start, end }
func (s *AssignStmt) Walk(v Visitor) {
	for _, t := range s.Targets {
		Walk(v, t)
	}
	Walk(v, s.Value)
}
func (s *AssignStmt) stmt() {}
func (s *AssignStmt) String() string {
	out := ""
	for _, t := range s.Targets {
		out += t.String() + " = "
	}
	return out + s.Value.String()
}

func (s *AugAssignStmt) Span() (start, end Pos) { _, end = s.Value.Span(); return s.Start, end }
func (s *AugAssignStmt) Walk(v Visitor)         { Walk(v, s.Target); Walk(v, s.Value) }
func (s *AugAssignStmt) stmt()                  {}
func (s *AugAssignStmt) String() string {
	return fmt.Sprintf("%s %s= %s", s.Target, s.Op, s.Value)
}

func (s *AnnAssignStmt) Span() (start, end Pos) {
	if s.Value != nil {
		_, end = s.Value.Span()
	} else {
		_, end = s.Annotation.Span()
	}
	return s.Start, end
}
func (s *AnnAssignStmt) Walk(v Visitor) {
	Walk(v, s.Target)
	Walk(v, s.Annotation)
	if s.Value != nil {
		Walk(v, s.Value)
	}
}
func (s *AnnAssignStmt) stmt()          {}
func (s *AnnAssignStmt) String() string { return fmt.Sprintf("%s: %s", s.Target, s.Annotation) }

func (s *ExprStmt) Span() (Pos, Pos) { return s.Value.Span() }
func (s *ExprStmt) Walk(v Visitor)   { Walk(v, s.Value) }
func (s *ExprStmt) stmt()            {}
func (s *ExprStmt) String() string   { return s.Value.String() }

func (s *ReturnStmt) Span() (Pos, Pos) { return s.Start, s.End }
func (s *ReturnStmt) Walk(v Visitor) {
	if s.Value != nil {
		Walk(v, s.Value)
	}
}
func (s *ReturnStmt) stmt() {}
func (s *ReturnStmt) String() string {
	if s.Value == nil {
		return "return"
	}
	return "return " + s.Value.String()
}

func (s *RaiseStmt) Span() (start, end Pos) {
	end = s.Start
	if s.Cause != nil {
		_, end = s.Cause.Span()
	} else if s.Exc != nil {
		_, end = s.Exc.Span()
	}
	return s.Start, end
}
func (s *RaiseStmt) Walk(v Visitor) {
	if s.Exc != nil {
		Walk(v, s.Exc)
	}
	if s.Cause != nil {
		Walk(v, s.Cause)
	}
}
func (s *RaiseStmt) stmt()          {}
func (s *RaiseStmt) String() string { return "raise" }

func (s *AssertStmt) Span() (start, end Pos) {
	end = s.Start
	if s.Msg != nil {
		_, end = s.Msg.Span()
	} else {
		_, end = s.Test.Span()
	}
	return s.Start, end
}
func (s *AssertStmt) Walk(v Visitor) {
	Walk(v, s.Test)
	if s.Msg != nil {
		Walk(v, s.Msg)
	}
}
func (s *AssertStmt) stmt()          {}
func (s *AssertStmt) String() string { return "assert " + s.Test.String() }

func (s *DeleteStmt) Span() (start, end Pos) {
	_, end = s.Targets[len(s.Targets)-1].Span()
	return s.Start, end
}
func (s *DeleteStmt) Walk(v Visitor) {
	for _, t := range s.Targets {
		Walk(v, t)
	}
}
func (s *DeleteStmt) stmt()          {}
func (s *DeleteStmt) String() string { return "del ..." }

func (s *PassStmt) Span() (Pos, Pos) { return s.Start, s.Start }
func (s *PassStmt) Walk(v Visitor)   {}
func (s *PassStmt) stmt()            {}
func (s *PassStmt) String() string   { return "pass" }

func (s *BreakStmt) Span() (Pos, Pos) { return s.Start, s.Start }
func (s *BreakStmt) Walk(v Visitor)   {}
func (s *BreakStmt) stmt()            {}
func (s *BreakStmt) String() string   { return "break" }

func (s *ContinueStmt) Span() (Pos, Pos) { return s.Start, s.Start }
func (s *ContinueStmt) Walk(v Visitor)   {}
func (s *ContinueStmt) stmt()            {}
func (s *ContinueStmt) String() string   { return "continue" }

func (s *ImportStmt) Span() (Pos, Pos) { return s.Start, s.Start }
func (s *ImportStmt) Walk(v Visitor)   {}
func (s *ImportStmt) stmt()            {}
func (s *ImportStmt) String() string   { return "import ..." }

func (s *ImportFromStmt) Span() (Pos, Pos) { return s.Start, s.Start }
func (s *ImportFromStmt) Walk(v Visitor)   {}
func (s *ImportFromStmt) stmt()            {}
func (s *ImportFromStmt) String() string   { return "from " + s.Module + " import ..." }

func (s *GlobalStmt) Span() (Pos, Pos) { return s.Start, s.Start }
func (s *GlobalStmt) Walk(v Visitor)   {}
func (s *GlobalStmt) stmt()            {}
func (s *GlobalStmt) String() string   { return "global ..." }

func (s *NonlocalStmt) Span() (Pos, Pos) { return s.Start, s.Start }
func (s *NonlocalStmt) Walk(v Visitor)   {}
func (s *NonlocalStmt) stmt()            {}
func (s *NonlocalStmt) String() string   { return "nonlocal ..." }

func (s *IfStmt) Span() (Pos, Pos) { return s.Start, s.End }
func (s *IfStmt) Walk(v Visitor) {
	Walk(v, s.Test)
	for _, st := range s.Body {
		Walk(v, st)
	}
	for _, e := range s.Elifs {
		Walk(v, e.Test)
		for _, st := range e.Body {
			Walk(v, st)
		}
	}
	for _, st := range s.Orelse {
		Walk(v, st)
	}
}
func (s *IfStmt) stmt()          {}
func (s *IfStmt) String() string { return "if " + s.Test.String() }

func (s *WhileStmt) Span() (Pos, Pos) { return s.Start, s.End }
func (s *WhileStmt) Walk(v Visitor) {
	Walk(v, s.Test)
	for _, st := range s.Body {
		Walk(v, st)
	}
	for _, st := range s.Orelse {
		Walk(v, st)
	}
}
func (s *WhileStmt) stmt()          {}
func (s *WhileStmt) String() string { return "while " + s.Test.String() }

func (s *ForStmt) Span() (Pos, Pos) { return s.Start, s.End }
func (s *ForStmt) Walk(v Visitor) {
	Walk(v, s.Target)
	Walk(v, s.Iter)
	for _, st := range s.Body {
		Walk(v, st)
	}
	for _, st := range s.Orelse {
		Walk(v, st)
	}
}
func (s *ForStmt) stmt()          {}
func (s *ForStmt) String() string { return "for " + s.Target.String() + " in " + s.Iter.String() }

func (s *TryStmt) Span() (Pos, Pos) { return s.Start, s.End }
func (s *TryStmt) Walk(v Visitor) {
	for _, st := range s.Body {
		Walk(v, st)
	}
	for _, h := range s.Handlers {
		if h.Type != nil {
			Walk(v, h.Type)
		}
		for _, st := range h.Body {
			Walk(v, st)
		}
	}
	for _, st := range s.Orelse {
		Walk(v, st)
	}
	for _, st := range s.Finally {
		Walk(v, st)
	}
}
func (s *TryStmt) stmt()          {}
func (s *TryStmt) String() string { return "try" }

func (s *WithStmt) Span() (Pos, Pos) { return s.Start, s.End }
func (s *WithStmt) Walk(v Visitor) {
	for _, it := range s.Items {
		Walk(v, it.Context)
		if it.As != nil {
			Walk(v, it.As)
		}
	}
	for _, st := range s.Body {
		Walk(v, st)
	}
}
func (s *WithStmt) stmt()          {}
func (s *WithStmt) String() string { return "with ..." }

func (s *MatchStmt) Span() (Pos, Pos) { return s.Start, s.End }
func (s *MatchStmt) Walk(v Visitor) {
	Walk(v, s.Subject)
	for _, c := range s.Cases {
		Walk(v, c.Pattern)
		if c.Guard != nil {
			Walk(v, c.Guard)
		}
		for _, st := range c.Body {
			Walk(v, st)
		}
	}
}
func (s *MatchStmt) stmt()          {}
func (s *MatchStmt) String() string { return "match " + s.Subject.String() }

func (s *FunctionDefStmt) Span() (Pos, Pos) { return s.Start, s.End }
func (s *FunctionDefStmt) Walk(v Visitor) {
	for _, st := range s.Body {
		Walk(v, st)
	}
}
func (s *FunctionDefStmt) stmt()          {}
func (s *FunctionDefStmt) String() string { return "def " + s.Name }

func (s *ClassDefStmt) Span() (Pos, Pos) { return s.Start, s.End }
func (s *ClassDefStmt) Walk(v Visitor) {
	for _, b := range s.Bases {
		Walk(v, b)
	}
	for _, st := range s.Body {
		Walk(v, st)
	}
}
func (s *ClassDefStmt) stmt()          {}
func (s *ClassDefStmt) String() string { return "class " + s.Name }

func (s *TypeAliasStmt) Span() (start, end Pos) { _, end = s.Value.Span(); return s.Start, end }
func (s *TypeAliasStmt) Walk(v Visitor)         { Walk(v, s.Value) }
func (s *TypeAliasStmt) stmt()                  {}
func (s *TypeAliasStmt) String() string         { return "type " + s.Name }

func (s *BadStmt) Span() (Pos, Pos) { return s.Start, s.End }
func (s *BadStmt) Walk(v Visitor)   {}
func (s *BadStmt) stmt()            {}
func (s *BadStmt) String() string   { return "!bad stmt!: " + s.Reason }
