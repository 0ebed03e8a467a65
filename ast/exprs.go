package ast

import "fmt"

type (
	// ConstantExpr is a literal constant: int, str, bytes, bigint, bool,
	// None, tuple, or frozenset (spec §3 "Expr").
	ConstantExpr struct {
		Value interface{} // int64 | *big.Int | float64 | string | []byte | bool | nil | Tuple-of-constants | FrozenSet
		Start Pos
		End   Pos
	}

	// NameExpr is a bare identifier reference.
	NameExpr struct {
		Id    string
		Start Pos
	}

	// AttributeExpr is `Value.Attr`.
	AttributeExpr struct {
		Value Expr
		Attr  string
		End   Pos
	}

	// SubscriptExpr is `Value[Index]`.
	SubscriptExpr struct {
		Value Expr
		Index Expr
		End   Pos
	}

	// SliceExpr is `lo:hi:step`, any of which may be nil.
	SliceExpr struct {
		Lo, Hi, Step Expr
		Start, End   Pos
	}

	// Keyword is one `name=value` call argument, or name=="" for **kwargs.
	Keyword struct {
		Name  string
		Value Expr
	}

	// CallExpr is `Fn(Args..., Kwargs..., *Star, **DoubleStar)` (spec §3).
	CallExpr struct {
		Fn         Expr
		Args       []Expr
		Kwargs     []Keyword
		Star       Expr // non-nil for *args
		DoubleStar Expr // non-nil for **kwargs
		End        Pos
	}

	// BinOpExpr is `Left Op Right`.
	BinOpExpr struct {
		Left, Right Expr
		Op          string // "+", "-", "*", ...
	}

	// UnaryOpExpr is `Op Operand`.
	UnaryOpExpr struct {
		Op      string // "-", "+", "~", "not"
		Operand Expr
		Start   Pos
	}

	// CompareExpr is a chained n-ary comparison, e.g. `a < b <= c` (spec §3,
	// §4.F "Chained comparisons").
	CompareExpr struct {
		Left        Expr
		Ops         []string // len(Ops) == len(Comparators)
		Comparators []Expr
	}

	// BoolOpExpr is a short-circuit `and`/`or` chain (spec §3, §4.G "Boolean
	// polish" flattens nested same-op chains).
	BoolOpExpr struct {
		Op     string // "and" | "or"
		Values []Expr
	}

	// IfExpExpr is the ternary `Body if Test else Orelse` (spec §3, §4.E
	// "Ternary").
	IfExpExpr struct {
		Test, Body, Orelse Expr
	}

	// LambdaExpr is `lambda Args: Body`.
	LambdaExpr struct {
		Args  *Arguments
		Body  Expr
		Start Pos
	}

	// CompKind distinguishes the four comprehension container shapes (spec
	// §3: list/tuple/set/dict/generator comprehension).
	CompKind int

	// Comprehension is one `for Target in Iter if Ifs...` clause, possibly
	// async (spec §4.I supplement).
	Comprehension struct {
		Target  Expr
		Iter    Expr
		Ifs     []Expr
		IsAsync bool
	}

	// ListCompExpr, SetCompExpr, GeneratorExpExpr share this shape: one
	// element expression plus one or more nested for/if clauses (spec §3,
	// §4.D "comprehension open/close").
	ListCompExpr struct {
		Elt        Expr
		Generators []Comprehension
		Start, End Pos
	}
	SetCompExpr struct {
		Elt        Expr
		Generators []Comprehension
		Start, End Pos
	}
	GeneratorExpExpr struct {
		Elt        Expr
		Generators []Comprehension
		Start, End Pos
	}

	// DictCompExpr is `{Key: Value for ...}`.
	DictCompExpr struct {
		Key, Value Expr
		Generators []Comprehension
		Start, End Pos
	}

	// ListExpr, TupleExpr, SetExpr are literal container displays (not
	// comprehensions).
	ListExpr struct {
		Elts       []Expr
		Start, End Pos
	}
	TupleExpr struct {
		Elts       []Expr
		Start, End Pos
	}
	SetExpr struct {
		Elts       []Expr
		Start, End Pos
	}

	// DictExpr is `{k1: v1, **rest, k2: v2}`; a nil Keys[i] marks a `**rest`
	// unpack whose value is Values[i].
	DictExpr struct {
		Keys, Values []Expr
		Start, End   Pos
	}

	// FormattedValue is one `{expr!conv:spec}` slot inside an f-string (spec
	// §3 "f-string"). Conversion is 0, 's', 'r' or 'a'.
	FormattedValue struct {
		Value      Expr
		Conversion rune
		FormatSpec Expr // nil, or a JoinedStrExpr for a nested format spec
	}

	// JoinedStrExpr is an f-string: an ordered sequence of literal string
	// parts (represented as ConstantExpr) and FormattedValue slots (spec
	// §3, §4.D "f-string").
	JoinedStrExpr struct {
		Parts      []Expr // *ConstantExpr or *FormattedValue
		Start, End Pos
	}

	// StarredExpr is `*expr` used inside a call, assignment target, or
	// display (spec §3 "starred").
	StarredExpr struct {
		Value Expr
		Start Pos
	}

	// NamedExpr is the walrus operator `target := value` (spec §3
	// "named-expr").
	NamedExpr struct {
		Target *NameExpr
		Value  Expr
	}

	// YieldExpr is `yield value` or bare `yield`.
	YieldExpr struct {
		Value Expr // nil for bare yield
		Start Pos
	}

	// YieldFromExpr is `yield from value`.
	YieldFromExpr struct {
		Value Expr
		Start Pos
	}

	// AwaitExpr is `await value` (spec §4.I supplement).
	AwaitExpr struct {
		Value Expr
		Start Pos
	}
)

const (
	CompList CompKind = iota
	CompSet
	CompDict
	CompGenerator
)

func (e *ConstantExpr) Span() (Pos, Pos) { return e.Start, e.End }
func (e *ConstantExpr) Walk(v Visitor)   {}
func (e *ConstantExpr) expr()            {}
func (e *ConstantExpr) String() string   { return fmt.Sprintf("%#v", e.Value) }

func (e *NameExpr) Span() (Pos, Pos) {
	return e.Start, Pos{Offset: e.Start.Offset + uint32(len(e.Id)), Line: e.Start.Line}
}
func (e *NameExpr) Walk(v Visitor) {}
func (e *NameExpr) expr()          {}
func (e *NameExpr) String() string { return e.Id }

func (e *AttributeExpr) Span() (start, end Pos) { start, _ = e.Value.Span(); return start, e.End }
func (e *AttributeExpr) Walk(v Visitor)         { Walk(v, e.Value) }
func (e *AttributeExpr) expr()                  {}
func (e *AttributeExpr) String() string         { return fmt.Sprintf("%s.%s", e.Value, e.Attr) }

func (e *SubscriptExpr) Span() (start, end Pos) { start, _ = e.Value.Span(); return start, e.End }
func (e *SubscriptExpr) Walk(v Visitor)         { Walk(v, e.Value); Walk(v, e.Index) }
func (e *SubscriptExpr) expr()                  {}
func (e *SubscriptExpr) String() string         { return fmt.Sprintf("%s[%s]", e.Value, e.Index) }

func (e *SliceExpr) Span() (Pos, Pos) { return e.Start, e.End }
func (e *SliceExpr) Walk(v Visitor) {
	if e.Lo != nil {
		Walk(v, e.Lo)
	}
	if e.Hi != nil {
		Walk(v, e.Hi)
	}
	if e.Step != nil {
		Walk(v, e.Step)
	}
}
func (e *SliceExpr) expr() {}
func (e *SliceExpr) String() string {
	s := ""
	if e.Lo != nil {
		s += e.Lo.String()
	}
	s += ":"
	if e.Hi != nil {
		s += e.Hi.String()
	}
	if e.Step != nil {
		s += ":" + e.Step.String()
	}
	return s
}

func (e *CallExpr) Span() (start, end Pos) { start, _ = e.Fn.Span(); return start, e.End }
func (e *CallExpr) Walk(v Visitor) {
	Walk(v, e.Fn)
	for _, a := range e.Args {
		Walk(v, a)
	}
	for _, k := range e.Kwargs {
		Walk(v, k.Value)
	}
	if e.Star != nil {
		Walk(v, e.Star)
	}
	if e.DoubleStar != nil {
		Walk(v, e.DoubleStar)
	}
}
func (e *CallExpr) expr()          {}
func (e *CallExpr) String() string { return fmt.Sprintf("%s(...)", e.Fn) }

func (e *BinOpExpr) Span() (start, end Pos) {
	start, _ = e.Left.Span()
	_, end = e.Right.Span()
	return
}
func (e *BinOpExpr) Walk(v Visitor) { Walk(v, e.Left); Walk(v, e.Right) }
func (e *BinOpExpr) expr()          {}
func (e *BinOpExpr) String() string { return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right) }

func (e *UnaryOpExpr) Span() (start, end Pos) { _, end = e.Operand.Span(); return e.Start, end }
func (e *UnaryOpExpr) Walk(v Visitor)         { Walk(v, e.Operand) }
func (e *UnaryOpExpr) expr()                  {}
func (e *UnaryOpExpr) String() string         { return fmt.Sprintf("(%s %s)", e.Op, e.Operand) }

func (e *CompareExpr) Span() (start, end Pos) {
	start, _ = e.Left.Span()
	_, end = e.Comparators[len(e.Comparators)-1].Span()
	return
}
func (e *CompareExpr) Walk(v Visitor) {
	Walk(v, e.Left)
	for _, c := range e.Comparators {
		Walk(v, c)
	}
}
func (e *CompareExpr) expr() {}
func (e *CompareExpr) String() string {
	s := e.Left.String()
	for i, op := range e.Ops {
		s += fmt.Sprintf(" %s %s", op, e.Comparators[i])
	}
	return s
}

func (e *BoolOpExpr) Span() (start, end Pos) {
	start, _ = e.Values[0].Span()
	_, end = e.Values[len(e.Values)-1].Span()
	return
}
func (e *BoolOpExpr) Walk(v Visitor) {
	for _, x := range e.Values {
		Walk(v, x)
	}
}
func (e *BoolOpExpr) expr() {}
func (e *BoolOpExpr) String() string {
	s := e.Values[0].String()
	for _, x := range e.Values[1:] {
		s += fmt.Sprintf(" %s %s", e.Op, x)
	}
	return s
}

func (e *IfExpExpr) Span() (start, end Pos) {
	start, _ = e.Body.Span()
	_, end = e.Orelse.Span()
	return
}
func (e *IfExpExpr) Walk(v Visitor) { Walk(v, e.Body); Walk(v, e.Test); Walk(v, e.Orelse) }
func (e *IfExpExpr) expr()          {}
func (e *IfExpExpr) String() string {
	return fmt.Sprintf("%s if %s else %s", e.Body, e.Test, e.Orelse)
}

func (e *LambdaExpr) Span() (start, end Pos) { _, end = e.Body.Span(); return e.Start, end }
func (e *LambdaExpr) Walk(v Visitor)         { Walk(v, e.Body) }
func (e *LambdaExpr) expr()                  {}
func (e *LambdaExpr) String() string         { return fmt.Sprintf("lambda: %s", e.Body) }

func (e *ListCompExpr) Span() (Pos, Pos) { return e.Start, e.End }
func (e *ListCompExpr) Walk(v Visitor)   { walkComp(v, e.Elt, nil, e.Generators) }
func (e *ListCompExpr) expr()            {}
func (e *ListCompExpr) String() string   { return fmt.Sprintf("[%s ...]", e.Elt) }

func (e *SetCompExpr) Span() (Pos, Pos) { return e.Start, e.End }
func (e *SetCompExpr) Walk(v Visitor)   { walkComp(v, e.Elt, nil, e.Generators) }
func (e *SetCompExpr) expr()            {}
func (e *SetCompExpr) String() string   { return fmt.Sprintf("{%s ...}", e.Elt) }

func (e *GeneratorExpExpr) Span() (Pos, Pos) { return e.Start, e.End }
func (e *GeneratorExpExpr) Walk(v Visitor)   { walkComp(v, e.Elt, nil, e.Generators) }
func (e *GeneratorExpExpr) expr()            {}
func (e *GeneratorExpExpr) String() string   { return fmt.Sprintf("(%s ...)", e.Elt) }

func (e *DictCompExpr) Span() (Pos, Pos) { return e.Start, e.End }
func (e *DictCompExpr) Walk(v Visitor)   { walkComp(v, e.Key, e.Value, e.Generators) }
func (e *DictCompExpr) expr()            {}
func (e *DictCompExpr) String() string   { return fmt.Sprintf("{%s: %s ...}", e.Key, e.Value) }

func walkComp(v Visitor, elt, val Expr, gens []Comprehension) {
	if elt != nil {
		Walk(v, elt)
	}
	if val != nil {
		Walk(v, val)
	}
	for _, g := range gens {
		Walk(v, g.Target)
		Walk(v, g.Iter)
		for _, i := range g.Ifs {
			Walk(v, i)
		}
	}
}

func (e *ListExpr) Span() (Pos, Pos) { return e.Start, e.End }
func (e *ListExpr) Walk(v Visitor)   { walkExprs(v, e.Elts) }
func (e *ListExpr) expr()            {}
func (e *ListExpr) String() string   { return fmt.Sprintf("list(%d)", len(e.Elts)) }

func (e *TupleExpr) Span() (Pos, Pos) { return e.Start, e.End }
func (e *TupleExpr) Walk(v Visitor)   { walkExprs(v, e.Elts) }
func (e *TupleExpr) expr()            {}
func (e *TupleExpr) String() string   { return fmt.Sprintf("tuple(%d)", len(e.Elts)) }

func (e *SetExpr) Span() (Pos, Pos) { return e.Start, e.End }
func (e *SetExpr) Walk(v Visitor)   { walkExprs(v, e.Elts) }
func (e *SetExpr) expr()            {}
func (e *SetExpr) String() string   { return fmt.Sprintf("set(%d)", len(e.Elts)) }

func walkExprs(v Visitor, elts []Expr) {
	for _, e := range elts {
		Walk(v, e)
	}
}

func (e *DictExpr) Span() (Pos, Pos) { return e.Start, e.End }
func (e *DictExpr) Walk(v Visitor) {
	for i, k := range e.Keys {
		if k != nil {
			Walk(v, k)
		}
		Walk(v, e.Values[i])
	}
}
func (e *DictExpr) expr()          {}
func (e *DictExpr) String() string { return fmt.Sprintf("dict(%d)", len(e.Keys)) }

func (e *FormattedValue) Span() (start, end Pos) { return e.Value.Span() }
func (e *FormattedValue) Walk(v Visitor) {
	Walk(v, e.Value)
	if e.FormatSpec != nil {
		Walk(v, e.FormatSpec)
	}
}
func (e *FormattedValue) expr()          {}
func (e *FormattedValue) String() string { return fmt.Sprintf("{%s}", e.Value) }

func (e *JoinedStrExpr) Span() (Pos, Pos) { return e.Start, e.End }
func (e *JoinedStrExpr) Walk(v Visitor)   { walkExprs(v, e.Parts) }
func (e *JoinedStrExpr) expr()            {}
func (e *JoinedStrExpr) String() string   { return "f-string" }

func (e *StarredExpr) Span() (start, end Pos) { _, end = e.Value.Span(); return e.Start, end }
func (e *StarredExpr) Walk(v Visitor)         { Walk(v, e.Value) }
func (e *StarredExpr) expr()                  {}
func (e *StarredExpr) String() string         { return fmt.Sprintf("*%s", e.Value) }

func (e *NamedExpr) Span() (start, end Pos) {
	start, _ = e.Target.Span()
	_, end = e.Value.Span()
	return
}
func (e *NamedExpr) Walk(v Visitor) { Walk(v, e.Target); Walk(v, e.Value) }
func (e *NamedExpr) expr()          {}
func (e *NamedExpr) String() string { return fmt.Sprintf("(%s := %s)", e.Target, e.Value) }

func (e *YieldExpr) Span() (start, end Pos) {
	if e.Value == nil {
		return e.Start, e.Start
	}
	_, end = e.Value.Span()
	return e.Start, end
}
func (e *YieldExpr) Walk(v Visitor) {
	if e.Value != nil {
		Walk(v, e.Value)
	}
}
func (e *YieldExpr) expr()          {}
func (e *YieldExpr) String() string { return "yield" }

func (e *YieldFromExpr) Span() (start, end Pos) { _, end = e.Value.Span(); return e.Start, end }
func (e *YieldFromExpr) Walk(v Visitor)         { Walk(v, e.Value) }
func (e *YieldFromExpr) expr()                  {}
func (e *YieldFromExpr) String() string         { return "yield from" }

func (e *AwaitExpr) Span() (start, end Pos) { _, end = e.Value.Span(); return e.Start, end }
func (e *AwaitExpr) Walk(v Visitor)         { Walk(v, e.Value) }
func (e *AwaitExpr) expr()                  {}
func (e *AwaitExpr) String() string         { return "await" }
