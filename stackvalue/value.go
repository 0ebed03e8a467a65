// Package stackvalue implements the StackValue domain and the stack
// dataflow worklist of spec §4.C (Component C). It is grounded on the
// teacher's own operand stack (lang/machine/machine.go's `stack []Value`,
// `sp`), generalized from a concrete runtime stack of Starlark values into
// a symbolic stack of not-yet-evaluated expression fragments that can be
// merged at CFG joins.
package stackvalue

import "github.com/mna/depyc/ast"

// Kind discriminates the closed StackValue union (spec §3 "StackValue",
// §9 "Dynamic dispatch / variant-heavy stack values": every consumer must
// exhaustively switch on Kind).
type Kind uint8

const (
	KindUnknown Kind = iota
	KindExpression
	KindFunctionObject
	KindClassObject
	KindCodeObject
	KindImportModule
	KindImportPull
	KindComprehensionBuilder
	KindTypeParamWrapper
	KindContainerLiteral
	KindUnpackSlot
)

// FnMeta carries the pieces a MAKE_FUNCTION-equivalent sequence assembles
// before the result is bound to a name (spec §4.D "function/class
// creation").
type FnMeta struct {
	CodeName    string
	Defaults    []ast.Expr
	KwDefaults  []ast.Keyword
	Annotations map[string]ast.Expr
	Closure     []string // freevar names captured from enclosing cells
	Qualname    string
	IsAsync     bool
	IsGenerator bool
	Decorators  []ast.Expr // trailing calls/names consumed before the store (spec §4.I)
	TypeParams  []ast.TypeParam
}

// ClsMeta is the class-creation analogue of FnMeta.
type ClsMeta struct {
	Name       string
	Bases      []ast.Expr
	Keywords   []ast.Keyword
	Body       []ast.Stmt
	Decorators []ast.Expr
	TypeParams []ast.TypeParam
}

// CodeRef identifies a nested code object pushed by a constant-load of a
// CodeObject constant (spec §4.D "constant load"), to be recursively
// decompiled when it reaches a MAKE_FUNCTION/MAKE_CLASS store site.
type CodeRef struct {
	Name  string
	Index int // index into the owning CodeObject's child-code table
}

// CompState tracks an in-progress comprehension builder. Two shapes exist
// in the wild (spec §4.D "comprehension open/close"): the PEP 709 inline
// form (BUILD_LIST/SET/MAP 0 + *_APPEND/*_ADD in a loop, tracked in-block
// with a LOAD_FAST_AND_CLEAR save/restore epilogue), and the classic form
// where the comprehension body is its own nested code object, called once
// with the outer iterable as its sole argument. CodeName/Iterable are only
// meaningful for the latter; the decompile package resolves CodeName
// against the owning CodeObject's Children to recurse into the nested
// code object's own block structure (GET_ITER/FOR_ITER, an optional filter
// `if`, and a final *_APPEND/MAP_ADD/YIELD_VALUE) rather than decompiling
// it as an ordinary function body.
type CompState struct {
	Kind       ast.CompKind
	Elt        ast.Expr
	Key        ast.Expr // set only for dict comprehensions
	Generators []ast.Comprehension
	IsInline   bool // PEP 709 inline comprehension (no nested code object)

	CodeName string   // nested code object name, e.g. "<listcomp>"
	Iterable ast.Expr // the outermost for-clause's iterable expression
}

// ContainerLiteral is a partially-built list/tuple/set/dict literal still
// accumulating elements (distinct from CompState, which loops; this is the
// straight-line BUILD_* + N pushes case).
type ContainerLiteral struct {
	Kind  string // "list", "tuple", "set", "dict"
	Elems []ast.Expr
	Keys  []ast.Expr // parallel to Elems for "dict"
}

// UnpackState accumulates the targets of one in-progress
// UNPACK_SEQUENCE/UNPACK_EX (spec §4.D "local/global/cell store", §3
// "assignment"): the unpack pushes Total slots all sharing this record,
// and each following store appends its target; once the last slot is
// consumed the whole thing becomes a single tuple-target assignment
// (`a, b = t`), never Total independent stores of the iterable.
type UnpackState struct {
	Source  ast.Expr
	Total   int
	StarIdx int // index of the *starred target for UNPACK_EX; -1 otherwise
	Targets []ast.Expr
}

// ImportPull carries the module/symbol pair one IMPORT_FROM pull produces,
// so the STORE dispatch can emit a single-name ImportFromStmt directly
// instead of the module name being lost to an ordinary NameExpr assignment
// (spec §4.D "import", merged later by §4.G.3's import-grouping pass).
type ImportPull struct {
	Module string
	Level  int
	Symbol string
}

// Value is one slot of the symbolic operand stack (spec §3 "StackValue").
// Exactly one of the Kind-tagged fields is meaningful per Kind; Unknown
// carries no payload and is the phi/fallback variant forbidden at a final
// emission site (spec §7 NotAnExpression, §9).
type Value struct {
	Kind Kind

	Expr        ast.Expr
	Fn          *FnMeta
	Cls         *ClsMeta
	Code        *CodeRef
	Module      string // meaningful for KindImportModule
	ImportLevel int    // meaningful for KindImportModule; dot-count for relative imports
	Import      *ImportPull
	Comp        *CompState
	Container   *ContainerLiteral
	Unpack      *UnpackState
}

// Unknown constructs the phi/fallback slot.
func Unknown() Value { return Value{Kind: KindUnknown} }

// FromExpr wraps a pure expression as a stack slot.
func FromExpr(e ast.Expr) Value { return Value{Kind: KindExpression, Expr: e} }

// AsExpr returns v's expression and true if v is a pure expression slot; it
// returns false (never panics) for every other Kind, since callers in
// emission context must turn a false result into pyerr.NotAnExpression
// themselves (spec §4.D "Expression purity rule") rather than have this
// package hide the distinction.
func (v Value) AsExpr() (ast.Expr, bool) {
	if v.Kind != KindExpression || v.Expr == nil {
		return nil, false
	}
	return v.Expr, true
}

// Equal reports structural equality used by the dataflow merge (spec §4.C
// "slots at the same depth with structurally equal expressions keep that
// expression"). KindExpression slots compare by structure; a
// ContainerLiteral slot compares equal only to itself (pointer identity),
// so a comprehension accumulator survives its own loop's back-edge merge
// instead of collapsing to Unknown (spec §4.D "comprehension open/close").
// Every other pairing (including two non-expression slots of the same
// Kind, which may carry distinct nested state) merges to Unknown, matching
// the conservative merge policy of §4.C.
func (v Value) Equal(other Value) bool {
	if v.Kind == KindContainerLiteral && other.Kind == KindContainerLiteral {
		return v.Container != nil && v.Container == other.Container
	}
	if v.Kind != KindExpression || other.Kind != KindExpression {
		return false
	}
	if v.Expr == nil || other.Expr == nil {
		return v.Expr == other.Expr
	}
	return ast.Dump(v.Expr) == ast.Dump(other.Expr)
}

// Stack is an immutable (once merged) sequence of Value slots, depth-0
// slot first (spec §4.C "Entry stacks are immutable once converged").
type Stack []Value

// Merge combines two entry-stack candidates at a join point. It returns the
// merged stack and true, or false if the stacks have unequal depth (spec
// §4.C "on depth mismatch at a reachable join, fail with
// StackDepthMismatch"); the caller attaches the block id to the error.
func Merge(a, b Stack) (Stack, bool) {
	if len(a) != len(b) {
		return nil, false
	}
	out := make(Stack, len(a))
	for i := range a {
		if a[i].Equal(b[i]) {
			out[i] = a[i]
		} else {
			out[i] = Unknown()
		}
	}
	return out, true
}
