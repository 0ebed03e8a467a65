// Package rewrite implements the Rewrite Pipeline of spec §4.G (Component
// G): a fixed-order sequence of idempotent, purely structural passes over
// the statement list a single code object's decompilation produced,
// canonicalizing it before it is handed to the caller as the final AST
// (spec §2 "Rewrite Pipeline... Canonicalization passes over the final
// statement list"). The teacher repo never canonicalizes generated code
// (lang/compiler only ever compiles forward, toward bytecode, never back
// toward readable source), so this package has no direct nenuphar
// analogue; it is kept in the teacher's small-struct, slice-of-functions
// style rather than introducing an unrelated pack dependency for a concern
// the pack doesn't otherwise cover.
package rewrite

import "github.com/mna/depyc/ast"

// Options configures one call to Run with the facts only the caller (the
// decompile package) knows: whether this statement list is the body of a
// class (spec §4.G.2, §4.G.7 both key off this), and, when it is, the
// class's own name (spec §4.D "class-private names... class_name = C").
type Options struct {
	ClassBody bool
	ClassName string
}

// pass is one entry in the fixed pipeline order of spec §4.G. Each pass
// receives a statement list and returns a new one; passes never mutate a
// Stmt shared with an earlier pass's output (spec §4.G "no pass mutates
// AST nodes shared across passes (copy-on-rewrite)"). The one exception is
// unmangleClassPrivate, which renames identifiers in place in the nodes it
// is given (through ast.Inspect) and returns the same slice.
type pass func(stmts []ast.Stmt, opts Options) []ast.Stmt

// pipeline is the fixed order suggested by spec §4.G. Renumbered here as
// a slice instead of spec's 1-9 list; the doc comment on each pass names
// its spec subsection.
var pipeline = []pass{
	elideImplicitReturn,    // §4.G.1
	suppressClassLocals,    // §4.G.2
	groupImports,           // §4.G.3
	normalizeGuards,        // §4.G.4
	foldChainAssignments,   // §4.G.5
	reconstructAsserts,     // §4.G.6
	unmangleClassPrivate,   // §4.G.7
	removeWithTrailingJunk, // §4.G.8
	polishBoolCompare,      // §4.G.9
}

// Run applies every pass in pipeline, in order, to stmts and returns the
// canonicalized result (spec §4.G). Each pass is idempotent on its own
// output (spec §8 invariant 6); Run itself is therefore also idempotent,
// since re-running the whole fixed-order pipeline on an already-rewritten
// list leaves every pass with nothing left to change.
func Run(stmts []ast.Stmt, opts Options) []ast.Stmt {
	for _, p := range pipeline {
		stmts = p(stmts, opts)
	}
	return stmts
}

// mapBodies rewrites every nested statement-list field of s using f,
// recursing into compound statements' Body/Orelse/Handlers/Finally
// blocks (the same code object's own structure) and, since several passes
// must see into an already-decompiled nested def to finish their job
// (spec §4.G.7 "propagate into nested defs"), into FunctionDefStmt and
// ClassDefStmt bodies as well. f must itself be idempotent on bodies it
// has nothing to change in, which holds for every pass in pipeline.
func mapBodies(s ast.Stmt, f func([]ast.Stmt) []ast.Stmt) ast.Stmt {
	switch v := s.(type) {
	case *ast.IfStmt:
		n := *v
		n.Body = f(v.Body)
		if len(v.Elifs) > 0 {
			n.Elifs = make([]ast.ElifBranch, len(v.Elifs))
			for i, e := range v.Elifs {
				n.Elifs[i] = ast.ElifBranch{Test: e.Test, Body: f(e.Body)}
			}
		}
		n.Orelse = f(v.Orelse)
		return &n
	case *ast.WhileStmt:
		n := *v
		n.Body = f(v.Body)
		n.Orelse = f(v.Orelse)
		return &n
	case *ast.ForStmt:
		n := *v
		n.Body = f(v.Body)
		n.Orelse = f(v.Orelse)
		return &n
	case *ast.TryStmt:
		n := *v
		n.Body = f(v.Body)
		if len(v.Handlers) > 0 {
			n.Handlers = make([]ast.ExceptHandler, len(v.Handlers))
			for i, h := range v.Handlers {
				n.Handlers[i] = h
				n.Handlers[i].Body = f(h.Body)
			}
		}
		n.Orelse = f(v.Orelse)
		n.Finally = f(v.Finally)
		return &n
	case *ast.WithStmt:
		n := *v
		n.Body = f(v.Body)
		return &n
	case *ast.MatchStmt:
		n := *v
		if len(v.Cases) > 0 {
			n.Cases = make([]ast.MatchCase, len(v.Cases))
			for i, c := range v.Cases {
				n.Cases[i] = c
				n.Cases[i].Body = f(c.Body)
			}
		}
		return &n
	case *ast.FunctionDefStmt:
		n := *v
		n.Body = f(v.Body)
		return &n
	case *ast.ClassDefStmt:
		n := *v
		n.Body = f(v.Body)
		return &n
	default:
		return s
	}
}

// mapAll applies mapBodies to every statement in stmts, recursing through
// f (typically a pass closing over itself) so every nested block at any
// depth is visited.
func mapAll(stmts []ast.Stmt, f func([]ast.Stmt) []ast.Stmt) []ast.Stmt {
	out := make([]ast.Stmt, len(stmts))
	for i, s := range stmts {
		out[i] = mapBodies(s, f)
	}
	return out
}
