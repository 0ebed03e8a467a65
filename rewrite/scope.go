package rewrite

import "github.com/mna/depyc/ast"

// rewriteScopeBodies applies f once to stmts itself (a scope's own body:
// a module, a function, or a class), then descends into every nested
// def/class found anywhere within stmts - including inside if/while/for/
// try/with/match bodies, since a def can legally appear there too -
// applying f again to each one's own body. f is never applied to an
// intermediate control-flow body (an if-branch, a loop body): those are
// not scope boundaries, and spec §4.G.1/§4.G.2 both key off "function
// bodies"/"class bodies", not arbitrary nested blocks.
func rewriteScopeBodies(stmts []ast.Stmt, f func([]ast.Stmt) []ast.Stmt) []ast.Stmt {
	stmts = f(stmts)
	out := make([]ast.Stmt, len(stmts))
	for i, s := range stmts {
		out[i] = descendScopes(s, f)
	}
	return out
}

func descendScopes(s ast.Stmt, f func([]ast.Stmt) []ast.Stmt) ast.Stmt {
	switch v := s.(type) {
	case *ast.FunctionDefStmt:
		n := *v
		n.Body = rewriteScopeBodies(v.Body, f)
		return &n
	case *ast.ClassDefStmt:
		n := *v
		n.Body = rewriteScopeBodies(v.Body, f)
		return &n
	case *ast.IfStmt:
		n := *v
		n.Body = descendScopeList(v.Body, f)
		if len(v.Elifs) > 0 {
			n.Elifs = make([]ast.ElifBranch, len(v.Elifs))
			for i, e := range v.Elifs {
				n.Elifs[i] = ast.ElifBranch{Test: e.Test, Body: descendScopeList(e.Body, f)}
			}
		}
		n.Orelse = descendScopeList(v.Orelse, f)
		return &n
	case *ast.WhileStmt:
		n := *v
		n.Body = descendScopeList(v.Body, f)
		n.Orelse = descendScopeList(v.Orelse, f)
		return &n
	case *ast.ForStmt:
		n := *v
		n.Body = descendScopeList(v.Body, f)
		n.Orelse = descendScopeList(v.Orelse, f)
		return &n
	case *ast.TryStmt:
		n := *v
		n.Body = descendScopeList(v.Body, f)
		if len(v.Handlers) > 0 {
			n.Handlers = make([]ast.ExceptHandler, len(v.Handlers))
			for i, h := range v.Handlers {
				n.Handlers[i] = h
				n.Handlers[i].Body = descendScopeList(h.Body, f)
			}
		}
		n.Orelse = descendScopeList(v.Orelse, f)
		n.Finally = descendScopeList(v.Finally, f)
		return &n
	case *ast.WithStmt:
		n := *v
		n.Body = descendScopeList(v.Body, f)
		return &n
	case *ast.MatchStmt:
		n := *v
		if len(v.Cases) > 0 {
			n.Cases = make([]ast.MatchCase, len(v.Cases))
			for i, c := range v.Cases {
				n.Cases[i] = c
				n.Cases[i].Body = descendScopeList(c.Body, f)
			}
		}
		return &n
	default:
		return s
	}
}

func descendScopeList(stmts []ast.Stmt, f func([]ast.Stmt) []ast.Stmt) []ast.Stmt {
	out := make([]ast.Stmt, len(stmts))
	for i, s := range stmts {
		out[i] = descendScopes(s, f)
	}
	return out
}

// rewriteListRecursive applies f once to stmts (f may reorder or splice
// statements - e.g. flattening an if/else into two siblings), then
// recurses into every resulting statement's nested bodies at any depth,
// including into FunctionDefStmt/ClassDefStmt bodies (spec §4.G passes
// 3-6, 8-9 are not scope-bound: an import or a chained assignment can
// appear inside a nested if just as well as at a function's top level).
func rewriteListRecursive(stmts []ast.Stmt, f func([]ast.Stmt) []ast.Stmt) []ast.Stmt {
	stmts = f(stmts)
	out := make([]ast.Stmt, len(stmts))
	for i, s := range stmts {
		out[i] = mapBodies(s, func(b []ast.Stmt) []ast.Stmt { return rewriteListRecursive(b, f) })
	}
	return out
}
