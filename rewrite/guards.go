package rewrite

import "github.com/mna/depyc/ast"

// normalizeGuards implements spec §4.G.4 and the DESIGN.md decision for
// spec §9's "multiple competing empty-then inversion heuristics" open
// question: exactly two shapes are canonicalized, nothing else.
//
//   - An empty then-branch with a non-empty else is a negated guard in
//     disguise: `if cond: pass else: body` becomes `if not cond: body`
//     with no else clause at all.
//   - A then-branch that is a single terminal jump (return/raise/break/
//     continue) with a non-empty else is flattened: the else's
//     statements never need the `else:` indentation, since control can
//     only reach them when the jump didn't fire. `if cond: return x
//     else: y; z` becomes `if cond: return x` followed immediately by
//     `y; z` at the same nesting level.
//
// A guard already followed by nothing in the else branch, or whose
// then-branch is neither shape, is left exactly as the pattern detector
// built it - including an `if cond: break` tail right before a loop's
// end, which spec §4.G.4 says must be "left intact".
func normalizeGuards(stmts []ast.Stmt, opts Options) []ast.Stmt {
	return rewriteListRecursive(stmts, normalizeGuardList)
}

func normalizeGuardList(stmts []ast.Stmt) []ast.Stmt {
	out := make([]ast.Stmt, 0, len(stmts))
	for _, s := range stmts {
		ifs, ok := s.(*ast.IfStmt)
		if !ok || len(ifs.Elifs) > 0 || len(ifs.Orelse) == 0 {
			out = append(out, s)
			continue
		}
		switch {
		case isEmptyBody(ifs.Body):
			n := *ifs
			n.Test = negate(ifs.Test)
			n.Body = ifs.Orelse
			n.Orelse = nil
			out = append(out, &n)
		case len(ifs.Body) == 1 && isTerminalJump(ifs.Body[0]):
			n := *ifs
			n.Orelse = nil
			out = append(out, &n)
			out = append(out, ifs.Orelse...)
		default:
			out = append(out, s)
		}
	}
	return out
}

func isEmptyBody(stmts []ast.Stmt) bool {
	if len(stmts) == 0 {
		return true
	}
	if len(stmts) != 1 {
		return false
	}
	_, ok := stmts[0].(*ast.PassStmt)
	return ok
}

func isTerminalJump(s ast.Stmt) bool {
	switch s.(type) {
	case *ast.ReturnStmt, *ast.RaiseStmt, *ast.BreakStmt, *ast.ContinueStmt:
		return true
	default:
		return false
	}
}

// negate wraps e in a boolean negation, collapsing a double negation back
// to the bare operand (mirrors decompile.decompiler.negate, duplicated
// here since this package has no access to that package's arena-bound
// helper and its own output is a plain, non-arena-owned node per spec
// §4.G's copy-on-rewrite model).
func negate(e ast.Expr) ast.Expr {
	if u, ok := e.(*ast.UnaryOpExpr); ok && u.Op == "not" {
		return u.Operand
	}
	return &ast.UnaryOpExpr{Op: "not", Operand: e}
}
