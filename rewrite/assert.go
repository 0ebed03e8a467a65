package rewrite

import "github.com/mna/depyc/ast"

// reconstructAsserts implements spec §4.G.6: `if not Test: raise
// AssertionError(Msg?)` with no else clause, where the raised exception
// is a direct (unannotated, unannotated-cause) call to the builtin
// AssertionError or a bare reference to it, becomes `assert Test, Msg`.
// Only the unambiguous, literally-recognizable shape is folded; anything
// resembling it but not matching exactly (a cause clause, extra args, a
// differently-named exception) is left as a plain if/raise, per spec
// §4.G.6 "when unambiguously recognizable".
func reconstructAsserts(stmts []ast.Stmt, opts Options) []ast.Stmt {
	return rewriteListRecursive(stmts, reconstructAssertList)
}

func reconstructAssertList(stmts []ast.Stmt) []ast.Stmt {
	out := make([]ast.Stmt, len(stmts))
	for i, s := range stmts {
		out[i] = asAssert(s)
	}
	return out
}

func asAssert(s ast.Stmt) ast.Stmt {
	ifs, ok := s.(*ast.IfStmt)
	if !ok || len(ifs.Elifs) > 0 || len(ifs.Orelse) != 0 || len(ifs.Body) != 1 {
		return s
	}
	raise, ok := ifs.Body[0].(*ast.RaiseStmt)
	if !ok || raise.Cause != nil || raise.Exc == nil {
		return s
	}
	msg, isAssertionError := assertionErrorCall(raise.Exc)
	if !isAssertionError {
		return s
	}
	not, ok := ifs.Test.(*ast.UnaryOpExpr)
	if !ok || not.Op != "not" {
		return s
	}
	return &ast.AssertStmt{Test: not.Operand, Msg: msg, Start: ifs.Start}
}

// assertionErrorCall recognizes a bare `AssertionError` name (no message)
// or a single-positional-arg `AssertionError(msg)` call, and reports
// whether exc matched either shape plus the message expression (nil for
// the bare-name case).
func assertionErrorCall(exc ast.Expr) (msg ast.Expr, ok bool) {
	switch v := exc.(type) {
	case *ast.NameExpr:
		return nil, v.Id == "AssertionError"
	case *ast.CallExpr:
		name, ok := v.Fn.(*ast.NameExpr)
		if !ok || name.Id != "AssertionError" {
			return nil, false
		}
		if len(v.Kwargs) != 0 || v.Star != nil || v.DoubleStar != nil || len(v.Args) > 1 {
			return nil, false
		}
		if len(v.Args) == 1 {
			return v.Args[0], true
		}
		return nil, true
	default:
		return nil, false
	}
}
