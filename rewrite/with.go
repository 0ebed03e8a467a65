package rewrite

import "github.com/mna/depyc/ast"

// removeWithTrailingJunk implements spec §4.G.8: some versions' `with`
// cleanup sequence (the SETUP_WITH/WITH_EXCEPT_START family storing
// __exit__'s suppress-exception result) leaves a dead store of an empty
// bytes constant immediately after the with-block in the reconstructed
// statement list. The store has no observable effect (the target is
// never read again) and is dropped; any assignment the user's own source
// actually wrote is never b” and is left alone.
func removeWithTrailingJunk(stmts []ast.Stmt, opts Options) []ast.Stmt {
	return rewriteListRecursive(stmts, removeWithJunkList)
}

func removeWithJunkList(stmts []ast.Stmt) []ast.Stmt {
	out := make([]ast.Stmt, 0, len(stmts))
	for i := 0; i < len(stmts); i++ {
		out = append(out, stmts[i])
		if _, ok := stmts[i].(*ast.WithStmt); !ok {
			continue
		}
		if i+1 < len(stmts) && isEmptyBytesStore(stmts[i+1]) {
			i++
		}
	}
	return out
}

func isEmptyBytesStore(s ast.Stmt) bool {
	a, ok := s.(*ast.AssignStmt)
	if !ok {
		return false
	}
	c, ok := a.Value.(*ast.ConstantExpr)
	if !ok {
		return false
	}
	b, ok := c.Value.([]byte)
	return ok && len(b) == 0
}
