package rewrite

import "github.com/mna/depyc/ast"

// foldChainAssignments implements spec §4.G.5: `a = x` immediately
// followed by `b = x` folds into `a = b = x` exactly when both
// statements' Value is the identical expression node (`==` on the Expr
// interface compares the underlying pointer), which is only true when
// the simulator pushed one DUP'd value and stored it twice - two
// separately-evaluated but textually-equal expressions (`a = 1; b = 1`
// from unrelated LOAD_CONST 1 instructions) are two distinct nodes and
// are deliberately left alone.
func foldChainAssignments(stmts []ast.Stmt, opts Options) []ast.Stmt {
	return rewriteListRecursive(stmts, foldChainList)
}

func foldChainList(stmts []ast.Stmt) []ast.Stmt {
	out := make([]ast.Stmt, 0, len(stmts))
	for i := 0; i < len(stmts); {
		a, ok := stmts[i].(*ast.AssignStmt)
		if !ok {
			out = append(out, stmts[i])
			i++
			continue
		}
		targets := append([]ast.Expr{}, a.Targets...)
		j := i + 1
		for j < len(stmts) {
			b, ok := stmts[j].(*ast.AssignStmt)
			if !ok || b.Value != a.Value {
				break
			}
			targets = append(targets, b.Targets...)
			j++
		}
		if j == i+1 {
			out = append(out, a)
			i++
			continue
		}
		out = append(out, &ast.AssignStmt{Targets: targets, Value: a.Value, Start: a.Start})
		i = j
	}
	return out
}
