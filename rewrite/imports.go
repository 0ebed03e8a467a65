package rewrite

import "github.com/mna/depyc/ast"

// groupImports implements spec §4.G.3: the simulator emits one
// ImportFromStmt per IMPORT_FROM+STORE pair (sim/funcdef.go's
// emitImportFromStmt), so `from m import a, b, c` arrives here as three
// consecutive single-name statements; merge any run of consecutive
// ImportFromStmt sharing the same module and relative-import level into
// one statement with a combined Names list.
func groupImports(stmts []ast.Stmt, opts Options) []ast.Stmt {
	return rewriteListRecursive(stmts, groupImportList)
}

func groupImportList(stmts []ast.Stmt) []ast.Stmt {
	out := make([]ast.Stmt, 0, len(stmts))
	for i := 0; i < len(stmts); {
		imp, ok := stmts[i].(*ast.ImportFromStmt)
		if !ok {
			out = append(out, stmts[i])
			i++
			continue
		}
		names := append([]ast.ImportAlias{}, imp.Names...)
		j := i + 1
		for j < len(stmts) {
			next, ok := stmts[j].(*ast.ImportFromStmt)
			if !ok || next.Module != imp.Module || next.Level != imp.Level {
				break
			}
			names = append(names, next.Names...)
			j++
		}
		out = append(out, &ast.ImportFromStmt{Module: imp.Module, Level: imp.Level, Names: names, Start: imp.Start})
		i = j
	}
	return out
}
