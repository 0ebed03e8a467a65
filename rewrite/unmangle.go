package rewrite

import (
	"strings"

	"github.com/mna/depyc/ast"
)

// unmangleClassPrivate implements spec §4.G.7: Python's compiler mangles
// every `__name` identifier written lexically inside `class C: ...` -
// including inside the bodies of methods defined there - into
// `_C__name` before it ever reaches bytecode. sim's own `unmangled`
// helper (sim/sim.go) already reverses this for the class body's own
// direct reads/writes; this pass does the module-wide version, walking
// down into every nested FunctionDefStmt/ClassDefStmt this class body
// contains (each already fully decompiled by its own, separate Run call,
// which had no way to know its enclosing class's name) and renaming any
// remaining `_ClassName__x` reference back to `__x`, matching spec §8
// property 10: the same identifier written at module scope is never
// touched, since opts.ClassBody is false there.
func unmangleClassPrivate(stmts []ast.Stmt, opts Options) []ast.Stmt {
	if !opts.ClassBody || opts.ClassName == "" {
		return stmts
	}
	prefix := "_" + opts.ClassName + "__"
	for _, s := range stmts {
		ast.Inspect(s, func(n ast.Node) bool {
			switch v := n.(type) {
			case *ast.NameExpr:
				v.Id = unmangleOne(prefix, v.Id)
			case *ast.AttributeExpr:
				v.Attr = unmangleOne(prefix, v.Attr)
			case *ast.GlobalStmt:
				for i, name := range v.Names {
					v.Names[i] = unmangleOne(prefix, name)
				}
			case *ast.NonlocalStmt:
				for i, name := range v.Names {
					v.Names[i] = unmangleOne(prefix, name)
				}
			case *ast.CapturePattern:
				v.Name = unmangleOne(prefix, v.Name)
			case *ast.AsPattern:
				v.Name = unmangleOne(prefix, v.Name)
			}
			return true
		})
	}
	return stmts
}

// unmangleOne undoes one mangled identifier: `_ClassName__x` -> `__x`,
// but never a dunder (`_ClassName____x__` keeps its trailing `__` intact,
// since CPython's own mangler never touches names ending in `__`).
func unmangleOne(prefix, id string) string {
	if len(id) > len(prefix) && strings.HasPrefix(id, prefix) && !strings.HasSuffix(id, "__") {
		return "__" + id[len(prefix):]
	}
	return id
}
