package rewrite

import "github.com/mna/depyc/ast"

// polishBoolCompare implements spec §4.G.9: collapse a BoolOp any of whose
// operands is itself a same-operator BoolOp into one flat n-ary chain (the
// simulator builds these left-nested, one JUMP_IF_*_OR_POP pair at a
// time: `a and b and c` arrives as BoolOp(and, [BoolOp(and, [a, b]), c])
// and is flattened here to BoolOp(and, [a, b, c])). Chained-comparison
// folding, the other half of this spec subsection's name, already happens
// earlier in the pipeline (the decompile package's short-circuit chain
// walker, boolChainExpr, folds adjacent DUP/ROT/COMPARE blocks into one CompareExpr before rewrite ever sees a
// statement list, per DESIGN.md's open-question decision), so there is no
// separate compare-folding step here.
func polishBoolCompare(stmts []ast.Stmt, opts Options) []ast.Stmt {
	out := make([]ast.Stmt, len(stmts))
	for i, s := range stmts {
		s = transformStmtExprs(s, flattenBoolOp)
		out[i] = mapBodies(s, func(b []ast.Stmt) []ast.Stmt { return polishBoolCompare(b, opts) })
	}
	return out
}

func flattenBoolOp(e ast.Expr) ast.Expr {
	b, ok := e.(*ast.BoolOpExpr)
	if !ok || len(b.Values) == 0 {
		return e
	}
	flat := false
	values := make([]ast.Expr, 0, len(b.Values))
	for _, v := range b.Values {
		if nb, ok := v.(*ast.BoolOpExpr); ok && nb.Op == b.Op {
			values = append(values, nb.Values...)
			flat = true
			continue
		}
		values = append(values, v)
	}
	if !flat {
		return e
	}
	return &ast.BoolOpExpr{Op: b.Op, Values: values}
}

// transformExpr rewrites e bottom-up: every child expression is
// transformed first, then f is applied to the (already-transformed) node
// itself. Container/compound Expr kinds are rebuilt as shallow copies
// with their transformed children; leaf kinds (names, constants) are
// passed to f unchanged, since they have nothing to recurse into.
func transformExpr(e ast.Expr, f func(ast.Expr) ast.Expr) ast.Expr {
	if e == nil {
		return nil
	}
	switch v := e.(type) {
	case *ast.AttributeExpr:
		n := *v
		n.Value = transformExpr(v.Value, f)
		return f(&n)
	case *ast.SubscriptExpr:
		n := *v
		n.Value = transformExpr(v.Value, f)
		n.Index = transformExpr(v.Index, f)
		return f(&n)
	case *ast.SliceExpr:
		n := *v
		n.Lo = transformExpr(v.Lo, f)
		n.Hi = transformExpr(v.Hi, f)
		n.Step = transformExpr(v.Step, f)
		return f(&n)
	case *ast.CallExpr:
		n := *v
		n.Fn = transformExpr(v.Fn, f)
		n.Args = transformExprSlice(v.Args, f)
		if len(v.Kwargs) > 0 {
			n.Kwargs = make([]ast.Keyword, len(v.Kwargs))
			for i, k := range v.Kwargs {
				n.Kwargs[i] = ast.Keyword{Name: k.Name, Value: transformExpr(k.Value, f)}
			}
		}
		n.Star = transformExpr(v.Star, f)
		n.DoubleStar = transformExpr(v.DoubleStar, f)
		return f(&n)
	case *ast.BinOpExpr:
		n := *v
		n.Left = transformExpr(v.Left, f)
		n.Right = transformExpr(v.Right, f)
		return f(&n)
	case *ast.UnaryOpExpr:
		n := *v
		n.Operand = transformExpr(v.Operand, f)
		return f(&n)
	case *ast.CompareExpr:
		n := *v
		n.Left = transformExpr(v.Left, f)
		n.Comparators = transformExprSlice(v.Comparators, f)
		return f(&n)
	case *ast.BoolOpExpr:
		n := *v
		n.Values = transformExprSlice(v.Values, f)
		return f(&n)
	case *ast.IfExpExpr:
		n := *v
		n.Test = transformExpr(v.Test, f)
		n.Body = transformExpr(v.Body, f)
		n.Orelse = transformExpr(v.Orelse, f)
		return f(&n)
	case *ast.LambdaExpr:
		n := *v
		n.Body = transformExpr(v.Body, f)
		return f(&n)
	case *ast.ListCompExpr:
		n := *v
		n.Elt = transformExpr(v.Elt, f)
		n.Generators = transformGenerators(v.Generators, f)
		return f(&n)
	case *ast.SetCompExpr:
		n := *v
		n.Elt = transformExpr(v.Elt, f)
		n.Generators = transformGenerators(v.Generators, f)
		return f(&n)
	case *ast.GeneratorExpExpr:
		n := *v
		n.Elt = transformExpr(v.Elt, f)
		n.Generators = transformGenerators(v.Generators, f)
		return f(&n)
	case *ast.DictCompExpr:
		n := *v
		n.Key = transformExpr(v.Key, f)
		n.Value = transformExpr(v.Value, f)
		n.Generators = transformGenerators(v.Generators, f)
		return f(&n)
	case *ast.ListExpr:
		n := *v
		n.Elts = transformExprSlice(v.Elts, f)
		return f(&n)
	case *ast.TupleExpr:
		n := *v
		n.Elts = transformExprSlice(v.Elts, f)
		return f(&n)
	case *ast.SetExpr:
		n := *v
		n.Elts = transformExprSlice(v.Elts, f)
		return f(&n)
	case *ast.DictExpr:
		n := *v
		if len(v.Keys) > 0 {
			n.Keys = make([]ast.Expr, len(v.Keys))
			n.Values = make([]ast.Expr, len(v.Values))
			for i := range v.Keys {
				n.Keys[i] = transformExpr(v.Keys[i], f)
				n.Values[i] = transformExpr(v.Values[i], f)
			}
		}
		return f(&n)
	case *ast.JoinedStrExpr:
		n := *v
		n.Parts = transformExprSlice(v.Parts, f)
		return f(&n)
	case *ast.FormattedValue:
		n := *v
		n.Value = transformExpr(v.Value, f)
		n.FormatSpec = transformExpr(v.FormatSpec, f)
		return f(&n)
	case *ast.StarredExpr:
		n := *v
		n.Value = transformExpr(v.Value, f)
		return f(&n)
	case *ast.NamedExpr:
		n := *v
		n.Value = transformExpr(v.Value, f)
		return f(&n)
	case *ast.YieldExpr:
		n := *v
		n.Value = transformExpr(v.Value, f)
		return f(&n)
	case *ast.YieldFromExpr:
		n := *v
		n.Value = transformExpr(v.Value, f)
		return f(&n)
	case *ast.AwaitExpr:
		n := *v
		n.Value = transformExpr(v.Value, f)
		return f(&n)
	default:
		// Leaf kinds (ConstantExpr, NameExpr) have no children to recurse
		// into.
		return f(e)
	}
}

func transformExprSlice(exprs []ast.Expr, f func(ast.Expr) ast.Expr) []ast.Expr {
	if len(exprs) == 0 {
		return exprs
	}
	out := make([]ast.Expr, len(exprs))
	for i, e := range exprs {
		out[i] = transformExpr(e, f)
	}
	return out
}

func transformGenerators(gens []ast.Comprehension, f func(ast.Expr) ast.Expr) []ast.Comprehension {
	if len(gens) == 0 {
		return gens
	}
	out := make([]ast.Comprehension, len(gens))
	for i, g := range gens {
		out[i] = ast.Comprehension{
			Target:  transformExpr(g.Target, f),
			Iter:    transformExpr(g.Iter, f),
			Ifs:     transformExprSlice(g.Ifs, f),
			IsAsync: g.IsAsync,
		}
	}
	return out
}

// transformStmtExprs rewrites every direct Expr field of s with
// transformExpr(_, f), without descending into s's own nested statement
// bodies (callers that need that compose this with mapBodies, as
// polishBoolCompare does).
func transformStmtExprs(s ast.Stmt, f func(ast.Expr) ast.Expr) ast.Stmt {
	tx := func(e ast.Expr) ast.Expr { return transformExpr(e, f) }
	switch v := s.(type) {
	case *ast.AssignStmt:
		n := *v
		n.Targets = transformExprSlice(v.Targets, tx)
		n.Value = tx(v.Value)
		return &n
	case *ast.AugAssignStmt:
		n := *v
		n.Target = tx(v.Target)
		n.Value = tx(v.Value)
		return &n
	case *ast.AnnAssignStmt:
		n := *v
		n.Target = tx(v.Target)
		n.Annotation = tx(v.Annotation)
		n.Value = tx(v.Value)
		return &n
	case *ast.ExprStmt:
		n := *v
		n.Value = tx(v.Value)
		return &n
	case *ast.ReturnStmt:
		n := *v
		n.Value = tx(v.Value)
		return &n
	case *ast.RaiseStmt:
		n := *v
		n.Exc = tx(v.Exc)
		n.Cause = tx(v.Cause)
		return &n
	case *ast.AssertStmt:
		n := *v
		n.Test = tx(v.Test)
		n.Msg = tx(v.Msg)
		return &n
	case *ast.DeleteStmt:
		n := *v
		n.Targets = transformExprSlice(v.Targets, tx)
		return &n
	case *ast.IfStmt:
		n := *v
		n.Test = tx(v.Test)
		if len(v.Elifs) > 0 {
			n.Elifs = make([]ast.ElifBranch, len(v.Elifs))
			for i, e := range v.Elifs {
				n.Elifs[i] = ast.ElifBranch{Test: tx(e.Test), Body: e.Body}
			}
		}
		return &n
	case *ast.WhileStmt:
		n := *v
		n.Test = tx(v.Test)
		return &n
	case *ast.ForStmt:
		n := *v
		n.Target = tx(v.Target)
		n.Iter = tx(v.Iter)
		return &n
	case *ast.WithStmt:
		n := *v
		if len(v.Items) > 0 {
			n.Items = make([]ast.WithItem, len(v.Items))
			for i, it := range v.Items {
				n.Items[i] = ast.WithItem{Context: tx(it.Context), As: tx(it.As)}
			}
		}
		return &n
	case *ast.MatchStmt:
		n := *v
		n.Subject = tx(v.Subject)
		if len(v.Cases) > 0 {
			n.Cases = make([]ast.MatchCase, len(v.Cases))
			for i, c := range v.Cases {
				n.Cases[i] = ast.MatchCase{Pattern: c.Pattern, Guard: tx(c.Guard), Body: c.Body}
			}
		}
		return &n
	case *ast.TypeAliasStmt:
		n := *v
		n.Value = tx(v.Value)
		return &n
	default:
		return s
	}
}
