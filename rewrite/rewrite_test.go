package rewrite_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/depyc/ast"
	"github.com/mna/depyc/rewrite"
)

func name(id string) *ast.NameExpr          { return &ast.NameExpr{Id: id} }
func konst(v interface{}) *ast.ConstantExpr { return &ast.ConstantExpr{Value: v} }

func TestElideTrailingReturnNone(t *testing.T) {
	stmts := []ast.Stmt{
		&ast.AssignStmt{Targets: []ast.Expr{name("x")}, Value: konst(int64(1))},
		&ast.ReturnStmt{Value: konst(nil)},
	}
	out := rewrite.Run(stmts, rewrite.Options{})
	require.Len(t, out, 1)
	_, ok := out[0].(*ast.AssignStmt)
	assert.True(t, ok)
}

func TestExplicitReturnValueKept(t *testing.T) {
	stmts := []ast.Stmt{
		&ast.ReturnStmt{Value: konst(int64(5))},
	}
	out := rewrite.Run(stmts, rewrite.Options{})
	require.Len(t, out, 1)
	ret := out[0].(*ast.ReturnStmt)
	assert.Equal(t, int64(5), ret.Value.(*ast.ConstantExpr).Value)
}

func TestElideDescendsIntoFunctionBodies(t *testing.T) {
	fn := &ast.FunctionDefStmt{
		Name: "f",
		Body: []ast.Stmt{
			&ast.AssignStmt{Targets: []ast.Expr{name("x")}, Value: konst(int64(1))},
			&ast.ReturnStmt{},
		},
	}
	out := rewrite.Run([]ast.Stmt{fn}, rewrite.Options{})
	require.Len(t, out, 1)
	body := out[0].(*ast.FunctionDefStmt).Body
	require.Len(t, body, 1)
}

func TestSuppressClassLocalsOnlyInClassBody(t *testing.T) {
	mk := func() []ast.Stmt {
		return []ast.Stmt{
			&ast.AssignStmt{Targets: []ast.Expr{name("x")}, Value: konst(int64(1))},
			&ast.ReturnStmt{Value: &ast.CallExpr{Fn: name("locals")}},
		}
	}
	classOut := rewrite.Run(mk(), rewrite.Options{ClassBody: true, ClassName: "C"})
	require.Len(t, classOut, 1)

	// The same trailing pattern in a non-class scope is user code; kept.
	fnOut := rewrite.Run(mk(), rewrite.Options{})
	require.Len(t, fnOut, 2)
}

func TestGroupConsecutiveImportsFromSameModule(t *testing.T) {
	stmts := []ast.Stmt{
		&ast.ImportFromStmt{Module: "os.path", Names: []ast.ImportAlias{{Name: "join", AsName: "join"}}},
		&ast.ImportFromStmt{Module: "os.path", Names: []ast.ImportAlias{{Name: "split", AsName: "split"}}},
		&ast.ImportFromStmt{Module: "sys", Names: []ast.ImportAlias{{Name: "argv", AsName: "argv"}}},
	}
	out := rewrite.Run(stmts, rewrite.Options{})
	require.Len(t, out, 2)
	merged := out[0].(*ast.ImportFromStmt)
	assert.Equal(t, "os.path", merged.Module)
	require.Len(t, merged.Names, 2)
	assert.Equal(t, "join", merged.Names[0].Name)
	assert.Equal(t, "split", merged.Names[1].Name)
}

func TestInvertEmptyThenBranch(t *testing.T) {
	stmts := []ast.Stmt{
		&ast.IfStmt{
			Test:   name("cond"),
			Body:   nil,
			Orelse: []ast.Stmt{&ast.AssignStmt{Targets: []ast.Expr{name("x")}, Value: konst(int64(1))}},
		},
	}
	out := rewrite.Run(stmts, rewrite.Options{})
	require.Len(t, out, 1)
	ifs := out[0].(*ast.IfStmt)
	not, ok := ifs.Test.(*ast.UnaryOpExpr)
	require.True(t, ok)
	assert.Equal(t, "not", not.Op)
	require.Len(t, ifs.Body, 1)
	assert.Empty(t, ifs.Orelse)
}

func TestFlattenTerminalThenElse(t *testing.T) {
	stmts := []ast.Stmt{
		&ast.IfStmt{
			Test:   name("cond"),
			Body:   []ast.Stmt{&ast.ReturnStmt{Value: konst(int64(1))}},
			Orelse: []ast.Stmt{&ast.AssignStmt{Targets: []ast.Expr{name("y")}, Value: konst(int64(2))}},
		},
	}
	out := rewrite.Run(stmts, rewrite.Options{})
	require.Len(t, out, 2)
	ifs := out[0].(*ast.IfStmt)
	assert.Empty(t, ifs.Orelse)
	_, ok := out[1].(*ast.AssignStmt)
	assert.True(t, ok)
}

func TestGuardBeforeLoopEndLeftIntact(t *testing.T) {
	loop := &ast.WhileStmt{
		Test: konst(true),
		Body: []ast.Stmt{
			&ast.IfStmt{Test: name("done"), Body: []ast.Stmt{&ast.BreakStmt{}}},
			&ast.AssignStmt{Targets: []ast.Expr{name("x")}, Value: konst(int64(1))},
		},
	}
	out := rewrite.Run([]ast.Stmt{loop}, rewrite.Options{})
	require.Len(t, out, 1)
	body := out[0].(*ast.WhileStmt).Body
	require.Len(t, body, 2)
	ifs, ok := body[0].(*ast.IfStmt)
	require.True(t, ok)
	require.Len(t, ifs.Body, 1)
	_, ok = ifs.Body[0].(*ast.BreakStmt)
	assert.True(t, ok)
}

func TestFoldChainAssignmentsOnSharedValue(t *testing.T) {
	shared := konst(int64(7))
	stmts := []ast.Stmt{
		&ast.AssignStmt{Targets: []ast.Expr{name("a")}, Value: shared},
		&ast.AssignStmt{Targets: []ast.Expr{name("b")}, Value: shared},
	}
	out := rewrite.Run(stmts, rewrite.Options{})
	require.Len(t, out, 1)
	chain := out[0].(*ast.AssignStmt)
	require.Len(t, chain.Targets, 2)
}

func TestDistinctButEqualValuesNotChained(t *testing.T) {
	stmts := []ast.Stmt{
		&ast.AssignStmt{Targets: []ast.Expr{name("a")}, Value: konst(int64(7))},
		&ast.AssignStmt{Targets: []ast.Expr{name("b")}, Value: konst(int64(7))},
	}
	out := rewrite.Run(stmts, rewrite.Options{})
	require.Len(t, out, 2)
}

func TestReconstructAssert(t *testing.T) {
	stmts := []ast.Stmt{
		&ast.IfStmt{
			Test: &ast.UnaryOpExpr{Op: "not", Operand: name("ok")},
			Body: []ast.Stmt{
				&ast.RaiseStmt{Exc: &ast.CallExpr{Fn: name("AssertionError"), Args: []ast.Expr{konst("boom")}}},
			},
		},
	}
	out := rewrite.Run(stmts, rewrite.Options{})
	require.Len(t, out, 1)
	as, ok := out[0].(*ast.AssertStmt)
	require.True(t, ok)
	assert.Equal(t, "ok", as.Test.(*ast.NameExpr).Id)
	assert.Equal(t, "boom", as.Msg.(*ast.ConstantExpr).Value)
}

func TestAssertNotReconstructedWithCause(t *testing.T) {
	stmts := []ast.Stmt{
		&ast.IfStmt{
			Test: &ast.UnaryOpExpr{Op: "not", Operand: name("ok")},
			Body: []ast.Stmt{
				&ast.RaiseStmt{
					Exc:   &ast.CallExpr{Fn: name("AssertionError")},
					Cause: name("err"),
				},
			},
		},
	}
	out := rewrite.Run(stmts, rewrite.Options{})
	require.Len(t, out, 1)
	_, ok := out[0].(*ast.IfStmt)
	assert.True(t, ok, "a raise with a cause is never folded to assert")
}

func TestUnmangleClassPrivateInNestedDef(t *testing.T) {
	method := &ast.FunctionDefStmt{
		Name: "get",
		Body: []ast.Stmt{
			&ast.ReturnStmt{Value: &ast.AttributeExpr{Value: name("self"), Attr: "_C__secret"}},
		},
	}
	out := rewrite.Run([]ast.Stmt{method}, rewrite.Options{ClassBody: true, ClassName: "C"})
	require.Len(t, out, 1)
	ret := out[0].(*ast.FunctionDefStmt).Body[0].(*ast.ReturnStmt)
	assert.Equal(t, "__secret", ret.Value.(*ast.AttributeExpr).Attr)
}

func TestDunderNeverUnmangled(t *testing.T) {
	stmts := []ast.Stmt{
		&ast.ExprStmt{Value: name("_C__init__")},
	}
	out := rewrite.Run(stmts, rewrite.Options{ClassBody: true, ClassName: "C"})
	assert.Equal(t, "_C__init__", out[0].(*ast.ExprStmt).Value.(*ast.NameExpr).Id)
}

func TestModuleScopeIdentifierUntouched(t *testing.T) {
	stmts := []ast.Stmt{
		&ast.ExprStmt{Value: name("_C__secret")},
	}
	out := rewrite.Run(stmts, rewrite.Options{})
	// Property 10: the same identifier at module scope emits unchanged.
	assert.Equal(t, "_C__secret", out[0].(*ast.ExprStmt).Value.(*ast.NameExpr).Id)
}

func TestRemoveWithTrailingEmptyBytesStore(t *testing.T) {
	stmts := []ast.Stmt{
		&ast.WithStmt{Items: []ast.WithItem{{Context: name("cm")}}, Body: []ast.Stmt{&ast.PassStmt{}}},
		&ast.AssignStmt{Targets: []ast.Expr{name("junk")}, Value: konst([]byte{})},
		&ast.AssignStmt{Targets: []ast.Expr{name("real")}, Value: konst("data")},
	}
	out := rewrite.Run(stmts, rewrite.Options{})
	require.Len(t, out, 2)
	_, ok := out[0].(*ast.WithStmt)
	assert.True(t, ok)
	real := out[1].(*ast.AssignStmt)
	assert.Equal(t, "real", real.Targets[0].(*ast.NameExpr).Id)
}

func TestFlattenNestedBoolOp(t *testing.T) {
	nested := &ast.BoolOpExpr{Op: "and", Values: []ast.Expr{
		&ast.BoolOpExpr{Op: "and", Values: []ast.Expr{name("a"), name("b")}},
		name("c"),
	}}
	out := rewrite.Run([]ast.Stmt{&ast.ExprStmt{Value: nested}}, rewrite.Options{})
	flat := out[0].(*ast.ExprStmt).Value.(*ast.BoolOpExpr)
	require.Len(t, flat.Values, 3)
}

func TestMixedOperatorBoolOpNotFlattened(t *testing.T) {
	nested := &ast.BoolOpExpr{Op: "or", Values: []ast.Expr{
		&ast.BoolOpExpr{Op: "and", Values: []ast.Expr{name("a"), name("b")}},
		name("c"),
	}}
	out := rewrite.Run([]ast.Stmt{&ast.ExprStmt{Value: nested}}, rewrite.Options{})
	top := out[0].(*ast.ExprStmt).Value.(*ast.BoolOpExpr)
	require.Len(t, top.Values, 2)
}

// Invariant 6: the pipeline is idempotent.
func TestRunIsIdempotent(t *testing.T) {
	shared := konst(int64(3))
	stmts := []ast.Stmt{
		&ast.ImportFromStmt{Module: "m", Names: []ast.ImportAlias{{Name: "a", AsName: "a"}}},
		&ast.ImportFromStmt{Module: "m", Names: []ast.ImportAlias{{Name: "b", AsName: "b"}}},
		&ast.AssignStmt{Targets: []ast.Expr{name("x")}, Value: shared},
		&ast.AssignStmt{Targets: []ast.Expr{name("y")}, Value: shared},
		&ast.IfStmt{
			Test:   name("cond"),
			Body:   nil,
			Orelse: []ast.Stmt{&ast.AssignStmt{Targets: []ast.Expr{name("z")}, Value: konst(int64(1))}},
		},
		&ast.IfStmt{
			Test: &ast.UnaryOpExpr{Op: "not", Operand: name("ok")},
			Body: []ast.Stmt{&ast.RaiseStmt{Exc: name("AssertionError")}},
		},
		&ast.ExprStmt{Value: &ast.BoolOpExpr{Op: "or", Values: []ast.Expr{
			&ast.BoolOpExpr{Op: "or", Values: []ast.Expr{name("a"), name("b")}},
			name("c"),
		}}},
		&ast.ReturnStmt{Value: konst(nil)},
	}
	opts := rewrite.Options{}
	once := rewrite.Run(stmts, opts)
	twice := rewrite.Run(once, opts)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Fatalf("rewrite pipeline is not idempotent (-once +twice):\n%s", diff)
	}
}
