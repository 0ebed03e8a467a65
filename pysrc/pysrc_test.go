package pysrc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mna/depyc/ast"
	"github.com/mna/depyc/pysrc"
)

func name(id string) *ast.NameExpr          { return &ast.NameExpr{Id: id} }
func konst(v interface{}) *ast.ConstantExpr { return &ast.ConstantExpr{Value: v} }

func TestEmitPrecedenceParenthesization(t *testing.T) {
	// (a + b) * c needs parens; a + b * c does not.
	mul := &ast.BinOpExpr{
		Left:  &ast.BinOpExpr{Left: name("a"), Op: "+", Right: name("b")},
		Op:    "*",
		Right: name("c"),
	}
	add := &ast.BinOpExpr{
		Left:  name("a"),
		Op:    "+",
		Right: &ast.BinOpExpr{Left: name("b"), Op: "*", Right: name("c")},
	}
	assert.Equal(t, "x = (a + b) * c\n", pysrc.EmitStmts([]ast.Stmt{
		&ast.AssignStmt{Targets: []ast.Expr{name("x")}, Value: mul},
	}))
	assert.Equal(t, "x = a + b * c\n", pysrc.EmitStmts([]ast.Stmt{
		&ast.AssignStmt{Targets: []ast.Expr{name("x")}, Value: add},
	}))
}

func TestEmitStringQuoting(t *testing.T) {
	assert.Equal(t, "x = 'it\\'s'\n", pysrc.EmitStmts([]ast.Stmt{
		&ast.AssignStmt{Targets: []ast.Expr{name("x")}, Value: konst("it's")},
	}))
	assert.Equal(t, "x = None\n", pysrc.EmitStmts([]ast.Stmt{
		&ast.AssignStmt{Targets: []ast.Expr{name("x")}, Value: konst(nil)},
	}))
	assert.Equal(t, "x = True\n", pysrc.EmitStmts([]ast.Stmt{
		&ast.AssignStmt{Targets: []ast.Expr{name("x")}, Value: konst(true)},
	}))
}

func TestEmitFString(t *testing.T) {
	js := &ast.JoinedStrExpr{Parts: []ast.Expr{
		konst("x="),
		&ast.FormattedValue{Value: name("x"), Conversion: 'r'},
	}}
	assert.Equal(t, "y = f'x={x!r}'\n", pysrc.EmitStmts([]ast.Stmt{
		&ast.AssignStmt{Targets: []ast.Expr{name("y")}, Value: js},
	}))
}

func TestEmitTryWithHandlers(t *testing.T) {
	try := &ast.TryStmt{
		Body: []ast.Stmt{&ast.PassStmt{}},
		Handlers: []ast.ExceptHandler{
			{Type: name("ValueError"), Name: "e", Body: []ast.Stmt{&ast.PassStmt{}}},
			{Type: name("OSError"), IsStar: true, Body: []ast.Stmt{&ast.PassStmt{}}},
		},
		Finally: []ast.Stmt{&ast.PassStmt{}},
	}
	want := "try:\n" +
		"    pass\n" +
		"except ValueError as e:\n" +
		"    pass\n" +
		"except* OSError:\n" +
		"    pass\n" +
		"finally:\n" +
		"    pass\n"
	assert.Equal(t, want, pysrc.EmitStmts([]ast.Stmt{try}))
}

func TestEmitFunctionWithDefaultsAndPosOnly(t *testing.T) {
	fn := &ast.FunctionDefStmt{
		Name: "f",
		Args: &ast.Arguments{
			PosOnlyParams: []ast.Param{{Name: "a"}},
			Params:        []ast.Param{{Name: "b", Default: konst(int64(1))}},
			KwOnlyParams:  []ast.Param{{Name: "c", Default: konst(int64(2))}},
		},
		Body: []ast.Stmt{&ast.PassStmt{}},
	}
	assert.Equal(t, "def f(a, /, b=1, *, c=2):\n    pass\n", pysrc.EmitStmts([]ast.Stmt{fn}))
}

func TestEmitComprehension(t *testing.T) {
	comp := &ast.ListCompExpr{
		Elt: &ast.BinOpExpr{Left: name("i"), Op: "*", Right: name("i")},
		Generators: []ast.Comprehension{{
			Target: name("i"),
			Iter:   &ast.CallExpr{Fn: name("range"), Args: []ast.Expr{konst(int64(10))}},
			Ifs:    []ast.Expr{&ast.BinOpExpr{Left: name("i"), Op: "%", Right: konst(int64(2))}},
		}},
	}
	assert.Equal(t, "x = [i * i for i in range(10) if i % 2]\n", pysrc.EmitStmts([]ast.Stmt{
		&ast.AssignStmt{Targets: []ast.Expr{name("x")}, Value: comp},
	}))
}
