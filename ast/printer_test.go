package ast_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mna/depyc/ast"
)

func TestDumpIsDeterministic(t *testing.T) {
	mk := func() ast.Stmt {
		return &ast.IfStmt{
			Test: &ast.CompareExpr{
				Left:        &ast.NameExpr{Id: "x"},
				Ops:         []string{">"},
				Comparators: []ast.Expr{&ast.ConstantExpr{Value: int64(0)}},
			},
			Body: []ast.Stmt{
				&ast.ReturnStmt{Value: &ast.ConstantExpr{Value: "pos"}},
			},
		}
	}
	a, b := ast.Dump(mk()), ast.Dump(mk())
	if a != b {
		t.Fatalf("Dump of equal trees differs:\n%s", cmp.Diff(a, b))
	}
	if a == "" {
		t.Fatalf("Dump produced no output")
	}
}

func TestDumpDistinguishesStructure(t *testing.T) {
	x := ast.Dump(&ast.NameExpr{Id: "x"})
	y := ast.Dump(&ast.NameExpr{Id: "y"})
	if x == y {
		t.Fatalf("structurally different nodes must dump differently")
	}
}

func TestWalkVisitsChildrenDepthFirst(t *testing.T) {
	stmt := &ast.AssignStmt{
		Targets: []ast.Expr{&ast.NameExpr{Id: "a"}},
		Value: &ast.BinOpExpr{
			Left:  &ast.NameExpr{Id: "b"},
			Op:    "+",
			Right: &ast.ConstantExpr{Value: int64(1)},
		},
	}
	var names []string
	var v ast.Visitor
	v = ast.VisitorFunc(func(n ast.Node, dir ast.VisitDirection) ast.Visitor {
		if dir == ast.VisitEnter {
			if ne, ok := n.(*ast.NameExpr); ok {
				names = append(names, ne.Id)
			}
		}
		return v
	})
	ast.Walk(v, stmt)
	if want := []string{"a", "b"}; len(names) != 2 || names[0] != want[0] || names[1] != want[1] {
		t.Fatalf("visited names = %v, want %v", names, want)
	}
}

func TestVisitorCanPrune(t *testing.T) {
	stmt := &ast.ExprStmt{Value: &ast.BinOpExpr{
		Left:  &ast.NameExpr{Id: "x"},
		Op:    "+",
		Right: &ast.NameExpr{Id: "y"},
	}}
	var visited int
	ast.Walk(ast.VisitorFunc(func(n ast.Node, dir ast.VisitDirection) ast.Visitor {
		visited++
		return nil // prune: never descend
	}), stmt)
	if visited != 1 {
		t.Fatalf("pruned walk must visit only the root, visited %d", visited)
	}
}

func TestPrinterIndentsNesting(t *testing.T) {
	var b strings.Builder
	p := &ast.Printer{Output: &b}
	err := p.Print(&ast.WhileStmt{
		Test: &ast.ConstantExpr{Value: true},
		Body: []ast.Stmt{&ast.PassStmt{}},
	})
	if err != nil {
		t.Fatalf("Print: %v", err)
	}
	out := b.String()
	if !strings.Contains(out, "while") || !strings.Contains(out, ". pass") {
		t.Fatalf("unexpected printer output:\n%s", out)
	}
}
