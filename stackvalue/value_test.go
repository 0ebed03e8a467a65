package stackvalue

import (
	"testing"

	"github.com/mna/depyc/ast"
)

func TestEqualStructuralExpressions(t *testing.T) {
	a := FromExpr(&ast.NameExpr{Id: "x"})
	b := FromExpr(&ast.NameExpr{Id: "x"})
	c := FromExpr(&ast.NameExpr{Id: "y"})
	if !a.Equal(b) {
		t.Fatalf("structurally equal expressions must merge as equal")
	}
	if a.Equal(c) {
		t.Fatalf("distinct expressions must not compare equal")
	}
}

func TestEqualContainerLiteralByIdentity(t *testing.T) {
	cont := &ContainerLiteral{Kind: "list"}
	a := Value{Kind: KindContainerLiteral, Container: cont}
	b := Value{Kind: KindContainerLiteral, Container: cont}
	other := Value{Kind: KindContainerLiteral, Container: &ContainerLiteral{Kind: "list"}}
	if !a.Equal(b) {
		t.Fatalf("the same accumulator must survive its own loop's back-edge merge")
	}
	if a.Equal(other) {
		t.Fatalf("distinct accumulators must merge to Unknown")
	}
}

func TestNonExpressionKindsMergeToUnknown(t *testing.T) {
	fn := Value{Kind: KindFunctionObject, Fn: &FnMeta{CodeName: "f"}}
	if fn.Equal(fn) {
		t.Fatalf("non-expression variants must not compare equal, even to themselves")
	}
	merged, ok := Merge(Stack{fn}, Stack{fn})
	if !ok {
		t.Fatalf("equal-depth stacks must merge")
	}
	if merged[0].Kind != KindUnknown {
		t.Fatalf("merged slot = %+v, want Unknown", merged[0])
	}
}

func TestMergeDepthMismatch(t *testing.T) {
	if _, ok := Merge(Stack{Unknown()}, Stack{}); ok {
		t.Fatalf("depth mismatch must be reported")
	}
}
