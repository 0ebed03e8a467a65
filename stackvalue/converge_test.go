package stackvalue

import (
	"testing"

	"github.com/mna/depyc/ast"
	"github.com/mna/depyc/cfg"
	"github.com/mna/depyc/ir"
)

// fakeSim pushes one constant expression per block and otherwise passes the
// entry stack through unchanged, enough to exercise Converge's merge logic
// without depending on the real simulator (sim imports stackvalue, so a
// real one can't be used here without an import cycle).
type fakeSim struct {
	pushed map[cfg.BlockID]ast.Expr
}

func (f fakeSim) SimulateFlow(b *cfg.Block, entry Stack) (Stack, error) {
	if e, ok := f.pushed[b.ID]; ok {
		return append(append(Stack{}, entry...), FromExpr(e)), nil
	}
	return entry, nil
}

func diamondGraph(t *testing.T) *cfg.Graph {
	t.Helper()
	v := ir.Version{Major: 3, Minor: 10}
	table := ir.Table(v)
	sz := uint32(2)
	insns := []ir.Instruction{
		{Offset: 0, Opcode: "LOAD_FAST", Size: sz},
		{Offset: 2, Opcode: "POP_JUMP_IF_FALSE", Arg: 2, Size: sz}, // target 8
		{Offset: 4, Opcode: "LOAD_CONST", Size: sz},
		{Offset: 6, Opcode: "JUMP_FORWARD", Arg: 1, Size: sz}, // target 10
		{Offset: 8, Opcode: "LOAD_CONST", Size: sz},
		{Offset: 10, Opcode: "RETURN_VALUE", Size: sz},
	}
	stream := ir.NewStream(v, insns)
	g, err := cfg.BuildCFG("t", stream, table, nil)
	if err != nil {
		t.Fatalf("BuildCFG: %v", err)
	}
	return g
}

func TestConvergeMergesEqualExpressionsAtJoin(t *testing.T) {
	g := diamondGraph(t)
	then, _ := g.BlockContaining(4)
	els, _ := g.BlockContaining(8)
	one := &ast.ConstantExpr{Value: "1"}
	sim := fakeSim{pushed: map[cfg.BlockID]ast.Expr{then.ID: one, els.ID: one}}

	out, err := Converge("t", g, nil, sim)
	if err != nil {
		t.Fatalf("Converge: %v", err)
	}
	merge, _ := g.BlockContaining(10)
	entry := out[merge.ID]
	if len(entry) != 1 {
		t.Fatalf("want merge entry stack of depth 1, got %d", len(entry))
	}
	if _, ok := entry[0].AsExpr(); !ok {
		t.Fatalf("want an expression slot to survive a merge of two equal expressions, got %+v", entry[0])
	}
}

func TestConvergeMergesDifferentExpressionsToUnknown(t *testing.T) {
	g := diamondGraph(t)
	then, _ := g.BlockContaining(4)
	els, _ := g.BlockContaining(8)
	sim := fakeSim{pushed: map[cfg.BlockID]ast.Expr{
		then.ID: &ast.ConstantExpr{Value: "1"},
		els.ID:  &ast.ConstantExpr{Value: "2"},
	}}

	out, err := Converge("t", g, nil, sim)
	if err != nil {
		t.Fatalf("Converge: %v", err)
	}
	merge, _ := g.BlockContaining(10)
	entry := out[merge.ID]
	if entry[0].Kind != KindUnknown {
		t.Fatalf("want Unknown after merging differing expressions, got %+v", entry[0])
	}
}

func TestHandlerSeedWidthByLasti(t *testing.T) {
	if n := len(HandlerSeed(false)); n != 3 {
		t.Fatalf("pre-3.11 handler seed width = %d, want 3", n)
	}
	if n := len(HandlerSeed(true)); n != 4 {
		t.Fatalf("3.11+ has_lasti handler seed width = %d, want 4", n)
	}
}
