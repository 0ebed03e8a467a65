package stackvalue

import (
	"github.com/mna/depyc/cfg"
	"github.com/mna/depyc/pyerr"
)

// FlowSimulator runs one block in flow mode: allocation errors are fatal,
// but stack underflow is absorbed as additional Unknown slots at the
// bottom rather than failing (spec §4.C "Algorithm"). It never commits AST
// nodes to the long-lived arena (spec §4.C "Contract"). Implemented by the
// `sim` package and injected here so this package never imports `sim`
// (sim already imports stackvalue; the dependency would cycle otherwise).
type FlowSimulator interface {
	SimulateFlow(b *cfg.Block, entry Stack) (exit Stack, err error)
}

// HandlerSeed returns the entry-stack seed for a handler block, derived
// from the exception region that targets it (spec §4.C "handlers seeded
// with 1-4 Unknown slots depending on version"). pre-3.11 containers seed
// the classic three-value exception triple; 3.11+ with has_lasti seeds a
// fourth slot for the paired exit-function.
func HandlerSeed(hasLasti bool) Stack {
	n := 3
	if hasLasti {
		n = 4
	}
	seed := make(Stack, n)
	for i := range seed {
		seed[i] = Unknown()
	}
	return seed
}

// Converge runs the worklist dataflow of spec §4.C to a fixed point,
// returning the merged entry stack for every reachable block. handlerSeeds
// supplies the initial seed for each is_handler block (keyed by BlockID);
// every other reachable block starts unseeded and receives its first
// candidate from a predecessor's exit stack.
func Converge(codeObjectName string, g *cfg.Graph, handlerSeeds map[cfg.BlockID]Stack, sim FlowSimulator) (map[cfg.BlockID]Stack, error) {
	entryOf := make(map[cfg.BlockID]Stack, len(g.Blocks))
	queue := make([]cfg.BlockID, 0, len(g.Blocks))
	queued := make(map[cfg.BlockID]bool, len(g.Blocks))

	push := func(id cfg.BlockID) {
		if !queued[id] {
			queued[id] = true
			queue = append(queue, id)
		}
	}

	entryOf[g.Entry().ID] = Stack{}
	push(g.Entry().ID)
	for id, seed := range handlerSeeds {
		entryOf[id] = seed
		push(id)
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		queued[id] = false

		block := g.Blocks[id]
		in, ok := entryOf[id]
		if !ok {
			continue
		}
		out, err := sim.SimulateFlow(block, in)
		if err != nil {
			return nil, err
		}

		for _, e := range block.Succs {
			if e.Kind == cfg.EdgeException {
				// Exception successors are seeded independently by
				// handlerSeeds, not by this block's fallthrough exit stack.
				continue
			}
			out := out
			if kind, ok := orPopContinuation(block); ok && e.Kind == kind && len(out) > 0 {
				// JUMP_IF_*_OR_POP keeps its tested value only along the
				// short-circuit (jump) path; the continuation pops it (spec
				// §4.D "boolean"), so the two successors see different
				// depths from the same block.
				out = out[:len(out)-1]
			}
			cur, seen := entryOf[e.To]
			if !seen {
				entryOf[e.To] = out
				push(e.To)
				continue
			}
			merged, ok := Merge(cur, out)
			if !ok {
				return nil, pyerr.NewStackDepthMismatch(codeObjectName, int32(e.To))
			}
			if !stacksIdentical(cur, merged) {
				entryOf[e.To] = merged
				push(e.To)
			}
		}
	}

	return entryOf, nil
}

// orPopContinuation returns the edge kind along which a trailing
// JUMP_IF_*_OR_POP pops its tested value (the non-short-circuit
// continuation); ok is false when the block doesn't end in one.
func orPopContinuation(b *cfg.Block) (cfg.EdgeKind, bool) {
	if len(b.Insns) == 0 {
		return 0, false
	}
	switch b.Insns[len(b.Insns)-1].Opcode {
	case "JUMP_IF_FALSE_OR_POP":
		return cfg.EdgeCondTrue, true
	case "JUMP_IF_TRUE_OR_POP":
		return cfg.EdgeCondFalse, true
	}
	return 0, false
}

func stacksIdentical(a, b Stack) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) && !(a[i].Kind == KindUnknown && b[i].Kind == KindUnknown) {
			return false
		}
	}
	return true
}
