package cfg

import (
	"golang.org/x/exp/slices"

	"github.com/mna/depyc/ir"
	"github.com/mna/depyc/pyerr"
)

// terminates reports whether info ends a basic block (spec §4.A "Leaders"
// rule iii): any jump (conditional or not), a return, a raise/reraise, or
// FOR_ITER.
func terminates(info ir.OpInfo) bool {
	if info.IsJump {
		return true
	}
	switch info.Family {
	case ir.FamilyReturn, ir.FamilyRaise:
		return true
	}
	return info.Name == "RERAISE"
}

// BuildCFG partitions stream into basic blocks and wires normal,
// conditional, exception and loop-back edges (spec §4.A). codeObjectName is
// used only to annotate diagnostics.
func BuildCFG(codeObjectName string, stream *ir.Stream, table ir.OpcodeTable, regions []ir.ExceptionRegion) (*Graph, error) {
	leaders := map[uint32]bool{}
	if len(stream.Instructions) > 0 {
		leaders[stream.Instructions[0].Offset] = true // rule (i)
	}

	infoAt := make([]ir.OpInfo, len(stream.Instructions))
	for i, in := range stream.Instructions {
		info, ok := table.ByName(in.Opcode)
		if !ok {
			return nil, pyerr.NewMalformedBytecode(codeObjectName, in.Offset, "opcode "+in.Opcode+" not in table")
		}
		infoAt[i] = info

		if info.IsJump {
			target := in.Target(stream.Version, info)
			if _, ok := stream.IndexAt(target); !ok {
				return nil, pyerr.NewMalformedBytecode(codeObjectName, in.Offset, "jump target out of range")
			}
			leaders[target] = true // rule (ii)
		}
		if terminates(info) && i+1 < len(stream.Instructions) {
			leaders[stream.Instructions[i+1].Offset] = true // rule (iii)
		}
	}
	for _, r := range regions {
		if _, ok := stream.IndexAt(r.Handler); !ok {
			return nil, pyerr.NewMalformedBytecode(codeObjectName, r.Start, "exception handler offset inside no block")
		}
		leaders[r.Handler] = true // rule (iv)
		if idx, ok := stream.IndexAt(r.End); ok {
			leaders[stream.Instructions[idx].Offset] = true // rule (v)
		} else if r.End != stream.End() {
			return nil, pyerr.NewMalformedBytecode(codeObjectName, r.End, "exception region end outside bytecode")
		}
		if _, ok := stream.IndexAt(r.Start); !ok {
			return nil, pyerr.NewMalformedBytecode(codeObjectName, r.Start, "exception region start inside no block")
		}
	}

	leaderOffsets := make([]uint32, 0, len(leaders))
	for off := range leaders {
		leaderOffsets = append(leaderOffsets, off)
	}
	slices.Sort(leaderOffsets)

	g := &Graph{offsetIndex: map[uint32]BlockID{}}
	startIdxOf := func(off uint32) int {
		idx, _ := stream.IndexAt(off)
		return idx
	}
	for bi, off := range leaderOffsets {
		startIdx := startIdxOf(off)
		endIdx := len(stream.Instructions)
		if bi+1 < len(leaderOffsets) {
			endIdx = startIdxOf(leaderOffsets[bi+1])
		}
		insns := stream.Instructions[startIdx:endIdx]
		end := stream.End()
		if len(insns) > 0 {
			last := insns[len(insns)-1]
			end = last.Offset + last.Size
		}
		b := &Block{ID: BlockID(bi), StartOffset: off, EndOffset: end, Insns: insns}
		g.Blocks = append(g.Blocks, b)
		for _, in := range insns {
			g.offsetIndex[in.Offset] = b.ID
		}
	}

	addEdge := func(from, to BlockID, kind EdgeKind) {
		g.Blocks[from].Succs = append(g.Blocks[from].Succs, Edge{To: to, Kind: kind})
		g.Blocks[to].Preds = append(g.Blocks[to].Preds, Edge{To: from, Kind: kind})
	}

	for _, b := range g.Blocks {
		if len(b.Insns) == 0 {
			continue
		}
		last := b.Insns[len(b.Insns)-1]
		lastIdx, _ := stream.IndexAt(last.Offset)
		info := infoAt[lastIdx]

		switch {
		case info.IsJump && info.IsConditional:
			target := last.Target(stream.Version, info)
			targetID, _ := g.BlockContaining(target)
			fallIdx := lastIdx + 1
			var fallID *Block
			if fallIdx < len(stream.Instructions) {
				fallID, _ = g.BlockContaining(stream.Instructions[fallIdx].Offset)
			}
			trueID, falseID := targetID, fallID
			if !info.JumpPolarityTrue {
				// POP_JUMP_IF_FALSE jumps when false; its jump target is the
				// false branch (spec §4.A "Edges").
				trueID, falseID = fallID, targetID
			}
			if info.Name == "FOR_ITER" {
				// exhaustion (cond_false) goes to the jump target; iteration
				// (cond_true) falls through (spec §4.A "Edges").
				if trueID != nil {
					addEdge(b.ID, trueID.ID, EdgeCondTrue)
				}
				if falseID != nil {
					addEdge(b.ID, falseID.ID, EdgeCondFalse)
				}
				continue
			}
			if trueID != nil {
				addEdge(b.ID, trueID.ID, EdgeCondTrue)
			}
			if falseID != nil {
				addEdge(b.ID, falseID.ID, EdgeCondFalse)
			}
		case info.IsJump:
			target := last.Target(stream.Version, info)
			targetID, _ := g.BlockContaining(target)
			addEdge(b.ID, targetID.ID, EdgeNormal)
		case info.Family == ir.FamilyReturn, info.Family == ir.FamilyRaise, info.Name == "RERAISE":
			// no successor
		default:
			fallIdx := lastIdx + 1
			if fallIdx < len(stream.Instructions) {
				fallID, _ := g.BlockContaining(stream.Instructions[fallIdx].Offset)
				addEdge(b.ID, fallID.ID, EdgeNormal)
			}
		}
	}

	for _, r := range regions {
		handlerBlock, _ := g.BlockContaining(r.Handler)
		handlerBlock.IsHandler = true
		for _, b := range g.Blocks {
			if b.StartOffset >= r.Start && b.StartOffset < r.End {
				addEdge(b.ID, handlerBlock.ID, EdgeException)
			}
		}
	}

	markLoopBacks(g)

	return g, nil
}

// markLoopBacks reclassifies any normal/conditional edge whose target
// starts at or before the source block's end and has a block ID no greater
// than the source's as loop_back (spec §4.A "An edge whose target has
// start_offset <= source.end_offset... forms loop_back"). Dominance isn't
// known yet at CFG-build time, so this uses the spec's cheaper syntactic
// proxy (backward offset) consistently with spec §4.A's own wording; full
// loop bodies are derived from these edges in Dominators (spec §4.B).
func markLoopBacks(g *Graph) {
	for _, b := range g.Blocks {
		for i, e := range b.Succs {
			target := g.Blocks[e.To]
			if target.StartOffset <= b.EndOffset && (e.Kind == EdgeNormal || e.Kind == EdgeCondTrue || e.Kind == EdgeCondFalse) && target.ID <= b.ID {
				b.Succs[i].Kind = EdgeLoopBack
				target.IsLoopHeader = true
				for j, pe := range target.Preds {
					if pe.To == b.ID && pe.Kind == e.Kind {
						target.Preds[j].Kind = EdgeLoopBack
					}
				}
			}
		}
	}
}
