package decompile

import (
	"github.com/mna/depyc/ast"
	"github.com/mna/depyc/cfg"
	"github.com/mna/depyc/pattern"
	"github.com/mna/depyc/sim"
	"github.com/mna/depyc/stackvalue"
)

// isInlineComprehension reports whether the for-loop headed at id is the
// desugared body of a PEP 709 inline comprehension (spec §4.D
// "comprehension open/close": BUILD_LIST/SET/MAP 0 + *_APPEND/*_ADD in a
// loop body, no nested code object): some block of the natural loop
// performs the per-iteration accumulation.
func (d *decompiler) isInlineComprehension(id cfg.BlockID) bool {
	body := d.dom.NaturalLoops()[id]
	for bid := range body {
		if bid == id {
			continue
		}
		for _, in := range d.g.Blocks[bid].Insns {
			switch in.Opcode {
			case "LIST_APPEND", "SET_ADD", "MAP_ADD":
				return true
			}
		}
	}
	return false
}

// handleInlineComprehension rebuilds an inline (PEP 709) comprehension
// from a for-loop region: the container accumulator opened just before the
// loop sits on the header's entry stack below the iterator, the loop body
// stores the target, evaluates optional filters, and appends one element
// per iteration (spec §4.D). The finished comprehension expression
// replaces the accumulator slot in the exit block's entry stack, so the
// store or return that consumes the "list" downstream sees the
// comprehension instead of a half-built literal; no statement is emitted
// here at all, matching spec §8 S5 (a comprehension, never a desugared
// for-loop).
func (d *decompiler) handleInlineComprehension(id cfg.BlockID, c pattern.Classification) ([]ast.Stmt, cfg.BlockID, error) {
	d.consumed[id] = true
	header := d.g.Blocks[id]
	entry := d.entryStacks[id]

	// The accumulator is the topmost ContainerLiteral slot below the
	// iterator.
	var cont *stackvalue.ContainerLiteral
	for i := len(entry) - 1; i >= 0; i-- {
		if entry[i].Kind == stackvalue.KindContainerLiteral && entry[i].Container != nil {
			cont = entry[i].Container
			break
		}
	}

	res, err := sim.Simulate(d.env, header, entry)
	if err != nil {
		return nil, noBlock, err
	}
	iter := res.IterValue
	if iter == nil && len(entry) > 0 {
		iter, _ = entry[len(entry)-1].AsExpr()
	}

	var gens []ast.Comprehension
	gens = append(gens, ast.Comprehension{Iter: iter})

	cur := c.BodyStart
	stack := res.Exit
	iterForNext := iter
	first := true
	var elt, key ast.Expr

	loopBody := d.dom.NaturalLoops()[id]
	for cur >= 0 && (loopBody[cur] || cur == c.BodyStart) {
		if d.consumed[cur] {
			break
		}
		d.consumed[cur] = true
		b := d.g.Blocks[cur]

		if b.IsLoopHeader && b.ID != id {
			// A nested generator clause: its own FOR_ITER header.
			hres, err := sim.Simulate(d.env, b, stack)
			if err != nil {
				return nil, noBlock, err
			}
			gens = append(gens, ast.Comprehension{Iter: iterForNext})
			stack = hres.Exit
			next, ok := edgeTo(b, cfg.EdgeCondTrue)
			if !ok {
				break
			}
			cur = next
			first = true
			continue
		}

		bres, err := sim.Simulate(d.env, b, stack)
		if err != nil {
			return nil, noBlock, err
		}
		if first {
			if len(bres.Stmts) > 0 {
				if assign, ok := bres.Stmts[0].(*ast.AssignStmt); ok && len(assign.Targets) == 1 {
					gens[len(gens)-1].Target = assign.Targets[0]
				}
			}
			first = false
		}
		if bres.IterValue != nil {
			iterForNext = bres.IterValue
		}
		if containsAppend(b) {
			elt, key = extractCompTerminal(stack, bres)
			break
		}
		if bres.Condition != nil {
			gens[len(gens)-1].Ifs = append(gens[len(gens)-1].Ifs, bres.Condition)
			next, ok := edgeTo(b, cfg.EdgeCondTrue)
			if !ok {
				break
			}
			stack = bres.Exit
			cur = next
			continue
		}
		stack = bres.Exit
		next, ok := edgeTo(b, cfg.EdgeNormal)
		if !ok {
			break
		}
		cur = next
	}

	for bid := range loopBody {
		d.consumed[bid] = true
	}

	kind := ast.CompList
	if cont != nil {
		kind = compKindForContainer(cont.Kind)
	}
	comp := buildCompExpr(d.arena, kind, elt, key, gens)

	// Substitute the comprehension for the accumulator slot at the loop's
	// exhaustion successor, wherever the converged stack carries it.
	if c.Exit >= 0 {
		exitEntry := d.entryStacks[c.Exit]
		replaced := false
		for i := len(exitEntry) - 1; i >= 0; i-- {
			if exitEntry[i].Kind == stackvalue.KindContainerLiteral && exitEntry[i].Container == cont {
				d.overrideSlot(c.Exit, i, comp)
				replaced = true
				break
			}
		}
		if !replaced {
			d.overrideTop(c.Exit, comp)
		}
	}
	return nil, c.Exit, nil
}
