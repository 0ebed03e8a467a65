package decompile

import (
	"github.com/mna/depyc/arena"
	"github.com/mna/depyc/ast"
	"github.com/mna/depyc/cfg"
	"github.com/mna/depyc/pattern"
	"github.com/mna/depyc/sim"
	"github.com/mna/depyc/trace"
)

// decompileRange is the top-level traversal loop of spec §4.F: it walks
// blocks in CFG order starting at start, consuming a contiguous region per
// iteration via decompileBlock, until it reaches limit, a block already
// consumed by an earlier call (the detector's classification overlaps are
// intentional; the traversal is what de-duplicates them), or a dead end.
// The active loop's header/exit are checked first so a mid-body jump to
// either surfaces as an explicit continue/break rather than silently
// truncating the statement list (spec §4.F "Break/continue... resolved by
// the enclosing-loop map").
func (d *decompiler) decompileRange(start, limit cfg.BlockID) ([]ast.Stmt, error) {
	var out []ast.Stmt
	cur := start
	for cur >= 0 && cur != limit {
		if d.consumed[cur] {
			break
		}
		if lp, ok := d.currentLoop(); ok {
			if cur == lp.header && limit != lp.header {
				out = append(out, d.newContinue())
				break
			}
			if cur == lp.exit && limit != lp.exit {
				out = append(out, d.newBreak())
				break
			}
		}
		stmts, next, err := d.decompileBlock(cur)
		if err != nil {
			return nil, err
		}
		out = append(out, stmts...)
		cur = next
	}
	return out, nil
}

func (d *decompiler) decompileBlock(id cfg.BlockID) ([]ast.Stmt, cfg.BlockID, error) {
	c := d.pd.Classify(id)
	trace.Emit(d.opts.sink(), trace.Event{Kind: trace.EventPattern, CodeName: d.code.Name, BlockID: int32(id), Pattern: c.Kind.String()})

	switch c.Kind {
	case pattern.Sequential:
		return d.handleSequential(id)
	case pattern.If:
		return d.handleIf(id, c)
	case pattern.Ternary:
		return d.handleTernary(id, c)
	case pattern.While, pattern.For:
		return d.handleLoop(id, c)
	case pattern.Try:
		return d.handleTry(id, c)
	case pattern.With:
		return d.handleWith(id, c)
	case pattern.Match:
		return d.handleMatch(id, c)
	case pattern.BoolShortCircuit:
		return d.handleBoolShortCircuit(id)
	default:
		return d.handleSequential(id)
	}
}

func (d *decompiler) handleSequential(id cfg.BlockID) ([]ast.Stmt, cfg.BlockID, error) {
	d.consumed[id] = true
	b := d.g.Blocks[id]
	res, err := sim.Simulate(d.env, b, d.entryStacks[id])
	if err != nil {
		return nil, noBlock, err
	}
	return res.Stmts, d.singleSuccessor(b), nil
}

// handleIf builds an IfStmt, folding a single nested IfStmt in the
// else-branch into an `elif`, and inverting the test when the then-branch
// is empty and the else-branch isn't (spec §4.F "If... invert condition
// iff then-range is empty").
func (d *decompiler) handleIf(id cfg.BlockID, c pattern.Classification) ([]ast.Stmt, cfg.BlockID, error) {
	d.consumed[id] = true
	b := d.g.Blocks[id]
	res, err := sim.Simulate(d.env, b, d.entryStacks[id])
	if err != nil {
		return nil, noBlock, err
	}
	cond := res.Condition

	var thenBody, elseBody []ast.Stmt
	if c.ThenStart != c.Merge {
		if thenBody, err = d.decompileRange(c.ThenStart, c.Merge); err != nil {
			return nil, noBlock, err
		}
	}
	if c.HasElse && c.ElseStart != c.Merge {
		if elseBody, err = d.decompileRange(c.ElseStart, c.Merge); err != nil {
			return nil, noBlock, err
		}
	}
	if len(thenBody) == 0 && len(elseBody) > 0 {
		thenBody, elseBody = elseBody, thenBody
		cond = d.negate(cond)
	}

	ifStmt := arena.Alloc[ast.IfStmt](d.arena)
	ifStmt.Test, ifStmt.Body = cond, thenBody
	if len(elseBody) == 1 {
		if nested, ok := elseBody[0].(*ast.IfStmt); ok {
			ifStmt.Elifs = append([]ast.ElifBranch{{Test: nested.Test, Body: nested.Body}}, nested.Elifs...)
			ifStmt.Orelse = nested.Orelse
		} else {
			ifStmt.Orelse = elseBody
		}
	} else if len(elseBody) > 0 {
		ifStmt.Orelse = elseBody
	}

	out := append(append([]ast.Stmt{}, res.Stmts...), ifStmt)
	return out, c.Merge, nil
}

// handleTernary simulates both single-expression branches and pushes the
// resulting IfExpExpr onto the merge block's converged entry stack in
// place of whatever the generic worklist merged there (spec §4.E
// "Ternary"); it never itself contributes a statement.
func (d *decompiler) handleTernary(id cfg.BlockID, c pattern.Classification) ([]ast.Stmt, cfg.BlockID, error) {
	d.consumed[id] = true
	b := d.g.Blocks[id]
	res, err := sim.Simulate(d.env, b, d.entryStacks[id])
	if err != nil {
		return nil, noBlock, err
	}

	thenExpr, err := d.simulateSingleExpr(c.ThenStart, c.Merge)
	if err != nil {
		return nil, noBlock, err
	}
	elseExpr, err := d.simulateSingleExpr(c.ElseStart, c.Merge)
	if err != nil {
		return nil, noBlock, err
	}
	if thenExpr != nil && elseExpr != nil {
		ifexp := arena.Alloc[ast.IfExpExpr](d.arena)
		*ifexp = ast.IfExpExpr{Test: res.Condition, Body: thenExpr, Orelse: elseExpr}
		d.overrideTop(c.Merge, ifexp)
	}
	return res.Stmts, c.Merge, nil
}

// handleLoop covers both While and For, which share everything but the
// loop-variable/iterable extraction (spec §4.F "While"/"For").
func (d *decompiler) handleLoop(id cfg.BlockID, c pattern.Classification) ([]ast.Stmt, cfg.BlockID, error) {
	if c.Kind == pattern.For {
		return d.handleFor(id, c)
	}
	return d.handleWhile(id, c)
}

func (d *decompiler) handleWhile(id cfg.BlockID, c pattern.Classification) ([]ast.Stmt, cfg.BlockID, error) {
	d.consumed[id] = true
	b := d.g.Blocks[id]
	res, err := sim.Simulate(d.env, b, d.entryStacks[id])
	if err != nil {
		return nil, noBlock, err
	}
	cond := res.Condition
	if cond == nil {
		// Unconditional header (`while True:`-shaped, spec §4.F "detect
		// guard-style while True"): no CHECK opcode means no expression was
		// popped, so fall back to the literal True test.
		t := arena.Alloc[ast.ConstantExpr](d.arena)
		*t = ast.ConstantExpr{Value: true}
		cond = t
	} else if falseID, ok := edgeTo(b, cfg.EdgeCondFalse); ok && falseID == c.BodyStart {
		// The loop continues along the false edge, so the source condition
		// is the negation of what the jump tested.
		cond = d.negate(cond)
	}

	d.loopStack = append(d.loopStack, loopCtx{header: id, exit: c.Exit})
	body, err := d.decompileRange(c.BodyStart, id)
	d.loopStack = d.loopStack[:len(d.loopStack)-1]
	if err != nil {
		return nil, noBlock, err
	}

	var orelse []ast.Stmt
	if c.HasOrelse {
		if orelse, err = d.decompileRange(c.OrelseStart, c.Exit); err != nil {
			return nil, noBlock, err
		}
	}

	w := arena.Alloc[ast.WhileStmt](d.arena)
	*w = ast.WhileStmt{Test: cond, Body: body, Orelse: orelse}
	out := append(append([]ast.Stmt{}, res.Stmts...), w)
	return out, c.Exit, nil
}

// handleFor extracts the loop target from the body's prelude store (spec
// §4.F "For: extract target from body prelude: target extracted from
// STORE_*/UNPACK in the first body block").
func (d *decompiler) handleFor(id cfg.BlockID, c pattern.Classification) ([]ast.Stmt, cfg.BlockID, error) {
	if d.isInlineComprehension(id) {
		return d.handleInlineComprehension(id, c)
	}

	d.consumed[id] = true
	b := d.g.Blocks[id]
	res, err := sim.Simulate(d.env, b, d.entryStacks[id])
	if err != nil {
		return nil, noBlock, err
	}
	iter := res.IterValue
	if iter == nil {
		// GET_ITER ran in a predecessor block; the iterator expression is
		// the header's converged entry-stack top.
		if entry := d.entryStacks[id]; len(entry) > 0 {
			iter, _ = entry[len(entry)-1].AsExpr()
		}
	}

	// The body block continues the header's own emission stack (which
	// carries the pushed iteration item), not the flow-converged entry.
	bodyBlock := d.g.Blocks[c.BodyStart]
	bodyRes, err := sim.Simulate(d.env, bodyBlock, res.Exit)
	if err != nil {
		return nil, noBlock, err
	}
	var target ast.Expr
	bodyStmts := bodyRes.Stmts
	if len(bodyStmts) > 0 {
		if assign, ok := bodyStmts[0].(*ast.AssignStmt); ok && len(assign.Targets) == 1 {
			target = assign.Targets[0]
			bodyStmts = bodyStmts[1:]
		}
	}
	d.consumed[c.BodyStart] = true

	d.loopStack = append(d.loopStack, loopCtx{header: id, exit: c.Exit})
	var rest []ast.Stmt
	if next := d.singleSuccessor(bodyBlock); next >= 0 {
		rest, err = d.decompileRange(next, id)
	}
	d.loopStack = d.loopStack[:len(d.loopStack)-1]
	if err != nil {
		return nil, noBlock, err
	}

	var orelse []ast.Stmt
	if c.HasOrelse {
		if orelse, err = d.decompileRange(c.OrelseStart, c.Exit); err != nil {
			return nil, noBlock, err
		}
	}

	f := arena.Alloc[ast.ForStmt](d.arena)
	*f = ast.ForStmt{Target: target, Iter: iter, Body: append(bodyStmts, rest...), Orelse: orelse}
	out := append(append([]ast.Stmt{}, res.Stmts...), f)
	return out, c.Exit, nil
}

// handleBoolShortCircuit folds a `JUMP_IF_{TRUE,FALSE}_OR_POP`-terminated
// block and its continuation chain into a single BoolOpExpr pushed at the
// merge point, flattening same-operator runs rather than nesting them
// (spec §4.D "boolean").
func (d *decompiler) handleBoolShortCircuit(id cfg.BlockID) ([]ast.Stmt, cfg.BlockID, error) {
	b := d.g.Blocks[id]
	_, merge, ok := orPopEdges(b)
	if !ok {
		return d.handleSequential(id)
	}

	var stmts []ast.Stmt
	boolop, err := d.boolChainExpr(id, &stmts)
	if err != nil {
		return nil, noBlock, err
	}
	// A chained comparison's short-circuit target is a stack-cleanup block
	// (ROT_TWO/SWAP + POP_TOP) that falls into the real merge; consume it
	// and land the folded expression there instead.
	if cleanup := d.g.Blocks[merge]; isCompareCleanup(cleanup) {
		d.consumed[merge] = true
		if next, ok := edgeTo(cleanup, cfg.EdgeNormal); ok {
			merge = next
		}
	}
	if boolop != nil {
		d.overrideTop(merge, boolop)
	}
	return stmts, merge, nil
}

// isCompareCleanup recognizes the discard block the compiler emits for a
// failed chained-comparison link: nothing but stack shuffling, a pop, and
// an optional jump to the merge.
func isCompareCleanup(b *cfg.Block) bool {
	if len(b.Insns) == 0 {
		return false
	}
	sawPop := false
	for _, in := range b.Insns {
		switch in.Opcode {
		case "ROT_TWO", "SWAP":
		case "POP_TOP":
			sawPop = true
		case "JUMP_FORWARD", "JUMP_ABSOLUTE", "JUMP_BACKWARD":
		default:
			return false
		}
	}
	return sawPop
}

// orPopEdges splits a JUMP_IF_*_OR_POP block's successors into the
// continuation (the operand popped, evaluation proceeds to the next chain
// term) and the short-circuit merge (the operand kept).
func orPopEdges(b *cfg.Block) (cont, merge cfg.BlockID, ok bool) {
	if len(b.Insns) == 0 {
		return 0, 0, false
	}
	var contKind, mergeKind cfg.EdgeKind
	switch b.Insns[len(b.Insns)-1].Opcode {
	case "JUMP_IF_FALSE_OR_POP":
		contKind, mergeKind = cfg.EdgeCondTrue, cfg.EdgeCondFalse
	case "JUMP_IF_TRUE_OR_POP":
		contKind, mergeKind = cfg.EdgeCondFalse, cfg.EdgeCondTrue
	default:
		return 0, 0, false
	}
	cont, hasCont := edgeTo(b, contKind)
	merge, hasMerge := edgeTo(b, mergeKind)
	if !hasCont || !hasMerge {
		return 0, 0, false
	}
	return cont, merge, true
}

// boolChainExpr recursively collects one short-circuit chain: each
// OR_POP-terminated block contributes its tested operand, and the final
// continuation block contributes its top-of-stack expression. Statements
// emitted by chain blocks (there are normally none) accumulate in stmts.
func (d *decompiler) boolChainExpr(id cfg.BlockID, stmts *[]ast.Stmt) (ast.Expr, error) {
	d.consumed[id] = true
	b := d.g.Blocks[id]
	res, err := sim.Simulate(d.env, b, d.entryStacks[id])
	if err != nil {
		return nil, err
	}
	*stmts = append(*stmts, res.Stmts...)

	cont, _, ok := orPopEdges(b)
	if !ok || res.Condition == nil {
		// Chain tail: the block's own value is the last operand.
		if len(res.Exit) == 0 {
			return nil, nil
		}
		e, _ := res.Exit[len(res.Exit)-1].AsExpr()
		return e, nil
	}

	op := "and"
	if b.Insns[len(b.Insns)-1].Opcode == "JUMP_IF_TRUE_OR_POP" {
		op = "or"
	}
	right, err := d.boolChainExpr(cont, stmts)
	if err != nil {
		return nil, err
	}
	if right == nil {
		return res.Condition, nil
	}
	if op == "and" && res.ChainCompare {
		// This link duplicated its right operand for the next comparison
		// (DUP/ROT prelude): fold into one n-ary Compare rather than an
		// `and` of two comparisons (spec §4.F "Chained comparisons").
		if folded, ok := foldComparisonChain(res.Condition, right); ok {
			return folded, nil
		}
	}
	boolop := &ast.BoolOpExpr{Op: op, Values: []ast.Expr{res.Condition, right}}
	if nested, ok := right.(*ast.BoolOpExpr); ok && nested.Op == op {
		boolop.Values = append([]ast.Expr{res.Condition}, nested.Values...)
	}
	return boolop, nil
}

// foldComparisonChain merges `left` (one chain link) with `right` (the
// rest of the chain, itself possibly already n-ary) into a single
// CompareExpr, provided right's leftmost operand is structurally the
// operand left duplicated.
func foldComparisonChain(left, right ast.Expr) (ast.Expr, bool) {
	lc, ok := left.(*ast.CompareExpr)
	if !ok || len(lc.Comparators) == 0 {
		return nil, false
	}
	rc, ok := right.(*ast.CompareExpr)
	if !ok {
		return nil, false
	}
	link := lc.Comparators[len(lc.Comparators)-1]
	if ast.Dump(link) != ast.Dump(rc.Left) {
		return nil, false
	}
	return &ast.CompareExpr{
		Left:        lc.Left,
		Ops:         append(append([]string{}, lc.Ops...), rc.Ops...),
		Comparators: append(append([]ast.Expr{}, lc.Comparators...), rc.Comparators...),
	}, true
}
