package decompile

import (
	"github.com/mna/depyc/arena"
	"github.com/mna/depyc/ast"
	"github.com/mna/depyc/cfg"
	"github.com/mna/depyc/pattern"
	"github.com/mna/depyc/sim"
)

// handleMatch builds a MatchStmt from the detector's chain of case-start
// blocks (spec §4.F "Match: for each case block, extract pattern..."). The
// MATCH_* opcode family only ever pushes a boolean test result onto the
// simulator's stack (spec §4.D), never a structured pattern value, so the
// subject expression is recovered positionally (the value loaded directly
// below the boolean the match opcode just produced) and each case's test
// shape is classified by extractPattern instead of being built by sim.
func (d *decompiler) handleMatch(id cfg.BlockID, c pattern.Classification) ([]ast.Stmt, cfg.BlockID, error) {
	d.consumed[id] = true
	b := d.g.Blocks[id]
	res, err := sim.Simulate(d.env, b, d.entryStacks[id])
	if err != nil {
		return nil, noBlock, err
	}
	var subject ast.Expr
	if len(res.Exit) > 0 {
		// The trailing conditional jump consumed the match-test slot; the
		// subject itself is what remains on top.
		subject, _ = res.Exit[len(res.Exit)-1].AsExpr()
	}
	merge, _ := d.dom.PostDominator(id)

	var cases []ast.MatchCase
	for i, caseStart := range c.Cases {
		mc, err := d.decompileCase(caseStart, merge, subject, i == len(c.Cases)-1)
		if err != nil {
			return nil, noBlock, err
		}
		cases = append(cases, mc)
	}

	m := arena.Alloc[ast.MatchStmt](d.arena)
	*m = ast.MatchStmt{Subject: subject, Cases: cases}
	out := append(append([]ast.Stmt{}, res.Stmts...), m)
	return out, merge, nil
}

func (d *decompiler) decompileCase(caseStart, merge cfg.BlockID, subject ast.Expr, isLast bool) (ast.MatchCase, error) {
	if d.consumed[caseStart] {
		return ast.MatchCase{Pattern: &ast.WildcardPattern{}}, nil
	}
	cb := d.g.Blocks[caseStart]
	res, err := sim.Simulate(d.env, cb, d.entryStacks[caseStart])
	if err != nil {
		return ast.MatchCase{}, err
	}
	d.consumed[caseStart] = true

	bodyStart := d.singleSuccessor(cb)
	if trueID, ok := edgeTo(cb, cfg.EdgeCondTrue); ok {
		bodyStart = trueID
	}
	var body []ast.Stmt
	if bodyStart >= 0 {
		if body, err = d.decompileRange(bodyStart, merge); err != nil {
			return ast.MatchCase{}, err
		}
	}
	body = append(res.Stmts, body...)

	pat, guard := extractPattern(res, subject, isLast)
	if d.caseMatchKind(caseStart) == "sequence" && len(body) > 0 {
		// The sequence bind prelude is the unpack of the matched subject
		// into a tuple target; its elements become the capture (and star)
		// elements of the sequence pattern (spec §4.F "Match: extract
		// pattern... sequence").
		if assign, ok := body[0].(*ast.AssignStmt); ok && len(assign.Targets) == 1 && subjectEqual(assign.Value, subject) {
			if tup, ok := assign.Targets[0].(*ast.TupleExpr); ok {
				var elems []ast.Pattern
				for _, e := range tup.Elts {
					switch t := e.(type) {
					case *ast.NameExpr:
						elems = append(elems, &ast.CapturePattern{Name: t.Id})
					case *ast.StarredExpr:
						if ne, ok := t.Value.(*ast.NameExpr); ok {
							elems = append(elems, &ast.StarPattern{Name: ne.Id})
						}
					}
				}
				if len(elems) == len(tup.Elts) {
					pat = &ast.SequencePattern{Elems: elems}
					body = body[1:]
				}
			}
		}
	}
	if cp, ok := pat.(*ast.CapturePattern); ok && len(body) > 0 {
		if assign, ok := body[0].(*ast.AssignStmt); ok && len(assign.Targets) == 1 {
			if target, ok := assign.Targets[0].(*ast.NameExpr); ok && subjectEqual(assign.Value, subject) {
				cp.Name = target.Id
				body = body[1:]
			}
		}
	}
	return ast.MatchCase{Pattern: pat, Guard: guard, Body: body}, nil
}

// extractPattern classifies one case test's shape (spec §4.I supplement
// "pattern... literal, capture, wildcard, sequence, mapping, class,
// or-pattern, as-pattern"). Only the literal/value/capture/wildcard shapes
// are derived from the simulator's output directly, and decompileCase
// replaces the result with a sequence pattern when the case opens with an
// unpack of the subject. The other structural shapes (mapping/class/or/as)
// require decoding MATCH_CLASS's keyword-name tuple and MATCH_KEYS' key
// list, which sim's opcode-family dispatch doesn't carry forward (it treats
// every MATCH_* op as an opaque boolean producer), so they fall back to a
// Wildcard placeholder rather than a fabricated guess.
func extractPattern(res sim.Result, subject ast.Expr, isLast bool) (ast.Pattern, ast.Expr) {
	if res.Condition == nil {
		if isLast {
			return &ast.WildcardPattern{}, nil
		}
		return &ast.CapturePattern{}, nil
	}
	if cmp, ok := res.Condition.(*ast.CompareExpr); ok && len(cmp.Ops) == 1 && cmp.Ops[0] == "==" {
		switch v := cmp.Comparators[0].(type) {
		case *ast.ConstantExpr:
			return &ast.LiteralPattern{Value: v}, nil
		case *ast.AttributeExpr:
			return &ast.ValuePattern{Value: v}, nil
		}
	}
	// A guard (`case x if cond:`) surfaces the same way structurally: a
	// conditional test following an unconditional capture/wildcard bind. A
	// capture or wildcard case rarely has a guard-shaped Condition at all
	// (the detector wouldn't have chained to it via cond_false), so any
	// remaining Condition here is itself the guard expression over an
	// otherwise-wildcard pattern.
	return &ast.WildcardPattern{}, res.Condition
}

// caseMatchKind reports which MATCH_* family opcode guarded entry into the
// case region at caseStart, by peeking the chain block that branched here
// (spec §4.E "Match... opcode peek"); "" when the case has no structural
// match opcode (literal, capture, wildcard).
func (d *decompiler) caseMatchKind(caseStart cfg.BlockID) string {
	for _, pe := range d.g.Blocks[caseStart].Preds {
		if pe.Kind != cfg.EdgeCondTrue {
			continue
		}
		for _, in := range d.g.Blocks[pe.To].Insns {
			switch in.Opcode {
			case "MATCH_SEQUENCE":
				return "sequence"
			case "MATCH_MAPPING":
				return "mapping"
			case "MATCH_CLASS":
				return "class"
			}
		}
	}
	return ""
}

func subjectEqual(a, b ast.Expr) bool {
	if a == nil || b == nil {
		return false
	}
	return ast.Dump(a) == ast.Dump(b)
}
