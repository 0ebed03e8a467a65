package decompile

import (
	"fmt"

	"github.com/mna/depyc/arena"
	"github.com/mna/depyc/ast"
	"github.com/mna/depyc/cfg"
	"github.com/mna/depyc/pattern"
	"github.com/mna/depyc/sim"
	"github.com/mna/depyc/stackvalue"
)

// handleTry assembles a TryStmt from the detector's pre-computed region
// boundaries (spec §4.E "Try", §4.F "Try: decompile body/handlers/else/
// finally using the classification's precomputed boundaries"). The header
// block b is itself the first block of the protected body, so it is
// simulated directly here rather than through decompileRange (which would
// just re-classify it as Try again).
func (d *decompiler) handleTry(id cfg.BlockID, c pattern.Classification) ([]ast.Stmt, cfg.BlockID, error) {
	d.consumed[id] = true
	b := d.g.Blocks[id]
	res, err := sim.Simulate(d.env, b, d.entryStacks[id])
	if err != nil {
		return nil, noBlock, err
	}

	body := append([]ast.Stmt{}, res.Stmts...)
	if next := d.singleSuccessor(b); next >= 0 && next != c.TryBodyEnd {
		rest, err := d.decompileRange(next, c.TryBodyEnd)
		if err != nil {
			return nil, noBlock, err
		}
		body = append(body, rest...)
	}

	var handlers []ast.ExceptHandler
	for _, h := range c.Handlers {
		handler, err := d.decompileHandler(h, c.Merge)
		if err != nil {
			return nil, noBlock, err
		}
		handlers = append(handlers, handler)
	}

	var orelse []ast.Stmt
	if c.HasTryElse {
		if orelse, err = d.decompileRange(c.TryElseStart, c.Merge); err != nil {
			return nil, noBlock, err
		}
	}
	var finallyStmts []ast.Stmt
	if c.HasFinally {
		if finallyStmts, err = d.decompileRange(c.FinallyStart, c.Merge); err != nil {
			return nil, noBlock, err
		}
	}

	t := arena.Alloc[ast.TryStmt](d.arena)
	*t = ast.TryStmt{Body: body, Handlers: handlers, Orelse: orelse, Finally: finallyStmts}
	return []ast.Stmt{t}, c.Merge, nil
}

// decompileHandler decompiles one except clause. The handler's entry stack
// is seeded with sentinel NameExpr placeholders rather than Unknown (spec
// §4.C "HandlerSeed"), so that a `except T as name:` binding's STORE
// resolves to a plain assignment this function can then recognize and
// peel off into the handler's Name field, instead of tripping the
// Expression-purity rule on an Unknown slot (spec §4.D, §7).
func (d *decompiler) decompileHandler(h pattern.HandlerRegion, merge cfg.BlockID) (ast.ExceptHandler, error) {
	d.entryStacks[h.Start] = d.sentinelHandlerSeed(h.Start)
	hb := d.g.Blocks[h.Start]
	res, err := sim.Simulate(d.env, hb, d.entryStacks[h.Start])
	if err != nil {
		return ast.ExceptHandler{}, err
	}
	d.consumed[h.Start] = true

	bodyStart := d.singleSuccessor(hb)
	if trueID, ok := edgeTo(hb, cfg.EdgeCondTrue); ok {
		bodyStart = trueID
	}

	var body []ast.Stmt
	if bodyStart >= 0 {
		if body, err = d.decompileRange(bodyStart, merge); err != nil {
			return ast.ExceptHandler{}, err
		}
	}
	body = append(res.Stmts, body...)

	name := ""
	if len(body) > 0 {
		if assign, ok := body[0].(*ast.AssignStmt); ok && len(assign.Targets) == 1 {
			if ne, ok := assign.Value.(*ast.NameExpr); ok && isHandlerSentinel(ne.Id) {
				if target, ok := assign.Targets[0].(*ast.NameExpr); ok {
					name = target.Id
					body = body[1:]
				}
			}
		}
	}

	return ast.ExceptHandler{Type: res.Condition, Name: name, Body: body, IsStar: h.IsStar}, nil
}

const handlerSentinelPrefix = "\x00exc"

func isHandlerSentinel(id string) bool {
	return len(id) > len(handlerSentinelPrefix) && id[:len(handlerSentinelPrefix)] == handlerSentinelPrefix
}

// sentinelHandlerSeed seeds a handler block's entry stack with synthetic
// names rather than Unknown, purely so that decompileHandler can recognize
// (and strip) the bookkeeping store the "as name" binding produces;
// nothing else ever observes these names (spec §3 "Lifecycle": they live
// only as long as this single handler's simulation and are gone once
// decompileHandler returns).
func (d *decompiler) sentinelHandlerSeed(handlerStart cfg.BlockID) stackvalue.Stack {
	n := 3
	if d.hasLastiForHandler(handlerStart) {
		n = 4
	}
	seed := make(stackvalue.Stack, n)
	for i := range seed {
		e := arena.Alloc[ast.NameExpr](d.arena)
		*e = ast.NameExpr{Id: fmt.Sprintf("%s%d", handlerSentinelPrefix, i)}
		seed[i] = stackvalue.FromExpr(e)
	}
	return seed
}

func (d *decompiler) hasLastiForHandler(handlerStart cfg.BlockID) bool {
	off := d.g.Blocks[handlerStart].StartOffset
	for _, r := range d.code.ExceptionRegions {
		if r.Handler == off {
			return r.HasLasti
		}
	}
	return false
}

// handleWith splits the header block at its BEFORE_WITH/SETUP_WITH
// instruction so the context-manager expression can be captured before a
// trailing bare POP_TOP (the no-`as` shape) would otherwise discard it
// with no trace (spec §4.F "With"). The two halves share the header
// block's own successor edges; only Insns differ.
func (d *decompiler) handleWith(id cfg.BlockID, c pattern.Classification) ([]ast.Stmt, cfg.BlockID, error) {
	d.consumed[id] = true
	b := d.g.Blocks[id]

	split := -1
	for i, in := range b.Insns {
		if in.Opcode == "BEFORE_WITH" || in.Opcode == "SETUP_WITH" {
			split = i
			break
		}
	}
	var ctxExpr ast.Expr
	var prelude, tail []ast.Stmt
	if split >= 0 {
		setup := &cfg.Block{Insns: b.Insns[:split+1]}
		res1, err := sim.Simulate(d.env, setup, d.entryStacks[id])
		if err != nil {
			return nil, noBlock, err
		}
		prelude = res1.Stmts
		if len(res1.Exit) > 0 {
			ctxExpr, _ = res1.Exit[len(res1.Exit)-1].AsExpr()
		}
		rest := &cfg.Block{Insns: b.Insns[split+1:]}
		res2, err := sim.Simulate(d.env, rest, res1.Exit)
		if err != nil {
			return nil, noBlock, err
		}
		tail = res2.Stmts
	} else {
		res, err := sim.Simulate(d.env, b, d.entryStacks[id])
		if err != nil {
			return nil, noBlock, err
		}
		prelude = res.Stmts
	}

	var asTarget ast.Expr
	if len(tail) > 0 {
		if assign, ok := tail[0].(*ast.AssignStmt); ok && len(assign.Targets) == 1 {
			asTarget = assign.Targets[0]
			tail = tail[1:]
		}
	}

	merge, _ := d.dom.PostDominator(id)
	var rest []ast.Stmt
	if next := d.singleSuccessor(b); next >= 0 {
		r, err := d.decompileRange(next, merge)
		if err != nil {
			return nil, noBlock, err
		}
		rest = r
	}

	w := arena.Alloc[ast.WithStmt](d.arena)
	*w = ast.WithStmt{Items: []ast.WithItem{{Context: ctxExpr, As: asTarget}}, Body: append(tail, rest...)}
	out := append(append([]ast.Stmt{}, prelude...), w)
	return out, merge, nil
}
