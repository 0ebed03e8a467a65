// Package decompile implements the Structured Decompiler of spec §4.F
// (Component F): the traversal that consumes the CFG pattern-by-pattern,
// calls the simulator to harvest expressions, recursively decompiles
// nested regions, and emits statements. It is grounded on the teacher's
// own block-visiting traversal shape (lang/compiler/compiler.go's
// `fcomp.stmts`, which walks an AST down into blocks); this package walks
// the inverse direction, consuming a block graph and producing statements.
package decompile

import (
	"github.com/mna/depyc/arena"
	"github.com/mna/depyc/ast"
	"github.com/mna/depyc/cfg"
	"github.com/mna/depyc/ir"
	"github.com/mna/depyc/pattern"
	"github.com/mna/depyc/pyerr"
	"github.com/mna/depyc/rewrite"
	"github.com/mna/depyc/sim"
	"github.com/mna/depyc/stackvalue"
	"github.com/mna/depyc/trace"
)

// noBlock is the decompiler-local sentinel for "no further block" (spec §9
// "Cyclic graphs": BlockId = u32 into a vector, so -1 is the natural
// out-of-band value).
const noBlock cfg.BlockID = -1

// defaultMaxDepth bounds nested-code-object recursion (spec §3 "the only
// tunables... maximum recursion depth for nested code objects"); 64 is far
// beyond any realistic function/class nesting depth and exists purely as a
// backstop against a malformed container describing a self-referential
// code-object graph.
const defaultMaxDepth = 64

// Options configures one top-level call to Decompile (spec §4.H "exposes
// to callers: decompile(code) -> AST", §1.1 "the only tunables... are
// explicit fields on decompile.Options").
type Options struct {
	// MaxDepth caps nested-code-object recursion; <= 0 selects
	// defaultMaxDepth.
	MaxDepth int
	// Trace receives structured per-block/per-pass events; nil is
	// equivalent to trace.Nop (spec §6 "disabled by default").
	Trace trace.Sink
}

func (o Options) maxDepth() int {
	if o.MaxDepth <= 0 {
		return defaultMaxDepth
	}
	return o.MaxDepth
}

func (o Options) sink() trace.Sink {
	if o.Trace == nil {
		return trace.Nop
	}
	return o.Trace
}

// Decompile is the core's single public entry point (spec §4.H): it
// decodes code's own block structure, recursively decompiles any nested
// function/class/comprehension code objects it defines, and returns a
// Module wrapping the fully rewritten (spec §4.G) statement list.
func Decompile(code *ir.CodeObject, opts Options) (*ast.Module, error) {
	body, err := decompileCode(code, code.IsClassBody, opts, 0, false)
	if err != nil {
		return nil, err
	}
	return &ast.Module{Name: code.Name, Body: body}, nil
}

// loopCtx records one active loop's header and exit block, consulted by
// decompileRange to resolve break/continue without ever re-deriving them
// from block-id heuristics (spec §4.F "Break/continue... resolved by the
// enclosing-loop map from §4.B").
type loopCtx struct {
	header, exit cfg.BlockID
}

// decompiler holds everything one code object's decompilation needs:
// the CFG and its analyses, the pattern detector, the converged entry
// stacks, and the bookkeeping (consumed bitset, active loop stack) the
// traversal mutates as it goes.
type decompiler struct {
	code  *ir.CodeObject
	table ir.OpcodeTable
	g     *cfg.Graph
	dom   *cfg.DomInfo
	pd    *pattern.Detector

	arena       *arena.Arena
	env         *sim.Env
	entryStacks map[cfg.BlockID]stackvalue.Stack
	consumed    map[cfg.BlockID]bool
	loopStack   []loopCtx

	opts  Options
	depth int
}

// decompileCode runs components A-G (spec §2 data flow) for one code
// object. requirePass forces an explicit `pass` when the resulting body
// would otherwise be empty (spec §8 boundary behavior 13, "in a
// class/function"); the outermost module call passes false since an empty
// module body is valid as-is (spec §8 boundary behavior 11).
func decompileCode(code *ir.CodeObject, classBody bool, opts Options, depth int, requirePass bool) ([]ast.Stmt, error) {
	if depth > opts.maxDepth() {
		return nil, pyerr.NewMalformedBytecode(code.Name, 0, "max nested-code-object recursion depth exceeded")
	}
	if code.Code == nil || len(code.Code.Instructions) == 0 {
		// Empty bytecode is a valid empty body (spec §8 boundary behavior 11).
		if requirePass {
			return []ast.Stmt{&ast.PassStmt{}}, nil
		}
		return nil, nil
	}

	table := ir.Table(code.Version)
	stream := despecializeStream(code.Code, code.Version)
	g, err := cfg.BuildCFG(code.Name, stream, table, code.ExceptionRegions)
	if err != nil {
		return nil, err
	}
	dom := cfg.Analyze(g)
	pd := pattern.New(g, dom, table, code.ExceptionRegions)
	art := arena.New()

	d := &decompiler{
		code: code, table: table, g: g, dom: dom, pd: pd,
		arena: art, consumed: map[cfg.BlockID]bool{},
		opts: opts, depth: depth,
	}
	d.env = &sim.Env{
		Code: code, Table: table, InClassBody: classBody, Arena: art,
		Recurse:              d.recurseChild,
		RecurseComprehension: d.recurseComprehension,
	}

	handlerSeeds := map[cfg.BlockID]stackvalue.Stack{}
	for _, r := range code.ExceptionRegions {
		if hb, ok := g.BlockContaining(r.Handler); ok {
			handlerSeeds[hb.ID] = stackvalue.HandlerSeed(r.HasLasti)
		}
	}
	entry, err := stackvalue.Converge(code.Name, g, handlerSeeds, sim.Flow{Env: d.env})
	if err != nil {
		return nil, err
	}
	d.entryStacks = entry

	stmts, err := d.decompileRange(g.Entry().ID, noBlock)
	if err != nil {
		return nil, err
	}

	stmts = rewrite.Run(stmts, rewrite.Options{ClassBody: classBody, ClassName: code.Name})
	if requirePass && len(stmts) == 0 {
		p := arena.Alloc[ast.PassStmt](art)
		stmts = []ast.Stmt{p}
	}
	return stmts, nil
}

// recurseChild implements sim.Env.Recurse: it is called once a
// function-creation sequence reaches its STORE site, with the owning
// CodeObject's matching child (spec §4.F "nested scope recursion").
func (d *decompiler) recurseChild(child *ir.CodeObject, classBody bool) ([]ast.Stmt, error) {
	return decompileCode(child, classBody, d.opts, d.depth+1, true)
}

// recurseComprehension implements sim.Env.RecurseComprehension for the
// classic (non-inline) comprehension shape (spec §4.D "comprehension
// open/close").
func (d *decompiler) recurseComprehension(child *ir.CodeObject, outerIter ast.Expr) (ast.Expr, error) {
	return d.decompileComprehension(child, outerIter)
}

// despecializeStream maps every instruction's opcode through
// ir.Despecialize (spec §6), producing a stream of canonical opcode names
// the rest of the core dispatches on uniformly regardless of which 3.11+
// adaptive specialization the container happened to freeze in place.
func despecializeStream(s *ir.Stream, v ir.Version) *ir.Stream {
	if s == nil {
		return ir.NewStream(v, nil)
	}
	out := make([]ir.Instruction, len(s.Instructions))
	for i, in := range s.Instructions {
		in.Opcode = ir.Despecialize(in.Opcode, v)
		out[i] = in
	}
	return ir.NewStream(v, out)
}

func (d *decompiler) currentLoop() (loopCtx, bool) {
	if len(d.loopStack) == 0 {
		return loopCtx{}, false
	}
	return d.loopStack[len(d.loopStack)-1], true
}

func (d *decompiler) newContinue() ast.Stmt { return arena.Alloc[ast.ContinueStmt](d.arena) }
func (d *decompiler) newBreak() ast.Stmt    { return arena.Alloc[ast.BreakStmt](d.arena) }

// edgeTo returns the successor of b along the first edge of the given
// kind (spec §3 "conditional jumps produce exactly two outgoing edges").
func edgeTo(b *cfg.Block, kind cfg.EdgeKind) (cfg.BlockID, bool) {
	for _, e := range b.Succs {
		if e.Kind == kind {
			return e.To, true
		}
	}
	return 0, false
}

// singleSuccessor returns b's EdgeNormal successor, or noBlock when it has
// none (a terminal block, or one whose only successor is a loop_back edge
// handled separately by decompileRange's break/continue resolution).
func (d *decompiler) singleSuccessor(b *cfg.Block) cfg.BlockID {
	if id, ok := edgeTo(b, cfg.EdgeNormal); ok {
		return id
	}
	return noBlock
}

func (d *decompiler) edgeTo(b *cfg.Block, kind cfg.EdgeKind) (cfg.BlockID, bool) {
	return edgeTo(b, kind)
}

// negate wraps e in a boolean negation, collapsing a double negation back
// to the bare operand instead of nesting (spec §4.F "invert condition iff
// then-range is empty").
func (d *decompiler) negate(e ast.Expr) ast.Expr {
	if u, ok := e.(*ast.UnaryOpExpr); ok && u.Op == "not" {
		return u.Operand
	}
	n := arena.Alloc[ast.UnaryOpExpr](d.arena)
	*n = ast.UnaryOpExpr{Op: "not", Operand: e}
	return n
}

// simulateSingleExpr simulates the single-block branch at id, which the
// pattern detector has already verified falls straight through to merge
// with no statements (spec §4.E "Ternary"), and returns the one pure
// expression value it leaves on top of stack.
func (d *decompiler) simulateSingleExpr(id, merge cfg.BlockID) (ast.Expr, error) {
	if id == merge {
		// A degenerate zero-length branch: the shared value was already on
		// the stack before the branch point, so there's nothing further to
		// contribute here (best-effort: callers treat a nil return as "use
		// whatever's already converged at merge").
		return nil, nil
	}
	b := d.g.Blocks[id]
	entry := d.entryStacks[id]
	res, err := sim.Simulate(d.env, b, entry)
	if err != nil {
		return nil, err
	}
	d.consumed[id] = true
	if len(res.Exit) == 0 {
		return nil, pyerr.NewNotAnExpression(d.code.Name, b.EndOffset, "ternary-branch")
	}
	top := res.Exit[len(res.Exit)-1]
	e, ok := top.AsExpr()
	if !ok {
		return nil, pyerr.NewNotAnExpression(d.code.Name, b.EndOffset, "ternary-branch")
	}
	return e, nil
}

// overrideTop replaces the top slot of the (already-converged) entry
// stack at id with v, used when a ternary or boolean short-circuit
// expression supersedes the plain dataflow-merged value the worklist
// computed for that slot (spec §4.C "Entry stacks are immutable once
// converged" describes the steady state; constructing the merge value
// itself is this package's job, per §4.F "push onto merge block's entry
// stack").
func (d *decompiler) overrideTop(id cfg.BlockID, v ast.Expr) {
	cur := d.entryStacks[id]
	if len(cur) == 0 {
		return
	}
	d.overrideSlot(id, len(cur)-1, v)
}

// overrideSlot replaces slot idx of the converged entry stack at id with v;
// used by overrideTop and by the inline-comprehension handler, which must
// substitute the finished comprehension expression for the container-
// accumulator slot it replaces (spec §4.D "comprehension open/close").
func (d *decompiler) overrideSlot(id cfg.BlockID, idx int, v ast.Expr) {
	cur := d.entryStacks[id]
	if idx < 0 || idx >= len(cur) {
		return
	}
	next := append(stackvalue.Stack{}, cur...)
	next[idx] = stackvalue.FromExpr(v)
	d.entryStacks[id] = next
}
