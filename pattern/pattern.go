// Package pattern implements Component E (spec §4.E): classifying the
// region rooted at a block as one of the fixed structured patterns using
// CFG topology (edge kinds already computed by cfg.BuildCFG), the
// exception-region table, and a shallow opcode peek. It has no direct
// analogue in the teacher repo, which only ever compiles source down to a
// CFG and never reconstructs one back into source (spec's DESIGN.md
// grounding note); its shape instead mirrors nenuphar's own `block`/`loop`
// types (lang/compiler/compiler.go: jmp/cjmp fields, loops []loop with
// break_/continue_ targets) read in reverse.
package pattern

import (
	"sort"

	"github.com/dolthub/swiss"

	"github.com/mna/depyc/cfg"
	"github.com/mna/depyc/ir"
)

// Kind is the fixed set of structured patterns spec §4.E classifies a
// block as the head of.
type Kind uint8

const (
	Sequential Kind = iota
	If
	Ternary
	While
	For
	Try
	With
	Match
	BoolShortCircuit
)

func (k Kind) String() string {
	switch k {
	case Sequential:
		return "sequential"
	case If:
		return "if"
	case Ternary:
		return "ternary"
	case While:
		return "while"
	case For:
		return "for"
	case Try:
		return "try"
	case With:
		return "with"
	case Match:
		return "match"
	case BoolShortCircuit:
		return "boolop"
	default:
		return "unknown"
	}
}

// HandlerRegion is one except clause discovered for a Try classification.
type HandlerRegion struct {
	Start  cfg.BlockID
	IsStar bool
}

// Classification is the detector's authoritative verdict for the region
// rooted at one block (spec §4.E); the structured decompiler (§4.F) never
// re-detects, it only dispatches on these fields.
type Classification struct {
	Kind Kind

	// If / Ternary
	ThenStart, ElseStart cfg.BlockID
	Merge                cfg.BlockID
	HasElse              bool

	// While / For
	BodyStart   cfg.BlockID
	Exit        cfg.BlockID
	HasOrelse   bool
	OrelseStart cfg.BlockID

	// Try
	TryBodyEnd   cfg.BlockID
	Handlers     []HandlerRegion
	HasTryElse   bool
	TryElseStart cfg.BlockID
	HasFinally   bool
	FinallyStart cfg.BlockID

	// With
	WithBodyStart cfg.BlockID

	// Match: case-region starts, in source order (wildcard last, spec §8 S6).
	Cases []cfg.BlockID
}

// Detector classifies blocks and caches the result per block id (spec §9
// "Memoization"), using a swiss.Map the same way the teacher's own
// lang/machine/map.go wraps dolthub/swiss for a point-lookup-heavy table.
type Detector struct {
	g       *cfg.Graph
	dom     *cfg.DomInfo
	table   ir.OpcodeTable
	regions []ir.ExceptionRegion
	cache   *swiss.Map[cfg.BlockID, Classification]
}

// New builds a Detector over g. regions is the full exception-region list
// for the code object (spec §4.E "Try... detected via exception table").
func New(g *cfg.Graph, dom *cfg.DomInfo, table ir.OpcodeTable, regions []ir.ExceptionRegion) *Detector {
	return &Detector{
		g: g, dom: dom, table: table, regions: regions,
		cache: swiss.NewMap[cfg.BlockID, Classification](uint32(len(g.Blocks))),
	}
}

// Classify returns the (cached) classification for block id.
func (d *Detector) Classify(id cfg.BlockID) Classification {
	if c, ok := d.cache.Get(id); ok {
		return c
	}
	c := d.classify(id)
	d.cache.Put(id, c)
	return c
}

func (d *Detector) classify(id cfg.BlockID) Classification {
	b := d.g.Blocks[id]

	if hs := d.tryRegionsStartingAt(b.StartOffset); len(hs) > 0 {
		return d.classifyTry(b, hs)
	}
	if d.blockContainsAny(b, "BEFORE_WITH", "SETUP_WITH") {
		return d.classifyWith(b)
	}
	if d.blockContainsAny(b, "MATCH_SEQUENCE", "MATCH_MAPPING", "MATCH_CLASS", "MATCH_KEYS") {
		return d.classifyMatch(b)
	}
	if b.IsLoopHeader {
		if d.blockContainsAny(b, "FOR_ITER") {
			return d.classifyFor(b)
		}
		return d.classifyWhile(b)
	}

	lastInfo, ok := d.lastInfo(b)
	if !ok {
		return Classification{Kind: Sequential}
	}
	switch {
	case lastInfo.Family == ir.FamilyBoolJump:
		return Classification{Kind: BoolShortCircuit}
	case lastInfo.IsJump && lastInfo.IsConditional:
		return d.classifyIfOrTernary(b)
	default:
		return Classification{Kind: Sequential}
	}
}

func (d *Detector) lastInfo(b *cfg.Block) (ir.OpInfo, bool) {
	if len(b.Insns) == 0 {
		return ir.OpInfo{}, false
	}
	last := b.Insns[len(b.Insns)-1]
	return d.table.ByName(last.Opcode)
}

func (d *Detector) blockContainsAny(b *cfg.Block, names ...string) bool {
	for _, in := range b.Insns {
		for _, n := range names {
			if in.Opcode == n {
				return true
			}
		}
	}
	return false
}

// tryRegionsStartingAt returns every exception region whose protected
// range begins exactly at offset and whose handler is a genuine except
// clause, in the order they appear in the code object's region list.
// Regions wired purely for cleanup bookkeeping never classify as Try (spec
// §4.E "Try"): a with-statement's __exit__ dispatch (handler entered at
// WITH_EXCEPT_START) and the inline-comprehension save/restore epilogue
// (a SWAP+STORE+RERAISE handler with no exception-match check).
func (d *Detector) tryRegionsStartingAt(offset uint32) []ir.ExceptionRegion {
	var out []ir.ExceptionRegion
	for _, r := range d.regions {
		if r.Start != offset {
			continue
		}
		if hb, ok := d.g.BlockContaining(r.Handler); ok && d.isCleanupHandler(hb) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (d *Detector) isCleanupHandler(hb *cfg.Block) bool {
	if d.blockContainsAny(hb, "WITH_EXCEPT_START") {
		return true
	}
	if d.blockContainsAny(hb, "CHECK_EXC_MATCH", "CHECK_EG_MATCH") {
		return false
	}
	return d.blockContainsAny(hb, "SWAP") && d.blockContainsAny(hb, "RERAISE")
}

func (d *Detector) edgeTo(b *cfg.Block, kind cfg.EdgeKind) (cfg.BlockID, bool) {
	for _, e := range b.Succs {
		if e.Kind == kind {
			return e.To, true
		}
	}
	return 0, false
}

func (d *Detector) classifyIfOrTernary(b *cfg.Block) Classification {
	thenID, hasThen := d.edgeTo(b, cfg.EdgeCondTrue)
	elseID, hasElse := d.edgeTo(b, cfg.EdgeCondFalse)
	merge, _ := d.dom.PostDominator(b.ID)

	kind := If
	if hasThen && hasElse && d.looksPure(thenID, merge) && d.looksPure(elseID, merge) {
		kind = Ternary
	}
	return Classification{
		Kind: kind, ThenStart: thenID, ElseStart: elseID, Merge: merge, HasElse: hasElse,
	}
}

// looksPure reports whether the single block at id falls straight through
// to merge without emitting any statement-producing opcode, the structural
// signature of a ternary branch rather than an if-branch (spec §4.E
// "Ternary... no statements").
func (d *Detector) looksPure(id, merge cfg.BlockID) bool {
	if id == merge {
		return true
	}
	b := d.g.Blocks[id]
	if len(b.Succs) != 1 || b.Succs[0].Kind != cfg.EdgeNormal || b.Succs[0].To != merge {
		return false
	}
	for _, in := range b.Insns {
		info, ok := d.table.ByName(in.Opcode)
		if !ok {
			return false
		}
		switch info.Family {
		case ir.FamilyReturn, ir.FamilyRaise, ir.FamilyExceptionControl:
			return false
		}
		if len(in.Opcode) >= 6 && (in.Opcode[:6] == "STORE_" || in.Opcode[:6] == "DELETE") {
			return false
		}
	}
	return true
}

func (d *Detector) classifyWhile(b *cfg.Block) Classification {
	trueID, hasTrue := d.edgeTo(b, cfg.EdgeCondTrue)
	falseID, hasFalse := d.edgeTo(b, cfg.EdgeCondFalse)
	body, exit := d.splitLoopExits(b, trueID, hasTrue, falseID, hasFalse)
	return d.finishLoop(b, body, exit)
}

func (d *Detector) classifyFor(b *cfg.Block) Classification {
	// FOR_ITER's iteration edge is cond_true (fallthrough into the body);
	// its exhaustion edge is cond_false (spec §4.A "Edges").
	body, _ := d.edgeTo(b, cfg.EdgeCondTrue)
	exit, _ := d.edgeTo(b, cfg.EdgeCondFalse)
	return d.finishLoop(b, body, exit)
}

func (d *Detector) splitLoopExits(b *cfg.Block, trueID cfg.BlockID, hasTrue bool, falseID cfg.BlockID, hasFalse bool) (body, exit cfg.BlockID) {
	loopBody := d.dom.NaturalLoops()[b.ID]
	if hasTrue && loopBody[trueID] {
		return trueID, falseID
	}
	if hasFalse && loopBody[falseID] {
		return falseID, trueID
	}
	return trueID, falseID
}

// finishLoop derives the else-clause boundary using the heuristic that
// break jumps straight to the loop's overall post-dominator while a
// natural exit (no break taken) first runs any while/for-else statements,
// which live in the span between exit and that post-dominator (spec §4.F
// "For": "else-clause is the post-loop block iff reachable only on
// exhaustion").
func (d *Detector) finishLoop(b *cfg.Block, body, exit cfg.BlockID) Classification {
	after, ok := d.dom.PostDominator(b.ID)
	c := Classification{Kind: While, BodyStart: body, Exit: exit}
	if d.blockContainsAny(b, "FOR_ITER") {
		c.Kind = For
	}
	if !ok {
		// Every path out of the loop terminates; the structural exit edge
		// is all there is.
		return c
	}
	if exit == after {
		c.Exit = after
		return c
	}
	c.HasOrelse = true
	c.OrelseStart = exit
	c.Exit = after
	return c
}

func (d *Detector) classifyTry(b *cfg.Block, regionsHere []ir.ExceptionRegion) Classification {
	sort.Slice(regionsHere, func(i, j int) bool { return regionsHere[i].End < regionsHere[j].End })
	minEnd := regionsHere[0].End

	var handlers []HandlerRegion
	var finallyRegion *ir.ExceptionRegion
	for i, r := range regionsHere {
		if r.End == minEnd {
			hid, ok := d.g.BlockContaining(r.Handler)
			if !ok {
				continue
			}
			handlers = append(handlers, HandlerRegion{Start: hid.ID, IsStar: d.blockContainsAny(hid, "CHECK_EG_MATCH")})
		} else if finallyRegion == nil || r.End > finallyRegion.End {
			finallyRegion = &regionsHere[i]
		}
	}

	c := Classification{Kind: Try, Handlers: handlers}
	if bodyEnd, ok := d.g.BlockContaining(minEnd); ok {
		c.TryBodyEnd = bodyEnd.ID
	}
	if finallyRegion != nil {
		if fb, ok := d.g.BlockContaining(finallyRegion.Handler); ok {
			c.HasFinally = true
			c.FinallyStart = fb.ID
		}
	}

	// The statement's merge point is where the protected body's normal
	// exit resumes: the block the trailing jump of the post-range block
	// targets. Post-dominators are unreliable here since handler paths may
	// reraise and never rejoin; the body's own continuation edge is
	// authoritative, with postdom as the fallback for straight-line
	// fallthrough bodies.
	merge, hasMerge := d.edgeTo(d.g.Blocks[c.TryBodyEnd], cfg.EdgeNormal)
	if !hasMerge {
		merge, hasMerge = d.dom.PostDominator(b.ID)
	}
	// Else-block is the try-body's normal exit iff unreachable from any
	// handler (spec §4.E "Try"): detected here as "there's code between
	// TryBodyEnd and the statement's overall merge point", independent of
	// whether a finally also wraps the whole thing. A finally clause is
	// decompiled once, starting at merge, rather than re-walked at its
	// duplicated exceptional-path copy anchored at FinallyStart.
	if hasMerge {
		c.Merge = merge
		if c.TryBodyEnd != merge {
			c.HasTryElse = true
			c.TryElseStart = c.TryBodyEnd
		}
	}
	return c
}

func (d *Detector) classifyWith(b *cfg.Block) Classification {
	body, _ := d.edgeTo(b, cfg.EdgeNormal)
	if body == 0 && len(b.Succs) > 0 {
		body = b.Succs[0].To
	}
	return Classification{Kind: With, WithBodyStart: body}
}

// classifyMatch walks the chain of MATCH_*-pattern blocks reachable from b
// via cond_false ("this case didn't match, try the next") edges, collecting
// each case body's entry block (cond_true, "this case matched"); the last
// case in the chain (typically a wildcard) has no cond_false successor
// (spec §8 S6: wildcard case last).
func (d *Detector) classifyMatch(b *cfg.Block) Classification {
	var cases []cfg.BlockID
	cur := b.ID
	seen := map[cfg.BlockID]bool{}
	for !seen[cur] {
		seen[cur] = true
		blk := d.g.Blocks[cur]
		body, hasBody := d.edgeTo(blk, cfg.EdgeCondTrue)
		if !hasBody {
			// No further test: this block IS the final (wildcard) case's
			// body, unless it is the match head itself.
			if cur != b.ID {
				cases = append(cases, cur)
			}
			break
		}
		cases = append(cases, body)
		next, ok := d.edgeTo(blk, cfg.EdgeCondFalse)
		if !ok {
			break
		}
		cur = next
	}
	return Classification{Kind: Match, Cases: cases}
}
