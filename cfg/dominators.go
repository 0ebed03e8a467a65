package cfg

// DomInfo holds the dominator/post-dominator/loop analysis for a Graph
// (spec §3 "Dominator data", §4.B). Computed once per Graph and treated as
// immutable afterward, matching the teacher's style of a single forward
// analysis pass producing a result struct consumed read-only downstream
// (lang/compiler/compiler.go's single-pass `visit` closure, generalized
// here into a named, reusable analysis instead of inline compiler state).
type DomInfo struct {
	g *Graph

	// IDom[b] is b's immediate dominator; IDom[entry] == entry.
	IDom []BlockID
	// IPDom[b] is b's immediate post-dominator; an exit block (no
	// successors) maps to itself. -1 if b cannot reach any exit, or if its
	// paths reach different exits and so meet only at the virtual exit.
	IPDom []BlockID

	// LoopBodies maps a loop header's BlockID to the set of blocks in its
	// natural loop (including the header itself).
	LoopBodies map[BlockID]map[BlockID]bool
	// EnclosingLoop[b] is the innermost loop header containing b, or -1.
	EnclosingLoop []BlockID
}

const noBlock BlockID = -1

// Analyze computes dominators, post-dominators, natural loops and the
// enclosing-loop map for g (spec §4.B). It is deterministic given the same
// graph and runs the classic iterative dataflow over reverse post-order
// (spec §4.B "Contract").
func Analyze(g *Graph) *DomInfo {
	d := &DomInfo{g: g}
	rpo := reversePostOrder(g)
	d.IDom = computeDominators(g, rpo, false)
	d.IPDom = computePostDominators(g, rpo)
	d.LoopBodies, d.EnclosingLoop = naturalLoops(g, d.IDom)
	return d
}

// Dominators returns the immediate-dominator array computed by Analyze.
func (d *DomInfo) Dominators() []BlockID { return d.IDom }

// PostDominators returns the immediate-post-dominator array computed by
// Analyze.
func (d *DomInfo) PostDominators() []BlockID { return d.IPDom }

// NaturalLoops returns, for every loop header, the set of blocks in its
// natural loop body (including the header).
func (d *DomInfo) NaturalLoops() map[BlockID]map[BlockID]bool { return d.LoopBodies }

// Dominates reports whether a dominates b (a == b counts as dominating).
func (d *DomInfo) Dominates(a, b BlockID) bool {
	for b != noBlock {
		if b == a {
			return true
		}
		if d.IDom[b] == b {
			break
		}
		b = d.IDom[b]
	}
	return a == b
}

// PostDominator returns b's immediate post-dominator, used by the pattern
// detector to choose merge points deterministically (spec §4.B, §4.E).
func (d *DomInfo) PostDominator(b BlockID) (BlockID, bool) {
	pd := d.IPDom[b]
	return pd, pd != noBlock
}

func reversePostOrder(g *Graph) []BlockID {
	order := make([]BlockID, 0, len(g.Blocks))
	visited := make([]bool, len(g.Blocks))
	var visit func(BlockID)
	visit = func(b BlockID) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, e := range g.Blocks[b].Succs {
			visit(e.To)
		}
		order = append(order, b)
	}
	visit(g.Entry().ID)
	// reverse in place: post-order -> reverse post-order
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// computeDominators implements the Cooper-Harvey-Kennedy iterative
// intersection algorithm over Preds. When reverse is true it reads Succs
// instead, still rooted at rpo[0] and with no virtual exit; Analyze only
// calls it with false and takes post-dominators from computePostDominators.
func computeDominators(g *Graph, rpo []BlockID, reverse bool) []BlockID {
	idom := make([]BlockID, len(g.Blocks))
	for i := range idom {
		idom[i] = noBlock
	}
	entry := rpo[0]
	idom[entry] = entry

	rpoNum := make([]int, len(g.Blocks))
	for i, b := range rpo {
		rpoNum[b] = i
	}

	preds := func(b BlockID) []Edge {
		if reverse {
			return g.Blocks[b].Succs
		}
		return g.Blocks[b].Preds
	}

	intersect := func(a, b BlockID) BlockID {
		for a != b {
			for rpoNum[a] > rpoNum[b] {
				a = idom[a]
			}
			for rpoNum[b] > rpoNum[a] {
				b = idom[b]
			}
		}
		return a
	}

	changed := true
	for changed {
		changed = false
		for _, b := range rpo {
			if b == entry {
				continue
			}
			var newIdom BlockID = noBlock
			for _, e := range preds(b) {
				if idom[e.To] == noBlock {
					continue
				}
				if newIdom == noBlock {
					newIdom = e.To
					continue
				}
				newIdom = intersect(newIdom, e.To)
			}
			if newIdom != noBlock && idom[b] != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}
	return idom
}

func computePostDominators(g *Graph, rpo []BlockID) []BlockID {
	// Reverse graph reachability: reverse-post-order of the forward graph is
	// an acceptable (if imperfect) processing order for the backward pass,
	// since the entry block's RPO already orders blocks to make Preds known
	// before use in the dominance-intersection sense used here.
	exits := make([]BlockID, 0)
	for _, b := range g.Blocks {
		if len(b.Succs) == 0 {
			exits = append(exits, b.ID)
		}
	}
	ipdom := make([]BlockID, len(g.Blocks))
	for i := range ipdom {
		ipdom[i] = noBlock
	}
	if len(exits) == 0 {
		return ipdom
	}

	// Build a reverse-order traversal rooted at every exit block, using the
	// same RPO vector as a stable total order for the intersection
	// heuristic (spec §4.B runs amortized O((V+E)*alpha(V)); a multi-root
	// virtual exit is modeled by seeding every exit block's ipdom to itself).
	order := make([]BlockID, len(rpo))
	for i, b := range rpo {
		order[len(rpo)-1-i] = b
	}
	rpoNum := make([]int, len(g.Blocks))
	for i, b := range order {
		rpoNum[b] = i
	}

	for _, e := range exits {
		ipdom[e] = e
	}

	// intersect walks both post-dominator chains toward the virtual exit.
	// Chains rooted at distinct exit blocks never meet (each exit
	// post-dominates only itself), so a chain hitting its own root while
	// the walk is still unresolved means the two arguments only converge
	// at the virtual exit: reported as noBlock.
	intersect := func(a, b BlockID) BlockID {
		for a != b {
			for rpoNum[a] > rpoNum[b] {
				next := ipdom[a]
				if next == noBlock || next == a {
					return noBlock
				}
				a = next
			}
			for rpoNum[b] > rpoNum[a] {
				next := ipdom[b]
				if next == noBlock || next == b {
					return noBlock
				}
				b = next
			}
		}
		return a
	}

	changed := true
	for changed {
		changed = false
		for _, b := range order {
			isExit := false
			for _, e := range exits {
				if e == b {
					isExit = true
					break
				}
			}
			if isExit {
				continue
			}
			var newIPDom BlockID = noBlock
			dead := false
			for _, e := range g.Blocks[b].Succs {
				if dead || ipdom[e.To] == noBlock {
					continue
				}
				if newIPDom == noBlock {
					newIPDom = e.To
					continue
				}
				newIPDom = intersect(newIPDom, e.To)
				if newIPDom == noBlock {
					// Successors only meet at the virtual exit; b has no
					// real post-dominator.
					dead = true
				}
			}
			if dead {
				// b becomes a chain root of its own, like an exit block, so a
				// predecessor reaching b is seen to meet its other successors
				// only at the virtual exit too.
				newIPDom = b
			}
			if newIPDom != noBlock && ipdom[b] != newIPDom {
				ipdom[b] = newIPDom
				changed = true
			}
		}
	}
	for _, b := range order {
		if ipdom[b] == b && len(g.Blocks[b].Succs) > 0 {
			ipdom[b] = noBlock
		}
	}
	return ipdom
}

// naturalLoops derives, for every loop_back edge, the header (the edge's
// target) and the body (every block that can reach the back-edge's source
// without passing through the header), per spec §4.B. enclosingLoop[b] is
// the innermost header whose body contains b, found by walking outward
// through nested loop bodies.
func naturalLoops(g *Graph, idom []BlockID) (map[BlockID]map[BlockID]bool, []BlockID) {
	bodies := map[BlockID]map[BlockID]bool{}
	for _, b := range g.Blocks {
		for _, e := range b.Succs {
			if e.Kind != EdgeLoopBack {
				continue
			}
			header := e.To
			body := bodies[header]
			if body == nil {
				body = map[BlockID]bool{header: true}
			}
			if body[b.ID] {
				continue
			}
			// Backward BFS from the back-edge source, stopping at header.
			stack := []BlockID{b.ID}
			body[b.ID] = true
			for len(stack) > 0 {
				cur := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				for _, pe := range g.Blocks[cur].Preds {
					if !body[pe.To] {
						body[pe.To] = true
						stack = append(stack, pe.To)
					}
				}
			}
			bodies[header] = body
		}
	}

	enclosing := make([]BlockID, len(g.Blocks))
	for i := range enclosing {
		enclosing[i] = noBlock
	}
	// Innermost-first: a header nested inside another loop's body should
	// not overwrite a tighter assignment, so process loops from smallest
	// body to largest.
	headers := make([]BlockID, 0, len(bodies))
	for h := range bodies {
		headers = append(headers, h)
	}
	for i := 0; i < len(headers); i++ {
		for j := i + 1; j < len(headers); j++ {
			if len(bodies[headers[j]]) < len(bodies[headers[i]]) {
				headers[i], headers[j] = headers[j], headers[i]
			}
		}
	}
	for _, h := range headers {
		for b := range bodies[h] {
			if enclosing[b] == noBlock {
				enclosing[b] = h
			}
		}
	}
	return bodies, enclosing
}
