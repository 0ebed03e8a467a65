package decompile

import (
	"github.com/mna/depyc/arena"
	"github.com/mna/depyc/ast"
	"github.com/mna/depyc/cfg"
	"github.com/mna/depyc/ir"
	"github.com/mna/depyc/sim"
	"github.com/mna/depyc/stackvalue"
)

// decompileComprehension handles the classic (non-inline) comprehension
// shape (spec §4.D "comprehension open/close"): child is a nested code
// object called once with outerIter as its sole argument. Its own CFG is
// simple enough (an optional builder-prelude block, a chain of FOR_ITER
// headers, optional `if` filters, and a terminal append/yield) that it is
// walked by hand here, bypassing the general stackvalue.Converge worklist:
// that worklist's merge policy collapses distinct non-expression slots
// meeting at a loop back-edge to Unknown (spec §4.C), which would destroy
// the ContainerLiteral accumulator a list/set/dict comprehension builds
// across iterations. Walking by hand keeps the same *ContainerLiteral
// pointer alive across the whole loop instead. AST nodes are committed to
// the parent's arena directly, the structural-copy shortcut spec §3's
// lifecycle note allows when the child never outlives the fold-in.
func (d *decompiler) decompileComprehension(child *ir.CodeObject, outerIter ast.Expr) (ast.Expr, error) {
	table := ir.Table(child.Version)
	stream := despecializeStream(child.Code, child.Version)
	g, err := cfg.BuildCFG(child.Name, stream, table, child.ExceptionRegions)
	if err != nil {
		return nil, err
	}
	env := &sim.Env{Code: child, Table: table, Arena: d.arena}

	kind := compKindForName(child.Name)
	var gens []ast.Comprehension
	var elt, key ast.Expr

	cur := g.Entry().ID
	var stack stackvalue.Stack
	iterForNext := outerIter
	seen := map[cfg.BlockID]bool{}

	for !seen[cur] {
		seen[cur] = true
		b := g.Blocks[cur]

		if b.IsLoopHeader {
			res, err := sim.Simulate(env, b, stack)
			if err != nil {
				return nil, err
			}
			trueID, hasTrue := edgeTo(b, cfg.EdgeCondTrue)
			if !hasTrue {
				break
			}
			bodyBlock := g.Blocks[trueID]
			bodyRes, err := sim.Simulate(env, bodyBlock, res.Exit)
			if err != nil {
				return nil, err
			}
			var target ast.Expr
			if len(bodyRes.Stmts) > 0 {
				if assign, ok := bodyRes.Stmts[0].(*ast.AssignStmt); ok && len(assign.Targets) == 1 {
					target = assign.Targets[0]
				}
			}
			gens = append(gens, ast.Comprehension{Target: target, Iter: iterForNext})
			if bodyRes.IterValue != nil {
				// The body block opens the next, nested generator's iterable
				// before falling into its FOR_ITER header.
				iterForNext = bodyRes.IterValue
			}
			if containsAppend(bodyBlock) {
				elt, key = extractCompTerminal(res.Exit, bodyRes)
				break
			}
			stack = bodyRes.Exit
			next, ok := edgeTo(bodyBlock, cfg.EdgeNormal)
			if !ok {
				break
			}
			cur = next
			continue
		}

		entry := stack
		res, err := sim.Simulate(env, b, entry)
		if err != nil {
			return nil, err
		}
		if containsAppend(b) {
			elt, key = extractCompTerminal(entry, res)
			break
		}
		if res.Condition != nil {
			// A filter clause on the innermost open generator.
			if len(gens) > 0 {
				gens[len(gens)-1].Ifs = append(gens[len(gens)-1].Ifs, res.Condition)
			}
			trueID, hasTrue := edgeTo(b, cfg.EdgeCondTrue)
			if !hasTrue {
				break
			}
			stack = res.Exit
			cur = trueID
			continue
		}
		if res.IterValue != nil {
			iterForNext = res.IterValue
		}
		stack = res.Exit
		next, ok := edgeTo(b, cfg.EdgeNormal)
		if !ok {
			break
		}
		cur = next
	}

	return buildCompExpr(d.arena, kind, elt, key, gens), nil
}

// containsAppend reports whether b performs the per-iteration accumulation
// of a comprehension: LIST_APPEND/SET_ADD/MAP_ADD for the container forms,
// YIELD_VALUE for a generator expression.
func containsAppend(b *cfg.Block) bool {
	for _, in := range b.Insns {
		switch in.Opcode {
		case "LIST_APPEND", "SET_ADD", "MAP_ADD", "YIELD_VALUE":
			return true
		}
	}
	return false
}

// extractCompTerminal recovers the per-iteration element (and, for dict
// comprehensions, key) expression from the block that performs the
// LIST_APPEND/SET_ADD/MAP_ADD/YIELD_VALUE: generator expressions yield the
// element directly (surfaced as Result.YieldValue); list/set/dict
// comprehensions mutate the ContainerLiteral accumulator reachable from
// preStack in place.
func extractCompTerminal(preStack stackvalue.Stack, res sim.Result) (elt, key ast.Expr) {
	if res.YieldValue != nil {
		return res.YieldValue, nil
	}
	for i := len(preStack) - 1; i >= 0; i-- {
		c := preStack[i].Container
		if preStack[i].Kind != stackvalue.KindContainerLiteral || c == nil || len(c.Elems) == 0 {
			continue
		}
		if c.Kind == "dict" && len(c.Keys) > 0 {
			return c.Elems[len(c.Elems)-1], c.Keys[len(c.Keys)-1]
		}
		return c.Elems[len(c.Elems)-1], nil
	}
	return nil, nil
}

func compKindForName(name string) ast.CompKind {
	switch name {
	case "<setcomp>":
		return ast.CompSet
	case "<dictcomp>":
		return ast.CompDict
	case "<genexpr>":
		return ast.CompGenerator
	default:
		return ast.CompList
	}
}

func buildCompExpr(art *arena.Arena, kind ast.CompKind, elt, key ast.Expr, gens []ast.Comprehension) ast.Expr {
	switch kind {
	case ast.CompSet:
		e := arena.Alloc[ast.SetCompExpr](art)
		*e = ast.SetCompExpr{Elt: elt, Generators: gens}
		return e
	case ast.CompDict:
		e := arena.Alloc[ast.DictCompExpr](art)
		*e = ast.DictCompExpr{Key: key, Value: elt, Generators: gens}
		return e
	case ast.CompGenerator:
		e := arena.Alloc[ast.GeneratorExpExpr](art)
		*e = ast.GeneratorExpExpr{Elt: elt, Generators: gens}
		return e
	default:
		e := arena.Alloc[ast.ListCompExpr](art)
		*e = ast.ListCompExpr{Elt: elt, Generators: gens}
		return e
	}
}

// compKindForContainer maps a ContainerLiteral accumulator kind to the
// comprehension it inlines to (PEP 709 inline comprehensions have no
// nested code object to take a name from).
func compKindForContainer(kind string) ast.CompKind {
	switch kind {
	case "set":
		return ast.CompSet
	case "dict":
		return ast.CompDict
	default:
		return ast.CompList
	}
}
