package sim

import (
	"github.com/mna/depyc/arena"
	"github.com/mna/depyc/ast"
	"github.com/mna/depyc/ir"
	"github.com/mna/depyc/pyerr"
	"github.com/mna/depyc/stackvalue"
)

// commit allocates v through the simulation's arena (or plainly, in flow
// mode where no arena is wired) and returns a pointer to it, implementing
// spec §4.D "Ownership: every Expr/Stmt allocated via the AST arena".
func commit[T any](st *simState, v T) *T {
	var p *T
	if st.env.Arena != nil {
		p = arena.Alloc[T](st.env.Arena)
	} else {
		p = new(T)
	}
	*p = v
	return p
}

// step applies one instruction's effect to st, dispatching by opcode family
// per the table in spec §4.D.
func (st *simState) step(in ir.Instruction, info ir.OpInfo) error {
	switch info.Family {
	case ir.FamilyMisc, ir.FamilyCache:
		return st.stepMisc(in, info)
	case ir.FamilyConstLoad:
		st.pushConstant(in.Arg)
		return nil
	case ir.FamilyNameAccess:
		return st.stepNameAccess(in, info)
	case ir.FamilyAttrAccess, ir.FamilyAttr:
		return st.stepAttrAccess(in, info)
	case ir.FamilyBinary:
		return st.stepBinary(in, info)
	case ir.FamilyCompare:
		return st.stepCompare(in, info)
	case ir.FamilyBoolJump, ir.FamilyJump:
		return st.stepJump(in, info)
	case ir.FamilyCall:
		return st.stepCall(in, info)
	case ir.FamilyMakeFunc:
		return st.stepMakeFunc(in, info)
	case ir.FamilyComprehension:
		return st.stepComprehension(in, info)
	case ir.FamilyFString:
		return st.stepFString(in, info)
	case ir.FamilyIteration:
		return st.stepIteration(in, info)
	case ir.FamilyExceptionControl:
		return st.stepExceptionControl(in, info)
	case ir.FamilyReturn:
		e, err := st.popExpr(in.Offset, in.Opcode)
		if err != nil {
			return err
		}
		st.emit(commit(st, ast.ReturnStmt{Value: e}))
		return nil
	case ir.FamilyRaise:
		return st.stepRaise(in)
	default:
		return nil
	}
}

func (st *simState) stepMisc(in ir.Instruction, info ir.OpInfo) error {
	switch in.Opcode {
	case "NOP", "RESUME", "CACHE", "KW_NAMES":
		// observed, no AST (spec §4.D "misc").
	case "POP_TOP":
		v, err := st.pop(in.Offset, in.Opcode)
		if err != nil {
			return err
		}
		// A discarded call/yield/await had observable side effects and
		// survives as an expression statement (spec §4.D "Statement
		// emission inside a block"); discarding anything else is pure
		// stack cleanup.
		if e, ok := v.AsExpr(); ok {
			switch e.(type) {
			case *ast.CallExpr, *ast.YieldExpr, *ast.YieldFromExpr, *ast.AwaitExpr:
				st.emit(commit(st, ast.ExprStmt{Value: e}))
			}
		}
	case "DUP_TOP":
		st.sawDup = true
		if len(st.stack) == 0 {
			if st.flowMode {
				st.push(stackvalue.Unknown())
				return nil
			}
			return pyerr.NewStackUnderflow(codeName(st.env), in.Offset, in.Opcode)
		}
		top := st.stack[len(st.stack)-1]
		st.push(top)
	case "DUP_TOP_TWO":
		st.sawDup = true
		n := len(st.stack)
		if n < 2 {
			if st.flowMode {
				st.push(stackvalue.Unknown())
				st.push(stackvalue.Unknown())
				return nil
			}
			return pyerr.NewStackUnderflow(codeName(st.env), in.Offset, in.Opcode)
		}
		a, b := st.stack[n-2], st.stack[n-1]
		st.push(a)
		st.push(b)
	case "ROT_TWO":
		n := len(st.stack)
		if n >= 2 {
			st.stack[n-1], st.stack[n-2] = st.stack[n-2], st.stack[n-1]
		}
	case "ROT_THREE":
		if st.sawDup {
			st.sawDupRot = true
		}
		n := len(st.stack)
		if n >= 3 {
			st.stack[n-1], st.stack[n-2], st.stack[n-3] = st.stack[n-2], st.stack[n-3], st.stack[n-1]
		}
	case "COPY":
		st.sawDup = true
		n := len(st.stack)
		idx := n - int(in.Arg)
		if idx >= 0 && idx < n {
			st.push(st.stack[idx])
		} else {
			st.push(stackvalue.Unknown())
		}
	case "SWAP":
		if st.sawDup {
			st.sawDupRot = true
		}
		n := len(st.stack)
		idx := n - int(in.Arg)
		if idx >= 0 && idx < n-1 {
			st.stack[n-1], st.stack[idx] = st.stack[idx], st.stack[n-1]
		}
	case "UNPACK_SEQUENCE":
		return st.pushUnpackSlots(in, int(in.Arg), -1)
	case "UNPACK_EX":
		// arg low byte counts targets before the star, high byte after.
		before := int(in.Arg & 0xff)
		after := int(in.Arg >> 8)
		return st.pushUnpackSlots(in, before+1+after, before)
	case "IMPORT_NAME":
		_, err := st.pop(in.Offset, in.Opcode) // fromlist
		if err != nil {
			return err
		}
		levelV, err := st.pop(in.Offset, in.Opcode)
		if err != nil {
			return err
		}
		level := 0
		if lv, ok := levelV.AsExpr(); ok {
			if ce, ok := lv.(*ast.ConstantExpr); ok {
				if iv, ok := ce.Value.(int64); ok {
					level = int(iv)
				}
			}
		}
		st.push(stackvalue.Value{Kind: stackvalue.KindImportModule, Module: st.name(in.Arg), ImportLevel: level})
	case "IMPORT_FROM":
		mod, err := st.pop(in.Offset, in.Opcode)
		if err != nil {
			return err
		}
		st.push(mod) // module stays for further IMPORT_FROM pulls
		pull := &stackvalue.ImportPull{Symbol: st.name(in.Arg)}
		if mod.Kind == stackvalue.KindImportModule {
			pull.Module, pull.Level = mod.Module, mod.ImportLevel
		}
		st.push(stackvalue.Value{Kind: stackvalue.KindImportPull, Import: pull})
	case "GET_YIELD_FROM_ITER":
		// no-op at the symbolic level: the operand is already an expression.
	case "YIELD_VALUE":
		v, err := st.popExpr(in.Offset, in.Opcode)
		if err != nil {
			return err
		}
		st.yieldVal = v
		st.push(stackvalue.FromExpr(commit(st, ast.YieldExpr{Value: v})))
	case "END_FOR":
		// 3.12 loop epilogue: discard the exhausted iterator pair.
		if _, err := st.pop(in.Offset, in.Opcode); err != nil {
			return err
		}
		if _, err := st.pop(in.Offset, in.Opcode); err != nil {
			return err
		}
	case "GET_AWAITABLE":
		v, err := st.popExpr(in.Offset, in.Opcode)
		if err != nil {
			return err
		}
		st.push(stackvalue.FromExpr(commit(st, ast.AwaitExpr{Value: v})))
	}
	return nil
}

// pushUnpackSlots starts one UNPACK_SEQUENCE/UNPACK_EX: the iterable is
// popped once and total slots sharing one UnpackState are pushed, so the
// following stores assemble a single tuple-target assignment instead of
// total independent stores of the iterable (spec §3 "assignment", §4.D).
func (st *simState) pushUnpackSlots(in ir.Instruction, total, starIdx int) error {
	src, err := st.popExpr(in.Offset, in.Opcode)
	if err != nil {
		return err
	}
	us := &stackvalue.UnpackState{Source: src, Total: total, StarIdx: starIdx}
	for i := 0; i < total; i++ {
		st.push(stackvalue.Value{Kind: stackvalue.KindUnpackSlot, Unpack: us})
	}
	return nil
}

func (st *simState) stepNameAccess(in ir.Instruction, info ir.OpInfo) error {
	switch in.Opcode {
	case "LOAD_FAST":
		st.push(stackvalue.FromExpr(commit(st, ast.NameExpr{Id: st.varname(in.Arg)})))
	case "LOAD_GLOBAL", "LOAD_NAME":
		st.push(stackvalue.FromExpr(commit(st, ast.NameExpr{Id: st.unmangled(st.env.className(), st.name(in.Arg))})))
	case "LOAD_DEREF":
		st.push(stackvalue.FromExpr(commit(st, ast.NameExpr{Id: st.cellname(in.Arg)})))
	case "STORE_FAST":
		return st.storeName(in, st.varname(in.Arg))
	case "STORE_NAME":
		return st.storeName(in, st.unmangled(st.env.className(), st.name(in.Arg)))
	case "STORE_GLOBAL":
		name := st.name(in.Arg)
		v, raw, err := st.popStorable(in, name)
		if err != nil {
			return err
		}
		if raw {
			return nil // a function/class object is never also a global decl
		}
		if !st.flowMode && st.env.declareGlobal(name) {
			// One declaration per scope, not one per store.
			st.emit(commit(st, ast.GlobalStmt{Names: []string{name}}))
		}
		st.emit(commit(st, ast.AssignStmt{Targets: []ast.Expr{commit(st, ast.NameExpr{Id: name})}, Value: v}))
	case "STORE_DEREF":
		return st.storeName(in, st.cellname(in.Arg))
	case "DELETE_FAST":
		st.emit(commit(st, ast.DeleteStmt{Targets: []ast.Expr{commit(st, ast.NameExpr{Id: st.varname(in.Arg)})}}))
	}
	return nil
}

func (st *simState) stepAttrAccess(in ir.Instruction, info ir.OpInfo) error {
	switch in.Opcode {
	case "LOAD_ATTR", "LOAD_METHOD":
		// LOAD_METHOD's bound-method/self pair is folded into the single
		// attribute expression; CALL_METHOD then dispatches exactly like
		// CALL_FUNCTION.
		obj, err := st.popExpr(in.Offset, in.Opcode)
		if err != nil {
			return err
		}
		st.push(stackvalue.FromExpr(commit(st, ast.AttributeExpr{Value: obj, Attr: st.name(in.Arg)})))
	case "STORE_ATTR":
		obj, err := st.popExpr(in.Offset, in.Opcode)
		if err != nil {
			return err
		}
		target := commit(st, ast.AttributeExpr{Value: obj, Attr: st.name(in.Arg)})
		v, err := st.pop(in.Offset, in.Opcode)
		if err != nil {
			return err
		}
		if v.Kind == stackvalue.KindUnpackSlot {
			st.storeUnpackTarget(v.Unpack, target)
			return nil
		}
		e, ok := v.AsExpr()
		if !ok {
			if st.flowMode {
				return nil
			}
			return pyerr.NewNotAnExpression(codeName(st.env), in.Offset, in.Opcode)
		}
		st.emit(commit(st, ast.AssignStmt{Targets: []ast.Expr{target}, Value: e}))
	case "BINARY_SUBSCR":
		idx, err := st.popExpr(in.Offset, in.Opcode)
		if err != nil {
			return err
		}
		obj, err := st.popExpr(in.Offset, in.Opcode)
		if err != nil {
			return err
		}
		st.push(stackvalue.FromExpr(commit(st, ast.SubscriptExpr{Value: obj, Index: idx})))
	case "STORE_SUBSCR":
		idx, err := st.popExpr(in.Offset, in.Opcode)
		if err != nil {
			return err
		}
		obj, err := st.popExpr(in.Offset, in.Opcode)
		if err != nil {
			return err
		}
		target := commit(st, ast.SubscriptExpr{Value: obj, Index: idx})
		v, err := st.pop(in.Offset, in.Opcode)
		if err != nil {
			return err
		}
		if v.Kind == stackvalue.KindUnpackSlot {
			st.storeUnpackTarget(v.Unpack, target)
			return nil
		}
		e, ok := v.AsExpr()
		if !ok {
			if st.flowMode {
				return nil
			}
			return pyerr.NewNotAnExpression(codeName(st.env), in.Offset, in.Opcode)
		}
		st.emit(commit(st, ast.AssignStmt{Targets: []ast.Expr{target}, Value: e}))
	case "BUILD_SLICE":
		parts, err := st.popN(int(in.Arg), in.Offset, in.Opcode)
		if err != nil {
			return err
		}
		sl := ast.SliceExpr{}
		exprs := make([]ast.Expr, len(parts))
		for i, p := range parts {
			e, ok := p.AsExpr()
			if !ok && !st.flowMode {
				return notAnExprErr(st, in)
			}
			exprs[i] = e
		}
		switch len(exprs) {
		case 2:
			sl.Lo, sl.Hi = exprs[0], exprs[1]
		case 3:
			sl.Lo, sl.Hi, sl.Step = exprs[0], exprs[1], exprs[2]
		}
		st.push(stackvalue.FromExpr(commit(st, sl)))
	}
	return nil
}

func (st *simState) stepBinary(in ir.Instruction, info ir.OpInfo) error {
	switch in.Opcode {
	case "BINARY_OP":
		right, err := st.popExpr(in.Offset, in.Opcode)
		if err != nil {
			return err
		}
		left, err := st.popExpr(in.Offset, in.Opcode)
		if err != nil {
			return err
		}
		op, inplace := binaryOpName(in.Arg)
		if inplace {
			// The aug-assignment becomes a statement at the following
			// store, which re-binds the same target (spec §4.D "inplace
			// becomes statement on the next store"); until then it rides
			// the stack as a pending marker.
			st.pendingAug = commit(st, ast.AugAssignStmt{Target: left, Op: op, Value: right})
			st.pendingAugLeft = left
			st.push(stackvalue.FromExpr(left))
			return nil
		}
		st.push(stackvalue.FromExpr(commit(st, ast.BinOpExpr{Left: left, Op: op, Right: right})))
	case "UNARY_NEGATIVE", "UNARY_NOT", "UNARY_INVERT":
		v, err := st.popExpr(in.Offset, in.Opcode)
		if err != nil {
			return err
		}
		op := map[string]string{"UNARY_NEGATIVE": "-", "UNARY_NOT": "not", "UNARY_INVERT": "~"}[in.Opcode]
		st.push(stackvalue.FromExpr(commit(st, ast.UnaryOpExpr{Op: op, Operand: v})))
	}
	return nil
}

func (st *simState) stepCompare(in ir.Instruction, info ir.OpInfo) error {
	right, err := st.popExpr(in.Offset, in.Opcode)
	if err != nil {
		return err
	}
	left, err := st.popExpr(in.Offset, in.Opcode)
	if err != nil {
		return err
	}
	if st.sawDupRot {
		// The compared operand was duplicated below the stack for the next
		// link of a chained comparison.
		st.chainCmp = true
		st.sawDup, st.sawDupRot = false, false
	}
	op := compareOpName(st.env.version(), in.Arg)
	st.push(stackvalue.FromExpr(commit(st, ast.CompareExpr{Left: left, Ops: []string{op}, Comparators: []ast.Expr{right}})))
	return nil
}

// stepJump handles the conditional-jump instruction that terminates a
// block: its operand is recorded as Result.Condition for the pattern
// detector (spec §4.E) rather than turned into committed AST, since the
// branch structure itself is decided above the simulator (spec §4.D
// "control-flow markers... consumed by §4.F, not the simulator").
func (st *simState) stepJump(in ir.Instruction, info ir.OpInfo) error {
	if !info.IsConditional {
		return nil // unconditional jump: no stack effect, no AST
	}
	switch in.Opcode {
	case "JUMP_IF_TRUE_OR_POP", "JUMP_IF_FALSE_OR_POP":
		// OR_POP forms only pop when not short-circuiting; peek instead.
		if len(st.stack) == 0 {
			st.cond = nil
			return nil
		}
		top := st.stack[len(st.stack)-1]
		e, _ := top.AsExpr()
		st.cond = e
	default: // POP_JUMP_IF_TRUE / POP_JUMP_IF_FALSE
		e, err := st.popExpr(in.Offset, in.Opcode)
		if err != nil {
			return err
		}
		st.cond = e
	}
	return nil
}

func notAnExprErr(st *simState, in ir.Instruction) error {
	return st.underflowOrPurity(in)
}

func (st *simState) underflowOrPurity(in ir.Instruction) error {
	_, err := st.popExpr(in.Offset, in.Opcode)
	return err
}
