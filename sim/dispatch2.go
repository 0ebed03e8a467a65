package sim

import (
	"strings"

	"github.com/mna/depyc/ast"
	"github.com/mna/depyc/ir"
	"github.com/mna/depyc/stackvalue"
)

func (st *simState) stepCall(in ir.Instruction, info ir.OpInfo) error {
	switch in.Opcode {
	case "CALL_FUNCTION_KW":
		namesExpr, err := st.popExpr(in.Offset, in.Opcode)
		if err != nil {
			return err
		}
		return st.callPositional(in, int(in.Arg), constTupleStrings(namesExpr))
	default: // CALL_FUNCTION, CALL_METHOD, CALL (3.11+ unified)
		return st.callPositional(in, int(in.Arg), nil)
	}
}

// callPositional pops argc argument slots (the trailing len(kwNames) of
// which are keyword values, spec §6 CALL_FUNCTION_KW encoding), then the
// callable itself, and assembles either a plain CallExpr or, when the
// callable is the LOAD_BUILD_CLASS sentinel, a pending ClsMeta (spec §4.D
// "function/class creation").
func (st *simState) callPositional(in ir.Instruction, argc int, kwNames []string) error {
	args, err := st.popN(argc, in.Offset, in.Opcode)
	if err != nil {
		return err
	}
	callee, err := st.pop(in.Offset, in.Opcode)
	if err != nil {
		return err
	}

	if callee.Kind == stackvalue.KindClassObject && callee.Cls == nil {
		return st.buildClass(args, kwNames)
	}

	if len(kwNames) == 0 && len(args) == 1 {
		if decorated, ok := decorate(callee, args[0]); ok {
			st.push(decorated)
			return nil
		}
		if pushed, ok, err := st.tryComprehensionCall(in, callee, args[0]); err != nil {
			return err
		} else if ok {
			st.push(pushed)
			return nil
		}
	}

	fn, ok := callee.AsExpr()
	if !ok {
		if st.flowMode {
			st.push(stackvalue.Unknown())
			return nil
		}
		return notAnExprErr(st, in)
	}

	nkw := len(kwNames)
	npos := len(args) - nkw
	if npos < 0 {
		npos = 0
		nkw = len(args)
	}
	call := ast.CallExpr{Fn: fn}
	for _, a := range args[:npos] {
		e, ok := a.AsExpr()
		if !ok && !st.flowMode {
			return notAnExprErr(st, in)
		}
		call.Args = append(call.Args, e)
	}
	for i, name := range kwNames[:nkw] {
		e, ok := args[npos+i].AsExpr()
		if !ok && !st.flowMode {
			return notAnExprErr(st, in)
		}
		call.Kwargs = append(call.Kwargs, ast.Keyword{Name: name, Value: e})
	}
	st.push(stackvalue.FromExpr(commit(st, call)))
	return nil
}

// buildClass interprets the `LOAD_BUILD_CLASS, <function>, <name>,
// <bases...>, CALL_FUNCTION[_KW]` sequence into a pending ClsMeta; its Body
// is left empty here; the decompile package fills it in by recursively
// decompiling the class-body code object named in the function argument's
// FnMeta.CodeName (spec §4.D, §4.F "nested scope recursion").
func (st *simState) buildClass(args []stackvalue.Value, kwNames []string) error {
	if len(args) < 2 {
		st.push(stackvalue.Unknown())
		return nil
	}
	nkw := len(kwNames)
	fnVal := args[0]
	name := ""
	if e, ok := args[1].AsExpr(); ok {
		name = exprAsString(e)
	}
	baseEnd := len(args) - nkw
	var bases []ast.Expr
	for _, a := range args[2:baseEnd] {
		if e, ok := a.AsExpr(); ok {
			bases = append(bases, e)
		}
	}
	var kws []ast.Keyword
	for i, kn := range kwNames {
		if e, ok := args[baseEnd+i].AsExpr(); ok {
			kws = append(kws, ast.Keyword{Name: kn, Value: e})
		}
	}
	meta := &stackvalue.ClsMeta{Name: name, Bases: bases, Keywords: kws}
	if fnVal.Kind == stackvalue.KindFunctionObject && fnVal.Fn != nil {
		_ = fnVal.Fn.CodeName // consumed by decompile, not here
	}
	st.push(stackvalue.Value{Kind: stackvalue.KindClassObject, Cls: meta})
	return nil
}

func (st *simState) stepMakeFunc(in ir.Instruction, info ir.OpInfo) error {
	switch in.Opcode {
	case "LOAD_BUILD_CLASS":
		st.push(stackvalue.Value{Kind: stackvalue.KindClassObject})
	case "MAKE_FUNCTION":
		return st.makeFunction(in)
	}
	return nil
}

// makeFunction reads the pre-3.13 MAKE_FUNCTION flag nibble (bit0 defaults,
// bit1 kwdefaults, bit2 annotations, bit3 closure) to know how many extra
// tuples/dicts to pop below the qualname and code slots (spec §4.D
// "function/class creation").
func (st *simState) makeFunction(in ir.Instruction) error {
	qualExpr, err := st.popExpr(in.Offset, in.Opcode)
	if err != nil {
		return err
	}
	codeVal, err := st.pop(in.Offset, in.Opcode)
	if err != nil {
		return err
	}

	meta := &stackvalue.FnMeta{Qualname: exprAsString(qualExpr)}
	if codeVal.Kind == stackvalue.KindCodeObject && codeVal.Code != nil {
		meta.CodeName = codeVal.Code.Name
	}

	if in.Arg&0x08 != 0 {
		v, err := st.popExpr(in.Offset, in.Opcode)
		if err != nil {
			return err
		}
		meta.Closure = constTupleStrings(v)
	}
	if in.Arg&0x04 != 0 {
		if _, err := st.pop(in.Offset, in.Opcode); err != nil {
			return err
		}
	}
	if in.Arg&0x02 != 0 {
		if _, err := st.pop(in.Offset, in.Opcode); err != nil {
			return err
		}
	}
	if in.Arg&0x01 != 0 {
		v, err := st.pop(in.Offset, in.Opcode)
		if err != nil {
			return err
		}
		if e, ok := v.AsExpr(); ok {
			if t, ok := e.(*ast.TupleExpr); ok {
				meta.Defaults = t.Elts
			}
		}
	}

	st.push(stackvalue.Value{Kind: stackvalue.KindFunctionObject, Fn: meta})
	return nil
}

func exprAsString(e ast.Expr) string {
	if c, ok := e.(*ast.ConstantExpr); ok {
		if s, ok := c.Value.(string); ok {
			return s
		}
	}
	return ""
}

func constTupleStrings(e ast.Expr) []string {
	c, ok := e.(*ast.ConstantExpr)
	if !ok {
		return nil
	}
	tup, ok := c.Value.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(tup))
	for _, v := range tup {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (st *simState) stepComprehension(in ir.Instruction, info ir.OpInfo) error {
	switch in.Opcode {
	case "BUILD_LIST", "BUILD_TUPLE", "BUILD_SET":
		return st.buildContainer(in, strings.ToLower(strings.TrimPrefix(in.Opcode, "BUILD_")))
	case "BUILD_MAP":
		return st.buildMap(in)
	case "LIST_APPEND", "SET_ADD":
		return st.appendContainer(in)
	case "MAP_ADD":
		return st.mapAdd(in)
	case "LOAD_FAST_AND_CLEAR":
		st.push(stackvalue.FromExpr(commit(st, ast.NameExpr{Id: st.varname(in.Arg)})))
	}
	return nil
}

// buildContainer handles the straight-line literal-display shape (arg >
// 0: every element already on the stack); arg == 0 opens a
// ContainerLiteral builder that a following loop of *_APPEND/*_ADD
// instructions (detected positionally via the BUILD_* depth argument, spec
// §4.D "comprehension open/close") fills in, later classified by the
// decompile package (inlinecomp.go) as either a comprehension or an empty
// literal.
func (st *simState) buildContainer(in ir.Instruction, kind string) error {
	n := int(in.Arg)
	if n == 0 {
		st.push(stackvalue.Value{Kind: stackvalue.KindContainerLiteral, Container: &stackvalue.ContainerLiteral{Kind: kind}})
		return nil
	}
	elems, err := st.popN(n, in.Offset, in.Opcode)
	if err != nil {
		return err
	}
	exprs := make([]ast.Expr, 0, n)
	for _, v := range elems {
		e, ok := v.AsExpr()
		if !ok {
			if st.flowMode {
				exprs = append(exprs, nil)
				continue
			}
			return notAnExprErr(st, in)
		}
		exprs = append(exprs, e)
	}
	var lit ast.Expr
	switch kind {
	case "list":
		lit = commit(st, ast.ListExpr{Elts: exprs})
	case "tuple":
		lit = commit(st, ast.TupleExpr{Elts: exprs})
	case "set":
		lit = commit(st, ast.SetExpr{Elts: exprs})
	}
	st.push(stackvalue.FromExpr(lit))
	return nil
}

func (st *simState) buildMap(in ir.Instruction) error {
	n := int(in.Arg)
	if n == 0 {
		st.push(stackvalue.Value{Kind: stackvalue.KindContainerLiteral, Container: &stackvalue.ContainerLiteral{Kind: "dict"}})
		return nil
	}
	pairs, err := st.popN(n*2, in.Offset, in.Opcode)
	if err != nil {
		return err
	}
	var keys, vals []ast.Expr
	for i := 0; i < len(pairs); i += 2 {
		k, _ := pairs[i].AsExpr()
		v, ok := pairs[i+1].AsExpr()
		if !ok && !st.flowMode {
			return notAnExprErr(st, in)
		}
		keys = append(keys, k)
		vals = append(vals, v)
	}
	st.push(stackvalue.FromExpr(commit(st, ast.DictExpr{Keys: keys, Values: vals})))
	return nil
}

func (st *simState) appendContainer(in ir.Instruction) error {
	item, err := st.popExpr(in.Offset, in.Opcode)
	if err != nil {
		return err
	}
	if item == nil {
		return nil // flow mode: never grow the accumulator with placeholders
	}
	idx := len(st.stack) - int(in.Arg)
	if idx < 0 || idx >= len(st.stack) {
		return nil
	}
	cv := st.stack[idx]
	if cv.Kind == stackvalue.KindContainerLiteral && cv.Container != nil {
		cv.Container.Elems = append(cv.Container.Elems, item)
	}
	return nil
}

func (st *simState) mapAdd(in ir.Instruction) error {
	val, err := st.popExpr(in.Offset, in.Opcode)
	if err != nil {
		return err
	}
	key, err := st.popExpr(in.Offset, in.Opcode)
	if err != nil {
		return err
	}
	if val == nil || key == nil {
		return nil // flow mode: never grow the accumulator with placeholders
	}
	idx := len(st.stack) - int(in.Arg)
	if idx < 0 || idx >= len(st.stack) {
		return nil
	}
	cv := st.stack[idx]
	if cv.Kind == stackvalue.KindContainerLiteral && cv.Container != nil {
		cv.Container.Elems = append(cv.Container.Elems, val)
		cv.Container.Keys = append(cv.Container.Keys, key)
	}
	return nil
}

func (st *simState) stepFString(in ir.Instruction, info ir.OpInfo) error {
	switch in.Opcode {
	case "FORMAT_VALUE":
		var spec ast.Expr
		if in.Arg&0x04 != 0 {
			s, err := st.popExpr(in.Offset, in.Opcode)
			if err != nil {
				return err
			}
			spec = s
		}
		v, err := st.popExpr(in.Offset, in.Opcode)
		if err != nil {
			return err
		}
		var conv rune
		switch in.Arg & 0x03 {
		case 1:
			conv = 's'
		case 2:
			conv = 'r'
		case 3:
			conv = 'a'
		}
		st.push(stackvalue.FromExpr(commit(st, ast.FormattedValue{Value: v, Conversion: conv, FormatSpec: spec})))
	case "BUILD_STRING":
		parts, err := st.popN(int(in.Arg), in.Offset, in.Opcode)
		if err != nil {
			return err
		}
		exprs := make([]ast.Expr, 0, len(parts))
		for _, p := range parts {
			e, ok := p.AsExpr()
			if !ok {
				if st.flowMode {
					continue
				}
				return notAnExprErr(st, in)
			}
			exprs = append(exprs, e)
		}
		st.push(stackvalue.FromExpr(commit(st, ast.JoinedStrExpr{Parts: exprs})))
	}
	return nil
}

func (st *simState) stepIteration(in ir.Instruction, info ir.OpInfo) error {
	switch in.Opcode {
	case "GET_ITER":
		v, err := st.popExpr(in.Offset, in.Opcode)
		if err != nil {
			return err
		}
		st.iter = v
		st.push(stackvalue.FromExpr(v))
	case "FOR_ITER":
		// The iteration path pushes the next item. The item has no
		// expression form of its own; a placeholder name is pushed and
		// stripped by the loop handler when the first body-block store
		// binds it to the loop target (spec §4.F "For: extract target from
		// body prelude").
		if st.flowMode {
			st.push(stackvalue.Unknown())
			return nil
		}
		st.push(stackvalue.FromExpr(commit(st, ast.NameExpr{Id: forItemSentinel})))
	}
	return nil
}

// forItemSentinel is the placeholder identifier FOR_ITER pushes for the
// not-yet-named iteration value; it is consumed by the loop target's
// store and never reaches emitted output for well-formed bytecode.
const forItemSentinel = "\x00item"

func (st *simState) stepExceptionControl(in ir.Instruction, info ir.OpInfo) error {
	switch in.Opcode {
	case "PUSH_EXC_INFO":
		// Pops the top value, pushes the previously-active exception, then
		// restores the popped value on top; the handler's seeded exception
		// slot stays topmost for the as-binding store to consume.
		v, err := st.pop(in.Offset, in.Opcode)
		if err != nil {
			return err
		}
		st.push(stackvalue.Unknown())
		st.push(v)
	case "CHECK_EXC_MATCH", "CHECK_EG_MATCH":
		// Pops the except-clause type, pushes the match result. The result
		// slot re-uses the type expression so the trailing conditional
		// jump's pop stays in emission-legal territory; the decompiler
		// reads the type from Result.Condition either way (spec §4.E
		// "Try").
		typ, err := st.popExpr(in.Offset, in.Opcode)
		if err != nil {
			return err
		}
		st.push(stackvalue.FromExpr(typ))
		st.cond = typ
	case "RERAISE":
		st.emit(commit(st, ast.RaiseStmt{}))
	case "WITH_EXCEPT_START":
		st.push(stackvalue.Unknown())
	case "BEFORE_WITH", "SETUP_WITH":
		ctx, err := st.popExpr(in.Offset, in.Opcode)
		if err != nil {
			return err
		}
		st.push(stackvalue.Unknown()) // bound __exit__, consumed by WITH_EXCEPT_START
		st.push(stackvalue.FromExpr(ctx))
	case "CALL_INTRINSIC_2":
		if _, err := st.popN(2, in.Offset, in.Opcode); err != nil {
			return err
		}
		st.push(stackvalue.Unknown())
	case "MATCH_SEQUENCE", "MATCH_MAPPING", "MATCH_KEYS":
		// Pushes the did-it-match result above the subject. As with
		// CHECK_EXC_MATCH, the slot re-uses the subject expression so the
		// chain's conditional jumps stay emission-legal; handleMatch reads
		// the subject from the slot below this one either way (spec §4.E
		// "Match").
		if len(st.stack) > 0 {
			if e, ok := st.stack[len(st.stack)-1].AsExpr(); ok {
				st.push(stackvalue.FromExpr(e))
				return nil
			}
		}
		st.push(stackvalue.Unknown())
	case "MATCH_CLASS":
		// Pops the keyword-names tuple and the class, pushes the captured
		// attributes or None; the class expression stands in for the
		// result slot.
		if _, err := st.pop(in.Offset, in.Opcode); err != nil {
			return err
		}
		cls, err := st.pop(in.Offset, in.Opcode)
		if err != nil {
			return err
		}
		if e, ok := cls.AsExpr(); ok {
			st.push(stackvalue.FromExpr(e))
			st.cond = e
			return nil
		}
		st.push(stackvalue.Unknown())
	}
	return nil
}

func (st *simState) stepRaise(in ir.Instruction) error {
	if in.Opcode != "RAISE_VARARGS" {
		return nil
	}
	switch in.Arg {
	case 0:
		st.emit(commit(st, ast.RaiseStmt{}))
	case 1:
		exc, err := st.popExpr(in.Offset, in.Opcode)
		if err != nil {
			return err
		}
		st.emit(commit(st, ast.RaiseStmt{Exc: exc}))
	case 2:
		cause, err := st.popExpr(in.Offset, in.Opcode)
		if err != nil {
			return err
		}
		exc, err := st.popExpr(in.Offset, in.Opcode)
		if err != nil {
			return err
		}
		st.emit(commit(st, ast.RaiseStmt{Exc: exc, Cause: cause}))
	}
	return nil
}
