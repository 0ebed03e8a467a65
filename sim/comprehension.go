package sim

import (
	"github.com/mna/depyc/ast"
	"github.com/mna/depyc/ir"
	"github.com/mna/depyc/stackvalue"
)

// decorate recognizes `callee(arg)` where arg is a still-pending
// function/class object (spec §4.I "decorator chain... folds into CALL
// dispatch"): rather than building an ordinary CallExpr, it prepends
// callee to arg's decorator list and hands the same pending value back,
// so a chain of N decorators collapses onto one stub at STORE time.
func decorate(callee, arg stackvalue.Value) (stackvalue.Value, bool) {
	calleeExpr, ok := callee.AsExpr()
	if !ok {
		return stackvalue.Value{}, false
	}
	switch arg.Kind {
	case stackvalue.KindFunctionObject:
		if arg.Fn == nil {
			return stackvalue.Value{}, false
		}
		arg.Fn.Decorators = append([]ast.Expr{calleeExpr}, arg.Fn.Decorators...)
		return arg, true
	case stackvalue.KindClassObject:
		if arg.Cls == nil {
			return stackvalue.Value{}, false
		}
		arg.Cls.Decorators = append([]ast.Expr{calleeExpr}, arg.Cls.Decorators...)
		return arg, true
	default:
		return stackvalue.Value{}, false
	}
}

// tryComprehensionCall recognizes the classic (non-inline) comprehension
// shape: the sole call argument is the outer iterable, and the callee is a
// freshly made function wrapping a comprehension's own nested code object
// (spec §4.D "comprehension open/close", the nested-code-object case of
// CompState). ok is false whenever this isn't that shape, or the caller
// hasn't wired RecurseComprehension, so the call degrades to an ordinary
// CallExpr instead.
func (st *simState) tryComprehensionCall(in ir.Instruction, callee, arg stackvalue.Value) (stackvalue.Value, bool, error) {
	if callee.Kind != stackvalue.KindFunctionObject || callee.Fn == nil || !isComprehensionCodeName(callee.Fn.CodeName) {
		return stackvalue.Value{}, false, nil
	}
	if st.env.RecurseComprehension == nil {
		return stackvalue.Value{}, false, nil
	}
	child := st.findChild(callee.Fn.CodeName)
	if child == nil {
		return stackvalue.Value{}, false, nil
	}
	iterExpr, ok := arg.AsExpr()
	if !ok {
		if st.flowMode {
			return stackvalue.Unknown(), true, nil
		}
		return stackvalue.Value{}, false, notAnExprErr(st, in)
	}
	result, err := st.env.RecurseComprehension(child, iterExpr)
	if err != nil {
		return stackvalue.Value{}, false, err
	}
	return stackvalue.FromExpr(result), true, nil
}

func isComprehensionCodeName(name string) bool {
	switch name {
	case "<listcomp>", "<setcomp>", "<dictcomp>", "<genexpr>":
		return true
	}
	return false
}
