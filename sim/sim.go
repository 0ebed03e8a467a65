// Package sim implements the per-block symbolic simulator of spec §4.D
// (Component D): opcode -> stack effect, producing AST expression and
// statement nodes from a block's instruction sequence. It is grounded
// opcode-family-by-opcode-family on the teacher's virtual machine
// (lang/machine/machine.go's giant `switch op` over a concrete operand
// stack), reinterpreted here as a switch over ir.Family producing
// not-yet-evaluated expression trees instead of runtime values.
package sim

import (
	"fmt"

	"github.com/mna/depyc/arena"
	"github.com/mna/depyc/ast"
	"github.com/mna/depyc/cfg"
	"github.com/mna/depyc/ir"
	"github.com/mna/depyc/pyerr"
	"github.com/mna/depyc/stackvalue"
)

// Env is the read-only context threaded through one code object's
// simulation: the decoded container, its opcode table, and the arena that
// owns every committed AST node (spec §3 "Lifecycle", §4.D "Ownership").
type Env struct {
	Code        *ir.CodeObject
	Table       ir.OpcodeTable
	InClassBody bool

	// Arena owns every Expr/Stmt this Env's simulation commits. Nil is
	// permitted only in flow mode, where no node is ever committed.
	Arena *arena.Arena

	// Recurse resolves a nested code object's full statement body (spec
	// §4.F "nested scope recursion"): sim never walks a child code object's
	// own instructions, it only assembles the def/class statement shell and
	// calls back into the decompile package to fill in Body. nil degrades a
	// function/class store to an empty body (acceptable in flow mode, where
	// statements are discarded anyway).
	Recurse func(child *ir.CodeObject, classBody bool) ([]ast.Stmt, error)

	// RecurseComprehension resolves a classic (non-inline) comprehension's
	// nested code object into its Elt/Generators shape (spec §4.D
	// "comprehension open/close"). nil degrades the comprehension call to a
	// plain CallExpr.
	RecurseComprehension func(child *ir.CodeObject, outerIter ast.Expr) (ast.Expr, error)

	// globalsDeclared records which names already produced a `global`
	// declaration in this scope, so repeated STORE_GLOBALs emit the
	// declaration once (spec §4.D "STORE_GLOBAL alone triggers a global
	// decl"). Only emission-mode stores record here; flow mode never
	// emits and must not consume the first-store slot.
	globalsDeclared map[string]bool
}

// declareGlobal reports whether name still needs its `global` declaration
// in this scope, recording it as declared.
func (env *Env) declareGlobal(name string) bool {
	if env.globalsDeclared == nil {
		env.globalsDeclared = make(map[string]bool)
	}
	if env.globalsDeclared[name] {
		return false
	}
	env.globalsDeclared[name] = true
	return true
}

// Result is what simulating one block produces (spec §4.D "per-block
// simulator consuming the block's instructions and producing (exit_stack,
// statements_emitted_during_block)").
type Result struct {
	Exit  stackvalue.Stack
	Stmts []ast.Stmt

	// Condition is the expression popped by the block's trailing
	// conditional jump, if any (nil otherwise). The pattern detector and
	// structured decompiler (spec §4.E, §4.F) consume this directly rather
	// than re-deriving it from the exit stack.
	Condition ast.Expr

	// IterValue is the iterator expression a trailing GET_ITER pushed, when
	// the block ends in one (spec §4.D "iteration"); consumed by the For
	// pattern handler.
	IterValue ast.Expr

	// YieldValue is the expression of the last YIELD_VALUE in the block,
	// kept visible even after a following POP_TOP discards it from the
	// stack; the comprehension walker reads it to recover a generator
	// expression's element (spec §4.D "comprehension open/close").
	YieldValue ast.Expr

	// ChainCompare reports that this block's comparison consumed a
	// DUP/ROT-duplicated operand, i.e. it is one link of a chained
	// comparison rather than a standalone one; the decompiler folds such
	// links into a single n-ary Compare (spec §4.F "Chained comparisons").
	ChainCompare bool
}

// binaryOps maps a BINARY_OP argument (spec §6: 0-12 direct, 13-25
// in-place) to its source-level operator spelling.
var binaryOps = []string{"+", "-", "*", "/", "//", "%", "**", "<<", ">>", "&", "|", "^", "@"}

func binaryOpName(arg uint32) (op string, inplace bool) {
	if arg >= 13 && arg < 13+uint32(len(binaryOps)) {
		return binaryOps[arg-13], true
	}
	if int(arg) < len(binaryOps) {
		return binaryOps[arg], false
	}
	return "?", false
}

// compareOps maps a despecialized COMPARE_OP argument to its operator.
var compareOps = []string{"<", "<=", "==", "!=", ">", ">="}

func compareOpName(v ir.Version, arg uint32) string {
	shifted := arg >> v.CompareArgShift()
	if int(shifted) < len(compareOps) {
		return compareOps[shifted]
	}
	return "?"
}

// simState is the mutable per-block cursor: the operand stack plus the
// statements accumulated so far.
type simState struct {
	env      *Env
	block    *cfg.Block
	flowMode bool

	stack    []stackvalue.Value
	stmts    []ast.Stmt
	cond     ast.Expr
	iter     ast.Expr
	yieldVal ast.Expr

	// pendingAug is an inplace binary op waiting for its re-binding store
	// (spec §4.D "inplace becomes statement on the next store");
	// pendingAugLeft identifies the stack value that carries it.
	pendingAug     *ast.AugAssignStmt
	pendingAugLeft ast.Expr

	// sawDup/sawDupRot track the DUP(_TOP_TWO)/COPY + ROT_THREE/SWAP
	// prelude that distinguishes a chained-comparison link from a plain
	// comparison; a COMPARE_OP after both marks the block's result as a
	// chain link for the decompiler's fold (spec §4.F "Chained
	// comparisons").
	sawDup    bool
	sawDupRot bool
	chainCmp  bool
}

// Simulate runs the symbolic interpreter over one block in emission mode:
// underflow and purity violations are errors, and every committed Expr/Stmt
// is allocated through env.Arena (spec §4.D, §4.C "emission context").
func Simulate(env *Env, block *cfg.Block, entry stackvalue.Stack) (Result, error) {
	return run(env, block, entry, false)
}

// Flow adapts Simulate to stackvalue.FlowSimulator: stack underflow is
// absorbed as Unknown slots, no error is possible from underflow, and no
// Stmt is committed to the long-lived arena (spec §4.C "flow mode").
type Flow struct{ Env *Env }

func (f Flow) SimulateFlow(b *cfg.Block, entry stackvalue.Stack) (stackvalue.Stack, error) {
	res, err := run(f.Env, b, entry, true)
	if err != nil {
		return nil, err
	}
	return res.Exit, nil
}

func run(env *Env, block *cfg.Block, entry stackvalue.Stack, flowMode bool) (Result, error) {
	st := &simState{env: env, block: block, flowMode: flowMode, stack: append([]stackvalue.Value{}, entry...)}

	for _, in := range block.Insns {
		info, ok := env.Table.ByName(in.Opcode)
		if !ok {
			return Result{}, pyerr.NewMalformedBytecode(codeName(env), in.Offset, "opcode "+in.Opcode+" not in table")
		}
		if err := st.step(in, info); err != nil {
			return Result{}, err
		}
	}

	return Result{Exit: stackvalue.Stack(st.stack), Stmts: st.stmts, Condition: st.cond, IterValue: st.iter, YieldValue: st.yieldVal, ChainCompare: st.chainCmp}, nil
}

func codeName(env *Env) string {
	if env.Code == nil {
		return ""
	}
	return env.Code.Name
}

// className returns the enclosing class's name when this Env simulates a
// class body (a class body compiles to a code object named after the
// class itself), or "" otherwise. Used by unmangled to decide whether a
// `_ClassName__x` read/write should be un-mangled (spec §4.D).
func (env *Env) className() string {
	if !env.InClassBody || env.Code == nil {
		return ""
	}
	return env.Code.Name
}

// version returns the code object's bytecode version, or the zero Version
// (pre-3.11 COMPARE_OP encoding) when no container is wired.
func (env *Env) version() ir.Version {
	if env.Code == nil {
		return ir.Version{}
	}
	return env.Code.Version
}

// childIndex locates co within env.Code.Children, for the CodeRef the
// simulator attaches to a code-object constant load (spec §4.D). -1 when
// no container is wired or co is not a recognized child.
func (env *Env) childIndex(co *ir.CodeObject) int {
	if env.Code == nil {
		return -1
	}
	for i, c := range env.Code.Children {
		if c == co {
			return i
		}
	}
	return -1
}

func (st *simState) push(v stackvalue.Value) { st.stack = append(st.stack, v) }

// pop removes and returns the top of stack. In flow mode, an empty stack
// yields Unknown instead of failing (spec §4.C "stack underflows are
// absorbed as additional Unknown slots at the bottom"); in emission mode it
// is a StackUnderflow error (spec §7).
func (st *simState) pop(offset uint32, opcode string) (stackvalue.Value, error) {
	if len(st.stack) == 0 {
		if st.flowMode {
			return stackvalue.Unknown(), nil
		}
		return stackvalue.Value{}, pyerr.NewStackUnderflow(codeName(st.env), offset, opcode)
	}
	v := st.stack[len(st.stack)-1]
	st.stack = st.stack[:len(st.stack)-1]
	return v, nil
}

func (st *simState) popN(n int, offset uint32, opcode string) ([]stackvalue.Value, error) {
	out := make([]stackvalue.Value, n)
	for i := n - 1; i >= 0; i-- {
		v, err := st.pop(offset, opcode)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// popExpr pops and requires a pure expression slot (spec §4.D "Expression
// purity rule"): in emission mode an Unknown reaching this point is
// NotAnExpression; in flow mode it is tolerated and surfaces as Unknown.
func (st *simState) popExpr(offset uint32, opcode string) (ast.Expr, error) {
	v, err := st.pop(offset, opcode)
	if err != nil {
		return nil, err
	}
	e, ok := v.AsExpr()
	if !ok {
		if st.flowMode {
			return nil, nil
		}
		return nil, pyerr.NewNotAnExpression(codeName(st.env), offset, opcode)
	}
	return e, nil
}

func (st *simState) emit(s ast.Stmt) {
	if st.flowMode {
		return
	}
	st.stmts = append(st.stmts, s)
}

func (st *simState) constant(idx uint32) interface{} {
	if st.env.Code == nil || int(idx) >= len(st.env.Code.Constants) {
		return int64(idx) // fixture fallback when no container is wired
	}
	return st.env.Code.Constants[idx]
}

// pushConstant pushes the idx'th constant. A *ir.CodeObject constant (a
// nested function or class body) pushes a CodeRef stack value instead of a
// ConstantExpr, so the later MAKE_FUNCTION/LOAD_BUILD_CLASS sequence can
// identify which child code object it is building (spec §4.D "constant
// load... CodeObject variant").
func (st *simState) pushConstant(idx uint32) {
	v := st.constant(idx)
	if co, ok := v.(*ir.CodeObject); ok {
		st.push(stackvalue.Value{Kind: stackvalue.KindCodeObject, Code: &stackvalue.CodeRef{Name: co.Name, Index: st.env.childIndex(co)}})
		return
	}
	st.push(stackvalue.FromExpr(commit(st, ast.ConstantExpr{Value: v})))
}

func (st *simState) varname(idx uint32) string {
	if st.env.Code != nil && int(idx) < len(st.env.Code.Varnames) {
		return st.env.Code.Varnames[idx]
	}
	return fmt.Sprintf("_local%d", idx)
}

func (st *simState) name(idx uint32) string {
	if st.env.Code != nil && int(idx) < len(st.env.Code.Names) {
		return st.env.Code.Names[idx]
	}
	return fmt.Sprintf("_name%d", idx)
}

func (st *simState) cellname(idx uint32) string {
	if st.env.Code == nil {
		return fmt.Sprintf("_cell%d", idx)
	}
	if int(idx) < len(st.env.Code.Cellvars) {
		return st.env.Code.Cellvars[idx]
	}
	j := int(idx) - len(st.env.Code.Cellvars)
	if j < len(st.env.Code.Freevars) {
		return st.env.Code.Freevars[j]
	}
	return fmt.Sprintf("_cell%d", idx)
}

// unmangled applies Python's class-private name mangling in reverse (spec
// §4.D "class-private names unmangled when inside a class body", §4.G.7):
// `_ClassName__x` read or written inside that class's body is a private
// name `__x`. The rewrite pipeline's name-unmangling pass (spec §4.G.7)
// does the module-wide version of this same transform for nested defs;
// this is the simulator's local, same-block shortcut documented separately
// so the two don't fight over the same identifiers.
func (st *simState) unmangled(className, id string) string {
	if !st.env.InClassBody || className == "" {
		return id
	}
	prefix := "_" + className + "__"
	if len(id) > len(prefix) && id[:len(prefix)] == prefix && id[len(id)-2:] != "__" {
		return "__" + id[len(prefix):]
	}
	return id
}
