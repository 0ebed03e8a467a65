package sim_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/depyc/arena"
	"github.com/mna/depyc/ast"
	"github.com/mna/depyc/cfg"
	"github.com/mna/depyc/ir"
	"github.com/mna/depyc/sim"
	"github.com/mna/depyc/stackvalue"
)

type op struct {
	name string
	arg  uint32
}

// simulate runs one straight-line block in emission mode with an empty
// entry stack.
func simulate(t *testing.T, co *ir.CodeObject, ops ...op) sim.Result {
	t.Helper()
	insns := make([]ir.Instruction, len(ops))
	for i, o := range ops {
		insns[i] = ir.Instruction{Offset: uint32(i) * 2, Opcode: o.name, Arg: o.arg, Size: 2}
	}
	env := &sim.Env{Code: co, Table: ir.Table(co.Version), Arena: arena.New()}
	res, err := sim.Simulate(env, &cfg.Block{Insns: insns}, nil)
	require.NoError(t, err)
	return res
}

func topExpr(t *testing.T, res sim.Result) ast.Expr {
	t.Helper()
	require.NotEmpty(t, res.Exit)
	e, ok := res.Exit[len(res.Exit)-1].AsExpr()
	require.True(t, ok, "top of stack is not an expression: %+v", res.Exit[len(res.Exit)-1])
	return e
}

func TestBinaryOpBuildsBinOpExpr(t *testing.T) {
	co := &ir.CodeObject{
		Name: "t", Version: ir.Version{Major: 3, Minor: 11},
		Names:     []string{"a"},
		Constants: []interface{}{int64(1)},
	}
	res := simulate(t, co,
		op{"LOAD_NAME", 0},
		op{"LOAD_CONST", 0},
		op{"BINARY_OP", 0},
	)
	bin, ok := topExpr(t, res).(*ast.BinOpExpr)
	require.True(t, ok)
	assert.Equal(t, "+", bin.Op)
	assert.Equal(t, "a", bin.Left.(*ast.NameExpr).Id)
	assert.Equal(t, int64(1), bin.Right.(*ast.ConstantExpr).Value)
}

func TestInplaceBinaryOpBecomesAugAssignAtStore(t *testing.T) {
	co := &ir.CodeObject{
		Name: "t", Version: ir.Version{Major: 3, Minor: 11},
		Names:     []string{"a"},
		Constants: []interface{}{int64(1)},
	}
	res := simulate(t, co,
		op{"LOAD_NAME", 0},
		op{"LOAD_CONST", 0},
		op{"BINARY_OP", 13}, // inplace +
		op{"STORE_NAME", 0},
	)
	require.Len(t, res.Stmts, 1)
	aug, ok := res.Stmts[0].(*ast.AugAssignStmt)
	require.True(t, ok, "want AugAssignStmt, got %T", res.Stmts[0])
	assert.Equal(t, "+", aug.Op)
	assert.Equal(t, "a", aug.Target.(*ast.NameExpr).Id)
}

func TestCompareOpArgShift313(t *testing.T) {
	co := &ir.CodeObject{
		Name: "t", Version: ir.Version{Major: 3, Minor: 13},
		Names: []string{"a", "b"},
	}
	// 3.13 encodes the comparison kind in arg>>5; 2<<5 selects "==".
	res := simulate(t, co,
		op{"LOAD_NAME", 0},
		op{"LOAD_NAME", 1},
		op{"COMPARE_OP", 2 << 5},
	)
	cmp, ok := topExpr(t, res).(*ast.CompareExpr)
	require.True(t, ok)
	assert.Equal(t, []string{"=="}, cmp.Ops)
}

func TestCallWithKeywordArguments(t *testing.T) {
	co := &ir.CodeObject{
		Name: "t", Version: ir.Version{Major: 3, Minor: 10},
		Names:     []string{"f"},
		Constants: []interface{}{int64(1), int64(2), []interface{}{"k"}},
	}
	res := simulate(t, co,
		op{"LOAD_NAME", 0},
		op{"LOAD_CONST", 0},
		op{"LOAD_CONST", 1},
		op{"LOAD_CONST", 2},
		op{"CALL_FUNCTION_KW", 2},
	)
	call, ok := topExpr(t, res).(*ast.CallExpr)
	require.True(t, ok)
	assert.Equal(t, "f", call.Fn.(*ast.NameExpr).Id)
	require.Len(t, call.Args, 1)
	require.Len(t, call.Kwargs, 1)
	assert.Equal(t, "k", call.Kwargs[0].Name)
	assert.Equal(t, int64(2), call.Kwargs[0].Value.(*ast.ConstantExpr).Value)
}

func TestMethodCallFoldsIntoAttribute(t *testing.T) {
	co := &ir.CodeObject{
		Name: "t", Version: ir.Version{Major: 3, Minor: 10},
		Names: []string{"obj", "meth"},
	}
	res := simulate(t, co,
		op{"LOAD_NAME", 0},
		op{"LOAD_METHOD", 1},
		op{"CALL_METHOD", 0},
	)
	call, ok := topExpr(t, res).(*ast.CallExpr)
	require.True(t, ok)
	attr, ok := call.Fn.(*ast.AttributeExpr)
	require.True(t, ok)
	assert.Equal(t, "meth", attr.Attr)
}

func TestFStringConversionAndParts(t *testing.T) {
	co := &ir.CodeObject{
		Name: "t", Version: ir.Version{Major: 3, Minor: 11},
		Names:     []string{"x"},
		Constants: []interface{}{"x="},
	}
	res := simulate(t, co,
		op{"LOAD_CONST", 0},
		op{"LOAD_NAME", 0},
		op{"FORMAT_VALUE", 2}, // !r
		op{"BUILD_STRING", 2},
	)
	js, ok := topExpr(t, res).(*ast.JoinedStrExpr)
	require.True(t, ok)
	require.Len(t, js.Parts, 2)
	fv, ok := js.Parts[1].(*ast.FormattedValue)
	require.True(t, ok)
	assert.Equal(t, 'r', fv.Conversion)
}

func TestImportFromEmitsSingleNameStatement(t *testing.T) {
	co := &ir.CodeObject{
		Name: "t", Version: ir.Version{Major: 3, Minor: 11},
		Names:     []string{"os.path", "join"},
		Constants: []interface{}{int64(0), []interface{}{"join"}},
	}
	res := simulate(t, co,
		op{"LOAD_CONST", 0}, // level
		op{"LOAD_CONST", 1}, // fromlist
		op{"IMPORT_NAME", 0},
		op{"IMPORT_FROM", 1},
		op{"STORE_NAME", 1},
	)
	require.Len(t, res.Stmts, 1)
	imp, ok := res.Stmts[0].(*ast.ImportFromStmt)
	require.True(t, ok, "want ImportFromStmt, got %T", res.Stmts[0])
	assert.Equal(t, "os.path", imp.Module)
	require.Len(t, imp.Names, 1)
	assert.Equal(t, "join", imp.Names[0].Name)
}

func TestStoreGlobalEmitsDeclaration(t *testing.T) {
	co := &ir.CodeObject{
		Name: "t", Version: ir.Version{Major: 3, Minor: 11},
		Names:     []string{"counter"},
		Constants: []interface{}{int64(0)},
	}
	res := simulate(t, co,
		op{"LOAD_CONST", 0},
		op{"STORE_GLOBAL", 0},
	)
	require.Len(t, res.Stmts, 2)
	decl, ok := res.Stmts[0].(*ast.GlobalStmt)
	require.True(t, ok)
	assert.Equal(t, []string{"counter"}, decl.Names)
	_, ok = res.Stmts[1].(*ast.AssignStmt)
	require.True(t, ok)
}

func TestUnpackSequenceBuildsTupleTarget(t *testing.T) {
	co := &ir.CodeObject{
		Name: "t", Version: ir.Version{Major: 3, Minor: 11},
		Names:    []string{"pair"},
		Varnames: []string{"a", "b"},
	}
	res := simulate(t, co,
		op{"LOAD_NAME", 0},
		op{"UNPACK_SEQUENCE", 2},
		op{"STORE_FAST", 0},
		op{"STORE_FAST", 1},
	)
	// One element-unpacking assignment, never two stores of the iterable.
	require.Len(t, res.Stmts, 1)
	assign := res.Stmts[0].(*ast.AssignStmt)
	require.Len(t, assign.Targets, 1)
	tup, ok := assign.Targets[0].(*ast.TupleExpr)
	require.True(t, ok, "unpack target must be a tuple, got %T", assign.Targets[0])
	require.Len(t, tup.Elts, 2)
	assert.Equal(t, "a", tup.Elts[0].(*ast.NameExpr).Id)
	assert.Equal(t, "b", tup.Elts[1].(*ast.NameExpr).Id)
	assert.Equal(t, "pair", assign.Value.(*ast.NameExpr).Id)
}

func TestUnpackExBuildsStarredTarget(t *testing.T) {
	co := &ir.CodeObject{
		Name: "t", Version: ir.Version{Major: 3, Minor: 11},
		Names:    []string{"xs"},
		Varnames: []string{"head", "rest", "last"},
	}
	res := simulate(t, co,
		op{"LOAD_NAME", 0},
		op{"UNPACK_EX", 1 | 1<<8}, // head, *rest, last
		op{"STORE_FAST", 0},
		op{"STORE_FAST", 1},
		op{"STORE_FAST", 2},
	)
	require.Len(t, res.Stmts, 1)
	tup := res.Stmts[0].(*ast.AssignStmt).Targets[0].(*ast.TupleExpr)
	require.Len(t, tup.Elts, 3)
	star, ok := tup.Elts[1].(*ast.StarredExpr)
	require.True(t, ok, "middle target must be starred, got %T", tup.Elts[1])
	assert.Equal(t, "rest", star.Value.(*ast.NameExpr).Id)
}

func TestGlobalDeclaredOncePerScope(t *testing.T) {
	co := &ir.CodeObject{
		Name: "t", Version: ir.Version{Major: 3, Minor: 11},
		Names:     []string{"counter"},
		Constants: []interface{}{int64(0), int64(1)},
	}
	res := simulate(t, co,
		op{"LOAD_CONST", 0},
		op{"STORE_GLOBAL", 0},
		op{"LOAD_CONST", 1},
		op{"STORE_GLOBAL", 0},
	)
	var decls int
	for _, s := range res.Stmts {
		if _, ok := s.(*ast.GlobalStmt); ok {
			decls++
		}
	}
	assert.Equal(t, 1, decls, "repeated stores must not repeat the global declaration")
	require.Len(t, res.Stmts, 3)
}

func TestChainedCompareLinkFlag(t *testing.T) {
	co := &ir.CodeObject{
		Name: "t", Version: ir.Version{Major: 3, Minor: 9},
		Names: []string{"a", "b"},
	}
	res := simulate(t, co,
		op{"LOAD_NAME", 0},
		op{"LOAD_NAME", 1},
		op{"DUP_TOP", 0},
		op{"ROT_THREE", 0},
		op{"COMPARE_OP", 0}, // <
	)
	assert.True(t, res.ChainCompare, "DUP/ROT prelude must mark the compare as a chain link")

	plain := simulate(t, co,
		op{"LOAD_NAME", 0},
		op{"LOAD_NAME", 1},
		op{"COMPARE_OP", 0},
	)
	assert.False(t, plain.ChainCompare)
}

func TestDiscardedCallSurvivesAsExprStmt(t *testing.T) {
	co := &ir.CodeObject{
		Name: "t", Version: ir.Version{Major: 3, Minor: 11},
		Names: []string{"f"},
	}
	res := simulate(t, co,
		op{"LOAD_NAME", 0},
		op{"CALL_FUNCTION", 0},
		op{"POP_TOP", 0},
	)
	require.Len(t, res.Stmts, 1)
	es, ok := res.Stmts[0].(*ast.ExprStmt)
	require.True(t, ok)
	_, ok = es.Value.(*ast.CallExpr)
	require.True(t, ok)
}

func TestDiscardedNameIsPureStackCleanup(t *testing.T) {
	co := &ir.CodeObject{
		Name: "t", Version: ir.Version{Major: 3, Minor: 11},
		Names: []string{"x"},
	}
	res := simulate(t, co,
		op{"LOAD_NAME", 0},
		op{"POP_TOP", 0},
	)
	assert.Empty(t, res.Stmts)
}

func TestClassPrivateNameUnmangledInClassBody(t *testing.T) {
	co := &ir.CodeObject{
		Name: "C", Version: ir.Version{Major: 3, Minor: 11},
		Names: []string{"_C__secret", "_C__dunder__"},
	}
	env := &sim.Env{Code: co, Table: ir.Table(co.Version), Arena: arena.New(), InClassBody: true}
	insns := []ir.Instruction{
		{Offset: 0, Opcode: "LOAD_NAME", Arg: 0, Size: 2},
	}
	res, err := sim.Simulate(env, &cfg.Block{Insns: insns}, nil)
	require.NoError(t, err)
	e, _ := res.Exit[0].AsExpr()
	// Property 10: mangled private reads emit the double-underscore form.
	assert.Equal(t, "__secret", e.(*ast.NameExpr).Id)

	// Outside a class body the identifier is untouched.
	env.InClassBody = false
	res, err = sim.Simulate(env, &cfg.Block{Insns: insns}, nil)
	require.NoError(t, err)
	e, _ = res.Exit[0].AsExpr()
	assert.Equal(t, "_C__secret", e.(*ast.NameExpr).Id)
}

func TestFlowModeAbsorbsUnderflow(t *testing.T) {
	co := &ir.CodeObject{Name: "t", Version: ir.Version{Major: 3, Minor: 11}}
	env := &sim.Env{Code: co, Table: ir.Table(co.Version)}
	insns := []ir.Instruction{
		{Offset: 0, Opcode: "POP_TOP", Size: 2},
	}
	exit, err := sim.Flow{Env: env}.SimulateFlow(&cfg.Block{Insns: insns}, stackvalue.Stack{})
	require.NoError(t, err)
	assert.Empty(t, exit)
}

func TestEmissionModeUnderflowIsError(t *testing.T) {
	co := &ir.CodeObject{Name: "t", Version: ir.Version{Major: 3, Minor: 11}}
	env := &sim.Env{Code: co, Table: ir.Table(co.Version), Arena: arena.New()}
	insns := []ir.Instruction{
		{Offset: 0, Opcode: "RETURN_VALUE", Size: 2},
	}
	_, err := sim.Simulate(env, &cfg.Block{Insns: insns}, nil)
	require.Error(t, err)
}

func TestBuildSliceAndSubscript(t *testing.T) {
	co := &ir.CodeObject{
		Name: "t", Version: ir.Version{Major: 3, Minor: 11},
		Names:     []string{"xs"},
		Constants: []interface{}{int64(1), int64(5)},
	}
	res := simulate(t, co,
		op{"LOAD_NAME", 0},
		op{"LOAD_CONST", 0},
		op{"LOAD_CONST", 1},
		op{"BUILD_SLICE", 2},
		op{"BINARY_SUBSCR", 0},
	)
	subsc, ok := topExpr(t, res).(*ast.SubscriptExpr)
	require.True(t, ok)
	sl, ok := subsc.Index.(*ast.SliceExpr)
	require.True(t, ok)
	assert.Equal(t, int64(1), sl.Lo.(*ast.ConstantExpr).Value)
	assert.Equal(t, int64(5), sl.Hi.(*ast.ConstantExpr).Value)
}
