package pattern_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/depyc/cfg"
	"github.com/mna/depyc/ir"
	"github.com/mna/depyc/pattern"
)

type op struct {
	name string
	arg  uint32
}

func build(t *testing.T, v ir.Version, regions []ir.ExceptionRegion, ops ...op) (*cfg.Graph, *pattern.Detector) {
	t.Helper()
	insns := make([]ir.Instruction, len(ops))
	for i, o := range ops {
		insns[i] = ir.Instruction{Offset: uint32(i) * 2, Opcode: o.name, Arg: o.arg, Size: 2}
	}
	stream := ir.NewStream(v, insns)
	table := ir.Table(v)
	g, err := cfg.BuildCFG("t", stream, table, regions)
	require.NoError(t, err)
	dom := cfg.Analyze(g)
	return g, pattern.New(g, dom, table, regions)
}

func TestClassifyIfWithImpureBranches(t *testing.T) {
	v := ir.Version{Major: 3, Minor: 11}
	g, d := build(t, v, nil,
		op{"LOAD_NAME", 0},
		op{"POP_JUMP_IF_FALSE", 2}, // -> 8
		op{"LOAD_CONST", 0},
		op{"STORE_NAME", 1}, // a statement: not a ternary branch
		op{"LOAD_CONST", 1},
		op{"RETURN_VALUE", 0},
	)
	c := d.Classify(g.Entry().ID)
	assert.Equal(t, pattern.If, c.Kind)
	assert.True(t, c.HasElse)
}

func TestClassifyTernaryWithPureBranches(t *testing.T) {
	v := ir.Version{Major: 3, Minor: 11}
	g, d := build(t, v, nil,
		op{"LOAD_NAME", 0},
		op{"POP_JUMP_IF_FALSE", 2}, // -> 8
		op{"LOAD_CONST", 0},
		op{"JUMP_FORWARD", 1}, // -> 10
		op{"LOAD_CONST", 1},
		op{"STORE_NAME", 1},
		op{"RETURN_VALUE", 0},
	)
	c := d.Classify(g.Entry().ID)
	assert.Equal(t, pattern.Ternary, c.Kind)
}

func TestClassifyWhileHeader(t *testing.T) {
	v := ir.Version{Major: 3, Minor: 8}
	g, d := build(t, v, nil,
		op{"LOAD_NAME", 0},
		op{"POP_JUMP_IF_FALSE", 10},
		op{"LOAD_NAME", 0},
		op{"STORE_NAME", 0},
		op{"JUMP_ABSOLUTE", 0},
		op{"RETURN_VALUE", 0},
	)
	c := d.Classify(g.Entry().ID)
	assert.Equal(t, pattern.While, c.Kind)
}

func TestClassifyForHeader(t *testing.T) {
	v := ir.Version{Major: 3, Minor: 9}
	g, d := build(t, v, nil,
		op{"LOAD_NAME", 0},
		op{"GET_ITER", 0},
		op{"FOR_ITER", 4}, // -> 10
		op{"STORE_FAST", 0},
		op{"JUMP_ABSOLUTE", 4},
		op{"RETURN_VALUE", 0},
	)
	header, ok := g.BlockContaining(4)
	require.True(t, ok)
	c := d.Classify(header.ID)
	assert.Equal(t, pattern.For, c.Kind)
	assert.True(t, g.Blocks[header.ID].IsLoopHeader)
}

func TestClassifyTryAndStarHandler(t *testing.T) {
	v := ir.Version{Major: 3, Minor: 12}
	regions := []ir.ExceptionRegion{{Start: 0, End: 4, Handler: 6}}
	g, d := build(t, v, regions,
		op{"LOAD_NAME", 0},
		op{"STORE_NAME", 1},
		op{"JUMP_FORWARD", 4}, // -> 14
		op{"PUSH_EXC_INFO", 0},
		op{"LOAD_NAME", 2},
		op{"CHECK_EG_MATCH", 0},
		op{"RERAISE", 0},
		op{"RETURN_VALUE", 0},
	)
	c := d.Classify(g.Entry().ID)
	require.Equal(t, pattern.Try, c.Kind)
	require.Len(t, c.Handlers, 1)
	assert.True(t, c.Handlers[0].IsStar)
}

func TestClassifyPlainExceptHandlerNotStar(t *testing.T) {
	v := ir.Version{Major: 3, Minor: 11}
	regions := []ir.ExceptionRegion{{Start: 0, End: 4, Handler: 6}}
	g, d := build(t, v, regions,
		op{"LOAD_NAME", 0},
		op{"STORE_NAME", 1},
		op{"JUMP_FORWARD", 4}, // -> 14
		op{"PUSH_EXC_INFO", 0},
		op{"LOAD_NAME", 2},
		op{"CHECK_EXC_MATCH", 0},
		op{"RERAISE", 0},
		op{"RETURN_VALUE", 0},
	)
	c := d.Classify(g.Entry().ID)
	require.Equal(t, pattern.Try, c.Kind)
	require.Len(t, c.Handlers, 1)
	// Property 9: a plain except never decodes as the star form.
	assert.False(t, c.Handlers[0].IsStar)
}

func TestWithCleanupHandlerIsNotTry(t *testing.T) {
	v := ir.Version{Major: 3, Minor: 11}
	regions := []ir.ExceptionRegion{{Start: 0, End: 6, Handler: 8}}
	g, d := build(t, v, regions,
		op{"LOAD_NAME", 0},
		op{"BEFORE_WITH", 0},
		op{"POP_TOP", 0},
		op{"JUMP_FORWARD", 2}, // -> 12
		op{"WITH_EXCEPT_START", 0},
		op{"RERAISE", 0},
		op{"RETURN_VALUE", 0},
	)
	c := d.Classify(g.Entry().ID)
	assert.Equal(t, pattern.With, c.Kind)
}

func TestClassifyMatchChainWithWildcardLast(t *testing.T) {
	v := ir.Version{Major: 3, Minor: 11}
	g, d := build(t, v, nil,
		op{"LOAD_NAME", 0},
		op{"MATCH_SEQUENCE", 0},
		op{"POP_JUMP_IF_FALSE", 2}, // -> 10
		op{"POP_TOP", 0},
		op{"JUMP_FORWARD", 1}, // -> 12
		op{"POP_TOP", 0},
		op{"RETURN_VALUE", 0},
	)
	c := d.Classify(g.Entry().ID)
	require.Equal(t, pattern.Match, c.Kind)
	// One matched case plus the trailing wildcard body block.
	assert.Len(t, c.Cases, 2)
}

func TestClassifyBoolShortCircuit(t *testing.T) {
	v := ir.Version{Major: 3, Minor: 11}
	g, d := build(t, v, nil,
		op{"LOAD_NAME", 0},
		op{"JUMP_IF_FALSE_OR_POP", 1}, // -> 6
		op{"LOAD_NAME", 1},
		op{"STORE_NAME", 2},
		op{"RETURN_VALUE", 0},
	)
	c := d.Classify(g.Entry().ID)
	assert.Equal(t, pattern.BoolShortCircuit, c.Kind)
}

func TestClassificationIsCached(t *testing.T) {
	v := ir.Version{Major: 3, Minor: 11}
	g, d := build(t, v, nil,
		op{"LOAD_NAME", 0},
		op{"RETURN_VALUE", 0},
	)
	first := d.Classify(g.Entry().ID)
	second := d.Classify(g.Entry().ID)
	assert.Equal(t, first, second)
}
