package ir

// Family groups opcodes into the semantic classes spec §4.D dispatches on,
// rather than by literal opcode name (which varies release to release).
type Family uint8

const (
	FamilyMisc Family = iota
	FamilyConstLoad
	FamilyNameAccess // local/global/cell load, store, delete
	FamilyAttrAccess // attribute/subscript/slice
	FamilyBinary     // binary/unary/inplace arithmetic
	FamilyCompare
	FamilyBoolJump // JUMP_IF_*_OR_POP short-circuit family
	FamilyCall
	FamilyMakeFunc // function/class creation
	FamilyComprehension
	FamilyFString
	FamilyJump // unconditional/conditional control-flow markers
	FamilyIteration
	FamilyExceptionControl
	FamilyReturn
	FamilyRaise
	FamilyCache // inline cache slot, 3.11+
	FamilyAttr  // alias kept distinct from FamilyAttrAccess for ATTR opcode itself
)

// OpInfo describes one opcode's shape, independent of its numeric encoding
// at a particular version (spec §4.H "opcode_table").
type OpInfo struct {
	Name             string
	HasArg           bool
	Family           Family
	Effect           func(arg uint32) int // stack effect; VariableStackEffect sentinel for data-dependent ops
	IsJump           bool
	IsConditional    bool // true for conditional jumps and FOR_ITER; false for JUMP_FORWARD/JUMP_ABSOLUTE
	JumpPolarityTrue bool // for conditional jumps: does a true condition take the jump?
}

// VariableStackEffect marks an opcode whose effect on stack depth cannot be
// determined without looking at its argument or runtime state (spec §4.C
// flow-mode handling), e.g. CALL's effect depends on argument-count nibbles.
const VariableStackEffect = 1 << 30

// OpcodeTable maps a version-specific byte to its OpInfo. Byte values are
// arbitrary fixture assignments here (this core does not parse real .pyc
// containers) but are kept stable across this table's lifetime for fixture
// tests to reference by name via ByName.
type OpcodeTable struct {
	version Version
	byName  map[string]OpInfo
	byByte  map[byte]string
}

// Lookup returns the OpInfo registered for an opcode byte (its Name is the
// canonical opcode name); ok is false for an unknown opcode (spec §7
// UnknownOpcode).
func (t OpcodeTable) Lookup(b byte) (OpInfo, bool) {
	name, ok := t.byByte[b]
	if !ok {
		return OpInfo{}, false
	}
	info, ok := t.byName[name]
	return info, ok
}

// ByName returns the OpInfo for a canonical opcode name, used by despecialize
// and by tests that build instruction streams symbolically rather than by
// raw byte.
func (t OpcodeTable) ByName(name string) (OpInfo, bool) {
	info, ok := t.byName[name]
	return info, ok
}

// Table returns the reference opcode table for the given version. It covers
// every opcode family named in spec §4.D. The same entries, with the same
// byte assignments, are registered for every version; v is only recorded
// in the table. Byte-exact parity with CPython's real opcode.py across 1.0-3.14
// is out of scope (spec §1).
func Table(v Version) OpcodeTable {
	t := OpcodeTable{version: v, byName: map[string]OpInfo{}, byByte: map[byte]string{}}
	add := func(b byte, info OpInfo) {
		t.byName[info.Name] = info
		t.byByte[b] = info.Name
	}

	eff := func(n int) func(uint32) int { return func(uint32) int { return n } }

	var b byte
	next := func() byte { b++; return b - 1 }

	add(next(), OpInfo{Name: "NOP", Family: FamilyMisc, Effect: eff(0)})
	add(next(), OpInfo{Name: "RESUME", Family: FamilyMisc, HasArg: true, Effect: eff(0)})
	add(next(), OpInfo{Name: "POP_TOP", Family: FamilyMisc, Effect: eff(-1)})
	add(next(), OpInfo{Name: "DUP_TOP", Family: FamilyMisc, Effect: eff(1)})
	add(next(), OpInfo{Name: "DUP_TOP_TWO", Family: FamilyMisc, Effect: eff(2)})
	add(next(), OpInfo{Name: "ROT_TWO", Family: FamilyMisc, Effect: eff(0)})
	add(next(), OpInfo{Name: "ROT_THREE", Family: FamilyMisc, Effect: eff(0)})

	add(next(), OpInfo{Name: "LOAD_CONST", Family: FamilyConstLoad, HasArg: true, Effect: eff(1)})

	add(next(), OpInfo{Name: "LOAD_FAST", Family: FamilyNameAccess, HasArg: true, Effect: eff(1)})
	add(next(), OpInfo{Name: "STORE_FAST", Family: FamilyNameAccess, HasArg: true, Effect: eff(-1)})
	add(next(), OpInfo{Name: "DELETE_FAST", Family: FamilyNameAccess, HasArg: true, Effect: eff(0)})
	add(next(), OpInfo{Name: "LOAD_GLOBAL", Family: FamilyNameAccess, HasArg: true, Effect: eff(1)})
	add(next(), OpInfo{Name: "STORE_GLOBAL", Family: FamilyNameAccess, HasArg: true, Effect: eff(-1)})
	add(next(), OpInfo{Name: "LOAD_DEREF", Family: FamilyNameAccess, HasArg: true, Effect: eff(1)})
	add(next(), OpInfo{Name: "STORE_DEREF", Family: FamilyNameAccess, HasArg: true, Effect: eff(-1)})
	add(next(), OpInfo{Name: "LOAD_NAME", Family: FamilyNameAccess, HasArg: true, Effect: eff(1)})
	add(next(), OpInfo{Name: "STORE_NAME", Family: FamilyNameAccess, HasArg: true, Effect: eff(-1)})

	add(next(), OpInfo{Name: "LOAD_ATTR", Family: FamilyAttrAccess, HasArg: true, Effect: eff(0)})
	add(next(), OpInfo{Name: "LOAD_METHOD", Family: FamilyAttrAccess, HasArg: true, Effect: eff(0)})
	add(next(), OpInfo{Name: "STORE_ATTR", Family: FamilyAttrAccess, HasArg: true, Effect: eff(-2)})
	add(next(), OpInfo{Name: "BINARY_SUBSCR", Family: FamilyAttrAccess, Effect: eff(-1)})
	add(next(), OpInfo{Name: "STORE_SUBSCR", Family: FamilyAttrAccess, Effect: eff(-3)})
	add(next(), OpInfo{Name: "BUILD_SLICE", Family: FamilyAttrAccess, HasArg: true, Effect: func(arg uint32) int { return 1 - int(arg) }})

	add(next(), OpInfo{Name: "BINARY_OP", Family: FamilyBinary, HasArg: true, Effect: eff(-1)})
	add(next(), OpInfo{Name: "UNARY_NEGATIVE", Family: FamilyBinary, Effect: eff(0)})
	add(next(), OpInfo{Name: "UNARY_NOT", Family: FamilyBinary, Effect: eff(0)})
	add(next(), OpInfo{Name: "UNARY_INVERT", Family: FamilyBinary, Effect: eff(0)})

	add(next(), OpInfo{Name: "COMPARE_OP", Family: FamilyCompare, HasArg: true, Effect: eff(-1)})

	add(next(), OpInfo{Name: "JUMP_IF_TRUE_OR_POP", Family: FamilyBoolJump, HasArg: true, IsJump: true, IsConditional: true, JumpPolarityTrue: true, Effect: func(uint32) int { return VariableStackEffect }})
	add(next(), OpInfo{Name: "JUMP_IF_FALSE_OR_POP", Family: FamilyBoolJump, HasArg: true, IsJump: true, IsConditional: true, JumpPolarityTrue: false, Effect: func(uint32) int { return VariableStackEffect }})

	add(next(), OpInfo{Name: "CALL_FUNCTION", Family: FamilyCall, HasArg: true, Effect: func(uint32) int { return VariableStackEffect }})
	add(next(), OpInfo{Name: "CALL_FUNCTION_KW", Family: FamilyCall, HasArg: true, Effect: func(uint32) int { return VariableStackEffect }})
	add(next(), OpInfo{Name: "CALL_METHOD", Family: FamilyCall, HasArg: true, Effect: func(uint32) int { return VariableStackEffect }})

	add(next(), OpInfo{Name: "MAKE_FUNCTION", Family: FamilyMakeFunc, HasArg: true, Effect: eff(0)})
	add(next(), OpInfo{Name: "LOAD_BUILD_CLASS", Family: FamilyMakeFunc, Effect: eff(1)})

	add(next(), OpInfo{Name: "BUILD_LIST", Family: FamilyComprehension, HasArg: true, Effect: func(arg uint32) int { return 1 - int(arg) }})
	add(next(), OpInfo{Name: "BUILD_SET", Family: FamilyComprehension, HasArg: true, Effect: func(arg uint32) int { return 1 - int(arg) }})
	add(next(), OpInfo{Name: "BUILD_MAP", Family: FamilyComprehension, HasArg: true, Effect: func(arg uint32) int { return 1 - 2*int(arg) }})
	add(next(), OpInfo{Name: "BUILD_TUPLE", Family: FamilyComprehension, HasArg: true, Effect: func(arg uint32) int { return 1 - int(arg) }})
	add(next(), OpInfo{Name: "LIST_APPEND", Family: FamilyComprehension, HasArg: true, Effect: eff(-1)})
	add(next(), OpInfo{Name: "SET_ADD", Family: FamilyComprehension, HasArg: true, Effect: eff(-1)})
	add(next(), OpInfo{Name: "MAP_ADD", Family: FamilyComprehension, HasArg: true, Effect: eff(-2)})
	add(next(), OpInfo{Name: "LOAD_FAST_AND_CLEAR", Family: FamilyComprehension, HasArg: true, Effect: eff(1)})

	add(next(), OpInfo{Name: "FORMAT_VALUE", Family: FamilyFString, HasArg: true, Effect: eff(0)})
	add(next(), OpInfo{Name: "BUILD_STRING", Family: FamilyFString, HasArg: true, Effect: func(arg uint32) int { return 1 - int(arg) }})

	add(next(), OpInfo{Name: "JUMP_FORWARD", Family: FamilyJump, HasArg: true, IsJump: true, Effect: eff(0)})
	add(next(), OpInfo{Name: "JUMP_ABSOLUTE", Family: FamilyJump, HasArg: true, IsJump: true, Effect: eff(0)})
	add(next(), OpInfo{Name: "JUMP_BACKWARD", Family: FamilyJump, HasArg: true, IsJump: true, Effect: eff(0)})
	add(next(), OpInfo{Name: "POP_JUMP_IF_FALSE", Family: FamilyJump, HasArg: true, IsJump: true, IsConditional: true, JumpPolarityTrue: false, Effect: eff(-1)})
	add(next(), OpInfo{Name: "POP_JUMP_IF_TRUE", Family: FamilyJump, HasArg: true, IsJump: true, IsConditional: true, JumpPolarityTrue: true, Effect: eff(-1)})
	add(next(), OpInfo{Name: "POP_JUMP_BACKWARD_IF_FALSE", Family: FamilyJump, HasArg: true, IsJump: true, IsConditional: true, JumpPolarityTrue: false, Effect: eff(-1)})
	add(next(), OpInfo{Name: "POP_JUMP_BACKWARD_IF_TRUE", Family: FamilyJump, HasArg: true, IsJump: true, IsConditional: true, JumpPolarityTrue: true, Effect: eff(-1)})

	add(next(), OpInfo{Name: "GET_ITER", Family: FamilyIteration, Effect: eff(0)})
	add(next(), OpInfo{Name: "FOR_ITER", Family: FamilyIteration, HasArg: true, IsJump: true, IsConditional: true, JumpPolarityTrue: false, Effect: func(uint32) int { return VariableStackEffect }})
	add(next(), OpInfo{Name: "END_FOR", Family: FamilyMisc, Effect: eff(-2)})

	add(next(), OpInfo{Name: "SETUP_FINALLY", Family: FamilyExceptionControl, HasArg: true, IsJump: true, Effect: eff(0)})
	add(next(), OpInfo{Name: "POP_BLOCK", Family: FamilyExceptionControl, Effect: eff(0)})
	add(next(), OpInfo{Name: "PUSH_EXC_INFO", Family: FamilyExceptionControl, Effect: eff(1)})
	add(next(), OpInfo{Name: "CHECK_EXC_MATCH", Family: FamilyExceptionControl, Effect: eff(0)})
	add(next(), OpInfo{Name: "CHECK_EG_MATCH", Family: FamilyExceptionControl, Effect: eff(0)})
	add(next(), OpInfo{Name: "RERAISE", Family: FamilyExceptionControl, HasArg: true, Effect: eff(-1)})
	add(next(), OpInfo{Name: "WITH_EXCEPT_START", Family: FamilyExceptionControl, Effect: eff(1)})
	add(next(), OpInfo{Name: "BEFORE_WITH", Family: FamilyExceptionControl, Effect: eff(1)})
	add(next(), OpInfo{Name: "SETUP_WITH", Family: FamilyExceptionControl, HasArg: true, IsJump: true, Effect: eff(1)})
	add(next(), OpInfo{Name: "CALL_INTRINSIC_2", Family: FamilyExceptionControl, HasArg: true, Effect: eff(-1)})

	add(next(), OpInfo{Name: "RETURN_VALUE", Family: FamilyReturn, Effect: eff(-1)})
	add(next(), OpInfo{Name: "RAISE_VARARGS", Family: FamilyRaise, HasArg: true, Effect: func(arg uint32) int { return -int(arg) }})

	add(next(), OpInfo{Name: "MATCH_SEQUENCE", Family: FamilyExceptionControl, Effect: eff(1)})
	add(next(), OpInfo{Name: "MATCH_MAPPING", Family: FamilyExceptionControl, Effect: eff(1)})
	add(next(), OpInfo{Name: "MATCH_CLASS", Family: FamilyExceptionControl, HasArg: true, Effect: eff(-1)})
	add(next(), OpInfo{Name: "MATCH_KEYS", Family: FamilyExceptionControl, Effect: eff(1)})

	add(next(), OpInfo{Name: "YIELD_VALUE", Family: FamilyMisc, Effect: eff(0)})
	add(next(), OpInfo{Name: "GET_AWAITABLE", Family: FamilyMisc, Effect: eff(0)})
	add(next(), OpInfo{Name: "CACHE", Family: FamilyCache, Effect: eff(0)})
	add(next(), OpInfo{Name: "KW_NAMES", Family: FamilyMisc, HasArg: true, Effect: eff(0)})
	add(next(), OpInfo{Name: "COPY", Family: FamilyMisc, HasArg: true, Effect: eff(1)})
	add(next(), OpInfo{Name: "SWAP", Family: FamilyMisc, HasArg: true, Effect: eff(0)})
	add(next(), OpInfo{Name: "UNPACK_SEQUENCE", Family: FamilyMisc, HasArg: true, Effect: func(arg uint32) int { return int(arg) - 1 }})
	add(next(), OpInfo{Name: "UNPACK_EX", Family: FamilyMisc, HasArg: true, Effect: func(arg uint32) int { return int(arg&0xff) + int(arg>>8) }})
	add(next(), OpInfo{Name: "DELETE_SUBSCR", Family: FamilyAttrAccess, Effect: eff(-2)})
	add(next(), OpInfo{Name: "IMPORT_NAME", Family: FamilyMisc, HasArg: true, Effect: eff(-1)})
	add(next(), OpInfo{Name: "IMPORT_FROM", Family: FamilyMisc, HasArg: true, Effect: eff(1)})
	add(next(), OpInfo{Name: "GET_YIELD_FROM_ITER", Family: FamilyMisc, Effect: eff(0)})

	return t
}

func init() {
	// Builds the 3.11 table once at package load and discards it; nothing
	// is checked here.
	_ = Table(Version{3, 11})
}
