package ir

// Instruction is a single decoded bytecode instruction (spec §3).
// Offset is a byte offset into the bytecode; Size includes any cache slots
// following a specialized 3.11+ instruction for its version.
type Instruction struct {
	Offset uint32
	Opcode string // canonical (despecialized-or-not) opcode name
	Arg    uint32
	Size   uint32
}

// Target computes the absolute byte offset this instruction jumps to, given
// its version's jump-encoding rules (spec §4.A "Leaders", §6). It panics if
// called on a non-jump instruction; callers must check OpInfo.IsJump first
// (a decoder bug, not a malformed-input condition).
func (in Instruction) Target(v Version, info OpInfo) uint32 {
	if !info.IsJump {
		panic("ir: Target called on non-jump instruction " + in.Opcode)
	}
	if info.Name == "JUMP_ABSOLUTE" {
		// Absolute jumps (pre-3.10 era opcode retained for forward-incompatible
		// fixtures) address bytes directly regardless of version.
		return in.Arg
	}
	if v.JumpIsRelativeFromNext() {
		// 3.10+: relative, word units, measured from the instruction after the
		// jump; the BACKWARD forms subtract instead (3.11 split direction
		// into the opcode, keeping the argument unsigned).
		switch info.Name {
		case "JUMP_BACKWARD", "POP_JUMP_BACKWARD_IF_FALSE", "POP_JUMP_BACKWARD_IF_TRUE":
			return in.Offset + in.Size - in.Arg*2
		}
		return in.Offset + in.Size + in.Arg*2
	}
	// pre-3.10: relative, byte units, measured from the instruction after the
	// jump (JUMP_FORWARD) or absolute byte offset (most other jumps encode
	// absolute targets pre-3.10; FOR_ITER/JUMP_FORWARD are relative).
	if info.Name == "JUMP_FORWARD" || info.Name == "FOR_ITER" || info.Name == "SETUP_FINALLY" || info.Name == "SETUP_WITH" {
		return in.Offset + in.Size + in.Arg
	}
	return in.Arg
}

// Stream is a decoded, in-order instruction sequence for one code object's
// bytecode, plus an offset->index index for O(1) lookup (spec §4.A).
type Stream struct {
	Version      Version
	Instructions []Instruction
	offsetIndex  map[uint32]int
}

// NewStream builds a Stream and its offset index.
func NewStream(v Version, insns []Instruction) *Stream {
	idx := make(map[uint32]int, len(insns))
	for i, in := range insns {
		idx[in.Offset] = i
	}
	return &Stream{Version: v, Instructions: insns, offsetIndex: idx}
}

// IndexAt returns the instruction index starting at the given byte offset,
// or false if no instruction starts there (a malformed jump target, spec
// §4.A failure modes).
func (s *Stream) IndexAt(offset uint32) (int, bool) {
	i, ok := s.offsetIndex[offset]
	return i, ok
}

// End returns the byte offset one past the last instruction.
func (s *Stream) End() uint32 {
	if len(s.Instructions) == 0 {
		return 0
	}
	last := s.Instructions[len(s.Instructions)-1]
	return last.Offset + last.Size
}
