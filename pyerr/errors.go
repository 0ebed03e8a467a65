// Package pyerr implements the typed error taxonomy of spec §7. Every
// fallible core operation returns one of these concrete types (or wraps one
// with fmt.Errorf "%w", matching the teacher's own wrapping idiom in
// lang/compiler/asm.go and lang/machine/machine.go) rather than a bare
// string or a panic. There is no PatternNoMatch error here or elsewhere:
// when no structured pattern applies, the pattern package classifies the
// block as Sequential, so nothing reaches callers.
package pyerr

import "fmt"

// Diagnostic is embedded by every error in this taxonomy except
// OutOfMemory to carry the
// {kind, code_object_name, instruction_offset, block_id?} tuple spec §6
// requires on the error channel.
type Diagnostic struct {
	CodeObjectName string
	Offset         uint32
	BlockID        int32 // -1 if not applicable
}

func (d Diagnostic) locate() string {
	loc := fmt.Sprintf("%s@%d", d.CodeObjectName, d.Offset)
	if d.BlockID >= 0 {
		loc += fmt.Sprintf(" (block %d)", d.BlockID)
	}
	return loc
}

// MalformedBytecode signals a decode or jump-target violation (spec §7).
type MalformedBytecode struct {
	Diagnostic
	Reason string
}

func (e *MalformedBytecode) Error() string {
	return fmt.Sprintf("malformed bytecode at %s: %s", e.locate(), e.Reason)
}

// NewMalformedBytecode constructs a MalformedBytecode at the given offset.
func NewMalformedBytecode(codeObjectName string, offset uint32, reason string) *MalformedBytecode {
	return &MalformedBytecode{Diagnostic: Diagnostic{CodeObjectName: codeObjectName, Offset: offset, BlockID: -1}, Reason: reason}
}

// UnknownOpcode signals a missing opcode-table entry (spec §7).
type UnknownOpcode struct {
	Diagnostic
	VersionString string
	Byte          byte
}

func (e *UnknownOpcode) Error() string {
	return fmt.Sprintf("unknown opcode 0x%02x at %s (version %s)", e.Byte, e.locate(), e.VersionString)
}

// StackUnderflow is fatal in emission mode, absorbed (as an extra Unknown
// slot) in flow mode (spec §7, §4.C).
type StackUnderflow struct {
	Diagnostic
	Opcode string
}

func (e *StackUnderflow) Error() string {
	return fmt.Sprintf("stack underflow at %s executing %s", e.locate(), e.Opcode)
}

// NewStackUnderflow constructs a StackUnderflow at the given offset.
func NewStackUnderflow(codeObjectName string, offset uint32, opcode string) *StackUnderflow {
	return &StackUnderflow{Diagnostic: Diagnostic{CodeObjectName: codeObjectName, Offset: offset, BlockID: -1}, Opcode: opcode}
}

// StackDepthMismatch signals unequal stack depths at a reachable join
// (spec §7, §4.C).
type StackDepthMismatch struct {
	Diagnostic
}

func (e *StackDepthMismatch) Error() string {
	return fmt.Sprintf("stack depth mismatch at %s", e.locate())
}

// NewStackDepthMismatch constructs a StackDepthMismatch for a block.
func NewStackDepthMismatch(codeObjectName string, blockID int32) *StackDepthMismatch {
	return &StackDepthMismatch{Diagnostic{CodeObjectName: codeObjectName, BlockID: blockID}}
}

// NotAnExpression signals an emission site consumed an Unknown StackValue
// where a pure expression was required (spec §7, §4.D "Expression purity
// rule").
type NotAnExpression struct {
	Diagnostic
	Opcode string
}

func (e *NotAnExpression) Error() string {
	return fmt.Sprintf("%s at %s did not produce an expression (unknown value reached an emission site)", e.Opcode, e.locate())
}

// NewNotAnExpression constructs a NotAnExpression at the given offset.
func NewNotAnExpression(codeObjectName string, offset uint32, opcode string) *NotAnExpression {
	return &NotAnExpression{Diagnostic: Diagnostic{CodeObjectName: codeObjectName, Offset: offset, BlockID: -1}, Opcode: opcode}
}

// OutOfMemory is propagated unchanged (spec §7); it exists as a distinct
// type only so callers can type-switch on it without string matching.
type OutOfMemory struct {
	Cause error
}

func (e *OutOfMemory) Error() string { return fmt.Sprintf("out of memory: %s", e.Cause) }
func (e *OutOfMemory) Unwrap() error { return e.Cause }
