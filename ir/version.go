// Package ir defines the contracts this core consumes from its external
// collaborators: a decoded instruction stream, a per-version opcode table,
// despecialization of adaptive 3.11+ opcodes, and exception-region/line
// decoding (spec §4.H, §6). Container parsing (magic number, marshalled
// object graph, big-int encoding) and full per-version opcode coverage are
// out of scope for this core; this package ships the contract shapes plus
// one reference opcode table covering the version milestones the core's
// tests exercise.
package ir

import "fmt"

// Version gates opcode semantics, jump encoding, exception-table presence,
// and argument width, per spec §3 "Version".
type Version struct {
	Major, Minor int
}

func (v Version) String() string { return fmt.Sprintf("%d.%d", v.Major, v.Minor) }

// Less reports whether v precedes other.
func (v Version) Less(other Version) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	return v.Minor < other.Minor
}

// AtLeast reports whether v is the same as, or later than, other.
func (v Version) AtLeast(other Version) bool { return !v.Less(other) }

// HasExceptionTable reports whether code objects at this version carry a
// variable-length exception table (3.11+) rather than SETUP_* opcodes with
// common-successor handler discovery (spec §6, §4.E "Try").
func (v Version) HasExceptionTable() bool { return v.AtLeast(Version{3, 11}) }

// HasQualname reports whether code objects carry a qualname field (added
// 3.11, spec §6).
func (v Version) HasQualname() bool { return v.AtLeast(Version{3, 11}) }

// HasPosOnlyArgCount reports whether code objects carry a separate
// positional-only argument count (added 3.8, spec §6).
func (v Version) HasPosOnlyArgCount() bool { return v.AtLeast(Version{3, 8}) }

// ArgByteWidth returns the number of bytes used to encode an instruction's
// fixed-width argument slot, before EXTENDED_ARG chaining. Pre-3.6 uses
// either 1 or 3 bytes (no cache, no 2-byte uniform width); 3.6+ uses a
// uniform 2 bytes (opcode + 1-byte arg), per spec §6.
func (v Version) ArgByteWidth() int {
	if v.Less(Version{3, 6}) {
		return 3
	}
	return 2
}

// JumpIsRelativeFromNext reports whether the version uses the 3.10+ jump
// encoding, where relative jump arguments count words; before 3.10 they
// count bytes. Both encodings measure a relative target from the
// instruction after the jump (see Instruction.Target), per spec §6.
func (v Version) JumpIsRelativeFromNext() bool { return v.AtLeast(Version{3, 10}) }

// CompareArgShift returns the number of bits COMPARE_OP's argument must be
// shifted right by to obtain the comparison kind; 0 for <=3.12 (low bits
// used directly), 5 for 3.13+ (spec §6).
func (v Version) CompareArgShift() int {
	if v.AtLeast(Version{3, 13}) {
		return 5
	}
	return 0
}

// HaveArgumentThreshold returns the opcode byte value at/above which an
// instruction carries an argument. This shifts from the historical 90 to
// 43 starting at 3.14 once CPython rebased the low opcode numbers onto the
// "pseudo" adaptive instruction set (spec §6).
func (v Version) HaveArgumentThreshold() byte {
	if v.AtLeast(Version{3, 14}) {
		return 43
	}
	return 90
}

// InlineCacheStride reports how many trailing CACHE-opcode slots follow a
// specialized instruction of family f at this version; 0 before 3.11, since
// inline caches were introduced in 3.11's specializing adaptive interpreter.
func (v Version) InlineCacheStride(f Family) int {
	if v.Less(Version{3, 11}) {
		return 0
	}
	return cacheStrides[f]
}

var cacheStrides = map[Family]int{
	FamilyAttr:    4,
	FamilyCall:    4,
	FamilyCompare: 2,
	FamilyBinary:  1,
}
