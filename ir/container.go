package ir

// CodeObject is the parsed-container contract (spec §4.H, §6): everything
// the core needs from one compiled code object, regardless of how the
// container bytes were deserialized. Full container parsing (marshal
// object-graph with reference tracking, big-int sign-magnitude decoding,
// intern tables) is an external collaborator's responsibility and out of
// this core's scope (spec §1); this struct is the seam.
type CodeObject struct {
	Name      string
	QualName  string // "" pre-3.11
	Docstring string // "" when the scope carries no docstring
	Version   Version
	Code      *Stream
	Constants []interface{} // int64 | *big.Int | float64 | string | []byte | tuple | frozenset | *CodeObject
	Names     []string      // attribute/global/predeclared name pool
	Varnames  []string      // local variable names, parameters first
	Freevars  []string
	Cellvars  []string

	ArgCount        int
	PosOnlyArgCount int // 0 pre-3.8; spec §4.I supplement
	KwOnlyArgCount  int
	HasVarArgs      bool
	HasVarKwArgs    bool

	IsGenerator bool
	IsAsync     bool
	IsClassBody bool // Python-2.x-era implicit "return locals()" class bodies

	ExceptionRegions []ExceptionRegion
	Lines            LineTable

	Children []*CodeObject // nested code objects, also reachable via Constants
}

// LineTable resolves an instruction's byte offset to a source line number
// (spec §4.H "line_of"). Decoding the on-disk line-number table format is an
// external collaborator's concern; this is the consumption contract.
type LineTable interface {
	LineOf(offset uint32) uint32
}

// ParseContainer is the external-parser contract (spec §4.H): decode a
// versioned binary container into a CodeObject. This core ships no
// production implementation (magic number, header, and per-version
// marshalled-object-graph decoding are out of scope per spec §1); callers
// supply their own, or use a test fixture that builds a CodeObject directly
// (see the decompile package's tests for the latter).
type ParseContainer func(data []byte) (*CodeObject, error)
