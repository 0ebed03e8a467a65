// Package arena implements the bump allocator used to own AST and CFG
// memory for one code object's decompilation (spec §3 "Lifecycle", §5
// "Shared-resource policy"). The teacher repo has no direct analogue (it
// relies on the Go garbage collector throughout), so this package is
// standard-library-only by necessity: an arena is, by definition, a manual
// memory-layout concern that no pack dependency provides a library for, and
// introducing one here would work against the very "no per-node free,
// reset/release en masse" behavior the spec requires.
package arena

// Arena is a bump allocator: it never frees individual values, only resets
// or is discarded wholesale. It is not safe for concurrent use; spec §5
// assigns one arena per code-object decompilation (or one scratch arena per
// block), so no package here needs to synchronize access to it.
type Arena struct {
	nodes []interface{}
}

// New returns a new, empty arena.
func New() *Arena { return &Arena{} }

// Alloc allocates and returns a pointer to a zero-valued T owned by a.
func Alloc[T any](a *Arena) *T {
	v := new(T)
	a.nodes = append(a.nodes, v)
	return v
}

// AllocSlice allocates a slice of n zero-valued T owned by a. Unlike Alloc,
// the backing array is not individually tracked in a.nodes (slices of
// value types carry no further arena-owned pointers to clone), matching
// spec §5's note that scratch allocations stay cheap.
func AllocSlice[T any](a *Arena, n int) []T {
	return make([]T, n)
}

// Reset releases every node a currently owns, for reuse as a fresh scratch
// arena (spec §5: "scratch arena owns transient StackValue slices and is
// reset per block").
func (a *Arena) Reset() {
	a.nodes = a.nodes[:0]
}

// Len reports how many tracked allocations a currently owns (diagnostic
// use only).
func (a *Arena) Len() int { return len(a.nodes) }

// Cloner is implemented by arena-owned values that embed other arena-owned
// pointers and must deep-copy them when moved into a different arena (spec
// §3 "Nested decompilation creates a child arena whose contents are copied
// ... into the parent arena before the child is released").
type Cloner[T any] interface {
	CloneInto(dst *Arena) T
}

// Clone performs a structural copy of v (and everything it owns) into dst,
// returning the new, dst-owned value. It is the single point where a child
// code object's arena-owned AST is folded into its parent.
func Clone[T Cloner[T]](dst *Arena, v T) T {
	return v.CloneInto(dst)
}
