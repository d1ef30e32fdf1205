// Package tracker enforces global uniqueness of trait combinations across a
// collection run.
//
// Uniqueness is tracked over hashed canonical signatures (a set of strings)
// so duplicate checks stay near constant time for large collections. The
// package also owns the analytic capacity pre-check that makes impossible
// runs fail before sampling ever starts.
package tracker

import (
	"traitforge/core"
	"traitforge/registry"
)

// Tracker records the canonical signatures of combinations already produced.
// Not safe for concurrent use; the collection builder drives it from the
// single sequential generation stream.
type Tracker struct {
	seen map[string]struct{}
}

// New creates a Tracker sized for the expected collection size.
func New(expected int) *Tracker {
	if expected < 0 {
		expected = 0
	}
	return &Tracker{seen: make(map[string]struct{}, expected)}
}

// IsNew reports whether the signature has not been recorded yet.
func (t *Tracker) IsNew(signature string) bool {
	_, exists := t.seen[signature]
	return !exists
}

// Record marks the signature as produced. Recording an existing signature is
// a no-op.
func (t *Tracker) Record(signature string) {
	t.seen[signature] = struct{}{}
}

// Len returns the number of distinct signatures recorded.
func (t *Tracker) Len() int {
	return len(t.seen)
}

// CheckCapacity verifies analytically that the registry's combinatorial
// space can hold the requested collection size. When the product of
// per-category variant counts is smaller than the request, uniqueness is
// mathematically impossible and a core.CapacityError is returned before any
// sampling happens.
func CheckCapacity(reg *registry.Registry, requested int) error {
	capacity, exact := reg.Capacity()
	if !exact {
		// Product overflowed uint64; no realistic request can exceed it.
		return nil
	}
	if uint64(requested) > capacity {
		return &core.CapacityError{Requested: requested, Available: capacity}
	}
	return nil
}
