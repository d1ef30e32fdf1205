// Package sampler draws trait combinations from a registry under
// weighted-rarity distributions.
//
// Sampling is deterministic given a fixed *rand.Rand state, which is what
// makes seeded collection runs reproducible byte for byte.
package sampler

import (
	"strings"

	"traitforge/registry"
)

// Trait pairs a category with its chosen variant.
type Trait struct {
	Category *registry.TraitCategory
	Variant  *registry.TraitVariant
}

// Combination is an ordered mapping from category to chosen variant,
// covering every category exactly once in ascending z-order. Combinations
// are immutable once returned by Sample.
type Combination struct {
	Traits []Trait
}

// Signature returns the canonical serialization used for uniqueness checks:
// category=variant pairs in z-order, pipe-joined. Stable across runs for a
// given registry.
func (c Combination) Signature() string {
	var b strings.Builder
	for i, tr := range c.Traits {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(tr.Category.Name)
		b.WriteByte('=')
		b.WriteString(tr.Variant.Name)
	}
	return b.String()
}

// Variant returns the chosen variant for the named category, or nil if the
// combination has no such category.
func (c Combination) Variant(category string) *registry.TraitVariant {
	for _, tr := range c.Traits {
		if tr.Category.Name == category {
			return tr.Variant
		}
	}
	return nil
}
