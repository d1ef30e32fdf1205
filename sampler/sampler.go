package sampler

import (
	"math/rand"

	"traitforge/core"
	"traitforge/registry"
)

// Sampler draws one variant per trait category per item, honoring rarity
// weights via the cumulative tables built at registry load.
//
// The Sampler itself is stateless; all randomness lives in the *rand.Rand
// passed to Sample, so a caller that seeds the generator gets a reproducible
// draw sequence.
type Sampler struct {
	reg *registry.Registry
}

// New creates a Sampler over the given registry.
func New(reg *registry.Registry) *Sampler {
	return &Sampler{reg: reg}
}

// Sample draws one TraitCombination: a single uniform value in [0,1) per
// category, resolved against the category's cumulative weight table with
// inclusive-lower/exclusive-upper bucket semantics.
//
// Registry validation makes a zero-total-weight category unreachable; the
// check here is defensive only.
func (s *Sampler) Sample(rng *rand.Rand) (Combination, error) {
	cats := s.reg.Categories()
	traits := make([]Trait, 0, len(cats))

	for _, cat := range cats {
		if cat.TotalWeight() <= 0 {
			return Combination{}, core.ErrZeroTotalWeight(cat.Name)
		}
		traits = append(traits, Trait{
			Category: cat,
			Variant:  cat.Pick(rng.Float64()),
		})
	}

	return Combination{Traits: traits}, nil
}
