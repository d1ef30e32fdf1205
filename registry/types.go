// Package registry loads and validates the trait configuration: layer
// categories, per-variant rarity weights, and the image layer resources
// they reference.
//
// The registry is read-only after Load. Layer images are decoded once at
// load time so no I/O happens mid-sample, and each category's cumulative
// weight table is built once and reused for every draw.
package registry

import "image"

// TraitVariant is one concrete choice within a category, carrying a rarity
// weight and a pre-decoded image layer.
type TraitVariant struct {
	// Category is the name of the owning category.
	Category string

	// Name is the display name, unique within the category.
	Name string

	// Weight is the relative likelihood of this variant being chosen.
	// Always > 0; weights within a category need not sum to 1.
	Weight float64

	// LayerPath is the configured path of the image layer resource.
	LayerPath string

	// Layer is the decoded image layer, shared read-only across draws.
	Layer image.Image
}

// TraitCategory is a layer slot with mutually exclusive variants.
type TraitCategory struct {
	// Name is the category name, unique across the registry.
	Name string

	// ZOrder determines compositing order, lower first. Unique across
	// categories.
	ZOrder int

	// Numeric flags the category's variant values as numbers in emitted
	// metadata.
	Numeric bool

	// Variants holds the declared variants in configuration order.
	Variants []*TraitVariant

	// bounds[i] is the normalized cumulative upper bound of Variants[i].
	// Built once at load; bounds[len-1] is 1.
	bounds []float64

	// total is the raw weight sum, retained for the sampler's defensive
	// zero-weight check.
	total float64
}

// TotalWeight returns the raw sum of variant weights in this category.
func (c *TraitCategory) TotalWeight() float64 {
	return c.total
}

// Pick returns the variant whose cumulative probability bucket contains u,
// where u is a uniform draw in [0,1). Bucket semantics are inclusive-lower,
// exclusive-upper: the first variant whose cumulative bound strictly exceeds
// u wins.
func (c *TraitCategory) Pick(u float64) *TraitVariant {
	for i, bound := range c.bounds {
		if u < bound {
			return c.Variants[i]
		}
	}
	// Rounding can leave the final bound fractionally below 1; the last
	// bucket owns the remainder.
	return c.Variants[len(c.Variants)-1]
}

// Variant returns the named variant, or nil if the category has no variant
// with that name.
func (c *TraitCategory) Variant(name string) *TraitVariant {
	for _, v := range c.Variants {
		if v.Name == name {
			return v
		}
	}
	return nil
}
