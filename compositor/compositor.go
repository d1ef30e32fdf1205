// Package compositor flattens a sampled trait combination into one image by
// stacking the chosen layers in category z-order.
package compositor

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"traitforge/registry"
	"traitforge/sampler"
)

// Compositor stacks chosen image layers onto a fresh canvas per item.
// Safe for concurrent use: layers are read-only and every Compose call
// allocates its own canvas, so items never share mutable pixel state.
type Compositor struct {
	reg *registry.Registry
}

// New creates a Compositor over the given registry.
func New(reg *registry.Registry) *Compositor {
	return &Compositor{reg: reg}
}

// Compose renders the combination into a flattened RGBA image.
//
// Layers are composited in ascending z-order using alpha-over blending, so a
// later category's opaque pixels cover earlier ones. Layer dimensions were
// validated at registry load; Compose does not re-check them per item.
func (c *Compositor) Compose(combo sampler.Combination) (*image.RGBA, error) {
	if len(combo.Traits) == 0 {
		return nil, fmt.Errorf("compositor: empty combination")
	}
	if want := len(c.reg.Categories()); len(combo.Traits) != want {
		return nil, fmt.Errorf("compositor: combination has %d traits, registry has %d categories",
			len(combo.Traits), want)
	}

	width, height := c.reg.Dimensions()
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))

	for _, tr := range combo.Traits {
		layer := tr.Variant.Layer
		draw.Draw(canvas, canvas.Bounds(), layer, layer.Bounds().Min, draw.Over)
	}

	return canvas, nil
}
