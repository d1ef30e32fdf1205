package metadata

import (
	"fmt"
	"strconv"
	"strings"

	"traitforge/registry"
	"traitforge/sampler"
)

// EmitterConfig holds the templating options for metadata documents.
type EmitterConfig struct {
	// NameTemplate is the item name; {index} is substituted.
	NameTemplate string

	// DescriptionTemplate is the item description; {index} is substituted.
	DescriptionTemplate string

	// ImageBaseURL prefixes the image field. Empty means a bare
	// "{index}.png" filename, suitable for directory-relative hosting.
	ImageBaseURL string

	// DisplayOrder lists category names in attribute order. Empty means
	// z-order. When set it must name every category exactly once.
	DisplayOrder []string
}

// DefaultEmitterConfig returns sensible defaults.
func DefaultEmitterConfig() EmitterConfig {
	return EmitterConfig{
		NameTemplate: "Item #{index}",
	}
}

// Emitter converts trait combinations into metadata documents.
// Safe for concurrent use: emission reads only immutable inputs.
type Emitter struct {
	reg    *registry.Registry
	config EmitterConfig

	// order holds the categories in attribute display order.
	order []*registry.TraitCategory
}

// New creates an Emitter, validating the display order against the registry.
func New(reg *registry.Registry, config EmitterConfig) (*Emitter, error) {
	if config.NameTemplate == "" {
		config.NameTemplate = "Item #{index}"
	}

	cats := reg.Categories()
	order := cats
	if len(config.DisplayOrder) > 0 {
		if len(config.DisplayOrder) != len(cats) {
			return nil, fmt.Errorf("metadata: display order names %d categories, registry has %d",
				len(config.DisplayOrder), len(cats))
		}
		order = make([]*registry.TraitCategory, 0, len(cats))
		seen := make(map[string]bool, len(cats))
		for _, name := range config.DisplayOrder {
			if seen[name] {
				return nil, fmt.Errorf("metadata: display order repeats category %q", name)
			}
			seen[name] = true
			cat := reg.Category(name)
			if cat == nil {
				return nil, fmt.Errorf("metadata: display order names unknown category %q", name)
			}
			order = append(order, cat)
		}
	}

	return &Emitter{reg: reg, config: config, order: order}, nil
}

// Emit produces the metadata document for one item. The attributes list
// holds exactly one entry per category, in display order.
func (e *Emitter) Emit(index int, combo sampler.Combination) (*Document, error) {
	if want := len(e.order); len(combo.Traits) != want {
		return nil, fmt.Errorf("metadata: combination has %d traits, registry has %d categories",
			len(combo.Traits), want)
	}

	attrs := make([]Attribute, 0, len(e.order))
	for _, cat := range e.order {
		variant := combo.Variant(cat.Name)
		if variant == nil {
			return nil, fmt.Errorf("metadata: combination missing category %q", cat.Name)
		}
		attrs = append(attrs, Attribute{
			TraitType: cat.Name,
			Value:     variant.Name,
			Numeric:   cat.Numeric,
		})
	}

	return &Document{
		ID:          index,
		Name:        expandTemplate(e.config.NameTemplate, index),
		Description: expandTemplate(e.config.DescriptionTemplate, index),
		Image:       e.imageRef(index),
		Attributes:  attrs,
	}, nil
}

// expandTemplate substitutes the recognized {index} placeholder.
func expandTemplate(template string, index int) string {
	return strings.ReplaceAll(template, "{index}", strconv.Itoa(index))
}

// imageRef builds the image field for an item index.
func (e *Emitter) imageRef(index int) string {
	filename := strconv.Itoa(index) + ".png"
	if e.config.ImageBaseURL == "" {
		return filename
	}
	return strings.TrimSuffix(e.config.ImageBaseURL, "/") + "/" + filename
}
