package registry

import (
	"fmt"
	"image"
	"math"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"traitforge/core"
)

// traitsConfig is the YAML shape of the traits file.
type traitsConfig struct {
	Categories []categoryConfig `yaml:"categories"`
}

type categoryConfig struct {
	Name     string          `yaml:"name"`
	ZOrder   int             `yaml:"z_order"`
	Numeric  bool            `yaml:"numeric"`
	Variants []variantConfig `yaml:"variants"`
}

type variantConfig struct {
	Name   string  `yaml:"name"`
	Weight float64 `yaml:"weight"`
	Layer  string  `yaml:"layer"`
}

// Registry holds the validated trait configuration for the process lifetime.
// It is immutable after Load and safe for concurrent reads.
type Registry struct {
	categories []*TraitCategory
	byName     map[string]*TraitCategory

	// Shared canvas dimensions of every layer, validated at load.
	width  int
	height int
}

// CategorySpec describes one trait category for programmatic registry
// construction. The YAML loader produces these; callers embedding the engine
// can build them directly.
type CategorySpec struct {
	Name     string
	ZOrder   int
	Numeric  bool
	Variants []VariantSpec
}

// VariantSpec describes one variant with an already-decoded image layer.
type VariantSpec struct {
	Name      string
	Weight    float64
	LayerPath string
	Layer     image.Image
}

// Load reads, parses, and validates a traits YAML file, decoding every
// referenced image layer.
//
// Validation covers: at least one category, at least one variant per category, all
// weights > 0, numeric variant names parseable as numbers, unique z-order
// indices, unique category names, unique variant names within a category,
// every layer decodable, and identical pixel dimensions across all layers. Any violation returns a core.ConfigError or
// core.LayerDimensionError naming the offender.
func Load(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.ErrTraitsFileMissing(path)
		}
		return nil, fmt.Errorf("registry: reading %s: %w", path, err)
	}

	var cfg traitsConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, core.ErrTraitsFileInvalid(path, err.Error())
	}

	specs := make([]CategorySpec, 0, len(cfg.Categories))
	for _, cc := range cfg.Categories {
		spec := CategorySpec{
			Name:    cc.Name,
			ZOrder:  cc.ZOrder,
			Numeric: cc.Numeric,
		}
		for _, vc := range cc.Variants {
			layer, err := decodeLayer(vc.Layer)
			if err != nil {
				return nil, core.ErrLayerUnreadable(cc.Name, vc.Name, vc.Layer, err.Error())
			}
			spec.Variants = append(spec.Variants, VariantSpec{
				Name:      vc.Name,
				Weight:    vc.Weight,
				LayerPath: vc.Layer,
				Layer:     layer,
			})
		}
		specs = append(specs, spec)
	}

	return New(specs)
}

// New validates category specs and assembles a Registry. Layers must already
// be decoded; Load is the file-backed frontend over this constructor.
func New(specs []CategorySpec) (*Registry, error) {
	if len(specs) == 0 {
		return nil, core.ErrTraitsFileInvalid("traits", "no categories declared")
	}

	reg := &Registry{
		byName: make(map[string]*TraitCategory, len(specs)),
	}
	zOrders := make(map[int]string, len(specs))

	for _, cc := range specs {
		if cc.Name == "" {
			return nil, core.ErrTraitsFileInvalid("traits", "category with empty name")
		}
		if _, exists := reg.byName[cc.Name]; exists {
			return nil, core.ErrDuplicateName("category", cc.Name, "registry")
		}
		if prev, taken := zOrders[cc.ZOrder]; taken {
			return nil, core.ErrDuplicateZOrder(cc.ZOrder, prev, cc.Name)
		}
		zOrders[cc.ZOrder] = cc.Name

		if len(cc.Variants) == 0 {
			return nil, core.ErrEmptyCategory(cc.Name)
		}

		cat := &TraitCategory{
			Name:    cc.Name,
			ZOrder:  cc.ZOrder,
			Numeric: cc.Numeric,
		}

		seen := make(map[string]bool, len(cc.Variants))
		for _, vc := range cc.Variants {
			if vc.Name == "" {
				return nil, core.ErrTraitsFileInvalid("traits",
					fmt.Sprintf("variant with empty name in category %q", cc.Name))
			}
			if seen[vc.Name] {
				return nil, core.ErrDuplicateName("variant", vc.Name, fmt.Sprintf("category %q", cc.Name))
			}
			seen[vc.Name] = true

			if vc.Weight <= 0 || math.IsNaN(vc.Weight) || math.IsInf(vc.Weight, 0) {
				return nil, core.ErrBadWeight(cc.Name, vc.Name, vc.Weight)
			}

			// Numeric categories emit variant names as JSON numbers, so
			// every name must parse here rather than failing mid-run.
			if cc.Numeric {
				if _, err := strconv.ParseFloat(vc.Name, 64); err != nil {
					return nil, core.ErrNonNumericVariant(cc.Name, vc.Name)
				}
			}

			if vc.Layer == nil {
				return nil, core.ErrLayerUnreadable(cc.Name, vc.Name, vc.LayerPath, "no layer image")
			}

			bounds := vc.Layer.Bounds()
			if reg.width == 0 && reg.height == 0 {
				reg.width = bounds.Dx()
				reg.height = bounds.Dy()
			} else if bounds.Dx() != reg.width || bounds.Dy() != reg.height {
				return nil, &core.LayerDimensionError{
					Category:  cc.Name,
					Variant:   vc.Name,
					LayerPath: vc.LayerPath,
					GotW:      bounds.Dx(),
					GotH:      bounds.Dy(),
					WantW:     reg.width,
					WantH:     reg.height,
				}
			}

			cat.Variants = append(cat.Variants, &TraitVariant{
				Category:  cc.Name,
				Name:      vc.Name,
				Weight:    vc.Weight,
				LayerPath: vc.LayerPath,
				Layer:     vc.Layer,
			})
		}

		cat.bounds, cat.total = cumulativeBounds(cat.Variants)

		reg.categories = append(reg.categories, cat)
		reg.byName[cc.Name] = cat
	}

	sort.Slice(reg.categories, func(i, j int) bool {
		return reg.categories[i].ZOrder < reg.categories[j].ZOrder
	})

	return reg, nil
}

// cumulativeBounds normalizes variant weights into cumulative probability
// upper bounds. The final bound is forced to exactly 1 so the last bucket
// always covers the top of the interval.
func cumulativeBounds(variants []*TraitVariant) ([]float64, float64) {
	total := 0.0
	for _, v := range variants {
		total += v.Weight
	}

	bounds := make([]float64, len(variants))
	running := 0.0
	for i, v := range variants {
		running += v.Weight
		bounds[i] = running / total
	}
	bounds[len(bounds)-1] = 1.0
	return bounds, total
}

// Categories returns the categories sorted by ascending z-order.
// The returned slice must not be mutated.
func (r *Registry) Categories() []*TraitCategory {
	return r.categories
}

// Category returns the named category, or nil if unknown.
func (r *Registry) Category(name string) *TraitCategory {
	return r.byName[name]
}

// Variant returns the named variant in the named category.
func (r *Registry) Variant(category, name string) (*TraitVariant, error) {
	cat := r.byName[category]
	if cat == nil {
		return nil, fmt.Errorf("registry: unknown category %q", category)
	}
	v := cat.Variant(name)
	if v == nil {
		return nil, fmt.Errorf("registry: unknown variant %q in category %q", name, category)
	}
	return v, nil
}

// Dimensions returns the shared pixel dimensions of every layer.
func (r *Registry) Dimensions() (width, height int) {
	return r.width, r.height
}

// Capacity returns the product of per-category variant counts, the size of
// the combinatorial trait space. The second return is false when the product
// overflowed uint64; capacity is then effectively unbounded.
func (r *Registry) Capacity() (uint64, bool) {
	product := uint64(1)
	for _, cat := range r.categories {
		n := uint64(len(cat.Variants))
		if product > math.MaxUint64/n {
			return math.MaxUint64, false
		}
		product *= n
	}
	return product, true
}
