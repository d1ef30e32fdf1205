package builder

import (
	"sort"
	"sync"

	"traitforge/sampler"
)

// ItemInfo records one produced item for the run summary.
type ItemInfo struct {
	Index        int
	Signature    string
	ImagePath    string
	MetadataPath string
}

// VariantCount is one (category, variant) occurrence count in the summary.
type VariantCount struct {
	Category string
	Variant  string
	Count    int
}

// Manifest accumulates per-variant occurrence counts and the list of produced
// items for a run. It is safe for concurrent use: the draw loop records items
// while workers may still be finishing earlier indices.
type Manifest struct {
	mu     sync.Mutex
	counts map[string]map[string]int
	items  []ItemInfo
}

// NewManifest creates an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{
		counts: make(map[string]map[string]int),
	}
}

// RecordItem adds one accepted combination to the manifest and bumps the
// count of every variant it contains.
func (m *Manifest) RecordItem(info ItemInfo, combo sampler.Combination) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = append(m.items, info)
	for _, trait := range combo.Traits {
		byVariant, ok := m.counts[trait.Category.Name]
		if !ok {
			byVariant = make(map[string]int)
			m.counts[trait.Category.Name] = byVariant
		}
		byVariant[trait.Variant.Name]++
	}
}

// Count returns the occurrence count for one (category, variant) pair.
func (m *Manifest) Count(category, variant string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[category][variant]
}

// Items returns the produced items ordered by index.
func (m *Manifest) Items() []ItemInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ItemInfo, len(m.items))
	copy(out, m.items)
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Len returns how many items the manifest has recorded.
func (m *Manifest) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// VariantCounts returns all counts ordered by category then variant, for
// stable log and report output.
func (m *Manifest) VariantCounts() []VariantCount {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []VariantCount
	for category, byVariant := range m.counts {
		for variant, count := range byVariant {
			out = append(out, VariantCount{Category: category, Variant: variant, Count: count})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Variant < out[j].Variant
	})
	return out
}
