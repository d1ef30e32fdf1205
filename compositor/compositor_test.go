package compositor

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"traitforge/registry"
	"traitforge/sampler"
)

func solidLayer(w, h int, c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// halfLayer fills only the top half, leaving the bottom transparent.
func halfLayer(w, h int, c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h/2; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// layeredRegistry: background(z=0) solid red/solid blue, hat(z=1) opaque
// green top half / fully transparent.
func layeredRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New([]registry.CategorySpec{
		{
			Name:   "background",
			ZOrder: 0,
			Variants: []registry.VariantSpec{
				{Name: "red", Weight: 1, Layer: solidLayer(8, 8, color.RGBA{255, 0, 0, 255})},
				{Name: "blue", Weight: 1, Layer: solidLayer(8, 8, color.RGBA{0, 0, 255, 255})},
			},
		},
		{
			Name:   "hat",
			ZOrder: 1,
			Variants: []registry.VariantSpec{
				{Name: "green", Weight: 1, Layer: halfLayer(8, 8, color.RGBA{0, 255, 0, 255})},
				{Name: "none", Weight: 1, Layer: solidLayer(8, 8, color.RGBA{0, 0, 0, 0})},
			},
		},
	})
	if err != nil {
		t.Fatalf("building registry: %v", err)
	}
	return reg
}

// pick builds a combination from explicit variant names.
func pick(t *testing.T, reg *registry.Registry, choices map[string]string) sampler.Combination {
	t.Helper()
	var combo sampler.Combination
	for _, cat := range reg.Categories() {
		v, err := reg.Variant(cat.Name, choices[cat.Name])
		if err != nil {
			t.Fatalf("picking variant: %v", err)
		}
		combo.Traits = append(combo.Traits, sampler.Trait{Category: cat, Variant: v})
	}
	return combo
}

func TestCompose_HatOverBackground(t *testing.T) {
	reg := layeredRegistry(t)
	combo := pick(t, reg, map[string]string{"background": "red", "hat": "green"})

	img, err := New(reg).Compose(combo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Overlapping coordinates: the hat (z=1) must cover the background.
	r, g, b, _ := img.At(2, 1).RGBA()
	if g>>8 != 255 || r>>8 != 0 || b>>8 != 0 {
		t.Errorf("expected green hat pixel at (2,1), got r=%d g=%d b=%d", r>>8, g>>8, b>>8)
	}

	// Non-overlapping coordinates: the background shows through the hat's
	// transparent bottom half.
	r, g, b, _ = img.At(2, 6).RGBA()
	if r>>8 != 255 || g>>8 != 0 || b>>8 != 0 {
		t.Errorf("expected red background pixel at (2,6), got r=%d g=%d b=%d", r>>8, g>>8, b>>8)
	}
}

func TestCompose_TransparentHatLeavesBackground(t *testing.T) {
	reg := layeredRegistry(t)
	combo := pick(t, reg, map[string]string{"background": "blue", "hat": "none"})

	img, err := New(reg).Compose(combo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r, g, b, _ := img.At(4, 4).RGBA()
	if b>>8 != 255 || r>>8 != 0 || g>>8 != 0 {
		t.Errorf("expected blue background pixel, got r=%d g=%d b=%d", r>>8, g>>8, b>>8)
	}
}

func TestCompose_FreshCanvasPerItem(t *testing.T) {
	reg := layeredRegistry(t)
	c := New(reg)

	green := pick(t, reg, map[string]string{"background": "red", "hat": "green"})
	plain := pick(t, reg, map[string]string{"background": "red", "hat": "none"})

	if _, err := c.Compose(green); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := c.Compose(plain)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// No green may bleed into the second item from the first item's hat.
	_, g, _, _ := second.At(2, 1).RGBA()
	if g>>8 == 255 {
		t.Error("second canvas contains pixels from the previous item")
	}
}

func TestCompose_RejectsIncompleteCombination(t *testing.T) {
	reg := layeredRegistry(t)

	if _, err := New(reg).Compose(sampler.Combination{}); err == nil {
		t.Error("expected error for empty combination")
	}

	partial := pick(t, reg, map[string]string{"background": "red", "hat": "green"})
	partial.Traits = partial.Traits[:1]
	if _, err := New(reg).Compose(partial); err == nil {
		t.Error("expected error for combination missing a category")
	}
}

func TestWritePNG_RoundTrip(t *testing.T) {
	reg := layeredRegistry(t)
	combo := pick(t, reg, map[string]string{"background": "red", "hat": "green"})
	img, err := New(reg).Compose(combo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "1.png")
	if err := WritePNG(img, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("artifact is not valid PNG: %v", err)
	}
	if decoded.Bounds().Dx() != 8 || decoded.Bounds().Dy() != 8 {
		t.Errorf("expected 8x8 artifact, got %v", decoded.Bounds())
	}

	// No temp files may remain next to the artifact.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("listing output dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the artifact in the output dir, found %d entries", len(entries))
	}
}
