package tracker

import (
	"fmt"
	"image"
	"image/color"
	"testing"

	"traitforge/core"
	"traitforge/registry"
)

func blankLayer() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.SetRGBA(0, 0, color.RGBA{A: 255})
	return img
}

// countsRegistry builds a registry with the given variant count per category.
func countsRegistry(t *testing.T, counts ...int) *registry.Registry {
	t.Helper()

	specs := make([]registry.CategorySpec, 0, len(counts))
	for i, n := range counts {
		spec := registry.CategorySpec{
			Name:   fmt.Sprintf("cat%d", i),
			ZOrder: i,
		}
		for j := 0; j < n; j++ {
			spec.Variants = append(spec.Variants, registry.VariantSpec{
				Name:   fmt.Sprintf("v%d", j),
				Weight: 1,
				Layer:  blankLayer(),
			})
		}
		specs = append(specs, spec)
	}

	reg, err := registry.New(specs)
	if err != nil {
		t.Fatalf("building registry: %v", err)
	}
	return reg
}

func TestTracker_IsNewThenRecord(t *testing.T) {
	tr := New(10)

	if !tr.IsNew("background=red|hat=cap") {
		t.Error("unseen signature should be new")
	}

	tr.Record("background=red|hat=cap")

	if tr.IsNew("background=red|hat=cap") {
		t.Error("recorded signature should no longer be new")
	}
	if !tr.IsNew("background=blue|hat=cap") {
		t.Error("different signature should still be new")
	}
	if tr.Len() != 1 {
		t.Errorf("expected 1 recorded signature, got %d", tr.Len())
	}
}

func TestTracker_RecordIsIdempotent(t *testing.T) {
	tr := New(4)
	tr.Record("a=1")
	tr.Record("a=1")

	if tr.Len() != 1 {
		t.Errorf("expected 1 signature after duplicate record, got %d", tr.Len())
	}
}

func TestCheckCapacity_RequestExceedsSpace(t *testing.T) {
	// Variant counts [2,3] give 6 combinations; requesting 7 must fail
	// before any sampling.
	reg := countsRegistry(t, 2, 3)

	err := CheckCapacity(reg, 7)
	if err == nil {
		t.Fatal("expected CapacityError for request of 7 over a space of 6")
	}

	capErr, ok := core.IsCapacityError(err)
	if !ok {
		t.Fatalf("expected CapacityError, got %T: %v", err, err)
	}
	if capErr.Requested != 7 || capErr.Available != 6 {
		t.Errorf("expected requested=7 available=6, got %+v", capErr)
	}
}

func TestCheckCapacity_ExactFit(t *testing.T) {
	reg := countsRegistry(t, 2, 3)

	if err := CheckCapacity(reg, 6); err != nil {
		t.Errorf("request equal to the space should pass, got: %v", err)
	}
	if err := CheckCapacity(reg, 1); err != nil {
		t.Errorf("small request should pass, got: %v", err)
	}
}
