package resize

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"traitforge/logging"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	return buf.Bytes()
}

func quadrantImage(size int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	half := size / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			switch {
			case x < half && y < half:
				img.SetRGBA(x, y, color.RGBA{255, 0, 0, 255})
			case x >= half && y < half:
				img.SetRGBA(x, y, color.RGBA{0, 255, 0, 255})
			case x < half:
				img.SetRGBA(x, y, color.RGBA{0, 0, 255, 255})
			default:
				// Transparent quadrant to verify alpha survives the resize.
				img.SetRGBA(x, y, color.RGBA{0, 0, 0, 0})
			}
		}
	}
	return img
}

func TestDecodeImage(t *testing.T) {
	data := encodePNG(t, quadrantImage(16))

	img, err := DecodeImage(data)
	if err != nil {
		t.Fatalf("DecodeImage() error = %v", err)
	}
	if got := img.Bounds().Dx(); got != 16 {
		t.Errorf("decoded width = %d, want 16", got)
	}
}

func TestDecodeImageRejectsEmptyAndGarbage(t *testing.T) {
	if _, err := DecodeImage(nil); err != ErrEmptyImage {
		t.Errorf("DecodeImage(nil) error = %v, want ErrEmptyImage", err)
	}
	if _, err := DecodeImage([]byte("not an image")); err == nil {
		t.Error("DecodeImage(garbage) should fail")
	}
}

func TestResizeSquare(t *testing.T) {
	src := quadrantImage(32)

	dst, err := ResizeSquare(src, 8)
	if err != nil {
		t.Fatalf("ResizeSquare() error = %v", err)
	}
	if dst.Bounds().Dx() != 8 || dst.Bounds().Dy() != 8 {
		t.Fatalf("resized bounds = %v, want 8x8", dst.Bounds())
	}

	// Quadrant centers keep their colors.
	r, _, _, a := dst.At(2, 2).RGBA()
	if r == 0 || a == 0 {
		t.Error("top-left quadrant lost its red channel")
	}
	_, _, _, a = dst.At(6, 6).RGBA()
	if a != 0 {
		t.Errorf("transparent quadrant gained alpha %d, want 0", a)
	}
}

func TestResizeSquareRejectsBadSize(t *testing.T) {
	if _, err := ResizeSquare(quadrantImage(8), 0); err == nil {
		t.Error("ResizeSquare(0) should fail")
	}
	if _, err := ResizeSquare(quadrantImage(8), -1); err == nil {
		t.Error("ResizeSquare(-1) should fail")
	}
}

func TestBatchRun(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := filepath.Join(t.TempDir(), "resized")

	for _, name := range []string{"1.png", "2.png"} {
		if err := os.WriteFile(filepath.Join(srcDir, name), encodePNG(t, quadrantImage(32)), 0o644); err != nil {
			t.Fatalf("writing fixture: %v", err)
		}
	}
	// Non-image files are skipped, corrupt images are counted as failed.
	if err := os.WriteFile(filepath.Join(srcDir, "manifest.db"), []byte("x"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(srcDir, "broken.png"), []byte("not a png"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	batch := NewBatch(srcDir, dstDir, 8, 2, logging.NewNopLogger())
	result, err := batch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Resized != 2 {
		t.Errorf("Resized = %d, want 2", result.Resized)
	}
	if result.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", result.Skipped)
	}
	if result.Failed != 1 {
		t.Errorf("Failed = %d, want 1", result.Failed)
	}

	for _, name := range []string{"1.png", "2.png"} {
		data, err := os.ReadFile(filepath.Join(dstDir, name))
		if err != nil {
			t.Fatalf("reading output %s: %v", name, err)
		}
		img, err := DecodeImage(data)
		if err != nil {
			t.Fatalf("decoding output %s: %v", name, err)
		}
		if img.Bounds().Dx() != 8 {
			t.Errorf("output %s width = %d, want 8", name, img.Bounds().Dx())
		}
	}
}

func TestBatchRunMissingSourceDir(t *testing.T) {
	batch := NewBatch(filepath.Join(t.TempDir(), "absent"), t.TempDir(), 8, 1, logging.NewNopLogger())
	if _, err := batch.Run(context.Background()); err == nil {
		t.Error("Run() with missing source dir should fail")
	}
}
