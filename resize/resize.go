// Package resize batch-resizes generated collection images, producing
// thumbnail-scale copies alongside the full-resolution originals.
package resize

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Resize errors
var (
	ErrInvalidImage      = errors.New("resize: invalid image data")
	ErrEmptyImage        = errors.New("resize: empty image data")
	ErrInvalidDimensions = errors.New("resize: invalid dimensions")
)

// DefaultSize is the default square edge length for resized output.
const DefaultSize = 512

// DecodeImage decodes image data (PNG or WebP).
// This is a pure function with no side effects.
func DecodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	return img, nil
}

// ResizeSquare scales an image to a size x size square using high-quality
// Catmull-Rom interpolation. Alpha is preserved: collection layers rely on
// transparency, so no background fill is applied. The source is assumed
// square already (the compositor enforces uniform canvas dimensions); a
// non-square source is stretched rather than padded.
// This is a pure function with no side effects.
func ResizeSquare(img image.Image, size int) (*image.RGBA, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDimensions, size)
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst, nil
}
