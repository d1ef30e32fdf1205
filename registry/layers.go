package registry

import (
	"errors"
	"fmt"
	"image"
	"os"

	// Layer decoders. PNG is the primary authoring format; WebP sources
	// are common for pre-optimized layer sets.
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// ErrEmptyLayerPath reports a variant declared without a layer path.
var ErrEmptyLayerPath = errors.New("registry: empty layer path")

// decodeLayer opens and fully decodes one image layer. The file handle is
// released before returning; only the decoded pixels are retained.
func decodeLayer(path string) (image.Image, error) {
	if path == "" {
		return nil, ErrEmptyLayerPath
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding: %w", err)
	}

	switch format {
	case "png", "webp":
		return img, nil
	default:
		return nil, fmt.Errorf("unsupported layer format %q (want png or webp)", format)
	}
}
