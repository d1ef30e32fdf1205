package resize

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"traitforge/compositor"
	"traitforge/logging"
)

// BatchResult summarizes a batch resize run.
type BatchResult struct {
	Resized int
	Skipped int
	Failed  int
}

// Batch resizes every PNG and WebP image in a source directory into a
// destination directory, writing PNG output. Files are processed by a small
// worker pool since each resize is CPU-bound and independent.
type Batch struct {
	srcDir  string
	dstDir  string
	size    int
	workers int
	log     *logging.Logger
}

// NewBatch creates a batch resizer. Zero size and workers select defaults.
func NewBatch(srcDir, dstDir string, size, workers int, log *logging.Logger) *Batch {
	if size <= 0 {
		size = DefaultSize
	}
	if workers <= 0 {
		workers = 4
	}
	return &Batch{srcDir: srcDir, dstDir: dstDir, size: size, workers: workers, log: log}
}

// Run processes the source directory. Non-image files are skipped; a file
// that fails to decode or write is counted and logged but does not stop the
// batch. Cancelling the context stops the batch between files.
func (b *Batch) Run(ctx context.Context) (BatchResult, error) {
	if err := os.MkdirAll(b.dstDir, 0o755); err != nil {
		return BatchResult{}, fmt.Errorf("resize: creating output dir: %w", err)
	}

	entries, err := os.ReadDir(b.srcDir)
	if err != nil {
		return BatchResult{}, fmt.Errorf("resize: reading source dir: %w", err)
	}

	names := make(chan string)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var result BatchResult

	for i := 0; i < b.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range names {
				err := b.resizeOne(name)
				mu.Lock()
				if err != nil {
					result.Failed++
					b.log.Warnf("Resize failed for %s: %v", name, err)
				} else {
					result.Resized++
				}
				mu.Unlock()
			}
		}()
	}

	var runErr error
feed:
	for _, entry := range entries {
		if entry.IsDir() || !isImageName(entry.Name()) {
			if !entry.IsDir() {
				mu.Lock()
				result.Skipped++
				mu.Unlock()
			}
			continue
		}
		select {
		case names <- entry.Name():
		case <-ctx.Done():
			runErr = ctx.Err()
			break feed
		}
	}
	close(names)
	wg.Wait()

	b.log.Infof("Resize batch done: resized=%d skipped=%d failed=%d",
		result.Resized, result.Skipped, result.Failed)
	return result, runErr
}

// resizeOne reads, resizes, and writes a single image. Output keeps the
// source base name with a .png extension.
func (b *Batch) resizeOne(name string) error {
	data, err := os.ReadFile(filepath.Join(b.srcDir, name))
	if err != nil {
		return err
	}

	img, err := DecodeImage(data)
	if err != nil {
		return err
	}

	resized, err := ResizeSquare(img, b.size)
	if err != nil {
		return err
	}

	base := strings.TrimSuffix(name, filepath.Ext(name))
	return compositor.WritePNG(resized, filepath.Join(b.dstDir, base+".png"))
}

func isImageName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".webp":
		return true
	default:
		return false
	}
}
