package validation

import (
	"fmt"
	"os"
	"path/filepath"

	"traitforge/core"
)

// metadataEstimateBytes is a generous per-item allowance for the JSON
// metadata document.
const metadataEstimateBytes = 4 * core.BytesPerKB

// DiskSpaceError indicates the output filesystem cannot hold the collection.
type DiskSpaceError struct {
	Path      string
	Required  int64
	Available int64
}

func (e *DiskSpaceError) Error() string {
	return fmt.Sprintf("insufficient disk space at %s: need %s, have %s free",
		e.Path, core.FormatBytes(e.Required), core.FormatBytes(e.Available))
}

// EstimateCollectionBytes returns a conservative size estimate for a
// collection: per item, the uncompressed RGBA canvas (PNG output never
// exceeds this by much) plus a metadata allowance, with 10% headroom.
func EstimateCollectionBytes(width, height, size int) int64 {
	perItem := int64(width)*int64(height)*4 + metadataEstimateBytes
	total := perItem * int64(size)
	return total + total/10
}

// CheckDiskSpace verifies the filesystem containing path has at least
// requiredBytes free. A path that does not exist yet is resolved through its
// nearest existing ancestor.
func CheckDiskSpace(path string, requiredBytes int64) error {
	probe := path
	for {
		if _, err := os.Stat(probe); err == nil {
			break
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			return fmt.Errorf("cannot resolve filesystem for %s", path)
		}
		probe = parent
	}

	free, err := freeDiskSpace(probe)
	if err != nil {
		return fmt.Errorf("checking disk space at %s: %w", probe, err)
	}
	if free < requiredBytes {
		return &DiskSpaceError{Path: path, Required: requiredBytes, Available: free}
	}
	return nil
}

// CheckDiskSpace checks the output directory against the configured
// collection's estimated footprint.
func (c *Checker) CheckDiskSpace() CheckResult {
	if c.cfg == nil || c.reg == nil {
		return CheckResult{Valid: false, Message: "configuration not loaded"}
	}

	w, h := c.reg.Dimensions()
	required := EstimateCollectionBytes(w, h, c.cfg.CollectionSize)
	if err := CheckDiskSpace(c.cfg.OutputDir, required); err != nil {
		return CheckResult{Valid: false, Message: "output filesystem too small", Error: err}
	}
	return CheckResult{
		Valid:   true,
		Message: fmt.Sprintf("%s estimated, output filesystem has room", core.FormatBytes(required)),
	}
}
