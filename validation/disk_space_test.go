package validation

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestEstimateCollectionBytes(t *testing.T) {
	// 100 items of a 4x4 RGBA canvas: (4*4*4 + 4096) * 100 = 416000,
	// plus 10% headroom.
	got := EstimateCollectionBytes(4, 4, 100)
	want := int64(416000 + 41600)
	if got != want {
		t.Errorf("EstimateCollectionBytes(4, 4, 100) = %d, want %d", got, want)
	}
}

func TestCheckDiskSpacePasses(t *testing.T) {
	if err := CheckDiskSpace(t.TempDir(), 1); err != nil {
		t.Errorf("CheckDiskSpace() error = %v, want nil for 1 byte", err)
	}
}

func TestCheckDiskSpaceResolvesMissingPath(t *testing.T) {
	// The nested path does not exist; the check walks up to the temp dir.
	path := filepath.Join(t.TempDir(), "not", "yet", "created")
	if err := CheckDiskSpace(path, 1); err != nil {
		t.Errorf("CheckDiskSpace() error = %v, want nil for missing subdir", err)
	}
}

func TestCheckDiskSpaceFailsOnImpossibleRequirement(t *testing.T) {
	// No filesystem has an exabyte free.
	err := CheckDiskSpace(t.TempDir(), 1<<60)
	if err == nil {
		t.Fatal("CheckDiskSpace() should fail for 1 EB requirement")
	}
	if !strings.Contains(err.Error(), "insufficient disk space") {
		t.Errorf("error %q should mention insufficient disk space", err)
	}
}
