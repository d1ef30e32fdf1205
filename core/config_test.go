package core

import (
	"path/filepath"
	"testing"
)

// clearEngineEnv unsets every engine variable so tests start from defaults.
func clearEngineEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TRAITFORGE_TRAITS_FILE",
		"TRAITFORGE_OUTPUT_DIR",
		"TRAITFORGE_COLLECTION_SIZE",
		"TRAITFORGE_BASE_INDEX",
		"TRAITFORGE_SEED",
		"TRAITFORGE_RETRY_BUDGET",
		"TRAITFORGE_WORKERS",
		"TRAITFORGE_MANIFEST_DB",
		"TRAITFORGE_DISABLE_MANIFEST_DB",
		"TRAITFORGE_NAME_TEMPLATE",
		"TRAITFORGE_DESC_TEMPLATE",
		"TRAITFORGE_IMAGE_BASE_URL",
		"TRAITFORGE_LOG_FILE",
		"DEV_MODE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_RequiresCollectionSize(t *testing.T) {
	clearEngineEnv(t)

	_, err := LoadConfig()
	if err == nil {
		t.Fatal("expected error when TRAITFORGE_COLLECTION_SIZE is unset")
	}

	configErr, ok := IsConfigError(err)
	if !ok {
		t.Fatalf("expected ConfigError, got %T", err)
	}
	if configErr.Code != ErrCodeMissingConfig {
		t.Errorf("expected code %s, got %s", ErrCodeMissingConfig, configErr.Code)
	}
}

func TestLoadConfig_RejectsNonPositiveSize(t *testing.T) {
	clearEngineEnv(t)
	t.Setenv("TRAITFORGE_COLLECTION_SIZE", "0")

	if _, err := LoadConfig(); err == nil {
		t.Error("expected error for zero collection size")
	}

	t.Setenv("TRAITFORGE_COLLECTION_SIZE", "banana")
	if _, err := LoadConfig(); err == nil {
		t.Error("expected error for non-numeric collection size")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEngineEnv(t)
	t.Setenv("TRAITFORGE_COLLECTION_SIZE", "100")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.TraitsFile != "traits.yaml" {
		t.Errorf("expected default traits file, got %s", cfg.TraitsFile)
	}
	if cfg.BaseIndex != 1 {
		t.Errorf("expected base index 1, got %d", cfg.BaseIndex)
	}
	if cfg.HasSeed {
		t.Error("seed should be absent by default")
	}
	if cfg.RetryBudget != DefaultRetryMultiplier*100 {
		t.Errorf("expected retry budget %d, got %d", DefaultRetryMultiplier*100, cfg.RetryBudget)
	}
	if cfg.Workers < 1 {
		t.Errorf("expected at least one worker, got %d", cfg.Workers)
	}
	if cfg.ImagesDir != filepath.Join(cfg.OutputDir, "images") {
		t.Errorf("images dir should live under output dir, got %s", cfg.ImagesDir)
	}
	if cfg.MetadataDir != filepath.Join(cfg.OutputDir, "metadata") {
		t.Errorf("metadata dir should live under output dir, got %s", cfg.MetadataDir)
	}
	if cfg.ManifestDB != filepath.Join(cfg.OutputDir, "manifest.db") {
		t.Errorf("manifest db should default under output dir, got %s", cfg.ManifestDB)
	}
}

func TestLoadConfig_SeedParsing(t *testing.T) {
	clearEngineEnv(t)
	t.Setenv("TRAITFORGE_COLLECTION_SIZE", "10")
	t.Setenv("TRAITFORGE_SEED", "12345")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.HasSeed || cfg.Seed != 12345 {
		t.Errorf("expected seed 12345, got hasSeed=%v seed=%d", cfg.HasSeed, cfg.Seed)
	}

	t.Setenv("TRAITFORGE_SEED", "not-a-number")
	if _, err := LoadConfig(); err == nil {
		t.Error("expected error for malformed seed")
	}
}

func TestLoadConfig_ExplicitRetryBudgetWins(t *testing.T) {
	clearEngineEnv(t)
	t.Setenv("TRAITFORGE_COLLECTION_SIZE", "100")
	t.Setenv("TRAITFORGE_RETRY_BUDGET", "37")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RetryBudget != 37 {
		t.Errorf("expected explicit retry budget 37, got %d", cfg.RetryBudget)
	}
}

func TestLoadConfig_ManifestDBCanBeDisabled(t *testing.T) {
	clearEngineEnv(t)
	t.Setenv("TRAITFORGE_COLLECTION_SIZE", "10")
	t.Setenv("TRAITFORGE_DISABLE_MANIFEST_DB", "true")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ManifestDB != "" {
		t.Errorf("expected manifest db disabled, got %q", cfg.ManifestDB)
	}
}
