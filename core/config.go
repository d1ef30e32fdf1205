package core

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
)

// DefaultRetryMultiplier bounds the duplicate-retry loop: the budget of
// consecutive duplicate draws is multiplier * collection size unless an
// explicit budget is configured.
const DefaultRetryMultiplier = 10

// Config holds all engine configuration values.
type Config struct {
	// Input
	TraitsFile string // Path to the traits YAML file

	// Output layout
	OutputDir   string // Root output directory
	ImagesDir   string // Composited images ({index}.png)
	MetadataDir string // Per-item metadata documents ({index}.json)
	ManifestDB  string // SQLite manifest database path ("" disables persistence)

	// Generation
	CollectionSize int   // Number of items to generate (required)
	BaseIndex      int   // First collection index (0- or 1-based)
	Seed           int64 // RNG seed; meaningful only when HasSeed is true
	HasSeed        bool  // True when a seed was supplied (reproducible run)
	RetryBudget    int   // Consecutive duplicate draws allowed before aborting
	Workers        int   // Concurrent composite+emit workers

	// Metadata templates
	NameTemplate        string // Item name template; {index} is substituted
	DescriptionTemplate string // Item description template; {index} is substituted
	ImageBaseURL        string // Prefix for the metadata image field ("" = bare filename)

	// Process
	LogFile string // Structured log file path
	DevMode bool   // Development mode (console-friendly logging, debug level)
}

// LoadConfig loads engine configuration from environment variables with
// sensible defaults. Only TRAITFORGE_COLLECTION_SIZE is required.
func LoadConfig() (*Config, error) {
	traitsFile := GetEnvOrDefault("TRAITFORGE_TRAITS_FILE", "traits.yaml")
	outputDir := GetEnvOrDefault("TRAITFORGE_OUTPUT_DIR", "./output")

	collectionSize := ParseIntEnv("TRAITFORGE_COLLECTION_SIZE", 0)
	if os.Getenv("TRAITFORGE_COLLECTION_SIZE") == "" {
		return nil, ErrMissingConfig("TRAITFORGE_COLLECTION_SIZE")
	}
	if collectionSize <= 0 {
		return nil, ErrInvalidConfig("TRAITFORGE_COLLECTION_SIZE",
			fmt.Sprintf("must be a positive integer, got %q", os.Getenv("TRAITFORGE_COLLECTION_SIZE")))
	}

	// Base index defaults to 1 to match the usual token numbering of
	// marketplace metadata; set 0 for zero-based collections.
	baseIndex := ParseIntEnv("TRAITFORGE_BASE_INDEX", 1)
	if baseIndex < 0 {
		return nil, ErrInvalidConfig("TRAITFORGE_BASE_INDEX", "must be >= 0")
	}

	// Seed is optional: absent means a non-reproducible run.
	var seed int64
	hasSeed := false
	if raw := os.Getenv("TRAITFORGE_SEED"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, ErrInvalidConfig("TRAITFORGE_SEED", fmt.Sprintf("not a valid int64: %q", raw))
		}
		seed = parsed
		hasSeed = true
	}

	// Retry budget bounds the duplicate-draw loop. Zero or absent means
	// the default multiplier applies.
	retryBudget := ParseIntEnv("TRAITFORGE_RETRY_BUDGET", 0)
	if retryBudget < 0 {
		return nil, ErrInvalidConfig("TRAITFORGE_RETRY_BUDGET", "must be >= 0")
	}
	if retryBudget == 0 {
		retryBudget = DefaultRetryMultiplier * collectionSize
	}

	workers := ParseIntEnv("TRAITFORGE_WORKERS", runtime.NumCPU())
	if workers < 1 {
		return nil, ErrInvalidConfig("TRAITFORGE_WORKERS", "must be >= 1")
	}

	manifestDB := GetEnvOrDefault("TRAITFORGE_MANIFEST_DB", filepath.Join(outputDir, "manifest.db"))
	if ParseBoolEnv("TRAITFORGE_DISABLE_MANIFEST_DB", false) {
		manifestDB = ""
	}

	return &Config{
		TraitsFile:          traitsFile,
		OutputDir:           outputDir,
		ImagesDir:           filepath.Join(outputDir, "images"),
		MetadataDir:         filepath.Join(outputDir, "metadata"),
		ManifestDB:          manifestDB,
		CollectionSize:      collectionSize,
		BaseIndex:           baseIndex,
		Seed:                seed,
		HasSeed:             hasSeed,
		RetryBudget:         retryBudget,
		Workers:             workers,
		NameTemplate:        GetEnvOrDefault("TRAITFORGE_NAME_TEMPLATE", "Item #{index}"),
		DescriptionTemplate: os.Getenv("TRAITFORGE_DESC_TEMPLATE"),
		ImageBaseURL:        os.Getenv("TRAITFORGE_IMAGE_BASE_URL"),
		LogFile:             GetEnvOrDefault("TRAITFORGE_LOG_FILE", "traitforge.log"),
		DevMode:             ParseBoolEnv("DEV_MODE", false),
	}, nil
}
