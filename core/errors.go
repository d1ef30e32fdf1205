// Package core provides shared configuration, error types, and process
// lifecycle utilities used by every other package in the engine.
package core

import (
	"errors"
	"fmt"
)

// ConfigError represents a configuration-related error with actionable instructions.
// It covers malformed or inconsistent registry input as well as bad engine settings;
// it is always fatal and is raised before any sampling begins.
type ConfigError struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
	Action  string // Actionable instruction for resolution
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Error codes for configuration errors
const (
	ErrCodeTraitsFileMissing = "TRAITS_FILE_MISSING"
	ErrCodeTraitsFileInvalid = "TRAITS_FILE_INVALID"
	ErrCodeEmptyCategory     = "EMPTY_CATEGORY"
	ErrCodeBadWeight         = "BAD_WEIGHT"
	ErrCodeDuplicateZOrder   = "DUPLICATE_Z_ORDER"
	ErrCodeDuplicateName     = "DUPLICATE_NAME"
	ErrCodeLayerUnreadable   = "LAYER_UNREADABLE"
	ErrCodeNonNumericVariant = "NON_NUMERIC_VARIANT"
	ErrCodeZeroTotalWeight   = "ZERO_TOTAL_WEIGHT"
	ErrCodeMissingConfig     = "MISSING_CONFIG"
	ErrCodeInvalidConfig     = "INVALID_CONFIG"
)

// ErrTraitsFileMissing returns an error for a missing traits configuration file.
func ErrTraitsFileMissing(path string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeTraitsFileMissing,
		Message: fmt.Sprintf("Traits file not found: %s", path),
		Action:  "Set TRAITFORGE_TRAITS_FILE to a valid traits YAML file (see traits.example.yaml)",
	}
}

// ErrTraitsFileInvalid returns an error for a traits file that cannot be parsed.
func ErrTraitsFileInvalid(path string, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeTraitsFileInvalid,
		Message: fmt.Sprintf("Traits file %s is not valid YAML: %s", path, reason),
		Action:  "Fix the traits file syntax (see traits.example.yaml for the expected shape)",
	}
}

// ErrEmptyCategory returns an error for a category declared without variants.
func ErrEmptyCategory(category string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeEmptyCategory,
		Message: fmt.Sprintf("Trait category %q has no variants", category),
		Action:  "Every category must declare at least one variant",
	}
}

// ErrBadWeight returns an error for a variant with a non-positive rarity weight.
func ErrBadWeight(category, variant string, weight float64) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeBadWeight,
		Message: fmt.Sprintf("Variant %q in category %q has weight %v", variant, category, weight),
		Action:  "Rarity weights must be greater than zero",
	}
}

// ErrDuplicateZOrder returns an error for two categories sharing a z-order index.
func ErrDuplicateZOrder(zOrder int, first, second string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeDuplicateZOrder,
		Message: fmt.Sprintf("Categories %q and %q both declare z-order %d", first, second, zOrder),
		Action:  "Assign a unique z-order index to every category",
	}
}

// ErrDuplicateName returns an error for a duplicated category or variant name.
func ErrDuplicateName(kind, name, scope string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeDuplicateName,
		Message: fmt.Sprintf("Duplicate %s name %q in %s", kind, name, scope),
		Action:  "Names must be unique within their declaring scope",
	}
}

// ErrLayerUnreadable returns an error for an image layer that cannot be loaded.
func ErrLayerUnreadable(category, variant, path string, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeLayerUnreadable,
		Message: fmt.Sprintf("Layer image for %s/%s (%s) cannot be loaded: %s", category, variant, path, reason),
		Action:  "Check the layer path and that the file is a valid PNG or WebP image",
	}
}

// ErrNonNumericVariant returns an error for a variant in a numeric category
// whose name does not parse as a number.
func ErrNonNumericVariant(category, variant string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeNonNumericVariant,
		Message: fmt.Sprintf("Variant %q in numeric category %q is not a number", variant, category),
		Action:  "Numeric categories emit variant names as JSON numbers; rename the variant or drop the numeric flag",
	}
}

// ErrZeroTotalWeight returns an error for a category whose weights sum to zero.
// Registry validation makes this unreachable; the sampler keeps a defensive check.
func ErrZeroTotalWeight(category string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeZeroTotalWeight,
		Message: fmt.Sprintf("Trait category %q has zero total weight", category),
		Action:  "Ensure every variant in the category has a positive rarity weight",
	}
}

// ErrMissingConfig returns an error for missing required configuration.
func ErrMissingConfig(varName string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingConfig,
		Message: fmt.Sprintf("Missing required configuration: %s", varName),
		Action:  fmt.Sprintf("Set %s in your environment or .env file", varName),
	}
}

// ErrInvalidConfig returns an error for a configuration value outside its valid range.
func ErrInvalidConfig(varName string, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidConfig,
		Message: fmt.Sprintf("Invalid value for %s: %s", varName, reason),
		Action:  fmt.Sprintf("Fix %s in your environment or .env file", varName),
	}
}

// CapacityError reports that the requested collection size exceeds the
// combinatorial trait space. It is detected analytically before any sampling
// begins, never by retry exhaustion.
type CapacityError struct {
	Requested int    // Items requested
	Available uint64 // Product of per-category variant counts
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf(
		"requested collection size %d exceeds the combinatorial trait space of %d unique combinations; add variants or reduce TRAITFORGE_COLLECTION_SIZE",
		e.Requested, e.Available)
}

// RetryExhaustedError reports that the duplicate-draw budget was spent without
// finding a new combination. Items produced before exhaustion remain valid.
type RetryExhaustedError struct {
	Produced int // Items successfully generated before exhaustion
	Budget   int // Consecutive duplicate draws allowed
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf(
		"gave up after %d consecutive duplicate draws with %d items produced; the remaining trait space is vanishingly unlikely under the configured weights",
		e.Budget, e.Produced)
}

// LayerDimensionError reports an image layer whose canvas size differs from
// the rest of the set. Detected once at registry load so it never surfaces
// mid-run.
type LayerDimensionError struct {
	Category  string
	Variant   string
	LayerPath string
	GotW      int
	GotH      int
	WantW     int
	WantH     int
}

func (e *LayerDimensionError) Error() string {
	return fmt.Sprintf(
		"layer %s for %s/%s is %dx%d but the collection canvas is %dx%d; all layers must share identical pixel dimensions",
		e.LayerPath, e.Category, e.Variant, e.GotW, e.GotH, e.WantW, e.WantH)
}

// IsConfigError checks if an error is a ConfigError and returns it if so.
func IsConfigError(err error) (*ConfigError, bool) {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return configErr, true
	}
	return nil, false
}

// IsCapacityError checks if an error is a CapacityError and returns it if so.
func IsCapacityError(err error) (*CapacityError, bool) {
	var capErr *CapacityError
	if errors.As(err, &capErr) {
		return capErr, true
	}
	return nil, false
}

// IsRetryExhaustedError checks if an error is a RetryExhaustedError and returns it if so.
func IsRetryExhaustedError(err error) (*RetryExhaustedError, bool) {
	var retryErr *RetryExhaustedError
	if errors.As(err, &retryErr) {
		return retryErr, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from an error if it's a ConfigError.
func GetErrorCode(err error) string {
	if configErr, ok := IsConfigError(err); ok {
		return configErr.Code
	}
	return ""
}
