// Package validation provides pre-run validation of the generation
// configuration with colored progress output, so misconfiguration is caught
// before any sampling or compositing begins.
package validation

import (
	"fmt"
	"os"
	"path/filepath"

	"traitforge/core"
	"traitforge/registry"
	"traitforge/tracker"
)

// CheckResult is the outcome of a single validation check.
type CheckResult struct {
	Valid   bool
	Message string
	Error   error
}

// Checker runs the individual configuration checks. Later checks reuse the
// config and registry produced by earlier ones, so each expensive load
// happens at most once per suite run.
type Checker struct {
	envPath string

	cfg *core.Config
	reg *registry.Registry
}

// NewChecker creates a Checker with the default .env path.
func NewChecker() *Checker {
	return &Checker{envPath: ".env"}
}

// WithEnvPath overrides the .env file location.
func (c *Checker) WithEnvPath(path string) *Checker {
	c.envPath = path
	return c
}

// Config returns the loaded configuration, or nil if CheckConfig has not
// passed yet.
func (c *Checker) Config() *core.Config {
	return c.cfg
}

// Registry returns the loaded registry, or nil if CheckTraitsFile has not
// passed yet.
func (c *Checker) Registry() *registry.Registry {
	return c.reg
}

// CheckEnvFile verifies the .env file exists. A missing file is not fatal
// since configuration may come from the process environment.
func (c *Checker) CheckEnvFile() CheckResult {
	info, err := os.Stat(c.envPath)
	if os.IsNotExist(err) {
		return CheckResult{
			Valid:   true,
			Message: fmt.Sprintf("%s not found, using process environment", c.envPath),
		}
	}
	if err != nil {
		return CheckResult{Valid: false, Message: "unreadable", Error: err}
	}
	if info.IsDir() {
		return CheckResult{
			Valid:   false,
			Message: fmt.Sprintf("%s is a directory", c.envPath),
			Error:   fmt.Errorf("%s is a directory, expected a file", c.envPath),
		}
	}
	return CheckResult{Valid: true, Message: fmt.Sprintf("found %s", c.envPath)}
}

// CheckConfig loads and validates the engine configuration from the
// environment.
func (c *Checker) CheckConfig() CheckResult {
	cfg, err := core.LoadConfig()
	if err != nil {
		return CheckResult{Valid: false, Message: "invalid configuration", Error: err}
	}
	c.cfg = cfg
	seedNote := "random seed"
	if cfg.HasSeed {
		seedNote = fmt.Sprintf("seed %d", cfg.Seed)
	}
	return CheckResult{
		Valid:   true,
		Message: fmt.Sprintf("size %d, %s", cfg.CollectionSize, seedNote),
	}
}

// CheckTraitsFile loads the traits file and validates categories, weights,
// z-order uniqueness, and layer dimensions.
func (c *Checker) CheckTraitsFile() CheckResult {
	if c.cfg == nil {
		return CheckResult{Valid: false, Message: "configuration not loaded"}
	}
	reg, err := registry.Load(c.cfg.TraitsFile)
	if err != nil {
		return CheckResult{Valid: false, Message: "traits file rejected", Error: err}
	}
	c.reg = reg
	w, h := reg.Dimensions()
	return CheckResult{
		Valid:   true,
		Message: fmt.Sprintf("%d categories, %dx%d canvas", len(reg.Categories()), w, h),
	}
}

// CheckCapacity verifies the combinatorial trait space can hold the
// requested collection size.
func (c *Checker) CheckCapacity() CheckResult {
	if c.cfg == nil || c.reg == nil {
		return CheckResult{Valid: false, Message: "configuration not loaded"}
	}
	if err := tracker.CheckCapacity(c.reg, c.cfg.CollectionSize); err != nil {
		return CheckResult{Valid: false, Message: "trait space too small", Error: err}
	}
	capacity, bounded := c.reg.Capacity()
	if !bounded {
		return CheckResult{Valid: true, Message: "trait space exceeds uint64 range"}
	}
	return CheckResult{
		Valid:   true,
		Message: fmt.Sprintf("%d combinations available for %d items", capacity, c.cfg.CollectionSize),
	}
}

// CheckOutputDirs verifies the image and metadata directories exist (creating
// them if needed) and are writable.
func (c *Checker) CheckOutputDirs() CheckResult {
	if c.cfg == nil {
		return CheckResult{Valid: false, Message: "configuration not loaded"}
	}
	for _, dir := range []string{c.cfg.ImagesDir, c.cfg.MetadataDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return CheckResult{
				Valid:   false,
				Message: fmt.Sprintf("cannot create %s", dir),
				Error:   err,
			}
		}
		probe := filepath.Join(dir, ".write-probe")
		if err := os.WriteFile(probe, nil, 0o644); err != nil {
			return CheckResult{
				Valid:   false,
				Message: fmt.Sprintf("%s is not writable", dir),
				Error:   err,
			}
		}
		os.Remove(probe)
	}
	return CheckResult{Valid: true, Message: "output directories writable"}
}
