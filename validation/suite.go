package validation

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

// Step represents a single validation step with its status.
type Step struct {
	Name    string
	Status  StepStatus
	Message string
	Error   error
	Latency time.Duration
}

// StepStatus represents the status of a validation step.
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepPassed
	StepFailed
	StepSkipped
)

// String returns the string representation of a step status.
func (s StepStatus) String() string {
	switch s {
	case StepPending:
		return "pending"
	case StepRunning:
		return "running"
	case StepPassed:
		return "passed"
	case StepFailed:
		return "failed"
	case StepSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// SuiteResult represents the complete result of a suite run.
type SuiteResult struct {
	Steps       []Step
	TotalSteps  int
	PassedSteps int
	FailedSteps int
	Duration    time.Duration
	Success     bool
}

// Suite runs all pre-run checks in dependency order with progress output.
// Config and traits checks gate the capacity check, since capacity is
// meaningless without a loaded registry.
type Suite struct {
	output       io.Writer
	checker      *Checker
	showProgress bool
	failFast     bool
}

// NewSuite creates a Suite with default settings.
func NewSuite() *Suite {
	return &Suite{
		output:       os.Stdout,
		checker:      NewChecker(),
		showProgress: true,
	}
}

// WithOutput sets the output writer for progress messages.
func (s *Suite) WithOutput(w io.Writer) *Suite {
	s.output = w
	return s
}

// WithShowProgress enables or disables progress output.
func (s *Suite) WithShowProgress(show bool) *Suite {
	s.showProgress = show
	return s
}

// WithFailFast stops validation on first failure if enabled.
func (s *Suite) WithFailFast(failFast bool) *Suite {
	s.failFast = failFast
	return s
}

// WithEnvPath sets a custom path for the .env file.
func (s *Suite) WithEnvPath(path string) *Suite {
	s.checker.WithEnvPath(path)
	return s
}

// Checker exposes the underlying checker so callers can reuse the config and
// registry it loaded during validation.
func (s *Suite) Checker() *Checker {
	return s.checker
}

// Validate runs all checks in sequence with progress output.
func (s *Suite) Validate() SuiteResult {
	startTime := time.Now()
	steps := make([]Step, 0, 6)

	if s.showProgress {
		s.printHeader("TraitForge Configuration Validation")
	}

	checks := []struct {
		name string
		fn   func() CheckResult
	}{
		{"Environment File", s.checker.CheckEnvFile},
		{"Engine Configuration", s.checker.CheckConfig},
	}
	for _, check := range checks {
		step := s.runStep(check.name, check.fn)
		steps = append(steps, step)
		if s.failFast && step.Status == StepFailed {
			return s.buildResult(steps, startTime)
		}
	}

	// Traits file and everything after it need a loaded configuration.
	configOK := s.hasAllPassed(steps)

	gated := []struct {
		name   string
		fn     func() CheckResult
		reason string
	}{
		{"Traits File", s.checker.CheckTraitsFile, "Skipped due to configuration errors"},
		{"Trait Space Capacity", s.checker.CheckCapacity, "Skipped due to traits file errors"},
		{"Output Directories", s.checker.CheckOutputDirs, "Skipped due to configuration errors"},
		{"Disk Space", s.checker.CheckDiskSpace, "Skipped due to traits file errors"},
	}
	for _, check := range gated {
		var step Step
		if configOK {
			step = s.runStep(check.name, check.fn)
			if step.Status == StepFailed && check.name == "Traits File" {
				configOK = false // capacity check depends on the registry
			}
		} else {
			step = Step{Name: check.name, Status: StepSkipped, Message: check.reason}
			if s.showProgress {
				s.printStep(step)
			}
		}
		steps = append(steps, step)
		if s.failFast && step.Status == StepFailed {
			return s.buildResult(steps, startTime)
		}
	}

	result := s.buildResult(steps, startTime)

	if s.showProgress {
		s.printSummary(result)
	}

	return result
}

// runStep executes a validation step with timing and progress output.
func (s *Suite) runStep(name string, fn func() CheckResult) Step {
	step := Step{Name: name, Status: StepRunning}

	if s.showProgress {
		fmt.Fprintf(s.output, "  ◌ %s...", name)
	}

	startTime := time.Now()
	result := fn()
	step.Latency = time.Since(startTime)
	step.Message = result.Message
	step.Error = result.Error

	if result.Valid {
		step.Status = StepPassed
	} else {
		step.Status = StepFailed
	}

	if s.showProgress {
		s.printStep(step)
	}

	return step
}

func (s *Suite) hasAllPassed(steps []Step) bool {
	for _, step := range steps {
		if step.Status == StepFailed {
			return false
		}
	}
	return true
}

func (s *Suite) buildResult(steps []Step, startTime time.Time) SuiteResult {
	result := SuiteResult{
		Steps:      steps,
		TotalSteps: len(steps),
		Duration:   time.Since(startTime),
		Success:    true,
	}

	for _, step := range steps {
		switch step.Status {
		case StepPassed:
			result.PassedSteps++
		case StepFailed:
			result.FailedSteps++
			result.Success = false
		}
	}

	return result
}

// printHeader prints a validation header.
func (s *Suite) printHeader(title string) {
	fmt.Fprintln(s.output)
	headerColor := color.New(color.FgCyan, color.Bold)
	headerColor.Fprintf(s.output, "━━━ %s ━━━\n", title)
	fmt.Fprintln(s.output)
}

// printStep prints a completed validation step with status indicator.
func (s *Suite) printStep(step Step) {
	var icon string
	var clr *color.Color

	switch step.Status {
	case StepPassed:
		icon = "✓"
		clr = color.New(color.FgGreen)
	case StepFailed:
		icon = "✗"
		clr = color.New(color.FgRed)
	case StepSkipped:
		icon = "○"
		clr = color.New(color.FgHiBlack)
	default:
		icon = "?"
		clr = color.New(color.FgWhite)
	}

	// Clear the "running" line and print result
	fmt.Fprintf(s.output, "\r")
	clr.Fprintf(s.output, "  %s %s", icon, step.Name)

	if step.Message != "" {
		dim := color.New(color.FgHiBlack)
		dim.Fprintf(s.output, " - %s", step.Message)
	}

	fmt.Fprintln(s.output)

	if step.Status == StepFailed && step.Error != nil {
		errColor := color.New(color.FgRed)
		errColor.Fprintf(s.output, "    └─ %s\n", step.Error.Error())
	}
}

// printSummary prints the validation summary.
func (s *Suite) printSummary(result SuiteResult) {
	fmt.Fprintln(s.output)

	if result.Success {
		successColor := color.New(color.FgGreen, color.Bold)
		successColor.Fprintf(s.output, "━━━ Validation Passed ")
		color.New(color.FgHiBlack).Fprintf(s.output, "(%d/%d checks passed in %v)",
			result.PassedSteps, result.TotalSteps, result.Duration.Round(time.Millisecond))
		successColor.Fprintln(s.output, " ━━━")
	} else {
		failColor := color.New(color.FgRed, color.Bold)
		failColor.Fprintf(s.output, "━━━ Validation Failed ")
		color.New(color.FgHiBlack).Fprintf(s.output, "(%d passed, %d failed)",
			result.PassedSteps, result.FailedSteps)
		failColor.Fprintln(s.output, " ━━━")
	}

	fmt.Fprintln(s.output)
}

// GetErrors returns all errors from failed steps.
func (r SuiteResult) GetErrors() []error {
	errs := make([]error, 0)
	for _, step := range r.Steps {
		if step.Error != nil {
			errs = append(errs, step.Error)
		}
	}
	return errs
}

// GetFirstError returns the first error from failed steps, or nil if all passed.
func (r SuiteResult) GetFirstError() error {
	for _, step := range r.Steps {
		if step.Error != nil {
			return step.Error
		}
	}
	return nil
}

// Summary returns a human-readable summary string.
func (r SuiteResult) Summary() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Validation %s: ", map[bool]string{true: "Passed", false: "Failed"}[r.Success]))
	sb.WriteString(fmt.Sprintf("%d/%d checks passed", r.PassedSteps, r.TotalSteps))
	if r.FailedSteps > 0 {
		sb.WriteString(fmt.Sprintf(", %d failed", r.FailedSteps))
	}
	sb.WriteString(fmt.Sprintf(" (took %v)", r.Duration.Round(time.Millisecond)))
	return sb.String()
}
