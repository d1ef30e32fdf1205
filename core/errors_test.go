package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestConfigError_ErrorIncludesAction(t *testing.T) {
	err := ErrBadWeight("background", "gold", -1)

	if !strings.Contains(err.Error(), "gold") {
		t.Errorf("error should name the offending variant, got: %s", err.Error())
	}
	if !strings.Contains(err.Error(), "greater than zero") {
		t.Errorf("error should include the corrective action, got: %s", err.Error())
	}
}

func TestConfigError_ErrorWithoutAction(t *testing.T) {
	err := &ConfigError{Code: "X", Message: "something broke"}

	if err.Error() != "something broke" {
		t.Errorf("expected bare message, got: %s", err.Error())
	}
}

func TestIsConfigError_Wrapped(t *testing.T) {
	inner := ErrEmptyCategory("hat")
	wrapped := fmt.Errorf("loading registry: %w", inner)

	configErr, ok := IsConfigError(wrapped)
	if !ok {
		t.Fatal("expected wrapped ConfigError to be detected")
	}
	if configErr.Code != ErrCodeEmptyCategory {
		t.Errorf("expected code %s, got %s", ErrCodeEmptyCategory, configErr.Code)
	}
}

func TestIsConfigError_NotConfigError(t *testing.T) {
	if _, ok := IsConfigError(errors.New("plain")); ok {
		t.Error("plain error should not be detected as ConfigError")
	}
	if code := GetErrorCode(errors.New("plain")); code != "" {
		t.Errorf("expected empty code, got %q", code)
	}
}

func TestCapacityError_MessageIncludesNumbers(t *testing.T) {
	err := &CapacityError{Requested: 7, Available: 6}

	msg := err.Error()
	if !strings.Contains(msg, "7") || !strings.Contains(msg, "6") {
		t.Errorf("capacity error should report requested vs available, got: %s", msg)
	}

	var capErr *CapacityError
	if !errors.As(fmt.Errorf("pre-check: %w", err), &capErr) {
		t.Error("expected errors.As to unwrap CapacityError")
	}
}

func TestRetryExhaustedError_PreservesCounts(t *testing.T) {
	err := &RetryExhaustedError{Produced: 42, Budget: 500}

	retryErr, ok := IsRetryExhaustedError(fmt.Errorf("run: %w", err))
	if !ok {
		t.Fatal("expected RetryExhaustedError to be detected")
	}
	if retryErr.Produced != 42 || retryErr.Budget != 500 {
		t.Errorf("expected produced=42 budget=500, got produced=%d budget=%d",
			retryErr.Produced, retryErr.Budget)
	}
}

func TestLayerDimensionError_NamesOffender(t *testing.T) {
	err := &LayerDimensionError{
		Category:  "hat",
		Variant:   "crown",
		LayerPath: "layers/hat/crown.png",
		GotW:      256, GotH: 256,
		WantW: 512, WantH: 512,
	}

	msg := err.Error()
	for _, want := range []string{"hat", "crown", "256x256", "512x512"} {
		if !strings.Contains(msg, want) {
			t.Errorf("dimension error missing %q, got: %s", want, msg)
		}
	}
}
