// Package metadata converts sampled trait combinations into
// standards-shaped per-item metadata documents.
package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Attribute is one trait entry of a metadata document.
type Attribute struct {
	// TraitType is the category display name.
	TraitType string

	// Value is the chosen variant's display name.
	Value string

	// Numeric marks the value for emission as a JSON number.
	Numeric bool
}

// MarshalJSON emits {"trait_type": ..., "value": ...}, encoding the value as
// a JSON number when the category is flagged numeric.
func (a Attribute) MarshalJSON() ([]byte, error) {
	if a.Numeric {
		n, err := strconv.ParseFloat(a.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("metadata: numeric trait %q has non-numeric value %q", a.TraitType, a.Value)
		}
		return json.Marshal(struct {
			TraitType string  `json:"trait_type"`
			Value     float64 `json:"value"`
		}{a.TraitType, n})
	}
	return json.Marshal(struct {
		TraitType string `json:"trait_type"`
		Value     string `json:"value"`
	}{a.TraitType, a.Value})
}

// UnmarshalJSON accepts both string and numeric values, mirroring MarshalJSON.
func (a *Attribute) UnmarshalJSON(data []byte) error {
	var raw struct {
		TraitType string          `json:"trait_type"`
		Value     json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a.TraitType = raw.TraitType

	var s string
	if err := json.Unmarshal(raw.Value, &s); err == nil {
		a.Value = s
		a.Numeric = false
		return nil
	}

	var n float64
	if err := json.Unmarshal(raw.Value, &n); err != nil {
		return fmt.Errorf("metadata: attribute %q value is neither string nor number", raw.TraitType)
	}
	a.Value = strconv.FormatFloat(n, 'f', -1, 64)
	a.Numeric = true
	return nil
}

// Document is one item's metadata: a stable identifier, templated name and
// description, the image reference, and one attribute per trait category.
type Document struct {
	ID          int         `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes"`
}

// Marshal renders the document as indented JSON.
func (d *Document) Marshal() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// WriteDocument writes the document to path atomically so a cancelled item
// never leaves a truncated metadata file behind.
func WriteDocument(doc *Document, path string) error {
	data, err := doc.Marshal()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("metadata: creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("metadata: writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("metadata: closing %s: %w", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("metadata: renaming into place: %w", err)
	}
	return nil
}
