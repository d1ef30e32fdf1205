// Package supply validates a finished collection on disk: every metadata
// document has its image and vice versa, the index range has no gaps, all
// documents parse, and no two items share an attribute set.
package supply

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"traitforge/metadata"
)

var idPattern = regexp.MustCompile(`^(\d+)\.(png|json)$`)

// Options control optional checks beyond the core pairing validation.
type Options struct {
	// MinID and MaxID pin the expected index range; when both are zero the
	// range is inferred from the IDs present on disk.
	MinID int
	MaxID int
	// CheckImageField verifies each document's image reference ends with
	// "<id>.png".
	CheckImageField bool
}

// BadDocument records a metadata file that failed a content check.
type BadDocument struct {
	ID     int
	Reason string
}

// Report is the outcome of a supply validation run. Valid is false when any
// critical issue was found; duplicate filenames and image-field mismatches
// are advisory.
type Report struct {
	ImagesFound   int
	MetadataFound int

	DuplicateImageNames    []string
	DuplicateMetadataNames []string

	MissingImages   []int // IDs with metadata but no PNG
	MissingMetadata []int // IDs with a PNG but no metadata
	ImageGaps       []int // IDs absent from images within the expected range
	MetadataGaps    []int // IDs absent from metadata within the expected range

	InvalidDocuments    []BadDocument
	DuplicateAttributes []BadDocument // items sharing another item's attribute set
	ImageFieldMismatch  []BadDocument

	Valid bool
}

// Summary returns a one-line human-readable outcome.
func (r Report) Summary() string {
	if r.Valid {
		return fmt.Sprintf("supply OK: %d images, %d metadata documents", r.ImagesFound, r.MetadataFound)
	}
	return fmt.Sprintf(
		"supply FAILED: %d missing images, %d missing metadata, %d gaps, %d invalid, %d duplicate attribute sets",
		len(r.MissingImages), len(r.MissingMetadata),
		len(r.ImageGaps)+len(r.MetadataGaps),
		len(r.InvalidDocuments), len(r.DuplicateAttributes))
}

// Validate checks the collection under imagesDir and metadataDir and returns
// a full report. It never stops at the first problem so one run surfaces
// everything that needs fixing.
func Validate(imagesDir, metadataDir string, opts Options) (Report, error) {
	var report Report

	imageIDs, imgDupes, err := collectIDs(imagesDir, ".png")
	if err != nil {
		return report, fmt.Errorf("supply: scanning images: %w", err)
	}
	metaIDs, metaDupes, err := collectIDs(metadataDir, ".json")
	if err != nil {
		return report, fmt.Errorf("supply: scanning metadata: %w", err)
	}

	report.ImagesFound = len(imageIDs)
	report.MetadataFound = len(metaIDs)
	report.DuplicateImageNames = imgDupes
	report.DuplicateMetadataNames = metaDupes

	var common []int
	for id := range metaIDs {
		if _, ok := imageIDs[id]; ok {
			common = append(common, id)
		} else {
			report.MissingImages = append(report.MissingImages, id)
		}
	}
	for id := range imageIDs {
		if _, ok := metaIDs[id]; !ok {
			report.MissingMetadata = append(report.MissingMetadata, id)
		}
	}
	sort.Ints(common)
	sort.Ints(report.MissingImages)
	sort.Ints(report.MissingMetadata)

	minID, maxID := opts.MinID, opts.MaxID
	if minID == 0 && maxID == 0 && len(common) > 0 {
		minID = common[0]
		maxID = common[len(common)-1]
	}
	if maxID >= minID && (minID != 0 || maxID != 0) {
		for id := minID; id <= maxID; id++ {
			if _, ok := imageIDs[id]; !ok {
				report.ImageGaps = append(report.ImageGaps, id)
			}
			if _, ok := metaIDs[id]; !ok {
				report.MetadataGaps = append(report.MetadataGaps, id)
			}
		}
	}

	// Content checks over paired documents: parseability, attribute-set
	// uniqueness, and optionally the image reference.
	seenAttrs := make(map[string]int, len(common))
	for _, id := range common {
		doc, reason := loadDocument(metaIDs[id])
		if reason != "" {
			report.InvalidDocuments = append(report.InvalidDocuments, BadDocument{ID: id, Reason: reason})
			continue
		}

		key := attributeKey(doc)
		if firstID, dup := seenAttrs[key]; dup {
			report.DuplicateAttributes = append(report.DuplicateAttributes, BadDocument{
				ID:     id,
				Reason: fmt.Sprintf("same attribute set as item %d", firstID),
			})
		} else {
			seenAttrs[key] = id
		}

		if opts.CheckImageField {
			want := fmt.Sprintf("%d.png", id)
			img := strings.ToLower(doc.Image)
			if !strings.HasSuffix(img, "/"+want) && img != want {
				report.ImageFieldMismatch = append(report.ImageFieldMismatch, BadDocument{
					ID:     id,
					Reason: fmt.Sprintf("image field %q does not reference %s", doc.Image, want),
				})
			}
		}
	}

	report.Valid = len(report.MissingImages) == 0 &&
		len(report.MissingMetadata) == 0 &&
		len(report.ImageGaps) == 0 &&
		len(report.MetadataGaps) == 0 &&
		len(report.InvalidDocuments) == 0 &&
		len(report.DuplicateAttributes) == 0
	return report, nil
}

// collectIDs maps integer IDs to paths for files named like {id}{ext}, and
// reports case-insensitive duplicate filenames.
func collectIDs(dir, ext string) (map[int]string, []string, error) {
	ids := make(map[int]string)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return ids, nil, nil
		}
		return nil, nil, err
	}

	nameCounts := make(map[string]int)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		lower := strings.ToLower(entry.Name())
		nameCounts[lower]++

		if !strings.HasSuffix(lower, ext) {
			continue
		}
		m := idPattern.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		ids[id] = filepath.Join(dir, entry.Name())
	}

	var dupes []string
	for name, count := range nameCounts {
		if count > 1 {
			dupes = append(dupes, name)
		}
	}
	sort.Strings(dupes)
	return ids, dupes, nil
}

// loadDocument parses one metadata file, returning a non-empty reason string
// on failure.
func loadDocument(path string) (*metadata.Document, string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Sprintf("unreadable: %v", err)
	}
	var doc metadata.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Sprintf("invalid JSON: %v", err)
	}
	if len(doc.Attributes) == 0 {
		return nil, "no attributes"
	}
	return &doc, ""
}

// attributeKey builds a canonical key over a document's attributes so two
// items with the same traits collide regardless of attribute order.
func attributeKey(doc *metadata.Document) string {
	pairs := make([]string, 0, len(doc.Attributes))
	for _, attr := range doc.Attributes {
		pairs = append(pairs, attr.TraitType+"="+attr.Value)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "|")
}
