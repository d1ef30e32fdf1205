package db

import (
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "manifest.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpenAppliesMigrations(t *testing.T) {
	store := openTestStore(t)

	// Freshly migrated schema should accept a run row immediately.
	if err := store.RecordRun("run-1", 42, 100); err != nil {
		t.Errorf("RecordRun() error = %v", err)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() error = %v", err)
	}
	if err := store.RecordRun("run-1", 7, 10); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}
	store.Close()

	// Reopening an existing manifest must not fail on already-applied migrations.
	store, err = Open(path)
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	defer store.Close()

	n, err := store.ItemCount("run-1")
	if err != nil {
		t.Fatalf("ItemCount() error = %v", err)
	}
	if n != 0 {
		t.Errorf("ItemCount() = %d, want 0", n)
	}
}

func TestInsertItemAndQuery(t *testing.T) {
	store := openTestStore(t)

	if err := store.RecordRun("run-1", 42, 3); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}

	items := []ItemRecord{
		{Index: 1, RunID: "run-1", Signature: "background=blue|hat=cap", ImagePath: "images/1.png", MetadataPath: "metadata/1.json"},
		{Index: 2, RunID: "run-1", Signature: "background=red|hat=crown", ImagePath: "images/2.png", MetadataPath: "metadata/2.json"},
	}
	for _, it := range items {
		if err := store.InsertItem(it); err != nil {
			t.Fatalf("InsertItem(%d) error = %v", it.Index, err)
		}
	}

	n, err := store.ItemCount("run-1")
	if err != nil {
		t.Fatalf("ItemCount() error = %v", err)
	}
	if n != 2 {
		t.Errorf("ItemCount() = %d, want 2", n)
	}

	got, err := store.Items("run-1")
	if err != nil {
		t.Fatalf("Items() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Items() returned %d rows, want 2", len(got))
	}
	if got[0].Signature != "background=blue|hat=cap" {
		t.Errorf("first item signature = %q, want %q", got[0].Signature, "background=blue|hat=cap")
	}
	if got[1].Index != 2 {
		t.Errorf("second item index = %d, want 2", got[1].Index)
	}
}

func TestInsertItemRejectsDuplicateSignature(t *testing.T) {
	store := openTestStore(t)

	if err := store.RecordRun("run-1", 42, 3); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}
	first := ItemRecord{Index: 1, RunID: "run-1", Signature: "background=blue", ImagePath: "1.png", MetadataPath: "1.json"}
	if err := store.InsertItem(first); err != nil {
		t.Fatalf("InsertItem() error = %v", err)
	}

	dup := ItemRecord{Index: 2, RunID: "run-1", Signature: "background=blue", ImagePath: "2.png", MetadataPath: "2.json"}
	if err := store.InsertItem(dup); err == nil {
		t.Error("InsertItem() with duplicate signature should fail")
	}
}

func TestBumpTraitCount(t *testing.T) {
	store := openTestStore(t)

	if err := store.RecordRun("run-1", 42, 10); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}

	bumps := []struct{ category, variant string }{
		{"background", "blue"},
		{"background", "blue"},
		{"background", "red"},
		{"hat", "cap"},
	}
	for _, b := range bumps {
		if err := store.BumpTraitCount("run-1", b.category, b.variant); err != nil {
			t.Fatalf("BumpTraitCount(%s/%s) error = %v", b.category, b.variant, err)
		}
	}

	counts, err := store.TraitCounts("run-1")
	if err != nil {
		t.Fatalf("TraitCounts() error = %v", err)
	}

	want := []TraitCount{
		{Category: "background", Variant: "blue", Count: 2},
		{Category: "background", Variant: "red", Count: 1},
		{Category: "hat", Variant: "cap", Count: 1},
	}
	if len(counts) != len(want) {
		t.Fatalf("TraitCounts() returned %d rows, want %d", len(counts), len(want))
	}
	for i, w := range want {
		if counts[i] != w {
			t.Errorf("TraitCounts()[%d] = %+v, want %+v", i, counts[i], w)
		}
	}
}

func TestFinishRun(t *testing.T) {
	store := openTestStore(t)

	if err := store.RecordRun("run-1", 42, 5); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}
	if err := store.FinishRun("run-1", RunStatusPartial, 3); err != nil {
		t.Errorf("FinishRun() error = %v", err)
	}

	var status string
	var produced int
	err := store.conn.QueryRow(
		`SELECT status, produced FROM runs WHERE run_id = ?`, "run-1",
	).Scan(&status, &produced)
	if err != nil {
		t.Fatalf("querying run row: %v", err)
	}
	if status != RunStatusPartial {
		t.Errorf("run status = %q, want %q", status, RunStatusPartial)
	}
	if produced != 3 {
		t.Errorf("run produced = %d, want 3", produced)
	}
}

func TestManifestWriterPersistsQueuedItems(t *testing.T) {
	store := openTestStore(t)

	if err := store.RecordRun("run-1", 42, 2); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}

	var mu sync.Mutex
	var failures []error
	writer := NewManifestWriterWithConfig(store, ManifestWriterConfig{
		QueueCapacity: 10,
		OnError: func(item ItemRecord, err error) {
			mu.Lock()
			failures = append(failures, err)
			mu.Unlock()
		},
	})
	writer.Start()

	items := []ItemRecord{
		{Index: 1, RunID: "run-1", Signature: "background=blue", ImagePath: "1.png", MetadataPath: "1.json"},
		{Index: 2, RunID: "run-1", Signature: "background=red", ImagePath: "2.png", MetadataPath: "2.json"},
	}
	for _, it := range items {
		ok := writer.Enqueue(it, []TraitCount{{Category: "background", Variant: "blue"}})
		if !ok {
			t.Fatalf("Enqueue(%d) returned false", it.Index)
		}
	}

	if !writer.StopWithTimeout(5 * time.Second) {
		t.Fatal("writer did not drain within timeout")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(failures) != 0 {
		t.Fatalf("writer reported %d failures: %v", len(failures), failures)
	}

	n, err := store.ItemCount("run-1")
	if err != nil {
		t.Fatalf("ItemCount() error = %v", err)
	}
	if n != 2 {
		t.Errorf("ItemCount() = %d, want 2", n)
	}

	counts, err := store.TraitCounts("run-1")
	if err != nil {
		t.Fatalf("TraitCounts() error = %v", err)
	}
	if len(counts) != 1 || counts[0].Count != 2 {
		t.Errorf("TraitCounts() = %+v, want background/blue count 2", counts)
	}
}

func TestManifestWriterReportsDuplicateInsert(t *testing.T) {
	store := openTestStore(t)

	if err := store.RecordRun("run-1", 42, 2); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}

	var mu sync.Mutex
	var failures []ItemRecord
	writer := NewManifestWriterWithConfig(store, ManifestWriterConfig{
		QueueCapacity: 10,
		OnError: func(item ItemRecord, err error) {
			mu.Lock()
			failures = append(failures, item)
			mu.Unlock()
		},
	})
	writer.Start()

	writer.Enqueue(ItemRecord{Index: 1, RunID: "run-1", Signature: "same", ImagePath: "1.png", MetadataPath: "1.json"}, nil)
	writer.Enqueue(ItemRecord{Index: 2, RunID: "run-1", Signature: "same", ImagePath: "2.png", MetadataPath: "2.json"}, nil)

	if !writer.StopWithTimeout(5 * time.Second) {
		t.Fatal("writer did not drain within timeout")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(failures) != 1 {
		t.Fatalf("expected 1 reported failure, got %d", len(failures))
	}
	if failures[0].Index != 2 {
		t.Errorf("failed item index = %d, want 2", failures[0].Index)
	}
}
