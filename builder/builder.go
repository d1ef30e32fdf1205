// Package builder orchestrates the generation pipeline: it draws trait
// combinations, enforces uniqueness, and fans accepted items out to workers
// that composite the image and emit the metadata document.
//
// The architecture follows atomic design principles:
// - Atoms: single draws, signature checks, file writes
// - Molecules: the sequential draw loop, the worker pool
// - Organisms: Build, which runs a complete collection to completion
package builder

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"traitforge/compositor"
	"traitforge/core"
	"traitforge/db"
	"traitforge/logging"
	"traitforge/metadata"
	"traitforge/registry"
	"traitforge/sampler"
	"traitforge/tracker"
)

// DefaultWorkers is the worker count used when the configuration leaves it unset.
const DefaultWorkers = 4

// Config holds the knobs for one collection build.
type Config struct {
	// Size is the number of unique items to produce
	Size int
	// BaseIndex is the index assigned to the first item (subsequent items increment)
	BaseIndex int
	// Seed drives the sampler when HasSeed is true; otherwise a random seed is drawn
	Seed int64
	// HasSeed indicates Seed was explicitly provided
	HasSeed bool
	// RetryBudget caps consecutive duplicate draws (0 = Size * 10)
	RetryBudget int
	// Workers sizes the composite/emit pool (0 = DefaultWorkers)
	Workers int
	// ImagesDir receives the composited PNG files
	ImagesDir string
	// MetadataDir receives the JSON metadata documents
	MetadataDir string
}

// Result summarizes a finished (or partially finished) build.
// Produced counts items that were fully written; on early exit the
// images and documents for those items remain on disk.
type Result struct {
	RunID    string
	Seed     int64
	Produced int
	Retries  int
	Manifest *Manifest
}

// Builder wires the registry, sampler, tracker, compositor, and emitter into
// one pipeline. The manifest store is optional; a nil store disables
// persistence without changing generation behavior.
type Builder struct {
	reg        *registry.Registry
	sampler    *sampler.Sampler
	compositor *compositor.Compositor
	emitter    *metadata.Emitter
	store      *db.Store
	log        *logging.Logger
	config     Config
}

// New creates a builder. The emitter configuration controls naming and image
// references in the metadata documents; store may be nil.
func New(reg *registry.Registry, emitterCfg metadata.EmitterConfig, cfg Config, store *db.Store, log *logging.Logger) (*Builder, error) {
	if cfg.Size <= 0 {
		return nil, core.ErrInvalidConfig("TRAITFORGE_COLLECTION_SIZE", fmt.Sprintf("must be a positive integer, got %d", cfg.Size))
	}
	if cfg.ImagesDir == "" || cfg.MetadataDir == "" {
		return nil, core.ErrMissingConfig("TRAITFORGE_OUTPUT_DIR")
	}

	emitter, err := metadata.New(reg, emitterCfg)
	if err != nil {
		return nil, err
	}

	if cfg.RetryBudget <= 0 {
		cfg.RetryBudget = cfg.Size * core.DefaultRetryMultiplier
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.BaseIndex < 0 {
		cfg.BaseIndex = 1
	}

	return &Builder{
		reg:        reg,
		sampler:    sampler.New(reg),
		compositor: compositor.New(reg),
		emitter:    emitter,
		store:      store,
		log:        log,
		config:     cfg,
	}, nil
}

// job carries one accepted combination to the worker pool.
type job struct {
	index int
	combo sampler.Combination
}

// Build runs the full pipeline and returns a result describing what was
// produced. The critical path (draw, uniqueness check, index assignment) is
// strictly sequential so a given seed always yields the same collection;
// compositing and metadata emission fan out to workers.
//
// On retry exhaustion or cancellation the returned error is non-nil but the
// result still describes every item that was fully written.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	if err := tracker.CheckCapacity(b.reg, b.config.Size); err != nil {
		return nil, err
	}

	seed := b.config.Seed
	if !b.config.HasSeed {
		seed = sampler.RandomSeed()
	}
	runID := uuid.New().String()[:8]

	b.log.Infof("Starting run %s: size=%d seed=%d retry_budget=%d workers=%d",
		runID, b.config.Size, seed, b.config.RetryBudget, b.config.Workers)

	var writer *db.ManifestWriter
	if b.store != nil {
		if err := b.store.RecordRun(runID, seed, b.config.Size); err != nil {
			return nil, err
		}
		writer = db.NewManifestWriterWithConfig(b.store, db.ManifestWriterConfig{
			QueueCapacity: db.DefaultQueueCapacity,
			OnError: func(item db.ItemRecord, err error) {
				b.log.Warnf("Manifest write failed for item %d: %v", item.Index, err)
			},
		})
		writer.Start()
	}

	manifest := NewManifest()
	result := &Result{RunID: runID, Seed: seed, Manifest: manifest}

	workCtx, cancelWork := context.WithCancel(ctx)
	defer cancelWork()

	jobs := make(chan job, b.config.Workers)
	var wg sync.WaitGroup
	var workerErr error
	var errOnce sync.Once
	fail := func(err error) {
		errOnce.Do(func() {
			workerErr = err
			cancelWork()
		})
	}

	for i := 0; i < b.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if workCtx.Err() != nil {
					continue // drain remaining jobs after failure
				}
				if err := b.produceItem(runID, j, manifest, writer); err != nil {
					fail(err)
				}
			}
		}()
	}

	rng := sampler.NewRNG(seed)
	seen := tracker.New(b.config.Size)
	retries := 0        // total duplicate draws, for reporting
	consecutive := 0    // resets on every accepted draw; this is what the budget bounds
	var runErr error

drawLoop:
	for produced := 0; produced < b.config.Size; {
		select {
		case <-workCtx.Done():
			runErr = ctx.Err()
			if runErr == nil {
				runErr = workCtx.Err()
			}
			break drawLoop
		default:
		}

		combo, err := b.sampler.Sample(rng)
		if err != nil {
			runErr = err
			break
		}

		sig := combo.Signature()
		if !seen.IsNew(sig) {
			retries++
			consecutive++
			if consecutive > b.config.RetryBudget {
				runErr = &core.RetryExhaustedError{Produced: produced, Budget: b.config.RetryBudget}
				break
			}
			continue
		}
		seen.Record(sig)
		consecutive = 0

		index := b.config.BaseIndex + produced
		produced++

		select {
		case jobs <- job{index: index, combo: combo}:
		case <-workCtx.Done():
			runErr = ctx.Err()
			if runErr == nil {
				runErr = workCtx.Err()
			}
			break drawLoop
		}
	}

	close(jobs)
	wg.Wait()

	if writer != nil {
		if !writer.StopWithTimeout(db.DefaultDrainTimeout) {
			b.log.Warn("Manifest writer did not drain before timeout")
		}
	}

	// A worker failure cancels workCtx, so the draw loop exits with a
	// cancellation error; the worker's own error is the actionable one
	// unless the caller's context was itself cancelled.
	if workerErr != nil && ctx.Err() == nil {
		runErr = workerErr
	}
	// The manifest records items only after their files hit disk, so on an
	// early exit it describes exactly what the run left behind.
	result.Produced = manifest.Len()
	result.Retries = retries
	if workerErr != nil {
		b.log.Errorf("Run %s aborted after worker failure: %v", runID, workerErr)
	}

	if b.store != nil {
		status := db.RunStatusComplete
		switch {
		case runErr == nil:
		case isRetryExhausted(runErr):
			status = db.RunStatusPartial
		case ctx.Err() != nil:
			status = db.RunStatusCancelled
		default:
			status = db.RunStatusPartial
		}
		if err := b.store.FinishRun(runID, status, result.Produced); err != nil {
			b.log.Warnf("Failed to finalize run %s: %v", runID, err)
		}
	}

	if runErr != nil {
		b.log.Warnf("Run %s stopped early: produced=%d retries=%d err=%v",
			runID, result.Produced, retries, runErr)
		return result, runErr
	}

	b.log.Infof("Run %s complete: produced=%d retries=%d", runID, result.Produced, retries)
	return result, nil
}

// produceItem composites and writes one item's image and metadata document,
// records it in the manifest, and queues the persistence rows.
func (b *Builder) produceItem(runID string, j job, manifest *Manifest, writer *db.ManifestWriter) error {
	img, err := b.compositor.Compose(j.combo)
	if err != nil {
		return err
	}
	imagePath := b.imagePath(j.index)
	if err := compositor.WritePNG(img, imagePath); err != nil {
		return err
	}

	doc, err := b.emitter.Emit(j.index, j.combo)
	if err != nil {
		return err
	}
	metadataPath := b.metadataPath(j.index)
	if err := metadata.WriteDocument(doc, metadataPath); err != nil {
		return err
	}

	manifest.RecordItem(ItemInfo{
		Index:        j.index,
		Signature:    j.combo.Signature(),
		ImagePath:    imagePath,
		MetadataPath: metadataPath,
	}, j.combo)

	if writer != nil {
		traits := make([]db.TraitCount, 0, len(j.combo.Traits))
		for _, trait := range j.combo.Traits {
			traits = append(traits, db.TraitCount{Category: trait.Category.Name, Variant: trait.Variant.Name})
		}
		item := db.ItemRecord{
			Index:        j.index,
			RunID:        runID,
			Signature:    j.combo.Signature(),
			ImagePath:    imagePath,
			MetadataPath: metadataPath,
		}
		if !writer.Enqueue(item, traits) {
			// Queue full: block briefly rather than drop the row.
			if !writer.EnqueueWait(item, traits, db.DefaultDrainTimeout) {
				b.log.Warnf("Dropped manifest row for item %d: queue full", j.index)
			}
		}
	}

	b.log.Debugf("Produced item %d: %s", j.index, j.combo.Signature())
	return nil
}

func (b *Builder) imagePath(index int) string {
	return filepath.Join(b.config.ImagesDir, fmt.Sprintf("%d.png", index))
}

func (b *Builder) metadataPath(index int) string {
	return filepath.Join(b.config.MetadataDir, fmt.Sprintf("%d.json", index))
}

func isRetryExhausted(err error) bool {
	_, ok := core.IsRetryExhaustedError(err)
	return ok
}
