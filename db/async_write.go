package db

import (
	"context"
	"sync"
	"time"
)

// DefaultQueueCapacity is the default buffer size for the manifest write queue.
const DefaultQueueCapacity = 100

// DefaultDrainTimeout is the maximum time to wait for pending manifest writes
// during shutdown.
const DefaultDrainTimeout = 30 * time.Second

// manifestOp is one queued manifest write: the item row plus the trait count
// bumps derived from its combination.
type manifestOp struct {
	item   ItemRecord
	traits []TraitCount
	queued time.Time
}

// WriteErrorHandler is called for manifest writes that fail. The generation
// pipeline must not stall on manifest errors, so failures are reported out of
// band rather than returned to the producer.
type WriteErrorHandler func(item ItemRecord, err error)

// ManifestWriter queues item writes onto a buffered channel and persists them
// from a single background goroutine, keeping the generation loop free of
// database latency.
//
// This molecule composes:
// - Channel send/receive (atoms)
// - Context cancellation (atom)
// - Graceful shutdown with drain (composition)
type ManifestWriter struct {
	store   *Store
	queue   chan manifestOp
	onError WriteErrorHandler
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	mu      sync.Mutex
}

// ManifestWriterConfig holds configuration for the manifest writer.
type ManifestWriterConfig struct {
	// QueueCapacity is the buffer size for pending writes
	QueueCapacity int
	// OnError receives failed writes; nil failures are dropped silently
	OnError WriteErrorHandler
}

// DefaultManifestWriterConfig returns the default configuration.
func DefaultManifestWriterConfig() ManifestWriterConfig {
	return ManifestWriterConfig{
		QueueCapacity: DefaultQueueCapacity,
	}
}

// NewManifestWriter creates a manifest writer over the given store with
// default configuration.
func NewManifestWriter(store *Store) *ManifestWriter {
	return NewManifestWriterWithConfig(store, DefaultManifestWriterConfig())
}

// NewManifestWriterWithConfig creates a manifest writer with custom configuration.
func NewManifestWriterWithConfig(store *Store, config ManifestWriterConfig) *ManifestWriter {
	ctx, cancel := context.WithCancel(context.Background())

	capacity := config.QueueCapacity
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}

	return &ManifestWriter{
		store:   store,
		queue:   make(chan manifestOp, capacity),
		onError: config.OnError,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start begins the background processing goroutine.
// This must be called before queued writes are processed.
func (w *ManifestWriter) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return // Already started
	}

	w.started = true
	w.wg.Add(1)
	go w.processWrites()
}

func (w *ManifestWriter) processWrites() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			// Context cancelled, drain remaining operations
			w.drainQueue()
			return
		case op, ok := <-w.queue:
			if !ok {
				return
			}
			w.persist(op)
		}
	}
}

func (w *ManifestWriter) drainQueue() {
	for {
		select {
		case op, ok := <-w.queue:
			if !ok {
				return
			}
			w.persist(op)
		default:
			return // No more pending operations
		}
	}
}

func (w *ManifestWriter) persist(op manifestOp) {
	if err := w.store.InsertItem(op.item); err != nil {
		w.reportError(op.item, err)
		return
	}
	for _, tc := range op.traits {
		if err := w.store.BumpTraitCount(op.item.RunID, tc.Category, tc.Variant); err != nil {
			w.reportError(op.item, err)
		}
	}
}

func (w *ManifestWriter) reportError(item ItemRecord, err error) {
	if w.onError != nil {
		w.onError(item, err)
	}
}

// Enqueue queues one item plus its trait counts for async persistence.
// Returns true if queued, false if the buffer is full. Non-blocking.
func (w *ManifestWriter) Enqueue(item ItemRecord, traits []TraitCount) bool {
	op := manifestOp{item: item, traits: traits, queued: time.Now()}

	select {
	case w.queue <- op:
		return true
	default:
		// Buffer full
		return false
	}
}

// EnqueueWait queues one item, blocking up to timeout if the buffer is full.
// Returns true if queued within the timeout.
func (w *ManifestWriter) EnqueueWait(item ItemRecord, traits []TraitCount, timeout time.Duration) bool {
	op := manifestOp{item: item, traits: traits, queued: time.Now()}

	select {
	case w.queue <- op:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Pending returns the number of writes waiting in the buffer.
func (w *ManifestWriter) Pending() int {
	return len(w.queue)
}

// Stop signals the background goroutine to stop and waits for graceful drain
// of pending writes.
func (w *ManifestWriter) Stop() {
	w.cancel()
	w.wg.Wait()
}

// StopWithTimeout stops the writer with a maximum wait time.
// Returns true if stopped gracefully, false if timed out.
func (w *ManifestWriter) StopWithTimeout(timeout time.Duration) bool {
	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// IsStarted returns whether the background processor is running.
func (w *ManifestWriter) IsStarted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.started
}
