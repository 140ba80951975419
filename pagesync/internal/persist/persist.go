// Package persist translates the in-memory model to and from durable
// storage: debounced saves that coalesce edit bursts, forced flushes at
// document switch and shutdown, and a load path that treats any version
// or shape mismatch as absent data.
//
// The state store is single-owner and mutex-free, so a Saver never reads
// it from the debounce timer's goroutine. The timer only posts through
// Dispatch; the snapshot is taken on the dispatcher's goroutine and the
// backend write is handed to a writer goroutine, serialized and ordered
// by a sequence number so a stale snapshot never lands after a newer one.
package persist

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/folio/pagesync/internal/state"
)

// DefaultDebounce is the quiet period after the last edit before a save
// fires.
const DefaultDebounce = 1500 * time.Millisecond

// Backend is the durable storage a Saver writes to. *docstore.Store
// satisfies it.
type Backend interface {
	SaveState(ctx context.Context, docKey string, version int, blob []byte) error
	LoadState(ctx context.Context, docKey string) (version int, blob []byte, ok bool, err error)
}

// Saver owns persistence for one document's store. Create one per open
// document; there is never more than one pending debounce timer per
// instance. Flush, Close, and Load read the store and must run on the
// dispatcher's goroutine; Request and Cancel are safe from anywhere.
type Saver struct {
	store    *state.Store
	back     Backend
	docKey   string
	debounce time.Duration
	dispatch func(func())
	logger   *slog.Logger

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
	seq    uint64

	writeMu sync.Mutex
	written uint64
}

// New creates a Saver for the given document. dispatch delivers the
// debounce timer's callback onto the goroutine that owns the store; nil
// means call inline (tests that drive the saver from one goroutine).
func New(store *state.Store, back Backend, docKey string, debounce time.Duration, dispatch func(func()), logger *slog.Logger) *Saver {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if dispatch == nil {
		dispatch = func(fn func()) { fn() }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Saver{
		store:    store,
		back:     back,
		docKey:   docKey,
		debounce: debounce,
		dispatch: dispatch,
		logger:   logger,
	}
}

// Request schedules a debounced save. Each call restarts the quiet-period
// timer, so a burst of edits produces one write. A no-op after Close.
func (s *Saver) Request() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() { s.dispatch(s.fire) })
}

// fire runs on the dispatcher's goroutine, where reading the store is
// safe. The serialized snapshot goes to a writer goroutine so the
// backend write does not stall the dispatcher.
func (s *Saver) fire() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	saved := s.store.Snapshot()
	blob, err := json.Marshal(saved)
	if err != nil {
		s.logger.Error("persist: snapshot marshal failed", "doc", s.docKey, "error", err)
		return
	}
	go func() {
		if err := s.write(context.Background(), seq, saved.Version, blob); err != nil {
			s.logger.Error("persist: debounced save failed", "doc", s.docKey, "error", err)
		}
	}()
}

// write performs one backend write. Writes are serialized; a snapshot
// superseded by a newer one is dropped rather than written out of order.
func (s *Saver) write(ctx context.Context, seq uint64, version int, blob []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if seq <= s.written {
		return nil
	}
	s.written = seq
	return s.back.SaveState(ctx, s.docKey, version, blob)
}

// Flush cancels any pending debounce and writes immediately, waiting out
// any in-flight debounced write first. Called at shutdown so the last
// edit burst is never lost.
func (s *Saver) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.seq++
	seq := s.seq
	s.mu.Unlock()
	return s.snapshotWrite(ctx, seq)
}

// Close flushes and permanently disables the saver. Callbacks that still
// hold a closed document's saver cannot re-arm a write to its key, so a
// document reopened under the same key never sees a stale overwrite.
func (s *Saver) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.seq++
	seq := s.seq
	s.mu.Unlock()
	return s.snapshotWrite(ctx, seq)
}

// Cancel drops any pending debounce without writing.
func (s *Saver) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Saver) snapshotWrite(ctx context.Context, seq uint64) error {
	saved := s.store.Snapshot()
	blob, err := json.Marshal(saved)
	if err != nil {
		return err
	}
	return s.write(ctx, seq, saved.Version, blob)
}

// Load replaces the store's model from storage. It returns false — with
// the store reset to a fresh single-page model — when nothing usable is
// stored: no row, version mismatch, or malformed shape. Load never
// returns an error to the caller; a bad blob is expected across version
// upgrades and is not a user-facing failure.
func (s *Saver) Load(ctx context.Context) bool {
	version, blob, ok, err := s.back.LoadState(ctx, s.docKey)
	if err != nil {
		s.logger.Warn("persist: load failed, starting fresh", "doc", s.docKey, "error", err)
		s.store.Reset()
		return false
	}
	if !ok {
		s.store.Reset()
		return false
	}
	if version != state.SavedStateVersion {
		s.logger.Info("persist: saved state version mismatch, starting fresh",
			"doc", s.docKey, "stored", version, "want", state.SavedStateVersion)
		s.store.Reset()
		return false
	}

	var saved state.SavedState
	if err := json.Unmarshal(blob, &saved); err != nil {
		s.logger.Warn("persist: malformed saved state, starting fresh", "doc", s.docKey, "error", err)
		s.store.Reset()
		return false
	}
	if err := s.store.Restore(saved); err != nil {
		s.logger.Warn("persist: unusable saved state, starting fresh", "doc", s.docKey, "error", err)
		s.store.Reset()
		return false
	}
	return true
}
