// Package bridge reconciles the live surface against the logical model.
// It consumes the surface's change-notification stream, de-duplicates
// echoes of its own writes, routes changes into the state store, and
// requests surface rewrites when a clamp corrects a position.
//
// The notification stream is best-effort and self-referential: every
// programmatic write the bridge (or projector) performs comes back as a
// fresh notification. A single suppression flag, set around programmatic
// writes and cleared on the next scheduler tick, is the sole reentrancy
// mechanism.
package bridge

import (
	"log/slog"
	"sync/atomic"

	"github.com/hazyhaar/folio/pagesync/internal/project"
	"github.com/hazyhaar/folio/pagesync/internal/registry"
	"github.com/hazyhaar/folio/pagesync/internal/state"
	"github.com/hazyhaar/folio/surface"
)

// Requester schedules a persistence write. *persist.Saver satisfies it.
type Requester interface {
	Request()
}

// Config wires a Bridge.
type Config struct {
	Surface   surface.Surface
	Registry  *registry.Registry
	Store     *state.Store
	Projector *project.Projector
	Saver     Requester
	Logger    *slog.Logger

	// Dispatch delivers incoming batches onto the engine's control loop.
	// The subscription callback fires on the host's goroutine; Dispatch
	// moves processing to the single-threaded loop. Nil means process
	// inline (tests).
	Dispatch func(func())

	// Tick schedules fn for the next control-loop tick. The suppression
	// flag is released here, not synchronously, because the host
	// delivers echoes of a write asynchronously after it. Nil means run
	// inline, which disables suppression of asynchronous echoes (tests
	// supply their own queue).
	Tick func(func())

	// Frame schedules fn after one rendering frame. Freshly inserted
	// elements frequently report unreliable dimensions in the same tick
	// as the insertion, so insert handling is deferred through here.
	// Nil means run inline.
	Frame func(func())
}

// Bridge is the reconciliation path between surface and store.
type Bridge struct {
	cfg      Config
	suppress atomic.Bool
	cancel   func()

	// detached marks a bridge whose document has been closed. Batches
	// dispatched before the subscription was cancelled, and frame
	// callbacks deferred before the switch, still arrive afterwards; they
	// must not mutate the abandoned store or rewrite the surface, which
	// by then belongs to the next document. Touched on the dispatch
	// goroutine only.
	detached bool

	// dropped counts batches discarded while suppressed, for tests and
	// the status surface.
	dropped atomic.Uint64
}

// New creates a Bridge. Attach must be called to start consuming
// notifications.
func New(cfg Config) *Bridge {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Dispatch == nil {
		cfg.Dispatch = func(fn func()) { fn() }
	}
	if cfg.Tick == nil {
		cfg.Tick = func(fn func()) { fn() }
	}
	if cfg.Frame == nil {
		cfg.Frame = func(fn func()) { fn() }
	}
	return &Bridge{cfg: cfg}
}

// Attach subscribes to the surface's notification stream.
func (b *Bridge) Attach() {
	b.Detach()
	b.detached = false
	b.cancel = b.cfg.Surface.Subscribe(func(batch surface.Batch) {
		b.cfg.Dispatch(func() { b.HandleBatch(batch) })
	})
}

// Detach cancels the subscription. Must be called before the engine
// attaches to another document's surface, so stale notifications cannot
// mutate the new document's state.
func (b *Bridge) Detach() {
	b.detached = true
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}

// Dropped returns the number of batches discarded as echoes.
func (b *Bridge) Dropped() uint64 { return b.dropped.Load() }

// HandleBatch processes one notification delivery. While the suppression
// flag is set the whole batch is an echo of our own writes and is
// dropped. Geometry records are processed before insert/remove records.
func (b *Bridge) HandleBatch(batch surface.Batch) {
	if b.detached {
		return
	}
	if b.suppress.Load() {
		b.dropped.Add(1)
		return
	}

	for _, rec := range batch.Ordered() {
		switch rec.Op {
		case surface.OpGeometry:
			b.onGeometry(rec)
		case surface.OpInsert:
			b.onInsert(rec)
		case surface.OpRemove:
			// State is retained: leaving the visible surface is what
			// pagination itself does to nodes, and must not be conflated
			// with user deletion. Only Engine.RemoveNode deletes.
			b.cfg.Logger.Debug("bridge: node removed from surface, state retained")
		}
	}
}

// Guard runs fn with the suppression flag set, releasing it on the next
// scheduler tick. All programmatic geometry writes go through here.
func (b *Bridge) Guard(fn func()) {
	b.suppress.Store(true)
	fn()
	b.cfg.Tick(func() { b.suppress.Store(false) })
}

func (b *Bridge) onGeometry(rec surface.Record) {
	rect, ok := rec.Rect, rec.HasRect
	if !ok {
		rect, ok = rec.Node.MeasuredRect()
	}
	if !ok {
		// Unparseable geometry: skip this cycle, keep stored state, the
		// node is reconsidered on its next notification.
		b.cfg.Logger.Debug("bridge: geometry unreadable, skipping node")
		return
	}

	id := b.cfg.Registry.Ensure(rec.Node)

	if _, exists := b.cfg.Store.Get(id); !exists {
		// First placement: the node lands on the page the user is on.
		st := b.cfg.Store.AssignNewNode(id, rect, state.AssignCurrentPage)
		b.Guard(func() { b.cfg.Projector.One(rec.Node, st) })
		b.cfg.Saver.Request()
		return
	}

	st, stateChanged, clamped, _ := b.cfg.Store.ReconcileMove(id, rect)
	if clamped {
		// The clamp corrected the reported geometry; rewrite the surface
		// so the visual position matches the store.
		b.Guard(func() { b.cfg.Projector.One(rec.Node, st) })
	}
	if stateChanged {
		b.cfg.Saver.Request()
	}
}

func (b *Bridge) onInsert(rec surface.Record) {
	node := rec.Node
	// Deferred one frame: a freshly inserted element's measured
	// dimensions are unreliable in the same tick as the insertion.
	b.cfg.Frame(func() {
		if b.detached || !node.Alive() {
			return
		}
		id := b.cfg.Registry.Ensure(node)

		if st, ok := b.cfg.Store.Get(id); ok {
			// Recycled or re-attached element: its logical state wins
			// over whatever geometry it reappeared with.
			b.Guard(func() { b.cfg.Projector.One(node, st) })
			return
		}

		rect, ok := node.MeasuredRect()
		if !ok {
			b.cfg.Logger.Debug("bridge: inserted node unmeasurable, deferring", "id", id)
			return
		}
		st := b.cfg.Store.AssignNewNode(id, rect, state.AssignCurrentPage)
		b.Guard(func() { b.cfg.Projector.One(node, st) })
		b.cfg.Saver.Request()
	})
}

// Rescan walks every node on an already-populated surface and assigns
// state to the unknown ones, inferring each node's page from its absolute
// Y (there is no "current page the user dropped it on" for pre-existing
// nodes). Known nodes are left untouched. Returns the number of nodes
// newly assigned.
func (b *Bridge) Rescan() int {
	assigned := 0
	for _, n := range b.cfg.Surface.Nodes() {
		id := b.cfg.Registry.Ensure(n)
		if _, ok := b.cfg.Store.Get(id); ok {
			continue
		}
		rect, ok := n.MeasuredRect()
		if !ok {
			b.cfg.Logger.Debug("bridge: rescan skipping unmeasurable node", "id", id)
			continue
		}
		b.cfg.Store.AssignNewNode(id, rect, state.AssignInferPage)
		assigned++
	}
	if assigned > 0 {
		b.cfg.Saver.Request()
	}
	return assigned
}
