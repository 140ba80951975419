// Package pagesync is the folio synchronization engine. It partitions an
// infinite canvas into fixed-size pages and keeps each node's logical
// page assignment and in-page position consistent with the live surface,
// under asynchronous, best-effort, self-echoing change notifications.
//
// One Engine runs one single-threaded control loop. All model mutation
// happens on that loop; the public methods post onto it and wait, so they
// are safe to call from any goroutine (HTTP handlers, MCP tools, UI
// callbacks).
package pagesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/folio/geom"
	"github.com/hazyhaar/folio/pagesync/internal/bridge"
	"github.com/hazyhaar/folio/pagesync/internal/persist"
	"github.com/hazyhaar/folio/pagesync/internal/project"
	"github.com/hazyhaar/folio/pagesync/internal/registry"
	"github.com/hazyhaar/folio/pagesync/internal/state"
	"github.com/hazyhaar/folio/surface"
)

// Model types re-exported from the internal state package.
type (
	// Page is one fixed-size band of the canvas.
	Page = state.Page
	// NodeState is a node's page assignment and page-relative position.
	NodeState = state.NodeState
	// NodeStateEntry pairs an identity with its state.
	NodeStateEntry = state.NodeStateEntry
	// SavedState is the versioned persistence shape.
	SavedState = state.SavedState
)

// Backend is the durable storage the engine persists to. *docstore.Store
// satisfies it.
type Backend = persist.Backend

// ErrNoDocument is returned by operations that need an open document.
var ErrNoDocument = errors.New("pagesync: no document open")

// ErrPageRange is returned for navigation to a page that does not exist.
// It is a user-facing rejection: no state is mutated.
var ErrPageRange = errors.New("pagesync: page index out of range")

// Engine owns the synchronization machinery for the currently open
// document. Create one per host window; start Run before calling any
// other method.
type Engine struct {
	cfg    *Config
	back   Backend
	logger *slog.Logger
	reg    *registry.Registry

	events chan func()
	done   chan struct{}

	// doc is the per-document wiring; nil when no document is open.
	// Touched only on the control loop.
	doc *document
}

type document struct {
	key    string
	surf   surface.Surface
	store  *state.Store
	saver  *persist.Saver
	bridge *bridge.Bridge
	proj   *project.Projector
}

// New creates an Engine.
func New(cfg *Config, back Backend, logger *slog.Logger) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:    cfg,
		back:   back,
		logger: logger,
		reg:    registry.New(),
		events: make(chan func(), 1024),
		done:   make(chan struct{}),
	}
}

// Run drives the control loop until ctx is cancelled. On shutdown the
// open document is flushed before Run returns.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)
	for {
		select {
		case <-ctx.Done():
			e.closeCurrent()
			return ctx.Err()
		case fn := <-e.events:
			fn()
		}
	}
}

// post schedules fn on the control loop without waiting.
func (e *Engine) post(fn func()) {
	select {
	case e.events <- fn:
	case <-e.done:
	}
}

// frame schedules fn on the control loop after roughly one rendering
// frame.
func (e *Engine) frame(fn func()) {
	time.AfterFunc(e.cfg.Engine.FrameDelay, func() { e.post(fn) })
}

// do runs fn on the control loop and waits for it.
func (e *Engine) do(fn func()) {
	ran := make(chan struct{})
	e.post(func() {
		fn()
		close(ran)
	})
	select {
	case <-ran:
	case <-e.done:
	}
}

// OpenDocument attaches the engine to a document's surface: any previous
// document is flushed and detached first, then saved state (if usable)
// is loaded, the surface rescanned for unknown nodes, and the model
// projected. Returns whether usable saved state was found.
func (e *Engine) OpenDocument(ctx context.Context, docKey string, surf surface.Surface) (loaded bool, err error) {
	e.do(func() { loaded, err = e.openDocument(ctx, docKey, surf) })
	return loaded, err
}

func (e *Engine) openDocument(ctx context.Context, docKey string, surf surface.Surface) (bool, error) {
	e.closeCurrent()

	store := state.New(e.cfg.PageSize())
	saver := persist.New(store, e.back, docKey, e.cfg.Persist.Debounce, e.post, e.logger)
	proj := project.New(surf, store, e.logger)
	br := bridge.New(bridge.Config{
		Surface:   surf,
		Registry:  e.reg,
		Store:     store,
		Projector: proj,
		Saver:     saver,
		Logger:    e.logger,
		Dispatch:  e.post,
		Tick:      e.post,
		Frame:     e.frame,
	})

	loaded := saver.Load(ctx)

	e.doc = &document{
		key:    docKey,
		surf:   surf,
		store:  store,
		saver:  saver,
		bridge: br,
		proj:   proj,
	}

	br.Attach()
	assigned := br.Rescan()
	br.Guard(func() {
		proj.All()
		proj.PositionViewport()
	})
	if !loaded || assigned > 0 {
		saver.Request()
	}

	e.logger.Info("pagesync: document opened",
		"doc", docKey, "loaded", loaded, "rescanned", assigned,
		"pages", store.PageCount(), "nodes", store.Len())
	return loaded, nil
}

// CloseDocument flushes and detaches the open document. A no-op when no
// document is open.
func (e *Engine) CloseDocument(context.Context) {
	e.do(func() { e.closeCurrent() })
}

// closeCurrent flushes and detaches the current document. Loop-side only.
func (e *Engine) closeCurrent() {
	if e.doc == nil {
		return
	}
	doc := e.doc
	e.doc = nil

	doc.bridge.Detach()
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// Close, not Flush: a frame callback queued before the switch may still
	// run against this document's wiring, and a closed saver refuses the
	// Request it would otherwise re-arm.
	if err := doc.saver.Close(flushCtx); err != nil {
		e.logger.Error("pagesync: flush on close failed", "doc", doc.key, "error", err)
	}
	e.logger.Info("pagesync: document closed", "doc", doc.key)
}

// GoToPage navigates to the given page. A non-existent target is
// rejected with ErrPageRange and no state changes.
func (e *Engine) GoToPage(index int) (err error) {
	e.do(func() { err = e.goToPage(index) })
	return err
}

func (e *Engine) goToPage(index int) error {
	if e.doc == nil {
		return ErrNoDocument
	}
	if index < 0 || index >= e.doc.store.PageCount() {
		return fmt.Errorf("%w: %d of %d", ErrPageRange, index, e.doc.store.PageCount())
	}
	e.doc.store.SetCurrentPage(index)
	e.doc.bridge.Guard(func() {
		e.doc.proj.All()
		e.doc.proj.PositionViewport()
	})
	return nil
}

// NextPage navigates forward one page.
func (e *Engine) NextPage() (index int, err error) {
	e.do(func() {
		if e.doc == nil {
			err = ErrNoDocument
			return
		}
		index = e.doc.store.CurrentPage() + 1
		err = e.goToPage(index)
	})
	return index, err
}

// PrevPage navigates back one page.
func (e *Engine) PrevPage() (index int, err error) {
	e.do(func() {
		if e.doc == nil {
			err = ErrNoDocument
			return
		}
		index = e.doc.store.CurrentPage() - 1
		err = e.goToPage(index)
	})
	return index, err
}

// AddPage appends a page and returns its index.
func (e *Engine) AddPage() (index int, err error) {
	e.do(func() {
		if e.doc == nil {
			err = ErrNoDocument
			return
		}
		index = e.doc.store.AddPage()
		e.doc.saver.Request()
	})
	return index, err
}

// RemoveNode deletes a node's state. This is the only deletion path; the
// surface reporting a node gone never deletes.
func (e *Engine) RemoveNode(id string) (err error) {
	e.do(func() {
		if e.doc == nil {
			err = ErrNoDocument
			return
		}
		e.doc.store.RemoveNode(id)
		e.doc.saver.Request()
	})
	return err
}

// Flush forces an immediate persistence write.
func (e *Engine) Flush(ctx context.Context) (err error) {
	e.do(func() {
		if e.doc == nil {
			err = ErrNoDocument
			return
		}
		err = e.doc.saver.Flush(ctx)
	})
	return err
}

// Pages returns the ordered page list of the open document.
func (e *Engine) Pages() (pages []Page) {
	e.do(func() {
		if e.doc != nil {
			pages = e.doc.store.Pages()
		}
	})
	return pages
}

// NodeStates returns all tracked node states, sorted by id.
func (e *Engine) NodeStates() (entries []NodeStateEntry) {
	e.do(func() {
		if e.doc != nil {
			entries = e.doc.store.Entries()
		}
	})
	return entries
}

// CurrentPageIndex returns the open document's current page, -1 when no
// document is open.
func (e *Engine) CurrentPageIndex() (index int) {
	index = -1
	e.do(func() {
		if e.doc != nil {
			index = e.doc.store.CurrentPage()
		}
	})
	return index
}

// PageDimensions returns the configured page geometry.
func (e *Engine) PageDimensions() geom.PageSize {
	return e.cfg.PageSize()
}

// ResolveNode resolves a node identity to its live surface element, for
// collaborators that rasterize or inspect nodes.
func (e *Engine) ResolveNode(id string) (node surface.Node, ok bool) {
	e.do(func() {
		if e.doc != nil {
			node, ok = e.doc.surf.NodeByID(id)
		}
	})
	return node, ok
}

// Status is the engine's point-in-time summary, for the HTTP and MCP
// surfaces.
type Status struct {
	DocKey      string `json:"doc_key"`
	Pages       int    `json:"pages"`
	CurrentPage int    `json:"current_page"`
	Nodes       int    `json:"nodes"`
	Suppressed  uint64 `json:"suppressed_batches"`
}

// Status reports the current document's summary.
func (e *Engine) Status() (st Status) {
	e.do(func() {
		if e.doc == nil {
			return
		}
		st = Status{
			DocKey:      e.doc.key,
			Pages:       e.doc.store.PageCount(),
			CurrentPage: e.doc.store.CurrentPage(),
			Nodes:       e.doc.store.Len(),
			Suppressed:  e.doc.bridge.Dropped(),
		}
	})
	return st
}
