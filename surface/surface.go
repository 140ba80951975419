// Package surface abstracts the live canvas the engine synchronises
// against: a host-owned drawing area holding visual node elements in one
// shared infinite coordinate space.
//
// folio observes, it does not render. The engine only needs to enumerate
// node elements, read and write a handful of attributes and the position
// transform, toggle a hidden marker, and receive best-effort change
// notifications. Everything else about the host stays opaque.
package surface

import "github.com/hazyhaar/folio/geom"

// Identity attribute channels. An identity is written to both so it
// survives the host destroying and recreating the underlying element as
// long as at least one channel is preserved.
const (
	AttrNodeID     = "data-folio-id"
	AttrNodeBackup = "data-folio-id-backup"
)

// Node is a handle to one visual node element on the live surface.
//
// A handle may outlive the element it points at (the host recycles
// elements); Alive reports whether writes still reach a live element.
type Node interface {
	// Attr returns the value of a node attribute, "" when absent.
	Attr(name string) string

	// SetAttr writes a node attribute.
	SetAttr(name, value string)

	// MeasuredRect returns the node's absolute canvas rectangle as the
	// surface currently reports it. ok is false when the geometry cannot
	// be determined this cycle (element not laid out yet, transform
	// unparseable); callers skip the node and retry on the next
	// notification.
	MeasuredRect() (r geom.Rect, ok bool)

	// SetPosition writes the node's absolute position transform.
	SetPosition(absX, absY float64)

	// SetHidden toggles the visual hidden marker. Hiding suppresses paint
	// and interaction only; the element stays in the surface and keeps
	// emitting change notifications.
	SetHidden(hidden bool)

	// Alive reports whether the underlying element still exists.
	Alive() bool
}

// Surface is the live canvas the engine attaches to.
type Surface interface {
	// Nodes enumerates the visual node elements currently in the surface,
	// including hidden ones.
	Nodes() []Node

	// NodeByID resolves a node identity to its live element via either
	// identity channel.
	NodeByID(id string) (Node, bool)

	// Subscribe registers fn for change-notification batches. The stream
	// is best-effort and asynchronous: it may echo the engine's own
	// writes and report transient geometry. The returned cancel detaches
	// the subscription; it must be called before attaching to another
	// document's surface.
	Subscribe(fn func(Batch)) (cancel func())

	// Viewport returns the host's viewport-control object. Which control
	// primitives it supports varies across hosts; see the capability
	// interfaces below.
	Viewport() Viewport
}

// Viewport is the host's camera/scroll control object. Concrete hosts
// implement some subset of the capability interfaces; callers probe in
// ranked order (PanCamera, then SetCamera, then Scroller) and use the
// first that works.
type Viewport interface {
	// Scroll returns the current scroll offset along the page axis.
	Scroll() float64
}

// PanCamera is the preferred capability: pan the camera so that the given
// absolute point is centered.
type PanCamera interface {
	PanTo(absX, absY float64) error
}

// SetCamera positions the camera origin directly.
type SetCamera interface {
	SetCamera(absX, absY float64) error
}

// Scroller adjusts a plain scroll offset. Always-available fallback.
type Scroller interface {
	SetScroll(absY float64) error
}
