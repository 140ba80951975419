// Package project applies the logical model onto the live surface:
// absolute position transforms, the hidden marker that implements
// pagination, and viewport repositioning on page switch.
//
// Pagination is a projection over one shared coordinate space, not
// separate documents: nodes on non-current pages are hidden, never
// removed, so they keep emitting change notifications.
package project

import (
	"log/slog"

	"github.com/hazyhaar/folio/geom"
	"github.com/hazyhaar/folio/pagesync/internal/state"
	"github.com/hazyhaar/folio/surface"
)

// Projector writes the model onto a surface. It performs raw writes; the
// caller wraps them in the echo-suppression guard.
type Projector struct {
	surf   surface.Surface
	store  *state.Store
	logger *slog.Logger
}

// New creates a Projector over the given surface and store.
func New(surf surface.Surface, store *state.Store, logger *slog.Logger) *Projector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Projector{surf: surf, store: store, logger: logger}
}

// One writes a single node's absolute transform and visibility from its
// state. Used by the bridge after a clamp correction or a recycle.
func (p *Projector) One(n surface.Node, st state.NodeState) {
	ps := p.store.PageSize()
	absX, absY := geom.ToAbsolute(st.X, st.Y, st.PageIndex, ps)
	n.SetPosition(absX, absY)
	n.SetHidden(st.PageIndex != p.store.CurrentPage())
}

// All re-applies every tracked state onto the surface and then forces any
// live node with no known state, or with state on a non-current page,
// hidden. Nodes the surface cannot resolve this cycle are skipped and
// picked up on the next notification.
func (p *Projector) All() {
	current := p.store.CurrentPage()
	ps := p.store.PageSize()

	p.store.Each(func(id string, st state.NodeState) {
		n, ok := p.surf.NodeByID(id)
		if !ok {
			p.logger.Debug("project: node not on surface, skipping", "id", id)
			return
		}
		absX, absY := geom.ToAbsolute(st.X, st.Y, st.PageIndex, ps)
		n.SetPosition(absX, absY)
		n.SetHidden(st.PageIndex != current)
	})

	for _, n := range p.surf.Nodes() {
		id := nodeIdentity(n)
		if id == "" {
			n.SetHidden(true)
			continue
		}
		st, ok := p.store.Get(id)
		if !ok || st.PageIndex != current {
			n.SetHidden(true)
		}
	}
}

// PositionViewport centers the host camera on the current page's band.
// The host's control surface varies, so capabilities are probed in ranked
// order — pan-to-point, set-camera, scroll offset — each attempt guarded,
// first success wins.
func (p *Projector) PositionViewport() {
	ps := p.store.PageSize()
	offset := geom.PageOffset(p.store.CurrentPage(), ps)
	vp := p.surf.Viewport()

	if pan, ok := vp.(surface.PanCamera); ok {
		err := pan.PanTo(ps.W/2, offset+ps.H/2)
		if err == nil {
			return
		}
		p.logger.Debug("project: pan-to-point rejected, falling through", "error", err)
	}

	if cam, ok := vp.(surface.SetCamera); ok {
		err := cam.SetCamera(0, offset)
		if err == nil {
			return
		}
		p.logger.Debug("project: set-camera rejected, falling through", "error", err)
	}

	if sc, ok := vp.(surface.Scroller); ok {
		if err := sc.SetScroll(offset); err == nil {
			return
		}
	}

	p.logger.Warn("project: no viewport capability available",
		"page", p.store.CurrentPage())
}

// nodeIdentity reads the identity carried by a node without minting one.
func nodeIdentity(n surface.Node) string {
	if id := n.Attr(surface.AttrNodeID); id != "" {
		return id
	}
	return n.Attr(surface.AttrNodeBackup)
}
