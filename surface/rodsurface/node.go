package rodsurface

import (
	"encoding/json"
	"fmt"

	"github.com/hazyhaar/folio/geom"
	"github.com/hazyhaar/folio/surface"
)

// Node addresses one canvas element by its data-folio-el handle. All
// operations are best-effort Evals: the page can navigate away or drop
// the element at any moment, so failures degrade to zero values and
// not-alive instead of propagating.
type Node struct {
	surf   *Surface
	handle int
}

func (n *Node) sel() string {
	return fmt.Sprintf(`[data-folio-el="%d"]`, n.handle)
}

// Attr implements surface.Node.
func (n *Node) Attr(name string) string {
	script := fmt.Sprintf(`() => {
		const el = document.querySelector(%q);
		return el ? (el.getAttribute(%q) || "") : "";
	}`, n.sel(), name)
	res, err := n.surf.page.Eval(script)
	if err != nil {
		n.surf.logger.Debug("rodsurface: read attr", "handle", n.handle, "attr", name, "error", err)
		return ""
	}
	return res.Value.Str()
}

// SetAttr implements surface.Node.
func (n *Node) SetAttr(name, value string) {
	script := fmt.Sprintf(`() => {
		const el = document.querySelector(%q);
		if (el) { el.setAttribute(%q, %q); }
	}`, n.sel(), name, value)
	if _, err := n.surf.page.Eval(script); err != nil {
		n.surf.logger.Warn("rodsurface: write attr", "handle", n.handle, "attr", name, "error", err)
	}
}

// MeasuredRect implements surface.Node: absolute position from the
// element's transform matrix, size from layout.
func (n *Node) MeasuredRect() (geom.Rect, bool) {
	script := fmt.Sprintf(`() => {
		const el = document.querySelector(%q);
		if (!el) { return "null"; }
		const m = new DOMMatrixReadOnly(getComputedStyle(el).transform);
		return JSON.stringify({ x: m.m41, y: m.m42, w: el.offsetWidth, h: el.offsetHeight });
	}`, n.sel())
	res, err := n.surf.page.Eval(script)
	if err != nil {
		n.surf.logger.Debug("rodsurface: measure", "handle", n.handle, "error", err)
		return geom.Rect{}, false
	}
	var r *geom.Rect
	if err := json.Unmarshal([]byte(res.Value.Str()), &r); err != nil || r == nil {
		return geom.Rect{}, false
	}
	if !geom.Finite(r.X) || !geom.Finite(r.Y) {
		return geom.Rect{}, false
	}
	return *r, true
}

// SetPosition implements surface.Node: rewrites the transform to the
// given absolute canvas coordinates.
func (n *Node) SetPosition(absX, absY float64) {
	script := fmt.Sprintf(`() => {
		const el = document.querySelector(%q);
		if (el) { el.style.transform = 'translate(%gpx, %gpx)'; }
	}`, n.sel(), absX, absY)
	if _, err := n.surf.page.Eval(script); err != nil {
		n.surf.logger.Warn("rodsurface: set position", "handle", n.handle, "error", err)
	}
}

// SetHidden implements surface.Node. Visibility, not display: the
// element keeps its layout slot so a later reveal does not reflow.
func (n *Node) SetHidden(hidden bool) {
	vis := "visible"
	if hidden {
		vis = "hidden"
	}
	script := fmt.Sprintf(`() => {
		const el = document.querySelector(%q);
		if (el) { el.style.visibility = %q; }
	}`, n.sel(), vis)
	if _, err := n.surf.page.Eval(script); err != nil {
		n.surf.logger.Warn("rodsurface: set hidden", "handle", n.handle, "error", err)
	}
}

// Alive implements surface.Node.
func (n *Node) Alive() bool {
	script := fmt.Sprintf(`() => !!document.querySelector(%q)`, n.sel())
	res, err := n.surf.page.Eval(script)
	if err != nil {
		return false
	}
	return res.Value.Bool()
}

func geomRect(w wireRecord) geom.Rect {
	return geom.Rect{X: w.X, Y: w.Y, W: w.W, H: w.H}
}

var _ surface.Node = (*Node)(nil)
