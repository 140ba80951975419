// Package geom holds the coordinate arithmetic shared by every component
// that touches node positions: clamping into page bounds and conversion
// between page-relative and absolute canvas coordinates.
//
// Pages are horizontal bands stacked along Y, each PageSize.H tall,
// separated by a fixed gap. PageOffset is the single relative↔absolute
// conversion point; no other package may duplicate the formula.
package geom

import "math"

// Rect is an axis-aligned rectangle in canvas coordinates.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// PageSize is the fixed dimension of every page band, in canvas units.
type PageSize struct {
	W   float64 `json:"w"`
	H   float64 `json:"h"`
	Gap float64 `json:"gap"`
}

// Clamp forces a node rectangle of size (w,h) at relative position (x,y)
// into the bounds of a page of size (pageW,pageH). It is the single legality
// authority for node positions: every writer of node state routes through it.
//
// A node larger than the page on an axis clamps to 0 on that axis instead
// of going negative. Zero or negative node dimensions are treated as 1.
func Clamp(x, y, w, h, pageW, pageH float64) (cx, cy float64, changed bool) {
	maxX := pageW - math.Max(1, w)
	maxY := pageH - math.Max(1, h)

	cx = clampAxis(x, maxX)
	cy = clampAxis(y, maxY)
	return cx, cy, cx != x || cy != y
}

// clampAxis clamps v into [0, max]. When the node is oversized (max < 0)
// the axis pins to 0.
func clampAxis(v, max float64) float64 {
	if max < 0 {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// PageOffset returns the absolute Y origin of page index.
func PageOffset(index int, ps PageSize) float64 {
	return float64(index) * (ps.H + ps.Gap)
}

// PageForY infers the page index a given absolute Y falls into. Negative
// coordinates map to page 0. Callers must clamp the result against the
// actual page count.
func PageForY(absY float64, ps PageSize) int {
	if absY <= 0 {
		return 0
	}
	return int(math.Floor(absY / (ps.H + ps.Gap)))
}

// ToRelative converts an absolute position to coordinates relative to the
// origin of page index.
func ToRelative(absX, absY float64, index int, ps PageSize) (x, y float64) {
	return absX, absY - PageOffset(index, ps)
}

// ToAbsolute converts page-relative coordinates back to the shared canvas
// space.
func ToAbsolute(x, y float64, index int, ps PageSize) (absX, absY float64) {
	return x, y + PageOffset(index, ps)
}

// Finite reports whether v is a usable coordinate (not NaN or ±Inf).
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
