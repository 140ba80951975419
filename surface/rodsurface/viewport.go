package rodsurface

import (
	"fmt"

	"github.com/hazyhaar/folio/surface"
)

// Viewport controls the page's vertical scroll. Browser canvases rarely
// expose a pan or camera API, so only the scroll capability is
// implemented; richer hosts plug in their own surface with the extra
// interfaces.
type Viewport struct {
	s *Surface
}

// Scroll implements surface.Viewport.
func (v *Viewport) Scroll() float64 {
	res, err := v.s.page.Eval(`() => window.scrollY`)
	if err != nil {
		v.s.logger.Debug("rodsurface: read scroll", "error", err)
		return 0
	}
	return res.Value.Num()
}

// SetScroll implements surface.Scroller.
func (v *Viewport) SetScroll(absY float64) error {
	script := fmt.Sprintf(`() => window.scrollTo({ top: %g, behavior: 'instant' })`, absY)
	if _, err := v.s.page.Eval(script); err != nil {
		return fmt.Errorf("rodsurface: scroll: %w", err)
	}
	return nil
}

var (
	_ surface.Viewport = (*Viewport)(nil)
	_ surface.Scroller = (*Viewport)(nil)
)
