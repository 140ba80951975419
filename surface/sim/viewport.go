package sim

import (
	"errors"
	"sync"
)

// ErrUnsupported is returned by viewport capabilities switched off via the
// Supports* flags, simulating hosts whose control object carries a method
// that rejects at call time.
var ErrUnsupported = errors.New("sim: viewport capability unsupported")

// Viewport is the simulated camera/scroll control. All three capability
// interfaces are implemented; the Supports* flags decide which ones
// actually work, so tests can exercise every rung of the probe ladder.
type Viewport struct {
	mu sync.Mutex

	SupportsPan    bool
	SupportsCamera bool

	panX, panY                      float64
	camX, camY                      float64
	scrollY                         float64
	PanCalls, CamCalls, ScrollCalls int
}

// Scroll implements surface.Viewport.
func (v *Viewport) Scroll() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.scrollY
}

// PanTo implements surface.PanCamera.
func (v *Viewport) PanTo(absX, absY float64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.SupportsPan {
		return ErrUnsupported
	}
	v.PanCalls++
	v.panX, v.panY = absX, absY
	return nil
}

// SetCamera implements surface.SetCamera.
func (v *Viewport) SetCamera(absX, absY float64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.SupportsCamera {
		return ErrUnsupported
	}
	v.CamCalls++
	v.camX, v.camY = absX, absY
	return nil
}

// SetScroll implements surface.Scroller. Always available.
func (v *Viewport) SetScroll(absY float64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ScrollCalls++
	v.scrollY = absY
	return nil
}

// Pan reports the last pan target, for assertions.
func (v *Viewport) Pan() (x, y float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.panX, v.panY
}

// Camera reports the last camera target, for assertions.
func (v *Viewport) Camera() (x, y float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.camX, v.camY
}
