package geom

import (
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	const pageW, pageH = 794.0, 1123.0

	tests := []struct {
		name        string
		x, y, w, h  float64
		wantX       float64
		wantY       float64
		wantChanged bool
	}{
		{"inside", 100, 200, 150, 80, 100, 200, false},
		{"negative x", -30, 200, 150, 80, 0, 200, true},
		{"negative both", -1, -1, 10, 10, 0, 0, true},
		{"past right edge", 800, 27, 150, 80, 644, 27, true},
		{"past bottom edge", 10, 2000, 150, 80, 10, 1043, true},
		{"exactly at max", 644, 1043, 150, 80, 644, 1043, false},
		{"zero size treated as 1", 793, 1122, 0, 0, 793, 1122, false},
		{"oversized width pins x", 300, 50, 900, 80, 0, 50, true},
		{"oversized height pins y", 50, 300, 150, 1500, 50, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gx, gy, changed := Clamp(tt.x, tt.y, tt.w, tt.h, pageW, pageH)
			if gx != tt.wantX || gy != tt.wantY {
				t.Errorf("Clamp(%v,%v,%v,%v): got (%v,%v), want (%v,%v)",
					tt.x, tt.y, tt.w, tt.h, gx, gy, tt.wantX, tt.wantY)
			}
			if changed != tt.wantChanged {
				t.Errorf("changed: got %v, want %v", changed, tt.wantChanged)
			}
		})
	}
}

func TestClampIdempotent(t *testing.T) {
	const pageW, pageH = 794.0, 1123.0
	// Clamping a clamped result must be a no-op for a spread of inputs.
	for _, x := range []float64{-500, -1, 0, 100, 793, 5000} {
		for _, y := range []float64{-500, 0, 561, 1122, 9999} {
			cx, cy, _ := Clamp(x, y, 150, 80, pageW, pageH)
			cx2, cy2, changed := Clamp(cx, cy, 150, 80, pageW, pageH)
			if changed || cx2 != cx || cy2 != cy {
				t.Fatalf("Clamp not idempotent at (%v,%v): (%v,%v) -> (%v,%v)",
					x, y, cx, cy, cx2, cy2)
			}
		}
	}
}

func TestClampBounds(t *testing.T) {
	const pageW, pageH = 794.0, 1123.0
	for _, w := range []float64{1, 100, 794} {
		for _, h := range []float64{1, 500, 1123} {
			for _, x := range []float64{-1e6, -1, 0, 400, 1e6} {
				for _, y := range []float64{-1e6, 0, 561, 1e6} {
					cx, cy, _ := Clamp(x, y, w, h, pageW, pageH)
					if cx < 0 || cx > pageW-w {
						t.Fatalf("x out of range: Clamp(%v,%v,%v,%v) = %v", x, y, w, h, cx)
					}
					if cy < 0 || cy > pageH-h {
						t.Fatalf("y out of range: Clamp(%v,%v,%v,%v) = %v", x, y, w, h, cy)
					}
				}
			}
		}
	}
}

func TestPageOffset(t *testing.T) {
	ps := PageSize{W: 794, H: 1123, Gap: 50}

	if got := PageOffset(0, ps); got != 0 {
		t.Errorf("PageOffset(0): got %v", got)
	}
	if got := PageOffset(1, ps); got != 1173 {
		t.Errorf("PageOffset(1): got %v, want 1173", got)
	}
	if got := PageOffset(3, ps); got != 3519 {
		t.Errorf("PageOffset(3): got %v, want 3519", got)
	}
}

func TestPageForY(t *testing.T) {
	ps := PageSize{W: 794, H: 1123, Gap: 50}

	tests := []struct {
		absY float64
		want int
	}{
		{-100, 0},
		{0, 0},
		{1122, 0},
		{1150, 0}, // inside the gap still maps to the band it follows
		{1173, 1},
		{1200, 1},
		{2346, 2},
	}
	for _, tt := range tests {
		if got := PageForY(tt.absY, ps); got != tt.want {
			t.Errorf("PageForY(%v): got %d, want %d", tt.absY, got, tt.want)
		}
	}
}

func TestRelativeAbsoluteRoundTrip(t *testing.T) {
	ps := PageSize{W: 794, H: 1123, Gap: 50}

	for index := 0; index < 5; index++ {
		x, y := 123.5, 456.25
		ax, ay := ToAbsolute(x, y, index, ps)
		rx, ry := ToRelative(ax, ay, index, ps)
		if rx != x || ry != y {
			t.Fatalf("round trip on page %d: got (%v,%v), want (%v,%v)", index, rx, ry, x, y)
		}
	}
}

func TestFinite(t *testing.T) {
	if Finite(math.NaN()) || Finite(math.Inf(1)) || Finite(math.Inf(-1)) {
		t.Error("NaN/Inf reported finite")
	}
	if !Finite(0) || !Finite(-12.5) {
		t.Error("plain values reported non-finite")
	}
}
