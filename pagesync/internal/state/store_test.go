package state

import (
	"math"
	"testing"

	"github.com/hazyhaar/folio/geom"
)

var testPS = geom.PageSize{W: 794, H: 1123, Gap: 50}

func TestNew_SinglePage(t *testing.T) {
	s := New(testPS)
	if s.PageCount() != 1 {
		t.Fatalf("PageCount: got %d, want 1", s.PageCount())
	}
	p := s.Pages()[0]
	if p.Index != 0 || p.Name != "Page 1" || p.ID == "" {
		t.Errorf("fresh page malformed: %+v", p)
	}
	if s.CurrentPage() != 0 {
		t.Errorf("CurrentPage: got %d", s.CurrentPage())
	}
}

func TestAssignNewNode_CurrentPage(t *testing.T) {
	s := New(testPS)
	s.AddPage()
	s.SetCurrentPage(1)

	// A 150×80 node reported at absolute (800, 1200) while page 1 is
	// current (offset 1173): relative (800, 27), x clamps to 644.
	st := s.AssignNewNode("n1", geom.Rect{X: 800, Y: 1200, W: 150, H: 80}, AssignCurrentPage)
	want := NodeState{PageIndex: 1, X: 644, Y: 27}
	if st != want {
		t.Fatalf("AssignNewNode: got %+v, want %+v", st, want)
	}
	if got, _ := s.Get("n1"); got != want {
		t.Fatalf("stored state: got %+v, want %+v", got, want)
	}
}

func TestAssignNewNode_InferPage(t *testing.T) {
	s := New(testPS)
	s.AddPage()
	s.AddPage() // three pages

	tests := []struct {
		name     string
		absY     float64
		wantPage int
	}{
		{"first band", 100, 0},
		{"second band", 1200, 1},
		{"third band", 2400, 2},
		{"beyond last page clamps", 9000, 2},
		{"negative maps to first", -50, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := s.AssignNewNode("n", geom.Rect{X: 10, Y: tt.absY, W: 100, H: 50}, AssignInferPage)
			if st.PageIndex != tt.wantPage {
				t.Errorf("page: got %d, want %d", st.PageIndex, tt.wantPage)
			}
		})
	}
}

func TestReconcileMove_Delta(t *testing.T) {
	s := New(testPS)
	s.AssignNewNode("n1", geom.Rect{X: 100, Y: 200, W: 150, H: 80}, AssignCurrentPage)

	// Drag by (+50, +30): absolute (150, 230) on page 0.
	st, stateChanged, clamped, ok := s.ReconcileMove("n1", geom.Rect{X: 150, Y: 230, W: 150, H: 80})
	if !ok || !stateChanged || clamped {
		t.Fatalf("flags: stateChanged=%v clamped=%v ok=%v", stateChanged, clamped, ok)
	}
	if st != (NodeState{PageIndex: 0, X: 150, Y: 230}) {
		t.Fatalf("state: got %+v", st)
	}
}

func TestReconcileMove_ClampsAndReportsSeparately(t *testing.T) {
	s := New(testPS)
	s.AddPage()
	s.SetCurrentPage(1)
	s.AssignNewNode("n1", geom.Rect{X: 600, Y: 1200, W: 150, H: 80}, AssignCurrentPage)

	// Reported past the right edge: candidate clamps to maxX=644.
	st, stateChanged, clamped, ok := s.ReconcileMove("n1", geom.Rect{X: 900, Y: 1200, W: 150, H: 80})
	if !ok || !stateChanged || !clamped {
		t.Fatalf("flags: stateChanged=%v clamped=%v ok=%v", stateChanged, clamped, ok)
	}
	if st != (NodeState{PageIndex: 1, X: 644, Y: 27}) {
		t.Fatalf("state: got %+v", st)
	}

	// Same out-of-bounds report again: clamp corrects to what is already
	// stored — clamped without stateChanged.
	_, stateChanged, clamped, _ = s.ReconcileMove("n1", geom.Rect{X: 900, Y: 1200, W: 150, H: 80})
	if stateChanged {
		t.Error("second identical report changed state")
	}
	if !clamped {
		t.Error("second report not flagged as clamped")
	}
}

func TestReconcileMove_PageNeverChanges(t *testing.T) {
	s := New(testPS)
	s.AddPage()
	s.AssignNewNode("n1", geom.Rect{X: 100, Y: 100, W: 100, H: 50}, AssignCurrentPage)

	// Reported deep inside page 1's band; the node stays on page 0,
	// clamped within it.
	st, _, _, ok := s.ReconcileMove("n1", geom.Rect{X: 100, Y: 1500, W: 100, H: 50})
	if !ok {
		t.Fatal("node unknown")
	}
	if st.PageIndex != 0 {
		t.Fatalf("page changed on move: %+v", st)
	}
	if st.Y != testPS.H-50 {
		t.Fatalf("y: got %v, want %v", st.Y, testPS.H-50)
	}
}

func TestReconcileMove_UnknownNode(t *testing.T) {
	s := New(testPS)
	if _, _, _, ok := s.ReconcileMove("ghost", geom.Rect{}); ok {
		t.Fatal("ReconcileMove on unknown id: ok=true")
	}
}

func TestSetCurrentPage_Clamps(t *testing.T) {
	s := New(testPS)
	s.AddPage()

	if got := s.SetCurrentPage(-3); got != 0 {
		t.Errorf("SetCurrentPage(-3): got %d", got)
	}
	if got := s.SetCurrentPage(99); got != 1 {
		t.Errorf("SetCurrentPage(99): got %d", got)
	}
	if got := s.SetCurrentPage(1); got != 1 {
		t.Errorf("SetCurrentPage(1): got %d", got)
	}
}

func TestAddPage(t *testing.T) {
	s := New(testPS)
	s.AddPage()
	idx := s.AddPage()
	if idx != 2 {
		t.Fatalf("AddPage: got index %d, want 2", idx)
	}
	p := s.Pages()[2]
	if p.Index != 2 || p.Name != "Page 3" {
		t.Errorf("third page: %+v", p)
	}
}

func TestRemoveNode_Explicit(t *testing.T) {
	s := New(testPS)
	s.AssignNewNode("n1", geom.Rect{X: 1, Y: 1, W: 10, H: 10}, AssignCurrentPage)
	s.RemoveNode("n1")
	if _, ok := s.Get("n1"); ok {
		t.Fatal("state survived explicit removal")
	}
}

func TestValidate_Repairs(t *testing.T) {
	s := New(testPS)
	s.AddPage()

	s.states["bad-page"] = NodeState{PageIndex: 7, X: 10, Y: 10}
	s.states["bad-coords"] = NodeState{PageIndex: 0, X: math.NaN(), Y: math.Inf(1)}
	s.pages[1].Index = 42
	s.current = 99

	s.Validate()

	if st, _ := s.Get("bad-page"); st.PageIndex != 0 {
		t.Errorf("out-of-range page not reset: %+v", st)
	}
	if st, _ := s.Get("bad-coords"); st.X != 0 || st.Y != 0 {
		t.Errorf("non-finite coords not defaulted: %+v", st)
	}
	if s.pages[1].Index != 1 {
		t.Errorf("page index not renumbered: %d", s.pages[1].Index)
	}
	if s.current != 1 {
		t.Errorf("current page not clamped: %d", s.current)
	}

	// Idempotent.
	before := s.Snapshot()
	s.Validate()
	after := s.Snapshot()
	if len(before.Pages) != len(after.Pages) || len(before.NodeStates) != len(after.NodeStates) {
		t.Error("Validate not idempotent")
	}
}

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	s := New(testPS)
	s.AddPage()
	s.AssignNewNode("n1", geom.Rect{X: 100, Y: 200, W: 150, H: 80}, AssignCurrentPage)
	s.SetCurrentPage(1)
	s.AssignNewNode("n2", geom.Rect{X: 50, Y: 1250, W: 100, H: 40}, AssignCurrentPage)

	saved := s.Snapshot()

	fresh := New(testPS)
	if err := fresh.Restore(saved); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if fresh.PageCount() != 2 {
		t.Fatalf("pages: got %d", fresh.PageCount())
	}
	for _, e := range saved.NodeStates {
		got, ok := fresh.Get(e.ID)
		if !ok || got != e.State {
			t.Errorf("node %s: got %+v ok=%v, want %+v", e.ID, got, ok, e.State)
		}
	}
	if fresh.Len() != s.Len() {
		t.Errorf("state count: got %d, want %d", fresh.Len(), s.Len())
	}
}

func TestRestore_RejectsBadShapes(t *testing.T) {
	s := New(testPS)
	if err := s.Restore(SavedState{Version: 1}); err == nil {
		t.Error("wrong version accepted")
	}
	if err := s.Restore(SavedState{Version: SavedStateVersion}); err == nil {
		t.Error("empty page list accepted")
	}
}
