// Package state owns the authoritative logical model of a paginated
// canvas document: the ordered page list, the node-id → state map, and
// the current page index.
//
// One Store exists per open document and is replaced wholesale on
// document switch. The store never talks to the surface; reconciliation
// inputs arrive as absolute rects and every stored position routes
// through geom.Clamp.
package state

import (
	"fmt"
	"sort"

	"github.com/hazyhaar/folio/geom"
	"github.com/hazyhaar/folio/idgen"
)

// SavedStateVersion is the persistence schema version. A stored blob with
// any other version is treated as absent.
const SavedStateVersion = 2

// Page is one fixed-size band of the canvas. Index always equals the
// page's position in the ordered page list; it carries no identity of its
// own beyond ID.
type Page struct {
	ID    string `json:"id"`
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// NodeState is a node's logical placement: owning page plus coordinates
// relative to that page's origin. Never absolute canvas coordinates.
type NodeState struct {
	PageIndex int     `json:"pageIndex"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

// NodeStateEntry pairs an identity with its state for serialization.
type NodeStateEntry struct {
	ID    string    `json:"id"`
	State NodeState `json:"state"`
}

// SavedState is the wire shape handed to persistence.
type SavedState struct {
	Version    int              `json:"version"`
	Pages      []Page           `json:"pages"`
	NodeStates []NodeStateEntry `json:"nodeStates"`
}

// AssignMode selects the page-assignment policy for AssignNewNode.
//
// A single freshly observed node lands on the page the user is looking
// at (AssignCurrentPage). A full rescan of an already-populated surface
// has no such anchor, so each node's page is inferred from its absolute
// Y instead (AssignInferPage). Both policies are deliberate and explicit;
// callers choose.
type AssignMode int

const (
	AssignCurrentPage AssignMode = iota
	AssignInferPage
)

// Store is the authoritative model for one open document.
type Store struct {
	ps      geom.PageSize
	pages   []Page
	states  map[string]NodeState
	current int

	newPageID idgen.Generator
}

// New creates a fresh single-page model.
func New(ps geom.PageSize) *Store {
	s := &Store{
		ps:        ps,
		states:    make(map[string]NodeState),
		newPageID: idgen.Prefixed("page_", idgen.NanoID(8)),
	}
	s.pages = []Page{s.makePage(0)}
	return s
}

func (s *Store) makePage(index int) Page {
	return Page{
		ID:    s.newPageID(),
		Index: index,
		Name:  fmt.Sprintf("Page %d", index+1),
	}
}

// PageSize returns the page dimensions the store clamps against.
func (s *Store) PageSize() geom.PageSize { return s.ps }

// Pages returns the ordered page list as a copy.
func (s *Store) Pages() []Page {
	out := make([]Page, len(s.pages))
	copy(out, s.pages)
	return out
}

// PageCount returns the number of pages.
func (s *Store) PageCount() int { return len(s.pages) }

// CurrentPage returns the current page index.
func (s *Store) CurrentPage() int { return s.current }

// Get returns the state for a node identity.
func (s *Store) Get(id string) (NodeState, bool) {
	st, ok := s.states[id]
	return st, ok
}

// Len returns the number of tracked node states.
func (s *Store) Len() int { return len(s.states) }

// Each calls fn for every tracked (id, state) pair.
func (s *Store) Each(fn func(id string, st NodeState)) {
	for id, st := range s.states {
		fn(id, st)
	}
}

// Entries returns all node states as a slice sorted by id, for stable
// serialization.
func (s *Store) Entries() []NodeStateEntry {
	out := make([]NodeStateEntry, 0, len(s.states))
	for id, st := range s.states {
		out = append(out, NodeStateEntry{ID: id, State: st})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AssignNewNode stores first-placement state for a node reported at
// absRect. The owning page is the current page (AssignCurrentPage) or
// inferred from the node's absolute Y (AssignInferPage), clamped to the
// last page when it overflows. Returns the stored state.
func (s *Store) AssignNewNode(id string, absRect geom.Rect, mode AssignMode) NodeState {
	page := s.current
	if mode == AssignInferPage {
		page = geom.PageForY(absRect.Y, s.ps)
		if page >= len(s.pages) {
			page = len(s.pages) - 1
		}
	}

	relX, relY := geom.ToRelative(absRect.X, absRect.Y, page, s.ps)
	cx, cy, _ := geom.Clamp(relX, relY, absRect.W, absRect.H, s.ps.W, s.ps.H)

	st := NodeState{PageIndex: page, X: cx, Y: cy}
	s.states[id] = st
	return st
}

// ReconcileMove folds a reported geometry change into existing state.
//
// The reported rect is not trusted as ground truth: during camera motion
// and clamp-echo cycles the surface reports stale or transient values.
// The move is therefore taken as a delta from the last known absolute
// position and applied to the stored relative coordinates, then clamped.
// The node's page never changes on a move.
//
// stateChanged reports whether the stored state was updated; clamped
// reports whether the clamp corrected the candidate position (it can be
// true with stateChanged false when the correction lands exactly on the
// already-stored state — the caller still rewrites the surface).
func (s *Store) ReconcileMove(id string, absRect geom.Rect) (st NodeState, stateChanged, clamped bool, ok bool) {
	cur, exists := s.states[id]
	if !exists {
		return NodeState{}, false, false, false
	}

	lastAbsX, lastAbsY := geom.ToAbsolute(cur.X, cur.Y, cur.PageIndex, s.ps)
	candX := cur.X + (absRect.X - lastAbsX)
	candY := cur.Y + (absRect.Y - lastAbsY)

	cx, cy, changed := geom.Clamp(candX, candY, absRect.W, absRect.H, s.ps.W, s.ps.H)

	st = NodeState{PageIndex: cur.PageIndex, X: cx, Y: cy}
	if st != cur {
		s.states[id] = st
		return st, true, changed, true
	}
	return st, false, changed, true
}

// SetCurrentPage moves the current page index, clamping out-of-range
// requests to the nearest valid index. Returns the effective index.
func (s *Store) SetCurrentPage(index int) int {
	if index < 0 {
		index = 0
	}
	if index >= len(s.pages) {
		index = len(s.pages) - 1
	}
	s.current = index
	return index
}

// AddPage appends a page and returns its index.
func (s *Store) AddPage() int {
	s.pages = append(s.pages, s.makePage(len(s.pages)))
	return len(s.pages) - 1
}

// RemoveNode deletes a node's state. This is the only deletion path;
// nodes leaving the visible surface keep their state (pagination hides
// by the same mechanism, and hidden must not mean deleted).
func (s *Store) RemoveNode(id string) {
	delete(s.states, id)
}

// Validate is the idempotent repair pass run before every persist and
// after every load: page indices renumbered to slice position, node page
// indices outside [0,len) reset to 0, non-finite coordinates defaulted
// to 0, current page clamped into range.
func (s *Store) Validate() {
	if len(s.pages) == 0 {
		s.pages = []Page{s.makePage(0)}
	}
	for i := range s.pages {
		s.pages[i].Index = i
	}

	for id, st := range s.states {
		fixed := st
		if fixed.PageIndex < 0 || fixed.PageIndex >= len(s.pages) {
			fixed.PageIndex = 0
		}
		if !geom.Finite(fixed.X) {
			fixed.X = 0
		}
		if !geom.Finite(fixed.Y) {
			fixed.Y = 0
		}
		if fixed != st {
			s.states[id] = fixed
		}
	}

	if s.current < 0 {
		s.current = 0
	}
	if s.current >= len(s.pages) {
		s.current = len(s.pages) - 1
	}
}

// Snapshot produces the serializable form of the model. Validate is run
// first so a snapshot is always well-formed.
func (s *Store) Snapshot() SavedState {
	s.Validate()
	return SavedState{
		Version:    SavedStateVersion,
		Pages:      s.Pages(),
		NodeStates: s.Entries(),
	}
}

// Restore replaces the model with a saved one. The caller has already
// checked the version; Restore still rejects shapes it cannot repair.
// Validate runs after the load.
func (s *Store) Restore(saved SavedState) error {
	if saved.Version != SavedStateVersion {
		return fmt.Errorf("state: version %d, want %d", saved.Version, SavedStateVersion)
	}
	if len(saved.Pages) == 0 {
		return fmt.Errorf("state: saved state has no pages")
	}

	s.pages = make([]Page, len(saved.Pages))
	copy(s.pages, saved.Pages)
	s.states = make(map[string]NodeState, len(saved.NodeStates))
	for _, e := range saved.NodeStates {
		if e.ID == "" {
			continue
		}
		s.states[e.ID] = e.State
	}
	s.current = 0
	s.Validate()
	return nil
}

// Reset discards the model and reinstalls a fresh single-page one.
func (s *Store) Reset() {
	s.pages = []Page{s.makePage(0)}
	s.states = make(map[string]NodeState)
	s.current = 0
}
