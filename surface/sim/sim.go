// Package sim is an in-memory Surface implementation with the same
// awkward behaviours as a real host: programmatic writes echo back through
// the notification stream, elements can be destroyed and recreated
// (recycling), and geometry can be made to report as unmeasurable.
//
// It backs the engine tests and the demo mode of the daemon.
package sim

import (
	"sync"

	"github.com/hazyhaar/folio/geom"
	"github.com/hazyhaar/folio/surface"
)

// Surface is an in-memory canvas.
type Surface struct {
	mu      sync.Mutex
	nodes   []*Node
	subs    map[int]func(surface.Batch)
	nextSub int
	seq     uint64

	// EchoWrites controls whether SetPosition calls on nodes are echoed
	// back as geometry notifications, the way a real mutation stream
	// echoes the engine's own style writes.
	EchoWrites bool

	vp *Viewport
}

// New creates an empty simulated surface with echoing enabled.
func New() *Surface {
	s := &Surface{
		subs:       make(map[int]func(surface.Batch)),
		EchoWrites: true,
	}
	s.vp = &Viewport{}
	return s
}

// Node is a simulated visual node element.
type Node struct {
	surf       *Surface
	attrs      map[string]string
	rect       geom.Rect
	hidden     bool
	alive      bool
	measurable bool
}

// AddNode attaches a new node element at the given absolute rect and emits
// an insert notification.
func (s *Surface) AddNode(r geom.Rect) *Node {
	n := s.addSilent(r)
	s.deliver(surface.Record{Op: surface.OpInsert, Node: n, Rect: r, HasRect: true})
	return n
}

// addSilent attaches a node without notifying subscribers.
func (s *Surface) addSilent(r geom.Rect) *Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := &Node{
		surf:       s,
		attrs:      make(map[string]string),
		rect:       r,
		alive:      true,
		measurable: true,
	}
	s.nodes = append(s.nodes, n)
	return n
}

// Seed attaches a node without any notification, for building an
// already-populated surface before the engine attaches.
func (s *Surface) Seed(r geom.Rect) *Node {
	return s.addSilent(r)
}

// MoveNode simulates the user dragging a node: the rect changes and a
// geometry notification is emitted.
func (s *Surface) MoveNode(n *Node, r geom.Rect) {
	s.mu.Lock()
	n.rect = r
	s.mu.Unlock()
	s.deliver(surface.Record{Op: surface.OpGeometry, Node: n, Rect: r, HasRect: true})
}

// RemoveNode detaches a node element and emits a remove notification.
func (s *Surface) RemoveNode(n *Node) {
	s.mu.Lock()
	n.alive = false
	for i, m := range s.nodes {
		if m == n {
			s.nodes = append(s.nodes[:i], s.nodes[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	s.deliver(surface.Record{Op: surface.OpRemove, Node: n})
}

// Recycle simulates the host destroying and recreating an element for the
// same logical node: the old element dies, a new one appears at the same
// rect carrying only the surviving attribute channels. keep lists the
// attribute names copied onto the new element.
func (s *Surface) Recycle(n *Node, keep ...string) *Node {
	s.mu.Lock()
	n.alive = false
	for i, m := range s.nodes {
		if m == n {
			s.nodes = append(s.nodes[:i], s.nodes[i+1:]...)
			break
		}
	}
	fresh := &Node{
		surf:       s,
		attrs:      make(map[string]string),
		rect:       n.rect,
		alive:      true,
		measurable: true,
	}
	for _, name := range keep {
		if v, ok := n.attrs[name]; ok {
			fresh.attrs[name] = v
		}
	}
	s.nodes = append(s.nodes, fresh)
	s.mu.Unlock()

	s.deliver(
		surface.Record{Op: surface.OpRemove, Node: n},
		surface.Record{Op: surface.OpInsert, Node: fresh, Rect: fresh.rect, HasRect: true},
	)
	return fresh
}

// SetMeasurable controls whether MeasuredRect succeeds, to simulate
// transient layout states.
func (s *Surface) SetMeasurable(n *Node, ok bool) {
	s.mu.Lock()
	n.measurable = ok
	s.mu.Unlock()
}

// EmitGeometry re-reports a node's current rect, the way hosts re-fire
// style notifications during camera motion.
func (s *Surface) EmitGeometry(n *Node) {
	s.mu.Lock()
	r := n.rect
	s.mu.Unlock()
	s.deliver(surface.Record{Op: surface.OpGeometry, Node: n, Rect: r, HasRect: true})
}

func (s *Surface) deliver(recs ...surface.Record) {
	s.mu.Lock()
	s.seq++
	b := surface.Batch{Seq: s.seq, Records: recs}
	fns := make([]func(surface.Batch), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(b)
	}
}

// Nodes implements surface.Surface.
func (s *Surface) Nodes() []surface.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]surface.Node, len(s.nodes))
	for i, n := range s.nodes {
		out[i] = n
	}
	return out
}

// NodeByID implements surface.Surface.
func (s *Surface) NodeByID(id string) (surface.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.nodes {
		if n.attrs[surface.AttrNodeID] == id || n.attrs[surface.AttrNodeBackup] == id {
			return n, true
		}
	}
	return nil, false
}

// Subscribe implements surface.Surface.
func (s *Surface) Subscribe(fn func(surface.Batch)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.nextSub
	s.nextSub++
	s.subs[key] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, key)
	}
}

// Viewport implements surface.Surface.
func (s *Surface) Viewport() surface.Viewport {
	return s.vp
}

// Attr implements surface.Node.
func (n *Node) Attr(name string) string {
	n.surf.mu.Lock()
	defer n.surf.mu.Unlock()
	return n.attrs[name]
}

// SetAttr implements surface.Node.
func (n *Node) SetAttr(name, value string) {
	n.surf.mu.Lock()
	n.attrs[name] = value
	n.surf.mu.Unlock()
}

// StripAttr removes an attribute channel, simulating host-side loss.
func (n *Node) StripAttr(name string) {
	n.surf.mu.Lock()
	delete(n.attrs, name)
	n.surf.mu.Unlock()
}

// MeasuredRect implements surface.Node.
func (n *Node) MeasuredRect() (geom.Rect, bool) {
	n.surf.mu.Lock()
	defer n.surf.mu.Unlock()
	if !n.alive || !n.measurable {
		return geom.Rect{}, false
	}
	return n.rect, true
}

// SetPosition implements surface.Node. With EchoWrites enabled the write
// is reported back through the notification stream, like a real host.
func (n *Node) SetPosition(absX, absY float64) {
	n.surf.mu.Lock()
	n.rect.X = absX
	n.rect.Y = absY
	r := n.rect
	echo := n.surf.EchoWrites && n.alive
	n.surf.mu.Unlock()
	if echo {
		n.surf.deliver(surface.Record{Op: surface.OpGeometry, Node: n, Rect: r, HasRect: true})
	}
}

// SetHidden implements surface.Node.
func (n *Node) SetHidden(hidden bool) {
	n.surf.mu.Lock()
	n.hidden = hidden
	n.surf.mu.Unlock()
}

// Hidden reports the current hidden marker, for assertions.
func (n *Node) Hidden() bool {
	n.surf.mu.Lock()
	defer n.surf.mu.Unlock()
	return n.hidden
}

// Rect reports the current absolute rect, for assertions.
func (n *Node) Rect() geom.Rect {
	n.surf.mu.Lock()
	defer n.surf.mu.Unlock()
	return n.rect
}

// Alive implements surface.Node.
func (n *Node) Alive() bool {
	n.surf.mu.Lock()
	defer n.surf.mu.Unlock()
	return n.alive
}
