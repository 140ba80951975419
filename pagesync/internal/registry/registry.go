// Package registry assigns and recovers stable identities for visual
// nodes. An identity lives on two redundant attribute channels so it
// survives the host destroying and recreating the element, as long as at
// least one channel is copied onto the replacement.
package registry

import (
	"github.com/hazyhaar/folio/idgen"
	"github.com/hazyhaar/folio/surface"
)

// Registry binds identities to surface nodes.
type Registry struct {
	newID idgen.Generator
}

// Option configures a Registry.
type Option func(*Registry)

// WithGenerator sets a custom identity generator.
func WithGenerator(gen idgen.Generator) Option {
	return func(r *Registry) { r.newID = gen }
}

// New creates a Registry using the node-id format generator.
func New(opts ...Option) *Registry {
	r := &Registry{newID: idgen.NodeID()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Ensure returns the node's stable identity, minting one if the node
// carries none. When either channel holds a well-formed identity it wins
// and the other channel is repaired to match; the primary channel is
// preferred when the two disagree. Always succeeds given a live handle.
// Side effect: writes the node's identity attributes.
func (r *Registry) Ensure(n surface.Node) string {
	primary := n.Attr(surface.AttrNodeID)
	backup := n.Attr(surface.AttrNodeBackup)

	id := ""
	switch {
	case idgen.IsNodeID(primary):
		id = primary
	case idgen.IsNodeID(backup):
		id = backup
	default:
		id = r.newID()
	}

	if primary != id {
		n.SetAttr(surface.AttrNodeID, id)
	}
	if backup != id {
		n.SetAttr(surface.AttrNodeBackup, id)
	}
	return id
}

// Peek returns the identity already carried by the node, or "" when the
// node has never been registered. No side effects.
func (r *Registry) Peek(n surface.Node) string {
	if id := n.Attr(surface.AttrNodeID); idgen.IsNodeID(id) {
		return id
	}
	if id := n.Attr(surface.AttrNodeBackup); idgen.IsNodeID(id) {
		return id
	}
	return ""
}
