package surface

import (
	"sort"
	"time"

	"github.com/hazyhaar/folio/geom"
)

// Op is the kind of change the surface reports.
type Op string

const (
	OpGeometry Op = "geometry" // position/size style change on a node element
	OpInsert   Op = "insert"   // node element attached to the surface
	OpRemove   Op = "remove"   // node element detached from the surface
)

// Record is a single change notification.
type Record struct {
	Op   Op
	Node Node
	// Rect is the absolute geometry reported with the change, when the
	// surface could measure it. Valid only if HasRect.
	Rect    geom.Rect
	HasRect bool
	At      time.Time
}

// Batch is one notification delivery: every change observed by the host
// in one mutation cycle.
type Batch struct {
	Seq     uint64
	Records []Record
}

// Ordered returns the batch records with all geometry changes ahead of
// insertions and removals, preserving relative order within each group.
// A node's position is reconciled before insertion logic re-touches it.
func (b Batch) Ordered() []Record {
	out := make([]Record, len(b.Records))
	copy(out, b.Records)
	sort.SliceStable(out, func(i, j int) bool {
		return opRank(out[i].Op) < opRank(out[j].Op)
	})
	return out
}

func opRank(op Op) int {
	if op == OpGeometry {
		return 0
	}
	return 1
}
