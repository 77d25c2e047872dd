// Package visibility computes the visible subgraph for a date window and
// diffs consecutive snapshots into minimal change sets.
//
// The filter is the single authority on what is on screen: a node is
// visible iff it is temporally active, its category is not hidden, and it
// either has at least one surviving edge or is pinned. The diff between
// two snapshots is the single authority on what must change in the
// rendered scene; no other component inspects prior state.
//
// Example:
//
//	snap := visibility.ComputeVisible(g, winStart, winEnd, hidden)
//	delta := visibility.Diff(prev, snap)
//	queue.Apply(delta, snap)
package visibility

import (
	"sort"
	"time"

	"github.com/anonym-g/Chinese-Elite-sub000/pkg/daterange"
	"github.com/anonym-g/Chinese-Elite-sub000/pkg/graph"
)

// Snapshot is a fully materialized visible subgraph.
//
// Node and edge values point into the working graph (stable identity
// across passes); the maps themselves are owned by the snapshot. Every
// edge's endpoints are guaranteed present in Nodes - the snapshot never
// contains dangling references.
type Snapshot struct {
	Nodes map[graph.NodeID]*graph.Node
	Edges map[graph.EdgeID]*graph.Edge
}

// EmptySnapshot returns a snapshot with no visible content.
func EmptySnapshot() *Snapshot {
	return &Snapshot{
		Nodes: make(map[graph.NodeID]*graph.Node),
		Edges: make(map[graph.EdgeID]*graph.Edge),
	}
}

// HasNode reports whether a node is visible in this snapshot.
func (s *Snapshot) HasNode(id graph.NodeID) bool {
	_, ok := s.Nodes[id]
	return ok
}

// HasEdge reports whether an edge is visible in this snapshot.
func (s *Snapshot) HasEdge(id graph.EdgeID) bool {
	_, ok := s.Edges[id]
	return ok
}

// Neighbors builds the undirected neighbor index from the visible edge
// set: node id -> sorted unique adjacent ids. Rebuilt every filter pass;
// the highlight machine and eviction sweep both consume it.
func (s *Snapshot) Neighbors() map[graph.NodeID][]graph.NodeID {
	seen := make(map[graph.NodeID]map[graph.NodeID]struct{})
	add := func(a, b graph.NodeID) {
		if seen[a] == nil {
			seen[a] = make(map[graph.NodeID]struct{})
		}
		seen[a][b] = struct{}{}
	}
	for _, e := range s.Edges {
		add(e.Source, e.Target)
		add(e.Target, e.Source)
	}

	out := make(map[graph.NodeID][]graph.NodeID, len(seen))
	for id, set := range seen {
		ids := make([]graph.NodeID, 0, len(set))
		for other := range set {
			ids = append(ids, other)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		out[id] = ids
	}
	return out
}

// ComputeVisible runs the temporal filter over the working graph.
//
// The steps run in a fixed order; each feeds the next:
//  1. A degenerate window (end before start) yields an empty snapshot.
//  2. Edges are filtered by temporal activity.
//  3. The ids touched by surviving edges are collected.
//  4. Candidate nodes are those connected ids plus every pinned id -
//     a pinned node stays visible even with zero surviving edges
//     (e.g. a freshly searched isolated node).
//  5. Candidates are filtered by node temporal activity.
//  6. Degree is recomputed per node from surviving edges whose both
//     endpoints remain; unpinned degree-0 nodes drop (visibility
//     requires degree > 0 or a pin), pinned isolated nodes stay at 0.
//  7. Nodes of hidden categories are dropped.
//  8. Edges are restricted to those whose both endpoints survived step 7.
func ComputeVisible(g *graph.Graph, windowStart, windowEnd time.Time, hidden map[graph.Category]bool) *Snapshot {
	snap := EmptySnapshot()

	// Step 1: degenerate window.
	if windowEnd.Before(windowStart) {
		return snap
	}

	// Step 2: edge temporal activity.
	activeEdges := make(map[graph.EdgeID]*graph.Edge)
	for id, e := range g.Edges() {
		if daterange.PairsActive(e.Starts, e.Ends, windowStart, windowEnd) {
			activeEdges[id] = e
		}
	}

	// Step 3: ids touched by surviving edges.
	connected := make(map[graph.NodeID]struct{})
	for _, e := range activeEdges {
		connected[e.Source] = struct{}{}
		connected[e.Target] = struct{}{}
	}

	// Step 4: connected or pinned.
	candidates := make(map[graph.NodeID]*graph.Node)
	for id := range connected {
		if n, err := g.GetNode(id); err == nil {
			candidates[id] = n
		}
	}
	for _, id := range g.PinnedIDs() {
		if n, err := g.GetNode(id); err == nil {
			candidates[id] = n
		}
	}

	// Step 5: node temporal activity.
	for id, n := range candidates {
		if !nodeActive(n, windowStart, windowEnd) {
			delete(candidates, id)
		}
	}

	// Step 6: degree from surviving edges whose both endpoints are still
	// candidates. An edge to a temporally dead node contributes nothing,
	// and an unpinned node left with degree 0 drops: visibility requires
	// (degree > 0 OR pinned).
	for _, n := range candidates {
		n.Degree = 0
	}
	for _, e := range activeEdges {
		src, srcOK := candidates[e.Source]
		dst, dstOK := candidates[e.Target]
		if srcOK && dstOK {
			src.Degree++
			dst.Degree++
		}
	}
	for id, n := range candidates {
		if n.Degree == 0 {
			if _, pinned := g.PinReasonOf(id); !pinned {
				delete(candidates, id)
			}
		}
	}

	// Step 7: hidden categories.
	for id, n := range candidates {
		if hidden[n.Category] {
			delete(candidates, id)
		}
	}

	// Step 8: both endpoints must have survived.
	for id, e := range activeEdges {
		if _, ok := candidates[e.Source]; !ok {
			continue
		}
		if _, ok := candidates[e.Target]; !ok {
			continue
		}
		snap.Edges[id] = e
	}
	snap.Nodes = candidates

	return snap
}

// nodeActive applies the node activity rule: always-active categories pass
// unconditionally, untimed nodes pass, and otherwise any well-formed range
// overlapping the window suffices. Malformed ranges fail closed inside
// daterange.AnyRangeActive.
func nodeActive(n *graph.Node, windowStart, windowEnd time.Time) bool {
	if n.Category.AlwaysActive() {
		return true
	}
	ranges := n.TemporalRanges()
	if len(ranges) == 0 {
		return true
	}
	return daterange.AnyRangeActive(ranges, windowStart, windowEnd)
}

// Delta is the minimal change set between two snapshots. Slices are sorted
// by id so downstream processing is deterministic.
type Delta struct {
	NodesAdded   []graph.NodeID
	NodesRemoved []graph.NodeID
	EdgesAdded   []graph.EdgeID
	EdgesRemoved []graph.EdgeID
}

// Empty reports whether the delta carries no changes.
func (d *Delta) Empty() bool {
	return len(d.NodesAdded) == 0 && len(d.NodesRemoved) == 0 &&
		len(d.EdgesAdded) == 0 && len(d.EdgesRemoved) == 0
}

// Diff computes the set differences between the previous and current
// snapshots on stable ids. Either argument may be nil (treated as empty).
func Diff(previous, current *Snapshot) *Delta {
	if previous == nil {
		previous = EmptySnapshot()
	}
	if current == nil {
		current = EmptySnapshot()
	}

	d := &Delta{}

	for id := range current.Nodes {
		if _, ok := previous.Nodes[id]; !ok {
			d.NodesAdded = append(d.NodesAdded, id)
		}
	}
	for id := range previous.Nodes {
		if _, ok := current.Nodes[id]; !ok {
			d.NodesRemoved = append(d.NodesRemoved, id)
		}
	}
	for id := range current.Edges {
		if _, ok := previous.Edges[id]; !ok {
			d.EdgesAdded = append(d.EdgesAdded, id)
		}
	}
	for id := range previous.Edges {
		if _, ok := current.Edges[id]; !ok {
			d.EdgesRemoved = append(d.EdgesRemoved, id)
		}
	}

	sort.Slice(d.NodesAdded, func(i, j int) bool { return d.NodesAdded[i] < d.NodesAdded[j] })
	sort.Slice(d.NodesRemoved, func(i, j int) bool { return d.NodesRemoved[i] < d.NodesRemoved[j] })
	sort.Slice(d.EdgesAdded, func(i, j int) bool { return d.EdgesAdded[i] < d.EdgesAdded[j] })
	sort.Slice(d.EdgesRemoved, func(i, j int) bool { return d.EdgesRemoved[i] < d.EdgesRemoved[j] })

	return d
}
