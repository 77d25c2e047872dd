package graph

import (
	"sort"
	"sync"
)

// Graph is the thread-safe mutable working graph.
//
// It owns:
//   - the node and edge collections
//   - an adjacency index (node id -> incident edge ids)
//   - the seed set (nodes present at initial load, never auto-evicted)
//   - the pin map (node id -> strongest pin reason)
//   - per-node interaction side state (spawn source, fixed position)
//
// All public methods are safe for concurrent use, but the visibility
// pipeline mutates the graph only in its strict per-update order
// (filter, diff, lifecycle, eviction), so readers never observe a
// partially-applied update.
//
// Example:
//
//	g := graph.New()
//	g.AddNode(&graph.Node{ID: "a", Category: graph.Person})
//	g.AddNode(&graph.Node{ID: "b", Category: graph.Location})
//	g.AddEdge(&graph.Edge{Source: "a", Target: "b", Type: "VISITED"})
//	g.MarkSeeds() // everything loaded so far survives eviction
type Graph struct {
	mu    sync.RWMutex
	nodes map[NodeID]*Node
	edges map[EdgeID]*Edge

	// Adjacency index for O(degree) incident-edge lookups.
	byNode map[NodeID]map[EdgeID]struct{}

	seeds map[NodeID]struct{}
	pins  map[NodeID]PinReason

	// Interaction side state, kept off the shared Node entities so the
	// temporal filter never has to know about rendering concerns.
	spawnSource map[NodeID]NodeID
	fixedPos    map[NodeID]Position

	closed bool
}

// Position is a fixed-position override for a pinned node.
type Position struct {
	X float64
	Y float64
}

// New creates an empty working graph.
func New() *Graph {
	return &Graph{
		nodes:       make(map[NodeID]*Node),
		edges:       make(map[EdgeID]*Edge),
		byNode:      make(map[NodeID]map[EdgeID]struct{}),
		seeds:       make(map[NodeID]struct{}),
		pins:        make(map[NodeID]PinReason),
		spawnSource: make(map[NodeID]NodeID),
		fixedPos:    make(map[NodeID]Position),
	}
}

// AddNode inserts a node. Re-adding an existing id is a no-op returning
// ErrAlreadyExists, so lazily streamed records that duplicate loaded nodes
// do not clobber layout state.
func (g *Graph) AddNode(n *Node) error {
	if n == nil || n.ID == "" {
		return ErrInvalidID
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return ErrGraphClosed
	}
	if _, exists := g.nodes[n.ID]; exists {
		return ErrAlreadyExists
	}

	g.nodes[n.ID] = n
	if g.byNode[n.ID] == nil {
		g.byNode[n.ID] = make(map[EdgeID]struct{})
	}
	return nil
}

// AddEdge inserts an edge. Both endpoints must already exist. Duplicate
// (source, target, type) tuples are rejected with ErrAlreadyExists.
func (g *Graph) AddEdge(e *Edge) error {
	if e == nil || e.Source == "" || e.Target == "" {
		return ErrInvalidID
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return ErrGraphClosed
	}
	if _, ok := g.nodes[e.Source]; !ok {
		return ErrInvalidEdge
	}
	if _, ok := g.nodes[e.Target]; !ok {
		return ErrInvalidEdge
	}

	id := e.ID()
	if _, exists := g.edges[id]; exists {
		return ErrAlreadyExists
	}

	g.edges[id] = e
	g.indexEdge(e.Source, id)
	g.indexEdge(e.Target, id)
	return nil
}

func (g *Graph) indexEdge(node NodeID, edge EdgeID) {
	if g.byNode[node] == nil {
		g.byNode[node] = make(map[EdgeID]struct{})
	}
	g.byNode[node][edge] = struct{}{}
}

// GetNode retrieves a node by id.
func (g *Graph) GetNode(id NodeID) (*Node, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return n, nil
}

// HasNode reports whether id is present.
func (g *Graph) HasNode(id NodeID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// RemoveNode deletes a node together with every incident edge and all of
// its interaction side state. Removing an absent node is a no-op.
func (g *Graph) RemoveNode(id NodeID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[id]; !ok {
		return
	}

	for edgeID := range g.byNode[id] {
		e := g.edges[edgeID]
		if e == nil {
			continue
		}
		delete(g.edges, edgeID)
		delete(g.byNode[e.Source], edgeID)
		delete(g.byNode[e.Target], edgeID)
	}

	delete(g.byNode, id)
	delete(g.nodes, id)
	delete(g.seeds, id)
	delete(g.pins, id)
	delete(g.spawnSource, id)
	delete(g.fixedPos, id)
}

// Nodes returns all nodes. The slice is a fresh copy; the pointed-to nodes
// are the shared working entities.
func (g *Graph) Nodes() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	return out
}

// Edges returns all edges keyed by stable id.
func (g *Graph) Edges() map[EdgeID]*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make(map[EdgeID]*Edge, len(g.edges))
	for id, e := range g.edges {
		out[id] = e
	}
	return out
}

// IncidentEdges returns the edges touching a node.
func (g *Graph) IncidentEdges(id NodeID) []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*Edge, 0, len(g.byNode[id]))
	for edgeID := range g.byNode[id] {
		if e := g.edges[edgeID]; e != nil {
			out = append(out, e)
		}
	}
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// MarkSeeds records every node currently in the graph as a seed. Seeds are
// never auto-evicted by the destruction scheduler. Call once after the
// initial load, before any lazy streaming.
func (g *Graph) MarkSeeds() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for id := range g.nodes {
		g.seeds[id] = struct{}{}
	}
}

// IsSeed reports whether the node was part of the initial load.
func (g *Graph) IsSeed(id NodeID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.seeds[id]
	return ok
}

// PinNodes pins the given nodes for a reason. A PinClick pin is never
// overwritten by PinPath, regardless of call order; the strongest reason
// wins.
func (g *Graph) PinNodes(ids []NodeID, reason PinReason) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, id := range ids {
		if existing, ok := g.pins[id]; ok && existing == PinClick {
			continue
		}
		g.pins[id] = reason
	}
}

// UnpinNodes removes pins, but only those carrying the given reason. An
// UnpinNodes(ids, PinPath) after a path highlight is cleared leaves
// click-pinned nodes pinned.
func (g *Graph) UnpinNodes(ids []NodeID, reason PinReason) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, id := range ids {
		if g.pins[id] == reason {
			delete(g.pins, id)
		}
	}
}

// UnpinAll clears every pin.
func (g *Graph) UnpinAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pins = make(map[NodeID]PinReason)
}

// PinReasonOf returns the pin reason for a node, if any.
func (g *Graph) PinReasonOf(id NodeID) (PinReason, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.pins[id]
	return r, ok
}

// PinnedIDs returns the ids of all pinned nodes, sorted for determinism.
func (g *Graph) PinnedIDs() []NodeID {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]NodeID, 0, len(g.pins))
	for id := range g.pins {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SetSpawnSource records that node id, when created visually, should spawn
// at the position of source (the node whose interaction caused it to
// appear).
func (g *Graph) SetSpawnSource(id, source NodeID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.spawnSource[id] = source
}

// SpawnSource returns the recorded animation-source node for id, if any.
func (g *Graph) SpawnSource(id NodeID) (NodeID, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s, ok := g.spawnSource[id]
	return s, ok
}

// SetFixedPos installs a fixed-position override for a node (typically a
// click-pinned node the layout must not move).
func (g *Graph) SetFixedPos(id NodeID, p Position) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fixedPos[id] = p
}

// ClearFixedPos removes a fixed-position override.
func (g *Graph) ClearFixedPos(id NodeID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.fixedPos, id)
}

// FixedPos returns the fixed-position override for a node, if set.
func (g *Graph) FixedPos(id NodeID) (Position, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.fixedPos[id]
	return p, ok
}

// Stats summarizes the working graph for reporting.
type Stats struct {
	Nodes      int
	Edges      int
	Seeds      int
	Pinned     int
	ByCategory map[Category]int
}

// CollectStats computes summary statistics in one pass.
func (g *Graph) CollectStats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	s := Stats{
		Nodes:      len(g.nodes),
		Edges:      len(g.edges),
		Seeds:      len(g.seeds),
		Pinned:     len(g.pins),
		ByCategory: make(map[Category]int),
	}
	for _, n := range g.nodes {
		s.ByCategory[n.Category]++
	}
	return s
}

// Close marks the graph closed. Subsequent mutations fail with
// ErrGraphClosed.
func (g *Graph) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
}
