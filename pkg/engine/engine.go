// Package engine owns the viewer state and orchestrates the update
// pipeline.
//
// The Engine is the explicit state owner: the query window, the hidden
// category set, and the working graph live here and nowhere else. Every
// state change runs one full pipeline pass while holding the engine
// lock, so a pass always reads a single consistent (window, hidden,
// graph) triple:
//
//	filter -> neighbor index -> diff -> lifecycle queue -> layout -> observers
//
// Subscription is an explicit list of observer callbacks invoked
// synchronously after each visibility update; there is no global shared
// state module.
//
// Example:
//
//	e := engine.New(engine.Options{Graph: g, Queue: q, Highlight: hm})
//	e.AddObserver(func(d *visibility.Delta, s *visibility.Snapshot) {
//		fmt.Println("visible nodes:", len(s.Nodes))
//	})
//	e.SetWindow(start, end) // triggers one full pass
package engine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/anonym-g/Chinese-Elite-sub000/pkg/elog"
	"github.com/anonym-g/Chinese-Elite-sub000/pkg/graph"
	"github.com/anonym-g/Chinese-Elite-sub000/pkg/highlight"
	"github.com/anonym-g/Chinese-Elite-sub000/pkg/lifecycle"
	"github.com/anonym-g/Chinese-Elite-sub000/pkg/pathfind"
	"github.com/anonym-g/Chinese-Elite-sub000/pkg/stream"
	"github.com/anonym-g/Chinese-Elite-sub000/pkg/visibility"
)

// Layout is the layout collaborator contract. It receives the full
// visible node and edge list on every visibility update and advances
// positions on its own ticks; the engine reads x/y off nodes only to
// seed spawn positions.
type Layout interface {
	SetGraph(nodes []*graph.Node, edges []*graph.Edge)
}

// Observer is called synchronously after each visibility update with the
// delta that was applied and the resulting snapshot.
type Observer func(delta *visibility.Delta, snap *visibility.Snapshot)

// Options wires the engine's collaborators. Graph, Queue, and Highlight
// are required; Layout and Store are optional.
type Options struct {
	Graph     *graph.Graph
	Queue     *lifecycle.Queue
	Highlight *highlight.Machine
	Layout    Layout
	// Store serves lazy per-node expansion records for Reveal.
	Store *stream.Store
	// PathLimit caps FindPaths results. Zero means 5.
	PathLimit int
}

// Engine is the state owner. All exported methods are safe for
// concurrent use; each runs its full pipeline pass before the next state
// change is accepted.
type Engine struct {
	// mu serializes state changes and pipeline passes. It is a plain
	// Mutex on purpose: reads of current state also take it, so no
	// reader can observe a half-applied pass.
	mu sync.Mutex

	g         *graph.Graph
	queue     *lifecycle.Queue
	hm        *highlight.Machine
	layout    Layout
	store     *stream.Store
	pathLimit int

	winStart time.Time
	winEnd   time.Time
	hidden   map[graph.Category]bool

	current   *visibility.Snapshot
	observers []Observer

	selected   graph.NodeID
	pathPinned []graph.NodeID
}

// New creates an engine. The initial window is unbounded (everything
// temporally eligible is visible) and no categories are hidden; no pass
// runs until the first state change or an explicit Refresh.
func New(opts Options) *Engine {
	limit := opts.PathLimit
	if limit <= 0 {
		limit = 5
	}

	e := &Engine{
		g:         opts.Graph,
		queue:     opts.Queue,
		hm:        opts.Highlight,
		layout:    opts.Layout,
		store:     opts.Store,
		pathLimit: limit,
		winStart:  time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC),
		winEnd:    time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC),
		hidden:    make(map[graph.Category]bool),
		current:   visibility.EmptySnapshot(),
	}

	// Membership backs the lifecycle queue's pre-destroy re-check.
	opts.Queue.SetMembership(func(id graph.NodeID) bool {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.current.HasNode(id)
	})

	return e
}

// AddObserver appends a synchronous post-update callback.
func (e *Engine) AddObserver(fn Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, fn)
}

// Snapshot returns the current visible snapshot.
func (e *Engine) Snapshot() *visibility.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Window returns the current query window.
func (e *Engine) Window() (start, end time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.winStart, e.winEnd
}

// SetWindow changes the query window and runs one pipeline pass. A
// degenerate window (end before start) yields an empty visible set, not
// an error.
func (e *Engine) SetWindow(start, end time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.winStart, e.winEnd = start, end
	e.refreshLocked()
}

// SetHidden toggles a category filter and runs one pipeline pass.
func (e *Engine) SetHidden(cat graph.Category, hidden bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if hidden {
		e.hidden[cat] = true
	} else {
		delete(e.hidden, cat)
	}
	e.refreshLocked()
}

// Refresh recomputes visibility against the current state. Called by the
// eviction scheduler's notify hook and after external graph mutation.
func (e *Engine) Refresh() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refreshLocked()
}

// refreshLocked runs one pipeline pass. Caller holds e.mu, so the pass
// reads one consistent (window, hidden, graph) triple.
func (e *Engine) refreshLocked() {
	snap := visibility.ComputeVisible(e.g, e.winStart, e.winEnd, e.hidden)
	e.hm.SetNeighbors(snap.Neighbors())

	delta := visibility.Diff(e.current, snap)
	e.current = snap

	// An id re-added while its fade-out is still staged keeps its proxy.
	for _, id := range delta.NodesAdded {
		e.queue.CancelRemoval(id)
	}
	e.queue.Apply(delta, snap)

	if e.layout != nil {
		nodes := make([]*graph.Node, 0, len(snap.Nodes))
		for _, n := range snap.Nodes {
			nodes = append(nodes, n)
		}
		sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
		edges := make([]*graph.Edge, 0, len(snap.Edges))
		for _, ed := range snap.Edges {
			edges = append(edges, ed)
		}
		sort.Slice(edges, func(i, j int) bool { return edges[i].ID() < edges[j].ID() })
		e.layout.SetGraph(nodes, edges)
	}

	for _, fn := range e.observers {
		fn(delta, snap)
	}
}

// SelectNode handles a click on a node. Selecting pins it with click
// priority and sets it as the animation source for nodes its expansion
// streams in; clicking the selected node again deselects and unpins.
// Any path highlight and its pins are dropped either way.
func (e *Engine) SelectNode(id graph.NodeID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var cat graph.Category
	if n, err := e.g.GetNode(id); err == nil {
		cat = n.Category
	}

	e.dropPathPinsLocked()
	state := e.hm.Select(id, cat)

	if prev := e.selected; prev != "" && prev != id {
		e.g.UnpinNodes([]graph.NodeID{prev}, graph.PinClick)
	}

	if state == highlight.NodeSelected {
		e.selected = id
		e.g.PinNodes([]graph.NodeID{id}, graph.PinClick)
		e.queue.SetAnimationSource(id)
	} else {
		e.g.UnpinNodes([]graph.NodeID{id}, graph.PinClick)
		e.selected = ""
		e.queue.SetAnimationSource("")
	}

	e.refreshLocked()
}

// ClearSelection returns to the idle highlight state, dropping the click
// pin and any path pins.
func (e *Engine) ClearSelection() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.hm.Clear()
	if e.selected != "" {
		e.g.UnpinNodes([]graph.NodeID{e.selected}, graph.PinClick)
		e.selected = ""
	}
	e.dropPathPinsLocked()
	e.queue.SetAnimationSource("")
	e.refreshLocked()
}

// FindPaths searches the currently visible edge set for routes between
// two nodes, pins every node on a found path (path priority, so a click
// pin is never downgraded), and starts the timed path reveal. The result
// carries a truncation signal when the iteration budget ran out.
func (e *Engine) FindPaths(source, target graph.NodeID) *pathfind.Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.dropPathPinsLocked()
	result := pathfind.FindPaths(source, target, e.pathLimit, e.current.Edges)

	if len(result.Paths) > 0 {
		seen := map[graph.NodeID]bool{}
		for _, path := range result.Paths {
			for _, id := range path {
				if !seen[id] {
					seen[id] = true
					e.pathPinned = append(e.pathPinned, id)
				}
			}
		}
		e.g.PinNodes(e.pathPinned, graph.PinPath)
	}

	e.hm.ShowPaths(result.Paths, source, target)
	e.refreshLocked()

	elog.Debug("path search", map[string]any{
		"source": source, "target": target,
		"paths": len(result.Paths), "truncated": result.Truncated,
	})
	return result
}

// dropPathPinsLocked unpins the previous path highlight's nodes. Click
// pins survive: UnpinNodes only removes the matching reason.
func (e *Engine) dropPathPinsLocked() {
	if len(e.pathPinned) > 0 {
		e.g.UnpinNodes(e.pathPinned, graph.PinPath)
		e.pathPinned = nil
	}
}

// Reveal streams in a node's expansion record, merges it into the
// working graph, pins the node with click priority, and recomputes
// visibility. A node with no expansion data (or a failed fetch) comes
// back as an empty expansion, not an error. Returns how many nodes and
// edges were added.
func (e *Engine) Reveal(ctx context.Context, id graph.NodeID) (nodesAdded, edgesAdded int, err error) {
	if e.store == nil {
		return 0, 0, nil
	}

	rec, err := e.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, stream.ErrNoRecord) {
			elog.Debug("reveal: no expansion data", map[string]any{"node": id})
			return 0, 0, nil
		}
		return 0, 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.g.HasNode(id) {
		if n, convErr := rec.Node.ToNode(); convErr == nil {
			if e.g.AddNode(n) == nil {
				nodesAdded++
			}
		}
	}
	for i := range rec.Relationships {
		ed := rec.Relationships[i].ToEdge()
		if e.g.AddEdge(ed) == nil {
			edgesAdded++
		}
	}

	e.g.PinNodes([]graph.NodeID{id}, graph.PinClick)
	e.queue.SetAnimationSource(id)
	e.refreshLocked()

	elog.Info("revealed node", map[string]any{
		"node": id, "nodes_added": nodesAdded, "edges_added": edgesAdded,
	})
	return nodesAdded, edgesAdded, nil
}

// ActiveIDs returns the eviction-exempt set: the selected node, its
// visible neighbors, and every pinned node. Wired as the destruction
// scheduler's ActiveSetFunc.
func (e *Engine) ActiveIDs() map[graph.NodeID]bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	active := make(map[graph.NodeID]bool)
	if e.selected != "" {
		active[e.selected] = true
		for _, n := range e.current.Neighbors()[e.selected] {
			active[n] = true
		}
	}
	for _, id := range e.g.PinnedIDs() {
		active[id] = true
	}
	return active
}
