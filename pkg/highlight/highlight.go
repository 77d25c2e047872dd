// Package highlight tracks selection and path-highlight state and derives
// a target visual style for every node and edge.
//
// The machine has three states. Idle: nothing selected, everything drawn
// full. NodeSelected: one node is selected, it and its neighbors stay
// full while the rest fades, and edges touching the selection are
// highlighted with the selected node's category tint. PathHighlighted: a
// path search succeeded and its paths light up one at a time on a dwell
// timer, additively, while everything off-path stays faded.
//
// Reveal timers are owned by a shared TimerScheduler under the "reveal"
// phase; any state transition cancels them first, so a stale timer can
// never light up a since-hidden path.
//
// Example:
//
//	hm := highlight.NewMachine(queue.Timers())
//	hm.SetNeighbors(snap.Neighbors())
//	hm.Select("wang-anshi", graph.Person)
//	style := hm.NodeStyle("sima-guang") // StyleFull if adjacent, else StyleFaded
package highlight

import (
	"sync"
	"time"

	"github.com/anonym-g/Chinese-Elite-sub000/pkg/graph"
	"github.com/anonym-g/Chinese-Elite-sub000/pkg/lifecycle"
)

// Style is the target visual treatment for one node or edge.
type Style int

const (
	// StyleFull draws the element at normal prominence.
	StyleFull Style = iota
	// StyleFaded draws the element dimmed behind the current focus.
	StyleFaded
	// StyleHighlighted draws the element emphasized, tinted by the
	// selected node's category.
	StyleHighlighted
)

func (s Style) String() string {
	switch s {
	case StyleFull:
		return "full"
	case StyleFaded:
		return "faded"
	case StyleHighlighted:
		return "highlighted"
	default:
		return "unknown"
	}
}

// State names the machine's current mode.
type State int

const (
	// Idle means no selection and no path highlight.
	Idle State = iota
	// NodeSelected means one node is selected.
	NodeSelected
	// PathHighlighted means a path search result is being revealed.
	PathHighlighted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case NodeSelected:
		return "node-selected"
	case PathHighlighted:
		return "path-highlighted"
	default:
		return "unknown"
	}
}

// categoryTints maps a node category to the hex tint used for edges
// touching a selected node of that category.
var categoryTints = map[graph.Category]string{
	graph.Person:       "#e74c3c",
	graph.Organization: "#3498db",
	graph.Event:        "#e67e22",
	graph.Document:     "#95a5a6",
	graph.Location:     "#2ecc71",
	graph.Tag:          "#9b59b6",
}

// DefaultDwell is the delay between revealing consecutive paths.
const DefaultDwell = 2200 * time.Millisecond

// revealPhase keys the dwell timers in the shared scheduler.
const revealPhase = "reveal"

// RevealFunc is notified each time one more path becomes fully styled.
// index counts from 0 in the order paths were supplied.
type RevealFunc func(index int, path []graph.NodeID)

// Machine is the highlight state machine. All methods are safe for
// concurrent use.
type Machine struct {
	mu     sync.Mutex
	state  State
	timers *lifecycle.TimerScheduler
	dwell  time.Duration

	// NodeSelected state.
	selectedID  graph.NodeID
	selectedCat graph.Category
	neighbors   map[graph.NodeID][]graph.NodeID

	// PathHighlighted state.
	paths    [][]graph.NodeID
	revealed int
	sourceID graph.NodeID
	targetID graph.NodeID
	onReveal RevealFunc

	// litNodes and litEdges cache the cumulative revealed element sets.
	litNodes map[graph.NodeID]bool
	litEdges map[graph.EdgeID]bool
}

// NewMachine creates an idle machine sharing the given timer scheduler.
func NewMachine(timers *lifecycle.TimerScheduler) *Machine {
	return &Machine{
		state:  Idle,
		timers: timers,
		dwell:  DefaultDwell,
	}
}

// SetDwell overrides the per-path reveal delay. Zero or negative keeps the
// default.
func (m *Machine) SetDwell(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d > 0 {
		m.dwell = d
	}
}

// SetRevealFunc installs the per-path reveal callback.
func (m *Machine) SetRevealFunc(fn RevealFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReveal = fn
}

// SetNeighbors replaces the adjacency index. Call after every filter pass
// with the visible snapshot's adjacency, so "neighbor of the selection"
// always reflects what is on screen.
func (m *Machine) SetNeighbors(index map[graph.NodeID][]graph.NodeID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.neighbors = index
}

// State returns the current mode.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SelectedID returns the selected node id, or "" when none.
func (m *Machine) SelectedID() graph.NodeID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != NodeSelected {
		return ""
	}
	return m.selectedID
}

// Select handles a click on a node. Clicking the currently selected node
// deselects back to Idle; any other click selects that node, dropping any
// path-highlight state. Returns the resulting state.
func (m *Machine) Select(id graph.NodeID, category graph.Category) State {
	m.timers.CancelPhase(revealPhase)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == NodeSelected && m.selectedID == id {
		m.toIdleLocked()
		return m.state
	}

	m.clearPathLocked()
	m.state = NodeSelected
	m.selectedID = id
	m.selectedCat = category
	return m.state
}

// Clear drops any selection or path highlight and returns to Idle.
func (m *Machine) Clear() {
	m.timers.CancelPhase(revealPhase)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.toIdleLocked()
}

// ShowPaths enters PathHighlighted for a path search result. All elements
// start faded; the first path lights up immediately, and each subsequent
// path lights up after one dwell interval, cumulatively. Any previous
// reveal sequence is cancelled first. Empty paths is a no-op that clears
// to Idle.
func (m *Machine) ShowPaths(paths [][]graph.NodeID, source, target graph.NodeID) {
	m.timers.CancelPhase(revealPhase)

	m.mu.Lock()
	if len(paths) == 0 {
		m.toIdleLocked()
		m.mu.Unlock()
		return
	}

	m.selectedID = ""
	m.state = PathHighlighted
	m.paths = paths
	m.revealed = 0
	m.sourceID = source
	m.targetID = target
	m.litNodes = make(map[graph.NodeID]bool)
	m.litEdges = make(map[graph.EdgeID]bool)
	m.mu.Unlock()

	m.revealNext()
}

// revealNext lights up the next path and, while more remain, arms the
// dwell timer for the one after it.
func (m *Machine) revealNext() {
	m.mu.Lock()

	if m.state != PathHighlighted || m.revealed >= len(m.paths) {
		m.mu.Unlock()
		return
	}

	idx := m.revealed
	path := m.paths[idx]
	m.revealed++

	for _, id := range path {
		m.litNodes[id] = true
	}
	for i := 0; i+1 < len(path); i++ {
		m.litEdges[pathEdgeKey(path[i], path[i+1])] = true
	}

	fn := m.onReveal
	more := m.revealed < len(m.paths)
	dwell := m.dwell
	source := m.sourceID
	m.mu.Unlock()

	if fn != nil {
		fn(idx, path)
	}
	if more {
		m.timers.After(string(source), revealPhase, dwell, m.revealNext)
	}
}

// RevealedCount returns how many paths are currently lit.
func (m *Machine) RevealedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revealed
}

// NodeStyle derives the target style for a node under the current state.
func (m *Machine) NodeStyle(id graph.NodeID) Style {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case NodeSelected:
		if id == m.selectedID {
			return StyleFull
		}
		for _, n := range m.neighbors[m.selectedID] {
			if n == id {
				return StyleFull
			}
		}
		return StyleFaded
	case PathHighlighted:
		if m.litNodes[id] {
			return StyleFull
		}
		return StyleFaded
	default:
		return StyleFull
	}
}

// EdgeStyle derives the target style for an edge, plus the tint to apply
// when highlighted. The tint is the selected node's category color and is
// empty unless the style is StyleHighlighted.
func (m *Machine) EdgeStyle(e *graph.Edge) (Style, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case NodeSelected:
		if e.Touches(m.selectedID) {
			return StyleHighlighted, categoryTints[m.selectedCat]
		}
		return StyleFaded, ""
	case PathHighlighted:
		if m.litEdges[pathEdgeKey(e.Source, e.Target)] {
			return StyleFull, ""
		}
		return StyleFaded, ""
	default:
		return StyleFull, ""
	}
}

// pathEdgeKey builds an orientation-free key so a path hop matches the
// stored edge regardless of which endpoint the source record listed
// first.
func pathEdgeKey(a, b graph.NodeID) graph.EdgeID {
	if b < a {
		a, b = b, a
	}
	return graph.EdgeID(string(a) + "~" + string(b))
}

// toIdleLocked resets every mode field. Caller holds m.mu.
func (m *Machine) toIdleLocked() {
	m.state = Idle
	m.selectedID = ""
	m.selectedCat = ""
	m.clearPathLocked()
}

// clearPathLocked drops path-highlight bookkeeping. Caller holds m.mu.
func (m *Machine) clearPathLocked() {
	m.paths = nil
	m.revealed = 0
	m.sourceID = ""
	m.targetID = ""
	m.litNodes = nil
	m.litEdges = nil
}
