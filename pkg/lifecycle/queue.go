// Package lifecycle reconciles the rendered scene with the visible
// subgraph under a per-frame work budget.
//
// The queue consumes visibility deltas and turns them into create /
// fade-out / destroy instructions for the rendering collaborator. Two FIFO
// task queues are maintained; each frame pump drains up to Budget removal
// tasks first, then up to Budget creation tasks, so an id removed and
// recreated in the same diff never contends for the same visual slot.
//
// Node removal is two-phase to avoid visual popping: the secondary label
// fades, then the primary shape, then resources are released - and the
// release re-checks membership immediately before destroying, so a node
// that became wanted again mid-fade survives.
//
// Example:
//
//	q := lifecycle.NewQueue(cfg, renderer, g)
//	q.SetMembership(func(id graph.NodeID) bool { return snap.HasNode(id) })
//	q.Apply(delta, snap)
//	q.Run(ctx) // or drive Pump() from an external render loop
package lifecycle

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/anonym-g/Chinese-Elite-sub000/pkg/graph"
	"github.com/anonym-g/Chinese-Elite-sub000/pkg/visibility"
)

// Renderer is the rendering collaborator contract. Implementations draw
// shapes and text; the engine only tells them what exists and where new
// objects should spawn.
type Renderer interface {
	// CreateNode materializes a node's visual proxy at a spawn position.
	CreateNode(n *graph.Node, x, y float64)
	// CreateEdge materializes an edge between two existing node proxies.
	CreateEdge(e *graph.Edge)
	// FadeNodeLabel starts fading the node's secondary label.
	FadeNodeLabel(id graph.NodeID)
	// FadeNodeShape starts fading the node's primary shape.
	FadeNodeShape(id graph.NodeID)
	// ReleaseNode destroys the node proxy and frees its resources.
	ReleaseNode(id graph.NodeID)
	// ReleaseEdge destroys the edge proxy.
	ReleaseEdge(id graph.EdgeID)
}

// Config holds lifecycle queue tuning.
type Config struct {
	// Budget is the maximum number of removal tasks, and separately of
	// creation tasks, processed per frame.
	Budget int
	// FrameInterval is the cadence of the internal pump when Run drives
	// frames; an external render loop may call Pump directly instead.
	FrameInterval time.Duration
	// FadeDelay separates the label-fade, shape-fade, and release phases
	// of a node removal.
	FadeDelay time.Duration
	// ViewportW and ViewportH bound the on-screen area; first-load spawns
	// start outside it in a random quadrant and travel inward.
	ViewportW float64
	ViewportH float64
}

// DefaultConfig returns the standard tuning: 50 items per frame at a 16ms
// cadence with 300ms fade phases on a 1920x1080 viewport.
func DefaultConfig() Config {
	return Config{
		Budget:        50,
		FrameInterval: 16 * time.Millisecond,
		FadeDelay:     300 * time.Millisecond,
		ViewportW:     1920,
		ViewportH:     1080,
	}
}

type taskKind int

const (
	taskRemoveEdge taskKind = iota
	taskRemoveNode
	taskCreateNode
	taskCreateEdge
)

type task struct {
	kind   taskKind
	nodeID graph.NodeID
	node   *graph.Node
	edgeID graph.EdgeID
	edge   *graph.Edge
}

// Queue is the frame-budgeted create/destroy scheduler.
type Queue struct {
	mu       sync.Mutex
	cfg      Config
	renderer Renderer
	g        *graph.Graph
	timers   *TimerScheduler
	rng      *rand.Rand

	removal  []task
	creation []task

	// membership answers "is this id still wanted?" against the current
	// snapshot; consulted immediately before a destroy step.
	membership func(graph.NodeID) bool

	// animSource, when set, is the node whose interaction triggered the
	// current expansion; new nodes spawn at its position.
	animSource graph.NodeID

	trigger chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewQueue creates a lifecycle queue bound to a renderer and the working
// graph (read for spawn positions only).
func NewQueue(cfg Config, renderer Renderer, g *graph.Graph) *Queue {
	if cfg.Budget <= 0 {
		cfg.Budget = DefaultConfig().Budget
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = DefaultConfig().FrameInterval
	}
	if cfg.FadeDelay < 0 {
		cfg.FadeDelay = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		cfg:      cfg,
		renderer: renderer,
		g:        g,
		timers:   NewTimerScheduler(),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		trigger:  make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Timers exposes the queue's timer scheduler so sibling components (the
// highlight reveal sequence) share one cancelable-timer owner.
func (q *Queue) Timers() *TimerScheduler {
	return q.timers
}

// SetMembership installs the "still wanted" predicate, normally backed by
// the current visibility snapshot.
func (q *Queue) SetMembership(fn func(graph.NodeID) bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.membership = fn
}

// SetAnimationSource records the node whose interaction is causing new
// nodes to appear. Pass an empty id to revert to off-screen spawning.
func (q *Queue) SetAnimationSource(id graph.NodeID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.animSource = id
}

// Apply enqueues one visibility delta: removals (edges first, then nodes)
// ahead of creations (nodes first, then edges, so endpoints exist when an
// edge proxy is created). Call once per diff; then drive frames with Run
// or Pump.
func (q *Queue) Apply(delta *visibility.Delta, snap *visibility.Snapshot) {
	q.mu.Lock()

	for _, id := range delta.EdgesRemoved {
		q.removal = append(q.removal, task{kind: taskRemoveEdge, edgeID: id})
	}
	for _, id := range delta.NodesRemoved {
		q.removal = append(q.removal, task{kind: taskRemoveNode, nodeID: id})
	}
	for _, id := range delta.NodesAdded {
		if n, ok := snap.Nodes[id]; ok {
			q.creation = append(q.creation, task{kind: taskCreateNode, nodeID: id, node: n})
		}
	}
	for _, id := range delta.EdgesAdded {
		if e, ok := snap.Edges[id]; ok {
			q.creation = append(q.creation, task{kind: taskCreateEdge, edgeID: id, edge: e})
		}
	}

	q.mu.Unlock()
	q.wake()
}

// Pump processes one frame: up to Budget removals, then up to Budget
// creations. It returns true while either queue remains non-empty, in
// which case the caller (or the internal loop) should schedule another
// frame.
func (q *Queue) Pump() bool {
	q.mu.Lock()

	var frame []task
	n := q.cfg.Budget
	if n > len(q.removal) {
		n = len(q.removal)
	}
	frame = append(frame, q.removal[:n]...)
	q.removal = q.removal[n:]

	n = q.cfg.Budget
	if n > len(q.creation) {
		n = len(q.creation)
	}
	frame = append(frame, q.creation[:n]...)
	q.creation = q.creation[n:]

	more := len(q.removal) > 0 || len(q.creation) > 0
	q.mu.Unlock()

	for _, t := range frame {
		switch t.kind {
		case taskRemoveEdge:
			q.renderer.ReleaseEdge(t.edgeID)
		case taskRemoveNode:
			q.beginNodeRemoval(t.nodeID)
		case taskCreateNode:
			x, y := q.spawnPosition(t.node)
			q.renderer.CreateNode(t.node, x, y)
		case taskCreateEdge:
			q.renderer.CreateEdge(t.edge)
		}
	}

	return more
}

// beginNodeRemoval starts the staged fade: label, then shape, then
// release. Each phase is a short fixed delay so a same-frame re-creation
// of the same id cannot race the destroy - the final step re-checks
// membership and aborts if the id is wanted again.
func (q *Queue) beginNodeRemoval(id graph.NodeID) {
	q.renderer.FadeNodeLabel(id)

	key := string(id)
	q.timers.After(key, "fade-shape", q.cfg.FadeDelay, func() {
		q.renderer.FadeNodeShape(id)
		q.timers.After(key, "release", q.cfg.FadeDelay, func() {
			// Copy the predicate and invoke it unlocked: it is an
			// engine-owned closure that takes the engine lock, and the
			// engine holds its lock while calling into the queue.
			q.mu.Lock()
			membership := q.membership
			q.mu.Unlock()
			if membership != nil && membership(id) {
				return // re-added mid-fade; keep the proxy
			}
			q.renderer.ReleaseNode(id)
		})
	})
}

// CancelRemoval aborts any in-flight staged fade for a node. Called when a
// later diff re-adds the id before its fade completed.
func (q *Queue) CancelRemoval(id graph.NodeID) {
	key := string(id)
	q.timers.Cancel(key, "fade-shape")
	q.timers.Cancel(key, "release")
}

// spawnPosition picks where a new node proxy appears. With an animation
// source set and present, the new node inherits its position; otherwise
// it spawns just outside a randomly chosen viewport quadrant corner and
// travels inward as the layout relaxes.
func (q *Queue) spawnPosition(n *graph.Node) (float64, float64) {
	q.mu.Lock()
	source := q.animSource
	q.mu.Unlock()

	if source != "" && source != n.ID {
		if src, err := q.g.GetNode(source); err == nil {
			return src.X, src.Y
		}
	}

	w, h := q.cfg.ViewportW, q.cfg.ViewportH
	margin := 0.25
	switch q.rng.Intn(4) {
	case 0:
		return -w * margin, -h * margin
	case 1:
		return w * (1 + margin), -h * margin
	case 2:
		return -w * margin, h * (1 + margin)
	default:
		return w * (1 + margin), h * (1 + margin)
	}
}

// Backlog returns the pending removal and creation counts.
func (q *Queue) Backlog() (removals, creations int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.removal), len(q.creation)
}

// Run drives frames from an internal ticker until ctx or Close stops it.
// Each tick pumps one frame; the loop idles when both queues are empty
// and wakes on the next Apply.
func (q *Queue) Run(ctx context.Context) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()

		ticker := time.NewTicker(q.cfg.FrameInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-q.ctx.Done():
				return
			case <-q.trigger:
				q.Pump()
			case <-ticker.C:
				q.Pump()
			}
		}
	}()
}

func (q *Queue) wake() {
	select {
	case q.trigger <- struct{}{}:
	default:
	}
}

// Close stops the pump loop and cancels all staged fades.
func (q *Queue) Close() {
	q.cancel()
	q.timers.Stop()
	q.wg.Wait()
}
