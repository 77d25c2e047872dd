package lifecycle

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonym-g/Chinese-Elite-sub000/pkg/graph"
	"github.com/anonym-g/Chinese-Elite-sub000/pkg/visibility"
)

// recordingRenderer captures every instruction in order.
type recordingRenderer struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingRenderer) record(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recordingRenderer) CreateNode(n *graph.Node, x, y float64) {
	r.record("create-node:" + string(n.ID))
}
func (r *recordingRenderer) CreateEdge(e *graph.Edge)          { r.record("create-edge:" + string(e.ID())) }
func (r *recordingRenderer) FadeNodeLabel(id graph.NodeID)     { r.record("fade-label:" + string(id)) }
func (r *recordingRenderer) FadeNodeShape(id graph.NodeID)     { r.record("fade-shape:" + string(id)) }
func (r *recordingRenderer) ReleaseNode(id graph.NodeID)       { r.record("release-node:" + string(id)) }
func (r *recordingRenderer) ReleaseEdge(id graph.EdgeID)       { r.record("release-edge:" + string(id)) }

func (r *recordingRenderer) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

func testConfig() Config {
	return Config{
		Budget:        50,
		FrameInterval: time.Millisecond,
		FadeDelay:     5 * time.Millisecond,
		ViewportW:     100,
		ViewportH:     100,
	}
}

func deltaFor(snap *visibility.Snapshot, removedNodes []graph.NodeID, removedEdges []graph.EdgeID) *visibility.Delta {
	d := &visibility.Delta{NodesRemoved: removedNodes, EdgesRemoved: removedEdges}
	for id := range snap.Nodes {
		d.NodesAdded = append(d.NodesAdded, id)
	}
	for id := range snap.Edges {
		d.EdgesAdded = append(d.EdgesAdded, id)
	}
	return d
}

func TestQueuePump(t *testing.T) {
	t.Run("removals run before creations within one frame", func(t *testing.T) {
		r := &recordingRenderer{}
		g := graph.New()
		q := NewQueue(testConfig(), r, g)
		defer q.Close()

		snap := visibility.EmptySnapshot()
		snap.Nodes["new"] = &graph.Node{ID: "new"}

		delta := deltaFor(snap, []graph.NodeID{"old"}, []graph.EdgeID{"a|b|KNOWS"})
		q.Apply(delta, snap)
		q.Pump()

		calls := r.snapshot()
		require.Len(t, calls, 3)
		assert.Equal(t, "release-edge:a|b|KNOWS", calls[0])
		assert.Equal(t, "fade-label:old", calls[1])
		assert.Equal(t, "create-node:new", calls[2])
	})

	t.Run("budget splits work across frames", func(t *testing.T) {
		r := &recordingRenderer{}
		g := graph.New()
		cfg := testConfig()
		cfg.Budget = 10
		q := NewQueue(cfg, r, g)
		defer q.Close()

		snap := visibility.EmptySnapshot()
		for i := 0; i < 25; i++ {
			id := graph.NodeID(fmt.Sprintf("n%02d", i))
			snap.Nodes[id] = &graph.Node{ID: id}
		}
		q.Apply(deltaFor(snap, nil, nil), snap)

		more := q.Pump()
		assert.True(t, more)
		assert.Len(t, r.snapshot(), 10)

		more = q.Pump()
		assert.True(t, more)
		assert.Len(t, r.snapshot(), 20)

		more = q.Pump()
		assert.False(t, more)
		assert.Len(t, r.snapshot(), 25)
	})

	t.Run("two-phase removal releases after fades", func(t *testing.T) {
		r := &recordingRenderer{}
		g := graph.New()
		q := NewQueue(testConfig(), r, g)
		defer q.Close()

		snap := visibility.EmptySnapshot()
		q.SetMembership(func(graph.NodeID) bool { return false })
		q.Apply(deltaFor(snap, []graph.NodeID{"gone"}, nil), snap)
		q.Pump()

		assert.Eventually(t, func() bool {
			calls := r.snapshot()
			return len(calls) == 3 &&
				calls[0] == "fade-label:gone" &&
				calls[1] == "fade-shape:gone" &&
				calls[2] == "release-node:gone"
		}, time.Second, time.Millisecond)
	})

	t.Run("membership recheck aborts release of rewanted id", func(t *testing.T) {
		r := &recordingRenderer{}
		g := graph.New()
		q := NewQueue(testConfig(), r, g)
		defer q.Close()

		snap := visibility.EmptySnapshot()
		q.SetMembership(func(id graph.NodeID) bool { return id == "kept" })
		q.Apply(deltaFor(snap, []graph.NodeID{"kept"}, nil), snap)
		q.Pump()

		time.Sleep(50 * time.Millisecond)
		for _, call := range r.snapshot() {
			assert.NotEqual(t, "release-node:kept", call)
		}
	})

	t.Run("membership predicate may call back into the queue", func(t *testing.T) {
		r := &recordingRenderer{}
		g := graph.New()
		q := NewQueue(testConfig(), r, g)
		defer q.Close()

		// The release step must invoke the predicate with the queue
		// unlocked: the real predicate re-enters engine state that in
		// turn calls queue methods.
		q.SetMembership(func(graph.NodeID) bool {
			q.Backlog()
			return false
		})

		snap := visibility.EmptySnapshot()
		q.Apply(deltaFor(snap, []graph.NodeID{"gone"}, nil), snap)
		q.Pump()

		assert.Eventually(t, func() bool {
			for _, call := range r.snapshot() {
				if call == "release-node:gone" {
					return true
				}
			}
			return false
		}, time.Second, time.Millisecond)
	})

	t.Run("cancel removal stops pending fade phases", func(t *testing.T) {
		r := &recordingRenderer{}
		g := graph.New()
		cfg := testConfig()
		cfg.FadeDelay = 20 * time.Millisecond
		q := NewQueue(cfg, r, g)
		defer q.Close()

		snap := visibility.EmptySnapshot()
		q.SetMembership(func(graph.NodeID) bool { return false })
		q.Apply(deltaFor(snap, []graph.NodeID{"x"}, nil), snap)
		q.Pump()

		q.CancelRemoval("x")
		time.Sleep(80 * time.Millisecond)

		calls := r.snapshot()
		assert.Equal(t, []string{"fade-label:x"}, calls, "only the already-issued phase ran")
	})
}

func TestSpawnPosition(t *testing.T) {
	t.Run("inherits animation source position", func(t *testing.T) {
		g := graph.New()
		require.NoError(t, g.AddNode(&graph.Node{ID: "src", Category: graph.Person, X: 42, Y: 17}))

		q := NewQueue(testConfig(), &recordingRenderer{}, g)
		defer q.Close()
		q.SetAnimationSource("src")

		x, y := q.spawnPosition(&graph.Node{ID: "child"})
		assert.Equal(t, 42.0, x)
		assert.Equal(t, 17.0, y)
	})

	t.Run("without source spawns off-screen", func(t *testing.T) {
		g := graph.New()
		q := NewQueue(testConfig(), &recordingRenderer{}, g)
		defer q.Close()

		for i := 0; i < 20; i++ {
			x, y := q.spawnPosition(&graph.Node{ID: "n"})
			outside := x < 0 || x > q.cfg.ViewportW || y < 0 || y > q.cfg.ViewportH
			assert.True(t, outside, "spawn (%f, %f) should be off-screen", x, y)
		}
	})
}

func TestTimerScheduler(t *testing.T) {
	t.Run("cancel is idempotent", func(t *testing.T) {
		ts := NewTimerScheduler()
		defer ts.Stop()

		fired := make(chan struct{}, 1)
		ts.After("a", "p", 10*time.Millisecond, func() { fired <- struct{}{} })
		ts.Cancel("a", "p")
		ts.Cancel("a", "p") // second cancel is a no-op, not a panic

		select {
		case <-fired:
			t.Fatal("cancelled timer fired")
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("rearming replaces the previous timer", func(t *testing.T) {
		ts := NewTimerScheduler()
		defer ts.Stop()

		var mu sync.Mutex
		count := 0
		for i := 0; i < 3; i++ {
			ts.After("a", "p", 10*time.Millisecond, func() {
				mu.Lock()
				count++
				mu.Unlock()
			})
		}

		assert.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return count == 1
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, 0, ts.Pending())
	})

	t.Run("cancel phase sweeps all entities", func(t *testing.T) {
		ts := NewTimerScheduler()
		defer ts.Stop()

		ts.After("a", "reveal", time.Minute, func() {})
		ts.After("b", "reveal", time.Minute, func() {})
		ts.After("a", "fade", time.Minute, func() {})

		ts.CancelPhase("reveal")
		assert.Equal(t, 1, ts.Pending())
	})

	t.Run("stop refuses further arming", func(t *testing.T) {
		ts := NewTimerScheduler()
		ts.Stop()
		ts.After("a", "p", time.Millisecond, func() { t.Error("armed after stop") })
		time.Sleep(20 * time.Millisecond)
	})
}
