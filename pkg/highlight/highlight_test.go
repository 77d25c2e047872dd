package highlight

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonym-g/Chinese-Elite-sub000/pkg/graph"
	"github.com/anonym-g/Chinese-Elite-sub000/pkg/lifecycle"
)

func newTestMachine(t *testing.T) *Machine {
	t.Helper()
	ts := lifecycle.NewTimerScheduler()
	t.Cleanup(ts.Stop)
	return NewMachine(ts)
}

func TestTransitions(t *testing.T) {
	t.Run("select then reselect same id toggles to idle", func(t *testing.T) {
		m := newTestMachine(t)

		assert.Equal(t, NodeSelected, m.Select("a", graph.Person))
		assert.Equal(t, graph.NodeID("a"), m.SelectedID())

		assert.Equal(t, Idle, m.Select("a", graph.Person))
		assert.Equal(t, graph.NodeID(""), m.SelectedID())
	})

	t.Run("selecting another node switches selection", func(t *testing.T) {
		m := newTestMachine(t)

		m.Select("a", graph.Person)
		assert.Equal(t, NodeSelected, m.Select("b", graph.Organization))
		assert.Equal(t, graph.NodeID("b"), m.SelectedID())
	})

	t.Run("clear returns to idle from any state", func(t *testing.T) {
		m := newTestMachine(t)

		m.Select("a", graph.Person)
		m.Clear()
		assert.Equal(t, Idle, m.State())

		m.ShowPaths([][]graph.NodeID{{"a", "b"}}, "a", "b")
		require.Equal(t, PathHighlighted, m.State())
		m.Clear()
		assert.Equal(t, Idle, m.State())
	})

	t.Run("select drops path highlight", func(t *testing.T) {
		m := newTestMachine(t)

		m.ShowPaths([][]graph.NodeID{{"a", "b"}}, "a", "b")
		m.Select("c", graph.Person)
		assert.Equal(t, NodeSelected, m.State())
		assert.Equal(t, 0, m.RevealedCount())
	})

	t.Run("empty path set clears to idle", func(t *testing.T) {
		m := newTestMachine(t)
		m.Select("a", graph.Person)
		m.ShowPaths(nil, "a", "b")
		assert.Equal(t, Idle, m.State())
	})
}

func TestNodeSelectedStyles(t *testing.T) {
	m := newTestMachine(t)
	m.SetNeighbors(map[graph.NodeID][]graph.NodeID{
		"a": {"b"},
	})
	m.Select("a", graph.Person)

	t.Run("selection and neighbors stay full", func(t *testing.T) {
		assert.Equal(t, StyleFull, m.NodeStyle("a"))
		assert.Equal(t, StyleFull, m.NodeStyle("b"))
		assert.Equal(t, StyleFaded, m.NodeStyle("c"))
	})

	t.Run("incident edges highlighted with category tint", func(t *testing.T) {
		touching := &graph.Edge{Source: "a", Target: "b", Type: "KNOWS"}
		style, tint := m.EdgeStyle(touching)
		assert.Equal(t, StyleHighlighted, style)
		assert.Equal(t, categoryTints[graph.Person], tint)

		elsewhere := &graph.Edge{Source: "b", Target: "c", Type: "KNOWS"}
		style, tint = m.EdgeStyle(elsewhere)
		assert.Equal(t, StyleFaded, style)
		assert.Empty(t, tint)
	})

	t.Run("idle styles everything full", func(t *testing.T) {
		m.Clear()
		assert.Equal(t, StyleFull, m.NodeStyle("zzz"))
		style, _ := m.EdgeStyle(&graph.Edge{Source: "b", Target: "c", Type: "KNOWS"})
		assert.Equal(t, StyleFull, style)
	})
}

func TestPathReveal(t *testing.T) {
	paths := [][]graph.NodeID{
		{"a", "x", "b"},
		{"a", "y", "b"},
		{"a", "z", "b"},
	}

	t.Run("first path lights immediately, rest on the dwell timer", func(t *testing.T) {
		m := newTestMachine(t)
		m.SetDwell(10 * time.Millisecond)

		var mu sync.Mutex
		var order []int
		m.SetRevealFunc(func(index int, _ []graph.NodeID) {
			mu.Lock()
			order = append(order, index)
			mu.Unlock()
		})

		m.ShowPaths(paths, "a", "b")
		assert.Equal(t, 1, m.RevealedCount())
		assert.Equal(t, StyleFull, m.NodeStyle("x"))
		assert.Equal(t, StyleFaded, m.NodeStyle("y"))

		assert.Eventually(t, func() bool {
			return m.RevealedCount() == 3
		}, time.Second, 2*time.Millisecond)

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []int{0, 1, 2}, order)
	})

	t.Run("reveal is additive", func(t *testing.T) {
		m := newTestMachine(t)
		m.SetDwell(5 * time.Millisecond)
		m.ShowPaths(paths, "a", "b")

		assert.Eventually(t, func() bool {
			return m.RevealedCount() == 3
		}, time.Second, time.Millisecond)

		// Earlier paths stay lit after later reveals.
		assert.Equal(t, StyleFull, m.NodeStyle("x"))
		assert.Equal(t, StyleFull, m.NodeStyle("y"))
		assert.Equal(t, StyleFull, m.NodeStyle("z"))
	})

	t.Run("path hop edges light regardless of stored orientation", func(t *testing.T) {
		m := newTestMachine(t)
		m.ShowPaths([][]graph.NodeID{{"a", "x", "b"}}, "a", "b")

		forward := &graph.Edge{Source: "a", Target: "x", Type: "KNOWS"}
		reversed := &graph.Edge{Source: "x", Target: "a", Type: "KNOWS"}
		style, _ := m.EdgeStyle(forward)
		assert.Equal(t, StyleFull, style)
		style, _ = m.EdgeStyle(reversed)
		assert.Equal(t, StyleFull, style)

		offPath := &graph.Edge{Source: "x", Target: "q", Type: "KNOWS"}
		style, _ = m.EdgeStyle(offPath)
		assert.Equal(t, StyleFaded, style)
	})

	t.Run("clear cancels pending reveals", func(t *testing.T) {
		m := newTestMachine(t)
		m.SetDwell(20 * time.Millisecond)

		var mu sync.Mutex
		revealed := 0
		m.SetRevealFunc(func(int, []graph.NodeID) {
			mu.Lock()
			revealed++
			mu.Unlock()
		})

		m.ShowPaths(paths, "a", "b")
		m.Clear()
		time.Sleep(80 * time.Millisecond)

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 1, revealed, "only the immediate first reveal ran")
	})

	t.Run("concurrent clears and reshows leave a consistent machine", func(t *testing.T) {
		m := newTestMachine(t)
		m.SetDwell(time.Millisecond)

		var wg sync.WaitGroup
		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < 50; i++ {
					if w%2 == 0 {
						m.ShowPaths(paths, "a", "b")
					} else {
						m.Clear()
					}
				}
			}(w)
		}
		wg.Wait()

		m.Clear()
		assert.Equal(t, Idle, m.State())
		assert.Equal(t, 0, m.RevealedCount())
	})

	t.Run("new search cancels the previous sequence", func(t *testing.T) {
		m := newTestMachine(t)
		m.SetDwell(20 * time.Millisecond)

		m.ShowPaths(paths, "a", "b")
		m.ShowPaths([][]graph.NodeID{{"p", "q"}}, "p", "q")

		time.Sleep(80 * time.Millisecond)
		assert.Equal(t, 1, m.RevealedCount())
		assert.Equal(t, StyleFaded, m.NodeStyle("x"), "stale path never lit")
	})
}
