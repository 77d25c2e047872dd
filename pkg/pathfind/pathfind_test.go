package pathfind

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonym-g/Chinese-Elite-sub000/pkg/graph"
)

func edgeSet(pairs ...[2]graph.NodeID) map[graph.EdgeID]*graph.Edge {
	edges := make(map[graph.EdgeID]*graph.Edge)
	for _, p := range pairs {
		e := &graph.Edge{Source: p[0], Target: p[1], Type: "KNOWS"}
		edges[e.ID()] = e
	}
	return edges
}

func TestFindPaths(t *testing.T) {
	t.Run("two parallel routes in non-decreasing length order", func(t *testing.T) {
		edges := edgeSet(
			[2]graph.NodeID{"A", "C"}, [2]graph.NodeID{"C", "B"},
			[2]graph.NodeID{"A", "D"}, [2]graph.NodeID{"D", "B"},
		)

		result := FindPaths("A", "B", 2, edges)
		require.Len(t, result.Paths, 2)
		assert.False(t, result.Truncated)

		assert.Equal(t, []graph.NodeID{"A", "C", "B"}, result.Paths[0])
		assert.Equal(t, []graph.NodeID{"A", "D", "B"}, result.Paths[1])
		assert.Len(t, result.Paths[0], 3)
		assert.Len(t, result.Paths[1], 3)
	})

	t.Run("limit caps the number of paths", func(t *testing.T) {
		edges := edgeSet(
			[2]graph.NodeID{"A", "C"}, [2]graph.NodeID{"C", "B"},
			[2]graph.NodeID{"A", "D"}, [2]graph.NodeID{"D", "B"},
		)

		result := FindPaths("A", "B", 1, edges)
		assert.Len(t, result.Paths, 1)
	})

	t.Run("direction is ignored", func(t *testing.T) {
		// B -> A directed edge still connects A to B.
		edges := edgeSet([2]graph.NodeID{"B", "A"})
		result := FindPaths("A", "B", 1, edges)
		require.Len(t, result.Paths, 1)
		assert.Equal(t, []graph.NodeID{"A", "B"}, result.Paths[0])
	})

	t.Run("shorter paths come first", func(t *testing.T) {
		edges := edgeSet(
			[2]graph.NodeID{"A", "B"},
			[2]graph.NodeID{"A", "C"}, [2]graph.NodeID{"C", "B"},
		)
		result := FindPaths("A", "B", 5, edges)
		require.Len(t, result.Paths, 2)
		assert.Equal(t, []graph.NodeID{"A", "B"}, result.Paths[0])
		assert.Equal(t, []graph.NodeID{"A", "C", "B"}, result.Paths[1])
	})

	t.Run("equal-length paths are lexicographic", func(t *testing.T) {
		edges := edgeSet(
			[2]graph.NodeID{"A", "z"}, [2]graph.NodeID{"z", "B"},
			[2]graph.NodeID{"A", "m"}, [2]graph.NodeID{"m", "B"},
			[2]graph.NodeID{"A", "c"}, [2]graph.NodeID{"c", "B"},
		)
		result := FindPaths("A", "B", 3, edges)
		require.Len(t, result.Paths, 3)
		assert.Equal(t, []graph.NodeID{"A", "c", "B"}, result.Paths[0])
		assert.Equal(t, []graph.NodeID{"A", "m", "B"}, result.Paths[1])
		assert.Equal(t, []graph.NodeID{"A", "z", "B"}, result.Paths[2])
	})

	t.Run("no repeated node within a path", func(t *testing.T) {
		edges := edgeSet(
			[2]graph.NodeID{"A", "B"}, [2]graph.NodeID{"B", "C"},
			[2]graph.NodeID{"C", "A"},
		)
		result := FindPaths("A", "C", 10, edges)
		for _, path := range result.Paths {
			seen := map[graph.NodeID]bool{}
			for _, id := range path {
				assert.False(t, seen[id], "node %s repeated in %v", id, path)
				seen[id] = true
			}
		}
	})

	t.Run("disconnected endpoints yield nothing", func(t *testing.T) {
		edges := edgeSet([2]graph.NodeID{"A", "B"}, [2]graph.NodeID{"X", "Y"})
		result := FindPaths("A", "Y", 3, edges)
		assert.Empty(t, result.Paths)
		assert.False(t, result.Truncated)
	})

	t.Run("depth cap abandons long branches", func(t *testing.T) {
		// A chain of 15 hops: beyond MaxDepth, so unreachable.
		var pairs [][2]graph.NodeID
		prev := graph.NodeID("n00")
		for i := 1; i <= 15; i++ {
			next := graph.NodeID(fmt.Sprintf("n%02d", i))
			pairs = append(pairs, [2]graph.NodeID{prev, next})
			prev = next
		}
		edges := edgeSet(pairs...)

		result := FindPaths("n00", "n15", 1, edges)
		assert.Empty(t, result.Paths)
	})

	t.Run("iteration budget truncates dense graphs", func(t *testing.T) {
		// Complete graph on 12 nodes explodes combinatorially; asking for
		// more paths than the budget allows must truncate, not hang.
		var pairs [][2]graph.NodeID
		ids := make([]graph.NodeID, 12)
		for i := range ids {
			ids[i] = graph.NodeID(fmt.Sprintf("k%02d", i))
		}
		for i := range ids {
			for j := i + 1; j < len(ids); j++ {
				pairs = append(pairs, [2]graph.NodeID{ids[i], ids[j]})
			}
		}
		edges := edgeSet(pairs...)

		result := FindPaths(ids[0], ids[1], 1_000_000, edges)
		assert.True(t, result.Truncated)
		assert.NotEmpty(t, result.Paths, "truncation still returns found paths")
	})

	t.Run("nonpositive limit is empty", func(t *testing.T) {
		edges := edgeSet([2]graph.NodeID{"A", "B"})
		assert.Empty(t, FindPaths("A", "B", 0, edges).Paths)
	})
}
