// Package pathfind discovers bounded sets of shortest paths between two
// visible nodes.
//
// The search is breadth-first over the undirected adjacency of the current
// visible edge set - relationship direction is immaterial to reachability.
// Because the frontier is a FIFO of partial paths, results come out in
// non-decreasing length; equal-length paths are returned in lexicographic
// order of their node-id sequences (adjacency lists are sorted when
// built), so the output is deterministic for a given edge set.
//
// Two budgets guard against near-complete graphs:
//   - MaxDepth: a path stops being extended past 10 node hops
//   - MaxIterations: the whole search stops after 10,000 queue pops,
//     returning whatever complete paths were found (a truncation, not a
//     failure)
//
// Example:
//
//	result := pathfind.FindPaths("sun_yat_sen", "chiang_kai_shek", 5, snap.Edges)
//	for _, p := range result.Paths {
//		fmt.Println(p)
//	}
//	if result.Truncated {
//		fmt.Println("search budget exhausted; results are partial")
//	}
package pathfind

import (
	"sort"

	"github.com/anonym-g/Chinese-Elite-sub000/pkg/graph"
)

const (
	// MaxDepth is the hop limit beyond which a partial path is abandoned.
	MaxDepth = 10
	// MaxIterations caps total queue pops for one search.
	MaxIterations = 10000
)

// Result holds the discovered paths and whether the iteration budget cut
// the search short.
type Result struct {
	// Paths are node-id sequences from start to end, shortest first.
	Paths [][]graph.NodeID
	// Truncated is true when MaxIterations expired with the queue
	// non-empty; the paths found so far are still valid.
	Truncated bool
}

// FindPaths runs one bounded breadth-first multi-path search.
//
// It collects up to limit complete paths from startID to endID over the
// given visible edge set. A nonpositive limit returns an empty result.
// The search is computed once per call and is not restartable.
func FindPaths(startID, endID graph.NodeID, limit int, edges map[graph.EdgeID]*graph.Edge) *Result {
	result := &Result{}
	if limit <= 0 || startID == "" || endID == "" {
		return result
	}

	adjacency := buildAdjacency(edges)
	if len(adjacency[startID]) == 0 && startID != endID {
		return result
	}

	queue := [][]graph.NodeID{{startID}}
	iterations := 0

	for len(queue) > 0 {
		if iterations >= MaxIterations {
			result.Truncated = true
			return result
		}
		iterations++

		path := queue[0]
		queue = queue[1:]

		last := path[len(path)-1]
		if last == endID {
			result.Paths = append(result.Paths, path)
			if len(result.Paths) >= limit {
				return result
			}
			continue
		}

		// Hop count is len(path)-1; stop extending past the depth cap.
		if len(path)-1 >= MaxDepth {
			continue
		}

		for _, next := range adjacency[last] {
			if containsNode(path, next) {
				continue
			}
			extended := make([]graph.NodeID, len(path), len(path)+1)
			copy(extended, path)
			extended = append(extended, next)
			queue = append(queue, extended)
		}
	}

	return result
}

// buildAdjacency flattens the edge set into sorted, deduplicated
// undirected adjacency lists. Sorting makes equal-length path order
// deterministic (lexicographic by node-id sequence).
func buildAdjacency(edges map[graph.EdgeID]*graph.Edge) map[graph.NodeID][]graph.NodeID {
	sets := make(map[graph.NodeID]map[graph.NodeID]struct{})
	add := func(a, b graph.NodeID) {
		if sets[a] == nil {
			sets[a] = make(map[graph.NodeID]struct{})
		}
		sets[a][b] = struct{}{}
	}
	for _, e := range edges {
		if e.Source == e.Target {
			continue // self loops contribute nothing to path search
		}
		add(e.Source, e.Target)
		add(e.Target, e.Source)
	}

	adjacency := make(map[graph.NodeID][]graph.NodeID, len(sets))
	for id, set := range sets {
		ids := make([]graph.NodeID, 0, len(set))
		for other := range set {
			ids = append(ids, other)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		adjacency[id] = ids
	}
	return adjacency
}

func containsNode(path []graph.NodeID, id graph.NodeID) bool {
	for _, p := range path {
		if p == id {
			return true
		}
	}
	return false
}
