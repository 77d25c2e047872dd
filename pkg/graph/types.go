// Package graph provides the mutable working graph for the elite-relationship
// visualization engine.
//
// The working graph is the in-memory collection of nodes and edges the
// temporal filter, path search, and eviction components operate on. It is
// read-only with respect to the backing dataset: the only mutations are
// appending lazily streamed records and evicting ephemeral nodes.
//
// Design Principles:
//   - Strongly typed identifiers (NodeID, EdgeID)
//   - Thread-safe graph container with adjacency indexes
//   - Interaction state (pins, spawn sources, fixed positions) kept in side
//     maps, never on the shared node entities
//
// Example Usage:
//
//	g := graph.New()
//	g.AddNode(&graph.Node{ID: "mao_zedong", Category: graph.Person,
//		Lifetime: []string{"1893-12-26 - 1976-09-09"}})
//	g.AddNode(&graph.Node{ID: "beijing", Category: graph.Location})
//	g.AddEdge(&graph.Edge{Source: "mao_zedong", Target: "beijing",
//		Type: "VISITED", Starts: []string{"1949"}})
//
//	g.PinNodes([]graph.NodeID{"beijing"}, graph.PinClick)
package graph

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidID     = errors.New("invalid id")
	ErrInvalidEdge   = errors.New("invalid edge: source or target node not found")
	ErrGraphClosed   = errors.New("graph closed")
)

// NodeID is a strongly-typed unique identifier for graph nodes.
type NodeID string

// EdgeID is a strongly-typed unique identifier for graph edges.
//
// Edge identity is the ordered (source, target, type) tuple, so an edge's
// ID is stable across filter passes and diffs. See MakeEdgeID.
type EdgeID string

// Category is the fixed node category set of the dataset.
//
// The category determines which temporal property a node carries:
//   - Person, Organization: "lifetime" ranges
//   - Event, Document: "period" ranges
//   - Location, Category: none (always active)
type Category string

const (
	Person       Category = "Person"
	Organization Category = "Organization"
	Event        Category = "Event"
	Document     Category = "Document"
	Location     Category = "Location"
	Tag          Category = "Category"
)

// Categories lists every known category in display order.
var Categories = []Category{Person, Organization, Event, Document, Location, Tag}

// AlwaysActive reports whether nodes of this category ignore the date
// window entirely. Locations and abstract categories have no temporal
// extent of their own.
func (c Category) AlwaysActive() bool {
	return c == Location || c == Tag
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// PinReason records why a node is pinned (forced visible).
//
// PinClick is stronger than PinPath: a user-selected node stays pinned even
// if a path highlight that also covered it is cleared. PinNodes never
// downgrades PinClick to PinPath regardless of call order.
type PinReason string

const (
	// PinClick marks a node the user selected or searched for directly.
	PinClick PinReason = "click"
	// PinPath marks a node that is part of a displayed path.
	PinPath PinReason = "path"
)

// Node represents a graph node (person, organization, event, ...).
//
// Temporal activity is encoded as zero or more date-range strings in
// Lifetime (person-like categories) or Period (event-like categories).
// A node with no range strings is active for every window.
//
// Degree is derived: the count of incident edges that survived the last
// temporal filter pass. It is recomputed on every pass and must not be
// trusted between passes.
//
// X and Y are written by the layout collaborator; the engine only reads
// them to seed spawn positions for newly created visual objects.
type Node struct {
	ID       NodeID   `json:"id"`
	Category Category `json:"type"`

	// Lifetime holds date-range strings for Person/Organization nodes,
	// Period for Event/Document nodes. Only one of the two is populated,
	// matching the source record's property name.
	Lifetime []string `json:"lifetime,omitempty"`
	Period   []string `json:"period,omitempty"`

	Properties map[string]any `json:"properties,omitempty"`

	// Derived, recomputed per filter pass.
	Degree int `json:"-"`

	// Layout-owned position.
	X float64 `json:"-"`
	Y float64 `json:"-"`
}

// TemporalRanges returns the node's date-range strings, whichever property
// holds them for its category.
func (n *Node) TemporalRanges() []string {
	if len(n.Lifetime) > 0 {
		return n.Lifetime
	}
	return n.Period
}

// Edge represents a typed relationship between two nodes.
//
// Edges are immutable once created and are removed only when an endpoint
// node is removed. Starts and Ends are positionally paired by index: the
// edge is active for a window if any (Starts[i], Ends[i]) interval
// overlaps it. A pair whose end is absent is open-ended.
type Edge struct {
	Source NodeID `json:"source"`
	Target NodeID `json:"target"`
	Type   string `json:"type"`

	Starts []string `json:"start_date,omitempty"`
	Ends   []string `json:"end_date,omitempty"`

	Properties map[string]any `json:"properties,omitempty"`
}

// nonDirectedTypes are relationship types with no meaningful direction.
var nonDirectedTypes = map[string]struct{}{
	"FRIEND_OF":    {},
	"RELATIVE_OF":  {},
	"ASSOCIATE_OF": {},
	"ALLY_OF":      {},
	"RIVAL_OF":     {},
}

// Directed reports whether the edge's type implies a direction.
func (e *Edge) Directed() bool {
	_, ok := nonDirectedTypes[e.Type]
	return !ok
}

// ID returns the edge's stable identity: the ordered (source, target, type)
// tuple. Two loads of the same dataset always produce the same edge IDs.
func (e *Edge) ID() EdgeID {
	return MakeEdgeID(e.Source, e.Target, e.Type)
}

// MakeEdgeID builds the stable edge identity used throughout the pipeline.
func MakeEdgeID(source, target NodeID, edgeType string) EdgeID {
	return EdgeID(fmt.Sprintf("%s|%s|%s", source, target, edgeType))
}

// Touches reports whether the edge is incident to the given node.
func (e *Edge) Touches(id NodeID) bool {
	return e.Source == id || e.Target == id
}

// Other returns the endpoint opposite to id. If id is not an endpoint the
// source is returned.
func (e *Edge) Other(id NodeID) NodeID {
	if e.Source == id {
		return e.Target
	}
	return e.Source
}
