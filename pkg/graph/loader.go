// This file handles loading the graph source file into a working graph.
//
// Source Format:
//
// The dataset is a single JSON document with "nodes" and "relationships"
// arrays. Temporal properties are strings or parallel arrays of strings:
//
//	{
//	  "nodes": [
//	    {"id": "zhou_enlai", "type": "Person",
//	     "properties": {"lifetime": "1898-03-05 - 1976-01-08", "description": "..."}},
//	    {"id": "whampoa", "type": "Organization",
//	     "properties": {"lifetime": ["1924 - 1949"]}}
//	  ],
//	  "relationships": [
//	    {"source": "zhou_enlai", "target": "whampoa", "type": "MEMBER_OF",
//	     "properties": {"start_date": ["1924", "1950"], "end_date": ["1926"]}}
//	  ]
//	}
//
// start_date/end_date arrays are paired positionally; a start with no
// matching end is open-ended. Relationships referencing unknown node ids
// are skipped and reported, not fatal: the dataset is hand-curated and a
// dangling reference must not take the whole viewer down.
package graph

import (
	"encoding/json"
	"fmt"
)

// SourceNode is the on-disk node record.
type SourceNode struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
}

// SourceRelationship is the on-disk relationship record.
type SourceRelationship struct {
	Source     string         `json:"source"`
	Target     string         `json:"target"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
}

// SourceFile is the full dataset document.
type SourceFile struct {
	Nodes         []SourceNode         `json:"nodes"`
	Relationships []SourceRelationship `json:"relationships"`
}

// LoadReport summarizes a load: how many records were accepted and which
// were skipped (with reasons) for operator visibility.
type LoadReport struct {
	NodesLoaded int
	EdgesLoaded int
	Skipped     []string
}

// ParseSource decodes a dataset document.
func ParseSource(data []byte) (*SourceFile, error) {
	var f SourceFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing graph source: %w", err)
	}
	return &f, nil
}

// LoadSource appends a parsed dataset into the graph. Duplicate node ids
// are skipped (first record wins), as are relationships whose endpoints
// are missing. The returned report lists everything skipped.
func (g *Graph) LoadSource(f *SourceFile) (*LoadReport, error) {
	report := &LoadReport{}

	for _, sn := range f.Nodes {
		n, err := sn.ToNode()
		if err != nil {
			report.Skipped = append(report.Skipped, fmt.Sprintf("node %q: %v", sn.ID, err))
			continue
		}
		if err := g.AddNode(n); err != nil {
			if err == ErrAlreadyExists {
				report.Skipped = append(report.Skipped, fmt.Sprintf("node %q: duplicate", sn.ID))
				continue
			}
			return report, err
		}
		report.NodesLoaded++
	}

	for _, sr := range f.Relationships {
		e := sr.ToEdge()
		if err := g.AddEdge(e); err != nil {
			switch err {
			case ErrInvalidEdge:
				report.Skipped = append(report.Skipped,
					fmt.Sprintf("relationship %s-[%s]->%s: missing endpoint", sr.Source, sr.Type, sr.Target))
			case ErrAlreadyExists:
				report.Skipped = append(report.Skipped,
					fmt.Sprintf("relationship %s-[%s]->%s: duplicate", sr.Source, sr.Type, sr.Target))
			default:
				return report, err
			}
			continue
		}
		report.EdgesLoaded++
	}

	return report, nil
}

// ToNode converts a source record to a working node, pulling the temporal
// property that matches its category.
func (sn *SourceNode) ToNode() (*Node, error) {
	if sn.ID == "" {
		return nil, ErrInvalidID
	}
	cat := Category(sn.Type)
	if !cat.Valid() {
		return nil, fmt.Errorf("unknown category %q", sn.Type)
	}

	n := &Node{
		ID:         NodeID(sn.ID),
		Category:   cat,
		Properties: sn.Properties,
	}
	if sn.Properties != nil {
		n.Lifetime = asStrings(sn.Properties["lifetime"])
		n.Period = asStrings(sn.Properties["period"])
	}
	return n, nil
}

// ToEdge converts a source record to a working edge. start_date/end_date
// may each be a single string or an array; both forms normalize to the
// positionally-paired slices on Edge.
func (sr *SourceRelationship) ToEdge() *Edge {
	e := &Edge{
		Source:     NodeID(sr.Source),
		Target:     NodeID(sr.Target),
		Type:       sr.Type,
		Properties: sr.Properties,
	}
	if sr.Properties != nil {
		e.Starts = asStrings(sr.Properties["start_date"])
		e.Ends = asStrings(sr.Properties["end_date"])
	}
	return e
}

// asStrings normalizes a JSON property that may be a string, an array of
// strings, or absent. Non-string array members are dropped.
func asStrings(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return nil
	}
}
