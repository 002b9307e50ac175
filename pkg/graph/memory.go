package graph

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// MemoryNode is a node held by MemoryGraph
type MemoryNode struct {
	ID    int
	Label string
	Props map[string]any
}

// MemoryEdge is a relationship held by MemoryGraph
type MemoryEdge struct {
	From  *MemoryNode
	To    *MemoryNode
	Type  string
	Props map[string]any
}

// MemoryGraph is an in-process Sink that applies operations with the same
// create/merge/match rules as the Cypher rendered for them. It backs dry runs.
type MemoryGraph struct {
	mu     sync.RWMutex
	nodes  []*MemoryNode
	edges  []*MemoryEdge
	nextID int
}

// NewMemoryGraph creates an empty in-memory graph
func NewMemoryGraph() *MemoryGraph {
	return &MemoryGraph{}
}

// Run applies the statement's operation
func (g *MemoryGraph) Run(ctx context.Context, stmt Statement) (*Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	switch op := stmt.Op.(type) {
	case CreateNode:
		return g.createNode(op), nil
	case MergeNode:
		return g.mergeNode(op)
	case MergeEdge:
		return g.mergeEdge(op), nil
	default:
		return nil, fmt.Errorf("unsupported graph operation %T", stmt.Op)
	}
}

func (g *MemoryGraph) createNode(op CreateNode) *Summary {
	summary := &Summary{}

	if op.Link == nil {
		g.addNode(op.Label, op.Props)
		summary.Matched = 1
		summary.NodesCreated = 1
		summary.PropertiesSet = int64(len(op.Props))
		return summary
	}

	for _, from := range g.match(op.Link.From) {
		summary.Matched++

		if op.Link.Unique {
			if existing := g.linkedNode(from, op.Link.Type, op.Label); existing != nil {
				existing.Props = copyProps(op.Props)
				summary.PropertiesSet += int64(len(op.Props))
				continue
			}
		}

		node := g.addNode(op.Label, op.Props)
		g.edges = append(g.edges, &MemoryEdge{From: from, To: node, Type: op.Link.Type, Props: map[string]any{}})
		summary.NodesCreated++
		summary.RelationshipsCreated++
		summary.PropertiesSet += int64(len(op.Props))
	}

	return summary
}

func (g *MemoryGraph) mergeNode(op MergeNode) (*Summary, error) {
	key, ok := op.Props[op.Key]
	if !ok || key == nil {
		return nil, fmt.Errorf("merge on %s requires a value for %q", op.Label, op.Key)
	}

	summary := &Summary{Matched: 1}

	matches := g.match(NodeMatch{Label: op.Label, Props: map[string]any{op.Key: key}})
	if len(matches) == 0 {
		matches = []*MemoryNode{g.addNode(op.Label, map[string]any{op.Key: key})}
		summary.NodesCreated = 1
	}

	// the merged node takes exactly the new attributes, key included
	for _, node := range matches {
		node.Props = copyProps(op.Props)
		summary.PropertiesSet += int64(len(op.Props))
	}

	return summary, nil
}

func (g *MemoryGraph) mergeEdge(op MergeEdge) *Summary {
	summary := &Summary{}

	froms := g.match(op.From)
	tos := g.match(op.To)

	for _, from := range froms {
		for _, to := range tos {
			summary.Matched++

			edge := g.edge(from, to, op.Type)
			if edge == nil {
				edge = &MemoryEdge{From: from, To: to, Type: op.Type, Props: map[string]any{}}
				g.edges = append(g.edges, edge)
				summary.RelationshipsCreated++
			}
			for k, v := range op.Props {
				edge.Props[k] = v
			}
			summary.PropertiesSet += int64(len(op.Props))
		}
	}

	return summary
}

func (g *MemoryGraph) addNode(label string, props map[string]any) *MemoryNode {
	g.nextID++
	node := &MemoryNode{ID: g.nextID, Label: label, Props: copyProps(props)}
	g.nodes = append(g.nodes, node)
	return node
}

func (g *MemoryGraph) match(m NodeMatch) []*MemoryNode {
	var out []*MemoryNode
	for _, node := range g.nodes {
		if node.Label != m.Label {
			continue
		}
		if propsMatch(node.Props, m.Props) {
			out = append(out, node)
		}
	}
	return out
}

func (g *MemoryGraph) edge(from, to *MemoryNode, relType string) *MemoryEdge {
	for _, e := range g.edges {
		if e.From == from && e.To == to && e.Type == relType {
			return e
		}
	}
	return nil
}

func (g *MemoryGraph) linkedNode(from *MemoryNode, relType, label string) *MemoryNode {
	for _, e := range g.edges {
		if e.From == from && e.Type == relType && e.To.Label == label {
			return e.To
		}
	}
	return nil
}

// propsMatch follows Cypher equality: a null value never matches
func propsMatch(actual, want map[string]any) bool {
	for k, v := range want {
		got, ok := actual[k]
		if !ok || got == nil || v == nil {
			return false
		}
		if !reflect.DeepEqual(got, v) {
			return false
		}
	}
	return true
}

// Nodes returns copies of every node with the given label
func (g *MemoryGraph) Nodes(label string) []MemoryNode {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []MemoryNode
	for _, node := range g.nodes {
		if node.Label == label {
			out = append(out, MemoryNode{ID: node.ID, Label: node.Label, Props: copyProps(node.Props)})
		}
	}
	return out
}

// Edges returns copies of every edge with the given type
func (g *MemoryGraph) Edges(relType string) []MemoryEdge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []MemoryEdge
	for _, e := range g.edges {
		if e.Type == relType {
			out = append(out, MemoryEdge{From: e.From, To: e.To, Type: e.Type, Props: copyProps(e.Props)})
		}
	}
	return out
}

// CountNodes returns the number of nodes with the given label
func (g *MemoryGraph) CountNodes(label string) int {
	return len(g.Nodes(label))
}

// CountEdges returns the number of edges with the given type
func (g *MemoryGraph) CountEdges(relType string) int {
	return len(g.Edges(relType))
}

// Seed inserts a node directly, for nodes owned by other systems such as Type
func (g *MemoryGraph) Seed(label string, props map[string]any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.addNode(label, props)
}
