package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Sink executes one write statement inside its own transaction
type Sink interface {
	Run(ctx context.Context, stmt Statement) (*Summary, error)
}

// Summary reports the effect of a single write statement
type Summary struct {
	// Matched is the number of rows the statement produced: created or matched
	// nodes for node writes and endpoint pairs for edge writes. Zero on a link
	// write means an endpoint was missing.
	Matched              int64
	NodesCreated         int64
	RelationshipsCreated int64
	PropertiesSet        int64
}

// NodeMatch identifies existing nodes by label and exact attribute values
type NodeMatch struct {
	Label string
	Props map[string]any
}

// Link attaches a newly created node to every node matched by From
type Link struct {
	From NodeMatch
	Type string
	// Unique reuses an existing linked node of the same label instead of
	// creating another one.
	Unique bool
}

// CreateNode always inserts a new node
type CreateNode struct {
	Label string
	Props map[string]any
	Link  *Link
}

// MergeNode matches or creates a node by its identity key and then replaces
// its attributes with Props. Attributes absent from Props are removed.
type MergeNode struct {
	Label string
	Key   string
	Props map[string]any
}

// MergeEdge matches both endpoints and then matches or creates the edge,
// overwriting its attributes
type MergeEdge struct {
	From  NodeMatch
	To    NodeMatch
	Type  string
	Props map[string]any
}

// Op is one of CreateNode, MergeNode or MergeEdge
type Op interface {
	opName() string
}

func (CreateNode) opName() string { return "create_node" }
func (MergeNode) opName() string  { return "merge_node" }
func (MergeEdge) opName() string  { return "merge_edge" }

// OpName returns a short name for the operation, used in logs and metrics
func OpName(op Op) string {
	if op == nil {
		return "unknown"
	}
	return op.opName()
}

// Statement is a parameterized Cypher write plus the structured operation it was rendered from
type Statement struct {
	Cypher string
	Params map[string]any
	Op     Op
}

// NewStatement renders the Cypher and parameters for an operation
func NewStatement(op Op) (Statement, error) {
	switch o := op.(type) {
	case CreateNode:
		return renderCreateNode(o), nil
	case MergeNode:
		return renderMergeNode(o)
	case MergeEdge:
		return renderMergeEdge(o), nil
	default:
		return Statement{}, fmt.Errorf("unsupported graph operation %T", op)
	}
}

func renderCreateNode(op CreateNode) Statement {
	params := map[string]any{"props": copyProps(op.Props)}
	label := sanitizeLabel(op.Label)

	if op.Link == nil {
		cypher := fmt.Sprintf(`
			CREATE (n:%s)
			SET n = $props
			RETURN count(n) AS matched
		`, label)
		return Statement{Cypher: cypher, Params: params, Op: op}
	}

	fromPattern := matchPattern("from", op.Link.From, params)
	relType := sanitizeLabel(op.Link.Type)

	var cypher string
	if op.Link.Unique {
		cypher = fmt.Sprintf(`
			MATCH %s
			MERGE (from)-[:%s]->(n:%s)
			SET n = $props
			RETURN count(n) AS matched
		`, fromPattern, relType, label)
	} else {
		cypher = fmt.Sprintf(`
			MATCH %s
			CREATE (n:%s)
			SET n = $props
			MERGE (from)-[:%s]->(n)
			RETURN count(n) AS matched
		`, fromPattern, label, relType)
	}

	return Statement{Cypher: cypher, Params: params, Op: op}
}

func renderMergeNode(op MergeNode) (Statement, error) {
	key, ok := op.Props[op.Key]
	if !ok || key == nil {
		return Statement{}, fmt.Errorf("merge on %s requires a value for %q", op.Label, op.Key)
	}

	cypher := fmt.Sprintf(`
		MERGE (n:%s {%s: $key})
		SET n = $props
		RETURN count(n) AS matched
	`, sanitizeLabel(op.Label), sanitizeKey(op.Key))

	return Statement{
		Cypher: cypher,
		Params: map[string]any{
			"key":   key,
			"props": copyProps(op.Props),
		},
		Op: op,
	}, nil
}

func renderMergeEdge(op MergeEdge) Statement {
	params := map[string]any{"props": copyProps(op.Props)}

	cypher := fmt.Sprintf(`
		MATCH %s
		MATCH %s
		MERGE (from)-[r:%s]->(to)
		SET r += $props
		RETURN count(r) AS matched
	`, matchPattern("from", op.From, params), matchPattern("to", op.To, params), sanitizeLabel(op.Type))

	return Statement{Cypher: cypher, Params: params, Op: op}
}

// matchPattern renders (alias:Label {k: $alias_k, ...}) and binds the values into params
func matchPattern(alias string, match NodeMatch, params map[string]any) string {
	keys := make([]string, 0, len(match.Props))
	for k := range match.Props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]string, 0, len(keys))
	for _, k := range keys {
		safe := sanitizeKey(k)
		param := alias + "_" + safe
		params[param] = match.Props[k]
		fields = append(fields, fmt.Sprintf("%s: $%s", safe, param))
	}

	if len(fields) == 0 {
		return fmt.Sprintf("(%s:%s)", alias, sanitizeLabel(match.Label))
	}
	return fmt.Sprintf("(%s:%s {%s})", alias, sanitizeLabel(match.Label), strings.Join(fields, ", "))
}

func copyProps(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}

// sanitizeLabel ensures the label is safe for Cypher
func sanitizeLabel(label string) string {
	result := sanitizeKey(label)
	if result == "" {
		return "Node"
	}
	return result
}

// sanitizeKey keeps only alphanumerics and underscores
func sanitizeKey(key string) string {
	var b strings.Builder
	for _, c := range key {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			b.WriteRune(c)
		}
	}
	return b.String()
}
