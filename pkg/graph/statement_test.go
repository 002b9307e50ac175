package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func squash(cypher string) string {
	return strings.Join(strings.Fields(cypher), " ")
}

func TestNewStatement_CreateNode(t *testing.T) {
	stmt, err := NewStatement(CreateNode{
		Label: "ProductMaster",
		Props: map[string]any{"product_id": "p1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "CREATE (n:ProductMaster) SET n = $props RETURN count(n) AS matched", squash(stmt.Cypher))
	assert.Equal(t, map[string]any{"product_id": "p1"}, stmt.Params["props"])
}

func TestNewStatement_CreateLinkedNode(t *testing.T) {
	op := CreateNode{
		Label: "ProductTranslation",
		Props: map[string]any{"product_label": "Tee"},
		Link: &Link{
			From: NodeMatch{Label: "ProductMaster", Props: map[string]any{"product_id": "p1"}},
			Type: "HAS_TRANSLATION",
		},
	}

	t.Run("create then merge edge", func(t *testing.T) {
		stmt, err := NewStatement(op)
		require.NoError(t, err)

		assert.Equal(t,
			"MATCH (from:ProductMaster {product_id: $from_product_id}) CREATE (n:ProductTranslation) SET n = $props MERGE (from)-[:HAS_TRANSLATION]->(n) RETURN count(n) AS matched",
			squash(stmt.Cypher))
		assert.Equal(t, "p1", stmt.Params["from_product_id"])
	})

	t.Run("unique link merges the pattern", func(t *testing.T) {
		unique := op
		link := *op.Link
		link.Unique = true
		unique.Link = &link

		stmt, err := NewStatement(unique)
		require.NoError(t, err)

		assert.Equal(t,
			"MATCH (from:ProductMaster {product_id: $from_product_id}) MERGE (from)-[:HAS_TRANSLATION]->(n:ProductTranslation) SET n = $props RETURN count(n) AS matched",
			squash(stmt.Cypher))
	})
}

func TestNewStatement_MergeNode(t *testing.T) {
	stmt, err := NewStatement(MergeNode{
		Label: "SizeChart",
		Key:   "size_chart_unique_id",
		Props: map[string]any{"size_chart_unique_id": "SC1_S", "chest_width": 34.5},
	})
	require.NoError(t, err)

	assert.Equal(t, "MERGE (n:SizeChart {size_chart_unique_id: $key}) SET n = $props RETURN count(n) AS matched", squash(stmt.Cypher))
	assert.Equal(t, "SC1_S", stmt.Params["key"])
	assert.Equal(t, 34.5, stmt.Params["props"].(map[string]any)["chest_width"])
}

func TestNewStatement_MergeNodeRequiresKey(t *testing.T) {
	_, err := NewStatement(MergeNode{
		Label: "Size",
		Key:   "size_label",
		Props: map[string]any{"other": 1},
	})
	assert.Error(t, err)
}

func TestNewStatement_MergeEdge(t *testing.T) {
	stmt, err := NewStatement(MergeEdge{
		From:  NodeMatch{Label: "Type", Props: map[string]any{"type_label_long": "tops"}},
		To:    NodeMatch{Label: "SizeChart", Props: map[string]any{"type_label_short": "top"}},
		Type:  "HAS_SIZECHART",
		Props: map[string]any{"priority": 1.0},
	})
	require.NoError(t, err)

	assert.Equal(t,
		"MATCH (from:Type {type_label_long: $from_type_label_long}) MATCH (to:SizeChart {type_label_short: $to_type_label_short}) MERGE (from)-[r:HAS_SIZECHART]->(to) SET r += $props RETURN count(r) AS matched",
		squash(stmt.Cypher))
	assert.Equal(t, "tops", stmt.Params["from_type_label_long"])
	assert.Equal(t, "top", stmt.Params["to_type_label_short"])
	assert.Equal(t, map[string]any{"priority": 1.0}, stmt.Params["props"])
}

func TestNewStatement_SanitizesIdentifiers(t *testing.T) {
	stmt, err := NewStatement(MergeEdge{
		From: NodeMatch{Label: "Size) DETACH DELETE (x", Props: map[string]any{"size label": "S"}},
		To:   NodeMatch{Label: ""},
		Type: "HAS-SIZE",
	})
	require.NoError(t, err)

	assert.Equal(t,
		"MATCH (from:SizeDETACHDELETEx {sizelabel: $from_sizelabel}) MATCH (to:Node) MERGE (from)-[r:HASSIZE]->(to) SET r += $props RETURN count(r) AS matched",
		squash(stmt.Cypher))
}

func TestOpName(t *testing.T) {
	assert.Equal(t, "create_node", OpName(CreateNode{}))
	assert.Equal(t, "merge_node", OpName(MergeNode{}))
	assert.Equal(t, "merge_edge", OpName(MergeEdge{}))
	assert.Equal(t, "unknown", OpName(nil))
}
