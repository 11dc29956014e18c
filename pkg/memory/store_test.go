package memory

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingGraph refuses node writes, standing in for a backend that can fail
// mid StoreEntity.
type failingGraph struct {
	*InMemoryGraph
	err error
}

func (f *failingGraph) AddNode(id, nodeType string, properties map[string]any) (Node, error) {
	return Node{}, f.err
}

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(WithDimension(3))
}

func TestStore_StoreEntityWritesBothHalves(t *testing.T) {
	s := testStore(t)

	err := s.StoreEntity("billing", "module", "legacy billing module", []float32{1, 0, 0}, map[string]any{"language": "cobol"})
	require.NoError(t, err)

	rec, ok := s.Vectors().Retrieve("billing")
	require.True(t, ok)
	assert.Equal(t, "module", rec.Metadata["entity_type"])
	assert.Equal(t, "legacy billing module", rec.Metadata["content"])

	node, ok := s.Graph().GetNode("billing")
	require.True(t, ok)
	assert.Equal(t, "module", node.Type)
	assert.Equal(t, "cobol", node.Properties["language"])
}

func TestStore_StoreEntityTruncatesContent(t *testing.T) {
	s := testStore(t)
	long := strings.Repeat("x", contentPreviewLimit+100)

	require.NoError(t, s.StoreEntity("big", "module", long, []float32{1, 0, 0}, nil))

	rec, ok := s.Vectors().Retrieve("big")
	require.True(t, ok)
	assert.Len(t, rec.Metadata["content"], contentPreviewLimit)
}

func TestStore_StoreEntityCompensatesFailedGraphWrite(t *testing.T) {
	boom := errors.New("graph backend down")
	s := NewStore(
		WithDimension(3),
		WithGraph(&failingGraph{InMemoryGraph: NewGraph(), err: boom}),
	)

	err := s.StoreEntity("billing", "module", "content", []float32{1, 0, 0}, nil)
	require.ErrorIs(t, err, boom)

	// the vector write was rolled back
	_, ok := s.Vectors().Retrieve("billing")
	assert.False(t, ok)
}

func TestStore_StoreEntityDimensionError(t *testing.T) {
	s := testStore(t)

	err := s.StoreEntity("billing", "module", "content", []float32{1, 0}, nil)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	// nothing landed in the graph either
	_, ok := s.Graph().GetNode("billing")
	assert.False(t, ok)
}

func TestStore_StoreRelationship(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.StoreEntity("a", "module", "", []float32{1, 0, 0}, nil))
	require.NoError(t, s.StoreEntity("b", "module", "", []float32{0, 1, 0}, nil))

	assert.NoError(t, s.StoreRelationship("a", "b", "calls", nil))
	assert.ErrorIs(t, s.StoreRelationship("a", "ghost", "calls", nil), ErrEndpointNotFound)
}

func TestStore_FindSimilarEnrichesWithRelationships(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.StoreEntity("a", "module", "module a", []float32{1, 0, 0}, nil))
	require.NoError(t, s.StoreEntity("b", "module", "module b", []float32{0.9, 0.1, 0}, nil))
	require.NoError(t, s.StoreRelationship("a", "b", "calls", nil))

	// vector-only entity: present in the index, never registered as a node
	require.NoError(t, s.Vectors().Store("orphan", []float32{0.95, 0, 0}, map[string]any{
		"entity_type": "module",
		"content":     "orphan",
	}))

	entities, err := s.FindSimilar([]float32{1, 0, 0}, FindSimilarParams{EntityType: "module", Limit: 10})
	require.NoError(t, err)
	require.Len(t, entities, 3)

	byID := map[string]Entity{}
	for _, e := range entities {
		byID[e.ID] = e
	}

	require.NotNil(t, byID["a"].Relationships)
	assert.Equal(t, []string{"b"}, byID["a"].Relationships.Dependencies)
	assert.Empty(t, byID["a"].Relationships.Dependents)

	require.NotNil(t, byID["b"].Relationships)
	assert.Equal(t, []string{"a"}, byID["b"].Relationships.Dependents)

	assert.Nil(t, byID["orphan"].Relationships)
}

func TestStore_FindSimilarFiltersEntityType(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.StoreEntity("m", "module", "", []float32{1, 0, 0}, nil))
	require.NoError(t, s.StoreEntity("f", "function", "", []float32{1, 0, 0}, nil))

	entities, err := s.FindSimilar([]float32{1, 0, 0}, FindSimilarParams{EntityType: "function", Limit: 10})
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "f", entities[0].ID)
}

func TestStore_GetEntityContext(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.StoreEntity("a", "module", "module a", []float32{1, 0, 0}, nil))
	require.NoError(t, s.StoreEntity("b", "module", "module b", []float32{0, 1, 0}, nil))
	require.NoError(t, s.StoreRelationship("a", "b", "calls", nil))

	ctx := s.GetEntityContext("a")
	require.NotNil(t, ctx)
	require.NotNil(t, ctx.Record)
	require.NotNil(t, ctx.Node)
	assert.Len(t, ctx.Outgoing, 1)
	assert.Empty(t, ctx.Incoming)
	assert.Len(t, ctx.Neighbors, 1)

	// graph-only id still resolves
	_, err := s.Graph().AddNode("graph-only", "module", nil)
	require.NoError(t, err)
	ctx = s.GetEntityContext("graph-only")
	require.NotNil(t, ctx)
	assert.Nil(t, ctx.Record)
	require.NotNil(t, ctx.Node)

	assert.Nil(t, s.GetEntityContext("missing"))
}

func TestStore_ConversationTurnIsSearchable(t *testing.T) {
	s := testStore(t)

	_, err := s.StoreConversationTurn("conv", "user", "how does billing work", []float32{1, 0, 0})
	require.NoError(t, err)
	_, err = s.StoreConversationTurn("other", "user", "unrelated", []float32{1, 0, 0})
	require.NoError(t, err)

	ctx, err := s.GetRelevantContext("conv", []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, ctx.Similar, 1)
	assert.Equal(t, "conv", ctx.Similar[0].Metadata["conversation_id"])
	require.Len(t, ctx.Recent, 1)
	assert.Equal(t, "how does billing work", ctx.Recent[0].Content)
}

func TestStore_SearchPatterns(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.Vectors().Store("p1", []float32{1, 0, 0}, map[string]any{
		"entity_type": "code_pattern",
		"language":    "cobol",
	}))
	require.NoError(t, s.Vectors().Store("p2", []float32{1, 0, 0}, map[string]any{
		"entity_type": "code_pattern",
		"language":    "fortran",
	}))

	results, err := s.SearchPatterns([]float32{1, 0, 0}, "cobol", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "p1", results[0].ID)
}

func TestStore_AnalyzeArchitecture(t *testing.T) {
	s := testStore(t)

	// ring of calls
	for i, id := range []string{"A", "B", "C"} {
		vec := []float32{0, 0, 0}
		vec[i] = 1
		require.NoError(t, s.StoreEntity(id, "module", "", vec, nil))
	}
	require.NoError(t, s.StoreRelationship("A", "B", "calls", nil))
	require.NoError(t, s.StoreRelationship("B", "C", "calls", nil))
	require.NoError(t, s.StoreRelationship("C", "A", "calls", nil))

	// isolated node
	require.NoError(t, s.StoreEntity("island", "module", "", []float32{1, 1, 0}, nil))

	// hub with more than fanOutThreshold neighbors
	require.NoError(t, s.StoreEntity("hub", "module", "", []float32{0, 1, 1}, nil))
	for i := 0; i < fanOutThreshold+1; i++ {
		id := string(rune('p' + i))
		require.NoError(t, s.StoreEntity(id, "module", "", []float32{1, 0, 1}, nil))
		require.NoError(t, s.StoreRelationship("hub", id, "contains", nil))
	}

	report := s.AnalyzeArchitecture()
	assert.Contains(t, report.IsolatedNodes, "island")
	assert.Contains(t, report.HighFanOut, "hub")
	require.Len(t, report.Cycles, 1)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, report.Cycles[0][:len(report.Cycles[0])-1])
	assert.Equal(t, 11, report.Stats.NodeCount)
}

func TestStore_DeleteEntity(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.StoreEntity("a", "module", "", []float32{1, 0, 0}, nil))
	assert.True(t, s.DeleteEntity("a"))
	assert.False(t, s.DeleteEntity("a"))
	assert.Nil(t, s.GetEntityContext("a"))
}
