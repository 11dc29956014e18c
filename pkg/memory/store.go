package memory

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
)

const (
	// contentPreviewLimit truncates entity content before it is copied into
	// vector metadata, keeping per-record overhead bounded.
	contentPreviewLimit = 500

	// fanOutThreshold is the neighbor count above which a node is flagged as
	// high fan-out by AnalyzeArchitecture.
	fanOutThreshold = 5

	entryTypeConversation = "conversation_turn"
	entryTypeCodePattern  = "code_pattern"
)

// Store is the facade unifying the vector index, the relationship graph and
// the conversation history. It exclusively owns all three; callers never
// touch the halves directly.
//
// The two halves are not written transactionally. A failed graph write after
// a successful vector write is compensated by deleting the fresh vector
// record, which restores consistency for that entity but is still not atomic:
// a concurrent reader may observe the vector record before the compensation
// lands.
type Store struct {
	vectors VectorIndex
	graph   Graph
	history *ConversationHistory

	cycleRootType string
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithVectorIndex swaps the semantic half for another implementation.
func WithVectorIndex(idx VectorIndex) StoreOption {
	return func(s *Store) { s.vectors = idx }
}

// WithGraph swaps the relationship half for another implementation.
func WithGraph(g Graph) StoreOption {
	return func(s *Store) { s.graph = g }
}

// WithDimension sets the vector dimension of the default index.
func WithDimension(dim int) StoreOption {
	return func(s *Store) { s.vectors = NewVectorIndex(dim) }
}

// WithHistoryCap bounds the per-conversation message ring.
func WithHistoryCap(cap int) StoreOption {
	return func(s *Store) { s.history = NewConversationHistory(cap) }
}

// WithCycleRootType sets the node type AnalyzeArchitecture seeds cycle
// detection from.
func WithCycleRootType(t string) StoreOption {
	return func(s *Store) { s.cycleRootType = t }
}

// NewStore builds a facade over fresh in-process halves unless options swap
// them out.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		vectors:       NewVectorIndex(DefaultDimension),
		graph:         NewGraph(),
		history:       NewConversationHistory(DefaultHistoryCap),
		cycleRootType: "module",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Vectors exposes the semantic half for read-mostly callers like search
// wrappers. Mutations should go through the facade.
func (s *Store) Vectors() VectorIndex { return s.vectors }

// Graph exposes the relationship half.
func (s *Store) Graph() Graph { return s.graph }

// StoreEntity registers an entity in both halves: its embedding (with a
// truncated content preview in metadata) in the vector index and a typed node
// in the graph. When the graph write fails after the vector write succeeded,
// the vector record is deleted again and the original failure is surfaced,
// joined with any compensation failure.
func (s *Store) StoreEntity(id, entityType, content string, embedding []float32, properties map[string]any) error {
	if id == "" {
		return errors.New("entity id is required")
	}

	metadata := map[string]any{
		"entity_type": entityType,
		"content":     truncate(content, contentPreviewLimit),
	}
	for k, v := range properties {
		metadata[k] = v
	}

	if err := s.vectors.Store(id, embedding, metadata); err != nil {
		return fmt.Errorf("store entity %q: %w", id, err)
	}

	if _, err := s.graph.AddNode(id, entityType, properties); err != nil {
		log.Warn("graph write failed after vector write, compensating", "id", id, "error", err)
		if !s.vectors.Delete(id) {
			err = errors.Join(err, fmt.Errorf("compensating delete of vector %q found nothing", id))
		}
		return fmt.Errorf("store entity %q: %w", id, err)
	}
	return nil
}

// StoreRelationship asserts a typed edge between two registered entities. It
// fails if either entity was never registered as a node.
func (s *Store) StoreRelationship(from, to, relationType string, properties map[string]any) error {
	if _, err := s.graph.AddEdge(from, to, relationType, properties); err != nil {
		return fmt.Errorf("store relationship %s-[%s]->%s: %w", from, relationType, to, err)
	}
	return nil
}

// FindSimilarParams scope a FindSimilar call.
type FindSimilarParams struct {
	EntityType string
	Limit      int
	Threshold  float64
}

// FindSimilar ranks entities by embedding similarity and enriches each hit
// with its graph neighborhood. Entities that exist only in the vector index
// come back with nil Relationships.
func (s *Store) FindSimilar(query []float32, params FindSimilarParams) ([]Entity, error) {
	filter := map[string]any{}
	if params.EntityType != "" {
		filter["entity_type"] = params.EntityType
	}

	results, err := s.vectors.Search(query, SearchParams{
		Limit:     params.Limit,
		Threshold: params.Threshold,
		Filter:    filter,
	})
	if err != nil {
		return nil, err
	}

	entities := make([]Entity, 0, len(results))
	for _, res := range results {
		entity := Entity{
			ID:         res.ID,
			Similarity: res.Similarity,
			Properties: res.Metadata,
		}
		if t, ok := res.Metadata["entity_type"].(string); ok {
			entity.Type = t
		}
		if c, ok := res.Metadata["content"].(string); ok {
			entity.Content = c
		}
		if _, ok := s.graph.GetNode(res.ID); ok {
			rel := &EntityRelations{
				Dependencies: []string{},
				Dependents:   []string{},
			}
			for _, n := range s.graph.Neighbors(res.ID, DirectionOut, "") {
				rel.Dependencies = append(rel.Dependencies, n.Node.ID)
			}
			for _, n := range s.graph.Neighbors(res.ID, DirectionIn, "") {
				rel.Dependents = append(rel.Dependents, n.Node.ID)
			}
			entity.Relationships = rel
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

// GetEntityContext merges the vector record, graph node, touching edges and
// neighbor set for one id. It returns nil only when the id is absent from
// both halves.
func (s *Store) GetEntityContext(id string) *EntityContext {
	ctx := &EntityContext{ID: id}
	found := false

	if rec, ok := s.vectors.Retrieve(id); ok {
		ctx.Record = &rec
		found = true
	}
	if node, ok := s.graph.GetNode(id); ok {
		ctx.Node = &node
		ctx.Incoming, ctx.Outgoing = s.graph.Edges(id)
		ctx.Neighbors = s.graph.Neighbors(id, DirectionBoth, "")
		found = true
	}

	if !found {
		return nil
	}
	return ctx
}

// DeleteEntity removes an entity from both halves, cascading its edges.
func (s *Store) DeleteEntity(id string) bool {
	deletedVec := s.vectors.Delete(id)
	deletedNode := s.graph.DeleteNode(id)
	return deletedVec || deletedNode
}

// StoreConversationTurn appends a turn to the conversation ring and, when an
// embedding is supplied, also indexes it for conversation-scoped search.
func (s *Store) StoreConversationTurn(conversationID, role, content string, embedding []float32) (ConversationEntry, error) {
	entry := s.history.Append(conversationID, role, content)

	if len(embedding) > 0 {
		err := s.vectors.Store(entry.MessageID, embedding, map[string]any{
			"entity_type":     entryTypeConversation,
			"conversation_id": conversationID,
			"content":         truncate(content, contentPreviewLimit),
			"role":            role,
		})
		if err != nil {
			return entry, fmt.Errorf("index conversation turn: %w", err)
		}
	}
	return entry, nil
}

// GetRelevantContext returns prior turns of the conversation ranked by
// similarity to the query embedding, alongside the tail of the raw history.
func (s *Store) GetRelevantContext(conversationID string, query []float32, limit int) (RelevantContext, error) {
	ctx := RelevantContext{
		Recent: s.history.Recent(conversationID, limit),
	}

	if len(query) == 0 {
		return ctx, nil
	}

	similar, err := s.vectors.Search(query, SearchParams{
		Limit: limit,
		Filter: map[string]any{
			"entity_type":     entryTypeConversation,
			"conversation_id": conversationID,
		},
	})
	if err != nil {
		return ctx, err
	}
	ctx.Similar = similar
	return ctx, nil
}

// SearchPatterns is the pattern-scoped search wrapper: code-pattern entities
// of one language ranked by similarity.
func (s *Store) SearchPatterns(query []float32, language string, limit int) ([]SearchResult, error) {
	filter := map[string]any{"entity_type": entryTypeCodePattern}
	if language != "" {
		filter["language"] = language
	}
	return s.vectors.Search(query, SearchParams{Limit: limit, Filter: filter})
}

// AnalyzeArchitecture builds a read-only structural report: graph stats,
// nodes with no neighbors, nodes with more than fanOutThreshold neighbors and
// call cycles seeded from the configured root type.
func (s *Store) AnalyzeArchitecture() ArchitectureReport {
	report := ArchitectureReport{
		Stats:         s.graph.Stats(),
		IsolatedNodes: []string{},
		HighFanOut:    []string{},
	}

	for _, node := range s.graph.Nodes() {
		degree := len(s.graph.Neighbors(node.ID, DirectionBoth, ""))
		switch {
		case degree == 0:
			report.IsolatedNodes = append(report.IsolatedNodes, node.ID)
		case degree > fanOutThreshold:
			report.HighFanOut = append(report.HighFanOut, node.ID)
		}
	}

	report.Cycles = s.graph.FindCycles(s.cycleRootType)
	return report
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
