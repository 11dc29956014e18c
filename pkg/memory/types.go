// Package memory implements the hybrid knowledge store: a semantic vector
// index and a typed relationship graph unified behind a single facade, plus
// a bounded per-conversation message history. Both halves share one entity
// id namespace; callers must keep ids globally unique across entity types.
package memory

import (
	"errors"
	"time"
)

var (
	// ErrDimensionMismatch is returned when a vector's length does not match
	// the index dimension fixed at construction time.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrEndpointNotFound is returned when an edge references a node id that
	// was never added to the graph.
	ErrEndpointNotFound = errors.New("edge endpoint not found")
)

// EmbeddingRecord is a fixed-dimension vector keyed by entity id.
type EmbeddingRecord struct {
	ID        string         `json:"id"`
	Vector    []float32      `json:"vector"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// SearchParams control a similarity search. Filter entries are matched by
// exact equality against record metadata; every pair must match.
type SearchParams struct {
	Limit     int            `json:"limit"`
	Threshold float64        `json:"threshold"`
	Filter    map[string]any `json:"filter,omitempty"`
}

// SearchResult is one ranked hit from a similarity search.
type SearchResult struct {
	EmbeddingRecord
	Similarity float64 `json:"similarity"`
}

// Node is a typed graph node. Its edge index sets are owned by the graph and
// not exposed here; use Neighbors or Edges to walk them.
type Node struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Edge is a typed, directed, attributed relation between two nodes. Its id is
// a deterministic composite of (from, type, to), so re-asserting the same
// relation overwrites the prior edge.
type Edge struct {
	ID         string         `json:"id"`
	From       string         `json:"from"`
	To         string         `json:"to"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Direction selects which edges Neighbors follows.
type Direction string

const (
	DirectionIn   Direction = "in"
	DirectionOut  Direction = "out"
	DirectionBoth Direction = "both"
)

// Neighbor pairs an adjacent node with the edge that reaches it.
type Neighbor struct {
	Node      Node      `json:"node"`
	Edge      Edge      `json:"edge"`
	Direction Direction `json:"direction"`
}

// Stats summarizes graph shape. AverageDegree counts both edge endpoints, so
// it equals 2·edges/nodes.
type Stats struct {
	NodeCount     int            `json:"node_count"`
	EdgeCount     int            `json:"edge_count"`
	NodeTypes     map[string]int `json:"node_types"`
	RelationTypes map[string]int `json:"relation_types"`
	AverageDegree float64        `json:"average_degree"`
}

// ConversationEntry is one turn in a conversation's bounded history ring.
type ConversationEntry struct {
	MessageID string    `json:"message_id"`
	Content   string    `json:"content"`
	Role      string    `json:"role"`
	Timestamp time.Time `json:"timestamp"`
}

// EntityRelations lists the graph neighborhood of an entity by id.
type EntityRelations struct {
	Dependencies []string `json:"dependencies"`
	Dependents   []string `json:"dependents"`
}

// Entity is a ranked similarity hit enriched with graph context. Relationships
// is nil when the entity exists only in the vector index.
type Entity struct {
	ID            string           `json:"id"`
	Type          string           `json:"type"`
	Content       string           `json:"content"`
	Similarity    float64          `json:"similarity"`
	Properties    map[string]any   `json:"properties,omitempty"`
	Relationships *EntityRelations `json:"relationships"`
}

// EntityContext merges everything both stores know about one id. Record and
// Node are nil for the half that has no entry.
type EntityContext struct {
	ID        string           `json:"id"`
	Record    *EmbeddingRecord `json:"record,omitempty"`
	Node      *Node            `json:"node,omitempty"`
	Incoming  []Edge           `json:"incoming"`
	Outgoing  []Edge           `json:"outgoing"`
	Neighbors []Neighbor       `json:"neighbors"`
}

// ArchitectureReport is the read-only structural analysis produced by the
/// facade: graph stats, isolated nodes, high-fan-out nodes and call cycles.
type ArchitectureReport struct {
	Stats         Stats      `json:"stats"`
	IsolatedNodes []string   `json:"isolated_nodes"`
	HighFanOut    []string   `json:"high_fan_out"`
	Cycles        [][]string `json:"cycles"`
}

/// RelevantContext is what GetRelevantContext returns for a conversation:
// semantically similar prior turns plus the most recent raw history.
type RelevantContext struct {
	Similar []SearchResult      `json:"similar"`
	Recent  []ConversationEntry `json:"recent"`
}

// VectorIndex abstracts the semantic half of the store so a concurrent-safe
// or persistent implementation can replace the in-process one without
// touching callers.
type VectorIndex interface {
	Store(id string, vector []float32, metadata map[string]any) error
	Search(query []float32, params SearchParams) ([]SearchResult, error)
	Retrieve(id string) (EmbeddingRecord, bool)
	Delete(id string) bool
	Clear() int
	Dimension() int
}

// Graph abstracts the relationship half of the store.
type Graph interface {
	AddNode(id, nodeType string, properties map[string]any) (Node, error)
	AddEdge(from, to, edgeType string, properties map[string]any) (Edge, error)
	GetNode(id string) (Node, bool)
	Nodes() []Node
	Neighbors(id string, direction Direction, typeFilter string) []Neighbor
	Edges(id string) (incoming, outgoing []Edge)
	ShortestPath(start, end string, maxDepth int) []string
	FindCycles(rootType string) [][]string
	DeleteNode(id string) bool
	Stats() Stats
}
