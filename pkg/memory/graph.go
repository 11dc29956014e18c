package memory

import (
	"fmt"
	"sync"
	"time"
)

// callEdgeType restricts cycle detection to call relations; other edge types
// (contains, imports, produced) legitimately form cycles we do not care about.
const callEdgeType = "calls"

type graphNode struct {
	node     Node
	incoming map[string]struct{}
	outgoing map[string]struct{}
}

// InMemoryGraph is the process-lifetime Graph implementation. Nodes own their
// incoming/outgoing edge id sets; edges reference nodes by id only, so
// re-adding a node never disturbs its edges.
type InMemoryGraph struct {
	mu    sync.RWMutex
	nodes map[string]*graphNode
	edges map[string]Edge
}

func NewGraph() *InMemoryGraph {
	return &InMemoryGraph{
		nodes: make(map[string]*graphNode),
		edges: make(map[string]Edge),
	}
}

// AddNode creates or overwrites a node. An overwrite replaces type and
// properties but keeps the original creation time and the edge id sets.
func (g *InMemoryGraph) AddNode(id, nodeType string, properties map[string]any) (Node, error) {
	props := make(map[string]any, len(properties))
	for k, v := range properties {
		props[k] = v
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := g.nodes[id]; ok {
		existing.node.Type = nodeType
		existing.node.Properties = props
		existing.node.UpdatedAt = now
		return existing.node, nil
	}

	gn := &graphNode{
		node: Node{
			ID:         id,
			Type:       nodeType,
			Properties: props,
			CreatedAt:  now,
			UpdatedAt:  now,
		},
		incoming: make(map[string]struct{}),
		outgoing: make(map[string]struct{}),
	}
	g.nodes[id] = gn
	return gn.node, nil
}

// edgeID builds the deterministic composite identity of an edge, so asserting
// the same relation twice is idempotent.
func edgeID(from, edgeType, to string) string {
	return fmt.Sprintf("%s-[%s]->%s", from, edgeType, to)
}

// AddEdge connects two existing nodes. A colliding edge id silently overwrites
// the prior edge.
func (g *InMemoryGraph) AddEdge(from, to, edgeType string, properties map[string]any) (Edge, error) {
	props := make(map[string]any, len(properties))
	for k, v := range properties {
		props[k] = v
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	src, ok := g.nodes[from]
	if !ok {
		return Edge{}, fmt.Errorf("%w: %q", ErrEndpointNotFound, from)
	}
	dst, ok := g.nodes[to]
	if !ok {
		return Edge{}, fmt.Errorf("%w: %q", ErrEndpointNotFound, to)
	}

	edge := Edge{
		ID:         edgeID(from, edgeType, to),
		From:       from,
		To:         to,
		Type:       edgeType,
		Properties: props,
		CreatedAt:  time.Now().UTC(),
	}
	g.edges[edge.ID] = edge
	src.outgoing[edge.ID] = struct{}{}
	dst.incoming[edge.ID] = struct{}{}
	return edge, nil
}

func (g *InMemoryGraph) GetNode(id string) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	gn, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return gn.node, true
}

// Nodes returns a copy of every node in the graph.
func (g *InMemoryGraph) Nodes() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	nodes := make([]Node, 0, len(g.nodes))
	for _, gn := range g.nodes {
		nodes = append(nodes, gn.node)
	}
	return nodes
}

// Neighbors returns the adjacent nodes of id in the given direction,
// optionally restricted to one edge type.
func (g *InMemoryGraph) Neighbors(id string, direction Direction, typeFilter string) []Neighbor {
	g.mu.RLock()
	defer g.mu.RUnlock()

	gn, ok := g.nodes[id]
	if !ok {
		return nil
	}

	neighbors := make([]Neighbor, 0)
	collect := func(edgeIDs map[string]struct{}, dir Direction) {
		for eid := range edgeIDs {
			edge, ok := g.edges[eid]
			if !ok {
				continue
			}
			if typeFilter != "" && edge.Type != typeFilter {
				continue
			}
			otherID := edge.To
			if dir == DirectionIn {
				otherID = edge.From
			}
			other, ok := g.nodes[otherID]
			if !ok {
				continue
			}
			neighbors = append(neighbors, Neighbor{
				Node:      other.node,
				Edge:      edge,
				Direction: dir,
			})
		}
	}

	if direction == DirectionOut || direction == DirectionBoth {
		collect(gn.outgoing, DirectionOut)
	}
	if direction == DirectionIn || direction == DirectionBoth {
		collect(gn.incoming, DirectionIn)
	}
	return neighbors
}

// Edges returns the incoming and outgoing edges of a node.
func (g *InMemoryGraph) Edges(id string) (incoming, outgoing []Edge) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	gn, ok := g.nodes[id]
	if !ok {
		return nil, nil
	}
	for eid := range gn.incoming {
		if edge, ok := g.edges[eid]; ok {
			incoming = append(incoming, edge)
		}
	}
	for eid := range gn.outgoing {
		if edge, ok := g.edges[eid]; ok {
			outgoing = append(outgoing, edge)
		}
	}
	return incoming, outgoing
}

// ShortestPath finds a minimum-hop directed path from start to end via BFS,
// giving up on any branch deeper than maxDepth hops. With multiple equal-cost
// paths the choice among them is non-deterministic; only the hop count is
// guaranteed. Returns nil when no path exists within the bound.
func (g *InMemoryGraph) ShortestPath(start, end string, maxDepth int) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.nodes[start]; !ok {
		return nil
	}
	if _, ok := g.nodes[end]; !ok {
		return nil
	}
	if start == end {
		return []string{start}
	}

	type queued struct {
		id    string
		depth int
	}
	parent := map[string]string{start: ""}
	queue := []queued{{id: start, depth: 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		gn := g.nodes[cur.id]
		for eid := range gn.outgoing {
			edge, ok := g.edges[eid]
			if !ok {
				continue
			}
			next := edge.To
			if _, seen := parent[next]; seen {
				continue
			}
			parent[next] = cur.id
			if next == end {
				return rebuildPath(parent, start, end)
			}
			queue = append(queue, queued{id: next, depth: cur.depth + 1})
		}
	}
	return nil
}

func rebuildPath(parent map[string]string, start, end string) []string {
	path := []string{end}
	for cur := end; cur != start; {
		cur = parent[cur]
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// FindCycles detects cycles over "calls" edges, seeded only from nodes of
// rootType. Standard white/gray/black DFS: a node on the current stack (gray)
// closes a cycle; a fully explored node (black) is never re-expanded. Each
// cycle is reported as the id sequence from the repeated node back to itself.
func (g *InMemoryGraph) FindCycles(rootType string) [][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	cycles := make([][]string, 0)
	visited := make(map[string]struct{}) // black
	onStack := make(map[string]struct{}) // gray

	var walk func(id string, path []string)
	walk = func(id string, path []string) {
		onStack[id] = struct{}{}
		path = append(path, id)

		gn := g.nodes[id]
		for eid := range gn.outgoing {
			edge, ok := g.edges[eid]
			if !ok || edge.Type != callEdgeType {
				continue
			}
			next := edge.To
			if _, gray := onStack[next]; gray {
				cycles = append(cycles, closeCycle(path, next))
				continue
			}
			if _, black := visited[next]; black {
				continue
			}
			if _, ok := g.nodes[next]; ok {
				walk(next, path)
			}
		}

		delete(onStack, id)
		visited[id] = struct{}{}
	}

	for id, gn := range g.nodes {
		if gn.node.Type != rootType {
			continue
		}
		if _, black := visited[id]; black {
			continue
		}
		walk(id, nil)
	}
	return cycles
}

// closeCycle slices the DFS path from the repeated node onward and appends the
// repeat, e.g. A→B→C with a back-edge to A becomes [A B C A].
func closeCycle(path []string, repeated string) []string {
	for i, id := range path {
		if id == repeated {
			cycle := make([]string, 0, len(path)-i+1)
			cycle = append(cycle, path[i:]...)
			return append(cycle, repeated)
		}
	}
	return []string{repeated, repeated}
}

// DeleteNode cascades: every edge touching the node goes first, keeping the
// invariant that no edge ever references a missing endpoint.
func (g *InMemoryGraph) DeleteNode(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	gn, ok := g.nodes[id]
	if !ok {
		return false
	}

	for eid := range gn.incoming {
		if edge, ok := g.edges[eid]; ok {
			if src, ok := g.nodes[edge.From]; ok {
				delete(src.outgoing, eid)
			}
		}
		delete(g.edges, eid)
	}
	for eid := range gn.outgoing {
		if edge, ok := g.edges[eid]; ok {
			if dst, ok := g.nodes[edge.To]; ok {
				delete(dst.incoming, eid)
			}
		}
		delete(g.edges, eid)
	}

	delete(g.nodes, id)
	return true
}

func (g *InMemoryGraph) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	stats := Stats{
		NodeCount:     len(g.nodes),
		EdgeCount:     len(g.edges),
		NodeTypes:     make(map[string]int),
		RelationTypes: make(map[string]int),
	}
	for _, gn := range g.nodes {
		stats.NodeTypes[gn.node.Type]++
	}
	for _, edge := range g.edges {
		stats.RelationTypes[edge.Type]++
	}
	if stats.NodeCount > 0 {
		stats.AverageDegree = float64(2*stats.EdgeCount) / float64(stats.NodeCount)
	}
	return stats
}
