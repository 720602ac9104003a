// Package pgraph implements the Property Graph: a typed, attributed
// multigraph of concepts, entities, quantities, and relations built from
// extractor output and consumed by the Domain Classifier & Canonicalizer.
package pgraph

import (
	"fmt"
	"sort"
	"sync"
)

// NodeType is the dominant kind assigned to a node after tool-priority
// tie-breaking.
type NodeType string

const (
	NodeObject   NodeType = "Object"
	NodeConcept  NodeType = "Concept"
	NodeQuantity NodeType = "Quantity"
	NodeMaterial NodeType = "Material"
	NodeAgent    NodeType = "Agent"
	NodeEvent    NodeType = "Event"
	NodeOther    NodeType = "Other"
)

// RelationKind classifies an edge's origin/nature.
type RelationKind string

const (
	RelationGrammatical RelationKind = "grammatical"
	RelationScientific  RelationKind = "scientific"
	RelationSemantic    RelationKind = "semantic"
	RelationPartOf      RelationKind = "part_of"
	RelationHasProperty RelationKind = "has_property"
	RelationValueOf     RelationKind = "value_of"
	RelationActsOn      RelationKind = "acts_on"
	RelationOther       RelationKind = "other"
)

// ToolPriority is the fixed tie-break order from §4.2: lower index wins
// less, i.e. a higher-priority tool (higher index) overrides a lower one
// on scalar attribute/type conflicts.
var ToolPriority = []string{
	"rule_triples",
	"dependency",
	"scientific_ner",
	"chemistry",
	"math",
	"semantic",
}

func toolRank(toolID string) int {
	for i, t := range ToolPriority {
		if t == toolID {
			return i
		}
	}
	return -1 // unknown tools never win a tie-break
}

// Node is a Property Graph node. Attributes hold only primitive scalars —
// never nested maps/slices — so the graph can always be serialized as valid
// RDF without inventing a Turtle-unsafe literal (§4.3).
type Node struct {
	ID         string
	Label      string
	Type       NodeType
	Attributes map[string]any
	Provenance map[string]bool // set of tool_ids that produced this node

	// Embedding is an opaque byte vector, never emitted as an RDF literal.
	Embedding []float32

	// typeTool records which tool last won the type tie-break, so a later,
	// lower-priority merge cannot downgrade it.
	typeTool string
}

// Edge is a Property Graph edge; duplicate (Source, Relation, Target)
// tuples collapse into one Edge with max weight and unioned provenance.
type Edge struct {
	Source       string
	Target       string
	Relation     string
	RelationKind RelationKind
	Weight       float64
	Provenance   map[string]bool
}

func edgeKey(source, relation, target string) string {
	return source + "\x00" + relation + "\x00" + target
}

// Graph is a concurrency-safe Property Graph. All mutation methods take a
// tool_id to resolve merge conflicts deterministically per §4.2/§4.3.
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	edges map[string]*Edge
	// order preserves first-seen insertion order, used by MergeGraph and
	// Subgraph to copy nodes and edges in insertion order; Serialize and the
	// query methods sort by ID instead, so it does not affect
	// classification/canonicalization.
	nodeOrder []string
	edgeOrder []string
}

// New returns an empty Property Graph, as constructed at the start of
// phase 0.5.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		edges: make(map[string]*Edge),
	}
}

// AddNode inserts or merges a node produced by toolID. Scalar attribute
// conflicts are resolved by tool priority; list/set-valued attributes are
// unioned rather than overwritten, per §4.3's "merge *all* items" fix for
// the source's item-truncation bug.
func (g *Graph) AddNode(toolID string, n Node) {
	g.mu.Lock()
	defer g.mu.Unlock()

	existing, ok := g.nodes[n.ID]
	if !ok {
		cp := n
		cp.Attributes = cloneAttrs(n.Attributes)
		cp.Provenance = map[string]bool{toolID: true}
		cp.typeTool = toolID
		g.nodes[n.ID] = &cp
		g.nodeOrder = append(g.nodeOrder, n.ID)
		return
	}

	existing.Provenance[toolID] = true
	wins := toolRank(toolID) > toolRank(existing.typeTool)
	if wins {
		existing.Type = n.Type
		existing.Label = n.Label
		existing.typeTool = toolID
	}
	for k, v := range n.Attributes {
		if _, isList := v.([]string); wins && !isList {
			existing.Attributes[k] = v
			continue
		}
		mergeAttr(existing.Attributes, k, v)
	}
	if len(n.Embedding) > 0 && len(existing.Embedding) == 0 {
		existing.Embedding = n.Embedding
	}
}

func cloneAttrs(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// mergeAttr unions list-valued attributes and otherwise lets the caller's
// tool-priority decision (made in AddNode before calling this for non-type
// fields) stand; here we only add genuinely new keys or extend slices so
// that no signal the current winning tool didn't have is lost.
func mergeAttr(dst map[string]any, key string, val any) {
	existing, ok := dst[key]
	if !ok {
		dst[key] = val
		return
	}
	exSlice, exIsSlice := existing.([]string)
	newSlice, newIsSlice := val.([]string)
	if exIsSlice && newIsSlice {
		seen := make(map[string]bool, len(exSlice))
		merged := append([]string{}, exSlice...)
		for _, s := range exSlice {
			seen[s] = true
		}
		for _, s := range newSlice {
			if !seen[s] {
				merged = append(merged, s)
				seen[s] = true
			}
		}
		dst[key] = merged
	}
}

// AddEdge inserts or merges an edge. Duplicate (source, relation, target)
// triples collapse: weight takes the max, provenance unions.
func (g *Graph) AddEdge(toolID string, e Edge) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[e.Source]; !ok {
		return fmt.Errorf("pgraph: edge source %q does not exist", e.Source)
	}
	if _, ok := g.nodes[e.Target]; !ok {
		return fmt.Errorf("pgraph: edge target %q does not exist", e.Target)
	}

	key := edgeKey(e.Source, e.Relation, e.Target)
	existing, ok := g.edges[key]
	if !ok {
		cp := e
		cp.Provenance = map[string]bool{toolID: true}
		g.edges[key] = &cp
		g.edgeOrder = append(g.edgeOrder, key)
		return nil
	}

	existing.Provenance[toolID] = true
	if e.Weight > existing.Weight {
		existing.Weight = e.Weight
	}
	return nil
}

// MergeGraph folds other's nodes and edges into g, attributing each to
// toolID for tie-break purposes. Used when an adapter produces its own
// sub-graph rather than flat node/edge lists.
func (g *Graph) MergeGraph(toolID string, other *Graph) error {
	other.mu.RLock()
	nodes := make([]*Node, 0, len(other.nodes))
	for _, id := range other.nodeOrder {
		nodes = append(nodes, other.nodes[id])
	}
	edges := make([]*Edge, 0, len(other.edges))
	for _, k := range other.edgeOrder {
		edges = append(edges, other.edges[k])
	}
	other.mu.RUnlock()

	for _, n := range nodes {
		g.AddNode(toolID, *n)
	}
	for _, e := range edges {
		if err := g.AddEdge(toolID, *e); err != nil {
			return err
		}
	}
	return nil
}

// QueryByType returns all nodes of the given type, sorted by ID so that
// results are deterministic regardless of extractor completion order
// (testable property 6).
func (g *Graph) QueryByType(t NodeType) []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []Node
	for _, id := range g.sortedNodeIDs() {
		n := g.nodes[id]
		if n.Type == t {
			out = append(out, *n)
		}
	}
	return out
}

// Neighbors returns the ids reachable from id via one outbound hop,
// sorted deterministically.
func (g *Graph) Neighbors(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	set := make(map[string]bool)
	for _, e := range g.edges {
		if e.Source == id {
			set[e.Target] = true
		}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Subgraph returns a new Graph containing only nodes for which filter
// returns true, and edges whose endpoints both survive the filter.
func (g *Graph) Subgraph(filter func(Node) bool) *Graph {
	g.mu.RLock()
	defer g.mu.RUnlock()

	sub := New()
	keep := make(map[string]bool)
	for _, id := range g.sortedNodeIDs() {
		n := g.nodes[id]
		if filter(*n) {
			keep[id] = true
			cp := *n
			cp.Attributes = cloneAttrs(n.Attributes)
			sub.nodes[id] = &cp
			sub.nodeOrder = append(sub.nodeOrder, id)
		}
	}
	for _, k := range g.edgeOrder {
		e := g.edges[k]
		if keep[e.Source] && keep[e.Target] {
			cp := *e
			sub.edges[k] = &cp
			sub.edgeOrder = append(sub.edgeOrder, k)
		}
	}
	return sub
}

func (g *Graph) sortedNodeIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NodeCount and EdgeCount report graph size (the graph_nodes/graph_edges
// response metadata) without exposing the full node/edge maps.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// AllNodes returns every node, sorted by ID.
func (g *Graph) AllNodes() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Node, 0, len(g.nodes))
	for _, id := range g.sortedNodeIDs() {
		out = append(out, *g.nodes[id])
	}
	return out
}

// AllEdges returns every edge, sorted by (source, relation, target).
func (g *Graph) AllEdges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	keys := make([]string, 0, len(g.edges))
	for k := range g.edges {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Edge, 0, len(keys))
	for _, k := range keys {
		out = append(out, *g.edges[k])
	}
	return out
}
