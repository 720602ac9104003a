package pgraph

import (
	"encoding/json"
	"fmt"
)

// wireNode/wireEdge/wireGraph are the JSON wire shapes for Serialize/Parse.
// Embeddings and any other non-scalar attribute are carried as base64/slice
// JSON here (JSON, unlike RDF, has no problem with nested values) but are
// never emitted by ToRDF below — that is the serializer the source's bug
// notes apply to.
type wireNode struct {
	ID         string         `json:"id"`
	Label      string         `json:"label"`
	Type       NodeType       `json:"type"`
	Attributes map[string]any `json:"attributes"`
	Provenance []string       `json:"provenance"`
	Embedding  []float32      `json:"embedding,omitempty"`
}

type wireEdge struct {
	Source       string       `json:"source_id"`
	Target       string       `json:"target_id"`
	Relation     string       `json:"relation_label"`
	RelationKind RelationKind `json:"relation_kind"`
	Weight       float64      `json:"weight"`
	Provenance   []string     `json:"provenance"`
}

type wireGraph struct {
	Nodes []wireNode `json:"nodes"`
	Edges []wireEdge `json:"edges"`
}

// Serialize renders the graph as deterministic JSON (nodes/edges sorted by
// ID) so that Parse(Serialize(g)) round-trips up to ordering, per the
// testable property in SPEC_FULL.md §8.
func (g *Graph) Serialize() ([]byte, error) {
	wg := wireGraph{}
	for _, n := range g.AllNodes() {
		wg.Nodes = append(wg.Nodes, wireNode{
			ID:         n.ID,
			Label:      n.Label,
			Type:       n.Type,
			Attributes: n.Attributes,
			Provenance: sortedKeys(n.Provenance),
			Embedding:  n.Embedding,
		})
	}
	for _, e := range g.AllEdges() {
		wg.Edges = append(wg.Edges, wireEdge{
			Source:       e.Source,
			Target:       e.Target,
			Relation:     e.Relation,
			RelationKind: e.RelationKind,
			Weight:       e.Weight,
			Provenance:   sortedKeys(e.Provenance),
		})
	}
	return json.Marshal(wg)
}

// Parse reconstructs a Graph from Serialize's output. Each node is added
// under its highest-priority provenance tool so that tie-broken type
// assignment matches what produced the original graph as closely as the
// wire format allows; every provenance tool id is restored on nodes and
// edges.
func Parse(data []byte) (*Graph, error) {
	var wg wireGraph
	if err := json.Unmarshal(data, &wg); err != nil {
		return nil, fmt.Errorf("pgraph: parse: %w", err)
	}

	g := New()
	for _, n := range wg.Nodes {
		tool := "rule_triples"
		for i, t := range n.Provenance {
			if i == 0 || toolRank(t) > toolRank(tool) {
				tool = t
			}
		}
		g.AddNode(tool, Node{
			ID:         n.ID,
			Label:      n.Label,
			Type:       n.Type,
			Attributes: n.Attributes,
			Embedding:  n.Embedding,
		})
		for _, t := range n.Provenance {
			g.nodes[n.ID].Provenance[t] = true
		}
	}
	for _, e := range wg.Edges {
		tool := "rule_triples"
		if len(e.Provenance) > 0 {
			tool = e.Provenance[0]
		}
		if err := g.AddEdge(tool, Edge{
			Source:       e.Source,
			Target:       e.Target,
			Relation:     e.Relation,
			RelationKind: e.RelationKind,
			Weight:       e.Weight,
		}); err != nil {
			return nil, err
		}
		for _, t := range e.Provenance {
			g.edges[edgeKey(e.Source, e.Relation, e.Target)].Provenance[t] = true
		}
	}
	return g, nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	// deterministic order matters for round-trip equality tests
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// ToRDFTriples renders the graph as a slice of (subject, predicate, object)
// string triples containing ONLY primitive-typed attributes. Embeddings and
// any other slice/map-valued attribute are skipped entirely — the source's
// bug was serializing such values as RDF literals and producing invalid
// URIs; this implementation never attempts it.
func (g *Graph) ToRDFTriples() []RDFTriple {
	var triples []RDFTriple
	for _, n := range g.AllNodes() {
		triples = append(triples, RDFTriple{Subject: n.ID, Predicate: "rdf:type", Object: string(n.Type)})
		triples = append(triples, RDFTriple{Subject: n.ID, Predicate: "rdfs:label", Object: n.Label})
		for k, v := range n.Attributes {
			if !isRDFSafeScalar(v) {
				continue
			}
			triples = append(triples, RDFTriple{Subject: n.ID, Predicate: k, Object: fmt.Sprintf("%v", v)})
		}
	}
	for _, e := range g.AllEdges() {
		triples = append(triples, RDFTriple{Subject: e.Source, Predicate: e.Relation, Object: e.Target})
	}
	return triples
}

// RDFTriple is one subject/predicate/object statement.
type RDFTriple struct {
	Subject   string
	Predicate string
	Object    string
}

func isRDFSafeScalar(v any) bool {
	switch v.(type) {
	case string, int, int64, float64, float32, bool:
		return true
	default:
		return false
	}
}
