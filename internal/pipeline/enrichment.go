package pipeline

import (
	"context"

	"github.com/diagramforge/core/common/llm"
	"github.com/diagramforge/core/internal/llmadapter"
	"github.com/diagramforge/core/internal/pgraph"
)

// enrichmentNode/enrichmentEdge/enrichmentResponse are the schema-validated
// shape the enrichment LLM call returns (§4.1 phase 0.6, §4.5): extra nodes
// and edges an NLP-only pass is unlikely to surface (implicit objects,
// cross-sentence references), merged into the property graph the same way
// an extractor adapter would.
type enrichmentNode struct {
	ID         string            `json:"id"`
	Label      string            `json:"label"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

type enrichmentEdge struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Relation string `json:"relation"`
}

type enrichmentResponse struct {
	Nodes []enrichmentNode `json:"nodes"`
	Edges []enrichmentEdge `json:"edges"`
}

const enrichmentSystemPrompt = `You enrich a property graph extracted from a STEM problem statement. ` +
	`Given the original text, propose additional nodes (implicit objects, quantities, or ` +
	`relations the extractors likely missed) and edges connecting them to existing node ids. ` +
	`Never invent ids for objects not grounded in the text. Return an empty nodes/edges list ` +
	`if nothing should be added.`

// enrichGraph calls the configured LLM backend to propose additional graph
// nodes/edges and merges whatever validates back into g. A non-nil return
// means the caller should keep the graph exactly as the extractors left it
// (the heuristic fallback is simply "do nothing further").
func (o *Orchestrator) enrichGraph(ctx context.Context, g *pgraph.Graph, text string) error {
	var resp enrichmentResponse
	req := llmadapter.Request{
		Stage:        "enrichment",
		PromptID:     "graph_enrichment_v1",
		SystemPrompt: enrichmentSystemPrompt,
		UserPrompt:   text,
		SchemaName:   "GraphEnrichment",
		Schema:       llm.GenerateSchema[enrichmentResponse](),
		MaxTokens:    1024,
	}
	if _, err := o.llm.Call(ctx, req, &resp); err != nil {
		return err
	}

	for _, n := range resp.Nodes {
		if n.ID == "" {
			continue
		}
		attrs := make(map[string]any, len(n.Attributes))
		for k, v := range n.Attributes {
			attrs[k] = v
		}
		g.AddNode("llm_enrichment", pgraph.Node{
			ID:         n.ID,
			Label:      n.Label,
			Type:       pgraph.NodeType(n.Type),
			Attributes: attrs,
		})
	}
	for _, e := range resp.Edges {
		if e.Source == "" || e.Target == "" {
			continue
		}
		_ = g.AddEdge("llm_enrichment", pgraph.Edge{
			Source:       e.Source,
			Target:       e.Target,
			Relation:     e.Relation,
			RelationKind: pgraph.RelationSemantic,
			Weight:       1,
		}) // a dangling reference is silently dropped, not a pipeline failure
	}
	return nil
}
