package extract

import (
	"context"
	"math"
	"strings"

	"github.com/diagramforge/core/internal/pgraph"
)

// embeddingDim is deliberately small: a production swap-in (scientific-BERT)
// would produce a 768-dim vector; this adapter documents the contract with
// a cheap hashed bag-of-words projection instead.
const embeddingDim = 16

// Embedder never participates in scalar tie-breaks (it is absent from
// Priority). It emits one Other-typed node carrying an opaque embedding for
// every word at least three bytes long, keyed by the same slugified label
// other adapters use: where another adapter already named that node, the
// merge adds only the embedding and the embedder's provenance; where none
// did, the word becomes a new node.
type Embedder struct{}

func NewEmbedder() *Embedder { return &Embedder{} }

func (Embedder) ToolID() string { return "embedder" }

func (Embedder) Available(ctx context.Context) bool { return true }

func (Embedder) Extract(ctx context.Context, text string) (Result, error) {
	var items []Item
	for _, word := range strings.Fields(text) {
		lemma := strings.ToLower(strings.Trim(word, ".,;:!?()\"'"))
		if len(lemma) < 3 {
			continue
		}
		id := slugify(lemma)
		if id == "" {
			continue
		}
		items = append(items, Item{Kind: "node", Fields: map[string]any{
			"id": id, "label": lemma, "type": pgraph.NodeOther,
			"attributes": map[string]any{},
			"embedding":  hashEmbed(lemma),
		}})
	}
	return Result{ToolID: "embedder", Status: StatusOK, Items: items}, nil
}

// hashEmbed deterministically projects a string into a unit vector so
// identical lemmas always get identical embeddings across requests.
func hashEmbed(s string) []float32 {
	v := make([]float32, embeddingDim)
	h := uint32(2166136261)
	for i, r := range s {
		h = (h ^ uint32(r)) * 16777619
		v[i%embeddingDim] += float32(h%997) / 997
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return v
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}
