package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/diagramforge/core/internal/pgraph"
)

// nerLexicon maps a surface lemma to the node type a real scientific-NER
// model (e.g. a sci-BERT token classifier) would assign. This adapter
// documents that contract using a small curated lexicon instead.
var nerLexicon = map[string]pgraph.NodeType{
	"resistor": pgraph.NodeObject, "capacitor": pgraph.NodeObject, "inductor": pgraph.NodeObject,
	"battery": pgraph.NodeObject, "block": pgraph.NodeObject, "spring": pgraph.NodeObject,
	"pulley": pgraph.NodeObject, "lens": pgraph.NodeObject, "mirror": pgraph.NodeObject,
	"molecule": pgraph.NodeObject, "atom": pgraph.NodeObject, "electron": pgraph.NodeAgent,
	"force": pgraph.NodeQuantity, "mass": pgraph.NodeQuantity, "velocity": pgraph.NodeQuantity,
	"voltage": pgraph.NodeQuantity, "current": pgraph.NodeQuantity, "resistance": pgraph.NodeQuantity,
	"charge": pgraph.NodeQuantity, "temperature": pgraph.NodeQuantity, "pressure": pgraph.NodeQuantity,
	"copper": pgraph.NodeMaterial, "water": pgraph.NodeMaterial, "ice": pgraph.NodeMaterial,
	"collision": pgraph.NodeEvent, "reaction": pgraph.NodeEvent,
}

var wordRe = regexp.MustCompile(`[A-Za-z][A-Za-z-]*`)

// ScientificNER ranks above Dependency: a curated scientific lexicon beats
// generic grammatical attachment for node typing.
type ScientificNER struct{}

func NewScientificNER() *ScientificNER { return &ScientificNER{} }

func (ScientificNER) ToolID() string { return "scientific_ner" }

func (ScientificNER) Available(ctx context.Context) bool { return len(nerLexicon) > 0 }

func (ScientificNER) Extract(ctx context.Context, text string) (Result, error) {
	var items []Item
	seen := map[string]bool{}
	for _, w := range wordRe.FindAllString(text, -1) {
		lemma := strings.ToLower(w)
		lemma = strings.TrimSuffix(lemma, "s")
		ntype, ok := nerLexicon[lemma]
		if !ok || seen[lemma] {
			continue
		}
		seen[lemma] = true
		items = append(items, Item{Kind: "node", Fields: map[string]any{
			"id": slugify(lemma), "label": lemma, "type": ntype,
			"attributes": map[string]any{"ner_category": string(ntype)},
		}})
	}
	return Result{ToolID: "scientific_ner", Status: StatusOK, Items: items,
		Metadata: map[string]any{"entities_found": len(items)}}, nil
}
