// Package primitive implements the Primitive Library: a content-addressed
// store of reusable scene fragments with a pluggable backend (memory,
// SQLite, Postgres, Typesense) behind one Store interface, grounded on the
// teacher's own `internal/store` package-per-backend pattern (a small
// interface plus one constructor per persistence technology).
package primitive

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
)

// namespaceUUID seeds the UUIDv5 content hash; it's a fixed, arbitrary value
// so the same (domain, category, properties) always yields the same id
// across process restarts and backends.
var namespaceUUID = uuid.MustParse("6f6d8f1a-6c7b-4e9a-9f0a-2e6a9c6b6b2a")

// Entry is one stored scene fragment: a rendered SVG snippet plus the
// metadata the query loop matches against.
type Entry struct {
	ID          string
	Domain      string
	Category    string // primitive_hint, e.g. "resistor", "lens"
	Properties  map[string]any
	SVGFragment string
	Embedding   []float32
}

// Store is the pluggable backend interface every Primitive Library
// implementation satisfies (§4.8).
type Store interface {
	AddPrimitive(ctx context.Context, e Entry) error
	GetByID(ctx context.Context, id string) (Entry, bool, error)
	SemanticSearch(ctx context.Context, query string, k int, domain string) ([]Entry, error)
	Bootstrap(ctx context.Context, defaults []Entry) error

	// Count reports how many entries are committed, for GET /health's
	// primitive_library.size field.
	Count(ctx context.Context) (int, error)
}

// ContentID derives the UUIDv5 content-address from domain, category, and a
// stable ordering of key properties, so identical fragments always collide
// on the same id instead of accumulating duplicates (§4.8).
func ContentID(domain, category string, properties map[string]any) string {
	keys := make([]string, 0, len(properties))
	for k := range properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha1.New()
	fmt.Fprintf(h, "%s|%s", domain, category)
	for _, k := range keys {
		fmt.Fprintf(h, "|%s=%v", k, properties[k])
	}
	seed := h.Sum(nil)
	return uuid.NewSHA1(namespaceUUID, seed).String()
}

// HashEmbed computes the same deterministic bag-of-features hash projection
// the Extractor Adapters' embedder uses, without the embedder's final
// unit-length normalization (cosine scores do not depend on that scaling),
// so semantic search over primitives and over property-graph nodes are
// comparable without a shared model (§4.8: "a
// small deterministic bag-of-features hash vector").
func HashEmbed(s string) []float32 {
	const dim = 16
	v := make([]float32, dim)
	hVal := uint32(2166136261)
	for i, r := range s {
		hVal = (hVal ^ uint32(r)) * 16777619
		v[i%dim] += float32(hVal%997) / 997
	}
	return v
}

// CosineSimilarity scores two embeddings in [-1, 1]; the memory, SQLite and
// Postgres stores score every candidate with it in Go, while Typesense ranks
// by its own vector search.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// marshalProps/unmarshalProps give the document-oriented backends (Typesense)
// a single place to encode Properties as a string field, matching how
// SQLite/Postgres store the same map as JSON text/JSONB.
func marshalProps(props map[string]any) (string, error) {
	b, err := json.Marshal(props)
	if err != nil {
		return "", fmt.Errorf("primitive: marshal properties: %w", err)
	}
	return string(b), nil
}

func unmarshalProps(raw string) (map[string]any, error) {
	var props map[string]any
	if err := json.Unmarshal([]byte(raw), &props); err != nil {
		return nil, fmt.Errorf("primitive: unmarshal properties: %w", err)
	}
	return props, nil
}
