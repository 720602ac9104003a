package primitive

import (
	"context"
	"fmt"
)

// Library wraps a Store with the two loops §4.8 describes: a pre-render
// Query and a post-render Ingest, so callers don't have to compute
// content ids or embeddings themselves.
type Library struct {
	store Store
}

func NewLibrary(store Store) *Library {
	return &Library{store: store}
}

func (l *Library) Bootstrap(ctx context.Context) error {
	return BootstrapDefaults(ctx, l.store)
}

// Count reports the number of committed entries, for GET /health.
func (l *Library) Count(ctx context.Context) (int, error) {
	return l.store.Count(ctx)
}

// Query is the pre-render loop: the renderer asks for the best-matching
// stored fragment for an object it's about to draw, keyed by domain,
// primitive category, and whatever salient properties distinguish variants
// (size, orientation). It returns ok=false when the store has no entry for
// domain or when the nearest entry's category differs from category; no
// similarity threshold is applied. On ok=false the caller falls back to
// procedural rendering.
func (l *Library) Query(ctx context.Context, domain, category string, salientProperties map[string]any) (Entry, bool, error) {
	query := domain + " " + category
	for k, v := range salientProperties {
		query += fmt.Sprintf(" %s=%v", k, v)
	}
	matches, err := l.store.SemanticSearch(ctx, query, 1, domain)
	if err != nil {
		return Entry{}, false, err
	}
	if len(matches) == 0 {
		return Entry{}, false, nil
	}
	best := matches[0]
	if best.Category != category {
		return Entry{}, false, nil
	}
	return best, true, nil
}

// Ingest is the post-render loop: store the fragment that was actually
// drawn for (domain, category, properties), so future Query calls for the
// same shape can reuse it. Ingest failures are non-fatal to the pipeline
// (§4.8) — callers should log and continue, never fail the request over a
// library write.
func (l *Library) Ingest(ctx context.Context, domain, category string, properties map[string]any, svgFragment string) error {
	e := Entry{
		Domain:      domain,
		Category:    category,
		Properties:  properties,
		SVGFragment: svgFragment,
		Embedding:   HashEmbed(domain + " " + category),
	}
	return l.store.AddPrimitive(ctx, e)
}
