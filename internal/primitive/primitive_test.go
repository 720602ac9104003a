package primitive_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/diagramforge/core/internal/primitive"
)

func TestContentIDIsDeterministicAcrossPropertyOrdering(t *testing.T) {
	a := primitive.ContentID("electronics", "resistor", map[string]any{"width": 40, "height": 16})
	b := primitive.ContentID("electronics", "resistor", map[string]any{"height": 16, "width": 40})
	require.Equal(t, a, b)

	c := primitive.ContentID("electronics", "capacitor", map[string]any{"width": 40, "height": 16})
	require.NotEqual(t, a, c)
}

func TestMemoryStoreIsImmutableOnceCommitted(t *testing.T) {
	ctx := context.Background()
	store := primitive.NewMemoryStore()

	e := primitive.Entry{Domain: "electronics", Category: "resistor", Properties: map[string]any{"width": 40}, SVGFragment: "<rect/>"}
	require.NoError(t, store.AddPrimitive(ctx, e))

	id := primitive.ContentID("electronics", "resistor", map[string]any{"width": 40})
	stored, ok, err := store.GetByID(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "<rect/>", stored.SVGFragment)

	overwrite := e
	overwrite.SVGFragment = "<rect fill=\"red\"/>"
	require.NoError(t, store.AddPrimitive(ctx, overwrite))

	stillOriginal, _, err := store.GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "<rect/>", stillOriginal.SVGFragment)
}

func TestMemoryStoreSemanticSearchFiltersByDomainAndRanks(t *testing.T) {
	ctx := context.Background()
	store := primitive.NewMemoryStore()
	require.NoError(t, store.Bootstrap(ctx, []primitive.Entry{
		{Domain: "electronics", Category: "resistor", Properties: map[string]any{"w": 1}, Embedding: primitive.HashEmbed("electronics resistor")},
		{Domain: "optics", Category: "lens", Properties: map[string]any{"w": 2}, Embedding: primitive.HashEmbed("optics lens")},
	}))

	results, err := store.SemanticSearch(ctx, "electronics resistor", 5, "electronics")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "resistor", results[0].Category)
}

func TestLoadDefaultEntriesParsesEmbeddedFixture(t *testing.T) {
	entries, err := primitive.LoadDefaultEntries()
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	for _, e := range entries {
		require.NotEmpty(t, e.ID)
		require.NotEmpty(t, e.Domain)
		require.NotEmpty(t, e.Category)
	}
}

func TestLibraryIngestThenQueryRoundTrips(t *testing.T) {
	ctx := context.Background()
	lib := primitive.NewLibrary(primitive.NewMemoryStore())

	require.NoError(t, lib.Ingest(ctx, "mechanics", "block", map[string]any{"width": 40, "height": 40}, "<rect width=\"40\" height=\"40\"/>"))

	entry, ok, err := lib.Query(ctx, "mechanics", "block", map[string]any{"width": 40, "height": 40})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "<rect width=\"40\" height=\"40\"/>", entry.SVGFragment)

	_, ok, err = lib.Query(ctx, "mechanics", "spring", nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLibraryBootstrapSeedsDefaults(t *testing.T) {
	ctx := context.Background()
	lib := primitive.NewLibrary(primitive.NewMemoryStore())
	require.NoError(t, lib.Bootstrap(ctx))

	entry, ok, err := lib.Query(ctx, "electronics", "resistor", nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "resistor", entry.Category)
}
