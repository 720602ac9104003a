package primitive

import (
	"context"
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed defaults/defaults.yaml
var defaultsFS embed.FS

// yamlDefaultEntry matches defaults/defaults.yaml's shape.
type yamlDefaultEntry struct {
	Domain      string         `yaml:"domain"`
	Category    string         `yaml:"category"`
	Properties  map[string]any `yaml:"properties"`
	SVGFragment string         `yaml:"svg_fragment"`
}

// LoadDefaultEntries reads the baked-in seed primitives, computes their
// content-addressed ids and embeddings, and returns them ready for
// Store.Bootstrap. Called once at startup (§4.8).
func LoadDefaultEntries() ([]Entry, error) {
	data, err := defaultsFS.ReadFile("defaults/defaults.yaml")
	if err != nil {
		return nil, fmt.Errorf("primitive: read embedded defaults: %w", err)
	}
	var raw []yamlDefaultEntry
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("primitive: parse embedded defaults: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, r := range raw {
		e := Entry{
			Domain:      r.Domain,
			Category:    r.Category,
			Properties:  r.Properties,
			SVGFragment: r.SVGFragment,
			Embedding:   HashEmbed(r.Domain + " " + r.Category),
		}
		e.ID = ContentID(e.Domain, e.Category, e.Properties)
		entries = append(entries, e)
	}
	return entries, nil
}

// BootstrapDefaults loads the embedded fixture and seeds store with it.
// Safe to call on every startup: AddPrimitive is a no-op for ids already
// present (§6 immutability).
func BootstrapDefaults(ctx context.Context, store Store) error {
	entries, err := LoadDefaultEntries()
	if err != nil {
		return err
	}
	return store.Bootstrap(ctx, entries)
}
