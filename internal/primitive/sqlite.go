package primitive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	_ "modernc.org/sqlite" // pure-Go driver, registers "sqlite"
)

// SQLiteStore is the embeddable Primitive Library backend for single-binary
// deployments that don't want a Postgres dependency (§6). It stores
// embeddings as JSON-encoded float arrays and does cosine scoring in Go,
// same as MemoryStore — SQLite has no native vector index in this module.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) a SQLite database at path and
// ensures its schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("primitive: open sqlite: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS primitives (
			id TEXT PRIMARY KEY,
			domain TEXT NOT NULL,
			category TEXT NOT NULL,
			properties_json TEXT NOT NULL,
			svg_fragment TEXT NOT NULL,
			embedding_json TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_primitives_domain ON primitives(domain);
	`)
	return err
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) AddPrimitive(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = ContentID(e.Domain, e.Category, e.Properties)
	}
	propsJSON, err := json.Marshal(e.Properties)
	if err != nil {
		return fmt.Errorf("primitive: marshal properties: %w", err)
	}
	embJSON, err := json.Marshal(e.Embedding)
	if err != nil {
		return fmt.Errorf("primitive: marshal embedding: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO primitives (id, domain, category, properties_json, svg_fragment, embedding_json)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, e.ID, e.Domain, e.Category, string(propsJSON), e.SVGFragment, string(embJSON))
	if err != nil {
		return fmt.Errorf("primitive: insert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetByID(ctx context.Context, id string) (Entry, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, domain, category, properties_json, svg_fragment, embedding_json
		FROM primitives WHERE id = ?
	`, id)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("primitive: get: %w", err)
	}
	return e, true, nil
}

func (s *SQLiteStore) SemanticSearch(ctx context.Context, query string, k int, domain string) ([]Entry, error) {
	var rows *sql.Rows
	var err error
	if domain != "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, domain, category, properties_json, svg_fragment, embedding_json
			FROM primitives WHERE domain = ?
		`, domain)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, domain, category, properties_json, svg_fragment, embedding_json
			FROM primitives
		`)
	}
	if err != nil {
		return nil, fmt.Errorf("primitive: search query: %w", err)
	}
	defer rows.Close()

	queryVec := HashEmbed(query)
	type scored struct {
		entry Entry
		score float64
	}
	var candidates []scored
	for rows.Next() {
		e, err := scanEntryRows(rows)
		if err != nil {
			return nil, fmt.Errorf("primitive: scan: %w", err)
		}
		candidates = append(candidates, scored{e, CosineSimilarity(queryVec, e.Embedding)})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].entry.ID < candidates[j].entry.ID
	})
	if k > len(candidates) {
		k = len(candidates)
	}
	out := make([]Entry, k)
	for i := 0; i < k; i++ {
		out[i] = candidates[i].entry
	}
	return out, nil
}

func (s *SQLiteStore) Bootstrap(ctx context.Context, defaults []Entry) error {
	for _, e := range defaults {
		if err := s.AddPrimitive(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM primitives`).Scan(&n); err != nil {
		return 0, fmt.Errorf("primitive: count: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row *sql.Row) (Entry, error) {
	return scanGeneric(row)
}

func scanEntryRows(rows *sql.Rows) (Entry, error) {
	return scanGeneric(rows)
}

func scanGeneric(r rowScanner) (Entry, error) {
	var e Entry
	var propsJSON, embJSON string
	if err := r.Scan(&e.ID, &e.Domain, &e.Category, &propsJSON, &e.SVGFragment, &embJSON); err != nil {
		return Entry{}, err
	}
	if err := json.Unmarshal([]byte(propsJSON), &e.Properties); err != nil {
		return Entry{}, err
	}
	if err := json.Unmarshal([]byte(embJSON), &e.Embedding); err != nil {
		return Entry{}, err
	}
	return e, nil
}
