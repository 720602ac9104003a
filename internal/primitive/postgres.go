package primitive

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is the durable, multi-instance Primitive Library backend.
// It hand-writes every query against pgxpool.Pool (no sqlc codegen, per
// DESIGN.md) and does the cosine scan in Go rather than via a real
// pgvector operator, since pgvector's extension can't be assumed present —
// this documents where a deployment with pgvector installed would instead
// push the `ORDER BY embedding <=> $1` operator down to Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the primitives table if absent. Called once from
// main at startup, mirroring the teacher's explicit-migration-free
// "ensure on boot" pattern for auxiliary tables.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS primitives (
			id TEXT PRIMARY KEY,
			domain TEXT NOT NULL,
			category TEXT NOT NULL,
			properties_json JSONB NOT NULL,
			svg_fragment TEXT NOT NULL,
			embedding_json JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_primitives_domain ON primitives(domain);
	`)
	if err != nil {
		return fmt.Errorf("primitive: ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) AddPrimitive(ctx context.Context, e Entry) error {
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
	_, err = s.pool.Exec(ctx, `
		INSERT INTO primitives (id, domain, category, properties_json, svg_fragment, embedding_json)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, e.ID, e.Domain, e.Category, propsJSON, e.SVGFragment, embJSON)
	if err != nil {
		return fmt.Errorf("primitive: insert: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (Entry, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, domain, category, properties_json, svg_fragment, embedding_json
		FROM primitives WHERE id = $1
	`, id)
	e, err := scanPgEntry(row)
	if err == pgx.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("primitive: get: %w", err)
	}
	return e, true, nil
}

func (s *PostgresStore) SemanticSearch(ctx context.Context, query string, k int, domain string) ([]Entry, error) {
	var rows pgx.Rows
	var err error
	if domain != "" {
		rows, err = s.pool.Query(ctx, `
			SELECT id, domain, category, properties_json, svg_fragment, embedding_json
			FROM primitives WHERE domain = $1
		`, domain)
	} else {
		rows, err = s.pool.Query(ctx, `
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
		e, err := scanPgEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("primitive: scan: %w", err)
		}
		candidates = append(candidates, scored{e, CosineSimilarity(queryVec, e.Embedding)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("primitive: rows: %w", err)
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

func (s *PostgresStore) Bootstrap(ctx context.Context, defaults []Entry) error {
	for _, e := range defaults {
		if err := s.AddPrimitive(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM primitives`).Scan(&n); err != nil {
		return 0, fmt.Errorf("primitive: count: %w", err)
	}
	return n, nil
}

type pgRowScanner interface {
	Scan(dest ...any) error
}

func scanPgEntry(r pgRowScanner) (Entry, error) {
	var e Entry
	var propsJSON, embJSON []byte
	if err := r.Scan(&e.ID, &e.Domain, &e.Category, &propsJSON, &e.SVGFragment, &embJSON); err != nil {
		return Entry{}, err
	}
	if err := json.Unmarshal(propsJSON, &e.Properties); err != nil {
		return Entry{}, err
	}
	if err := json.Unmarshal(embJSON, &e.Embedding); err != nil {
		return Entry{}, err
	}
	return e, nil
}
