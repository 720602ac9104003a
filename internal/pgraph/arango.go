package pgraph

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/arangodb/go-driver/v2/connection"
)

// ArangoConfig configures the optional durable mirror described in
// SPEC_FULL.md's DOMAIN STACK: the in-memory Graph remains the critical
// path for every request. The orchestrator calls Mirror inline, so a mirror
// write adds its latency to the request; a failed write is logged and never
// fails the request.
type ArangoConfig struct {
	URL      string
	Username string
	Password string
	Database string
}

func (c ArangoConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("pgraph: arangodb URL is required")
	}
	if c.Database == "" {
		return fmt.Errorf("pgraph: arangodb database name is required")
	}
	return nil
}

const graphName = "diagramforge_property_graph"

// ArangoMirror persists snapshots of a Property Graph into ArangoDB for
// post-hoc inspection via AQL traversal queries, grounded on the same
// collection/graph-definition/traversal idioms used for code-graph
// indexing in the teacher repo, generalized to this module's node/edge
// schema.
type ArangoMirror struct {
	conn connection.Connection
	db   arangodb.Database
	cfg  ArangoConfig
}

func NewArangoMirror(ctx context.Context, cfg ArangoConfig) (*ArangoMirror, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	endpoint := connection.NewRoundRobinEndpoints([]string{cfg.URL})
	conn := connection.NewHttp2Connection(connection.DefaultHTTP2ConfigurationWrapper(endpoint, true))
	auth := connection.NewBasicAuth(cfg.Username, cfg.Password)
	if err := conn.SetAuthentication(auth); err != nil {
		return nil, fmt.Errorf("pgraph: arangodb auth: %w", err)
	}

	client := arangodb.NewClient(conn)

	exists, err := client.DatabaseExists(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("pgraph: check database: %w", err)
	}
	if !exists {
		if _, err := client.CreateDatabase(ctx, cfg.Database, nil); err != nil {
			return nil, fmt.Errorf("pgraph: create database: %w", err)
		}
	}

	db, err := client.GetDatabase(ctx, cfg.Database, nil)
	if err != nil {
		return nil, fmt.Errorf("pgraph: get database: %w", err)
	}

	m := &ArangoMirror{conn: conn, db: db, cfg: cfg}
	if err := m.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ArangoMirror) ensureSchema(ctx context.Context) error {
	for _, name := range []string{"pgraph_nodes"} {
		if err := m.ensureCollection(ctx, name, false); err != nil {
			return err
		}
	}
	if err := m.ensureCollection(ctx, "pgraph_edges", true); err != nil {
		return err
	}

	exists, err := m.db.GraphExists(ctx, graphName)
	if err != nil {
		return fmt.Errorf("pgraph: check graph: %w", err)
	}
	if !exists {
		def := &arangodb.GraphDefinition{
			Name: graphName,
			EdgeDefinitions: []arangodb.EdgeDefinition{
				{Collection: "pgraph_edges", From: []string{"pgraph_nodes"}, To: []string{"pgraph_nodes"}},
			},
		}
		if _, err := m.db.CreateGraph(ctx, graphName, def, nil); err != nil {
			return fmt.Errorf("pgraph: create graph: %w", err)
		}
	}
	return nil
}

func (m *ArangoMirror) ensureCollection(ctx context.Context, name string, isEdge bool) error {
	exists, err := m.db.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("pgraph: check collection %s: %w", name, err)
	}
	if exists {
		return nil
	}
	props := &arangodb.CreateCollectionPropertiesV2{}
	colType := arangodb.CollectionTypeDocument
	if isEdge {
		colType = arangodb.CollectionTypeEdge
	}
	props.Type = &colType
	if _, err := m.db.CreateCollectionV2(ctx, name, props); err != nil {
		return fmt.Errorf("pgraph: create collection %s: %w", name, err)
	}
	return nil
}

// Mirror writes a snapshot of g for a given request, keyed by requestID so
// repeated mirrors of the same request overwrite rather than accumulate.
// Failures are logged and swallowed: this is explicitly off the critical
// path (§4.3's lifecycle note: the graph is "not persisted by the core by
// default").
func (m *ArangoMirror) Mirror(ctx context.Context, requestID string, g *Graph) {
	start := time.Now()
	if err := m.mirror(ctx, requestID, g); err != nil {
		slog.WarnContext(ctx, "pgraph arango mirror failed", "request_id", requestID, "error", err)
		return
	}
	slog.DebugContext(ctx, "pgraph arango mirror complete",
		"request_id", requestID, "duration_ms", time.Since(start).Milliseconds())
}

func (m *ArangoMirror) mirror(ctx context.Context, requestID string, g *Graph) error {
	nodeCol, err := m.db.GetCollection(ctx, "pgraph_nodes", nil)
	if err != nil {
		return err
	}
	edgeCol, err := m.db.GetCollection(ctx, "pgraph_edges", nil)
	if err != nil {
		return err
	}

	for _, n := range g.AllNodes() {
		doc := map[string]any{
			"_key":       nodeKey(requestID, n.ID),
			"request_id": requestID,
			"node_id":    n.ID,
			"label":      n.Label,
			"type":       string(n.Type),
		}
		if _, err := nodeCol.CreateDocumentWithOptions(ctx, doc, &arangodb.CollectionDocumentCreateOptions{
			OverwriteMode: arangodb.CollectionDocumentCreateOverwriteModeReplace,
		}); err != nil {
			return fmt.Errorf("create node doc: %w", err)
		}
	}

	for _, e := range g.AllEdges() {
		doc := map[string]any{
			"_key":       edgeKeyHash(requestID, e.Source, e.Relation, e.Target),
			"_from":      "pgraph_nodes/" + nodeKey(requestID, e.Source),
			"_to":        "pgraph_nodes/" + nodeKey(requestID, e.Target),
			"request_id": requestID,
			"relation":   e.Relation,
			"kind":       string(e.RelationKind),
			"weight":     e.Weight,
		}
		if _, err := edgeCol.CreateDocumentWithOptions(ctx, doc, &arangodb.CollectionDocumentCreateOptions{
			OverwriteMode: arangodb.CollectionDocumentCreateOverwriteModeReplace,
		}); err != nil {
			return fmt.Errorf("create edge doc: %w", err)
		}
	}
	return nil
}

// Neighbors runs an AQL traversal over the mirrored graph for a given
// request, returning node ids reachable within maxDepth hops. This is the
// debug-only query path (§6's GET /trace/{request_id} complements it for
// the non-graph trace record).
func (m *ArangoMirror) Neighbors(ctx context.Context, requestID, nodeID string, maxDepth int) ([]string, error) {
	if maxDepth <= 0 {
		maxDepth = 1
	}
	query := `
		FOR v IN 1..@depth OUTBOUND @start GRAPH @graph
			FILTER v.request_id == @request_id
			RETURN v.node_id
	`
	cursor, err := m.db.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]any{
			"depth":      maxDepth,
			"start":      "pgraph_nodes/" + nodeKey(requestID, nodeID),
			"graph":      graphName,
			"request_id": requestID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("pgraph: traversal query: %w", err)
	}
	defer cursor.Close()

	var out []string
	for {
		var id string
		_, err := cursor.ReadDocument(ctx, &id)
		if arangodb.IsNoMoreDocuments(err) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("pgraph: read traversal doc: %w", err)
		}
		out = append(out, id)
	}
	return out, nil
}

func nodeKey(requestID, nodeID string) string {
	hash := md5.Sum([]byte(requestID + "\x00" + nodeID))
	return hex.EncodeToString(hash[:])[:16]
}

func edgeKeyHash(requestID, source, relation, target string) string {
	hash := md5.Sum([]byte(requestID + "\x00" + source + "\x00" + relation + "\x00" + target))
	return hex.EncodeToString(hash[:])[:16]
}
