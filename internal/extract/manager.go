package extract

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/diagramforge/core/internal/pgraph"
)

// Manager runs every registered, available Adapter concurrently against a
// request's text and folds their Results into a single property graph. A
// per-adapter timeout bounds each call independently — one slow adapter
// never blocks the others or the pipeline's overall budget.
type Manager struct {
	adapters       []Adapter
	perAdapterTime time.Duration
}

// NewManager filters adapters down to those that report Available at
// construction time, per §4.2: unavailability degrades an adapter
// permanently without failing the pipeline.
func NewManager(ctx context.Context, perAdapterTimeout time.Duration, candidates ...Adapter) *Manager {
	m := &Manager{perAdapterTime: perAdapterTimeout}
	for _, a := range candidates {
		if a.Available(ctx) {
			m.adapters = append(m.adapters, a)
		}
	}
	return m
}

// Adapters returns the adapters that were available at construction, in
// registration order — used by GET /health to report nlp_tools status.
func (m *Manager) Adapters() []Adapter {
	return append([]Adapter(nil), m.adapters...)
}

// Run fans out to every available adapter, merges each Result into a fresh
// property graph in tool-priority order, and returns the merged graph along
// with every Result (for trace recording) regardless of success/failure.
func (m *Manager) Run(ctx context.Context, text string) (*pgraph.Graph, []Result) {
	results := make([]Result, len(m.adapters))

	g, _ := errgroup.WithContext(ctx)
	var mu sync.Mutex
	for i, a := range m.adapters {
		i, a := i, a
		g.Go(func() error {
			res := m.runOne(ctx, a, text)
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // runOne never returns an error; errgroup only provides the WaitGroup here

	// Merge in fixed tool-priority order so ties are deterministic
	// regardless of which adapter happened to finish first.
	ordered := append([]Result(nil), results...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return priorityRank(ordered[i].ToolID) < priorityRank(ordered[j].ToolID)
	})

	graph := pgraph.New()
	for _, res := range ordered {
		if res.Status != StatusOK {
			continue
		}
		adapterGraph := toPropertyGraph(res)
		_ = graph.MergeGraph(res.ToolID, adapterGraph)
	}
	return graph, results
}

func (m *Manager) runOne(ctx context.Context, a Adapter, text string) Result {
	cctx, cancel := context.WithTimeout(ctx, m.perAdapterTime)
	defer cancel()

	type out struct {
		res Result
		err error
	}
	ch := make(chan out, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- out{res: Result{ToolID: a.ToolID(), Status: StatusFailed,
					Errors: []string{fmt.Sprintf("panic: %v", r)}}}
			}
		}()
		res, err := a.Extract(cctx, text)
		ch <- out{res: res, err: err}
	}()

	select {
	case <-cctx.Done():
		return Result{ToolID: a.ToolID(), Status: StatusTimeout,
			Errors: []string{cctx.Err().Error()}}
	case o := <-ch:
		if o.err != nil {
			return Result{ToolID: a.ToolID(), Status: StatusFailed, Errors: []string{o.err.Error()}}
		}
		return o.res
	}
}

func priorityRank(toolID string) int {
	for i, t := range Priority {
		if t == toolID {
			return i
		}
	}
	return len(Priority) // unknown/unranked tools (e.g. embedder) merge last
}

// toPropertyGraph converts one adapter Result's generic Items into a small
// property graph the manager can merge via pgraph.MergeGraph's tool-priority
// semantics. Each adapter's Extract (in its own file) already shaped Fields
// to carry "node" or "edge" kinds; this just walks them uniformly.
func toPropertyGraph(res Result) *pgraph.Graph {
	g := pgraph.New()
	nodeIDs := map[string]bool{}
	for _, it := range res.Items {
		switch it.Kind {
		case "node":
			id, _ := it.Fields["id"].(string)
			if id == "" || nodeIDs[id] {
				continue
			}
			nodeIDs[id] = true
			label, _ := it.Fields["label"].(string)
			ntype, _ := it.Fields["type"].(pgraph.NodeType)
			attrs, _ := it.Fields["attributes"].(map[string]any)
			embedding, _ := it.Fields["embedding"].([]float32)
			g.AddNode(res.ToolID, pgraph.Node{ID: id, Label: label, Type: ntype, Attributes: attrs, Embedding: embedding})
		case "edge":
			src, _ := it.Fields["source"].(string)
			tgt, _ := it.Fields["target"].(string)
			rel, _ := it.Fields["relation"].(string)
			kind, _ := it.Fields["kind"].(pgraph.RelationKind)
			weight, _ := it.Fields["weight"].(float64)
			if src == "" || tgt == "" {
				continue
			}
			_ = g.AddEdge(res.ToolID, pgraph.Edge{Source: src, Target: tgt, Relation: rel,
				RelationKind: kind, Weight: weight})
		}
	}
	return g
}
