package extract_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/diagramforge/core/internal/extract"
)

func TestManagerMergesAcrossAdapters(t *testing.T) {
	ctx := context.Background()
	mgr := extract.NewManager(ctx, 2*time.Second,
		extract.NewRuleTriples(),
		extract.NewDependency(),
		extract.NewScientificNER(),
		extract.NewChemistry(),
		extract.NewMath(),
		extract.NewSemantic(),
	)
	require.NotEmpty(t, mgr.Adapters())

	g, results := mgr.Run(ctx, "The resistor is connected to the capacitor. F = m * a. H2O forms when hydrogen reacts with oxygen.")
	require.Len(t, results, len(mgr.Adapters()))
	require.Greater(t, g.NodeCount(), 0)
}

func TestManagerNeverFailsOnAdapterTimeout(t *testing.T) {
	ctx := context.Background()
	mgr := extract.NewManager(ctx, 1*time.Nanosecond, &slowAdapter{})
	g, results := mgr.Run(ctx, "anything")
	require.Len(t, results, 1)
	require.Equal(t, extract.StatusTimeout, results[0].Status)
	require.Equal(t, 0, g.NodeCount())
}

type slowAdapter struct{}

func (slowAdapter) ToolID() string                     { return "slow" }
func (slowAdapter) Available(ctx context.Context) bool { return true }
func (slowAdapter) Extract(ctx context.Context, text string) (extract.Result, error) {
	select {
	case <-time.After(2 * time.Second):
		return extract.Result{ToolID: "slow", Status: extract.StatusOK}, nil
	case <-ctx.Done():
		return extract.Result{}, ctx.Err()
	}
}
