package llmadapter_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/diagramforge/core/common/llm"
	"github.com/diagramforge/core/internal/llmadapter"
)

type stubPlan struct {
	Strategy string `json:"strategy"`
}

func TestAdapterCallSucceedsOnMockBackend(t *testing.T) {
	adapter, err := llmadapter.New(llmadapter.Config{Backend: llmadapter.BackendMock, Model: "mock-v1"})
	require.NoError(t, err)

	var out stubPlan
	rec, err := adapter.Call(context.Background(), llmadapter.Request{
		Stage: "planning", PromptID: "diagram_plan_v1", SchemaName: "DiagramPlan",
		UserPrompt: "two resistors in series",
	}, &out)
	require.NoError(t, err)
	require.Equal(t, "planning", rec.Stage)
	require.Equal(t, 1, rec.Attempts)
}

func TestAdapterFallsBackToMockOnUnknownBackend(t *testing.T) {
	adapter, err := llmadapter.New(llmadapter.Config{Backend: "nonsense"})
	require.NoError(t, err)
	require.NotNil(t, adapter)
}

func TestAdapterReturnsErrLLMUnavailableAfterRetries(t *testing.T) {
	adapter, err := llmadapter.New(llmadapter.Config{Backend: llmadapter.BackendMock, MaxRetries: 2})
	require.NoError(t, err)

	// Swap in a failing mock via the Respond hook by reconstructing with a
	// custom client is not exposed; instead exercise the public surface
	// with a canceled context, which every backend must treat as terminal.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out stubPlan
	_, err = adapter.Call(ctx, llmadapter.Request{Stage: "audit"}, &out)
	require.Error(t, err)
	require.True(t, errors.Is(err, context.Canceled) || errors.Is(err, llmadapter.ErrLLMUnavailable))
}
