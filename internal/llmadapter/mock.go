package llmadapter

import (
	"context"
	"encoding/json"

	"github.com/diagramforge/core/common/llm"
)

// MockClient is a deterministic llm.Client for tests and the BackendMock
// configuration. Without Respond it leaves result untouched; with Respond it
// marshals the scripted payload to JSON and unmarshals it into result, so
// callers exercise the real JSON round-trip without a network dependency.
// Token counts in the returned Response are synthetic.
type MockClient struct {
	model string
	// Respond, when set, is called instead of the zero-value round-trip so
	// tests can script specific structured responses or errors.
	Respond func(req llm.Request) (any, error)
}

func NewMockClient(model string) *MockClient {
	if model == "" {
		model = "mock-v1"
	}
	return &MockClient{model: model}
}

func (m *MockClient) Chat(ctx context.Context, req llm.Request, result any) (*llm.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Respond != nil {
		payload, err := m.Respond(req)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, result); err != nil {
			return nil, err
		}
	}
	return &llm.Response{PromptTokens: len(req.UserPrompt) / 4, CompletionTokens: 32}, nil
}

func (m *MockClient) Model() string { return m.model }
