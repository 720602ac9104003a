package queue

import (
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamNamesAreEnvScoped(t *testing.T) {
	assert.Equal(t, "diagramforge:jobs:prod", StreamName("prod"))
	assert.Equal(t, "diagramforge:jobs:prod:dlq", DLQStreamName("prod"))
}

func TestParseMessageRoundTripsPrimitiveIngestTask(t *testing.T) {
	original := Task{
		TaskType:     TaskTypePrimitiveIngest,
		RequestID:    "req-1",
		TraceID:      "trace-1",
		Attempt:      2,
		PrimitiveKey: "resistor-v1",
		SourceDomain: "electronics",
		SourceURI:    "https://assets.internal/resistor.svg",
	}

	values := taskValues(original, original.Attempt)
	msg := redis.XMessage{ID: "1-0", Values: values}

	parsed, err := ParseMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, original.TaskType, parsed.TaskType)
	assert.Equal(t, original.PrimitiveKey, parsed.PrimitiveKey)
	assert.Equal(t, original.SourceDomain, parsed.SourceDomain)
	assert.Equal(t, 2, parsed.Attempt)
	assert.Equal(t, "1-0", parsed.messageID)
}

func TestParseMessageRoundTripsRefinementTask(t *testing.T) {
	original := Task{
		TaskType:   TaskTypeRefinement,
		RequestID:  "req-2",
		SceneRef:   "scenes/req-2.json",
		Domain:     "mechanics",
		TargetStep: 1,
	}

	values := taskValues(original, 1)
	msg := redis.XMessage{ID: "2-0", Values: values}

	parsed, err := ParseMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, original.SceneRef, parsed.SceneRef)
	assert.Equal(t, original.Domain, parsed.Domain)
	assert.Equal(t, 1, parsed.TargetStep)
}

func TestParseMessageRejectsMissingTaskType(t *testing.T) {
	_, err := ParseMessage(redis.XMessage{ID: "3-0", Values: map[string]any{}})
	require.Error(t, err)
}

func TestParseMessageRejectsPrimitiveIngestWithoutKey(t *testing.T) {
	values := map[string]any{"task_type": string(TaskTypePrimitiveIngest)}
	_, err := ParseMessage(redis.XMessage{ID: "4-0", Values: values})
	require.Error(t, err)
}

func TestParseMessageRejectsRefinementWithoutSceneRef(t *testing.T) {
	values := map[string]any{"task_type": string(TaskTypeRefinement)}
	_, err := ParseMessage(redis.XMessage{ID: "5-0", Values: values})
	require.Error(t, err)
}

func TestParseMessageRejectsUnknownTaskType(t *testing.T) {
	values := map[string]any{"task_type": "mystery"}
	_, err := ParseMessage(redis.XMessage{ID: "6-0", Values: values})
	require.Error(t, err)
}

func TestParseMessageDefaultsMissingAttemptToOne(t *testing.T) {
	values := map[string]any{
		"task_type":     string(TaskTypePrimitiveIngest),
		"primitive_key": "capacitor-v1",
	}
	parsed, err := ParseMessage(redis.XMessage{ID: "7-0", Values: values})
	require.NoError(t, err)
	assert.Equal(t, 1, parsed.Attempt)
}
