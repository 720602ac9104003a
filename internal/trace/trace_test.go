package trace_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/diagramforge/core/internal/trace"
)

func TestTracerRecordsPhasesAndPersists(t *testing.T) {
	dir := t.TempDir()
	tr, err := trace.New(dir, "req-123")
	require.NoError(t, err)

	done := tr.Phase("extract")
	done(trace.StatusSuccess, "text(120 chars)", "12 nodes, 4 edges", nil)

	done2 := tr.Phase("layout")
	done2(trace.StatusWarn, "8 constraints", "heuristic tier used", nil)

	rec, err := tr.Finish(nil)
	require.NoError(t, err)
	require.Equal(t, trace.StatusWarn, rec.Status)
	require.Len(t, rec.Entries, 2)

	_, err = os.Stat(filepath.Join(dir, "req-123.log"))
	require.NoError(t, err)

	loaded, err := trace.Load(dir, "req-123")
	require.NoError(t, err)
	require.Equal(t, rec.RequestID, loaded.RequestID)
	require.Len(t, loaded.Entries, 2)
}

func TestTracerAggregatesFailureOverWarn(t *testing.T) {
	dir := t.TempDir()
	tr, err := trace.New(dir, "req-456")
	require.NoError(t, err)

	tr.Phase("extract")(trace.StatusWarn, "", "", nil)
	tr.Phase("layout")(trace.StatusFailed, "", "", errors.New("boom"))

	rec, err := tr.Finish(nil)
	require.NoError(t, err)
	require.Equal(t, trace.StatusFailed, rec.Status)
}
