package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/diagramforge/core/internal/storage"
	"github.com/diagramforge/core/internal/trace"
)

// TraceHandler serves GET /trace/{request_id}, a debug-only endpoint (§6)
// returning the structured per-phase record written by internal/trace. It
// prefers the durable Postgres copy when one is configured and falls back
// to the {log_dir}/{request_id}_trace.json file otherwise, so a
// single-binary deployment without Postgres still has working traces.
type TraceHandler struct {
	store  *storage.TraceStore
	logDir string
}

func NewTraceHandler(store *storage.TraceStore, logDir string) *TraceHandler {
	return &TraceHandler{store: store, logDir: logDir}
}

func (h *TraceHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	requestID := c.Param("request_id")
	if requestID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing request_id"})
		return
	}

	if h.store != nil {
		rec, err := h.store.Get(ctx, requestID)
		if err == nil {
			c.JSON(http.StatusOK, rec)
			return
		}
		if !errors.Is(err, storage.ErrNotFound) {
			slog.ErrorContext(ctx, "trace store lookup failed", "request_id", requestID, "error", err)
		}
	}

	rec, err := trace.Load(h.logDir, requestID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "trace not found", "request_id": requestID})
		return
	}
	c.JSON(http.StatusOK, rec)
}
