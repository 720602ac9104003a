package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/diagramforge/core/internal/config"
	"github.com/diagramforge/core/internal/httpapi/dto"
	"github.com/diagramforge/core/internal/llmadapter"
	"github.com/diagramforge/core/internal/primitive"
)

// HealthHandler reports which optional components are actually wired, not
// just which flags are set, so GET /health reflects reality (e.g. the
// configured LLM backend shows as available only when an adapter was
// constructed at startup, which cmd/server does only when an enable_llm_*
// flag is on).
type HealthHandler struct {
	cfg        config.Config
	version    string
	primitives *primitive.Library
	llm        *llmadapter.Adapter
}

func NewHealthHandler(cfg config.Config, version string, primitives *primitive.Library, llm *llmadapter.Adapter) *HealthHandler {
	return &HealthHandler{cfg: cfg, version: version, primitives: primitives, llm: llm}
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()

	size := 0
	if h.primitives != nil {
		countCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if n, err := h.primitives.Count(countCtx); err != nil {
			slog.WarnContext(ctx, "primitive library count failed", "error", err)
		} else {
			size = n
		}
	}

	c.JSON(http.StatusOK, dto.HealthResponse{
		Status:  "ok",
		Version: h.version,
		AvailableFeatures: dto.AvailableFeatures{
			NLPTools:    h.cfg.Pipeline.NLPTools,
			LLMBackends: map[string]bool{h.cfg.LLM.Backend: h.llm != nil},
			LayoutTiers: dto.LayoutTiers{
				Custom:    h.cfg.Pipeline.EnableLayoutCustomSolver,
				Symbolic:  h.cfg.Pipeline.EnableLayoutSymbolic,
				Heuristic: true, // the heuristic tier has no feature flag; it's the final, always-on fallback (§4.9)
			},
			Renderers: map[string]bool{
				"electronics": true,
				"chemistry":   true,
				"generic":     true,
			},
			PrimitiveLibrary: dto.PrimitiveLibraryInfo{
				Backend: h.cfg.Pipeline.PrimitiveLibraryBackend,
				Size:    size,
			},
		},
	})
}
