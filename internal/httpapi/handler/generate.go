package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/diagramforge/core/internal/config"
	"github.com/diagramforge/core/internal/httpapi/dto"
	"github.com/diagramforge/core/internal/pipeline"
)

// GenerateHandler drives the single POST /generate endpoint, translating
// between the wire dto types and pipeline.Orchestrator's own request/result
// types. Grounded on the teacher's EventIngestHandler: bind, call the one
// service method, map its error sentinels to status codes, JSON out.
type GenerateHandler struct {
	orchestrator *pipeline.Orchestrator
}

func NewGenerateHandler(orchestrator *pipeline.Orchestrator) *GenerateHandler {
	return &GenerateHandler{orchestrator: orchestrator}
}

func (h *GenerateHandler) Generate(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid generate request", "error", err)
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: dto.ErrorDetail{Kind: string(pipeline.KindInputInvalid), Message: err.Error()},
		})
		return
	}

	overrides := pipeline.Overrides{}
	if req.Config != nil {
		overrides.CanvasWidth = req.Config.CanvasWidth
		overrides.CanvasHeight = req.Config.CanvasHeight
		if req.Config.ValidationMode != "" {
			overrides.ValidationMode = config.ValidationMode(req.Config.ValidationMode)
		}
	}

	result, pipeErr := h.orchestrator.Generate(ctx, req.ProblemText, overrides)
	if pipeErr != nil {
		slog.ErrorContext(ctx, "generate failed", "kind", pipeErr.Kind, "request_id", pipeErr.RequestID, "error", pipeErr.Error())
		c.JSON(statusForKind(pipeErr.Kind), dto.ErrorResponse{
			Error:     dto.ErrorDetail{Kind: string(pipeErr.Kind), Message: pipeErr.Message},
			RequestID: pipeErr.RequestID,
		})
		return
	}

	c.JSON(http.StatusOK, dto.GenerateResponse{
		SVG:      result.SVG,
		Metadata: metadataToDTO(result.Metadata),
	})
}

// statusForKind maps a pipeline.Kind onto the 4xx/5xx §7 calls for.
// INPUT_INVALID is the caller's fault (400); PLAN_EMPTY/VALIDATION_ERROR
// are well-formed input the pipeline still can't turn into a diagram
// (422); BUDGET_EXCEEDED is a timeout (504); everything else that reaches
// a fatal Error is an operator-facing failure (500).
func statusForKind(k pipeline.Kind) int {
	switch k {
	case pipeline.KindInputInvalid:
		return http.StatusBadRequest
	case pipeline.KindPlanEmpty, pipeline.KindValidationError:
		return http.StatusUnprocessableEntity
	case pipeline.KindBudgetExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func metadataToDTO(m pipeline.Metadata) dto.MetadataDTO {
	return dto.MetadataDTO{
		RequestID:            m.RequestID,
		Domain:               string(m.Domain),
		ComplexityScore:      m.ComplexityScore,
		Strategy:             string(m.Strategy),
		LayoutTierUsed:       string(m.LayoutTierUsed),
		GraphNodes:           m.GraphNodes,
		GraphEdges:           m.GraphEdges,
		RefinementIterations: m.RefinementIterations,
		Warnings:             m.Warnings,
		Partial:              m.Partial,
	}
}
