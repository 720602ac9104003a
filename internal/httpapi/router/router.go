// Package router wires gin routes to their handlers, mirroring the
// teacher's internal/http/router: one SetupRoutes entry point plus a
// small per-resource router function for anything with more than one
// route.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/diagramforge/core/internal/config"
	"github.com/diagramforge/core/internal/httpapi/handler"
	"github.com/diagramforge/core/internal/llmadapter"
	"github.com/diagramforge/core/internal/pipeline"
	"github.com/diagramforge/core/internal/primitive"
	"github.com/diagramforge/core/internal/storage"
)

// Dependencies collects everything SetupRoutes needs to construct its
// handlers, taking a single dependency bundle rather than a dozen
// individual parameters. The ontology mirror
// isn't listed here: it's an Orchestrator-internal dependency with no
// handler of its own.
type Dependencies struct {
	Cfg          config.Config
	Orchestrator *pipeline.Orchestrator
	Primitives   *primitive.Library
	LLM          *llmadapter.Adapter
	TraceStore   *storage.TraceStore
	Version      string
}

func SetupRoutes(engine *gin.Engine, deps Dependencies) {
	generateHandler := handler.NewGenerateHandler(deps.Orchestrator)
	engine.POST("/generate", generateHandler.Generate)

	healthHandler := handler.NewHealthHandler(deps.Cfg, deps.Version, deps.Primitives, deps.LLM)
	engine.GET("/health", healthHandler.Health)

	traceHandler := handler.NewTraceHandler(deps.TraceStore, deps.Cfg.Log.Dir)
	engine.GET("/trace/:request_id", traceHandler.Get)
}
