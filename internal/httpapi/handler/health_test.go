package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/diagramforge/core/internal/config"
	"github.com/diagramforge/core/internal/httpapi/dto"
	"github.com/diagramforge/core/internal/httpapi/handler"
	"github.com/diagramforge/core/internal/primitive"
)

var _ = Describe("HealthHandler", func() {
	It("reports the configured layout tiers and primitive library size", func() {
		gin.SetMode(gin.TestMode)
		router := gin.New()

		lib := primitive.NewLibrary(primitive.NewMemoryStore())
		Expect(lib.Ingest(context.Background(), "electronics", "resistor", nil, "<rect/>")).To(Succeed())

		cfg := config.Config{
			LLM: config.LLMConfig{Backend: "mock"},
			Pipeline: config.PipelineConfig{
				NLPTools:                 map[string]bool{"rule_triples": true},
				EnableLayoutCustomSolver: true,
				EnableLayoutSymbolic:     true,
				PrimitiveLibraryBackend:  "memory",
			},
		}
		h := handler.NewHealthHandler(cfg, "test-version", lib, nil)
		router.GET("/health", h.Health)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp dto.HealthResponse
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Status).To(Equal("ok"))
		Expect(resp.Version).To(Equal("test-version"))
		Expect(resp.AvailableFeatures.LayoutTiers.Heuristic).To(BeTrue())
		Expect(resp.AvailableFeatures.LayoutTiers.Custom).To(BeTrue())
		Expect(resp.AvailableFeatures.PrimitiveLibrary.Backend).To(Equal("memory"))
		Expect(resp.AvailableFeatures.PrimitiveLibrary.Size).To(Equal(1))
		Expect(resp.AvailableFeatures.LLMBackends).To(HaveKeyWithValue("mock", false))
	})
})
