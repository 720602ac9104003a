package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/diagramforge/core/internal/config"
	"github.com/diagramforge/core/internal/extract"
	"github.com/diagramforge/core/internal/httpapi/dto"
	"github.com/diagramforge/core/internal/httpapi/handler"
	"github.com/diagramforge/core/internal/pipeline"
	"github.com/diagramforge/core/internal/primitive"
)

func newTestOrchestrator() *pipeline.Orchestrator {
	cfg := config.Config{
		Pipeline: config.PipelineConfig{
			CanvasWidth:             1200,
			CanvasHeight:            800,
			ValidationMode:          config.ValidationWarn,
			EnableRefinement:        true,
			RefinementMaxIterations: 2,
			RefinementTargetScore:   90,
			RequestTimeout:          5 * time.Second,
			MaxInputChars:           8000,
			EnablePrimitiveLibrary:  true,
		},
		Log: config.LogConfig{Dir: GinkgoT().TempDir()},
	}
	mgr := extract.NewManager(context.Background(), 2*time.Second,
		extract.NewRuleTriples(), extract.NewDependency(), extract.NewScientificNER(),
		extract.NewChemistry(), extract.NewMath(), extract.NewSemantic(),
	)
	lib := primitive.NewLibrary(primitive.NewMemoryStore())
	return pipeline.New(cfg, mgr, nil, lib, nil, nil)
}

var _ = Describe("GenerateHandler", func() {
	var router *gin.Engine

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		h := handler.NewGenerateHandler(newTestOrchestrator())
		router.POST("/generate", h.Generate)
	})

	It("returns 200 with an svg body for a well-formed problem", func() {
		body, _ := json.Marshal(dto.GenerateRequest{ProblemText: "a resistor is connected to a battery"})
		req := httptest.NewRequest(http.MethodPost, "/generate", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp dto.GenerateResponse
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.SVG).To(ContainSubstring("<svg"))
		Expect(resp.Metadata.RequestID).NotTo(BeEmpty())
	})

	It("returns 400 on malformed JSON", func() {
		req := httptest.NewRequest(http.MethodPost, "/generate", bytes.NewBufferString(`{`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("returns 400 INPUT_INVALID for empty problem_text", func() {
		body, _ := json.Marshal(dto.GenerateRequest{ProblemText: "   "})
		req := httptest.NewRequest(http.MethodPost, "/generate", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		var resp dto.ErrorResponse
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Error.Kind).To(Equal("INPUT_INVALID"))
		Expect(resp.RequestID).NotTo(BeEmpty())
	})

	It("returns 400 for an undersized canvas override", func() {
		body, _ := json.Marshal(dto.GenerateRequest{
			ProblemText: "two masses connected by a spring",
			Config:      &dto.RequestConfig{CanvasWidth: 10, CanvasHeight: 10},
		})
		req := httptest.NewRequest(http.MethodPost, "/generate", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})
})
