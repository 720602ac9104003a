package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/diagramforge/core/internal/httpapi/handler"
	"github.com/diagramforge/core/internal/trace"
)

var _ = Describe("TraceHandler", func() {
	var (
		router *gin.Engine
		logDir string
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		logDir = GinkgoT().TempDir()
		h := handler.NewTraceHandler(nil, logDir)
		router.GET("/trace/:request_id", h.Get)
	})

	It("returns a previously persisted trace from the log dir", func() {
		tr, err := trace.New(logDir, "req-123")
		Expect(err).NotTo(HaveOccurred())
		finish := tr.Phase("extract")
		finish(trace.StatusSuccess, "in", "out", nil)
		_, err = tr.Finish(nil)
		Expect(err).NotTo(HaveOccurred())

		req := httptest.NewRequest(http.MethodGet, "/trace/req-123", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var rec trace.Record
		Expect(json.Unmarshal(w.Body.Bytes(), &rec)).To(Succeed())
		Expect(rec.RequestID).To(Equal("req-123"))
		Expect(rec.Entries).To(HaveLen(1))
	})

	It("returns 404 for an unknown request id", func() {
		req := httptest.NewRequest(http.MethodGet, "/trace/does-not-exist", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusNotFound))
	})
})
