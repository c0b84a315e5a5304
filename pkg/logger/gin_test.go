package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newRouter(buf *bytes.Buffer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(slog.New(slog.NewJSONHandler(buf, nil))))
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/calls", func(c *gin.Context) {
		Enrich(c, "workspace_id", "ws-1")
		c.Status(http.StatusNotFound)
	})
	return r
}

func TestMiddleware_SummaryCarriesEnrichedAttrs(t *testing.T) {
	var buf bytes.Buffer
	r := newRouter(&buf)

	req := httptest.NewRequest(http.MethodGet, "/calls", nil)
	req.Header.Set(headerRequestID, "rid-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Header().Get(headerRequestID) != "rid-1" {
		t.Fatalf("request id must be echoed, got %q", w.Header().Get(headerRequestID))
	}
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected one json line, got %q: %v", buf.String(), err)
	}
	if line["level"] != "WARN" || line["request_id"] != "rid-1" || line["workspace_id"] != "ws-1" {
		t.Fatalf("unexpected summary: %v", line)
	}
}

func TestMiddleware_SkipsHealthyProbes(t *testing.T) {
	var buf bytes.Buffer
	r := newRouter(&buf)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Header().Get(headerRequestID) == "" {
		t.Fatalf("request id must be generated")
	}
	if strings.TrimSpace(buf.String()) != "" {
		t.Fatalf("successful health check must not be logged, got %q", buf.String())
	}
}
