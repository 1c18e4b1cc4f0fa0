package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"waste-ninja-go/internal/logging"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), RequestContext(), Logger(), Recovery(), CORS())
	r.GET("/ok", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(logging.RequestIDKey))
	})
	r.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})
	return r
}

func TestRequestIDGenerated(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))

	id := rec.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("request id %q is not a uuid: %v", id, err)
	}
	if rec.Body.String() != id {
		t.Errorf("context request id: got %q, want %q", rec.Body.String(), id)
	}
}

func TestRequestIDPropagated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "client-supplied")
	rec := httptest.NewRecorder()
	newRouter().ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got != "client-supplied" {
		t.Errorf("request id: got %q", got)
	}
}

func TestRecovery(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want 500", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/ok", nil))

	if rec.Code != http.StatusNoContent {
		t.Errorf("status: got %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing allow-origin header")
	}
}
