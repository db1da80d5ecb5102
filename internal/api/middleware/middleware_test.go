package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"rdFolio/internal/apiclient"
)

func newTestEngine(t *testing.T, seen *string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CorrelationIDMiddleware(), SlogLoggerMiddleware(nil))
	r.GET("/probe", func(c *gin.Context) {
		*seen = apiclient.CorrelationIDFromContext(c.Request.Context())
		if GetCorrelationID(c) != *seen {
			t.Errorf("gin key and request context disagree: %q vs %q", GetCorrelationID(c), *seen)
		}
		if LoggerFromContext(c) == nil {
			t.Error("expected request logger")
		}
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestCorrelationIDKeepsValidHeader(t *testing.T) {
	var seen string
	r := newTestEngine(t, &seen)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set(CorrelationIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if seen != "abc-123" || w.Header().Get(CorrelationIDHeader) != "abc-123" {
		t.Fatalf("expected correlation id to be kept, got %q / %q", seen, w.Header().Get(CorrelationIDHeader))
	}
}

func TestCorrelationIDReplacesInvalidHeader(t *testing.T) {
	for _, header := range []string{"", "has space", "a:b", strings.Repeat("x", 65)} {
		var seen string
		r := newTestEngine(t, &seen)

		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		if header != "" {
			req.Header.Set(CorrelationIDHeader, header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if seen == "" || seen == header {
			t.Fatalf("header %q should be replaced, got %q", header, seen)
		}
		if w.Header().Get(CorrelationIDHeader) != seen {
			t.Fatalf("response header %q does not match %q", w.Header().Get(CorrelationIDHeader), seen)
		}
	}
}
