package utils

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestLoggerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{"ok", http.StatusOK, "level=INFO"},
		{"client error", http.StatusNotFound, "level=WARN"},
		{"server error", http.StatusInternalServerError, "level=ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))

			router := gin.New()
			router.Use(func(c *gin.Context) { c.Set("request_id", "req-1") })
			router.Use(ContextLogger(logger), LoggerMiddleware(logger))
			router.GET("/x", func(c *gin.Context) {
				if FromContext(c.Request.Context(), nil) == nil {
					t.Error("request context has no logger")
				}
				c.Status(tt.status)
			})

			router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

			out := buf.String()
			if !strings.Contains(out, tt.wantLevel) {
				t.Errorf("log output %q missing %q", out, tt.wantLevel)
			}
			if !strings.Contains(out, "request_id=req-1") {
				t.Errorf("log output %q missing request id", out)
			}
		})
	}
}

func TestFromContext_Fallback(t *testing.T) {
	fallback := NewSlogLogger(slog.Default())
	if got := FromContext(context.Background(), fallback); got != fallback {
		t.Error("FromContext() should return the fallback logger")
	}
}
