package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/api/v1/settings", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{}) })
	r.GET("/theme.css", func(c *gin.Context) { c.String(http.StatusOK, ":root {}") })

	tests := []struct {
		path      string
		wantCSP   string
		wantFrame string
	}{
		{path: "/api/v1/settings", wantCSP: cspAPI, wantFrame: "DENY"},
		{path: "/theme.css", wantCSP: cspAsset, wantFrame: ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", tt.path, nil)
			r.ServeHTTP(w, req)

			if got := w.Header().Get("Content-Security-Policy"); got != tt.wantCSP {
				t.Errorf("expected CSP %q, got %q", tt.wantCSP, got)
			}
			if got := w.Header().Get("X-Frame-Options"); got != tt.wantFrame {
				t.Errorf("expected X-Frame-Options %q, got %q", tt.wantFrame, got)
			}
			if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
				t.Errorf("expected nosniff, got %q", got)
			}
			if got := w.Header().Get("Strict-Transport-Security"); got != "" {
				t.Errorf("expected no HSTS without TLS, got %q", got)
			}
		})
	}
}
