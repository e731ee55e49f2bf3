package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func corsPreflight(t *testing.T, origins []string, origin string) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	r.Use(CORS(origins))
	r.OPTIONS("/api/cart/items", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodOptions, "/api/cart/items", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCORSAllowsLocalDevOrigins(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	for _, origin := range []string{"http://localhost:5173", "http://127.0.0.1:3000"} {
		origin := origin
		t.Run(origin, func(t *testing.T) {
			t.Parallel()
			rec := corsPreflight(t, nil, origin)
			if rec.Code != http.StatusNoContent {
				t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusNoContent)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != origin {
				t.Fatalf("unexpected allow-origin header: got=%q want=%q", got, origin)
			}
		})
	}
}

func TestCORSConfiguredOriginsReplaceDefaults(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	rec := corsPreflight(t, []string{"https://estrella.mx"}, "https://estrella.mx")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://estrella.mx" {
		t.Fatalf("configured origin rejected: %q", got)
	}
	rec = corsPreflight(t, []string{"https://estrella.mx"}, "http://localhost:5173")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("default origin should not be allowed once configured, got %q", got)
	}
}
