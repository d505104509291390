package rest

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func runCORS(allowed []string, origin, method string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(allowCORS(allowed))
	engine.GET("/files", func(c *gin.Context) { c.Status(http.StatusOK) })
	engine.Handle(http.MethodOptions, "/files", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(method, "/files", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	w := runCORS([]string{"example.com"}, "https://example.com", http.MethodGet)
	require.Equal(t, "https://example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSRejectsUnconfiguredOrigin(t *testing.T) {
	w := runCORS([]string{"example.com"}, "https://evil.example", http.MethodGet)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSEmptyAllowListAllowsAnyOrigin(t *testing.T) {
	w := runCORS(nil, "https://anywhere.example", http.MethodGet)
	require.Equal(t, "https://anywhere.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflightForAllowedOrigin(t *testing.T) {
	w := runCORS([]string{"example.com"}, "https://example.com", http.MethodOptions)
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestCORSPreflightForRejectedOriginForbidden(t *testing.T) {
	w := runCORS([]string{"example.com"}, "https://evil.example", http.MethodOptions)
	require.Equal(t, http.StatusForbidden, w.Code)
}
