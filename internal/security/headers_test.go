package security

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadersMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var seen string
	router := gin.New()
	router.Use(HeadersMiddleware())
	router.GET("/", func(c *gin.Context) {
		seen = Nonce(c)
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))

	require.Len(t, seen, 32)
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "'nonce-"+seen+"'")
}

func TestHeadersMiddleware_NonceChangesPerRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var nonces []string
	router := gin.New()
	router.Use(HeadersMiddleware())
	router.GET("/", func(c *gin.Context) { nonces = append(nonces, Nonce(c)) })

	for i := 0; i < 2; i++ {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	require.Len(t, nonces, 2)
	assert.NotEqual(t, nonces[0], nonces[1])
}

func TestAPICORS(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name        string
		origins     []string
		origin      string
		wantAllow   string
		wantCreds   string
		wantBlocked bool
	}{
		{name: "any origin", origins: nil, origin: "https://acme.careerhub.io", wantAllow: "*"},
		{name: "listed origin", origins: []string{"https://acme.careerhub.io"}, origin: "https://acme.careerhub.io", wantAllow: "https://acme.careerhub.io", wantCreds: "true"},
		{name: "unlisted origin", origins: []string{"https://acme.careerhub.io"}, origin: "https://evil.example", wantBlocked: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(APICORS(tt.origins))
			router.GET("/api/pricing", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

			req := httptest.NewRequest(http.MethodGet, "/api/pricing", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if tt.wantBlocked {
				assert.Equal(t, http.StatusForbidden, w.Code)
				return
			}
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.wantAllow, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantCreds, w.Header().Get("Access-Control-Allow-Credentials"))
		})
	}
}
