// Package security provides response hardening and CORS middleware.
package security

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mbd888/careerhub/internal/idgen"
)

// NonceKey is the gin context key holding the per-request CSP script nonce.
const NonceKey = "csp_nonce"

// HeadersMiddleware adds security headers to every response. Inline scripts
// (the layout's scroll reset and brand-push client) must carry the nonce.
func HeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		nonce := idgen.Hex(16)
		c.Set(NonceKey, nonce)

		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		c.Header("Content-Security-Policy", strings.Join([]string{
			"default-src 'self'",
			"script-src 'self' 'nonce-" + nonce + "'",
			"style-src 'self' 'unsafe-inline'",
			"img-src 'self' data:",
			"connect-src 'self' ws: wss:",
			"frame-ancestors 'none'",
		}, "; "))

		c.Next()
	}
}

// Nonce returns the request's CSP nonce, or "" outside HeadersMiddleware.
func Nonce(c *gin.Context) string {
	return c.GetString(NonceKey)
}

// APICORS returns CORS middleware for the /api group. An empty origin list
// allows any origin without credentials; an explicit list allows credentials.
func APICORS(origins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "PUT", "POST", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "X-Request-ID", "X-Admin-Secret"}
	cfg.ExposeHeaders = []string{"X-Request-ID"}
	cfg.MaxAge = 12 * time.Hour

	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}
