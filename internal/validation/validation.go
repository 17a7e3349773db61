// Package validation provides input validation helpers and middleware.
package validation

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// MaxRequestSize is the maximum request body size (1MB)
const MaxRequestSize = 1 << 20 // 1MB

var (
	// labelRegex validates a single DNS label used as a tenant subdomain.
	labelRegex = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?$`)
	// hexColorRegex validates #rgb and #rrggbb colours.
	hexColorRegex = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
)

// RequestSizeMiddleware limits request body size
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// IsValidLabel checks if s is a lowercase DNS label usable as a subdomain.
func IsValidLabel(s string) bool {
	return labelRegex.MatchString(s)
}

// IsHexColor checks if s is a #rgb or #rrggbb colour.
func IsHexColor(s string) bool {
	return hexColorRegex.MatchString(s)
}

// IsLocalPath reports whether p is an absolute path on this site: it must
// start with a single "/" and carry no scheme or host.
func IsLocalPath(p string) bool {
	if p == "" || p[0] != '/' {
		return false
	}
	if strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return false
	}
	return !strings.ContainsAny(p, "\r\n")
}

// SanitizeString removes dangerous characters and limits length
func SanitizeString(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return strings.ReplaceAll(s, "\x00", "")
}

// SanitizeLabel normalizes a subdomain label (trim + lowercase).
func SanitizeLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	return e[0].Field + ": " + e[0].Message
}

// Validate validates a request and returns errors
func Validate(validators ...func() *ValidationError) ValidationErrors {
	var errors ValidationErrors
	for _, v := range validators {
		if err := v(); err != nil {
			errors = append(errors, *err)
		}
	}
	return errors
}

// Required checks if a field is non-empty
func Required(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if strings.TrimSpace(value) == "" {
			return &ValidationError{Field: field, Message: "is required"}
		}
		return nil
	}
}

// OptionalColor checks that a non-empty field is a hex colour.
func OptionalColor(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if value == "" {
			return nil
		}
		if !IsHexColor(value) {
			return &ValidationError{Field: field, Message: "must be a hex colour (#rgb or #rrggbb)"}
		}
		return nil
	}
}

// MaxLength checks if a field exceeds max length
func MaxLength(field, value string, max int) func() *ValidationError {
	return func() *ValidationError {
		if len(value) > max {
			return &ValidationError{Field: field, Message: "exceeds maximum length"}
		}
		return nil
	}
}

// SubdomainParamMiddleware validates the :subdomain URL parameter on admin
// routes. Public partner routes do not use it: a bad segment there degrades
// to the platform tenant instead of failing the request.
func SubdomainParamMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sub := c.Param("subdomain")
		if sub != "" && !IsValidLabel(sub) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_subdomain",
				"message": "subdomain must be a lowercase DNS label (a-z, 0-9, hyphens)",
			})
			return
		}
		c.Next()
	}
}
