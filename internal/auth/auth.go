// Package auth provides the demo visitor session.
//
// Session model:
//   - Every browser gets a random visitor ID cookie on first request.
//   - Signing in issues an HS256 JWT in an HttpOnly cookie. There is no user
//     store; the token only carries the email the visitor signed in with.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	VisitorCookie = "vid"
	SessionCookie = "ch_session"

	issuer = "careerhub"
)

var (
	ErrNoSession      = errors.New("no session")
	ErrInvalidSession = errors.New("invalid or expired session")
	ErrInvalidEmail   = errors.New("a valid email address is required")
)

// Claims is the session token payload. Subject is the email.
type Claims struct {
	Visitor string `json:"vid,omitempty"`
	jwt.RegisteredClaims
}

// Email returns the signed-in address.
func (c *Claims) Email() string { return c.Subject }

// Manager issues and checks session tokens.
type Manager struct {
	key    []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// NewManager creates a session manager. secure marks cookies Secure.
func NewManager(secret string, ttl time.Duration, secure bool) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{key: []byte(secret), ttl: ttl, secure: secure, now: time.Now}
}

// Issue signs a session token for email.
func (m *Manager) Issue(email, visitor string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !validEmail(email) {
		return "", ErrInvalidEmail
	}
	now := m.now()
	claims := Claims{
		Visitor: visitor,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
}

// Parse validates a session token.
func (m *Manager) Parse(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrNoSession
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return m.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	return claims, nil
}

// validEmail is a shape check only; the demo session never sends mail.
func validEmail(s string) bool {
	at := strings.IndexByte(s, '@')
	if at < 1 || at != strings.LastIndexByte(s, '@') || len(s) > 254 {
		return false
	}
	domain := s[at+1:]
	return strings.Contains(domain, ".") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".") &&
		!strings.ContainsAny(s, " \t\r\n<>")
}
