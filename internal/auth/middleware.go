package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/careerhub/internal/idgen"
)

const (
	// ContextKeyVisitor holds the visitor ID string.
	ContextKeyVisitor = "authVisitor"
	// ContextKeyClaims holds *Claims when the visitor is signed in.
	ContextKeyClaims = "authClaims"

	visitorPrefix = "vis_"
	visitorMaxAge = 365 * 24 * 60 * 60
)

// Middleware assigns a visitor ID and reads the session cookie. An invalid
// session is ignored, leaving the visitor signed out.
func Middleware(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		vid, err := c.Cookie(VisitorCookie)
		if err != nil || !idgen.Valid(visitorPrefix, vid) {
			vid = idgen.WithPrefix(visitorPrefix)
			m.setCookie(c, VisitorCookie, vid, visitorMaxAge)
		}
		c.Set(ContextKeyVisitor, vid)

		if token, err := c.Cookie(SessionCookie); err == nil {
			if claims, err := m.Parse(token); err == nil {
				c.Set(ContextKeyClaims, claims)
			}
		}
		c.Next()
	}
}

// Visitor returns the visitor ID set by Middleware.
func Visitor(c *gin.Context) string {
	return c.GetString(ContextKeyVisitor)
}

// Session returns the visitor's session claims, if signed in.
func Session(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(ContextKeyClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}

// SignIn issues a session for email and sets the cookie.
func (m *Manager) SignIn(c *gin.Context, email string) (*Claims, error) {
	token, err := m.Issue(email, Visitor(c))
	if err != nil {
		return nil, err
	}
	claims, err := m.Parse(token)
	if err != nil {
		return nil, err
	}
	m.setCookie(c, SessionCookie, token, int(m.ttl.Seconds()))
	c.Set(ContextKeyClaims, claims)
	return claims, nil
}

// SignOut clears the session cookie.
func (m *Manager) SignOut(c *gin.Context) {
	m.setCookie(c, SessionCookie, "", -1)
	c.Set(ContextKeyClaims, nil)
}

func (m *Manager) setCookie(c *gin.Context, name, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
