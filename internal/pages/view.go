package pages

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"

	"github.com/mbd888/careerhub/internal/auth"
	"github.com/mbd888/careerhub/internal/brand"
	"github.com/mbd888/careerhub/internal/router"
	"github.com/mbd888/careerhub/internal/security"
	"github.com/mbd888/careerhub/internal/tenant"
	"github.com/mbd888/careerhub/internal/tenantctx"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// templateNames are the content templates; each is parsed with the layout.
var templateNames = []string{
	"home", "pricing", "partners", "about", "contact", "legal",
	"tool", "auth", "dashboard", "notfound",
}

func parseTemplates() (map[string]*template.Template, error) {
	layout, err := template.ParseFS(templateFS, "templates/layout.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	out := make(map[string]*template.Template, len(templateNames))
	for _, name := range templateNames {
		t, err := template.Must(layout.Clone()).ParseFS(templateFS, "templates/"+name+".tmpl")
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		out[name] = t
	}
	return out, nil
}

// Link is a navigation entry.
type Link struct {
	Label  string
	Href   string
	Active bool
}

// View is the data every template receives.
type View struct {
	Title    string
	Page     string
	Brand    *brand.Config
	Tenant   tenant.Identity
	Chrome   bool
	Nonce    string
	SignedIn bool
	Email    string
	Nav      []Link
	Error    string
	Data     any

	tc *tenantctx.Context
}

// URL builds a tenant-scoped link.
func (v *View) URL(path string) string { return v.tc.URLFor(path) }

// Price formats cents for display.
func (v *View) Price(cents int64) string { return v.tc.FormatPrice(cents) }

func (h *Handler) newView(c *gin.Context, title string, data any) *View {
	tc := tenantctx.FromGin(c)
	v := &View{
		Title:  title,
		Page:   router.PageName(c),
		Brand:  tc.Brand,
		Tenant: tc.Tenant,
		Chrome: router.ChromeFrom(c),
		Nonce:  security.Nonce(c),
		Data:   data,
		tc:     tc,
	}
	if claims, ok := auth.Session(c); ok {
		v.SignedIn = true
		v.Email = claims.Email()
	}
	v.Nav = navLinks(v, c.Request.URL.Path)
	return v
}

func navLinks(v *View, current string) []Link {
	links := []Link{
		{Label: "Home", Href: v.URL("/")},
		{Label: "Pricing", Href: v.URL("/pricing")},
		{Label: "Free tools", Href: v.URL("/ats-checker")},
		{Label: "About", Href: v.URL("/about")},
		{Label: "Contact", Href: v.URL("/contact")},
	}
	if v.Tenant.IsPlatform() {
		links = append(links, Link{Label: "For partners", Href: v.URL("/partners")})
	}
	if v.SignedIn {
		links = append(links, Link{Label: "Dashboard", Href: v.URL("/dashboard")})
	} else {
		links = append(links, Link{Label: "Log in", Href: v.URL("/login")})
	}
	for i := range links {
		links[i].Active = links[i].Href == current
	}
	return links
}

// render writes a page through gin's HTML renderer.
func (h *Handler) render(c *gin.Context, status int, name string, v *View) {
	t, ok := h.templates[name]
	if !ok {
		c.String(http.StatusInternalServerError, "unknown template")
		return
	}
	c.Render(status, render.HTML{Template: t, Name: "layout", Data: v})
}
