// Package router mounts one declarative page manifest under every tenant
// namespace: the site root, /reseller-dashboard and /partner/:subdomain.
package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/careerhub/internal/tenant"
	"github.com/mbd888/careerhub/internal/tenantctx"
)

// Shell selects the page chrome.
type Shell uint8

const (
	// ShellAuto decides by request path.
	ShellAuto Shell = iota
	// ShellMarketing shows navigation and footer.
	ShellMarketing
	// ShellApp hides them.
	ShellApp
)

// AppShellPrefixes are logical path prefixes rendered without marketing
// chrome.
var AppShellPrefixes = []string{
	"/dashboard",
	"/admin",
	"/reseller-dashboard",
	"/partner-dashboard",
	"/account",
}

// Page is one logical page. Path is relative to the mount, "/" being the
// mount root.
type Page struct {
	Name    string
	Path    string
	Shell   Shell
	Handler gin.HandlerFunc
	// Methods defaults to GET.
	Methods []string
}

// Manifest is the full logical page set.
type Manifest []Page

// Mount is one namespace the manifest is served under.
type Mount struct {
	Name       string
	Base       string
	Middleware []gin.HandlerFunc
}

// ResellerDashboardBase is the fixed mount for reseller back-office pages.
const ResellerDashboardBase = "/reseller-dashboard"

// PartnerBase is the gin pattern of the partner namespace.
const PartnerBase = "/partner/:subdomain"

// Mounts returns the three namespaces.
func Mounts() []Mount {
	return []Mount{
		{Name: "root", Base: ""},
		{Name: "reseller", Base: ResellerDashboardBase, Middleware: []gin.HandlerFunc{tenantctx.Mount(ResellerDashboardBase)}},
		{Name: "partner", Base: PartnerBase},
	}
}

const (
	// ChromeKey is the gin context key holding whether to render chrome.
	ChromeKey = "router_chrome"
	// PageKey is the gin context key holding the matched page name.
	PageKey = "router_page"
)

// Register mounts m under every mount in mounts.
func Register(r gin.IRouter, m Manifest, mounts []Mount) {
	for _, mount := range mounts {
		g := r.Group(mount.Base, mount.Middleware...)
		for _, p := range m {
			path := p.Path
			if mount.Base != "" && path == "/" {
				path = ""
			}
			methods := p.Methods
			if len(methods) == 0 {
				methods = []string{http.MethodGet}
			}
			h := pageMiddleware(p)
			for _, method := range methods {
				g.Handle(method, path, h, p.Handler)
			}
		}
	}
}

func pageMiddleware(p Page) gin.HandlerFunc {
	return func(c *gin.Context) {
		chrome := Chrome(c.Request.URL.Path)
		switch p.Shell {
		case ShellMarketing:
			chrome = true
		case ShellApp:
			chrome = false
		}
		c.Set(ChromeKey, chrome)
		c.Set(PageKey, p.Name)
		c.Next()
	}
}

// Chrome reports whether a request path gets marketing chrome. A partner
// prefix is stripped first, so /partner/acme/dashboard is an app page.
func Chrome(path string) bool {
	return !IsAppShell(LogicalPath(path))
}

// IsAppShell reports whether a logical path is under an app-shell prefix.
func IsAppShell(logical string) bool {
	for _, prefix := range AppShellPrefixes {
		if logical == prefix || strings.HasPrefix(logical, prefix+"/") {
			return true
		}
	}
	return false
}

// LogicalPath strips a partner namespace from a request path.
func LogicalPath(path string) string {
	rest, ok := strings.CutPrefix(path, tenant.PartnerPathPrefix)
	if !ok {
		return path
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[i:]
	}
	return "/"
}

// ChromeFrom returns the chrome decision made for the request.
func ChromeFrom(c *gin.Context) bool {
	if v, ok := c.Get(ChromeKey); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return Chrome(c.Request.URL.Path)
}

// PageName returns the matched page name.
func PageName(c *gin.Context) string {
	return c.GetString(PageKey)
}

// MissingPartnerTwins lists root routes ("METHOD /path") that have no
// counterpart under the partner namespace. Routes outside the manifest,
// such as /api, are expected to be filtered by the caller.
func MissingPartnerTwins(routes gin.RoutesInfo) []string {
	have := make(map[string]bool, len(routes))
	for _, rt := range routes {
		have[rt.Method+" "+rt.Path] = true
	}
	var missing []string
	for _, rt := range routes {
		if strings.HasPrefix(rt.Path, tenant.PartnerPathPrefix) || strings.HasPrefix(rt.Path, ResellerDashboardBase) {
			continue
		}
		twin := PartnerBase + rt.Path
		if rt.Path == "/" {
			twin = PartnerBase
		}
		if !have[rt.Method+" "+twin] {
			missing = append(missing, rt.Method+" "+rt.Path)
		}
	}
	return missing
}
