package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/careerhub/internal/brand"
	"github.com/mbd888/careerhub/internal/tenant"
	"github.com/mbd888/careerhub/internal/tenantctx"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// echo writes what the page saw.
func echo(c *gin.Context) {
	tc := tenantctx.FromGin(c)
	chrome := "app"
	if ChromeFrom(c) {
		chrome = "marketing"
	}
	c.String(http.StatusOK, "%s|%s|%s|%s", PageName(c), tc.Tenant.Key(), tc.URLFor("/pricing"), chrome)
}

func testManifest() Manifest {
	return Manifest{
		{Name: "home", Path: "/", Handler: echo},
		{Name: "pricing", Path: "/pricing", Handler: echo},
		{Name: "ats-checker", Path: "/ats-checker", Handler: echo},
		{Name: "ats-run", Path: "/ats-checker/run", Handler: echo, Methods: []string{http.MethodPost}},
		{Name: "dashboard", Path: "/dashboard", Handler: echo},
		{Name: "login", Path: "/login", Shell: ShellMarketing, Handler: echo},
	}
}

func setup() *gin.Engine {
	resolver := tenant.NewResolver("careerhub.io", []string{"www", "app"}, nil)
	r := gin.New()
	r.Use(tenantctx.Middleware(resolver, brandLoader{}, nil))
	Register(r, testManifest(), Mounts())
	return r
}

type brandLoader struct{}

func (brandLoader) Load(context.Context, tenant.Identity) *brand.Config { return brand.DefaultConfig() }

func get(r http.Handler, method, host, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Host = host
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegister_SamePageUnderEveryMount(t *testing.T) {
	r := setup()
	tests := []struct {
		host, path, want string
	}{
		{"careerhub.io", "/", "home|platform|/pricing|marketing"},
		{"careerhub.io", "/pricing", "pricing|platform|/pricing|marketing"},
		{"careerhub.io", "/partner/acme", "home|partner:acme|/partner/acme/pricing|marketing"},
		{"careerhub.io", "/partner/acme/ats-checker", "ats-checker|partner:acme|/partner/acme/pricing|marketing"},
		{"acme.careerhub.io", "/pricing", "pricing|reseller:acme|/pricing|marketing"},
		{"acme.careerhub.io", "/reseller-dashboard", "home|reseller:acme|/reseller-dashboard/pricing|app"},
		{"acme.careerhub.io", "/reseller-dashboard/pricing", "pricing|reseller:acme|/reseller-dashboard/pricing|app"},
		{"careerhub.io", "/dashboard", "dashboard|platform|/pricing|app"},
		{"careerhub.io", "/partner/acme/dashboard", "dashboard|partner:acme|/partner/acme/pricing|app"},
		{"careerhub.io", "/reseller-dashboard/login", "login|platform|/reseller-dashboard/pricing|marketing"},
	}
	for _, tt := range tests {
		t.Run(tt.host+tt.path, func(t *testing.T) {
			w := get(r, http.MethodGet, tt.host, tt.path)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, w.Body.String())
		})
	}
}

func TestRegister_Methods(t *testing.T) {
	r := setup()
	assert.Equal(t, http.StatusOK, get(r, http.MethodPost, "careerhub.io", "/partner/acme/ats-checker/run").Code)
	assert.NotEqual(t, http.StatusOK, get(r, http.MethodGet, "careerhub.io", "/ats-checker/run").Code)
}

func TestRegister_EveryRootPageHasPartnerTwin(t *testing.T) {
	r := setup()
	assert.Empty(t, MissingPartnerTwins(r.Routes()))

	// A root-only route is reported.
	r.GET("/only-here", echo)
	assert.Equal(t, []string{"GET /only-here"}, MissingPartnerTwins(r.Routes()))
}

func TestChrome(t *testing.T) {
	tests := map[string]bool{
		"/":                            true,
		"/pricing":                     true,
		"/dashboard":                   false,
		"/dashboard/orders":            false,
		"/dashboards-are-great":        true,
		"/admin":                       false,
		"/account/settings":            false,
		"/reseller-dashboard":          false,
		"/reseller-dashboard/clients":  false,
		"/partner-dashboard":           false,
		"/partner/acme":                true,
		"/partner/acme/pricing":        true,
		"/partner/acme/dashboard":      false,
		"/partner/acme/account/orders": false,
	}
	for path, want := range tests {
		assert.Equal(t, want, Chrome(path), path)
	}
}

func TestLogicalPath(t *testing.T) {
	assert.Equal(t, "/", LogicalPath("/partner/acme"))
	assert.Equal(t, "/pricing", LogicalPath("/partner/acme/pricing"))
	assert.Equal(t, "/pricing", LogicalPath("/pricing"))
}
