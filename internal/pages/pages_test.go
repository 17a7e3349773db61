package pages

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/careerhub/internal/auth"
	"github.com/mbd888/careerhub/internal/authgate"
	"github.com/mbd888/careerhub/internal/brand"
	"github.com/mbd888/careerhub/internal/pricing"
	"github.com/mbd888/careerhub/internal/router"
	"github.com/mbd888/careerhub/internal/security"
	"github.com/mbd888/careerhub/internal/tenant"
	"github.com/mbd888/careerhub/internal/tenantctx"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type brands map[string]tenant.Branding

func (b brands) Load(_ context.Context, id tenant.Identity) *brand.Config {
	doc, ok := b[id.Subdomain]
	if !ok || id.IsPlatform() {
		return brand.DefaultConfig()
	}
	return brand.Merge(brand.DefaultConfig(), doc)
}

type staticPricing struct{}

func (staticPricing) TiersFor(_ context.Context, o pricing.PriceOverrides) []pricing.Tier {
	return pricing.ApplyOverrides(pricing.DefaultTiers(), o)
}

func (staticPricing) Plans(context.Context) []pricing.Plan { return pricing.DefaultPlans() }

type server struct {
	engine *gin.Engine
	gate   *authgate.Gate
}

func newServer(t *testing.T) *server {
	t.Helper()
	resolver := tenant.NewResolver("careerhub.io", []string{"www", "app"}, nil)
	sessions := auth.NewManager("pages-test-secret-pages-test-secret", time.Hour, false)
	gate := authgate.New(authgate.NewMemoryIntentStore(time.Minute), time.Minute)

	h, err := New(staticPricing{}, gate, sessions, nil, nil)
	require.NoError(t, err)

	loader := brands{
		"acme": {SiteName: "Acme Careers", BrandName: "Acme", Features: []string{"job_board"}},
	}
	r := gin.New()
	r.Use(security.HeadersMiddleware(), tenantctx.Middleware(resolver, loader, nil), auth.Middleware(sessions))
	router.Register(r, h.Manifest(), router.Mounts())
	r.NoRoute(h.NotFound)
	return &server{engine: r, gate: gate}
}

// browser carries cookies between requests.
type browser struct {
	srv     *server
	host    string
	cookies map[string]*http.Cookie
}

func (s *server) browser(host string) *browser {
	return &browser{srv: s, host: host, cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Host = b.host
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	b.srv.engine.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return w
}

func (b *browser) visitor() string {
	if c, ok := b.cookies[auth.VisitorCookie]; ok {
		return c.Value
	}
	return ""
}

// gateKey is the key the pages use for this browser's gate under id.
func (b *browser) gateKey(id tenant.Identity) string {
	return b.visitor() + "|" + id.Key()
}

func TestManifest_EveryRootPageHasPartnerTwin(t *testing.T) {
	s := newServer(t)
	assert.Empty(t, router.MissingPartnerTwins(s.engine.Routes()))
}

func TestPages_RenderUnderEveryNamespace(t *testing.T) {
	s := newServer(t)
	tests := []struct {
		name, host, path, want string
	}{
		{"platform home", "careerhub.io", "/", "<h1>CareerHub</h1>"},
		{"partner home", "careerhub.io", "/partner/acme", "<h1>Acme Careers</h1>"},
		{"reseller home", "acme.careerhub.io", "/", "<h1>Acme Careers</h1>"},
		{"partner pricing links", "careerhub.io", "/partner/acme/pricing", `href="/partner/acme/contact?tier=`},
		{"platform partners", "careerhub.io", "/partners", "Starter"},
		{"legal", "careerhub.io", "/partner/acme/privacy", "Privacy policy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.browser(tt.host).do(http.MethodGet, tt.path, nil)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}

func TestPages_ChromeAndScrollReset(t *testing.T) {
	s := newServer(t)
	b := s.browser("careerhub.io")

	w := b.do(http.MethodGet, "/pricing", nil)
	assert.Contains(t, w.Body.String(), "<footer>")
	assert.Contains(t, w.Body.String(), "scrollRestoration")

	b.do(http.MethodPost, "/login", url.Values{"email": {"a@example.com"}})
	w = b.do(http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "<footer>")
	assert.Contains(t, w.Body.String(), "scrollRestoration")
}

func TestPages_PartnerNavOnlyOnPlatform(t *testing.T) {
	s := newServer(t)
	assert.Contains(t, s.browser("careerhub.io").do(http.MethodGet, "/", nil).Body.String(), "For partners")
	assert.NotContains(t, s.browser("careerhub.io").do(http.MethodGet, "/partner/acme", nil).Body.String(), "For partners")
}

func TestPages_ToolHiddenWhenFeatureOff(t *testing.T) {
	s := newServer(t)
	// acme only enables job_board.
	w := s.browser("careerhub.io").do(http.MethodGet, "/partner/acme/cover-letter", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Acme Careers")

	w = s.browser("careerhub.io").do(http.MethodGet, "/cover-letter", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPages_NotFoundIsBranded(t *testing.T) {
	s := newServer(t)
	w := s.browser("careerhub.io").do(http.MethodGet, "/partner/acme/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Page not found")
	assert.Contains(t, w.Body.String(), `href="/partner/acme"`)
}

func TestDashboard_RequiresSession(t *testing.T) {
	s := newServer(t)
	w := s.browser("careerhub.io").do(http.MethodGet, "/partner/acme/dashboard", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/partner/acme/login", w.Header().Get("Location"))
}

func TestGateFlow_PartnerToolRegisterAndReturn(t *testing.T) {
	s := newServer(t)
	b := s.browser("careerhub.io")
	acme := tenant.Partner("acme")

	w := b.do(http.MethodGet, "/partner/acme/ats-checker", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `class="gate"`)

	// Run without a session: the gate opens and nothing runs.
	w = b.do(http.MethodPost, "/partner/acme/ats-checker/run", url.Values{"cv": {"go"}, "job": {"go"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/partner/acme/ats-checker", w.Header().Get("Location"))

	state := s.gate.State(b.gateKey(acme))
	assert.True(t, state.IsOpen)
	assert.Equal(t, "ATS Checker", state.ToolName)
	assert.Equal(t, "/partner/acme/ats-checker", state.RedirectPath)

	w = b.do(http.MethodGet, "/partner/acme/ats-checker", nil)
	assert.Contains(t, w.Body.String(), `class="gate"`)
	assert.Contains(t, w.Body.String(), "Create a free account to use ATS Checker")

	// A second run attempt does not stack a second gate.
	b.do(http.MethodPost, "/partner/acme/ats-checker/run", nil)
	assert.Equal(t, state, s.gate.State(b.gateKey(acme)))

	w = b.do(http.MethodPost, "/partner/acme/gate", url.Values{"choice": {"register"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/partner/acme/register", w.Header().Get("Location"))
	assert.False(t, s.gate.State(b.gateKey(acme)).IsOpen)

	w = b.do(http.MethodPost, "/partner/acme/register", url.Values{"email": {"jo@example.com"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/partner/acme/ats-checker", w.Header().Get("Location"))

	// Signed in, the tool runs.
	w = b.do(http.MethodPost, "/partner/acme/ats-checker/run", url.Values{
		"cv":  {"Go developer with Kubernetes experience"},
		"job": {"Kubernetes Go engineer"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `class="result"`)
	assert.NotContains(t, w.Body.String(), `class="gate"`)
}

func TestGateFlow_IntentConsumedOnce(t *testing.T) {
	s := newServer(t)
	b := s.browser("careerhub.io")

	b.do(http.MethodGet, "/skills-generator", nil)
	b.do(http.MethodPost, "/skills-generator/run", nil)
	b.do(http.MethodPost, "/gate", url.Values{"choice": {"login"}})

	w := b.do(http.MethodPost, "/login", url.Values{"email": {"jo@example.com"}})
	assert.Equal(t, "/skills-generator", w.Header().Get("Location"))

	b.do(http.MethodPost, "/logout", nil)
	w = b.do(http.MethodPost, "/login", url.Values{"email": {"jo@example.com"}})
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))
}

func TestGateFlow_LaterClosesWithoutIntent(t *testing.T) {
	s := newServer(t)
	b := s.browser("careerhub.io")

	b.do(http.MethodGet, "/ats-checker", nil)
	b.do(http.MethodPost, "/ats-checker/run", nil)
	w := b.do(http.MethodPost, "/gate", url.Values{"choice": {"later"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/ats-checker", w.Header().Get("Location"))
	assert.False(t, s.gate.State(b.gateKey(tenant.Platform())).IsOpen)

	w = b.do(http.MethodPost, "/login", url.Values{"email": {"jo@example.com"}})
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))
}

func TestGateFlow_ScopedToTenantAndTool(t *testing.T) {
	s := newServer(t)
	b := s.browser("careerhub.io")

	b.do(http.MethodGet, "/partner/acme/ats-checker", nil)
	w := b.do(http.MethodPost, "/partner/acme/ats-checker/run", nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.True(t, s.gate.State(b.gateKey(tenant.Partner("acme"))).IsOpen)

	// Another tool in the same namespace does not show it.
	w = b.do(http.MethodGet, "/partner/acme/skills-generator", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `class="gate"`)

	// Neither does the root site.
	w = b.do(http.MethodGet, "/ats-checker", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `class="gate"`)
	assert.False(t, s.gate.State(b.gateKey(tenant.Platform())).IsOpen)

	// Choosing from the root site has no gate to act on and stays home.
	w = b.do(http.MethodPost, "/gate", url.Values{"choice": {"register"}})
	assert.Equal(t, "/", w.Header().Get("Location"))
	w = b.do(http.MethodPost, "/register", url.Values{"email": {"jo@example.com"}})
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))

	// The partner gate is untouched.
	assert.True(t, s.gate.State(b.gateKey(tenant.Partner("acme"))).IsOpen)
}

func TestLogin_RejectsBadEmail(t *testing.T) {
	s := newServer(t)
	w := s.browser("careerhub.io").do(http.MethodPost, "/partner/acme/login", url.Values{"email": {"nope"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Enter a valid email address.")
	assert.Contains(t, w.Body.String(), `action="/partner/acme/login"`)
}

func TestLogin_SignedInVisitorSkipsForm(t *testing.T) {
	s := newServer(t)
	b := s.browser("acme.careerhub.io")
	b.do(http.MethodPost, "/register", url.Values{"email": {"jo@example.com"}})

	w := b.do(http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))
}

func TestContact_PreselectsPlan(t *testing.T) {
	s := newServer(t)
	b := s.browser("careerhub.io")

	w := b.do(http.MethodGet, "/partners", nil)
	assert.Contains(t, w.Body.String(), `href="/contact?plan=enterprise"`)

	w = b.do(http.MethodGet, "/contact?plan=enterprise", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<strong>Enterprise</strong> partner plan")

	w = b.do(http.MethodGet, "/contact?plan=gold", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "partner plan")
}

func TestContact_PreselectsTier(t *testing.T) {
	s := newServer(t)
	tiers := pricing.DefaultTiers()
	w := s.browser("careerhub.io").do(http.MethodGet, "/contact?tier="+string(tiers[0].ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), tiers[0].Name)
}
