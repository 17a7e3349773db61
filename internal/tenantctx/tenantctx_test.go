package tenantctx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/careerhub/internal/brand"
	"github.com/mbd888/careerhub/internal/logging"
	"github.com/mbd888/careerhub/internal/metrics"
	"github.com/mbd888/careerhub/internal/pricing"
	"github.com/mbd888/careerhub/internal/tenant"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeLoader struct {
	mu    sync.Mutex
	seen  []tenant.Identity
	nilFn bool
}

func (f *fakeLoader) Load(_ context.Context, id tenant.Identity) *brand.Config {
	f.mu.Lock()
	f.seen = append(f.seen, id)
	f.mu.Unlock()
	if f.nilFn {
		return nil
	}
	cfg := brand.DefaultConfig()
	if !id.IsPlatform() {
		cfg.SiteName = id.Subdomain + " careers"
	}
	return cfg
}

func serve(t *testing.T, loader BrandLoader, host, path string, extra ...gin.HandlerFunc) (*Context, string) {
	t.Helper()
	resolver := tenant.NewResolver("careerhub.io", []string{"www", "app"}, nil)

	var got *Context
	var logTenant string
	r := gin.New()
	r.Use(Middleware(resolver, loader, pricing.MustFormatter("GBP", "en-GB")))
	r.Use(extra...)
	r.NoRoute(func(c *gin.Context) {
		got = FromGin(c)
		assert.Same(t, got, From(c.Request.Context()))
		logTenant = logging.Tenant(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Host = host
	r.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, got)
	return got, logTenant
}

func TestFrom_NeverNil(t *testing.T) {
	tc := From(context.Background())
	require.NotNil(t, tc)
	assert.True(t, tc.Tenant.IsPlatform())
	assert.True(t, tc.Brand.Complete())
	assert.Equal(t, "", tc.Base)
	assert.Equal(t, PhaseIdle, tc.Phase)
}

func TestMiddleware_ReadyBeforeHandler(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		path     string
		wantID   tenant.Identity
		wantBase string
		wantSite string
	}{
		{"platform", "careerhub.io", "/pricing", tenant.Platform(), "", "CareerHub"},
		{"reseller", "acme.careerhub.io", "/pricing", tenant.Reseller("acme"), "", "acme careers"},
		{"partner", "careerhub.io", "/partner/globex/pricing", tenant.Partner("globex"), "/partner/globex", "globex careers"},
		{"malformed partner", "careerhub.io", "/partner//pricing", tenant.Platform(), "", "CareerHub"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := &fakeLoader{}
			tc, logTenant := serve(t, loader, tt.host, tt.path)

			assert.Equal(t, PhaseReady, tc.Phase)
			assert.Equal(t, tt.wantID, tc.Tenant)
			assert.Equal(t, tt.wantBase, tc.Base)
			assert.Equal(t, tt.wantSite, tc.Brand.SiteName)
			assert.Equal(t, tt.wantID.Key(), logTenant)
			assert.Equal(t, []tenant.Identity{tt.wantID}, loader.seen, "brand loaded exactly once")
		})
	}
}

func TestMiddleware_NilBrandBecomesDefault(t *testing.T) {
	tc, _ := serve(t, &fakeLoader{nilFn: true}, "acme.careerhub.io", "/")
	require.NotNil(t, tc.Brand)
	assert.True(t, tc.Brand.Complete())
}

func TestMiddleware_CountsResolutions(t *testing.T) {
	before := promtest.ToFloat64(metrics.TenantResolutionsTotal.WithLabelValues("partner"))
	serve(t, &fakeLoader{}, "careerhub.io", "/partner/acme")
	assert.Equal(t, before+1, promtest.ToFloat64(metrics.TenantResolutionsTotal.WithLabelValues("partner")))
}

func TestURLFor(t *testing.T) {
	tc, _ := serve(t, &fakeLoader{}, "careerhub.io", "/partner/acme/about")
	assert.Equal(t, "/partner/acme", tc.URLFor("/"))
	assert.Equal(t, "/partner/acme/pricing", tc.URLFor("/pricing"))

	tc, _ = serve(t, &fakeLoader{}, "acme.careerhub.io", "/about")
	assert.Equal(t, "/pricing", tc.URLFor("/pricing"))
}

func TestMount_RebasesLinks(t *testing.T) {
	tc, _ := serve(t, &fakeLoader{}, "acme.careerhub.io", "/reseller-dashboard/clients", Mount("/reseller-dashboard"))
	assert.Equal(t, tenant.Reseller("acme"), tc.Tenant)
	assert.Equal(t, "/reseller-dashboard", tc.URLFor("/"))
	assert.Equal(t, "/reseller-dashboard/clients", tc.URLFor("/clients"))
}

func TestWithBase_DoesNotMutateOriginal(t *testing.T) {
	tc := Default()
	other := tc.WithBase("/x")
	assert.Equal(t, "", tc.Base)
	assert.Equal(t, "/x", other.Base)
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "£1,299.00", Default().FormatPrice(129900))
	assert.Equal(t, "GBP", Default().Currency())

	var zero Context
	assert.Equal(t, "£0.50", zero.FormatPrice(50))
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "resolving", PhaseResolving.String())
	assert.Equal(t, "loading_brand", PhaseLoadingBrand.String())
	assert.Equal(t, "ready", PhaseReady.String())
}
