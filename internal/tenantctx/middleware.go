package tenantctx

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/careerhub/internal/brand"
	"github.com/mbd888/careerhub/internal/logging"
	"github.com/mbd888/careerhub/internal/metrics"
	"github.com/mbd888/careerhub/internal/pricing"
	"github.com/mbd888/careerhub/internal/tenant"
	"github.com/mbd888/careerhub/internal/traces"
)

// BrandLoader loads a tenant's branding. It never returns nil.
type BrandLoader interface {
	Load(ctx context.Context, id tenant.Identity) *brand.Config
}

// Middleware resolves the tenant, loads its brand and stores the result.
// Resolution and loading never fail, so every request reaches PhaseReady.
// A nil formatter formats prices in DefaultCurrency.
func Middleware(resolver *tenant.Resolver, loader BrandLoader, formatter *pricing.Formatter) gin.HandlerFunc {
	if formatter == nil {
		formatter = defaultFormatter
	}
	return func(c *gin.Context) {
		tc := &Context{Phase: PhaseResolving, formatter: formatter}

		ctx, span := traces.StartSpan(c.Request.Context(), "tenant.provide")
		tc.Tenant = resolver.ResolveRequest(c.Request)
		tc.Base = tc.Tenant.Prefix()
		metrics.TenantResolutionsTotal.WithLabelValues(tc.Tenant.Kind.String()).Inc()
		span.SetAttributes(traces.TenantKind(tc.Tenant.Kind.String()), traces.TenantSubdomain(tc.Tenant.Subdomain))

		ctx = logging.WithTenant(ctx, tc.Tenant.Key())

		tc.Phase = PhaseLoadingBrand
		tc.Brand = loader.Load(ctx, tc.Tenant)
		if tc.Brand == nil {
			tc.Brand = brand.DefaultConfig()
		}
		tc.Phase = PhaseReady
		span.End()

		set(c, ctx, tc)
		c.Next()
	}
}

// Mount rebases links for requests served under a fixed mount, so pages on
// /reseller-dashboard link within it. It must run after Middleware.
func Mount(base string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tc := FromGin(c).WithBase(base)
		set(c, c.Request.Context(), tc)
		c.Next()
	}
}
