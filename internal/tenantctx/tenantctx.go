// Package tenantctx carries the resolved tenant and its branding through a
// request. The middleware fills it once, before any page handler runs.
package tenantctx

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/careerhub/internal/brand"
	"github.com/mbd888/careerhub/internal/pricing"
	"github.com/mbd888/careerhub/internal/tenant"
)

// Phase is the provider's progress for one request.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseResolving
	PhaseLoadingBrand
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseResolving:
		return "resolving"
	case PhaseLoadingBrand:
		return "loading_brand"
	case PhaseReady:
		return "ready"
	default:
		return "idle"
	}
}

type ctxKey struct{}

// ginKey is the gin context key holding the *Context.
const ginKey = "tenant_context"

// DefaultCurrency and DefaultLocale format prices when no formatter is set.
const (
	DefaultCurrency = "GBP"
	DefaultLocale   = "en-GB"
)

var defaultFormatter = pricing.MustFormatter(DefaultCurrency, DefaultLocale)

// Context is what pages read: who the tenant is, its branding, and the base
// path links are built under. Treat it as read-only.
type Context struct {
	Tenant tenant.Identity
	Brand  *brand.Config
	Phase  Phase
	// Base is the mount the request arrived on: the tenant prefix, or a
	// fixed mount such as /reseller-dashboard.
	Base string

	formatter *pricing.Formatter
}

// Default is the platform context with default branding.
func Default() *Context {
	return &Context{
		Tenant:    tenant.Platform(),
		Brand:     brand.DefaultConfig(),
		formatter: defaultFormatter,
	}
}

// URLFor places a logical path under the request's base.
func (c *Context) URLFor(path string) string {
	return tenant.JoinPath(c.Base, path)
}

// FormatPrice renders integer cents in the configured currency.
func (c *Context) FormatPrice(cents int64) string {
	f := c.formatter
	if f == nil {
		f = defaultFormatter
	}
	return f.Format(cents)
}

// Currency returns the ISO code prices are shown in.
func (c *Context) Currency() string {
	if c.formatter == nil {
		return defaultFormatter.Currency()
	}
	return c.formatter.Currency()
}

// WithBase returns a copy of c whose links are built under base.
func (c *Context) WithBase(base string) *Context {
	cp := *c
	cp.Base = base
	return &cp
}

// NewContext stores tc in ctx.
func NewContext(ctx context.Context, tc *Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

// From returns the tenant context stored in ctx, or Default when there is
// none. It never returns nil.
func From(ctx context.Context) *Context {
	if ctx != nil {
		if tc, ok := ctx.Value(ctxKey{}).(*Context); ok && tc != nil {
			return tc
		}
	}
	return Default()
}

// FromGin returns the tenant context for a gin request. It never returns nil.
func FromGin(c *gin.Context) *Context {
	if v, ok := c.Get(ginKey); ok {
		if tc, ok := v.(*Context); ok && tc != nil {
			return tc
		}
	}
	return From(c.Request.Context())
}

// set stores tc on both the gin context and the request context.
func set(c *gin.Context, ctx context.Context, tc *Context) {
	c.Set(ginKey, tc)
	c.Request = c.Request.WithContext(NewContext(ctx, tc))
}
