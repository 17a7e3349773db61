package tenant

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/careerhub/internal/logging"
	"github.com/mbd888/careerhub/internal/pagination"
	"github.com/mbd888/careerhub/internal/validation"
)

// ChangeFunc is called after a tenant's branding changes or is explicitly
// revalidated, so caches can drop it and open pages can reload.
type ChangeFunc func(ctx context.Context, subdomain string)

// Handler serves the white-label config endpoint and its admin routes.
type Handler struct {
	store    Store
	resolver *Resolver
	onChange ChangeFunc
	now      func() time.Time
}

// NewHandler creates a tenant handler. onChange may be nil.
func NewHandler(store Store, resolver *Resolver, onChange ChangeFunc) *Handler {
	if onChange == nil {
		onChange = func(context.Context, string) {}
	}
	return &Handler{store: store, resolver: resolver, onChange: onChange, now: time.Now}
}

// RegisterRoutes sets up the public config route.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/white-label/config", h.GetConfig)
}

// RegisterAdminRoutes sets up tenant management routes. The caller guards r.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET("/white-label", h.ListTenants)
	sub := r.Group("/white-label/:subdomain", validation.SubdomainParamMiddleware())
	sub.GET("", h.GetTenant)
	sub.PUT("", h.UpsertTenant)
	sub.POST("/revalidate", h.Revalidate)
}

// GetConfig handles GET /api/white-label/config[?subdomain=...]. Without the
// query parameter the tenant is taken from the request host.
func (h *Handler) GetConfig(c *gin.Context) {
	sub, ok := c.GetQuery("subdomain")
	if ok {
		sub = validation.SanitizeLabel(sub)
		if !validation.IsValidLabel(sub) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_subdomain", "message": "subdomain must be a lowercase DNS label"})
			return
		}
	} else if h.resolver != nil {
		sub = h.resolver.ResolveRequest(c.Request).Subdomain
	}
	if sub == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "no white-label tenant for this request"})
		return
	}

	rec, err := h.store.Get(c.Request.Context(), sub)
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "tenant not found"})
			return
		}
		logging.L(c.Request.Context()).Error("tenant lookup failed", "subdomain", sub, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to load tenant"})
		return
	}
	if !rec.Active() {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "tenant not found"})
		return
	}

	c.JSON(http.StatusOK, rec.Branding)
}

// ListTenants handles GET /api/admin/white-label[?limit=&cursor=].
func (h *Handler) ListTenants(c *gin.Context) {
	recs, err := h.store.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to list tenants"})
		return
	}
	page, next, err := pagination.Window(recs, c.Query("cursor"), pagination.ParseLimit(c.Query("limit")),
		func(r *Record) string { return r.Subdomain })
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_cursor", "message": "cursor is not valid"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tenants": page, "count": len(page), "nextCursor": next})
}

// GetTenant handles GET /api/admin/white-label/:subdomain.
func (h *Handler) GetTenant(c *gin.Context) {
	rec, err := h.store.Get(c.Request.Context(), c.Param("subdomain"))
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "tenant not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to load tenant"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tenant": rec})
}

// UpsertTenant handles PUT /api/admin/white-label/:subdomain.
func (h *Handler) UpsertTenant(c *gin.Context) {
	var req struct {
		Status   Status   `json:"status"`
		Branding Branding `json:"branding"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "invalid body"})
		return
	}
	if req.Status == "" {
		req.Status = StatusActive
	}
	if !ValidStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_status", "message": "status must be active or suspended"})
		return
	}
	if errs := ValidateBranding(req.Branding); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "message": errs.Error(), "details": errs})
		return
	}

	b := req.Branding
	b.SiteName = validation.SanitizeString(b.SiteName, 120)
	b.BrandName = validation.SanitizeString(b.BrandName, 120)
	b.ContactEmail = validation.SanitizeString(b.ContactEmail, 254)
	b.ContactPhone = validation.SanitizeString(b.ContactPhone, 40)
	b.ContactAddress = validation.SanitizeString(b.ContactAddress, 500)

	now := h.now().UTC()
	rec := &Record{
		Subdomain: c.Param("subdomain"),
		Status:    req.Status,
		Branding:  b,
		CreatedAt: now,
		UpdatedAt: now,
	}
	created, err := h.store.Upsert(c.Request.Context(), rec)
	if err != nil {
		logging.L(c.Request.Context()).Error("tenant upsert failed", "subdomain", rec.Subdomain, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to save tenant"})
		return
	}

	h.onChange(c.Request.Context(), rec.Subdomain)
	logging.L(c.Request.Context()).Info("tenant branding saved", "subdomain", rec.Subdomain, "created", created)

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"tenant": rec})
}

// Revalidate handles POST /api/admin/white-label/:subdomain/revalidate. It
// drops cached branding without changing the record.
func (h *Handler) Revalidate(c *gin.Context) {
	sub := c.Param("subdomain")
	h.onChange(c.Request.Context(), sub)
	c.JSON(http.StatusAccepted, gin.H{"subdomain": sub, "revalidated": true})
}
