package pricing

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/careerhub/internal/logging"
	"github.com/mbd888/careerhub/internal/validation"
)

// Handler serves the pricing and partner plan endpoints from a Store.
type Handler struct {
	store    Store
	onChange func()
}

// NewHandler creates a pricing handler. onChange runs after every admin
// write and may be nil.
func NewHandler(store Store, onChange func()) *Handler {
	if onChange == nil {
		onChange = func() {}
	}
	return &Handler{store: store, onChange: onChange}
}

// RegisterRoutes sets up the public routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/pricing", h.GetPricing)
	r.GET("/white-label/plans", h.GetPlans)
}

// RegisterAdminRoutes sets up override and plan management. The caller
// guards r.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.PUT("/pricing/:tierId", h.PutOverride)
	r.PUT("/plans/:planId", h.PutPlan)
}

// GetPricing handles GET /api/pricing.
func (h *Handler) GetPricing(c *gin.Context) {
	overrides, err := h.store.ListOverrides(c.Request.Context())
	if err != nil {
		logging.L(c.Request.Context()).Error("list pricing overrides failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to load pricing"})
		return
	}
	if overrides == nil {
		overrides = []RemoteTier{}
	}
	c.JSON(http.StatusOK, Document{Tiers: overrides})
}

// GetPlans handles GET /api/white-label/plans. An empty store lists nothing
// and callers fall back to their defaults.
func (h *Handler) GetPlans(c *gin.Context) {
	plans, err := h.store.ListPlans(c.Request.Context())
	if err != nil {
		logging.L(c.Request.Context()).Error("list partner plans failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to load plans"})
		return
	}
	if plans == nil {
		plans = []Plan{}
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

// PutOverride handles PUT /api/admin/pricing/:tierId.
func (h *Handler) PutOverride(c *gin.Context) {
	id := TierID(c.Param("tierId"))
	if _, err := FindTier(DefaultTiers(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "tier_not_found", "message": "unknown tier id"})
		return
	}

	var o RemoteTier
	if err := c.ShouldBindJSON(&o); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "invalid body"})
		return
	}
	if o.Price != nil && *o.Price < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_price", "message": "price must not be negative"})
		return
	}
	o.ID = id
	o.Name = validation.SanitizeString(o.Name, 120)
	o.Description = validation.SanitizeString(o.Description, 500)
	o.Badge = validation.SanitizeString(o.Badge, 40)

	if err := h.store.PutOverride(c.Request.Context(), o); err != nil {
		logging.L(c.Request.Context()).Error("save pricing override failed", "tier", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to save override"})
		return
	}
	h.onChange()
	c.JSON(http.StatusOK, gin.H{"override": o})
}

// PutPlan handles PUT /api/admin/plans/:planId.
func (h *Handler) PutPlan(c *gin.Context) {
	var p Plan
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "invalid body"})
		return
	}
	p.ID = PlanID(strings.ToLower(strings.TrimSpace(c.Param("planId"))))
	p.Name = validation.SanitizeString(p.Name, 120)
	p.Description = validation.SanitizeString(p.Description, 500)
	if !validation.IsValidLabel(string(p.ID)) || !ValidPlan(p) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_plan", "message": "plan needs an id, a name and non-negative amounts"})
		return
	}

	if err := h.store.PutPlan(c.Request.Context(), p); err != nil {
		logging.L(c.Request.Context()).Error("save partner plan failed", "plan", p.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to save plan"})
		return
	}
	h.onChange()
	c.JSON(http.StatusOK, gin.H{"plan": p})
}
