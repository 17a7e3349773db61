// Package pages holds the server-rendered pages and the manifest the router
// mounts under every tenant namespace.
package pages

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/careerhub/internal/auth"
	"github.com/mbd888/careerhub/internal/authgate"
	"github.com/mbd888/careerhub/internal/logging"
	"github.com/mbd888/careerhub/internal/pricing"
	"github.com/mbd888/careerhub/internal/router"
	"github.com/mbd888/careerhub/internal/tenant"
	"github.com/mbd888/careerhub/internal/tenantctx"
)

// PricingSource supplies tiers and partner plans. It never fails.
type PricingSource interface {
	TiersFor(ctx context.Context, overrides pricing.PriceOverrides) []pricing.Tier
	Plans(ctx context.Context) []pricing.Plan
}

// BrandSocket upgrades a page's brand-change subscription.
type BrandSocket interface {
	HandleWebSocket(w http.ResponseWriter, r *http.Request, id tenant.Identity)
}

// Handler renders every page.
type Handler struct {
	pricing   PricingSource
	gate      *authgate.Gate
	sessions  *auth.Manager
	socket    BrandSocket
	logger    *slog.Logger
	templates map[string]*template.Template
}

// New parses the templates and returns a page handler. socket may be nil.
func New(pricing PricingSource, gate *authgate.Gate, sessions *auth.Manager, socket BrandSocket, logger *slog.Logger) (*Handler, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		pricing:   pricing,
		gate:      gate,
		sessions:  sessions,
		socket:    socket,
		logger:    logger,
		templates: templates,
	}, nil
}

// Manifest is the logical page set.
func (h *Handler) Manifest() router.Manifest {
	m := router.Manifest{
		{Name: "home", Path: "/", Handler: h.Home},
		{Name: "pricing", Path: "/pricing", Handler: h.Pricing},
		{Name: "partners", Path: "/partners", Handler: h.Partners},
		{Name: "about", Path: "/about", Handler: h.static("about", "About")},
		{Name: "contact", Path: "/contact", Handler: h.Contact},
		{Name: "privacy", Path: "/privacy", Handler: h.static("legal", "Privacy policy")},
		{Name: "terms", Path: "/terms", Handler: h.static("legal", "Terms of service")},
		{Name: "login", Path: "/login", Shell: router.ShellMarketing, Handler: h.AuthForm, Methods: []string{http.MethodGet}},
		{Name: "login", Path: "/login", Shell: router.ShellMarketing, Handler: h.Login, Methods: []string{http.MethodPost}},
		{Name: "register", Path: "/register", Shell: router.ShellMarketing, Handler: h.AuthForm, Methods: []string{http.MethodGet}},
		{Name: "register", Path: "/register", Shell: router.ShellMarketing, Handler: h.Register, Methods: []string{http.MethodPost}},
		{Name: "logout", Path: "/logout", Handler: h.Logout, Methods: []string{http.MethodPost}},
		{Name: "gate", Path: "/gate", Handler: h.Gate, Methods: []string{http.MethodPost}},
		{Name: "dashboard", Path: "/dashboard", Handler: h.Dashboard},
		{Name: "brand-socket", Path: "/ws/brand", Handler: h.BrandSocket},
	}
	for _, t := range tools {
		m = append(m,
			router.Page{Name: t.Slug, Path: t.Path(), Handler: h.ToolPage(t)},
			router.Page{Name: t.Slug, Path: t.RunPath(), Handler: h.RunTool(t), Methods: []string{http.MethodPost}},
		)
	}
	return m
}

// NotFound renders the tenant-branded 404 page.
func (h *Handler) NotFound(c *gin.Context) {
	h.render(c, http.StatusNotFound, "notfound", h.newView(c, "Not found", nil))
}

// Home handles GET <prefix>/.
func (h *Handler) Home(c *gin.Context) {
	tc := tenantctx.FromGin(c)
	h.render(c, http.StatusOK, "home", h.newView(c, "", gin.H{"Tools": availableTools(tc.Brand)}))
}

// Pricing handles GET <prefix>/pricing. Tenant price overrides are applied
// over remote pricing.
func (h *Handler) Pricing(c *gin.Context) {
	tc := tenantctx.FromGin(c)
	tiers := h.pricing.TiersFor(c.Request.Context(), tc.Brand)
	h.render(c, http.StatusOK, "pricing", h.newView(c, "Pricing", gin.H{"Tiers": tiers}))
}

// Partners handles GET <prefix>/partners, the reseller acquisition page.
func (h *Handler) Partners(c *gin.Context) {
	plans := h.pricing.Plans(c.Request.Context())
	h.render(c, http.StatusOK, "partners", h.newView(c, "Partner plans", gin.H{"Plans": plans}))
}

// Contact handles GET <prefix>/contact[?tier=...|?plan=...].
func (h *Handler) Contact(c *gin.Context) {
	tc := tenantctx.FromGin(c)
	data := struct {
		Tier *pricing.Tier
		Plan *pricing.Plan
	}{}
	if id := c.Query("tier"); id != "" {
		tiers := h.pricing.TiersFor(c.Request.Context(), tc.Brand)
		if t, err := pricing.FindTier(tiers, pricing.TierID(id)); err == nil {
			data.Tier = &t
		}
	}
	if id := c.Query("plan"); id != "" {
		if p, ok := pricing.FindPlan(h.pricing.Plans(c.Request.Context()), pricing.PlanID(id)); ok {
			data.Plan = &p
		}
	}
	h.render(c, http.StatusOK, "contact", h.newView(c, "Contact", data))
}

func (h *Handler) static(tmpl, title string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.render(c, http.StatusOK, tmpl, h.newView(c, title, nil))
	}
}

// Dashboard handles GET <prefix>/dashboard. Signed-out visitors are sent
// to log in.
func (h *Handler) Dashboard(c *gin.Context) {
	tc := tenantctx.FromGin(c)
	if _, ok := auth.Session(c); !ok {
		c.Redirect(http.StatusSeeOther, tc.URLFor("/login"))
		return
	}
	data := gin.H{
		"Tools": availableTools(tc.Brand),
		"Tiers": h.pricing.TiersFor(c.Request.Context(), tc.Brand),
	}
	h.render(c, http.StatusOK, "dashboard", h.newView(c, "Dashboard", data))
}

// BrandSocket handles GET <prefix>/ws/brand.
func (h *Handler) BrandSocket(c *gin.Context) {
	if h.socket == nil {
		c.Status(http.StatusNotFound)
		return
	}
	h.socket.HandleWebSocket(c.Writer, c.Request, tenantctx.FromGin(c).Tenant)
}

type toolData struct {
	Tool   Tool
	Input  map[string]string
	Result *Result
	Gate   authgate.State
}

// ToolPage handles GET <prefix>/<tool>. The gate is shown when it was
// opened by a run attempt.
func (h *Handler) ToolPage(t Tool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tc := tenantctx.FromGin(c)
		if !t.Available(tc.Brand) {
			h.NotFound(c)
			return
		}
		data := toolData{Tool: t, Input: map[string]string{}}
		if st := h.gate.State(gateKey(c)); st.ToolName == t.Name {
			data.Gate = st
		}
		h.render(c, http.StatusOK, "tool", h.newView(c, t.Name, data))
	}
}

// RunTool handles POST <prefix>/<tool>/run. A signed-out visitor gets the
// gate instead, and nothing is run.
func (h *Handler) RunTool(t Tool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tc := tenantctx.FromGin(c)
		if !t.Available(tc.Brand) {
			h.NotFound(c)
			return
		}
		page := tc.URLFor(t.Path())

		if _, ok := auth.Session(c); !ok {
			h.gate.Open(gateKey(c), t.Name, page)
			c.Redirect(http.StatusSeeOther, page)
			return
		}

		input := make(map[string]string, len(t.Fields))
		for _, f := range t.Fields {
			input[f.Name] = truncate(c.PostForm(f.Name), maxInput)
		}
		data := toolData{Tool: t, Input: input, Result: t.run(input)}
		logging.L(c.Request.Context()).Info("tool run", "tool", t.Slug)
		h.render(c, http.StatusOK, "tool", h.newView(c, t.Name, data))
	}
}

// gateKey scopes gate state and redirect intents to the visitor within one
// tenant namespace.
func gateKey(c *gin.Context) string {
	return auth.Visitor(c) + "|" + tenantctx.FromGin(c).Tenant.Key()
}

// Gate handles POST <prefix>/gate with the visitor's choice.
func (h *Handler) Gate(c *gin.Context) {
	tc := tenantctx.FromGin(c)
	visitor := gateKey(c)
	back := h.gate.State(visitor).RedirectPath
	if back == "" {
		back = tc.URLFor("/")
	}

	target, err := h.gate.Choose(c, visitor, authgate.ParseChoice(c.PostForm("choice")), tc.URLFor)
	if err != nil {
		if !errors.Is(err, authgate.ErrGateClosed) {
			logging.L(c.Request.Context()).Warn("auth gate choice failed", "error", err)
		}
		target = ""
	}
	if target == "" {
		target = back
	}
	c.Redirect(http.StatusSeeOther, target)
}

type authData struct {
	Action string
	Email  string
}

// AuthForm handles GET <prefix>/login and <prefix>/register.
func (h *Handler) AuthForm(c *gin.Context) {
	tc := tenantctx.FromGin(c)
	if _, ok := auth.Session(c); ok {
		c.Redirect(http.StatusSeeOther, tc.URLFor("/dashboard"))
		return
	}
	name := router.PageName(c)
	h.render(c, http.StatusOK, "auth", h.newView(c, authTitle(name), authData{Action: "/" + name}))
}

// Login handles POST <prefix>/login.
func (h *Handler) Login(c *gin.Context) { h.signIn(c, "login") }

// Register handles POST <prefix>/register. The demo session has no user
// store, so registering and logging in both just start a session.
func (h *Handler) Register(c *gin.Context) { h.signIn(c, "register") }

func (h *Handler) signIn(c *gin.Context, name string) {
	tc := tenantctx.FromGin(c)
	email := strings.TrimSpace(c.PostForm("email"))

	if _, err := h.sessions.SignIn(c, email); err != nil {
		v := h.newView(c, authTitle(name), authData{Action: "/" + name, Email: email})
		v.Error = "Enter a valid email address."
		h.render(c, http.StatusBadRequest, "auth", v)
		return
	}

	target := h.gate.ConsumeRedirect(c, gateKey(c), tc.URLFor("/dashboard"))
	logging.L(c.Request.Context()).Info("visitor signed in", "via", name)
	c.Redirect(http.StatusSeeOther, target)
}

// Logout handles POST <prefix>/logout.
func (h *Handler) Logout(c *gin.Context) {
	h.sessions.SignOut(c)
	c.Redirect(http.StatusSeeOther, tenantctx.FromGin(c).URLFor("/"))
}

func authTitle(page string) string {
	if page == "register" {
		return "Create your free account"
	}
	return "Log in"
}
