// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/mbd888/careerhub/internal/auth"
	"github.com/mbd888/careerhub/internal/authgate"
	"github.com/mbd888/careerhub/internal/brand"
	"github.com/mbd888/careerhub/internal/circuitbreaker"
	"github.com/mbd888/careerhub/internal/config"
	"github.com/mbd888/careerhub/internal/health"
	"github.com/mbd888/careerhub/internal/idgen"
	"github.com/mbd888/careerhub/internal/logging"
	"github.com/mbd888/careerhub/internal/metrics"
	"github.com/mbd888/careerhub/internal/pages"
	"github.com/mbd888/careerhub/internal/pricing"
	"github.com/mbd888/careerhub/internal/ratelimit"
	"github.com/mbd888/careerhub/internal/realtime"
	"github.com/mbd888/careerhub/internal/remote"
	"github.com/mbd888/careerhub/internal/retry"
	"github.com/mbd888/careerhub/internal/router"
	"github.com/mbd888/careerhub/internal/security"
	"github.com/mbd888/careerhub/internal/tenant"
	"github.com/mbd888/careerhub/internal/tenantctx"
	"github.com/mbd888/careerhub/internal/traces"
	"github.com/mbd888/careerhub/internal/validation"
	"github.com/mbd888/careerhub/migrations"
)

const (
	sessionTTL = 7 * 24 * time.Hour

	breakerThreshold = 5
	breakerOpenFor   = 30 * time.Second
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Fetcher issues the loaders' remote GETs. *remote.Client implements it.
type Fetcher interface {
	GetJSON(ctx context.Context, path string, query url.Values, out any) error
}

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg     *config.Config
	version string

	db           *sql.DB       // nil if using in-memory
	redis        *redis.Client // nil without REDIS_URL
	tenants      tenant.Store
	prices       pricing.Store
	fetcher      Fetcher
	remote       *remote.Client
	resolver     *tenant.Resolver
	brands       *brand.Loader
	pricing      *pricing.Loader
	formatter    *pricing.Formatter
	sessions     *auth.Manager
	gate         *authgate.Gate
	intents      authgate.IntentStore
	realtimeHub  *realtime.Hub
	pages        *pages.Handler
	health       *health.Registry
	rateLimiter  *ratelimit.Limiter
	router       *gin.Engine
	httpSrv      *http.Server
	logger       *slog.Logger
	stopTracing  func(context.Context) error
	cancelRunCtx context.CancelFunc // cancels background goroutines started in Run
	drainDelay   time.Duration

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithVersion sets the version reported by /health and traces.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithTenantStore replaces the configured tenant store (for testing)
func WithTenantStore(store tenant.Store) Option {
	return func(s *Server) {
		s.tenants = store
	}
}

// WithPricingStore replaces the configured pricing store (for testing)
func WithPricingStore(store pricing.Store) Option {
	return func(s *Server) {
		s.prices = store
	}
}

// WithFetcher replaces the remote config client used by the brand and
// pricing loaders (for testing)
func WithFetcher(f Fetcher) Option {
	return func(s *Server) {
		s.fetcher = f
	}
}

// WithIntentStore replaces the post-auth redirect store (for testing)
func WithIntentStore(store authgate.IntentStore) Option {
	return func(s *Server) {
		s.intents = store
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:        cfg,
		version:    "dev",
		logger:     logging.New(cfg.LogLevel, cfg.LogFormat),
		drainDelay: 5 * time.Second,
	}

	// Apply options first (may set stores/logger)
	for _, opt := range opts {
		opt(s)
	}

	// Context for initialization
	ctx := context.Background()

	stopTracing, err := traces.Init(ctx, cfg.OTLPEndpoint, s.version, s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}
	s.stopTracing = stopTracing

	if err := s.setupStorage(ctx); err != nil {
		return nil, err
	}
	if err := s.setupIntents(ctx); err != nil {
		return nil, err
	}

	if cfg.TenantSeedFile != "" {
		n, err := tenant.LoadSeedFile(ctx, s.tenants, cfg.TenantSeedFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load tenant seed: %w", err)
		}
		s.logger.Info("tenant seed loaded", "file", cfg.TenantSeedFile, "tenants", n)
	}

	// Remote config loaders. The endpoints are served by this process by
	// default but are only reached over HTTP.
	if s.fetcher == nil {
		s.remote = remote.New(cfg.ConfigAPIURL, cfg.FetchTimeout, circuitbreaker.New(breakerThreshold, breakerOpenFor))
		s.fetcher = s.remote
		s.logger.Info("remote config client configured", "base_url", cfg.ConfigAPIURL)
	}
	s.brands = brand.NewLoader(s.fetcher, cfg.BrandCacheTTL, s.logger)
	s.pricing = pricing.NewLoader(s.fetcher, cfg.PricingCacheTTL, s.logger)

	s.formatter, err = pricing.NewFormatter(cfg.Currency, cfg.Locale)
	if err != nil {
		return nil, fmt.Errorf("invalid currency settings: %w", err)
	}

	s.resolver = tenant.NewResolver(cfg.ApexDomain, cfg.ReservedLabels, s.logger)
	s.sessions = auth.NewManager(cfg.SessionSecret, sessionTTL, cfg.IsProduction())
	s.gate = authgate.New(s.intents, cfg.RedirectIntentTTL)

	// Create realtime hub for brand change push
	s.realtimeHub = realtime.NewHub(s.logger)

	s.pages, err = pages.New(s.pricing, s.gate, s.sessions, s.realtimeHub, s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page templates: %w", err)
	}

	s.setupHealth()

	// Configure gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// setupStorage opens Postgres when DATABASE_URL is set, otherwise in-memory
// stores are used. Stores injected by options are kept.
func (s *Server) setupStorage(ctx context.Context) error {
	if s.cfg.DatabaseURL == "" {
		if s.tenants == nil {
			s.tenants = tenant.NewMemoryStore()
		}
		if s.prices == nil {
			s.prices = pricing.NewMemoryStore()
		}
		s.logger.Info("using in-memory storage (data will not persist)")
		return nil
	}

	db, err := sql.Open("postgres", s.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := retry.Do(ctx, s.retryPolicy("database"), func(ctx context.Context) error {
		return db.PingContext(ctx)
	}); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if s.cfg.AutoMigrate {
		if err := migrations.Up(ctx, db); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		s.logger.Info("database migrations applied")
	}

	s.db = db
	if s.tenants == nil {
		s.tenants = tenant.NewPostgresStore(db)
	}
	if s.prices == nil {
		s.prices = pricing.NewPostgresStore(db)
	}
	s.logger.Info("using PostgreSQL storage", "url", maskDSN(s.cfg.DatabaseURL))
	return nil
}

// setupIntents picks the post-auth redirect store: Redis when REDIS_URL is
// set, a signed cookie in production, process memory otherwise.
func (s *Server) setupIntents(ctx context.Context) error {
	if s.intents != nil {
		return nil
	}
	switch {
	case s.cfg.RedisURL != "":
		opts, err := redis.ParseURL(s.cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		if err := retry.Do(ctx, s.retryPolicy("redis"), func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}); err != nil {
			_ = client.Close()
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		s.redis = client
		s.intents = authgate.NewRedisIntentStore(client, s.cfg.RedirectIntentTTL)
		s.logger.Info("redirect intents stored in redis")
	case s.cfg.IsProduction():
		s.intents = authgate.NewCookieIntentStore(s.cfg.SessionSecret, s.cfg.RedirectIntentTTL, true)
		s.logger.Info("redirect intents stored in signed cookies")
	default:
		s.intents = authgate.NewMemoryIntentStore(s.cfg.RedirectIntentTTL)
		s.logger.Info("redirect intents stored in memory")
	}
	return nil
}

func (s *Server) retryPolicy(dep string) retry.Policy {
	p := retry.DefaultPolicy()
	p.OnRetry = func(attempt int, err error, sleep time.Duration) {
		s.logger.Warn("dependency not reachable, retrying",
			"dependency", dep,
			"attempt", attempt,
			"backoff_ms", sleep.Milliseconds(),
			"error", err,
		)
	}
	return p
}

func (s *Server) setupHealth() {
	s.health = health.NewRegistry(2 * time.Second)
	if s.db != nil {
		s.health.Register("database", health.PingChecker("database", s.db.PingContext))
	}
	if s.redis != nil {
		s.health.Register("redis", health.PingChecker("redis", s.gate.Ping))
	}
	if s.remote != nil {
		s.health.RegisterOptional("config_api", func(context.Context) health.Status {
			ok, detail := s.remote.HealthDetail(brand.ConfigPath, pricing.TiersPath, pricing.PlansPath)
			return health.Status{Name: "config_api", Healthy: ok, Detail: detail}
		})
	}
}

// maskDSN hides password in connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Security headers (CSP nonce for the layout scripts)
	s.router.Use(security.HeadersMiddleware())

	// Request size limit (1MB)
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())

	// Rate limiting is attached per route group in setupRoutes. The
	// collaborator reads under /api come from the loaders themselves and
	// must not share a bucket with visitors.
	s.rateLimiter = ratelimit.New(ratelimit.Config{
		RequestsPerMinute: s.cfg.RateLimitRPM,
		BurstSize:         max(s.cfg.RateLimitRPM/10, 10),
		CleanupInterval:   time.Minute,
	})
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" || len(requestID) > 64 {
			requestID = idgen.Hex(16)
		}

		// Add to context
		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		// Set response header
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		// Log level based on status code
		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"host", c.Request.Host,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"host", c.Request.Host,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"host", c.Request.Host,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// Health & metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// Backend collaborator endpoints the loaders read
	api := s.router.Group("/api", security.APICORS(s.cfg.CORSOrigins))
	api.GET("", s.infoHandler)
	tenantHandler := tenant.NewHandler(s.tenants, s.resolver, s.brandChanged)
	pricingHandler := pricing.NewHandler(s.prices, s.pricingChanged)
	tenantHandler.RegisterRoutes(api)
	pricingHandler.RegisterRoutes(api)

	// Admin routes (X-Admin-Secret)
	admin := api.Group("/admin",
		s.rateLimiter.Middleware(ratelimit.ByClientIP),
		security.RequireAdminSecret(s.cfg.AdminSecret))
	tenantHandler.RegisterAdminRoutes(admin)
	pricingHandler.RegisterAdminRoutes(admin)

	// Pages, mounted under the root, reseller dashboard and partner
	// namespaces. Every page sees a resolved tenant context.
	site := s.router.Group("", s.siteMiddleware()...)
	router.Register(site, s.pages.Manifest(), router.Mounts())

	s.router.NoRoute(append(s.siteMiddleware(), s.notFound)...)
}

// siteMiddleware limits before resolving the tenant, so a rejected request
// never triggers a brand fetch.
func (s *Server) siteMiddleware() []gin.HandlerFunc {
	return []gin.HandlerFunc{
		s.rateLimiter.Middleware(ratelimit.ByClientIP),
		tenantctx.Middleware(s.resolver, s.brands, s.formatter),
		auth.Middleware(s.sessions),
	}
}

func (s *Server) notFound(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "No such endpoint"})
		return
	}
	s.pages.NotFound(c)
}

// brandChanged drops the cached brand and tells open pages of that tenant
// to reload.
func (s *Server) brandChanged(ctx context.Context, subdomain string) {
	s.brands.InvalidateSubdomain(subdomain)
	s.realtimeHub.BrandChanged(subdomain)
	logging.L(ctx).Info("brand revalidated", "subdomain", subdomain)
}

func (s *Server) pricingChanged() {
	s.pricing.Invalidate()
	s.realtimeHub.PricingChanged()
	s.logger.Info("pricing revalidated")
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

// HealthResponse for health check endpoints
type HealthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Checks    []health.Status `json:"checks,omitempty"`
	Realtime  map[string]any  `json:"realtime,omitempty"`
	Timestamp string          `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	ready, checks := s.health.CheckAll(c.Request.Context())

	status := "healthy"
	httpStatus := http.StatusOK
	if !ready {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   s.version,
		Checks:    checks,
		Realtime:  s.realtimeHub.Stats(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	s.health.ReadinessHandler(c)
}

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "CareerHub",
		"description": "White-label career services front end",
		"version":     s.version,
		"apexDomain":  s.cfg.ApexDomain,
		"currency":    s.formatter.Currency(),
	})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server with graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	// Create a cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Channel to catch server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		s.logger.Info("starting server",
			"port", s.cfg.Port,
			"apex_domain", s.cfg.ApexDomain,
		)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Start realtime hub
	go s.realtimeHub.Run(runCtx)

	// Sample connection pool stats
	if s.db != nil {
		go metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Cancel the context for all background goroutines (hub, collectors)
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	// Give load balancers time to stop sending traffic
	time.Sleep(s.drainDelay)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
		s.logger.Info("rate limiter stopped")
	}

	if err := s.stopTracing(ctx); err != nil {
		s.logger.Error("trace flush error", "error", err)
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("redis close error", "error", err)
		}
	}

	// Close database connection pool
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}
