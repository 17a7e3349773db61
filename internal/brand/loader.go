package brand

import (
	"context"
	"log/slog"
	"net/url"
	"slices"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mbd888/careerhub/internal/logging"
	"github.com/mbd888/careerhub/internal/metrics"
	"github.com/mbd888/careerhub/internal/remote"
	"github.com/mbd888/careerhub/internal/tenant"
	"github.com/mbd888/careerhub/internal/traces"
)

// ConfigPath is the backend brand config endpoint.
const ConfigPath = "/api/white-label/config"

// maxHolders bounds the per-tenant cache. Unknown subdomains still get a
// holder (their fallback is cached too), so junk hosts push out the oldest.
const maxHolders = 10_000

// Fetcher is the subset of the remote client the loader needs.
type Fetcher interface {
	GetJSON(ctx context.Context, path string, query url.Values, out any) error
}

// Loader resolves a tenant's branding with a bounded-staleness cache.
type Loader struct {
	fetcher Fetcher
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu         sync.Mutex
	holders    map[string]*Holder
	maxHolders int
	group      singleflight.Group
}

// NewLoader creates a loader. Results, fallbacks included, are reused for ttl.
func NewLoader(fetcher Fetcher, ttl time.Duration, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		fetcher: fetcher,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
		holders:    make(map[string]*Holder),
		maxHolders: maxHolders,
	}
}

// Load returns the branding for id. It never returns nil and never fails:
// network errors, non-2xx answers and malformed bodies yield the default.
// It does not retry; a failed load is cached as the default until the TTL
// passes or the tenant is invalidated. Concurrent loads of one tenant share
// a single fetch.
func (l *Loader) Load(ctx context.Context, id tenant.Identity) *Config {
	if id.IsPlatform() {
		metrics.BrandLoadsTotal.WithLabelValues("platform").Inc()
		return DefaultConfig()
	}

	h := l.holder(id.Key())
	if snap := h.Current(); snap != nil && l.now().Sub(snap.LoadedAt) < l.ttl {
		metrics.BrandLoadsTotal.WithLabelValues("cached").Inc()
		return snap.Config
	}

	ticket := h.Begin()
	key := id.Key() + "#" + strconv.FormatUint(ticket.gen, 10)
	v, _, _ := l.group.Do(key, func() (any, error) {
		// Shared by every waiter, so one caller's cancellation must not
		// abort the fetch for the rest. The client timeout bounds it.
		cfg := l.fetch(context.WithoutCancel(ctx), id)
		if !h.Publish(ticket, cfg, l.now()) {
			metrics.BrandStaleDiscardsTotal.Inc()
			logging.L(ctx).Debug("discarded stale brand config", "tenant", id.Key())
		}
		return cfg, nil
	})
	return v.(*Config)
}

func (l *Loader) fetch(ctx context.Context, id tenant.Identity) *Config {
	ctx, span := traces.StartSpan(ctx, "brand.load",
		traces.TenantKind(id.Kind.String()), traces.TenantSubdomain(id.Subdomain))
	defer span.End()

	start := l.now()
	var doc tenant.Branding
	err := l.fetcher.GetJSON(ctx, ConfigPath, url.Values{"subdomain": {id.Subdomain}}, &doc)
	metrics.BrandFetchDuration.Observe(l.now().Sub(start).Seconds())

	if err != nil {
		reason := remote.Reason(err)
		span.SetAttributes(traces.Fallback(reason))
		metrics.BrandLoadsTotal.WithLabelValues("fallback").Inc()
		logging.L(ctx).Warn("brand config unavailable, using default branding",
			"tenant", id.Key(), "reason", reason, "error", err)
		return DefaultConfig()
	}

	metrics.BrandLoadsTotal.WithLabelValues("fetched").Inc()
	return Merge(DefaultConfig(), doc)
}

// Invalidate drops id's cached config; the next Load fetches again and any
// load already in flight is not published.
func (l *Loader) Invalidate(id tenant.Identity) {
	if id.IsPlatform() {
		return
	}
	l.mu.Lock()
	h, ok := l.holders[id.Key()]
	l.mu.Unlock()
	if ok {
		h.Invalidate()
	}
}

// InvalidateSubdomain drops the config for both namespaces a subdomain can
// be served under.
func (l *Loader) InvalidateSubdomain(sub string) {
	l.Invalidate(tenant.Reseller(sub))
	l.Invalidate(tenant.Partner(sub))
}

func (l *Loader) holder(key string) *Holder {
	l.mu.Lock()
	defer l.mu.Unlock()

	if h, ok := l.holders[key]; ok {
		return h
	}
	if len(l.holders) >= l.maxHolders {
		l.sweepLocked()
	}
	h := &Holder{}
	l.holders[key] = h
	return h
}

// sweepLocked removes holders whose snapshot is expired. If that leaves the
// cache above nine tenths of its bound, the least recently loaded holders go
// too, so the next sweep is a tenth of the bound away.
func (l *Loader) sweepLocked() {
	now := l.now()
	type aged struct {
		key string
		at  time.Time
	}
	live := make([]aged, 0, len(l.holders))
	for k, h := range l.holders {
		snap := h.Current()
		switch {
		case snap == nil:
			// Still loading; oldest possible so it goes first.
			live = append(live, aged{key: k})
		case now.Sub(snap.LoadedAt) >= l.ttl:
			delete(l.holders, k)
		default:
			live = append(live, aged{key: k, at: snap.LoadedAt})
		}
	}

	target := l.maxHolders - max(l.maxHolders/10, 1)
	if len(live) <= target {
		return
	}
	slices.SortFunc(live, func(a, b aged) int { return a.at.Compare(b.at) })
	for _, e := range live[:len(live)-target] {
		delete(l.holders, e.key)
	}
	metrics.BrandEvictionsTotal.Add(float64(len(live) - target))
}
