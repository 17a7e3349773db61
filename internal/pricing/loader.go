package pricing

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mbd888/careerhub/internal/logging"
	"github.com/mbd888/careerhub/internal/metrics"
	"github.com/mbd888/careerhub/internal/remote"
	"github.com/mbd888/careerhub/internal/traces"
)

const (
	TiersPath = "/api/pricing"
	PlansPath = "/api/white-label/plans"
)

// Fetcher is the subset of the remote client the loader needs.
type Fetcher interface {
	GetJSON(ctx context.Context, path string, query url.Values, out any) error
}

type cached[T any] struct {
	value T
	at    time.Time
}

// Loader serves tiers and partner plans with a TTL cache. Like the brand
// loader it never fails: any fetch error yields the static table.
type Loader struct {
	fetcher Fetcher
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger

	mu    sync.Mutex
	gen   uint64
	tiers *cached[[]Tier]
	plans *cached[[]Plan]
	group singleflight.Group
}

func NewLoader(fetcher Fetcher, ttl time.Duration, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{fetcher: fetcher, ttl: ttl, now: time.Now, logger: logger}
}

// Tiers returns the local table with remote overrides merged in.
func (l *Loader) Tiers(ctx context.Context) []Tier {
	l.mu.Lock()
	if c := l.tiers; c != nil && l.now().Sub(c.at) < l.ttl {
		l.mu.Unlock()
		metrics.PricingLoadsTotal.WithLabelValues("tiers", "cached").Inc()
		return cloneTiers(c.value)
	}
	gen := l.gen
	l.mu.Unlock()

	v, _, _ := l.group.Do("tiers#"+strconv.FormatUint(gen, 10), func() (any, error) {
		tiers := l.fetchTiers(context.WithoutCancel(ctx))
		l.mu.Lock()
		if gen == l.gen {
			l.tiers = &cached[[]Tier]{value: tiers, at: l.now()}
		}
		l.mu.Unlock()
		return tiers, nil
	})
	return cloneTiers(v.([]Tier))
}

// TiersFor returns Tiers with a tenant's price overrides applied.
func (l *Loader) TiersFor(ctx context.Context, overrides PriceOverrides) []Tier {
	return ApplyOverrides(l.Tiers(ctx), overrides)
}

// Plans returns the partner plans, or DefaultPlans when the endpoint fails
// or lists nothing usable.
func (l *Loader) Plans(ctx context.Context) []Plan {
	l.mu.Lock()
	if c := l.plans; c != nil && l.now().Sub(c.at) < l.ttl {
		l.mu.Unlock()
		metrics.PricingLoadsTotal.WithLabelValues("plans", "cached").Inc()
		return clonePlans(c.value)
	}
	gen := l.gen
	l.mu.Unlock()

	v, _, _ := l.group.Do("plans#"+strconv.FormatUint(gen, 10), func() (any, error) {
		plans := l.fetchPlans(context.WithoutCancel(ctx))
		l.mu.Lock()
		if gen == l.gen {
			l.plans = &cached[[]Plan]{value: plans, at: l.now()}
		}
		l.mu.Unlock()
		return plans, nil
	})
	return clonePlans(v.([]Plan))
}

// Invalidate drops both caches. Fetches in flight are not cached.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	l.tiers = nil
	l.plans = nil
}

func (l *Loader) fetchTiers(ctx context.Context) []Tier {
	ctx, span := traces.StartSpan(ctx, "pricing.tiers")
	defer span.End()

	var doc Document
	if err := l.fetcher.GetJSON(ctx, TiersPath, nil, &doc); err != nil {
		reason := remote.Reason(err)
		span.SetAttributes(traces.Fallback(reason))
		metrics.PricingLoadsTotal.WithLabelValues("tiers", "fallback").Inc()
		logging.L(ctx).Warn("pricing unavailable, using local tiers", "reason", reason, "error", err)
		return DefaultTiers()
	}
	metrics.PricingLoadsTotal.WithLabelValues("tiers", "fetched").Inc()
	return MergeTiers(DefaultTiers(), doc.Tiers)
}

func (l *Loader) fetchPlans(ctx context.Context) []Plan {
	ctx, span := traces.StartSpan(ctx, "pricing.plans")
	defer span.End()

	fallback := func(reason string, err error) []Plan {
		span.SetAttributes(traces.Fallback(reason))
		metrics.PricingLoadsTotal.WithLabelValues("plans", "fallback").Inc()
		logging.L(ctx).Warn("partner plans unavailable, using default plans", "reason", reason, "error", err)
		return DefaultPlans()
	}

	var list planList
	if err := l.fetcher.GetJSON(ctx, PlansPath, nil, &list); err != nil {
		return fallback(remote.Reason(err), err)
	}

	plans := make([]Plan, 0, len(list))
	for _, p := range list {
		if ValidPlan(p) {
			plans = append(plans, p)
		}
	}
	if len(plans) == 0 {
		return fallback("empty", nil)
	}
	metrics.PricingLoadsTotal.WithLabelValues("plans", "fetched").Inc()
	return plans
}

func cloneTiers(in []Tier) []Tier {
	out := make([]Tier, len(in))
	for i, t := range in {
		out[i] = t.clone()
	}
	return out
}

func clonePlans(in []Plan) []Plan {
	out := make([]Plan, len(in))
	for i, p := range in {
		p.Features = append([]string(nil), p.Features...)
		out[i] = p
	}
	return out
}
