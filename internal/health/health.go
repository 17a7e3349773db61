// Package health runs named dependency checks for the readiness endpoint.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Status is the result of one check.
type Status struct {
	Name     string `json:"name"`
	Healthy  bool   `json:"healthy"`
	Optional bool   `json:"optional,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// Checker reports the health of one dependency.
type Checker func(ctx context.Context) Status

// PingChecker adapts a ping function (db.PingContext, redis Ping) to a Checker.
func PingChecker(name string, ping func(ctx context.Context) error) Checker {
	return func(ctx context.Context) Status {
		if err := ping(ctx); err != nil {
			return Status{Name: name, Healthy: false, Detail: err.Error()}
		}
		return Status{Name: name, Healthy: true}
	}
}

// Registry holds named checkers.
type Registry struct {
	mu       sync.RWMutex
	checkers []entry
	timeout  time.Duration
}

type entry struct {
	name     string
	optional bool
	check    Checker
}

// NewRegistry creates a registry whose checks are each bounded by timeout.
// A zero timeout means 2s.
func NewRegistry(timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Registry{timeout: timeout}
}

// Register adds a check that must pass for the service to be ready.
func (r *Registry) Register(name string, check Checker) {
	r.add(entry{name: name, check: check})
}

// RegisterOptional adds a check that is reported but never fails readiness.
// The remote config endpoint is optional: loaders degrade to defaults.
func (r *Registry) RegisterOptional(name string, check Checker) {
	r.add(entry{name: name, optional: true, check: check})
}

func (r *Registry) add(e entry) {
	r.mu.Lock()
	r.checkers = append(r.checkers, e)
	r.mu.Unlock()
}

// CheckAll runs every check concurrently. ready is false when any required
// check fails.
func (r *Registry) CheckAll(ctx context.Context) (ready bool, statuses []Status) {
	r.mu.RLock()
	checkers := make([]entry, len(r.checkers))
	copy(checkers, r.checkers)
	r.mu.RUnlock()

	statuses = make([]Status, len(checkers))
	var wg sync.WaitGroup
	for i, e := range checkers {
		wg.Add(1)
		go func(i int, e entry) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()
			s := e.check(cctx)
			s.Name = e.name
			s.Optional = e.optional
			statuses[i] = s
		}(i, e)
	}
	wg.Wait()

	ready = true
	for _, s := range statuses {
		if !s.Healthy && !s.Optional {
			ready = false
		}
	}
	return ready, statuses
}

// ReadinessHandler serves the aggregate status: 200 when ready, 503 otherwise.
func (r *Registry) ReadinessHandler(c *gin.Context) {
	ready, statuses := r.CheckAll(c.Request.Context())
	code := http.StatusOK
	status := "ready"
	if !ready {
		code = http.StatusServiceUnavailable
		status = "not_ready"
	}
	c.JSON(code, gin.H{"status": status, "checks": statuses})
}
