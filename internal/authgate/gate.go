// Package authgate is the soft auth gate: a prompt shown when a signed-out
// visitor runs a free tool, offering to register, log in, or continue. The
// page the visitor wanted is kept as a redirect intent and consumed once
// after they authenticate.
package authgate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/careerhub/internal/logging"
	"github.com/mbd888/careerhub/internal/metrics"
	"github.com/mbd888/careerhub/internal/validation"
)

var ErrGateClosed = errors.New("authgate: gate is not open")

// Choice is the visitor's answer to the gate.
type Choice uint8

const (
	ChoiceLater Choice = iota
	ChoiceRegister
	ChoiceLogin
)

// ParseChoice maps a form value to a Choice. Unknown values mean later.
func ParseChoice(s string) Choice {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "register":
		return ChoiceRegister
	case "login":
		return ChoiceLogin
	default:
		return ChoiceLater
	}
}

func (c Choice) String() string {
	switch c {
	case ChoiceRegister:
		return "register"
	case ChoiceLogin:
		return "login"
	default:
		return "later"
	}
}

// State is one visitor's gate. The zero value is closed.
type State struct {
	IsOpen       bool   `json:"isOpen"`
	ToolName     string `json:"toolName,omitempty"`
	RedirectPath string `json:"redirectPath,omitempty"`
}

type entry struct {
	state    State
	openedAt time.Time
}

// DefaultStateTTL bounds how long an unanswered gate stays open.
const DefaultStateTTL = 30 * time.Minute

const sweepThreshold = 1024

// Gate tracks open gates per visitor and hands redirect intents to an
// IntentStore.
type Gate struct {
	intents IntentStore
	ttl     time.Duration
	now     func() time.Time

	mu     sync.Mutex
	states map[string]entry
}

// New creates a gate. ttl <= 0 uses DefaultStateTTL.
func New(intents IntentStore, ttl time.Duration) *Gate {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &Gate{
		intents: intents,
		ttl:     ttl,
		now:     time.Now,
		states:  make(map[string]entry),
	}
}

// State returns the visitor's gate.
func (g *Gate) State(visitor string) State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.currentLocked(visitor)
}

func (g *Gate) currentLocked(visitor string) State {
	e, ok := g.states[visitor]
	if !ok {
		return State{}
	}
	if g.now().Sub(e.openedAt) >= g.ttl {
		delete(g.states, visitor)
		return State{}
	}
	return e.state
}

// Open shows the gate for tool. If the gate is already open the existing
// state is returned unchanged and opened is false. A redirect that is not
// a safe local path is dropped.
func (g *Gate) Open(visitor, tool, redirect string) (state State, opened bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if cur := g.currentLocked(visitor); cur.IsOpen {
		metrics.AuthGateEventsTotal.WithLabelValues("already_open").Inc()
		return cur, false
	}
	if !SafeRedirect(redirect) {
		redirect = ""
	}
	state = State{IsOpen: true, ToolName: tool, RedirectPath: redirect}
	g.states[visitor] = entry{state: state, openedAt: g.now()}
	if len(g.states) > sweepThreshold {
		g.sweepLocked()
	}
	metrics.AuthGateEventsTotal.WithLabelValues("opened").Inc()
	return state, true
}

// Choose closes the gate. For register and login it first stores the
// redirect intent and returns the tenant-scoped auth page from urlFor; for
// later it returns "". Choosing on a closed gate is ErrGateClosed, except
// later, which is always a no-op close.
func (g *Gate) Choose(c *gin.Context, visitor string, choice Choice, urlFor func(string) string) (string, error) {
	g.mu.Lock()
	state := g.currentLocked(visitor)
	delete(g.states, visitor)
	g.mu.Unlock()

	if choice == ChoiceLater {
		if state.IsOpen {
			metrics.AuthGateEventsTotal.WithLabelValues("later").Inc()
		}
		return "", nil
	}
	if !state.IsOpen {
		return "", ErrGateClosed
	}

	if state.RedirectPath != "" {
		if err := g.intents.Set(c, visitor, state.RedirectPath); err != nil {
			// Losing the intent only costs the post-auth redirect.
			logging.L(c.Request.Context()).Warn("failed to store redirect intent", "error", err)
		}
	}
	metrics.AuthGateEventsTotal.WithLabelValues(choice.String()).Inc()

	if choice == ChoiceRegister {
		return urlFor("/register"), nil
	}
	return urlFor("/login"), nil
}

// ConsumeRedirect returns the visitor's stored intent, clearing it, or
// fallback when there is none or it is unsafe. Called by the login and
// register success handlers.
func (g *Gate) ConsumeRedirect(c *gin.Context, visitor, fallback string) string {
	path, err := g.intents.Consume(c, visitor)
	if err != nil {
		if !errors.Is(err, ErrNoIntent) {
			logging.L(c.Request.Context()).Warn("failed to read redirect intent", "error", err)
		}
		return fallback
	}
	if !SafeRedirect(path) {
		metrics.AuthGateEventsTotal.WithLabelValues("rejected").Inc()
		logging.L(c.Request.Context()).Warn("dropped unsafe redirect intent", "path", path)
		return fallback
	}
	metrics.AuthGateEventsTotal.WithLabelValues("redirected").Inc()
	return path
}

// SafeRedirect reports whether p may be used as a post-auth redirect: a
// local path that is not itself a login or register page.
func SafeRedirect(p string) bool {
	if !validation.IsLocalPath(p) {
		return false
	}
	path := p
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimRight(path, "/")
	return !strings.HasSuffix(path, "/login") && !strings.HasSuffix(path, "/register")
}

func (g *Gate) sweepLocked() {
	now := g.now()
	for k, e := range g.states {
		if now.Sub(e.openedAt) >= g.ttl {
			delete(g.states, k)
		}
	}
}

// Ping reports whether the intent store is reachable.
func (g *Gate) Ping(ctx context.Context) error {
	if p, ok := g.intents.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}
