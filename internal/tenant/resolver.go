package tenant

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/mbd888/careerhub/internal/validation"
)

// Resolver maps a request URL to an Identity. It holds only configuration,
// so Resolve is a pure function of host and path.
type Resolver struct {
	apex     string
	reserved map[string]struct{}
	logger   *slog.Logger
}

// NewResolver creates a resolver for subdomains of apex. Labels in reserved
// (e.g. "www", "app") never name a tenant.
func NewResolver(apex string, reserved []string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{
		apex:     strings.TrimSuffix(strings.ToLower(apex), "."),
		reserved: make(map[string]struct{}, len(reserved)),
		logger:   logger,
	}
	for _, l := range reserved {
		r.reserved[strings.ToLower(strings.TrimSpace(l))] = struct{}{}
	}
	return r
}

// Apex returns the platform's apex domain.
func (r *Resolver) Apex() string { return r.apex }

// ResolveRequest resolves using the request's Host header and URL path.
func (r *Resolver) ResolveRequest(req *http.Request) Identity {
	return r.Resolve(req.Host, req.URL.Path)
}

// Resolve applies, in order: a /partner/<segment> path, a non-reserved
// subdomain of the apex, then Platform. A malformed partner segment degrades
// to Platform with a warning.
func (r *Resolver) Resolve(host, path string) Identity {
	if seg, ok := partnerSegment(path); ok {
		sub := validation.SanitizeLabel(seg)
		if !validation.IsValidLabel(sub) {
			r.logger.Warn("malformed partner path segment, using platform",
				"path", path, "segment", seg)
			return Platform()
		}
		return Partner(sub)
	}

	if label, ok := r.subdomainLabel(host); ok {
		return Reseller(label)
	}
	return Platform()
}

// partnerSegment reports whether path is inside the partner namespace and
// returns its first segment (possibly empty).
func partnerSegment(path string) (string, bool) {
	if path == strings.TrimSuffix(PartnerPathPrefix, "/") {
		return "", true
	}
	rest, ok := strings.CutPrefix(path, PartnerPathPrefix)
	if !ok {
		return "", false
	}
	seg, _, _ := strings.Cut(rest, "/")
	return seg, true
}

// subdomainLabel returns the label directly left of the apex.
func (r *Resolver) subdomainLabel(host string) (string, bool) {
	h := normalizeHost(host)
	if h == "" || h == r.apex {
		return "", false
	}
	rest, ok := strings.CutSuffix(h, "."+r.apex)
	if !ok || rest == "" {
		return "", false
	}
	label := rest
	if i := strings.LastIndexByte(rest, '.'); i >= 0 {
		label = rest[i+1:]
	}
	if _, reserved := r.reserved[label]; reserved {
		return "", false
	}
	if !validation.IsValidLabel(label) {
		r.logger.Debug("host label is not a valid subdomain, using platform", "host", host)
		return "", false
	}
	return label, true
}

// normalizeHost strips any port, lowercases and drops a trailing dot.
func normalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	return strings.TrimSuffix(strings.ToLower(host), ".")
}
