package tenant

import "strings"

// Kind discriminates the tenant identity variants.
type Kind uint8

const (
	KindPlatform Kind = iota
	KindReseller
	KindPartner
)

func (k Kind) String() string {
	switch k {
	case KindReseller:
		return "reseller"
	case KindPartner:
		return "partner"
	default:
		return "platform"
	}
}

// PartnerPathPrefix is the path namespace for partner tenants.
const PartnerPathPrefix = "/partner/"

// Identity is the tenant a request belongs to. The zero value is Platform.
// Subdomain is empty for Platform and non-empty otherwise.
type Identity struct {
	Kind      Kind
	Subdomain string
}

func Platform() Identity { return Identity{} }

func Reseller(subdomain string) Identity {
	return Identity{Kind: KindReseller, Subdomain: subdomain}
}

func Partner(subdomain string) Identity {
	return Identity{Kind: KindPartner, Subdomain: subdomain}
}

func (id Identity) IsPlatform() bool { return id.Kind == KindPlatform }

// Key is a stable cache and log key: "platform", "reseller:acme", "partner:acme".
func (id Identity) Key() string {
	if id.IsPlatform() {
		return "platform"
	}
	return id.Kind.String() + ":" + id.Subdomain
}

func (id Identity) String() string { return id.Key() }

// Prefix is the path namespace of the identity. Resellers are scoped by their
// own host, so only partners carry a path prefix.
func (id Identity) Prefix() string {
	if id.Kind == KindPartner {
		return strings.TrimSuffix(PartnerPathPrefix, "/") + "/" + id.Subdomain
	}
	return ""
}

// URLFor places a logical path inside the identity's namespace.
func (id Identity) URLFor(path string) string {
	return JoinPath(id.Prefix(), path)
}

// JoinPath prefixes a logical path with base. The logical root maps to the
// bare base so "/partner/acme" rather than "/partner/acme/".
func JoinPath(base, path string) string {
	if path == "" || path[0] != '/' {
		path = "/" + path
	}
	if base == "" {
		return path
	}
	if path == "/" {
		return base
	}
	if path[1] == '?' || path[1] == '#' {
		return base + path[1:]
	}
	return base + path
}
