// Package brand loads a tenant's branding and publishes it as an immutable
// value. Loading never fails: every error degrades to the platform default.
package brand

import (
	"strings"

	"github.com/mbd888/careerhub/internal/tenant"
	"github.com/mbd888/careerhub/internal/validation"
)

// Feature is a flag that switches a product area on for a tenant.
type Feature string

const (
	FeatureTalentPool    Feature = "talent_pool"
	FeatureLinkedInTools Feature = "linkedin_tools"
	FeatureJobBoard      Feature = "job_board"
	FeatureBooking       Feature = "booking"
	FeatureCoverLetter   Feature = "cover_letter"
)

var knownFeatures = map[Feature]struct{}{
	FeatureTalentPool:    {},
	FeatureLinkedInTools: {},
	FeatureJobBoard:      {},
	FeatureBooking:       {},
	FeatureCoverLetter:   {},
}

// KnownFeature reports whether f is a flag this build understands.
func KnownFeature(f Feature) bool {
	_, ok := knownFeatures[f]
	return ok
}

// Config is a tenant's resolved branding. It is never mutated after
// construction; the set-valued fields are unexported and read through
// methods so holders of a *Config cannot change it.
type Config struct {
	SiteName       string
	BrandName      string
	PrimaryColor   string
	SecondaryColor string
	ContactEmail   string
	ContactPhone   string
	ContactAddress string

	features         map[Feature]struct{}
	pricingOverrides map[string]int64
}

// DefaultConfig returns a fresh copy of the platform branding.
func DefaultConfig() *Config {
	return &Config{
		SiteName:       "CareerHub",
		BrandName:      "CareerHub",
		PrimaryColor:   "#2563eb",
		SecondaryColor: "#0f172a",
		ContactEmail:   "support@careerhub.io",
		ContactPhone:   "+44 20 7946 0321",
		ContactAddress: "1 Canada Square, London E14 5AB, United Kingdom",
		features: map[Feature]struct{}{
			FeatureLinkedInTools: {},
			FeatureJobBoard:      {},
			FeatureBooking:       {},
			FeatureCoverLetter:   {},
		},
	}
}

// Has reports whether feature f is enabled.
func (c *Config) Has(f Feature) bool {
	_, ok := c.features[f]
	return ok
}

// PriceOverride returns the tenant's price in cents for tierID, if any.
func (c *Config) PriceOverride(tierID string) (int64, bool) {
	cents, ok := c.pricingOverrides[tierID]
	return cents, ok
}

// Complete reports whether every display field is populated.
func (c *Config) Complete() bool {
	return c.SiteName != "" && c.BrandName != "" &&
		c.PrimaryColor != "" && c.SecondaryColor != "" &&
		c.ContactEmail != "" && c.ContactPhone != "" && c.ContactAddress != "" &&
		len(c.features) > 0
}

// Merge layers a remote config document over base and returns a new Config.
// Per field:
//
//	strings         remote when non-blank after trimming
//	colours         remote when a valid hex colour
//	features        remote set when it names at least one known flag
//	price overrides each positive remote entry with a non-empty tier id
//
// base is not modified.
func Merge(base *Config, doc tenant.Branding) *Config {
	out := &Config{
		SiteName:         pickString(base.SiteName, doc.SiteName),
		BrandName:        pickString(base.BrandName, doc.BrandName),
		PrimaryColor:     pickColor(base.PrimaryColor, doc.PrimaryColor),
		SecondaryColor:   pickColor(base.SecondaryColor, doc.SecondaryColor),
		ContactEmail:     pickString(base.ContactEmail, doc.ContactEmail),
		ContactPhone:     pickString(base.ContactPhone, doc.ContactPhone),
		ContactAddress:   pickString(base.ContactAddress, doc.ContactAddress),
		features:         base.features,
		pricingOverrides: base.pricingOverrides,
	}

	if remote := knownSet(doc.Features); len(remote) > 0 {
		out.features = remote
	}

	if len(doc.PricingOverrides) > 0 {
		merged := make(map[string]int64, len(base.pricingOverrides)+len(doc.PricingOverrides))
		for k, v := range base.pricingOverrides {
			merged[k] = v
		}
		for k, v := range doc.PricingOverrides {
			if k = strings.TrimSpace(k); k != "" && v > 0 {
				merged[k] = v
			}
		}
		if len(merged) > 0 {
			out.pricingOverrides = merged
		}
	}
	return out
}

func pickString(base, remote string) string {
	if r := strings.TrimSpace(remote); r != "" {
		return r
	}
	return base
}

func pickColor(base, remote string) string {
	if r := strings.TrimSpace(remote); validation.IsHexColor(r) {
		return strings.ToLower(r)
	}
	return base
}

func knownSet(flags []string) map[Feature]struct{} {
	set := make(map[Feature]struct{}, len(flags))
	for _, raw := range flags {
		f := Feature(strings.ToLower(strings.TrimSpace(raw)))
		if KnownFeature(f) {
			set[f] = struct{}{}
		}
	}
	return set
}
