// Package pricing holds the service tier table, partner plans, their remote
// override merge and price formatting.
package pricing

import (
	"errors"
	"strings"
)

var (
	ErrTierNotFound = errors.New("pricing: tier not found")
	ErrPlanNotFound = errors.New("pricing: plan not found")
)

// TierID identifies a tier. It never changes through overrides.
type TierID string

// Tier is a priced bundle of services offered to end customers.
type Tier struct {
	ID          TierID   `json:"id"`
	Name        string   `json:"name"`
	PriceCents  int64    `json:"priceCents"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
	Popular     bool     `json:"popular"`
	Badge       string   `json:"badge,omitempty"`
	Turnaround  string   `json:"turnaround,omitempty"`
	Support     string   `json:"support"`
}

func (t Tier) clone() Tier {
	t.Features = append([]string(nil), t.Features...)
	return t
}

// DefaultTiers returns a fresh copy of the local tier table, the source of
// truth that remote overrides are layered on.
func DefaultTiers() []Tier {
	return []Tier{
		{
			ID:          "starter",
			Name:        "CV Refresh",
			PriceCents:  4900,
			Description: "A professional review and polish of your existing CV.",
			Features: []string{
				"Line-by-line CV review",
				"ATS keyword check",
				"One round of revisions",
			},
			Turnaround: "3 working days",
			Support:    "Email",
		},
		{
			ID:          "professional",
			Name:        "CV Rewrite",
			PriceCents:  12900,
			Description: "A full rewrite by a specialist writer in your sector.",
			Features: []string{
				"Full CV rewrite",
				"Tailored cover letter",
				"LinkedIn headline and summary",
				"Two rounds of revisions",
			},
			Popular:    true,
			Badge:      "Most popular",
			Turnaround: "5 working days",
			Support:    "Email and phone",
		},
		{
			ID:          "executive",
			Name:        "Executive Package",
			PriceCents:  24900,
			Description: "Senior-level positioning with a one-to-one strategy call.",
			Features: []string{
				"Executive CV and cover letter",
				"Full LinkedIn profile rewrite",
				"45-minute career strategy call",
				"Unlimited revisions for 30 days",
			},
			Turnaround: "7 working days",
			Support:    "Dedicated consultant",
		},
	}
}

// RemoteTier is one entry of the /api/pricing document. Only ID is required;
// absent fields leave the local value alone.
type RemoteTier struct {
	ID          TierID   `json:"id"`
	Price       *int64   `json:"price,omitempty"`
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Features    []string `json:"features,omitempty"`
	Popular     *bool    `json:"popular,omitempty"`
	Badge       string   `json:"badge,omitempty"`
}

// Document is the /api/pricing response body.
type Document struct {
	Tiers []RemoteTier `json:"tiers"`
}

// MergeTiers layers remote entries over local by tier id and returns new
// tiers in local order. Per field, the remote value wins when present:
// price when set and non-negative, strings when non-blank, features when
// non-empty, popular when set. Remote ids with no local tier are ignored,
// and the id itself is never taken from remote.
func MergeTiers(local []Tier, remote []RemoteTier) []Tier {
	byID := make(map[TierID]RemoteTier, len(remote))
	for _, r := range remote {
		if _, dup := byID[r.ID]; !dup {
			byID[r.ID] = r
		}
	}

	out := make([]Tier, len(local))
	for i, l := range local {
		t := l.clone()
		if r, ok := byID[l.ID]; ok {
			if r.Price != nil && *r.Price >= 0 {
				t.PriceCents = *r.Price
			}
			t.Name = pick(t.Name, r.Name)
			t.Description = pick(t.Description, r.Description)
			t.Badge = pick(t.Badge, r.Badge)
			if len(r.Features) > 0 {
				t.Features = append([]string(nil), r.Features...)
			}
			if r.Popular != nil {
				t.Popular = *r.Popular
			}
		}
		out[i] = t
	}
	return out
}

// PriceOverrides looks up a tenant-specific price for a tier.
type PriceOverrides interface {
	PriceOverride(tierID string) (int64, bool)
}

// ApplyOverrides returns tiers with tenant prices applied. A nil overrides
// returns a copy of tiers unchanged.
func ApplyOverrides(tiers []Tier, overrides PriceOverrides) []Tier {
	out := make([]Tier, len(tiers))
	for i, t := range tiers {
		t = t.clone()
		if overrides != nil {
			if cents, ok := overrides.PriceOverride(string(t.ID)); ok {
				t.PriceCents = cents
			}
		}
		out[i] = t
	}
	return out
}

// FindTier returns the tier with id.
func FindTier(tiers []Tier, id TierID) (Tier, error) {
	for _, t := range tiers {
		if t.ID == id {
			return t.clone(), nil
		}
	}
	return Tier{}, ErrTierNotFound
}

func pick(local, remote string) string {
	if r := strings.TrimSpace(remote); r != "" {
		return r
	}
	return local
}
