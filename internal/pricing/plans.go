package pricing

import (
	"bytes"
	"encoding/json"
)

// PlanID identifies a partner subscription plan.
type PlanID string

// Plan is a subscription offered to prospective resellers and partners.
type Plan struct {
	ID           PlanID   `json:"id"`
	Name         string   `json:"name"`
	MonthlyCents int64    `json:"monthlyPrice"`
	Description  string   `json:"description"`
	Features     []string `json:"features"`
	MaxClients   int      `json:"maxClients"` // 0 = unlimited
	Popular      bool     `json:"popular"`
}

// DefaultPlans is the catalogue shown when the plans endpoint is unavailable.
func DefaultPlans() []Plan {
	return []Plan{
		{
			ID:           "starter",
			Name:         "Starter",
			MonthlyCents: 9900,
			Description:  "Launch a branded careers site for a small client base.",
			Features:     []string{"Branded site on your subdomain", "Free career tools", "Up to 50 clients"},
			MaxClients:   50,
		},
		{
			ID:           "professional",
			Name:         "Professional",
			MonthlyCents: 24900,
			Description:  "Add paid services and your own pricing.",
			Features:     []string{"Everything in Starter", "Custom tier pricing", "Booking and job board", "Up to 500 clients"},
			MaxClients:   500,
			Popular:      true,
		},
		{
			ID:           "enterprise",
			Name:         "Enterprise",
			MonthlyCents: 59900,
			Description:  "Full white-label with talent pool access.",
			Features:     []string{"Everything in Professional", "Talent pool", "Dedicated success manager", "Unlimited clients"},
			MaxClients:   0,
		},
	}
}

// FindPlan returns the plan with id.
func FindPlan(plans []Plan, id PlanID) (Plan, bool) {
	for _, p := range plans {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}

// ValidPlan reports whether p can be listed.
func ValidPlan(p Plan) bool {
	return p.ID != "" && p.Name != "" && p.MonthlyCents >= 0 && p.MaxClients >= 0
}

// planList accepts either {"plans": [...]} or a bare array.
type planList []Plan

func (l *planList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, (*[]Plan)(l))
	}
	var wrapped struct {
		Plans []Plan `json:"plans"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	*l = wrapped.Plans
	return nil
}
