// Package tenant resolves which white-label tenant a request belongs to and
// stores the tenants' branding records served to the brand loader.
package tenant

import (
	"errors"
	"time"
)

var (
	ErrTenantNotFound = errors.New("tenant: not found")
	ErrInvalidRecord  = errors.New("tenant: invalid record")
)

// Status is a tenant's lifecycle state. Only active tenants are served.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

func ValidStatus(s Status) bool {
	return s == StatusActive || s == StatusSuspended
}

// Branding is the config document served at /api/white-label/config. Field
// names are the backend wire contract.
type Branding struct {
	SiteName         string           `json:"siteName,omitempty" yaml:"siteName"`
	BrandName        string           `json:"brandName,omitempty" yaml:"brandName"`
	PrimaryColor     string           `json:"primaryColor,omitempty" yaml:"primaryColor"`
	SecondaryColor   string           `json:"secondaryColor,omitempty" yaml:"secondaryColor"`
	ContactEmail     string           `json:"contactEmail,omitempty" yaml:"contactEmail"`
	ContactPhone     string           `json:"contactPhone,omitempty" yaml:"contactPhone"`
	ContactAddress   string           `json:"contactAddress,omitempty" yaml:"contactAddress"`
	Features         []string         `json:"features,omitempty" yaml:"features"`
	PricingOverrides map[string]int64 `json:"pricingOverrides,omitempty" yaml:"pricingOverrides"`
}

// Record is a stored white-label tenant.
type Record struct {
	Subdomain string    `json:"subdomain"`
	Status    Status    `json:"status"`
	Branding  Branding  `json:"branding"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Active reports whether the tenant's branding should be served.
func (r *Record) Active() bool { return r.Status == StatusActive }

func (r *Record) clone() *Record {
	cp := *r
	cp.Branding.Features = append([]string(nil), r.Branding.Features...)
	if r.Branding.PricingOverrides != nil {
		cp.Branding.PricingOverrides = make(map[string]int64, len(r.Branding.PricingOverrides))
		for k, v := range r.Branding.PricingOverrides {
			cp.Branding.PricingOverrides[k] = v
		}
	}
	return &cp
}
