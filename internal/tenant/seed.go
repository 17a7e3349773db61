package tenant

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mbd888/careerhub/internal/validation"
)

// SeedFile is the YAML layout of TENANT_SEED_FILE.
type SeedFile struct {
	Tenants []SeedTenant `yaml:"tenants"`
}

// SeedTenant is one tenant entry in a seed file.
type SeedTenant struct {
	Subdomain string   `yaml:"subdomain"`
	Status    Status   `yaml:"status"`
	Branding  Branding `yaml:"branding"`
}

// ParseSeed decodes a seed document. Unknown keys are rejected so typos in
// field names fail loudly instead of silently falling back to defaults.
func ParseSeed(r io.Reader) (*SeedFile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f SeedFile
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse tenant seed: %w", err)
	}
	for i := range f.Tenants {
		if err := normalizeSeed(&f.Tenants[i]); err != nil {
			return nil, fmt.Errorf("tenant seed entry %d: %w", i, err)
		}
	}
	return &f, nil
}

func normalizeSeed(t *SeedTenant) error {
	t.Subdomain = validation.SanitizeLabel(t.Subdomain)
	if !validation.IsValidLabel(t.Subdomain) {
		return fmt.Errorf("%w: subdomain %q", ErrInvalidRecord, t.Subdomain)
	}
	if t.Status == "" {
		t.Status = StatusActive
	}
	if !ValidStatus(t.Status) {
		return fmt.Errorf("%w: status %q", ErrInvalidRecord, t.Status)
	}
	if errs := ValidateBranding(t.Branding); len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRecord, errs.Error())
	}
	return nil
}

// LoadSeedFile reads path and upserts every tenant into store. It returns the
// number of tenants loaded.
func LoadSeedFile(ctx context.Context, store Store, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read tenant seed: %w", err)
	}
	f, err := ParseSeed(bytes.NewReader(data))
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	for _, t := range f.Tenants {
		rec := &Record{
			Subdomain: t.Subdomain,
			Status:    t.Status,
			Branding:  t.Branding,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := store.Upsert(ctx, rec); err != nil {
			return 0, fmt.Errorf("seed tenant %s: %w", t.Subdomain, err)
		}
	}
	return len(f.Tenants), nil
}

// ValidateBranding checks the fields an admin or seed file may set.
func ValidateBranding(b Branding) validation.ValidationErrors {
	errs := validation.Validate(
		validation.MaxLength("siteName", b.SiteName, 120),
		validation.MaxLength("brandName", b.BrandName, 120),
		validation.OptionalColor("primaryColor", b.PrimaryColor),
		validation.OptionalColor("secondaryColor", b.SecondaryColor),
		validation.MaxLength("contactEmail", b.ContactEmail, 254),
		validation.MaxLength("contactPhone", b.ContactPhone, 40),
		validation.MaxLength("contactAddress", b.ContactAddress, 500),
	)
	for tier, cents := range b.PricingOverrides {
		if cents < 0 {
			errs = append(errs, validation.ValidationError{
				Field:   "pricingOverrides." + tier,
				Message: "must not be negative",
			})
		}
	}
	return errs
}
