package tenant

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PostgresStore persists tenant records in PostgreSQL. Branding is a JSONB
// column so the document shape can evolve without migrations.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Get(ctx context.Context, subdomain string) (*Record, error) {
	return scanRecord(p.db.QueryRowContext(ctx, `
		SELECT subdomain, status, branding, created_at, updated_at
		FROM white_label_tenants WHERE subdomain = $1`, subdomain))
}

func (p *PostgresStore) Upsert(ctx context.Context, r *Record) (bool, error) {
	brandingJSON, err := json.Marshal(r.Branding)
	if err != nil {
		return false, fmt.Errorf("marshal branding: %w", err)
	}

	// xmax = 0 only for a freshly inserted row.
	var created bool
	err = p.db.QueryRowContext(ctx, `
		INSERT INTO white_label_tenants (subdomain, status, branding, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (subdomain) DO UPDATE
			SET status = EXCLUDED.status, branding = EXCLUDED.branding, updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0)`,
		r.Subdomain, string(r.Status), brandingJSON, r.CreatedAt, r.UpdatedAt,
	).Scan(&created)
	if err != nil {
		return false, err
	}
	return created, nil
}

func (p *PostgresStore) List(ctx context.Context) ([]*Record, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT subdomain, status, branding, created_at, updated_at
		FROM white_label_tenants ORDER BY subdomain`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	r := &Record{}
	var (
		status       string
		brandingJSON []byte
	)
	err := row.Scan(&r.Subdomain, &status, &brandingJSON, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	r.Status = Status(status)
	if len(brandingJSON) > 0 {
		if err := json.Unmarshal(brandingJSON, &r.Branding); err != nil {
			return nil, fmt.Errorf("decode branding for %s: %w", r.Subdomain, err)
		}
	}
	return r, nil
}

var _ Store = (*PostgresStore)(nil)
