package pricing

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresStore persists overrides and plans in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) ListOverrides(ctx context.Context) ([]RemoteTier, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT tier_id, price_cents, name, description, features, popular, badge
		FROM pricing_overrides ORDER BY tier_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []RemoteTier
	for rows.Next() {
		var (
			o                       RemoteTier
			price                   sql.NullInt64
			name, desc, badge       sql.NullString
			featuresJSON            []byte
			popular                 sql.NullBool
		)
		if err := rows.Scan(&o.ID, &price, &name, &desc, &featuresJSON, &popular, &badge); err != nil {
			return nil, err
		}
		if price.Valid {
			o.Price = &price.Int64
		}
		if popular.Valid {
			o.Popular = &popular.Bool
		}
		o.Name, o.Description, o.Badge = name.String, desc.String, badge.String
		if len(featuresJSON) > 0 {
			if err := json.Unmarshal(featuresJSON, &o.Features); err != nil {
				return nil, fmt.Errorf("decode features for %s: %w", o.ID, err)
			}
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (p *PostgresStore) PutOverride(ctx context.Context, o RemoteTier) error {
	var featuresJSON []byte
	if o.Features != nil {
		var err error
		if featuresJSON, err = json.Marshal(o.Features); err != nil {
			return err
		}
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO pricing_overrides (tier_id, price_cents, name, description, features, popular, badge, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, NULLIF($7, ''), NOW())
		ON CONFLICT (tier_id) DO UPDATE SET
			price_cents = EXCLUDED.price_cents, name = EXCLUDED.name,
			description = EXCLUDED.description, features = EXCLUDED.features,
			popular = EXCLUDED.popular, badge = EXCLUDED.badge, updated_at = NOW()`,
		string(o.ID), nullInt(o.Price), o.Name, o.Description, nullBytes(featuresJSON), nullBool(o.Popular), o.Badge,
	)
	return err
}

func (p *PostgresStore) ListPlans(ctx context.Context) ([]Plan, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, name, monthly_cents, description, features, max_clients, popular
		FROM partner_plans ORDER BY monthly_cents, id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Plan
	for rows.Next() {
		var (
			pl           Plan
			featuresJSON []byte
		)
		if err := rows.Scan(&pl.ID, &pl.Name, &pl.MonthlyCents, &pl.Description, &featuresJSON, &pl.MaxClients, &pl.Popular); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(featuresJSON, &pl.Features); err != nil {
			return nil, fmt.Errorf("decode features for plan %s: %w", pl.ID, err)
		}
		out = append(out, pl)
	}
	return out, rows.Err()
}

func (p *PostgresStore) PutPlan(ctx context.Context, pl Plan) error {
	features := pl.Features
	if features == nil {
		features = []string{}
	}
	featuresJSON, err := json.Marshal(features)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO partner_plans (id, name, monthly_cents, description, features, max_clients, popular)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, monthly_cents = EXCLUDED.monthly_cents,
			description = EXCLUDED.description, features = EXCLUDED.features,
			max_clients = EXCLUDED.max_clients, popular = EXCLUDED.popular`,
		string(pl.ID), pl.Name, pl.MonthlyCents, pl.Description, featuresJSON, pl.MaxClients, pl.Popular,
	)
	return err
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullBool(v *bool) sql.NullBool {
	if v == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *v, Valid: true}
}

func nullBytes(b []byte) any {
	if b == nil {
		return nil
	}
	return b
}

var _ Store = (*PostgresStore)(nil)
