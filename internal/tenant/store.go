package tenant

import "context"

// Store persists white-label tenant records keyed by subdomain.
type Store interface {
	Get(ctx context.Context, subdomain string) (*Record, error)
	// Upsert creates or replaces a record. created reports which happened.
	Upsert(ctx context.Context, r *Record) (created bool, err error)
	List(ctx context.Context) ([]*Record, error)
}
