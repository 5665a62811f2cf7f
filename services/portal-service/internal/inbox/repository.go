package inbox

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/salonportal/libs/db"
)

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record stores the event id and reports false when it was already seen.
func (r *Repository) Record(ctx context.Context, eventID, eventType, tenantID string) (bool, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO portal_inbox_events (event_id, event_type, tenant_id)
		VALUES ($1, $2, $3)
	`, eventID, eventType, tenantID)
	if err == nil {
		return true, nil
	}
	if IsDuplicate(err) {
		return false, nil
	}
	return false, err
}

// Forget removes eventID so a redelivery is handled again.
func (r *Repository) Forget(ctx context.Context, eventID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM portal_inbox_events WHERE event_id = $1`, eventID)
	return err
}

func IsDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
