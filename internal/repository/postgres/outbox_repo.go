package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"job-marketplace-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type outboxRepo struct {
	db *pgxpool.Pool
}

func NewOutboxRepository(db *pgxpool.Pool) domain.OutboxRepository {
	return &outboxRepo{db: db}
}

// insertOutbox runs inside the mutation's transaction.
func insertOutbox(ctx context.Context, tx pgx.Tx, evt *domain.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode outbox event: %w", err)
	}
	query := `INSERT INTO outbox_events (id, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4::jsonb, $5)`
	_, err = tx.Exec(ctx, query, evt.ID, evt.JobID, string(evt.Type), string(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

// FetchPending returns unpublished records created before olderThan, oldest
// first.
func (r *outboxRepo) FetchPending(ctx context.Context, olderThan time.Time, limit int) ([]domain.OutboxRecord, error) {
	query := `SELECT payload, created_at, attempts FROM outbox_events
		WHERE published_at IS NULL AND created_at < $1
		ORDER BY created_at, seq
		LIMIT $2`
	rows, err := r.db.Query(ctx, query, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.OutboxRecord
	for rows.Next() {
		var (
			rec     domain.OutboxRecord
			payload []byte
		)
		if err := rows.Scan(&payload, &rec.CreatedAt, &rec.Attempts); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &rec.Event); err != nil {
			return nil, fmt.Errorf("decode outbox payload: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *outboxRepo) MarkPublished(ctx context.Context, eventID string) error {
	result, err := r.db.Exec(ctx,
		`UPDATE outbox_events SET published_at = NOW(), last_error = NULL WHERE id = $1`, eventID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *outboxRepo) MarkFailed(ctx context.Context, eventID string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := r.db.Exec(ctx,
		`UPDATE outbox_events SET attempts = attempts + 1, last_error = $2 WHERE id = $1`, eventID, msg)
	return err
}

func (r *outboxRepo) PurgePublished(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.Exec(ctx,
		`DELETE FROM outbox_events WHERE published_at IS NOT NULL AND published_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
