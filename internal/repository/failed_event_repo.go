package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
)

// FailedEventRepository keeps notification jobs whose enqueue failed. The
// comment itself is already committed at that point, so the job body is
// parked here for the requeue utility instead of failing the request.
type FailedEventRepository struct {
	db *pgxpool.Pool
}

func NewFailedEventRepository(db *pgxpool.Pool) *FailedEventRepository {
	return &FailedEventRepository{db: db}
}

// Insert records one failed enqueue attempt.
func (r *FailedEventRepository) Insert(
	ctx context.Context,
	commentID int64,
	channel, routingKey string,
	payload interface{},
	errorMsg string,
) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO failed_events (comment_id, channel, routing_key, payload, error_message, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		ON CONFLICT DO NOTHING
	`
	_, err = r.db.Exec(ctx, query, commentID, channel, routingKey, payloadJSON, errorMsg)
	return err
}

// GetPending returns events still under the retry budget, oldest first.
func (r *FailedEventRepository) GetPending(ctx context.Context, limit, maxRetries int) ([]FailedEvent, error) {
	query := `
		SELECT id, comment_id, channel, routing_key, payload, error_message, retry_count, status
		FROM failed_events
		WHERE status = 'pending' AND retry_count < $2
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit, maxRetries)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []FailedEvent
	for rows.Next() {
		var e FailedEvent
		if err := rows.Scan(&e.ID, &e.CommentID, &e.Channel, &e.RoutingKey, &e.Payload, &e.ErrorMessage, &e.RetryCount, &e.Status); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// MarkRetried records a successful replay.
func (r *FailedEventRepository) MarkRetried(ctx context.Context, id int64) error {
	query := `
		UPDATE failed_events
		SET status = 'retried', retry_count = retry_count + 1, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

// BumpRetry counts a replay attempt that failed again, keeping the row
// pending until the retry budget runs out.
func (r *FailedEventRepository) BumpRetry(ctx context.Context, id int64) error {
	query := `
		UPDATE failed_events
		SET retry_count = retry_count + 1, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

// MarkFailed retires a row whose retry budget is spent.
func (r *FailedEventRepository) MarkFailed(ctx context.Context, id int64) error {
	query := `
		UPDATE failed_events
		SET status = 'failed', updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

type FailedEvent struct {
	ID           int64
	CommentID    int64
	Channel      string
	RoutingKey   string
	Payload      json.RawMessage
	ErrorMessage string
	RetryCount   int
	Status       string
}
