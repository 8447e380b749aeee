// Package archive persists reconciled notifications to PostgreSQL so the
// daemon keeps an auditable trail independent of the upstream API's
// retention window.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"bazario-admin/internal/domain"
	"bazario-admin/internal/observability"
)

// Repository stores notifications in the notification_archive table.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Save inserts a notification, ignoring duplicates. Socket pushes and batch
// fetches overlap, so the same record arriving twice is routine.
func (r *Repository) Save(ctx context.Context, n *domain.Notification) error {
	data, err := json.Marshal(n.Data)
	if err != nil {
		return fmt.Errorf("failed to encode notification data: %w", err)
	}

	query := `
		INSERT INTO notification_archive (id, user_id, title, message, type, data, read, created_at, archived_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = r.db.ExecContext(ctx, query,
		n.ID,
		n.UserID,
		n.Title,
		n.Message,
		n.Type,
		data,
		n.Read,
		n.CreatedAt,
		time.Now().UTC(),
	)
	if err != nil {
		observability.ArchiveWritesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to archive notification: %w", err)
	}

	observability.ArchiveWritesTotal.WithLabelValues("ok").Inc()
	return nil
}

// MarkRead records that a notification was acknowledged in the console.
func (r *Repository) MarkRead(ctx context.Context, id string) error {
	query := `UPDATE notification_archive SET read = TRUE WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check mark read result: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

// ListByUser retrieves archived notifications for a user, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Notification, error) {
	query := `
		SELECT id, user_id, title, message, type, data, read, created_at
		FROM notification_archive
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query archive: %w", err)
	}
	defer rows.Close()

	notifications := make([]*domain.Notification, 0, limit)
	for rows.Next() {
		n := &domain.Notification{}
		var data []byte
		err := rows.Scan(
			&n.ID,
			&n.UserID,
			&n.Title,
			&n.Message,
			&n.Type,
			&data,
			&n.Read,
			&n.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &n.Data); err != nil {
				return nil, fmt.Errorf("failed to decode notification data: %w", err)
			}
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating archive: %w", err)
	}
	return notifications, nil
}

// UnreadCountByUser counts archived notifications not yet acknowledged.
func (r *Repository) UnreadCountByUser(ctx context.Context, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM notification_archive WHERE user_id = $1 AND read = FALSE`

	var count int
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread: %w", err)
	}
	return count, nil
}

// PurgeOlderThan removes archived rows past the retention horizon and
// returns how many were deleted.
func (r *Repository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM notification_archive WHERE archived_at < $1`

	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge archive: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check purge result: %w", err)
	}
	return affected, nil
}
