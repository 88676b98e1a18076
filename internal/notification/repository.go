package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vasiliy-maslov/groupbuy-service/internal/apperror"
)

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]Notification, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, n *Notification) error {
	if n.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate notification id: %w", err)
		}
		n.ID = id
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.Data == nil {
		n.Data = map[string]any{}
	}

	query := `
		INSERT INTO notifications (id, user_id, category, title, message, severity, data, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		n.ID, n.UserID, string(n.Category), n.Title, n.Message, string(n.Severity), n.Data, n.Read, n.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return fmt.Errorf("%w: user %s", apperror.ErrNotFound, n.UserID)
		}
		return fmt.Errorf("repository: failed to insert notification for user %s: %w", n.UserID, err)
	}
	return nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]Notification, error) {
	query := `
		SELECT id, user_id, category, title, message, severity, data, read, created_at
		FROM notifications
		WHERE user_id = $1 AND (NOT $2 OR NOT read)
		ORDER BY created_at DESC
		LIMIT 200
	`
	rows, err := r.db.Query(ctx, query, userID, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query notifications for user %s: %w", userID, err)
	}
	defer rows.Close()

	result := make([]Notification, 0)
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Category, &n.Title, &n.Message, &n.Severity, &n.Data, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan notification: %w", err)
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating notifications for user %s: %w", userID, err)
	}
	return result, nil
}

func (r *postgresRepository) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("repository: failed to mark notification %s read: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: notification %s", apperror.ErrNotFound, id)
	}
	return nil
}

func (r *postgresRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT read`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to count unread notifications for user %s: %w", userID, err)
	}
	return count, nil
}
