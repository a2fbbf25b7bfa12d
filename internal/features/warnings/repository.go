// Package warnings — repository.go выполняет операции с таблицей warnings.
package warnings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dukebot.dev/moderation-bot/internal/db/postgres"
)

// Repository работает с таблицей warnings.
type Repository struct {
	db      *pgxpool.Pool
	retrier *postgres.Retrier
}

// NewRepository создаёт репозиторий предупреждений.
func NewRepository(db *pgxpool.Pool, retrier *postgres.Retrier) *Repository {
	return &Repository{db: db, retrier: retrier}
}

// Insert добавляет предупреждение и заполняет ID и IssuedAt из БД.
func (r *Repository) Insert(ctx context.Context, w *Warning) error {
	query := `
		INSERT INTO warnings (chat_id, user_id, admin_id, reason, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, issued_at
	`
	err := r.retrier.Do(ctx, "warnings.insert", func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query, w.ChatID, w.UserID, w.AdminID, w.Reason, w.ExpiresAt).
			Scan(&w.ID, &w.IssuedAt)
	})
	if err != nil {
		return fmt.Errorf("ошибка записи предупреждения: %w", err)
	}
	return nil
}

// CountActive возвращает число действующих предупреждений участника.
func (r *Repository) CountActive(ctx context.Context, chatID, userID int64) (int, error) {
	query := `
		SELECT COUNT(*) FROM warnings
		WHERE chat_id = $1 AND user_id = $2
		  AND (expires_at IS NULL OR expires_at > NOW())
	`
	var count int
	err := r.retrier.Do(ctx, "warnings.count_active", func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query, chatID, userID).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта предупреждений: %w", err)
	}
	return count, nil
}

// CountActiveByChat возвращает число действующих предупреждений во всём чате.
func (r *Repository) CountActiveByChat(ctx context.Context, chatID int64) (int64, error) {
	query := `
		SELECT COUNT(*) FROM warnings
		WHERE chat_id = $1
		  AND (expires_at IS NULL OR expires_at > NOW())
	`
	var count int64
	err := r.retrier.Do(ctx, "warnings.count_active_chat", func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query, chatID).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта предупреждений чата: %w", err)
	}
	return count, nil
}

// ExpireLatest помечает истёкшим самое свежее действующее предупреждение
// и возвращает его. Уже истёкшие записи не трогает.
// Если действующих нет — ошибка с pgx.ErrNoRows.
func (r *Repository) ExpireLatest(ctx context.Context, chatID, userID int64) (*Warning, error) {
	query := `
		UPDATE warnings
		SET expires_at = NOW()
		WHERE id = (
			SELECT id FROM warnings
			WHERE chat_id = $1 AND user_id = $2
			  AND (expires_at IS NULL OR expires_at > NOW())
			ORDER BY issued_at DESC
			LIMIT 1
		)
		RETURNING id, chat_id, user_id, admin_id, reason, issued_at, expires_at
	`
	var w Warning
	err := r.retrier.Do(ctx, "warnings.expire_latest", func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query, chatID, userID).Scan(
			&w.ID, &w.ChatID, &w.UserID, &w.AdminID, &w.Reason, &w.IssuedAt, &w.ExpiresAt,
		)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("действующих предупреждений нет: %w", err)
		}
		return nil, fmt.Errorf("ошибка снятия предупреждения: %w", err)
	}
	return &w, nil
}

// Active возвращает действующие предупреждения участника, старые раньше новых.
func (r *Repository) Active(ctx context.Context, chatID, userID int64) ([]*Warning, error) {
	query := `
		SELECT id, chat_id, user_id, admin_id, reason, issued_at, expires_at
		FROM warnings
		WHERE chat_id = $1 AND user_id = $2
		  AND (expires_at IS NULL OR expires_at > NOW())
		ORDER BY issued_at ASC
	`
	var out []*Warning
	err := r.retrier.Do(ctx, "warnings.active", func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, chatID, userID)
		if err != nil {
			return err
		}
		defer rows.Close()

		var res []*Warning
		for rows.Next() {
			var w Warning
			if err := rows.Scan(
				&w.ID, &w.ChatID, &w.UserID, &w.AdminID, &w.Reason, &w.IssuedAt, &w.ExpiresAt,
			); err != nil {
				return fmt.Errorf("ошибка сканирования строки: %w", err)
			}
			res = append(res, &w)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса предупреждений: %w", err)
	}
	return out, nil
}

// DeleteExpiredBefore удаляет предупреждения, истёкшие раньше cutoff.
// Используется фоновой очисткой старых данных.
func (r *Repository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM warnings WHERE expires_at IS NOT NULL AND expires_at < $1`
	var deleted int64
	err := r.retrier.Do(ctx, "warnings.delete_expired", func(ctx context.Context) error {
		tag, err := r.db.Exec(ctx, query, cutoff)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("ошибка очистки предупреждений: %w", err)
	}
	return deleted, nil
}
