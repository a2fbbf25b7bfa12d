// Package mutes — repository.go выполняет операции с таблицей mutes.
package mutes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dukebot.dev/moderation-bot/internal/db/postgres"
)

// Repository работает с таблицей mutes.
type Repository struct {
	db      *pgxpool.Pool
	retrier *postgres.Retrier
}

// NewRepository создаёт репозиторий мутов.
func NewRepository(db *pgxpool.Pool, retrier *postgres.Retrier) *Repository {
	return &Repository{db: db, retrier: retrier}
}

// Insert добавляет мут и заполняет ID и IssuedAt из БД.
// Новая запись становится авторитетной для участника.
func (r *Repository) Insert(ctx context.Context, m *Mute) error {
	query := `
		INSERT INTO mutes (chat_id, user_id, admin_id, reason, muted_until)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, issued_at
	`
	err := r.retrier.Do(ctx, "mutes.insert", func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query, m.ChatID, m.UserID, m.AdminID, m.Reason, m.Until).
			Scan(&m.ID, &m.IssuedAt)
	})
	if err != nil {
		return fmt.Errorf("ошибка записи мута: %w", err)
	}
	return nil
}

// Latest возвращает самую свежую запись мута участника.
// Если мутов не было — ошибка с pgx.ErrNoRows.
func (r *Repository) Latest(ctx context.Context, chatID, userID int64) (*Mute, error) {
	query := `
		SELECT id, chat_id, user_id, admin_id, reason, issued_at, muted_until
		FROM mutes
		WHERE chat_id = $1 AND user_id = $2
		ORDER BY issued_at DESC, id DESC
		LIMIT 1
	`
	var m Mute
	err := r.retrier.Do(ctx, "mutes.latest", func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query, chatID, userID).Scan(
			&m.ID, &m.ChatID, &m.UserID, &m.AdminID, &m.Reason, &m.IssuedAt, &m.Until,
		)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("мутов не было: %w", err)
		}
		return nil, fmt.Errorf("ошибка чтения мута: %w", err)
	}
	return &m, nil
}

// Lift завершает действующий мут (muted_until = NOW) на самой свежей записи.
// Возвращает false, если действующего мута не было; записи при этом не меняются.
func (r *Repository) Lift(ctx context.Context, chatID, userID int64) (bool, error) {
	query := `
		UPDATE mutes
		SET muted_until = NOW()
		WHERE id = (
			SELECT id FROM mutes
			WHERE chat_id = $1 AND user_id = $2
			ORDER BY issued_at DESC, id DESC
			LIMIT 1
		) AND (muted_until IS NULL OR muted_until > NOW())
	`
	var lifted bool
	err := r.retrier.Do(ctx, "mutes.lift", func(ctx context.Context) error {
		tag, err := r.db.Exec(ctx, query, chatID, userID)
		if err != nil {
			return err
		}
		lifted = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("ошибка снятия мута: %w", err)
	}
	return lifted, nil
}

// DeleteFinishedBefore удаляет муты, закончившиеся раньше cutoff.
// Используется фоновой очисткой старых данных.
func (r *Repository) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM mutes WHERE muted_until IS NOT NULL AND muted_until < $1`
	var deleted int64
	err := r.retrier.Do(ctx, "mutes.delete_finished", func(ctx context.Context) error {
		tag, err := r.db.Exec(ctx, query, cutoff)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("ошибка очистки мутов: %w", err)
	}
	return deleted, nil
}
