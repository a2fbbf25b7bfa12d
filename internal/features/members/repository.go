// Package members — repository.go отвечает за все операции с таблицей members в БД.
// Каждая функция выполняет один SQL-запрос и возвращает результат или ошибку.
package members

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dukebot.dev/moderation-bot/internal/db/postgres"
)

type Repository struct {
	db      *pgxpool.Pool
	retrier *postgres.Retrier
}

func NewRepository(db *pgxpool.Pool, retrier *postgres.Retrier) *Repository {
	return &Repository{db: db, retrier: retrier}
}

const memberColumns = `id, chat_id, user_id, username, first_name, last_name,
	       message_count, joined_at, last_seen_at, created_at, updated_at`

// TrackMessage создаёт участника при первом сообщении и на каждом
// следующем обновляет имя, счётчик сообщений и время последней активности.
func (r *Repository) TrackMessage(ctx context.Context, chatID, userID int64, username, firstName, lastName string) error {
	query := `
		INSERT INTO members (chat_id, user_id, username, first_name, last_name, message_count)
		VALUES ($1, $2, $3, $4, $5, 1)
		ON CONFLICT (chat_id, user_id) DO UPDATE
		SET username = EXCLUDED.username,
		    first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name,
		    message_count = members.message_count + 1,
		    last_seen_at = NOW(),
		    updated_at = NOW()
	`
	err := r.retrier.Do(ctx, "members.track", func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, query, chatID, userID, username, firstName, lastName)
		return err
	})
	if err != nil {
		return fmt.Errorf("ошибка учёта активности участника: %w", err)
	}
	return nil
}

// Ensure гарантирует наличие участника в таблице, не засчитывая сообщение.
// На конфликте обновляет только имя/username.
func (r *Repository) Ensure(ctx context.Context, chatID, userID int64, username, firstName, lastName string) error {
	query := `
		INSERT INTO members (chat_id, user_id, username, first_name, last_name)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (chat_id, user_id) DO UPDATE
		SET username = EXCLUDED.username,
		    first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name,
		    updated_at = NOW()
	`
	err := r.retrier.Do(ctx, "members.ensure", func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, query, chatID, userID, username, firstName, lastName)
		return err
	})
	if err != nil {
		return fmt.Errorf("ошибка создания/обновления участника: %w", err)
	}
	return nil
}

// GetByUserID: если не найден — ошибка с pgx.ErrNoRows (errors.Is(err, pgx.ErrNoRows) == true)
func (r *Repository) GetByUserID(ctx context.Context, chatID, userID int64) (*Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM members
		WHERE chat_id = $1 AND user_id = $2
	`
	var m Member
	err := r.retrier.Do(ctx, "members.get", func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query, chatID, userID).Scan(
			&m.ID, &m.ChatID, &m.UserID, &m.Username, &m.FirstName, &m.LastName,
			&m.MessageCount, &m.JoinedAt, &m.LastSeenAt, &m.CreatedAt, &m.UpdatedAt,
		)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("участник не найден (user_id=%d): %w", userID, err)
		}
		return nil, fmt.Errorf("ошибка чтения участника (user_id=%d): %w", userID, err)
	}
	return &m, nil
}

// GetByUsername: регистронезависимый поиск в пределах чата,
// если не найден — ошибка с pgx.ErrNoRows
func (r *Repository) GetByUsername(ctx context.Context, chatID int64, username string) (*Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM members
		WHERE chat_id = $1 AND LOWER(username) = LOWER($2)
	`
	var m Member
	err := r.retrier.Do(ctx, "members.get_by_username", func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query, chatID, username).Scan(
			&m.ID, &m.ChatID, &m.UserID, &m.Username, &m.FirstName, &m.LastName,
			&m.MessageCount, &m.JoinedAt, &m.LastSeenAt, &m.CreatedAt, &m.UpdatedAt,
		)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("участник не найден (username=%s): %w", username, err)
		}
		return nil, fmt.Errorf("ошибка чтения участника (username=%s): %w", username, err)
	}
	return &m, nil
}

// Recent возвращает последних активных участников чата.
func (r *Repository) Recent(ctx context.Context, chatID int64, limit int) ([]*Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM members
		WHERE chat_id = $1
		ORDER BY last_seen_at DESC
		LIMIT $2
	`
	return r.queryMembers(ctx, "members.recent", query, chatID, limit)
}

// CountByChat возвращает число участников чата, известных боту.
func (r *Repository) CountByChat(ctx context.Context, chatID int64) (int64, error) {
	query := `SELECT COUNT(*) FROM members WHERE chat_id = $1`
	var count int64
	err := r.retrier.Do(ctx, "members.count", func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query, chatID).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта участников: %w", err)
	}
	return count, nil
}

// DeleteInactiveBefore удаляет участников, которых не было видно с указанного
// момента. Используется фоновой очисткой старых данных.
func (r *Repository) DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM members WHERE last_seen_at < $1`
	var deleted int64
	err := r.retrier.Do(ctx, "members.delete_inactive", func(ctx context.Context) error {
		tag, err := r.db.Exec(ctx, query, cutoff)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("ошибка очистки неактивных участников: %w", err)
	}
	return deleted, nil
}

func (r *Repository) queryMembers(ctx context.Context, op, query string, args ...interface{}) ([]*Member, error) {
	var out []*Member
	err := r.retrier.Do(ctx, op, func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		var res []*Member
		for rows.Next() {
			var m Member
			if err := rows.Scan(
				&m.ID, &m.ChatID, &m.UserID, &m.Username, &m.FirstName, &m.LastName,
				&m.MessageCount, &m.JoinedAt, &m.LastSeenAt, &m.CreatedAt, &m.UpdatedAt,
			); err != nil {
				return fmt.Errorf("ошибка сканирования строки: %w", err)
			}
			res = append(res, &m)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса участников: %w", err)
	}
	return out, nil
}
