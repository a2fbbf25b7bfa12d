// Package karma — repository.go выполняет операции с таблицей karma.
package karma

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dukebot.dev/moderation-bot/internal/db/postgres"
)

// Repository работает с таблицей karma.
type Repository struct {
	db      *pgxpool.Pool
	retrier *postgres.Retrier
}

// NewRepository создаёт репозиторий кармы.
func NewRepository(db *pgxpool.Pool, retrier *postgres.Retrier) *Repository {
	return &Repository{db: db, retrier: retrier}
}

// Adjust атомарно изменяет карму участника на delta и возвращает новое
// значение. Запись создаётся при первом изменении. Вся арифметика
// выполняется на стороне БД, поэтому параллельные изменения не теряются.
func (r *Repository) Adjust(ctx context.Context, chatID, userID int64, delta int) (int, error) {
	query := `
		INSERT INTO karma (chat_id, user_id, karma_points)
		VALUES ($1, $2, $3)
		ON CONFLICT (chat_id, user_id) DO UPDATE
		SET karma_points = karma.karma_points + $3,
		    updated_at = NOW()
		RETURNING karma_points
	`
	var points int
	err := r.retrier.Do(ctx, "karma.adjust", func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query, chatID, userID, delta).Scan(&points)
	})
	if err != nil {
		return 0, fmt.Errorf("ошибка изменения кармы: %w", err)
	}
	return points, nil
}

// Get возвращает карму участника. Если записи нет — 0 без создания записи.
func (r *Repository) Get(ctx context.Context, chatID, userID int64) (int, error) {
	query := `SELECT karma_points FROM karma WHERE chat_id = $1 AND user_id = $2`
	var points int
	err := r.retrier.Do(ctx, "karma.get", func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query, chatID, userID).Scan(&points)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("ошибка чтения кармы: %w", err)
	}
	return points, nil
}

// SumByChat возвращает суммарную карму чата.
func (r *Repository) SumByChat(ctx context.Context, chatID int64) (int64, error) {
	query := `SELECT COALESCE(SUM(karma_points), 0) FROM karma WHERE chat_id = $1`
	var sum int64
	err := r.retrier.Do(ctx, "karma.sum", func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query, chatID).Scan(&sum)
	})
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта суммы кармы: %w", err)
	}
	return sum, nil
}

// Top возвращает участников чата с наибольшей кармой.
func (r *Repository) Top(ctx context.Context, chatID int64, limit int) ([]*TopEntry, error) {
	query := `
		SELECT k.user_id, k.karma_points, m.username, m.first_name, m.last_name
		FROM karma k
		JOIN members m ON m.chat_id = k.chat_id AND m.user_id = k.user_id
		WHERE k.chat_id = $1
		ORDER BY k.karma_points DESC, k.updated_at ASC
		LIMIT $2
	`
	var out []*TopEntry
	err := r.retrier.Do(ctx, "karma.top", func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, chatID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		var res []*TopEntry
		for rows.Next() {
			var e TopEntry
			if err := rows.Scan(&e.UserID, &e.Points, &e.Username, &e.FirstName, &e.LastName); err != nil {
				return fmt.Errorf("ошибка сканирования строки: %w", err)
			}
			res = append(res, &e)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса топа кармы: %w", err)
	}
	return out, nil
}
