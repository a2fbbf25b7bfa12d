// Package chatmeta — repository.go выполняет операции с таблицей chat_settings.
package chatmeta

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dukebot.dev/moderation-bot/internal/db/postgres"
)

// Repository работает с таблицей chat_settings.
type Repository struct {
	db      *pgxpool.Pool
	retrier *postgres.Retrier
}

// NewRepository создаёт репозиторий настроек чата.
func NewRepository(db *pgxpool.Pool, retrier *postgres.Retrier) *Repository {
	return &Repository{db: db, retrier: retrier}
}

// Get возвращает настройки чата. Если записи нет — пустые настройки
// без создания записи.
func (r *Repository) Get(ctx context.Context, chatID int64) (*Settings, error) {
	query := `
		SELECT id, chat_id, rules, welcome, created_at, updated_at
		FROM chat_settings
		WHERE chat_id = $1
	`
	var s Settings
	err := r.retrier.Do(ctx, "chatmeta.get", func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query, chatID).Scan(
			&s.ID, &s.ChatID, &s.Rules, &s.Welcome, &s.CreatedAt, &s.UpdatedAt,
		)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &Settings{ChatID: chatID}, nil
		}
		return nil, fmt.Errorf("ошибка чтения настроек чата: %w", err)
	}
	return &s, nil
}

// SetRules перезаписывает правила чата.
func (r *Repository) SetRules(ctx context.Context, chatID int64, text string) error {
	query := `
		INSERT INTO chat_settings (chat_id, rules)
		VALUES ($1, $2)
		ON CONFLICT (chat_id) DO UPDATE
		SET rules = EXCLUDED.rules, updated_at = NOW()
	`
	err := r.retrier.Do(ctx, "chatmeta.set_rules", func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, query, chatID, text)
		return err
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения правил: %w", err)
	}
	return nil
}

// SetWelcome перезаписывает приветствие чата.
func (r *Repository) SetWelcome(ctx context.Context, chatID int64, text string) error {
	query := `
		INSERT INTO chat_settings (chat_id, welcome)
		VALUES ($1, $2)
		ON CONFLICT (chat_id) DO UPDATE
		SET welcome = EXCLUDED.welcome, updated_at = NOW()
	`
	err := r.retrier.Do(ctx, "chatmeta.set_welcome", func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, query, chatID, text)
		return err
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения приветствия: %w", err)
	}
	return nil
}
