// Package chatmeta хранит настройки чата: правила и приветствие.
// models.go описывает структуры для работы с таблицей chat_settings.
package chatmeta

import "time"

// Settings — настройки одного чата. Пустая строка означает,
// что текст не задан.
type Settings struct {
	ID        int64     `db:"id"`
	ChatID    int64     `db:"chat_id"`
	Rules     string    `db:"rules"`
	Welcome   string    `db:"welcome"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
