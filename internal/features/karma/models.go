// Package karma реализует систему репутации (кармы).
// models.go описывает структуры для хранения кармы.
package karma

import (
	"time"

	"dukebot.dev/moderation-bot/internal/common"
)

// Karma хранит карму участника в конкретном чате.
// Карма может уходить в минус.
type Karma struct {
	ID        int64     `db:"id"`
	ChatID    int64     `db:"chat_id"`
	UserID    int64     `db:"user_id"`
	Points    int       `db:"karma_points"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// TopEntry — строка топа кармы чата, вместе с именем участника.
type TopEntry struct {
	UserID    int64
	Points    int
	Username  string
	FirstName string
	LastName  string
}

// DisplayName возвращает отображаемое имя участника из топа.
func (e *TopEntry) DisplayName() string {
	return common.FormatUserName(e.Username, e.FirstName, e.LastName)
}
