// Package members управляет участниками чатов: регистрацией и учётом активности.
// models.go описывает структуры данных для работы с таблицей members.
package members

import (
	"time"

	"dukebot.dev/moderation-bot/internal/common"
)

// Member представляет участника конкретного чата.
// Запись создаётся при первом сообщении или вступлении в чат
// и обновляется при каждой активности. Один и тот же пользователь
// в разных чатах — разные записи.
type Member struct {
	ID           int64     `db:"id"`            // Автоинкрементный ID записи в БД
	ChatID       int64     `db:"chat_id"`       // Telegram chat ID
	UserID       int64     `db:"user_id"`       // Telegram user ID
	Username     string    `db:"username"`      // @username (может быть пустым)
	FirstName    string    `db:"first_name"`    // Имя пользователя
	LastName     string    `db:"last_name"`     // Фамилия (может быть пустой)
	MessageCount int64     `db:"message_count"` // Сколько сообщений участника видел бот
	JoinedAt     time.Time `db:"joined_at"`     // Когда вступил в чат
	LastSeenAt   time.Time `db:"last_seen_at"`  // Последняя активность
	CreatedAt    time.Time `db:"created_at"`    // Когда запись создана в БД
	UpdatedAt    time.Time `db:"updated_at"`    // Последнее обновление записи
}

// DisplayName возвращает отображаемое имя пользователя.
// Если есть @username — возвращает его, иначе — имя + фамилию.
func (m *Member) DisplayName() string {
	return common.FormatUserName(m.Username, m.FirstName, m.LastName)
}
