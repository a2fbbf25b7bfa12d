// Package mutes реализует муты участников.
// models.go описывает структуры для работы с таблицей mutes.
package mutes

import "time"

// Mute — выданный мут. Записи добавляются, а не перезаписываются:
// статус участника определяет только самая свежая запись, старые
// остаются историей.
type Mute struct {
	ID       int64      `db:"id"`
	ChatID   int64      `db:"chat_id"`
	UserID   int64      `db:"user_id"`
	AdminID  int64      `db:"admin_id"` // 0 — выдан самим ботом при эскалации
	Reason   string     `db:"reason"`
	IssuedAt time.Time  `db:"issued_at"`
	Until    *time.Time `db:"muted_until"` // nil — бессрочный
}

// Active сообщает, действует ли мут на момент now.
func (m *Mute) Active(now time.Time) bool {
	return m.Until == nil || m.Until.After(now)
}
