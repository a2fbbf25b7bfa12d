// Package warnings реализует предупреждения с эскалацией в мут.
// models.go описывает структуры для работы с таблицей warnings.
package warnings

import "time"

// Warning — выданное предупреждение. Записи не удаляются при снятии:
// снятое предупреждение помечается истёкшим и остаётся в истории.
type Warning struct {
	ID        int64      `db:"id"`
	ChatID    int64      `db:"chat_id"`
	UserID    int64      `db:"user_id"`
	AdminID   int64      `db:"admin_id"` // 0 — выдано самим ботом
	Reason    string     `db:"reason"`
	IssuedAt  time.Time  `db:"issued_at"`
	ExpiresAt *time.Time `db:"expires_at"` // nil — действует до явного снятия
}

// Active сообщает, действует ли предупреждение на момент now.
// Статус всегда вычисляется от отметки времени, на фоновую очистку
// полагаться нельзя.
func (w *Warning) Active(now time.Time) bool {
	return w.ExpiresAt == nil || w.ExpiresAt.After(now)
}

// AddResult — итог выдачи предупреждения.
type AddResult struct {
	Warning    *Warning
	Active     int        // активных предупреждений после выдачи
	Escalated  bool       // порог достигнут, запущена эскалация в мут
	MutedUntil *time.Time // до какого момента действует мут эскалации
	MuteErr    error      // мут эскалации не записан (предупреждение при этом стоит)
}
