// Package admission решает, допускать ли команду к выполнению.
// Четыре последовательных проверки: тип чата, права, кулдаун команды,
// rate limit пользователя. Отказ первой же проверки останавливает
// остальные, и у каждого отказа ровно одна причина.
package admission

import (
	"context"
	"time"
)

// RejectionKind — причина отказа в допуске.
type RejectionKind int

const (
	// RejectionNone — отказа нет, команда допущена
	RejectionNone RejectionKind = iota
	// RejectionChatType — команда недоступна в чате такого типа
	RejectionChatType
	// RejectionUnauthorized — команда требует прав администратора
	RejectionUnauthorized
	// RejectionCooldown — кулдаун команды ещё не истёк
	RejectionCooldown
	// RejectionRateLimited — превышен лимит команд за окно
	RejectionRateLimited
)

func (k RejectionKind) String() string {
	switch k {
	case RejectionNone:
		return "none"
	case RejectionChatType:
		return "chat_type"
	case RejectionUnauthorized:
		return "unauthorized"
	case RejectionCooldown:
		return "cooldown"
	case RejectionRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// Actor — кто и в каком чате вызвал команду.
type Actor struct {
	ChatID int64
	UserID int64
}

// CommandSpec описывает политику допуска одной команды.
type CommandSpec struct {
	Name      string
	ChatKinds []string      // допустимые типы чата: group, supergroup, private
	AdminOnly bool          // требует прав администратора чата
	Cooldown  time.Duration // кулдаун команды на пользователя
}

// Request — запрос на допуск команды к выполнению.
type Request struct {
	Actor    Actor
	ChatKind string // тип чата из апдейта
	Spec     CommandSpec
}

// Decision — результат допуска. При отказе Kind говорит почему,
// для RejectionCooldown Remaining говорит сколько ещё ждать.
type Decision struct {
	Allowed   bool
	Kind      RejectionKind
	Remaining time.Duration
}

// AdminSource отдаёт список администраторов чата.
// Реализуется платформой (Telegram getChatAdministrators).
type AdminSource interface {
	ChatAdmins(ctx context.Context, chatID int64) ([]int64, error)
}
