// Package warnings — handlers.go обрабатывает команды предупреждений.
package warnings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"dukebot.dev/moderation-bot/internal/common"
)

// Restricter ограничивает участника на стороне Telegram.
// Реализуется обработчиком мутов.
type Restricter interface {
	Restrict(chatID, userID int64, until *time.Time) error
}

// Handler обрабатывает команды предупреждений.
type Handler struct {
	service    *Service
	bot        *tgbotapi.BotAPI
	restricter Restricter
}

// NewHandler создаёт обработчик предупреждений.
func NewHandler(service *Service, bot *tgbotapi.BotAPI, restricter Restricter) *Handler {
	return &Handler{service: service, bot: bot, restricter: restricter}
}

// HandleWarn — команда !warn. Выдаёт предупреждение; при достижении
// порога участник уходит в мут, и бот ограничивает его в чате.
func (h *Handler) HandleWarn(ctx context.Context, chatID, adminID, targetID int64, targetName, reason string) {
	res, err := h.service.Add(ctx, chatID, targetID, adminID, reason, nil)
	if err != nil {
		log.WithError(err).Error("Ошибка выдачи предупреждения")
		h.sendMessage(chatID, storeErrText(err, "❌ Ошибка выдачи предупреждения"))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ %s получает предупреждение (%d/%d): %s",
		targetName, res.Active, h.service.Threshold(), res.Warning.Reason)

	if res.Escalated {
		switch {
		case res.MuteErr != nil:
			fmt.Fprintf(&b, "\n⚠️ Порог превышен, но мут записать не удалось — попробуйте позже")
		default:
			fmt.Fprintf(&b, "\n🔇 %s замьючен на %s: %s",
				targetName, common.FormatDuration(h.service.MuteFor()), escalationReason)
			if err := h.restricter.Restrict(chatID, targetID, res.MutedUntil); err != nil {
				log.WithError(err).Error("Ошибка ограничения участника после эскалации")
				b.WriteString("\n" + restrictErrText(err))
			}
		}
	}

	h.sendMessage(chatID, b.String())
}

// HandleUnwarn — команда !unwarn. Снимает последнее действующее предупреждение.
func (h *Handler) HandleUnwarn(ctx context.Context, chatID, targetID int64, targetName string) {
	w, err := h.service.RemoveLast(ctx, chatID, targetID)
	if err != nil {
		if errors.Is(err, common.ErrNoActiveWarning) {
			h.sendMessage(chatID, fmt.Sprintf("🤷 У %s нет действующих предупреждений", targetName))
			return
		}
		log.WithError(err).Error("Ошибка снятия предупреждения")
		h.sendMessage(chatID, storeErrText(err, "❌ Ошибка снятия предупреждения"))
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("✅ С %s снято последнее предупреждение: %s", targetName, w.Reason))
}

// HandleWarnings — команда !warnings. Показывает действующие предупреждения.
// Не-администратор может смотреть только свои.
func (h *Handler) HandleWarnings(ctx context.Context, chatID, requesterID, targetID int64, targetName string, requesterIsAdmin bool) {
	if targetID != requesterID && !requesterIsAdmin {
		h.sendMessage(chatID, "❌ Чужие предупреждения могут смотреть только администраторы")
		return
	}

	active, err := h.service.Active(ctx, chatID, targetID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения предупреждений")
		h.sendMessage(chatID, storeErrText(err, "❌ Ошибка получения предупреждений"))
		return
	}

	if len(active) == 0 {
		h.sendMessage(chatID, fmt.Sprintf("✅ У %s нет действующих предупреждений", targetName))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ Предупреждения %s (%s):\n",
		targetName, common.PluralizeWarnings(len(active)))
	for i, w := range active {
		fmt.Fprintf(&b, "%d. %s — %s\n", i+1, w.Reason, common.FormatDateTime(w.IssuedAt))
	}
	h.sendMessage(chatID, b.String())
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}

func storeErrText(err error, fallback string) string {
	if errors.Is(err, common.ErrStoreUnavailable) {
		return "❌ Хранилище недоступно, попробуйте позже"
	}
	return fallback
}

func restrictErrText(err error) string {
	if errors.Is(err, common.ErrPermissionDenied) {
		return "❌ У бота недостаточно прав, чтобы ограничить участника"
	}
	return "❌ Не удалось ограничить участника в чате"
}
