// Package karma — handlers.go обрабатывает команды кармы.
package karma

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"dukebot.dev/moderation-bot/internal/common"
)

// Handler обрабатывает команды кармы.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик кармы.
func NewHandler(service *Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleThankYou обрабатывает «спасибо» в ответе на сообщение.
// Ошибки в чат не выводятся: это не команда, а фоновое начисление.
func (h *Handler) HandleThankYou(ctx context.Context, chatID, fromUserID, toUserID int64) {
	points, err := h.service.Adjust(ctx, chatID, fromUserID, toUserID, 1)
	if err != nil {
		log.WithError(err).Debug("Карма за «спасибо» не начислена")
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("⭐ +1 к карме! Теперь: %d", points))
}

// HandleKarma — команда !карма. Показывает карму участника
// (свою, если адресат не указан).
func (h *Handler) HandleKarma(ctx context.Context, chatID, targetID int64, targetName string) {
	points, err := h.service.Get(ctx, chatID, targetID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения кармы")
		h.sendMessage(chatID, storeErrText(err, "❌ Ошибка получения кармы"))
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("⭐ Карма %s: %d", targetName, points))
}

// HandleGiveKarma — команда !+карма. Даёт +1 к карме адресата.
func (h *Handler) HandleGiveKarma(ctx context.Context, chatID, actorID, targetID int64, targetName string) {
	points, err := h.service.Adjust(ctx, chatID, actorID, targetID, 1)
	if err != nil {
		h.respondAdjustError(chatID, err)
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("👍 %s получает +1 к карме! Теперь: %d", targetName, points))
}

// HandleRemoveKarma — команда !-карма. Снимает 1 с кармы адресата.
func (h *Handler) HandleRemoveKarma(ctx context.Context, chatID, actorID, targetID int64, targetName string) {
	points, err := h.service.Adjust(ctx, chatID, actorID, targetID, -1)
	if err != nil {
		h.respondAdjustError(chatID, err)
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("👎 %s получает -1 к карме! Теперь: %d", targetName, points))
}

// HandleLeaderboard — команда !топ. Показывает топ кармы чата.
func (h *Handler) HandleLeaderboard(ctx context.Context, chatID int64) {
	top, err := h.service.Top(ctx, chatID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения топа кармы")
		h.sendMessage(chatID, storeErrText(err, "❌ Ошибка получения топа кармы"))
		return
	}

	if len(top) == 0 {
		h.sendMessage(chatID, "🤷 В этом чате ещё ни у кого нет кармы")
		return
	}

	var b strings.Builder
	b.WriteString("🏆 Топ кармы чата:\n")
	for i, e := range top {
		fmt.Fprintf(&b, "%d. %s — %d\n", i+1, e.DisplayName(), e.Points)
	}
	h.sendMessage(chatID, b.String())
}

func (h *Handler) respondAdjustError(chatID int64, err error) {
	if errors.Is(err, common.ErrSelfTarget) {
		h.sendMessage(chatID, "❌ Нельзя менять карму самому себе")
		return
	}
	log.WithError(err).Error("Ошибка изменения кармы")
	h.sendMessage(chatID, storeErrText(err, "❌ Ошибка изменения кармы"))
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
