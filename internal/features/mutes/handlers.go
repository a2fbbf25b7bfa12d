// Package mutes — handlers.go обрабатывает команды мутов и вызовы Telegram API
// для ограничения участников.
package mutes

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

// Длительность мута, когда админ её не указал.
const defaultMuteDuration = time.Hour

// Handler обрабатывает команды мутов.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик мутов.
func NewHandler(service *Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleMute — команда !mute. Первый аргумент после адресата может быть
// длительностью (10m, 1h, 1d, 0 — бессрочно), остальное — причина.
// Сначала записывается состояние, затем бот ограничивает участника в чате.
func (h *Handler) HandleMute(ctx context.Context, chatID, adminID, targetID int64, targetName string, args []string) {
	d := defaultMuteDuration
	reasonArgs := args
	if len(args) > 0 {
		if parsed, err := common.ParseDuration(args[0]); err == nil {
			d = parsed
			reasonArgs = args[1:]
		}
	}
	reason := strings.Join(reasonArgs, " ")

	until, err := h.service.Apply(ctx, chatID, targetID, adminID, d, reason)
	if err != nil {
		log.WithError(err).Error("Ошибка записи мута")
		h.sendMessage(chatID, storeErrText(err, "❌ Ошибка выдачи мута"))
		return
	}

	var b strings.Builder
	if d == 0 {
		fmt.Fprintf(&b, "🔇 %s замьючен бессрочно", targetName)
	} else {
		fmt.Fprintf(&b, "🔇 %s замьючен на %s", targetName, common.FormatDuration(d))
	}
	if reason != "" {
		fmt.Fprintf(&b, ": %s", reason)
	}

	if err := h.Restrict(chatID, targetID, until); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"chat_id": chatID,
			"user_id": targetID,
		}).Error("Ошибка ограничения участника")
		b.WriteString("\n" + restrictErrText(err))
	}

	h.sendMessage(chatID, b.String())
}

// HandleUnmute — команда !unmute. Снимает мут и возвращает участнику
// права в чате.
func (h *Handler) HandleUnmute(ctx context.Context, chatID, adminID, targetID int64, targetName string) {
	lifted, err := h.service.Lift(ctx, chatID, targetID, adminID)
	if err != nil {
		log.WithError(err).Error("Ошибка снятия мута")
		h.sendMessage(chatID, storeErrText(err, "❌ Ошибка снятия мута"))
		return
	}

	if err := h.unrestrict(chatID, targetID); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"chat_id": chatID,
			"user_id": targetID,
		}).Error("Ошибка возврата прав участнику")
		h.sendMessage(chatID, restrictErrText(err))
		return
	}

	if lifted {
		h.sendMessage(chatID, fmt.Sprintf("🔊 %s размьючен", targetName))
	} else {
		h.sendMessage(chatID, fmt.Sprintf("🤷 %s и так не в муте", targetName))
	}
}

// Restrict лишает участника права писать в чат до момента until
// (nil — бессрочно). Нехватка прав у бота — common.ErrPermissionDenied.
func (h *Handler) Restrict(chatID, userID int64, until *time.Time) error {
	cfg := tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
		Permissions:      &tgbotapi.ChatPermissions{},
	}
	if until != nil {
		cfg.UntilDate = until.Unix()
	}
	if _, err := h.bot.Request(cfg); err != nil {
		return mapRestrictError(err)
	}
	return nil
}

// unrestrict возвращает участнику обычные права в чате.
func (h *Handler) unrestrict(chatID, userID int64) error {
	cfg := tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
		Permissions: &tgbotapi.ChatPermissions{
			CanSendMessages:       true,
			CanSendMediaMessages:  true,
			CanSendPolls:          true,
			CanSendOtherMessages:  true,
			CanAddWebPagePreviews: true,
			CanInviteUsers:        true,
		},
	}
	if _, err := h.bot.Request(cfg); err != nil {
		return mapRestrictError(err)
	}
	return nil
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}

// mapRestrictError переводит ответ Telegram о нехватке прав
// в common.ErrPermissionDenied, остальные ошибки отдаёт как есть.
func mapRestrictError(err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == 403 || strings.Contains(apiErr.Message, "not enough rights") {
			return common.ErrPermissionDenied
		}
	}
	return err
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
	return "❌ Не удалось изменить права участника в чате"
}
