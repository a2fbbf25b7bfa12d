// Package members — handlers.go обрабатывает Telegram-события, связанные с участниками.
// Вступление новых пользователей и команда общего сбора.
package members

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// Сколько участников упоминаем одним сообщением общего сбора.
// Telegram уведомляет только по упоминаниям из ограниченного числа ссылок.
const nukemMentionLimit = 50

// Handler обрабатывает события участников.
type Handler struct {
	bot     *tgbotapi.BotAPI
	service *Service
}

// NewHandler создаёт новый обработчик событий участников.
func NewHandler(bot *tgbotapi.BotAPI, service *Service) *Handler {
	return &Handler{bot: bot, service: service}
}

// HandleNewChatMembers обрабатывает событие вступления новых пользователей.
// Telegram отправляет это событие, когда кто-то присоединяется к чату.
// Боты не регистрируются.
func (h *Handler) HandleNewChatMembers(ctx context.Context, chatID int64, newMembers []tgbotapi.User) {
	for _, user := range newMembers {
		if user.IsBot {
			continue
		}
		err := h.service.HandleNewMember(ctx, chatID, user.ID, user.UserName, user.FirstName, user.LastName)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"chat_id": chatID,
				"user_id": user.ID,
			}).Error("Ошибка регистрации нового участника")
		}
	}
}

// HandleNukem — команда !nukem. Общий сбор: упоминает последних активных
// участников чата невидимыми ссылками, чтобы каждому пришло уведомление.
func (h *Handler) HandleNukem(ctx context.Context, chatID int64, callText string) {
	recent, err := h.service.Recent(ctx, chatID, nukemMentionLimit)
	if err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка получения участников для общего сбора")
		h.sendMessage(chatID, "❌ Не удалось получить список участников")
		return
	}

	if len(recent) == 0 {
		h.sendMessage(chatID, "🤷 Я ещё никого не видел в этом чате")
		return
	}

	text := "📢 Общий сбор!"
	if callText = strings.TrimSpace(callText); callText != "" {
		text = "📢 " + tgbotapi.EscapeText(tgbotapi.ModeMarkdown, callText)
	}

	var b strings.Builder
	b.WriteString(text)
	for _, m := range recent {
		// Упоминание нулевой ширины: уведомление приходит, текст не растёт.
		fmt.Fprintf(&b, "[​](tg://user?id=%d)", m.UserID)
	}

	msg := tgbotapi.NewMessage(chatID, b.String())
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки общего сбора")
	}
}

// sendMessage отправляет текстовое сообщение в чат.
func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
