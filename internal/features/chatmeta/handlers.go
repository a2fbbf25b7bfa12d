// Package chatmeta — handlers.go обрабатывает команды правил и приветствия.
package chatmeta

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"dukebot.dev/moderation-bot/internal/common"
)

// Handler обрабатывает команды настроек чата.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик настроек чата.
func NewHandler(service *Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleRules — команда !rules. Показывает правила чата.
func (h *Handler) HandleRules(ctx context.Context, chatID int64) {
	rules, err := h.service.Rules(ctx, chatID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения правил")
		h.sendMessage(chatID, storeErrText(err, "❌ Ошибка получения правил"))
		return
	}
	if rules == "" {
		h.sendMessage(chatID, "📜 Правила в этом чате не заданы")
		return
	}
	h.sendMessage(chatID, "📜 Правила чата:\n"+rules)
}

// HandleSetRules — команда !set_rules. Перезаписывает правила чата.
func (h *Handler) HandleSetRules(ctx context.Context, chatID int64, text string) {
	if strings.TrimSpace(text) == "" {
		h.sendMessage(chatID, "❌ Укажите текст правил: !set_rules <текст>")
		return
	}
	if err := h.service.SetRules(ctx, chatID, text); err != nil {
		log.WithError(err).Error("Ошибка сохранения правил")
		h.sendMessage(chatID, storeErrText(err, "❌ Ошибка сохранения правил"))
		return
	}
	h.sendMessage(chatID, "✅ Правила обновлены")
}

// HandleWelcome — команда !welcome. Показывает текущее приветствие.
func (h *Handler) HandleWelcome(ctx context.Context, chatID int64) {
	welcome, err := h.service.Welcome(ctx, chatID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения приветствия")
		h.sendMessage(chatID, storeErrText(err, "❌ Ошибка получения приветствия"))
		return
	}
	if welcome == "" {
		h.sendMessage(chatID, "👋 Приветствие в этом чате не задано")
		return
	}
	h.sendMessage(chatID, "👋 Текущее приветствие:\n"+welcome)
}

// HandleSetWelcome — команда !set_welcome. Перезаписывает приветствие чата.
func (h *Handler) HandleSetWelcome(ctx context.Context, chatID int64, text string) {
	if strings.TrimSpace(text) == "" {
		h.sendMessage(chatID, "❌ Укажите текст приветствия: !set_welcome <текст>")
		return
	}
	if err := h.service.SetWelcome(ctx, chatID, text); err != nil {
		log.WithError(err).Error("Ошибка сохранения приветствия")
		h.sendMessage(chatID, storeErrText(err, "❌ Ошибка сохранения приветствия"))
		return
	}
	h.sendMessage(chatID, "✅ Приветствие обновлено")
}

// SendWelcome приветствует вступившего участника, если приветствие задано.
// Вызывается диспетчером на событии вступления.
func (h *Handler) SendWelcome(ctx context.Context, chatID int64, userName string) {
	welcome, err := h.service.Welcome(ctx, chatID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения приветствия")
		return
	}
	if welcome == "" {
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("👋 %s\n%s", userName, welcome))
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
