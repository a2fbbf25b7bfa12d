// Package stats — handlers.go обрабатывает команду статистики.
package stats

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// MemberCounter считает участников чата. Реализуется сервисом участников.
type MemberCounter interface {
	CountByChat(ctx context.Context, chatID int64) (int64, error)
}

// KarmaSummer считает суммарную карму чата. Реализуется сервисом кармы.
type KarmaSummer interface {
	SumByChat(ctx context.Context, chatID int64) (int64, error)
}

// WarningCounter считает действующие предупреждения чата.
// Реализуется сервисом предупреждений.
type WarningCounter interface {
	CountActiveByChat(ctx context.Context, chatID int64) (int64, error)
}

// Handler обрабатывает команду статистики.
type Handler struct {
	service  *Service
	bot      *tgbotapi.BotAPI
	members  MemberCounter
	karma    KarmaSummer
	warnings WarningCounter
}

// NewHandler создаёт обработчик статистики.
func NewHandler(service *Service, bot *tgbotapi.BotAPI, members MemberCounter, karma KarmaSummer, warnings WarningCounter) *Handler {
	return &Handler{service: service, bot: bot, members: members, karma: karma, warnings: warnings}
}

// HandleStats — команда !stats. Счётчики процесса плюс сводка чата из БД.
// В личных сообщениях сводки чата нет.
func (h *Handler) HandleStats(ctx context.Context, chatID int64, isGroup bool) {
	snap := h.service.Snapshot()

	var b strings.Builder
	b.WriteString("📊 Статистика бота\n")
	fmt.Fprintf(&b, "⏱ Аптайм: %s\n", formatUptime(snap.Uptime))
	fmt.Fprintf(&b, "⚙️ Команд обработано: %d\n", snap.CommandsTotal())
	fmt.Fprintf(&b, "💬 Сообщений обработано: %d\n", snap.Messages)

	if isGroup {
		h.appendChatSummary(ctx, &b, chatID)
	}

	h.sendMessage(chatID, strings.TrimRight(b.String(), "\n"))
}

// appendChatSummary добавляет сводку чата. Недоступное хранилище
// не прячет остальную статистику.
func (h *Handler) appendChatSummary(ctx context.Context, b *strings.Builder, chatID int64) {
	memberCount, err := h.members.CountByChat(ctx, chatID)
	if err != nil {
		log.WithError(err).Error("Ошибка подсчёта участников для статистики")
		b.WriteString("⚠️ Сводка чата недоступна\n")
		return
	}

	karmaSum, err := h.karma.SumByChat(ctx, chatID)
	if err != nil {
		log.WithError(err).Error("Ошибка подсчёта кармы для статистики")
		b.WriteString("⚠️ Сводка чата недоступна\n")
		return
	}

	warningCount, err := h.warnings.CountActiveByChat(ctx, chatID)
	if err != nil {
		log.WithError(err).Error("Ошибка подсчёта предупреждений для статистики")
		b.WriteString("⚠️ Сводка чата недоступна\n")
		return
	}

	fmt.Fprintf(b, "👥 Участников в чате: %d\n", memberCount)
	fmt.Fprintf(b, "⭐ Сумма кармы: %d\n", karmaSum)
	fmt.Fprintf(b, "⚠️ Действующих предупреждений: %d\n", warningCount)
}

// formatUptime — компактный вид аптайма: "2д 5ч 13м".
func formatUptime(d time.Duration) string {
	d = d.Round(time.Second)
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dд %dч %dм", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dч %dм", hours, minutes)
	default:
		return fmt.Sprintf("%dм %dс", minutes, seconds)
	}
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
