// Package bot содержит диспетчер — приём апдейтов Telegram, допуск команд
// и маршрутизацию к обработчикам.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"dukebot.dev/moderation-bot/internal/bot/admission"
	"dukebot.dev/moderation-bot/internal/bot/middleware"
	"dukebot.dev/moderation-bot/internal/common"
	"dukebot.dev/moderation-bot/internal/config"
	"dukebot.dev/moderation-bot/internal/features/chatmeta"
	"dukebot.dev/moderation-bot/internal/features/karma"
	"dukebot.dev/moderation-bot/internal/features/members"
	"dukebot.dev/moderation-bot/internal/features/mutes"
	"dukebot.dev/moderation-bot/internal/features/stats"
	"dukebot.dev/moderation-bot/internal/features/warnings"
)

// Крайний срок обработки одного апдейта: зависший обработчик
// прерывается по дедлайну контекста.
const updateTimeout = 30 * time.Second

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	api *tgbotapi.BotAPI
	cfg *config.Config

	admission *admission.Controller
	registry  *CommandRegistry
	stats     *stats.Service

	memberService *members.Service

	memberHandler   *members.Handler
	karmaHandler    *karma.Handler
	warningsHandler *warnings.Handler
	mutesHandler    *mutes.Handler
	chatmetaHandler *chatmeta.Handler
	statsHandler    *stats.Handler

	parser *CommandParser

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
}

// New создаёт новый экземпляр бота со всеми зависимостями.
func New(
	api *tgbotapi.BotAPI,
	cfg *config.Config,
	ctrl *admission.Controller,
	registry *CommandRegistry,
	statsService *stats.Service,
	memberService *members.Service,
	memberHandler *members.Handler,
	karmaHandler *karma.Handler,
	warningsHandler *warnings.Handler,
	mutesHandler *mutes.Handler,
	chatmetaHandler *chatmeta.Handler,
	statsHandler *stats.Handler,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	return &Bot{
		api:             api,
		cfg:             cfg,
		admission:       ctrl,
		registry:        registry,
		stats:           statsService,
		memberService:   memberService,
		memberHandler:   memberHandler,
		karmaHandler:    karmaHandler,
		warningsHandler: warningsHandler,
		mutesHandler:    mutesHandler,
		chatmetaHandler: chatmetaHandler,
		statsHandler:    statsHandler,
		parser:          NewCommandParser(),
		inflight:        make(chan struct{}, maxInFlight),
	}
}

// Start запускает polling обновлений от Telegram.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.BotUpdateTimeoutSeconds
	// chat_member не входит в список по умолчанию, а без него не видно
	// повышений и разжалований админов
	u.AllowedUpdates = []string{
		tgbotapi.UpdateTypeMessage,
		tgbotapi.UpdateTypeChatMember,
	}

	updates := b.api.GetUpdatesChan(u)

	log.WithFields(log.Fields{
		"max_inflight": b.cfg.BotMaxInflight,
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			b.api.StopReceivingUpdates()
			return

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				return
			}

			// лимит параллелизма
			b.inflight <- struct{}{}
			go func(upd tgbotapi.Update) {
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer middleware.RecoverFromPanic(update.UpdateID)

	ctx, cancel := context.WithTimeout(ctx, updateTimeout)
	defer cancel()

	// Смена статуса участника (повышение, разжалование, вступление)
	if update.ChatMember != nil {
		b.handleChatMemberUpdate(ctx, update.ChatMember)
		return
	}

	if update.Message == nil || update.Message.Chat == nil {
		return
	}
	message := update.Message

	// Событие вступления новых участников
	if message.NewChatMembers != nil {
		b.handleNewMembers(ctx, message.Chat.ID, message.NewChatMembers)
		return
	}

	if message.Text == "" || message.From == nil {
		return
	}

	middleware.LogMessage(message)

	chatID := message.Chat.ID
	userID := message.From.ID
	chatKind := message.Chat.Type

	cmd, args, rest, isCommand := b.parser.Parse(message.Text, b.api.Self.UserName)
	if !isCommand {
		// Обычное сообщение: в группе учитываем активность участника
		if chatKind == "group" || chatKind == "supergroup" {
			b.stats.MessageSeen()
			if err := b.memberService.TrackMessage(ctx, chatID, userID,
				message.From.UserName, message.From.FirstName, message.From.LastName,
			); err != nil {
				log.WithError(err).WithField("user_id", userID).Warn("Не удалось учесть сообщение участника")
			}
			b.handleThankYou(ctx, message)
		}
		return
	}

	spec, known := b.registry.Lookup(cmd)
	if !known {
		// Чужая или несуществующая команда — не наш трафик
		return
	}

	decision := b.admission.Admit(ctx, admission.Request{
		Actor:    admission.Actor{ChatID: chatID, UserID: userID},
		ChatKind: chatKind,
		Spec:     spec,
	})
	if !decision.Allowed {
		log.WithFields(log.Fields{
			"chat_id": chatID,
			"user_id": userID,
			"command": spec.Name,
			"reason":  decision.Kind.String(),
		}).Debug("Команда не допущена")
		b.stats.RejectionIssued(decision.Kind.String())
		b.sendMessage(chatID, rejectionText(spec.Name, decision))
		return
	}

	b.stats.CommandProcessed(spec.Name)
	b.dispatch(ctx, message, spec.Name, args, rest)
}

// dispatch выполняет допущенную команду.
func (b *Bot) dispatch(ctx context.Context, message *tgbotapi.Message, cmd string, args []string, rest string) {
	chatID := message.Chat.ID
	userID := message.From.ID
	isGroup := message.Chat.Type == "group" || message.Chat.Type == "supergroup"

	switch cmd {
	case "karma":
		target, _, err := b.resolveTargetOrSelf(ctx, message, args, rest)
		if err != nil {
			b.targetNotice(chatID, err)
			return
		}
		b.karmaHandler.HandleKarma(ctx, chatID, target.id, target.name)

	case "give_karma":
		target, _, err := b.resolveTarget(ctx, message, args, rest)
		if err != nil {
			b.targetNotice(chatID, err)
			return
		}
		b.karmaHandler.HandleGiveKarma(ctx, chatID, userID, target.id, target.name)

	case "remove_karma":
		target, _, err := b.resolveTarget(ctx, message, args, rest)
		if err != nil {
			b.targetNotice(chatID, err)
			return
		}
		b.karmaHandler.HandleRemoveKarma(ctx, chatID, userID, target.id, target.name)

	case "warn":
		target, reason, err := b.resolveTarget(ctx, message, args, rest)
		if err != nil {
			b.targetNotice(chatID, err)
			return
		}
		b.warningsHandler.HandleWarn(ctx, chatID, userID, target.id, target.name, reason)

	case "unwarn":
		target, _, err := b.resolveTarget(ctx, message, args, rest)
		if err != nil {
			b.targetNotice(chatID, err)
			return
		}
		b.warningsHandler.HandleUnwarn(ctx, chatID, target.id, target.name)

	case "warnings":
		target, _, err := b.resolveTargetOrSelf(ctx, message, args, rest)
		if err != nil {
			b.targetNotice(chatID, err)
			return
		}
		isAdmin := b.admission.IsAdmin(ctx, chatID, userID)
		b.warningsHandler.HandleWarnings(ctx, chatID, userID, target.id, target.name, isAdmin)

	case "mute":
		target, muteArgs, err := b.resolveTarget(ctx, message, args, rest)
		if err != nil {
			b.targetNotice(chatID, err)
			return
		}
		b.mutesHandler.HandleMute(ctx, chatID, userID, target.id, target.name, strings.Fields(muteArgs))

	case "unmute":
		target, _, err := b.resolveTarget(ctx, message, args, rest)
		if err != nil {
			b.targetNotice(chatID, err)
			return
		}
		b.mutesHandler.HandleUnmute(ctx, chatID, userID, target.id, target.name)

	case "rules":
		b.chatmetaHandler.HandleRules(ctx, chatID)

	case "set_rules":
		b.chatmetaHandler.HandleSetRules(ctx, chatID, rest)

	case "welcome":
		b.chatmetaHandler.HandleWelcome(ctx, chatID)

	case "set_welcome":
		b.chatmetaHandler.HandleSetWelcome(ctx, chatID, rest)

	case "stats":
		b.statsHandler.HandleStats(ctx, chatID, isGroup)

	case "leaderboard":
		b.karmaHandler.HandleLeaderboard(ctx, chatID)

	case "nukem":
		b.memberHandler.HandleNukem(ctx, chatID, rest)
	}
}

// target — разрешённый адресат команды.
type target struct {
	id   int64
	name string
}

// resolveTarget находит адресата модераторской команды.
// Ответ на сообщение главнее аргумента; адресат из ответа попадает в базу.
// Возвращает остаток текста команды после адресата (причина, длительность).
func (b *Bot) resolveTarget(ctx context.Context, message *tgbotapi.Message, args []string, rest string) (target, string, error) {
	if message.ReplyToMessage != nil && message.ReplyToMessage.From != nil {
		u := message.ReplyToMessage.From
		if err := b.memberService.EnsureMember(ctx, message.Chat.ID, u.ID,
			u.UserName, u.FirstName, u.LastName,
		); err != nil {
			log.WithError(err).WithField("user_id", u.ID).Warn("Не удалось записать адресата из ответа")
		}
		return target{id: u.ID, name: common.FormatUserName(u.UserName, u.FirstName, u.LastName)}, rest, nil
	}

	if len(args) == 0 {
		return target{}, "", common.ErrTargetNotFound
	}

	m, err := b.memberService.ResolveTarget(ctx, message.Chat.ID, args[0])
	if err != nil {
		return target{}, "", err
	}
	restAfterTarget := strings.TrimSpace(strings.TrimPrefix(rest, args[0]))
	return target{id: m.UserID, name: m.DisplayName()}, restAfterTarget, nil
}

// resolveTargetOrSelf — как resolveTarget, но без адресата командует сам автор.
func (b *Bot) resolveTargetOrSelf(ctx context.Context, message *tgbotapi.Message, args []string, rest string) (target, string, error) {
	if message.ReplyToMessage == nil && len(args) == 0 {
		u := message.From
		return target{id: u.ID, name: common.FormatUserName(u.UserName, u.FirstName, u.LastName)}, rest, nil
	}
	return b.resolveTarget(ctx, message, args, rest)
}

// targetNotice сообщает, почему адресат не найден.
func (b *Bot) targetNotice(chatID int64, err error) {
	if errors.Is(err, common.ErrTargetNotFound) {
		b.sendMessage(chatID, "❌ Пользователь не найден. Укажите адресата ответом на сообщение или @username")
		return
	}
	log.WithError(err).Error("Ошибка поиска адресата")
	if errors.Is(err, common.ErrStoreUnavailable) {
		b.sendMessage(chatID, "❌ Хранилище недоступно, попробуйте позже")
		return
	}
	b.sendMessage(chatID, "❌ Ошибка поиска адресата")
}

// rejectionText — текст уведомления об отказе в допуске,
// ровно одно уведомление на отказ.
func rejectionText(cmd string, d admission.Decision) string {
	switch d.Kind {
	case admission.RejectionChatType:
		return "❌ Эта команда здесь недоступна"
	case admission.RejectionUnauthorized:
		return "❌ Команда доступна только администраторам"
	case admission.RejectionCooldown:
		secs := int(common.CeilSeconds(d.Remaining).Seconds())
		return fmt.Sprintf("⏳ Команда !%s будет доступна через %d %s",
			cmd, secs, common.PluralizeSeconds(secs))
	case admission.RejectionRateLimited:
		return "🚦 Слишком много команд подряд, помедленнее"
	}
	return ""
}

// handleThankYou начисляет карму за «спасибо» в ответ на сообщение.
func (b *Bot) handleThankYou(ctx context.Context, message *tgbotapi.Message) {
	if message.ReplyToMessage == nil || message.ReplyToMessage.From == nil {
		return
	}
	author := message.ReplyToMessage.From
	if author.IsBot || !karma.IsThankYou(message.Text) {
		return
	}
	if err := b.memberService.EnsureMember(ctx, message.Chat.ID, author.ID,
		author.UserName, author.FirstName, author.LastName,
	); err != nil {
		log.WithError(err).Debug("Карма за «спасибо» не начислена")
		return
	}
	b.karmaHandler.HandleThankYou(ctx, message.Chat.ID, message.From.ID, author.ID)
}

// handleNewMembers обрабатывает вступление новых участников:
// регистрация плюс приветствие, если оно настроено.
func (b *Bot) handleNewMembers(ctx context.Context, chatID int64, newMembers []tgbotapi.User) {
	b.memberHandler.HandleNewChatMembers(ctx, chatID, newMembers)
	for _, user := range newMembers {
		if user.IsBot {
			continue
		}
		b.chatmetaHandler.SendWelcome(ctx, chatID,
			common.FormatUserName(user.UserName, user.FirstName, user.LastName))
	}
}

// handleChatMemberUpdate реагирует на смену статуса участника.
// Повышение или разжалование сбрасывает кэш админов чата.
func (b *Bot) handleChatMemberUpdate(ctx context.Context, upd *tgbotapi.ChatMemberUpdated) {
	chatID := upd.Chat.ID
	user := upd.NewChatMember.User
	if user == nil {
		return
	}

	oldAdmin := isAdminStatus(upd.OldChatMember.Status)
	newAdmin := isAdminStatus(upd.NewChatMember.Status)
	if oldAdmin != newAdmin {
		b.admission.Invalidate(chatID)
		log.WithFields(log.Fields{
			"chat_id": chatID,
			"user_id": user.ID,
			"status":  upd.NewChatMember.Status,
		}).Info("Состав админов чата изменился, кэш сброшен")
	}

	if user.IsBot {
		return
	}
	if err := b.memberService.EnsureMember(ctx, chatID, user.ID,
		user.UserName, user.FirstName, user.LastName,
	); err != nil {
		log.WithError(err).WithField("user_id", user.ID).Warn("Не удалось обновить данные участника")
	}
}

func isAdminStatus(status string) bool {
	return status == "administrator" || status == "creator"
}

// sendMessage — утилита для отправки сообщений.
func (b *Bot) sendMessage(chatID int64, text string) {
	if text == "" {
		return
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
