package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dukebot.dev/moderation-bot/internal/bot/admission"
)

// telegramAdminSource отдаёт список администраторов чата через Telegram API.
type telegramAdminSource struct {
	api *tgbotapi.BotAPI
}

// NewAdminSource создаёт источник админов поверх Telegram API.
func NewAdminSource(api *tgbotapi.BotAPI) admission.AdminSource {
	return &telegramAdminSource{api: api}
}

func (s *telegramAdminSource) ChatAdmins(ctx context.Context, chatID int64) ([]int64, error) {
	admins, err := s.api.GetChatAdministrators(tgbotapi.ChatAdministratorsConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		return nil, fmt.Errorf("запрос админов чата %d: %w", chatID, err)
	}

	ids := make([]int64, 0, len(admins))
	for _, admin := range admins {
		if admin.User != nil {
			ids = append(ids, admin.User.ID)
		}
	}
	return ids, nil
}
