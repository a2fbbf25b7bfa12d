// Package middleware содержит промежуточные обработчики для логирования
// и восстановления после паники.
package middleware

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// LogMessage логирует входящее сообщение.
// Записывает: user_id, chat_id, username, текст (первые 50 символов).
func LogMessage(message *tgbotapi.Message) {
	if message == nil || message.From == nil {
		return
	}

	text := message.Text
	if runes := []rune(text); len(runes) > 50 {
		text = string(runes[:50]) + "..."
	}

	log.WithFields(log.Fields{
		"user_id":  message.From.ID,
		"chat_id":  message.Chat.ID,
		"username": message.From.UserName,
		"text":     text,
	}).Debug("Входящее сообщение")
}
