// Package members — service.go содержит бизнес-логику управления участниками.
// Сервис координирует учёт активности, регистрацию вступивших
// и поиск адресата команды.
package members

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"dukebot.dev/moderation-bot/internal/common"
)

// Store — операции хранилища, которые нужны сервису участников.
// Реализуется Repository; в тестах подменяется фейком.
type Store interface {
	TrackMessage(ctx context.Context, chatID, userID int64, username, firstName, lastName string) error
	Ensure(ctx context.Context, chatID, userID int64, username, firstName, lastName string) error
	GetByUserID(ctx context.Context, chatID, userID int64) (*Member, error)
	GetByUsername(ctx context.Context, chatID int64, username string) (*Member, error)
	Recent(ctx context.Context, chatID int64, limit int) ([]*Member, error)
	CountByChat(ctx context.Context, chatID int64) (int64, error)
	DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Service управляет участниками чатов.
// Связывает обработчики Telegram-событий с репозиторием БД.
type Service struct {
	repo Store
}

// NewService создаёт новый сервис участников.
func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// TrackMessage регистрирует сообщение участника: создаёт запись при первом
// сообщении и обновляет активность при каждом следующем.
func (s *Service) TrackMessage(ctx context.Context, chatID, userID int64, username, firstName, lastName string) error {
	return s.repo.TrackMessage(ctx, chatID, userID, username, firstName, lastName)
}

// HandleNewMember обрабатывает вступление пользователя в чат.
// Вступление не засчитывается как сообщение.
func (s *Service) HandleNewMember(ctx context.Context, chatID, userID int64, username, firstName, lastName string) error {
	if err := s.repo.Ensure(ctx, chatID, userID, username, firstName, lastName); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"chat_id":  chatID,
		"user_id":  userID,
		"username": username,
	}).Info("Участник вступил в чат")

	return nil
}

// EnsureMember гарантирует, что пользователь есть в базе.
// Вызывается перед модераторским действием, чтобы адресат, известный
// только из reply, тоже попал в таблицу.
func (s *Service) EnsureMember(ctx context.Context, chatID, userID int64, username, firstName, lastName string) error {
	return s.repo.Ensure(ctx, chatID, userID, username, firstName, lastName)
}

// GetByUserID возвращает участника чата по его Telegram user ID.
func (s *Service) GetByUserID(ctx context.Context, chatID, userID int64) (*Member, error) {
	return s.repo.GetByUserID(ctx, chatID, userID)
}

// ResolveTarget находит адресата команды по текстовому аргументу:
// "@username", "username" или числовой Telegram ID.
// Если участник боту не известен — common.ErrTargetNotFound.
func (s *Service) ResolveTarget(ctx context.Context, chatID int64, ref string) (*Member, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, common.ErrTargetNotFound
	}

	if id, convErr := strconv.ParseInt(ref, 10, 64); convErr == nil {
		return s.mapNotFound(s.repo.GetByUserID(ctx, chatID, id))
	}

	return s.mapNotFound(s.repo.GetByUsername(ctx, chatID, strings.TrimPrefix(ref, "@")))
}

// Recent возвращает последних активных участников чата.
func (s *Service) Recent(ctx context.Context, chatID int64, limit int) ([]*Member, error) {
	return s.repo.Recent(ctx, chatID, limit)
}

// CountByChat возвращает число участников чата, известных боту.
func (s *Service) CountByChat(ctx context.Context, chatID int64) (int64, error) {
	return s.repo.CountByChat(ctx, chatID)
}

// PurgeInactive удаляет участников, неактивных с указанного момента.
func (s *Service) PurgeInactive(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.repo.DeleteInactiveBefore(ctx, cutoff)
}

func (s *Service) mapNotFound(m *Member, err error) (*Member, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrTargetNotFound
		}
		return nil, err
	}
	return m, nil
}
