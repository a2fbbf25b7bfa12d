// Package karma — service.go содержит бизнес-логику кармы.
package karma

import (
	"context"

	"dukebot.dev/moderation-bot/internal/common"
)

// Сколько строк показываем в топе кармы.
const topSize = 10

// Store — операции хранилища, которые нужны сервису кармы.
// Реализуется Repository; в тестах подменяется фейком.
type Store interface {
	Adjust(ctx context.Context, chatID, userID int64, delta int) (int, error)
	Get(ctx context.Context, chatID, userID int64) (int, error)
	Top(ctx context.Context, chatID int64, limit int) ([]*TopEntry, error)
	SumByChat(ctx context.Context, chatID int64) (int64, error)
}

// Service управляет системой кармы.
type Service struct {
	repo Store
}

// NewService создаёт сервис кармы.
func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// Adjust изменяет карму участника на delta (+1 или -1) и возвращает новое
// значение. Изменять карму самому себе нельзя. Сервис не читает текущее
// значение перед записью: атомарность отдана хранилищу.
func (s *Service) Adjust(ctx context.Context, chatID, actorID, targetID int64, delta int) (int, error) {
	if actorID == targetID {
		return 0, common.ErrSelfTarget
	}
	return s.repo.Adjust(ctx, chatID, targetID, delta)
}

// Get возвращает карму участника. Для участника без записи — 0.
func (s *Service) Get(ctx context.Context, chatID, userID int64) (int, error) {
	return s.repo.Get(ctx, chatID, userID)
}

// Top возвращает топ кармы чата.
func (s *Service) Top(ctx context.Context, chatID int64) ([]*TopEntry, error) {
	return s.repo.Top(ctx, chatID, topSize)
}

// SumByChat возвращает суммарную карму чата.
func (s *Service) SumByChat(ctx context.Context, chatID int64) (int64, error) {
	return s.repo.SumByChat(ctx, chatID)
}
