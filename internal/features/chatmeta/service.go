// Package chatmeta — service.go содержит бизнес-логику настроек чата.
package chatmeta

import "context"

// Store — операции хранилища, которые нужны сервису настроек.
// Реализуется Repository; в тестах подменяется фейком.
type Store interface {
	Get(ctx context.Context, chatID int64) (*Settings, error)
	SetRules(ctx context.Context, chatID int64, text string) error
	SetWelcome(ctx context.Context, chatID int64, text string) error
}

// Service управляет настройками чата.
type Service struct {
	repo Store
}

// NewService создаёт сервис настроек чата.
func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// Rules возвращает правила чата. Пустая строка — правила не заданы.
func (s *Service) Rules(ctx context.Context, chatID int64) (string, error) {
	settings, err := s.repo.Get(ctx, chatID)
	if err != nil {
		return "", err
	}
	return settings.Rules, nil
}

// SetRules перезаписывает правила чата.
func (s *Service) SetRules(ctx context.Context, chatID int64, text string) error {
	return s.repo.SetRules(ctx, chatID, text)
}

// Welcome возвращает приветствие чата. Пустая строка — приветствие не задано.
func (s *Service) Welcome(ctx context.Context, chatID int64) (string, error) {
	settings, err := s.repo.Get(ctx, chatID)
	if err != nil {
		return "", err
	}
	return settings.Welcome, nil
}

// SetWelcome перезаписывает приветствие чата.
func (s *Service) SetWelcome(ctx context.Context, chatID int64, text string) error {
	return s.repo.SetWelcome(ctx, chatID, text)
}
