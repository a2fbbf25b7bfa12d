// Package mutes — service.go содержит бизнес-логику мутов.
package mutes

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

// Store — операции хранилища, которые нужны сервису мутов.
// Реализуется Repository; в тестах подменяется фейком.
type Store interface {
	Insert(ctx context.Context, m *Mute) error
	Latest(ctx context.Context, chatID, userID int64) (*Mute, error)
	Lift(ctx context.Context, chatID, userID int64) (bool, error)
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Service управляет мутами. Ограничение участника на стороне Telegram
// сервис не выполняет: это забота обработчика после записи состояния.
type Service struct {
	repo Store
	now  func() time.Time
}

// NewService создаёт сервис мутов.
func NewService(repo Store) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Apply записывает мут и возвращает момент его окончания.
// d == 0 — бессрочный мут, возвращается nil.
func (s *Service) Apply(ctx context.Context, chatID, userID, adminID int64, d time.Duration, reason string) (*time.Time, error) {
	m := &Mute{ChatID: chatID, UserID: userID, AdminID: adminID, Reason: reason}
	if d > 0 {
		until := s.now().Add(d)
		m.Until = &until
	}

	if err := s.repo.Insert(ctx, m); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"chat_id":  chatID,
		"user_id":  userID,
		"admin_id": adminID,
		"duration": d.String(),
	}).Info("Выдан мут")

	return m.Until, nil
}

// Lift завершает действующий мут. Повторный вызов безопасен:
// если действующего мута нет, возвращается false без ошибки.
func (s *Service) Lift(ctx context.Context, chatID, userID, adminID int64) (bool, error) {
	lifted, err := s.repo.Lift(ctx, chatID, userID)
	if err != nil {
		return false, err
	}

	if lifted {
		log.WithFields(log.Fields{
			"chat_id":  chatID,
			"user_id":  userID,
			"admin_id": adminID,
		}).Info("Мут снят")
	}
	return lifted, nil
}

// IsActivelyMuted сообщает, в муте ли участник сейчас.
// Статус определяет только самая свежая запись.
func (s *Service) IsActivelyMuted(ctx context.Context, chatID, userID int64) (bool, error) {
	m, err := s.repo.Latest(ctx, chatID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return m.Active(s.now()), nil
}

// PurgeFinished удаляет муты, закончившиеся раньше cutoff.
func (s *Service) PurgeFinished(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.repo.DeleteFinishedBefore(ctx, cutoff)
}
