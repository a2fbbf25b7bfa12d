// Package warnings — service.go содержит бизнес-логику предупреждений.
// Здесь живёт правило эскалации: накопленные предупреждения превращаются в мут.
package warnings

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"dukebot.dev/moderation-bot/internal/common"
)

// Предупреждения, выданные ботом при эскалации, приписываются этому ID.
const systemAdminID = 0

const (
	defaultReason    = "причина не указана"
	escalationReason = "превышен порог предупреждений"
)

// Store — операции хранилища, которые нужны сервису предупреждений.
// Реализуется Repository; в тестах подменяется фейком.
type Store interface {
	Insert(ctx context.Context, w *Warning) error
	CountActive(ctx context.Context, chatID, userID int64) (int, error)
	CountActiveByChat(ctx context.Context, chatID int64) (int64, error)
	ExpireLatest(ctx context.Context, chatID, userID int64) (*Warning, error)
	Active(ctx context.Context, chatID, userID int64) ([]*Warning, error)
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Muter применяет мут. Реализуется сервисом мутов.
type Muter interface {
	Apply(ctx context.Context, chatID, userID, adminID int64, d time.Duration, reason string) (*time.Time, error)
}

// Service управляет предупреждениями.
type Service struct {
	repo      Store
	muter     Muter
	threshold int
	muteFor   time.Duration
	now       func() time.Time
}

// NewService создаёт сервис предупреждений.
// threshold — со скольких действующих предупреждений начинается мут,
// muteFor — длительность мута эскалации.
func NewService(repo Store, muter Muter, threshold int, muteFor time.Duration) *Service {
	return &Service{
		repo:      repo,
		muter:     muter,
		threshold: threshold,
		muteFor:   muteFor,
		now:       time.Now,
	}
}

// Threshold возвращает порог эскалации.
func (s *Service) Threshold() int { return s.threshold }

// MuteFor возвращает длительность мута эскалации.
func (s *Service) MuteFor() time.Duration { return s.muteFor }

// Add выдаёт предупреждение. Пустая причина заменяется дежурной.
// ttl задаёт срок действия; nil — до явного снятия.
//
// Когда число действующих предупреждений достигает порога, сервис сам
// выдаёт мут от имени бота. Эскалация компенсируема, а не транзакционна:
// предупреждение уже записано, и если мут записать не удалось даже со
// второй попытки, ошибка возвращается в AddResult.MuteErr, а факт
// остаётся в логе. Молча эскалация не теряется.
func (s *Service) Add(ctx context.Context, chatID, userID, adminID int64, reason string, ttl *time.Duration) (*AddResult, error) {
	if strings.TrimSpace(reason) == "" {
		reason = defaultReason
	}

	w := &Warning{ChatID: chatID, UserID: userID, AdminID: adminID, Reason: reason}
	if ttl != nil {
		expires := s.now().Add(*ttl)
		w.ExpiresAt = &expires
	}

	if err := s.repo.Insert(ctx, w); err != nil {
		return nil, err
	}

	active, err := s.repo.CountActive(ctx, chatID, userID)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"chat_id": chatID,
			"user_id": userID,
		}).Error("Предупреждение записано, но счётчик недоступен: эскалация не проверена")
		return nil, err
	}

	res := &AddResult{Warning: w, Active: active}
	if active == s.threshold {
		res.Escalated = true
		res.MutedUntil, res.MuteErr = s.escalate(ctx, chatID, userID)
	}
	return res, nil
}

// escalate выдаёт мут эскалации с одной повторной попыткой.
func (s *Service) escalate(ctx context.Context, chatID, userID int64) (*time.Time, error) {
	until, err := s.muter.Apply(ctx, chatID, userID, systemAdminID, s.muteFor, escalationReason)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"chat_id": chatID,
			"user_id": userID,
		}).Warn("Мут эскалации не записан, повторная попытка")
		until, err = s.muter.Apply(ctx, chatID, userID, systemAdminID, s.muteFor, escalationReason)
	}
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"chat_id": chatID,
			"user_id": userID,
		}).Error("Эскалация отложена: предупреждение стоит, мут не записан")
		return nil, err
	}

	log.WithFields(log.Fields{
		"chat_id": chatID,
		"user_id": userID,
	}).Info("Порог предупреждений превышен, выдан мут")
	return until, nil
}

// RemoveLast снимает самое свежее действующее предупреждение и возвращает
// его. Если действующих нет — common.ErrNoActiveWarning, записи не меняются.
func (s *Service) RemoveLast(ctx context.Context, chatID, userID int64) (*Warning, error) {
	w, err := s.repo.ExpireLatest(ctx, chatID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNoActiveWarning
		}
		return nil, err
	}
	return w, nil
}

// Active возвращает действующие предупреждения участника, старые раньше новых.
func (s *Service) Active(ctx context.Context, chatID, userID int64) ([]*Warning, error) {
	return s.repo.Active(ctx, chatID, userID)
}

// CountActiveByChat возвращает число действующих предупреждений во всём чате.
func (s *Service) CountActiveByChat(ctx context.Context, chatID int64) (int64, error) {
	return s.repo.CountActiveByChat(ctx, chatID)
}

// PurgeExpired удаляет предупреждения, истёкшие раньше cutoff.
func (s *Service) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.repo.DeleteExpiredBefore(ctx, cutoff)
}
