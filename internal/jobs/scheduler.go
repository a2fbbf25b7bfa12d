// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: ночная чистка устаревших
// записей и ежечасный снимок счётчиков.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"dukebot.dev/moderation-bot/internal/common"
	"dukebot.dev/moderation-bot/internal/features/members"
	"dukebot.dev/moderation-bot/internal/features/mutes"
	"dukebot.dev/moderation-bot/internal/features/stats"
	"dukebot.dev/moderation-bot/internal/features/warnings"
)

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron *cron.Cron

	warningService *warnings.Service
	muteService    *mutes.Service
	memberService  *members.Service
	statsService   *stats.Service

	retention time.Duration
}

// NewScheduler создаёт планировщик задач с московским часовым поясом.
// retentionDays задаёт возраст, после которого истёкшие предупреждения,
// завершённые муты и неактивные участники удаляются.
func NewScheduler(
	warningService *warnings.Service,
	muteService *mutes.Service,
	memberService *members.Service,
	statsService *stats.Service,
	retentionDays int,
) *Scheduler {
	c := cron.New(cron.WithLocation(common.MoscowLocation()))

	return &Scheduler{
		cron:           c,
		warningService: warningService,
		muteService:    muteService,
		memberService:  memberService,
		statsService:   statsService,
		retention:      time.Duration(retentionDays) * 24 * time.Hour,
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) {
	// Ночная чистка в 03:30 по Москве
	s.cron.AddFunc("30 3 * * *", func() {
		log.Info("[CRON] Чистка устаревших записей")
		s.purge(ctx)
	})

	// Снимок счётчиков каждый час
	s.cron.AddFunc("0 * * * *", func() {
		snap := s.statsService.Snapshot()
		log.WithFields(log.Fields{
			"uptime":     snap.Uptime.Round(time.Second).String(),
			"messages":   snap.Messages,
			"commands":   snap.CommandsTotal(),
			"rejections": snap.Rejections,
		}).Info("[CRON] Счётчики за час")
	})

	s.cron.Start()
	log.Info("Планировщик задач запущен (Europe/Moscow)")
}

// purge удаляет записи старше срока хранения.
func (s *Scheduler) purge(ctx context.Context) {
	cutoff := time.Now().Add(-s.retention)

	if n, err := s.warningService.PurgeExpired(ctx, cutoff); err != nil {
		log.WithError(err).Error("[CRON] Ошибка чистки предупреждений")
	} else if n > 0 {
		log.WithField("deleted", n).Info("[CRON] Удалены истёкшие предупреждения")
	}

	if n, err := s.muteService.PurgeFinished(ctx, cutoff); err != nil {
		log.WithError(err).Error("[CRON] Ошибка чистки мутов")
	} else if n > 0 {
		log.WithField("deleted", n).Info("[CRON] Удалены завершённые муты")
	}

	if n, err := s.memberService.PurgeInactive(ctx, cutoff); err != nil {
		log.WithError(err).Error("[CRON] Ошибка чистки участников")
	} else if n > 0 {
		log.WithField("deleted", n).Info("[CRON] Удалены неактивные участники")
	}
}

// Stop останавливает планировщик.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
