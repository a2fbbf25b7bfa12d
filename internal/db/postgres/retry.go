// Package postgres — retry.go реализует повторы запросов к БД.
// Репозитории оборачивают каждый запрос в Retrier.Do: временные сбои
// (таймауты, обрывы соединения) повторяются с экспоненциальной задержкой,
// постоянные ошибки (кривой SQL, нарушение ограничений) отдаются сразу.
package postgres

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	log "github.com/sirupsen/logrus"

	"dukebot.dev/moderation-bot/internal/common"
	"dukebot.dev/moderation-bot/internal/config"
)

// Retrier выполняет операции с БД с таймаутом на попытку и повторами.
// Один экземпляр разделяется всеми репозиториями; сами репозитории
// повторов не делают.
type Retrier struct {
	timeout  time.Duration
	maxTries int
	base     time.Duration
	maxDelay time.Duration
}

// NewRetrier собирает Retrier из конфигурации.
func NewRetrier(cfg *config.Config) *Retrier {
	return &Retrier{
		timeout:  cfg.StoreTimeout,
		maxTries: cfg.StoreRetryMax,
		base:     cfg.StoreRetryBase,
		maxDelay: cfg.StoreRetryMaxDelay,
	}
}

// Do выполняет fn, ограничивая каждую попытку таймаутом. Временные ошибки
// повторяются до maxTries попыток суммарно, с экспоненциальной задержкой
// и джиттером. pgx.ErrNoRows — не сбой хранилища и возвращается как есть.
// Постоянная ошибка или исчерпание попыток заворачиваются в
// *common.StoreError (errors.Is(err, common.ErrStoreUnavailable) == true).
func (r *Retrier) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.base
	policy.RandomizationFactor = 0.5
	policy.Multiplier = 2
	policy.MaxInterval = r.maxDelay
	policy.MaxElapsedTime = 0 // лимитируем числом попыток, не временем

	var lastErr error
	for attempt := 0; attempt < r.maxTries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
		err := fn(attemptCtx)
		cancel()

		if err == nil {
			return nil
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		lastErr = err
		if !IsTransient(err) {
			log.WithError(err).WithField("op", op).Error("Постоянная ошибка хранилища")
			return &common.StoreError{Op: op, Err: err}
		}
		if attempt == r.maxTries-1 {
			break
		}

		wait := policy.NextBackOff()
		log.WithFields(log.Fields{
			"op":      op,
			"attempt": attempt + 1,
			"wait":    wait,
		}).WithError(err).Warn("Временный сбой хранилища, повторяем")

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return &common.StoreError{Op: op, Err: ctx.Err()}
		}
	}

	log.WithError(lastErr).WithField("op", op).Error("Хранилище недоступно, попытки исчерпаны")
	return &common.StoreError{Op: op, Err: lastErr}
}

// IsTransient отличает временные сбои от постоянных ошибок.
// Временные: таймауты, сетевые ошибки и классы PostgreSQL
// 08 (connection exception), 53 (insufficient resources),
// 57 (operator intervention, например admin_shutdown).
// Отмена контекста вызывающим — не повод повторять.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if pgconn.Timeout(err) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "08") ||
			strings.HasPrefix(pgErr.Code, "53") ||
			strings.HasPrefix(pgErr.Code, "57")
	}
	return false
}
