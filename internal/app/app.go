// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, репозитории, сервисы, обработчики,
// контроллер допуска и собирает всё в один объект Bot.
package app

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"dukebot.dev/moderation-bot/internal/bot"
	"dukebot.dev/moderation-bot/internal/bot/admission"
	"dukebot.dev/moderation-bot/internal/config"
	"dukebot.dev/moderation-bot/internal/db/postgres"
	"dukebot.dev/moderation-bot/internal/features/chatmeta"
	"dukebot.dev/moderation-bot/internal/features/karma"
	"dukebot.dev/moderation-bot/internal/features/members"
	"dukebot.dev/moderation-bot/internal/features/mutes"
	"dukebot.dev/moderation-bot/internal/features/stats"
	"dukebot.dev/moderation-bot/internal/features/warnings"
	"dukebot.dev/moderation-bot/internal/jobs"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	Admission *admission.Controller
	DB        *pgxpool.Pool
	BotAPI    *tgbotapi.BotAPI
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Telegram Bot API ===
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	botAPI.Debug = cfg.AppEnv == "development"
	log.Infof("Авторизован как @%s", botAPI.Self.UserName)

	// === 3. Репозитории ===
	retrier := postgres.NewRetrier(cfg)

	memberRepo := members.NewRepository(pool, retrier)
	karmaRepo := karma.NewRepository(pool, retrier)
	warningRepo := warnings.NewRepository(pool, retrier)
	muteRepo := mutes.NewRepository(pool, retrier)
	chatmetaRepo := chatmeta.NewRepository(pool, retrier)

	// === 4. Сервисы ===
	memberService := members.NewService(memberRepo)
	karmaService := karma.NewService(karmaRepo)
	muteService := mutes.NewService(muteRepo)
	// при достижении порога предупреждений сервис мутов выдаёт мут
	warningService := warnings.NewService(warningRepo, muteService, cfg.WarnThreshold, cfg.WarnMuteDuration)
	chatmetaService := chatmeta.NewService(chatmetaRepo)
	statsService := stats.NewService()

	// === 5. Допуск команд ===
	registry := bot.NewCommandRegistry(cfg)
	ctrl := admission.New(cfg, bot.NewAdminSource(botAPI), registry.Specs())

	// === 6. Обработчики ===
	memberHandler := members.NewHandler(botAPI, memberService)
	karmaHandler := karma.NewHandler(karmaService, botAPI)
	muteHandler := mutes.NewHandler(muteService, botAPI)
	warningHandler := warnings.NewHandler(warningService, botAPI, muteHandler)
	chatmetaHandler := chatmeta.NewHandler(chatmetaService, botAPI)
	statsHandler := stats.NewHandler(statsService, botAPI, memberService, karmaService, warningService)

	// === 7. Собираем бота ===
	b := bot.New(
		botAPI, cfg,
		ctrl, registry, statsService,
		memberService,
		memberHandler,
		karmaHandler,
		warningHandler,
		muteHandler,
		chatmetaHandler,
		statsHandler,
	)

	// === 8. Планировщик задач ===
	scheduler := jobs.NewScheduler(warningService, muteService, memberService, statsService, cfg.RetentionDays)

	return &App{
		Bot:       b,
		Scheduler: scheduler,
		Admission: ctrl,
		DB:        pool,
		BotAPI:    botAPI,
	}, nil
}

// runMigrations выполняет все SQL-миграции.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return err
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001Members},
		{2, migration002Karma},
		{3, migration003Warnings},
		{4, migration004Mutes},
		{5, migration005ChatSettings},
	}

	for _, m := range migrations {
		if err := postgres.ExecMigrationSQL(ctx, pool, m.version, m.sql); err != nil {
			return fmt.Errorf("миграция %d: %w", m.version, err)
		}
		log.Infof("Миграция %d применена", m.version)
	}

	return nil
}

// SQL-миграции встроены в код для упрощения деплоя.

var migration001Members = `
CREATE TABLE IF NOT EXISTS members (
    id BIGSERIAL PRIMARY KEY,
    chat_id BIGINT NOT NULL,
    user_id BIGINT NOT NULL,
    username VARCHAR(255) NOT NULL DEFAULT '',
    first_name VARCHAR(255) NOT NULL,
    last_name VARCHAR(255) NOT NULL DEFAULT '',
    message_count BIGINT NOT NULL DEFAULT 0,
    joined_at TIMESTAMP DEFAULT NOW(),
    last_seen_at TIMESTAMP DEFAULT NOW(),
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW(),
    UNIQUE (chat_id, user_id)
);
CREATE INDEX IF NOT EXISTS idx_members_chat_username ON members(chat_id, LOWER(username));
CREATE INDEX IF NOT EXISTS idx_members_chat_last_seen ON members(chat_id, last_seen_at DESC);
`

var migration002Karma = `
CREATE TABLE IF NOT EXISTS karma (
    id BIGSERIAL PRIMARY KEY,
    chat_id BIGINT NOT NULL,
    user_id BIGINT NOT NULL,
    karma_points INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW(),
    UNIQUE (chat_id, user_id),
    FOREIGN KEY (chat_id, user_id) REFERENCES members(chat_id, user_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_karma_chat_points ON karma(chat_id, karma_points DESC);
`

var migration003Warnings = `
CREATE TABLE IF NOT EXISTS warnings (
    id BIGSERIAL PRIMARY KEY,
    chat_id BIGINT NOT NULL,
    user_id BIGINT NOT NULL,
    admin_id BIGINT NOT NULL DEFAULT 0,
    reason TEXT NOT NULL,
    issued_at TIMESTAMP NOT NULL DEFAULT NOW(),
    expires_at TIMESTAMP,
    FOREIGN KEY (chat_id, user_id) REFERENCES members(chat_id, user_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_warnings_chat_user_issued ON warnings(chat_id, user_id, issued_at DESC);
CREATE INDEX IF NOT EXISTS idx_warnings_expires_at ON warnings(expires_at);
`

var migration004Mutes = `
CREATE TABLE IF NOT EXISTS mutes (
    id BIGSERIAL PRIMARY KEY,
    chat_id BIGINT NOT NULL,
    user_id BIGINT NOT NULL,
    admin_id BIGINT NOT NULL DEFAULT 0,
    reason TEXT NOT NULL DEFAULT '',
    issued_at TIMESTAMP NOT NULL DEFAULT NOW(),
    muted_until TIMESTAMP,
    FOREIGN KEY (chat_id, user_id) REFERENCES members(chat_id, user_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_mutes_chat_user_issued ON mutes(chat_id, user_id, issued_at DESC);
`

var migration005ChatSettings = `
CREATE TABLE IF NOT EXISTS chat_settings (
    id BIGSERIAL PRIMARY KEY,
    chat_id BIGINT UNIQUE NOT NULL,
    rules TEXT NOT NULL DEFAULT '',
    welcome TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);
`
