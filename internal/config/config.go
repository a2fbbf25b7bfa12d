// Package config загружает конфигурацию бота из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Telegram ---
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	// Глобальные админы: их команды пропускаются без кулдаунов и rate limit
	AdminIDsRaw string  `envconfig:"ADMIN_IDS" required:"true"`
	AdminIDs    []int64 `envconfig:"-"` // заполним вручную

	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"botuser"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"moderation_bot"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`

	// --- Bot runtime ---
	// Сколько апдейтов обрабатываем параллельно. Иначе "go на каждый апдейт" = утечка памяти при флуде.
	BotMaxInflight int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`
	// Таймаут long polling (секунды)
	BotUpdateTimeoutSeconds int `envconfig:"BOT_UPDATE_TIMEOUT_SECONDS" default:"60"`

	// --- Rate Limiting ---
	// Не больше RateLimitRequests команд за RateLimitWindow на пользователя
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"5"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"5s"`

	// --- Cooldowns ---
	DefaultCooldown time.Duration `envconfig:"DEFAULT_COOLDOWN" default:"5s"`
	// Переопределения в формате "команда:длительность" через запятую
	CommandCooldownsRaw string                   `envconfig:"COMMAND_COOLDOWNS" default:"nukem:60s,warn:10s,unwarn:10s,warnings:10s,mute:10s,unmute:10s,karma:5s,give_karma:10s,remove_karma:10s,stats:10s,leaderboard:30s"`
	CommandCooldowns    map[string]time.Duration `envconfig:"-"` // заполним вручную

	// --- Admission: кэш админов чата ---
	AdminCacheTTL  time.Duration `envconfig:"ADMIN_CACHE_TTL" default:"10m"`
	AdminCacheSize int           `envconfig:"ADMIN_CACHE_SIZE" default:"512"`
	// Период фоновой чистки кулдаунов и окон rate limit
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"5m"`

	// --- Warnings ---
	WarnThreshold    int           `envconfig:"WARN_THRESHOLD" default:"3"`
	WarnMuteDuration time.Duration `envconfig:"WARN_MUTE_DURATION" default:"24h"`

	// --- Store retry ---
	StoreTimeout       time.Duration `envconfig:"STORE_TIMEOUT" default:"5s"`
	StoreRetryMax      int           `envconfig:"STORE_RETRY_MAX" default:"3"`
	StoreRetryBase     time.Duration `envconfig:"STORE_RETRY_BASE" default:"100ms"`
	StoreRetryMaxDelay time.Duration `envconfig:"STORE_RETRY_MAX_DELAY" default:"2s"`

	// --- Retention ---
	// Сколько дней храним истёкшие предупреждения и муты
	RetentionDays int `envconfig:"RETENTION_DAYS" default:"90"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// CooldownFor возвращает кулдаун команды: переопределение из
// COMMAND_COOLDOWNS или DefaultCooldown, если переопределения нет.
func (c *Config) CooldownFor(command string) time.Duration {
	if d, ok := c.CommandCooldowns[command]; ok {
		return d
	}
	return c.DefaultCooldown
}

func (c *Config) Validate() error {
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
	}
	if c.BotUpdateTimeoutSeconds <= 0 {
		return fmt.Errorf("BOT_UPDATE_TIMEOUT_SECONDS должен быть > 0")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("некорректные RATE_LIMIT_REQUESTS/RATE_LIMIT_WINDOW")
	}
	if c.DefaultCooldown < 0 {
		return fmt.Errorf("DEFAULT_COOLDOWN не может быть отрицательным")
	}
	if c.WarnThreshold <= 0 {
		return fmt.Errorf("WARN_THRESHOLD должен быть > 0")
	}
	if c.WarnMuteDuration <= 0 {
		return fmt.Errorf("WARN_MUTE_DURATION должен быть > 0")
	}
	if c.AdminCacheSize <= 0 {
		return fmt.Errorf("ADMIN_CACHE_SIZE должен быть > 0")
	}
	if c.StoreRetryMax < 1 {
		return fmt.Errorf("STORE_RETRY_MAX должен быть >= 1")
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT должен быть > 0")
	}
	if c.RetentionDays <= 0 {
		return fmt.Errorf("RETENTION_DAYS должен быть > 0")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	ids, err := parseInt64CSV(cfg.AdminIDsRaw)
	if err != nil {
		return nil, fmt.Errorf("разбор ADMIN_IDS: %w", err)
	}
	cfg.AdminIDs = ids

	cooldowns, err := parseCooldownCSV(cfg.CommandCooldownsRaw)
	if err != nil {
		return nil, fmt.Errorf("разбор COMMAND_COOLDOWNS: %w", err)
	}
	cfg.CommandCooldowns = cooldowns

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseInt64CSV(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("некорректный ID %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// parseCooldownCSV разбирает строку вида "nukem:60s,warn:10s" в карту
// команда → длительность. Имена команд приводятся к нижнему регистру.
func parseCooldownCSV(s string) (map[string]time.Duration, error) {
	out := make(map[string]time.Duration)
	s = strings.TrimSpace(s)
	if s == "" {
		return out, nil
	}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		name, raw, ok := strings.Cut(p, ":")
		if !ok {
			return nil, fmt.Errorf("некорректная запись кулдауна %q", p)
		}
		d, err := time.ParseDuration(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("некорректная длительность кулдауна %q: %w", p, err)
		}
		if d < 0 {
			return nil, fmt.Errorf("отрицательный кулдаун %q", p)
		}
		out[strings.ToLower(strings.TrimSpace(name))] = d
	}
	return out, nil
}
