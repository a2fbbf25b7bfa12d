package admission

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	log "github.com/sirupsen/logrus"

	"dukebot.dev/moderation-bot/internal/config"
)

// stripeCount — число шардов блокировок. Допуски одного пользователя
// сериализуются мьютексом его шарда, разные пользователи идут параллельно.
const stripeCount = 64

type cooldownKey struct {
	userID  int64
	command string
}

// stripe хранит кулдауны и окна rate limit своей доли пользователей.
// Мьютекс шарда делает проверку и запись одним атомарным шагом.
type stripe struct {
	mu        sync.Mutex
	cooldowns map[cooldownKey]time.Time
	windows   map[int64][]time.Time
}

// Controller — контроллер допуска команд. Всё состояние живёт в памяти
// процесса и теряется при рестарте.
type Controller struct {
	globalAdmins map[int64]struct{}
	source       AdminSource
	adminCache   *expirable.LRU[int64, []int64]

	stripes [stripeCount]*stripe

	limit       int
	window      time.Duration
	maxCooldown time.Duration

	now func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New создаёт контроллер и запускает фоновую чистку. specs нужны, чтобы
// узнать самый длинный кулдаун: записи старше него заведомо мертвы.
func New(cfg *config.Config, source AdminSource, specs []CommandSpec) *Controller {
	maxCooldown := cfg.DefaultCooldown
	for _, s := range specs {
		if s.Cooldown > maxCooldown {
			maxCooldown = s.Cooldown
		}
	}

	globals := make(map[int64]struct{}, len(cfg.AdminIDs))
	for _, id := range cfg.AdminIDs {
		globals[id] = struct{}{}
	}

	c := &Controller{
		globalAdmins: globals,
		source:       source,
		adminCache:   expirable.NewLRU[int64, []int64](cfg.AdminCacheSize, nil, cfg.AdminCacheTTL),
		limit:        cfg.RateLimitRequests,
		window:       cfg.RateLimitWindow,
		maxCooldown:  maxCooldown,
		now:          time.Now,
		stopCh:       make(chan struct{}),
	}
	for i := range c.stripes {
		c.stripes[i] = &stripe{
			cooldowns: make(map[cooldownKey]time.Time),
			windows:   make(map[int64][]time.Time),
		}
	}

	go c.sweep(cfg.SweepInterval)
	return c
}

// Close останавливает фоновую горутину очистки.
// Его надо вызывать на shutdown (иначе sweep будет жить вечно).
func (c *Controller) Close() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// Admit прогоняет запрос через четыре проверки в фиксированном порядке:
// тип чата → права → кулдаун → rate limit. Глобальные админы проходят
// без кулдауна и rate limit, и их вызовы не оставляют следа в состоянии.
func (c *Controller) Admit(ctx context.Context, req Request) Decision {
	// 1. Тип чата
	if !containsKind(req.Spec.ChatKinds, req.ChatKind) {
		return Decision{Kind: RejectionChatType}
	}

	// 2. Права
	isGlobal := c.IsGlobalAdmin(req.Actor.UserID)
	if req.Spec.AdminOnly && !isGlobal && !c.isChatAdmin(ctx, req.Actor.ChatID, req.Actor.UserID) {
		return Decision{Kind: RejectionUnauthorized}
	}
	if isGlobal {
		return Decision{Allowed: true}
	}

	s := c.stripes[uint64(req.Actor.UserID)%stripeCount]
	s.mu.Lock()
	defer s.mu.Unlock()

	now := c.now()

	// 3. Кулдаун команды
	key := cooldownKey{userID: req.Actor.UserID, command: req.Spec.Name}
	if req.Spec.Cooldown > 0 {
		if last, ok := s.cooldowns[key]; ok {
			if remaining := req.Spec.Cooldown - now.Sub(last); remaining > 0 {
				return Decision{Kind: RejectionCooldown, Remaining: remaining}
			}
		}
	}

	// 4. Rate limit: сначала чистим окно, потом решаем.
	// В окне лежат только допущенные вызовы — отказ слот не занимает.
	cutoff := now.Add(-c.window)
	var recent []time.Time
	for _, t := range s.windows[req.Actor.UserID] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	if len(recent) >= c.limit {
		s.windows[req.Actor.UserID] = recent
		return Decision{Kind: RejectionRateLimited}
	}
	s.windows[req.Actor.UserID] = append(recent, now)

	// Метка кулдауна ставится ДО выполнения обработчика: повторный вызов
	// во время долгого обработчика уже упирается в кулдаун.
	if req.Spec.Cooldown > 0 {
		s.cooldowns[key] = now
	}

	return Decision{Allowed: true}
}

// IsGlobalAdmin — пользователь из ADMIN_IDS.
func (c *Controller) IsGlobalAdmin(userID int64) bool {
	_, ok := c.globalAdmins[userID]
	return ok
}

// IsAdmin — глобальный админ или администратор этого чата.
// Используется обработчиками для внутренних проверок (например, кто
// может смотреть чужие предупреждения).
func (c *Controller) IsAdmin(ctx context.Context, chatID, userID int64) bool {
	return c.IsGlobalAdmin(userID) || c.isChatAdmin(ctx, chatID, userID)
}

// Invalidate сбрасывает кэш админов чата. Вызывается диспетчером, когда
// в чате кого-то повысили или разжаловали.
func (c *Controller) Invalidate(chatID int64) {
	c.adminCache.Remove(chatID)
}

// isChatAdmin проверяет права по кэшу админов чата; на промахе делает
// один запрос к платформе. Ошибка платформы считается отсутствием прав.
func (c *Controller) isChatAdmin(ctx context.Context, chatID, userID int64) bool {
	admins, ok := c.adminCache.Get(chatID)
	if !ok {
		fetched, err := c.source.ChatAdmins(ctx, chatID)
		if err != nil {
			log.WithError(err).WithField("chat_id", chatID).Warn("Не удалось получить список админов чата")
			return false
		}
		c.adminCache.Add(chatID, fetched)
		admins = fetched
	}
	for _, id := range admins {
		if id == userID {
			return true
		}
	}
	return false
}

func containsKind(kinds []string, kind string) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// sweep периодически вычищает мёртвые записи: кулдауны старше самого
// длинного кулдауна и окна rate limit без свежих отметок.
func (c *Controller) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.sweepOnce()
		}
	}
}

func (c *Controller) sweepOnce() {
	now := c.now()
	cooldownCutoff := now.Add(-c.maxCooldown)
	windowCutoff := now.Add(-c.window)

	for _, s := range c.stripes {
		s.mu.Lock()
		for key, last := range s.cooldowns {
			if last.Before(cooldownCutoff) {
				delete(s.cooldowns, key)
			}
		}
		for userID, times := range s.windows {
			var recent []time.Time
			for _, t := range times {
				if t.After(windowCutoff) {
					recent = append(recent, t)
				}
			}
			if len(recent) == 0 {
				delete(s.windows, userID)
			} else {
				s.windows[userID] = recent
			}
		}
		s.mu.Unlock()
	}
}
