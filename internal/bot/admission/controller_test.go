package admission

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dukebot.dev/moderation-bot/internal/config"
)

var groupKinds = []string{"group", "supergroup"}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

type fakeAdminSource struct {
	mu     sync.Mutex
	admins map[int64][]int64
	err    error
	calls  int
}

func (f *fakeAdminSource) ChatAdmins(ctx context.Context, chatID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.admins[chatID], nil
}

func (f *fakeAdminSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testConfig() *config.Config {
	return &config.Config{
		AdminIDs:          []int64{900},
		RateLimitRequests: 5,
		RateLimitWindow:   5 * time.Second,
		DefaultCooldown:   5 * time.Second,
		AdminCacheTTL:     10 * time.Minute,
		AdminCacheSize:    16,
		SweepInterval:     time.Hour,
	}
}

func newTestController(t *testing.T, cfg *config.Config, source AdminSource, specs []CommandSpec) (*Controller, *fakeClock) {
	t.Helper()
	if source == nil {
		source = &fakeAdminSource{}
	}
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	c := New(cfg, source, specs)
	c.now = clock.Now
	t.Cleanup(c.Close)
	return c, clock
}

func groupRequest(userID int64, spec CommandSpec) Request {
	return Request{
		Actor:    Actor{ChatID: -1001, UserID: userID},
		ChatKind: "supergroup",
		Spec:     spec,
	}
}

func TestAdmitCooldownScenario(t *testing.T) {
	nukem := CommandSpec{Name: "nukem", ChatKinds: groupKinds, Cooldown: 60 * time.Second}
	c, clock := newTestController(t, testConfig(), nil, []CommandSpec{nukem})
	ctx := context.Background()

	// t=0: допущено
	d := c.Admit(ctx, groupRequest(1, nukem))
	require.True(t, d.Allowed)
	assert.Equal(t, RejectionNone, d.Kind)

	// t=30: отказ, осталось ~30 секунд
	clock.Advance(30 * time.Second)
	d = c.Admit(ctx, groupRequest(1, nukem))
	require.False(t, d.Allowed)
	assert.Equal(t, RejectionCooldown, d.Kind)
	assert.Equal(t, 30*time.Second, d.Remaining)

	// t=61: кулдаун истёк
	clock.Advance(31 * time.Second)
	d = c.Admit(ctx, groupRequest(1, nukem))
	assert.True(t, d.Allowed)
}

func TestAdmitCooldownStampedAtAdmission(t *testing.T) {
	nukem := CommandSpec{Name: "nukem", ChatKinds: groupKinds, Cooldown: 60 * time.Second}
	c, _ := newTestController(t, testConfig(), nil, []CommandSpec{nukem})
	ctx := context.Background()

	// Метка ставится при допуске, а не после обработчика: повторный
	// вызов в тот же момент уже видит полный кулдаун.
	require.True(t, c.Admit(ctx, groupRequest(1, nukem)).Allowed)
	d := c.Admit(ctx, groupRequest(1, nukem))
	require.False(t, d.Allowed)
	assert.Equal(t, RejectionCooldown, d.Kind)
	assert.Equal(t, 60*time.Second, d.Remaining)
}

func TestAdmitRateLimitWindow(t *testing.T) {
	ping := CommandSpec{Name: "ping", ChatKinds: groupKinds}
	c, clock := newTestController(t, testConfig(), nil, []CommandSpec{ping})
	ctx := context.Background()

	// Пять вызовов в окно проходят, шестой — нет
	for i := 0; i < 5; i++ {
		clock.Advance(100 * time.Millisecond)
		require.True(t, c.Admit(ctx, groupRequest(1, ping)).Allowed, "вызов %d", i+1)
	}
	d := c.Admit(ctx, groupRequest(1, ping))
	require.False(t, d.Allowed)
	assert.Equal(t, RejectionRateLimited, d.Kind)

	// Окно скользит: после паузы лимит снова свободен
	clock.Advance(6 * time.Second)
	assert.True(t, c.Admit(ctx, groupRequest(1, ping)).Allowed)
}

func TestAdmitRejectedCallKeepsNoState(t *testing.T) {
	ping := CommandSpec{Name: "ping", ChatKinds: groupKinds}
	nukem := CommandSpec{Name: "nukem", ChatKinds: groupKinds, Cooldown: 60 * time.Second}
	c, clock := newTestController(t, testConfig(), nil, []CommandSpec{ping, nukem})
	ctx := context.Background()

	// Забиваем окно бескулдаунной командой
	for i := 0; i < 5; i++ {
		require.True(t, c.Admit(ctx, groupRequest(1, ping)).Allowed)
	}

	// nukem отбит rate limit'ом — метки кулдауна быть не должно
	d := c.Admit(ctx, groupRequest(1, nukem))
	require.False(t, d.Allowed)
	require.Equal(t, RejectionRateLimited, d.Kind)

	clock.Advance(6 * time.Second)
	assert.True(t, c.Admit(ctx, groupRequest(1, nukem)).Allowed,
		"отказанный вызов не должен ставить кулдаун")
}

func TestAdmitCooldownBeforeRateLimit(t *testing.T) {
	nukem := CommandSpec{Name: "nukem", ChatKinds: groupKinds, Cooldown: 60 * time.Second}
	ping := CommandSpec{Name: "ping", ChatKinds: groupKinds}
	c, clock := newTestController(t, testConfig(), nil, []CommandSpec{nukem, ping})
	ctx := context.Background()

	require.True(t, c.Admit(ctx, groupRequest(1, nukem)).Allowed)
	for i := 0; i < 4; i++ {
		require.True(t, c.Admit(ctx, groupRequest(1, ping)).Allowed)
	}

	// Кулдаун активен И окно забито: побеждает первая проверка
	clock.Advance(time.Second)
	d := c.Admit(ctx, groupRequest(1, nukem))
	require.False(t, d.Allowed)
	assert.Equal(t, RejectionCooldown, d.Kind)
}

func TestAdmitChatTypeGate(t *testing.T) {
	warn := CommandSpec{Name: "warn", ChatKinds: groupKinds, AdminOnly: true, Cooldown: 10 * time.Second}
	c, _ := newTestController(t, testConfig(), nil, []CommandSpec{warn})

	// Групповая команда в личке: отказ по типу чата, причём ДО проверки
	// прав (пользователь к тому же не админ)
	d := c.Admit(context.Background(), Request{
		Actor:    Actor{ChatID: 42, UserID: 42},
		ChatKind: "private",
		Spec:     warn,
	})
	require.False(t, d.Allowed)
	assert.Equal(t, RejectionChatType, d.Kind)
}

func TestAdmitAuthorizationGate(t *testing.T) {
	source := &fakeAdminSource{admins: map[int64][]int64{-1001: {77}}}
	warn := CommandSpec{Name: "warn", ChatKinds: groupKinds, AdminOnly: true, Cooldown: 10 * time.Second}
	c, _ := newTestController(t, testConfig(), source, []CommandSpec{warn})
	ctx := context.Background()

	// Обычный пользователь — отказ
	d := c.Admit(ctx, groupRequest(1, warn))
	require.False(t, d.Allowed)
	assert.Equal(t, RejectionUnauthorized, d.Kind)

	// Админ чата — допуск
	assert.True(t, c.Admit(ctx, groupRequest(77, warn)).Allowed)
}

func TestAdmitAuthorizationSourceError(t *testing.T) {
	source := &fakeAdminSource{err: errors.New("telegram timeout")}
	warn := CommandSpec{Name: "warn", ChatKinds: groupKinds, AdminOnly: true}
	c, _ := newTestController(t, testConfig(), source, []CommandSpec{warn})

	// Платформа недоступна: безопасный отказ, не паника
	d := c.Admit(context.Background(), groupRequest(1, warn))
	require.False(t, d.Allowed)
	assert.Equal(t, RejectionUnauthorized, d.Kind)
}

func TestAdmitGlobalAdminBypass(t *testing.T) {
	source := &fakeAdminSource{}
	nukem := CommandSpec{Name: "nukem", ChatKinds: groupKinds, Cooldown: 60 * time.Second}
	warn := CommandSpec{Name: "warn", ChatKinds: groupKinds, AdminOnly: true, Cooldown: 10 * time.Second}
	c, _ := newTestController(t, testConfig(), source, []CommandSpec{nukem, warn})
	ctx := context.Background()

	// Глобальный админ (id 900): ни кулдаун, ни rate limit не мешают
	for i := 0; i < 20; i++ {
		require.True(t, c.Admit(ctx, groupRequest(900, nukem)).Allowed, "вызов %d", i+1)
	}

	// Админ-команда тоже проходит, причём без запроса к платформе
	assert.True(t, c.Admit(ctx, groupRequest(900, warn)).Allowed)
	assert.Equal(t, 0, source.callCount())
}

func TestAdminCacheAndInvalidate(t *testing.T) {
	source := &fakeAdminSource{admins: map[int64][]int64{-1001: {77}}}
	warn := CommandSpec{Name: "warn", ChatKinds: groupKinds, AdminOnly: true}
	c, _ := newTestController(t, testConfig(), source, []CommandSpec{warn})
	ctx := context.Background()

	require.True(t, c.Admit(ctx, groupRequest(77, warn)).Allowed)
	require.True(t, c.Admit(ctx, groupRequest(77, warn)).Allowed)
	assert.Equal(t, 1, source.callCount(), "второй допуск из кэша")

	// Разжаловали: после Invalidate контроллер видит новый состав
	source.mu.Lock()
	source.admins[-1001] = []int64{88}
	source.mu.Unlock()
	c.Invalidate(-1001)

	d := c.Admit(ctx, groupRequest(77, warn))
	require.False(t, d.Allowed)
	assert.Equal(t, RejectionUnauthorized, d.Kind)
	assert.Equal(t, 2, source.callCount())
}

func TestAdminCacheTTL(t *testing.T) {
	source := &fakeAdminSource{admins: map[int64][]int64{-1001: {77}}}
	cfg := testConfig()
	cfg.AdminCacheTTL = 50 * time.Millisecond
	warn := CommandSpec{Name: "warn", ChatKinds: groupKinds, AdminOnly: true}
	c, _ := newTestController(t, cfg, source, []CommandSpec{warn})
	ctx := context.Background()

	require.True(t, c.Admit(ctx, groupRequest(77, warn)).Allowed)
	require.Equal(t, 1, source.callCount())

	// TTL — страховка на случай пропущенного события о смене ролей
	time.Sleep(120 * time.Millisecond)
	require.True(t, c.Admit(ctx, groupRequest(77, warn)).Allowed)
	assert.Equal(t, 2, source.callCount())
}

func TestAdmitSameUserConcurrentCooldown(t *testing.T) {
	nukem := CommandSpec{Name: "nukem", ChatKinds: groupKinds, Cooldown: 60 * time.Second}
	c, _ := newTestController(t, testConfig(), nil, []CommandSpec{nukem})
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.Admit(ctx, groupRequest(1, nukem)).Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, allowed, "одновременные вызовы не должны давать двойной допуск")
}

func TestAdmitSameUserConcurrentRateLimit(t *testing.T) {
	ping := CommandSpec{Name: "ping", ChatKinds: groupKinds}
	c, _ := newTestController(t, testConfig(), nil, []CommandSpec{ping})
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.Admit(ctx, groupRequest(1, ping)).Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, allowed, "допущено ровно limit вызовов")
}

func TestAdmitCrossUserParallel(t *testing.T) {
	nukem := CommandSpec{Name: "nukem", ChatKinds: groupKinds, Cooldown: 60 * time.Second}
	c, _ := newTestController(t, testConfig(), nil, []CommandSpec{nukem})
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	// Кулдаун индивидуален: первый вызов каждого пользователя проходит
	for i := 0; i < 40; i++ {
		userID := int64(i + 1)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.Admit(ctx, groupRequest(userID, nukem)).Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 40, allowed)
}

func TestSweepEvictsStaleState(t *testing.T) {
	nukem := CommandSpec{Name: "nukem", ChatKinds: groupKinds, Cooldown: 60 * time.Second}
	c, clock := newTestController(t, testConfig(), nil, []CommandSpec{nukem})
	ctx := context.Background()

	for userID := int64(1); userID <= 10; userID++ {
		require.True(t, c.Admit(ctx, groupRequest(userID, nukem)).Allowed)
	}
	require.Greater(t, stateSize(c), 0)

	// Старше самого длинного кулдауна и окна — подлежит чистке
	clock.Advance(2 * time.Minute)
	c.sweepOnce()

	assert.Equal(t, 0, stateSize(c), "мёртвые записи вычищены")
}

func stateSize(c *Controller) int {
	total := 0
	for _, s := range c.stripes {
		s.mu.Lock()
		total += len(s.cooldowns) + len(s.windows)
		s.mu.Unlock()
	}
	return total
}
