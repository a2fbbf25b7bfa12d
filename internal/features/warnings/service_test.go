package warnings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dukebot.dev/moderation-bot/internal/common"
	"dukebot.dev/moderation-bot/internal/features/mutes"
)

// fakeStore — хранилище предупреждений в памяти с тем же предикатом
// активности, что и у SQL-запросов.
type fakeStore struct {
	rows   []*Warning
	nextID int64
	now    func() time.Time
}

func newFakeStore(now func() time.Time) *fakeStore {
	return &fakeStore{now: now}
}

func (f *fakeStore) active(chatID, userID int64) []*Warning {
	var out []*Warning
	for _, w := range f.rows {
		if w.ChatID == chatID && w.UserID == userID && w.Active(f.now()) {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.Before(out[j].IssuedAt) })
	return out
}

func (f *fakeStore) Insert(_ context.Context, w *Warning) error {
	f.nextID++
	w.ID = f.nextID
	w.IssuedAt = f.now()
	f.rows = append(f.rows, w)
	return nil
}

func (f *fakeStore) CountActive(_ context.Context, chatID, userID int64) (int, error) {
	return len(f.active(chatID, userID)), nil
}

func (f *fakeStore) CountActiveByChat(_ context.Context, chatID int64) (int64, error) {
	var n int64
	for _, w := range f.rows {
		if w.ChatID == chatID && w.Active(f.now()) {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) ExpireLatest(_ context.Context, chatID, userID int64) (*Warning, error) {
	active := f.active(chatID, userID)
	if len(active) == 0 {
		return nil, fmt.Errorf("действующих предупреждений нет: %w", pgx.ErrNoRows)
	}
	last := active[len(active)-1]
	now := f.now()
	last.ExpiresAt = &now
	return last, nil
}

func (f *fakeStore) Active(_ context.Context, chatID, userID int64) ([]*Warning, error) {
	return f.active(chatID, userID), nil
}

func (f *fakeStore) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var kept []*Warning
	var deleted int64
	for _, w := range f.rows {
		if w.ExpiresAt != nil && w.ExpiresAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, w)
	}
	f.rows = kept
	return deleted, nil
}

// fakeMuter записывает вызовы и падает заданное число раз.
type fakeMuter struct {
	calls    []fakeMuteCall
	failnext int
	until    time.Time
}

type fakeMuteCall struct {
	chatID, userID, adminID int64
	duration                time.Duration
	reason                  string
}

func (f *fakeMuter) Apply(_ context.Context, chatID, userID, adminID int64, d time.Duration, reason string) (*time.Time, error) {
	f.calls = append(f.calls, fakeMuteCall{chatID, userID, adminID, d, reason})
	if f.failnext > 0 {
		f.failnext--
		return nil, errors.New("хранилище недоступно")
	}
	return &f.until, nil
}

func TestAddAndEscalate(t *testing.T) {
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore(func() time.Time { return clock })
	muter := &fakeMuter{until: clock.Add(24 * time.Hour)}
	svc := NewService(store, muter, 3, 24*time.Hour)
	svc.now = func() time.Time { return clock }
	ctx := context.Background()

	for i, reason := range []string{"р1", "р2"} {
		res, err := svc.Add(ctx, -100, 42, 7, reason, nil)
		require.NoError(t, err)
		assert.Equal(t, i+1, res.Active)
		assert.False(t, res.Escalated)
	}
	assert.Empty(t, muter.calls)

	res, err := svc.Add(ctx, -100, 42, 7, "р3", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Active)
	assert.True(t, res.Escalated)
	require.NoError(t, res.MuteErr)

	// Мут выдан от имени бота с причиной эскалации
	require.Len(t, muter.calls, 1)
	call := muter.calls[0]
	assert.Equal(t, int64(-100), call.chatID)
	assert.Equal(t, int64(42), call.userID)
	assert.Equal(t, int64(0), call.adminID)
	assert.Equal(t, 24*time.Hour, call.duration)
	assert.Equal(t, "превышен порог предупреждений", call.reason)

	// Предупреждения после эскалации остаются действующими
	active, err := svc.Active(ctx, -100, 42)
	require.NoError(t, err)
	require.Len(t, active, 3)
	assert.Equal(t, "р1", active[0].Reason)
	assert.Equal(t, "р3", active[2].Reason)
}

func TestAddPastThresholdNoSecondEscalation(t *testing.T) {
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore(func() time.Time { return clock })
	muter := &fakeMuter{until: clock.Add(24 * time.Hour)}
	svc := NewService(store, muter, 3, 24*time.Hour)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := svc.Add(ctx, -100, 42, 7, "", nil)
		require.NoError(t, err)
	}

	// Эскалация только на пересечении порога
	assert.Len(t, muter.calls, 1)
}

func TestAddDefaultReason(t *testing.T) {
	clock := time.Now()
	store := newFakeStore(func() time.Time { return clock })
	svc := NewService(store, &fakeMuter{}, 3, time.Hour)

	res, err := svc.Add(context.Background(), -100, 42, 7, "   ", nil)
	require.NoError(t, err)
	assert.Equal(t, "причина не указана", res.Warning.Reason)
}

func TestAddWithTTL(t *testing.T) {
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore(func() time.Time { return clock })
	svc := NewService(store, &fakeMuter{}, 3, time.Hour)
	svc.now = func() time.Time { return clock }

	ttl := 48 * time.Hour
	res, err := svc.Add(context.Background(), -100, 42, 7, "спам", &ttl)
	require.NoError(t, err)
	require.NotNil(t, res.Warning.ExpiresAt)
	assert.Equal(t, clock.Add(ttl), *res.Warning.ExpiresAt)
}

func TestEscalationRetriesOnceThenSucceeds(t *testing.T) {
	clock := time.Now()
	store := newFakeStore(func() time.Time { return clock })
	muter := &fakeMuter{failnext: 1, until: clock.Add(24 * time.Hour)}
	svc := NewService(store, muter, 1, 24*time.Hour)

	res, err := svc.Add(context.Background(), -100, 42, 7, "", nil)
	require.NoError(t, err)
	assert.True(t, res.Escalated)
	assert.NoError(t, res.MuteErr)
	assert.Len(t, muter.calls, 2)
}

func TestEscalationFailureKeepsWarning(t *testing.T) {
	clock := time.Now()
	store := newFakeStore(func() time.Time { return clock })
	muter := &fakeMuter{failnext: 2}
	svc := NewService(store, muter, 1, 24*time.Hour)
	ctx := context.Background()

	res, err := svc.Add(ctx, -100, 42, 7, "спам", nil)
	require.NoError(t, err)
	assert.True(t, res.Escalated)
	assert.Error(t, res.MuteErr)
	assert.Len(t, muter.calls, 2)

	// Предупреждение стоит, несмотря на несостоявшийся мут
	active, err := svc.Active(ctx, -100, 42)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

// memMuteStore — хранилище мутов в памяти для сквозного сценария
// с настоящим сервисом мутов.
type memMuteStore struct {
	rows   []*mutes.Mute
	nextID int64
}

func (f *memMuteStore) latest(chatID, userID int64) *mutes.Mute {
	var latest *mutes.Mute
	for _, m := range f.rows {
		if m.ChatID != chatID || m.UserID != userID {
			continue
		}
		if latest == nil || m.ID > latest.ID {
			latest = m
		}
	}
	return latest
}

func (f *memMuteStore) Insert(_ context.Context, m *mutes.Mute) error {
	f.nextID++
	m.ID = f.nextID
	m.IssuedAt = time.Now()
	f.rows = append(f.rows, m)
	return nil
}

func (f *memMuteStore) Latest(_ context.Context, chatID, userID int64) (*mutes.Mute, error) {
	if m := f.latest(chatID, userID); m != nil {
		return m, nil
	}
	return nil, fmt.Errorf("мутов не было: %w", pgx.ErrNoRows)
}

func (f *memMuteStore) Lift(_ context.Context, chatID, userID int64) (bool, error) {
	m := f.latest(chatID, userID)
	if m == nil || !m.Active(time.Now()) {
		return false, nil
	}
	now := time.Now()
	m.Until = &now
	return true, nil
}

func (f *memMuteStore) DeleteFinishedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

// Сквозной сценарий: три предупреждения дают мут, снятие мута
// не трогает сами предупреждения.
func TestEscalationMuteLiftKeepsWarnings(t *testing.T) {
	muteSvc := mutes.NewService(&memMuteStore{})
	store := newFakeStore(time.Now)
	svc := NewService(store, muteSvc, 3, 24*time.Hour)
	ctx := context.Background()

	var res *AddResult
	for _, reason := range []string{"р1", "р2", "р3"} {
		var err error
		res, err = svc.Add(ctx, -100, 42, 7, reason, nil)
		require.NoError(t, err)
	}
	require.True(t, res.Escalated)
	require.NoError(t, res.MuteErr)
	require.NotNil(t, res.MutedUntil)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), *res.MutedUntil, time.Minute)

	muted, err := muteSvc.IsActivelyMuted(ctx, -100, 42)
	require.NoError(t, err)
	assert.True(t, muted)

	lifted, err := muteSvc.Lift(ctx, -100, 42, 7)
	require.NoError(t, err)
	require.True(t, lifted)

	muted, err = muteSvc.IsActivelyMuted(ctx, -100, 42)
	require.NoError(t, err)
	assert.False(t, muted)

	// Предупреждения живут своей жизнью
	active, err := svc.Active(ctx, -100, 42)
	require.NoError(t, err)
	assert.Len(t, active, 3)
}

func TestRemoveLastExpiresNewestFirst(t *testing.T) {
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore(func() time.Time { return clock })
	svc := NewService(store, &fakeMuter{}, 5, time.Hour)
	ctx := context.Background()

	for _, reason := range []string{"первое", "второе"} {
		_, err := svc.Add(ctx, -100, 42, 7, reason, nil)
		require.NoError(t, err)
		clock = clock.Add(time.Minute)
	}

	w, err := svc.RemoveLast(ctx, -100, 42)
	require.NoError(t, err)
	assert.Equal(t, "второе", w.Reason)

	active, err := svc.Active(ctx, -100, 42)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "первое", active[0].Reason)
}

func TestRemoveLastWithoutActive(t *testing.T) {
	clock := time.Now()
	store := newFakeStore(func() time.Time { return clock })
	svc := NewService(store, &fakeMuter{}, 3, time.Hour)

	_, err := svc.RemoveLast(context.Background(), -100, 42)
	assert.ErrorIs(t, err, common.ErrNoActiveWarning)
	assert.Empty(t, store.rows)
}

func TestActiveExcludesExpired(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	store := newFakeStore(func() time.Time { return clock })
	svc := NewService(store, &fakeMuter{}, 10, time.Hour)
	svc.now = func() time.Time { return clock }
	ctx := context.Background()

	ttl := 30 * time.Minute
	_, err := svc.Add(ctx, -100, 42, 7, "временное", &ttl)
	require.NoError(t, err)
	_, err = svc.Add(ctx, -100, 42, 7, "бессрочное", nil)
	require.NoError(t, err)

	clock = base.Add(time.Hour)

	active, err := svc.Active(ctx, -100, 42)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "бессрочное", active[0].Reason)
}

func TestAddStoreErrorPassesThrough(t *testing.T) {
	boom := errors.New("соединение потеряно")
	svc := NewService(&failingStore{err: boom}, &fakeMuter{}, 3, time.Hour)

	_, err := svc.Add(context.Background(), -100, 42, 7, "спам", nil)
	assert.ErrorIs(t, err, boom)
}

// failingStore падает на любой операции.
type failingStore struct{ err error }

func (f *failingStore) Insert(context.Context, *Warning) error { return f.err }
func (f *failingStore) CountActive(context.Context, int64, int64) (int, error) {
	return 0, f.err
}
func (f *failingStore) CountActiveByChat(context.Context, int64) (int64, error) {
	return 0, f.err
}
func (f *failingStore) ExpireLatest(context.Context, int64, int64) (*Warning, error) {
	return nil, f.err
}
func (f *failingStore) Active(context.Context, int64, int64) ([]*Warning, error) {
	return nil, f.err
}
func (f *failingStore) DeleteExpiredBefore(context.Context, time.Time) (int64, error) {
	return 0, f.err
}
