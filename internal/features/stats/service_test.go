package stats

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotCountsEverything(t *testing.T) {
	svc := NewService()

	svc.MessageSeen()
	svc.MessageSeen()
	svc.CommandProcessed("warn")
	svc.CommandProcessed("warn")
	svc.CommandProcessed("karma")
	svc.RejectionIssued("cooldown")
	svc.ErrorOccurred("store_unavailable")

	snap := svc.Snapshot()
	assert.Equal(t, int64(2), snap.Messages)
	assert.Equal(t, int64(2), snap.Commands["warn"])
	assert.Equal(t, int64(1), snap.Commands["karma"])
	assert.Equal(t, int64(3), snap.CommandsTotal())
	assert.Equal(t, int64(1), snap.Rejections["cooldown"])
	assert.Equal(t, int64(1), snap.Errors["store_unavailable"])
}

func TestSnapshotIsACopy(t *testing.T) {
	svc := NewService()
	svc.CommandProcessed("warn")

	snap := svc.Snapshot()
	snap.Commands["warn"] = 100

	assert.Equal(t, int64(1), svc.Snapshot().Commands["warn"])
}

func TestSnapshotUptime(t *testing.T) {
	svc := NewService()
	base := svc.startedAt
	svc.now = func() time.Time { return base.Add(90 * time.Second) }

	assert.Equal(t, 90*time.Second, svc.Snapshot().Uptime)
}

func TestCountersConcurrent(t *testing.T) {
	svc := NewService()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.CommandProcessed("karma")
			svc.MessageSeen()
			svc.RejectionIssued("rate_limited")
		}()
	}
	wg.Wait()

	snap := svc.Snapshot()
	assert.Equal(t, int64(50), snap.Commands["karma"])
	assert.Equal(t, int64(50), snap.Messages)
	assert.Equal(t, int64(50), snap.Rejections["rate_limited"])
}

func TestFormatUptime(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{42 * time.Second, "0м 42с"},
		{5 * time.Minute, "5м 0с"},
		{2*time.Hour + 13*time.Minute, "2ч 13м"},
		{26*time.Hour + 5*time.Minute, "1д 2ч 5м"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, formatUptime(tc.in), "in=%v", tc.in)
	}
}
