package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nikahsufiyana/nikah-backend/internal/models"
	"github.com/redis/go-redis/v9"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	core  *Core
	mr    *miniredis.Miniredis
	rdb   *redis.Client
	clock *testClock
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	clock := &testClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	if opts.Now == nil {
		opts.Now = clock.Now
	}
	return &testEnv{
		core:  NewCore(rdb, nil, opts),
		mr:    mr,
		rdb:   rdb,
		clock: clock,
	}
}

func (e *testEnv) addUser(t *testing.T, id string, privacy models.PrivacySettings) {
	t.Helper()
	err := e.core.Profiles.Create(context.Background(), models.UserProfile{ID: id, Username: id, Privacy: privacy})
	if err != nil {
		t.Fatalf("create profile %s: %v", id, err)
	}
}

func (e *testEnv) connection(t *testing.T, viewer, owner string) models.ConnectionType {
	t.Helper()
	c, err := e.core.Connections.GetConnection(context.Background(), viewer, owner)
	if err != nil {
		t.Fatalf("GetConnection(%s, %s): %v", viewer, owner, err)
	}
	return c
}

func (e *testEnv) canView(t *testing.T, viewer, owner string, category models.PhotoCategory) bool {
	t.Helper()
	ok, err := e.core.Resolver.CanView(context.Background(), viewer, owner, category)
	if err != nil {
		t.Fatalf("CanView(%s, %s, %s): %v", viewer, owner, category, err)
	}
	return ok
}

func (e *testEnv) send(t *testing.T, from, to string) *models.Interest {
	t.Helper()
	it, err := e.core.Interests.SendInterest(context.Background(), from, to)
	if err != nil {
		t.Fatalf("SendInterest(%s, %s): %v", from, to, err)
	}
	return it
}

func durationPtr(c models.DurationCode) *models.DurationCode { return &c }

// recordingNotifier collects notifications delivered by the lifecycle.
type recordingNotifier struct {
	ch chan models.Notification
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{ch: make(chan models.Notification, 16)}
}

func (r *recordingNotifier) Notify(_ context.Context, n models.Notification) error {
	r.ch <- n
	return nil
}

func (r *recordingNotifier) next(t *testing.T) models.Notification {
	t.Helper()
	select {
	case n := <-r.ch:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
	return models.Notification{}
}
