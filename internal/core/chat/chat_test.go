package chat

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/hive-chat/internal/core/kv"
	"github.com/hay-kot/hive-chat/internal/store/jsonfile"
)

// stepClock returns a clock that advances by step on every call.
type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newStepClock() *stepClock {
	return &stepClock{
		now:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		step: time.Millisecond,
	}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T) kv.Store {
	t.Helper()
	return jsonfile.NewKVStore(filepath.Join(t.TempDir(), "chat.json"))
}

func texts(events []Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Text)
	}
	return out
}

func TestLog_CapacityInvariant(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	clock := newStepClock()
	log := NewLog(store, 5).WithClock(clock.Now)

	for i := range 12 {
		_, err := log.Append(ctx, fmt.Sprintf("m%d", i))
		require.NoError(t, err)

		n, err := log.Len(ctx)
		require.NoError(t, err)
		assert.LessOrEqual(t, n, 5, "log exceeded capacity after append %d", i)
	}
}

func TestLog_Append55KeepsNewest50(t *testing.T) {
	ctx := context.Background()
	clock := newStepClock()
	log := NewLog(newTestStore(t), 50).WithClock(clock.Now)

	for i := range 55 {
		_, err := log.Append(ctx, fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}

	n, err := log.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, n)

	events, err := log.ReadSince(ctx, 0)
	require.NoError(t, err)
	require.Len(t, events, 50)
	assert.Equal(t, "m5", events[0].Text)
	assert.Equal(t, "m54", events[49].Text)
}

func TestLog_ReadSinceOrderAndFilter(t *testing.T) {
	ctx := context.Background()
	clock := newStepClock()
	log := NewLog(newTestStore(t), 50).WithClock(clock.Now)

	var appended []Event
	for i := range 6 {
		ev, err := log.Append(ctx, fmt.Sprintf("m%d", i))
		require.NoError(t, err)
		appended = append(appended, ev)
	}

	cursor := appended[2].Timestamp
	events, err := log.ReadSince(ctx, cursor)
	require.NoError(t, err)

	assert.Equal(t, []string{"m3", "m4", "m5"}, texts(events))
	for i, ev := range events {
		assert.Greater(t, ev.Timestamp, cursor)
		if i > 0 {
			assert.GreaterOrEqual(t, ev.Timestamp, events[i-1].Timestamp)
		}
	}
}

func TestLog_NoDuplicateDelivery(t *testing.T) {
	ctx := context.Background()
	clock := newStepClock()
	log := NewLog(newTestStore(t), 50).WithClock(clock.Now)

	var (
		cursor    float64
		delivered []string
	)
	poll := func() {
		events, err := log.ReadSince(ctx, cursor)
		require.NoError(t, err)
		delivered = append(delivered, texts(events)...)
		cursor = MaxTimestamp(cursor, events)
	}

	var want []string
	for round := range 5 {
		for i := range round + 1 {
			text := fmt.Sprintf("r%d-%d", round, i)
			want = append(want, text)
			_, err := log.Append(ctx, text)
			require.NoError(t, err)
		}
		poll()
		poll() // an idle poll delivers nothing new
	}

	assert.Equal(t, want, delivered)
}

func TestLog_CursorSurvivesEviction(t *testing.T) {
	ctx := context.Background()
	clock := newStepClock()
	log := NewLog(newTestStore(t), 3).WithClock(clock.Now)

	first, err := log.Append(ctx, "a")
	require.NoError(t, err)
	_, _ = log.Append(ctx, "b")
	_, _ = log.Append(ctx, "c")
	_, _ = log.Append(ctx, "d") // evicts "a"

	events, err := log.ReadSince(ctx, first.Timestamp)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "d"}, texts(events))
}

func TestLog_OverloadDropsEvictedEvents(t *testing.T) {
	ctx := context.Background()
	clock := newStepClock()
	log := NewLog(newTestStore(t), 3).WithClock(clock.Now)

	for i := range 5 {
		_, err := log.Append(ctx, fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}

	events, err := log.ReadSince(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"m2", "m3", "m4"}, texts(events))
}

func TestRegistry_LoginExclusive(t *testing.T) {
	ctx := context.Background()
	clock := newStepClock()
	store := newTestStore(t)
	log := NewLog(store, 50)
	reg := NewRegistry(store, log, 30*time.Second).WithClock(clock.Now)

	require.NoError(t, reg.Login(ctx, "alice"))

	err := reg.Login(ctx, "alice")
	require.ErrorIs(t, err, ErrAlreadyTaken)

	events, err := log.ReadSince(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{JoinText("alice")}, texts(events), "rejected login must not announce")
}

func TestRegistry_HeartbeatUnknownIsNoop(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	reg := NewRegistry(store, NewLog(store, 50), 30*time.Second)

	require.NoError(t, reg.Heartbeat(ctx, "ghost"))

	users, err := reg.Registered(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestRegistry_HeartbeatRefreshes(t *testing.T) {
	ctx := context.Background()
	clock := newStepClock()
	store := newTestStore(t)
	reg := NewRegistry(store, NewLog(store, 50), 30*time.Second).WithClock(clock.Now)

	require.NoError(t, reg.Login(ctx, "dave"))
	clock.Advance(25 * time.Second)
	require.NoError(t, reg.Heartbeat(ctx, "dave"))
	clock.Advance(25 * time.Second)

	active, err := reg.Active(ctx, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{"dave"}, active)
}

func TestRegistry_PresenceTimeout(t *testing.T) {
	ctx := context.Background()
	clock := newStepClock()
	store := newTestStore(t)
	reg := NewRegistry(store, NewLog(store, 50), 30*time.Second).WithClock(clock.Now)

	require.NoError(t, reg.Login(ctx, "carol"))
	clock.Advance(31 * time.Second)

	active, err := reg.Active(ctx, clock.Now())
	require.NoError(t, err)
	assert.NotContains(t, active, "carol")

	registered, err := reg.Registered(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"carol"}, registered, "timeout must not delete the entry")

	require.NoError(t, reg.Logout(ctx, "carol"))
	registered, err = reg.Registered(ctx)
	require.NoError(t, err)
	assert.Empty(t, registered)
}

func TestRegistry_ActiveIsSorted(t *testing.T) {
	ctx := context.Background()
	clock := newStepClock()
	store := newTestStore(t)
	reg := NewRegistry(store, NewLog(store, 50), 30*time.Second).WithClock(clock.Now)

	for _, u := range []string{"zed", "alice", "mallory", "bob"} {
		require.NoError(t, reg.Login(ctx, u))
	}

	active, err := reg.Active(ctx, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "mallory", "zed"}, active)
}

func TestRegistry_LogoutUnknownStillAnnounces(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	log := NewLog(store, 50)
	reg := NewRegistry(store, log, 30*time.Second)

	require.NoError(t, reg.Logout(ctx, "nobody"))

	events, err := log.ReadSince(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{LeaveText("nobody")}, texts(events))
}

func TestRegistry_ConcurrentLoginsSameName(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	log := NewLog(store, 50)
	reg := NewRegistry(store, log, 30*time.Second)

	const contenders = 6
	results := make(chan error, contenders)
	for range contenders {
		go func() { results <- reg.Login(ctx, "race") }()
	}

	var ok, taken int
	for range contenders {
		err := <-results
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrAlreadyTaken):
			taken++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, ok)
	assert.Equal(t, contenders-1, taken)

	events, err := log.ReadSince(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

// failingStore fails every call with err.
type failingStore struct{ err error }

func (f failingStore) HExists(context.Context, string, string) (bool, error) { return false, f.err }
func (f failingStore) HGetAll(context.Context, string) (map[string]string, error) {
	return nil, f.err
}
func (f failingStore) LRange(context.Context, string, int, int) ([]string, error) {
	return nil, f.err
}
func (f failingStore) Exec(context.Context, kv.Batch) error { return f.err }
func (f failingStore) Ping(context.Context) error           { return f.err }
func (f failingStore) Close() error                         { return nil }

func TestStoreFailuresAreStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	cause := errors.New("connection refused")
	store := failingStore{err: cause}
	log := NewLog(store, 50)
	reg := NewRegistry(store, log, 30*time.Second)

	_, err := log.Append(ctx, "x")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, cause)

	_, err = log.ReadSince(ctx, 0)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	assert.ErrorIs(t, reg.Login(ctx, "a"), ErrStoreUnavailable)
	assert.ErrorIs(t, reg.Heartbeat(ctx, "a"), ErrStoreUnavailable)
	assert.ErrorIs(t, reg.Logout(ctx, "a"), ErrStoreUnavailable)

	_, err = reg.Active(ctx, time.Now())
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestTimestampRoundTrip(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 250_000_000, time.UTC)
	ts := Timestamp(now)

	assert.InDelta(t, 1714564800.25, ts, 1e-6)
	assert.WithinDuration(t, now, FromTimestamp(ts), time.Microsecond)
	assert.WithinDuration(t, now, Event{Timestamp: ts}.Time(), time.Microsecond)
}

func TestMaxTimestamp(t *testing.T) {
	events := []Event{{Timestamp: 3}, {Timestamp: 7}, {Timestamp: 5}}
	assert.InDelta(t, 7.0, MaxTimestamp(1, events), 0)
	assert.InDelta(t, 9.0, MaxTimestamp(9, events), 0)
	assert.InDelta(t, 4.0, MaxTimestamp(4, nil), 0)
}

// gatedStore holds the first Exec until release is closed.
type gatedStore struct {
	kv.Store
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) Exec(ctx context.Context, b kv.Batch) error {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.Store.Exec(ctx, b)
}

func TestLog_ReadSinceOrdersOutOfOrderCommits(t *testing.T) {
	ctx := context.Background()
	store := &gatedStore{
		Store:   newTestStore(t),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	log := NewLog(store, 50).WithClock(newStepClock().Now)

	first := make(chan error, 1)
	go func() {
		_, err := log.Append(ctx, "stamped first")
		first <- err
	}()

	<-store.entered
	_, err := log.Append(ctx, "committed first")
	require.NoError(t, err)

	close(store.release)
	require.NoError(t, <-first)

	events, err := log.ReadSince(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"stamped first", "committed first"}, texts(events))
	assert.IsNonDecreasing(t, []float64{events[0].Timestamp, events[1].Timestamp})
}
