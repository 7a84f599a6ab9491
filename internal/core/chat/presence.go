package chat

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"time"

	"github.com/hay-kot/hive-chat/internal/core/kv"
)

// DefaultUserTimeout is how long after its last heartbeat a user stays active.
const DefaultUserTimeout = 30 * time.Second

// Registry maps usernames to their last heartbeat. Whether a user is active is
// derived on read; entries only disappear on logout.
type Registry struct {
	store   kv.Store
	log     *Log
	timeout time.Duration
	now     func() time.Time
}

// NewRegistry creates a presence registry. Join and leave announcements are
// written to log in the same batch as the registry change.
func NewRegistry(store kv.Store, log *Log, timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = DefaultUserTimeout
	}
	return &Registry{
		store:   store,
		log:     log,
		timeout: timeout,
		now:     time.Now,
	}
}

// WithClock replaces the clock used for heartbeats and announcements.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	r.log.WithClock(now)
	return r
}

// Timeout returns the staleness window.
func (r *Registry) Timeout() time.Duration {
	return r.timeout
}

// Login registers username and announces the join. The existence check is
// evaluated by the store inside the batch, so two concurrent logins with the
// same name cannot both succeed.
func (r *Registry) Login(ctx context.Context, username string) error {
	ev := r.log.NewEvent(JoinText(username))
	ops, err := r.log.AppendOps(ev)
	if err != nil {
		return err
	}

	err = r.store.Exec(ctx, kv.Batch{
		Cond: kv.FieldAbsent(ClientsKey, username),
		Ops:  append([]kv.Op{kv.HSet(ClientsKey, username, FormatTimestamp(ev.Timestamp))}, ops...),
	})
	switch {
	case errors.Is(err, kv.ErrConditionFailed):
		return ErrAlreadyTaken
	case err != nil:
		return storeErr("login", err)
	}
	return nil
}

// Heartbeat refreshes the last heartbeat of username. Unknown users are
// ignored so a heartbeat racing a logout cannot resurrect the entry.
func (r *Registry) Heartbeat(ctx context.Context, username string) error {
	err := r.store.Exec(ctx, kv.Batch{
		Cond: kv.FieldExists(ClientsKey, username),
		Ops:  []kv.Op{kv.HSet(ClientsKey, username, FormatTimestamp(Timestamp(r.now())))},
	})
	switch {
	case errors.Is(err, kv.ErrConditionFailed):
		return nil
	case err != nil:
		return storeErr("heartbeat", err)
	}
	return nil
}

// Logout removes username and announces the departure. Logging out an
// unknown user still writes the announcement.
func (r *Registry) Logout(ctx context.Context, username string) error {
	ops, err := r.log.AppendOps(r.log.NewEvent(LeaveText(username)))
	if err != nil {
		return err
	}

	err = r.store.Exec(ctx, kv.Batch{
		Ops: append([]kv.Op{kv.HDel(ClientsKey, username)}, ops...),
	})
	if err != nil {
		return storeErr("logout", err)
	}
	return nil
}

// Active returns the users whose last heartbeat is within the timeout window
// relative to now, in lexicographic order.
func (r *Registry) Active(ctx context.Context, now time.Time) ([]string, error) {
	clients, err := r.store.HGetAll(ctx, ClientsKey)
	if err != nil {
		return nil, storeErr("query active", err)
	}

	ref := Timestamp(now)
	limit := r.timeout.Seconds()

	active := make([]string, 0, len(clients))
	for user, raw := range clients {
		last, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		if ref-last < limit {
			active = append(active, user)
		}
	}

	slices.Sort(active)
	return active, nil
}

// IsRegistered reports whether username holds a registry entry, active or not.
func (r *Registry) IsRegistered(ctx context.Context, username string) (bool, error) {
	ok, err := r.store.HExists(ctx, ClientsKey, username)
	if err != nil {
		return false, storeErr("check client", err)
	}
	return ok, nil
}

// Registered returns every username holding a registry entry, active or not.
func (r *Registry) Registered(ctx context.Context) ([]string, error) {
	clients, err := r.store.HGetAll(ctx, ClientsKey)
	if err != nil {
		return nil, storeErr("list clients", err)
	}

	users := make([]string, 0, len(clients))
	for user := range clients {
		users = append(users, user)
	}
	slices.Sort(users)
	return users, nil
}
