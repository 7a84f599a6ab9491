package doctor

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/hay-kot/hive-chat/internal/core/chat"
	"github.com/hay-kot/hive-chat/internal/core/config"
	"github.com/hay-kot/hive-chat/internal/core/kv"
)

// Opener opens the configured store.
type Opener func(ctx context.Context, cfg *config.Config) (kv.Store, error)

// StoreCheck verifies the configured backend is reachable and its chat
// state is readable.
type StoreCheck struct {
	config *config.Config
	open   Opener
	user   string
}

// NewStoreCheck creates a new store check.
func NewStoreCheck(cfg *config.Config, open Opener) *StoreCheck {
	return &StoreCheck{config: cfg, open: open}
}

// WithUser additionally reports whether user holds a registry entry. A stale
// entry left by a client that never logged out keeps the name taken.
func (c *StoreCheck) WithUser(user string) *StoreCheck {
	c.user = user
	return c
}

func (c *StoreCheck) Name() string {
	return "Store"
}

func (c *StoreCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}
	if c.config == nil {
		return result
	}

	store, err := c.open(ctx, c.config)
	if err != nil {
		result.Items = append(result.Items, fail("Open "+c.config.Store.Backend, err))
		return result
	}
	defer func() { _ = store.Close() }()

	if err := store.Ping(ctx); err != nil {
		result.Items = append(result.Items, fail("Ping", err))
		return result
	}
	result.Items = append(result.Items, pass("Ping", c.config.Store.Backend))

	log := chat.NewLog(store, c.config.Chat.MaxMessages)
	n, err := log.Len(ctx)
	if err != nil {
		result.Items = append(result.Items, fail("Message log", err))
	} else {
		result.Items = append(result.Items, pass("Message log", fmt.Sprintf("%d/%d retained", n, log.MaxMessages())))
	}

	registry := chat.NewRegistry(store, log, c.config.Chat.UserTimeout())
	users, err := registry.Registered(ctx)
	if err != nil {
		result.Items = append(result.Items, fail("Presence", err))
		return result
	}
	active, err := registry.Active(ctx, time.Now())
	if err != nil {
		result.Items = append(result.Items, fail("Presence", err))
		return result
	}
	result.Items = append(result.Items, pass("Presence",
		fmt.Sprintf("%d registered, %d active within %s", len(users), len(active), registry.Timeout())))

	if c.user == "" {
		return result
	}
	ok, err := registry.IsRegistered(ctx, c.user)
	switch {
	case err != nil:
		result.Items = append(result.Items, fail("User "+c.user, err))
	case !ok:
		result.Items = append(result.Items, pass("User "+c.user, "not registered, name is free"))
	case slices.Contains(active, c.user):
		result.Items = append(result.Items, pass("User "+c.user, "registered and active"))
	default:
		result.Items = append(result.Items, warn("User "+c.user, "registered but inactive, name stays taken until logout"))
	}

	return result
}
