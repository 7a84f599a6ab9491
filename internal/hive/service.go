// Package hive wires the chat components into the stateless command executor
// used by the HTTP transport.
package hive

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hay-kot/hive-chat/internal/core/chat"
	"github.com/hay-kot/hive-chat/internal/core/config"
	"github.com/hay-kot/hive-chat/internal/core/kv"
	"github.com/hay-kot/hive-chat/internal/core/validate"
)

// Service executes chat commands against the shared store. It keeps no
// per-client state; every call is an independent unit of work.
type Service struct {
	store    kv.Store
	log      zerolog.Logger
	messages *chat.Log
	presence *chat.Registry
	now      func() time.Time
}

// New creates a new Service.
func New(store kv.Store, cfg *config.Config, log zerolog.Logger) *Service {
	messages := chat.NewLog(store, cfg.Chat.MaxMessages)
	return &Service{
		store:    store,
		log:      log,
		messages: messages,
		presence: chat.NewRegistry(store, messages, cfg.Chat.UserTimeout()),
		now:      time.Now,
	}
}

// WithClock replaces the clock used for timestamps and presence checks.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	s.presence.WithClock(now)
	return s
}

// Presence returns the presence registry.
func (s *Service) Presence() *chat.Registry {
	return s.presence
}

// Ready reports whether the backing store is reachable.
func (s *Service) Ready(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", chat.ErrStoreUnavailable, err)
	}
	return nil
}

// Execute validates and runs a single command.
func (s *Service) Execute(ctx context.Context, req chat.Request) (chat.Reply, error) {
	if req.Command == "" || req.Username == "" {
		return chat.Reply{}, fmt.Errorf("%w: missing command or username", chat.ErrMalformedRequest)
	}
	if err := validate.Username(req.Username); err != nil {
		return chat.Reply{}, fmt.Errorf("%w: %w", chat.ErrMalformedRequest, err)
	}

	log := s.log.With().Str("command", req.Command).Str("username", req.Username).Logger()
	reply := chat.Reply{Command: req.Command, Username: req.Username}

	switch req.Command {
	case chat.CommandLogin:
		if err := s.presence.Login(ctx, req.Username); err != nil {
			return chat.Reply{}, err
		}
		log.Info().Msg("user logged in")

	case chat.CommandHeartbeat:
		if err := s.presence.Heartbeat(ctx, req.Username); err != nil {
			return chat.Reply{}, err
		}
		reply.Status = chat.StatusOK

	case chat.CommandMsg:
		if _, err := s.messages.Append(ctx, chat.MessageText(req.Username, req.Text)); err != nil {
			return chat.Reply{}, err
		}
		// Posting counts as activity; the message is already committed, so a
		// failed refresh is only logged.
		if err := s.presence.Heartbeat(ctx, req.Username); err != nil {
			log.Warn().Err(err).Msg("failed to refresh presence after message")
		}
		reply.Status = chat.StatusSent

	case chat.CommandQueryActive:
		active, err := s.presence.Active(ctx, s.now())
		if err != nil {
			return chat.Reply{}, err
		}
		reply.Active = active

	case chat.CommandLogout:
		if err := s.presence.Logout(ctx, req.Username); err != nil {
			return chat.Reply{}, err
		}
		log.Info().Msg("user logged out")
		reply.Status = chat.StatusLoggedOut

	default:
		return chat.Reply{}, fmt.Errorf("%w: %q", chat.ErrUnknownCommand, req.Command)
	}

	return reply, nil
}

// Poll returns the retained events newer than cursor, oldest first.
func (s *Service) Poll(ctx context.Context, cursor float64) ([]chat.Event, error) {
	return s.messages.ReadSince(ctx, cursor)
}
