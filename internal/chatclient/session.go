package chatclient

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/hay-kot/hive-chat/internal/core/chat"
)

// Poller repeatedly fetches new events and hands them to a sink, oldest first.
// The cursor is written only by the polling goroutine.
type Poller struct {
	client   *Client
	interval time.Duration
	deliver  func([]chat.Event)
	log      zerolog.Logger
	cursor   atomic.Uint64
}

// NewPoller creates a Poller starting after cursor.
func NewPoller(client *Client, interval time.Duration, cursor float64, deliver func([]chat.Event), log zerolog.Logger) *Poller {
	p := &Poller{client: client, interval: interval, deliver: deliver, log: log}
	p.cursor.Store(math.Float64bits(cursor))
	return p
}

// Cursor returns the newest timestamp delivered so far.
func (p *Poller) Cursor() float64 {
	return math.Float64frombits(p.cursor.Load())
}

// Run polls every interval until stop is closed. Errors are logged and the
// same cursor is retried on the next tick. Closing stop also cancels a poll
// in flight.
func (p *Poller) Run(stop <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.PollOnce(ctx)

		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

// PollOnce performs a single poll and advances the cursor on success.
func (p *Poller) PollOnce(ctx context.Context) {
	cursor := p.Cursor()
	events, err := p.client.Poll(ctx, cursor)
	if err != nil {
		if ctx.Err() == nil {
			p.log.Warn().Err(err).Float64("cursor", cursor).Msg("poll failed")
		}
		return
	}
	if len(events) == 0 {
		return
	}

	p.deliver(events)
	p.cursor.Store(math.Float64bits(chat.MaxTimestamp(cursor, events)))
}

// SessionOptions configures a Session.
type SessionOptions struct {
	PollInterval      time.Duration
	HeartbeatInterval time.Duration
	// Deliver receives new events from the poll loop.
	Deliver func([]chat.Event)
	// Now sets the initial cursor after login. Defaults to time.Now.
	Now func() time.Time
}

// Session keeps a logged-in user present: it polls for events and sends
// heartbeats in the background while the caller drives interactive commands.
type Session struct {
	client  *Client
	opts    SessionOptions
	log     zerolog.Logger
	poller  *Poller
	running atomic.Bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewSession creates a Session. Nothing is sent until Start.
func NewSession(client *Client, opts SessionOptions, log zerolog.Logger) *Session {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Deliver == nil {
		opts.Deliver = func([]chat.Event) {}
	}
	return &Session{
		client: client,
		opts:   opts,
		log:    log,
		stop:   make(chan struct{}),
	}
}

// Client returns the underlying client for interactive commands.
func (s *Session) Client() *Client {
	return s.client
}

// Start logs in and launches the background loops. A login failure is
// returned and nothing is started.
func (s *Session) Start(ctx context.Context) (string, error) {
	welcome, err := s.client.Login(ctx)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}

	s.poller = NewPoller(s.client, s.opts.PollInterval, chat.Timestamp(s.opts.Now()), s.opts.Deliver, s.log)
	s.running.Store(true)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.poller.Run(s.stop)
	}()
	go func() {
		defer s.wg.Done()
		s.heartbeatLoop()
	}()

	s.log.Debug().Str("username", s.client.Username()).Msg("session started")
	return welcome, nil
}

// Running reports whether the session is active.
func (s *Session) Running() bool {
	return s.running.Load()
}

// Cursor returns the poll cursor, or 0 before Start.
func (s *Session) Cursor() float64 {
	if s.poller == nil {
		return 0
	}
	return s.poller.Cursor()
}

// Stop ends the session and sends a best-effort LOGOUT. Background loops exit
// on their next wake-up; use Wait to block until they have.
func (s *Session) Stop(ctx context.Context) {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	close(s.stop)

	if err := s.client.Logout(ctx); err != nil {
		s.log.Warn().Err(err).Msg("logout failed")
	}
}

// Wait blocks until the background loops have exited.
func (s *Session) Wait() {
	s.wg.Wait()
}

func (s *Session) heartbeatLoop() {
	ticker := time.NewTicker(s.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}

		if err := s.client.Heartbeat(context.Background()); err != nil {
			s.log.Debug().Err(err).Msg("heartbeat failed")
		}
	}
}
