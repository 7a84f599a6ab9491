package tui

import (
	"sync"

	"github.com/hay-kot/hive-chat/internal/core/chat"
)

// Feed hands events from the session's poll loop to the model. Deliver blocks
// while the model is busy so nothing is dropped, and returns immediately once
// the feed is closed.
type Feed struct {
	ch   chan []chat.Event
	done chan struct{}
	once sync.Once
}

// NewFeed creates a Feed buffering up to buffer batches.
func NewFeed(buffer int) *Feed {
	return &Feed{
		ch:   make(chan []chat.Event, buffer),
		done: make(chan struct{}),
	}
}

// Deliver queues a batch of events for display.
func (f *Feed) Deliver(events []chat.Event) {
	select {
	case f.ch <- events:
	case <-f.done:
	}
}

// Events returns the channel the model reads from.
func (f *Feed) Events() <-chan []chat.Event {
	return f.ch
}

// Close unblocks pending and future Deliver calls.
func (f *Feed) Close() {
	f.once.Do(func() { close(f.done) })
}
