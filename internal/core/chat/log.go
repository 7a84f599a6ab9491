package chat

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/hay-kot/hive-chat/internal/core/kv"
)

// DefaultMaxMessages is the default retention cap of the message log.
const DefaultMaxMessages = 50

// Log is a typed facade over the bounded, newest-first message list in the store.
type Log struct {
	store       kv.Store
	maxMessages int
	now         func() time.Time
}

// NewLog creates a message log over store retaining at most maxMessages entries.
// A non-positive maxMessages selects DefaultMaxMessages.
func NewLog(store kv.Store, maxMessages int) *Log {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	return &Log{
		store:       store,
		maxMessages: maxMessages,
		now:         time.Now,
	}
}

// WithClock replaces the clock used to stamp new events.
func (l *Log) WithClock(now func() time.Time) *Log {
	l.now = now
	return l
}

// MaxMessages returns the retention cap.
func (l *Log) MaxMessages() int {
	return l.maxMessages
}

// NewEvent stamps text with the current time.
func (l *Log) NewEvent(text string) Event {
	return Event{Text: text, Timestamp: Timestamp(l.now())}
}

// AppendOps returns the push and trim for ev. Callers combining them with other
// writes must submit all of them in one batch to keep the capacity invariant.
func (l *Log) AppendOps(ev Event) ([]kv.Op, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return []kv.Op{
		kv.LPush(MessagesKey, string(data)),
		kv.LTrim(MessagesKey, 0, l.maxMessages-1),
	}, nil
}

// Append stamps text, pushes it to the head of the log and trims the log to
// capacity in a single atomic batch.
func (l *Log) Append(ctx context.Context, text string) (Event, error) {
	ev := l.NewEvent(text)

	ops, err := l.AppendOps(ev)
	if err != nil {
		return Event{}, err
	}

	if err := l.store.Exec(ctx, kv.Batch{Ops: ops}); err != nil {
		return Event{}, storeErr("append message", err)
	}
	return ev, nil
}

// ReadSince returns the retained events newer than cursor, oldest first.
// Events are stamped before their batch commits, so two concurrent appends may
// land in the list out of timestamp order; the result is sorted by timestamp.
func (l *Log) ReadSince(ctx context.Context, cursor float64) ([]Event, error) {
	raw, err := l.store.LRange(ctx, MessagesKey, 0, l.maxMessages-1)
	if err != nil {
		return nil, storeErr("read messages", err)
	}

	events := make([]Event, 0, len(raw))
	for _, item := range slices.Backward(raw) {
		var ev Event
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			return nil, fmt.Errorf("decode stored event: %w", err)
		}
		if ev.Timestamp > cursor {
			events = append(events, ev)
		}
	}

	slices.SortStableFunc(events, func(a, b Event) int {
		return cmp.Compare(a.Timestamp, b.Timestamp)
	})
	return events, nil
}

// Len returns the number of retained events.
func (l *Log) Len(ctx context.Context) (int, error) {
	raw, err := l.store.LRange(ctx, MessagesKey, 0, -1)
	if err != nil {
		return 0, storeErr("read messages", err)
	}
	return len(raw), nil
}
