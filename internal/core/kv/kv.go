// Package kv defines the shared key-value store contract used by the chat service.
//
// The contract mirrors a small subset of Redis: hashes, lists and an atomic batch.
// All cross-client state lives behind this interface; nothing above it holds
// authoritative state in process.
package kv

import (
	"context"
	"errors"
)

// ErrConditionFailed is returned by Exec when a batch guard does not hold.
// No operation of the batch has been applied.
var ErrConditionFailed = errors.New("batch condition failed")

// OpKind identifies a write operation inside a batch.
type OpKind int

const (
	OpHSet OpKind = iota
	OpHDel
	OpLPush
	OpLTrim
)

func (k OpKind) String() string {
	switch k {
	case OpHSet:
		return "HSET"
	case OpHDel:
		return "HDEL"
	case OpLPush:
		return "LPUSH"
	case OpLTrim:
		return "LTRIM"
	default:
		return "UNKNOWN"
	}
}

// Op is a single write operation. Fields are interpreted per Kind.
type Op struct {
	Kind  OpKind
	Key   string
	Field string
	Value string
	Start int
	Stop  int
}

// HSet sets field in the hash at key.
func HSet(key, field, value string) Op {
	return Op{Kind: OpHSet, Key: key, Field: field, Value: value}
}

// HDel removes field from the hash at key. Removing a missing field is not an error.
func HDel(key, field string) Op {
	return Op{Kind: OpHDel, Key: key, Field: field}
}

// LPush inserts value at the head of the list at key.
func LPush(key, value string) Op {
	return Op{Kind: OpLPush, Key: key, Value: value}
}

// LTrim keeps only the elements between start and stop (inclusive).
// Negative indexes count from the tail, as in Redis.
func LTrim(key string, start, stop int) Op {
	return Op{Kind: OpLTrim, Key: key, Start: start, Stop: stop}
}

// Condition guards a batch on the presence or absence of a hash field.
type Condition struct {
	Key    string
	Field  string
	Exists bool
}

// FieldExists returns a condition that holds when field is set in the hash at key.
func FieldExists(key, field string) *Condition {
	return &Condition{Key: key, Field: field, Exists: true}
}

// FieldAbsent returns a condition that holds when field is not set in the hash at key.
func FieldAbsent(key, field string) *Condition {
	return &Condition{Key: key, Field: field, Exists: false}
}

// Batch is a group of writes applied indivisibly.
type Batch struct {
	// Cond, when set, is evaluated atomically with the writes.
	Cond *Condition
	Ops  []Op
}

// Store is the shared store. Implementations must apply each Batch atomically:
// concurrent readers never observe a partial batch and batches never interleave.
type Store interface {
	HExists(ctx context.Context, key, field string) (bool, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	// LRange returns the elements between start and stop (inclusive), head first.
	LRange(ctx context.Context, key string, start, stop int) ([]string, error)
	Exec(ctx context.Context, b Batch) error
	Ping(ctx context.Context) error
	Close() error
}

// NormalizeRange converts Redis-style start/stop indexes into a half-open
// [lo, hi) slice range over a list of length n. An empty range returns lo == hi.
func NormalizeRange(start, stop, n int) (lo, hi int) {
	if start < 0 {
		start = n + start
	}
	if stop < 0 {
		stop = n + stop
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return 0, 0
	}
	return start, stop + 1
}
