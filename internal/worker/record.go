package worker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Record represents a queued message delivered to a worker. It is a minimal
// abstraction that keeps the engines decoupled from the concrete consumer
// implementation while still exposing the data they require.
type Record struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Timestamp time.Time
	Headers   map[string][]byte

	mu        sync.Mutex
	committed bool
	commitFn  func(context.Context) error
}

// NewRecord constructs a record carrying the delivered message data with the
// supplied transport acknowledgement bound to Commit.
func NewRecord(topic string, partition int32, offset int64, key, value []byte, ts time.Time, headers map[string][]byte, commit func(context.Context) error) *Record {
	return &Record{
		Topic:     topic,
		Partition: partition,
		Offset:    offset,
		Key:       cloneBytes(key),
		Value:     cloneBytes(value),
		Timestamp: ts,
		Headers:   cloneHeaders(headers),
		commitFn:  commit,
	}
}

// Commit acknowledges the record with the underlying transport. Committing
// is idempotent; only the first call reaches the transport.
func (r *Record) Commit(ctx context.Context) error {
	if r == nil {
		return errors.New("worker: record is nil")
	}

	r.mu.Lock()
	if r.committed {
		r.mu.Unlock()
		return nil
	}
	fn := r.commitFn
	r.committed = true
	r.mu.Unlock()

	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// Clone returns a deep copy of the record so it can be safely shared with
// asynchronous goroutines. The commit binding is carried over.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	fn := r.commitFn
	committed := r.committed
	r.mu.Unlock()

	clone := &Record{
		Topic:     r.Topic,
		Partition: r.Partition,
		Offset:    r.Offset,
		Key:       cloneBytes(r.Key),
		Value:     cloneBytes(r.Value),
		Timestamp: r.Timestamp,
		Headers:   cloneHeaders(r.Headers),
		committed: committed,
		commitFn:  fn,
	}
	return clone
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	clone := make([]byte, len(b))
	copy(clone, b)
	return clone
}

func cloneHeaders(headers map[string][]byte) map[string][]byte {
	if len(headers) == 0 {
		return nil
	}
	clone := make(map[string][]byte, len(headers))
	for k, v := range headers {
		clone[k] = cloneBytes(v)
	}
	return clone
}
