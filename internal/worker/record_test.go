package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/example/order-pipeline/internal/worker"
)

func TestNewRecordBindsCommit(t *testing.T) {
	ctx := context.Background()

	commits := 0
	record := worker.NewRecord(
		"order.task", 2, 41,
		[]byte("ORD-1"), []byte(`{"order_id":"ORD-1"}`),
		time.Unix(0, 0).UTC(),
		map[string][]byte{"content-type": []byte("application/json")},
		func(context.Context) error {
			commits++
			return nil
		},
	)

	if record.Topic != "order.task" || record.Partition != 2 || record.Offset != 41 {
		t.Fatalf("unexpected record coordinates: %s/%d/%d", record.Topic, record.Partition, record.Offset)
	}
	if string(record.Key) != "ORD-1" {
		t.Fatalf("got key %q", record.Key)
	}

	if err := record.Commit(ctx); err != nil {
		t.Fatalf("unexpected commit error: %v", err)
	}
	// Committing is idempotent; only the first call reaches the transport.
	if err := record.Commit(ctx); err != nil {
		t.Fatalf("unexpected second commit error: %v", err)
	}
	if commits != 1 {
		t.Fatalf("transport commit called %d times, want 1", commits)
	}
}

func TestRecordCloneCarriesCommitBinding(t *testing.T) {
	ctx := context.Background()

	commits := 0
	record := worker.NewRecord(
		"order.task", 0, 7,
		[]byte("ORD-2"), []byte("{}"),
		time.Unix(0, 0).UTC(), nil,
		func(context.Context) error {
			commits++
			return nil
		},
	)

	clone := record.Clone()
	if err := clone.Commit(ctx); err != nil {
		t.Fatalf("unexpected commit error: %v", err)
	}
	if commits != 1 {
		t.Fatalf("transport commit called %d times, want 1", commits)
	}

	// The clone owns its data.
	clone.Value[0] = 'x'
	if record.Value[0] == 'x' {
		t.Fatalf("clone shares value storage with the original")
	}
}
