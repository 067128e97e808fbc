package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

type testSchedulerConfig struct {
	redisURL string
}

func (c testSchedulerConfig) GetRedisURL() string       { return c.redisURL }
func (c testSchedulerConfig) GetRedisTLSInsecure() bool { return false }
func (c testSchedulerConfig) GetAsynqQueueName() string { return "test" }
func (c testSchedulerConfig) GetAsynqConcurrency() int  { return 1 }

func newTestClient(t *testing.T) *Client {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := NewClient(testSchedulerConfig{redisURL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNewClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(testSchedulerConfig{}); err == nil {
		t.Fatal("expected an error for a missing redis url")
	}
}

func TestEnqueueRoutingReconcileDeduplicates(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	if err := client.EnqueueRoutingReconcile(ctx); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	// The second enqueue hits the uniqueness lock; the caller sees success.
	if err := client.EnqueueRoutingReconcile(ctx); err != nil {
		t.Fatalf("duplicate enqueue must be a no-op, got %v", err)
	}
}

func TestEnqueueWeeklyScorecardsDeduplicates(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	asOf := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	if err := client.EnqueueWeeklyScorecards(ctx, asOf); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if err := client.EnqueueWeeklyScorecards(ctx, asOf); err != nil {
		t.Fatalf("duplicate enqueue must be a no-op, got %v", err)
	}
}

func TestNilClientEnqueueIsNoOp(t *testing.T) {
	var client *Client
	if err := client.EnqueueRoutingReconcile(context.Background()); err != nil {
		t.Fatalf("nil client must be inert, got %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("nil client close: %v", err)
	}
}
