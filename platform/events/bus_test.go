package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type testEvent struct {
	BaseEvent
	name string
}

func (e testEvent) EventName() string { return e.name }

func TestPublishDispatchesToAllSubscribers(t *testing.T) {
	bus := NewInMemoryBus(nil)

	var wg sync.WaitGroup
	wg.Add(2)
	var mu sync.Mutex
	var got []string

	for _, tag := range []string{"first", "second"} {
		tag := tag
		bus.Subscribe("lead.created", HandlerFunc(func(_ context.Context, _ Event) error {
			mu.Lock()
			got = append(got, tag)
			mu.Unlock()
			wg.Done()
			return nil
		}))
	}

	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "lead.created"})

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handlers did not run")
	}
	if len(got) != 2 {
		t.Fatalf("handlers invoked = %d, want 2", len(got))
	}
}

func TestPublishSyncReturnsFirstErrorRunsAll(t *testing.T) {
	bus := NewInMemoryBus(nil)
	wantErr := errors.New("boom")
	var secondRan bool

	bus.Subscribe("lead.escalated", HandlerFunc(func(_ context.Context, _ Event) error {
		return wantErr
	}))
	bus.Subscribe("lead.escalated", HandlerFunc(func(_ context.Context, _ Event) error {
		secondRan = true
		return nil
	}))

	err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "lead.escalated"})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want the first handler error", err)
	}
	if !secondRan {
		t.Fatal("remaining handlers must still run after an error")
	}
}

func TestPublishSyncRecoversHandlerPanic(t *testing.T) {
	bus := NewInMemoryBus(nil)
	bus.Subscribe("lead.handoff", HandlerFunc(func(_ context.Context, _ Event) error {
		panic("handler bug")
	}))

	err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "lead.handoff"})
	if err == nil {
		t.Fatal("a panicking handler must surface as an error")
	}
}

func TestPublishWithNoSubscribersIsNoOp(t *testing.T) {
	bus := NewInMemoryBus(nil)
	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "nobody.listens"})
	if err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "nobody.listens"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
