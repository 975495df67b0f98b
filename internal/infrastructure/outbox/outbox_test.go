package outbox

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	domoutbox "github.com/Zhima-Mochi/ministore/internal/domain/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct{ name string }

func (e testEvent) EventName() string { return e.name }

func startBus(t *testing.T) *Bus {
	t.Helper()
	bus := NewBus(nil)
	bus.Start(context.Background())
	t.Cleanup(func() { bus.Stop(context.Background()) })
	return bus
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	bus := startBus(t)

	var calls int64
	done := make(chan struct{}, 2)
	handler := func(ctx context.Context, e domoutbox.Event) error {
		atomic.AddInt64(&calls, 1)
		done <- struct{}{}
		return nil
	}
	bus.Subscribe("order.paid", handler)
	bus.Subscribe("order.paid", handler)

	require.NoError(t, bus.Publish(context.Background(), testEvent{name: "order.paid"}))

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("handler was not invoked")
		}
	}
	assert.Equal(t, int64(2), atomic.LoadInt64(&calls))
}

func TestPublishWithoutSubscriberIsDropped(t *testing.T) {
	bus := startBus(t)

	assert.NoError(t, bus.Publish(context.Background(), testEvent{name: "order.created"}))
}

func TestPublishNilEventIsNoOp(t *testing.T) {
	bus := startBus(t)

	assert.NoError(t, bus.Publish(context.Background(), nil))
}

func TestPanickingHandlerDoesNotStopDispatch(t *testing.T) {
	bus := startBus(t)

	bus.Subscribe("order.paid", func(ctx context.Context, e domoutbox.Event) error {
		panic("handler blew up")
	})

	done := make(chan struct{})
	bus.Subscribe("order.paid", func(ctx context.Context, e domoutbox.Event) error {
		close(done)
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), testEvent{name: "order.paid"}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second handler was not invoked after sibling panic")
	}

	// the dispatch loop survives for the next event
	next := make(chan struct{})
	bus.Subscribe("order.created", func(ctx context.Context, e domoutbox.Event) error {
		close(next)
		return errors.New("logged, not fatal")
	})
	require.NoError(t, bus.Publish(context.Background(), testEvent{name: "order.created"}))

	select {
	case <-next:
	case <-time.After(time.Second):
		t.Fatal("dispatch loop stopped after panic")
	}
}
