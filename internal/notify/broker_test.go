package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func recv[T any](t *testing.T, ch <-chan Event[T]) Event[T] {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(time.Second):
		require.Fail(t, "timeout waiting for event")
	}
	return Event[T]{}
}

func TestBrokerFanOut(t *testing.T) {
	b := NewBroker[string](0)
	defer b.Close()

	a := b.Subscribe(context.Background())
	c := b.Subscribe(context.Background())
	require.Equal(t, 2, b.SubscriberCount())

	b.Publish("first")
	b.Publish("second")

	for _, ch := range []<-chan Event[string]{a, c} {
		ev := recv(t, ch)
		require.Equal(t, "first", ev.Payload)
		require.Equal(t, uint64(1), ev.Seq)
		require.False(t, ev.At.IsZero())
		require.Equal(t, "second", recv(t, ch).Payload)
	}
}

func TestBrokerCancelClosesSubscription(t *testing.T) {
	b := NewBroker[int](4)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := b.Subscribe(ctx)
	cancel()

	require.Eventually(t, func() bool { return b.SubscriberCount() == 0 }, time.Second, 5*time.Millisecond)
	_, ok := <-ch
	require.False(t, ok)
}

func TestBrokerDropsWhenFull(t *testing.T) {
	b := NewBroker[int](1)
	defer b.Close()

	ch := b.Subscribe(context.Background())
	b.Publish(1)
	b.Publish(2)
	require.Equal(t, uint64(1), b.Dropped())
	require.Equal(t, 1, recv(t, ch).Payload)
}

func TestBrokerClose(t *testing.T) {
	b := NewBroker[int](1)
	ch := b.Subscribe(context.Background())
	b.Close()
	b.Close()

	_, ok := <-ch
	require.False(t, ok)

	late := b.Subscribe(context.Background())
	_, ok = <-late
	require.False(t, ok)

	b.Publish(3)
	require.Zero(t, b.SubscriberCount())
}
