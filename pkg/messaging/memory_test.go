package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed")
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func TestMemoryBroker_PublishSubscribe(t *testing.T) {
	b := NewMemoryBroker()
	defer b.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := b.Subscribe(ctx, "appointments")
	require.NoError(t, err)
	second, err := b.Subscribe(ctx, "appointments")
	require.NoError(t, err)
	other, err := b.Subscribe(ctx, "other")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "appointments", map[string]string{"type": "appointment.created"}))

	assert.JSONEq(t, `{"type":"appointment.created"}`, string(receive(t, first)))
	assert.JSONEq(t, `{"type":"appointment.created"}`, string(receive(t, second)))
	select {
	case <-other:
		t.Fatal("message leaked to another channel")
	default:
	}
}

func TestMemoryBroker_UnsubscribeOnCancel(t *testing.T) {
	b := NewMemoryBroker()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := b.Subscribe(ctx, "appointments")
	require.NoError(t, err)
	cancel()

	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	assert.NoError(t, b.Publish(context.Background(), "appointments", "late"))
}

func TestMemoryBroker_Close(t *testing.T) {
	b := NewMemoryBroker()
	ch, err := b.Subscribe(context.Background(), "appointments")
	require.NoError(t, err)

	require.NoError(t, b.Close())
	_, ok := <-ch
	assert.False(t, ok)

	assert.ErrorIs(t, b.Publish(context.Background(), "appointments", "x"), ErrClosed)
	_, err = b.Subscribe(context.Background(), "appointments")
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, b.Close())
}

func TestMemoryBroker_RejectsUnencodable(t *testing.T) {
	b := NewMemoryBroker()
	defer b.Close()
	assert.Error(t, b.Publish(context.Background(), "appointments", make(chan int)))
}

func TestConsume(t *testing.T) {
	b := NewMemoryBroker()
	defer b.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []string
	var failures int
	err := Consume(ctx, b, "appointments", func(msg []byte) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, string(msg))
		if string(msg) == `"bad"` {
			return errors.New("bad message")
		}
		return nil
	}, func(error) {
		mu.Lock()
		failures++
		mu.Unlock()
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "appointments", "bad"))
	require.NoError(t, b.Publish(ctx, "appointments", "good"))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2 && failures == 1
	}, time.Second, 5*time.Millisecond)
}
