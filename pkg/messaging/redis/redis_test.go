package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sehatsathi/sehatsathi-api/pkg/logger"
)

func TestRedisBroker_PublishSubscribe(t *testing.T) {
	mr := miniredis.RunT(t)
	broker, err := NewRedisBroker(Config{URL: "redis://" + mr.Addr()}, logger.Nop())
	require.NoError(t, err)
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := broker.Subscribe(ctx, "appointments")
	require.NoError(t, err)

	require.NoError(t, broker.Publish(ctx, "appointments", map[string]int64{"revision": 3}))

	select {
	case msg := <-ch:
		assert.JSONEq(t, `{"revision":3}`, string(msg))
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNewRedisBroker_BadURL(t *testing.T) {
	_, err := NewRedisBroker(Config{URL: "://nope"}, logger.Nop())
	assert.Error(t, err)
}

func TestNewFromClient_CloseLeavesClientOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient(Config{URL: "redis://" + mr.Addr(), PoolSize: 2})
	require.NoError(t, err)
	defer client.Close()

	broker := NewFromClient(client, logger.Nop())
	require.NoError(t, broker.Close())
	assert.NoError(t, client.Ping(context.Background()).Err())
}
