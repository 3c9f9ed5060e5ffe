package notifications

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_LocalDeliveryWithoutRedis(t *testing.T) {
	hub := NewHub()
	follower, err := hub.Register(2, nil)
	require.NoError(t, err)
	other, err := hub.Register(3, nil)
	require.NoError(t, err)

	p := NewPublisher(hub, NewNotifier(nil))
	p.PublishToUsers(context.Background(), []uint{2}, "new_follower", map[string]interface{}{
		"follower_id": 1,
		"username":    "alice",
	})

	require.Len(t, follower.outbox, 1)
	var ev struct {
		Type    string                 `json:"type"`
		Payload map[string]interface{} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(<-follower.outbox, &ev))
	assert.Equal(t, "new_follower", ev.Type)
	assert.Equal(t, "alice", ev.Payload["username"])
	assert.Empty(t, other.outbox)
}

func TestPublisher_RedisFanOutDeliversOnce(t *testing.T) {
	rdb := newTestRedis(t)
	n := NewNotifier(rdb)
	hub := NewHub()
	client, err := hub.Register(9, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, hub.StartWiring(ctx, n))

	NewPublisher(hub, n).PublishToUsers(ctx, []uint{9}, "recipe_created", map[string]int{"author_id": 1})

	assert.Eventually(t, func() bool { return len(client.outbox) == 1 }, testEventuallyTimeout, testPollInterval)
	assert.Never(t, func() bool { return len(client.outbox) > 1 }, 10*testPollInterval, testPollInterval)
}

func TestPublisher_NoRecipientsIsNoop(t *testing.T) {
	var p *Publisher
	p.PublishToUsers(context.Background(), []uint{1}, "x", nil)
	NewPublisher(nil, nil).PublishToUsers(context.Background(), nil, "x", nil)
}
