package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestModerationEvent_JSON(t *testing.T) {
	reason := "off topic"
	ev := &ModerationEvent{ArticleID: "a1", AuthorEmail: "a@x.com", Status: "declined", DeclineReason: &reason}

	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "articleId")
	assert.Contains(t, raw, "authorEmail")
	assert.Equal(t, "off topic", raw["declineReason"])

	ev.DeclineReason = nil
	data, _ = json.Marshal(ev)
	raw = map[string]interface{}{}
	require.NoError(t, json.Unmarshal(data, &raw))
	_, has := raw["declineReason"]
	assert.False(t, has)
}

func TestPublisherSubscriber(t *testing.T) {
	client := setupRedis(t)

	publisher := NewPublisher(client, "")
	subscriber := NewSubscriber(client, "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan *ModerationEvent, 1)
	go func() {
		_ = subscriber.Subscribe(ctx, func(ev *ModerationEvent) {
			received <- ev
		})
	}()

	require.Eventually(t, func() bool {
		n, err := client.PubSubNumSub(ctx, DefaultChannel).Result()
		return err == nil && n[DefaultChannel] == 1
	}, 2*time.Second, 20*time.Millisecond)

	err := publisher.PublishModeration(ctx, &ModerationEvent{
		ArticleID:   "a1",
		AuthorEmail: "a@x.com",
		Status:      "approved",
	})
	require.NoError(t, err)

	select {
	case ev := <-received:
		assert.Equal(t, EventArticleModerated, ev.Type)
		assert.Equal(t, "a1", ev.ArticleID)
		assert.Equal(t, "a@x.com", ev.AuthorEmail)
		assert.False(t, ev.At.IsZero())
	case <-ctx.Done():
		t.Fatal("Timeout waiting for event")
	}
}

func TestSubscribe_StopsOnCancel(t *testing.T) {
	client := setupRedis(t)
	subscriber := NewSubscriber(client, "custom")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- subscriber.Subscribe(ctx, func(*ModerationEvent) {})
	}()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Subscribe did not return")
	}
}
