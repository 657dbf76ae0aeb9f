package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	DefaultChannel = "echonow:moderation"

	EventArticleModerated = "article_moderated"
)

// ModerationEvent 文章审核状态变化，推送给作者
type ModerationEvent struct {
	Type          string    `json:"type"`
	ArticleID     string    `json:"articleId"`
	Title         string    `json:"title"`
	AuthorEmail   string    `json:"authorEmail"`
	Status        string    `json:"status"`
	DeclineReason *string   `json:"declineReason,omitempty"`
	IsPremium     bool      `json:"isPremium"`
	At            time.Time `json:"at"`
}

// Publisher Redis 发布者
type Publisher struct {
	client  *redis.Client
	channel string
}

// NewPublisher 创建发布者，channel 为空时使用默认频道
func NewPublisher(client *redis.Client, channel string) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{client: client, channel: channel}
}

// PublishModeration 发布审核事件
func (p *Publisher) PublishModeration(ctx context.Context, ev *ModerationEvent) error {
	ev.Type = EventArticleModerated
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal moderation event: %w", err)
	}

	return p.client.Publish(ctx, p.channel, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client  *redis.Client
	channel string
}

// NewSubscriber 创建订阅者
func NewSubscriber(client *redis.Client, channel string) *Subscriber {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Subscriber{client: client, channel: channel}
}

// Subscribe 阻塞订阅审核事件，直到 ctx 结束
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*ModerationEvent)) error {
	ps := s.client.Subscribe(ctx, s.channel)
	defer ps.Close()

	// 等待订阅确认
	if _, err := ps.Receive(ctx); err != nil {
		return err
	}

	ch := ps.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var ev ModerationEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				continue // 忽略解析错误
			}

			handler(&ev)
		}
	}
}
