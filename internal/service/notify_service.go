package service

import (
	"context"

	"github.com/echonow/echonow_server/internal/pkg/logger"
	"github.com/echonow/echonow_server/internal/pkg/pubsub"
	"github.com/echonow/echonow_server/internal/pkg/ws"
)

const MessageArticleModerated = "article_moderated"

// EventSource 审核事件订阅
type EventSource interface {
	Subscribe(ctx context.Context, handler func(*pubsub.ModerationEvent)) error
}

// UserPusher 按邮箱推送消息
type UserPusher interface {
	SendToUser(email string, msg *ws.Message) (int, error)
}

// NotifyService 把 Redis 上的审核事件转发给在线作者
type NotifyService struct {
	source EventSource
	pusher UserPusher
	log    *logger.Logger
}

func NewNotifyService(source EventSource, pusher UserPusher, log *logger.Logger) *NotifyService {
	if log == nil {
		log = logger.Nop()
	}
	return &NotifyService{source: source, pusher: pusher, log: log}
}

// Run 阻塞直到 ctx 结束
func (s *NotifyService) Run(ctx context.Context) error {
	return s.source.Subscribe(ctx, s.Deliver)
}

// Deliver 推送单个事件，作者不在线时丢弃
func (s *NotifyService) Deliver(ev *pubsub.ModerationEvent) {
	if ev == nil || ev.AuthorEmail == "" {
		return
	}
	sent, err := s.pusher.SendToUser(ev.AuthorEmail, &ws.Message{Type: MessageArticleModerated, Data: ev})
	if err != nil {
		s.log.Warn("push moderation event failed", "email", ev.AuthorEmail, "article_id", ev.ArticleID, "error", err)
		return
	}
	s.log.Debug("moderation event delivered", "email", ev.AuthorEmail, "article_id", ev.ArticleID, "connections", sent)
}
