package policy

import (
	"errors"
	"strings"

	"github.com/echonow/echonow_server/internal/model"
)

var (
	ErrInvalidTransition = errors.New("文章状态不允许此操作")
	ErrUnknownStatus     = errors.New("未知的文章状态")
)

// Moderation 审核结果，DeclineReason 仅在 declined 时非空
type Moderation struct {
	Status        string
	DeclineReason *string
}

// Approve 通过审核，同时清除拒绝原因
func Approve(current string) (Moderation, error) {
	switch current {
	case model.StatusPending, model.StatusDeclined, model.StatusApproved:
		return Moderation{Status: model.StatusApproved}, nil
	default:
		return Moderation{}, ErrUnknownStatus
	}
}

// Decline 拒绝文章；原因为空时退回 pending
func Decline(current, reason string) (Moderation, error) {
	switch current {
	case model.StatusPending, model.StatusDeclined:
	case model.StatusApproved:
		return Moderation{}, ErrInvalidTransition
	default:
		return Moderation{}, ErrUnknownStatus
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Moderation{Status: model.StatusPending}, nil
	}
	return Moderation{Status: model.StatusDeclined, DeclineReason: &reason}, nil
}

// Reopen 被拒绝的文章重新进入待审
func Reopen(current string) (Moderation, error) {
	switch current {
	case model.StatusPending, model.StatusDeclined:
		return Moderation{Status: model.StatusPending}, nil
	case model.StatusApproved:
		return Moderation{}, ErrInvalidTransition
	default:
		return Moderation{}, ErrUnknownStatus
	}
}

// Moderate 把管理员请求的目标状态映射到具体的流转
func Moderate(current, target string, reason *string) (Moderation, error) {
	switch target {
	case model.StatusApproved:
		return Approve(current)
	case model.StatusDeclined:
		r := ""
		if reason != nil {
			r = *reason
		}
		return Decline(current, r)
	case model.StatusPending:
		return Reopen(current)
	default:
		return Moderation{}, ErrUnknownStatus
	}
}

// StatusRank 后台列表排序：pending < approved < declined
func StatusRank(status string) int {
	switch status {
	case model.StatusPending:
		return 1
	case model.StatusApproved:
		return 2
	case model.StatusDeclined:
		return 3
	default:
		return 4
	}
}
