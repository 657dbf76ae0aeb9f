package policy

import (
	"errors"
	"time"

	"github.com/echonow/echonow_server/internal/model"
)

var (
	ErrUnknownDuration = errors.New("未知的订阅时长")
	ErrExpiredGrant    = errors.New("会员到期时间早于当前时间")
)

// GrantPremium 按套餐代码计算新的会员状态。
// 到期时间必须晚于 now，保证 isPremium 为真时一定处于有效期内。
func GrantPremium(takenAt, now time.Time, code string, durations map[string]time.Duration) (model.Premium, error) {
	d, ok := durations[code]
	if !ok || d <= 0 {
		return model.Premium{}, ErrUnknownDuration
	}
	expires := takenAt.Add(d)
	if !expires.After(now) {
		return model.Premium{}, ErrExpiredGrant
	}
	taken := takenAt
	return model.Premium{
		IsPremium:        true,
		PremiumTaken:     &taken,
		PremiumExpiresAt: &expires,
	}, nil
}

// ReconcileExpiry 到期后清空会员字段；第二个返回值表示是否发生变化。
// 对同一 now 重复调用结果不变。
func ReconcileExpiry(p model.Premium, now time.Time) (model.Premium, bool) {
	if p.PremiumExpiresAt == nil || now.Before(*p.PremiumExpiresAt) {
		return p, false
	}
	return model.Premium{}, true
}

// Active 当前是否处于会员有效期内，不信任存储的布尔值
func Active(p model.Premium, now time.Time) bool {
	return p.IsPremium && p.PremiumExpiresAt != nil && now.Before(*p.PremiumExpiresAt)
}

// CanReadPremium 会员文章访问规则：管理员和作者本人放行，其余要求有效会员
func CanReadPremium(viewer *model.User, authorEmail string, now time.Time) bool {
	if viewer == nil {
		return false
	}
	if viewer.IsAdmin() || viewer.Email == authorEmail {
		return true
	}
	return Active(viewer.Premium, now)
}

// ViolatesQuota 非会员作者最多只能有一篇文章
func ViolatesQuota(existingArticles int64, authorPremium bool) bool {
	return existingArticles > 0 && !authorPremium
}
