package dto

// UpsertUserRequest 登录后同步用户资料，可附带会员购买信息
type UpsertUserRequest struct {
	Email        string  `json:"email"`
	Name         string  `json:"name"`
	Photo        string  `json:"photo"`
	PremiumTaken *string `json:"premiumTaken"` // RFC3339
	Duration     *string `json:"duration"`     // 套餐代码
}

// UpsertUserResponse Created 为 true 表示新建
type UpsertUserResponse struct {
	Created bool      `json:"created"`
	User    *UserInfo `json:"user"`
}

// UpdateProfileRequest 只允许修改昵称和头像
type UpdateProfileRequest struct {
	Name  *string `json:"name,omitempty" binding:"omitempty,max=100"`
	Photo *string `json:"photo,omitempty" binding:"omitempty,max=500"`
}

// RoleRequest 角色查询请求
type RoleRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// RoleResponse 角色查询响应
type RoleResponse struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// AllUsersResponse 后台用户列表
type AllUsersResponse struct {
	TotalUsers   int64       `json:"totalUsers"`
	PremiumUsers int64       `json:"premiumUsers"`
	Users        []*UserInfo `json:"users"`
}

// UserCountResponse 公开的用户统计
type UserCountResponse struct {
	TotalUsers   int64 `json:"totalUsers"`
	PremiumUsers int64 `json:"premiumUsers"`
	NormalUsers  int64 `json:"normalUsers"`
}
