package dto

// RegisterRequest 注册请求
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=64"`
	Name     string `json:"name" binding:"omitempty,max=100"`
	Photo    string `json:"photo" binding:"omitempty,max=500"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token string    `json:"token"`
	User  *UserInfo `json:"user"`
}

// UserInfo 用户信息（返回给前端），isPremium 为读取时刻的实际状态
type UserInfo struct {
	ID               int64   `json:"id"`
	Email            string  `json:"email"`
	Name             string  `json:"name"`
	Photo            string  `json:"photo"`
	Role             string  `json:"role"`
	IsPremium        bool    `json:"isPremium"`
	PremiumTaken     *string `json:"premiumTaken"`
	PremiumExpiresAt *string `json:"premiumExpiresAt"`
	IsEmailVerified  bool    `json:"isEmailVerified"`
	EmailVerifiedAt  *string `json:"emailVerifiedAt,omitempty"`
	CreatedAt        string  `json:"createdAt,omitempty"`
}
