package dto

// RequestOTPRequest 请求发送验证码，email 缺省时为当前用户
type RequestOTPRequest struct {
	Email string `json:"email" binding:"omitempty,email"`
}

// RequestOTPResponse 发送结果
type RequestOTPResponse struct {
	ExpiresIn int `json:"expiresIn"` // 秒
}

// VerifyOTPRequest 校验验证码
type VerifyOTPRequest struct {
	Email string `json:"email" binding:"omitempty,email"`
	OTP   string `json:"otp" binding:"required"`
}

// VerificationStatusResponse 邮箱验证状态
type VerificationStatusResponse struct {
	Email           string  `json:"email"`
	IsEmailVerified bool    `json:"isEmailVerified"`
	EmailVerifiedAt *string `json:"emailVerifiedAt"`
}
