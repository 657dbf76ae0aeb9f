package dto

// CreatePaymentIntentRequest 创建支付意图，cost 以主币种单位计
type CreatePaymentIntentRequest struct {
	Cost float64 `json:"cost"`
}

// PaymentIntentResponse 返回给前端确认支付
type PaymentIntentResponse struct {
	ClientSecret   string `json:"clientSecret"`
	IntentID       string `json:"intentId"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	IdempotencyKey string `json:"idempotencyKey"`
}

// PlanInfo 订阅套餐
type PlanInfo struct {
	Code  string  `json:"code"`
	Days  int     `json:"days"`
	Price float64 `json:"price"`
}
