package dto

// CreateArticleRequest 创建文章请求，authorEmail 缺省时取当前登录用户
type CreateArticleRequest struct {
	Title       string   `json:"title" binding:"required,max=300"`
	Description string   `json:"description"`
	Image       string   `json:"image" binding:"omitempty,max=500"`
	Tags        []string `json:"tags"`
	Publisher   string   `json:"publisher" binding:"omitempty,max=100"`
	Type        string   `json:"type" binding:"omitempty,oneof=trending hot"`
	AuthorName  string   `json:"authorName"`
	AuthorEmail string   `json:"authorEmail" binding:"omitempty,email"`
	AuthorPhoto string   `json:"authorPhoto"`
	PostedAt    *string  `json:"postedAt"` // RFC3339
}

// UpdateArticleRequest 部分更新；status、isPremium、declineReason 仅管理员可改
type UpdateArticleRequest struct {
	Title         *string   `json:"title,omitempty" binding:"omitempty,max=300"`
	Description   *string   `json:"description,omitempty"`
	Image         *string   `json:"image,omitempty"`
	Tags          *[]string `json:"tags,omitempty"`
	Publisher     *string   `json:"publisher,omitempty"`
	Type          *string   `json:"type,omitempty" binding:"omitempty,oneof=trending hot"`
	Status        *string   `json:"status,omitempty" binding:"omitempty,oneof=pending approved declined"`
	IsPremium     *bool     `json:"isPremium,omitempty"`
	DeclineReason *string   `json:"declineReason,omitempty"`
}

// HasModeration 是否包含需要管理员权限的字段
func (r *UpdateArticleRequest) HasModeration() bool {
	return r.Status != nil || r.IsPremium != nil || r.DeclineReason != nil
}

// ListArticlesQuery 列表查询参数
type ListArticlesQuery struct {
	Search    string `form:"search"`
	Publisher string `form:"publisher"`
	Tags      string `form:"tags"` // 逗号分隔
	Page      int    `form:"page,default=1" binding:"min=1"`
	Limit     int    `form:"limit,default=6" binding:"min=1,max=100"`
}

// CreateArticleResponse 创建结果
type CreateArticleResponse struct {
	InsertedID string `json:"insertedId"`
}

// AdminArticlesResponse 后台文章列表
type AdminArticlesResponse struct {
	TotalApproved int64       `json:"totalApproved"`
	Articles      interface{} `json:"articles"`
}

// ViewCountResponse 浏览数递增结果
type ViewCountResponse struct {
	ModifiedCount int64 `json:"modifiedCount"`
}
