package dto

import "github.com/echonow/echonow_server/internal/model"

// CreatePublisherRequest 创建出版方
type CreatePublisherRequest struct {
	Name string `json:"name" binding:"required,max=100"`
	Logo string `json:"logo" binding:"omitempty,max=500"`
}

// PublisherOverview 后台出版方概览
type PublisherOverview struct {
	Count  int64              `json:"count"`
	Recent []*model.Publisher `json:"recent"`
	All    []*model.Publisher `json:"all"`
}

// PublisherWithArticles 出版方及其最新文章
type PublisherWithArticles struct {
	Publisher *model.Publisher `json:"publisher"`
	Articles  []*model.Article `json:"articles"`
}

// PublishersWithArticlesResponse 出版方文章聚合
type PublishersWithArticlesResponse struct {
	Publishers      []*PublisherWithArticles `json:"publishers"`
	MatchedArticles []*model.Article         `json:"matchedArticles"`
}
