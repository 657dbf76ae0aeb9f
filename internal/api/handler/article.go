package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/echonow/echonow_server/internal/model"
	"github.com/echonow/echonow_server/internal/model/dto"
	"github.com/echonow/echonow_server/internal/pkg/response"
	"github.com/echonow/echonow_server/internal/policy"
	"github.com/echonow/echonow_server/internal/service"
)

type ArticleHandler struct {
	articleService *service.ArticleService
}

func NewArticleHandler(articleService *service.ArticleService) *ArticleHandler {
	return &ArticleHandler{
		articleService: articleService,
	}
}

func (h *ArticleHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrArticleNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrTitleRequired),
		errors.Is(err, service.ErrInvalidPostedAt),
		errors.Is(err, service.ErrEmailRequired),
		errors.Is(err, policy.ErrUnknownStatus):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrQuotaExceeded),
		errors.Is(err, policy.ErrInvalidTransition):
		response.ConflictError(c, err.Error())
	case errors.Is(err, service.ErrPremiumLoginRequired):
		response.AuthError(c, err.Error())
	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrPremiumRequired):
		response.PermissionError(c, err.Error())
	default:
		internalError(c, err)
	}
}

// Create 创建文章
// POST /article
func (h *ArticleHandler) Create(c *gin.Context) {
	var req dto.CreateArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.articleService.Create(callerEmail(c), &req)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Created(c, resp)
}

// List 公开文章列表
// GET /articles?search=&publisher=&tags=&page=&limit=
func (h *ArticleHandler) List(c *gin.Context) {
	var q dto.ListArticlesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	items, total, err := h.articleService.List(callerEmail(c), &q)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.SuccessPage(c, total, q.Page, q.Limit, items)
}

// ListPremium 会员文章列表
// GET /articles/premium?page=&limit=
func (h *ArticleHandler) ListPremium(c *gin.Context) {
	var q dto.ListArticlesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	items, total, err := h.articleService.ListPremium(callerEmail(c), q.Page, q.Limit)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.SuccessPage(c, total, q.Page, q.Limit, items)
}

// ListForAdmin 后台文章列表
// GET /all-articles
func (h *ArticleHandler) ListForAdmin(c *gin.Context) {
	resp, err := h.articleService.ListForAdmin()
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, resp)
}

// ListByAuthor 作者自己的文章
// GET /articles/user?email=
func (h *ArticleHandler) ListByAuthor(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		email = callerEmail(c)
	}

	items, err := h.articleService.ListByAuthor(callerEmail(c), email)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, items)
}

// Trending GET /articles/trending
func (h *ArticleHandler) Trending(c *gin.Context) {
	h.respondList(c, h.articleService.Trending)
}

// Special GET /articles/special
func (h *ArticleHandler) Special(c *gin.Context) {
	h.respondList(c, h.articleService.Special)
}

// TopFashion GET /articles/top-fashion
func (h *ArticleHandler) TopFashion(c *gin.Context) {
	h.respondList(c, h.articleService.TopFashion)
}

// BannerTrending GET /articles/banner-trending
func (h *ArticleHandler) BannerTrending(c *gin.Context) {
	h.respondList(c, h.articleService.BannerTrending)
}

func (h *ArticleHandler) respondList(c *gin.Context, fetch func(viewerEmail string) ([]*model.Article, error)) {
	items, err := fetch(callerEmail(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, items)
}

// Get 文章详情，会员文章需要登录
// GET /article/:id
func (h *ArticleHandler) Get(c *gin.Context) {
	article, err := h.articleService.Get(callerEmail(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, article)
}

// IncrementViews 浏览数 +1
// PATCH /article/:id/views
func (h *ArticleHandler) IncrementViews(c *gin.Context) {
	resp, err := h.articleService.IncrementViews(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, resp)
}

// Update 更新文章或审核
// PATCH /articles/:id
func (h *ArticleHandler) Update(c *gin.Context) {
	var req dto.UpdateArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	article, err := h.articleService.Update(c.Request.Context(), callerEmail(c), c.Param("id"), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, article)
}

// Delete 删除文章
// DELETE /articles/:id
func (h *ArticleHandler) Delete(c *gin.Context) {
	if err := h.articleService.Delete(callerEmail(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithMessage(c, "删除成功", gin.H{"deletedCount": 1})
}
