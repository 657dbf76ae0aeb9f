package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/echonow/echonow_server/internal/model/dto"
	"github.com/echonow/echonow_server/internal/pkg/response"
	"github.com/echonow/echonow_server/internal/service"
)

type PublisherHandler struct {
	publisherService *service.PublisherService
}

func NewPublisherHandler(publisherService *service.PublisherService) *PublisherHandler {
	return &PublisherHandler{
		publisherService: publisherService,
	}
}

// Create 创建出版方
// POST /publisher
func (h *PublisherHandler) Create(c *gin.Context) {
	var req dto.CreatePublisherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	p, err := h.publisherService.Create(&req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPublisherNameRequired):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrPublisherExists):
			response.ConflictError(c, err.Error())
		default:
			internalError(c, err)
		}
		return
	}

	response.Created(c, p)
}

// Overview GET /publisher
func (h *PublisherHandler) Overview(c *gin.Context) {
	resp, err := h.publisherService.Overview()
	if err != nil {
		internalError(c, err)
		return
	}
	response.Success(c, resp)
}

// Stats GET /publishers-stats
func (h *PublisherHandler) Stats(c *gin.Context) {
	resp, err := h.publisherService.Stats()
	if err != nil {
		internalError(c, err)
		return
	}
	response.Success(c, resp)
}

// WithArticles GET /publisher-with-articles
func (h *PublisherHandler) WithArticles(c *gin.Context) {
	resp, err := h.publisherService.WithArticles(callerEmail(c))
	if err != nil {
		internalError(c, err)
		return
	}
	response.Success(c, resp)
}
