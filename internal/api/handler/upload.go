package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/echonow/echonow_server/internal/pkg/response"
	"github.com/echonow/echonow_server/internal/service"
)

// multipart 头部等额外开销
const multipartOverhead = 1 << 20

type UploadHandler struct {
	uploadService *service.UploadService
}

func NewUploadHandler(uploadService *service.UploadService) *UploadHandler {
	return &UploadHandler{
		uploadService: uploadService,
	}
}

// UploadImage 上传图片
// POST /upload/image
func (h *UploadHandler) UploadImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.uploadService.MaxSize()+multipartOverhead)

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.ParamError(c, service.ErrFileTooLarge.Error())
			return
		}
		response.ParamError(c, "请上传图片")
		return
	}
	defer file.Close()

	if header.Size > h.uploadService.MaxSize() {
		response.ParamError(c, service.ErrFileTooLarge.Error())
		return
	}

	resp, err := h.uploadService.UploadImage(header.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrFileTooLarge), errors.Is(err, service.ErrInvalidFormat):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrUploadNotConfigured):
			response.Unavailable(c, err.Error())
		default:
			internalError(c, err)
		}
		return
	}

	response.Success(c, resp)
}
