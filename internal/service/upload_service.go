package service

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/echonow/echonow_server/config"
	"github.com/echonow/echonow_server/internal/model/dto"
)

var (
	ErrFileTooLarge        = errors.New("文件过大")
	ErrInvalidFormat       = errors.New("仅支持 jpg、png、webp、gif 图片")
	ErrUploadNotConfigured = errors.New("图片存储未配置")
)

// ImageStore 图片托管
type ImageStore interface {
	UploadImage(data []byte, ext string) (string, error)
}

type UploadService struct {
	store   ImageStore
	maxSize int64
	allowed map[string]bool
}

// NewUploadService store 为 nil 时上传返回 ErrUploadNotConfigured
func NewUploadService(store ImageStore, cfg *config.UploadConfig) *UploadService {
	allowed := make(map[string]bool, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		allowed[strings.ToLower(ext)] = true
	}
	return &UploadService{store: store, maxSize: cfg.MaxSize, allowed: allowed}
}

// MaxSize 单个文件上限
func (s *UploadService) MaxSize() int64 {
	return s.maxSize
}

// UploadImage 校验扩展名、大小和文件头后上传
func (s *UploadService) UploadImage(filename string, r io.Reader) (*dto.UploadImageResponse, error) {
	if s.store == nil {
		return nil, ErrUploadNotConfigured
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !s.allowed[ext] {
		return nil, ErrInvalidFormat
	}

	// 多读一个字节用来判断是否超限
	data, err := io.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return nil, ErrFileTooLarge
	}
	if !isImage(data) {
		return nil, ErrInvalidFormat
	}

	url, err := s.store.UploadImage(data, ext)
	if err != nil {
		return nil, err
	}

	return &dto.UploadImageResponse{URL: url, Size: int64(len(data))}, nil
}

func isImage(data []byte) bool {
	switch http.DetectContentType(data) {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	}
	// 部分 webp 无法被识别
	return len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP"))
}
