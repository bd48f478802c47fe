package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"equipment_loan_tool/logger"
)

const (
	MinImageSize = 1 << 10
	MaxImageSize = 10 << 20
)

var (
	ErrImageSize  = errors.New("image must be between 1 KB and 10 MB")
	ErrNotAnImage = errors.New("file is not an image")
	ErrNoUploader = errors.New("file storage is not configured")
)

type Uploader interface {
	Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error)
}

type ImageResizer interface {
	Resize(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// Service 小图直接上传，超过阈值的先交给压缩函数
type Service struct {
	up        Uploader
	rs        ImageResizer
	threshold int64
}

func NewService(up Uploader, rs ImageResizer, threshold int64) *Service {
	return &Service{up: up, rs: rs, threshold: threshold}
}

func (s *Service) StoreImage(ctx context.Context, name, contentType string, data []byte) (string, error) {
	size := int64(len(data))
	if size < MinImageSize || size > MaxImageSize {
		return "", ErrImageSize
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrNotAnImage
	}

	if s.rs != nil && s.threshold > 0 && size > s.threshold {
		url, err := s.rs.Resize(ctx, name, contentType, data)
		if err == nil {
			return url, nil
		}
		// 缩放失败则直接上传原图
		logger.Warnf(ctx, "resize %s (%d bytes) failed, uploading original: %v", name, size, err)
	}
	if s.up == nil {
		return "", ErrNoUploader
	}
	return s.up.Upload(ctx, name, contentType, bytes.NewReader(data))
}
