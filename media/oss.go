package media

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"equipment_loan_tool/config"
	"equipment_loan_tool/logger"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/google/uuid"
)

// OSSUploader 把物资照片存到 OSS bucket
type OSSUploader struct {
	bucket     *oss.Bucket
	publicBase string
	prefix     string
}

func NewOSSUploader(conf config.Storage) (*OSSUploader, error) {
	client, err := oss.New(conf.Endpoint, conf.AccessKeyID, conf.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("oss client: %w", err)
	}
	bucket, err := client.Bucket(conf.Bucket)
	if err != nil {
		return nil, fmt.Errorf("oss bucket: %w", err)
	}
	base := strings.TrimRight(conf.PublicBaseURL, "/")
	if base == "" {
		host := strings.TrimPrefix(strings.TrimPrefix(conf.Endpoint, "https://"), "http://")
		base = fmt.Sprintf("https://%s.%s", conf.Bucket, host)
	}
	return &OSSUploader{bucket: bucket, publicBase: base, prefix: strings.Trim(conf.Prefix, "/")}, nil
}

// Upload 返回可公开访问的 URL
func (u *OSSUploader) Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	key := objectKey(u.prefix, uuid.NewString(), name)
	if err := u.bucket.PutObject(key, r, oss.ContentType(contentType)); err != nil {
		logger.Errorf(ctx, "oss put %s err: %v", key, err)
		return "", fmt.Errorf("put object: %w", err)
	}
	return publicURL(u.publicBase, key), nil
}

// objectKey: prefix/uuid/filename
func objectKey(prefix, id, name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "image"
	}
	return path.Join(prefix, id, name)
}

func publicURL(base, key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return base + "/" + strings.Join(parts, "/")
}
