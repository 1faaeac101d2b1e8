package uploader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"forum_client/internal/pkg/config"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/google/uuid"
)

// ErrNotConfigured 未配置对象存储
var ErrNotConfigured = errors.New("uploader is not configured")

// Uploader 上传帖子图片, 返回可公开访问的 URL
type Uploader interface {
	Upload(ctx context.Context, path string) (string, error)
}

type AliyunOSSUploader struct {
	bucket *oss.Bucket
	config config.OSSConfig
	now    func() time.Time
}

func NewAliyunOSSUploader(cfg config.OSSConfig) (*AliyunOSSUploader, error) {
	if cfg.Endpoint == "" || cfg.BucketName == "" {
		return nil, ErrNotConfigured
	}
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, err
	}

	bucket, err := client.Bucket(cfg.BucketName)
	if err != nil {
		return nil, err
	}

	return &AliyunOSSUploader{
		bucket: bucket,
		config: cfg,
		now:    time.Now,
	}, nil
}

func (u *AliyunOSSUploader) Upload(ctx context.Context, path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	key := ObjectKey(u.now(), path)
	if err := u.bucket.PutObject(key, src, oss.WithContext(ctx)); err != nil {
		return "", fmt.Errorf("upload %s: %w", filepath.Base(path), err)
	}

	// bucket 为公共读, 直接拼接访问地址
	return fmt.Sprintf("https://%s.%s/%s", u.config.BucketName, u.config.Endpoint, key), nil
}

// ObjectKey 生成对象名: YYYYMMDD/uuid.ext
func ObjectKey(now time.Time, path string) string {
	return fmt.Sprintf("%s/%s%s", now.Format("20060102"), uuid.New().String(), filepath.Ext(path))
}

// Disabled 未配置对象存储时使用
type Disabled struct{}

func (Disabled) Upload(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}
