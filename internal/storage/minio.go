package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"resume-insight-go/internal/config"
	"resume-insight-go/internal/logger"
)

// MinIOBlobStore 基于MinIO的对象存储后端
type MinIOBlobStore struct {
	client *minio.Client
	bucket string
}

// 确保MinIOBlobStore实现了BlobStore接口
var _ BlobStore = (*MinIOBlobStore)(nil)

// NewMinIOBlobStore 创建MinIO后端，存储桶不存在时自动创建
func NewMinIOBlobStore(cfg *config.MinIOConfig) (*MinIOBlobStore, error) {
	if cfg == nil {
		return nil, errors.New("MinIO配置不能为空")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	bucket := cfg.BucketName
	if bucket == "" {
		bucket = "resumes"
	}

	s := &MinIOBlobStore{client: client, bucket: bucket}
	if err := s.ensureBucketExists(context.Background(), cfg.Location); err != nil {
		return nil, err
	}

	logger.Info().Str("endpoint", cfg.Endpoint).Str("bucket", bucket).Msg("MinIO客户端初始化成功")
	return s, nil
}

// ensureBucketExists 确保存储桶存在
func (s *MinIOBlobStore) ensureBucketExists(ctx context.Context, location string) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: location}); err != nil {
			return fmt.Errorf("创建存储桶 %s 失败: %w", s.bucket, err)
		}
		logger.Info().Str("bucket", s.bucket).Msg("存储桶创建成功")
	}
	return nil
}

// Put 上传对象
func (s *MinIOBlobStore) Put(ctx context.Context, name string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("上传对象 %s 失败: %w", name, err)
	}

	logger.Debug().Str("name", name).Int("bytes", len(data)).Msg("已上传对象到MinIO")
	return nil
}

// Get 下载对象
func (s *MinIOBlobStore) Get(ctx context.Context, name string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取对象 %s 失败: %w", name, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		var minioErr minio.ErrorResponse
		if errors.As(err, &minioErr) && minioErr.Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("读取对象 %s 失败: %w", name, err)
	}
	return data, nil
}

// LatestBySuffix 列举存储桶中指定后缀的对象，按LastModified降序取第一个
func (s *MinIOBlobStore) LatestBySuffix(ctx context.Context, suffix string) (string, []byte, error) {
	type candidate struct {
		name    string
		modTime time.Time
	}

	var candidates []candidate
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return "", nil, fmt.Errorf("列举MinIO对象失败: %w", obj.Err)
		}
		if !strings.HasSuffix(obj.Key, suffix) {
			continue
		}
		candidates = append(candidates, candidate{name: obj.Key, modTime: obj.LastModified})
	}

	if len(candidates) == 0 {
		return "", nil, fmt.Errorf("%w: 后缀 %s", ErrNotFound, suffix)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].modTime.After(candidates[j].modTime)
	})

	latest := candidates[0].name
	data, err := s.Get(ctx, latest)
	if err != nil {
		return "", nil, err
	}
	return latest, data, nil
}
