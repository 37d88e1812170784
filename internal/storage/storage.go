package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"resume-insight-go/internal/config"
	"resume-insight-go/internal/constants"
	"resume-insight-go/internal/logger"
	"resume-insight-go/internal/types"
)

// Storage 存储管理器，聚合blob存储与会话状态
type Storage struct {
	Blobs    BlobStore
	Sessions SessionStore

	// now可注入，测试时固定时间戳
	now func() time.Time
}

// NewStorage 根据配置选择后端并创建存储管理器
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	var blobs BlobStore
	var err error
	switch cfg.Storage.BlobBackend {
	case "", "local":
		blobs, err = NewLocalBlobStore(cfg.Storage.UploadDir)
	case "minio":
		blobs, err = NewMinIOBlobStore(&cfg.Storage.MinIO)
	default:
		return nil, fmt.Errorf("未知的blob后端: %s", cfg.Storage.BlobBackend)
	}
	if err != nil {
		return nil, fmt.Errorf("初始化blob存储失败: %w", err)
	}

	var sessions SessionStore
	switch cfg.Storage.SessionBackend {
	case "memory":
		sessions = NewMemorySessionStore()
	case "", "file":
		sessions, err = NewFileSessionStore(cfg.Storage.SessionFile)
	case "redis":
		sessions, err = NewRedisSessionStore(&cfg.Storage.Redis)
	default:
		return nil, fmt.Errorf("未知的会话后端: %s", cfg.Storage.SessionBackend)
	}
	if err != nil {
		return nil, fmt.Errorf("初始化会话存储失败: %w", err)
	}

	logger.Info().
		Str("blob_backend", cfg.Storage.BlobBackend).
		Str("session_backend", cfg.Storage.SessionBackend).
		Msg("存储管理器初始化完成")

	return &Storage{Blobs: blobs, Sessions: sessions, now: time.Now}, nil
}

// NewStorageWith 用给定的后端组装存储管理器，测试用
func NewStorageWith(blobs BlobStore, sessions SessionStore) *Storage {
	return &Storage{Blobs: blobs, Sessions: sessions, now: time.Now}
}

// SaveUpload 保存原始上传文件，对象名为 {毫秒时间戳}-{原始文件名}
func (s *Storage) SaveUpload(ctx context.Context, filename string, data []byte, contentType string) (string, error) {
	name := fmt.Sprintf("%d-%s", s.now().UnixMilli(), filepath.Base(filename))
	if err := s.Blobs.Put(ctx, name, data, contentType); err != nil {
		return "", err
	}
	return name, nil
}

// SaveParsed 保存结构化解析结果，对象名为 {毫秒时间戳}-parsed.json
func (s *Storage) SaveParsed(ctx context.Context, parsed *types.ParsedResume) (string, error) {
	data, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return "", fmt.Errorf("序列化解析结果失败: %w", err)
	}

	name := fmt.Sprintf("%d%s", s.now().UnixMilli(), constants.ParsedBlobSuffix)
	if err := s.Blobs.Put(ctx, name, data, "application/json"); err != nil {
		return "", err
	}
	return name, nil
}

// SaveAnalysis 保存AI分析结果，对象名为ISO时间戳（冒号和点替换为连字符）
// 加上固定后缀
func (s *Storage) SaveAnalysis(ctx context.Context, result *types.AnalysisResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("序列化分析结果失败: %w", err)
	}

	// 对象名前缀与结果内的timestamp保持一致
	prefix := result.Timestamp
	if prefix == "" {
		iso := s.now().UTC().Format("2006-01-02T15:04:05.000Z")
		prefix = strings.NewReplacer(":", "-", ".", "-").Replace(iso)
	}
	name := prefix + constants.AnalysisBlobSuffix
	if err := s.Blobs.Put(ctx, name, data, "application/json"); err != nil {
		return "", err
	}
	return name, nil
}

// LatestParsed 返回最近一次的结构化解析结果
// 没有任何解析记录时返回ErrNotFound
func (s *Storage) LatestParsed(ctx context.Context) (*types.ParsedResume, error) {
	name, data, err := s.Blobs.LatestBySuffix(ctx, constants.ParsedBlobSuffix)
	if err != nil {
		return nil, err
	}

	var parsed types.ParsedResume
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("反序列化解析结果 %s 失败: %w", name, err)
	}
	return &parsed, nil
}

// LatestAnalysis 返回最近一次的AI分析结果
func (s *Storage) LatestAnalysis(ctx context.Context) (*types.AnalysisResult, error) {
	name, data, err := s.Blobs.LatestBySuffix(ctx, constants.AnalysisBlobSuffix)
	if err != nil {
		return nil, err
	}

	var result types.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("反序列化分析结果 %s 失败: %w", name, err)
	}
	return &result, nil
}
