package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"resume-insight-go/internal/logger"
)

// 存储层的区分性失败
var (
	// ErrNotFound 请求的对象不存在
	ErrNotFound = errors.New("对象不存在")
)

// BlobStore 对象存储能力接口
// 上层只依赖这个接口，后端可以是本地平铺目录或MinIO
type BlobStore interface {
	// Put 写入一个对象
	Put(ctx context.Context, name string, data []byte, contentType string) error

	// Get 读取一个对象，不存在时返回ErrNotFound
	Get(ctx context.Context, name string) ([]byte, error)

	// LatestBySuffix 返回指定后缀的对象中修改时间最新的一个
	// 没有匹配对象时返回ErrNotFound
	LatestBySuffix(ctx context.Context, suffix string) (string, []byte, error)
}

// LocalBlobStore 本地平铺目录后端，所有对象都是目录下的普通文件
type LocalBlobStore struct {
	dir string
}

// 确保LocalBlobStore实现了BlobStore接口
var _ BlobStore = (*LocalBlobStore)(nil)

// NewLocalBlobStore 创建本地blob存储，目录不存在时自动创建
func NewLocalBlobStore(dir string) (*LocalBlobStore, error) {
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建存储目录 %s 失败: %w", dir, err)
	}
	return &LocalBlobStore{dir: dir}, nil
}

// Dir 返回存储目录
func (s *LocalBlobStore) Dir() string {
	return s.dir
}

// Put 写入文件，对象名中的路径分隔符会被拒绝
func (s *LocalBlobStore) Put(ctx context.Context, name string, data []byte, contentType string) error {
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("非法的对象名: %s", name)
	}

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("写入对象 %s 失败: %w", name, err)
	}

	logger.Debug().Str("name", name).Int("bytes", len(data)).Msg("已写入本地blob")
	return nil
}

// Get 读取文件内容
func (s *LocalBlobStore) Get(ctx context.Context, name string) ([]byte, error) {
	path := filepath.Join(s.dir, filepath.Base(name))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("读取对象 %s 失败: %w", name, err)
	}
	return data, nil
}

// LatestBySuffix 列出目录、按修改时间降序排序后取第一个匹配后缀的文件
func (s *LocalBlobStore) LatestBySuffix(ctx context.Context, suffix string) (string, []byte, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, fmt.Errorf("%w: 目录 %s", ErrNotFound, s.dir)
		}
		return "", nil, fmt.Errorf("列出存储目录失败: %w", err)
	}

	type candidate struct {
		name    string
		modTime time.Time
	}

	candidates := make([]candidate, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{name: entry.Name(), modTime: info.ModTime()})
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
