package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"resume-insight-go/internal/config"
	"resume-insight-go/internal/logger"
)

// SessionStore 会话状态的键值存储能力接口
// 分析结果在持久化到blob之外还会镜像到这里，供"读取当前会话状态"的场景使用
type SessionStore interface {
	// Get 读取一个键，不存在时返回ErrNotFound
	Get(ctx context.Context, key string) (string, error)

	// Set 写入一个键
	Set(ctx context.Context, key, value string) error

	// Delete 删除一个键，键不存在不报错
	Delete(ctx context.Context, key string) error

	// Clear 清空全部会话状态
	Clear(ctx context.Context) error
}

// MemorySessionStore 进程内的会话状态，测试和单机部署的默认选择之一
type MemorySessionStore struct {
	mu   sync.RWMutex
	data map[string]string
}

var _ SessionStore = (*MemorySessionStore)(nil)

// NewMemorySessionStore 创建内存会话存储
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{data: make(map[string]string)}
}

func (s *MemorySessionStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.data[key]
	if !ok {
		return "", fmt.Errorf("%w: 会话键 %s", ErrNotFound, key)
	}
	return value, nil
}

func (s *MemorySessionStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *MemorySessionStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]string)
	return nil
}

// FileSessionStore 基于单个JSON文件的会话状态，进程重启后仍然可用
type FileSessionStore struct {
	mu   sync.Mutex
	path string
}

var _ SessionStore = (*FileSessionStore)(nil)

// NewFileSessionStore 创建文件会话存储，父目录不存在时自动创建
func NewFileSessionStore(path string) (*FileSessionStore, error) {
	if path == "" {
		path = filepath.Join("uploads", "session.json")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("创建会话文件目录失败: %w", err)
	}
	return &FileSessionStore{path: path}, nil
}

// load 读取当前文件内容，文件不存在时返回空map
func (s *FileSessionStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("读取会话文件失败: %w", err)
	}

	state := map[string]string{}
	if len(data) == 0 {
		return state, nil
	}
	if err := json.Unmarshal(data, &state); err != nil {
		// 文件损坏时从空状态重新开始，不让整个服务不可用
		logger.Warn().Err(err).Str("path", s.path).Msg("会话文件损坏，重置为空状态")
		return map[string]string{}, nil
	}
	return state, nil
}

// save 原子写入会话文件
func (s *FileSessionStore) save(state map[string]string) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化会话状态失败: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("写入会话临时文件失败: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("替换会话文件失败: %w", err)
	}
	return nil
}

func (s *FileSessionStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load()
	if err != nil {
		return "", err
	}
	value, ok := state[key]
	if !ok {
		return "", fmt.Errorf("%w: 会话键 %s", ErrNotFound, key)
	}
	return value, nil
}

func (s *FileSessionStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load()
	if err != nil {
		return err
	}
	state[key] = value
	return s.save(state)
}

func (s *FileSessionStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load()
	if err != nil {
		return err
	}
	delete(state, key)
	return s.save(state)
}

func (s *FileSessionStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(map[string]string{})
}

// RedisSessionStore 基于Redis的会话状态，多实例部署时使用
type RedisSessionStore struct {
	client    *redis.Client
	keyPrefix string
}

var _ SessionStore = (*RedisSessionStore)(nil)

// NewRedisSessionStore 创建Redis会话存储并验证连通性
func NewRedisSessionStore(cfg *config.RedisConfig) (*RedisSessionStore, error) {
	if cfg == nil {
		return nil, errors.New("Redis配置不能为空")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  time.Duration(cfg.DialTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("连接Redis %s 失败: %w", cfg.Address, err)
	}

	logger.Info().Str("address", cfg.Address).Msg("Redis客户端初始化成功")
	return &RedisSessionStore{client: client, keyPrefix: "session:"}, nil
}

func (s *RedisSessionStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, s.keyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("%w: 会话键 %s", ErrNotFound, key)
		}
		return "", fmt.Errorf("读取会话键 %s 失败: %w", key, err)
	}
	return value, nil
}

func (s *RedisSessionStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.keyPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("写入会话键 %s 失败: %w", key, err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("删除会话键 %s 失败: %w", key, err)
	}
	return nil
}

func (s *RedisSessionStore) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("清空会话状态失败: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("扫描会话键失败: %w", err)
	}
	return nil
}

// Close 关闭底层Redis连接
func (s *RedisSessionStore) Close() error {
	return s.client.Close()
}
