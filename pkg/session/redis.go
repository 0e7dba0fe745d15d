package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shouni/gemini-image-studio/pkg/domain"
)

const (
	// DefaultRedisKey はセッション状態を保存するキーです。
	DefaultRedisKey       = "imagestudio:session"
	defaultConnectTimeout = 5 * time.Second
)

// RedisConfig は RedisStore の接続設定です。
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
	// TTL が 0 の場合は期限なしで保存します。
	TTL time.Duration
}

// RedisStore はセッション状態を 1 つの JSON 値として Redis に保存するストアです。
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisStore は接続を確認してから RedisStore を返します。
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	key := cfg.Key
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key, ttl: cfg.TTL}, nil
}

func (s *RedisStore) Load(ctx context.Context) (*domain.SessionState, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.NewSessionState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("Redis からの読み込みに失敗しました: %w", err)
	}
	return decode(data)
}

func (s *RedisStore) Save(ctx context.Context, state *domain.SessionState) error {
	data, err := encode(state)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("Redis への保存に失敗しました: %w", err)
	}
	return nil
}

// Close は Redis との接続を閉じます。
func (s *RedisStore) Close() error {
	return s.client.Close()
}
