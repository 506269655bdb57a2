package kv

import (
	"context"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"

	"github.com/zhouzirui/gemini-chat/backend/internal/config"
)

// Open builds the configured backend. The returned closer is never nil.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, io.Closer, error) {
	switch cfg.Backend {
	case config.StorageMemory:
		return NewMemoryStore(nil), nopCloser{}, nil
	case config.StorageFile:
		store, err := OpenFileStore(cfg.FilePath)
		if err != nil {
			return nil, nil, err
		}
		return store, nopCloser{}, nil
	case config.StorageRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("kv: redis ping %s: %w", cfg.RedisAddr, err)
		}
		store := NewRedisStore(client, cfg.Namespace, nil)
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("kv: unknown storage backend %q", cfg.Backend)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
