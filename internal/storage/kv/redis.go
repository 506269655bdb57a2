package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RedisStore persists keys in Redis under a namespace prefix, without TTL.
type RedisStore struct {
	client    *redis.Client
	namespace string
	tracer    trace.Tracer
}

// NewRedisStore wraps an existing client. An empty namespace stores keys unprefixed.
func NewRedisStore(client *redis.Client, namespace string, tracer trace.Tracer) *RedisStore {
	if client == nil {
		panic("kv: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("geminichat.internal.storage.kv")
	}
	return &RedisStore{client: client, namespace: namespace, tracer: tracer}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, span := s.tracer.Start(ctx, "kv.get", trace.WithAttributes(attribute.String("kv.key", key)))
	defer span.End()

	value, err := s.client.Get(ctx, s.redisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		span.RecordError(err)
		return "", false, fmt.Errorf("kv: redis get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	ctx, span := s.tracer.Start(ctx, "kv.set", trace.WithAttributes(attribute.String("kv.key", key)))
	defer span.End()

	if err := s.client.Set(ctx, s.redisKey(key), value, 0).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("kv: redis set %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) redisKey(key string) string {
	if s.namespace == "" {
		return key
	}
	return fmt.Sprintf("%s:%s", s.namespace, key)
}
