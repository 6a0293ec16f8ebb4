// cache реализует cache-aside поверх быстрого хранилища с TTL (Redis).
//
// store.go    — контракт Store и его реализация на go-redis/v9;
// keys.go     — инъективное построение ключей по виду сущности;
// accessor.go — типизированный Accessor[T]: чтение с догрузкой, write-through, инвалидация.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store — минимальный контракт быстрого хранилища.
type Store interface {
	// Get возвращает значение и признак его наличия.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// SetWithTTL сохраняет значение; ttl <= 0 — без срока жизни.
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Increment атомарно увеличивает счётчик и возвращает новое значение.
	Increment(ctx context.Context, key string) (int64, error)
	// ZSetAdd выставляет score участника отсортированного множества.
	ZSetAdd(ctx context.Context, key, member string, score float64) error
	// ZSetTopN возвращает до n участников с наибольшим score.
	ZSetTopN(ctx context.Context, key string, n int) ([]string, error)
	// ZSetReplace атомарно заменяет содержимое множества.
	ZSetReplace(ctx context.Context, key string, scores map[string]float64) error
	// ZSetRemove удаляет участников; отсутствующие игнорируются.
	ZSetRemove(ctx context.Context, key string, members ...string) error
	Close() error
}

// RedisStore — реализация Store на Redis. Все ключи получают общий префикс.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore создаёт клиент из URL (redis://:pass@host:6379/0) и проверяет соединение.
// Пустой prefix заменяется на "blog:".
func NewRedisStore(ctx context.Context, redisURL, prefix string) (*RedisStore, error) {
	const op = "cache/NewRedisStore"

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return NewRedisStoreFromClient(rdb, prefix), nil
}

// NewRedisStoreFromClient оборачивает готовый клиент.
func NewRedisStoreFromClient(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "blog:"
	}

	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key(k string) string { return s.prefix + k }

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, err
	}

	return b, true, nil
}

func (s *RedisStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}

	return s.rdb.Set(ctx, s.key(key), value, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.key(key)).Err()
}

func (s *RedisStore) Increment(ctx context.Context, key string) (int64, error) {
	return s.rdb.Incr(ctx, s.key(key)).Result()
}

func (s *RedisStore) ZSetAdd(ctx context.Context, key, member string, score float64) error {
	return s.rdb.ZAdd(ctx, s.key(key), redis.Z{Score: score, Member: member}).Err()
}

func (s *RedisStore) ZSetTopN(ctx context.Context, key string, n int) ([]string, error) {
	if n <= 0 {
		return []string{}, nil
	}

	return s.rdb.ZRevRange(ctx, s.key(key), 0, int64(n-1)).Result()
}

// ZSetReplace пересобирает множество в транзакции: DEL + ZADD.
func (s *RedisStore) ZSetReplace(ctx context.Context, key string, scores map[string]float64) error {
	members := make([]redis.Z, 0, len(scores))
	for member, score := range scores {
		members = append(members, redis.Z{Score: score, Member: member})
	}

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, s.key(key))
	if len(members) > 0 {
		pipe.ZAdd(ctx, s.key(key), members...)
	}

	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) ZSetRemove(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}

	args := make([]any, len(members))
	for i, m := range members {
		args[i] = m
	}

	return s.rdb.ZRem(ctx, s.key(key), args...).Err()
}

func (s *RedisStore) Close() error { return s.rdb.Close() }

var _ Store = (*RedisStore)(nil)
