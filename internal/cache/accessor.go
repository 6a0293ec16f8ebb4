package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pribylovaa/go-blog-lab/internal/metrics"
	"github.com/pribylovaa/go-blog-lab/pkg/log"
)

// Результаты обращения к кэшу (метка blog_cache_requests_total).
const (
	ResultHit     = "hit"
	ResultMiss    = "miss"
	ResultExpired = "expired"
	ResultError   = "error"
)

// envelope — формат значения в Store: полезная нагрузка и срок годности (unix ms).
// Срок проверяется при чтении независимо от нативного TTL хранилища.
type envelope struct {
	V   json.RawMessage `json:"v"`
	Exp int64           `json:"exp"`
}

// Option настраивает Accessor.
type Option func(*settings)

type settings struct {
	clock func() time.Time
}

// WithClock подменяет источник времени (для тестов истечения срока).
func WithClock(clock func() time.Time) Option {
	return func(s *settings) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// Accessor — типизированный cache-aside над Store.
//   - Get: значение из кэша, если есть и не истекло; иначе загрузка из источника
//     и запись в кэш. Параллельные промахи по одному ключу схлопываются в одну загрузку.
//   - Set: write-through, сначала источник, затем кэш.
//   - Ошибки Store никогда не возвращаются вызывающему: только лог и метрика.
//
// nil Store допустим: Accessor работает напрямую с источником.
type Accessor[T any] struct {
	store Store
	clock func() time.Time
	group singleflight.Group
}

// NewAccessor создаёт Accessor поверх store.
func NewAccessor[T any](store Store, opts ...Option) *Accessor[T] {
	s := settings{clock: time.Now}
	for _, opt := range opts {
		opt(&s)
	}

	return &Accessor[T]{store: store, clock: s.clock}
}

// Get возвращает значение по key, при промахе вызывая fetch и кэшируя результат на ttl.
// Ошибка fetch возвращается как есть и не кэшируется.
func (a *Accessor[T]) Get(ctx context.Context, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	if a.store == nil || ttl <= 0 {
		return fetch(ctx)
	}

	if v, ok := a.lookup(ctx, key); ok {
		return v, nil
	}

	res, err, _ := a.group.Do(key, func() (any, error) {
		v, err := fetch(ctx)
		if err != nil {
			return v, err
		}

		a.put(ctx, key, v, ttl)

		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	v, _ := res.(T)

	return v, nil
}

// Set выполняет write в источнике истины и только при успехе кладёт результат в кэш.
// Сбой кэша не влияет на результат операции.
func (a *Accessor[T]) Set(ctx context.Context, key string, ttl time.Duration, write func(context.Context) (T, error)) (T, error) {
	v, err := write(ctx)
	if err != nil {
		return v, err
	}

	if a.store != nil && ttl > 0 {
		a.put(ctx, key, v, ttl)
	}

	return v, nil
}

// Put кладёт уже записанное в источник значение в кэш (best-effort).
// Нужен, когда ключ известен только после записи (ID назначает хранилище).
func (a *Accessor[T]) Put(ctx context.Context, key string, value T, ttl time.Duration) {
	if a.store == nil || ttl <= 0 {
		return
	}

	a.put(ctx, key, value, ttl)
}

// Invalidate удаляет ключ из кэша (best-effort).
func (a *Accessor[T]) Invalidate(ctx context.Context, key string) {
	if a.store == nil {
		return
	}

	if err := a.store.Delete(ctx, key); err != nil {
		log.From(ctx).Warn("cache invalidate failed", "key", key, "err", err)
	}
}

func (a *Accessor[T]) lookup(ctx context.Context, key string) (T, bool) {
	var zero T

	raw, found, err := a.store.Get(ctx, key)
	if err != nil {
		metrics.CacheRequests.WithLabelValues(ResultError).Inc()
		log.From(ctx).Warn("cache get failed, falling back to source", "key", key, "err", err)
		return zero, false
	}

	if !found {
		metrics.CacheRequests.WithLabelValues(ResultMiss).Inc()
		return zero, false
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		metrics.CacheRequests.WithLabelValues(ResultError).Inc()
		log.From(ctx).Warn("cache entry is corrupted", "key", key, "err", err)
		return zero, false
	}

	if a.clock().UnixMilli() >= env.Exp {
		metrics.CacheRequests.WithLabelValues(ResultExpired).Inc()
		return zero, false
	}

	var v T
	if err := json.Unmarshal(env.V, &v); err != nil {
		metrics.CacheRequests.WithLabelValues(ResultError).Inc()
		log.From(ctx).Warn("cache value decode failed", "key", key, "err", err)
		return zero, false
	}

	metrics.CacheRequests.WithLabelValues(ResultHit).Inc()

	return v, true
}

func (a *Accessor[T]) put(ctx context.Context, key string, v T, ttl time.Duration) {
	raw, err := encode(v, a.clock().Add(ttl))
	if err != nil {
		log.From(ctx).Warn("cache encode failed", "key", key, "err", err)
		return
	}

	if err := a.store.SetWithTTL(ctx, key, raw, ttl); err != nil {
		log.From(ctx).Warn("cache set failed", "key", key, "err", err)
	}
}

func encode[T any](v T, exp time.Time) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}

	return json.Marshal(envelope{V: payload, Exp: exp.UnixMilli()})
}
