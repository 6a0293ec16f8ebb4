// service содержит бизнес-логику blog-service: журнал лайков, дерево комментариев,
// ранжирование по вовлечённости и cache-aside чтение сущностей.
//
// Сервис не знает, какой адаптер хранилища активен (postgres/mongo), и не зависит
// от наличия кэша или объектного хранилища: без Redis чтения идут напрямую в storage,
// без MinIO операции с изображениями возвращают ErrUnavailable.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pribylovaa/go-blog-lab/internal/cache"
	"github.com/pribylovaa/go-blog-lab/internal/config"
	"github.com/pribylovaa/go-blog-lab/internal/engagement"
	"github.com/pribylovaa/go-blog-lab/internal/models"
	"github.com/pribylovaa/go-blog-lab/internal/storage"
)

//go:generate mockgen -destination=../../mocks/storage_mock.go -package=mocks github.com/pribylovaa/go-blog-lab/internal/storage Storage,Images
//go:generate mockgen -destination=../../mocks/cache_mock.go -package=mocks github.com/pribylovaa/go-blog-lab/internal/cache Store

var (
	// ErrInvalidArgument — неверные входные параметры.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound — сущность (или то, на что она ссылается) отсутствует.
	ErrNotFound = errors.New("not found")
	// ErrConflict — нарушение уникальности (username/email/slug).
	ErrConflict = errors.New("conflict")
	// ErrInvalidNesting — ответ на ответ: глубина дерева комментариев ровно 1.
	ErrInvalidNesting = errors.New("invalid nesting")
	// ErrUnavailable — хранилище недоступно или не сконфигурировано.
	ErrUnavailable = errors.New("unavailable")
	// ErrInternal — прочие ошибки хранилища/контекста.
	ErrInternal = errors.New("internal")
)

// Service — бизнес-логика блога.
type Service struct {
	storage storage.Storage
	images  storage.Images
	store   cache.Store
	cfg     config.Config
	weights engagement.Weights

	users *cache.Accessor[models.User]
	posts *cache.Accessor[models.Post]
	top   *cache.Accessor[[]engagement.Ranked]
}

// New создаёт сервис. images и store могут быть nil.
func New(st storage.Storage, images storage.Images, store cache.Store, cfg config.Config, opts ...cache.Option) *Service {
	return &Service{
		storage: st,
		images:  images,
		store:   store,
		cfg:     cfg,
		weights: cfg.Ranking.Weights,
		users:   cache.NewAccessor[models.User](store, opts...),
		posts:   cache.NewAccessor[models.Post](store, opts...),
		top:     cache.NewAccessor[[]engagement.Ranked](store, opts...),
	}
}

// mapStorageErr переводит ошибки storage/models в ошибки сервиса и логирует их
// с уровнем, соответствующим природе ошибки.
func mapStorageErr(lg *slog.Logger, op string, err error) error {
	switch {
	case errors.Is(err, models.ErrValidation):
		lg.Warn("invalid argument", "err", err)
		return fmt.Errorf("%s: %w: %v", op, ErrInvalidArgument, err)
	case errors.Is(err, storage.ErrNotFound):
		lg.Warn("not found")
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, storage.ErrAlreadyExists):
		lg.Warn("conflict")
		return fmt.Errorf("%s: %w", op, ErrConflict)
	case errors.Is(err, storage.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		lg.Error("storage unavailable", "err", err)
		return fmt.Errorf("%s: %w", op, ErrUnavailable)
	default:
		lg.Error("storage error", "err", err)
		return fmt.Errorf("%s: %w", op, ErrInternal)
	}
}

// validID проверяет положительность идентификатора.
func validID(lg *slog.Logger, op, name string, id int64) error {
	if id <= 0 {
		lg.Warn("invalid argument: non-positive id", "field", name)
		return fmt.Errorf("%s: %w: %s must be positive", op, ErrInvalidArgument, name)
	}

	return nil
}

// limitOrDefault приводит запрошенный размер выдачи к [Default, Max].
func (s *Service) limitOrDefault(limit int) int {
	if limit <= 0 {
		limit = s.cfg.Limits.Default
	}

	if s.cfg.Limits.Max > 0 && limit > s.cfg.Limits.Max {
		limit = s.cfg.Limits.Max
	}

	return limit
}
