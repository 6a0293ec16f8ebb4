package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pribylovaa/go-blog-lab/internal/cache"
	"github.com/pribylovaa/go-blog-lab/internal/models"
	"github.com/pribylovaa/go-blog-lab/internal/storage"
	"github.com/pribylovaa/go-blog-lab/pkg/log"
)

// CreatePostInput — создание поста. Пустой Slug выводится из заголовка.
type CreatePostInput struct {
	UserID    int64
	Title     string
	Content   string
	Slug      string
	Published bool
}

// UpdatePostInput — частичный апдейт; nil-поля не меняются.
type UpdatePostInput struct {
	Title   *string
	Content *string
	Slug    *string
}

func postKey(id int64) string {
	return cache.Key(cache.KindPost, strconv.FormatInt(id, 10))
}

// CreatePost — создание поста активным автором.
//
// Ошибки: ErrInvalidArgument, ErrNotFound (автор отсутствует или деактивирован),
// ErrConflict (slug занят), ErrInternal.
func (s *Service) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	const op = "service/posts/CreatePost"

	lg := log.From(ctx).With("op", op, "user_id", in.UserID)

	post, err := models.NewPost(models.Post{
		UserID:      in.UserID,
		Title:       in.Title,
		Content:     in.Content,
		Slug:        in.Slug,
		IsPublished: in.Published,
	})
	if err != nil {
		return nil, mapStorageErr(lg, op, err)
	}

	if _, err := s.activeUser(ctx, in.UserID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	created, err := s.storage.CreatePost(ctx, post)
	if err != nil {
		return nil, mapStorageErr(lg, op, err)
	}

	s.posts.Put(ctx, postKey(created.ID), *created, s.cfg.Cache.PostTTL)
	s.refreshTrendingScore(ctx, created)
	lg.Info("post created", "post_id", created.ID, "slug", created.Slug)

	return created, nil
}

// PostByID — пост через cache-aside.
func (s *Service) PostByID(ctx context.Context, id int64) (*models.Post, error) {
	const op = "service/posts/PostByID"

	lg := log.From(ctx).With("op", op, "post_id", id)

	if err := validID(lg, op, "post_id", id); err != nil {
		return nil, err
	}

	post, err := s.posts.Get(ctx, postKey(id), s.cfg.Cache.PostTTL, func(ctx context.Context) (models.Post, error) {
		p, err := s.storage.PostByID(ctx, id)
		if err != nil {
			return models.Post{}, err
		}

		return *p, nil
	})
	if err != nil {
		return nil, mapStorageErr(lg, op, err)
	}

	return &post, nil
}

// PostBySlug — поиск по slug (без кэша).
func (s *Service) PostBySlug(ctx context.Context, slug string) (*models.Post, error) {
	const op = "service/posts/PostBySlug"

	slug = strings.TrimSpace(slug)
	lg := log.From(ctx).With("op", op, "slug", slug)

	if err := models.ValidateSlug(slug); err != nil {
		return nil, mapStorageErr(lg, op, err)
	}

	post, err := s.storage.PostBySlug(ctx, slug)
	if err != nil {
		return nil, mapStorageErr(lg, op, err)
	}

	return post, nil
}

// ListPostsByUser — все посты автора, включая черновики.
func (s *Service) ListPostsByUser(ctx context.Context, userID int64) ([]models.Post, error) {
	const op = "service/posts/ListPostsByUser"

	lg := log.From(ctx).With("op", op, "user_id", userID)

	if err := validID(lg, op, "user_id", userID); err != nil {
		return nil, err
	}

	posts, err := s.storage.ListPostsByUser(ctx, userID)
	if err != nil {
		return nil, mapStorageErr(lg, op, err)
	}

	return posts, nil
}

// UpdatePost — частичный апдейт с write-through в кэш.
func (s *Service) UpdatePost(ctx context.Context, id int64, in UpdatePostInput) (*models.Post, error) {
	const op = "service/posts/UpdatePost"

	lg := log.From(ctx).With("op", op, "post_id", id)

	if err := validID(lg, op, "post_id", id); err != nil {
		return nil, err
	}

	update := storage.PostUpdate{
		Title:   trimmed(in.Title),
		Content: trimmed(in.Content),
		Slug:    trimmed(in.Slug),
	}

	if update.Title != nil && *update.Title == "" {
		lg.Warn("invalid argument: empty title")
		return nil, fmt.Errorf("%s: %w: title must not be empty", op, ErrInvalidArgument)
	}

	if update.Content != nil && *update.Content == "" {
		lg.Warn("invalid argument: empty content")
		return nil, fmt.Errorf("%s: %w: content must not be empty", op, ErrInvalidArgument)
	}

	if update.Slug != nil {
		if err := models.ValidateSlug(*update.Slug); err != nil {
			return nil, mapStorageErr(lg, op, err)
		}
	}

	post, err := s.posts.Set(ctx, postKey(id), s.cfg.Cache.PostTTL, func(ctx context.Context) (models.Post, error) {
		p, err := s.storage.UpdatePost(ctx, id, update)
		if err != nil {
			return models.Post{}, err
		}

		return *p, nil
	})
	if err != nil {
		return nil, mapStorageErr(lg, op, err)
	}

	return &post, nil
}

// SetPublished публикует или снимает пост с публикации.
// Неопубликованные посты не участвуют в ранжировании.
func (s *Service) SetPublished(ctx context.Context, id int64, published bool) (*models.Post, error) {
	const op = "service/posts/SetPublished"

	lg := log.From(ctx).With("op", op, "post_id", id, "published", published)

	if err := validID(lg, op, "post_id", id); err != nil {
		return nil, err
	}

	post, err := s.posts.Set(ctx, postKey(id), s.cfg.Cache.PostTTL, func(ctx context.Context) (models.Post, error) {
		p, err := s.storage.SetPublished(ctx, id, published)
		if err != nil {
			return models.Post{}, err
		}

		return *p, nil
	})
	if err != nil {
		return nil, mapStorageErr(lg, op, err)
	}

	s.invalidateTop(ctx)
	s.refreshTrendingScore(ctx, &post)

	return &post, nil
}

// DeletePost удаляет пост вместе с лайками и комментариями.
func (s *Service) DeletePost(ctx context.Context, id int64) error {
	const op = "service/posts/DeletePost"

	lg := log.From(ctx).With("op", op, "post_id", id)

	if err := validID(lg, op, "post_id", id); err != nil {
		return err
	}

	if err := s.storage.DeletePost(ctx, id); err != nil {
		return mapStorageErr(lg, op, err)
	}

	s.posts.Invalidate(ctx, postKey(id))
	s.invalidateTop(ctx)
	s.removeFromTrending(ctx, id)
	lg.Info("post deleted")

	return nil
}

// ViewPost засчитывает просмотр: view_count в хранилище, счётчик post:views:<id>
// в кэше и score в лидерборде. Возвращает актуальный пост.
func (s *Service) ViewPost(ctx context.Context, id int64) (*models.Post, error) {
	const op = "service/posts/ViewPost"

	lg := log.From(ctx).With("op", op, "post_id", id)

	if err := validID(lg, op, "post_id", id); err != nil {
		return nil, err
	}

	if _, err := s.storage.IncrementViews(ctx, id); err != nil {
		return nil, mapStorageErr(lg, op, err)
	}

	if s.store != nil {
		if _, err := s.store.Increment(ctx, cache.Key(cache.KindPostViews, strconv.FormatInt(id, 10))); err != nil {
			lg.Warn("views counter increment failed", "err", err)
		}
	}

	return s.reloadPost(ctx, op, id)
}

// reloadPost сбрасывает кэш поста после изменения счётчиков, перечитывает его
// из хранилища и обновляет score в лидерборде.
func (s *Service) reloadPost(ctx context.Context, op string, id int64) (*models.Post, error) {
	lg := log.From(ctx).With("op", op, "post_id", id)

	s.posts.Invalidate(ctx, postKey(id))

	post, err := s.storage.PostByID(ctx, id)
	if err != nil {
		return nil, mapStorageErr(lg, op, err)
	}

	s.refreshTrendingScore(ctx, post)

	return post, nil
}
