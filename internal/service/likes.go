package service

import (
	"context"
	"fmt"

	"github.com/pribylovaa/go-blog-lab/internal/metrics"
	"github.com/pribylovaa/go-blog-lab/internal/models"
	"github.com/pribylovaa/go-blog-lab/pkg/log"
)

// LikeResult — итог AddLike. Повторный лайк не ошибка: AlreadyLiked=true.
type LikeResult struct {
	Liked        bool  `json:"liked"`
	AlreadyLiked bool  `json:"already_liked"`
	LikeCount    int64 `json:"like_count"`
}

// AddLike — идемпотентный лайк. Дедупликацию выполняет уникальный индекс (user, post),
// в том числе при гонке конкурентных вызовов.
//
// Ошибки: ErrInvalidArgument, ErrNotFound (пост или активный пользователь отсутствуют), ErrInternal.
func (s *Service) AddLike(ctx context.Context, postID, userID int64) (*LikeResult, error) {
	const op = "service/likes/AddLike"

	lg := log.From(ctx).With("op", op, "post_id", postID, "user_id", userID)

	like, err := models.NewLike(postID, userID)
	if err != nil {
		return nil, mapStorageErr(lg, op, err)
	}

	if _, err := s.activeUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	created, err := s.storage.AddLike(ctx, like)
	if err != nil {
		return nil, mapStorageErr(lg, op, err)
	}

	if created {
		metrics.Likes.WithLabelValues("created").Inc()
	} else {
		metrics.Likes.WithLabelValues("duplicate").Inc()
		lg.Debug("already liked")
	}

	post, err := s.reloadPost(ctx, op, postID)
	if err != nil {
		return nil, err
	}

	return &LikeResult{Liked: created, AlreadyLiked: !created, LikeCount: post.LikeCount}, nil
}

// RemoveLike снимает лайк; повторный лайк после этого разрешён.
// false — лайка не было (не ошибка).
func (s *Service) RemoveLike(ctx context.Context, postID, userID int64) (bool, error) {
	const op = "service/likes/RemoveLike"

	lg := log.From(ctx).With("op", op, "post_id", postID, "user_id", userID)

	if err := validID(lg, op, "post_id", postID); err != nil {
		return false, err
	}

	if err := validID(lg, op, "user_id", userID); err != nil {
		return false, err
	}

	removed, err := s.storage.RemoveLike(ctx, postID, userID)
	if err != nil {
		return false, mapStorageErr(lg, op, err)
	}

	if !removed {
		return false, nil
	}

	metrics.Likes.WithLabelValues("removed").Inc()

	if _, err := s.reloadPost(ctx, op, postID); err != nil {
		return true, err
	}

	return true, nil
}

// HasLiked — чистая проверка наличия лайка.
func (s *Service) HasLiked(ctx context.Context, postID, userID int64) (bool, error) {
	const op = "service/likes/HasLiked"

	lg := log.From(ctx).With("op", op, "post_id", postID, "user_id", userID)

	if err := validID(lg, op, "post_id", postID); err != nil {
		return false, err
	}

	if err := validID(lg, op, "user_id", userID); err != nil {
		return false, err
	}

	liked, err := s.storage.HasLiked(ctx, postID, userID)
	if err != nil {
		return false, mapStorageErr(lg, op, err)
	}

	return liked, nil
}
