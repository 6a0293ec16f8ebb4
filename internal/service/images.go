package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pribylovaa/go-blog-lab/internal/models"
	"github.com/pribylovaa/go-blog-lab/internal/storage"
	"github.com/pribylovaa/go-blog-lab/pkg/log"
)

// ImageUploadURL выдаёт presigned PUT для изображения существующего поста.
func (s *Service) ImageUploadURL(ctx context.Context, postID int64, contentType string, contentLength int64) (*storage.UploadInfo, error) {
	const op = "service/images/ImageUploadURL"

	contentType = strings.ToLower(strings.TrimSpace(contentType))
	lg := log.From(ctx).With("op", op, "post_id", postID, "content_type", contentType)

	if s.images == nil {
		lg.Warn("image storage is not configured")
		return nil, fmt.Errorf("%s: %w: image storage is not configured", op, ErrUnavailable)
	}

	if _, err := s.PostByID(ctx, postID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	info, err := s.images.ImageUploadURL(ctx, postID, contentType, contentLength)
	if err != nil {
		return nil, mapImageErr(lg, op, err)
	}

	return info, nil
}

// ConfirmImageUpload проверяет загруженный объект и привязывает его к посту.
func (s *Service) ConfirmImageUpload(ctx context.Context, postID int64, key string) (*models.Post, error) {
	const op = "service/images/ConfirmImageUpload"

	key = strings.TrimSpace(key)
	lg := log.From(ctx).With("op", op, "post_id", postID, "key", key)

	if s.images == nil {
		lg.Warn("image storage is not configured")
		return nil, fmt.Errorf("%s: %w: image storage is not configured", op, ErrUnavailable)
	}

	if err := validID(lg, op, "post_id", postID); err != nil {
		return nil, err
	}

	if key == "" {
		lg.Warn("invalid argument: empty key")
		return nil, fmt.Errorf("%s: %w: key is required", op, ErrInvalidArgument)
	}

	url, err := s.images.CheckImageUpload(ctx, postID, key)
	if err != nil {
		return nil, mapImageErr(lg, op, err)
	}

	post, err := s.posts.Set(ctx, postKey(postID), s.cfg.Cache.PostTTL, func(ctx context.Context) (models.Post, error) {
		p, err := s.storage.SetPostImage(ctx, postID, key, url)
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

func mapImageErr(lg *slog.Logger, op string, err error) error {
	switch {
	case errors.Is(err, storage.ErrInvalidImage):
		lg.Warn("invalid image", "err", err)
		return fmt.Errorf("%s: %w: %v", op, ErrInvalidArgument, err)
	case errors.Is(err, storage.ErrImageNotFound):
		lg.Warn("image not uploaded")
		return fmt.Errorf("%s: %w: image not uploaded", op, ErrNotFound)
	case errors.Is(err, storage.ErrUnavailable):
		lg.Error("image storage unavailable", "err", err)
		return fmt.Errorf("%s: %w", op, ErrUnavailable)
	default:
		lg.Error("image storage error", "err", err)
		return fmt.Errorf("%s: %w", op, ErrInternal)
	}
}
