package minio

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	mclient "github.com/minio/minio-go/v7"

	"github.com/pribylovaa/go-blog-lab/internal/storage"
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// imagePrefix — префикс ключей изображений поста: posts/<postID>/.
func imagePrefix(postID int64) string {
	return "posts/" + strconv.FormatInt(postID, 10) + "/"
}

// ImageUploadURL генерирует presigned PUT URL для изображения поста.
// Ключ имеет вид posts/<postID>/<uuid>.<ext>; RequiredHeader клиент обязан передать при PUT.
func (s *ImagesStorage) ImageUploadURL(ctx context.Context, postID int64, contentType string, contentLength int64) (*storage.UploadInfo, error) {
	const op = "storage/minio/images/ImageUploadURL"

	if err := s.validate(contentType, contentLength); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	key := path.Join(imagePrefix(postID), uuid.NewString()+extensions[contentType])

	u, err := s.client.PresignedPutObject(ctx, s.s3.Bucket, key, s.s3.PresignTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &storage.UploadInfo{
		UploadURL: u.String(),
		ImageKey:  key,
		Expires:   s.s3.PresignTTL,
		RequiredHeader: map[string]string{
			"Content-Type":   contentType,
			"Content-Length": strconv.FormatInt(contentLength, 10),
		},
	}, nil
}

// CheckImageUpload подтверждает загрузку: ключ принадлежит посту, объект существует
// и удовлетворяет ограничениям размера/типа. Возвращает публичный URL или "".
func (s *ImagesStorage) CheckImageUpload(ctx context.Context, postID int64, key string) (string, error) {
	const op = "storage/minio/images/CheckImageUpload"

	if !strings.HasPrefix(key, imagePrefix(postID)) {
		return "", fmt.Errorf("%s: %w: foreign key prefix", op, storage.ErrInvalidImage)
	}

	info, err := s.client.StatObject(ctx, s.s3.Bucket, key, mclient.StatObjectOptions{})
	if err != nil {
		resp := mclient.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
			return "", fmt.Errorf("%s: %w", op, storage.ErrImageNotFound)
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	if info.Size <= 0 || info.Size > s.limits.MaxSizeBytes {
		return "", fmt.Errorf("%s: %w: size %d out of range", op, storage.ErrInvalidImage, info.Size)
	}

	if ct := info.ContentType; ct != "" && !slices.Contains(s.limits.AllowedContentTypes, ct) {
		return "", fmt.Errorf("%s: %w: content type %q is not allowed", op, storage.ErrInvalidImage, ct)
	}

	return publicURL(s.s3.PublicBaseURL, key), nil
}

func (s *ImagesStorage) validate(contentType string, size int64) error {
	if size <= 0 || size > s.limits.MaxSizeBytes {
		return fmt.Errorf("%w: size %d out of range", storage.ErrInvalidImage, size)
	}

	if !slices.Contains(s.limits.AllowedContentTypes, contentType) {
		return fmt.Errorf("%w: content type %q is not allowed", storage.ErrInvalidImage, contentType)
	}

	return nil
}

func publicURL(base, key string) string {
	if base == "" {
		return ""
	}

	return strings.TrimRight(base, "/") + "/" + key
}
