package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrImageNotFound — объект (ключ) отсутствует в бакете.
	ErrImageNotFound = errors.New("image not found")
	// ErrInvalidImage — нарушены ограничения (тип/размер/префикс ключа).
	ErrInvalidImage = errors.New("invalid image")
)

// UploadInfo — информация для клиента о presigned PUT загрузке.
//   - UploadURL: конечная URL для PUT-запроса.
//   - ImageKey: ключ будущего объекта в бакете.
//   - Expires: время жизни подписи.
//   - RequiredHeader: заголовки, которые клиент ОБЯЗАН передать при PUT.
type UploadInfo struct {
	UploadURL      string            `json:"upload_url"`
	ImageKey       string            `json:"image_key"`
	Expires        time.Duration     `json:"expires"`
	RequiredHeader map[string]string `json:"required_header"`
}

// Images — объектное хранилище изображений постов.
type Images interface {
	// ImageUploadURL генерирует presigned PUT; валидирует contentType и contentLength.
	ImageUploadURL(ctx context.Context, postID int64, contentType string, contentLength int64) (*UploadInfo, error)
	// CheckImageUpload проверяет факт загрузки по key и возвращает публичный URL
	// (пустой, если PublicBaseURL не сконфигурирован).
	CheckImageUpload(ctx context.Context, postID int64, key string) (publicURL string, err error)
}
