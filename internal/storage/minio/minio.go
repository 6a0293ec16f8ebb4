// minio предоставляет реализацию storage.Images на базе MinIO/S3.
//
// minio.go  — конструктор клиента: нормализует endpoint, выбирает Secure по схеме
// и проверяет наличие бакета;
// images.go — presigned PUT для изображения поста и подтверждение загрузки.
package minio

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/pribylovaa/go-blog-lab/internal/config"
	"github.com/pribylovaa/go-blog-lab/internal/storage"
)

// ImagesStorage — адаптер MinIO для изображений постов.
type ImagesStorage struct {
	s3     config.S3Config
	limits config.ImageConfig
	client *mclient.Client
}

// New создаёт клиент MinIO и выполняет fail-fast проверку бакета.
func New(ctx context.Context, s3 config.S3Config, limits config.ImageConfig) (*ImagesStorage, error) {
	const op = "storage/minio/New"

	endpoint, secure := normalizeEndpoint(s3.Endpoint)

	client, err := mclient.New(endpoint, &mclient.Options{
		Creds:  credentials.NewStaticV4(s3.RootUser, s3.RootPassword, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	exists, err := client.BucketExists(ctx, s3.Bucket)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, storage.ErrUnavailable, err)
	}

	if !exists {
		return nil, fmt.Errorf("%s: bucket %q does not exist", op, s3.Bucket)
	}

	return &ImagesStorage{s3: s3, limits: limits, client: client}, nil
}

// normalizeEndpoint убирает схему из endpoint: minio-go ждёт host:port.
func normalizeEndpoint(endpoint string) (string, bool) {
	secure := strings.HasPrefix(endpoint, "https://")

	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" && u.Host != "" {
		return u.Host, u.Scheme == "https"
	}

	return endpoint, secure
}

var _ storage.Images = (*ImagesStorage)(nil)
