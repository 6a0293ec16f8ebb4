package minio

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pribylovaa/go-blog-lab/internal/config"
	"github.com/pribylovaa/go-blog-lab/internal/storage"
)

// Интеграционные тесты поднимают MinIO через testcontainers-go.
//
// Запуск:
//   GO_TEST_INTEGRATION=1 go test ./internal/storage/minio -v -count=1

var testLimits = config.ImageConfig{
	MaxSizeBytes:        1 << 20,
	AllowedContentTypes: []string{"image/png", "image/jpeg", "image/webp"},
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		in         string
		wantHost   string
		wantSecure bool
	}{
		{"http://localhost:9000", "localhost:9000", false},
		{"https://s3.example.com", "s3.example.com", true},
		{"localhost:9000", "localhost:9000", false},
	}

	for _, tt := range tests {
		host, secure := normalizeEndpoint(tt.in)
		require.Equal(t, tt.wantHost, host, tt.in)
		require.Equal(t, tt.wantSecure, secure, tt.in)
	}
}

func TestPublicURL(t *testing.T) {
	require.Empty(t, publicURL("", "posts/1/a.png"))
	require.Equal(t, "http://cdn.local/posts/1/a.png", publicURL("http://cdn.local/", "posts/1/a.png"))
}

func TestValidate(t *testing.T) {
	s := &ImagesStorage{limits: testLimits}

	require.NoError(t, s.validate("image/png", 10))
	require.ErrorIs(t, s.validate("image/gif", 10), storage.ErrInvalidImage)
	require.ErrorIs(t, s.validate("image/png", 0), storage.ErrInvalidImage)
	require.ErrorIs(t, s.validate("image/png", 2<<20), storage.ErrInvalidImage)
}

func startMinio(t *testing.T, createBucket bool) (*ImagesStorage, error) {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	const (
		rootUser     = "root"
		rootPassword = "rootpass"
		bucket       = "post-images"
	)

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "docker.io/minio/minio:latest",
			Env:          map[string]string{"MINIO_ROOT_USER": rootUser, "MINIO_ROOT_PASSWORD": rootPassword},
			Cmd:          []string{"server", "/data"},
			ExposedPorts: []string{"9000/tcp"},
			WaitingFor:   wait.ForListeningPort("9000/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, _ := c.Host(ctx)
	port, _ := c.MappedPort(ctx, "9000/tcp")

	if createBucket {
		admin, err := mclient.New(host+":"+port.Port(), &mclient.Options{
			Creds: credentials.NewStaticV4(rootUser, rootPassword, ""),
		})
		require.NoError(t, err)
		require.NoError(t, admin.MakeBucket(ctx, bucket, mclient.MakeBucketOptions{Region: "us-east-1"}))
	}

	return New(ctx, config.S3Config{
		Endpoint:      fmt.Sprintf("http://%s:%s", host, port.Port()),
		RootUser:      rootUser,
		RootPassword:  rootPassword,
		Bucket:        bucket,
		PresignTTL:    2 * time.Minute,
		PublicBaseURL: "http://cdn.local",
	}, testLimits)
}

func TestIntegration_New_BucketMustExist(t *testing.T) {
	_, err := startMinio(t, false)
	require.Error(t, err)
}

func TestIntegration_UploadAndConfirm(t *testing.T) {
	st, err := startMinio(t, true)
	require.NoError(t, err)
	ctx := context.Background()

	const bodySize = 5
	info, err := st.ImageUploadURL(ctx, 7, "image/png", bodySize)
	require.NoError(t, err)
	require.Contains(t, info.ImageKey, "posts/7/")
	require.Equal(t, "image/png", info.RequiredHeader["Content-Type"])

	_, err = st.CheckImageUpload(ctx, 7, info.ImageKey)
	require.ErrorIs(t, err, storage.ErrImageNotFound)

	req, err := http.NewRequest(http.MethodPut, info.UploadURL, bytes.NewReader(bytes.Repeat([]byte{0x42}, bodySize)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "image/png")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Less(t, resp.StatusCode, 300)

	public, err := st.CheckImageUpload(ctx, 7, info.ImageKey)
	require.NoError(t, err)
	require.Equal(t, "http://cdn.local/"+info.ImageKey, public)

	_, err = st.CheckImageUpload(ctx, 8, info.ImageKey)
	require.ErrorIs(t, err, storage.ErrInvalidImage)
}
