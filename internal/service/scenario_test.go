package service_test

// Сквозной сценарий поверх реальных PostgreSQL и Redis (testcontainers):
// регистрация, пост, лайки двух читателей, комментарий и ответ на него.
//
//   GO_TEST_INTEGRATION=1 go test ./internal/service -run Scenario -v -count=1

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pribylovaa/go-blog-lab/internal/cache"
	"github.com/pribylovaa/go-blog-lab/internal/config"
	"github.com/pribylovaa/go-blog-lab/internal/engagement"
	"github.com/pribylovaa/go-blog-lab/internal/service"
	"github.com/pribylovaa/go-blog-lab/internal/storage/postgres"
)

func startContainer(t *testing.T, req tc.ContainerRequest) (tc.Container, string) {
	t.Helper()

	ctx := context.Background()
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
		ProviderType:     tc.ProviderDocker,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)

	return c, host
}

func migrationSQL(t *testing.T) string {
	t.Helper()

	_, thisFile, _, _ := runtime.Caller(0)
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "migrations", "1_init_blog.up.sql")
	b, err := os.ReadFile(path)
	require.NoError(t, err)

	return string(b)
}

func newIntegrationService(t *testing.T) *service.Service {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()

	pgC, pgHost := startContainer(t, tc.ContainerRequest{
		Image:        "docker.io/postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_USER": "user", "POSTGRES_PASSWORD": "pass", "POSTGRES_DB": "blog"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	})
	pgPort, err := pgC.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	dsn := fmt.Sprintf("postgres://user:pass@%s:%s/blog?sslmode=disable", pgHost, pgPort.Port())

	redisC, redisHost := startContainer(t, tc.ContainerRequest{
		Image:        "docker.io/redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	})
	redisPort, err := redisC.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	var st *postgres.Storage
	require.Eventually(t, func() bool {
		st, err = postgres.New(ctx, dsn)
		return err == nil
	}, 30*time.Second, 500*time.Millisecond)
	t.Cleanup(st.Close)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, migrationSQL(t))
	pool.Close()
	require.NoError(t, err)

	store, err := cache.NewRedisStore(ctx, fmt.Sprintf("redis://%s:%s/0", redisHost, redisPort.Port()), "scenario:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := config.Config{
		Cache:   config.CacheConfig{PostTTL: time.Minute, UserTTL: time.Minute, RankingTTL: time.Second},
		Ranking: config.RankingConfig{Weights: engagement.DefaultWeights, TrendingRefresh: time.Minute, TrendingSize: 10},
		Limits:  config.LimitsConfig{Default: 20, Max: 100},
	}

	return service.New(st, nil, store, cfg)
}

func TestScenario_LikesAndThread(t *testing.T) {
	svc := newIntegrationService(t)
	ctx := context.Background()

	author, err := svc.CreateUser(ctx, service.CreateUserInput{
		Username: "johndoe", Email: "john@example.com", Password: "password123", FirstName: "John", LastName: "Doe",
	})
	require.NoError(t, err)

	post, err := svc.CreatePost(ctx, service.CreatePostInput{
		UserID:    author.ID,
		Title:     "Getting Started with SQL",
		Content:   "SELECT 1;",
		Published: true,
	})
	require.NoError(t, err)
	require.Equal(t, "John Doe", post.Author.DisplayName)

	readers := make([]int64, 0, 2)
	for _, name := range []string{"janedoe", "bobsmith"} {
		u, err := svc.CreateUser(ctx, service.CreateUserInput{Username: name, Email: name + "@example.com", Password: "password123"})
		require.NoError(t, err)
		readers = append(readers, u.ID)

		res, err := svc.AddLike(ctx, post.ID, u.ID)
		require.NoError(t, err)
		require.True(t, res.Liked)
	}

	dup, err := svc.AddLike(ctx, post.ID, readers[0])
	require.NoError(t, err)
	require.True(t, dup.AlreadyLiked)

	got, err := svc.PostByID(ctx, post.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, got.LikeCount)

	root, err := svc.AddComment(ctx, service.AddCommentInput{PostID: post.ID, UserID: readers[0], Content: "Great intro!"})
	require.NoError(t, err)

	reply, err := svc.AddComment(ctx, service.AddCommentInput{PostID: post.ID, UserID: readers[1], Content: "Agreed.", ParentID: &root.ID})
	require.NoError(t, err)

	_, err = svc.AddComment(ctx, service.AddCommentInput{PostID: post.ID, UserID: author.ID, Content: "Thanks", ParentID: &reply.ID})
	require.ErrorIs(t, err, service.ErrInvalidNesting)

	got, err = svc.PostByID(ctx, post.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, got.CommentCount)

	comments, err := svc.ListComments(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	require.Equal(t, root.ID, comments[0].ID)
	require.Equal(t, reply.ID, comments[1].ID)

	top, err := svc.TopPosts(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	require.InDelta(t, 2*2+3*2, top[0].Score, 1e-9)
}
