package postgres

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pribylovaa/go-blog-lab/internal/models"
	"github.com/pribylovaa/go-blog-lab/internal/storage"
)

// Интеграционные тесты адаптера PostgreSQL:
// — поднимают postgres:16-alpine через testcontainers-go;
// — применяют migrations/1_init_blog.up.sql;
// — проверяют уникальность, частичные апдейты, согласованность счётчиков
//   like_count/comment_count с журналами и каскадное удаление.
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/storage/postgres -v -race -count=1

// repoRootFromThisFile — корень репозитория относительно файла тестов.
func repoRootFromThisFile() string {
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Clean(filepath.Join(filepath.Dir(thisFile), "..", "..", ".."))
}

func readMigration(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(repoRootFromThisFile(), "migrations", name)
	b, err := os.ReadFile(path)
	require.NoError(t, err, "read migration %s", path)
	return string(b)
}

func startPostgres(t *testing.T) (*Storage, func()) {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "docker.io/postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_USER": "user", "POSTGRES_PASSWORD": "pass", "POSTGRES_DB": "blog"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
		ProviderType:     tc.ProviderDocker,
	})
	require.NoError(t, err)

	host, _ := c.Host(ctx)
	port, _ := c.MappedPort(ctx, "5432/tcp")
	dsn := fmt.Sprintf("postgres://user:pass@%s:%s/blog?sslmode=disable", host, port.Port())

	var st *Storage
	require.Eventually(t, func() bool {
		st, err = New(ctx, dsn)
		return err == nil
	}, 30*time.Second, 500*time.Millisecond)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.Exec(ctx, readMigration(t, "1_init_blog.up.sql"))
	require.NoError(t, err)

	cleanup := func() {
		st.Close()
		_ = c.Terminate(context.Background())
	}
	return st, cleanup
}

func mustUser(t *testing.T, st *Storage, username string) *models.User {
	t.Helper()
	u, err := models.NewUser(models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		FirstName:    "First",
		LastName:     "Last",
	})
	require.NoError(t, err)

	created, err := st.CreateUser(context.Background(), u)
	require.NoError(t, err)
	return created
}

func mustPost(t *testing.T, st *Storage, userID int64, title string, published bool) *models.Post {
	t.Helper()
	p, err := models.NewPost(models.Post{UserID: userID, Title: title, Content: "body of " + title, IsPublished: published})
	require.NoError(t, err)

	created, err := st.CreatePost(context.Background(), p)
	require.NoError(t, err)
	return created
}

func mustComment(t *testing.T, st *Storage, postID, userID int64, parent *int64) *models.Comment {
	t.Helper()
	c, err := models.NewComment(models.Comment{PostID: postID, UserID: userID, ParentID: parent, Content: "text"})
	require.NoError(t, err)

	created, err := st.CreateComment(context.Background(), c)
	require.NoError(t, err)
	return created
}

func TestIntegration_Users(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()
	ctx := context.Background()

	u := mustUser(t, st, "johndoe")
	require.Positive(t, u.ID)
	require.True(t, u.IsActive)

	got, err := st.UserByUsername(ctx, "johndoe")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	dup, err := models.NewUser(models.User{Username: "johndoe", Email: "other@example.com", PasswordHash: "h"})
	require.NoError(t, err)
	_, err = st.CreateUser(ctx, dup)
	require.ErrorIs(t, err, storage.ErrAlreadyExists)

	bio := "writes about SQL"
	updated, err := st.UpdateUser(ctx, u.ID, storage.UserUpdate{Bio: &bio})
	require.NoError(t, err)
	require.Equal(t, bio, updated.Bio)
	require.Equal(t, "First", updated.FirstName)
	require.False(t, updated.UpdatedAt.Before(u.UpdatedAt))

	require.NoError(t, st.DeactivateUser(ctx, u.ID))
	got, err = st.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)

	_, err = st.UserByID(ctx, 999999)
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.ErrorIs(t, st.DeactivateUser(ctx, 999999), storage.ErrNotFound)
}

func TestIntegration_Posts(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()
	ctx := context.Background()

	u := mustUser(t, st, "author")
	p := mustPost(t, st, u.ID, "Getting Started with SQL", false)
	require.Equal(t, "getting-started-with-sql", p.Slug)
	require.Equal(t, "author", p.Author.Username)
	require.Equal(t, "First Last", p.Author.DisplayName)

	dup, err := models.NewPost(models.Post{UserID: u.ID, Title: "Getting Started with SQL", Content: "x"})
	require.NoError(t, err)
	_, err = st.CreatePost(ctx, dup)
	require.ErrorIs(t, err, storage.ErrAlreadyExists)

	orphan, err := models.NewPost(models.Post{UserID: 424242, Title: "Orphan", Content: "x"})
	require.NoError(t, err)
	_, err = st.CreatePost(ctx, orphan)
	require.ErrorIs(t, err, storage.ErrNotFound)

	published, err := st.ListPublishedPosts(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, published)

	p, err = st.SetPublished(ctx, p.ID, true)
	require.NoError(t, err)
	require.True(t, p.IsPublished)

	mustPost(t, st, u.ID, "Second", true)
	published, err = st.ListPublishedPosts(ctx, 0)
	require.NoError(t, err)
	require.Len(t, published, 2)

	published, err = st.ListPublishedPosts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, published, 1)

	title := "New title"
	p, err = st.UpdatePost(ctx, p.ID, storage.PostUpdate{Title: &title})
	require.NoError(t, err)
	require.Equal(t, title, p.Title)
	require.Equal(t, "getting-started-with-sql", p.Slug)

	views, err := st.IncrementViews(ctx, p.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, views)

	p, err = st.SetPostImage(ctx, p.ID, "posts/1/a.png", "http://cdn/posts/1/a.png")
	require.NoError(t, err)
	require.Equal(t, "posts/1/a.png", p.ImageKey)

	bySlug, err := st.PostBySlug(ctx, "getting-started-with-sql")
	require.NoError(t, err)
	require.Equal(t, p.ID, bySlug.ID)
	require.EqualValues(t, 1, bySlug.ViewCount)

	mine, err := st.ListPostsByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)

	require.NoError(t, st.DeletePost(ctx, p.ID))
	_, err = st.PostByID(ctx, p.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.ErrorIs(t, st.DeletePost(ctx, p.ID), storage.ErrNotFound)
}

func TestIntegration_Likes_CounterMatchesLedger(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()
	ctx := context.Background()

	author := mustUser(t, st, "author")
	p := mustPost(t, st, author.ID, "Liked post", true)

	const likers = 8
	var wg sync.WaitGroup
	errs := make(chan error, likers*3)
	for i := 0; i < likers; i++ {
		u := mustUser(t, st, fmt.Sprintf("liker%d", i))
		for j := 0; j < 3; j++ {
			wg.Add(1)
			go func(userID int64) {
				defer wg.Done()
				like, err := models.NewLike(p.ID, userID)
				if err == nil {
					_, err = st.AddLike(ctx, like)
				}
				errs <- err
			}(u.ID)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	count, err := st.CountLikes(ctx, p.ID)
	require.NoError(t, err)
	require.EqualValues(t, likers, count)

	got, err := st.PostByID(ctx, p.ID)
	require.NoError(t, err)
	require.EqualValues(t, likers, got.LikeCount)

	liked, err := st.HasLiked(ctx, p.ID, author.ID)
	require.NoError(t, err)
	require.False(t, liked)

	removed, err := st.RemoveLike(ctx, p.ID, author.ID)
	require.NoError(t, err)
	require.False(t, removed)

	liker, err := st.UserByUsername(ctx, "liker0")
	require.NoError(t, err)
	removed, err = st.RemoveLike(ctx, p.ID, liker.ID)
	require.NoError(t, err)
	require.True(t, removed)

	got, err = st.PostByID(ctx, p.ID)
	require.NoError(t, err)
	require.EqualValues(t, likers-1, got.LikeCount)

	like, err := models.NewLike(999999, liker.ID)
	require.NoError(t, err)
	_, err = st.AddLike(ctx, like)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_Comments_SoftDelete(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()
	ctx := context.Background()

	u := mustUser(t, st, "author")
	p := mustPost(t, st, u.ID, "Commented post", true)

	root := mustComment(t, st, p.ID, u.ID, nil)
	reply := mustComment(t, st, p.ID, u.ID, &root.ID)
	require.Equal(t, root.ID, *reply.ParentID)

	got, err := st.PostByID(ctx, p.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, got.CommentCount)

	deleted, err := st.SoftDeleteComment(ctx, root.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	deleted, err = st.SoftDeleteComment(ctx, root.ID)
	require.NoError(t, err)
	require.False(t, deleted)

	_, err = st.SoftDeleteComment(ctx, 999999)
	require.ErrorIs(t, err, storage.ErrNotFound)

	got, err = st.PostByID(ctx, p.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, got.CommentCount)

	visible, err := st.CountVisibleComments(ctx, p.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, visible)

	all, err := st.ListCommentsByPost(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)

	stored, err := st.CommentByID(ctx, root.ID)
	require.NoError(t, err)
	require.True(t, stored.IsDeleted)
	require.Equal(t, models.DeletedPlaceholder, stored.DisplayContent())
}

func TestIntegration_DeleteUser_CascadesAndFixesCounters(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()
	ctx := context.Background()

	owner := mustUser(t, st, "owner")
	leaver := mustUser(t, st, "leaver")
	other := mustUser(t, st, "other")

	p := mustPost(t, st, owner.ID, "Owner post", true)
	own := mustPost(t, st, leaver.ID, "Leaver post", true)

	like, err := models.NewLike(p.ID, leaver.ID)
	require.NoError(t, err)
	_, err = st.AddLike(ctx, like)
	require.NoError(t, err)

	root := mustComment(t, st, p.ID, leaver.ID, nil)
	mustComment(t, st, p.ID, other.ID, &root.ID)
	mustComment(t, st, p.ID, other.ID, nil)

	require.NoError(t, st.DeleteUser(ctx, leaver.ID))

	got, err := st.PostByID(ctx, p.ID)
	require.NoError(t, err)
	require.EqualValues(t, 0, got.LikeCount)
	require.EqualValues(t, 1, got.CommentCount)

	visible, err := st.CountVisibleComments(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, visible, got.CommentCount)

	_, err = st.PostByID(ctx, own.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.ErrorIs(t, st.DeleteUser(ctx, leaver.ID), storage.ErrNotFound)
}

func TestIntegration_ContextDeadline(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := st.UserByID(ctx, 1)
	require.Error(t, err)
}
