package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/pribylovaa/go-blog-lab/internal/models"
	"github.com/pribylovaa/go-blog-lab/internal/storage"
)

// postColumns выбирает пост вместе с данными автора (алиасы p/u).
const postColumns = `
p.id, p.user_id, p.title, p.content, p.image_key, p.image_url, p.slug, p.is_published,
p.like_count, p.comment_count, p.view_count, p.created_at, p.updated_at,
u.username, u.first_name, u.last_name
`

// postReturning оборачивает модифицирующий запрос в CTE, чтобы вернуть пост со снимком автора.
func postReturning(modify string) string {
	return `WITH p AS (` + modify + ` RETURNING *) SELECT ` + postColumns + ` FROM p JOIN users u ON u.id = p.user_id`
}

func scanPost(row pgx.Row) (*models.Post, error) {
	var (
		p      models.Post
		author models.User
	)

	if err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Title,
		&p.Content,
		&p.ImageKey,
		&p.ImageURL,
		&p.Slug,
		&p.IsPublished,
		&p.LikeCount,
		&p.CommentCount,
		&p.ViewCount,
		&p.CreatedAt,
		&p.UpdatedAt,
		&author.Username,
		&author.FirstName,
		&author.LastName,
	); err != nil {
		return nil, err
	}

	p.Author = models.AuthorSnapshot{Username: author.Username, DisplayName: author.DisplayName()}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()

	return &p, nil
}

func (s *Storage) queryPosts(ctx context.Context, op, q string, args ...any) ([]models.Post, error) {
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, mapErr(op, err)
	}
	defer rows.Close()

	posts := make([]models.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, mapErr(op, err)
		}

		posts = append(posts, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, mapErr(op, err)
	}

	return posts, nil
}

// CreatePost вставляет пост. Ошибки: storage.ErrAlreadyExists (slug), storage.ErrNotFound (автор).
func (s *Storage) CreatePost(ctx context.Context, post *models.Post) (*models.Post, error) {
	const op = "storage/postgres/posts/CreatePost"

	q := postReturning(`
	INSERT INTO posts (user_id, title, content, image_key, image_url, slug, is_published, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`)

	result, err := scanPost(s.db.QueryRow(ctx, q,
		post.UserID,
		post.Title,
		post.Content,
		post.ImageKey,
		post.ImageURL,
		post.Slug,
		post.IsPublished,
		post.CreatedAt,
		post.UpdatedAt,
	))
	if err != nil {
		return nil, mapErr(op, err)
	}

	return result, nil
}

// PostByID возвращает пост по id. Ошибки: storage.ErrNotFound.
func (s *Storage) PostByID(ctx context.Context, id int64) (*models.Post, error) {
	const op = "storage/postgres/posts/PostByID"

	q := `SELECT ` + postColumns + ` FROM posts p JOIN users u ON u.id = p.user_id WHERE p.id = $1`

	result, err := scanPost(s.db.QueryRow(ctx, q, id))
	if err != nil {
		return nil, mapErr(op, err)
	}

	return result, nil
}

// PostBySlug возвращает пост по slug. Ошибки: storage.ErrNotFound.
func (s *Storage) PostBySlug(ctx context.Context, slug string) (*models.Post, error) {
	const op = "storage/postgres/posts/PostBySlug"

	q := `SELECT ` + postColumns + ` FROM posts p JOIN users u ON u.id = p.user_id WHERE p.slug = $1`

	result, err := scanPost(s.db.QueryRow(ctx, q, slug))
	if err != nil {
		return nil, mapErr(op, err)
	}

	return result, nil
}

// UpdatePost — частичный апдейт title/content/slug.
func (s *Storage) UpdatePost(ctx context.Context, id int64, update storage.PostUpdate) (*models.Post, error) {
	const op = "storage/postgres/posts/UpdatePost"

	sets := []string{"updated_at = now()"}
	args := make([]any, 0, 4)

	add := func(column string, value *string) {
		if value == nil {
			return
		}

		args = append(args, *value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	add("title", update.Title)
	add("content", update.Content)
	add("slug", update.Slug)

	args = append(args, id)
	q := postReturning(fmt.Sprintf(`UPDATE posts SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args)))

	result, err := scanPost(s.db.QueryRow(ctx, q, args...))
	if err != nil {
		return nil, mapErr(op, err)
	}

	return result, nil
}

// SetPublished переключает флаг публикации.
func (s *Storage) SetPublished(ctx context.Context, id int64, published bool) (*models.Post, error) {
	const op = "storage/postgres/posts/SetPublished"

	q := postReturning(`UPDATE posts SET is_published = $2, updated_at = now() WHERE id = $1`)

	result, err := scanPost(s.db.QueryRow(ctx, q, id, published))
	if err != nil {
		return nil, mapErr(op, err)
	}

	return result, nil
}

// SetPostImage фиксирует подтверждённое изображение поста.
func (s *Storage) SetPostImage(ctx context.Context, id int64, key, url string) (*models.Post, error) {
	const op = "storage/postgres/posts/SetPostImage"

	q := postReturning(`UPDATE posts SET image_key = $2, image_url = $3, updated_at = now() WHERE id = $1`)

	result, err := scanPost(s.db.QueryRow(ctx, q, id, key, url))
	if err != nil {
		return nil, mapErr(op, err)
	}

	return result, nil
}

// IncrementViews атомарно увеличивает view_count. updated_at не трогается:
// просмотр не является редактированием поста.
func (s *Storage) IncrementViews(ctx context.Context, id int64) (int64, error) {
	const op = "storage/postgres/posts/IncrementViews"

	var views int64
	err := s.db.QueryRow(ctx, `UPDATE posts SET view_count = view_count + 1 WHERE id = $1 RETURNING view_count`, id).Scan(&views)
	if err != nil {
		return 0, mapErr(op, err)
	}

	return views, nil
}

// ListPublishedPosts — опубликованные посты, новые первыми. limit <= 0 — без ограничения.
func (s *Storage) ListPublishedPosts(ctx context.Context, limit int) ([]models.Post, error) {
	const op = "storage/postgres/posts/ListPublishedPosts"

	// LIMIT NULL в PostgreSQL означает отсутствие ограничения.
	var lim *int
	if limit > 0 {
		lim = &limit
	}

	q := `SELECT ` + postColumns + `
	FROM posts p JOIN users u ON u.id = p.user_id
	WHERE p.is_published
	ORDER BY p.created_at DESC, p.id
	LIMIT $1`

	return s.queryPosts(ctx, op, q, lim)
}

// ListPostsByUser — все посты автора (включая черновики), новые первыми.
func (s *Storage) ListPostsByUser(ctx context.Context, userID int64) ([]models.Post, error) {
	const op = "storage/postgres/posts/ListPostsByUser"

	q := `SELECT ` + postColumns + `
	FROM posts p JOIN users u ON u.id = p.user_id
	WHERE p.user_id = $1
	ORDER BY p.created_at DESC, p.id`

	return s.queryPosts(ctx, op, q, userID)
}

// DeletePost удаляет пост; лайки и комментарии уходят каскадом.
func (s *Storage) DeletePost(ctx context.Context, id int64) error {
	const op = "storage/postgres/posts/DeletePost"

	tag, err := s.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return mapErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}
