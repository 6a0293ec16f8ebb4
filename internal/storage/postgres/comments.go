package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pribylovaa/go-blog-lab/internal/models"
	"github.com/pribylovaa/go-blog-lab/internal/storage"
)

const commentColumns = `
id, post_id, user_id, parent_comment_id, content, is_deleted, created_at, updated_at
`

func scanComment(row pgx.Row) (*models.Comment, error) {
	var c models.Comment
	if err := row.Scan(
		&c.ID,
		&c.PostID,
		&c.UserID,
		&c.ParentID,
		&c.Content,
		&c.IsDeleted,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}

	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()

	return &c, nil
}

// CreateComment вставляет комментарий и увеличивает comment_count поста в одной транзакции.
// Ошибки: storage.ErrNotFound (пост, автор или родитель отсутствуют).
func (s *Storage) CreateComment(ctx context.Context, comment *models.Comment) (*models.Comment, error) {
	const op = "storage/postgres/comments/CreateComment"

	var result *models.Comment
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		c, err := scanComment(tx.QueryRow(ctx, `
		INSERT INTO comments (user_id, post_id, parent_comment_id, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+commentColumns,
			comment.UserID,
			comment.PostID,
			comment.ParentID,
			comment.Content,
			comment.CreatedAt,
			comment.UpdatedAt,
		))
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `UPDATE posts SET comment_count = comment_count + 1 WHERE id = $1`, c.PostID); err != nil {
			return err
		}

		result = c

		return nil
	})
	if err != nil {
		return nil, mapErr(op, err)
	}

	return result, nil
}

// CommentByID возвращает комментарий (в том числе удалённый). Ошибки: storage.ErrNotFound.
func (s *Storage) CommentByID(ctx context.Context, id int64) (*models.Comment, error) {
	const op = "storage/postgres/comments/CommentByID"

	result, err := scanComment(s.db.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(op, err)
	}

	return result, nil
}

// ListCommentsByPost возвращает все комментарии поста, включая удалённые.
func (s *Storage) ListCommentsByPost(ctx context.Context, postID int64) ([]models.Comment, error) {
	const op = "storage/postgres/comments/ListCommentsByPost"

	rows, err := s.db.Query(ctx, `SELECT `+commentColumns+` FROM comments WHERE post_id = $1 ORDER BY created_at, id`, postID)
	if err != nil {
		return nil, mapErr(op, err)
	}
	defer rows.Close()

	comments := make([]models.Comment, 0)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, mapErr(op, err)
		}

		comments = append(comments, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, mapErr(op, err)
	}

	return comments, nil
}

// SoftDeleteComment помечает комментарий удалённым и уменьшает comment_count.
// Условие NOT is_deleted делает повторный вызов no-op: счётчик уменьшается ровно один раз.
func (s *Storage) SoftDeleteComment(ctx context.Context, id int64) (bool, error) {
	const op = "storage/postgres/comments/SoftDeleteComment"

	deleted := false
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var postID int64
		err := tx.QueryRow(ctx, `
		UPDATE comments SET is_deleted = TRUE, updated_at = now()
		WHERE id = $1 AND NOT is_deleted
		RETURNING post_id`, id).Scan(&postID)
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM comments WHERE id = $1)`, id).Scan(&exists); err != nil {
				return err
			}

			if !exists {
				return storage.ErrNotFound
			}

			return nil
		}
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `UPDATE posts SET comment_count = comment_count - 1 WHERE id = $1`, postID); err != nil {
			return err
		}

		deleted = true

		return nil
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return false, mapErr(op, err)
	}

	return deleted, nil
}

// CountVisibleComments считает не удалённые комментарии поста.
func (s *Storage) CountVisibleComments(ctx context.Context, postID int64) (int64, error) {
	const op = "storage/postgres/comments/CountVisibleComments"

	var n int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM visible_comments WHERE post_id = $1`, postID).Scan(&n); err != nil {
		return 0, mapErr(op, err)
	}

	return n, nil
}
