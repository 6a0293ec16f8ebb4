package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pribylovaa/go-blog-lab/internal/models"
	"github.com/pribylovaa/go-blog-lab/internal/storage"
)

// AddLike вставляет запись журнала и увеличивает like_count в одной транзакции.
// Конкурентный дубль гасится ON CONFLICT на uq_likes_user_post: (false, nil).
func (s *Storage) AddLike(ctx context.Context, like *models.Like) (bool, error) {
	const op = "storage/postgres/likes/AddLike"

	created := false
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var id int64
		err := tx.QueryRow(ctx, `
		INSERT INTO likes (user_id, post_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT ON CONSTRAINT uq_likes_user_post DO NOTHING
		RETURNING id`, like.UserID, like.PostID, like.CreatedAt).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `UPDATE posts SET like_count = like_count + 1 WHERE id = $1`, like.PostID)
		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return storage.ErrNotFound
		}

		like.ID = id
		created = true

		return nil
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return false, mapErr(op, err)
	}

	return created, nil
}

// RemoveLike удаляет запись журнала и уменьшает like_count; (false, nil), если лайка не было.
func (s *Storage) RemoveLike(ctx context.Context, postID, userID int64) (bool, error) {
	const op = "storage/postgres/likes/RemoveLike"

	removed := false
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM likes WHERE post_id = $1 AND user_id = $2`, postID, userID)
		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return nil
		}

		if _, err := tx.Exec(ctx, `UPDATE posts SET like_count = like_count - 1 WHERE id = $1`, postID); err != nil {
			return err
		}

		removed = true

		return nil
	})
	if err != nil {
		return false, mapErr(op, err)
	}

	return removed, nil
}

// HasLiked проверяет наличие записи (user, post).
func (s *Storage) HasLiked(ctx context.Context, postID, userID int64) (bool, error) {
	const op = "storage/postgres/likes/HasLiked"

	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM likes WHERE post_id = $1 AND user_id = $2)`, postID, userID).Scan(&exists)
	if err != nil {
		return false, mapErr(op, err)
	}

	return exists, nil
}

// CountLikes считает записи журнала по посту.
func (s *Storage) CountLikes(ctx context.Context, postID int64) (int64, error) {
	const op = "storage/postgres/likes/CountLikes"

	var n int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM likes WHERE post_id = $1`, postID).Scan(&n); err != nil {
		return 0, mapErr(op, err)
	}

	return n, nil
}
