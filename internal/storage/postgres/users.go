package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/pribylovaa/go-blog-lab/internal/models"
	"github.com/pribylovaa/go-blog-lab/internal/storage"
)

// userColumns — единый список колонок users для SELECT/RETURNING.
const userColumns = `
id, username, email, password_hash, first_name, last_name, bio, is_active, created_at, updated_at
`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.Bio,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}

	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()

	return &u, nil
}

// CreateUser вставляет пользователя. Ошибки: storage.ErrAlreadyExists (username/email).
func (s *Storage) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	const op = "storage/postgres/users/CreateUser"

	q := `
	INSERT INTO users (username, email, password_hash, first_name, last_name, bio, is_active, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING ` + userColumns

	result, err := scanUser(s.db.QueryRow(ctx, q,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Bio,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	))
	if err != nil {
		return nil, mapErr(op, err)
	}

	return result, nil
}

// UserByID возвращает пользователя по id. Ошибки: storage.ErrNotFound.
func (s *Storage) UserByID(ctx context.Context, id int64) (*models.User, error) {
	const op = "storage/postgres/users/UserByID"

	result, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(op, err)
	}

	return result, nil
}

// UserByUsername возвращает пользователя по username. Ошибки: storage.ErrNotFound.
func (s *Storage) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage/postgres/users/UserByUsername"

	result, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		return nil, mapErr(op, err)
	}

	return result, nil
}

// UpdateUser выполняет частичный апдейт: обновляет только поля,
// указанные непустыми pointer-полями, и всегда сдвигает updated_at = now().
func (s *Storage) UpdateUser(ctx context.Context, id int64, update storage.UserUpdate) (*models.User, error) {
	const op = "storage/postgres/users/UpdateUser"

	sets := []string{"updated_at = now()"}
	args := make([]any, 0, 5)

	add := func(column string, value *string) {
		if value == nil {
			return
		}

		args = append(args, *value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	add("first_name", update.FirstName)
	add("last_name", update.LastName)
	add("bio", update.Bio)
	add("email", update.Email)

	args = append(args, id)
	q := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), userColumns)

	result, err := scanUser(s.db.QueryRow(ctx, q, args...))
	if err != nil {
		return nil, mapErr(op, err)
	}

	return result, nil
}

// DeactivateUser — мягкая деактивация: is_active = false.
func (s *Storage) DeactivateUser(ctx context.Context, id int64) error {
	const op = "storage/postgres/users/DeactivateUser"

	tag, err := s.db.Exec(ctx, `UPDATE users SET is_active = FALSE, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return mapErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// DeleteUser удаляет пользователя; посты, лайки и комментарии уходят по ON DELETE CASCADE.
// Перед удалением в той же транзакции корректируются счётчики чужих постов:
//   - like_count — на число лайков пользователя;
//   - comment_count — на число его видимых комментариев и видимых ответов на них
//     (ответы уходят каскадом вместе с родителем).
func (s *Storage) DeleteUser(ctx context.Context, id int64) error {
	const op = "storage/postgres/users/DeleteUser"

	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
		UPDATE posts p SET like_count = p.like_count - l.n
		FROM (SELECT post_id, count(*) AS n FROM likes WHERE user_id = $1 GROUP BY post_id) l
		WHERE p.id = l.post_id`, id); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
		UPDATE posts p SET comment_count = p.comment_count - c.n
		FROM (
			SELECT post_id, count(*) AS n FROM comments
			WHERE NOT is_deleted
			  AND (user_id = $1 OR parent_comment_id IN (SELECT id FROM comments WHERE user_id = $1))
			GROUP BY post_id
		) c
		WHERE p.id = c.post_id`, id); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return storage.ErrNotFound
		}

		return nil
	})
	if err != nil {
		return mapErr(op, err)
	}

	return nil
}
