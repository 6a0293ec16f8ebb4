// postgres предоставляет реляционную реализацию storage.Storage на базе PostgreSQL (pgx/v5).
//
// users.go    — пользователи (уникальность username/email, каскадное удаление);
// posts.go    — посты, снимок автора собирается JOIN-ом при чтении;
// likes.go    — журнал лайков + like_count в одной транзакции;
// comments.go — комментарии + comment_count в одной транзакции.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pribylovaa/go-blog-lab/internal/storage"
)

type Storage struct {
	db *pgxpool.Pool
}

// New создает и инициализирует пул соединений к PostgreSQL.
func New(ctx context.Context, dbURL string) (*Storage, error) {
	const op = "storage/postgres/New"

	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w: %v", op, storage.ErrUnavailable, err)
	}

	return &Storage{db: db}, nil
}

// Close закрывает пул соединений.
// Должен вызываться при остановке приложения.
func (s *Storage) Close() {
	s.db.Close()
}

// withTx выполняет fn в транзакции: commit при nil, rollback при ошибке.
// Соединение берётся из пула на время fn и гарантированно возвращается.
func (s *Storage) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, s.db, fn)
}

// mapErr переводит ошибки драйвера в ошибки уровня storage.
//   - pgx.ErrNoRows           -> storage.ErrNotFound;
//   - 23505 unique_violation  -> storage.ErrAlreadyExists;
//   - 23503 fk_violation      -> storage.ErrNotFound (ссылка на несуществующую сущность);
//   - ошибки соединения/таймаут -> storage.ErrUnavailable.
func mapErr(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		case pgerrcode.ForeignKeyViolation:
			return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) {
		return fmt.Errorf("%s: %w: %v", op, storage.ErrUnavailable, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}

// Проверка выполнения контракта верхнего уровня.
var _ storage.Storage = (*Storage)(nil)
