// storage описывает контракты источника истины блога.
//
// Контракт один для всех адаптеров (postgres — нормализованные внешние ключи,
// mongo — документы со снимком автора), поэтому бизнес-логика в service не знает,
// какой адаптер активен.
//
// Атомарность: операции, меняющие запись и производный счётчик поста
// (AddLike/RemoveLike/CreateComment/SoftDeleteComment), обязаны выполнять оба изменения
// как одно целое — либо оба видны, либо ни одного.
package storage

import (
	"context"
	"errors"

	"github.com/pribylovaa/go-blog-lab/internal/models"
)

var (
	// ErrNotFound — сущность отсутствует в хранилище.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (username/email/slug).
	ErrAlreadyExists = errors.New("already exists")
	// ErrUnavailable — хранилище недоступно (сеть, пул, таймаут подключения).
	ErrUnavailable = errors.New("storage unavailable")
)

// UserUpdate — частичный апдейт профиля.
// Обновляются только непустые указатели; updated_at сдвигается всегда.
type UserUpdate struct {
	FirstName *string
	LastName  *string
	Bio       *string
	Email     *string
}

// PostUpdate — частичный апдейт поста.
type PostUpdate struct {
	Title   *string
	Content *string
	Slug    *string
}

// UserStorage — операции над пользователями.
type UserStorage interface {
	// CreateUser вставляет пользователя и возвращает его с назначенным ID.
	// ErrAlreadyExists — занят username или email.
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	// UserByID — ErrNotFound, если записи нет.
	UserByID(ctx context.Context, id int64) (*models.User, error)
	// UserByUsername — ErrNotFound, если записи нет.
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	// UpdateUser — частичный апдейт; ErrNotFound / ErrAlreadyExists (email).
	UpdateUser(ctx context.Context, id int64, update UserUpdate) (*models.User, error)
	// DeactivateUser выставляет is_active=false; ErrNotFound, если записи нет.
	DeactivateUser(ctx context.Context, id int64) error
	// DeleteUser физически удаляет пользователя вместе с его постами,
	// лайками и комментариями (каскад). ErrNotFound, если записи нет.
	DeleteUser(ctx context.Context, id int64) error
}

// PostStorage — операции над постами.
type PostStorage interface {
	// CreatePost вставляет пост. ErrAlreadyExists — занят slug; ErrNotFound — нет автора.
	CreatePost(ctx context.Context, post *models.Post) (*models.Post, error)
	PostByID(ctx context.Context, id int64) (*models.Post, error)
	PostBySlug(ctx context.Context, slug string) (*models.Post, error)
	// UpdatePost — частичный апдейт; ErrNotFound / ErrAlreadyExists (slug).
	UpdatePost(ctx context.Context, id int64, update PostUpdate) (*models.Post, error)
	SetPublished(ctx context.Context, id int64, published bool) (*models.Post, error)
	// SetPostImage фиксирует ключ и публичный URL загруженного изображения.
	SetPostImage(ctx context.Context, id int64, key, url string) (*models.Post, error)
	// IncrementViews атомарно увеличивает view_count и возвращает новое значение.
	IncrementViews(ctx context.Context, id int64) (int64, error)
	// ListPublishedPosts возвращает опубликованные посты (фильтр до ранжирования).
	// limit <= 0 — без ограничения.
	ListPublishedPosts(ctx context.Context, limit int) ([]models.Post, error)
	ListPostsByUser(ctx context.Context, userID int64) ([]models.Post, error)
	// DeletePost удаляет пост вместе с лайками и комментариями.
	DeletePost(ctx context.Context, id int64) error
}

// LikeStorage — журнал лайков.
type LikeStorage interface {
	// AddLike вставляет запись и увеличивает like_count поста на 1 в одной транзакции.
	// Если пара (user, post) уже есть (в том числе при гонке) — возвращает false без ошибки.
	AddLike(ctx context.Context, like *models.Like) (created bool, err error)
	// RemoveLike удаляет запись и уменьшает like_count на 1; false — лайка не было.
	RemoveLike(ctx context.Context, postID, userID int64) (removed bool, err error)
	HasLiked(ctx context.Context, postID, userID int64) (bool, error)
	// CountLikes — COUNT(*) по журналу, независимо от счётчика поста.
	CountLikes(ctx context.Context, postID int64) (int64, error)
}

// CommentStorage — комментарии (плоское представление: parent_id ссылается на корень).
type CommentStorage interface {
	// CreateComment вставляет комментарий и увеличивает comment_count поста на 1.
	// Проверки вложенности выполняет сервис; хранилище лишь сохраняет ссылку.
	CreateComment(ctx context.Context, comment *models.Comment) (*models.Comment, error)
	CommentByID(ctx context.Context, id int64) (*models.Comment, error)
	// ListCommentsByPost возвращает все комментарии поста, включая удалённые.
	// Порядок не гарантируется — его задаёт сервис.
	ListCommentsByPost(ctx context.Context, postID int64) ([]models.Comment, error)
	// SoftDeleteComment выставляет is_deleted и уменьшает comment_count поста на 1.
	// Повторный вызов — (false, nil). ErrNotFound, если записи нет.
	SoftDeleteComment(ctx context.Context, id int64) (deleted bool, err error)
	// CountVisibleComments — число не удалённых комментариев поста.
	CountVisibleComments(ctx context.Context, postID int64) (int64, error)
}

// Storage задаёт контракт источника истины.
type Storage interface {
	UserStorage
	PostStorage
	LikeStorage
	CommentStorage
	Close()
}
