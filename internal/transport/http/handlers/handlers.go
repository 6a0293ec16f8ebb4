// handlers — REST-эндпойнты blog-service поверх сервисного слоя.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-blog-lab/internal/engagement"
	"github.com/pribylovaa/go-blog-lab/internal/models"
	"github.com/pribylovaa/go-blog-lab/internal/service"
	"github.com/pribylovaa/go-blog-lab/internal/storage"
	apierrors "github.com/pribylovaa/go-blog-lab/internal/transport/http/errors"
)

// Blog — операции сервисного слоя, которые нужны HTTP-слою.
// Реализуется *service.Service.
type Blog interface {
	CreateUser(ctx context.Context, in service.CreateUserInput) (*models.User, error)
	UserByID(ctx context.Context, id int64) (*models.User, error)
	UpdateUser(ctx context.Context, id int64, in service.UpdateUserInput) (*models.User, error)
	DeactivateUser(ctx context.Context, id int64) error
	DeleteUser(ctx context.Context, id int64) error

	CreatePost(ctx context.Context, in service.CreatePostInput) (*models.Post, error)
	PostByID(ctx context.Context, id int64) (*models.Post, error)
	ViewPost(ctx context.Context, id int64) (*models.Post, error)
	PostBySlug(ctx context.Context, slug string) (*models.Post, error)
	ListPostsByUser(ctx context.Context, userID int64) ([]models.Post, error)
	UpdatePost(ctx context.Context, id int64, in service.UpdatePostInput) (*models.Post, error)
	SetPublished(ctx context.Context, id int64, published bool) (*models.Post, error)
	DeletePost(ctx context.Context, id int64) error
	TopPosts(ctx context.Context, limit int) ([]engagement.Ranked, error)
	Trending(ctx context.Context, limit int) ([]models.Post, error)

	AddLike(ctx context.Context, postID, userID int64) (*service.LikeResult, error)
	RemoveLike(ctx context.Context, postID, userID int64) (bool, error)
	HasLiked(ctx context.Context, postID, userID int64) (bool, error)

	AddComment(ctx context.Context, in service.AddCommentInput) (*models.Comment, error)
	ListComments(ctx context.Context, postID int64) ([]models.Comment, error)
	Thread(ctx context.Context, postID int64) ([]service.ThreadNode, error)
	SoftDeleteComment(ctx context.Context, id int64) error

	ImageUploadURL(ctx context.Context, postID int64, contentType string, contentLength int64) (*storage.UploadInfo, error)
	ConfirmImageUpload(ctx context.Context, postID int64, key string) (*models.Post, error)
}

var _ Blog = (*service.Service)(nil)

// Handlers агрегирует зависимости обработчиков.
type Handlers struct {
	Blog Blog
}

func New(b Blog) *Handlers {
	return &Handlers{Blog: b}
}

// writeJSON — единый JSON-ответ с нужным Content-Type.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: неизвестные поля запрещены.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(value); err != nil {
		return fmt.Errorf("%w: %v", apierrors.ErrBadRequest, err)
	}

	return nil
}

// pathID разбирает положительный int64 из параметра пути.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s", apierrors.ErrBadRequest, name)
	}

	return id, nil
}

// queryLimit разбирает ?limit=; отсутствие параметра — 0 (лимит по умолчанию).
func queryLimit(r *http.Request) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: limit", apierrors.ErrBadRequest)
	}

	return n, nil
}
