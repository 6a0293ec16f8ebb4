// http собирает REST API blog-service на chi.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-blog-lab/internal/transport/http/handlers"
	"github.com/pribylovaa/go-blog-lab/internal/transport/http/middleware"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string // например, "/api"; пустой — роуты на корне.
}

// NewRouter собирает http.Handler с chi, мидлварами и роутами.
func NewRouter(blog handlers.Blog, opts Options) http.Handler {
	root := chi.NewRouter()

	// Внешний -> внутренний. RequestID раньше Logging, чтобы id попал в логгер.
	root.Use(
		middleware.Recover(),
		middleware.RequestID(),
		middleware.Logging(opts.Logger),
		middleware.Metrics(),
		middleware.Timeout(opts.Timeout),
	)

	h := handlers.New(blog)

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h)

	return root
}

// registerRoutes — единая точка регистрации REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers) {
	// users
	r.Post("/users", h.CreateUser)
	r.Get("/users/{id}", h.GetUser)
	r.Patch("/users/{id}", h.UpdateUser)
	r.Post("/users/{id}/deactivate", h.DeactivateUser)
	r.Delete("/users/{id}", h.DeleteUser)
	r.Get("/users/{id}/posts", h.ListUserPosts)

	// posts
	r.Post("/posts", h.CreatePost)
	r.Get("/posts/top", h.TopPosts)
	r.Get("/posts/trending", h.TrendingPosts)
	r.Get("/posts/slug/{slug}", h.GetPostBySlug)
	r.Get("/posts/{id}", h.GetPost)
	r.Patch("/posts/{id}", h.UpdatePost)
	r.Post("/posts/{id}/publish", h.SetPublished)
	r.Delete("/posts/{id}", h.DeletePost)

	// likes
	r.Post("/posts/{id}/likes", h.AddLike)
	r.Get("/posts/{id}/likes/{user_id}", h.HasLiked)
	r.Delete("/posts/{id}/likes/{user_id}", h.RemoveLike)

	// comments
	r.Post("/posts/{id}/comments", h.AddComment)
	r.Get("/posts/{id}/comments", h.ListComments)
	r.Delete("/comments/{id}", h.DeleteComment)

	// images
	r.Post("/posts/{id}/image/presign", h.ImagePresign)
	r.Post("/posts/{id}/image/confirm", h.ImageConfirm)
}
