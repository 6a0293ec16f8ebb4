package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-blog-lab/internal/models"
	"github.com/pribylovaa/go-blog-lab/internal/service"
	apierrors "github.com/pribylovaa/go-blog-lab/internal/transport/http/errors"
)

type createPostRequest struct {
	UserID    int64  `json:"user_id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Slug      string `json:"slug"`
	Published bool   `json:"published"`
}

type updatePostRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
	Slug    *string `json:"slug"`
}

type publishRequest struct {
	Published bool `json:"published"`
}

func (h *Handlers) CreatePost(w http.ResponseWriter, r *http.Request) {
	var in createPostRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	post, err := h.Blog.CreatePost(r.Context(), service.CreatePostInput{
		UserID:    in.UserID,
		Title:     in.Title,
		Content:   in.Content,
		Slug:      in.Slug,
		Published: in.Published,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, post)
}

// GetPost — чтение поста; ?view=1 засчитывает просмотр.
func (h *Handlers) GetPost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var post *models.Post
	if r.URL.Query().Get("view") == "1" {
		post, err = h.Blog.ViewPost(r.Context(), id)
	} else {
		post, err = h.Blog.PostByID(r.Context(), id)
	}

	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

func (h *Handlers) GetPostBySlug(w http.ResponseWriter, r *http.Request) {
	post, err := h.Blog.PostBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

func (h *Handlers) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in updatePostRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	post, err := h.Blog.UpdatePost(r.Context(), id, service.UpdatePostInput{
		Title:   in.Title,
		Content: in.Content,
		Slug:    in.Slug,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

func (h *Handlers) SetPublished(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in publishRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	post, err := h.Blog.SetPublished(r.Context(), id, in.Published)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

func (h *Handlers) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.Blog.DeletePost(r.Context(), id); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) TopPosts(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	ranked, err := h.Blog.TopPosts(r.Context(), limit)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"posts": ranked})
}

func (h *Handlers) TrendingPosts(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	posts, err := h.Blog.Trending(r.Context(), limit)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"posts": posts})
}
