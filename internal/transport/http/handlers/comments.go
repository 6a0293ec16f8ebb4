package handlers

import (
	"net/http"

	"github.com/pribylovaa/go-blog-lab/internal/service"
	apierrors "github.com/pribylovaa/go-blog-lab/internal/transport/http/errors"
)

type addCommentRequest struct {
	UserID   int64  `json:"user_id"`
	Content  string `json:"content"`
	ParentID *int64 `json:"parent_id"`
}

func (h *Handlers) AddComment(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in addCommentRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	comment, err := h.Blog.AddComment(r.Context(), service.AddCommentInput{
		PostID:   postID,
		UserID:   in.UserID,
		Content:  in.Content,
		ParentID: in.ParentID,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, comment)
}

// ListComments — плоский список в порядке ветки; ?view=thread — дерево.
func (h *Handlers) ListComments(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if r.URL.Query().Get("view") == "thread" {
		thread, err := h.Blog.Thread(r.Context(), postID)
		if err != nil {
			apierrors.WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"thread": thread})
		return
	}

	comments, err := h.Blog.ListComments(r.Context(), postID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"comments": comments})
}

func (h *Handlers) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.Blog.SoftDeleteComment(r.Context(), id); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
