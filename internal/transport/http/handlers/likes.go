package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/go-blog-lab/internal/transport/http/errors"
)

type likeRequest struct {
	UserID int64 `json:"user_id"`
}

// AddLike — 201 для нового лайка, 200 для повторного (already_liked=true).
func (h *Handlers) AddLike(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in likeRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	res, err := h.Blog.AddLike(r.Context(), postID, in.UserID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	status := http.StatusOK
	if res.Liked {
		status = http.StatusCreated
	}

	writeJSON(w, status, res)
}

func (h *Handlers) RemoveLike(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	userID, err := pathID(r, "user_id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	removed, err := h.Blog.RemoveLike(r.Context(), postID, userID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

func (h *Handlers) HasLiked(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	userID, err := pathID(r, "user_id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	liked, err := h.Blog.HasLiked(r.Context(), postID, userID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"liked": liked})
}
