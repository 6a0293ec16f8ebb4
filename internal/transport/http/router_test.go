package http

// Тесты REST-слоя: chi-роутер + реальный service.Service поверх gomock-хранилища.
// Проверяем разбор путей/тел, коды ответов и маппинг ошибок сервиса в HTTP.

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-blog-lab/internal/config"
	"github.com/pribylovaa/go-blog-lab/internal/engagement"
	"github.com/pribylovaa/go-blog-lab/internal/models"
	"github.com/pribylovaa/go-blog-lab/internal/service"
	"github.com/pribylovaa/go-blog-lab/internal/storage"
	"github.com/pribylovaa/go-blog-lab/mocks"
)

type apiError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	} `json:"error"`
}

func newTestAPI(t *testing.T) (http.Handler, *mocks.MockStorage) {
	t.Helper()

	ctrl := gomock.NewController(t)
	st := mocks.NewMockStorage(ctrl)

	cfg := config.Config{
		Ranking: config.RankingConfig{Weights: engagement.DefaultWeights, TrendingSize: 10},
		Limits:  config.LimitsConfig{Default: 20, Max: 100},
	}
	svc := service.New(st, nil, nil, cfg)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewRouter(svc, Options{Logger: logger, Timeout: time.Second}), st
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, rd)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	return rr
}

func decodeErr(t *testing.T, rr *httptest.ResponseRecorder) apiError {
	t.Helper()

	var e apiError
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &e))
	require.NotEmpty(t, e.Error.RequestID)

	return e
}

func activeUser(id int64) *models.User {
	return &models.User{ID: id, Username: "reader", Email: "reader@example.com", IsActive: true}
}

func TestRouter_CreateUser(t *testing.T) {
	h, st := newTestAPI(t)

	st.EXPECT().CreateUser(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *models.User) (*models.User, error) {
		out := *u
		out.ID = 1
		return &out, nil
	})

	rr := do(t, h, http.MethodPost, "/users", `{"username":"johndoe","email":"john@example.com","password":"password123"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	require.NotContains(t, rr.Body.String(), "password")

	var got models.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.EqualValues(t, 1, got.ID)
	require.Equal(t, "johndoe", got.Username)
}

func TestRouter_BadRequests(t *testing.T) {
	h, _ := newTestAPI(t)

	cases := []struct {
		name, method, target, body string
	}{
		{"unknown_field", http.MethodPost, "/users", `{"username":"x","admin":true}`},
		{"broken_json", http.MethodPost, "/posts", `{`},
		{"bad_id", http.MethodGet, "/posts/abc", ""},
		{"negative_id", http.MethodGet, "/users/-1", ""},
		{"bad_limit", http.MethodGet, "/posts/top?limit=x", ""},
		{"short_password", http.MethodPost, "/users", `{"username":"johndoe","email":"j@example.com","password":"123"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, h, tc.method, tc.target, tc.body)
			require.Equal(t, http.StatusBadRequest, rr.Code)
			require.Equal(t, "invalid_argument", decodeErr(t, rr).Error.Code)
		})
	}
}

func TestRouter_ErrorMapping(t *testing.T) {
	h, st := newTestAPI(t)

	st.EXPECT().PostByID(gomock.Any(), int64(404)).Return(nil, storage.ErrNotFound)
	rr := do(t, h, http.MethodGet, "/posts/404", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "not_found", decodeErr(t, rr).Error.Code)

	st.EXPECT().PostByID(gomock.Any(), int64(503)).Return(nil, storage.ErrUnavailable)
	rr = do(t, h, http.MethodGet, "/posts/503", "")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	st.EXPECT().UpdatePost(gomock.Any(), int64(1), gomock.Any()).Return(nil, storage.ErrAlreadyExists)
	rr = do(t, h, http.MethodPatch, "/posts/1", `{"slug":"taken"}`)
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Equal(t, "already_exists", decodeErr(t, rr).Error.Code)
}

func TestRouter_GetPost_ViewCountsView(t *testing.T) {
	h, st := newTestAPI(t)

	st.EXPECT().IncrementViews(gomock.Any(), int64(3)).Return(int64(5), nil)
	st.EXPECT().PostByID(gomock.Any(), int64(3)).Return(&models.Post{ID: 3, ViewCount: 5}, nil)

	rr := do(t, h, http.MethodGet, "/posts/3?view=1", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var got models.Post
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.EqualValues(t, 5, got.ViewCount)
}

func TestRouter_AddLike_CreatedThenDuplicate(t *testing.T) {
	h, st := newTestAPI(t)

	st.EXPECT().UserByID(gomock.Any(), int64(2)).Return(activeUser(2), nil).Times(2)
	gomock.InOrder(
		st.EXPECT().AddLike(gomock.Any(), gomock.Any()).Return(true, nil),
		st.EXPECT().AddLike(gomock.Any(), gomock.Any()).Return(false, nil),
	)
	st.EXPECT().PostByID(gomock.Any(), int64(1)).Return(&models.Post{ID: 1, LikeCount: 1}, nil).Times(2)

	rr := do(t, h, http.MethodPost, "/posts/1/likes", `{"user_id":2}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	require.JSONEq(t, `{"liked":true,"already_liked":false,"like_count":1}`, rr.Body.String())

	rr = do(t, h, http.MethodPost, "/posts/1/likes", `{"user_id":2}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"liked":false,"already_liked":true,"like_count":1}`, rr.Body.String())
}

func TestRouter_HasLikedAndRemove(t *testing.T) {
	h, st := newTestAPI(t)

	st.EXPECT().HasLiked(gomock.Any(), int64(1), int64(2)).Return(true, nil)
	rr := do(t, h, http.MethodGet, "/posts/1/likes/2", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"liked":true}`, rr.Body.String())

	st.EXPECT().RemoveLike(gomock.Any(), int64(1), int64(2)).Return(false, nil)
	rr = do(t, h, http.MethodDelete, "/posts/1/likes/2", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"removed":false}`, rr.Body.String())
}

func TestRouter_AddComment_ReplyToReplyIs422(t *testing.T) {
	h, st := newTestAPI(t)

	parent := int64(11)
	st.EXPECT().UserByID(gomock.Any(), int64(3)).Return(activeUser(3), nil)
	st.EXPECT().PostByID(gomock.Any(), int64(1)).Return(&models.Post{ID: 1}, nil)
	st.EXPECT().CommentByID(gomock.Any(), parent).Return(&models.Comment{ID: 11, PostID: 1, ParentID: new(int64)}, nil)

	rr := do(t, h, http.MethodPost, "/posts/1/comments", `{"user_id":3,"content":"deep","parent_id":11}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Equal(t, "invalid_nesting", decodeErr(t, rr).Error.Code)
}

func TestRouter_ListComments_FlatAndThread(t *testing.T) {
	h, st := newTestAPI(t)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	root := int64(1)
	comments := []models.Comment{
		{ID: 2, PostID: 1, ParentID: &root, Content: "reply", CreatedAt: base.Add(time.Minute)},
		{ID: 1, PostID: 1, Content: "root", CreatedAt: base},
	}

	st.EXPECT().PostByID(gomock.Any(), int64(1)).Return(&models.Post{ID: 1}, nil).Times(2)
	st.EXPECT().ListCommentsByPost(gomock.Any(), int64(1)).Return(comments, nil).Times(2)

	rr := do(t, h, http.MethodGet, "/posts/1/comments", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var flat struct {
		Comments []models.Comment `json:"comments"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &flat))
	require.Len(t, flat.Comments, 2)
	require.EqualValues(t, 1, flat.Comments[0].ID)
	require.EqualValues(t, 2, flat.Comments[1].ID)

	rr = do(t, h, http.MethodGet, "/posts/1/comments?view=thread", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var tree struct {
		Thread []service.ThreadNode `json:"thread"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tree))
	require.Len(t, tree.Thread, 1)
	require.Len(t, tree.Thread[0].Replies, 1)
}

func TestRouter_DeleteComment(t *testing.T) {
	h, st := newTestAPI(t)

	st.EXPECT().CommentByID(gomock.Any(), int64(7)).Return(&models.Comment{ID: 7, PostID: 1}, nil)
	st.EXPECT().SoftDeleteComment(gomock.Any(), int64(7)).Return(false, nil)

	rr := do(t, h, http.MethodDelete, "/comments/7", "")
	require.Equal(t, http.StatusNoContent, rr.Code)
}

func TestRouter_TopPosts(t *testing.T) {
	h, st := newTestAPI(t)

	st.EXPECT().ListPublishedPosts(gomock.Any(), 0).Return([]models.Post{
		{ID: 1, IsPublished: true, LikeCount: 16, CommentCount: 12, ViewCount: 132},
		{ID: 2, IsPublished: true, LikeCount: 20, CommentCount: 9, ViewCount: 121},
		{ID: 3, IsPublished: true, LikeCount: 30, CommentCount: 20, ViewCount: 82},
	}, nil)

	rr := do(t, h, http.MethodGet, "/posts/top?limit=2", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var out struct {
		Posts []engagement.Ranked `json:"posts"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Len(t, out.Posts, 2)
	require.EqualValues(t, 3, out.Posts[0].Post.ID)
	require.EqualValues(t, 1, out.Posts[1].Post.ID)
}

func TestRouter_ImagesWithoutStorageIs503(t *testing.T) {
	h, _ := newTestAPI(t)

	rr := do(t, h, http.MethodPost, "/posts/1/image/presign", `{"content_type":"image/png","content_length":10}`)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.Equal(t, "unavailable", decodeErr(t, rr).Error.Code)
}

func TestRouter_BasePath(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStorage(ctrl)
	svc := service.New(st, nil, nil, config.Config{})

	h := NewRouter(svc, Options{BasePath: "/api"})

	st.EXPECT().UserByID(gomock.Any(), int64(1)).Return(activeUser(1), nil)
	rr := do(t, h, http.MethodGet, "/api/users/1", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, http.MethodGet, "/users/1", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
}
