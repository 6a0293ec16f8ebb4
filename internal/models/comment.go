package models

import (
	"fmt"
	"strings"
	"time"
)

// DeletedPlaceholder — то, что видит читатель вместо текста удалённого комментария.
const DeletedPlaceholder = "[deleted]"

// Comment — комментарий к посту.
//   - ParentID == nil — корневой комментарий (глубина 0);
//   - ParentID != nil — ответ на корневой комментарий (глубина 1, максимум).
//   - IsDeleted — мягкое удаление, одностороннее; запись остаётся ради контекста ответов.
type Comment struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"post_id"`
	UserID    int64     `json:"user_id"`
	ParentID  *int64    `json:"parent_id,omitempty"`
	Content   string    `json:"content"`
	IsDeleted bool      `json:"is_deleted"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsTopLevel сообщает, что комментарий корневой.
func (c Comment) IsTopLevel() bool {
	return c.ParentID == nil
}

// DisplayContent — текст для показа: у удалённых комментариев это плейсхолдер.
func (c Comment) DisplayContent() string {
	if c.IsDeleted {
		return DeletedPlaceholder
	}

	return c.Content
}

// NewComment нормализует и валидирует новый комментарий.
func NewComment(c Comment) (*Comment, error) {
	c.Content = strings.TrimSpace(c.Content)

	if c.PostID <= 0 {
		return nil, fmt.Errorf("%w: post_id is required", ErrValidation)
	}

	if c.UserID <= 0 {
		return nil, fmt.Errorf("%w: user_id is required", ErrValidation)
	}

	if c.Content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrValidation)
	}

	if c.ParentID != nil && *c.ParentID <= 0 {
		return nil, fmt.Errorf("%w: parent_id must be positive", ErrValidation)
	}

	ts := now()
	c.ID = 0
	c.IsDeleted = false
	c.CreatedAt = ts
	c.UpdatedAt = ts

	return &c, nil
}
