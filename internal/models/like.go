package models

import (
	"fmt"
	"time"
)

// Like — неизменяемая запись аудита «пользователь лайкнул пост».
// Пара (UserID, PostID) уникальна.
type Like struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	PostID    int64     `json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// NewLike валидирует ссылки и выставляет CreatedAt.
func NewLike(postID, userID int64) (*Like, error) {
	if postID <= 0 {
		return nil, fmt.Errorf("%w: post_id is required", ErrValidation)
	}

	if userID <= 0 {
		return nil, fmt.Errorf("%w: user_id is required", ErrValidation)
	}

	return &Like{PostID: postID, UserID: userID, CreatedAt: now()}, nil
}
