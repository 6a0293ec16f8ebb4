package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const maxSlugLen = 255

var (
	slugRe      = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	slugSplitRe = regexp.MustCompile(`[^a-z0-9]+`)
)

// AuthorSnapshot — денормализованные данные автора внутри поста.
// Документный адаптер копирует их один раз при создании поста: последующие
// переименования автора не распространяются (осознанная «устарелость»).
// Реляционный адаптер заполняет снимок JOIN-ом при чтении.
type AuthorSnapshot struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

// Post — публикация пользователя.
// LikeCount/CommentCount/ViewCount — производные счётчики: LikeCount всегда равен
// числу записей Like, CommentCount — числу не удалённых комментариев.
type Post struct {
	ID           int64          `json:"id"`
	UserID       int64          `json:"user_id"`
	Author       AuthorSnapshot `json:"author"`
	Title        string         `json:"title"`
	Content      string         `json:"content"`
	ImageKey     string         `json:"image_key,omitempty"`
	ImageURL     string         `json:"image_url,omitempty"`
	Slug         string         `json:"slug"`
	IsPublished  bool           `json:"is_published"`
	LikeCount    int64          `json:"like_count"`
	CommentCount int64          `json:"comment_count"`
	ViewCount    int64          `json:"view_count"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// NewPost нормализует и валидирует поля нового поста.
// Пустой slug выводится из заголовка. Счётчики обнуляются.
func NewPost(p Post) (*Post, error) {
	p.Title = strings.TrimSpace(p.Title)
	p.Content = strings.TrimSpace(p.Content)
	p.Slug = strings.TrimSpace(p.Slug)

	if p.UserID <= 0 {
		return nil, fmt.Errorf("%w: user_id is required", ErrValidation)
	}

	if p.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}

	if p.Content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrValidation)
	}

	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}

	if err := ValidateSlug(p.Slug); err != nil {
		return nil, err
	}

	ts := now()
	p.ID = 0
	p.LikeCount, p.CommentCount, p.ViewCount = 0, 0, 0
	p.CreatedAt = ts
	p.UpdatedAt = ts

	return &p, nil
}

// ValidateSlug проверяет формат slug: строчные латинские буквы/цифры через дефис.
func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("%w: slug is required", ErrValidation)
	}

	if len(slug) > maxSlugLen || !slugRe.MatchString(slug) {
		return fmt.Errorf("%w: slug is malformed", ErrValidation)
	}

	return nil
}

// Slugify строит slug из произвольного заголовка.
// "Getting Started with SQL!" -> "getting-started-with-sql".
func Slugify(title string) string {
	s := slugSplitRe.ReplaceAllString(strings.ToLower(title), "-")
	s = strings.Trim(s, "-")

	if len(s) > maxSlugLen {
		s = strings.TrimRight(s[:maxSlugLen], "-")
	}

	return s
}
