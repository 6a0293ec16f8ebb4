package models

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"
)

var usernameRe = regexp.MustCompile(`^[a-z0-9_]{3,50}$`)

// User — пользователь платформы.
// Профильные поля изменяемы, ID — нет. Вместо удаления пользователь деактивируется
// (IsActive=false), пока на него ссылаются посты/лайки/комментарии.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DisplayName — «Имя Фамилия», либо username, если имя не заполнено.
func (u User) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		return u.Username
	}

	return name
}

// NewUser нормализует и валидирует поля нового пользователя,
// выставляет IsActive и временные метки. ID остаётся нулевым до вставки.
func NewUser(u User) (*User, error) {
	u.Username = strings.TrimSpace(u.Username)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.FirstName = strings.TrimSpace(u.FirstName)
	u.LastName = strings.TrimSpace(u.LastName)
	u.Bio = strings.TrimSpace(u.Bio)

	if err := ValidateUsername(u.Username); err != nil {
		return nil, err
	}

	if err := ValidateEmail(u.Email); err != nil {
		return nil, err
	}

	if u.PasswordHash == "" {
		return nil, fmt.Errorf("%w: password hash is required", ErrValidation)
	}

	ts := now()
	u.ID = 0
	u.IsActive = true
	u.CreatedAt = ts
	u.UpdatedAt = ts

	return &u, nil
}

// ValidateUsername проверяет непустой username допустимого формата.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("%w: username is required", ErrValidation)
	}

	if !usernameRe.MatchString(username) {
		return fmt.Errorf("%w: username must be 3-50 chars of [a-z0-9_]", ErrValidation)
	}

	return nil
}

// ValidateEmail проверяет непустой e-mail без display name.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: email is malformed", ErrValidation)
	}

	return nil
}
