package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/go-blog-lab/internal/cache"
	"github.com/pribylovaa/go-blog-lab/internal/models"
	"github.com/pribylovaa/go-blog-lab/internal/storage"
	"github.com/pribylovaa/go-blog-lab/pkg/log"
	"github.com/pribylovaa/go-blog-lab/pkg/redact"
)

const minPasswordLen = 8

// CreateUserInput — регистрация пользователя.
type CreateUserInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Bio       string
}

// UpdateUserInput — частичный апдейт профиля; nil-поля не меняются.
type UpdateUserInput struct {
	FirstName *string
	LastName  *string
	Bio       *string
	Email     *string
}

func userKey(id int64) string {
	return cache.Key(cache.KindUser, strconv.FormatInt(id, 10))
}

// CreateUser — регистрация: валидация, bcrypt-хэш пароля, вставка, прогрев кэша.
//
// Ошибки: ErrInvalidArgument, ErrConflict (username/email заняты), ErrInternal.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	const op = "service/users/CreateUser"

	lg := log.From(ctx).With("op", op, "username", in.Username, "email", redact.Email(in.Email))

	if len(in.Password) < minPasswordLen {
		lg.Warn("invalid argument: short password")
		return nil, fmt.Errorf("%s: %w: password must be at least %d characters", op, ErrInvalidArgument, minPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		lg.Warn("invalid argument: password hash failed", "err", err)
		return nil, fmt.Errorf("%s: %w: %v", op, ErrInvalidArgument, err)
	}

	user, err := models.NewUser(models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Bio:          in.Bio,
	})
	if err != nil {
		return nil, mapStorageErr(lg, op, err)
	}

	created, err := s.storage.CreateUser(ctx, user)
	if err != nil {
		return nil, mapStorageErr(lg, op, err)
	}

	s.users.Put(ctx, userKey(created.ID), *created, s.cfg.Cache.UserTTL)

	lg.Info("user created", "user_id", created.ID)

	return created, nil
}

// UserByID — профиль через cache-aside. Хэш пароля в кэш не попадает.
func (s *Service) UserByID(ctx context.Context, id int64) (*models.User, error) {
	const op = "service/users/UserByID"

	lg := log.From(ctx).With("op", op, "user_id", id)

	if err := validID(lg, op, "user_id", id); err != nil {
		return nil, err
	}

	user, err := s.users.Get(ctx, userKey(id), s.cfg.Cache.UserTTL, func(ctx context.Context) (models.User, error) {
		u, err := s.storage.UserByID(ctx, id)
		if err != nil {
			return models.User{}, err
		}

		return *u, nil
	})
	if err != nil {
		return nil, mapStorageErr(lg, op, err)
	}

	return &user, nil
}

// UserByUsername — поиск по username (без кэша).
func (s *Service) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "service/users/UserByUsername"

	username = strings.TrimSpace(username)
	lg := log.From(ctx).With("op", op, "username", username)

	if err := models.ValidateUsername(username); err != nil {
		return nil, mapStorageErr(lg, op, err)
	}

	user, err := s.storage.UserByUsername(ctx, username)
	if err != nil {
		return nil, mapStorageErr(lg, op, err)
	}

	return user, nil
}

// UpdateUser — частичный апдейт профиля с write-through в кэш.
func (s *Service) UpdateUser(ctx context.Context, id int64, in UpdateUserInput) (*models.User, error) {
	const op = "service/users/UpdateUser"

	lg := log.From(ctx).With("op", op, "user_id", id)

	if err := validID(lg, op, "user_id", id); err != nil {
		return nil, err
	}

	update := storage.UserUpdate{
		FirstName: trimmed(in.FirstName),
		LastName:  trimmed(in.LastName),
		Bio:       trimmed(in.Bio),
	}

	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if err := models.ValidateEmail(email); err != nil {
			return nil, mapStorageErr(lg, op, err)
		}

		update.Email = &email
	}

	user, err := s.users.Set(ctx, userKey(id), s.cfg.Cache.UserTTL, func(ctx context.Context) (models.User, error) {
		u, err := s.storage.UpdateUser(ctx, id, update)
		if err != nil {
			return models.User{}, err
		}

		return *u, nil
	})
	if err != nil {
		return nil, mapStorageErr(lg, op, err)
	}

	return &user, nil
}

// DeactivateUser — мягкая деактивация: пользователь больше не может лайкать,
// комментировать и публиковать, но его контент остаётся.
func (s *Service) DeactivateUser(ctx context.Context, id int64) error {
	const op = "service/users/DeactivateUser"

	lg := log.From(ctx).With("op", op, "user_id", id)

	if err := validID(lg, op, "user_id", id); err != nil {
		return err
	}

	if err := s.storage.DeactivateUser(ctx, id); err != nil {
		return mapStorageErr(lg, op, err)
	}

	s.users.Invalidate(ctx, userKey(id))

	return nil
}

// DeleteUser — физическое удаление с каскадом на посты, лайки и комментарии.
// Кэш постов пользователя инвалидируется, посты убираются из рейтинга и лидерборда;
// прочие записи устаревают по TTL.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	const op = "service/users/DeleteUser"

	lg := log.From(ctx).With("op", op, "user_id", id)

	if err := validID(lg, op, "user_id", id); err != nil {
		return err
	}

	posts, err := s.storage.ListPostsByUser(ctx, id)
	if err != nil {
		return mapStorageErr(lg, op, err)
	}

	if err := s.storage.DeleteUser(ctx, id); err != nil {
		return mapStorageErr(lg, op, err)
	}

	s.users.Invalidate(ctx, userKey(id))

	ids := make([]int64, 0, len(posts))
	for _, p := range posts {
		s.posts.Invalidate(ctx, postKey(p.ID))
		ids = append(ids, p.ID)
	}

	s.invalidateTop(ctx)
	s.removeFromTrending(ctx, ids...)

	lg.Info("user deleted", "posts", len(posts))

	return nil
}

// activeUser возвращает пользователя, если он существует и активен; иначе ErrNotFound.
func (s *Service) activeUser(ctx context.Context, id int64) (*models.User, error) {
	const op = "service/users/activeUser"

	user, err := s.UserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		log.From(ctx).Warn("user is deactivated", "op", op, "user_id", id)
		return nil, fmt.Errorf("%s: %w: user %d is deactivated", op, ErrNotFound, id)
	}

	return user, nil
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}

	v := strings.TrimSpace(*p)

	return &v
}
