package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pribylovaa/go-blog-lab/internal/models"
	"github.com/pribylovaa/go-blog-lab/internal/storage"
)

type likeDoc struct {
	ID        int64     `bson:"_id"`
	UserID    int64     `bson:"user_id"`
	PostID    int64     `bson:"post_id"`
	CreatedAt time.Time `bson:"created_at"`
}

// AddLike вставляет запись журнала и увеличивает like_count поста.
// Дубликат ключа (user_id, post_id) — уже лайкнуто: (false, nil).
// Если поста нет, запись журнала удаляется и возвращается storage.ErrNotFound.
func (s *Storage) AddLike(ctx context.Context, like *models.Like) (bool, error) {
	const op = "storage/mongo/likes/AddLike"

	if err := s.userExists(ctx, like.UserID); err != nil {
		return false, errNotFound(op, err)
	}

	id, err := s.nextID(ctx, likesCollection)
	if err != nil {
		return false, mapErr(op, err)
	}

	doc := likeDoc{
		ID:        id,
		UserID:    like.UserID,
		PostID:    like.PostID,
		CreatedAt: like.CreatedAt.UTC().Truncate(time.Millisecond),
	}

	if _, err := s.likes.InsertOne(ctx, doc); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return false, nil
		}

		return false, mapErr(op, err)
	}

	res, err := s.posts.UpdateByID(ctx, like.PostID, bson.D{
		{Key: "$inc", Value: bson.D{{Key: "like_count", Value: int64(1)}}},
	})
	if err != nil || res.MatchedCount == 0 {
		_, _ = s.likes.DeleteOne(context.WithoutCancel(ctx), bson.D{{Key: "_id", Value: id}})
		if err != nil {
			return false, mapErr(op, err)
		}

		return false, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	like.ID = id

	return true, nil
}

// RemoveLike удаляет запись журнала и уменьшает like_count; (false, nil), если лайка не было.
// Если счётчик обновить не удалось, запись журнала возвращается на место.
func (s *Storage) RemoveLike(ctx context.Context, postID, userID int64) (bool, error) {
	const op = "storage/mongo/likes/RemoveLike"

	var doc likeDoc
	err := s.likes.FindOneAndDelete(ctx, bson.D{{Key: "user_id", Value: userID}, {Key: "post_id", Value: postID}}).Decode(&doc)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, mapErr(op, err)
	}

	if _, err := s.posts.UpdateByID(ctx, postID, bson.D{
		{Key: "$inc", Value: bson.D{{Key: "like_count", Value: int64(-1)}}},
	}); err != nil {
		_, _ = s.likes.InsertOne(context.WithoutCancel(ctx), doc)
		return false, mapErr(op, err)
	}

	return true, nil
}

// HasLiked проверяет наличие записи (user, post).
func (s *Storage) HasLiked(ctx context.Context, postID, userID int64) (bool, error) {
	const op = "storage/mongo/likes/HasLiked"

	n, err := s.likes.CountDocuments(ctx,
		bson.D{{Key: "user_id", Value: userID}, {Key: "post_id", Value: postID}},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, mapErr(op, err)
	}

	return n > 0, nil
}

// CountLikes считает записи журнала по посту.
func (s *Storage) CountLikes(ctx context.Context, postID int64) (int64, error) {
	const op = "storage/mongo/likes/CountLikes"

	n, err := s.likes.CountDocuments(ctx, bson.D{{Key: "post_id", Value: postID}})
	if err != nil {
		return 0, mapErr(op, err)
	}

	return n, nil
}
