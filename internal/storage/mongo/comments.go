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

type commentDoc struct {
	ID        int64     `bson:"_id"`
	PostID    int64     `bson:"post_id"`
	UserID    int64     `bson:"user_id"`
	ParentID  *int64    `bson:"parent_id"`
	Content   string    `bson:"content"`
	IsDeleted bool      `bson:"is_deleted"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (d commentDoc) model() *models.Comment {
	return &models.Comment{
		ID:        d.ID,
		PostID:    d.PostID,
		UserID:    d.UserID,
		ParentID:  d.ParentID,
		Content:   d.Content,
		IsDeleted: d.IsDeleted,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

// CreateComment вставляет комментарий и увеличивает comment_count поста.
// Если поста нет, вставка откатывается и возвращается storage.ErrNotFound.
func (s *Storage) CreateComment(ctx context.Context, comment *models.Comment) (*models.Comment, error) {
	const op = "storage/mongo/comments/CreateComment"

	if err := s.userExists(ctx, comment.UserID); err != nil {
		return nil, errNotFound(op, err)
	}

	id, err := s.nextID(ctx, commentsCollection)
	if err != nil {
		return nil, mapErr(op, err)
	}

	doc := commentDoc{
		ID:        id,
		PostID:    comment.PostID,
		UserID:    comment.UserID,
		ParentID:  comment.ParentID,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt.UTC().Truncate(time.Millisecond),
		UpdatedAt: comment.UpdatedAt.UTC().Truncate(time.Millisecond),
	}

	if _, err := s.comments.InsertOne(ctx, doc); err != nil {
		return nil, mapErr(op, err)
	}

	res, err := s.posts.UpdateByID(ctx, comment.PostID, bson.D{
		{Key: "$inc", Value: bson.D{{Key: "comment_count", Value: int64(1)}}},
	})
	if err != nil || res.MatchedCount == 0 {
		_, _ = s.comments.DeleteOne(context.WithoutCancel(ctx), bson.D{{Key: "_id", Value: id}})
		if err != nil {
			return nil, mapErr(op, err)
		}

		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return doc.model(), nil
}

// CommentByID возвращает комментарий (в том числе удалённый). Ошибки: storage.ErrNotFound.
func (s *Storage) CommentByID(ctx context.Context, id int64) (*models.Comment, error) {
	const op = "storage/mongo/comments/CommentByID"

	var doc commentDoc
	if err := s.comments.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc); err != nil {
		return nil, mapErr(op, err)
	}

	return doc.model(), nil
}

// ListCommentsByPost возвращает все комментарии поста, включая удалённые.
func (s *Storage) ListCommentsByPost(ctx context.Context, postID int64) ([]models.Comment, error) {
	const op = "storage/mongo/comments/ListCommentsByPost"

	cur, err := s.comments.Find(ctx,
		bson.D{{Key: "post_id", Value: postID}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, mapErr(op, err)
	}
	defer cur.Close(ctx)

	comments := make([]models.Comment, 0)
	for cur.Next(ctx) {
		var doc commentDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, mapErr(op, err)
		}

		comments = append(comments, *doc.model())
	}

	if err := cur.Err(); err != nil {
		return nil, mapErr(op, err)
	}

	return comments, nil
}

// SoftDeleteComment помечает комментарий удалённым и уменьшает comment_count.
// Фильтр is_deleted=false гарантирует однократное уменьшение счётчика;
// при сбое $inc пометка снимается.
func (s *Storage) SoftDeleteComment(ctx context.Context, id int64) (bool, error) {
	const op = "storage/mongo/comments/SoftDeleteComment"

	var doc commentDoc
	err := s.comments.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}, {Key: "is_deleted", Value: false}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "is_deleted", Value: true},
			{Key: "updated_at", Value: nowMS()},
		}}},
	).Decode(&doc)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		if _, lookupErr := s.CommentByID(ctx, id); lookupErr != nil {
			return false, fmt.Errorf("%s: %w", op, lookupErr)
		}

		return false, nil
	}
	if err != nil {
		return false, mapErr(op, err)
	}

	if _, err := s.posts.UpdateByID(ctx, doc.PostID, bson.D{
		{Key: "$inc", Value: bson.D{{Key: "comment_count", Value: int64(-1)}}},
	}); err != nil {
		_, _ = s.comments.UpdateOne(context.WithoutCancel(ctx),
			bson.D{{Key: "_id", Value: id}, {Key: "is_deleted", Value: true}},
			bson.D{{Key: "$set", Value: bson.D{
				{Key: "is_deleted", Value: false},
				{Key: "updated_at", Value: doc.UpdatedAt},
			}}},
		)
		return false, mapErr(op, err)
	}

	return true, nil
}

// CountVisibleComments считает не удалённые комментарии поста.
func (s *Storage) CountVisibleComments(ctx context.Context, postID int64) (int64, error) {
	const op = "storage/mongo/comments/CountVisibleComments"

	n, err := s.comments.CountDocuments(ctx, bson.D{{Key: "post_id", Value: postID}, {Key: "is_deleted", Value: false}})
	if err != nil {
		return 0, mapErr(op, err)
	}

	return n, nil
}
