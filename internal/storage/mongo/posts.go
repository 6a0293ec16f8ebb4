package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pribylovaa/go-blog-lab/internal/models"
	"github.com/pribylovaa/go-blog-lab/internal/storage"
)

type authorDoc struct {
	Username    string `bson:"username"`
	DisplayName string `bson:"display_name"`
}

type postDoc struct {
	ID           int64     `bson:"_id"`
	UserID       int64     `bson:"user_id"`
	Author       authorDoc `bson:"author"`
	Title        string    `bson:"title"`
	Content      string    `bson:"content"`
	ImageKey     string    `bson:"image_key"`
	ImageURL     string    `bson:"image_url"`
	Slug         string    `bson:"slug"`
	IsPublished  bool      `bson:"is_published"`
	LikeCount    int64     `bson:"like_count"`
	CommentCount int64     `bson:"comment_count"`
	ViewCount    int64     `bson:"view_count"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func (d postDoc) model() *models.Post {
	return &models.Post{
		ID:           d.ID,
		UserID:       d.UserID,
		Author:       models.AuthorSnapshot{Username: d.Author.Username, DisplayName: d.Author.DisplayName},
		Title:        d.Title,
		Content:      d.Content,
		ImageKey:     d.ImageKey,
		ImageURL:     d.ImageURL,
		Slug:         d.Slug,
		IsPublished:  d.IsPublished,
		LikeCount:    d.LikeCount,
		CommentCount: d.CommentCount,
		ViewCount:    d.ViewCount,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

// CreatePost вставляет пост со снимком автора на момент создания.
// Ошибки: storage.ErrNotFound (автор), storage.ErrAlreadyExists (slug).
func (s *Storage) CreatePost(ctx context.Context, post *models.Post) (*models.Post, error) {
	const op = "storage/mongo/posts/CreatePost"

	author, err := s.UserByID(ctx, post.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	id, err := s.nextID(ctx, postsCollection)
	if err != nil {
		return nil, mapErr(op, err)
	}

	doc := postDoc{
		ID:          id,
		UserID:      post.UserID,
		Author:      authorDoc{Username: author.Username, DisplayName: author.DisplayName()},
		Title:       post.Title,
		Content:     post.Content,
		ImageKey:    post.ImageKey,
		ImageURL:    post.ImageURL,
		Slug:        post.Slug,
		IsPublished: post.IsPublished,
		CreatedAt:   post.CreatedAt.UTC().Truncate(time.Millisecond),
		UpdatedAt:   post.UpdatedAt.UTC().Truncate(time.Millisecond),
	}

	if _, err := s.posts.InsertOne(ctx, doc); err != nil {
		return nil, mapErr(op, err)
	}

	return doc.model(), nil
}

func (s *Storage) findPost(ctx context.Context, op string, filter bson.D) (*models.Post, error) {
	var doc postDoc
	if err := s.posts.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, mapErr(op, err)
	}

	return doc.model(), nil
}

// PostByID возвращает пост по id. Ошибки: storage.ErrNotFound.
func (s *Storage) PostByID(ctx context.Context, id int64) (*models.Post, error) {
	return s.findPost(ctx, "storage/mongo/posts/PostByID", bson.D{{Key: "_id", Value: id}})
}

// PostBySlug возвращает пост по slug. Ошибки: storage.ErrNotFound.
func (s *Storage) PostBySlug(ctx context.Context, slug string) (*models.Post, error) {
	return s.findPost(ctx, "storage/mongo/posts/PostBySlug", bson.D{{Key: "slug", Value: slug}})
}

// updatePost применяет update к посту и возвращает его новое состояние.
func (s *Storage) updatePost(ctx context.Context, op string, id int64, update bson.D) (*models.Post, error) {
	var doc postDoc
	err := s.posts.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return nil, mapErr(op, err)
	}

	return doc.model(), nil
}

// UpdatePost — частичный апдейт title/content/slug.
func (s *Storage) UpdatePost(ctx context.Context, id int64, update storage.PostUpdate) (*models.Post, error) {
	set := bson.D{{Key: "updated_at", Value: nowMS()}}
	add := func(field string, value *string) {
		if value != nil {
			set = append(set, bson.E{Key: field, Value: *value})
		}
	}

	add("title", update.Title)
	add("content", update.Content)
	add("slug", update.Slug)

	return s.updatePost(ctx, "storage/mongo/posts/UpdatePost", id, bson.D{{Key: "$set", Value: set}})
}

// SetPublished переключает флаг публикации.
func (s *Storage) SetPublished(ctx context.Context, id int64, published bool) (*models.Post, error) {
	return s.updatePost(ctx, "storage/mongo/posts/SetPublished", id, bson.D{{Key: "$set", Value: bson.D{
		{Key: "is_published", Value: published},
		{Key: "updated_at", Value: nowMS()},
	}}})
}

// SetPostImage фиксирует подтверждённое изображение поста.
func (s *Storage) SetPostImage(ctx context.Context, id int64, key, url string) (*models.Post, error) {
	return s.updatePost(ctx, "storage/mongo/posts/SetPostImage", id, bson.D{{Key: "$set", Value: bson.D{
		{Key: "image_key", Value: key},
		{Key: "image_url", Value: url},
		{Key: "updated_at", Value: nowMS()},
	}}})
}

// IncrementViews атомарно увеличивает view_count.
func (s *Storage) IncrementViews(ctx context.Context, id int64) (int64, error) {
	p, err := s.updatePost(ctx, "storage/mongo/posts/IncrementViews", id, bson.D{
		{Key: "$inc", Value: bson.D{{Key: "view_count", Value: int64(1)}}},
	})
	if err != nil {
		return 0, err
	}

	return p.ViewCount, nil
}

func (s *Storage) findPosts(ctx context.Context, op string, filter bson.D, limit int) ([]models.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := s.posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, mapErr(op, err)
	}
	defer cur.Close(ctx)

	posts := make([]models.Post, 0)
	for cur.Next(ctx) {
		var doc postDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, mapErr(op, err)
		}

		posts = append(posts, *doc.model())
	}

	if err := cur.Err(); err != nil {
		return nil, mapErr(op, err)
	}

	return posts, nil
}

// ListPublishedPosts — опубликованные посты, новые первыми. limit <= 0 — без ограничения.
func (s *Storage) ListPublishedPosts(ctx context.Context, limit int) ([]models.Post, error) {
	return s.findPosts(ctx, "storage/mongo/posts/ListPublishedPosts", bson.D{{Key: "is_published", Value: true}}, limit)
}

// ListPostsByUser — все посты автора, новые первыми.
func (s *Storage) ListPostsByUser(ctx context.Context, userID int64) ([]models.Post, error) {
	return s.findPosts(ctx, "storage/mongo/posts/ListPostsByUser", bson.D{{Key: "user_id", Value: userID}}, 0)
}

// DeletePost удаляет пост, затем его лайки и комментарии.
func (s *Storage) DeletePost(ctx context.Context, id int64) error {
	const op = "storage/mongo/posts/DeletePost"

	res, err := s.posts.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return mapErr(op, err)
	}

	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	byPost := bson.D{{Key: "post_id", Value: id}}
	if _, err := s.likes.DeleteMany(ctx, byPost); err != nil {
		return mapErr(op, err)
	}

	if _, err := s.comments.DeleteMany(ctx, byPost); err != nil {
		return mapErr(op, err)
	}

	return nil
}
