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

type userDoc struct {
	ID           int64     `bson:"_id"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	FirstName    string    `bson:"first_name"`
	LastName     string    `bson:"last_name"`
	Bio          string    `bson:"bio"`
	IsActive     bool      `bson:"is_active"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func (d userDoc) model() *models.User {
	return &models.User{
		ID:           d.ID,
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Bio:          d.Bio,
		IsActive:     d.IsActive,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

// CreateUser вставляет пользователя. Ошибки: storage.ErrAlreadyExists (username/email).
func (s *Storage) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	const op = "storage/mongo/users/CreateUser"

	id, err := s.nextID(ctx, usersCollection)
	if err != nil {
		return nil, mapErr(op, err)
	}

	doc := userDoc{
		ID:           id,
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Bio:          user.Bio,
		IsActive:     user.IsActive,
		CreatedAt:    user.CreatedAt.UTC().Truncate(time.Millisecond),
		UpdatedAt:    user.UpdatedAt.UTC().Truncate(time.Millisecond),
	}

	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		return nil, mapErr(op, err)
	}

	return doc.model(), nil
}

func (s *Storage) findUser(ctx context.Context, op string, filter bson.D) (*models.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, mapErr(op, err)
	}

	return doc.model(), nil
}

// UserByID возвращает пользователя по id. Ошибки: storage.ErrNotFound.
func (s *Storage) UserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.findUser(ctx, "storage/mongo/users/UserByID", bson.D{{Key: "_id", Value: id}})
}

// UserByUsername возвращает пользователя по username. Ошибки: storage.ErrNotFound.
func (s *Storage) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findUser(ctx, "storage/mongo/users/UserByUsername", bson.D{{Key: "username", Value: username}})
}

// UpdateUser — частичный апдейт профиля. Снимки автора в постах не обновляются.
func (s *Storage) UpdateUser(ctx context.Context, id int64, update storage.UserUpdate) (*models.User, error) {
	const op = "storage/mongo/users/UpdateUser"

	set := bson.D{{Key: "updated_at", Value: nowMS()}}
	add := func(field string, value *string) {
		if value != nil {
			set = append(set, bson.E{Key: field, Value: *value})
		}
	}

	add("first_name", update.FirstName)
	add("last_name", update.LastName)
	add("bio", update.Bio)
	add("email", update.Email)

	var doc userDoc
	err := s.users.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return nil, mapErr(op, err)
	}

	return doc.model(), nil
}

// DeactivateUser — мягкая деактивация.
func (s *Storage) DeactivateUser(ctx context.Context, id int64) error {
	const op = "storage/mongo/users/DeactivateUser"

	res, err := s.users.UpdateByID(ctx, id, bson.D{{Key: "$set", Value: bson.D{
		{Key: "is_active", Value: false},
		{Key: "updated_at", Value: nowMS()},
	}}})
	if err != nil {
		return mapErr(op, err)
	}

	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// DeleteUser удаляет пользователя и всё, что на него ссылается:
//  1. уменьшает like_count постов на число его лайков;
//  2. уменьшает comment_count на его видимые комментарии и видимые ответы на них;
//  3. удаляет его посты вместе с их лайками и комментариями;
//  4. удаляет его лайки, комментарии и ответы на них;
//  5. удаляет сам документ пользователя.
func (s *Storage) DeleteUser(ctx context.Context, id int64) error {
	const op = "storage/mongo/users/DeleteUser"

	if _, err := s.UserByID(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.decrementGrouped(ctx, s.likes, bson.D{{Key: "user_id", Value: id}}, "like_count"); err != nil {
		return mapErr(op, err)
	}

	ownComments, err := s.distinctIDs(ctx, s.comments, bson.D{{Key: "user_id", Value: id}})
	if err != nil {
		return mapErr(op, err)
	}

	authored := bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "user_id", Value: id}},
		bson.D{{Key: "parent_id", Value: bson.D{{Key: "$in", Value: ownComments}}}},
	}}}

	visible := append(bson.D{{Key: "is_deleted", Value: false}}, authored...)
	if err := s.decrementGrouped(ctx, s.comments, visible, "comment_count"); err != nil {
		return mapErr(op, err)
	}

	ownPosts, err := s.distinctIDs(ctx, s.posts, bson.D{{Key: "user_id", Value: id}})
	if err != nil {
		return mapErr(op, err)
	}

	byPosts := bson.D{{Key: "post_id", Value: bson.D{{Key: "$in", Value: ownPosts}}}}
	steps := []struct {
		coll   *mongodriver.Collection
		filter bson.D
	}{
		{s.likes, byPosts},
		{s.comments, byPosts},
		{s.posts, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ownPosts}}}}},
		{s.likes, bson.D{{Key: "user_id", Value: id}}},
		{s.comments, authored},
		{s.users, bson.D{{Key: "_id", Value: id}}},
	}

	for _, step := range steps {
		if _, err := step.coll.DeleteMany(ctx, step.filter); err != nil {
			return mapErr(op, err)
		}
	}

	return nil
}

// decrementGrouped группирует документы coll по post_id и уменьшает field поста на размер группы.
func (s *Storage) decrementGrouped(ctx context.Context, coll *mongodriver.Collection, match bson.D, field string) error {
	pipeline := mongodriver.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$post_id"},
			{Key: "n", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cur, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var group struct {
			PostID int64 `bson:"_id"`
			N      int64 `bson:"n"`
		}
		if err := cur.Decode(&group); err != nil {
			return err
		}

		if _, err := s.posts.UpdateByID(ctx, group.PostID, bson.D{
			{Key: "$inc", Value: bson.D{{Key: field, Value: -group.N}}},
		}); err != nil {
			return err
		}
	}

	return cur.Err()
}

// distinctIDs возвращает _id документов, подходящих под filter.
func (s *Storage) distinctIDs(ctx context.Context, coll *mongodriver.Collection, filter bson.D) ([]int64, error) {
	cur, err := coll.Find(ctx, filter, options.Find().SetProjection(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	ids := make([]int64, 0)
	for cur.Next(ctx) {
		var doc struct {
			ID int64 `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}

		ids = append(ids, doc.ID)
	}

	if err := cur.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}

// userExists — проверка ссылочной целостности вместо внешнего ключа.
func (s *Storage) userExists(ctx context.Context, id int64) error {
	n, err := s.users.CountDocuments(ctx, bson.D{{Key: "_id", Value: id}}, options.Count().SetLimit(1))
	if err != nil {
		return err
	}

	if n == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// errNotFound сохраняет storage.ErrNotFound без обёртки драйвера.
func errNotFound(op string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return mapErr(op, err)
}
