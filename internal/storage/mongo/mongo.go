// mongo — документная реализация storage.Storage на базе MongoDB.
//
// Отличия от реляционного адаптера:
//   - числовые ID выдаются коллекцией counters (findOneAndUpdate + $inc, upsert);
//   - пост хранит снимок автора, снятый при создании;
//   - каскадное удаление и поддержка счётчиков выполняются приложением.
//
// Многодокументные транзакции требуют replica set, поэтому пары «запись журнала +
// счётчик поста» выполняются последовательно с компенсацией: если второй шаг
// не удался, первый откатывается.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/pribylovaa/go-blog-lab/internal/storage"
)

const (
	usersCollection    = "users"
	postsCollection    = "posts"
	likesCollection    = "likes"
	commentsCollection = "comments"
	countersCollection = "counters"
	defaultDBName      = "blog"

	closeTimeout = 5 * time.Second
)

// Storage — тонкий адаптер над подключением и коллекциями MongoDB.
type Storage struct {
	client   *mongodriver.Client
	db       *mongodriver.Database
	users    *mongodriver.Collection
	posts    *mongodriver.Collection
	likes    *mongodriver.Collection
	comments *mongodriver.Collection
	counters *mongodriver.Collection
}

// New подключается к MongoDB, проверяет соединение и обеспечивает индексы.
// Имя БД берётся из пути URI (mongodb://host:27017/blog), по умолчанию "blog".
func New(ctx context.Context, uri string) (*Storage, error) {
	const op = "storage/mongo/New"

	if uri == "" {
		return nil, fmt.Errorf("%s: empty uri", op)
	}

	cli, err := mongodriver.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%s: connect: %w", op, err)
	}

	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("%s: %w: %v", op, storage.ErrUnavailable, err)
	}

	db := cli.Database(databaseFromURI(uri))
	s := &Storage{
		client:   cli,
		db:       db,
		users:    db.Collection(usersCollection),
		posts:    db.Collection(postsCollection),
		likes:    db.Collection(likesCollection),
		comments: db.Collection(commentsCollection),
		counters: db.Collection(countersCollection),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s, nil
}

// Close отключает клиента.
func (s *Storage) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	_ = s.client.Disconnect(ctx)
}

// ensureIndexes создаёт индексы:
//   - users: уникальные username и email;
//   - posts: уникальный slug, (is_published, created_at desc), user_id;
//   - likes: уникальная пара (user_id, post_id), post_id;
//   - comments: (post_id, created_at), parent_id, user_id.
func (s *Storage) ensureIndexes(ctx context.Context) error {
	unique := func(name string) *options.IndexOptions {
		return options.Index().SetName(name).SetUnique(true)
	}

	indexes := map[*mongodriver.Collection][]mongodriver.IndexModel{
		s.users: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique("uq_users_username")},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique("uq_users_email")},
		},
		s.posts: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique("uq_posts_slug")},
			{Keys: bson.D{{Key: "is_published", Value: 1}, {Key: "created_at", Value: -1}}, Options: options.Index().SetName("published_created_desc")},
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetName("posts_user")},
		},
		s.likes: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "post_id", Value: 1}}, Options: unique("uq_likes_user_post")},
			{Keys: bson.D{{Key: "post_id", Value: 1}}, Options: options.Index().SetName("likes_post")},
		},
		s.comments: {
			{Keys: bson.D{{Key: "post_id", Value: 1}, {Key: "created_at", Value: 1}}, Options: options.Index().SetName("post_created_asc")},
			{Keys: bson.D{{Key: "parent_id", Value: 1}}, Options: options.Index().SetName("comments_parent")},
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetName("comments_user")},
		},
	}

	for coll, models := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("ensure indexes %s: %w", coll.Name(), err)
		}
	}

	return nil
}

// nextID выдаёт следующий идентификатор последовательности name.
func (s *Storage) nextID(ctx context.Context, name string) (int64, error) {
	var out struct {
		Seq int64 `bson:"seq"`
	}

	err := s.counters.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: name}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "seq", Value: int64(1)}}}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&out)
	if err != nil {
		return 0, err
	}

	return out.Seq, nil
}

// mapErr переводит ошибки драйвера в ошибки уровня storage.
func mapErr(op string, err error) error {
	switch {
	case errors.Is(err, mongodriver.ErrNoDocuments):
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	case mongodriver.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	case mongodriver.IsNetworkError(err) || mongodriver.IsTimeout(err):
		return fmt.Errorf("%s: %w: %v", op, storage.ErrUnavailable, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// nowMS — текущее время UTC с точностью MongoDB DateTime.
func nowMS() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// databaseFromURI извлекает имя базы данных из пути URI.
func databaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err == nil {
		if name := strings.Trim(u.Path, "/"); name != "" {
			return name
		}
	}

	return defaultDBName
}

var _ storage.Storage = (*Storage)(nil)
