// Command blog-seed применяет схему PostgreSQL и наполняет блог демонстрационными данными.
//
//	go run ./cmd/blog-seed --config=./local.yaml --migrate
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pribylovaa/go-blog-lab/internal/config"
	"github.com/pribylovaa/go-blog-lab/internal/service"
	"github.com/pribylovaa/go-blog-lab/internal/storage"
	"github.com/pribylovaa/go-blog-lab/internal/storage/mongo"
	"github.com/pribylovaa/go-blog-lab/internal/storage/postgres"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)

	if err := run(); err != nil {
		log.Error("seed_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		migrate    bool
		migration  string
	)
	flag.StringVar(&configPath, "config", "", "path to config file (overrides CONFIG_PATH env)")
	flag.BoolVar(&migrate, "migrate", false, "apply the postgres schema before seeding")
	flag.StringVar(&migration, "migration", "migrations/1_init_blog.up.sql", "schema file for --migrate")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if migrate && cfg.Storage.Backend == config.BackendPostgres {
		if err := applySchema(ctx, cfg.Postgres.URL, migration); err != nil {
			return err
		}
		slog.Info("schema_applied", slog.String("file", migration))
	}

	st, err := openStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect storage: %w", err)
	}
	defer st.Close()

	// Без кэша: сид пишет напрямую в источник истины.
	svc := service.New(st, nil, nil, *cfg)

	return seed(ctx, svc)
}

func applySchema(ctx context.Context, dbURL, path string) error {
	sql, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read schema %s: %w", path, err)
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	return nil
}

func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	if cfg.Storage.Backend == config.BackendMongo {
		st, err := mongo.New(ctx, cfg.Mongo.URL)
		if err != nil {
			return nil, err
		}

		return st, nil
	}

	st, err := postgres.New(ctx, cfg.Postgres.URL)
	if err != nil {
		return nil, err
	}

	return st, nil
}

// seed: автор johndoe, его опубликованный пост, два читателя с лайками,
// комментарий одного читателя и ответ другого.
func seed(ctx context.Context, svc *service.Service) error {
	author, err := svc.CreateUser(ctx, service.CreateUserInput{
		Username:  "johndoe",
		Email:     "john@example.com",
		Password:  "password123",
		FirstName: "John",
		LastName:  "Doe",
		Bio:       "Writes about databases.",
	})
	if err != nil {
		return fmt.Errorf("create author: %w", err)
	}

	post, err := svc.CreatePost(ctx, service.CreatePostInput{
		UserID:    author.ID,
		Title:     "Getting Started with SQL",
		Content:   "SQL is a declarative language for querying relational data.",
		Published: true,
	})
	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}

	readers := make([]int64, 0, 2)
	for _, name := range []string{"janedoe", "bobsmith"} {
		u, err := svc.CreateUser(ctx, service.CreateUserInput{
			Username: name,
			Email:    name + "@example.com",
			Password: "password123",
		})
		if err != nil {
			return fmt.Errorf("create reader %s: %w", name, err)
		}

		if _, err := svc.AddLike(ctx, post.ID, u.ID); err != nil {
			return fmt.Errorf("like by %s: %w", name, err)
		}

		readers = append(readers, u.ID)
	}

	root, err := svc.AddComment(ctx, service.AddCommentInput{PostID: post.ID, UserID: readers[0], Content: "Great introduction!"})
	if err != nil {
		return fmt.Errorf("add comment: %w", err)
	}

	if _, err := svc.AddComment(ctx, service.AddCommentInput{
		PostID:   post.ID,
		UserID:   readers[1],
		Content:  "Agreed, very clear.",
		ParentID: &root.ID,
	}); err != nil {
		return fmt.Errorf("add reply: %w", err)
	}

	got, err := svc.PostByID(ctx, post.ID)
	if err != nil {
		return fmt.Errorf("reload post: %w", err)
	}

	slog.Info("seeded",
		slog.Int64("post_id", got.ID),
		slog.String("slug", got.Slug),
		slog.Int64("like_count", got.LikeCount),
		slog.Int64("comment_count", got.CommentCount),
	)

	return nil
}
