package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/go-blog-lab/internal/cache"
	"github.com/pribylovaa/go-blog-lab/internal/config"
	"github.com/pribylovaa/go-blog-lab/internal/service"
	"github.com/pribylovaa/go-blog-lab/internal/storage"
	"github.com/pribylovaa/go-blog-lab/internal/storage/minio"
	"github.com/pribylovaa/go-blog-lab/internal/storage/mongo"
	"github.com/pribylovaa/go-blog-lab/internal/storage/postgres"
	bloghttp "github.com/pribylovaa/go-blog-lab/internal/transport/http"
	logctx "github.com/pribylovaa/go-blog-lab/pkg/log"
	"github.com/pribylovaa/go-blog-lab/pkg/redact"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file (overrides CONFIG_PATH env)")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting blog-service", "env", cfg.Env, "backend", cfg.Storage.Backend)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	initCtx, initCancel := context.WithTimeout(rootCtx, 10*time.Second)
	st, err := openStorage(initCtx, cfg)
	if err != nil {
		initCancel()
		log.Error("storage_connect_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer st.Close()
	log.Info("storage_connected", slog.String("url", redact.URL(storageURL(cfg))))

	// Кэш и объектное хранилище необязательны: без них сервис деградирует, а не падает.
	var store cache.Store
	if cfg.Redis.URL != "" {
		rs, err := cache.NewRedisStore(initCtx, cfg.Redis.URL, cfg.Redis.Prefix)
		if err != nil {
			log.Warn("redis_connect_failed", slog.String("err", err.Error()))
		} else {
			store = rs
			defer func() { _ = rs.Close() }()
			log.Info("redis_connected", slog.String("url", redact.URL(cfg.Redis.URL)))
		}
	}

	var images storage.Images
	if cfg.S3.Endpoint != "" {
		is, err := minio.New(initCtx, cfg.S3, cfg.Image)
		if err != nil {
			log.Warn("s3_connect_failed", slog.String("err", err.Error()))
		} else {
			images = is
			log.Info("s3_connected", slog.String("bucket", cfg.S3.Bucket))
		}
	}
	initCancel()

	svc := service.New(st, images, store, *cfg)
	log.Info("service_initialized")

	if store != nil && cfg.Ranking.TrendingRefresh > 0 {
		workerCtx := logctx.With(logctx.Into(rootCtx, log), "worker", "trending_refresh")
		go func() {
			if err := svc.StartTrendingRefresh(workerCtx); err != nil {
				log.Error("trending_refresh_start_failed", slog.String("err", err.Error()))
			}
		}()
	}

	apiHandler := bloghttp.NewRouter(svc, bloghttp.Options{
		Logger:  log,
		Timeout: cfg.Timeouts.Service,
	})

	// ready выставляется в 1 после старта HTTP-сервера и сбрасывается при остановке.
	var ready int32

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if atomic.LoadInt32(&ready) == 1 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}

		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})

	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", apiHandler)

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", httpAddr), slog.String("err", err.Error()))
		os.Exit(1)
	}
	log.Info("http_listen_start", slog.String("addr", httpAddr))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	atomic.StoreInt32(&ready, 1)
	log.Info("service_ready")

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	atomic.StoreInt32(&ready, 0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	log.Info("service_stopped")
}

// openStorage подключает источник истины по storage.backend.
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

func storageURL(cfg *config.Config) string {
	if cfg.Storage.Backend == config.BackendMongo {
		return cfg.Mongo.URL
	}

	return cfg.Postgres.URL
}

// setupLogger настраивает slog по окружению.
func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
