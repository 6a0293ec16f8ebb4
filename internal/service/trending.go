package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/pribylovaa/go-blog-lab/internal/metrics"
	"github.com/pribylovaa/go-blog-lab/pkg/log"
)

// StartTrendingRefresh периодически пересобирает лидерборд из хранилища.
//
// Особенности:
//   - первый проход выполняется сразу, далее — раз в ranking.trending_refresh;
//   - ошибка прохода логируется и не останавливает цикл;
//   - останавливается по ctx.
func (s *Service) StartTrendingRefresh(ctx context.Context) error {
	const op = "service/trending/StartTrendingRefresh"

	interval := s.cfg.Ranking.TrendingRefresh
	if s.store == nil {
		return fmt.Errorf("%s: cache store is not configured", op)
	}

	if interval <= 0 {
		return fmt.Errorf("%s: non-positive interval %s", op, interval)
	}

	lg := log.From(ctx)
	lg.Info("trending_refresh_start",
		slog.String("op", op),
		slog.Duration("interval", interval),
		slog.Int("size", s.cfg.Ranking.TrendingSize),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.refreshTick(ctx, op)

	for {
		select {
		case <-ctx.Done():
			lg.Info("trending_refresh_stop", slog.String("op", op))
			return nil
		case <-ticker.C:
			s.refreshTick(ctx, op)
		}
	}
}

func (s *Service) refreshTick(ctx context.Context, op string) {
	if err := s.RefreshTrending(ctx); err != nil {
		metrics.TrendingRefreshes.WithLabelValues("error").Inc()
		log.From(ctx).Warn("trending_refresh_tick_error",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return
	}

	metrics.TrendingRefreshes.WithLabelValues("ok").Inc()
}

// RefreshTrending — один проход: ранжирование опубликованных постов и атомарная
// замена содержимого лидерборда топ-N результатами.
func (s *Service) RefreshTrending(ctx context.Context) error {
	const op = "service/trending/RefreshTrending"

	if s.store == nil {
		return nil
	}

	ranked, err := s.rankPublished(ctx, s.cfg.Ranking.TrendingSize)
	if err != nil {
		return fmt.Errorf("%s: rank: %w", op, err)
	}

	scores := make(map[string]float64, len(ranked))
	for _, r := range ranked {
		scores[strconv.FormatInt(r.Post.ID, 10)] = r.Score
	}

	if err := s.store.ZSetReplace(ctx, leaderboardKey, scores); err != nil {
		return fmt.Errorf("%s: replace: %w", op, err)
	}

	log.From(ctx).Debug("trending_refreshed", slog.String("op", op), slog.Int("posts", len(scores)))

	return nil
}
