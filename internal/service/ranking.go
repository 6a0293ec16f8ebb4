package service

import (
	"context"
	"errors"
	"strconv"

	"github.com/pribylovaa/go-blog-lab/internal/cache"
	"github.com/pribylovaa/go-blog-lab/internal/engagement"
	"github.com/pribylovaa/go-blog-lab/internal/models"
	"github.com/pribylovaa/go-blog-lab/pkg/log"
)

// leaderboardKey — отсортированное множество trending-постов (member = id, score = вовлечённость).
var leaderboardKey = cache.Key(cache.KindLeaderboard, "trending")

// topGenKey — счётчик поколения рейтинга. Входит в ключ кэша TopPosts,
// поэтому после инкремента все закэшированные выдачи перестают читаться.
var topGenKey = cache.Key(cache.KindPostList, "top-gen")

func topKey(limit int, gen string) string {
	return cache.Key(cache.KindPostList, "top",
		cache.Param{Name: "gen", Value: gen},
		cache.Param{Name: "limit", Value: strconv.Itoa(limit)},
	)
}

// TopPosts — опубликованные посты по убыванию вовлечённости (см. engagement.Rank).
// Результат кэшируется на cache.ranking_ttl под ключом "posts:top?gen=<g>&limit=<n>";
// снятие с публикации и удаление постов сдвигают поколение g.
func (s *Service) TopPosts(ctx context.Context, limit int) ([]engagement.Ranked, error) {
	const op = "service/ranking/TopPosts"

	limit = s.limitOrDefault(limit)
	lg := log.From(ctx).With("op", op, "limit", limit)

	fetch := func(ctx context.Context) ([]engagement.Ranked, error) {
		return s.rankPublished(ctx, limit)
	}

	var (
		ranked []engagement.Ranked
		err    error
	)

	gen, genErr := s.topGeneration(ctx)
	if genErr != nil {
		lg.Warn("ranking generation read failed, bypassing cache", "err", genErr)
		ranked, err = fetch(ctx)
	} else {
		ranked, err = s.top.Get(ctx, topKey(limit, gen), s.cfg.Cache.RankingTTL, fetch)
	}

	if err != nil {
		return nil, mapStorageErr(lg, op, err)
	}

	return ranked, nil
}

// topGeneration возвращает текущее поколение рейтинга ("0", пока счётчик не создан).
func (s *Service) topGeneration(ctx context.Context) (string, error) {
	if s.store == nil {
		return "0", nil
	}

	raw, found, err := s.store.Get(ctx, topGenKey)
	if err != nil {
		return "", err
	}

	if !found {
		return "0", nil
	}

	return string(raw), nil
}

// invalidateTop сдвигает поколение рейтинга (best-effort).
func (s *Service) invalidateTop(ctx context.Context) {
	if s.store == nil {
		return
	}

	if _, err := s.store.Increment(ctx, topGenKey); err != nil {
		log.From(ctx).Warn("ranking generation bump failed", "err", err)
	}
}

func (s *Service) rankPublished(ctx context.Context, limit int) ([]engagement.Ranked, error) {
	posts, err := s.storage.ListPublishedPosts(ctx, 0)
	if err != nil {
		return nil, err
	}

	return engagement.Top(s.weights.Rank(posts), limit), nil
}

// Trending — посты из лидерборда в Redis. Без кэша или при пустом/недоступном
// лидерборде отдаёт ранжирование из хранилища.
func (s *Service) Trending(ctx context.Context, limit int) ([]models.Post, error) {
	const op = "service/ranking/Trending"

	limit = s.limitOrDefault(limit)
	lg := log.From(ctx).With("op", op, "limit", limit)

	if s.store != nil {
		members, err := s.store.ZSetTopN(ctx, leaderboardKey, limit)
		if err != nil {
			lg.Warn("leaderboard read failed, falling back to storage", "err", err)
		}

		if err == nil && len(members) > 0 {
			return s.loadTrending(ctx, op, members)
		}
	}

	ranked, err := s.TopPosts(ctx, limit)
	if err != nil {
		return nil, err
	}

	posts := make([]models.Post, 0, len(ranked))
	for _, r := range ranked {
		posts = append(posts, r.Post)
	}

	return posts, nil
}

// loadTrending загружает посты лидерборда; удалённые и снятые с публикации пропускаются.
func (s *Service) loadTrending(ctx context.Context, op string, members []string) ([]models.Post, error) {
	lg := log.From(ctx).With("op", op)

	var stale []int64
	posts := make([]models.Post, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			lg.Warn("malformed leaderboard member", "member", m)
			continue
		}

		post, err := s.PostByID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			stale = append(stale, id)
			continue
		}

		if err != nil {
			return nil, err
		}

		if !post.IsPublished {
			stale = append(stale, id)
			continue
		}

		posts = append(posts, *post)
	}

	s.removeFromTrending(ctx, stale...)

	return posts, nil
}

// refreshTrendingScore обновляет score поста в лидерборде (best-effort).
// Неопубликованный пост из лидерборда удаляется.
func (s *Service) refreshTrendingScore(ctx context.Context, post *models.Post) {
	if s.store == nil || post == nil {
		return
	}

	if !post.IsPublished {
		s.removeFromTrending(ctx, post.ID)
		return
	}

	score := s.weights.Score(post.LikeCount, post.CommentCount, post.ViewCount)
	if err := s.store.ZSetAdd(ctx, leaderboardKey, strconv.FormatInt(post.ID, 10), score); err != nil {
		log.From(ctx).Warn("leaderboard update failed", "post_id", post.ID, "err", err)
	}
}

// removeFromTrending убирает посты из лидерборда (best-effort).
func (s *Service) removeFromTrending(ctx context.Context, ids ...int64) {
	if s.store == nil || len(ids) == 0 {
		return
	}

	members := make([]string, len(ids))
	for i, id := range ids {
		members[i] = strconv.FormatInt(id, 10)
	}

	if err := s.store.ZSetRemove(ctx, leaderboardKey, members...); err != nil {
		log.From(ctx).Warn("leaderboard remove failed", "posts", members, "err", err)
	}
}
