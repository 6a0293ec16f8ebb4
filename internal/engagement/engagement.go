// engagement считает «вовлечённость» поста и ранжирует опубликованные посты.
//
// score = 2*likes + 3*comments + 0.1*views (веса по умолчанию).
// Функции чистые: никаких обращений к хранилищу или кэшу.
package engagement

import (
	"sort"

	"github.com/pribylovaa/go-blog-lab/internal/models"
)

// Weights — веса слагаемых.
type Weights struct {
	Like    float64 `yaml:"like"    env:"RANKING_LIKE_WEIGHT"    env-default:"2"`
	Comment float64 `yaml:"comment" env:"RANKING_COMMENT_WEIGHT" env-default:"3"`
	View    float64 `yaml:"view"    env:"RANKING_VIEW_WEIGHT"    env-default:"0.1"`
}

// DefaultWeights — веса, с которыми построены все отчёты лабораторной.
var DefaultWeights = Weights{Like: 2, Comment: 3, View: 0.1}

// Score считает вовлечённость с весами по умолчанию.
func Score(likeCount, commentCount, viewCount int64) float64 {
	return DefaultWeights.Score(likeCount, commentCount, viewCount)
}

// Score считает вовлечённость с заданными весами.
func (w Weights) Score(likeCount, commentCount, viewCount int64) float64 {
	return w.Like*float64(likeCount) + w.Comment*float64(commentCount) + w.View*float64(viewCount)
}

// Ranked — пост вместе с его итоговым баллом.
type Ranked struct {
	Post  models.Post `json:"post"`
	Score float64     `json:"score"`
}

// Rank отбрасывает неопубликованные посты и сортирует оставшиеся:
// score DESC, created_at DESC (новые выше), id ASC.
// Исходный срез не изменяется.
func (w Weights) Rank(posts []models.Post) []Ranked {
	out := make([]Ranked, 0, len(posts))
	for _, p := range posts {
		if !p.IsPublished {
			continue
		}

		out = append(out, Ranked{Post: p, Score: w.Score(p.LikeCount, p.CommentCount, p.ViewCount)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return Less(out[i], out[j])
	})

	return out
}

// Rank ранжирует с весами по умолчанию.
func Rank(posts []models.Post) []Ranked {
	return DefaultWeights.Rank(posts)
}

// Less задаёт полный детерминированный порядок ранжирования.
func Less(a, b Ranked) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}

	if !a.Post.CreatedAt.Equal(b.Post.CreatedAt) {
		return a.Post.CreatedAt.After(b.Post.CreatedAt)
	}

	return a.Post.ID < b.Post.ID
}

// Top возвращает не более n первых элементов рейтинга (n <= 0 — все).
func Top(ranked []Ranked, n int) []Ranked {
	if n <= 0 || n >= len(ranked) {
		return ranked
	}

	return ranked[:n]
}
