// metrics содержит prometheus-коллекторы blog-service.
// Регистрируются в реестре по умолчанию и отдаются через /metrics (promhttp).
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheRequests — обращения к cache-aside: hit, miss, expired, error.
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_cache_requests_total",
		Help: "Cache-aside lookups by result",
	}, []string{"result"})

	// Likes — попытки лайка: created, duplicate, removed.
	Likes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_likes_total",
		Help: "Like ledger operations by result",
	}, []string{"result"})

	// Comments — операции с комментариями: created, rejected_nesting, deleted.
	Comments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_comments_total",
		Help: "Comment tree operations by result",
	}, []string{"result"})

	// TrendingRefreshes — пересборки лидерборда: ok, error.
	TrendingRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_trending_refresh_total",
		Help: "Trending leaderboard rebuilds by result",
	}, []string{"result"})

	// HTTPRequestDuration — латентность HTTP-обработчиков по маршруту и статусу.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blog_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// ObserveHTTP записывает длительность запроса, начатого в start.
func ObserveHTTP(method, route string, status int, start time.Time) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
}
