package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-blog-lab/internal/metrics"
)

// Metrics пишет латентность запроса в гистограмму blog_http_request_duration_seconds.
// route — шаблон chi (например, /posts/{id}), чтобы не плодить метки по id.
func Metrics() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := newStatusWriter(w)
			start := time.Now()

			next.ServeHTTP(sw, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}

			metrics.ObserveHTTP(r.Method, route, sw.code(), start)
		})
	}
}
