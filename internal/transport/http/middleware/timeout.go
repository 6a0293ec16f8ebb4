package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	logctx "github.com/pribylovaa/go-blog-lab/pkg/log"
)

// Timeout ограничивает обработку запроса к API блога значением timeouts.service.
// Более ранний дедлайн вызывающего не продлевается; d <= 0 отключает ограничение.
//
// Ответ по истечении дедлайна формирует сам хендлер (ErrUnavailable -> 503),
// мидлвар только отмечает такой запрос в логе.
func Timeout(d time.Duration) Middleware {
	if d <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := serviceDeadline(r.Context(), d)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))

			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				logctx.From(ctx).Warn("request_deadline_exceeded",
					slog.String("path", r.URL.Path),
					slog.Duration("timeout", d),
				)
			}
		})
	}
}

// serviceDeadline возвращает ctx без изменений, если его дедлайн наступает не позже d.
func serviceDeadline(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) <= d {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, d)
}
