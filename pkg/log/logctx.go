// log передаёт *slog.Logger blog-service через context.Context.
//
// HTTP-мидлвар Logging кладёт в контекст логгер с request_id, воркер лидерборда
// кладёт свой логгер при старте; код сервиса и адаптеров берёт его через From
// и не знает, откуда пришёл вызов.
package log

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// Into возвращает дочерний контекст с логгером l.
func Into(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// From возвращает логгер из контекста; без него (или при nil) — slog.Default().
func From(ctx context.Context) *slog.Logger {
	if l, _ := ctx.Value(loggerKey{}).(*slog.Logger); l != nil {
		return l
	}

	return slog.Default()
}

// With добавляет атрибуты к логгеру контекста, например "worker" для фоновых задач.
func With(ctx context.Context, args ...any) context.Context {
	return Into(ctx, From(ctx).With(args...))
}
