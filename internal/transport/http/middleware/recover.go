package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	apierrors "github.com/pribylovaa/go-blog-lab/internal/transport/http/errors"
	logctx "github.com/pribylovaa/go-blog-lab/pkg/log"
)

var errHandlerPanic = errors.New("handler panic")

// Recover стоит первым в цепочке API блога: паника хендлера становится ответом
// 500 {"error":{"code":"internal"}} с request_id, а причина и стек уходят в лог.
// http.ErrAbortHandler пробрасывается: им net/http обрывает ответ намеренно.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}

				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logctx.From(r.Context()).LogAttrs(r.Context(), slog.LevelError, "handler_panic",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("request_id", r.Header.Get(HeaderRequestID)),
					slog.Any("reason", rec),
					slog.String("stack", string(debug.Stack())),
				)

				apierrors.WriteError(w, r, errHandlerPanic)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
