// errors стандартизирует ответы об ошибках HTTP-слоя blog-service.
// На вход принимает ошибку сервисного слоя (sentinel из internal/service),
// на выход даёт:
//   - HTTP-статус;
//   - краткое безопасное message без утечки деталей хранилища.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/pribylovaa/go-blog-lab/internal/service"
)

// StatusClientClosedRequest — нестандартный код «клиент закрыл соединение».
const StatusClientClosedRequest = 499

// ErrBadRequest — локальная ошибка разбора запроса (битый JSON, id в пути, query).
var ErrBadRequest = stderrors.New("bad request")

// APIError — единый формат для клиента.
// Code — короткий стабильный машиночитаемый код.
// RequestID — из X-Request-Id, если есть.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект ответа.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует ошибку сервиса в HTTP-статус и тело ответа.
//
// Маппинг:
//   - ErrInvalidArgument, ErrBadRequest -> 400
//   - ErrNotFound -> 404
//   - ErrConflict -> 409
//   - ErrInvalidNesting -> 422
//   - context.Canceled -> 499
//   - ErrUnavailable -> 503
//   - nil и прочее -> 500/internal
func ToHTTP(err error) (int, ErrorResponse) {
	status, code, msg := classify(err)

	return status, ErrorResponse{Error: APIError{Code: code, Message: msg}}
}

func classify(err error) (int, string, string) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, "internal", "internal error"
	case stderrors.Is(err, ErrBadRequest), stderrors.Is(err, service.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument", "invalid argument"
	case stderrors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found", "not found"
	case stderrors.Is(err, service.ErrConflict):
		return http.StatusConflict, "already_exists", "already exists"
	case stderrors.Is(err, service.ErrInvalidNesting):
		return http.StatusUnprocessableEntity, "invalid_nesting", "replies to replies are not allowed"
	case stderrors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "canceled", "canceled"
	case stderrors.Is(err, service.ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable", "service unavailable"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}

// WriteError пишет статус и тело, добавляя request_id из заголовка.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
