package errors

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrRateLimited    = errors.New("rate limit exceeded")

	ErrRoomNotFound         = wrap(ErrNotFound, "chat room not found")
	ErrUserNotFound         = wrap(ErrNotFound, "user not found")
	ErrNotificationNotFound = wrap(ErrNotFound, "notification not found")

	// ErrAccessDenied - пользователь не является участником комнаты или не имеет нужной роли
	ErrAccessDenied = wrap(ErrForbidden, "access denied")

	// ErrInvalidState - операция запрещена в текущем состоянии комнаты
	ErrInvalidState = errors.New("invalid state")

	// ErrConflict - у клиента уже есть ожидающая или активная комната
	ErrConflict = errors.New("conflict")
)

// kindError позволяет конкретной ошибке совпадать с общей категорией через errors.Is
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func wrap(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

type APIError struct {
	Message string `json:"error"`
	Code    int    `json:"code"`
}

func (e *APIError) Error() string {
	return e.Message
}

func NewAPIError(message string, code int) *APIError {
	return &APIError{
		Message: message,
		Code:    code,
	}
}

// FromError строит APIError для ответа клиенту. Сообщения внутренних ошибок наружу не отдаются.
func FromError(err error) *APIError {
	code := HTTPStatusFromError(err)
	if code == http.StatusInternalServerError {
		return NewAPIError(ErrInternalServer.Error(), code)
	}
	return NewAPIError(err.Error(), code)
}

func HTTPStatusFromError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidState):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Is и As реэкспортированы, чтобы не импортировать два пакета errors
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target interface{}) bool { return errors.As(err, target) }
