package service

import (
	"errors"
	"fmt"
)

// Kind класс ошибки бизнес-операции
type Kind string

const (
	KindInvalidArgument  Kind = "invalid_argument"
	KindUnauthorized     Kind = "unauthorized"
	KindForbidden        Kind = "forbidden"
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindCollision        Kind = "collision"
	KindStoreUnavailable Kind = "store_unavailable"
)

// Error типизированная ошибка сервисного слоя
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is сравнивает по Kind. Коллизия слотов - частный случай конфликта.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind || (t.Kind == KindConflict && e.Kind == KindCollision)
}

// Эталоны для errors.Is
var (
	ErrInvalidArgument  = &Error{Kind: KindInvalidArgument}
	ErrUnauthorized     = &Error{Kind: KindUnauthorized}
	ErrForbidden        = &Error{Kind: KindForbidden}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrConflict         = &Error{Kind: KindConflict}
	ErrCollision        = &Error{Kind: KindCollision}
	ErrStoreUnavailable = &Error{Kind: KindStoreUnavailable}
)

// KindOf возвращает Kind ошибки или пустую строку для чужих ошибок
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func invalidArgument(msg string) error {
	return &Error{Kind: KindInvalidArgument, Message: msg}
}

func unauthorized(msg string) error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

func forbidden(msg string) error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func notFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func conflict(msg string) error {
	return &Error{Kind: KindConflict, Message: msg}
}

func collision(msg string) error {
	return &Error{Kind: KindCollision, Message: msg}
}

func storeUnavailable(op string, err error) error {
	return &Error{Kind: KindStoreUnavailable, Message: op, Err: err}
}

var (
	errInsufficient = "insufficient argument list"
	errIllegal      = "illegal argument specified"
)
