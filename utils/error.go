package utils

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrorRecordNotFound = errors.New("record not found")

type ErrorKind int

const (
	KindNotFound ErrorKind = iota + 1
	KindValidation
	KindStore
	KindAuth
	KindForbidden
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindValidation:
		return "ValidationError"
	case KindStore:
		return "StoreError"
	case KindAuth:
		return "AuthError"
	case KindForbidden:
		return "Forbidden"
	}
	return "Unknown"
}

// AppError is the error type handed back to request handlers.
// Message is safe to show to the user; Err is the underlying cause and is only logged.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFoundError(resource string) error {
	return &AppError{Kind: KindNotFound, Message: resource + " not found", Err: ErrorRecordNotFound}
}

func ValidationError(format string, args ...any) error {
	return &AppError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func AuthError(message string) error {
	return &AppError{Kind: KindAuth, Message: message}
}

func ForbiddenError(message string) error {
	return &AppError{Kind: KindForbidden, Message: message}
}

// StoreError wraps a database failure. Already classified errors pass through untouched.
func StoreError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	return &AppError{Kind: KindStore, Message: "failed to save changes", Err: err}
}

// ErrorKindOf returns the AppError kind of err, treating unclassified errors as store errors.
func ErrorKindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindStore
}

func IsNotFound(err error) bool {
	return err != nil && ErrorKindOf(err) == KindNotFound
}

func IsValidation(err error) bool {
	return err != nil && ErrorKindOf(err) == KindValidation
}

// HTTPStatus maps an error to the response status handlers send.
func HTTPStatus(err error) int {
	switch ErrorKindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// PublicMessage is the text put in {"error": ...}. Store failures never expose their cause.
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return "internal server error"
}
