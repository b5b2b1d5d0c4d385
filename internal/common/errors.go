package common

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound           = errors.New("requested resource not found")
	ErrUnauthorized       = errors.New("not authenticated")
	ErrForbidden          = errors.New("not authorized")
	ErrBadRequest         = errors.New("bad request")
	ErrConflict           = errors.New("resource conflict")
	ErrInternalServer     = errors.New("internal server error")
	ErrValidation         = errors.New("validation failed")
	ErrServiceUnavailable = errors.New("service unavailable")

	ErrAlreadySubmitted  = errors.New("an answer for this riddle has already been submitted")
	ErrWrongAnswer       = errors.New("incorrect answer, try again")
	ErrUploadFailed      = errors.New("image upload failed")
	ErrRiddlesHidden     = errors.New("riddles are currently not available")
	ErrSequenceComplete  = errors.New("all riddles have been solved")
	ErrEmailNotConfirmed = errors.New("please confirm your email address before logging in")
)

// PgUniqueViolation is the SQLSTATE for unique constraint violations.
const PgUniqueViolation = "23505"

// IsUniqueViolation reports whether err wraps a postgres unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == PgUniqueViolation
}

// IsBackendUnavailable reports whether err is a network or connection level failure.
func IsBackendUnavailable(err error) bool {
	if errors.Is(err, ErrServiceUnavailable) || errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrRiddlesHidden), errors.Is(err, ErrEmailNotConfirmed):
		return http.StatusForbidden
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrAlreadySubmitted), errors.Is(err, ErrConflict), errors.Is(err, ErrSequenceComplete):
		return http.StatusConflict
	case errors.Is(err, ErrWrongAnswer):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrUploadFailed):
		return http.StatusBadGateway
	}

	if IsUniqueViolation(err) {
		return http.StatusConflict
	}
	if IsBackendUnavailable(err) {
		return http.StatusServiceUnavailable
	}

	return http.StatusInternalServerError
}

// Errorf creates a new error with formatting, useful for wrapping.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
