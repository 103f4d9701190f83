// Package errors maps failures onto a small set of metric classes.
package errors

import (
	"context"
	goerrors "errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/target/mmk-genstudio/internal/core"
	apperrors "github.com/target/mmk-genstudio/internal/errors"
)

// Metric classes.
const (
	ClassTimeout     = "timeout"
	ClassCanceled    = "canceled"
	ClassProvider4xx = "provider_4xx"
	ClassProvider5xx = "provider_5xx"
	ClassNetwork     = "network"
	ClassStorage     = "storage"
	ClassDB          = "db"
	ClassUnknown     = "unknown"
)

type httpStatusError interface {
	HTTPStatus() int
}

// Classify returns the metric class for err, or "" for nil.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	var statusErr httpStatusError
	var netErr net.Error
	var pgErr *pgconn.PgError

	switch {
	case goerrors.Is(err, context.Canceled):
		return ClassCanceled
	case goerrors.As(err, &statusErr):
		if code := statusErr.HTTPStatus(); code >= 400 && code < 500 {
			return ClassProvider4xx
		}
		return ClassProvider5xx
	case goerrors.Is(err, core.ErrBlobWrite), goerrors.Is(err, core.ErrBlobNotFound):
		return ClassStorage
	case goerrors.Is(err, context.DeadlineExceeded), apperrors.IsAppError(err, apperrors.ErrCodeTimeout):
		return ClassTimeout
	case goerrors.As(err, &pgErr),
		apperrors.IsAppError(err, apperrors.ErrCodeUnavailable),
		apperrors.IsAppError(err, apperrors.ErrCodeConflict):
		return ClassDB
	case goerrors.As(err, &netErr):
		if netErr.Timeout() {
			return ClassTimeout
		}
		return ClassNetwork
	default:
		return ClassUnknown
	}
}
