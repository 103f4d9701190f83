package data

import (
	"errors"

	apperrors "github.com/target/mmk-genstudio/internal/errors"
)

// Shared sentinel errors for data-layer repositories.
var (
	// ErrGenerationNotFound is returned when a generation job does not exist.
	ErrGenerationNotFound error = &apperrors.AppError{Code: apperrors.ErrCodeNotFound, Message: "generation job not found"}
	// ErrLockKeyRequired is returned when a lock is requested without a key.
	ErrLockKeyRequired = errors.New("lock key is required")
)
