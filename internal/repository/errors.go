package repository

import (
	"errors"

	"civic-realtime/internal/apperror"

	"gorm.io/gorm"
)

// translate maps gorm errors onto the apperror taxonomy. what names the
// entity in the not-found message.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperror.NotFound(what + " not found")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperror.Invalid(what + " already exists")
	default:
		return apperror.Internal(err)
	}
}
