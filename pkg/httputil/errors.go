package httputil

import (
	"errors"

	apperrors "github.com/jwalitptl/access-policy/pkg/errors"
)

func asAppError(err error, target **apperrors.AppError) bool {
	return errors.As(err, target)
}
