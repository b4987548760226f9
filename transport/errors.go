package transport

import (
	"errors"

	apperrors "chat-grid/errors"

	"github.com/kataras/iris/v12"
)

// statusFor maps domain sentinels onto HTTP status codes. Anything
// unrecognized is a server fault.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrInvalidPassword),
		errors.Is(err, apperrors.ErrSelfInvite):
		return iris.StatusBadRequest
	case errors.Is(err, apperrors.ErrInvalidCredentials),
		errors.Is(err, apperrors.ErrInvalidToken):
		return iris.StatusUnauthorized
	case errors.Is(err, apperrors.ErrNotAMember):
		return iris.StatusForbidden
	case errors.Is(err, apperrors.ErrUserNotFound),
		errors.Is(err, apperrors.ErrGroupNotFound),
		errors.Is(err, apperrors.ErrInvitationNotFound):
		return iris.StatusNotFound
	case errors.Is(err, apperrors.ErrUserAlreadyExists),
		errors.Is(err, apperrors.ErrAlreadyMember),
		errors.Is(err, apperrors.ErrInvitationExists):
		return iris.StatusConflict
	default:
		return iris.StatusInternalServerError
	}
}

func writeError(ctx iris.Context, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == iris.StatusInternalServerError {
		// Internal details stay in the logs, not on the wire.
		message = "internal server error"
	}
	ctx.StatusCode(status)
	ctx.JSON(iris.Map{"error": message})
}
