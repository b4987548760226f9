package transport

import (
	"strings"

	"chat-grid/auth"
	"chat-grid/domain"
	apperrors "chat-grid/errors"

	"github.com/kataras/iris/v12"
)

const identityContextKey = "identity"

// BearerAuth validates the Authorization header and stores the resulting
// identity for downstream handlers.
func BearerAuth(tokens *auth.TokenManager) iris.Handler {
	return func(ctx iris.Context) {
		header := ctx.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			writeError(ctx, apperrors.ErrInvalidToken)
			return
		}

		identity, err := tokens.Validate(token)
		if err != nil {
			writeError(ctx, err)
			return
		}

		ctx.Values().Set(identityContextKey, identity)
		ctx.Next()
	}
}

// identityFrom returns the identity set by BearerAuth. Calling it from an
// unprotected route is a programming error.
func identityFrom(ctx iris.Context) domain.Identity {
	return ctx.Values().Get(identityContextKey).(domain.Identity)
}
