package transport

import (
	"log/slog"

	"chat-grid/repositories"
	"chat-grid/services"

	"github.com/kataras/iris/v12"
)

type UserHandler struct {
	log   *slog.Logger
	auth  services.IAuthService
	users repositories.IUserRepository
}

func NewUserHandler(log *slog.Logger, auth services.IAuthService, users repositories.IUserRepository) *UserHandler {
	return &UserHandler{log: log, auth: auth, users: users}
}

type credentialsInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *UserHandler) Register(ctx iris.Context) {
	var input credentialsInput
	if err := ctx.ReadJSON(&input); err != nil {
		ctx.StatusCode(iris.StatusBadRequest)
		ctx.JSON(iris.Map{"error": "invalid request body"})
		return
	}

	user, err := h.auth.Register(input.Username, input.Password)
	if err != nil {
		h.log.Warn("Registration refused", "username", input.Username, "error", err)
		writeError(ctx, err)
		return
	}

	h.log.Info("User registered", "user_id", user.ID, "username", user.Username)
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"id": user.ID, "username": user.Username})
}

func (h *UserHandler) Login(ctx iris.Context) {
	var input credentialsInput
	if err := ctx.ReadJSON(&input); err != nil {
		ctx.StatusCode(iris.StatusBadRequest)
		ctx.JSON(iris.Map{"error": "invalid request body"})
		return
	}

	user, token, err := h.auth.Login(input.Username, input.Password)
	if err != nil {
		writeError(ctx, err)
		return
	}

	ctx.JSON(iris.Map{
		"id":       user.ID,
		"username": user.Username,
		"token":    string(token),
	})
}

// ByUsername resolves a username to its public identity, used by clients to
// address invitations.
func (h *UserHandler) ByUsername(ctx iris.Context) {
	username := ctx.Params().Get("username")

	record, err := h.users.UserByUsername(username)
	if err != nil {
		writeError(ctx, err)
		return
	}

	ctx.JSON(iris.Map{"id": record.ID, "username": record.Username})
}
