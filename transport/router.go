package transport

import (
	"log/slog"

	"chat-grid/auth"
	"chat-grid/runtime"

	"github.com/kataras/iris/v12"
)

// Router owns the HTTP surface. Everything under /groups and /invitations
// requires a bearer token; the websocket endpoint authenticates through its
// query parameter instead.
type Router struct {
	log         *slog.Logger
	tokens      *auth.TokenManager
	users       *UserHandler
	groups      *GroupHandler
	invitations *InvitationHandler
	chat        *ChatHandler
	registry    *runtime.Registry
}

func NewRouter(log *slog.Logger, tokens *auth.TokenManager, users *UserHandler,
	groups *GroupHandler, invitations *InvitationHandler, chat *ChatHandler,
	registry *runtime.Registry) *Router {
	return &Router{
		log:         log,
		tokens:      tokens,
		users:       users,
		groups:      groups,
		invitations: invitations,
		chat:        chat,
		registry:    registry,
	}
}

func (r *Router) Build() *iris.Application {
	app := iris.New()

	app.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"status": "ok"})
	})

	authenticated := BearerAuth(r.tokens)

	app.Get("/debug/stats", authenticated, func(ctx iris.Context) {
		ctx.JSON(iris.Map{
			"active_channels": r.registry.Len(),
			"subscribers":     r.registry.Snapshot(),
		})
	})

	users := app.Party("/users")
	{
		users.Post("/register", r.users.Register)
		users.Post("/login", r.users.Login)
		users.Get("/by_username/{username}", authenticated, r.users.ByUsername)
	}

	groups := app.Party("/groups", authenticated)
	{
		groups.Post("/", r.groups.Create)
		groups.Get("/by_name/{name}", r.groups.ByName)
		groups.Get("/{groupID}/messages", r.groups.Messages)
		groups.Get("/{groupID}/members", r.groups.Members)
		groups.Post("/{groupID}/invite", r.groups.Invite)
		groups.Delete("/{groupID}/leave", r.groups.Leave)
	}

	// Token arrives via ?token=, not the Authorization header.
	app.Get("/groups/{groupID}/chat", r.chat.Serve)

	invitations := app.Party("/invitations", authenticated)
	{
		invitations.Get("/", r.invitations.Pending)
		invitations.Post("/{invitationID}/accept", r.invitations.Accept)
		invitations.Post("/{invitationID}/decline", r.invitations.Decline)
	}

	return app
}
