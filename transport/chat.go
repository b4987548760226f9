package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"chat-grid/domain"
	"chat-grid/runtime"
	"chat-grid/services"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/kataras/iris/v12"
)

var chatUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	writeTimeout   = 10 * time.Second
	maxFrameLength = 4096
)

// inboundFrame is what a connected client sends: just the text.
type inboundFrame struct {
	Content string `json:"content"`
}

// outboundFrame is what every subscriber receives, system announcements
// included.
type outboundFrame struct {
	SenderID          uuid.UUID `json:"sender_id"`
	SenderDisplayName string    `json:"sender_display_name"`
	Content           string    `json:"content"`
	CreatedAt         time.Time `json:"created_at"`
}

type ChatHandler struct {
	log      *slog.Logger
	baseCtx  context.Context
	registry *runtime.Registry
	chat     services.IChatService
	groups   services.IGroupService
	tokens   TokenValidator
}

// TokenValidator is the slice of the token manager the websocket path needs.
type TokenValidator interface {
	Validate(tokenString string) (domain.Identity, error)
}

func NewChatHandler(log *slog.Logger, baseCtx context.Context, registry *runtime.Registry,
	chat services.IChatService, groups services.IGroupService, tokens TokenValidator) *ChatHandler {
	return &ChatHandler{
		log:      log,
		baseCtx:  baseCtx,
		registry: registry,
		chat:     chat,
		groups:   groups,
		tokens:   tokens,
	}
}

// Serve runs the full connection lifecycle: authenticate, verify
// membership, upgrade, attach to the group channel, pump frames both ways,
// and tear everything down exactly once whichever side disconnects first.
//
// The websocket handshake cannot carry an Authorization header from browser
// clients, so the token travels as a query parameter.
func (h *ChatHandler) Serve(ctx iris.Context) {
	token := ctx.URLParam("token")
	if token == "" {
		ctx.StatusCode(iris.StatusUnauthorized)
		ctx.JSON(iris.Map{"error": "missing token"})
		return
	}
	identity, err := h.tokens.Validate(token)
	if err != nil {
		writeError(ctx, err)
		return
	}

	groupID, ok := groupIDParam(ctx)
	if !ok {
		return
	}

	// Admission control happens before the upgrade so a non-member never
	// holds a websocket, let alone a subscription.
	member, err := h.groups.IsMember(identity.UserID, groupID)
	if err != nil {
		writeError(ctx, err)
		return
	}
	if !member {
		ctx.StatusCode(iris.StatusForbidden)
		ctx.JSON(iris.Map{"error": "not a member of this group"})
		return
	}

	conn, err := chatUpgrader.Upgrade(ctx.ResponseWriter(), ctx.Request(), nil)
	if err != nil {
		// Upgrade already wrote the handshake failure response.
		h.log.Warn("Websocket upgrade failed", "group_id", groupID, "error", err)
		return
	}

	h.serveConn(conn, identity, groupID)
}

func (h *ChatHandler) serveConn(conn *websocket.Conn, identity domain.Identity, groupID uuid.UUID) {
	log := h.log.With("group_id", groupID, "user_id", identity.UserID)

	connCtx, cancel := context.WithCancel(h.baseCtx)
	defer cancel()

	sub := h.registry.Attach(groupID)
	defer func() {
		sub.Cancel()
		if h.registry.RemoveIfEmpty(groupID) {
			log.Debug("Channel removed, no subscribers left")
		}
	}()

	// ReadMessage blocks without honoring contexts, so a watcher closes the
	// socket when the connection context ends. Both loops then unwind
	// through their error paths.
	go func() {
		<-connCtx.Done()
		conn.Close()
	}()

	go h.writeLoop(connCtx, cancel, conn, sub, log)

	log.Info("Chat connection opened", "subscribers", sub.Channel().SubscriberCount())
	h.readLoop(connCtx, cancel, conn, sub.Channel(), identity, log)
	log.Info("Chat connection closed")
}

// writeLoop forwards broadcasts to this client. A write failure tears the
// whole connection down via cancel.
func (h *ChatHandler) writeLoop(ctx context.Context, cancel context.CancelFunc,
	conn *websocket.Conn, sub *runtime.Subscription, log *slog.Logger) {
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-sub.Messages():
			frame := outboundFrame{
				SenderID:          msg.SenderID,
				SenderDisplayName: msg.SenderName,
				Content:           msg.Content,
				CreatedAt:         msg.CreatedAt,
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(frame); err != nil {
				log.Debug("Write failed, dropping connection", "error", err)
				return
			}
		}
	}
}

// readLoop consumes client frames until the socket dies or the context is
// cancelled. Malformed frames are skipped, not fatal.
func (h *ChatHandler) readLoop(ctx context.Context, cancel context.CancelFunc,
	conn *websocket.Conn, channel *runtime.GroupChannel, identity domain.Identity, log *slog.Logger) {
	defer cancel()

	conn.SetReadLimit(maxFrameLength)

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("Read failed, dropping connection", "error", err)
			}
			return
		}

		if messageType != websocket.TextMessage {
			log.Debug("Skipping non-text frame", "type", messageType)
			continue
		}

		var frame inboundFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			log.Debug("Skipping malformed frame", "error", err)
			continue
		}
		if frame.Content == "" {
			continue
		}

		if err := h.chat.PostMessage(ctx, channel, identity, frame.Content); err != nil {
			// The message is gone but the connection survives.
			log.Error("Message dropped", "error", err)
		}
	}
}
