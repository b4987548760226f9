package transport

import (
	"log/slog"

	"chat-grid/domain"
	"chat-grid/services"

	"github.com/google/uuid"
	"github.com/kataras/iris/v12"
	"github.com/samber/lo"
)

type GroupHandler struct {
	log    *slog.Logger
	groups services.IGroupService
	chat   services.IChatService
}

func NewGroupHandler(log *slog.Logger, groups services.IGroupService, chat services.IChatService) *GroupHandler {
	return &GroupHandler{log: log, groups: groups, chat: chat}
}

// groupIDParam parses the {groupID} path segment; a malformed id ends the
// request with 400.
func groupIDParam(ctx iris.Context) (uuid.UUID, bool) {
	groupID, err := uuid.Parse(ctx.Params().Get("groupID"))
	if err != nil {
		ctx.StatusCode(iris.StatusBadRequest)
		ctx.JSON(iris.Map{"error": "invalid group id"})
		return uuid.Nil, false
	}
	return groupID, true
}

// requireMembership answers whether the caller belongs to the group and
// writes the refusal response when they do not.
func (h *GroupHandler) requireMembership(ctx iris.Context, userID, groupID uuid.UUID) bool {
	member, err := h.groups.IsMember(userID, groupID)
	if err != nil {
		h.log.Error("Membership check failed", "group_id", groupID, "error", err)
		writeError(ctx, err)
		return false
	}
	if !member {
		ctx.StatusCode(iris.StatusForbidden)
		ctx.JSON(iris.Map{"error": "not a member of this group"})
		return false
	}
	return true
}

type createGroupInput struct {
	Name string `json:"name"`
}

func (h *GroupHandler) Create(ctx iris.Context) {
	var input createGroupInput
	if err := ctx.ReadJSON(&input); err != nil || input.Name == "" {
		ctx.StatusCode(iris.StatusBadRequest)
		ctx.JSON(iris.Map{"error": "group name is required"})
		return
	}

	identity := identityFrom(ctx)
	group, err := h.groups.CreateGroup(input.Name, identity.UserID)
	if err != nil {
		writeError(ctx, err)
		return
	}

	h.log.Info("Group created", "group_id", group.ID, "name", group.Name, "creator", identity.UserID)
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"id": group.ID, "name": group.Name})
}

func (h *GroupHandler) ByName(ctx iris.Context) {
	group, err := h.groups.GroupByName(ctx.Params().Get("name"))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(iris.Map{"id": group.ID, "name": group.Name})
}

func (h *GroupHandler) Members(ctx iris.Context) {
	groupID, ok := groupIDParam(ctx)
	if !ok {
		return
	}
	if !h.requireMembership(ctx, identityFrom(ctx).UserID, groupID) {
		return
	}

	members, err := h.groups.Members(groupID)
	if err != nil {
		writeError(ctx, err)
		return
	}

	ctx.JSON(iris.Map{"members": lo.Map(members, func(m domain.Member, _ int) iris.Map {
		return iris.Map{"user_id": m.UserID, "username": m.Username, "joined_at": m.JoinedAt}
	})})
}

// Messages serves the group's persisted history, newest page first, with an
// opaque cursor for older pages.
func (h *GroupHandler) Messages(ctx iris.Context) {
	groupID, ok := groupIDParam(ctx)
	if !ok {
		return
	}
	if !h.requireMembership(ctx, identityFrom(ctx).UserID, groupID) {
		return
	}

	var cursor *string
	if raw := ctx.URLParam("cursor"); raw != "" {
		cursor = &raw
	}

	messages, next, err := h.chat.History(groupID, cursor)
	if err != nil {
		writeError(ctx, err)
		return
	}

	response := iris.Map{
		"messages": lo.Map(messages, func(m domain.ChatMessage, _ int) iris.Map {
			return iris.Map{
				"sender_id":           m.SenderID,
				"sender_display_name": m.SenderName,
				"content":             m.Content,
				"created_at":          m.CreatedAt,
			}
		}),
	}
	if next != nil {
		response["next_cursor"] = *next
	}
	ctx.JSON(response)
}

type inviteInput struct {
	UserID uuid.UUID `json:"user_id"`
}

func (h *GroupHandler) Invite(ctx iris.Context) {
	groupID, ok := groupIDParam(ctx)
	if !ok {
		return
	}

	var input inviteInput
	if err := ctx.ReadJSON(&input); err != nil || input.UserID == uuid.Nil {
		ctx.StatusCode(iris.StatusBadRequest)
		ctx.JSON(iris.Map{"error": "user_id is required"})
		return
	}

	identity := identityFrom(ctx)
	if err := h.groups.Invite(groupID, identity.UserID, input.UserID); err != nil {
		writeError(ctx, err)
		return
	}

	h.log.Info("Invitation sent", "group_id", groupID, "inviter", identity.UserID, "invitee", input.UserID)
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"status": "pending"})
}

func (h *GroupHandler) Leave(ctx iris.Context) {
	groupID, ok := groupIDParam(ctx)
	if !ok {
		return
	}

	identity := identityFrom(ctx)
	if err := h.groups.Leave(identity.UserID, groupID); err != nil {
		writeError(ctx, err)
		return
	}

	h.log.Info("User left group", "group_id", groupID, "user_id", identity.UserID)
	ctx.StatusCode(iris.StatusNoContent)
}
