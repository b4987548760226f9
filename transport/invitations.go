package transport

import (
	"log/slog"

	"chat-grid/domain"
	"chat-grid/services"

	"github.com/google/uuid"
	"github.com/kataras/iris/v12"
	"github.com/samber/lo"
)

type InvitationHandler struct {
	log    *slog.Logger
	groups services.IGroupService
}

func NewInvitationHandler(log *slog.Logger, groups services.IGroupService) *InvitationHandler {
	return &InvitationHandler{log: log, groups: groups}
}

func invitationIDParam(ctx iris.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Params().Get("invitationID"))
	if err != nil {
		ctx.StatusCode(iris.StatusBadRequest)
		ctx.JSON(iris.Map{"error": "invalid invitation id"})
		return uuid.Nil, false
	}
	return id, true
}

// Pending lists the caller's open invitations.
func (h *InvitationHandler) Pending(ctx iris.Context) {
	invitations, err := h.groups.PendingInvitations(identityFrom(ctx).UserID)
	if err != nil {
		writeError(ctx, err)
		return
	}

	ctx.JSON(iris.Map{"invitations": lo.Map(invitations, func(inv domain.Invitation, _ int) iris.Map {
		return iris.Map{
			"id":         inv.ID,
			"group_id":   inv.GroupID,
			"group_name": inv.GroupName,
			"inviter":    inv.InviterUsername,
		}
	})})
}

func (h *InvitationHandler) Accept(ctx iris.Context) {
	invitationID, ok := invitationIDParam(ctx)
	if !ok {
		return
	}

	identity := identityFrom(ctx)
	group, err := h.groups.AcceptInvitation(invitationID, identity.UserID)
	if err != nil {
		writeError(ctx, err)
		return
	}

	h.log.Info("Invitation accepted", "invitation_id", invitationID, "user_id", identity.UserID, "group_id", group.ID)
	ctx.JSON(iris.Map{"group_id": group.ID, "group_name": group.Name})
}

func (h *InvitationHandler) Decline(ctx iris.Context) {
	invitationID, ok := invitationIDParam(ctx)
	if !ok {
		return
	}

	if err := h.groups.DeclineInvitation(invitationID, identityFrom(ctx).UserID); err != nil {
		writeError(ctx, err)
		return
	}

	ctx.StatusCode(iris.StatusNoContent)
}
