//go:generate go run go.uber.org/mock/mockgen -source=group_service.go -destination=../mocks/mock_group_service.go -package=mocks
package services

import (
	"log/slog"

	"chat-grid/domain"
	apperrors "chat-grid/errors"
	"chat-grid/repositories"

	"github.com/google/uuid"
)

type IGroupService interface {
	CreateGroup(name string, creatorID uuid.UUID) (domain.Group, error)
	GroupByName(name string) (domain.Group, error)
	IsMember(userID, groupID uuid.UUID) (bool, error)
	Members(groupID uuid.UUID) ([]domain.Member, error)
	Invite(groupID, inviterID, invitedUserID uuid.UUID) error
	PendingInvitations(userID uuid.UUID) ([]domain.Invitation, error)
	AcceptInvitation(invitationID, userID uuid.UUID) (domain.Group, error)
	DeclineInvitation(invitationID, userID uuid.UUID) error
	Leave(userID uuid.UUID, groupID uuid.UUID) error
}

// DepartureNotifier is the slice of the chat service the lifecycle manager
// needs: fire-and-forget system announcements.
type DepartureNotifier interface {
	NotifyDeparture(groupID uuid.UUID, displayName string)
}

// GroupService orchestrates membership mutations that affect chat topology.
// It never touches live channels directly; announcements go through the
// notifier and channel cleanup stays connection-driven.
type GroupService struct {
	log         *slog.Logger
	groups      repositories.IGroupRepository
	invitations repositories.IInvitationRepository
	users       repositories.IUserRepository
	messages    repositories.IMessageRepository
	notifier    DepartureNotifier
}

func NewGroupService(log *slog.Logger, groups repositories.IGroupRepository,
	invitations repositories.IInvitationRepository, users repositories.IUserRepository,
	messages repositories.IMessageRepository, notifier DepartureNotifier) *GroupService {
	return &GroupService{
		log:         log,
		groups:      groups,
		invitations: invitations,
		users:       users,
		messages:    messages,
		notifier:    notifier,
	}
}

// CreateGroup persists the group and its creator's membership atomically.
// No channel work happens here; channels are created lazily on first
// connection.
func (s *GroupService) CreateGroup(name string, creatorID uuid.UUID) (domain.Group, error) {
	return s.groups.CreateGroupWithCreator(name, creatorID)
}

func (s *GroupService) GroupByName(name string) (domain.Group, error) {
	return s.groups.GroupByName(name)
}

func (s *GroupService) IsMember(userID, groupID uuid.UUID) (bool, error) {
	return s.groups.IsMember(userID, groupID)
}

func (s *GroupService) Members(groupID uuid.UUID) ([]domain.Member, error) {
	return s.groups.Members(groupID)
}

func (s *GroupService) Invite(groupID, inviterID, invitedUserID uuid.UUID) error {
	if inviterID == invitedUserID {
		return apperrors.ErrSelfInvite
	}
	return s.invitations.Create(groupID, inviterID, invitedUserID)
}

func (s *GroupService) PendingInvitations(userID uuid.UUID) ([]domain.Invitation, error) {
	return s.invitations.PendingFor(userID)
}

func (s *GroupService) AcceptInvitation(invitationID, userID uuid.UUID) (domain.Group, error) {
	return s.invitations.Accept(invitationID, userID)
}

func (s *GroupService) DeclineInvitation(invitationID, userID uuid.UUID) error {
	return s.invitations.Decline(invitationID, userID)
}

// Leave removes the caller's membership; when the group empties out, the
// group record and its message history are discarded. After the removal
// commits, a departure announcement is published to the live channel if one
// exists.
func (s *GroupService) Leave(userID uuid.UUID, groupID uuid.UUID) error {
	username, err := s.users.ResolveUsername(userID)
	if err != nil {
		return err
	}

	groupDeleted, err := s.groups.Leave(userID, groupID)
	if err != nil {
		return err
	}

	if groupDeleted {
		if err := s.messages.DropGroup(groupID); err != nil {
			// The relational state is already consistent; orphaned history
			// only costs disk until the next manual sweep.
			s.log.Warn("Failed to drop message history", "group_id", groupID, "error", err)
		}
		s.log.Info("Group deleted, last member left", "group_id", groupID)
	}

	s.notifier.NotifyDeparture(groupID, username)
	return nil
}
