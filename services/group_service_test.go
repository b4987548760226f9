package services

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"chat-grid/domain"
	apperrors "chat-grid/errors"
	"chat-grid/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeGroupRepository struct {
	leaveDeleted bool
	leaveErr     error
	leftBy       []uuid.UUID
	members      []domain.Member
}

func (f *fakeGroupRepository) CreateGroupWithCreator(name string, _ uuid.UUID) (domain.Group, error) {
	return domain.Group{ID: uuid.New(), Name: name, CreatedAt: time.Now().UTC()}, nil
}

func (f *fakeGroupRepository) GroupByName(name string) (domain.Group, error) {
	return domain.Group{ID: uuid.New(), Name: name}, nil
}

func (f *fakeGroupRepository) IsMember(_, _ uuid.UUID) (bool, error) { return true, nil }

func (f *fakeGroupRepository) CountMembers(_ uuid.UUID) (int64, error) {
	return int64(len(f.members)), nil
}

func (f *fakeGroupRepository) Members(_ uuid.UUID) ([]domain.Member, error) {
	return f.members, nil
}

func (f *fakeGroupRepository) Leave(userID, _ uuid.UUID) (bool, error) {
	if f.leaveErr != nil {
		return false, f.leaveErr
	}
	f.leftBy = append(f.leftBy, userID)
	return f.leaveDeleted, nil
}

type fakeInvitationRepository struct {
	created   int
	createErr error
}

func (f *fakeInvitationRepository) Create(_, _, _ uuid.UUID) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created++
	return nil
}

func (f *fakeInvitationRepository) PendingFor(_ uuid.UUID) ([]domain.Invitation, error) {
	return nil, nil
}

func (f *fakeInvitationRepository) Accept(_, _ uuid.UUID) (domain.Group, error) {
	return domain.Group{}, nil
}

func (f *fakeInvitationRepository) Decline(_, _ uuid.UUID) error { return nil }

type fakeUsernameResolver struct {
	username   string
	resolveErr error
}

func (f *fakeUsernameResolver) CreateUser(_, _ string) (domain.User, error) {
	return domain.User{}, nil
}

func (f *fakeUsernameResolver) UserByUsername(_ string) (repositories.User, error) {
	return repositories.User{}, apperrors.ErrUserNotFound
}

func (f *fakeUsernameResolver) ResolveUsername(_ uuid.UUID) (string, error) {
	return f.username, f.resolveErr
}

type fakeNotifier struct {
	departures []string
}

func (f *fakeNotifier) NotifyDeparture(_ uuid.UUID, displayName string) {
	f.departures = append(f.departures, displayName)
}

func TestGroupService_Invite_Rejects_Self_Invite(t *testing.T) {
	req := require.New(t)
	invitations := &fakeInvitationRepository{}
	svc := NewGroupService(slog.Default(), &fakeGroupRepository{}, invitations,
		&fakeUsernameResolver{}, &fakeMessageRepository{}, &fakeNotifier{})

	userID := uuid.New()
	err := svc.Invite(uuid.New(), userID, userID)

	// The repository is never reached
	req.ErrorIs(err, apperrors.ErrSelfInvite)
	req.Zero(invitations.created)
}

func TestGroupService_Invite_Delegates_To_Repository(t *testing.T) {
	req := require.New(t)
	invitations := &fakeInvitationRepository{}
	svc := NewGroupService(slog.Default(), &fakeGroupRepository{}, invitations,
		&fakeUsernameResolver{}, &fakeMessageRepository{}, &fakeNotifier{})

	req.NoError(svc.Invite(uuid.New(), uuid.New(), uuid.New()))
	req.Equal(1, invitations.created)
}

func TestGroupService_Leave_Announces_Departure(t *testing.T) {
	req := require.New(t)
	groups := &fakeGroupRepository{}
	messages := &fakeMessageRepository{}
	notifier := &fakeNotifier{}
	svc := NewGroupService(slog.Default(), groups, &fakeInvitationRepository{},
		&fakeUsernameResolver{username: "bob"}, messages, notifier)

	userID := uuid.New()
	req.NoError(svc.Leave(userID, uuid.New()))

	req.Equal([]uuid.UUID{userID}, groups.leftBy)
	req.Equal([]string{"bob"}, notifier.departures)
	// The group survived, so its history stays
	req.Empty(messages.dropped)
}

func TestGroupService_Leave_Last_Member_Drops_History(t *testing.T) {
	req := require.New(t)
	groups := &fakeGroupRepository{leaveDeleted: true}
	messages := &fakeMessageRepository{}
	notifier := &fakeNotifier{}
	svc := NewGroupService(slog.Default(), groups, &fakeInvitationRepository{},
		&fakeUsernameResolver{username: "bob"}, messages, notifier)

	groupID := uuid.New()
	req.NoError(svc.Leave(uuid.New(), groupID))

	req.Equal([]uuid.UUID{groupID}, messages.dropped)
	req.Equal([]string{"bob"}, notifier.departures)
}

func TestGroupService_Leave_Non_Member_Does_Not_Announce(t *testing.T) {
	req := require.New(t)
	groups := &fakeGroupRepository{leaveErr: apperrors.ErrNotAMember}
	notifier := &fakeNotifier{}
	svc := NewGroupService(slog.Default(), groups, &fakeInvitationRepository{},
		&fakeUsernameResolver{username: "bob"}, &fakeMessageRepository{}, notifier)

	err := svc.Leave(uuid.New(), uuid.New())

	req.ErrorIs(err, apperrors.ErrNotAMember)
	req.Empty(notifier.departures)
}

func TestGroupService_Leave_Unknown_User_Fails_Fast(t *testing.T) {
	req := require.New(t)
	groups := &fakeGroupRepository{}
	svc := NewGroupService(slog.Default(), groups, &fakeInvitationRepository{},
		&fakeUsernameResolver{resolveErr: apperrors.ErrUserNotFound},
		&fakeMessageRepository{}, &fakeNotifier{})

	err := svc.Leave(uuid.New(), uuid.New())

	req.ErrorIs(err, apperrors.ErrUserNotFound)
	req.Empty(groups.leftBy)
}

func TestGroupService_Leave_Tolerates_History_Drop_Failure(t *testing.T) {
	req := require.New(t)
	groups := &fakeGroupRepository{leaveDeleted: true}
	messages := &fakeMessageRepository{}
	notifier := &fakeNotifier{}
	svc := NewGroupService(slog.Default(), groups, &fakeInvitationRepository{},
		&fakeUsernameResolver{username: "bob"}, messages, notifier)

	// A failing history drop must not fail the leave itself
	messagesWithErr := &failingDropRepository{fakeMessageRepository: messages}
	svc.messages = messagesWithErr

	req.NoError(svc.Leave(uuid.New(), uuid.New()))
	req.Equal([]string{"bob"}, notifier.departures)
}

type failingDropRepository struct {
	*fakeMessageRepository
}

func (f *failingDropRepository) DropGroup(_ uuid.UUID) error {
	return errors.New("badger unavailable")
}
