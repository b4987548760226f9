//go:generate go run go.uber.org/mock/mockgen -source=invitation.go -destination=../mocks/mock_invitation_repository.go -package=mocks
package repositories

import (
	"errors"
	"time"

	"chat-grid/domain"
	apperrors "chat-grid/errors"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

type IInvitationRepository interface {
	Create(groupID, inviterID, invitedUserID uuid.UUID) error
	PendingFor(userID uuid.UUID) ([]domain.Invitation, error)
	Accept(invitationID, userID uuid.UUID) (domain.Group, error)
	Decline(invitationID, userID uuid.UUID) error
}

type InvitationRepository struct {
	db *gorm.DB
}

func NewInvitationRepository(db *gorm.DB) IInvitationRepository {
	return &InvitationRepository{db: db}
}

// Create checks the membership preconditions and inserts the pending
// invitation in one transaction: the inviter must be a member, the invitee
// must not be, and only one open invitation may exist per (group, invitee).
func (r *InvitationRepository) Create(groupID, inviterID, invitedUserID uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var inviterRows int64
		if err := tx.Model(&GroupMember{}).
			Where("user_id = ? AND group_id = ?", inviterID, groupID).
			Count(&inviterRows).Error; err != nil {
			return err
		}
		if inviterRows == 0 {
			return apperrors.ErrNotAMember
		}

		var inviteeRows int64
		if err := tx.Model(&GroupMember{}).
			Where("user_id = ? AND group_id = ?", invitedUserID, groupID).
			Count(&inviteeRows).Error; err != nil {
			return err
		}
		if inviteeRows > 0 {
			return apperrors.ErrAlreadyMember
		}

		record := GroupInvitation{
			ID:            uuid.New(),
			GroupID:       groupID,
			InviterID:     inviterID,
			InvitedUserID: invitedUserID,
			Status:        string(domain.InvitationPending),
			CreatedAt:     time.Now().UTC(),
		}
		if err := tx.Create(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.ErrInvitationExists
			}
			return err
		}
		return nil
	})
}

type invitationRow struct {
	ID              uuid.UUID
	GroupID         uuid.UUID
	GroupName       string
	InviterUsername string
}

func (r *InvitationRepository) PendingFor(userID uuid.UUID) ([]domain.Invitation, error) {
	var rows []invitationRow
	err := r.db.Model(&GroupInvitation{}).
		Select("group_invitations.id, groups.id AS group_id, groups.name AS group_name, users.username AS inviter_username").
		Joins("JOIN groups ON groups.id = group_invitations.group_id").
		Joins("JOIN users ON users.id = group_invitations.inviter_id").
		Where("group_invitations.invited_user_id = ? AND group_invitations.status = ?",
			userID, string(domain.InvitationPending)).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	return lo.Map(rows, func(row invitationRow, _ int) domain.Invitation {
		return domain.Invitation{
			ID:              row.ID,
			GroupID:         row.GroupID,
			GroupName:       row.GroupName,
			InviterUsername: row.InviterUsername,
			Status:          domain.InvitationPending,
		}
	}), nil
}

// Accept flips the invitation to accepted and inserts the membership row as
// one atomic unit. Accepting an invitation that is not pending for this user
// is ErrInvitationNotFound.
func (r *InvitationRepository) Accept(invitationID, userID uuid.UUID) (domain.Group, error) {
	var group Group
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var invitation GroupInvitation
		err := tx.Where("id = ? AND invited_user_id = ? AND status = ?",
			invitationID, userID, string(domain.InvitationPending)).
			First(&invitation).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrInvitationNotFound
		}
		if err != nil {
			return err
		}

		if err := tx.Model(&GroupInvitation{}).
			Where("id = ?", invitationID).
			Update("status", string(domain.InvitationAccepted)).Error; err != nil {
			return err
		}

		membership := GroupMember{
			GroupID:   invitation.GroupID,
			UserID:    userID,
			CreatedAt: time.Now().UTC(),
		}
		if err := tx.Create(&membership).Error; err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}

		return tx.Where("id = ?", invitation.GroupID).First(&group).Error
	})
	if err != nil {
		return domain.Group{}, err
	}
	return toDomainGroup(group), nil
}

func (r *InvitationRepository) Decline(invitationID, userID uuid.UUID) error {
	res := r.db.Model(&GroupInvitation{}).
		Where("id = ? AND invited_user_id = ? AND status = ?",
			invitationID, userID, string(domain.InvitationPending)).
		Update("status", string(domain.InvitationDeclined))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrInvitationNotFound
	}
	return nil
}
