//go:generate go run go.uber.org/mock/mockgen -source=group.go -destination=../mocks/mock_group_repository.go -package=mocks
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

type IGroupRepository interface {
	CreateGroupWithCreator(name string, creatorID uuid.UUID) (domain.Group, error)
	GroupByName(name string) (domain.Group, error)
	IsMember(userID, groupID uuid.UUID) (bool, error)
	CountMembers(groupID uuid.UUID) (int64, error)
	Members(groupID uuid.UUID) ([]domain.Member, error)
	Leave(userID, groupID uuid.UUID) (groupDeleted bool, err error)
}

type GroupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) IGroupRepository {
	return &GroupRepository{db: db}
}

// CreateGroupWithCreator inserts the group and its creator's membership in a
// single transaction; either both rows exist afterwards or neither does.
func (r *GroupRepository) CreateGroupWithCreator(name string, creatorID uuid.UUID) (domain.Group, error) {
	record := Group{ID: uuid.New(), Name: name, CreatedAt: time.Now().UTC()}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		membership := GroupMember{
			GroupID:   record.ID,
			UserID:    creatorID,
			CreatedAt: time.Now().UTC(),
		}
		return tx.Create(&membership).Error
	})
	if err != nil {
		return domain.Group{}, err
	}
	return toDomainGroup(record), nil
}

func (r *GroupRepository) GroupByName(name string) (domain.Group, error) {
	var record Group
	err := r.db.Where("name = ?", name).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Group{}, apperrors.ErrGroupNotFound
	}
	if err != nil {
		return domain.Group{}, err
	}
	return toDomainGroup(record), nil
}

func (r *GroupRepository) IsMember(userID, groupID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.Model(&GroupMember{}).
		Where("user_id = ? AND group_id = ?", userID, groupID).
		Count(&count).Error
	return count > 0, err
}

func (r *GroupRepository) CountMembers(groupID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&GroupMember{}).
		Where("group_id = ?", groupID).
		Count(&count).Error
	return count, err
}

type memberRow struct {
	UserID    uuid.UUID
	Username  string
	CreatedAt time.Time
}

func (r *GroupRepository) Members(groupID uuid.UUID) ([]domain.Member, error) {
	var rows []memberRow
	err := r.db.Model(&GroupMember{}).
		Select("group_members.user_id, users.username, group_members.created_at").
		Joins("JOIN users ON users.id = group_members.user_id").
		Where("group_members.group_id = ?", groupID).
		Order("group_members.created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	return lo.Map(rows, func(row memberRow, _ int) domain.Member {
		return domain.Member{UserID: row.UserID, Username: row.Username, JoinedAt: row.CreatedAt}
	}), nil
}

// Leave deletes the caller's membership row and, when that was the last one,
// the group record itself, all in one transaction. A caller who is not a
// member gets ErrNotAMember and no state changes.
func (r *GroupRepository) Leave(userID, groupID uuid.UUID) (bool, error) {
	var groupDeleted bool
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND group_id = ?", userID, groupID).
			Delete(&GroupMember{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrNotAMember
		}

		var remaining int64
		if err := tx.Model(&GroupMember{}).
			Where("group_id = ?", groupID).
			Count(&remaining).Error; err != nil {
			return err
		}
		if remaining > 0 {
			return nil
		}

		groupDeleted = true
		if err := tx.Where("group_id = ?", groupID).Delete(&GroupInvitation{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", groupID).Delete(&Group{}).Error
	})
	return groupDeleted, err
}

func toDomainGroup(record Group) domain.Group {
	return domain.Group{
		ID:        record.ID,
		Name:      record.Name,
		CreatedAt: record.CreatedAt,
	}
}
