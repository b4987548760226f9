// Package repositories is the persistence gateway of the service.
// Relational entities (users, groups, memberships, invitations) live in
// PostgreSQL behind gorm; the message history lives in BadgerDB with
// time-ordered keys.
package repositories

import (
	"time"

	"github.com/google/uuid"
)

// User is the relational representation of an account.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username     string    `gorm:"size:32;uniqueIndex;not null"`
	PasswordHash string    `gorm:"size:256;not null"`
	CreatedAt    time.Time
}

type Group struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"size:80;uniqueIndex;not null"`
	CreatedAt time.Time
}

// GroupMember is one (user, group) membership row.
type GroupMember struct {
	GroupID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time
}

// GroupInvitation tracks the pending -> accepted|declined state machine.
type GroupInvitation struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	GroupID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_group_invitee"`
	InviterID     uuid.UUID `gorm:"type:uuid;not null"`
	InvitedUserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_group_invitee"`
	Status        string    `gorm:"size:16;not null;index"`
	CreatedAt     time.Time
}
