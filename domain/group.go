// Package domain contains core concepts of the group-chat system.
// This file defines groups, memberships and invitations.
// No runtime, network, or storage logic should be added here.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type Group struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

type Member struct {
	UserID   uuid.UUID
	Username string
	JoinedAt time.Time
}

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

type Invitation struct {
	ID              uuid.UUID
	GroupID         uuid.UUID
	GroupName       string
	InviterUsername string
	Status          InvitationStatus
}
