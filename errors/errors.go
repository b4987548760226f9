package errors

import "fmt"

var (
	// Authentication / registration.
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity requirements")
	ErrInvalidCredentials = fmt.Errorf("invalid username or password")
	ErrUserAlreadyExists  = fmt.Errorf("username already exists")
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrTokenGeneration    = fmt.Errorf("failed to generate token")
	ErrInvalidToken       = fmt.Errorf("invalid or expired token")

	// Group lifecycle.
	ErrGroupNotFound      = fmt.Errorf("group not found")
	ErrNotAMember         = fmt.Errorf("user is not a member of this group")
	ErrAlreadyMember      = fmt.Errorf("user is already a member of this group")
	ErrSelfInvite         = fmt.Errorf("a user cannot invite themselves")
	ErrInvitationExists   = fmt.Errorf("an invitation for this user to this group already exists")
	ErrInvitationNotFound = fmt.Errorf("invitation not found or not pending for this user")

	// Runtime.
	ErrChannelSealed = fmt.Errorf("group channel is sealed")
	ErrWorkerPanic   = fmt.Errorf("worker panic")
)
