package services

import (
	"testing"
	"time"

	"chat-grid/auth"
	"chat-grid/domain"
	apperrors "chat-grid/errors"
	"chat-grid/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeUserRepository struct {
	records map[string]repositories.User
}

func newFakeUserRepository() *fakeUserRepository {
	return &fakeUserRepository{records: make(map[string]repositories.User)}
}

func (f *fakeUserRepository) CreateUser(username, passwordHash string) (domain.User, error) {
	if _, exists := f.records[username]; exists {
		return domain.User{}, apperrors.ErrUserAlreadyExists
	}
	record := repositories.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	f.records[username] = record
	return domain.User{ID: record.ID, Username: record.Username, CreatedAt: record.CreatedAt}, nil
}

func (f *fakeUserRepository) UserByUsername(username string) (repositories.User, error) {
	record, ok := f.records[username]
	if !ok {
		return repositories.User{}, apperrors.ErrUserNotFound
	}
	return record, nil
}

func (f *fakeUserRepository) ResolveUsername(id uuid.UUID) (string, error) {
	for _, record := range f.records {
		if record.ID == id {
			return record.Username, nil
		}
	}
	return "", apperrors.ErrUserNotFound
}

func newTestAuthService(users repositories.IUserRepository) (IAuthService, *auth.TokenManager) {
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	return NewAuthService(users, tokens), tokens
}

func TestAuthService_Register_Stores_Hash_Not_Password(t *testing.T) {
	req := require.New(t)
	users := newFakeUserRepository()
	svc, _ := newTestAuthService(users)

	user, err := svc.Register("alice", "Sup3rSecret")
	req.NoError(err)
	req.Equal("alice", user.Username)

	record := users.records["alice"]
	req.NotEqual("Sup3rSecret", record.PasswordHash)

	match, err := auth.ComparePassword("Sup3rSecret", record.PasswordHash)
	req.NoError(err)
	req.True(match)
}

func TestAuthService_Register_Rejects_Weak_Password(t *testing.T) {
	req := require.New(t)
	users := newFakeUserRepository()
	svc, _ := newTestAuthService(users)

	// Too short and no digit
	_, err := svc.Register("alice", "weak")

	req.ErrorIs(err, apperrors.ErrInvalidPassword)
	req.Empty(users.records)
}

func TestAuthService_Register_Duplicate_Username(t *testing.T) {
	req := require.New(t)
	svc, _ := newTestAuthService(newFakeUserRepository())

	_, err := svc.Register("alice", "Sup3rSecret")
	req.NoError(err)

	_, err = svc.Register("alice", "An0therSecret")
	req.ErrorIs(err, apperrors.ErrUserAlreadyExists)
}

func TestAuthService_Login_Issues_Valid_Token(t *testing.T) {
	req := require.New(t)
	svc, tokens := newTestAuthService(newFakeUserRepository())

	registered, err := svc.Register("alice", "Sup3rSecret")
	req.NoError(err)

	user, token, err := svc.Login("alice", "Sup3rSecret")
	req.NoError(err)
	req.Equal(registered.ID, user.ID)
	req.NotEmpty(token)

	identity, err := tokens.Validate(string(token))
	req.NoError(err)
	req.Equal(registered.ID, identity.UserID)
	req.Equal("alice", identity.Username)
}

func TestAuthService_Login_Wrong_Password(t *testing.T) {
	req := require.New(t)
	svc, _ := newTestAuthService(newFakeUserRepository())

	_, err := svc.Register("alice", "Sup3rSecret")
	req.NoError(err)

	// The caller cannot tell a bad password from an unknown user
	_, _, err = svc.Login("alice", "WrongPassw0rd")
	req.ErrorIs(err, apperrors.ErrInvalidCredentials)
}

func TestAuthService_Login_Unknown_User(t *testing.T) {
	svc, _ := newTestAuthService(newFakeUserRepository())

	_, _, err := svc.Login("nobody", "Sup3rSecret")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}
