//go:generate go run go.uber.org/mock/mockgen -source=auth_service.go -destination=../mocks/mock_auth_service.go -package=mocks
package services

import (
	"fmt"

	"chat-grid/auth"
	"chat-grid/domain"
	apperrors "chat-grid/errors"
	"chat-grid/repositories"
)

type IAuthService interface {
	Register(username, password string) (domain.User, error)
	Login(username, password string) (domain.User, Token, error)
}

type Token string

type AuthService struct {
	users  repositories.IUserRepository
	tokens *auth.TokenManager
}

func NewAuthService(users repositories.IUserRepository, tokens *auth.TokenManager) IAuthService {
	return &AuthService{users: users, tokens: tokens}
}

func (s *AuthService) Register(username, password string) (domain.User, error) {
	valReq := auth.RegisterRequest{
		Username: username,
		Password: password,
	}

	// Validate business rules before any expensive cryptographic operation.
	if err := auth.ValidateRegister(valReq); err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidPassword, err)
	}

	// Hashing happens in the service layer to keep the repository unaware of
	// plain passwords.
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hashing failed: %w", err)
	}

	return s.users.CreateUser(username, hashedPassword)
}

func (s *AuthService) Login(username, password string) (domain.User, Token, error) {
	record, err := s.users.UserByUsername(username)
	if err != nil {
		// Generic error to prevent user enumeration attacks.
		return domain.User{}, "", apperrors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, record.PasswordHash)
	if err != nil || !match {
		return domain.User{}, "", apperrors.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(record.ID, record.Username)
	if err != nil {
		return domain.User{}, "", apperrors.ErrTokenGeneration
	}

	user := domain.User{ID: record.ID, Username: record.Username, CreatedAt: record.CreatedAt}
	return user, Token(token), nil
}
