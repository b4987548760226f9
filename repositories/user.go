//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"errors"
	"time"

	"chat-grid/domain"
	apperrors "chat-grid/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type IUserRepository interface {
	CreateUser(username, passwordHash string) (domain.User, error)
	UserByUsername(username string) (User, error)
	ResolveUsername(id uuid.UUID) (string, error)
}

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) IUserRepository {
	return &UserRepository{db: db}
}

// CreateUser persists a new account. A duplicate username surfaces as
// ErrUserAlreadyExists.
func (r *UserRepository) CreateUser(username, passwordHash string) (domain.User, error) {
	record := User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := r.db.Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.User{}, apperrors.ErrUserAlreadyExists
		}
		return domain.User{}, err
	}
	return toDomainUser(record), nil
}

// UserByUsername returns the full record, password hash included; callers
// outside the auth flow should prefer ResolveUsername.
func (r *UserRepository) UserByUsername(username string) (User, error) {
	var record User
	err := r.db.Where("username = ?", username).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, apperrors.ErrUserNotFound
	}
	return record, err
}

func (r *UserRepository) ResolveUsername(id uuid.UUID) (string, error) {
	var record User
	err := r.db.Select("username").Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", apperrors.ErrUserNotFound
	}
	return record.Username, err
}

func toDomainUser(record User) domain.User {
	return domain.User{
		ID:        record.ID,
		Username:  record.Username,
		CreatedAt: record.CreatedAt,
	}
}
