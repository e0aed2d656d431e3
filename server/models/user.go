package models

import (
	"context"
	"fmt"

	"github.com/Daskott/safenest/server/auth"
)

const (
	ADMIN_USER_ROLE    = "admin"
	GUARDIAN_USER_ROLE = "guardian"
)

var allFieldsExceptPassword = []string{"id",
	"name",
	"email",
	"phone_number",
	"role",
	"created_at",
	"updated_at",
}

// User is a guardian account. Family members, safe zones & alerts all hang off of it.
type User struct {
	BaseModel
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required,email" gorm:"not null;unique"`
	Password    string `json:"password,omitempty" validate:"required,password" gorm:"not null"`
	PhoneNumber string `json:"phone_number,omitempty" validate:"omitempty,e164"`
	Role        string `json:"role" gorm:"default:guardian"`
}

func (user *User) IsAdmin() bool {
	return user.Role == ADMIN_USER_ROLE
}

// CreateUser hashes the user's password & inserts the record.
// The very first user gets the admin role.
func (s *Store) CreateUser(ctx context.Context, user *User) error {
	passwordHash, err := auth.HashPassword(user.Password)
	if err != nil {
		return err
	}
	user.Password = passwordHash

	exists, err := s.AtLeastOneUserExists(ctx)
	if err != nil {
		return err
	}

	user.Role = GUARDIAN_USER_ROLE
	if !exists {
		user.Role = ADMIN_USER_ROLE
	}

	return s.withContext(ctx).Create(user).Error
}

func (s *Store) FindUserBy(ctx context.Context, field string, value interface{}) (*User, error) {
	user := User{}
	err := s.withContext(ctx).Select(allFieldsExceptPassword).
		First(&user, fmt.Sprintf("%v = ?", field), value).Error
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// FindUserWithPassword returns the full user record, password hash included.
// Only used to verify credentials.
func (s *Store) FindUserWithPassword(ctx context.Context, email string) (*User, error) {
	user := User{}
	err := s.withContext(ctx).First(&user, "email = ?", email).Error
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (s *Store) AtLeastOneUserExists(ctx context.Context) (bool, error) {
	var count int64
	err := s.withContext(ctx).Model(&User{}).Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// GuardianIDs returns the ids of every registered user
func (s *Store) GuardianIDs(ctx context.Context) ([]uint, error) {
	ids := []uint{}
	err := s.withContext(ctx).Model(&User{}).Order("id").Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}

	return ids, nil
}
