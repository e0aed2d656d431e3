package models

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrMemberNotFound = errors.New("family member not found")

// FamilyMember belongs to exactly one guardian. Members are never deleted,
// only deactivated.
type FamilyMember struct {
	BaseModel
	GuardianID   uint   `json:"guardian_id" gorm:"not null;index"`
	Name         string `json:"name" validate:"required"`
	Phone        string `json:"phone,omitempty" validate:"omitempty,e164"`
	Email        string `json:"email,omitempty" validate:"omitempty,email"`
	Relationship string `json:"relationship,omitempty"`
	AvatarURL    string `json:"avatar_url,omitempty" validate:"omitempty,url"`
	IsActive     bool   `json:"is_active" gorm:"default:true"`
}

func (s *Store) AddFamilyMember(ctx context.Context, guardianID uint, member *FamilyMember) error {
	member.GuardianID = guardianID
	member.IsActive = true
	return s.withContext(ctx).Create(member).Error
}

func (s *Store) ActiveFamilyMembers(ctx context.Context, guardianID uint) ([]FamilyMember, error) {
	members := []FamilyMember{}
	err := s.withContext(ctx).Scopes(guardianScope(guardianID)).
		Where("is_active = ?", true).Order("id").Find(&members).Error
	if err != nil {
		return nil, err
	}

	return members, nil
}

// FindFamilyMember returns ErrMemberNotFound when the member doesn't exist
// or belongs to another guardian.
func (s *Store) FindFamilyMember(ctx context.Context, guardianID, memberID uint) (*FamilyMember, error) {
	member := FamilyMember{}
	err := s.withContext(ctx).Scopes(guardianScope(guardianID)).First(&member, "id = ?", memberID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMemberNotFound
	}

	if err != nil {
		return nil, err
	}

	return &member, nil
}

func (s *Store) DeactivateFamilyMember(ctx context.Context, guardianID, memberID uint) error {
	member, err := s.FindFamilyMember(ctx, guardianID, memberID)
	if err != nil {
		return err
	}

	return s.withContext(ctx).Model(member).Update("is_active", false).Error
}
