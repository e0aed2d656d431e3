package models

import (
	"context"
	"time"
)

const (
	EMERGENCY_ALERT      = "emergency"
	SAFE_ZONE_EXIT_ALERT = "safe_zone_exit"

	RECENT_ALERTS_LIMIT = 50
)

// Alert is append-only, IsRead is the only field that ever changes
type Alert struct {
	ID         uint      `json:"id" gorm:"primarykey"`
	GuardianID uint      `json:"guardian_id" gorm:"not null;index"`
	MemberID   *uint     `json:"member_id"`
	Type       string    `json:"type" gorm:"not null"`
	Message    string    `json:"message" gorm:"not null"`
	IsRead     bool      `json:"is_read" gorm:"default:false"`
	CreatedAt  time.Time `json:"created_at"`
}

type AlertWithMember struct {
	Alert
	MemberName *string `json:"member_name"`
}

func (s *Store) CreateAlert(ctx context.Context, alert *Alert) error {
	return s.withContext(ctx).Create(alert).Error
}

// RecentAlerts returns the guardian's newest alerts with the related member's name
func (s *Store) RecentAlerts(ctx context.Context, guardianID uint, limit int) ([]AlertWithMember, error) {
	if limit <= 0 || limit > RECENT_ALERTS_LIMIT {
		limit = RECENT_ALERTS_LIMIT
	}

	alerts := []AlertWithMember{}
	err := s.withContext(ctx).Table("alerts a").
		Select("a.*, fm.name AS member_name").
		Joins("LEFT JOIN family_members fm ON fm.id = a.member_id").
		Where("a.guardian_id = ?", guardianID).
		Order("a.created_at DESC, a.id DESC").
		Limit(limit).
		Scan(&alerts).Error

	if err != nil {
		return nil, err
	}

	return alerts, nil
}

func (s *Store) MarkAlertRead(ctx context.Context, guardianID, alertID uint) error {
	alert := Alert{}
	err := s.withContext(ctx).Scopes(guardianScope(guardianID)).First(&alert, "id = ?", alertID).Error
	if err != nil {
		return err
	}

	if alert.IsRead {
		return nil
	}

	return s.withContext(ctx).Model(&alert).Update("is_read", true).Error
}
