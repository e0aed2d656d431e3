package models

import (
	"context"
	"encoding/json"
	"time"
)

const SUMMARY_INSIGHT = "summary"

// MemberActivity summarises an active member's location history
type MemberActivity struct {
	MemberID        uint       `json:"member_id"`
	Name            string     `json:"name"`
	LocationUpdates int64      `json:"location_updates"`
	AvgBattery      *float64   `json:"avg_battery"`
	LastSeen        *time.Time `json:"last_seen"`
}

// Insight is a stored snapshot of computed insights, Data holds the JSON document
type Insight struct {
	ID          uint      `json:"id" gorm:"primarykey"`
	GuardianID  uint      `json:"guardian_id" gorm:"not null;index"`
	InsightType string    `json:"insight_type" gorm:"not null"`
	Data        string    `json:"data" gorm:"type:text;not null"`
	CreatedAt   time.Time `json:"created_at"`
}

// FamilyActivity returns per active member: number of readings, average battery
// level (nil without battery data) & time of the latest reading (nil without readings)
func (s *Store) FamilyActivity(ctx context.Context, guardianID uint) ([]MemberActivity, error) {
	activity := []MemberActivity{}

	err := s.withContext(ctx).Table("family_members fm").
		Select(`fm.id AS member_id, fm.name AS name,
			(SELECT COUNT(*) FROM locations c WHERE c.member_id = fm.id) AS location_updates,
			(SELECT AVG(b.battery_level) FROM locations b WHERE b.member_id = fm.id) AS avg_battery,
			l.recorded_at AS last_seen`).
		Joins(latestLocationJoin).
		Where("fm.guardian_id = ? AND fm.is_active = ?", guardianID, true).
		Order("fm.id").
		Scan(&activity).Error

	if err != nil {
		return nil, err
	}

	return activity, nil
}

func (s *Store) CreateInsight(ctx context.Context, guardianID uint, insightType string, data interface{}) (*Insight, error) {
	dataAsJson, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	insight := &Insight{GuardianID: guardianID, InsightType: insightType, Data: string(dataAsJson)}
	err = s.withContext(ctx).Create(insight).Error
	if err != nil {
		return nil, err
	}

	return insight, nil
}

func (s *Store) FetchInsights(ctx context.Context, guardianID uint, page int) ([]Insight, *Paging, error) {
	var total int64
	insights := []Insight{}

	err := s.withContext(ctx).Model(&Insight{}).Scopes(guardianScope(guardianID)).Count(&total).Error
	if err != nil {
		return nil, nil, err
	}

	err = s.withContext(ctx).Scopes(guardianScope(guardianID), paginate(page, MIN_PAGE_SIZE)).
		Order("id DESC").Find(&insights).Error
	if err != nil {
		return nil, nil, err
	}

	return insights, newPaging(int64(page), MIN_PAGE_SIZE, total), nil
}
