package models

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Location is a single GPS reading for a family member. Readings are append-only,
// a member's current location is the reading with the latest RecordedAt.
type Location struct {
	ID           uint      `json:"id" gorm:"primarykey"`
	MemberID     uint      `json:"member_id" gorm:"not null;index:idx_member_recorded_at"`
	Latitude     float64   `json:"latitude" gorm:"not null"`
	Longitude    float64   `json:"longitude" gorm:"not null"`
	Address      *string   `json:"address"`
	BatteryLevel *int      `json:"battery_level"`
	RecordedAt   time.Time `json:"timestamp" gorm:"not null;index:idx_member_recorded_at"`
}

// MemberLocation is an active member joined with their most recent reading.
// The location fields are nil when the member has no readings yet.
type MemberLocation struct {
	MemberID     uint       `json:"member_id"`
	Name         string     `json:"name"`
	Relationship string     `json:"relationship,omitempty"`
	AvatarURL    string     `json:"avatar_url,omitempty"`
	LocationID   *uint      `json:"location_id"`
	Latitude     *float64   `json:"latitude"`
	Longitude    *float64   `json:"longitude"`
	Address      *string    `json:"address"`
	BatteryLevel *int       `json:"battery_level"`
	RecordedAt   *time.Time `json:"timestamp"`
}

// latestLocationJoin picks one reading per member: highest recorded_at, then highest id
const latestLocationJoin = `LEFT JOIN locations l ON l.id = (
	SELECT l2.id FROM locations l2 WHERE l2.member_id = fm.id
	ORDER BY l2.recorded_at DESC, l2.id DESC LIMIT 1)`

func (s *Store) AddLocation(ctx context.Context, location *Location) error {
	if location.RecordedAt.IsZero() {
		location.RecordedAt = time.Now().UTC()
	}

	return s.withContext(ctx).Create(location).Error
}

func (s *Store) FindLocation(ctx context.Context, id uint) (*Location, error) {
	location := Location{}
	err := s.withContext(ctx).First(&location, "id = ?", id).Error
	if err != nil {
		return nil, err
	}

	return &location, nil
}

// PreviousLocation returns the member's reading recorded just before 'location',
// or nil if 'location' is the member's first reading.
func (s *Store) PreviousLocation(ctx context.Context, location *Location) (*Location, error) {
	previous := Location{}
	err := s.withContext(ctx).
		Where("member_id = ? AND id <> ?", location.MemberID, location.ID).
		Where("recorded_at < ? OR (recorded_at = ? AND id < ?)",
			location.RecordedAt, location.RecordedAt, location.ID).
		Order("recorded_at DESC, id DESC").
		First(&previous).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &previous, nil
}

// CurrentLocations returns every active member of the guardian with their latest reading
func (s *Store) CurrentLocations(ctx context.Context, guardianID uint) ([]MemberLocation, error) {
	locations := []MemberLocation{}

	err := s.withContext(ctx).Table("family_members fm").
		Select(`fm.id AS member_id, fm.name AS name, fm.relationship AS relationship,
			fm.avatar_url AS avatar_url, l.id AS location_id, l.latitude AS latitude,
			l.longitude AS longitude, l.address AS address, l.battery_level AS battery_level,
			l.recorded_at AS recorded_at`).
		Joins(latestLocationJoin).
		Where("fm.guardian_id = ? AND fm.is_active = ?", guardianID, true).
		Order("fm.id").
		Scan(&locations).Error

	if err != nil {
		return nil, err
	}

	return locations, nil
}

// LocationHistory returns a page of the member's readings, newest first
func (s *Store) LocationHistory(ctx context.Context, guardianID, memberID uint, page int) ([]Location, *Paging, error) {
	var total int64
	locations := []Location{}

	_, err := s.FindFamilyMember(ctx, guardianID, memberID)
	if err != nil {
		return nil, nil, err
	}

	err = s.withContext(ctx).Model(&Location{}).Where("member_id = ?", memberID).Count(&total).Error
	if err != nil {
		return nil, nil, err
	}

	err = s.withContext(ctx).Scopes(paginate(page, MAX_PAGE_SIZE)).
		Where("member_id = ?", memberID).
		Order("recorded_at DESC, id DESC").
		Find(&locations).Error
	if err != nil {
		return nil, nil, err
	}

	return locations, newPaging(int64(page), MAX_PAGE_SIZE, total), nil
}
