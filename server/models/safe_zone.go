package models

import "context"

const DEFAULT_SAFE_ZONE_RADIUS = 100

// SafeZone is a named circular geofence, radius in meters
type SafeZone struct {
	BaseModel
	GuardianID uint    `json:"guardian_id" gorm:"not null;index"`
	Name       string  `json:"name"`
	Latitude   float64 `json:"latitude" gorm:"not null"`
	Longitude  float64 `json:"longitude" gorm:"not null"`
	Radius     float64 `json:"radius" gorm:"not null;default:100"`
}

func (s *Store) CreateSafeZone(ctx context.Context, guardianID uint, zone *SafeZone) error {
	zone.GuardianID = guardianID
	if zone.Radius <= 0 {
		zone.Radius = DEFAULT_SAFE_ZONE_RADIUS
	}

	return s.withContext(ctx).Create(zone).Error
}

func (s *Store) SafeZones(ctx context.Context, guardianID uint) ([]SafeZone, error) {
	zones := []SafeZone{}
	err := s.withContext(ctx).Scopes(guardianScope(guardianID)).Order("id").Find(&zones).Error
	if err != nil {
		return nil, err
	}

	return zones, nil
}
