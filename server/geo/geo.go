// Package geo holds the distance & geofence math. Everything here is pure,
// coordinates are never validated.
package geo

import (
	"fmt"
	"math"
)

// EARTH_RADIUS in meters
const EARTH_RADIUS = 6371e3

type TriggerMode string

const (
	// EdgeTriggered reports a zone exit only when the member crosses out of the zone
	EdgeTriggered TriggerMode = "edge"

	// LevelTriggered reports a zone exit for every reading outside the zone
	LevelTriggered TriggerMode = "level"
)

type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Zone struct {
	ID     uint
	Name   string
	Center Coordinate
	Radius float64
}

type ZoneCheck struct {
	Zone     Zone
	Distance float64
	Inside   bool
}

func ParseTriggerMode(mode string) (TriggerMode, error) {
	switch TriggerMode(mode) {
	case EdgeTriggered, "":
		return EdgeTriggered, nil
	case LevelTriggered:
		return LevelTriggered, nil
	}

	return "", fmt.Errorf("unknown geofence trigger mode: %q", mode)
}

// Distance returns the great-circle distance in meters between a & b using the haversine formula
func Distance(a, b Coordinate) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	deltaLat := toRadians(b.Latitude - a.Latitude)
	deltaLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	return EARTH_RADIUS * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Contains reports whether position is within radius meters of the zone's center (boundary included)
func (zone Zone) Contains(position Coordinate) bool {
	return Distance(position, zone.Center) <= zone.Radius
}

// Evaluate checks position against every zone, in the order given
func Evaluate(position Coordinate, zones []Zone) []ZoneCheck {
	checks := make([]ZoneCheck, 0, len(zones))
	for _, zone := range zones {
		distance := Distance(position, zone.Center)
		checks = append(checks, ZoneCheck{Zone: zone, Distance: distance, Inside: distance <= zone.Radius})
	}

	return checks
}

// Violations returns the checks where the position was outside the zone
func Violations(checks []ZoneCheck) []ZoneCheck {
	violations := []ZoneCheck{}
	for _, check := range checks {
		if !check.Inside {
			violations = append(violations, check)
		}
	}

	return violations
}

// Exits returns the zones that should raise a zone exit alert for a new position.
// 'previous' is the member's prior position, nil when there is none.
//
// In LevelTriggered mode every zone the position is outside of is returned.
// In EdgeTriggered mode a zone is only returned if the previous position was inside it,
// or there is no previous position.
func Exits(position Coordinate, previous *Coordinate, zones []Zone, mode TriggerMode) []ZoneCheck {
	violations := Violations(Evaluate(position, zones))
	if mode == LevelTriggered || previous == nil {
		return violations
	}

	exits := []ZoneCheck{}
	for _, violation := range violations {
		if violation.Zone.Contains(*previous) {
			exits = append(exits, violation)
		}
	}

	return exits
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
