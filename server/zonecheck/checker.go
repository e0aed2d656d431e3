package zonecheck

import (
	"context"
	"fmt"
	"time"

	"github.com/Daskott/safenest/colors"
	"github.com/Daskott/safenest/server/geo"
	"github.com/Daskott/safenest/server/logger"
	"github.com/Daskott/safenest/server/models"
	"github.com/Daskott/safenest/server/work"
)

const (
	CHECK_SAFE_ZONES_HANDLER = "checkSafeZones"

	CHECK_TIMEOUT = 30 * time.Second
)

var logg = logger.NewLogger()

type Store interface {
	SafeZones(ctx context.Context, guardianID uint) ([]models.SafeZone, error)
	FindLocation(ctx context.Context, id uint) (*models.Location, error)
	PreviousLocation(ctx context.Context, location *models.Location) (*models.Location, error)
}

type Recorder interface {
	RecordZoneExit(ctx context.Context, guardianID, memberID uint, zoneName string) error
}

type Performer interface {
	Register(name string, handler work.Handler) error
	Perform(job work.JobParams) error
}

// Checker compares new location readings against the guardian's safe zones
// & records a zone exit alert for each violation
type Checker struct {
	store    Store
	recorder Recorder
	mode     geo.TriggerMode
}

func NewChecker(store Store, recorder Recorder, mode geo.TriggerMode) *Checker {
	return &Checker{store: store, recorder: recorder, mode: mode}
}

// Register makes the checker available to the worker pool
func (c *Checker) Register(performer Performer) error {
	return performer.Register(CHECK_SAFE_ZONES_HANDLER, c.handle)
}

// Enqueue hands the reading off to the worker pool, so callers never wait on zone checks
func (c *Checker) Enqueue(performer Performer, guardianID uint, location *models.Location) error {
	return performer.Perform(work.JobParams{
		Name:    fmt.Sprintf("%v_%v", CHECK_SAFE_ZONES_HANDLER, location.ID),
		Handler: CHECK_SAFE_ZONES_HANDLER,
		Args: map[string]interface{}{
			"guardian_id": guardianID,
			"member_id":   location.MemberID,
			"location_id": location.ID,
		},
	})
}

// Check returns how many zone exit alerts were recorded for the reading.
// Failing to record one alert doesn't stop the others.
func (c *Checker) Check(ctx context.Context, guardianID uint, location *models.Location) (int, error) {
	safeZones, err := c.store.SafeZones(ctx, guardianID)
	if err != nil {
		return 0, fmt.Errorf("Check: %v", err)
	}

	if len(safeZones) == 0 {
		return 0, nil
	}

	var previous *geo.Coordinate
	if c.mode == geo.EdgeTriggered {
		previousLocation, err := c.store.PreviousLocation(ctx, location)
		if err != nil {
			return 0, fmt.Errorf("Check: %v", err)
		}
		if previousLocation != nil {
			previous = &geo.Coordinate{Latitude: previousLocation.Latitude, Longitude: previousLocation.Longitude}
		}
	}

	position := geo.Coordinate{Latitude: location.Latitude, Longitude: location.Longitude}
	exits := geo.Exits(position, previous, zones(safeZones), c.mode)

	recorded := 0
	for _, exit := range exits {
		err := c.recorder.RecordZoneExit(ctx, guardianID, location.MemberID, exit.Zone.Name)
		if err != nil {
			logg.Error(colors.Red("[zone check] "), err)
			continue
		}

		recorded++
		logg.Debugf(colors.Magenta("[zone check] ")+"member %v is %.0fm from %v (radius %.0fm)",
			location.MemberID, exit.Distance, exit.Zone.Name, exit.Zone.Radius)
	}

	return recorded, nil
}

func (c *Checker) handle(args map[string]interface{}) error {
	guardianID, err := uintArg(args, "guardian_id")
	if err != nil {
		return err
	}

	locationID, err := uintArg(args, "location_id")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), CHECK_TIMEOUT)
	defer cancel()

	location, err := c.store.FindLocation(ctx, locationID)
	if err != nil {
		return fmt.Errorf("unable to load location %v: %v", locationID, err)
	}

	_, err = c.Check(ctx, guardianID, location)
	return err
}

func zones(safeZones []models.SafeZone) []geo.Zone {
	zones := make([]geo.Zone, 0, len(safeZones))
	for _, zone := range safeZones {
		zones = append(zones, geo.Zone{
			ID:     zone.ID,
			Name:   zone.Name,
			Center: geo.Coordinate{Latitude: zone.Latitude, Longitude: zone.Longitude},
			Radius: zone.Radius,
		})
	}

	return zones
}

// uintArg reads an id from JSON decoded job args, where numbers are float64
func uintArg(args map[string]interface{}, key string) (uint, error) {
	switch value := args[key].(type) {
	case float64:
		if value < 0 {
			return 0, fmt.Errorf("invalid %v: %v", key, value)
		}
		return uint(value), nil
	case uint:
		return value, nil
	case int:
		return uint(value), nil
	}

	return 0, fmt.Errorf("missing or invalid %v: %v", key, args[key])
}
