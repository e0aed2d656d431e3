package alerting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Daskott/safenest/colors"
	"github.com/Daskott/safenest/server/logger"
	"github.com/Daskott/safenest/server/models"
)

const (
	DEFAULT_EMERGENCY_MESSAGE = "Emergency alert triggered"
	UNKNOWN_MEMBER_NAME       = "Family member"

	NOTIFY_TIMEOUT = 15 * time.Second
)

// EMERGENCY_ACTIONS is what the client is told happened after an emergency alert.
// Nothing is actually dispatched.
var EMERGENCY_ACTIONS = []string{
	"Emergency contacts notified",
	"Location shared with emergency services",
	"Family members alerted",
}

var logg = logger.NewLogger()

type Store interface {
	CreateAlert(ctx context.Context, alert *models.Alert) error
	FindUserBy(ctx context.Context, field string, value interface{}) (*models.User, error)
	FindFamilyMember(ctx context.Context, guardianID, memberID uint) (*models.FamilyMember, error)
}

type Notifier interface {
	Enabled() bool
	SendMessage(to, msg string) error
}

type EmergencyResult struct {
	AlertID uint     `json:"alert_id"`
	Actions []string `json:"actions"`
}

// Recorder persists alerts & lets the guardian know about zone exits
type Recorder struct {
	store    Store
	notifier Notifier
}

// NewRecorder returns a Recorder. notifier may be nil, in which case no SMS is sent.
func NewRecorder(store Store, notifier Notifier) *Recorder {
	return &Recorder{store: store, notifier: notifier}
}

func (r *Recorder) RecordEmergency(ctx context.Context, guardianID uint, message string) (*EmergencyResult, error) {
	if strings.TrimSpace(message) == "" {
		message = DEFAULT_EMERGENCY_MESSAGE
	}

	alert := models.Alert{GuardianID: guardianID, Type: models.EMERGENCY_ALERT, Message: message}
	err := r.store.CreateAlert(ctx, &alert)
	if err != nil {
		return nil, fmt.Errorf("RecordEmergency: %v", err)
	}

	actions := make([]string, len(EMERGENCY_ACTIONS))
	copy(actions, EMERGENCY_ACTIONS)

	return &EmergencyResult{AlertID: alert.ID, Actions: actions}, nil
}

// RecordZoneExit persists a safe_zone_exit alert for the member & texts the guardian when possible.
// Notification failures are only logged.
func (r *Recorder) RecordZoneExit(ctx context.Context, guardianID, memberID uint, zoneName string) error {
	alert := models.Alert{
		GuardianID: guardianID,
		MemberID:   &memberID,
		Type:       models.SAFE_ZONE_EXIT_ALERT,
		Message:    ZoneExitMessage(r.memberName(ctx, guardianID, memberID), zoneName),
	}

	err := r.store.CreateAlert(ctx, &alert)
	if err != nil {
		return fmt.Errorf("RecordZoneExit: %v", err)
	}

	r.notifyGuardian(ctx, guardianID, alert.Message)
	return nil
}

func ZoneExitMessage(memberName, zoneName string) string {
	if strings.TrimSpace(memberName) == "" {
		memberName = UNKNOWN_MEMBER_NAME
	}
	return fmt.Sprintf("%v has left %v safe zone", memberName, zoneName)
}

func (r *Recorder) memberName(ctx context.Context, guardianID, memberID uint) string {
	member, err := r.store.FindFamilyMember(ctx, guardianID, memberID)
	if err != nil {
		logg.Warnf("unable to look up member %v: %v", memberID, err)
		return ""
	}
	return member.Name
}

func (r *Recorder) notifyGuardian(ctx context.Context, guardianID uint, message string) {
	if r.notifier == nil || !r.notifier.Enabled() {
		return
	}

	guardian, err := r.store.FindUserBy(ctx, "id", guardianID)
	if err != nil {
		logg.Errorf(colors.Red("[notifier] ")+"unable to find guardian %v: %v", guardianID, err)
		return
	}

	if guardian.PhoneNumber == "" {
		return
	}

	err = r.notifier.SendMessage(guardian.PhoneNumber, "SafeNest: "+message)
	if err != nil {
		logg.Errorf(colors.Red("[notifier] ")+"unable to text guardian %v: %v", guardianID, err)
	}
}
