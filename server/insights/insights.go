package insights

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Daskott/safenest/server/models"
)

const (
	MAX_SCORE = 100

	ALL_SAFE_RECOMMENDATION = "All family members are safe and systems are optimal"
)

// PREDICTIONS are illustrative only. They are not derived from any data.
var PREDICTIONS = []string{
	"Dad usually arrives home between 6:30-7:00 PM",
	"Mom's shopping trips typically last 45-60 minutes",
	"Family dinner time prediction: 7:30-8:00 PM",
	"Weekend family outing likely on Saturday afternoon",
}

type Store interface {
	FamilyActivity(ctx context.Context, guardianID uint) ([]models.MemberActivity, error)
	CreateInsight(ctx context.Context, guardianID uint, insightType string, data interface{}) (*models.Insight, error)
}

type Insights struct {
	FamilyActivity  []models.MemberActivity `json:"family_activity"`
	SafetyScore     int                     `json:"safety_score"`
	Predictions     []string                `json:"predictions"`
	Recommendations []string                `json:"recommendations"`
}

type Aggregator struct {
	store Store
	now   func() time.Time
}

func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store, now: time.Now}
}

// ForGuardian computes insights from the guardian's location history
func (a *Aggregator) ForGuardian(ctx context.Context, guardianID uint) (*Insights, error) {
	activity, err := a.store.FamilyActivity(ctx, guardianID)
	if err != nil {
		return nil, fmt.Errorf("ForGuardian: %v", err)
	}

	return Compute(activity, a.now()), nil
}

// Snapshot computes the guardian's insights & stores them as a summary insight
func (a *Aggregator) Snapshot(ctx context.Context, guardianID uint) (*models.Insight, error) {
	insights, err := a.ForGuardian(ctx, guardianID)
	if err != nil {
		return nil, err
	}

	return a.store.CreateInsight(ctx, guardianID, models.SUMMARY_INSIGHT, insights)
}

func Compute(activity []models.MemberActivity, now time.Time) *Insights {
	predictions := make([]string, len(PREDICTIONS))
	copy(predictions, PREDICTIONS)

	return &Insights{
		FamilyActivity:  activity,
		SafetyScore:     SafetyScore(activity, now),
		Predictions:     predictions,
		Recommendations: Recommendations(activity, now),
	}
}

// MemberScore starts at MAX_SCORE and deducts points for a low average battery & for being
// quiet for a while. No battery data means no battery deduction.
func MemberScore(member models.MemberActivity, now time.Time) int {
	score := MAX_SCORE

	if member.AvgBattery != nil {
		switch battery := *member.AvgBattery; {
		case battery < 20:
			score -= 20
		case battery < 50:
			score -= 10
		}
	}

	if member.LastSeen != nil {
		switch hours := hoursSince(*member.LastSeen, now); {
		case hours > 12:
			score -= 30
		case hours > 6:
			score -= 15
		}
	}

	return score
}

// SafetyScore is the rounded mean of member scores. Members that never
// reported a location have no data & are left out; no data at all scores 0.
func SafetyScore(activity []models.MemberActivity, now time.Time) int {
	total, count := 0, 0
	for _, member := range activity {
		if !hasData(member) {
			continue
		}
		total += MemberScore(member, now)
		count++
	}

	if count == 0 {
		return 0
	}

	return int(math.Round(float64(total) / float64(count)))
}

func Recommendations(activity []models.MemberActivity, now time.Time) []string {
	recommendations := []string{}

	for _, member := range activity {
		if member.AvgBattery != nil && *member.AvgBattery < 30 {
			recommendations = append(recommendations, fmt.Sprintf("Remind %v to charge their phone", member.Name))
		}

		if !hasData(member) {
			recommendations = append(recommendations,
				fmt.Sprintf("Check in with %v - no location updates received yet", member.Name))
			continue
		}

		if hours := hoursSince(*member.LastSeen, now); hours > 8 {
			recommendations = append(recommendations,
				fmt.Sprintf("Check in with %v - last location update was %v hours ago", member.Name, math.Round(hours)))
		}
	}

	if len(recommendations) == 0 {
		recommendations = append(recommendations, ALL_SAFE_RECOMMENDATION)
	}

	return recommendations
}

func hasData(member models.MemberActivity) bool {
	return member.LastSeen != nil
}

func hoursSince(t, now time.Time) float64 {
	return now.Sub(t).Hours()
}
