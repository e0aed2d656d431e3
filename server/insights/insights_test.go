package insights

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Daskott/safenest/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2022, 2, 14, 18, 0, 0, 0, time.UTC)

func member(name string, battery *float64, hoursAgo float64) models.MemberActivity {
	lastSeen := now.Add(-time.Duration(hoursAgo * float64(time.Hour)))
	return models.MemberActivity{Name: name, AvgBattery: battery, LastSeen: &lastSeen, LocationUpdates: 1}
}

func battery(level float64) *float64 {
	return &level
}

func TestMemberScore(t *testing.T) {
	assert.Equal(t, 50, MemberScore(member("Mike", battery(15), 13), now))
	assert.Equal(t, 100, MemberScore(member("Rachel", battery(60), 1), now))
	assert.Equal(t, 75, MemberScore(member("Louis", battery(45), 7), now))
	assert.Equal(t, 100, MemberScore(member("Donna", nil, 2), now), "no battery data means no battery deduction")
	assert.Equal(t, 90, MemberScore(member("Harvey", battery(20), 6), now), "thresholds are strict")
}

func TestSafetyScore(t *testing.T) {
	activity := []models.MemberActivity{
		member("Mike", battery(15), 13),
		member("Rachel", battery(60), 1),
	}
	assert.Equal(t, 75, SafetyScore(activity, now))

	assert.Equal(t, 0, SafetyScore(nil, now))
	assert.Equal(t, 0, SafetyScore([]models.MemberActivity{{Name: "Alex"}}, now))

	withSilentMember := append(activity, models.MemberActivity{Name: "Alex"})
	assert.Equal(t, 75, SafetyScore(withSilentMember, now), "members without readings are left out")

	assert.Equal(t, 83, SafetyScore([]models.MemberActivity{
		member("Mike", battery(15), 13),
		member("Rachel", battery(60), 1),
		member("Donna", battery(90), 0),
	}, now))
}

func TestRecommendations(t *testing.T) {
	assert.Equal(t,
		[]string{"Remind Mike to charge their phone"},
		Recommendations([]models.MemberActivity{member("Mike", battery(25), 2)}, now))

	assert.Equal(t,
		[]string{ALL_SAFE_RECOMMENDATION},
		Recommendations([]models.MemberActivity{member("Rachel", battery(80), 1)}, now))

	assert.Equal(t, []string{ALL_SAFE_RECOMMENDATION}, Recommendations(nil, now))

	assert.Equal(t,
		[]string{
			"Remind Mike to charge their phone",
			"Check in with Mike - last location update was 10 hours ago",
			"Check in with Louis - last location update was 9 hours ago",
			"Check in with Alex - no location updates received yet",
		},
		Recommendations([]models.MemberActivity{
			member("Mike", battery(10), 9.6),
			member("Rachel", battery(55), 3),
			member("Louis", nil, 8.6),
			{Name: "Alex"},
		}, now))
}

func TestComputeReturnsStaticPredictions(t *testing.T) {
	insights := Compute([]models.MemberActivity{member("Mike", battery(60), 1)}, now)

	assert.Equal(t, PREDICTIONS, insights.Predictions)
	assert.Equal(t, 100, insights.SafetyScore)
	assert.Len(t, insights.FamilyActivity, 1)

	insights.Predictions[0] = "changed"
	assert.NotEqual(t, "changed", PREDICTIONS[0])
}

func TestAggregatorWithStore(t *testing.T) {
	store := models.InitializeTestDb(t)
	ctx := context.Background()

	guardian := models.User{Name: "Jessica", Email: "jessica@pearson.com", Password: "Password1!"}
	require.NoError(t, store.CreateUser(ctx, &guardian))

	mike := models.FamilyMember{Name: "Mike"}
	require.NoError(t, store.AddFamilyMember(ctx, guardian.ID, &mike))
	rachel := models.FamilyMember{Name: "Rachel"}
	require.NoError(t, store.AddFamilyMember(ctx, guardian.ID, &rachel))

	for _, level := range []int{10, 20} {
		level := level
		require.NoError(t, store.AddLocation(ctx, &models.Location{
			MemberID:     mike.ID,
			Latitude:     43.65,
			Longitude:    -79.38,
			BatteryLevel: &level,
			RecordedAt:   now.Add(-13 * time.Hour),
		}))
	}

	aggregator := NewAggregator(store)
	aggregator.now = func() time.Time { return now }

	insights, err := aggregator.ForGuardian(ctx, guardian.ID)
	require.NoError(t, err)

	require.Len(t, insights.FamilyActivity, 2)
	assert.Equal(t, int64(2), insights.FamilyActivity[0].LocationUpdates)
	require.NotNil(t, insights.FamilyActivity[0].AvgBattery)
	assert.InDelta(t, 15, *insights.FamilyActivity[0].AvgBattery, 0.001)
	assert.Nil(t, insights.FamilyActivity[1].LastSeen)
	assert.Equal(t, 50, insights.SafetyScore)
	assert.Equal(t, []string{
		"Remind Mike to charge their phone",
		"Check in with Mike - last location update was 13 hours ago",
		"Check in with Rachel - no location updates received yet",
	}, insights.Recommendations)

	snapshot, err := aggregator.Snapshot(ctx, guardian.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SUMMARY_INSIGHT, snapshot.InsightType)

	stored := Insights{}
	require.NoError(t, json.Unmarshal([]byte(snapshot.Data), &stored))
	assert.Equal(t, 50, stored.SafetyScore)
}
