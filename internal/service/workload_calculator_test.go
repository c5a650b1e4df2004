package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/wellness-api/internal/models"
	"github.com/edupulse/wellness-api/pkg/config"
)

func testWellnessConfig() config.WellnessConfig {
	return config.WellnessConfig{
		OverworkCriticalPct:      90,
		OverworkHighPct:          80,
		OverworkElevatedPct:      70,
		ConsecutiveWindowMinutes: 15,
		OverworkWeight:           0.4,
		ConsecutiveWeight:        0.3,
		GapWeight:                0.2,
		ImbalanceWeight:          0.1,
		DefaultPrepMinutes:       15,
		LateEveningHour:          18,
		LateEveningThreshold:     3,
		WellnessDeclinePoints:    15,
		OverworkClearPct:         80,
		WellnessClearScore:       60,
		TrendDeadBand:            3,
	}
}

func entry(day int, start, end string) models.ScheduleEntry {
	return models.ScheduleEntry{
		ID:        fmt.Sprintf("e-%d-%s", day, start),
		TeacherID: "t-1",
		DayOfWeek: day,
		StartTime: start,
		EndTime:   end,
	}
}

func TestCalculateEmptyScheduleIsPerfectWellness(t *testing.T) {
	calc := NewWorkloadCalculator(testWellnessConfig(), nil)

	summary := calc.Calculate("t-1", time.Now(), nil, models.DefaultWorkloadPolicy("t-1"))

	assert.Equal(t, 0, summary.TotalPeriods)
	assert.Equal(t, float64(0), summary.Snapshot.StressScore)
	assert.Equal(t, float64(100), summary.Snapshot.WellnessScore)
	assert.Equal(t, models.RiskLow, summary.Risk)
	assert.Empty(t, summary.Daily)
}

func TestCalculateConsecutiveRunsAndGaps(t *testing.T) {
	calc := NewWorkloadCalculator(testWellnessConfig(), nil)
	// 5 minute gap keeps the run alive; the 55 minute gap breaks it and
	// counts as disruptive idle time.
	entries := []models.ScheduleEntry{
		entry(1, "08:00", "08:45"),
		entry(1, "08:50", "09:35"),
		entry(1, "10:30", "11:15"),
	}

	summary := calc.Calculate("t-1", time.Now(), entries, models.DefaultWorkloadPolicy("t-1"))

	assert.Equal(t, 2, summary.Snapshot.ConsecutivePeriodsMax)
	assert.Equal(t, 55, summary.Snapshot.GapsMinutes)
	assert.Equal(t, 3, summary.TotalPeriods)
}

func TestCalculateGapAtExactWindowIsNeither(t *testing.T) {
	calc := NewWorkloadCalculator(testWellnessConfig(), nil)
	// Exactly 15 minutes apart: breaks the consecutive run without counting
	// as a disruptive gap.
	entries := []models.ScheduleEntry{
		entry(1, "08:00", "08:45"),
		entry(1, "09:00", "09:45"),
	}

	summary := calc.Calculate("t-1", time.Now(), entries, models.DefaultWorkloadPolicy("t-1"))

	assert.Equal(t, 1, summary.Snapshot.ConsecutivePeriodsMax)
	assert.Equal(t, 0, summary.Snapshot.GapsMinutes)
}

func TestCalculateOverloadedWeek(t *testing.T) {
	calc := NewWorkloadCalculator(testWellnessConfig(), nil)
	policy := models.DefaultWorkloadPolicy("t-1")
	policy.MaxPeriodsPerWeek = 30

	// 35 periods spread over 5 days, 7 back-to-back per day with 5 minute
	// turnarounds.
	var entries []models.ScheduleEntry
	for day := 1; day <= 5; day++ {
		for p := 0; p < 7; p++ {
			startMin := 8*60 + p*50
			endMin := startMin + 45
			start := fmt.Sprintf("%02d:%02d", startMin/60, startMin%60)
			end := fmt.Sprintf("%02d:%02d", endMin/60, endMin%60)
			entries = append(entries, entry(day, start, end))
		}
	}

	summary := calc.Calculate("t-1", time.Now(), entries, policy)

	assert.InDelta(t, 116.67, summary.WorkloadPercentage, 0.01)
	assert.Equal(t, float64(100), summary.Indicators.Overwork)
	assert.True(t, summary.Risk.Elevated(), "overloaded week must be HIGH or CRITICAL, got %s", summary.Risk)
}

func TestCalculateWellnessComplementsStress(t *testing.T) {
	calc := NewWorkloadCalculator(testWellnessConfig(), nil)
	entries := []models.ScheduleEntry{
		entry(1, "08:00", "08:45"),
		entry(1, "08:50", "09:35"),
		entry(1, "09:40", "10:25"),
		entry(1, "10:30", "11:15"),
		entry(1, "11:20", "12:05"),
		entry(2, "08:00", "08:45"),
	}

	summary := calc.Calculate("t-1", time.Now(), entries, models.DefaultWorkloadPolicy("t-1"))

	assert.GreaterOrEqual(t, summary.Snapshot.WellnessScore, float64(0))
	assert.LessOrEqual(t, summary.Snapshot.WellnessScore, float64(100))
	assert.Equal(t, 100-summary.Snapshot.StressScore, summary.Snapshot.WellnessScore)
}

func TestCalculateSkipsMalformedEntries(t *testing.T) {
	calc := NewWorkloadCalculator(testWellnessConfig(), nil)
	entries := []models.ScheduleEntry{
		entry(1, "08:00", "08:45"),
		entry(1, "25:99", "26:00"),
		entry(2, "garbage", "09:00"),
	}

	summary := calc.Calculate("t-1", time.Now(), entries, models.DefaultWorkloadPolicy("t-1"))

	assert.Equal(t, 2, summary.SkippedEntries)
	assert.Equal(t, 1, summary.TotalPeriods)
}

func TestCalculateCountsLateEveningClasses(t *testing.T) {
	calc := NewWorkloadCalculator(testWellnessConfig(), nil)
	entries := []models.ScheduleEntry{
		entry(1, "18:00", "18:45"),
		entry(2, "19:00", "19:45"),
		entry(3, "17:59", "18:45"),
		entry(4, "08:00", "08:45"),
	}

	summary := calc.Calculate("t-1", time.Now(), entries, models.DefaultWorkloadPolicy("t-1"))

	assert.Equal(t, 2, summary.LateEveningCount)
}

func TestRiskLevelTiersFirstMatchWins(t *testing.T) {
	calc := NewWorkloadCalculator(testWellnessConfig(), nil)

	cases := []struct {
		wellness float64
		stress   float64
		want     models.BurnoutRiskLevel
	}{
		{wellness: 25, stress: 75, want: models.RiskCritical},
		{wellness: 60, stress: 85, want: models.RiskCritical},
		{wellness: 45, stress: 55, want: models.RiskHigh},
		{wellness: 75, stress: 65, want: models.RiskHigh},
		{wellness: 65, stress: 35, want: models.RiskMedium},
		{wellness: 85, stress: 45, want: models.RiskMedium},
		{wellness: 85, stress: 15, want: models.RiskLow},
	}
	for _, tc := range cases {
		got := calc.riskLevel(tc.wellness, tc.stress)
		require.Equal(t, tc.want, got, "wellness=%v stress=%v", tc.wellness, tc.stress)
	}
}

func TestCalculateDeterministic(t *testing.T) {
	calc := NewWorkloadCalculator(testWellnessConfig(), nil)
	entries := []models.ScheduleEntry{
		entry(1, "08:00", "08:45"),
		entry(1, "10:00", "10:45"),
		entry(3, "13:00", "13:45"),
	}
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	policy := models.DefaultWorkloadPolicy("t-1")

	first := calc.Calculate("t-1", date, entries, policy)
	second := calc.Calculate("t-1", date, entries, policy)

	assert.Equal(t, first.Snapshot, second.Snapshot)
	assert.Equal(t, first.Indicators, second.Indicators)
}
