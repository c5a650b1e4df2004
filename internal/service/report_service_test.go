package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/wellness-api/internal/models"
)

func TestWeeklyDatasetHighlightsElevatedRisk(t *testing.T) {
	summary := &models.WeeklySchoolSummary{
		SchoolID:        "s-1",
		AverageWellness: 71.3,
		Trend:           models.WellnessTrend{Direction: models.TrendStable},
	}
	rows := []models.TeacherAtRisk{
		{FullName: "Alex Rivera", Department: "Science", RiskLevel: models.RiskCritical, WellnessScore: 38.5},
		{FullName: "Sam Lee", Department: "Mathematics", RiskLevel: models.RiskLow, WellnessScore: 82},
	}

	dataset := weeklyDataset(summary, rows)

	require.Len(t, dataset.Rows, 3, "teacher rows plus the school average row")
	assert.Equal(t, []string{"Wellness Score"}, dataset.Numeric)
	assert.True(t, dataset.Highlighted(dataset.Rows[0]), "critical risk rows stand out")
	assert.False(t, dataset.Highlighted(dataset.Rows[1]))
	assert.Equal(t, "SCHOOL AVERAGE", dataset.Rows[2]["Teacher"])
	assert.Equal(t, "71.3", dataset.Rows[2]["Wellness Score"])
}
