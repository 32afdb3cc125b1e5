package workflow

import (
	"testing"
	"time"

	"github.com/schoolguidance/tracker/internal/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTally_Empty(t *testing.T) {
	tally := ComputeTally(9, nil, TallyScope{SchoolYear: "2024-2025"})

	assert.Equal(t, int64(9), tally.StudentID)
	assert.Zero(t, tally.TotalViolations)
	assert.Nil(t, tally.FirstViolationDate)
	assert.Len(t, tally.CategoryCounts, len(models.Categories))
}

func TestComputeTally_CountsMatchRecords(t *testing.T) {
	d1 := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 10, 15, 0, 0, 0, 0, time.UTC)
	d3 := time.Date(2023, 11, 20, 0, 0, 0, 0, time.UTC)

	records := []TallyRecord{
		{Status: models.ViolationActive, SeverityLevel: models.SeverityLevelLow, Category: models.CategoryTardiness, IncidentDate: d1, SchoolYear: "2024-2025"},
		{Status: models.ViolationResolved, SeverityLevel: models.SeverityLevelHigh, Category: models.CategoryBullying, IncidentDate: d2, SchoolYear: "2024-2025"},
		{Status: models.ViolationDismissed, SeverityLevel: models.SeverityLevelCritical, Category: "Vandalism", IncidentDate: d3, SchoolYear: "2023-2024"},
		{Status: models.ViolationActive, SeverityLevel: models.SeverityLevelLow, Category: models.CategoryTardiness, IncidentDate: d1, SchoolYear: "2024-2025"},
	}

	tally := ComputeTally(1, records, TallyScope{SchoolYear: "2024-2025", Strand: "STEM"})

	assert.Equal(t, 4, tally.TotalViolations)
	assert.Equal(t, 2, tally.ActiveViolations)
	assert.Equal(t, 1, tally.ResolvedViolations)
	assert.Equal(t, 2, tally.LowSeverityCount)
	assert.Equal(t, 0, tally.MediumSeverityCount)
	assert.Equal(t, 1, tally.HighSeverityCount)
	assert.Equal(t, 1, tally.CriticalSeverityCount)
	assert.Equal(t, 2, tally.CategoryCounts[models.CategoryTardiness])
	assert.Equal(t, 1, tally.CategoryCounts[models.CategoryBullying])
	assert.Equal(t, 1, tally.CategoryCounts[models.CategoryOthers])
	assert.Equal(t, 3, tally.CurrentGradeViolations)
	assert.Equal(t, 3, tally.CurrentStrandViolations)

	require.NotNil(t, tally.FirstViolationDate)
	require.NotNil(t, tally.LastViolationDate)
	assert.Equal(t, d3, *tally.FirstViolationDate)
	assert.Equal(t, d2, *tally.LastViolationDate)

	sum := 0
	for _, n := range tally.CategoryCounts {
		sum += n
	}
	assert.Equal(t, tally.TotalViolations, sum)
}

func TestComputeTally_NoStrand(t *testing.T) {
	records := []TallyRecord{{Status: models.ViolationActive, SeverityLevel: models.SeverityLevelMedium, Category: models.CategoryCheating, IncidentDate: time.Now(), SchoolYear: "2024-2025"}}
	tally := ComputeTally(1, records, TallyScope{SchoolYear: "2024-2025"})
	assert.Equal(t, 1, tally.CurrentGradeViolations)
	assert.Zero(t, tally.CurrentStrandViolations)
}
