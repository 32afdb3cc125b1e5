package workflow

import (
	"time"

	"github.com/schoolguidance/tracker/internal/app/models"
)

// TallyRecord is the slice of a violation record that feeds the tally
type TallyRecord struct {
	Status        models.ViolationStatus
	SeverityLevel models.SeverityLevel
	Category      string
	IncidentDate  time.Time
	SchoolYear    string
}

// TallyScope identifies the student's current enrollment
type TallyScope struct {
	SchoolYear string
	Strand     string
}

// ComputeTally derives all tally counters from the full record set of one student.
// Current-grade counts use the records of the student's current school year;
// current-strand counts are the same set and stay zero when no strand is set.
func ComputeTally(studentID int64, records []TallyRecord, scope TallyScope) models.ViolationTally {
	t := models.ViolationTally{
		StudentID:      studentID,
		CategoryCounts: make(map[string]int, len(models.Categories)),
	}
	for _, c := range models.Categories {
		t.CategoryCounts[c] = 0
	}

	for i := range records {
		r := records[i]
		t.TotalViolations++

		switch r.Status {
		case models.ViolationActive:
			t.ActiveViolations++
		case models.ViolationResolved:
			t.ResolvedViolations++
		}

		switch r.SeverityLevel {
		case models.SeverityLevelLow:
			t.LowSeverityCount++
		case models.SeverityLevelMedium:
			t.MediumSeverityCount++
		case models.SeverityLevelHigh:
			t.HighSeverityCount++
		case models.SeverityLevelCritical:
			t.CriticalSeverityCount++
		}

		category := r.Category
		if _, known := t.CategoryCounts[category]; !known {
			category = models.CategoryOthers
		}
		t.CategoryCounts[category]++

		if scope.SchoolYear != "" && r.SchoolYear == scope.SchoolYear {
			t.CurrentGradeViolations++
			if scope.Strand != "" {
				t.CurrentStrandViolations++
			}
		}

		d := r.IncidentDate
		if t.FirstViolationDate == nil || d.Before(*t.FirstViolationDate) {
			t.FirstViolationDate = &d
		}
		if t.LastViolationDate == nil || d.After(*t.LastViolationDate) {
			t.LastViolationDate = &d
		}
	}

	return t
}
