package models

import "time"

// Violation categories of the seeded catalog
const (
	CategoryTardiness      = "Tardiness"
	CategoryVape           = "Using Vape/Cigarette"
	CategoryMisbehavior    = "Misbehavior"
	CategoryBullying       = "Bullying"
	CategoryGambling       = "Gambling"
	CategoryHaircut        = "Haircut"
	CategoryUniform        = "Not Wearing Proper Uniform/ID"
	CategoryCheating       = "Cheating"
	CategoryCuttingClasses = "Cutting Classes"
	CategoryAbsenteeism    = "Absenteeism"
	CategoryOthers         = "Others"
)

// Categories lists the violation categories in display order
var Categories = []string{
	CategoryTardiness, CategoryVape, CategoryMisbehavior, CategoryBullying,
	CategoryGambling, CategoryHaircut, CategoryUniform, CategoryCheating,
	CategoryCuttingClasses, CategoryAbsenteeism, CategoryOthers,
}

// SeverityLevel of a violation type (catalog casing)
type SeverityLevel string

const (
	SeverityLevelLow      SeverityLevel = "Low"
	SeverityLevelMedium   SeverityLevel = "Medium"
	SeverityLevelHigh     SeverityLevel = "High"
	SeverityLevelCritical SeverityLevel = "Critical"
)

// ValidSeverityLevel reports whether s is a known catalog severity
func ValidSeverityLevel(s string) bool {
	switch SeverityLevel(s) {
	case SeverityLevelLow, SeverityLevelMedium, SeverityLevelHigh, SeverityLevelCritical:
		return true
	}
	return false
}

// ViolationType is an entry of the violation catalog
type ViolationType struct {
	ID               int64         `json:"id" db:"id"`
	Name             string        `json:"name" db:"name" example:"Late arrival"`
	Category         string        `json:"category" db:"category" example:"Tardiness"`
	SeverityLevel    SeverityLevel `json:"severityLevel" db:"severity_level" example:"Low"`
	Description      string        `json:"description,omitempty" db:"description"`
	IsActive         bool          `json:"isActive" db:"is_active"`
	ApplicableGrades string        `json:"applicableGrades" db:"applicable_grades" example:"7,8,9,10,11,12"`
	CreatedAt        time.Time     `json:"createdAt" db:"created_at"`
}

// ViolationStatus is the state of a recorded violation
type ViolationStatus string

const (
	ViolationActive    ViolationStatus = "active"
	ViolationResolved  ViolationStatus = "resolved"
	ViolationDismissed ViolationStatus = "dismissed"
	ViolationAppealed  ViolationStatus = "appealed"
)

// ValidViolationStatus reports whether s is a known record status
func ValidViolationStatus(s string) bool {
	switch ViolationStatus(s) {
	case ViolationActive, ViolationResolved, ViolationDismissed, ViolationAppealed:
		return true
	}
	return false
}

// ViolationRecord is a confirmed violation of a student
type ViolationRecord struct {
	ID              int64           `json:"id" db:"id"`
	StudentID       int64           `json:"studentId" db:"student_id"`
	ViolationTypeID int64           `json:"violationTypeId" db:"violation_type_id"`
	CounselorID     *int64          `json:"counselorId,omitempty" db:"counselor_id"`
	RelatedReportID *int64          `json:"relatedReportId,omitempty" db:"related_report_id"`
	IncidentDate    time.Time       `json:"incidentDate" db:"incident_date"`
	Description     string          `json:"description,omitempty" db:"description"`
	Location        string          `json:"location,omitempty" db:"location"`
	Status          ViolationStatus `json:"status" db:"status"`
	CounselorNotes  string          `json:"counselorNotes,omitempty" db:"counselor_notes"`
	ActionTaken     string          `json:"actionTaken,omitempty" db:"action_taken"`
	AcademicQuarter string          `json:"academicQuarter,omitempty" db:"academic_quarter"`
	SchoolYear      string          `json:"schoolYear,omitempty" db:"school_year"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`

	// Populated by joins
	ViolationTypeName string        `json:"violationTypeName,omitempty"`
	Category          string        `json:"category,omitempty"`
	SeverityLevel     SeverityLevel `json:"severityLevel,omitempty"`
	StudentName       string        `json:"studentName,omitempty"`
	GradeLevel        int           `json:"gradeLevel,omitempty"`
	Strand            string        `json:"strand,omitempty"`
}

// ViolationTally holds denormalized per-student violation counters
type ViolationTally struct {
	StudentID               int64          `json:"studentId" db:"student_id"`
	TotalViolations         int            `json:"totalViolations" db:"total_violations"`
	ActiveViolations        int            `json:"activeViolations" db:"active_violations"`
	ResolvedViolations      int            `json:"resolvedViolations" db:"resolved_violations"`
	LowSeverityCount        int            `json:"lowSeverityCount" db:"low_severity_count"`
	MediumSeverityCount     int            `json:"mediumSeverityCount" db:"medium_severity_count"`
	HighSeverityCount       int            `json:"highSeverityCount" db:"high_severity_count"`
	CriticalSeverityCount   int            `json:"criticalSeverityCount" db:"critical_severity_count"`
	CategoryCounts          map[string]int `json:"categoryCounts" db:"category_counts"`
	CurrentGradeViolations  int            `json:"currentGradeViolations" db:"current_grade_violations"`
	CurrentStrandViolations int            `json:"currentStrandViolations" db:"current_strand_violations"`
	FirstViolationDate      *time.Time     `json:"firstViolationDate,omitempty" db:"first_violation_date"`
	LastViolationDate       *time.Time     `json:"lastViolationDate,omitempty" db:"last_violation_date"`
	UpdatedAt               time.Time      `json:"updatedAt" db:"updated_at"`

	StudentName string `json:"studentName,omitempty"`
	GradeLevel  int    `json:"gradeLevel,omitempty"`
}
