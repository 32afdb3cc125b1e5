package dto

import "github.com/schoolguidance/tracker/internal/app/models"

// CreateStudentRequest adds a student account as a counselor or admin
type CreateStudentRequest struct {
	Username        string `json:"username" binding:"required,username"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"omitempty,min=8"`
	FirstName       string `json:"firstName" binding:"required"`
	LastName        string `json:"lastName" binding:"required"`
	StudentID       string `json:"studentId,omitempty"`
	GradeLevel      int    `json:"gradeLevel" binding:"required,gradelevel"`
	Strand          string `json:"strand,omitempty" binding:"omitempty,strand"`
	Section         string `json:"section,omitempty"`
	SchoolYear      string `json:"schoolYear,omitempty" binding:"omitempty,schoolyear"`
	ContactNumber   string `json:"contactNumber,omitempty"`
	GuardianName    string `json:"guardianName,omitempty"`
	GuardianContact string `json:"guardianContact,omitempty"`
}

// BulkAddStudentsRequest adds many students; failures are reported per row
type BulkAddStudentsRequest struct {
	Students []CreateStudentRequest `json:"students" binding:"required,min=1,max=500,dive"`
}

// BulkAddResult summarises a bulk add
type BulkAddResult struct {
	Created []models.Student `json:"created"`
	Errors  []RowError       `json:"errors"`
}

// RowError describes a failed row of a batch operation
type RowError struct {
	Index   int    `json:"index"`
	Key     string `json:"key,omitempty"`
	Message string `json:"message"`
}

// UpdateStudentRequest changes enrollment fields; nil fields are left unchanged
type UpdateStudentRequest struct {
	FirstName       *string                    `json:"firstName,omitempty"`
	LastName        *string                    `json:"lastName,omitempty"`
	Email           *string                    `json:"email,omitempty" binding:"omitempty,email"`
	GradeLevel      *int                       `json:"gradeLevel,omitempty" binding:"omitempty,gradelevel"`
	Strand          *string                    `json:"strand,omitempty"`
	Section         *string                    `json:"section,omitempty"`
	SchoolYear      *string                    `json:"schoolYear,omitempty" binding:"omitempty,schoolyear"`
	ContactNumber   *string                    `json:"contactNumber,omitempty"`
	GuardianName    *string                    `json:"guardianName,omitempty"`
	GuardianContact *string                    `json:"guardianContact,omitempty"`
	IsActive        *bool                      `json:"isActive,omitempty"`
	ChangeReason    *models.StrandChangeReason `json:"changeReason,omitempty"`
}

// StudentFilter narrows student lists
type StudentFilter struct {
	GradeLevel *int
	Strand     string
	Section    string
	SchoolYear string
	Search     string
	Archived   bool
	ActiveOnly bool
}

// UpdateSchoolYearRequest fills the school year of students without one
type UpdateSchoolYearRequest struct {
	SchoolYear string `json:"schoolYear" binding:"omitempty,schoolyear"`
}

// StudentViolationHistory is the violation record of one student
type StudentViolationHistory struct {
	Student    *models.Student                   `json:"student"`
	Tally      *models.ViolationTally            `json:"tally"`
	Violations []models.ViolationRecord          `json:"violations"`
	History    []models.StudentSchoolYearHistory `json:"history"`
}

// AdvisorySection is a teacher's advisory class for the current school year
type AdvisorySection struct {
	SchoolYear      string            `json:"schoolYear"`
	AdvisingGrade   *int              `json:"advisingGrade,omitempty"`
	AdvisingStrand  string            `json:"advisingStrand,omitempty"`
	AdvisingSection string            `json:"advisingSection,omitempty"`
	Students        []AdvisoryStudent `json:"students"`
	TotalStudents   int               `json:"totalStudents"`
}

// AdvisoryStudent is one advisee with violation counts
type AdvisoryStudent struct {
	models.Student
	ViolationsCurrentYear int              `json:"violationsCurrentYear"`
	ViolationsAllTime     int              `json:"violationsAllTime"`
	ViolationsByYear      []YearViolations `json:"violationsByYear"`
}

// YearViolations counts violations of one enrolled school year
type YearViolations struct {
	SchoolYear string `json:"schoolYear"`
	GradeLevel int    `json:"gradeLevel"`
	Section    string `json:"section,omitempty"`
	Count      int    `json:"count"`
}

// UpdateAdvisorySectionRequest reassigns advisees; nil fields are left unchanged
type UpdateAdvisorySectionRequest struct {
	Updates []AdvisoryUpdate `json:"updates" binding:"required,min=1,max=200,dive"`
}

// AdvisoryUpdate changes one student's placement
type AdvisoryUpdate struct {
	StudentID  int64   `json:"studentId" binding:"required,min=1"`
	GradeLevel *int    `json:"gradeLevel,omitempty" binding:"omitempty,gradelevel"`
	Strand     *string `json:"strand,omitempty"`
	Section    *string `json:"section,omitempty"`
}

// AdvisoryUpdateResult summarises an advisory section update
type AdvisoryUpdateResult struct {
	Updated int        `json:"updated"`
	Errors  []RowError `json:"errors"`
}
