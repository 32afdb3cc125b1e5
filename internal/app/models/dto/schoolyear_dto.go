package dto

import "github.com/schoolguidance/tracker/internal/pkg/schoolyear"

// RolloverRequest starts a school year rollover
type RolloverRequest struct {
	NewSchoolYear string `json:"newSchoolYear" binding:"omitempty,schoolyear"`
	DryRun        bool   `json:"dryRun"`
}

// RolloverResult summarises a rollover
type RolloverResult struct {
	PreviousSchoolYear string         `json:"previousSchoolYear"`
	NewSchoolYear      string         `json:"newSchoolYear"`
	DryRun             bool           `json:"dryRun"`
	StudentsProcessed  int            `json:"studentsProcessed"`
	StudentsPromoted   int            `json:"studentsPromoted"`
	HistoryArchived    int            `json:"historyArchived"`
	AwaitingStrand     int            `json:"awaitingStrand"`
	ViolationsByYear   map[string]int `json:"violationsByYear"`
}

// PromotionEntry is one student's promotion decision
type PromotionEntry struct {
	StudentID  int64             `json:"studentId" binding:"required,min=1"`
	Action     schoolyear.Action `json:"action" binding:"required,oneof=promote retain graduate"`
	NewGrade   *int              `json:"newGrade,omitempty" binding:"omitempty,gradelevel"`
	NewSection string            `json:"newSection,omitempty"`
	NewStrand  string            `json:"newStrand,omitempty" binding:"omitempty,strand"`
}

// PromoteRequest applies decisions for a list of students
type PromoteRequest struct {
	NewSchoolYear string           `json:"newSchoolYear" binding:"required,schoolyear"`
	Students      []PromotionEntry `json:"students" binding:"required,min=1,dive"`
}

// BulkPromoteRequest promotes a whole grade of a school year
type BulkPromoteRequest struct {
	CurrentGrade      int     `json:"currentGrade" binding:"required,gradelevel"`
	CurrentSchoolYear string  `json:"currentSchoolYear" binding:"required,schoolyear"`
	NewSchoolYear     string  `json:"newSchoolYear" binding:"required,schoolyear"`
	ExcludeStudentIDs []int64 `json:"excludeStudentIds,omitempty"`
}

// PromotionResult summarises promote and bulk promote
type PromotionResult struct {
	Promoted  int        `json:"promoted"`
	Retained  int        `json:"retained"`
	Graduated int        `json:"graduated"`
	Errors    []RowError `json:"errors"`
}

// PreviewStudent is one row of the promotion preview
type PreviewStudent struct {
	StudentID       int64             `json:"studentId"`
	StudentNumber   string            `json:"studentNumber"`
	Name            string            `json:"name"`
	Section         string            `json:"section,omitempty"`
	Strand          string            `json:"strand,omitempty"`
	ViolationCount  int               `json:"violationCount"`
	SuggestedAction schoolyear.Action `json:"suggestedAction"`
}

// PreviewGrade groups preview rows by grade
type PreviewGrade struct {
	GradeLevel int              `json:"gradeLevel"`
	NextGrade  string           `json:"nextGrade"`
	Students   []PreviewStudent `json:"students"`
}

// PromotionPreview is the full preview for a school year
type PromotionPreview struct {
	SchoolYear string         `json:"schoolYear"`
	Grades     []PreviewGrade `json:"grades"`
}
