package dto

import (
	"time"

	"github.com/schoolguidance/tracker/internal/app/models"
)

// RecordViolationRequest records a violation directly
type RecordViolationRequest struct {
	StudentID       int64      `json:"studentId" binding:"required,min=1"`
	ViolationTypeID int64      `json:"violationTypeId" binding:"required,min=1"`
	RelatedReportID *int64     `json:"relatedReportId,omitempty"`
	IncidentDate    *time.Time `json:"incidentDate,omitempty"`
	Description     string     `json:"description,omitempty"`
	Location        string     `json:"location,omitempty"`
	Status          string     `json:"status,omitempty" binding:"omitempty,oneof=active resolved dismissed appealed"`
	CounselorNotes  string     `json:"counselorNotes,omitempty"`
	ActionTaken     string     `json:"actionTaken,omitempty"`
	AcademicQuarter string     `json:"academicQuarter,omitempty" binding:"omitempty,oneof=Q1 Q2 Q3 Q4"`
}

// RecordViolationResult includes the refreshed tally
type RecordViolationResult struct {
	Violation *models.ViolationRecord `json:"violation"`
	Tally     *models.ViolationTally  `json:"tally"`
}

// ViolationTypeRequest creates or updates a catalog entry
type ViolationTypeRequest struct {
	Name             string `json:"name" binding:"required,max=200"`
	Category         string `json:"category" binding:"required"`
	SeverityLevel    string `json:"severityLevel" binding:"required,oneof=Low Medium High Critical"`
	Description      string `json:"description,omitempty"`
	IsActive         *bool  `json:"isActive,omitempty"`
	ApplicableGrades string `json:"applicableGrades,omitempty"`
}

// ViolationFilter narrows violation record lists
type ViolationFilter struct {
	StudentID  *int64
	SchoolYear string
	Status     string
	Category   string
}
