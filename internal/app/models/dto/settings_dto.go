package dto

import (
	"time"

	"github.com/schoolguidance/tracker/internal/app/models"
)

// UpdateSettingsRequest changes the singleton settings; nil fields are kept
type UpdateSettingsRequest struct {
	CurrentSchoolYear   *string    `json:"currentSchoolYear,omitempty" binding:"omitempty,schoolyear"`
	SchoolYearStartDate *time.Time `json:"schoolYearStartDate,omitempty"`
	SchoolYearEndDate   *time.Time `json:"schoolYearEndDate,omitempty"`
	IsSystemActive      *bool      `json:"isSystemActive,omitempty"`
	SystemMessage       *string    `json:"systemMessage,omitempty"`
}

// CounselingSessionRequest logs or reschedules a session
type CounselingSessionRequest struct {
	ReportID      *int64    `json:"reportId,omitempty"`
	StudentID     int64     `json:"studentId" binding:"required,min=1"`
	ScheduledDate time.Time `json:"scheduledDate" binding:"required"`
	SessionNotes  string    `json:"sessionNotes,omitempty"`
}

// UpdateCounselingSessionRequest records the outcome of a session
type UpdateCounselingSessionRequest struct {
	Status           *models.CounselingSessionStatus `json:"status,omitempty" binding:"omitempty,oneof=scheduled completed cancelled no_show rescheduled"`
	ScheduledDate    *time.Time                      `json:"scheduledDate,omitempty"`
	ActualDate       *time.Time                      `json:"actualDate,omitempty"`
	StudentAttended  *bool                           `json:"studentAttended,omitempty"`
	SessionNotes     *string                         `json:"sessionNotes,omitempty"`
	CaseVerified     *bool                           `json:"caseVerified,omitempty"`
	FollowUpRequired *bool                           `json:"followUpRequired,omitempty"`
}
