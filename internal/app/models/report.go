package models

import "time"

// ReportType distinguishes who filed a report
type ReportType string

const (
	ReportTypeStudent ReportType = "student_report"
	ReportTypeTeacher ReportType = "teacher_report"
)

// ReportStatus is a state of the report review workflow
type ReportStatus string

const (
	StatusPending            ReportStatus = "pending"
	StatusUnderReview        ReportStatus = "under_review"
	StatusUnderInvestigation ReportStatus = "under_investigation"
	StatusSummoned           ReportStatus = "summoned"
	StatusVerified           ReportStatus = "verified"
	StatusDismissed          ReportStatus = "dismissed"
	StatusResolved           ReportStatus = "resolved"
	StatusEscalated          ReportStatus = "escalated"
	StatusInvalid            ReportStatus = "invalid"

	// StatusSummonsSentLegacy is accepted on input and stored as StatusSummoned
	StatusSummonsSentLegacy ReportStatus = "summons_sent"
)

// VerificationStatus is the counselor's verdict on a report
type VerificationStatus string

const (
	VerificationPending   VerificationStatus = "pending"
	VerificationVerified  VerificationStatus = "verified"
	VerificationDismissed VerificationStatus = "dismissed"
)

// Severity of a reported incident
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ValidSeverity reports whether s is a known incident severity
func ValidSeverity(s string) bool {
	switch Severity(s) {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Report is a student or teacher incident report ('reports' table)
type Report struct {
	ID                  int64              `json:"id" db:"id"`
	ReportType          ReportType         `json:"reportType" db:"report_type" example:"student_report"`
	Title               string             `json:"title" db:"title" example:"Vaping in the restroom"`
	Description         string             `json:"description" db:"description"`
	ReporterUserID      int64              `json:"reporterUserId" db:"reporter_user_id"`
	ReporterStudentID   *int64             `json:"reporterStudentId,omitempty" db:"reporter_student_id"`
	ReporterTeacherID   *int64             `json:"reporterTeacherId,omitempty" db:"reporter_teacher_id"`
	ReportedStudentID   *int64             `json:"reportedStudentId,omitempty" db:"reported_student_id"`
	ViolationTypeID     *int64             `json:"violationTypeId,omitempty" db:"violation_type_id"`
	CustomViolation     string             `json:"customViolation,omitempty" db:"custom_violation"`
	Severity            Severity           `json:"severity" db:"severity" example:"medium"`
	Status              ReportStatus       `json:"status" db:"status" example:"pending"`
	VerificationStatus  VerificationStatus `json:"verificationStatus" db:"verification_status"`
	RequiresCounseling  bool               `json:"requiresCounseling" db:"requires_counseling"`
	Location            string             `json:"location,omitempty" db:"location"`
	Witnesses           string             `json:"witnesses,omitempty" db:"witnesses"`
	IncidentDate        *time.Time         `json:"incidentDate,omitempty" db:"incident_date"`
	SchoolYear          string             `json:"schoolYear,omitempty" db:"school_year"`
	AssignedCounselorID *int64             `json:"assignedCounselorId,omitempty" db:"assigned_counselor_id"`
	CounselorNotes      string             `json:"counselorNotes,omitempty" db:"counselor_notes"`
	SummonsSentAt       *time.Time         `json:"summonsSentAt,omitempty" db:"summons_sent_at"`
	VerifiedBy          *int64             `json:"verifiedBy,omitempty" db:"verified_by"`
	VerifiedAt          *time.Time         `json:"verifiedAt,omitempty" db:"verified_at"`
	ResolvedAt          *time.Time         `json:"resolvedAt,omitempty" db:"resolved_at"`
	CreatedAt           time.Time          `json:"createdAt" db:"created_at"`
	UpdatedAt           time.Time          `json:"updatedAt" db:"updated_at"`

	// Populated by joins
	ReporterName        string `json:"reporterName,omitempty"`
	ReportedStudentName string `json:"reportedStudentName,omitempty"`
	ReportedUserID      *int64 `json:"reportedUserId,omitempty"`
	ViolationTypeName   string `json:"violationTypeName,omitempty"`
}

// IsSelfReport reports whether the reporter filed the report about themself
func (r *Report) IsSelfReport() bool {
	return r.ReportType == ReportTypeStudent && r.ReporterStudentID != nil &&
		r.ReportedStudentID != nil && *r.ReporterStudentID == *r.ReportedStudentID
}

// CounselingSessionStatus is the lifecycle of a counseling appointment
type CounselingSessionStatus string

const (
	SessionScheduled   CounselingSessionStatus = "scheduled"
	SessionCompleted   CounselingSessionStatus = "completed"
	SessionCancelled   CounselingSessionStatus = "cancelled"
	SessionNoShow      CounselingSessionStatus = "no_show"
	SessionRescheduled CounselingSessionStatus = "rescheduled"
)

// ValidSessionStatus reports whether s is a known session status
func ValidSessionStatus(s string) bool {
	switch CounselingSessionStatus(s) {
	case SessionScheduled, SessionCompleted, SessionCancelled, SessionNoShow, SessionRescheduled:
		return true
	}
	return false
}

// CounselingSession is a scheduled meeting between a counselor and a student
type CounselingSession struct {
	ID               int64                   `json:"id" db:"id"`
	ReportID         *int64                  `json:"reportId,omitempty" db:"report_id"`
	CounselorID      int64                   `json:"counselorId" db:"counselor_id"`
	StudentID        int64                   `json:"studentId" db:"student_id"`
	ScheduledDate    time.Time               `json:"scheduledDate" db:"scheduled_date"`
	ActualDate       *time.Time              `json:"actualDate,omitempty" db:"actual_date"`
	Status           CounselingSessionStatus `json:"status" db:"status"`
	StudentAttended  bool                    `json:"studentAttended" db:"student_attended"`
	SessionNotes     string                  `json:"sessionNotes,omitempty" db:"session_notes"`
	CaseVerified     bool                    `json:"caseVerified" db:"case_verified"`
	FollowUpRequired bool                    `json:"followUpRequired" db:"follow_up_required"`
	CreatedAt        time.Time               `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time               `json:"updatedAt" db:"updated_at"`
}
