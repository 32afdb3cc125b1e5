package models

import "time"

// ApprovalStatus tracks a teacher registration
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Teacher defines the teacher model based on the 'teachers' table
type Teacher struct {
	ID              int64          `json:"id" db:"id"`
	UserID          int64          `json:"userId" db:"user_id"`
	EmployeeID      string         `json:"employeeId" db:"employee_id" example:"T-2024-001"`
	Department      string         `json:"department,omitempty" db:"department"`
	Specialization  string         `json:"specialization,omitempty" db:"specialization"`
	AdvisingGrade   *int           `json:"advisingGrade,omitempty" db:"advising_grade"`
	AdvisingStrand  string         `json:"advisingStrand,omitempty" db:"advising_strand"`
	AdvisingSection string         `json:"advisingSection,omitempty" db:"advising_section"`
	ApprovalStatus  ApprovalStatus `json:"approvalStatus" db:"approval_status"`
	ApprovedBy      *int64         `json:"approvedBy,omitempty" db:"approved_by"`
	ApprovedAt      *time.Time     `json:"approvedAt,omitempty" db:"approved_at"`
	RejectionReason string         `json:"rejectionReason,omitempty" db:"rejection_reason"`
	CreatedAt       time.Time      `json:"createdAt" db:"created_at"`

	User *User `json:"user,omitempty"`
}

// Counselor defines the counselor model based on the 'counselors' table
type Counselor struct {
	ID             int64     `json:"id" db:"id"`
	UserID         int64     `json:"userId" db:"user_id"`
	EmployeeID     string    `json:"employeeId" db:"employee_id"`
	Specialization string    `json:"specialization,omitempty" db:"specialization"`
	Office         string    `json:"office,omitempty" db:"office"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`

	User *User `json:"user,omitempty"`
}
