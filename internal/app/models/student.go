package models

import (
	"errors"
	"fmt"
	"time"
)

// Strand is a senior high school academic track
type Strand string

const (
	StrandSTEM             Strand = "STEM"
	StrandPBM              Strand = "PBM"
	StrandABM              Strand = "ABM"
	StrandHUMSS            Strand = "HUMSS"
	StrandHomeEconomics    Strand = "HOME_ECONOMICS"
	StrandHomeEconomicsICT Strand = "HOME_ECONOMICS_ICT"
	StrandICT              Strand = "ICT"
	StrandEIMSMAW          Strand = "EIM_SMAW"
	StrandSMAW             Strand = "SMAW"
	StrandHE               Strand = "HE"
	StrandEIM              Strand = "EIM"
)

// Strands lists every accepted strand
var Strands = []Strand{
	StrandSTEM, StrandPBM, StrandABM, StrandHUMSS, StrandHomeEconomics,
	StrandHomeEconomicsICT, StrandICT, StrandEIMSMAW, StrandSMAW, StrandHE, StrandEIM,
}

// ValidStrand reports whether s is one of Strands
func ValidStrand(s string) bool {
	for _, strand := range Strands {
		if string(strand) == s {
			return true
		}
	}
	return false
}

const (
	MinGradeLevel = 7
	MaxGradeLevel = 12
)

var (
	ErrGradeOutOfRange  = errors.New("grade level must be between 7 and 12")
	ErrStrandRequired   = errors.New("strand is required for grades 11 and 12")
	ErrStrandNotAllowed = errors.New("strand is only allowed for grades 11 and 12")
	ErrUnknownStrand    = errors.New("unknown strand")
)

// IsSeniorHigh reports whether grade requires a strand
func IsSeniorHigh(grade int) bool {
	return grade == 11 || grade == 12
}

// ValidateEnrollment checks the grade/strand pairing of a student.
func ValidateEnrollment(grade int, strand string) error {
	if grade < MinGradeLevel || grade > MaxGradeLevel {
		return ErrGradeOutOfRange
	}
	if IsSeniorHigh(grade) {
		if strand == "" {
			return ErrStrandRequired
		}
		if !ValidStrand(strand) {
			return fmt.Errorf("%w: %s", ErrUnknownStrand, strand)
		}
		return nil
	}
	if strand != "" {
		return ErrStrandNotAllowed
	}
	return nil
}

// Student defines the student model based on the 'students' table
type Student struct {
	ID              int64      `json:"id" db:"id" example:"1"`
	UserID          int64      `json:"userId" db:"user_id" example:"5"`
	StudentID       string     `json:"studentId" db:"student_id" example:"STU000005"`
	GradeLevel      int        `json:"gradeLevel" db:"grade_level" example:"11"`
	Strand          string     `json:"strand,omitempty" db:"strand" example:"STEM"`
	Section         string     `json:"section,omitempty" db:"section" example:"Rizal"`
	SchoolYear      string     `json:"schoolYear,omitempty" db:"school_year" example:"2024-2025"`
	ContactNumber   string     `json:"contactNumber,omitempty" db:"contact_number"`
	GuardianName    string     `json:"guardianName,omitempty" db:"guardian_name"`
	GuardianContact string     `json:"guardianContact,omitempty" db:"guardian_contact"`
	IsActive        bool       `json:"isActive" db:"is_active"`
	IsArchived      bool       `json:"isArchived" db:"is_archived"`
	ArchivedAt      *time.Time `json:"archivedAt,omitempty" db:"archived_at"`
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time  `json:"updatedAt" db:"updated_at"`

	User *User `json:"user,omitempty"`
}

// FormatStudentID builds the generated student number for a user id
func FormatStudentID(userID int64) string {
	return fmt.Sprintf("STU%06d", userID)
}

// StudentSchoolYearHistory is one archived enrollment year of a student
type StudentSchoolYearHistory struct {
	ID         int64     `json:"id" db:"id"`
	StudentID  int64     `json:"studentId" db:"student_id"`
	SchoolYear string    `json:"schoolYear" db:"school_year"`
	GradeLevel int       `json:"gradeLevel" db:"grade_level"`
	Section    string    `json:"section,omitempty" db:"section"`
	Strand     string    `json:"strand,omitempty" db:"strand"`
	IsActive   bool      `json:"isActive" db:"is_active"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// StrandChangeReason describes why a student's strand changed
type StrandChangeReason string

const (
	ChangeReasonAcademicPerformance     StrandChangeReason = "academic_performance"
	ChangeReasonCareerInterest          StrandChangeReason = "career_interest"
	ChangeReasonFamilyDecision          StrandChangeReason = "family_decision"
	ChangeReasonCounselorRecommendation StrandChangeReason = "counselor_recommendation"
	ChangeReasonAdministrative          StrandChangeReason = "administrative"
	ChangeReasonOther                   StrandChangeReason = "other"
)

// StrandChange records a counselor-approved strand or section move
type StrandChange struct {
	ID              int64              `json:"id" db:"id"`
	StudentID       int64              `json:"studentId" db:"student_id"`
	PreviousStrand  string             `json:"previousStrand,omitempty" db:"previous_strand"`
	NewStrand       string             `json:"newStrand,omitempty" db:"new_strand"`
	PreviousSection string             `json:"previousSection,omitempty" db:"previous_section"`
	NewSection      string             `json:"newSection,omitempty" db:"new_section"`
	ChangeReason    StrandChangeReason `json:"changeReason" db:"change_reason"`
	ApprovedBy      *int64             `json:"approvedBy,omitempty" db:"approved_by"`
	EffectiveDate   time.Time          `json:"effectiveDate" db:"effective_date"`
	CreatedAt       time.Time          `json:"createdAt" db:"created_at"`
}
