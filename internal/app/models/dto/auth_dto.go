package dto

import (
	"github.com/schoolguidance/tracker/internal/app/models"
)

// LoginRequest represents login credentials
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse represents JWT token information
type TokenResponse struct {
	AccessToken           string `json:"accessToken"`
	TokenType             string `json:"tokenType" example:"Bearer"`
	ExpiresIn             int64  `json:"expiresIn"`
	RefreshToken          string `json:"refreshToken,omitempty"`
	RefreshTokenExpiresIn int64  `json:"refreshTokenExpiresIn,omitempty"`
}

// RefreshTokenRequest represents refresh token request
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RegisterRequest registers a student, teacher or counselor account.
// Role-specific fields are ignored for other roles.
type RegisterRequest struct {
	Username  string          `json:"username" binding:"required,username"`
	Email     string          `json:"email" binding:"required,email"`
	Password  string          `json:"password" binding:"required,min=8"`
	FirstName string          `json:"firstName" binding:"required"`
	LastName  string          `json:"lastName" binding:"required"`
	RoleType  models.RoleType `json:"roleType" binding:"required,oneof=STUDENT TEACHER COUNSELOR"`

	// Student
	StudentID     string `json:"studentId,omitempty"`
	GradeLevel    int    `json:"gradeLevel,omitempty" binding:"omitempty,gradelevel"`
	Strand        string `json:"strand,omitempty" binding:"omitempty,strand"`
	Section       string `json:"section,omitempty"`
	SchoolYear    string `json:"schoolYear,omitempty" binding:"omitempty,schoolyear"`
	ContactNumber string `json:"contactNumber,omitempty"`

	// Teacher and counselor
	EmployeeID      string `json:"employeeId,omitempty"`
	Department      string `json:"department,omitempty"`
	Specialization  string `json:"specialization,omitempty"`
	AdvisingGrade   *int   `json:"advisingGrade,omitempty" binding:"omitempty,gradelevel"`
	AdvisingStrand  string `json:"advisingStrand,omitempty" binding:"omitempty,strand"`
	AdvisingSection string `json:"advisingSection,omitempty"`
	Office          string `json:"office,omitempty"`
}

// ForgotPasswordRequest starts a password reset
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest completes a password reset
type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

// UserProfile is a user with its role-specific profile
type UserProfile struct {
	User      *models.User      `json:"user"`
	Student   *models.Student   `json:"student,omitempty"`
	Teacher   *models.Teacher   `json:"teacher,omitempty"`
	Counselor *models.Counselor `json:"counselor,omitempty"`
}

// AuthResponse is returned by login and (non-teacher) registration
type AuthResponse struct {
	Token   *TokenResponse `json:"token,omitempty"`
	Profile *UserProfile   `json:"profile"`
	// ApprovalStatus is set for teacher registrations awaiting approval
	ApprovalStatus models.ApprovalStatus `json:"approvalStatus,omitempty"`
}

// RejectTeacherRequest carries the reason shown to the teacher
type RejectTeacherRequest struct {
	Reason string `json:"reason"`
}
