package auth

import (
	"context"

	"github.com/schoolguidance/tracker/internal/app/models"
	"github.com/schoolguidance/tracker/internal/app/repositories"
	"github.com/schoolguidance/tracker/internal/pkg/apperrors"
	"github.com/schoolguidance/tracker/internal/pkg/logger"
)

// Actor is the authenticated caller of a request
type Actor struct {
	UserID int64
	Role   models.RoleType
}

// AuthorizationService decides access to individual records
type AuthorizationService struct {
	students *repositories.StudentRepository
}

// NewAuthorizationService creates a new AuthorizationService
func NewAuthorizationService(students *repositories.StudentRepository) *AuthorizationService {
	return &AuthorizationService{students: students}
}

// CanViewReport reports whether actor may read rep. Counselors and admins see
// every report, reporters see their own, and a student sees reports filed
// about them.
func (s *AuthorizationService) CanViewReport(ctx context.Context, actor Actor, rep *models.Report) (bool, error) {
	if actor.Role.IsStaff() {
		return true, nil
	}
	if rep.ReporterUserID == actor.UserID {
		return true, nil
	}
	if actor.Role != models.RoleStudent || rep.ReportedStudentID == nil {
		return false, nil
	}
	if rep.ReportedUserID != nil {
		return *rep.ReportedUserID == actor.UserID, nil
	}

	student, err := s.students.GetByUserID(ctx, actor.UserID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return false, nil
		}
		logger.Error().Err(err).Int64("userID", actor.UserID).Msg("Error loading student in CanViewReport")
		return false, err
	}
	return student.ID == *rep.ReportedStudentID, nil
}

// ValidateReportAccess returns ErrPermissionDenied when actor may not read rep
func (s *AuthorizationService) ValidateReportAccess(ctx context.Context, actor Actor, rep *models.Report) error {
	ok, err := s.CanViewReport(ctx, actor, rep)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewForbiddenError("you don't have permission to view this report")
	}
	return nil
}
