package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/schoolguidance/tracker/internal/app/models"
	"github.com/schoolguidance/tracker/internal/app/models/dto"
	"github.com/schoolguidance/tracker/internal/app/repositories"
	"github.com/schoolguidance/tracker/internal/app/workflow"
	"github.com/schoolguidance/tracker/internal/pkg/apperrors"
	"github.com/schoolguidance/tracker/internal/pkg/auth"
	"github.com/schoolguidance/tracker/internal/pkg/email"
)

// accountSetupTTL is how long the password link of a staff-created account stays valid
const accountSetupTTL = 72 * time.Hour

// StudentService manages student records
type StudentService interface {
	Profile(ctx context.Context, userID int64) (*models.Student, error)
	List(ctx context.Context, filter dto.StudentFilter, page, size int) ([]models.Student, int64, error)
	Search(ctx context.Context, query string, page, size int) ([]models.Student, int64, error)
	ListArchived(ctx context.Context, page, size int) ([]models.Student, int64, error)
	Get(ctx context.Context, id int64) (*models.Student, error)
	Create(ctx context.Context, req *dto.CreateStudentRequest) (*models.Student, error)
	BulkCreate(ctx context.Context, req *dto.BulkAddStudentsRequest) (*dto.BulkAddResult, error)
	Update(ctx context.Context, actorUserID, id int64, req *dto.UpdateStudentRequest) (*models.Student, error)
	Archive(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
	ViolationHistory(ctx context.Context, id int64) (*dto.StudentViolationHistory, error)
	UpdateMissingSchoolYear(ctx context.Context, schoolYear string) (int64, error)
}

type studentService struct {
	store    *Store
	settings SettingsService
	notifier *notifier
	logger   zerolog.Logger
}

// NewStudentService creates a StudentService
func NewStudentService(store *Store, settings SettingsService, n *notifier, logger zerolog.Logger) *studentService {
	return &studentService{store: store, settings: settings, notifier: n, logger: logger}
}

func (s *studentService) Profile(ctx context.Context, userID int64) (*models.Student, error) {
	return s.store.Repos().Students.GetByUserID(ctx, userID)
}

func (s *studentService) List(ctx context.Context, filter dto.StudentFilter, page, size int) ([]models.Student, int64, error) {
	return s.store.Repos().Students.List(ctx, filter, page, size)
}

func (s *studentService) Search(ctx context.Context, query string, page, size int) ([]models.Student, int64, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, 0, validationError("search query is required")
	}
	return s.List(ctx, dto.StudentFilter{Search: query}, page, size)
}

func (s *studentService) ListArchived(ctx context.Context, page, size int) ([]models.Student, int64, error) {
	return s.List(ctx, dto.StudentFilter{Archived: true}, page, size)
}

func (s *studentService) Get(ctx context.Context, id int64) (*models.Student, error) {
	return s.store.Repos().Students.GetByID(ctx, id)
}

// Create adds a student account. Without a password the account gets a
// random one and the student receives a link to choose their own.
func (s *studentService) Create(ctx context.Context, req *dto.CreateStudentRequest) (*models.Student, error) {
	var student *models.Student
	var setupToken string
	err := s.store.InTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		var err error
		student, setupToken, err = s.createInTx(ctx, repos, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.sendSetupLink(student, setupToken)
	s.logger.Info().Int64("studentID", student.ID).Str("studentNumber", student.StudentID).Msg("Student created")
	return student, nil
}

func (s *studentService) createInTx(ctx context.Context, repos *repositories.Repositories, req *dto.CreateStudentRequest) (*models.Student, string, error) {
	if err := models.ValidateEnrollment(req.GradeLevel, req.Strand); err != nil {
		return nil, "", apperrors.NewCustomError(apperrors.ErrValidationFailed, err.Error())
	}

	username := strings.TrimSpace(req.Username)
	emailAddr := strings.ToLower(strings.TrimSpace(req.Email))
	if exists, err := repos.Users.UsernameExists(ctx, username); err != nil {
		return nil, "", err
	} else if exists {
		return nil, "", apperrors.ErrUsernameAlreadyExists
	}
	if exists, err := repos.Users.EmailExists(ctx, emailAddr); err != nil {
		return nil, "", err
	} else if exists {
		return nil, "", apperrors.ErrEmailAlreadyExists
	}
	if req.StudentID != "" {
		if exists, err := repos.Students.StudentIDExists(ctx, req.StudentID); err != nil {
			return nil, "", err
		} else if exists {
			return nil, "", apperrors.ErrStudentIDAlreadyExists
		}
	}

	password := req.Password
	var setupToken string
	if password == "" {
		var err error
		if password, err = email.GenerateToken(); err != nil {
			return nil, "", fmt.Errorf("error generating password: %w", err)
		}
		if setupToken, err = email.GenerateToken(); err != nil {
			return nil, "", fmt.Errorf("error generating setup token: %w", err)
		}
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		Username:  username,
		Email:     emailAddr,
		Password:  hash,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		RoleType:  models.RoleStudent,
		IsActive:  true,
	}
	if err := repos.Users.Create(ctx, user); err != nil {
		return nil, "", err
	}

	schoolYear := req.SchoolYear
	if schoolYear == "" {
		schoolYear = s.settings.CurrentSchoolYear(ctx)
	}
	student := &models.Student{
		UserID:          user.ID,
		StudentID:       req.StudentID,
		GradeLevel:      req.GradeLevel,
		Strand:          req.Strand,
		Section:         req.Section,
		SchoolYear:      schoolYear,
		ContactNumber:   req.ContactNumber,
		GuardianName:    req.GuardianName,
		GuardianContact: req.GuardianContact,
		IsActive:        true,
		User:            user,
	}
	if err := repos.Students.Create(ctx, student); err != nil {
		return nil, "", err
	}
	if err := repos.History.Activate(ctx, &models.StudentSchoolYearHistory{
		StudentID:  student.ID,
		SchoolYear: schoolYear,
		GradeLevel: student.GradeLevel,
		Section:    student.Section,
		Strand:     student.Strand,
	}); err != nil {
		return nil, "", err
	}

	if setupToken != "" {
		if err := repos.PasswordResets.CreateToken(ctx, user.ID, setupToken, time.Now().Add(accountSetupTTL)); err != nil {
			return nil, "", err
		}
	}
	return student, setupToken, nil
}

func (s *studentService) sendSetupLink(student *models.Student, token string) {
	if token == "" || student.User == nil || student.User.Email == "" {
		return
	}
	to, name := student.User.Email, student.User.FullName()
	s.notifier.sendMail("account_setup", func(m email.EmailService) error {
		return m.SendPasswordResetEmail(to, name, token)
	})
}

// BulkCreate adds every row in its own transaction; failed rows are reported
// and do not stop the batch.
func (s *studentService) BulkCreate(ctx context.Context, req *dto.BulkAddStudentsRequest) (*dto.BulkAddResult, error) {
	result := &dto.BulkAddResult{Created: []models.Student{}, Errors: []dto.RowError{}}
	for i := range req.Students {
		row := &req.Students[i]
		var student *models.Student
		var setupToken string
		err := s.store.InTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
			var err error
			student, setupToken, err = s.createInTx(ctx, repos, row)
			return err
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			result.Errors = append(result.Errors, dto.RowError{Index: i, Key: row.Username, Message: rowErrorMessage(err)})
			continue
		}
		s.sendSetupLink(student, setupToken)
		result.Created = append(result.Created, *student)
	}

	s.logger.Info().
		Int("created", len(result.Created)).
		Int("failed", len(result.Errors)).
		Msg("Bulk student add finished")
	return result, nil
}

// rowErrorMessage hides internal errors from batch results
func rowErrorMessage(err error) string {
	var custom *apperrors.CustomError
	switch {
	case errors.As(err, &custom):
		return custom.Error()
	case apperrors.Is(err, apperrors.ErrUsernameAlreadyExists, apperrors.ErrEmailAlreadyExists,
		apperrors.ErrStudentIDAlreadyExists, apperrors.ErrStudentNotFound):
		return err.Error()
	default:
		return "unexpected error"
	}
}

// Update changes enrollment and account fields. A strand or section change
// is recorded in the strand change history.
func (s *studentService) Update(ctx context.Context, actorUserID, id int64, req *dto.UpdateStudentRequest) (*models.Student, error) {
	var updated *models.Student
	err := s.store.InTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		student, err := repos.Students.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		before := *student

		if req.GradeLevel != nil {
			student.GradeLevel = *req.GradeLevel
		}
		if req.Strand != nil {
			student.Strand = strings.TrimSpace(*req.Strand)
		}
		if req.Section != nil {
			student.Section = strings.TrimSpace(*req.Section)
		}
		if req.SchoolYear != nil {
			student.SchoolYear = *req.SchoolYear
		}
		if req.ContactNumber != nil {
			student.ContactNumber = *req.ContactNumber
		}
		if req.GuardianName != nil {
			student.GuardianName = *req.GuardianName
		}
		if req.GuardianContact != nil {
			student.GuardianContact = *req.GuardianContact
		}
		if req.IsActive != nil {
			student.IsActive = *req.IsActive
		}
		if err := models.ValidateEnrollment(student.GradeLevel, student.Strand); err != nil {
			return apperrors.NewCustomError(apperrors.ErrValidationFailed, err.Error())
		}

		if err := repos.Students.Update(ctx, student); err != nil {
			return err
		}

		if req.FirstName != nil || req.LastName != nil || req.Email != nil {
			user := student.User
			first, last, mail := user.FirstName, user.LastName, user.Email
			if req.FirstName != nil {
				first = strings.TrimSpace(*req.FirstName)
			}
			if req.LastName != nil {
				last = strings.TrimSpace(*req.LastName)
			}
			if req.Email != nil {
				mail = strings.ToLower(strings.TrimSpace(*req.Email))
			}
			if err := repos.Users.UpdateProfile(ctx, user.ID, first, last, mail); err != nil {
				return err
			}
		}

		if before.Strand != student.Strand || before.Section != student.Section {
			change := &models.StrandChange{
				StudentID:       student.ID,
				PreviousStrand:  before.Strand,
				NewStrand:       student.Strand,
				PreviousSection: before.Section,
				NewSection:      student.Section,
				ApprovedBy:      &actorUserID,
			}
			if req.ChangeReason != nil {
				change.ChangeReason = *req.ChangeReason
			}
			if err := repos.History.RecordStrandChange(ctx, change); err != nil {
				return err
			}
		}

		updated, err = repos.Students.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("studentID", id).Int64("actorUserID", actorUserID).Msg("Student updated")
	return updated, nil
}

func (s *studentService) Archive(ctx context.Context, id int64) error {
	if err := s.store.Repos().Students.SetArchived(ctx, id, true); err != nil {
		return err
	}
	s.logger.Info().Int64("studentID", id).Msg("Student archived")
	return nil
}

func (s *studentService) Restore(ctx context.Context, id int64) error {
	if err := s.store.Repos().Students.SetArchived(ctx, id, false); err != nil {
		return err
	}
	s.logger.Info().Int64("studentID", id).Msg("Student restored")
	return nil
}

// Delete permanently removes an archived student and their account
func (s *studentService) Delete(ctx context.Context, id int64) error {
	err := s.store.InTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		student, err := repos.Students.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !student.IsArchived {
			return apperrors.NewConflictError("only archived students can be deleted permanently")
		}
		return repos.Users.Delete(ctx, student.UserID)
	})
	if err != nil {
		return err
	}
	s.logger.Warn().Int64("studentID", id).Msg("Student deleted permanently")
	return nil
}

func (s *studentService) ViolationHistory(ctx context.Context, id int64) (*dto.StudentViolationHistory, error) {
	repos := s.store.Repos()
	student, err := repos.Students.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	violations, err := repos.Violations.ListByStudent(ctx, id)
	if err != nil {
		return nil, err
	}
	history, err := repos.History.ListByStudent(ctx, id)
	if err != nil {
		return nil, err
	}

	tally, err := repos.Tallies.GetByStudent(ctx, id)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			return nil, err
		}
		records := make([]workflow.TallyRecord, 0, len(violations))
		for _, v := range violations {
			records = append(records, workflow.TallyRecord{
				Status:        v.Status,
				SeverityLevel: v.SeverityLevel,
				Category:      v.Category,
				IncidentDate:  v.IncidentDate,
				SchoolYear:    v.SchoolYear,
			})
		}
		computed := workflow.ComputeTally(id, records, workflow.TallyScope{SchoolYear: student.SchoolYear, Strand: student.Strand})
		tally = &computed
	}

	return &dto.StudentViolationHistory{
		Student:    student,
		Tally:      tally,
		Violations: violations,
		History:    history,
	}, nil
}

// UpdateMissingSchoolYear fills the school year on students without one,
// using the current school year when none is given.
func (s *studentService) UpdateMissingSchoolYear(ctx context.Context, schoolYear string) (int64, error) {
	if schoolYear == "" {
		schoolYear = s.settings.CurrentSchoolYear(ctx)
	}
	updated, err := s.store.Repos().Students.SetMissingSchoolYear(ctx, schoolYear)
	if err != nil {
		return 0, err
	}
	s.logger.Info().Int64("updated", updated).Str("schoolYear", schoolYear).Msg("Filled missing school years")
	return updated, nil
}
