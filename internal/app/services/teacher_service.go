package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/schoolguidance/tracker/internal/app/models"
	"github.com/schoolguidance/tracker/internal/app/models/dto"
	"github.com/schoolguidance/tracker/internal/app/repositories"
	"github.com/schoolguidance/tracker/internal/app/workflow"
	"github.com/schoolguidance/tracker/internal/pkg/apperrors"
	"github.com/schoolguidance/tracker/internal/pkg/email"
)

// TeacherService covers teacher profiles and admin approval
type TeacherService interface {
	Profile(ctx context.Context, userID int64) (*models.Teacher, error)
	AdvisingStudents(ctx context.Context, userID int64) ([]models.Student, error)
	AdvisorySection(ctx context.Context, userID int64) (*dto.AdvisorySection, error)
	UpdateAdvisorySection(ctx context.Context, userID int64, req *dto.UpdateAdvisorySectionRequest) (*dto.AdvisoryUpdateResult, error)
	ListPending(ctx context.Context) ([]models.Teacher, error)
	Approve(ctx context.Context, adminUserID, teacherID int64) (*models.Teacher, error)
	Reject(ctx context.Context, adminUserID, teacherID int64, reason string) (*models.Teacher, error)
}

type teacherService struct {
	store    *Store
	settings SettingsService
	notifier *notifier
	logger   zerolog.Logger
}

// NewTeacherService creates a TeacherService
func NewTeacherService(store *Store, settings SettingsService, n *notifier, logger zerolog.Logger) *teacherService {
	return &teacherService{store: store, settings: settings, notifier: n, logger: logger}
}

func (s *teacherService) Profile(ctx context.Context, userID int64) (*models.Teacher, error) {
	return s.store.Repos().Teachers.GetByUserID(ctx, userID)
}

// AdvisingStudents lists the advisory class of a teacher. Teachers without
// an advising grade have none.
func (s *teacherService) AdvisingStudents(ctx context.Context, userID int64) ([]models.Student, error) {
	teacher, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if teacher.AdvisingGrade == nil {
		return []models.Student{}, nil
	}
	return s.store.Repos().Students.ListAdvisees(ctx, *teacher.AdvisingGrade, teacher.AdvisingStrand, teacher.AdvisingSection)
}

// AdvisorySection lists the advisory class with violation counts per
// enrolled school year
func (s *teacherService) AdvisorySection(ctx context.Context, userID int64) (*dto.AdvisorySection, error) {
	teacher, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	section := &dto.AdvisorySection{
		SchoolYear:      s.settings.CurrentSchoolYear(ctx),
		AdvisingGrade:   teacher.AdvisingGrade,
		AdvisingStrand:  teacher.AdvisingStrand,
		AdvisingSection: teacher.AdvisingSection,
		Students:        []dto.AdvisoryStudent{},
	}
	if teacher.AdvisingGrade == nil {
		return section, nil
	}

	repos := s.store.Repos()
	students, err := repos.Students.ListAdvisees(ctx, *teacher.AdvisingGrade, teacher.AdvisingStrand, teacher.AdvisingSection)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(students))
	for i := range students {
		ids[i] = students[i].ID
	}
	counts, err := repos.Violations.CountByStudentAndYear(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, st := range students {
		history, err := repos.History.ListByStudent(ctx, st.ID)
		if err != nil {
			return nil, err
		}
		section.Students = append(section.Students, advisoryStudent(st, history, counts[st.ID], section.SchoolYear))
	}
	section.TotalStudents = len(section.Students)
	return section, nil
}

func advisoryStudent(st models.Student, history []models.StudentSchoolYearHistory, perYear map[string]int, currentYear string) dto.AdvisoryStudent {
	out := dto.AdvisoryStudent{Student: st, ViolationsByYear: make([]dto.YearViolations, 0, len(history))}
	for _, n := range perYear {
		out.ViolationsAllTime += n
	}
	year := st.SchoolYear
	if year == "" {
		year = currentYear
	}
	out.ViolationsCurrentYear = perYear[year]
	for _, h := range history {
		out.ViolationsByYear = append(out.ViolationsByYear, dto.YearViolations{
			SchoolYear: h.SchoolYear,
			GradeLevel: h.GradeLevel,
			Section:    h.Section,
			Count:      perYear[h.SchoolYear],
		})
	}
	return out
}

// UpdateAdvisorySection moves students into the adviser's class after a
// rollover. Each row is applied in its own transaction and refreshes the
// student's active history row.
func (s *teacherService) UpdateAdvisorySection(ctx context.Context, userID int64, req *dto.UpdateAdvisorySectionRequest) (*dto.AdvisoryUpdateResult, error) {
	teacher, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if teacher.AdvisingGrade == nil {
		return nil, apperrors.NewForbiddenError("only advisers can manage an advisory section")
	}
	current := s.settings.CurrentSchoolYear(ctx)

	result := &dto.AdvisoryUpdateResult{Errors: []dto.RowError{}}
	for i, update := range req.Updates {
		err := s.store.InTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
			st, err := repos.Students.GetForUpdate(ctx, update.StudentID)
			if err != nil {
				return err
			}
			before := *st
			if err := applyAdvisoryUpdate(st, update); err != nil {
				return err
			}
			if st.SchoolYear == "" {
				st.SchoolYear = current
			}
			if err := repos.Students.Update(ctx, st); err != nil {
				return err
			}
			if err := repos.History.Activate(ctx, &models.StudentSchoolYearHistory{
				StudentID:  st.ID,
				SchoolYear: st.SchoolYear,
				GradeLevel: st.GradeLevel,
				Section:    st.Section,
				Strand:     st.Strand,
			}); err != nil {
				return err
			}
			if before.Strand == st.Strand && before.Section == st.Section {
				return nil
			}
			return repos.History.RecordStrandChange(ctx, &models.StrandChange{
				StudentID:       st.ID,
				PreviousStrand:  before.Strand,
				NewStrand:       st.Strand,
				PreviousSection: before.Section,
				NewSection:      st.Section,
				ChangeReason:    models.ChangeReasonAdministrative,
				ApprovedBy:      &userID,
			})
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			result.Errors = append(result.Errors, dto.RowError{
				Index:   i,
				Key:     strconv.FormatInt(update.StudentID, 10),
				Message: rowErrorMessage(err),
			})
			continue
		}
		result.Updated++
	}

	s.logger.Info().
		Int64("teacherID", teacher.ID).
		Int("updated", result.Updated).
		Int("failed", len(result.Errors)).
		Msg("Advisory section updated")
	return result, nil
}

// applyAdvisoryUpdate changes placement fields and checks the result. Moving
// to a junior high grade without a strand clears the old one.
func applyAdvisoryUpdate(st *models.Student, u dto.AdvisoryUpdate) error {
	if st.IsArchived {
		return apperrors.NewBadRequestError("archived students cannot be reassigned")
	}
	if u.GradeLevel != nil {
		st.GradeLevel = *u.GradeLevel
		if u.Strand == nil && !models.IsSeniorHigh(st.GradeLevel) {
			st.Strand = ""
		}
	}
	if u.Strand != nil {
		st.Strand = strings.TrimSpace(*u.Strand)
	}
	if u.Section != nil {
		st.Section = strings.TrimSpace(*u.Section)
	}
	if err := models.ValidateEnrollment(st.GradeLevel, st.Strand); err != nil {
		return apperrors.NewCustomError(apperrors.ErrValidationFailed, err.Error())
	}
	return nil
}

func (s *teacherService) ListPending(ctx context.Context) ([]models.Teacher, error) {
	return s.store.Repos().Teachers.ListByApprovalStatus(ctx, models.ApprovalPending)
}

func (s *teacherService) Approve(ctx context.Context, adminUserID, teacherID int64) (*models.Teacher, error) {
	return s.decide(ctx, adminUserID, teacherID, models.ApprovalApproved, "")
}

func (s *teacherService) Reject(ctx context.Context, adminUserID, teacherID int64, reason string) (*models.Teacher, error) {
	return s.decide(ctx, adminUserID, teacherID, models.ApprovalRejected, reason)
}

func (s *teacherService) decide(ctx context.Context, adminUserID, teacherID int64, status models.ApprovalStatus, reason string) (*models.Teacher, error) {
	var teacher *models.Teacher
	var created []models.Notification
	err := s.store.InTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		var err error
		teacher, err = repos.Teachers.GetByID(ctx, teacherID)
		if err != nil {
			return err
		}
		if teacher.ApprovalStatus == status {
			return apperrors.NewConflictError(fmt.Sprintf("teacher is already %s", status))
		}

		if err := repos.Teachers.SetApproval(ctx, teacherID, status, adminUserID, reason); err != nil {
			return err
		}
		if err := repos.Users.SetActive(ctx, teacher.UserID, status == models.ApprovalApproved); err != nil {
			return err
		}

		notice := workflow.Notice{
			UserID:  teacher.UserID,
			Title:   "Teacher Registration Approved",
			Message: "Your teacher account has been approved. You can now log in.",
			Type:    models.NotificationSystemAlert,
		}
		if status == models.ApprovalRejected {
			notice.Title = "Teacher Registration Rejected"
			notice.Message = "Your teacher registration was rejected."
			if reason != "" {
				notice.Message += " Reason: " + reason
			}
		}
		created, err = storeNotices(ctx, repos, []workflow.Notice{notice})
		if err != nil {
			return err
		}

		teacher, err = repos.Teachers.GetByID(ctx, teacherID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifier.push(created)
	if teacher.User != nil {
		to, name, approved := teacher.User.Email, teacher.User.FullName(), status == models.ApprovalApproved
		s.notifier.sendMail("teacher_decision", func(m email.EmailService) error {
			return m.SendTeacherDecisionEmail(to, name, approved, reason)
		})
	}

	s.logger.Info().
		Int64("teacherID", teacherID).
		Int64("adminUserID", adminUserID).
		Str("status", string(status)).
		Msg("Teacher registration decided")
	return teacher, nil
}
