package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/schoolguidance/tracker/internal/app/models"
	"github.com/schoolguidance/tracker/internal/app/models/dto"
	"github.com/schoolguidance/tracker/internal/app/repositories"
	"github.com/schoolguidance/tracker/internal/app/workflow"
	"github.com/schoolguidance/tracker/internal/pkg/apperrors"
)

// ViolationService records violations and maintains tallies
type ViolationService interface {
	Record(ctx context.Context, actorUserID int64, req *dto.RecordViolationRequest) (*dto.RecordViolationResult, error)
	List(ctx context.Context, filter dto.ViolationFilter, page, size int) ([]models.ViolationRecord, int64, error)
	Tallies(ctx context.Context, gradeLevel *int, page, size int) ([]models.ViolationTally, int64, error)
	RecomputeAll(ctx context.Context) (int, error)
	CleanupInvalid(ctx context.Context) (deleted int, recomputed int, err error)

	ListTypes(ctx context.Context, activeOnly bool) ([]models.ViolationType, error)
	CreateType(ctx context.Context, req *dto.ViolationTypeRequest) (*models.ViolationType, error)
	UpdateType(ctx context.Context, id int64, req *dto.ViolationTypeRequest) (*models.ViolationType, error)
}

type violationService struct {
	store    *Store
	settings SettingsService
	notifier *notifier
	logger   zerolog.Logger
}

// NewViolationService creates a ViolationService
func NewViolationService(store *Store, settings SettingsService, n *notifier, logger zerolog.Logger) *violationService {
	return &violationService{store: store, settings: settings, notifier: n, logger: logger}
}

// recomputeTally rebuilds the tally of one student from their records. The
// student row stays locked until the transaction ends, so concurrent
// recomputations of the same student run one after another.
func recomputeTally(ctx context.Context, repos *repositories.Repositories, studentID int64) (*models.ViolationTally, error) {
	student, err := repos.Students.GetForUpdate(ctx, studentID)
	if err != nil {
		return nil, err
	}
	records, err := repos.Violations.TallyRecords(ctx, studentID)
	if err != nil {
		return nil, err
	}
	tally := workflow.ComputeTally(studentID, records, workflow.TallyScope{
		SchoolYear: student.SchoolYear,
		Strand:     student.Strand,
	})
	if err := repos.Tallies.Upsert(ctx, &tally); err != nil {
		return nil, err
	}
	return &tally, nil
}

// counselorID returns the counselor profile id of a user, or nil for users
// without one (admins).
func counselorID(ctx context.Context, repos *repositories.Repositories, userID int64) (*int64, error) {
	c, err := repos.Counselors.GetByUserID(ctx, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &c.ID, nil
}

// Record adds a violation directly, without a report
func (s *violationService) Record(ctx context.Context, actorUserID int64, req *dto.RecordViolationRequest) (*dto.RecordViolationResult, error) {
	result := &dto.RecordViolationResult{}
	var created []models.Notification
	err := s.store.InTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		student, err := repos.Students.GetByID(ctx, req.StudentID)
		if err != nil {
			return err
		}
		if student.IsArchived {
			return apperrors.NewBadRequestError("cannot record a violation for an archived student")
		}
		vt, err := repos.ViolationTypes.GetByID(ctx, req.ViolationTypeID)
		if err != nil {
			return err
		}
		if !vt.IsActive {
			return apperrors.NewBadRequestError("violation type is inactive")
		}
		if req.RelatedReportID != nil {
			rep, err := repos.Reports.GetByID(ctx, *req.RelatedReportID)
			if err != nil {
				return err
			}
			if err := checkRelatedReport(rep, student.ID); err != nil {
				return err
			}
		}
		cid, err := counselorID(ctx, repos, actorUserID)
		if err != nil {
			return err
		}

		incident := time.Now()
		if req.IncidentDate != nil {
			incident = *req.IncidentDate
		}
		schoolYear := student.SchoolYear
		if schoolYear == "" {
			schoolYear = s.settings.CurrentSchoolYear(ctx)
		}
		record := &models.ViolationRecord{
			StudentID:       student.ID,
			ViolationTypeID: vt.ID,
			CounselorID:     cid,
			RelatedReportID: req.RelatedReportID,
			IncidentDate:    incident,
			Description:     req.Description,
			Location:        req.Location,
			Status:          models.ViolationStatus(req.Status),
			CounselorNotes:  req.CounselorNotes,
			ActionTaken:     req.ActionTaken,
			AcademicQuarter: req.AcademicQuarter,
			SchoolYear:      schoolYear,
		}
		if err := repos.Violations.Create(ctx, record); err != nil {
			return err
		}

		tally, err := recomputeTally(ctx, repos, student.ID)
		if err != nil {
			return err
		}

		created, err = storeNotices(ctx, repos, []workflow.Notice{{
			UserID: student.UserID,
			Title:  "Violation Recorded",
			Message: fmt.Sprintf("A violation has been recorded on your account: %s (%s). Total violations: %d.",
				vt.Name, vt.Category, tally.TotalViolations),
			Type:     models.NotificationViolation,
			ReportID: req.RelatedReportID,
		}})
		if err != nil {
			return err
		}

		if result.Violation, err = repos.Violations.GetByID(ctx, record.ID); err != nil {
			return err
		}
		result.Tally = tally
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.push(created)
	s.logger.Info().
		Int64("studentID", req.StudentID).
		Int64("violationID", result.Violation.ID).
		Int64("actorUserID", actorUserID).
		Msg("Violation recorded")
	return result, nil
}

func (s *violationService) List(ctx context.Context, filter dto.ViolationFilter, page, size int) ([]models.ViolationRecord, int64, error) {
	return s.store.Repos().Violations.List(ctx, filter, page, size)
}

func (s *violationService) Tallies(ctx context.Context, gradeLevel *int, page, size int) ([]models.ViolationTally, int64, error) {
	return s.store.Repos().Tallies.List(ctx, gradeLevel, page, size)
}

// RecomputeAll rebuilds every tally, one transaction per student
func (s *violationService) RecomputeAll(ctx context.Context) (int, error) {
	ids, err := s.store.Repos().Students.ListIDs(ctx)
	if err != nil {
		return 0, err
	}
	done, err := s.recompute(ctx, ids)
	if err != nil {
		return done, err
	}
	s.logger.Info().Int("students", done).Msg("Recomputed violation tallies")
	return done, nil
}

func (s *violationService) recompute(ctx context.Context, studentIDs []int64) (int, error) {
	done := 0
	for _, id := range studentIDs {
		err := s.store.InTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
			_, err := recomputeTally(ctx, repos, id)
			return err
		})
		if err != nil {
			return done, fmt.Errorf("recomputing tally of student %d: %w", id, err)
		}
		done++
	}
	return done, nil
}

// checkRelatedReport accepts only confirmed reports about the same student;
// records linked to anything else would be dropped by CleanupInvalid.
func checkRelatedReport(rep *models.Report, studentID int64) error {
	if rep.Status != models.StatusVerified && rep.Status != models.StatusResolved {
		return apperrors.NewBadRequestError(fmt.Sprintf(
			"report %d is %s; only verified or resolved reports can back a violation", rep.ID, rep.Status))
	}
	if rep.ReportedStudentID != nil && *rep.ReportedStudentID != studentID {
		return apperrors.NewBadRequestError(fmt.Sprintf("report %d concerns a different student", rep.ID))
	}
	return nil
}

// CleanupInvalid deletes violation records whose report was never confirmed
// and rebuilds the tallies of the affected students.
func (s *violationService) CleanupInvalid(ctx context.Context) (int, int, error) {
	var affected []int64
	err := s.store.InTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		var err error
		affected, err = repos.Violations.DeleteForUnconfirmedReports(ctx)
		return err
	})
	if err != nil {
		return 0, 0, err
	}

	seen := make(map[int64]struct{}, len(affected))
	unique := make([]int64, 0, len(affected))
	for _, id := range affected {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	recomputed, err := s.recompute(ctx, unique)
	if err != nil {
		return len(affected), recomputed, err
	}
	s.logger.Info().
		Int("deleted", len(affected)).
		Int("recomputed", recomputed).
		Msg("Removed violations of unconfirmed reports")
	return len(affected), recomputed, nil
}

func (s *violationService) ListTypes(ctx context.Context, activeOnly bool) ([]models.ViolationType, error) {
	return s.store.Repos().ViolationTypes.List(ctx, activeOnly)
}

func validCategory(category string) bool {
	for _, c := range models.Categories {
		if c == category {
			return true
		}
	}
	return false
}

func applyViolationType(vt *models.ViolationType, req *dto.ViolationTypeRequest) error {
	if !validCategory(req.Category) {
		return validationError("unknown violation category %q", req.Category)
	}
	vt.Name = strings.TrimSpace(req.Name)
	vt.Category = req.Category
	vt.SeverityLevel = models.SeverityLevel(req.SeverityLevel)
	vt.Description = req.Description
	if req.IsActive != nil {
		vt.IsActive = *req.IsActive
	}
	if req.ApplicableGrades != "" {
		vt.ApplicableGrades = req.ApplicableGrades
	}
	return nil
}

func (s *violationService) CreateType(ctx context.Context, req *dto.ViolationTypeRequest) (*models.ViolationType, error) {
	vt := &models.ViolationType{IsActive: true, ApplicableGrades: "7,8,9,10,11,12"}
	if err := applyViolationType(vt, req); err != nil {
		return nil, err
	}
	if err := s.store.Repos().ViolationTypes.Create(ctx, vt); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("violationTypeID", vt.ID).Str("name", vt.Name).Msg("Violation type created")
	return vt, nil
}

func (s *violationService) UpdateType(ctx context.Context, id int64, req *dto.ViolationTypeRequest) (*models.ViolationType, error) {
	repos := s.store.Repos()
	vt, err := repos.ViolationTypes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyViolationType(vt, req); err != nil {
		return nil, err
	}
	if err := repos.ViolationTypes.Update(ctx, vt); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("violationTypeID", vt.ID).Msg("Violation type updated")
	return vt, nil
}
