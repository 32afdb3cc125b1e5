package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/schoolguidance/tracker/internal/app/models"
	"github.com/schoolguidance/tracker/internal/app/models/dto"
	"github.com/schoolguidance/tracker/internal/app/repositories"
	"github.com/schoolguidance/tracker/internal/app/workflow"
	"github.com/schoolguidance/tracker/internal/pkg/apperrors"
	"github.com/schoolguidance/tracker/internal/pkg/schoolyear"
)

// errDryRun rolls back a rollover that was only simulated
var errDryRun = errors.New("dry run")

// SchoolYearService runs the yearly rollover and student promotion
type SchoolYearService interface {
	Available(ctx context.Context) ([]string, error)
	Rollover(ctx context.Context, actorUserID int64, req *dto.RolloverRequest) (*dto.RolloverResult, error)
	Promote(ctx context.Context, actorUserID int64, req *dto.PromoteRequest) (*dto.PromotionResult, error)
	BulkPromote(ctx context.Context, actorUserID int64, req *dto.BulkPromoteRequest) (*dto.PromotionResult, error)
	Preview(ctx context.Context, schoolYear string) (*dto.PromotionPreview, error)
}

type schoolYearService struct {
	store    *Store
	settings SettingsService
	notifier *notifier
	logger   zerolog.Logger
}

// NewSchoolYearService creates a SchoolYearService
func NewSchoolYearService(store *Store, settings SettingsService, n *notifier, logger zerolog.Logger) *schoolYearService {
	return &schoolYearService{store: store, settings: settings, notifier: n, logger: logger}
}

// Available lists known school years, newest first, always including the current one
func (s *schoolYearService) Available(ctx context.Context) ([]string, error) {
	years, err := s.store.Repos().Students.DistinctSchoolYears(ctx)
	if err != nil {
		return nil, err
	}
	current := s.settings.CurrentSchoolYear(ctx)
	found := false
	for _, y := range years {
		if y == current {
			found = true
			break
		}
	}
	if !found {
		years = append(years, current)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(years)))
	return years, nil
}

// Rollover promotes every enrolled student into the next school year in one
// transaction. Grade 10 students enter grade 11 without a strand and are
// counted as awaiting one. A dry run does the same work and rolls it back.
func (s *schoolYearService) Rollover(ctx context.Context, actorUserID int64, req *dto.RolloverRequest) (*dto.RolloverResult, error) {
	previous := s.settings.CurrentSchoolYear(ctx)
	next := req.NewSchoolYear
	if next == "" {
		var err error
		if next, err = schoolyear.Next(previous); err != nil {
			return nil, validationError("current school year %q is malformed: %v", previous, err)
		}
	}
	if next == previous {
		return nil, validationError("the new school year must differ from the current one (%s)", previous)
	}

	result := &dto.RolloverResult{PreviousSchoolYear: previous, NewSchoolYear: next, DryRun: req.DryRun}
	var created []models.Notification
	err := s.store.InTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		students, err := repos.Students.ListEnrolled(ctx, true)
		if err != nil {
			return err
		}

		notices := make([]workflow.Notice, 0, len(students))
		for i := range students {
			st := &students[i]
			result.StudentsProcessed++

			from := st.SchoolYear
			if from == "" {
				from = previous
			}
			archived, err := repos.History.Archive(ctx, &models.StudentSchoolYearHistory{
				StudentID:  st.ID,
				SchoolYear: from,
				GradeLevel: st.GradeLevel,
				Section:    st.Section,
				Strand:     st.Strand,
			})
			if err != nil {
				return err
			}
			if archived {
				result.HistoryArchived++
			}

			oldGrade := st.GradeLevel
			st.GradeLevel = schoolyear.NextGrade(oldGrade)
			if oldGrade == 10 && st.GradeLevel == 11 {
				st.Strand = ""
				result.AwaitingStrand++
			}
			st.SchoolYear = next
			if err := repos.Students.Update(ctx, st); err != nil {
				return fmt.Errorf("rolling over student %d: %w", st.ID, err)
			}
			if err := repos.History.Activate(ctx, &models.StudentSchoolYearHistory{
				StudentID:  st.ID,
				SchoolYear: next,
				GradeLevel: st.GradeLevel,
				Section:    st.Section,
				Strand:     st.Strand,
			}); err != nil {
				return err
			}

			if st.GradeLevel != oldGrade {
				result.StudentsPromoted++
				notices = append(notices, workflow.Notice{
					UserID:  st.UserID,
					Title:   "Grade Promotion",
					Message: fmt.Sprintf("You have been promoted to Grade %d for school year %s.", st.GradeLevel, next),
					Type:    models.NotificationGradePromotion,
				})
			}
		}

		if err := s.saveCurrentYear(ctx, repos, actorUserID, next); err != nil {
			return err
		}
		if result.ViolationsByYear, err = repos.Violations.CountBySchoolYear(ctx); err != nil {
			return err
		}
		if req.DryRun {
			return errDryRun
		}
		created, err = storeNotices(ctx, repos, notices)
		return err
	})
	if err != nil && !errors.Is(err, errDryRun) {
		return nil, err
	}

	if !req.DryRun {
		s.settings.Invalidate()
		s.notifier.push(created)
	}
	s.logger.Info().
		Str("from", previous).
		Str("to", next).
		Bool("dryRun", req.DryRun).
		Int("processed", result.StudentsProcessed).
		Int("promoted", result.StudentsPromoted).
		Int("awaitingStrand", result.AwaitingStrand).
		Int64("actorUserID", actorUserID).
		Msg("School year rollover")
	return result, nil
}

func (s *schoolYearService) saveCurrentYear(ctx context.Context, repos *repositories.Repositories, actorUserID int64, year string) error {
	settings, err := repos.Settings.Get(ctx)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			return err
		}
		settings = &models.SystemSettings{IsSystemActive: true}
	}
	settings.CurrentSchoolYear = year
	if actorUserID > 0 {
		settings.UpdatedBy = &actorUserID
	}
	return repos.Settings.Save(ctx, settings)
}

// Promote applies one decision per student. Each student is handled in its
// own transaction and failures are reported per row.
func (s *schoolYearService) Promote(ctx context.Context, actorUserID int64, req *dto.PromoteRequest) (*dto.PromotionResult, error) {
	result := &dto.PromotionResult{Errors: []dto.RowError{}}
	for i := range req.Students {
		entry := req.Students[i]
		var created []models.Notification
		var action schoolyear.Action
		err := s.store.InTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
			var notice *workflow.Notice
			var err error
			action, notice, err = applyPromotion(ctx, repos, entry, req.NewSchoolYear)
			if err != nil {
				return err
			}
			created, err = storeNotices(ctx, repos, []workflow.Notice{*notice})
			return err
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			result.Errors = append(result.Errors, dto.RowError{
				Index:   i,
				Key:     strconv.FormatInt(entry.StudentID, 10),
				Message: rowErrorMessage(err),
			})
			continue
		}

		s.notifier.push(created)
		switch action {
		case schoolyear.ActionPromote:
			result.Promoted++
		case schoolyear.ActionRetain:
			result.Retained++
		case schoolyear.ActionGraduate:
			result.Graduated++
		}
	}

	s.logger.Info().
		Str("schoolYear", req.NewSchoolYear).
		Int("promoted", result.Promoted).
		Int("retained", result.Retained).
		Int("graduated", result.Graduated).
		Int("failed", len(result.Errors)).
		Int64("actorUserID", actorUserID).
		Msg("Students promoted")
	return result, nil
}

func applyPromotion(ctx context.Context, repos *repositories.Repositories, entry dto.PromotionEntry, newYear string) (schoolyear.Action, *workflow.Notice, error) {
	st, err := repos.Students.GetForUpdate(ctx, entry.StudentID)
	if err != nil {
		return "", nil, err
	}
	if st.IsArchived {
		return "", nil, apperrors.NewBadRequestError("archived students cannot be promoted")
	}

	if _, err := repos.History.Archive(ctx, &models.StudentSchoolYearHistory{
		StudentID:  st.ID,
		SchoolYear: st.SchoolYear,
		GradeLevel: st.GradeLevel,
		Section:    st.Section,
		Strand:     st.Strand,
	}); err != nil {
		return "", nil, err
	}

	notice := &workflow.Notice{UserID: st.UserID, Type: models.NotificationGradePromotion}
	switch entry.Action {
	case schoolyear.ActionPromote:
		newGrade := schoolyear.NextGrade(st.GradeLevel)
		if entry.NewGrade != nil {
			newGrade = *entry.NewGrade
		}
		if newGrade <= st.GradeLevel {
			return "", nil, validationError("grade %d students cannot be promoted to grade %d", st.GradeLevel, newGrade)
		}
		st.GradeLevel = newGrade
		if entry.NewStrand != "" {
			st.Strand = entry.NewStrand
		}
		if !models.IsSeniorHigh(newGrade) {
			st.Strand = ""
		}
		if entry.NewSection != "" {
			st.Section = entry.NewSection
		}
		st.SchoolYear = newYear
		notice.Title = "Grade Promotion"
		notice.Message = fmt.Sprintf("You have been promoted to Grade %d for school year %s.", newGrade, newYear)

	case schoolyear.ActionRetain:
		if entry.NewSection != "" {
			st.Section = entry.NewSection
		}
		st.SchoolYear = newYear
		notice.Title = "School Year Update"
		notice.Message = fmt.Sprintf("You will remain in Grade %d for school year %s.", st.GradeLevel, newYear)

	case schoolyear.ActionGraduate:
		st.SchoolYear = schoolyear.GraduatedLabel(newYear)
		st.IsActive = false
		notice.Title = "Congratulations, Graduate!"
		notice.Message = fmt.Sprintf("You have graduated. Congratulations from the guidance office! (%s)", newYear)

	default:
		return "", nil, validationError("unknown promotion action %q", entry.Action)
	}

	// a senior high student may be left awaiting a strand
	if entry.Action == schoolyear.ActionPromote {
		if err := models.ValidateEnrollment(st.GradeLevel, st.Strand); err != nil && !errors.Is(err, models.ErrStrandRequired) {
			return "", nil, apperrors.NewCustomError(apperrors.ErrValidationFailed, err.Error())
		}
	}
	if err := repos.Students.Update(ctx, st); err != nil {
		return "", nil, err
	}
	if entry.Action != schoolyear.ActionGraduate {
		if err := repos.History.Activate(ctx, &models.StudentSchoolYearHistory{
			StudentID:  st.ID,
			SchoolYear: newYear,
			GradeLevel: st.GradeLevel,
			Section:    st.Section,
			Strand:     st.Strand,
		}); err != nil {
			return "", nil, err
		}
	}
	return entry.Action, notice, nil
}

// BulkPromote promotes every active student of a grade and school year.
// Grade 12 students graduate.
func (s *schoolYearService) BulkPromote(ctx context.Context, actorUserID int64, req *dto.BulkPromoteRequest) (*dto.PromotionResult, error) {
	students, err := s.store.Repos().Students.ListByGradeAndYear(ctx, req.CurrentGrade, req.CurrentSchoolYear)
	if err != nil {
		return nil, err
	}
	excluded := make(map[int64]struct{}, len(req.ExcludeStudentIDs))
	for _, id := range req.ExcludeStudentIDs {
		excluded[id] = struct{}{}
	}

	action := schoolyear.ActionPromote
	if req.CurrentGrade >= models.MaxGradeLevel {
		action = schoolyear.ActionGraduate
	}
	entries := make([]dto.PromotionEntry, 0, len(students))
	for _, st := range students {
		if _, skip := excluded[st.ID]; skip {
			continue
		}
		entries = append(entries, dto.PromotionEntry{StudentID: st.ID, Action: action})
	}
	if len(entries) == 0 {
		return &dto.PromotionResult{Errors: []dto.RowError{}}, nil
	}
	return s.Promote(ctx, actorUserID, &dto.PromoteRequest{NewSchoolYear: req.NewSchoolYear, Students: entries})
}

// Preview suggests an action for every active student of a school year
func (s *schoolYearService) Preview(ctx context.Context, schoolYear string) (*dto.PromotionPreview, error) {
	if schoolYear == "" {
		schoolYear = s.settings.CurrentSchoolYear(ctx)
	}
	repos := s.store.Repos()
	counts, err := repos.Violations.CountByStudentForYear(ctx, schoolYear)
	if err != nil {
		return nil, err
	}

	preview := &dto.PromotionPreview{SchoolYear: schoolYear, Grades: []dto.PreviewGrade{}}
	for grade := models.MinGradeLevel; grade <= models.MaxGradeLevel; grade++ {
		students, err := repos.Students.ListByGradeAndYear(ctx, grade, schoolYear)
		if err != nil {
			return nil, err
		}
		group := dto.PreviewGrade{
			GradeLevel: grade,
			NextGrade:  schoolyear.NextGradeLabel(grade),
			Students:   make([]dto.PreviewStudent, 0, len(students)),
		}
		for _, st := range students {
			name := ""
			if st.User != nil {
				name = st.User.FullName()
			}
			n := counts[st.ID]
			group.Students = append(group.Students, dto.PreviewStudent{
				StudentID:       st.ID,
				StudentNumber:   st.StudentID,
				Name:            name,
				Section:         st.Section,
				Strand:          st.Strand,
				ViolationCount:  n,
				SuggestedAction: schoolyear.Suggest(grade, n),
			})
		}
		preview.Grades = append(preview.Grades, group)
	}
	return preview, nil
}
