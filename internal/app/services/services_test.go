package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/schoolguidance/tracker/internal/app/models"
	"github.com/schoolguidance/tracker/internal/app/models/dto"
	"github.com/schoolguidance/tracker/internal/pkg/apperrors"
	"github.com/schoolguidance/tracker/internal/pkg/email"
	"github.com/schoolguidance/tracker/internal/pkg/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pushed struct {
	userID    int64
	eventType string
	data      interface{}
}

type fakePusher struct {
	mu     sync.Mutex
	events []pushed
}

func (p *fakePusher) SendToUser(userID int64, eventType string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, pushed{userID, eventType, data})
}

type fakeMailer struct {
	resets chan string
}

func (m *fakeMailer) SendPasswordResetEmail(toEmail, toName, token string) error {
	m.resets <- toEmail + ":" + token
	return nil
}

func (m *fakeMailer) SendGuidanceNoticeEmail(toEmail, toName, subject, message string) error {
	return errors.New("smtp down")
}

func (m *fakeMailer) SendTeacherDecisionEmail(toEmail, toName string, approved bool, reason string) error {
	return nil
}

var _ email.EmailService = (*fakeMailer)(nil)

func TestNotifierPushesEveryNotification(t *testing.T) {
	p := &fakePusher{}
	n := &notifier{pusher: p, logger: zerolog.Nop()}

	n.push([]models.Notification{{ID: 1, UserID: 10}, {ID: 2, UserID: 20}})

	require.Len(t, p.events, 2)
	assert.Equal(t, int64(10), p.events[0].userID)
	assert.Equal(t, websocket.EventNotification, p.events[0].eventType)
	assert.Equal(t, int64(20), p.events[1].userID)
}

func TestNotifierNilSafe(t *testing.T) {
	var n *notifier
	assert.NotPanics(t, func() {
		n.push([]models.Notification{{ID: 1}})
		n.sendMail("x", func(email.EmailService) error { return nil })
	})
}

func TestNotifierSendMailRunsInBackground(t *testing.T) {
	m := &fakeMailer{resets: make(chan string, 1)}
	n := &notifier{mailer: m, logger: zerolog.Nop()}

	n.sendMail("password_reset", func(svc email.EmailService) error {
		return svc.SendPasswordResetEmail("a@school.edu", "A", "tok")
	})

	select {
	case got := <-m.resets:
		assert.Equal(t, "a@school.edu:tok", got)
	case <-time.After(time.Second):
		t.Fatal("mail job did not run")
	}
}

func TestApplySettingsUpdateKeepsNilFields(t *testing.T) {
	current := &models.SystemSettings{CurrentSchoolYear: "2024-2025", IsSystemActive: true, SystemMessage: "hello"}
	inactive := false
	year := "2025-2026"

	applySettingsUpdate(current, &dto.UpdateSettingsRequest{IsSystemActive: &inactive, CurrentSchoolYear: &year})

	assert.False(t, current.IsSystemActive)
	assert.Equal(t, "2025-2026", current.CurrentSchoolYear)
	assert.Equal(t, "hello", current.SystemMessage)
}

func TestThrottleKeyNormalizesUsername(t *testing.T) {
	assert.Equal(t, throttleKey("  JDelaCruz ", "10.0.0.1"), throttleKey("jdelacruz", "10.0.0.1"))
	assert.NotEqual(t, throttleKey("jdelacruz", "10.0.0.1"), throttleKey("jdelacruz", "10.0.0.2"))
}

func TestRowErrorMessageHidesInternalErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"custom", validationError("grade %d is invalid", 13), "grade 13 is invalid"},
		{"duplicate", apperrors.ErrUsernameAlreadyExists, "username already exists"},
		{"wrapped duplicate", errors.Join(errors.New("tx"), apperrors.ErrEmailAlreadyExists), "tx\nemail already exists"},
		{"internal", errors.New("pq: connection reset"), "unexpected error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rowErrorMessage(tt.err))
		})
	}
}

func TestApplyViolationType(t *testing.T) {
	active := false
	vt := &models.ViolationType{IsActive: true, ApplicableGrades: "7,8,9,10,11,12"}

	err := applyViolationType(vt, &dto.ViolationTypeRequest{
		Name:          "  Late arrival ",
		Category:      models.CategoryTardiness,
		SeverityLevel: "Low",
		IsActive:      &active,
	})
	require.NoError(t, err)
	assert.Equal(t, "Late arrival", vt.Name)
	assert.Equal(t, models.SeverityLevelLow, vt.SeverityLevel)
	assert.False(t, vt.IsActive)
	assert.Equal(t, "7,8,9,10,11,12", vt.ApplicableGrades)

	err = applyViolationType(vt, &dto.ViolationTypeRequest{Name: "x", Category: "Unknown", SeverityLevel: "Low"})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestSettingsCacheSkipsReadRacingInvalidate(t *testing.T) {
	s := &settingsService{ttl: time.Minute, logger: zerolog.Nop(), now: time.Now}
	loads := 0
	s.load = func(ctx context.Context) (*models.SystemSettings, error) {
		loads++
		if loads == 1 {
			// an update commits while the first read is in flight
			s.Invalidate()
			return &models.SystemSettings{IsSystemActive: false}, nil
		}
		return &models.SystemSettings{IsSystemActive: true}, nil
	}

	stale, err := s.GetSettings(context.Background())
	require.NoError(t, err)
	assert.False(t, stale.IsSystemActive)

	fresh, err := s.GetSettings(context.Background())
	require.NoError(t, err)
	assert.True(t, fresh.IsSystemActive)
	assert.Equal(t, 2, loads)

	_, err = s.GetSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, loads, "an undisturbed read is cached")
}

func TestCheckRelatedReport(t *testing.T) {
	studentID := int64(7)
	other := int64(8)

	tests := []struct {
		name    string
		report  models.Report
		wantErr bool
	}{
		{"verified", models.Report{ID: 1, Status: models.StatusVerified, ReportedStudentID: &studentID}, false},
		{"resolved", models.Report{ID: 2, Status: models.StatusResolved, ReportedStudentID: &studentID}, false},
		{"teacher report without student link", models.Report{ID: 3, Status: models.StatusVerified}, false},
		{"pending", models.Report{ID: 4, Status: models.StatusPending, ReportedStudentID: &studentID}, true},
		{"summoned", models.Report{ID: 5, Status: models.StatusSummoned, ReportedStudentID: &studentID}, true},
		{"dismissed", models.Report{ID: 6, Status: models.StatusDismissed, ReportedStudentID: &studentID}, true},
		{"other student", models.Report{ID: 7, Status: models.StatusVerified, ReportedStudentID: &other}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkRelatedReport(&tt.report, studentID)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrBadRequest)
		})
	}
}

func TestApplyAdvisoryUpdate(t *testing.T) {
	intp := func(v int) *int { return &v }
	strp := func(v string) *string { return &v }

	tests := []struct {
		name    string
		student models.Student
		update  dto.AdvisoryUpdate
		want    models.Student
		wantErr bool
	}{
		{
			name:    "section only",
			student: models.Student{GradeLevel: 9, Section: "Rizal"},
			update:  dto.AdvisoryUpdate{Section: strp(" Mabini ")},
			want:    models.Student{GradeLevel: 9, Section: "Mabini"},
		},
		{
			name:    "strand for promoted grade 11",
			student: models.Student{GradeLevel: 11, Section: "Rizal"},
			update:  dto.AdvisoryUpdate{Strand: strp("STEM"), Section: strp("Einstein")},
			want:    models.Student{GradeLevel: 11, Strand: "STEM", Section: "Einstein"},
		},
		{
			name:    "moving to junior high clears strand",
			student: models.Student{GradeLevel: 11, Strand: "ABM"},
			update:  dto.AdvisoryUpdate{GradeLevel: intp(10)},
			want:    models.Student{GradeLevel: 10},
		},
		{
			name:    "senior high without strand",
			student: models.Student{GradeLevel: 10},
			update:  dto.AdvisoryUpdate{GradeLevel: intp(11)},
			wantErr: true,
		},
		{
			name:    "strand in junior high",
			student: models.Student{GradeLevel: 8},
			update:  dto.AdvisoryUpdate{Strand: strp("STEM")},
			wantErr: true,
		},
		{
			name:    "archived",
			student: models.Student{GradeLevel: 8, IsArchived: true},
			update:  dto.AdvisoryUpdate{Section: strp("Luna")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := tt.student
			err := applyAdvisoryUpdate(&st, tt.update)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, st)
		})
	}
}

func TestAdvisoryStudentCounts(t *testing.T) {
	st := models.Student{ID: 4, GradeLevel: 11, SchoolYear: "2025-2026"}
	history := []models.StudentSchoolYearHistory{
		{SchoolYear: "2025-2026", GradeLevel: 11, Section: "Einstein", IsActive: true},
		{SchoolYear: "2024-2025", GradeLevel: 10, Section: "Rizal"},
	}
	perYear := map[string]int{"2025-2026": 1, "2024-2025": 3}

	got := advisoryStudent(st, history, perYear, "2025-2026")

	assert.Equal(t, 1, got.ViolationsCurrentYear)
	assert.Equal(t, 4, got.ViolationsAllTime)
	require.Len(t, got.ViolationsByYear, 2)
	assert.Equal(t, dto.YearViolations{SchoolYear: "2024-2025", GradeLevel: 10, Section: "Rizal", Count: 3}, got.ViolationsByYear[1])

	empty := advisoryStudent(models.Student{ID: 5}, nil, nil, "2025-2026")
	assert.Zero(t, empty.ViolationsAllTime)
	assert.NotNil(t, empty.ViolationsByYear)
}
