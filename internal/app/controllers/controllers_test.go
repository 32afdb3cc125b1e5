package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	appauth "github.com/schoolguidance/tracker/internal/app/auth"
	"github.com/schoolguidance/tracker/internal/app/models"
	"github.com/schoolguidance/tracker/internal/app/models/dto"
	"github.com/schoolguidance/tracker/internal/app/services"
	"github.com/schoolguidance/tracker/internal/middleware"
	"github.com/schoolguidance/tracker/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := middleware.RegisterValidators(); err != nil {
		panic(err)
	}
}

// withActor stands in for JWTAuth
func withActor(userID int64, role models.RoleType) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Set(middleware.ContextRoleType, role)
		c.Next()
	}
}

func doJSON(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorCode {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func successMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp dto.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	return resp.Message
}

type fakeAuthService struct {
	services.AuthService
	loginIP    string
	loginErr   error
	registered *dto.RegisterRequest
	register   *dto.AuthResponse
}

func (f *fakeAuthService) Login(_ context.Context, req *dto.LoginRequest, clientIP string) (*dto.AuthResponse, error) {
	f.loginIP = clientIP
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &dto.AuthResponse{
		Token:   &dto.TokenResponse{AccessToken: "access", TokenType: "Bearer"},
		Profile: &dto.UserProfile{User: &models.User{Username: req.Username}},
	}, nil
}

func (f *fakeAuthService) Register(_ context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	f.registered = req
	return f.register, nil
}

func TestAuthControllerLogin(t *testing.T) {
	tests := []struct {
		name   string
		body   interface{}
		err    error
		status int
		code   dto.ErrorCode
	}{
		{name: "success", body: dto.LoginRequest{Username: "juan", Password: "secret123"}, status: http.StatusOK},
		{name: "missing password", body: map[string]string{"username": "juan"}, status: http.StatusBadRequest, code: dto.ErrorCodeValidationFailed},
		{name: "wrong password", body: dto.LoginRequest{Username: "juan", Password: "x"}, err: apperrors.ErrInvalidCredentials,
			status: http.StatusUnauthorized, code: dto.ErrorCodeInvalidCredentials},
		{name: "throttled", body: dto.LoginRequest{Username: "juan", Password: "x"}, err: apperrors.ErrTooManyAttempts,
			status: http.StatusTooManyRequests, code: dto.ErrorCodeTooManyAttempts},
		{name: "pending teacher", body: dto.LoginRequest{Username: "juan", Password: "x"}, err: apperrors.ErrAccountPending,
			status: http.StatusForbidden, code: dto.ErrorCodeAccountInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeAuthService{loginErr: tt.err}
			r := gin.New()
			r.POST("/login", NewAuthController(svc, zerolog.Nop()).Login)

			w := doJSON(r, http.MethodPost, "/login", tt.body)

			assert.Equal(t, tt.status, w.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, errorCode(t, w))
				return
			}
			assert.Equal(t, "Login successful", successMessage(t, w))
			assert.NotEmpty(t, svc.loginIP)
		})
	}
}

func TestAuthControllerRegisterPendingTeacher(t *testing.T) {
	svc := &fakeAuthService{register: &dto.AuthResponse{
		Profile:        &dto.UserProfile{User: &models.User{Username: "ms.cruz"}},
		ApprovalStatus: models.ApprovalPending,
	}}
	r := gin.New()
	r.POST("/register", NewAuthController(svc, zerolog.Nop()).Register)

	w := doJSON(r, http.MethodPost, "/register", map[string]interface{}{
		"username":  "ms.cruz",
		"email":     "cruz@school.edu",
		"password":  "password123",
		"firstName": "Ana",
		"lastName":  "Cruz",
		"roleType":  "TEACHER",
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, successMessage(t, w), "administrator approval")
	require.NotNil(t, svc.registered)
	assert.Equal(t, "ms.cruz", svc.registered.Username)
}

func TestAuthControllerProfileRequiresActor(t *testing.T) {
	r := gin.New()
	r.GET("/profile", NewAuthController(&fakeAuthService{}, zerolog.Nop()).Profile)

	w := doJSON(r, http.MethodGet, "/profile", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrorCodeUnauthorized, errorCode(t, w))
}

type fakeReportService struct {
	services.ReportService
	filter      dto.ReportFilter
	page, size  int
	statusReq   *dto.UpdateReportStatusRequest
	statusErr   error
	statusRes   *dto.TransitionResult
	invalidReq  *dto.MarkInvalidRequest
	submitActor appauth.Actor
}

func (f *fakeReportService) Submit(_ context.Context, actor appauth.Actor, req *dto.SubmitReportRequest) (*models.Report, error) {
	f.submitActor = actor
	return &models.Report{ID: 1, Title: req.Title, Status: models.StatusPending}, nil
}

func (f *fakeReportService) List(_ context.Context, filter dto.ReportFilter, page, size int) ([]models.Report, int64, error) {
	f.filter, f.page, f.size = filter, page, size
	return []models.Report{{ID: 1}, {ID: 2}}, 2, nil
}

func (f *fakeReportService) Get(_ context.Context, _ appauth.Actor, id int64) (*models.Report, error) {
	return nil, apperrors.ErrReportNotFound
}

func (f *fakeReportService) UpdateStatus(_ context.Context, _, _ int64, req *dto.UpdateReportStatusRequest) (*dto.TransitionResult, error) {
	f.statusReq = req
	return f.statusRes, f.statusErr
}

func (f *fakeReportService) MarkInvalid(_ context.Context, _, _ int64, req *dto.MarkInvalidRequest) (*dto.TransitionResult, error) {
	f.invalidReq = req
	return &dto.TransitionResult{OldStatus: models.StatusPending, NewStatus: models.StatusDismissed, Changed: true}, nil
}

func newReportRouter(svc services.ReportService, role models.RoleType) *gin.Engine {
	c := NewReportController(svc, zerolog.Nop())
	r := gin.New()
	r.Use(withActor(42, role))
	r.POST("/reports", c.Submit)
	r.GET("/reports", c.List)
	r.GET("/reports/:id", c.Get)
	r.PUT("/reports/:id/status", c.UpdateStatus)
	r.PUT("/reports/:id/invalid", c.MarkInvalid)
	return r
}

func TestReportControllerSubmitPassesActor(t *testing.T) {
	svc := &fakeReportService{}
	r := newReportRouter(svc, models.RoleTeacher)

	w := doJSON(r, http.MethodPost, "/reports", dto.SubmitReportRequest{Title: "Fight", Description: "At recess"})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, appauth.Actor{UserID: 42, Role: models.RoleTeacher}, svc.submitActor)
}

func TestReportControllerListFilters(t *testing.T) {
	svc := &fakeReportService{}
	r := newReportRouter(svc, models.RoleCounselor)

	w := doJSON(r, http.MethodGet, "/reports?type=teacher_report&status=pending&school_year=2024-2025&student_id=9&page=2&size=5", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ReportType("teacher_report"), svc.filter.ReportType)
	assert.Equal(t, "pending", svc.filter.Status)
	assert.Equal(t, "2024-2025", svc.filter.SchoolYear)
	require.NotNil(t, svc.filter.ReportedStudentID)
	assert.Equal(t, int64(9), *svc.filter.ReportedStudentID)
	assert.Equal(t, 2, svc.page)
	assert.Equal(t, 5, svc.size)

	var resp struct {
		Data dto.PaginatedResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(2), resp.Data.Pagination.TotalItems)
}

func TestReportControllerListRejectsBadStudentID(t *testing.T) {
	r := newReportRouter(&fakeReportService{}, models.RoleCounselor)

	w := doJSON(r, http.MethodGet, "/reports?student_id=abc", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportControllerGet(t *testing.T) {
	r := newReportRouter(&fakeReportService{}, models.RoleStudent)

	w := doJSON(r, http.MethodGet, "/reports/0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodGet, "/reports/5", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, dto.ErrorCodeResourceNotFound, errorCode(t, w))
}

func TestReportControllerUpdateStatus(t *testing.T) {
	t.Run("changed", func(t *testing.T) {
		svc := &fakeReportService{statusRes: &dto.TransitionResult{
			OldStatus: models.StatusPending, NewStatus: models.StatusUnderReview, Changed: true,
		}}
		w := doJSON(newReportRouter(svc, models.RoleCounselor), http.MethodPut, "/reports/3/status",
			dto.UpdateReportStatusRequest{Status: "under_review"})

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Report status updated to under_review", successMessage(t, w))
		assert.Equal(t, "under_review", svc.statusReq.Status)
	})

	t.Run("no-op", func(t *testing.T) {
		svc := &fakeReportService{statusRes: &dto.TransitionResult{
			OldStatus: models.StatusVerified, NewStatus: models.StatusVerified,
		}}
		w := doJSON(newReportRouter(svc, models.RoleCounselor), http.MethodPut, "/reports/3/status",
			dto.UpdateReportStatusRequest{Status: "verified"})

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Report already has this status", successMessage(t, w))
	})

	t.Run("illegal transition", func(t *testing.T) {
		svc := &fakeReportService{statusErr: apperrors.ErrInvalidTransition}
		w := doJSON(newReportRouter(svc, models.RoleCounselor), http.MethodPut, "/reports/3/status",
			dto.UpdateReportStatusRequest{Status: "pending"})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, dto.ErrorCodeInvalidTransition, errorCode(t, w))
	})

	t.Run("missing status", func(t *testing.T) {
		w := doJSON(newReportRouter(&fakeReportService{}, models.RoleCounselor), http.MethodPut, "/reports/3/status",
			map[string]string{"notes": "x"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestReportControllerMarkInvalidWithoutBody(t *testing.T) {
	svc := &fakeReportService{}
	w := doJSON(newReportRouter(svc, models.RoleCounselor), http.MethodPut, "/reports/3/invalid", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, svc.invalidReq)
	assert.Empty(t, svc.invalidReq.Reason)
}

type fakeSettingsService struct {
	services.SettingsService
	current *models.SystemSettings
	updated *dto.UpdateSettingsRequest
	adminID int64
}

func (f *fakeSettingsService) GetSettings(context.Context) (*models.SystemSettings, error) {
	return f.current, nil
}

func (f *fakeSettingsService) UpdateSettings(_ context.Context, adminUserID int64, req *dto.UpdateSettingsRequest) (*models.SystemSettings, error) {
	f.adminID, f.updated = adminUserID, req
	if req.IsSystemActive != nil {
		f.current.IsSystemActive = *req.IsSystemActive
	}
	return f.current, nil
}

func TestSystemControllerUpdateSettings(t *testing.T) {
	svc := &fakeSettingsService{current: &models.SystemSettings{CurrentSchoolYear: "2024-2025", IsSystemActive: true}}
	c := NewSystemController(svc, zerolog.Nop())

	r := gin.New()
	r.PUT("/settings", withActor(1, models.RoleAdmin), c.UpdateSettings)

	w := doJSON(r, http.MethodPut, "/settings", map[string]interface{}{"isSystemActive": false})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, int64(1), svc.adminID)
	assert.False(t, svc.current.IsSystemActive)
}

type fakeTeacherService struct {
	services.TeacherService
	updates   *dto.UpdateAdvisorySectionRequest
	updateErr error
}

func (f *fakeTeacherService) AdvisorySection(_ context.Context, userID int64) (*dto.AdvisorySection, error) {
	grade := 11
	return &dto.AdvisorySection{
		SchoolYear:      "2025-2026",
		AdvisingGrade:   &grade,
		AdvisingSection: "Rizal",
		Students: []dto.AdvisoryStudent{{
			Student:           models.Student{ID: 3, GradeLevel: 11, Strand: "STEM", Section: "Rizal"},
			ViolationsAllTime: 2,
		}},
		TotalStudents: 1,
	}, nil
}

func (f *fakeTeacherService) UpdateAdvisorySection(_ context.Context, _ int64, req *dto.UpdateAdvisorySectionRequest) (*dto.AdvisoryUpdateResult, error) {
	f.updates = req
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &dto.AdvisoryUpdateResult{Updated: len(req.Updates), Errors: []dto.RowError{}}, nil
}

func newAdvisoryRouter(svc services.TeacherService) *gin.Engine {
	c := NewTeacherController(svc, zerolog.Nop())
	r := gin.New()
	r.Use(withActor(9, models.RoleTeacher))
	r.GET("/advisory-section", c.AdvisorySection)
	r.POST("/advisory-section", c.UpdateAdvisorySection)
	return r
}

func TestTeacherControllerAdvisorySection(t *testing.T) {
	r := newAdvisoryRouter(&fakeTeacherService{})

	w := doJSON(r, http.MethodGet, "/advisory-section", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data dto.AdvisorySection `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.TotalStudents)
	require.Len(t, resp.Data.Students, 1)
	assert.Equal(t, "Rizal", resp.Data.Students[0].Section)
	assert.Equal(t, 2, resp.Data.Students[0].ViolationsAllTime)
}

func TestTeacherControllerUpdateAdvisorySection(t *testing.T) {
	section := "Mabini"
	grade := 12
	tests := []struct {
		name   string
		body   interface{}
		err    error
		status int
		code   dto.ErrorCode
	}{
		{name: "updated", body: dto.UpdateAdvisorySectionRequest{Updates: []dto.AdvisoryUpdate{{StudentID: 3, Section: &section, GradeLevel: &grade}}},
			status: http.StatusOK},
		{name: "empty updates", body: map[string]interface{}{"updates": []interface{}{}},
			status: http.StatusBadRequest, code: dto.ErrorCodeValidationFailed},
		{name: "grade out of range", body: map[string]interface{}{"updates": []map[string]int{{"studentId": 3, "gradeLevel": 13}}},
			status: http.StatusBadRequest, code: dto.ErrorCodeValidationFailed},
		{name: "not an adviser", body: dto.UpdateAdvisorySectionRequest{Updates: []dto.AdvisoryUpdate{{StudentID: 3, Section: &section}}},
			err: apperrors.NewForbiddenError("only advisers can manage an advisory section"), status: http.StatusForbidden, code: dto.ErrorCodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeTeacherService{updateErr: tt.err}
			w := doJSON(newAdvisoryRouter(svc), http.MethodPost, "/advisory-section", tt.body)

			assert.Equal(t, tt.status, w.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, errorCode(t, w))
				return
			}
			assert.Equal(t, "Updated 1 students", successMessage(t, w))
			require.NotNil(t, svc.updates)
			assert.Equal(t, "Mabini", *svc.updates.Updates[0].Section)
		})
	}
}
