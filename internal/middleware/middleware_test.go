package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/schoolguidance/tracker/internal/app/models"
	"github.com/schoolguidance/tracker/internal/app/models/dto"
	"github.com/schoolguidance/tracker/internal/pkg/apperrors"
	"github.com/schoolguidance/tracker/internal/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newJWT() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SecretKey:       "middleware-secret",
		AccessTokenExp:  time.Hour,
		RefreshTokenExp: time.Hour,
		TokenIssuer:     "guidance-test",
	})
}

func tokenFor(t *testing.T, jwt *auth.JWTService, id int64, role models.RoleType) string {
	t.Helper()
	pair, err := jwt.GenerateTokenPair(&models.User{ID: id, Username: "user", RoleType: role})
	require.NoError(t, err)
	return pair.AccessToken
}

type staticSettings struct {
	settings *models.SystemSettings
	err      error
}

func (s staticSettings) GetSettings(ctx context.Context) (*models.SystemSettings, error) {
	return s.settings, s.err
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestJWTAuth(t *testing.T) {
	jwt := newJWT()
	m := NewAuthMiddleware(jwt)

	r := gin.New()
	r.GET("/me", m.JWTAuth(), func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"id": actor.UserID, "role": actor.Role})
	})

	token := tokenFor(t, jwt, 7, models.RoleStudent)

	tests := []struct {
		name   string
		header string
		query  string
		status int
		code   dto.ErrorCode
	}{
		{name: "bearer header", header: "Bearer " + token, status: http.StatusOK},
		{name: "bare token", header: token, status: http.StatusOK},
		{name: "query token", query: "?token=" + token, status: http.StatusOK},
		{name: "missing", status: http.StatusUnauthorized, code: dto.ErrorCodeUnauthorized},
		{name: "garbage", header: "Bearer not-a-jwt", status: http.StatusUnauthorized, code: dto.ErrorCodeInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, decodeError(t, w).Error.Code)
			} else {
				assert.JSONEq(t, `{"id":7,"role":"STUDENT"}`, w.Body.String())
			}
		})
	}
}

func TestRolesAllowed(t *testing.T) {
	jwt := newJWT()
	m := NewAuthMiddleware(jwt)

	r := gin.New()
	r.GET("/staff", m.JWTAuth(), m.RolesAllowed(models.RoleCounselor, models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	for role, want := range map[models.RoleType]int{
		models.RoleCounselor: http.StatusNoContent,
		models.RoleAdmin:     http.StatusNoContent,
		models.RoleTeacher:   http.StatusForbidden,
		models.RoleStudent:   http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/staff", nil)
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, jwt, 1, role))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, string(role))
	}
}

func TestSystemStatus(t *testing.T) {
	jwt := newJWT()
	frozen := staticSettings{settings: &models.SystemSettings{CurrentSchoolYear: "2024-2025", IsSystemActive: false}}

	newRouter := func(settings SettingsProvider) *gin.Engine {
		r := gin.New()
		r.Use(SystemStatus(settings, jwt, zerolog.Nop()))
		ok := func(c *gin.Context) { c.Status(http.StatusOK) }
		r.GET("/api/v1/students", ok)
		r.POST("/api/v1/auth/login", ok)
		r.GET("/api/v1/system/settings", ok)
		r.GET("/ping", ok)
		return r
	}

	t.Run("frozen blocks regular routes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/students", nil)
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, jwt, 3, models.RoleCounselor))
		w := httptest.NewRecorder()
		newRouter(frozen).ServeHTTP(w, req)

		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		var resp dto.SystemFrozenResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "system_frozen", resp.Error)
		assert.Equal(t, DefaultFrozenMessage, resp.Message)
		assert.Equal(t, "2024-2025", resp.CurrentSchoolYear)
		assert.False(t, resp.IsSystemActive)
	})

	t.Run("allow-listed routes pass", func(t *testing.T) {
		for _, target := range []struct{ method, path string }{
			{http.MethodPost, "/api/v1/auth/login"},
			{http.MethodGet, "/api/v1/system/settings"},
			{http.MethodGet, "/ping"},
		} {
			w := httptest.NewRecorder()
			newRouter(frozen).ServeHTTP(w, httptest.NewRequest(target.method, target.path, nil))
			assert.Equal(t, http.StatusOK, w.Code, target.path)
		}
	})

	t.Run("admin bypasses", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/students", nil)
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, jwt, 1, models.RoleAdmin))
		w := httptest.NewRecorder()
		newRouter(frozen).ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("custom message", func(t *testing.T) {
		s := staticSettings{settings: &models.SystemSettings{SystemMessage: "Back in June"}}
		w := httptest.NewRecorder()
		newRouter(s).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/students", nil))
		assert.Contains(t, w.Body.String(), "Back in June")
	})

	t.Run("lookup failure allows request", func(t *testing.T) {
		w := httptest.NewRecorder()
		newRouter(staticSettings{err: errors.New("db down")}).
			ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/students", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("active system passes", func(t *testing.T) {
		s := staticSettings{settings: &models.SystemSettings{IsSystemActive: true}}
		w := httptest.NewRecorder()
		newRouter(s).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/students", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestHandleAPIError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    dto.ErrorCode
		message string
	}{
		{"not found", apperrors.ErrStudentNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Resource not found"},
		{"wrapped not found", fmt.Errorf("loading: %w", apperrors.ErrReportNotFound), http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Resource not found"},
		{"forbidden", apperrors.NewForbiddenError("not yours"), http.StatusForbidden, dto.ErrorCodeForbidden, "not yours"},
		{"pending teacher", apperrors.NewCustomError(apperrors.ErrAccountPending, "waiting"), http.StatusForbidden, dto.ErrorCodeAccountInactive, "waiting"},
		{"credentials", apperrors.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials, "Invalid username or password"},
		{"throttled", apperrors.ErrTooManyAttempts, http.StatusTooManyRequests, dto.ErrorCodeTooManyAttempts, "Too many failed login attempts, try again later"},
		{"validation", apperrors.NewCustomError(apperrors.ErrValidationFailed, "grade is required"), http.StatusBadRequest, dto.ErrorCodeValidationFailed, "grade is required"},
		{"transition", apperrors.ErrInvalidTransition, http.StatusConflict, dto.ErrorCodeInvalidTransition, "Invalid status transition"},
		{"duplicate", apperrors.ErrUsernameAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Resource already exists"},
		{"frozen", apperrors.ErrSystemFrozen, http.StatusServiceUnavailable, dto.ErrorCodeSystemFrozen, "The system is currently inactive"},
		{"internal", errors.New("pq: relation does not exist"), http.StatusInternalServerError, dto.ErrorCodeInternalServer, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			HandleAPIError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			resp := decodeError(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, tt.message, resp.Error.Message)
			assert.NotContains(t, w.Body.String(), "relation does not exist")
		})
	}
}

func TestHandleAPIErrorCarriesDetails(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)

	err := apperrors.NewCustomError(apperrors.ErrAccountRejected, "rejected").
		WithDetails(map[string]interface{}{"approval_status": "rejected", "rejection_reason": "unknown"})
	HandleAPIError(c, err)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"approval_status":"rejected"`)
	assert.Contains(t, w.Body.String(), `"rejection_reason":"unknown"`)
}

type gradeRequest struct {
	GradeLevel int    `json:"gradeLevel" binding:"required,gradelevel"`
	SchoolYear string `json:"schoolYear" binding:"required,schoolyear"`
}

func TestBindJSONUsesCustomValidators(t *testing.T) {
	require.NoError(t, RegisterValidators())

	r := gin.New()
	r.POST("/grades", func(c *gin.Context) {
		var req gradeRequest
		if !BindJSON(c, &req) {
			return
		}
		RespondSuccess(c, http.StatusCreated, req, "ok")
	})

	post := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/grades", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w
	}

	w := post(`{"gradeLevel":11,"schoolYear":"2024-2025"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)

	w = post(`{"gradeLevel":13,"schoolYear":"2024-2025"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, dto.ErrorCodeValidationFailed, resp.Error.Code)
	assert.Equal(t, "GradeLevel must be between 7 and 12", resp.Error.Message)

	w = post(`{"gradeLevel":8,"schoolYear":"2024-2026"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "SchoolYear must look like 2024-2025", decodeError(t, w).Error.Message)
}
