package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/schoolguidance/tracker/internal/app/controllers"
	"github.com/schoolguidance/tracker/internal/app/models"
	"github.com/schoolguidance/tracker/internal/middleware"
	"github.com/schoolguidance/tracker/internal/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestRouter mounts every route with controllers that have no services;
// only requests rejected before a handler runs are exercised.
func newTestRouter(jwt *auth.JWTService) *gin.Engine {
	nop := zerolog.Nop()
	c := Controllers{
		Auth:          controllers.NewAuthController(nil, nop),
		Students:      controllers.NewStudentController(nil, nop),
		Teachers:      controllers.NewTeacherController(nil, nop),
		Reports:       controllers.NewReportController(nil, nop),
		Violations:    controllers.NewViolationController(nil, nop),
		Notifications: controllers.NewNotificationController(nil, nop),
		SchoolYears:   controllers.NewSchoolYearController(nil, nop),
		Counselor:     controllers.NewCounselorController(nil, nil, nop),
		System:        controllers.NewSystemController(nil, nop),
		WebSocket:     func(c *gin.Context) { c.Status(http.StatusSwitchingProtocols) },
	}
	r := gin.New()
	SetupRouter(r, c, middleware.NewAuthMiddleware(jwt))
	return r
}

func TestRoleRestrictions(t *testing.T) {
	jwt := auth.NewJWTService(auth.JWTConfig{
		SecretKey:       "routes-secret",
		AccessTokenExp:  time.Hour,
		RefreshTokenExp: time.Hour,
		TokenIssuer:     "guidance-test",
	})
	r := newTestRouter(jwt)

	token := func(role models.RoleType) string {
		pair, err := jwt.GenerateTokenPair(&models.User{ID: 1, Username: "u", RoleType: role})
		require.NoError(t, err)
		return pair.AccessToken
	}

	tests := []struct {
		name   string
		method string
		path   string
		role   models.RoleType
		status int
	}{
		{"anonymous profile", http.MethodGet, "/api/v1/profile", "", http.StatusUnauthorized},
		{"student on counselor reports", http.MethodGet, "/api/v1/counselor/reports", models.RoleStudent, http.StatusForbidden},
		{"teacher on counselor reports", http.MethodGet, "/api/v1/counselor/reports", models.RoleTeacher, http.StatusForbidden},
		{"admin on counselor reports", http.MethodGet, "/api/v1/counselor/reports", models.RoleAdmin, http.StatusForbidden},
		{"counselor on student reports", http.MethodPost, "/api/v1/student/reports", models.RoleCounselor, http.StatusForbidden},
		{"student on teacher advisees", http.MethodGet, "/api/v1/teacher/advising-students", models.RoleStudent, http.StatusForbidden},
		{"student on advisory section", http.MethodGet, "/api/v1/teacher/advisory-section", models.RoleStudent, http.StatusForbidden},
		{"counselor updating advisory section", http.MethodPost, "/api/v1/teacher/advisory-section", models.RoleCounselor, http.StatusForbidden},
		{"teacher on student management", http.MethodGet, "/api/v1/students", models.RoleTeacher, http.StatusForbidden},
		{"student creating violation type", http.MethodPost, "/api/v1/violation-types", models.RoleStudent, http.StatusForbidden},
		{"teacher on rollover", http.MethodPost, "/api/v1/school-years/rollover", models.RoleTeacher, http.StatusForbidden},
		{"admin on promote", http.MethodPost, "/api/v1/school-years/promote", models.RoleAdmin, http.StatusForbidden},
		{"counselor approving teachers", http.MethodPost, "/api/v1/admin/teachers/3/approve", models.RoleCounselor, http.StatusForbidden},
		{"counselor updating settings", http.MethodPut, "/api/v1/system/settings", models.RoleCounselor, http.StatusForbidden},
		{"student bulk notification", http.MethodPost, "/api/v1/notifications/bulk", models.RoleStudent, http.StatusForbidden},
		{"websocket is public", http.MethodGet, "/api/v1/notifications/ws", "", http.StatusSwitchingProtocols},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.role != "" {
				req.Header.Set("Authorization", "Bearer "+token(tt.role))
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestPing(t *testing.T) {
	r := newTestRouter(auth.NewJWTService(auth.JWTConfig{SecretKey: "x", AccessTokenExp: time.Minute}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pong")
}
