package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"course_core_backend/internal/config"
	"course_core_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, secret string, claims util.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func claimsFor(userID uint, role string, ttl time.Duration) util.Claims {
	return util.Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
}

func newAuthRouter(roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: testSecret}}

	r := gin.New()
	r.Use(RequestID())
	handlers := []gin.HandlerFunc{AuthMiddleware(cfg)}
	if len(roles) > 0 {
		handlers = append(handlers, RoleMiddleware(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		user := util.GetUserFromContext(c)
		c.JSON(http.StatusOK, gin.H{"userId": user.UserID, "role": user.Role})
	})
	r.GET("/whoami", handlers...)
	return r
}

func request(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := newAuthRouter()

	valid := signToken(t, jwt.SigningMethodHS256, testSecret, claimsFor(7, util.RoleStudent, time.Hour))
	w := request(r, valid)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userId":7,"role":"student"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(util.RequestIDHeader))

	tests := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"garbage", "not-a-token"},
		{"wrong secret", signToken(t, jwt.SigningMethodHS256, "other", claimsFor(7, util.RoleStudent, time.Hour))},
		{"expired", signToken(t, jwt.SigningMethodHS256, testSecret, claimsFor(7, util.RoleStudent, -time.Minute))},
		{"wrong algorithm", signToken(t, jwt.SigningMethodHS512, testSecret, claimsFor(7, util.RoleStudent, time.Hour))},
		{"no user", signToken(t, jwt.SigningMethodHS256, testSecret, claimsFor(0, util.RoleStudent, time.Hour))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, request(r, tt.token).Code)
		})
	}
}

func TestRoleMiddleware(t *testing.T) {
	r := newAuthRouter(util.RoleTeacher)

	student := signToken(t, jwt.SigningMethodHS256, testSecret, claimsFor(7, util.RoleStudent, time.Hour))
	teacher := signToken(t, jwt.SigningMethodHS256, testSecret, claimsFor(8, util.RoleTeacher, time.Hour))
	admin := signToken(t, jwt.SigningMethodHS256, testSecret, claimsFor(1, util.RoleAdmin, time.Hour))

	assert.Equal(t, http.StatusForbidden, request(r, student).Code)
	assert.Equal(t, http.StatusOK, request(r, teacher).Code)
	assert.Equal(t, http.StatusOK, request(r, admin).Code)
}
