package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"support_chat/internal/config"
	"support_chat/internal/domain"
	"support_chat/internal/repository"
	"support_chat/internal/service"
	"support_chat/pkg/errors"
	"support_chat/pkg/logger"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, userID string, expiresAt time.Time) string {
	t.Helper()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

type authFixture struct {
	router   *gin.Engine
	customer *domain.User
	admin    *domain.User
	inactive *domain.User
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	store := repository.NewMemoryStore()
	f := &authFixture{
		customer: &domain.User{ID: uuid.New(), DisplayName: "Alice", Role: domain.RoleCustomer, IsActive: true},
		admin:    &domain.User{ID: uuid.New(), DisplayName: "Agent", Role: domain.RoleAdmin, IsActive: true},
		inactive: &domain.User{ID: uuid.New(), DisplayName: "Gone", Role: domain.RoleCustomer, IsActive: false},
	}
	store.PutUser(f.customer)
	store.PutUser(f.admin)
	store.PutUser(f.inactive)

	auth := NewAuthMiddleware(config.JWTConfig{AccessSecret: testSecret}, store.Users(), logger.Nop())

	r := gin.New()
	r.Use(auth.RequireAuth())
	r.GET("/me", func(c *gin.Context) {
		id, _ := UserID(c)
		c.JSON(http.StatusOK, gin.H{"id": id.String(), "role": UserRole(c)})
	})
	r.GET("/admin", auth.RequireRole(domain.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	f.router = r
	return f
}

func (f *authFixture) do(method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	f := newAuthFixture(t)
	valid := signToken(t, f.customer.ID.String(), time.Now().Add(time.Hour))

	w := f.do(http.MethodGet, "/me", valid)
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, f.customer.ID.String(), body["id"])
	assert.Equal(t, string(domain.RoleCustomer), body["role"])

	w = f.do(http.MethodGet, "/me?token="+valid, "")
	assert.Equal(t, http.StatusOK, w.Code)

	tests := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"garbage", "not-a-jwt"},
		{"expired", signToken(t, f.customer.ID.String(), time.Now().Add(-time.Minute))},
		{"bad user id", signToken(t, "42", time.Now().Add(time.Hour))},
		{"unknown user", signToken(t, uuid.NewString(), time.Now().Add(time.Hour))},
		{"inactive user", signToken(t, f.inactive.ID.String(), time.Now().Add(time.Hour))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(http.MethodGet, "/me", tt.token)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRequireAuth_WrongSecret(t *testing.T) {
	f := newAuthFixture(t)
	claims := Claims{UserID: f.customer.ID.String()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other"))
	require.NoError(t, err)

	w := f.do(http.MethodGet, "/me", token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	f := newAuthFixture(t)

	w := f.do(http.MethodGet, "/admin", signToken(t, f.admin.ID.String(), time.Now().Add(time.Hour)))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(http.MethodGet, "/admin", signToken(t, f.customer.ID.String(), time.Now().Add(time.Hour)))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(logger.Nop()))
	r.GET("/missing", func(c *gin.Context) {
		_ = c.Error(fmt.Errorf("load room: %w", errors.ErrRoomNotFound))
	})
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(fmt.Errorf("dial tcp: connection refused"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"load room: chat room not found","code":404}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error","code":500}`, w.Body.String())
}

func TestRateLimit(t *testing.T) {
	rl := NewRateLimitMiddleware(
		service.NewRateLimitService(repository.NewMemoryRateLimitRepository(), logger.Nop()),
		logger.Nop(),
	)

	r := gin.New()
	r.POST("/send", rl.Limit("messages", 2), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/send", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)
}
