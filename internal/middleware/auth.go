package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"support_chat/internal/config"
	"support_chat/internal/domain"
	"support_chat/internal/repository"
	"support_chat/pkg/errors"
	"support_chat/pkg/logger"
)

const (
	ContextUserID   = "user_id"
	ContextUserRole = "user_role"
	ContextUserName = "user_display_name"
)

// AuthMiddleware проверяет JWT токены внешнего сервиса идентификации.
// Роль берется из хранилища пользователей, а не из токена.
type AuthMiddleware struct {
	jwtSecret []byte
	issuer    string
	userRepo  repository.UserRepository
	log       logger.Logger
}

// Claims - claims токена внешнего сервиса идентификации
type Claims struct {
	UserID      string `json:"user_id"`
	Role        string `json:"role,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	jwt.RegisteredClaims
}

func NewAuthMiddleware(cfg config.JWTConfig, userRepo repository.UserRepository, log logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret: []byte(cfg.AccessSecret),
		issuer:    cfg.Issuer,
		userRepo:  userRepo,
		log:       log,
	}
}

// RequireAuth требует валидный токен в заголовке Authorization.
// Для websocket токен можно передать параметром ?token=, браузер не умеет ставить заголовки.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := bearerToken(c)
		if err != nil {
			m.log.Debug("Missing or malformed token", "error", err, "path", c.Request.URL.Path)
			abortWithError(c, err)
			return
		}

		user, err := m.Authenticate(c.Request.Context(), tokenString)
		if err != nil {
			m.log.Warn("Token validation failed", "error", err)
			abortWithError(c, err)
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextUserRole, user.Role)
		c.Set(ContextUserName, user.DisplayName)
		c.Next()
	}
}

// RequireRole пропускает только пользователей с указанной ролью. Ставится после RequireAuth.
func (m *AuthMiddleware) RequireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserRole(c) != role {
			abortWithError(c, fmt.Errorf("%w: %s role required", errors.ErrAccessDenied, strings.ToLower(string(role))))
			return
		}
		c.Next()
	}
}

// Authenticate разбирает токен и загружает активного пользователя
func (m *AuthMiddleware) Authenticate(ctx context.Context, tokenString string) (*domain.User, error) {
	claims, err := m.parseToken(tokenString)
	if err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id in token", errors.ErrInvalidToken)
	}

	user, err := m.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown user", errors.ErrUnauthorized)
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: user is inactive", errors.ErrUnauthorized)
	}

	return user, nil
}

func (m *AuthMiddleware) parseToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{
		jwt.SigningMethodHS256.Alg(),
		jwt.SigningMethodHS384.Alg(),
		jwt.SigningMethodHS512.Alg(),
	})}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.jwtSecret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.ErrInvalidToken
	}
	return claims, nil
}

func bearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if token := c.Query("token"); token != "" {
			return token, nil
		}
		return "", fmt.Errorf("%w: authorization header required", errors.ErrUnauthorized)
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", fmt.Errorf("%w: invalid authorization header format", errors.ErrUnauthorized)
	}
	return parts[1], nil
}

func abortWithError(c *gin.Context, err error) {
	apiErr := errors.FromError(err)
	c.AbortWithStatusJSON(apiErr.Code, apiErr)
}

// UserID возвращает id аутентифицированного пользователя
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func UserRole(c *gin.Context) domain.Role {
	v, ok := c.Get(ContextUserRole)
	if !ok {
		return ""
	}
	role, _ := v.(domain.Role)
	return role
}
