package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"orderapp/internal/config"
	"orderapp/internal/domain/model"
	"orderapp/internal/infra/token"
	"orderapp/internal/middleware"
	"orderapp/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// =====================
// レスポンス確認用
// =====================

type mwErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type mwOKResponse struct {
	UserID       string `json:"user_id"`
	Role         string `json:"role"`
	TokenVersion int    `json:"token_version"`
}

// =====================
// UserRepository モック
// =====================

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, user *model.User) error {
	panic("not used in middleware tests")
}

func (m *MockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	panic("not used in middleware tests")
}

func (m *MockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepo) List(ctx context.Context) ([]model.User, error) {
	panic("not used in middleware tests")
}

func (m *MockUserRepo) Update(ctx context.Context, user *model.User) error {
	panic("not used in middleware tests")
}

func (m *MockUserRepo) IncrementTokenVersion(ctx context.Context, id string) error {
	panic("not used in middleware tests")
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

// =====================
// helper
// =====================

var testJWT = config.JWT{
	Key:      "0123456789abcdef0123456789abcdef",
	Issuer:   "orderapp",
	Audience: "orderapp",
	Expiry:   time.Hour,
}

func mustIssue(t *testing.T, cfg config.JWT, user model.User) string {
	t.Helper()
	raw, _, err := token.NewJWTIssuer(cfg).Issue(user, time.Now())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	return raw
}

func runRequest(t *testing.T, e *echo.Echo, method string, path string, authHeader string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeMWError(t *testing.T, rec *httptest.ResponseRecorder) mwErrorResponse {
	t.Helper()
	var r mwErrorResponse
	_ = json.NewDecoder(rec.Body).Decode(&r)
	return r
}

func okHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"ok": "true"})
}

// =====================
// AuthJWT
// =====================

// Authorizationなし => 401
func TestMiddleware_AuthJWT_Unauthorized_NoHeader(t *testing.T) {
	e := echo.New()
	e.GET("/protected", okHandler, middleware.AuthJWT(token.NewJWTIssuer(testJWT)))

	rec := runRequest(t, e, http.MethodGet, "/protected", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	body := decodeMWError(t, rec)
	assert.Equal(t, "unauthorized", body.Error)
	assert.Equal(t, "UNAUTHORIZED", body.Code)
}

// Bearer形式じゃない => 401
func TestMiddleware_AuthJWT_Unauthorized_BadScheme(t *testing.T) {
	e := echo.New()
	e.GET("/protected", okHandler, middleware.AuthJWT(token.NewJWTIssuer(testJWT)))

	rec := runRequest(t, e, http.MethodGet, "/protected", "Token abc.def.ghi")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// 署名違い => 401
func TestMiddleware_AuthJWT_Unauthorized_BadSignature(t *testing.T) {
	e := echo.New()
	e.GET("/protected", okHandler, middleware.AuthJWT(token.NewJWTIssuer(testJWT)))

	other := testJWT
	other.Key = "ffffffffffffffffffffffffffffffff"
	raw := mustIssue(t, other, model.User{ID: "u-1", Role: model.RoleUser})

	rec := runRequest(t, e, http.MethodGet, "/protected", "Bearer "+raw)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// アルゴリズム違い（HS512）=> 401
func TestMiddleware_AuthJWT_Unauthorized_WrongAlg(t *testing.T) {
	e := echo.New()
	e.GET("/protected", okHandler, middleware.AuthJWT(token.NewJWTIssuer(testJWT)))

	claims := token.Claims{
		Role: "USER",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			Issuer:    testJWT.Issuer,
			Audience:  jwt.ClaimStrings{testJWT.Audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testJWT.Key))
	assert.NoError(t, err)

	rec := runRequest(t, e, http.MethodGet, "/protected", "Bearer "+raw)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// 正常：ctxに値が入る
func TestMiddleware_AuthJWT_Success_SetsContext(t *testing.T) {
	e := echo.New()

	raw := mustIssue(t, testJWT, model.User{ID: "u-123", Email: "a@example.com", Role: model.RoleUser, TokenVersion: 7})

	e.GET("/protected", func(c echo.Context) error {
		role, _ := c.Get(middleware.CtxUserRoleKey).(string)
		tv, _ := c.Get(middleware.CtxTokenVersionKey).(int)

		return c.JSON(http.StatusOK, mwOKResponse{
			UserID:       middleware.UserID(c),
			Role:         role,
			TokenVersion: tv,
		})
	}, middleware.AuthJWT(token.NewJWTIssuer(testJWT)))

	rec := runRequest(t, e, http.MethodGet, "/protected", "Bearer "+raw)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body mwOKResponse
	_ = json.NewDecoder(rec.Body).Decode(&body)
	assert.Equal(t, "u-123", body.UserID)
	assert.Equal(t, "USER", body.Role)
	assert.Equal(t, 7, body.TokenVersion)
}

// =====================
// TokenVersionGuard
// =====================

// AuthJWT無しでGuardだけ => 401
func TestMiddleware_TokenVersionGuard_Unauthorized_MissingContext(t *testing.T) {
	e := echo.New()
	userRepo := new(MockUserRepo)

	e.GET("/protected", okHandler, middleware.TokenVersionGuard(userRepo))

	rec := runRequest(t, e, http.MethodGet, "/protected", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// tv不一致 => 401（ログアウト済み）
func TestMiddleware_TokenVersionGuard_Unauthorized_TokenVersionMismatch(t *testing.T) {
	e := echo.New()
	userRepo := new(MockUserRepo)

	raw := mustIssue(t, testJWT, model.User{ID: "u-1", Role: model.RoleUser, TokenVersion: 0})

	userRepo.On("FindByID", mock.Anything, "u-1").Return(&model.User{
		ID:           "u-1",
		Email:        "user@test.com",
		Role:         model.RoleUser,
		TokenVersion: 1, // 不一致
	}, nil)

	e.GET("/protected", okHandler, middleware.AuthJWT(token.NewJWTIssuer(testJWT)), middleware.TokenVersionGuard(userRepo))

	rec := runRequest(t, e, http.MethodGet, "/protected", "Bearer "+raw)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	userRepo.AssertExpectations(t)
}

// ユーザーが消えている => 401
func TestMiddleware_TokenVersionGuard_Unauthorized_UserGone(t *testing.T) {
	e := echo.New()
	userRepo := new(MockUserRepo)

	raw := mustIssue(t, testJWT, model.User{ID: "u-1", Role: model.RoleUser})
	userRepo.On("FindByID", mock.Anything, "u-1").Return(nil, repository.ErrUserNotFound)

	e.GET("/protected", okHandler, middleware.AuthJWT(token.NewJWTIssuer(testJWT)), middleware.TokenVersionGuard(userRepo))

	rec := runRequest(t, e, http.MethodGet, "/protected", "Bearer "+raw)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// tv一致 => 200
func TestMiddleware_TokenVersionGuard_Success(t *testing.T) {
	e := echo.New()
	userRepo := new(MockUserRepo)

	raw := mustIssue(t, testJWT, model.User{ID: "u-1", Role: model.RoleUser, TokenVersion: 5})

	userRepo.On("FindByID", mock.Anything, "u-1").Return(&model.User{
		ID:           "u-1",
		Email:        "user@test.com",
		Role:         model.RoleUser,
		TokenVersion: 5, // 一致
	}, nil)

	e.GET("/protected", okHandler, middleware.AuthJWT(token.NewJWTIssuer(testJWT)), middleware.TokenVersionGuard(userRepo))

	rec := runRequest(t, e, http.MethodGet, "/protected", "Bearer "+raw)
	assert.Equal(t, http.StatusOK, rec.Code)

	userRepo.AssertExpectations(t)
}

// =====================
// AdminRoleGuard
// =====================

func TestMiddleware_AdminRoleGuard(t *testing.T) {
	tests := []struct {
		name string
		role string
		want int
	}{
		{"no role", "", http.StatusUnauthorized},
		{"user", "USER", http.StatusForbidden},
		{"admin", "ADMIN", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			setRole := func(next echo.HandlerFunc) echo.HandlerFunc {
				return func(c echo.Context) error {
					if tt.role != "" {
						c.Set(middleware.CtxUserRoleKey, tt.role)
					}
					return next(c)
				}
			}
			e.GET("/admin", okHandler, setRole, middleware.AdminRoleGuard())

			rec := runRequest(t, e, http.MethodGet, "/admin", "")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

// =====================
// RequestLogger
// =====================

func TestMiddleware_RequestLogger_PassesThrough(t *testing.T) {
	e := echo.New()
	e.Use(middleware.RequestLogger(zap.NewNop()))
	e.GET("/ping", okHandler)

	rec := runRequest(t, e, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
