package handler

import (
	"errors"
	"net/http"

	"orderapp/internal/domain/model"
	"orderapp/internal/middleware"
	"orderapp/internal/usecase"
	auth "orderapp/internal/usecase/auth_usecase"
	"orderapp/internal/validator"

	"github.com/labstack/echo/v4"
)

const (
	CodeEmailTaken         = "EMAIL_TAKEN"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeLockedOut          = "LOCKED_OUT"
	CodeNoUsers            = "NO_USERS"
	CodeUnauthorized       = "UNAUTHORIZED"
)

type AuthHandler struct {
	registerUC  *auth.RegisterUserUsecase // 会員登録usecase
	loginUC     *auth.LoginUsecase        // ログインusecase
	anonymousUC *auth.AnonymousTokenUsecase
	logoutUC    *auth.LogoutUsecase
}

// DIコンストラクタ
func NewAuthHandler(
	registerUC *auth.RegisterUserUsecase,
	loginUC *auth.LoginUsecase,
	anonymousUC *auth.AnonymousTokenUsecase,
	logoutUC *auth.LogoutUsecase,
) *AuthHandler {
	return &AuthHandler{
		registerUC:  registerUC,
		loginUC:     loginUC,
		anonymousUC: anonymousUC,
		logoutUC:    logoutUC,
	}
}

type registerResponse struct {
	Message string     `json:"message"`
	User    model.User `json:"user"`
}

// /api/auth。logoutだけ認証が要る
func (h *AuthHandler) RegisterRoutes(g *echo.Group, authed ...echo.MiddlewareFunc) {
	ag := g.Group("/auth")
	ag.POST("/register", h.register)
	ag.POST("/login", h.login)
	ag.GET("/token", h.anonymousToken)
	ag.POST("/logout", h.logout, authed...)
}

// POST /api/auth/register
func (h *AuthHandler) register(c echo.Context) error {
	var req validator.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, invalidBody())
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, err)
	}

	out, err := h.registerUC.Execute(c.Request().Context(), auth.RegisterUserInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return writeError(c, authError(err))
	}

	return c.JSON(http.StatusCreated, registerResponse{Message: "User registered successfully.", User: out.User})
}

// POST /api/auth/login
func (h *AuthHandler) login(c echo.Context) error {
	var req validator.LoginRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, invalidBody())
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, err)
	}

	out, err := h.loginUC.Execute(c.Request().Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return writeError(c, authError(err))
	}

	return c.JSON(http.StatusOK, out)
}

// GET /api/auth/token（デモ用）
func (h *AuthHandler) anonymousToken(c echo.Context) error {
	out, err := h.anonymousUC.Execute(c.Request().Context())
	if err != nil {
		return writeError(c, authError(err))
	}
	return c.JSON(http.StatusOK, out)
}

// POST /api/auth/logout
func (h *AuthHandler) logout(c echo.Context) error {
	if err := h.logoutUC.Execute(c.Request().Context(), middleware.UserID(c)); err != nil {
		return writeError(c, authError(err))
	}
	return c.NoContent(http.StatusNoContent)
}

// authのsentinelをHTTPErrorへ
func authError(err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidEmailFormat):
		return invalidParam("email", "Email must be a valid email address.")
	case errors.Is(err, auth.ErrPasswordTooShort):
		return invalidParam("password", "Password must be at least 8 characters.")
	case errors.Is(err, auth.ErrWeakPassword):
		return invalidParam("password", "Password must contain an uppercase letter, a lowercase letter and a digit.")
	case errors.Is(err, auth.ErrEmailAlreadyExists):
		return &usecase.HTTPError{Status: http.StatusConflict, Code: CodeEmailTaken, Message: "Email is already registered."}
	case errors.Is(err, auth.ErrInvalidCredentials):
		return &usecase.HTTPError{Status: http.StatusUnauthorized, Code: CodeInvalidCredentials, Message: "Invalid email or password."}
	case errors.Is(err, auth.ErrLockedOut):
		return &usecase.HTTPError{Status: http.StatusLocked, Code: CodeLockedOut, Message: "Account is locked. Try again later."}
	case errors.Is(err, auth.ErrNoUsers):
		return &usecase.HTTPError{Status: http.StatusNotFound, Code: CodeNoUsers, Message: "No users available."}
	case errors.Is(err, auth.ErrUnauthorized):
		return &usecase.HTTPError{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: "unauthorized"}
	default:
		return err
	}
}
