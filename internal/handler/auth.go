package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/healthtrack/backend/internal/model"
	"github.com/healthtrack/backend/internal/service"
)

type AuthHandler struct {
	svc        *service.AuthService
	log        *slog.Logger
	diagnostic bool
}

// NewAuthHandler builds the session endpoints. With diagnostic set, internal
// error text is echoed to clients.
func NewAuthHandler(svc *service.AuthService, logger *slog.Logger, diagnostic bool) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{svc: svc, log: logger, diagnostic: diagnostic}
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.RegisterRequest true "Email, password and name"
// @Success 201 {object} model.AuthResponse
// @Failure 400 {object} model.ValidationErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Failure 429 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/auth/registration [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	session, err := h.svc.Register(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		h.writeAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, session.RefreshSecret)
	c.JSON(http.StatusCreated, model.AuthResponse{
		Token: session.AccessToken,
		User:  session.User.Public(),
	})
}

// Login godoc
// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.LoginRequest true "Email and password"
// @Success 200 {object} model.AuthResponse
// @Failure 400 {object} model.ValidationErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 429 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	session, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, session.RefreshSecret)
	c.JSON(http.StatusOK, model.AuthResponse{
		Token: session.AccessToken,
		User:  session.User.Public(),
	})
}

// Refresh godoc
// @Summary Renew the access token
// @Description Uses the refreshToken cookie. The cookie is replaced only when rotation is enabled.
// @Tags auth
// @Produce json
// @Success 200 {object} model.RefreshResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 429 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	secret, _ := c.Cookie(h.svc.CookieConfig().Name)
	renewal, err := h.svc.Renew(c.Request.Context(), secret)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSession) {
			h.clearRefreshCookie(c)
		}
		h.writeAuthError(c, err)
		return
	}

	if renewal.Rotated() {
		h.setRefreshCookie(c, renewal.RefreshSecret)
	}
	c.JSON(http.StatusOK, model.RefreshResponse{Token: renewal.AccessToken})
}

// Logout godoc
// @Summary Logout
// @Description Deletes the refresh record behind the cookie, if any, and clears the cookie.
// @Tags auth
// @Produce json
// @Success 200 {object} model.MessageResponse
// @Router /api/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	secret, _ := c.Cookie(h.svc.CookieConfig().Name)
	if err := h.svc.Logout(c.Request.Context(), secret); err != nil {
		h.log.Error("logout failed to delete refresh record", "path", c.FullPath(), "error", err)
	}
	h.clearRefreshCookie(c)
	c.JSON(http.StatusOK, model.MessageResponse{Message: "logged out"})
}

// Me godoc
// @Summary Get current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.MeResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /api/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context, user *model.User) {
	c.JSON(http.StatusOK, user.Me())
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, secret string) {
	cfg := h.svc.CookieConfig()
	c.SetSameSite(cfg.SameSite)
	c.SetCookie(cfg.Name, secret, cfg.MaxAge, cfg.Path, cfg.Domain, cfg.Secure, cfg.HTTPOnly)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	cfg := h.svc.CookieConfig()
	c.SetSameSite(cfg.SameSite)
	c.SetCookie(cfg.Name, "", -1, cfg.Path, cfg.Domain, cfg.Secure, cfg.HTTPOnly)
}

func (h *AuthHandler) writeAuthError(c *gin.Context, err error) {
	writeError(c, h.log, h.diagnostic, err)
}

func writeError(c *gin.Context, log *slog.Logger, diagnostic bool, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid input"})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, model.ErrorResponse{Error: "email already registered"})
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrInvalidCredential):
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "invalid email or password"})
	case errors.Is(err, service.ErrInvalidSession):
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "invalid or expired session"})
	case errors.Is(err, service.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "unauthorized"})
	default:
		log.Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
		resp := model.ErrorResponse{Error: "internal server error"}
		if diagnostic {
			resp.Detail = err.Error()
		}
		c.JSON(http.StatusInternalServerError, resp)
	}
}
