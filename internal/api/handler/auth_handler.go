package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/projecthub/portal/internal/api/middleware"
	"github.com/projecthub/portal/internal/core/domain"
	"github.com/projecthub/portal/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type loginRequest struct {
	Email      string `json:"email" form:"email" validate:"required,email"`
	Password   string `json:"password" form:"password" validate:"required"`
	SecretCode string `json:"secret_code,omitempty" form:"secret_code"`
}

type loginResponse struct {
	RedirectTo string       `json:"redirect_to"`
	User       *domain.User `json:"user"`
}

type redirectResponse struct {
	RedirectTo string `json:"redirect_to"`
}

// Login signs the browser session in through the backend.
//
// @Summary      Login
// @Description  Exchanges credentials for a backend token, fetches the profile and stores both in the session.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      502   {object}  errorResponse
// @Router       /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	res, err := h.authService.Login(c.Request().Context(), middleware.SessionID(c), ports.LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		SecretCode: req.SecretCode,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, loginResponse{RedirectTo: res.RedirectTo, User: res.User})
}

// Logout ends the browser session.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      200  {object}  redirectResponse
// @Failure      500  {object}  errorResponse
// @Router       /logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	redirectTo, err := h.authService.Logout(c.Request().Context(), middleware.SessionID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, redirectResponse{RedirectTo: redirectTo})
}

// Me returns the user of the current session.
//
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Success      200  {object}  domain.User
// @Failure      302  "not logged in, redirected to /login"
// @Failure      503  {object}  errorResponse
// @Router       /me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	_, _, user, err := ctxSession(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}
