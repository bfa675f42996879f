package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/marketsquare/auth-service/internal/api/metrics"
	"github.com/marketsquare/auth-service/internal/api/middleware"
	"github.com/marketsquare/auth-service/internal/core/domain"
	"github.com/marketsquare/auth-service/internal/core/ports"
)

// genericRecoveryMessage is returned by the flows that must not reveal
// whether an email address is registered.
const genericRecoveryMessage = "if that email address is registered, a link has been sent"

const oauthStateCookie = "oauth_state"

type AuthHandler struct {
	svc         ports.AuthService
	frontendURL string
}

func NewAuthHandler(svc ports.AuthService, frontendURL string) *AuthHandler {
	return &AuthHandler{svc: svc, frontendURL: frontendURL}
}

// Register creates a new account and returns a token pair.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := h.svc.Register(c.Request().Context(), ports.RegisterInput{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
		Password:      req.Password,
		RequestedRole: req.Role,
	})
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues(registerResult(err)).Inc()
		return err
	}

	metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	metrics.TokensIssuedTotal.WithLabelValues("access").Inc()
	metrics.TokensIssuedTotal.WithLabelValues("refresh").Inc()
	return c.JSON(http.StatusCreated, toAuthResponse(res))
}

func registerResult(err error) string {
	if errors.Is(err, domain.ErrUserExists) {
		return "conflict"
	}
	return "error"
}

// Login authenticates an email/password pair.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      401   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(loginResult(err)).Inc()
		return err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, toAuthResponse(res))
}

func loginResult(err error) string {
	if errors.Is(err, domain.ErrInvalidCredentials) {
		return "invalid_credentials"
	}
	return "error"
}

// Refresh rotates a refresh token into a new token pair.
//
// @Summary      Refresh tokens
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  true  "Refresh token"
// @Success      200   {object}  authResponse
// @Failure      401   {object}  errorResponse
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := h.svc.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}

	metrics.TokensIssuedTotal.WithLabelValues("access").Inc()
	metrics.TokensIssuedTotal.WithLabelValues("refresh").Inc()
	return c.JSON(http.StatusOK, toAuthResponse(res))
}

// Logout revokes the presented access token.
//
// @Summary      Logout
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  logoutResponse
// @Failure      401  {object}  errorResponse
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	raw, _ := c.Get(middleware.CtxAccessToken).(string)
	if raw == "" {
		// Route registered without the Auth middleware, or claims lost.
		return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}

	res, err := h.svc.Logout(c.Request().Context(), raw)
	if err != nil {
		metrics.RevocationsTotal.WithLabelValues("write_failed").Inc()
		return err
	}

	metrics.RevocationsTotal.WithLabelValues("revoked").Inc()
	return c.JSON(http.StatusOK, logoutResponse{
		Success:     true,
		UserID:      res.UserID,
		LoggedOutAt: res.RevokedAt,
	})
}

// Me returns the authenticated user's public profile.
//
// @Summary      Current user
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  userResponse
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	user, err := h.svc.CurrentUser(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// ForgotPassword starts the password recovery flow. The response is the
// same whether or not the address is registered.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req emailRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.svc.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: genericRecoveryMessage})
}

// ResetPassword redeems a reset token carried in the path.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.svc.ResetPassword(c.Request().Context(), c.Param("token"), req.Password); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "password has been reset"})
}

// SendVerification issues a fresh email-verification token.
func (h *AuthHandler) SendVerification(c echo.Context) error {
	return h.sendVerification(c)
}

// ResendVerification regenerates the verification token. Idempotent for
// already-verified accounts.
func (h *AuthHandler) ResendVerification(c echo.Context) error {
	return h.sendVerification(c)
}

func (h *AuthHandler) sendVerification(c echo.Context) error {
	var req emailRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.svc.SendVerificationEmail(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: genericRecoveryMessage})
}

// VerifyEmail redeems a verification token.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req verifyEmailRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.svc.VerifyEmail(c.Request().Context(), req.Token); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "email verified"})
}

// GoogleLogin authenticates a client-submitted Google credential.
//
// @Summary      Google login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      googleLoginRequest  true  "Google credential"
// @Success      200   {object}  authResponse
// @Failure      401   {object}  errorResponse
// @Router       /auth/google [post]
func (h *AuthHandler) GoogleLogin(c echo.Context) error {
	var req googleLoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := h.svc.GoogleLogin(c.Request().Context(), req.credential(), req.Role)
	if err != nil {
		return err
	}

	metrics.FederatedLoginsTotal.WithLabelValues(req.Kind).Inc()
	return c.JSON(http.StatusOK, toAuthResponse(res))
}

// GoogleStart begins the redirect-based handshake: it plants a state
// nonce in a short-lived cookie and forwards the browser to the
// provider's consent screen.
func (h *AuthHandler) GoogleStart(c echo.Context) error {
	state := uuid.NewString()
	c.SetCookie(&http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusFound, h.svc.GoogleAuthURL(state))
}

// GoogleCallback completes the provider handshake. Success and failure
// both end in a redirect to the frontend, never in a JSON error: the
// user agent arriving here is a browser mid-flow.
func (h *AuthHandler) GoogleCallback(c echo.Context) error {
	if c.QueryParam("error") != "" {
		return h.redirectLoginError(c, "auth_failed")
	}

	code := c.QueryParam("code")
	state := c.QueryParam("state")
	if code == "" || state == "" {
		return h.redirectLoginError(c, "auth_failed")
	}

	cookie, err := c.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != state {
		return h.redirectLoginError(c, "auth_failed")
	}

	res, err := h.svc.GoogleCallback(c.Request().Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrIdentityVerification):
			return h.redirectLoginError(c, "auth_failed")
		case errors.Is(err, domain.ErrUserNotFound):
			return h.redirectLoginError(c, "user_not_found")
		default:
			return h.redirectLoginError(c, "server_error")
		}
	}

	metrics.FederatedLoginsTotal.WithLabelValues("callback").Inc()

	q := url.Values{}
	q.Set("token", res.AccessToken)
	q.Set("refreshToken", res.RefreshToken)
	q.Set("userId", res.User.ID)
	return c.Redirect(http.StatusFound, h.frontendURL+"/auth/success?"+q.Encode())
}

func (h *AuthHandler) redirectLoginError(c echo.Context, code string) error {
	q := url.Values{}
	q.Set("error", code)
	return c.Redirect(http.StatusFound, h.frontendURL+"/login?"+q.Encode())
}
