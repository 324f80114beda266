package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/streamify-app/backend/internal/middleware"
	"github.com/streamify-app/backend/internal/models"
	"github.com/streamify-app/backend/internal/services"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	auth         *services.AuthService
	cookieSecure bool
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(auth *services.AuthService, cookieSecure bool) *AuthHandler {
	return &AuthHandler{auth: auth, cookieSecure: cookieSecure}
}

// RegisterAuthRoutes registers authentication-related routes. limit guards
// the credential endpoints; protect validates the session.
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group, protect, limit echo.MiddlewareFunc) {
	g.POST("/signup", h.Signup, limit)
	g.POST("/login", h.Login, limit)
	g.POST("/logout", h.Logout)
	g.POST("/onboarding", h.Onboarding, protect)
	g.GET("/me", h.Me, protect)
	if h.auth.FederatedLoginEnabled() {
		g.POST("/firebase-login", h.FirebaseLogin, limit)
	}
}

// Signup handles local user registration with email and password
func (h *AuthHandler) Signup(c echo.Context) error {
	var req models.SignupRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.auth.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return h.startSession(c, user)
}

// Login handles local user authentication with email and password
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.auth.Authenticate(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return h.startSession(c, user)
}

// FirebaseLogin exchanges a Firebase ID token for a session
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	var req models.FirebaseLoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.auth.FederatedLogin(c.Request().Context(), req.IDToken)
	if err != nil {
		return err
	}
	return h.startSession(c, user)
}

// Logout clears the session cookie; tokens are stateless so nothing else happens.
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(h.cookie("", -1, time.Unix(0, 0)))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Logout successful"})
}

func (h *AuthHandler) Onboarding(c echo.Context) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	var req models.OnboardingRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.auth.CompleteOnboarding(c.Request().Context(), current.ID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": user})
}

func (h *AuthHandler) Me(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": user})
}

func (h *AuthHandler) startSession(c echo.Context, user *models.User) error {
	token, expires, err := h.auth.IssueSession(user.ID)
	if err != nil {
		return err
	}
	c.SetCookie(h.cookie(token, int(h.auth.SessionTTL().Seconds()), expires))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": user})
}

func (h *AuthHandler) cookie(value string, maxAge int, expires time.Time) *http.Cookie {
	sameSite := http.SameSiteNoneMode
	if !h.cookieSecure {
		// browsers reject SameSite=None without Secure
		sameSite = http.SameSiteLaxMode
	}
	return &http.Cookie{
		Name:     middleware.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: sameSite,
	}
}
