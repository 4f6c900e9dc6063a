package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"canteen/internal/domain"
	"canteen/internal/usecase"
)

// Landing pages after a successful sign-in.
const (
	studentLanding = "/menu"
	staffLanding   = "/admin/dashboard"
	staffEntry     = "/admin"
)

// Resetter disposes a device's identity resolver.
type Resetter interface {
	Reset(deviceID string)
}

// AuthHandler serves the student and staff auth screens and sign-out.
type AuthHandler struct {
	signIn   *usecase.SignIn
	signUp   *usecase.SignUp
	signOut  *usecase.SignOut
	registry Resetter
	logger   *slog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(in *usecase.SignIn, up *usecase.SignUp, out *usecase.SignOut, registry Resetter, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{signIn: in, signUp: up, signOut: out, registry: registry, logger: logger}
}

type authForm struct {
	Form   string   `json:"form"`
	Modes  []string `json:"modes"`
	From   string   `json:"from,omitempty"`
	Action string   `json:"action"`
}

type authResult struct {
	Message  string           `json:"message"`
	Redirect string           `json:"redirect,omitempty"`
	User     *sessionUserView `json:"user,omitempty"`
}

// StudentForm handles GET /student-auth.
func (h *AuthHandler) StudentForm(c echo.Context) error {
	return c.JSON(http.StatusOK, authForm{
		Form:   string(domain.RoleStudent),
		Modes:  []string{"sign-in", "sign-up"},
		From:   safeFrom(c.QueryParam("from")),
		Action: "/student-auth",
	})
}

// StaffForm handles GET /admin. A device that already holds a session is sent
// to the dashboard.
func (h *AuthHandler) StaffForm(c echo.Context) error {
	if identityFrom(c).Authenticated() {
		c.Response().Header().Set(echo.HeaderLocation, staffLanding)
		return c.JSON(http.StatusSeeOther, redirectResponse{Redirect: staffLanding})
	}
	return c.JSON(http.StatusOK, authForm{
		Form:   string(domain.RoleStaff),
		Modes:  []string{"sign-in", "sign-up"},
		Action: staffEntry,
	})
}

// StudentSignIn handles POST /student-auth/sign-in.
func (h *AuthHandler) StudentSignIn(c echo.Context) error {
	landing := safeFrom(c.QueryParam("from"))
	if landing == "" {
		landing = studentLanding
	}
	return h.handleSignIn(c, "", landing)
}

// StaffSignIn handles POST /admin/sign-in.
func (h *AuthHandler) StaffSignIn(c echo.Context) error {
	return h.handleSignIn(c, domain.RoleStaff, staffLanding)
}

// StudentSignUp handles POST /student-auth/sign-up.
func (h *AuthHandler) StudentSignUp(c echo.Context) error {
	return h.handleSignUp(c, domain.RoleStudent)
}

// StaffSignUp handles POST /admin/sign-up.
func (h *AuthHandler) StaffSignUp(c echo.Context) error {
	return h.handleSignUp(c, domain.RoleStaff)
}

// SignOut handles POST /sign-out. The provider is told in the background;
// the device is anonymous by the time the response is written.
func (h *AuthHandler) SignOut(c echo.Context) error {
	dev := deviceFrom(c)
	h.signOut.Execute(c.Request().Context(), dev)
	h.registry.Reset(dev.ID)

	h.logger.InfoContext(c.Request().Context(), "device signed out", "device_id", dev.ID)
	c.Response().Header().Set(echo.HeaderLocation, staffEntry)
	return c.JSON(http.StatusSeeOther, redirectResponse{Redirect: staffEntry})
}

func (h *AuthHandler) handleSignIn(c echo.Context, role domain.Role, landing string) error {
	var creds usecase.Credentials
	if err := bindAndValidate(c, &creds); err != nil {
		return err
	}

	id, err := h.signIn.Execute(c.Request().Context(), deviceFrom(c), creds, role)
	if err != nil {
		return mapDomainError(err)
	}

	return c.JSON(http.StatusOK, authResult{
		Message:  "Signed in successfully",
		Redirect: landing,
		User:     userView(*id),
	})
}

func (h *AuthHandler) handleSignUp(c echo.Context, role domain.Role) error {
	var in usecase.SignUpInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}

	if _, err := h.signUp.Execute(c.Request().Context(), in, role); err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusCreated, authResult{Message: "Account created. Please sign in."})
}

// safeFrom keeps only same-site absolute paths.
func safeFrom(from string) string {
	if !strings.HasPrefix(from, "/") || strings.HasPrefix(from, "//") || strings.HasPrefix(from, "/\\") {
		return ""
	}
	return from
}

// bindAndValidate binds the request body into v and validates it.
func bindAndValidate(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if err := c.Validate(v); err != nil {
		return mapDomainError(err)
	}
	return nil
}

