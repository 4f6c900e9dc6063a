package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"canteen/internal/domain"
)

// SessionHandler serves the navbar view of the device's effective identity.
type SessionHandler struct {
	csrf CSRFTokens
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(csrf CSRFTokens) *SessionHandler {
	return &SessionHandler{csrf: csrf}
}

// sessionUserView represents the user object in the response.
type sessionUserView struct {
	ID       string      `json:"id"`
	Email    string      `json:"email,omitempty"`
	FullName string      `json:"full_name,omitempty"`
	Role     domain.Role `json:"role,omitempty"`
}

type sessionResponse struct {
	Phase         string           `json:"phase"`
	Source        string           `json:"source"`
	Authenticated bool             `json:"authenticated"`
	User          *sessionUserView `json:"user,omitempty"`
	CSRFToken     string           `json:"csrf_token,omitempty"`
}

// Handle processes GET /session.
func (h *SessionHandler) Handle(c echo.Context) error {
	decision := decisionFrom(c)
	resp := sessionResponse{
		Phase:         phaseFrom(c).String(),
		Source:        decision.Source.String(),
		Authenticated: decision.Identity.Authenticated(),
		User:          userView(decision.Identity),
	}

	token, err := h.csrf.Generate(deviceFrom(c).ID)
	if err != nil {
		return mapDomainError(err)
	}
	resp.CSRFToken = token

	return c.JSON(http.StatusOK, resp)
}

func userView(id domain.Identity) *sessionUserView {
	if id.Session == nil {
		return nil
	}
	v := &sessionUserView{ID: id.Session.UserID, Email: id.Session.Email}
	if id.Profile != nil {
		v.FullName = id.Profile.FullName
		v.Role = id.Profile.Role
	}
	return v
}
