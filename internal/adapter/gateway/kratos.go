package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	kratos "github.com/ory/kratos-client-go"

	"canteen/internal/domain"
)

// Kratos UI message ids used to classify flow errors.
const (
	msgInvalidCredentials = 4000006
	msgDuplicateAccount   = 4000007
)

// KratosGateway implements domain.Authenticator with Kratos native flows.
type KratosGateway struct {
	client  *kratos.APIClient
	timeout time.Duration
}

// NewKratosGateway creates a new Kratos gateway with tuned HTTP transport.
func NewKratosGateway(baseURL string, timeout time.Duration) *KratosGateway {
	configuration := kratos.NewConfiguration()
	configuration.Servers = []kratos.ServerConfiguration{
		{URL: baseURL},
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
	}
	configuration.HTTPClient = &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}

	return &KratosGateway{
		client:  kratos.NewAPIClient(configuration),
		timeout: timeout,
	}
}

var _ domain.Authenticator = (*KratosGateway)(nil)

// GetCurrentSession validates a session token. An unknown or expired token
// is reported as no session.
func (g *KratosGateway) GetCurrentSession(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	session, resp, err := g.client.FrontendAPI.ToSession(ctx).XSessionToken(token).Execute()
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, nil
		}
		return nil, unavailable(resp, err)
	}

	s, err := toDomainSession(session, token)
	if errors.Is(err, domain.ErrSessionInactive) || (err == nil && s.Expired(time.Now())) {
		return nil, nil
	}
	return s, err
}

// SignIn runs a native password login flow.
func (g *KratosGateway) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	flow, resp, err := g.client.FrontendAPI.CreateNativeLoginFlow(ctx).Execute()
	if err != nil {
		return nil, unavailable(resp, err)
	}

	method := kratos.NewUpdateLoginFlowWithPasswordMethod(email, "password", password)
	result, resp, err := g.client.FrontendAPI.
		UpdateLoginFlow(ctx).
		Flow(flow.Id).
		UpdateLoginFlowBody(kratos.UpdateLoginFlowWithPasswordMethodAsUpdateLoginFlowBody(method)).
		Execute()
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusBadRequest {
			return nil, flowError(err, domain.ErrInvalidCredentials)
		}
		return nil, unavailable(resp, err)
	}

	if result.SessionToken == nil {
		return nil, fmt.Errorf("%w: login returned no session token", domain.ErrBackendUnavailable)
	}
	return toDomainSession(&result.Session, *result.SessionToken)
}

// SignUp runs a native password registration flow.
func (g *KratosGateway) SignUp(ctx context.Context, email, password string) (*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	flow, resp, err := g.client.FrontendAPI.CreateNativeRegistrationFlow(ctx).Execute()
	if err != nil {
		return nil, unavailable(resp, err)
	}

	method := kratos.NewUpdateRegistrationFlowWithPasswordMethod("password", password, map[string]interface{}{
		"email": email,
	})
	result, resp, err := g.client.FrontendAPI.
		UpdateRegistrationFlow(ctx).
		Flow(flow.Id).
		UpdateRegistrationFlowBody(kratos.UpdateRegistrationFlowWithPasswordMethodAsUpdateRegistrationFlowBody(method)).
		Execute()
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusBadRequest {
			return nil, flowError(err, domain.ErrInvalidInput)
		}
		return nil, unavailable(resp, err)
	}

	reg := &domain.Registration{UserID: result.Identity.Id}
	if result.Session != nil && result.SessionToken != nil {
		s, err := toDomainSession(result.Session, *result.SessionToken)
		if err != nil {
			return nil, err
		}
		reg.Session = s
	}
	return reg, nil
}

// SignOut revokes a session token.
func (g *KratosGateway) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.FrontendAPI.
		PerformNativeLogout(ctx).
		PerformNativeLogoutBody(*kratos.NewPerformNativeLogoutBody(token)).
		Execute()
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil
		}
		return unavailable(resp, err)
	}
	return nil
}

func toDomainSession(s *kratos.Session, token string) (*domain.Session, error) {
	if s.Active != nil && !*s.Active {
		return nil, domain.ErrSessionInactive
	}
	if s.Identity == nil {
		return nil, domain.ErrMissingIdentity
	}

	email := ""
	if traits, ok := s.Identity.Traits.(map[string]interface{}); ok {
		if v, ok := traits["email"].(string); ok {
			email = v
		}
	}

	out := &domain.Session{
		AccessToken: token,
		UserID:      s.Identity.Id,
		Email:       email,
	}
	if s.ExpiresAt != nil {
		out.ExpiresAt = *s.ExpiresAt
	}
	return out, nil
}

func unavailable(resp *http.Response, err error) error {
	if resp != nil {
		return fmt.Errorf("%w: kratos returned status %d", domain.ErrBackendUnavailable, resp.StatusCode)
	}
	return fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err)
}

// flowUI is the part of a rejected flow carrying user-facing messages.
type flowUI struct {
	UI struct {
		Messages []uiMessage `json:"messages"`
		Nodes    []struct {
			Messages []uiMessage `json:"messages"`
		} `json:"nodes"`
	} `json:"ui"`
}

type uiMessage struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// flowError classifies a 400 flow response. fallback is used when no known
// message id is present; the provider's message text is kept verbatim.
func flowError(err error, fallback error) error {
	var apiErr *kratos.GenericOpenAPIError
	if !errors.As(err, &apiErr) {
		return fallback
	}

	var flow flowUI
	if json.Unmarshal(apiErr.Body(), &flow) != nil {
		return fallback
	}

	messages := flow.UI.Messages
	for _, n := range flow.UI.Nodes {
		messages = append(messages, n.Messages...)
	}
	for _, m := range messages {
		switch m.ID {
		case msgDuplicateAccount:
			return domain.ErrDuplicateAccount
		case msgInvalidCredentials:
			return domain.ErrInvalidCredentials
		}
	}
	if len(messages) > 0 && messages[0].Text != "" {
		return fmt.Errorf("%w: %s", fallback, messages[0].Text)
	}
	return fallback
}
