package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"canteen/internal/domain"
	"canteen/internal/identity"
	"canteen/internal/infrastructure/localstore"
	"canteen/internal/infrastructure/realtime"
	"canteen/internal/infrastructure/token"
	"canteen/internal/mocks"
	"canteen/internal/usecase"
	"canteen/utils/validator"
)

// stubAuth implements domain.Authenticator over a fixed account table.
type stubAuth struct {
	mu       sync.Mutex
	accounts map[string]*domain.Session // by email
	live     map[string]*domain.Session // by token
	hold     chan struct{}
	revoked  []string
}

func newStubAuth() *stubAuth {
	return &stubAuth{accounts: map[string]*domain.Session{}, live: map[string]*domain.Session{}}
}

func (a *stubAuth) addAccount(email, userID, token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := &domain.Session{AccessToken: token, UserID: userID, Email: email}
	a.accounts[email] = s
	a.live[token] = s
}

func (a *stubAuth) GetCurrentSession(ctx context.Context, token string) (*domain.Session, error) {
	a.mu.Lock()
	hold := a.hold
	a.mu.Unlock()
	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.live[token], nil
}

func (a *stubAuth) SignIn(_ context.Context, email, password string) (*domain.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.accounts[email]
	if !ok || password != "secret1" {
		return nil, domain.ErrInvalidCredentials
	}
	return s, nil
}

func (a *stubAuth) SignUp(context.Context, string, string) (*domain.Registration, error) {
	return nil, domain.ErrDuplicateAccount
}

func (a *stubAuth) SignOut(_ context.Context, token string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.revoked = append(a.revoked, token)
	return nil
}

// stubProfiles implements domain.ProfileRepository.
type stubProfiles struct {
	mu       sync.Mutex
	profiles map[string]*domain.Profile
}

func (p *stubProfiles) GetProfile(_ context.Context, id string) (*domain.Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pr, ok := p.profiles[id]; ok {
		cp := *pr
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (p *stubProfiles) UpsertProfile(_ context.Context, pr domain.Profile) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.profiles[pr.ID] = &pr
	return nil
}

type harness struct {
	t        *testing.T
	e        *echo.Echo
	store    *localstore.MemoryStore
	auth     *stubAuth
	profiles *stubProfiles
	menu     *mocks.MockMenuRepository
	orders   *mocks.MockOrderRepository
	objects  *mocks.MockObjectStore
	registry *identity.Registry
	tokens   *token.DeviceTokens
	csrf     *token.HMACCSRFGenerator
	logger   *slog.Logger
	decided  []identity.Outcome
}

func newHarness(t *testing.T, settle time.Duration) *harness {
	t.Helper()

	ctrl := gomock.NewController(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &harness{
		t:        t,
		store:    localstore.NewMemoryStore(),
		auth:     newStubAuth(),
		profiles: &stubProfiles{profiles: map[string]*domain.Profile{}},
		menu:     mocks.NewMockMenuRepository(ctrl),
		orders:   mocks.NewMockOrderRepository(ctrl),
		objects:  mocks.NewMockObjectStore(ctrl),
		tokens: token.NewDeviceTokens(token.DeviceTokenConfig{
			Secret: "0123456789abcdef0123456789abcdef",
			Issuer: "canteen-test",
			TTL:    time.Hour,
		}),
		csrf:   token.NewHMACCSRFGenerator("csrf-secret"),
		logger: logger,
	}

	hub := realtime.NewSessionHub()
	storage := func(deviceID string) domain.DeviceStorage {
		return localstore.NewDevice(h.store, deviceID, logger)
	}
	h.registry = identity.NewRegistry(h.auth, h.profiles, storage, hub, identity.RegistryConfig{
		Size:    64,
		IdleTTL: time.Minute,
		Timeout: 2 * time.Second,
	}, nil, logger)
	t.Cleanup(h.registry.Close)

	listMenu := usecase.NewListMenu(h.menu, logger)
	handlers := Handlers{
		Auth: NewAuthHandler(
			usecase.NewSignIn(h.auth, h.profiles, hub, logger),
			usecase.NewSignUp(h.auth, h.profiles, logger),
			usecase.NewSignOut(h.auth, hub, time.Second, logger),
			h.registry, logger),
		Session: NewSessionHandler(h.csrf),
		CSRF:    NewCSRFHandler(h.csrf),
		Menu: NewMenuHandler(listMenu, usecase.NewManageCart(h.menu, logger),
			usecase.NewPlaceOrder(h.orders, nil, logger)),
		Orders: NewOrdersHandler(usecase.NewOrderHistory(h.orders, logger), usecase.NewStaffOrders(h.orders, logger)),
		Items:  NewItemsHandler(listMenu, usecase.NewManageItems(h.menu, h.objects, itemImagePath, logger)),
		Health: NewHealthHandler(nil),
	}

	passthrough := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	h.e = echo.New()
	h.e.Validator = validator.New()
	RegisterRoutes(h.e, handlers, RouterConfig{
		Guard: NewGuard(h.registry, GuardConfig{
			Routes:     identity.DefaultRoutes,
			SettleWait: settle,
			Record:     func(o identity.Outcome, _ identity.Source) { h.decided = append(h.decided, o) },
		}, logger),
		Device: DeviceMiddleware(DeviceConfig{
			Tokens:  h.tokens,
			NewID:   token.NewDeviceID,
			Storage: storage,
			TTL:     time.Hour,
		}, logger),
		CSRF:     CSRFMiddleware(h.csrf, logger),
		AuthRate: passthrough,
		Internal: passthrough,
	})
	return h
}

// client is one browser: it keeps the device cookie and CSRF token.
type client struct {
	h      *harness
	cookie *http.Cookie
	csrf   string
}

func (h *harness) newClient() *client {
	c := &client{h: h}
	rec := c.do(http.MethodGet, "/csrf", nil)
	require.Equal(h.t, http.StatusOK, rec.Code)

	var resp csrfResponse
	require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	c.csrf = resp.Data.CSRFToken
	return c
}

func (c *client) deviceID() string {
	id, err := c.h.tokens.Parse(c.cookie.Value)
	require.NoError(c.h.t, err)
	return id
}

func (c *client) storage() *localstore.Device {
	return localstore.NewDevice(c.h.store, c.deviceID(), c.h.logger)
}

func itemImagePath(filename string, _ []byte) (string, string) {
	return "items/" + filename, "image/png"
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.h.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return c.send(req)
}

// doMultipart posts fields plus an optional "image" file part.
func (c *client) doMultipart(method, path string, fields map[string]string, filename string, image []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(c.h.t, w.WriteField(k, v))
	}
	if filename != "" {
		part, err := w.CreateFormFile("image", filename)
		require.NoError(c.h.t, err)
		_, err = part.Write(image)
		require.NoError(c.h.t, err)
	}
	require.NoError(c.h.t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return c.send(req)
}

func (c *client) send(req *http.Request) *httptest.ResponseRecorder {
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	if c.csrf != "" {
		req.Header.Set(CSRFHeader, c.csrf)
	}

	rec := httptest.NewRecorder()
	c.h.e.ServeHTTP(rec, req)

	for _, ck := range rec.Result().Cookies() {
		if ck.Name == DeviceCookie {
			c.cookie = ck
		}
	}
	return rec
}

func (c *client) signIn(path, email string) *httptest.ResponseRecorder {
	return c.do(http.MethodPost, path, map[string]string{"email": email, "password": "secret1"})
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(strings.NewReader(rec.Body.String())).Decode(&v))
	return v
}
