package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"smart-email/internal/config"
	"smart-email/internal/logger"
	"smart-email/internal/repository/memory"
	"smart-email/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthHandler(t *testing.T, e *echo.Echo) (*AuthHandler, service.AuthService) {
	t.Helper()
	authService := service.NewAuthService(
		memory.NewInMemoryUserRepository(),
		memory.NewInMemoryCredentialRepository(),
		logger.NewNop(),
	)
	cfg := &config.Config{
		BaseURL:            "http://localhost:8080",
		GoogleClientID:     "client-id",
		GoogleClientSecret: "client-secret",
		SessionSecret:      "0123456789abcdef0123456789abcdef",
	}
	store := NewSessionStore([]byte(cfg.SessionSecret), false)
	return NewAuthHandler(authService, store, cfg, e.Logger), authService
}

func TestGetCurrentUserFromSession(t *testing.T) {
	// Setup
	e := echo.New()
	h, authService := newTestAuthHandler(t, e)
	user, err := authService.LinkAccount(context.Background(), "google_1", "user@example.com", "User", "access", "refresh", time.Now().Add(time.Hour))
	require.NoError(t, err)

	loginReq := httptest.NewRequest(http.MethodGet, "/auth/google/callback", nil)
	loginRec := httptest.NewRecorder()
	session, err := h.store.Get(loginReq, sessionName)
	require.NoError(t, err)
	session.Values[sessionUserID] = user.ID
	require.NoError(t, session.Save(loginReq, loginRec))

	req := httptest.NewRequest(http.MethodGet, "/api/emails", nil)
	for _, cookie := range loginRec.Result().Cookies() {
		req.AddCookie(cookie)
	}

	// Execute
	current, err := h.GetCurrentUser(e.NewContext(req, httptest.NewRecorder()))

	// Verify
	require.NoError(t, err)
	assert.Equal(t, user.ID, current.ID)
	assert.Equal(t, "user@example.com", current.Email)
}

func TestGetCurrentUserWithoutSession(t *testing.T) {
	// Setup
	e := echo.New()
	h, _ := newTestAuthHandler(t, e)
	req := httptest.NewRequest(http.MethodGet, "/api/emails", nil)

	// Execute
	_, err := h.GetCurrentUser(e.NewContext(req, httptest.NewRecorder()))

	// Verify
	assert.Error(t, err)
}

func TestBeginAuthRejectsUnknownProvider(t *testing.T) {
	// Setup
	e := echo.New()
	h, _ := newTestAuthHandler(t, e)
	req := httptest.NewRequest(http.MethodGet, "/auth/github", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("provider")
	c.SetParamValues("github")

	// Execute
	err := h.BeginAuthHandler(c)

	// Verify
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
