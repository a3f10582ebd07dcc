package handler

import (
	"fmt"
	"net/http"

	"smart-email/internal/config"
	"smart-email/internal/model"
	"smart-email/internal/service"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
)

const (
	sessionName   = "smart_email_session"
	sessionUserID = "user_id"

	// mailScope grants IMAP access with an OAuth bearer token.
	mailScope = "https://mail.google.com/"
)

// UserResolver returns the signed-in user of a request.
type UserResolver interface {
	GetCurrentUser(c echo.Context) (*model.User, error)
}

type AuthHandler struct {
	authService service.AuthService
	store       sessions.Store
	config      *config.Config
	logger      echo.Logger
}

func NewAuthHandler(authService service.AuthService, store sessions.Store, config *config.Config, logger echo.Logger) *AuthHandler {
	gothic.Store = store

	provider := google.New(
		config.GoogleClientID,
		config.GoogleClientSecret,
		config.BaseURL+"/auth/google/callback",
		mailScope,
		"email",
		"profile",
	)
	// Google only issues a refresh token on an explicit consent screen.
	provider.SetPrompt("consent")
	goth.UseProviders(provider)

	return &AuthHandler{
		authService: authService,
		store:       store,
		config:      config,
		logger:      logger,
	}
}

// BeginAuthHandler initiates the OAuth flow
func (h *AuthHandler) BeginAuthHandler(c echo.Context) error {
	provider := c.Param("provider")
	if provider != "google" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid provider",
		})
	}

	gothic.BeginAuthHandler(c.Response(), withProvider(c.Request()))
	return nil
}

// CallbackHandler links the Google account and starts a session.
func (h *AuthHandler) CallbackHandler(c echo.Context) error {
	req := withProvider(c.Request())

	googleUser, err := gothic.CompleteUserAuth(c.Response(), req)
	if err != nil {
		h.logger.Error("Failed to complete user auth:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Authentication failed",
		})
	}

	user, err := h.authService.LinkAccount(
		req.Context(),
		googleUser.Provider+"_"+googleUser.UserID,
		googleUser.Email,
		googleUser.Name,
		googleUser.AccessToken,
		googleUser.RefreshToken,
		googleUser.ExpiresAt,
	)
	if err != nil {
		h.logger.Error("Failed to link account:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to process user",
		})
	}

	session, _ := h.store.Get(req, sessionName)
	session.Values[sessionUserID] = user.ID
	if err := session.Save(req, c.Response()); err != nil {
		h.logger.Error("Failed to save session:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to save session",
		})
	}

	return c.Redirect(http.StatusTemporaryRedirect, "/")
}

// LogoutHandler clears both the goth and the application session.
func (h *AuthHandler) LogoutHandler(c echo.Context) error {
	req := withProvider(c.Request())
	_ = gothic.Logout(c.Response(), req)

	session, err := h.store.Get(req, sessionName)
	if err == nil {
		session.Options.MaxAge = -1
		if err := session.Save(req, c.Response()); err != nil {
			h.logger.Error("Failed to clear session:", err)
		}
	}

	return c.Redirect(http.StatusTemporaryRedirect, "/")
}

// GetCurrentUser returns the current authenticated user
func (h *AuthHandler) GetCurrentUser(c echo.Context) (*model.User, error) {
	session, err := h.store.Get(c.Request(), sessionName)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	userID, ok := session.Values[sessionUserID].(string)
	if !ok || userID == "" {
		return nil, fmt.Errorf("user not authenticated")
	}

	user, err := h.authService.GetUser(c.Request().Context(), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user from database: %w", err)
	}

	return user, nil
}

// withProvider sets the provider query parameter goth looks up.
func withProvider(req *http.Request) *http.Request {
	q := req.URL.Query()
	q.Set("provider", "google")
	req.URL.RawQuery = q.Encode()
	return req
}
