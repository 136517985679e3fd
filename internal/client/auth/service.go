// Package auth manages the client's authentication state: login,
// logout, token persistence, and the current-user signal the sync
// layer subscribes to.
package auth

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/mitul002/prayersync/internal/client/events"
	"github.com/mitul002/prayersync/internal/client/storage"
	"github.com/mitul002/prayersync/internal/crypto"
	pkgapi "github.com/mitul002/prayersync/pkg/api"
)

// API is the part of the server client the auth service depends on.
type API interface {
	Register(ctx context.Context, req pkgapi.RegisterRequest) (*pkgapi.RegisterResponse, error)
	GetSalt(ctx context.Context, username string) (*pkgapi.SaltResponse, error)
	Login(ctx context.Context, req pkgapi.LoginRequest) (*pkgapi.TokenResponse, error)
	Refresh(ctx context.Context, req pkgapi.RefreshRequest) (*pkgapi.TokenResponse, error)
	Logout(ctx context.Context) error
	SetAccessToken(token string)
}

// Service implements register/login/logout against the server and
// keeps the Notifier and the persisted AuthData in step.
type Service struct {
	api      API
	store    storage.AuthStorage
	notifier *Notifier
	bus      *events.Bus
	logger   *slog.Logger
}

// NewService creates an auth service.
func NewService(api API, store storage.AuthStorage, notifier *Notifier, bus *events.Bus, logger *slog.Logger) *Service {
	return &Service{
		api:      api,
		store:    store,
		notifier: notifier,
		bus:      bus,
		logger:   logger,
	}
}

// Register creates a new account. The password never leaves the
// client; only the hashed derived auth key is sent.
func (s *Service) Register(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", fmt.Errorf("username and password are required")
	}

	saltB64, err := crypto.GenerateSaltBase64()
	if err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil {
		return "", fmt.Errorf("failed to decode salt: %w", err)
	}

	authKey, err := crypto.DeriveAuthKey(password, username, salt)
	if err != nil {
		return "", fmt.Errorf("failed to derive auth key: %w", err)
	}
	hash, err := crypto.HashAuthKey(authKey)
	if err != nil {
		return "", fmt.Errorf("failed to hash auth key: %w", err)
	}

	resp, err := s.api.Register(ctx, pkgapi.RegisterRequest{
		Username:    username,
		AuthKeyHash: hash,
		PublicSalt:  saltB64,
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("registered", "user_id", resp.UserID, "username", username)
	return resp.UserID, nil
}

// Login authenticates, persists the token pair, and flips the
// current-user signal.
func (s *Service) Login(ctx context.Context, username, password string) (*storage.AuthData, error) {
	saltResp, err := s.api.GetSalt(ctx, username)
	if err != nil {
		return nil, err
	}
	salt, err := base64.StdEncoding.DecodeString(saltResp.PublicSalt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}

	authKey, err := crypto.DeriveAuthKey(password, username, salt)
	if err != nil {
		return nil, fmt.Errorf("failed to derive auth key: %w", err)
	}
	hash, err := crypto.HashAuthKey(authKey)
	if err != nil {
		return nil, fmt.Errorf("failed to hash auth key: %w", err)
	}

	tokens, err := s.api.Login(ctx, pkgapi.LoginRequest{Username: username, AuthKeyHash: hash})
	if err != nil {
		return nil, err
	}

	auth := &storage.AuthData{
		Username:     username,
		UserID:       tokens.UserID,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		PublicSalt:   saltResp.PublicSalt,
		ExpiresAt:    time.Now().Unix() + tokens.ExpiresIn,
	}
	if err := s.store.SaveAuth(ctx, auth); err != nil {
		return nil, fmt.Errorf("failed to save auth data: %w", err)
	}

	s.api.SetAccessToken(tokens.AccessToken)
	s.notifier.SetUser(tokens.UserID)

	s.logger.Info("logged in", "user_id", tokens.UserID, "username", username)
	return auth, nil
}

// Logout revokes the server-side tokens best-effort, clears the
// persisted auth state, and broadcasts the sign-out. Local state is
// cleared even when the server is unreachable.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.api.Logout(ctx); err != nil {
		s.logger.Warn("server logout failed, clearing local session anyway", "error", err)
	}

	if err := s.store.DeleteAuth(ctx); err != nil && err != storage.ErrAuthNotFound {
		return fmt.Errorf("failed to delete auth data: %w", err)
	}

	userID, _ := s.notifier.Current()
	s.api.SetAccessToken("")
	s.notifier.ClearUser()
	s.bus.Publish(events.Event{Topic: events.TopicLoggedOut, UserID: userID})

	s.logger.Info("logged out", "user_id", userID)
	return nil
}

// Restore loads a persisted session at startup. An expired access
// token is exchanged through the refresh endpoint; only when that
// fails too is the session treated as gone. A missing session leaves
// the notifier cleared, which is normal.
func (s *Service) Restore(ctx context.Context) (*storage.AuthData, error) {
	auth, err := s.store.GetAuth(ctx)
	if err != nil {
		if err == storage.ErrAuthNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load auth data: %w", err)
	}

	if auth.ExpiresAt <= time.Now().Unix() {
		refreshed, err := s.refresh(ctx, auth)
		if err != nil {
			s.logger.Info("stored session expired", "username", auth.Username, "error", err)
			return nil, nil
		}
		auth = refreshed
	}

	s.api.SetAccessToken(auth.AccessToken)
	s.notifier.SetUser(auth.UserID)
	return auth, nil
}

// refresh exchanges the stored refresh token for a new pair and
// persists the rotated tokens.
func (s *Service) refresh(ctx context.Context, auth *storage.AuthData) (*storage.AuthData, error) {
	if auth.RefreshToken == "" {
		return nil, fmt.Errorf("no refresh token stored")
	}

	tokens, err := s.api.Refresh(ctx, pkgapi.RefreshRequest{RefreshToken: auth.RefreshToken})
	if err != nil {
		return nil, err
	}

	rotated := &storage.AuthData{
		Username:     auth.Username,
		UserID:       tokens.UserID,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		PublicSalt:   auth.PublicSalt,
		ExpiresAt:    time.Now().Unix() + tokens.ExpiresIn,
	}
	if err := s.store.SaveAuth(ctx, rotated); err != nil {
		return nil, fmt.Errorf("failed to save refreshed auth data: %w", err)
	}

	s.logger.Info("session refreshed", "username", auth.Username)
	return rotated, nil
}
